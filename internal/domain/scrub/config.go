package scrub

import (
	"fmt"
	"strings"
)

// RuleConfig tunes the checkers.
type RuleConfig struct {
	// FacilityPlacesOfService selects the facility MUE column.
	FacilityPlacesOfService []string `json:"facility_places_of_service" yaml:"facility_places_of_service"`
	// OverrideModifiers satisfy an allowed-with-modifier bundling edit.
	OverrideModifiers []string `json:"override_modifiers" yaml:"override_modifiers"`
	EMRangeLow        int      `json:"em_range_low" yaml:"em_range_low"`
	EMRangeHigh       int      `json:"em_range_high" yaml:"em_range_high"`
	// NecessityThreshold is the mean score below which support is marginal.
	NecessityThreshold   float64 `json:"necessity_threshold" yaml:"necessity_threshold"`
	NecessitySuggestions int     `json:"necessity_suggestions" yaml:"necessity_suggestions"`
	HistoryWindow        int     `json:"history_window" yaml:"history_window"`
	FrequencyWindowDays  int     `json:"frequency_window_days" yaml:"frequency_window_days"`
	LookupConcurrency    int     `json:"lookup_concurrency" yaml:"lookup_concurrency"`
}

func DefaultRuleConfig() RuleConfig {
	return RuleConfig{
		FacilityPlacesOfService: []string{"19", "21", "22", "23", "24", "26", "31", "34", "51", "52", "53", "56", "61"},
		OverrideModifiers:       []string{"59", "XE", "XS", "XP", "XU"},
		EMRangeLow:              99201,
		EMRangeHigh:             99499,
		NecessityThreshold:      70,
		NecessitySuggestions:    5,
		HistoryWindow:           20,
		FrequencyWindowDays:     365,
		LookupConcurrency:       8,
	}
}

func (c RuleConfig) Validate() error {
	if c.EMRangeLow <= 0 || c.EMRangeHigh < c.EMRangeLow {
		return fmt.Errorf("rule config: invalid E/M range %d-%d", c.EMRangeLow, c.EMRangeHigh)
	}
	if c.NecessityThreshold < 0 || c.NecessityThreshold > 100 {
		return fmt.Errorf("rule config: necessity_threshold %.1f outside 0-100", c.NecessityThreshold)
	}
	if c.NecessitySuggestions < 0 {
		return fmt.Errorf("rule config: necessity_suggestions must not be negative")
	}
	if c.HistoryWindow < 1 || c.FrequencyWindowDays < 1 || c.LookupConcurrency < 1 {
		return fmt.Errorf("rule config: history_window, frequency_window_days and lookup_concurrency must be positive")
	}
	return nil
}

func (c RuleConfig) isFacility(pos string) bool {
	return containsFold(c.FacilityPlacesOfService, pos)
}

func (c RuleConfig) isOverride(mod string) bool {
	return containsFold(c.OverrideModifiers, mod)
}

// Weights are the contributions of each sub-score to the base score.
type Weights struct {
	Severity       float64 `json:"severity" yaml:"severity"`
	Necessity      float64 `json:"necessity" yaml:"necessity"`
	Complexity     float64 `json:"complexity" yaml:"complexity"`
	ICDSpecificity float64 `json:"icd_specificity" yaml:"icd_specificity"`
	Frequency      float64 `json:"frequency" yaml:"frequency"`
	// Payer is reported for completeness; the payer factor is applied as
	// a multiplier, never summed.
	Payer float64 `json:"payer" yaml:"payer"`
}

type SeverityPoints struct {
	Critical int `json:"critical" yaml:"critical"`
	High     int `json:"high" yaml:"high"`
	Medium   int `json:"medium" yaml:"medium"`
	Low      int `json:"low" yaml:"low"`
}

func (p SeverityPoints) For(s Severity) int {
	switch s {
	case SeverityCritical:
		return p.Critical
	case SeverityHigh:
		return p.High
	case SeverityMedium:
		return p.Medium
	case SeverityLow:
		return p.Low
	}
	return 0
}

// PayerMultiplier applies when Match occurs in the payer name, ignoring case.
// The first matching entry wins.
type PayerMultiplier struct {
	Match      string  `json:"match" yaml:"match"`
	Multiplier float64 `json:"multiplier" yaml:"multiplier"`
}

type RiskThresholds struct {
	Critical int `json:"critical" yaml:"critical"`
	High     int `json:"high" yaml:"high"`
	Medium   int `json:"medium" yaml:"medium"`
}

// ScoringConfig drives Score.
type ScoringConfig struct {
	Weights             Weights           `json:"weights" yaml:"weights"`
	SeverityPoints      SeverityPoints    `json:"severity_points" yaml:"severity_points"`
	PayerMultipliers    []PayerMultiplier `json:"payer_multipliers" yaml:"payer_multipliers"`
	HighScrutinyCodes   []string          `json:"high_scrutiny_codes" yaml:"high_scrutiny_codes"`
	ExemptZCodePrefixes []string          `json:"exempt_z_code_prefixes" yaml:"exempt_z_code_prefixes"`
	Thresholds          RiskThresholds    `json:"thresholds" yaml:"thresholds"`
	// CriticalFloor is the minimum final score once any critical issue exists.
	CriticalFloor int `json:"critical_floor" yaml:"critical_floor"`
	// WeakLinkNecessityScore stands in for the necessity score of a code
	// whose mappings miss every claim diagnosis.
	WeakLinkNecessityScore float64 `json:"weak_link_necessity_score" yaml:"weak_link_necessity_score"`
}

const (
	minPayerMultiplier = 1.00
	maxPayerMultiplier = 1.15
)

func DefaultScoringConfig() ScoringConfig {
	return ScoringConfig{
		Weights: Weights{
			Severity:       0.40,
			Necessity:      0.20,
			Complexity:     0.10,
			ICDSpecificity: 0.10,
			Frequency:      0.05,
		},
		SeverityPoints: SeverityPoints{Critical: 35, High: 20, Medium: 8, Low: 2},
		PayerMultipliers: []PayerMultiplier{
			{Match: "unitedhealthcare", Multiplier: 1.15},
			{Match: "united", Multiplier: 1.15},
			{Match: "aetna", Multiplier: 1.10},
			{Match: "cigna", Multiplier: 1.10},
			{Match: "medicaid", Multiplier: 1.10},
			{Match: "humana", Multiplier: 1.08},
			{Match: "anthem", Multiplier: 1.08},
			{Match: "blue cross", Multiplier: 1.05},
			{Match: "bcbs", Multiplier: 1.05},
			{Match: "medicare", Multiplier: 1.05},
		},
		HighScrutinyCodes: []string{
			"99205", "99215", "99223", "99233", "99285",
			"70553", "72148", "74177", "78452", "93306",
			"97110", "97140", "G0439",
		},
		ExemptZCodePrefixes:    []string{"Z00", "Z01", "Z12", "Z13", "Z23", "Z79"},
		Thresholds:             RiskThresholds{Critical: 70, High: 50, Medium: 25},
		CriticalFloor:          70,
		WeakLinkNecessityScore: 0,
	}
}

func (c ScoringConfig) Validate() error {
	w := c.Weights
	for name, v := range map[string]float64{
		"severity": w.Severity, "necessity": w.Necessity, "complexity": w.Complexity,
		"icd_specificity": w.ICDSpecificity, "frequency": w.Frequency, "payer": w.Payer,
	} {
		if v < 0 || v > 1 {
			return fmt.Errorf("scoring config: weight %s=%.2f outside 0-1", name, v)
		}
	}
	if sum := w.Severity + w.Necessity + w.Complexity + w.ICDSpecificity + w.Frequency; sum > 1.0001 {
		return fmt.Errorf("scoring config: summed weights %.2f exceed 1", sum)
	}
	p := c.SeverityPoints
	if p.Critical < 0 || p.High < 0 || p.Medium < 0 || p.Low < 0 {
		return fmt.Errorf("scoring config: severity points must not be negative")
	}
	for _, m := range c.PayerMultipliers {
		if strings.TrimSpace(m.Match) == "" {
			return fmt.Errorf("scoring config: payer multiplier with empty match")
		}
		if m.Multiplier < minPayerMultiplier || m.Multiplier > maxPayerMultiplier {
			return fmt.Errorf("scoring config: multiplier %.2f for %q outside [%.2f, %.2f]",
				m.Multiplier, m.Match, minPayerMultiplier, maxPayerMultiplier)
		}
	}
	t := c.Thresholds
	if !(t.Critical > t.High && t.High > t.Medium && t.Medium > 0 && t.Critical <= 100) {
		return fmt.Errorf("scoring config: thresholds must satisfy 0 < medium < high < critical <= 100")
	}
	if c.CriticalFloor < 0 || c.CriticalFloor > 100 {
		return fmt.Errorf("scoring config: critical_floor %d outside 0-100", c.CriticalFloor)
	}
	if c.WeakLinkNecessityScore < 0 || c.WeakLinkNecessityScore > 100 {
		return fmt.Errorf("scoring config: weak_link_necessity_score outside 0-100")
	}
	return nil
}

func containsFold(list []string, v string) bool {
	for _, s := range list {
		if strings.EqualFold(s, v) {
			return true
		}
	}
	return false
}
