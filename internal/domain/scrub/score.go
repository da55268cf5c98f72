package scrub

import (
	"math"
	"strings"
)

// Complexity and diagnosis-specificity points.
const (
	linesOver5Points     = 20
	linesOver3Points     = 10
	linesOver1Points     = 5
	modifiersOver4Points = 20
	modifiersOver2Points = 10
	highScrutinyPoints   = 5

	unspecifiedDxPoints = 15
	symptomDxPoints     = 10
	zCodePoints         = 20

	frequencyBase     = 50
	frequencyPerIssue = 25
)

// Score is a pure function of the findings, the claim's shape and cfg.
func Score(issues []Issue, c Claim, cfg ScoringConfig) RiskBreakdown {
	b := RiskBreakdown{
		SeverityScore:       severityScore(issues, cfg.SeverityPoints),
		NecessityScore:      necessityScore(issues, cfg.WeakLinkNecessityScore),
		ComplexityScore:     complexityScore(c, cfg.HighScrutinyCodes),
		ICDSpecificityScore: icdSpecificityScore(c.ICDCodes, cfg.ExemptZCodePrefixes),
		FrequencyScore:      frequencyScore(issues),
		Weights:             cfg.Weights,
		PayerMultiplier:     payerMultiplier(c.Payer, cfg.PayerMultipliers),
	}
	b.PayerScore = clamp(int(math.Round((b.PayerMultiplier - minPayerMultiplier) / (maxPayerMultiplier - minPayerMultiplier) * 100)))

	w := cfg.Weights
	base := w.Severity*float64(b.SeverityScore) +
		w.Necessity*float64(b.NecessityScore) +
		w.Complexity*float64(b.ComplexityScore) +
		w.ICDSpecificity*float64(b.ICDSpecificityScore) +
		w.Frequency*float64(b.FrequencyScore)
	b.BaseScore = math.Round(base*100) / 100

	final := int(math.Round(math.Min(100, base*b.PayerMultiplier)))
	if hasSeverity(issues, SeverityCritical) && final < cfg.CriticalFloor {
		final = cfg.CriticalFloor
		b.FloorApplied = true
	}
	b.FinalScore = final
	return b
}

// Level grades a final score.
func Level(score int, t RiskThresholds) RiskLevel {
	switch {
	case score >= t.Critical:
		return SeverityCritical
	case score >= t.High:
		return SeverityHigh
	case score >= t.Medium:
		return SeverityMedium
	default:
		return SeverityLow
	}
}

func severityScore(issues []Issue, pts SeverityPoints) int {
	sum := 0
	for _, iss := range issues {
		sum += pts.For(iss.Severity)
	}
	return clamp(sum)
}

// necessityScore is 100 minus the weakest necessity score behind any
// necessity issue.
func necessityScore(issues []Issue, weakLink float64) int {
	lowest, found := 100.0, false
	for _, iss := range issues {
		var s float64
		switch iss.Type {
		case IssueMarginalNecessity:
			v, ok := iss.Details["mean_score"].(float64)
			if !ok {
				continue
			}
			s = v
		case IssueWeakNecessityLink:
			s = weakLink
		default:
			continue
		}
		if !found || s < lowest {
			lowest, found = s, true
		}
	}
	if !found {
		return 0
	}
	return clamp(int(math.Round(100 - lowest)))
}

func complexityScore(c Claim, highScrutiny []string) int {
	pts := 0
	switch n := len(c.Procedures); {
	case n > 5:
		pts += linesOver5Points
	case n > 3:
		pts += linesOver3Points
	case n > 1:
		pts += linesOver1Points
	}

	mods := 0
	for _, p := range c.Procedures {
		mods += len(p.Modifiers)
		if containsFold(highScrutiny, p.CPTCode) {
			pts += highScrutinyPoints
		}
	}
	switch {
	case mods > 4:
		pts += modifiersOver4Points
	case mods > 2:
		pts += modifiersOver2Points
	}
	return clamp(pts)
}

// icdSpecificityScore adds points per diagnosis for each pattern it hits:
// unspecified (ends in 9), symptom-only R code, non-exempt Z code.
func icdSpecificityScore(codes []string, exemptZ []string) int {
	pts := 0
	for _, raw := range codes {
		code := icdKey(raw)
		if code == "" {
			continue
		}
		if strings.HasSuffix(code, "9") {
			pts += unspecifiedDxPoints
		}
		switch code[0] {
		case 'R':
			pts += symptomDxPoints
		case 'Z':
			if !hasPrefixAny(code, exemptZ) {
				pts += zCodePoints
			}
		}
	}
	return clamp(pts)
}

func frequencyScore(issues []Issue) int {
	n := 0
	for _, iss := range issues {
		if iss.Type == IssueFrequencyLimitExceeded || iss.Type == IssueIntervalTooSoon {
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return clamp(frequencyBase + frequencyPerIssue*n)
}

func payerMultiplier(payer string, table []PayerMultiplier) float64 {
	p := strings.ToLower(strings.TrimSpace(payer))
	if p == "" {
		return minPayerMultiplier
	}
	for _, m := range table {
		if strings.Contains(p, strings.ToLower(strings.TrimSpace(m.Match))) {
			return m.Multiplier
		}
	}
	return minPayerMultiplier
}

func hasSeverity(issues []Issue, s Severity) bool {
	for _, iss := range issues {
		if iss.Severity == s {
			return true
		}
	}
	return false
}

func hasPrefixAny(code string, prefixes []string) bool {
	for _, p := range prefixes {
		if p = icdKey(p); p != "" && strings.HasPrefix(code, p) {
			return true
		}
	}
	return false
}

func clamp(v int) int {
	return max(0, min(100, v))
}
