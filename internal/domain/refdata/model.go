package refdata

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned by point lookups when no active record exists.
var ErrNotFound = errors.New("reference record not found")

// AllPayers is the payer-name sentinel that matches every payer.
const AllPayers = "all payers"

// ModifierIndicator controls whether a bundling edit can be bypassed.
type ModifierIndicator string

const (
	IndicatorNever               ModifierIndicator = "never"
	IndicatorAllowedWithModifier ModifierIndicator = "allowed-with-modifier"
)

var validSeverities = map[string]bool{
	"critical": true, "high": true, "medium": true, "low": true,
}

// UnitLimit maps to the unit_limit table (MUE).
type UnitLimit struct {
	ID                uuid.UUID  `db:"id" json:"id" yaml:"-"`
	CPTCode           string     `db:"cpt_code" json:"cpt_code" yaml:"cpt_code"`
	FacilityLimit     int        `db:"facility_limit" json:"facility_limit" yaml:"facility_limit"`
	PractitionerLimit int        `db:"practitioner_limit" json:"practitioner_limit" yaml:"practitioner_limit"`
	Rationale         *string    `db:"rationale" json:"rationale,omitempty" yaml:"rationale,omitempty"`
	EffectiveDate     time.Time  `db:"effective_date" json:"effective_date" yaml:"effective_date"`
	EndDate           *time.Time `db:"end_date" json:"end_date,omitempty" yaml:"end_date,omitempty"`
	CreatedAt         time.Time  `db:"created_at" json:"created_at" yaml:"-"`
}

func (u *UnitLimit) Validate() error {
	if len(strings.TrimSpace(u.CPTCode)) != 5 {
		return fmt.Errorf("unit limit: cpt_code must be 5 characters, got %q", u.CPTCode)
	}
	if u.FacilityLimit < 0 || u.PractitionerLimit < 0 {
		return fmt.Errorf("unit limit %s: limits must not be negative", u.CPTCode)
	}
	return nil
}

// ActiveOn reports whether the record is in effect on the given day.
func (u *UnitLimit) ActiveOn(t time.Time) bool {
	return activeOn(u.EffectiveDate, u.EndDate, t)
}

// BundlingEdit maps to the bundling_edit table (NCCI procedure-to-procedure).
// ColumnOne is the comprehensive code, ColumnTwo the component code.
type BundlingEdit struct {
	ID                uuid.UUID         `db:"id" json:"id" yaml:"-"`
	ColumnOne         string            `db:"column_one" json:"column_one" yaml:"column_one"`
	ColumnTwo         string            `db:"column_two" json:"column_two" yaml:"column_two"`
	ModifierIndicator ModifierIndicator `db:"modifier_indicator" json:"modifier_indicator" yaml:"modifier_indicator"`
	Rationale         *string           `db:"rationale" json:"rationale,omitempty" yaml:"rationale,omitempty"`
	EffectiveDate     time.Time         `db:"effective_date" json:"effective_date" yaml:"effective_date"`
	EndDate           *time.Time        `db:"end_date" json:"end_date,omitempty" yaml:"end_date,omitempty"`
	CreatedAt         time.Time         `db:"created_at" json:"created_at" yaml:"-"`
}

func (b *BundlingEdit) Validate() error {
	if b.ColumnOne == "" || b.ColumnTwo == "" {
		return fmt.Errorf("bundling edit: both codes are required")
	}
	if b.ColumnOne == b.ColumnTwo {
		return fmt.Errorf("bundling edit %s: codes must differ", b.ColumnOne)
	}
	switch b.ModifierIndicator {
	case IndicatorNever, IndicatorAllowedWithModifier:
	default:
		return fmt.Errorf("bundling edit %s/%s: invalid modifier indicator %q", b.ColumnOne, b.ColumnTwo, b.ModifierIndicator)
	}
	return nil
}

// Matches reports whether the edit covers the pair in either order.
func (b *BundlingEdit) Matches(codeA, codeB string) bool {
	return (b.ColumnOne == codeA && b.ColumnTwo == codeB) ||
		(b.ColumnOne == codeB && b.ColumnTwo == codeA)
}

func (b *BundlingEdit) ActiveOn(t time.Time) bool {
	return activeOn(b.EffectiveDate, b.EndDate, t)
}

// NecessityMapping maps to the necessity_mapping table.
type NecessityMapping struct {
	ID             uuid.UUID `db:"id" json:"id" yaml:"-"`
	CPTCode        string    `db:"cpt_code" json:"cpt_code" yaml:"cpt_code"`
	ICDCode        string    `db:"icd_code" json:"icd_code" yaml:"icd_code"`
	NecessityScore int       `db:"necessity_score" json:"necessity_score" yaml:"necessity_score"`
}

func (n *NecessityMapping) Validate() error {
	if n.CPTCode == "" || n.ICDCode == "" {
		return fmt.Errorf("necessity mapping: cpt_code and icd_code are required")
	}
	if n.NecessityScore < 0 || n.NecessityScore > 100 {
		return fmt.Errorf("necessity mapping %s/%s: score %d out of range", n.CPTCode, n.ICDCode, n.NecessityScore)
	}
	return nil
}

// PayerRule maps to the payer_rule table.
type PayerRule struct {
	ID                uuid.UUID `db:"id" json:"id" yaml:"-"`
	PayerName         string    `db:"payer_name" json:"payer_name" yaml:"payer_name"`
	RuleType          string    `db:"rule_type" json:"rule_type" yaml:"rule_type"`
	AppliesTo         []string  `db:"applies_to" json:"applies_to" yaml:"applies_to"`
	Severity          string    `db:"severity" json:"severity" yaml:"severity"`
	Description       string    `db:"description" json:"description" yaml:"description"`
	RecommendedAction *string   `db:"recommended_action" json:"recommended_action,omitempty" yaml:"recommended_action,omitempty"`
	Active            bool      `db:"active" json:"active" yaml:"active"`
	CreatedAt         time.Time `db:"created_at" json:"created_at" yaml:"-"`
}

func (p *PayerRule) Validate() error {
	if strings.TrimSpace(p.PayerName) == "" {
		return fmt.Errorf("payer rule: payer_name is required")
	}
	if strings.TrimSpace(p.RuleType) == "" {
		return fmt.Errorf("payer rule %s: rule_type is required", p.PayerName)
	}
	if len(p.AppliesTo) == 0 {
		return fmt.Errorf("payer rule %s/%s: applies_to is empty", p.PayerName, p.RuleType)
	}
	if !validSeverities[p.Severity] {
		return fmt.Errorf("payer rule %s/%s: invalid severity %q", p.PayerName, p.RuleType, p.Severity)
	}
	return nil
}

// FrequencyLimit maps to the frequency_limit table. An empty PayerScope or
// the AllPayers sentinel makes the limit global.
type FrequencyLimit struct {
	ID                   uuid.UUID `db:"id" json:"id" yaml:"-"`
	CPTCode              string    `db:"cpt_code" json:"cpt_code" yaml:"cpt_code"`
	PayerScope           string    `db:"payer_scope" json:"payer_scope,omitempty" yaml:"payer_scope,omitempty"`
	MaxPerYear           *int      `db:"max_per_year" json:"max_per_year,omitempty" yaml:"max_per_year,omitempty"`
	RequiredIntervalDays *int      `db:"required_interval_days" json:"required_interval_days,omitempty" yaml:"required_interval_days,omitempty"`
	ExceptionNote        *string   `db:"exception_note" json:"exception_note,omitempty" yaml:"exception_note,omitempty"`
}

func (f *FrequencyLimit) Validate() error {
	if f.CPTCode == "" {
		return fmt.Errorf("frequency limit: cpt_code is required")
	}
	hasMax := f.MaxPerYear != nil && *f.MaxPerYear > 0
	hasInterval := f.RequiredIntervalDays != nil && *f.RequiredIntervalDays > 0
	if !hasMax && !hasInterval {
		return fmt.Errorf("frequency limit %s: max_per_year or required_interval_days must be positive", f.CPTCode)
	}
	return nil
}

// Global reports whether the limit applies to every payer.
func (f *FrequencyLimit) Global() bool {
	return f.PayerScope == "" || strings.EqualFold(strings.TrimSpace(f.PayerScope), AllPayers)
}

// ClaimHistoryRecord maps to the claim_history table.
type ClaimHistoryRecord struct {
	ID                uuid.UUID `db:"id" json:"id" yaml:"-"`
	PatientIdentifier string    `db:"patient_identifier" json:"patient_identifier" yaml:"patient_identifier"`
	ClaimReference    *string   `db:"claim_reference" json:"claim_reference,omitempty" yaml:"claim_reference,omitempty"`
	SubmittedAt       time.Time `db:"submitted_at" json:"submitted_at" yaml:"submitted_at"`
	ProcedureCodes    []string  `db:"procedure_codes" json:"procedure_codes" yaml:"procedure_codes"`
	CreatedAt         time.Time `db:"created_at" json:"created_at" yaml:"-"`
}

func (h *ClaimHistoryRecord) Validate() error {
	if strings.TrimSpace(h.PatientIdentifier) == "" {
		return fmt.Errorf("claim history: patient_identifier is required")
	}
	if h.SubmittedAt.IsZero() {
		return fmt.Errorf("claim history %s: submitted_at is required", h.PatientIdentifier)
	}
	if len(h.ProcedureCodes) == 0 {
		return fmt.Errorf("claim history %s: procedure_codes is empty", h.PatientIdentifier)
	}
	return nil
}

// HasCode reports whether the prior claim billed the given procedure code.
func (h *ClaimHistoryRecord) HasCode(code string) bool {
	for _, c := range h.ProcedureCodes {
		if c == code {
			return true
		}
	}
	return false
}

func activeOn(effective time.Time, end *time.Time, t time.Time) bool {
	if !effective.IsZero() && effective.After(t) {
		return false
	}
	if end != nil && !end.After(t) {
		return false
	}
	return true
}
