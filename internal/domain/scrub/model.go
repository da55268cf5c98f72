package scrub

import (
	"errors"
	"time"
)

var (
	// ErrNoProcedures rejects a claim with no procedure lines.
	ErrNoProcedures = errors.New("claim has no procedures")
	// ErrInvalidProcedure rejects a malformed procedure line.
	ErrInvalidProcedure = errors.New("invalid procedure")
	// ErrInvalidClaim rejects malformed claim-level fields.
	ErrInvalidClaim = errors.New("invalid claim")
)

type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
)

// RiskLevel uses the same four grades as Severity.
type RiskLevel = Severity

type IssueType string

const (
	IssueUnitLimitExceeded        IssueType = "UNIT_LIMIT_EXCEEDED"
	IssueBundlingViolation        IssueType = "BUNDLING_VIOLATION"
	IssueBundlingModifierRequired IssueType = "BUNDLING_MODIFIER_REQUIRED"
	IssueMissingSeparateEM        IssueType = "MISSING_SEPARATE_EM_MODIFIER"
	IssueConflictingComponents    IssueType = "CONFLICTING_COMPONENT_MODIFIERS"
	IssueInvalidLaterality        IssueType = "INVALID_LATERALITY_MODIFIERS"
	IssueWeakNecessityLink        IssueType = "WEAK_NECESSITY_LINK"
	IssueMarginalNecessity        IssueType = "MARGINAL_NECESSITY_SCORE"
	IssueFrequencyLimitExceeded   IssueType = "FREQUENCY_LIMIT_EXCEEDED"
	IssueIntervalTooSoon          IssueType = "INTERVAL_TOO_SOON"

	// payerIssuePrefix precedes the rule type of a payer rule finding,
	// e.g. PAYER_PRIOR_AUTH_REQUIRED.
	payerIssuePrefix = "PAYER_"
)

type CorrectionType string

const (
	CorrectionReduceUnits       CorrectionType = "reduce-units"
	CorrectionRemoveCode        CorrectionType = "remove-code"
	CorrectionAddModifier       CorrectionType = "add-modifier"
	CorrectionRemoveModifier    CorrectionType = "remove-modifier"
	CorrectionDocumentNecessity CorrectionType = "document-necessity"
)

// ProcedureEntry is one billed line.
type ProcedureEntry struct {
	CPTCode   string   `json:"cpt_code" yaml:"cpt_code"`
	Units     int      `json:"units" yaml:"units"`
	Modifiers []string `json:"modifiers" yaml:"modifiers"`
	Charge    *float64 `json:"charge,omitempty" yaml:"charge,omitempty"`
}

// Claim is the input to Validate. ServiceDate is YYYY-MM-DD; when empty the
// service clock supplies the evaluation date.
type Claim struct {
	Procedures        []ProcedureEntry `json:"procedures" yaml:"procedures"`
	ICDCodes          []string         `json:"icd_codes" yaml:"icd_codes"`
	Payer             string           `json:"payer,omitempty" yaml:"payer,omitempty"`
	PlaceOfService    string           `json:"place_of_service,omitempty" yaml:"place_of_service,omitempty"`
	PatientIdentifier string           `json:"patient_identifier,omitempty" yaml:"patient_identifier,omitempty"`
	ServiceDate       string           `json:"service_date,omitempty" yaml:"service_date,omitempty"`
}

// Issue is one finding. Details keys are checker specific and use
// snake_case, e.g. billed_units, limit, setting, mean_score.
type Issue struct {
	Type       IssueType      `json:"type"`
	Severity   Severity       `json:"severity"`
	Code       string         `json:"code,omitempty"`
	CodePair   []string       `json:"code_pair,omitempty"`
	Message    string         `json:"message"`
	Correction string         `json:"correction,omitempty"`
	Details    map[string]any `json:"details,omitempty"`
}

// Correction is a structured remediation derived from an issue.
type Correction struct {
	Type       CorrectionType `json:"type"`
	TargetCode string         `json:"target_code"`
	Action     string         `json:"action"`
	Value      any            `json:"value,omitempty"`
	Reason     string         `json:"reason"`
	IssueType  IssueType      `json:"issue_type"`
}

// RiskBreakdown keeps every input to the final score.
type RiskBreakdown struct {
	SeverityScore       int     `json:"severity_score"`
	NecessityScore      int     `json:"necessity_score"`
	ComplexityScore     int     `json:"complexity_score"`
	ICDSpecificityScore int     `json:"icd_specificity_score"`
	FrequencyScore      int     `json:"frequency_score"`
	PayerScore          int     `json:"payer_score"`
	Weights             Weights `json:"weights"`
	PayerMultiplier     float64 `json:"payer_multiplier"`
	BaseScore           float64 `json:"base_score"`
	FinalScore          int     `json:"final_score"`
	FloorApplied        bool    `json:"floor_applied"`
}

type SeverityCounts struct {
	Critical int `json:"critical"`
	High     int `json:"high"`
	Medium   int `json:"medium"`
	Low      int `json:"low"`
	Total    int `json:"total"`
}

// IssueCategories is a view over ValidationResult.Issues grouped by rule
// family.
type IssueCategories struct {
	MUE       []Issue `json:"mue"`
	NCCI      []Issue `json:"ncci"`
	Modifier  []Issue `json:"modifier"`
	Necessity []Issue `json:"necessity"`
	Payer     []Issue `json:"payer"`
	Frequency []Issue `json:"frequency"`
}

type Summary struct {
	ProceduresChecked int    `json:"procedures_checked"`
	DiagnosesChecked  int    `json:"diagnoses_checked"`
	Payer             string `json:"payer,omitempty"`
}

type ValidationResult struct {
	DenialRiskScore int             `json:"denial_risk_score"`
	RiskLevel       RiskLevel       `json:"risk_level"`
	Counts          SeverityCounts  `json:"counts"`
	Issues          []Issue         `json:"issues"`
	Categories      IssueCategories `json:"categories"`
	Corrections     []Correction    `json:"corrections"`
	RiskBreakdown   RiskBreakdown   `json:"risk_breakdown"`
	Summary         Summary         `json:"summary"`
	// Degraded is set when a reference lookup failed and some checks ran
	// without data. Warnings names the affected rule families.
	Degraded bool     `json:"degraded"`
	Warnings []string `json:"warnings,omitempty"`
}

// claim is the normalized form the checkers read.
type claim struct {
	procedures []ProcedureEntry
	icdCodes   []string
	payer      string
	pos        string
	patient    string
	asOf       time.Time
}

// distinctCodes returns procedure codes in first-seen order.
func (c *claim) distinctCodes() []string {
	seen := make(map[string]bool, len(c.procedures))
	var out []string
	for _, p := range c.procedures {
		if !seen[p.CPTCode] {
			seen[p.CPTCode] = true
			out = append(out, p.CPTCode)
		}
	}
	return out
}

// modifiersFor returns the union of modifiers on every line billing code.
func (c *claim) modifiersFor(code string) map[string]bool {
	out := make(map[string]bool)
	for _, p := range c.procedures {
		if p.CPTCode != code {
			continue
		}
		for _, m := range p.Modifiers {
			out[m] = true
		}
	}
	return out
}
