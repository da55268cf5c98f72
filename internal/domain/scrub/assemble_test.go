package scrub

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestCategorize(t *testing.T) {
	issues := []Issue{
		{Type: IssueUnitLimitExceeded, Severity: SeverityCritical},
		{Type: IssueBundlingViolation, Severity: SeverityCritical},
		{Type: IssueBundlingModifierRequired, Severity: SeverityHigh},
		{Type: IssueMissingSeparateEM, Severity: SeverityHigh},
		{Type: IssueInvalidLaterality, Severity: SeverityHigh},
		{Type: IssueWeakNecessityLink, Severity: SeverityMedium},
		{Type: PayerIssueType("frequency limit"), Severity: SeverityMedium},
		{Type: PayerIssueType("modifier policy"), Severity: SeverityLow},
		{Type: IssueFrequencyLimitExceeded, Severity: SeverityHigh},
		{Type: IssueIntervalTooSoon, Severity: SeverityMedium},
	}

	cat := Categorize(issues)
	sizes := []int{len(cat.MUE), len(cat.NCCI), len(cat.Modifier), len(cat.Necessity), len(cat.Payer), len(cat.Frequency)}
	if diff := cmp.Diff([]int{1, 2, 2, 1, 2, 2}, sizes); diff != "" {
		t.Errorf("bucket sizes mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(cat, Categorize(issues)); diff != "" {
		t.Errorf("Categorize is not idempotent:\n%s", diff)
	}

	cat.MUE[0].Code = "changed"
	if issues[0].Code != "" {
		t.Error("buckets must not alias the input")
	}
}

func TestAssemble(t *testing.T) {
	issues := []Issue{
		{Type: IssueUnitLimitExceeded, Severity: SeverityCritical},
		{Type: IssueMissingSeparateEM, Severity: SeverityHigh},
		{Type: IssueMarginalNecessity, Severity: SeverityLow},
	}
	c := Claim{Procedures: []ProcedureEntry{line("99214", 1), line("20610", 3)}, ICDCodes: []string{"M17.11"}, Payer: "Aetna"}
	b := RiskBreakdown{FinalScore: 72}

	res := Assemble(c, issues, nil, b, DefaultScoringConfig().Thresholds, []string{"necessity: 1 lookup(s) failed"})

	want := SeverityCounts{Critical: 1, High: 1, Low: 1, Total: 3}
	if diff := cmp.Diff(want, res.Counts); diff != "" {
		t.Errorf("counts mismatch (-want +got):\n%s", diff)
	}
	if res.DenialRiskScore != 72 || res.RiskLevel != SeverityCritical {
		t.Errorf("unexpected score/level %d/%s", res.DenialRiskScore, res.RiskLevel)
	}
	if res.Corrections == nil || len(res.Corrections) != 0 {
		t.Errorf("expected empty corrections slice, got %#v", res.Corrections)
	}
	if !res.Degraded {
		t.Error("warnings should mark the result degraded")
	}
	if res.Summary != (Summary{ProceduresChecked: 2, DiagnosesChecked: 1, Payer: "Aetna"}) {
		t.Errorf("unexpected summary %+v", res.Summary)
	}
}

func TestGenerateCorrections(t *testing.T) {
	issues := []Issue{
		{Type: IssueUnitLimitExceeded, Code: "20610", Details: map[string]any{"limit": 2}},
		{Type: IssueWeakNecessityLink, Code: "97110"},
		{Type: IssueBundlingModifierRequired, Code: "29877", CodePair: []string{"29881", "29877"}},
		{Type: IssueIntervalTooSoon, Code: "77067"},
	}
	got := generateCorrections(issues)
	if len(got) != 2 {
		t.Fatalf("expected 2 corrections, got %+v", got)
	}
	if got[0].IssueType != IssueUnitLimitExceeded || got[0].Value != 2 {
		t.Errorf("unexpected first correction %+v", got[0])
	}
	if got[1].IssueType != IssueBundlingModifierRequired || got[1].TargetCode != "29877" || got[1].Value != "59" {
		t.Errorf("unexpected second correction %+v", got[1])
	}
}

func TestPayerIssueType(t *testing.T) {
	cases := map[string]IssueType{
		"prior auth required":  "PAYER_PRIOR_AUTH_REQUIRED",
		"Site-of-Service":      "PAYER_SITE_OF_SERVICE",
		"  frequency__limit ":  "PAYER_FREQUENCY_LIMIT",
		"-leading punctuation": "PAYER_LEADING_PUNCTUATION",
		"modifier 59 policy":   "PAYER_MODIFIER_59_POLICY",
	}
	for in, want := range cases {
		if got := PayerIssueType(in); got != want {
			t.Errorf("PayerIssueType(%q) = %s, want %s", in, got, want)
		}
	}
}
