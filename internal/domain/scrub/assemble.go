package scrub

import "strings"

// Categorize groups issues by rule family. It allocates fresh slices on
// every call and never modifies issues.
func Categorize(issues []Issue) IssueCategories {
	cat := IssueCategories{
		MUE:       []Issue{},
		NCCI:      []Issue{},
		Modifier:  []Issue{},
		Necessity: []Issue{},
		Payer:     []Issue{},
		Frequency: []Issue{},
	}
	for _, iss := range issues {
		t := string(iss.Type)
		switch {
		case strings.HasPrefix(t, payerIssuePrefix):
			cat.Payer = append(cat.Payer, iss)
		case strings.Contains(t, "UNIT_LIMIT"):
			cat.MUE = append(cat.MUE, iss)
		case strings.Contains(t, "BUNDLING"):
			cat.NCCI = append(cat.NCCI, iss)
		case strings.Contains(t, "MODIFIER"):
			cat.Modifier = append(cat.Modifier, iss)
		case strings.Contains(t, "NECESSITY"):
			cat.Necessity = append(cat.Necessity, iss)
		case strings.Contains(t, "FREQUENCY"), strings.Contains(t, "INTERVAL"):
			cat.Frequency = append(cat.Frequency, iss)
		}
	}
	return cat
}

func countSeverities(issues []Issue) SeverityCounts {
	var n SeverityCounts
	for _, iss := range issues {
		switch iss.Severity {
		case SeverityCritical:
			n.Critical++
		case SeverityHigh:
			n.High++
		case SeverityMedium:
			n.Medium++
		case SeverityLow:
			n.Low++
		}
	}
	n.Total = len(issues)
	return n
}

// Assemble packages the evaluation into a ValidationResult.
func Assemble(c Claim, issues []Issue, corrections []Correction, breakdown RiskBreakdown, thresholds RiskThresholds, warnings []string) *ValidationResult {
	if issues == nil {
		issues = []Issue{}
	}
	if corrections == nil {
		corrections = []Correction{}
	}
	return &ValidationResult{
		DenialRiskScore: breakdown.FinalScore,
		RiskLevel:       Level(breakdown.FinalScore, thresholds),
		Counts:          countSeverities(issues),
		Issues:          issues,
		Categories:      Categorize(issues),
		Corrections:     corrections,
		RiskBreakdown:   breakdown,
		Summary: Summary{
			ProceduresChecked: len(c.Procedures),
			DiagnosesChecked:  len(c.ICDCodes),
			Payer:             c.Payer,
		},
		Degraded: len(warnings) > 0,
		Warnings: warnings,
	}
}
