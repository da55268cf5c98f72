package scrub

import "fmt"

// correctionFor maps issue types to structured corrections. Types without
// an entry are advisory only: laterality, necessity and payer findings need
// a person to read the chart.
var correctionFor = map[IssueType]func(Issue) []Correction{
	IssueUnitLimitExceeded: func(iss Issue) []Correction {
		limit, _ := iss.Details["limit"].(int)
		return []Correction{{
			Type:       CorrectionReduceUnits,
			TargetCode: iss.Code,
			Action:     fmt.Sprintf("Reduce units on %s to %d", iss.Code, limit),
			Value:      limit,
			Reason:     "Billed units exceed the medically unlikely edit",
		}}
	},
	IssueBundlingViolation: func(iss Issue) []Correction {
		return []Correction{{
			Type:       CorrectionRemoveCode,
			TargetCode: iss.Code,
			Action:     fmt.Sprintf("Remove %s", iss.Code),
			Reason:     fmt.Sprintf("%s is a component of %s and the edit allows no modifier", iss.Code, iss.CodePair[0]),
		}}
	},
	IssueBundlingModifierRequired: func(iss Issue) []Correction {
		return []Correction{{
			Type:       CorrectionAddModifier,
			TargetCode: iss.Code,
			Action:     fmt.Sprintf("Append modifier 59 to %s", iss.Code),
			Value:      "59",
			Reason:     fmt.Sprintf("%s bundles into %s unless the service was distinct", iss.Code, iss.CodePair[0]),
		}}
	},
	IssueMissingSeparateEM: func(iss Issue) []Correction {
		return []Correction{{
			Type:       CorrectionAddModifier,
			TargetCode: iss.Code,
			Action:     fmt.Sprintf("Append modifier 25 to %s", iss.Code),
			Value:      "25",
			Reason:     "E/M billed on the same day as a procedure",
		}}
	},
	IssueConflictingComponents: func(iss Issue) []Correction {
		return []Correction{{
			Type:       CorrectionRemoveModifier,
			TargetCode: iss.Code,
			Action:     fmt.Sprintf("Remove modifier TC from %s", iss.Code),
			Value:      "TC",
			Reason:     "Professional and technical component modifiers cannot appear together",
		}}
	},
	IssueFrequencyLimitExceeded: func(iss Issue) []Correction {
		return []Correction{{
			Type:       CorrectionDocumentNecessity,
			TargetCode: iss.Code,
			Action:     fmt.Sprintf("Attach documentation supporting the additional %s", iss.Code),
			Reason:     "Service exceeds the payer's annual frequency limit",
		}}
	},
}

// generateCorrections derives corrections in issue order.
func generateCorrections(issues []Issue) []Correction {
	out := make([]Correction, 0, len(issues))
	for _, iss := range issues {
		gen, ok := correctionFor[iss.Type]
		if !ok {
			continue
		}
		for _, c := range gen(iss) {
			c.IssueType = iss.Type
			out = append(out, c)
		}
	}
	return out
}
