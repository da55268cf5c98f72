package scrub

import "fmt"

// checkUnits flags lines whose units exceed the MUE for the setting.
func checkUnits(c *claim, l *lookups, rules RuleConfig) []Issue {
	setting, facility := "practitioner", rules.isFacility(c.pos)
	if facility {
		setting = "facility"
	}

	var issues []Issue
	for _, p := range c.procedures {
		u, ok := l.unitLimits[p.CPTCode]
		if !ok {
			continue
		}
		limit := u.PractitionerLimit
		if facility {
			limit = u.FacilityLimit
		}
		if limit <= 0 || p.Units <= limit {
			continue
		}

		details := map[string]any{
			"billed_units": p.Units,
			"limit":        limit,
			"setting":      setting,
		}
		if u.Rationale != nil {
			details["rationale"] = *u.Rationale
		}
		issues = append(issues, Issue{
			Type:       IssueUnitLimitExceeded,
			Severity:   SeverityCritical,
			Code:       p.CPTCode,
			Message:    fmt.Sprintf("%s billed with %d units; the %s MUE is %d", p.CPTCode, p.Units, setting, limit),
			Correction: fmt.Sprintf("Reduce %s to %d units or split across dates of service with documentation", p.CPTCode, limit),
			Details:    details,
		})
	}
	return issues
}
