package scrub

import (
	"fmt"
	"strconv"
)

// checkModifiers runs the E/M-with-procedure, component split and
// laterality rules. Each rule yields its own issue type.
func checkModifiers(c *claim, rules RuleConfig) []Issue {
	var issues []Issue

	hasProcedure := false
	for _, p := range c.procedures {
		if !rules.isEM(p.CPTCode) {
			hasProcedure = true
			break
		}
	}

	for _, p := range c.procedures {
		mods := make(map[string]bool, len(p.Modifiers))
		for _, m := range p.Modifiers {
			mods[m] = true
		}

		if hasProcedure && rules.isEM(p.CPTCode) && !mods["25"] {
			issues = append(issues, Issue{
				Type:       IssueMissingSeparateEM,
				Severity:   SeverityHigh,
				Code:       p.CPTCode,
				Message:    fmt.Sprintf("E/M %s is billed with a procedure but lacks modifier 25", p.CPTCode),
				Correction: fmt.Sprintf("Append modifier 25 to %s if the E/M was significant and separately identifiable", p.CPTCode),
			})
		}

		if mods["26"] && mods["TC"] {
			issues = append(issues, Issue{
				Type:       IssueConflictingComponents,
				Severity:   SeverityCritical,
				Code:       p.CPTCode,
				Message:    fmt.Sprintf("%s carries both 26 (professional) and TC (technical)", p.CPTCode),
				Correction: fmt.Sprintf("Remove TC from %s, or bill the global service without either modifier", p.CPTCode),
			})
		}

		if (mods["LT"] && mods["RT"]) || (mods["50"] && (mods["LT"] || mods["RT"])) {
			issues = append(issues, Issue{
				Type:       IssueInvalidLaterality,
				Severity:   SeverityHigh,
				Code:       p.CPTCode,
				Message:    fmt.Sprintf("%s has conflicting laterality modifiers", p.CPTCode),
				Correction: "Review the operative note and keep only the modifier matching the treated side",
				Details:    map[string]any{"modifiers": p.Modifiers},
			})
		}
	}
	return issues
}

// isEM reports whether code is a numeric E/M code inside the configured range.
func (c RuleConfig) isEM(code string) bool {
	n, err := strconv.Atoi(code)
	if err != nil {
		return false
	}
	return n >= c.EMRangeLow && n <= c.EMRangeHigh
}
