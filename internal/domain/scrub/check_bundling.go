package scrub

import (
	"fmt"

	"github.com/claimguard/claimguard/internal/domain/refdata"
)

// checkBundling evaluates every unordered pair of distinct codes against
// the NCCI edits. Issue content comes from the edit record, so line order
// never changes the finding.
func checkBundling(c *claim, l *lookups, rules RuleConfig) []Issue {
	codes := c.distinctCodes()
	var issues []Issue
	for i := 0; i < len(codes); i++ {
		for j := i + 1; j < len(codes); j++ {
			edit, ok := l.bundling[newPair(codes[i], codes[j])]
			if !ok {
				continue
			}
			comprehensive, component := edit.ColumnOne, edit.ColumnTwo
			details := map[string]any{
				"column_one":         comprehensive,
				"column_two":         component,
				"modifier_indicator": string(edit.ModifierIndicator),
			}
			if edit.Rationale != nil {
				details["rationale"] = *edit.Rationale
			}

			switch edit.ModifierIndicator {
			case refdata.IndicatorNever:
				issues = append(issues, Issue{
					Type:       IssueBundlingViolation,
					Severity:   SeverityCritical,
					Code:       component,
					CodePair:   []string{comprehensive, component},
					Message:    fmt.Sprintf("%s is bundled into %s and cannot be billed separately", component, comprehensive),
					Correction: fmt.Sprintf("Remove %s; it is included in %s", component, comprehensive),
					Details:    details,
				})
			case refdata.IndicatorAllowedWithModifier:
				if hasOverride(c, rules, comprehensive) || hasOverride(c, rules, component) {
					continue
				}
				issues = append(issues, Issue{
					Type:       IssueBundlingModifierRequired,
					Severity:   SeverityHigh,
					Code:       component,
					CodePair:   []string{comprehensive, component},
					Message:    fmt.Sprintf("%s and %s are bundled unless a distinct-service modifier is appended", comprehensive, component),
					Correction: fmt.Sprintf("Append modifier 59 (or XE/XS/XP/XU) to %s if the service was distinct", component),
					Details:    details,
				})
			}
		}
	}
	return issues
}

func hasOverride(c *claim, rules RuleConfig, code string) bool {
	for m := range c.modifiersFor(code) {
		if rules.isOverride(m) {
			return true
		}
	}
	return false
}
