package scrub

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/claimguard/claimguard/internal/domain/refdata"
)

// checkPayer emits one advisory issue per matching payer rule that touches
// a billed code. Payer names match through refdata.MatchesPayer, which is a
// substring heuristic.
func checkPayer(c *claim, l *lookups) []Issue {
	if c.payer == "" {
		return nil
	}
	codes := c.distinctCodes()

	var issues []Issue
	for _, r := range l.payerRules {
		if !r.Active || !refdata.MatchesPayer(r.PayerName, c.payer) {
			continue
		}
		affected := intersect(codes, r.AppliesTo)
		if len(affected) == 0 {
			continue
		}

		iss := Issue{
			Type:     PayerIssueType(r.RuleType),
			Severity: Severity(r.Severity),
			Message:  fmt.Sprintf("%s (%s): %s", r.PayerName, strings.Join(affected, ", "), r.Description),
			Details: map[string]any{
				"payer_name":     r.PayerName,
				"rule_type":      r.RuleType,
				"affected_codes": affected,
			},
		}
		if len(affected) == 1 {
			iss.Code = affected[0]
		}
		if r.RecommendedAction != nil {
			iss.Correction = *r.RecommendedAction
		}
		issues = append(issues, iss)
	}
	return issues
}

// PayerIssueType derives the issue type for a payer rule, e.g.
// "prior auth required" becomes PAYER_PRIOR_AUTH_REQUIRED.
func PayerIssueType(ruleType string) IssueType {
	var b strings.Builder
	b.WriteString(payerIssuePrefix)
	sep := false
	for _, r := range strings.TrimSpace(ruleType) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if sep && b.Len() > len(payerIssuePrefix) {
				b.WriteByte('_')
			}
			sep = false
			b.WriteRune(unicode.ToUpper(r))
			continue
		}
		sep = true
	}
	return IssueType(b.String())
}

// intersect returns the members of codes present in set, in codes order.
func intersect(codes, set []string) []string {
	var out []string
	for _, c := range codes {
		if containsFold(set, c) {
			out = append(out, c)
		}
	}
	return out
}
