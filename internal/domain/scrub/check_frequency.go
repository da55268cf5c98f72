package scrub

import (
	"fmt"
	"time"

	"github.com/claimguard/claimguard/internal/domain/refdata"
)

const day = 24 * time.Hour

// checkFrequency compares each code's frequency limit against the patient's
// recent claims. Windows are measured back from the claim's service date.
func checkFrequency(c *claim, l *lookups, rules RuleConfig) []Issue {
	if c.patient == "" {
		return nil
	}
	windowStart := c.asOf.Add(-time.Duration(rules.FrequencyWindowDays) * day)
	// history from any time on the service date counts as prior
	cutoff := c.asOf.Add(day)

	var issues []Issue
	for _, code := range c.distinctCodes() {
		limit := selectLimit(l.frequency[code], c.payer)
		if limit == nil {
			continue
		}

		var inWindow int
		var last time.Time
		for _, h := range l.history {
			if !h.HasCode(code) || !h.SubmittedAt.Before(cutoff) {
				continue
			}
			if h.SubmittedAt.After(windowStart) {
				inWindow++
			}
			if h.SubmittedAt.After(last) {
				last = h.SubmittedAt
			}
		}

		if limit.MaxPerYear != nil && *limit.MaxPerYear > 0 {
			count := inWindow + 1
			if count >= *limit.MaxPerYear {
				details := map[string]any{
					"max_per_year": *limit.MaxPerYear,
					"occurrences":  count,
					"window_days":  rules.FrequencyWindowDays,
				}
				if limit.ExceptionNote != nil {
					details["exception_note"] = *limit.ExceptionNote
				}
				issues = append(issues, Issue{
					Type:       IssueFrequencyLimitExceeded,
					Severity:   SeverityHigh,
					Code:       code,
					Message:    fmt.Sprintf("%s would be occurrence %d in %d days; the limit is %d", code, count, rules.FrequencyWindowDays, *limit.MaxPerYear),
					Correction: fmt.Sprintf("Document medical necessity for the additional %s or confirm an exception applies", code),
					Details:    details,
				})
			}
		}

		if limit.RequiredIntervalDays != nil && *limit.RequiredIntervalDays > 0 && !last.IsZero() {
			since := int(c.asOf.Sub(startOfDay(last)) / day)
			if since < *limit.RequiredIntervalDays {
				issues = append(issues, Issue{
					Type:     IssueIntervalTooSoon,
					Severity: SeverityMedium,
					Code:     code,
					Message:  fmt.Sprintf("%s was last billed %d days ago; the required interval is %d days", code, since, *limit.RequiredIntervalDays),
					Details: map[string]any{
						"days_since_last":        since,
						"required_interval_days": *limit.RequiredIntervalDays,
						"last_billed":            last.UTC().Format(time.DateOnly),
					},
				})
			}
		}
	}
	return issues
}

// selectLimit prefers a limit scoped to the claim's payer over a global one.
func selectLimit(limits []*refdata.FrequencyLimit, payer string) *refdata.FrequencyLimit {
	var global *refdata.FrequencyLimit
	for _, fl := range limits {
		if fl.Global() {
			if global == nil {
				global = fl
			}
			continue
		}
		if payer != "" && refdata.MatchesPayer(fl.PayerScope, payer) {
			return fl
		}
	}
	return global
}
