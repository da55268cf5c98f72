package scrub

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/claimguard/claimguard/internal/domain/refdata"
)

// SupportingDiagnosis is a necessity mapping surfaced in issue details.
type SupportingDiagnosis struct {
	ICDCode string `json:"icd_code"`
	Score   int    `json:"score"`
}

// checkNecessity compares each code's necessity mappings against the claim
// diagnoses. Codes with no mappings at all are skipped.
func checkNecessity(c *claim, l *lookups, rules RuleConfig) []Issue {
	if len(c.icdCodes) == 0 {
		return nil
	}
	dx := make(map[string]bool, len(c.icdCodes))
	for _, d := range c.icdCodes {
		dx[icdKey(d)] = true
	}

	var issues []Issue
	for _, code := range c.distinctCodes() {
		rows := sortedMappings(l.necessity[code])
		if len(rows) == 0 {
			continue
		}

		var matched []*refdata.NecessityMapping
		for _, r := range rows {
			if dx[icdKey(r.ICDCode)] {
				matched = append(matched, r)
			}
		}

		if len(matched) == 0 {
			n := min(rules.NecessitySuggestions, len(rows))
			suggestions := make([]SupportingDiagnosis, 0, n)
			codes := make([]string, 0, n)
			for _, r := range rows[:n] {
				suggestions = append(suggestions, SupportingDiagnosis{ICDCode: r.ICDCode, Score: r.NecessityScore})
				codes = append(codes, r.ICDCode)
			}
			issues = append(issues, Issue{
				Type:       IssueWeakNecessityLink,
				Severity:   SeverityMedium,
				Code:       code,
				Message:    fmt.Sprintf("No claim diagnosis supports %s", code),
				Correction: fmt.Sprintf("Confirm documentation supports %s; commonly supporting diagnoses: %s", code, strings.Join(codes, ", ")),
				Details:    map[string]any{"suggested_diagnoses": suggestions},
			})
			continue
		}

		sum := 0
		supporting := make([]SupportingDiagnosis, 0, len(matched))
		for _, r := range matched {
			sum += r.NecessityScore
			supporting = append(supporting, SupportingDiagnosis{ICDCode: r.ICDCode, Score: r.NecessityScore})
		}
		mean := math.Round(float64(sum)/float64(len(matched))*100) / 100
		if mean >= rules.NecessityThreshold {
			continue
		}
		issues = append(issues, Issue{
			Type:     IssueMarginalNecessity,
			Severity: SeverityLow,
			Code:     code,
			Message:  fmt.Sprintf("Diagnoses give %s a mean necessity score of %.1f (threshold %.0f)", code, mean, rules.NecessityThreshold),
			Details: map[string]any{
				"mean_score":           mean,
				"supporting_diagnoses": supporting,
			},
		})
	}
	return issues
}

// sortedMappings orders by score descending, then ICD code.
func sortedMappings(rows []*refdata.NecessityMapping) []*refdata.NecessityMapping {
	out := append([]*refdata.NecessityMapping(nil), rows...)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].NecessityScore != out[j].NecessityScore {
			return out[i].NecessityScore > out[j].NecessityScore
		}
		return out[i].ICDCode < out[j].ICDCode
	})
	return out
}
