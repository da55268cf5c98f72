package refdata

import "strings"

// MatchesPayer reports whether a rule's payer name applies to the claim's
// payer. The AllPayers sentinel matches everything; otherwise the names match
// when either contains the other, ignoring case.
//
// This is a heuristic. "Blue Cross" matches "Blue Cross of Texas", but
// "United" also matches "United Healthcare Community Plan" and abbreviations
// such as "BCBS" never match "Blue Cross". Callers must tolerate both false
// positives and misses.
func MatchesPayer(ruleName, payer string) bool {
	rule := strings.ToLower(strings.TrimSpace(ruleName))
	if rule == AllPayers {
		return true
	}
	p := strings.ToLower(strings.TrimSpace(payer))
	if rule == "" || p == "" {
		return false
	}
	return strings.Contains(p, rule) || strings.Contains(rule, p)
}
