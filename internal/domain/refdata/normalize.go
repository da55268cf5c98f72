package refdata

import "strings"

// Reference rows reach the store through the admin API and through YAML
// bundles. Both paths run these so codes compare equal to normalized claims.

func normalizeCode(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

func normalizeCodes(codes []string) {
	for i, c := range codes {
		codes[i] = normalizeCode(c)
	}
}

func (u *UnitLimit) normalize() {
	u.CPTCode = normalizeCode(u.CPTCode)
}

func (b *BundlingEdit) normalize() {
	b.ColumnOne = normalizeCode(b.ColumnOne)
	b.ColumnTwo = normalizeCode(b.ColumnTwo)
	b.ModifierIndicator = ModifierIndicator(strings.ToLower(strings.TrimSpace(string(b.ModifierIndicator))))
}

func (n *NecessityMapping) normalize() {
	n.CPTCode = normalizeCode(n.CPTCode)
	n.ICDCode = normalizeCode(n.ICDCode)
}

func (p *PayerRule) normalize() {
	p.Severity = strings.ToLower(strings.TrimSpace(p.Severity))
	normalizeCodes(p.AppliesTo)
}

func (f *FrequencyLimit) normalize() {
	f.CPTCode = normalizeCode(f.CPTCode)
}

func (h *ClaimHistoryRecord) normalize() {
	normalizeCodes(h.ProcedureCodes)
}
