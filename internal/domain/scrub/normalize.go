package scrub

import (
	"fmt"
	"strings"
	"time"
)

const maxModifiers = 4

// normalize validates the claim and returns an uppercased, trimmed copy.
// The caller's slices are never modified.
func normalize(in Claim, now time.Time) (*claim, error) {
	if len(in.Procedures) == 0 {
		return nil, ErrNoProcedures
	}

	out := &claim{
		procedures: make([]ProcedureEntry, 0, len(in.Procedures)),
		payer:      strings.TrimSpace(in.Payer),
		pos:        strings.TrimSpace(in.PlaceOfService),
		patient:    strings.TrimSpace(in.PatientIdentifier),
		asOf:       startOfDay(now),
	}

	for i, p := range in.Procedures {
		code := normalizeCode(p.CPTCode)
		if !validCPT(code) {
			return nil, fmt.Errorf("%w: line %d: cpt_code %q must be 5 letters or digits", ErrInvalidProcedure, i+1, p.CPTCode)
		}
		if p.Units <= 0 {
			return nil, fmt.Errorf("%w: line %d (%s): units must be positive, got %d", ErrInvalidProcedure, i+1, code, p.Units)
		}
		if len(p.Modifiers) > maxModifiers {
			return nil, fmt.Errorf("%w: line %d (%s): at most %d modifiers, got %d", ErrInvalidProcedure, i+1, code, maxModifiers, len(p.Modifiers))
		}
		mods := make([]string, 0, len(p.Modifiers))
		for _, m := range p.Modifiers {
			if m = normalizeCode(m); m != "" {
				mods = append(mods, m)
			}
		}
		out.procedures = append(out.procedures, ProcedureEntry{
			CPTCode:   code,
			Units:     p.Units,
			Modifiers: mods,
			Charge:    p.Charge,
		})
	}

	seen := make(map[string]bool, len(in.ICDCodes))
	for _, dx := range in.ICDCodes {
		dx = normalizeCode(dx)
		if dx == "" || seen[dx] {
			continue
		}
		seen[dx] = true
		out.icdCodes = append(out.icdCodes, dx)
	}

	if sd := strings.TrimSpace(in.ServiceDate); sd != "" {
		t, err := time.Parse(time.DateOnly, sd)
		if err != nil {
			return nil, fmt.Errorf("%w: service_date %q is not YYYY-MM-DD", ErrInvalidClaim, in.ServiceDate)
		}
		out.asOf = t
	}
	return out, nil
}

func normalizeCode(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

func validCPT(code string) bool {
	if len(code) != 5 {
		return false
	}
	for _, r := range code {
		if !(r >= '0' && r <= '9') && !(r >= 'A' && r <= 'Z') {
			return false
		}
	}
	return true
}

// icdKey compares diagnosis codes with or without the dot.
func icdKey(code string) string {
	return strings.ReplaceAll(normalizeCode(code), ".", "")
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// public renders the normalized claim back into the input shape.
func (c *claim) public() Claim {
	return Claim{
		Procedures:        c.procedures,
		ICDCodes:          c.icdCodes,
		Payer:             c.payer,
		PlaceOfService:    c.pos,
		PatientIdentifier: c.patient,
		ServiceDate:       c.asOf.Format(time.DateOnly),
	}
}
