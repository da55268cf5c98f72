package scrub

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/claimguard/claimguard/internal/domain/refdata"
)

// ReferenceStore is the read side of the reference-data tables. Point
// lookups return refdata.ErrNotFound when no record applies.
type ReferenceStore interface {
	UnitLimit(ctx context.Context, cptCode string, asOf time.Time) (*refdata.UnitLimit, error)
	BundlingEdit(ctx context.Context, codeA, codeB string, asOf time.Time) (*refdata.BundlingEdit, error)
	NecessityMappings(ctx context.Context, cptCode string) ([]*refdata.NecessityMapping, error)
	ActivePayerRules(ctx context.Context) ([]*refdata.PayerRule, error)
	FrequencyLimitsFor(ctx context.Context, cptCode string) ([]*refdata.FrequencyLimit, error)
}

// HistoryStore returns a patient's claims submitted before an instant,
// newest first.
type HistoryStore interface {
	RecentClaims(ctx context.Context, patientIdentifier string, before time.Time, limit int) ([]*refdata.ClaimHistoryRecord, error)
}

// Rule families, used in logs and degraded-mode warnings.
const (
	familyUnitLimit = "unit_limit"
	familyBundling  = "bundling"
	familyNecessity = "necessity"
	familyPayer     = "payer"
	familyFrequency = "frequency"
	familyHistory   = "claim_history"
)

type codePair struct{ a, b string }

func newPair(a, b string) codePair {
	if b < a {
		a, b = b, a
	}
	return codePair{a, b}
}

// lookups is everything the checkers read, fetched up front.
type lookups struct {
	mu sync.Mutex

	unitLimits map[string]*refdata.UnitLimit
	bundling   map[codePair]*refdata.BundlingEdit
	necessity  map[string][]*refdata.NecessityMapping
	payerRules []*refdata.PayerRule
	frequency  map[string][]*refdata.FrequencyLimit
	history    []*refdata.ClaimHistoryRecord

	failures map[string]int
}

func (l *lookups) fail(family string) {
	l.mu.Lock()
	l.failures[family]++
	l.mu.Unlock()
}

// warnings lists failed families in a stable order.
func (l *lookups) warnings() []string {
	families := make([]string, 0, len(l.failures))
	for f := range l.failures {
		families = append(families, f)
	}
	sort.Strings(families)
	out := make([]string, 0, len(families))
	for _, f := range families {
		out = append(out, fmt.Sprintf("%s: %d lookup(s) failed; affected checks ran without reference data", f, l.failures[f]))
	}
	return out
}

type fetcher struct {
	refs    ReferenceStore
	history HistoryStore
	rules   RuleConfig
	logger  zerolog.Logger
}

// fetch issues every lookup the claim needs with bounded concurrency. A
// failed lookup is logged and recorded; only cancellation of ctx is
// returned as an error.
func (f *fetcher) fetch(ctx context.Context, c *claim) (*lookups, error) {
	l := &lookups{
		unitLimits: make(map[string]*refdata.UnitLimit),
		bundling:   make(map[codePair]*refdata.BundlingEdit),
		necessity:  make(map[string][]*refdata.NecessityMapping),
		frequency:  make(map[string][]*refdata.FrequencyLimit),
		failures:   make(map[string]int),
	}

	var g errgroup.Group
	g.SetLimit(f.rules.LookupConcurrency)

	codes := c.distinctCodes()
	for _, code := range codes {
		code := code
		g.Go(func() error {
			u, err := f.refs.UnitLimit(ctx, code, c.asOf)
			if !f.ok(ctx, l, err, familyUnitLimit, code) || u == nil {
				return nil
			}
			if err := u.Validate(); err != nil {
				f.skip(familyUnitLimit, code, err)
				return nil
			}
			l.mu.Lock()
			l.unitLimits[code] = u
			l.mu.Unlock()
			return nil
		})
	}

	for i := 0; i < len(codes); i++ {
		for j := i + 1; j < len(codes); j++ {
			pair := newPair(codes[i], codes[j])
			g.Go(func() error {
				b, err := f.refs.BundlingEdit(ctx, pair.a, pair.b, c.asOf)
				if !f.ok(ctx, l, err, familyBundling, pair.a+"/"+pair.b) || b == nil {
					return nil
				}
				if err := b.Validate(); err != nil || !b.Matches(pair.a, pair.b) {
					f.skip(familyBundling, pair.a+"/"+pair.b, err)
					return nil
				}
				l.mu.Lock()
				l.bundling[pair] = b
				l.mu.Unlock()
				return nil
			})
		}
	}

	if len(c.icdCodes) > 0 {
		for _, code := range codes {
			code := code
			g.Go(func() error {
				rows, err := f.refs.NecessityMappings(ctx, code)
				if !f.ok(ctx, l, err, familyNecessity, code) {
					return nil
				}
				valid := make([]*refdata.NecessityMapping, 0, len(rows))
				for _, r := range rows {
					if r == nil {
						continue
					}
					if err := r.Validate(); err != nil {
						f.skip(familyNecessity, code, err)
						continue
					}
					valid = append(valid, r)
				}
				l.mu.Lock()
				l.necessity[code] = valid
				l.mu.Unlock()
				return nil
			})
		}
	}

	if c.payer != "" {
		g.Go(func() error {
			rules, err := f.refs.ActivePayerRules(ctx)
			if !f.ok(ctx, l, err, familyPayer, c.payer) {
				return nil
			}
			valid := make([]*refdata.PayerRule, 0, len(rules))
			for _, r := range rules {
				if r == nil {
					continue
				}
				if err := r.Validate(); err != nil {
					f.skip(familyPayer, r.PayerName, err)
					continue
				}
				valid = append(valid, r)
			}
			l.mu.Lock()
			l.payerRules = valid
			l.mu.Unlock()
			return nil
		})
	}

	if c.patient != "" {
		for _, code := range codes {
			code := code
			g.Go(func() error {
				limits, err := f.refs.FrequencyLimitsFor(ctx, code)
				if !f.ok(ctx, l, err, familyFrequency, code) {
					return nil
				}
				valid := make([]*refdata.FrequencyLimit, 0, len(limits))
				for _, fl := range limits {
					if fl == nil {
						continue
					}
					if err := fl.Validate(); err != nil {
						f.skip(familyFrequency, code, err)
						continue
					}
					valid = append(valid, fl)
				}
				l.mu.Lock()
				l.frequency[code] = valid
				l.mu.Unlock()
				return nil
			})
		}
		g.Go(func() error {
			recs, err := f.history.RecentClaims(ctx, c.patient, c.asOf.Add(day), f.rules.HistoryWindow)
			if !f.ok(ctx, l, err, familyHistory, "") {
				return nil
			}
			valid := make([]*refdata.ClaimHistoryRecord, 0, len(recs))
			for _, r := range recs {
				if r == nil {
					continue
				}
				if err := r.Validate(); err != nil {
					f.skip(familyHistory, "", err)
					continue
				}
				valid = append(valid, r)
			}
			l.mu.Lock()
			l.history = valid
			l.mu.Unlock()
			return nil
		})
	}

	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return l, nil
}

// ok reports whether a lookup produced usable data. ErrNotFound is a normal
// absence; any other error is logged and counted against the family.
func (f *fetcher) ok(ctx context.Context, l *lookups, err error, family, key string) bool {
	if err == nil {
		return true
	}
	if errors.Is(err, refdata.ErrNotFound) {
		return false
	}
	if ctx.Err() != nil {
		return false
	}
	f.logger.Warn().Err(err).Str("check", family).Str("key", key).Msg("reference lookup failed")
	l.fail(family)
	return false
}

func (f *fetcher) skip(family, key string, err error) {
	evt := f.logger.Warn().Str("check", family).Str("key", key)
	if err != nil {
		evt = evt.Err(err)
	}
	evt.Msg("skipping malformed reference record")
}
