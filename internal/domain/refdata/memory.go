package refdata

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// In-memory repositories back the offline validate command and tests. They
// keep insertion order so results stay deterministic for a fixed dataset.

type memUnitLimits struct {
	mu    sync.RWMutex
	items []*UnitLimit
}

func (m *memUnitLimits) Create(_ context.Context, u *UnitLimit) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	m.items = append(m.items, u)
	return nil
}

func (m *memUnitLimits) GetActive(_ context.Context, cptCode string, asOf time.Time) (*UnitLimit, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var best *UnitLimit
	for _, u := range m.items {
		if u.CPTCode != cptCode || !u.ActiveOn(asOf) {
			continue
		}
		if best == nil || u.EffectiveDate.After(best.EffectiveDate) {
			best = u
		}
	}
	if best == nil {
		return nil, ErrNotFound
	}
	return best, nil
}

func (m *memUnitLimits) ListByCode(_ context.Context, cptCode string) ([]*UnitLimit, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*UnitLimit
	for _, u := range m.items {
		if u.CPTCode == cptCode {
			out = append(out, u)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].EffectiveDate.After(out[j].EffectiveDate) })
	return out, nil
}

type memBundlingEdits struct {
	mu    sync.RWMutex
	items []*BundlingEdit
}

func (m *memBundlingEdits) Create(_ context.Context, b *BundlingEdit) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	m.items = append(m.items, b)
	return nil
}

func (m *memBundlingEdits) FindPair(_ context.Context, codeA, codeB string, asOf time.Time) (*BundlingEdit, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, b := range m.items {
		if b.Matches(codeA, codeB) && b.ActiveOn(asOf) {
			return b, nil
		}
	}
	return nil, ErrNotFound
}

func (m *memBundlingEdits) CopyFrom(ctx context.Context, edits []*BundlingEdit) (int64, error) {
	for _, b := range edits {
		if err := m.Create(ctx, b); err != nil {
			return 0, err
		}
	}
	return int64(len(edits)), nil
}

type memNecessity struct {
	mu    sync.RWMutex
	items []*NecessityMapping
}

func (m *memNecessity) Create(_ context.Context, n *NecessityMapping) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	m.items = append(m.items, n)
	return nil
}

func (m *memNecessity) ListByCPT(_ context.Context, cptCode string) ([]*NecessityMapping, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*NecessityMapping
	for _, n := range m.items {
		if n.CPTCode == cptCode {
			out = append(out, n)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].NecessityScore != out[j].NecessityScore {
			return out[i].NecessityScore > out[j].NecessityScore
		}
		return out[i].ICDCode < out[j].ICDCode
	})
	return out, nil
}

func (m *memNecessity) CopyFrom(ctx context.Context, mappings []*NecessityMapping) (int64, error) {
	for _, n := range mappings {
		if err := m.Create(ctx, n); err != nil {
			return 0, err
		}
	}
	return int64(len(mappings)), nil
}

type memPayerRules struct {
	mu    sync.RWMutex
	items []*PayerRule
}

func (m *memPayerRules) Create(_ context.Context, p *PayerRule) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	m.items = append(m.items, p)
	return nil
}

func (m *memPayerRules) ListActive(_ context.Context) ([]*PayerRule, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*PayerRule
	for _, p := range m.items {
		if p.Active {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *memPayerRules) List(_ context.Context, limit, offset int) ([]*PayerRule, int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	total := len(m.items)
	if offset >= total {
		return nil, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return append([]*PayerRule(nil), m.items[offset:end]...), total, nil
}

type memFrequencyLimits struct {
	mu    sync.RWMutex
	items []*FrequencyLimit
}

func (m *memFrequencyLimits) Create(_ context.Context, f *FrequencyLimit) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if f.ID == uuid.Nil {
		f.ID = uuid.New()
	}
	m.items = append(m.items, f)
	return nil
}

func (m *memFrequencyLimits) ListByCPT(_ context.Context, cptCode string) ([]*FrequencyLimit, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*FrequencyLimit
	for _, f := range m.items {
		if f.CPTCode == cptCode {
			out = append(out, f)
		}
	}
	return out, nil
}

type memClaimHistory struct {
	mu    sync.RWMutex
	items []*ClaimHistoryRecord
}

func (m *memClaimHistory) Create(_ context.Context, h *ClaimHistoryRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if h.ID == uuid.Nil {
		h.ID = uuid.New()
	}
	if h.CreatedAt.IsZero() {
		h.CreatedAt = time.Now().UTC()
	}
	m.items = append(m.items, h)
	return nil
}

func (m *memClaimHistory) ListRecentByPatient(_ context.Context, patientIdentifier string, before time.Time, limit int) ([]*ClaimHistoryRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*ClaimHistoryRecord
	for _, h := range m.items {
		if h.PatientIdentifier != patientIdentifier {
			continue
		}
		if before.IsZero() || h.SubmittedAt.Before(before) {
			out = append(out, h)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].SubmittedAt.After(out[j].SubmittedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
