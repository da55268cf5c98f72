package refdata

import (
	"context"
	"fmt"
	"strings"
	"time"
)

type Service struct {
	store *Store
	now   func() time.Time
}

func NewService(store *Store) *Service {
	return &Service{store: store, now: time.Now}
}

// -- Unit Limits --

func (s *Service) CreateUnitLimit(ctx context.Context, u *UnitLimit) error {
	u.normalize()
	if err := u.Validate(); err != nil {
		return err
	}
	return s.store.UnitLimits.Create(ctx, u)
}

func (s *Service) GetActiveUnitLimit(ctx context.Context, cptCode string) (*UnitLimit, error) {
	return s.store.UnitLimits.GetActive(ctx, strings.ToUpper(cptCode), s.now().UTC())
}

func (s *Service) ListUnitLimits(ctx context.Context, cptCode string) ([]*UnitLimit, error) {
	return s.store.UnitLimits.ListByCode(ctx, strings.ToUpper(cptCode))
}

// -- Bundling Edits --

func (s *Service) CreateBundlingEdit(ctx context.Context, b *BundlingEdit) error {
	b.normalize()
	if err := b.Validate(); err != nil {
		return err
	}
	return s.store.BundlingEdits.Create(ctx, b)
}

func (s *Service) FindBundlingEdit(ctx context.Context, codeA, codeB string) (*BundlingEdit, error) {
	if codeA == "" || codeB == "" {
		return nil, fmt.Errorf("code_a and code_b are required")
	}
	return s.store.BundlingEdits.FindPair(ctx, strings.ToUpper(codeA), strings.ToUpper(codeB), s.now().UTC())
}

// -- Necessity Mappings --

func (s *Service) CreateNecessityMapping(ctx context.Context, n *NecessityMapping) error {
	n.normalize()
	if err := n.Validate(); err != nil {
		return err
	}
	return s.store.Necessity.Create(ctx, n)
}

func (s *Service) ListNecessityMappings(ctx context.Context, cptCode string) ([]*NecessityMapping, error) {
	return s.store.Necessity.ListByCPT(ctx, strings.ToUpper(cptCode))
}

// -- Payer Rules --

func (s *Service) CreatePayerRule(ctx context.Context, p *PayerRule) error {
	p.normalize()
	if err := p.Validate(); err != nil {
		return err
	}
	return s.store.PayerRules.Create(ctx, p)
}

func (s *Service) ListPayerRules(ctx context.Context, limit, offset int) ([]*PayerRule, int, error) {
	return s.store.PayerRules.List(ctx, limit, offset)
}

// -- Frequency Limits --

func (s *Service) CreateFrequencyLimit(ctx context.Context, f *FrequencyLimit) error {
	f.normalize()
	if err := f.Validate(); err != nil {
		return err
	}
	return s.store.FrequencyLimits.Create(ctx, f)
}

func (s *Service) ListFrequencyLimits(ctx context.Context, cptCode string) ([]*FrequencyLimit, error) {
	return s.store.FrequencyLimits.ListByCPT(ctx, strings.ToUpper(cptCode))
}

// -- Claim History --

func (s *Service) RecordClaim(ctx context.Context, h *ClaimHistoryRecord) error {
	if h.SubmittedAt.IsZero() {
		h.SubmittedAt = s.now().UTC()
	}
	h.normalize()
	if err := h.Validate(); err != nil {
		return err
	}
	return s.store.History.Create(ctx, h)
}

func (s *Service) ListClaimHistory(ctx context.Context, patientIdentifier string, limit int) ([]*ClaimHistoryRecord, error) {
	return s.store.History.ListRecentByPatient(ctx, patientIdentifier, time.Time{}, limit)
}
