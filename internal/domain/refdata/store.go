package refdata

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Store groups the reference-data repositories and exposes the point
// lookups the claim scrubber consumes.
type Store struct {
	UnitLimits      UnitLimitRepository
	BundlingEdits   BundlingEditRepository
	Necessity       NecessityMappingRepository
	PayerRules      PayerRuleRepository
	FrequencyLimits FrequencyLimitRepository
	History         ClaimHistoryRepository
}

// NewStorePG wires every repository to the given pool. Queries target the
// schema of the tenant carried in the request context.
func NewStorePG(pool *pgxpool.Pool) *Store {
	return &Store{
		UnitLimits:      NewUnitLimitRepoPG(pool),
		BundlingEdits:   NewBundlingEditRepoPG(pool),
		Necessity:       NewNecessityMappingRepoPG(pool),
		PayerRules:      NewPayerRuleRepoPG(pool),
		FrequencyLimits: NewFrequencyLimitRepoPG(pool),
		History:         NewClaimHistoryRepoPG(pool),
	}
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *Store {
	return &Store{
		UnitLimits:      &memUnitLimits{},
		BundlingEdits:   &memBundlingEdits{},
		Necessity:       &memNecessity{},
		PayerRules:      &memPayerRules{},
		FrequencyLimits: &memFrequencyLimits{},
		History:         &memClaimHistory{},
	}
}

func (s *Store) UnitLimit(ctx context.Context, cptCode string, asOf time.Time) (*UnitLimit, error) {
	return s.UnitLimits.GetActive(ctx, cptCode, asOf)
}

func (s *Store) BundlingEdit(ctx context.Context, codeA, codeB string, asOf time.Time) (*BundlingEdit, error) {
	return s.BundlingEdits.FindPair(ctx, codeA, codeB, asOf)
}

func (s *Store) NecessityMappings(ctx context.Context, cptCode string) ([]*NecessityMapping, error) {
	return s.Necessity.ListByCPT(ctx, cptCode)
}

func (s *Store) ActivePayerRules(ctx context.Context) ([]*PayerRule, error) {
	return s.PayerRules.ListActive(ctx)
}

func (s *Store) FrequencyLimitsFor(ctx context.Context, cptCode string) ([]*FrequencyLimit, error) {
	return s.FrequencyLimits.ListByCPT(ctx, cptCode)
}

func (s *Store) RecentClaims(ctx context.Context, patientIdentifier string, before time.Time, limit int) ([]*ClaimHistoryRecord, error) {
	return s.History.ListRecentByPatient(ctx, patientIdentifier, before, limit)
}
