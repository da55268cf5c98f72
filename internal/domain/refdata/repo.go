package refdata

import (
	"context"
	"time"
)

type UnitLimitRepository interface {
	Create(ctx context.Context, u *UnitLimit) error
	GetActive(ctx context.Context, cptCode string, asOf time.Time) (*UnitLimit, error)
	ListByCode(ctx context.Context, cptCode string) ([]*UnitLimit, error)
}

type BundlingEditRepository interface {
	Create(ctx context.Context, b *BundlingEdit) error
	// FindPair returns the first active edit covering the pair in either order.
	FindPair(ctx context.Context, codeA, codeB string, asOf time.Time) (*BundlingEdit, error)
	CopyFrom(ctx context.Context, edits []*BundlingEdit) (int64, error)
}

type NecessityMappingRepository interface {
	Create(ctx context.Context, n *NecessityMapping) error
	ListByCPT(ctx context.Context, cptCode string) ([]*NecessityMapping, error)
	CopyFrom(ctx context.Context, mappings []*NecessityMapping) (int64, error)
}

type PayerRuleRepository interface {
	Create(ctx context.Context, p *PayerRule) error
	ListActive(ctx context.Context) ([]*PayerRule, error)
	List(ctx context.Context, limit, offset int) ([]*PayerRule, int, error)
}

type FrequencyLimitRepository interface {
	Create(ctx context.Context, f *FrequencyLimit) error
	ListByCPT(ctx context.Context, cptCode string) ([]*FrequencyLimit, error)
}

type ClaimHistoryRepository interface {
	Create(ctx context.Context, h *ClaimHistoryRecord) error
	// ListRecentByPatient returns at most limit records submitted before the
	// given instant, newest first. A zero before means no upper bound.
	ListRecentByPatient(ctx context.Context, patientIdentifier string, before time.Time, limit int) ([]*ClaimHistoryRecord, error)
}
