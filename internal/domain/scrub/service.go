package scrub

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// Service evaluates claims against reference data. It holds no per-claim
// state, so one Service can serve concurrent requests.
type Service struct {
	refs    ReferenceStore
	history HistoryStore
	logger  zerolog.Logger

	// mu guards the clock and both configs.
	mu      sync.RWMutex
	now     func() time.Time
	rules   RuleConfig
	scoring ScoringConfig
}

func NewService(refs ReferenceStore, history HistoryStore, logger zerolog.Logger) *Service {
	return &Service{
		refs:    refs,
		history: history,
		logger:  logger.With().Str("component", "scrub").Logger(),
		now:     time.Now,
		rules:   DefaultRuleConfig(),
		scoring: DefaultScoringConfig(),
	}
}

func (s *Service) SetRuleConfig(cfg RuleConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	s.rules = cfg
	s.mu.Unlock()
	return nil
}

func (s *Service) SetScoringConfig(cfg ScoringConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	s.scoring = cfg
	s.mu.Unlock()
	return nil
}

// SetProfile applies both halves of a profile.
func (s *Service) SetProfile(p Profile) error {
	if err := s.SetRuleConfig(p.Rules); err != nil {
		return err
	}
	return s.SetScoringConfig(p.Scoring)
}

// SetClock replaces the clock used when a claim has no service date.
func (s *Service) SetClock(now func() time.Time) {
	s.mu.Lock()
	s.now = now
	s.mu.Unlock()
}

func (s *Service) snapshot() (Profile, func() time.Time) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Profile{Rules: s.rules, Scoring: s.scoring}, s.now
}

// Profile returns the active configuration.
func (s *Service) Profile() Profile {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Profile{Rules: s.rules, Scoring: s.scoring}
}

// Validate runs every rule family against the claim and scores the result.
// Only malformed input and cancellation of ctx return an error; reference
// lookup failures yield a degraded result instead.
func (s *Service) Validate(ctx context.Context, in Claim) (*ValidationResult, error) {
	p, now := s.snapshot()

	c, err := normalize(in, now())
	if err != nil {
		return nil, err
	}

	f := &fetcher{refs: s.refs, history: s.history, rules: p.Rules, logger: s.logger}
	l, err := f.fetch(ctx, c)
	if err != nil {
		return nil, fmt.Errorf("fetch reference data: %w", err)
	}

	var issues []Issue
	issues = append(issues, checkUnits(c, l, p.Rules)...)
	issues = append(issues, checkBundling(c, l, p.Rules)...)
	issues = append(issues, checkModifiers(c, p.Rules)...)
	issues = append(issues, checkNecessity(c, l, p.Rules)...)
	issues = append(issues, checkPayer(c, l)...)
	issues = append(issues, checkFrequency(c, l, p.Rules)...)

	pub := c.public()
	breakdown := Score(issues, pub, p.Scoring)
	res := Assemble(pub, issues, generateCorrections(issues), breakdown, p.Scoring.Thresholds, l.warnings())

	evt := s.logger.Debug()
	if res.Degraded {
		evt = s.logger.Warn().Strs("warnings", res.Warnings)
	}
	evt.Int("procedures", len(c.procedures)).
		Int("issues", res.Counts.Total).
		Int("score", res.DenialRiskScore).
		Str("risk_level", string(res.RiskLevel)).
		Msg("claim validated")

	return res, nil
}

// BatchItem is the outcome for one claim of a batch. Exactly one of Result
// and Error is set.
type BatchItem struct {
	Index  int               `json:"index"`
	Result *ValidationResult `json:"result,omitempty"`
	Error  string            `json:"error,omitempty"`
}

// ValidateBatch validates claims with at most workers in flight and returns
// items in input order. done, if non-nil, is called after each claim.
func (s *Service) ValidateBatch(ctx context.Context, claims []Claim, workers int, done func()) ([]BatchItem, error) {
	if workers < 1 {
		workers = 1
	}
	items := make([]BatchItem, len(claims))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, cl := range claims {
		i, cl := i, cl
		g.Go(func() error {
			if done != nil {
				defer done()
			}
			items[i].Index = i
			res, err := s.Validate(gctx, cl)
			if err != nil {
				if gctx.Err() != nil {
					return err
				}
				items[i].Error = err.Error()
				return nil
			}
			items[i].Result = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return items, nil
}
