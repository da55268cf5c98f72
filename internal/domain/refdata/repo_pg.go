package refdata

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/claimguard/claimguard/internal/platform/db"
)

func notFound(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

// =========== Unit Limit Repository ===========

type unitLimitRepoPG struct{ pool *pgxpool.Pool }

func NewUnitLimitRepoPG(pool *pgxpool.Pool) UnitLimitRepository { return &unitLimitRepoPG{pool: pool} }

const unitLimitCols = `id, cpt_code, facility_limit, practitioner_limit, rationale,
	effective_date, end_date, created_at`

func (r *unitLimitRepoPG) scan(row pgx.Row) (*UnitLimit, error) {
	var u UnitLimit
	err := row.Scan(&u.ID, &u.CPTCode, &u.FacilityLimit, &u.PractitionerLimit, &u.Rationale,
		&u.EffectiveDate, &u.EndDate, &u.CreatedAt)
	return &u, err
}

func (r *unitLimitRepoPG) Create(ctx context.Context, u *UnitLimit) error {
	u.ID = uuid.New()
	if u.EffectiveDate.IsZero() {
		u.EffectiveDate = time.Now().UTC().Truncate(24 * time.Hour)
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO `+db.Table(ctx, "unit_limit")+` (id, cpt_code, facility_limit, practitioner_limit, rationale, effective_date, end_date)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		u.ID, u.CPTCode, u.FacilityLimit, u.PractitionerLimit, u.Rationale, u.EffectiveDate, u.EndDate)
	return err
}

func (r *unitLimitRepoPG) GetActive(ctx context.Context, cptCode string, asOf time.Time) (*UnitLimit, error) {
	u, err := r.scan(r.pool.QueryRow(ctx, `SELECT `+unitLimitCols+` FROM `+db.Table(ctx, "unit_limit")+`
		WHERE cpt_code = $1 AND effective_date <= $2 AND (end_date IS NULL OR end_date > $2)
		ORDER BY effective_date DESC LIMIT 1`, cptCode, asOf))
	if err != nil {
		return nil, notFound(err)
	}
	return u, nil
}

func (r *unitLimitRepoPG) ListByCode(ctx context.Context, cptCode string) ([]*UnitLimit, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+unitLimitCols+` FROM `+db.Table(ctx, "unit_limit")+`
		WHERE cpt_code = $1 ORDER BY effective_date DESC`, cptCode)
	if err != nil {
		return nil, fmt.Errorf("unit limit list: %w", err)
	}
	defer rows.Close()
	var items []*UnitLimit
	for rows.Next() {
		u, err := r.scan(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, u)
	}
	return items, rows.Err()
}

// =========== Bundling Edit Repository ===========

type bundlingEditRepoPG struct{ pool *pgxpool.Pool }

func NewBundlingEditRepoPG(pool *pgxpool.Pool) BundlingEditRepository {
	return &bundlingEditRepoPG{pool: pool}
}

const bundlingCols = `id, column_one, column_two, modifier_indicator, rationale,
	effective_date, end_date, created_at`

func (r *bundlingEditRepoPG) Create(ctx context.Context, b *BundlingEdit) error {
	b.ID = uuid.New()
	if b.EffectiveDate.IsZero() {
		b.EffectiveDate = time.Now().UTC().Truncate(24 * time.Hour)
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO `+db.Table(ctx, "bundling_edit")+` (id, column_one, column_two, modifier_indicator, rationale, effective_date, end_date)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		b.ID, b.ColumnOne, b.ColumnTwo, string(b.ModifierIndicator), b.Rationale, b.EffectiveDate, b.EndDate)
	return err
}

func (r *bundlingEditRepoPG) FindPair(ctx context.Context, codeA, codeB string, asOf time.Time) (*BundlingEdit, error) {
	var b BundlingEdit
	var indicator string
	err := r.pool.QueryRow(ctx, `SELECT `+bundlingCols+` FROM `+db.Table(ctx, "bundling_edit")+`
		WHERE ((column_one = $1 AND column_two = $2) OR (column_one = $2 AND column_two = $1))
		  AND effective_date <= $3 AND (end_date IS NULL OR end_date > $3)
		ORDER BY created_at, id LIMIT 1`, codeA, codeB, asOf).
		Scan(&b.ID, &b.ColumnOne, &b.ColumnTwo, &indicator, &b.Rationale, &b.EffectiveDate, &b.EndDate, &b.CreatedAt)
	if err != nil {
		return nil, notFound(err)
	}
	b.ModifierIndicator = ModifierIndicator(indicator)
	return &b, nil
}

func (r *bundlingEditRepoPG) CopyFrom(ctx context.Context, edits []*BundlingEdit) (int64, error) {
	rows := make([][]interface{}, 0, len(edits))
	for _, b := range edits {
		if b.ID == uuid.Nil {
			b.ID = uuid.New()
		}
		if b.EffectiveDate.IsZero() {
			b.EffectiveDate = time.Now().UTC().Truncate(24 * time.Hour)
		}
		rows = append(rows, []interface{}{b.ID, b.ColumnOne, b.ColumnTwo, string(b.ModifierIndicator), b.Rationale, b.EffectiveDate, b.EndDate})
	}
	n, err := r.pool.CopyFrom(ctx,
		db.TableIdent(ctx, "bundling_edit"),
		[]string{"id", "column_one", "column_two", "modifier_indicator", "rationale", "effective_date", "end_date"},
		pgx.CopyFromRows(rows),
	)
	if err != nil {
		return n, fmt.Errorf("copy bundling_edit: %w", err)
	}
	return n, nil
}

// =========== Necessity Mapping Repository ===========

type necessityRepoPG struct{ pool *pgxpool.Pool }

func NewNecessityMappingRepoPG(pool *pgxpool.Pool) NecessityMappingRepository {
	return &necessityRepoPG{pool: pool}
}

func (r *necessityRepoPG) Create(ctx context.Context, n *NecessityMapping) error {
	n.ID = uuid.New()
	_, err := r.pool.Exec(ctx, `
		INSERT INTO `+db.Table(ctx, "necessity_mapping")+` (id, cpt_code, icd_code, necessity_score)
		VALUES ($1,$2,$3,$4)
		ON CONFLICT (cpt_code, icd_code) DO UPDATE SET necessity_score = EXCLUDED.necessity_score`,
		n.ID, n.CPTCode, n.ICDCode, n.NecessityScore)
	return err
}

func (r *necessityRepoPG) ListByCPT(ctx context.Context, cptCode string) ([]*NecessityMapping, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, cpt_code, icd_code, necessity_score
		FROM `+db.Table(ctx, "necessity_mapping")+` WHERE cpt_code = $1
		ORDER BY necessity_score DESC, icd_code`, cptCode)
	if err != nil {
		return nil, fmt.Errorf("necessity mapping list: %w", err)
	}
	defer rows.Close()
	var items []*NecessityMapping
	for rows.Next() {
		var n NecessityMapping
		if err := rows.Scan(&n.ID, &n.CPTCode, &n.ICDCode, &n.NecessityScore); err != nil {
			return nil, err
		}
		items = append(items, &n)
	}
	return items, rows.Err()
}

func (r *necessityRepoPG) CopyFrom(ctx context.Context, mappings []*NecessityMapping) (int64, error) {
	rows := make([][]interface{}, 0, len(mappings))
	for _, m := range mappings {
		if m.ID == uuid.Nil {
			m.ID = uuid.New()
		}
		rows = append(rows, []interface{}{m.ID, m.CPTCode, m.ICDCode, m.NecessityScore})
	}
	n, err := r.pool.CopyFrom(ctx,
		db.TableIdent(ctx, "necessity_mapping"),
		[]string{"id", "cpt_code", "icd_code", "necessity_score"},
		pgx.CopyFromRows(rows),
	)
	if err != nil {
		return n, fmt.Errorf("copy necessity_mapping: %w", err)
	}
	return n, nil
}

// =========== Payer Rule Repository ===========

type payerRuleRepoPG struct{ pool *pgxpool.Pool }

func NewPayerRuleRepoPG(pool *pgxpool.Pool) PayerRuleRepository { return &payerRuleRepoPG{pool: pool} }

const payerRuleCols = `id, payer_name, rule_type, applies_to, severity, description,
	recommended_action, active, created_at`

func (r *payerRuleRepoPG) scan(row pgx.Row) (*PayerRule, error) {
	var p PayerRule
	err := row.Scan(&p.ID, &p.PayerName, &p.RuleType, &p.AppliesTo, &p.Severity, &p.Description,
		&p.RecommendedAction, &p.Active, &p.CreatedAt)
	return &p, err
}

func (r *payerRuleRepoPG) Create(ctx context.Context, p *PayerRule) error {
	p.ID = uuid.New()
	_, err := r.pool.Exec(ctx, `
		INSERT INTO `+db.Table(ctx, "payer_rule")+` (id, payer_name, rule_type, applies_to, severity, description, recommended_action, active)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		p.ID, p.PayerName, p.RuleType, p.AppliesTo, p.Severity, p.Description, p.RecommendedAction, p.Active)
	return err
}

func (r *payerRuleRepoPG) ListActive(ctx context.Context) ([]*PayerRule, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+payerRuleCols+` FROM `+db.Table(ctx, "payer_rule")+`
		WHERE active = TRUE ORDER BY payer_name, rule_type, id`)
	if err != nil {
		return nil, fmt.Errorf("payer rule list: %w", err)
	}
	defer rows.Close()
	var items []*PayerRule
	for rows.Next() {
		p, err := r.scan(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, p)
	}
	return items, rows.Err()
}

func (r *payerRuleRepoPG) List(ctx context.Context, limit, offset int) ([]*PayerRule, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM "+db.Table(ctx, "payer_rule")).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.pool.Query(ctx, `SELECT `+payerRuleCols+` FROM `+db.Table(ctx, "payer_rule")+`
		ORDER BY payer_name, rule_type, id LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*PayerRule
	for rows.Next() {
		p, err := r.scan(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, p)
	}
	return items, total, rows.Err()
}

// =========== Frequency Limit Repository ===========

type frequencyLimitRepoPG struct{ pool *pgxpool.Pool }

func NewFrequencyLimitRepoPG(pool *pgxpool.Pool) FrequencyLimitRepository {
	return &frequencyLimitRepoPG{pool: pool}
}

func (r *frequencyLimitRepoPG) Create(ctx context.Context, f *FrequencyLimit) error {
	f.ID = uuid.New()
	_, err := r.pool.Exec(ctx, `
		INSERT INTO `+db.Table(ctx, "frequency_limit")+` (id, cpt_code, payer_scope, max_per_year, required_interval_days, exception_note)
		VALUES ($1,$2,$3,$4,$5,$6)`,
		f.ID, f.CPTCode, f.PayerScope, f.MaxPerYear, f.RequiredIntervalDays, f.ExceptionNote)
	return err
}

func (r *frequencyLimitRepoPG) ListByCPT(ctx context.Context, cptCode string) ([]*FrequencyLimit, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, cpt_code, COALESCE(payer_scope,''),
		max_per_year, required_interval_days, exception_note
		FROM `+db.Table(ctx, "frequency_limit")+` WHERE cpt_code = $1 ORDER BY payer_scope, id`, cptCode)
	if err != nil {
		return nil, fmt.Errorf("frequency limit list: %w", err)
	}
	defer rows.Close()
	var items []*FrequencyLimit
	for rows.Next() {
		var f FrequencyLimit
		if err := rows.Scan(&f.ID, &f.CPTCode, &f.PayerScope, &f.MaxPerYear, &f.RequiredIntervalDays, &f.ExceptionNote); err != nil {
			return nil, err
		}
		items = append(items, &f)
	}
	return items, rows.Err()
}

// =========== Claim History Repository ===========

type claimHistoryRepoPG struct{ pool *pgxpool.Pool }

func NewClaimHistoryRepoPG(pool *pgxpool.Pool) ClaimHistoryRepository {
	return &claimHistoryRepoPG{pool: pool}
}

func (r *claimHistoryRepoPG) Create(ctx context.Context, h *ClaimHistoryRecord) error {
	h.ID = uuid.New()
	return r.pool.QueryRow(ctx, `
		INSERT INTO `+db.Table(ctx, "claim_history")+` (id, patient_identifier, claim_reference, submitted_at, procedure_codes)
		VALUES ($1,$2,$3,$4,$5) RETURNING created_at`,
		h.ID, h.PatientIdentifier, h.ClaimReference, h.SubmittedAt, h.ProcedureCodes).Scan(&h.CreatedAt)
}

func (r *claimHistoryRepoPG) ListRecentByPatient(ctx context.Context, patientIdentifier string, before time.Time, limit int) ([]*ClaimHistoryRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	where := "patient_identifier = $1"
	args := []any{patientIdentifier}
	if !before.IsZero() {
		where += " AND submitted_at < $2"
		args = append(args, before)
	}
	args = append(args, limit)
	rows, err := r.pool.Query(ctx, `SELECT id, patient_identifier, claim_reference,
		submitted_at, procedure_codes, created_at
		FROM `+db.Table(ctx, "claim_history")+` WHERE `+where+`
		ORDER BY submitted_at DESC LIMIT $`+strconv.Itoa(len(args)), args...)
	if err != nil {
		return nil, fmt.Errorf("claim history list: %w", err)
	}
	defer rows.Close()
	var items []*ClaimHistoryRecord
	for rows.Next() {
		var h ClaimHistoryRecord
		if err := rows.Scan(&h.ID, &h.PatientIdentifier, &h.ClaimReference, &h.SubmittedAt, &h.ProcedureCodes, &h.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, &h)
	}
	return items, rows.Err()
}
