package refdata

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

const sampleDataset = `
unit_limits:
  - cpt_code: "20610"
    facility_limit: 2
    practitioner_limit: 2
    effective_date: 2024-01-01
bundling_edits:
  - column_one: "29881"
    column_two: "29877"
    modifier_indicator: allowed-with-modifier
necessity_mappings:
  - cpt_code: "97110"
    icd_code: M62.81
    necessity_score: 80
payer_rules:
  - payer_name: Aetna
    rule_type: prior auth required
    applies_to: ["70553"]
    severity: high
    description: MRI brain requires prior authorization
    recommended_action: Obtain prior authorization
    active: true
frequency_limits:
  - cpt_code: "77067"
    required_interval_days: 365
claim_history:
  - patient_identifier: P-100
    submitted_at: 2026-02-01T10:00:00Z
    procedure_codes: ["77067"]
`

func TestParseDataset(t *testing.T) {
	ds, err := ParseDataset([]byte(sampleDataset))
	if err != nil {
		t.Fatalf("ParseDataset() error: %v", err)
	}
	if ds.Size() != 6 {
		t.Errorf("expected 6 records, got %d", ds.Size())
	}
	if got := ds.UnitLimits[0].EffectiveDate; !got.Equal(date("2024-01-01")) {
		t.Errorf("unexpected effective date %v", got)
	}
	if ds.PayerRules[0].RecommendedAction == nil || *ds.PayerRules[0].RecommendedAction != "Obtain prior authorization" {
		t.Errorf("unexpected payer rule %+v", ds.PayerRules[0])
	}

	if _, err := ParseDataset([]byte("unit_limits: {")); err == nil {
		t.Error("expected an error for malformed YAML")
	}
}

func TestSeed_ReportsEachFamily(t *testing.T) {
	ds, err := ParseDataset([]byte(sampleDataset))
	if err != nil {
		t.Fatal(err)
	}

	var families []string
	s := NewMemoryStore()
	if err := Seed(context.Background(), s, ds, func(family string, rows int) {
		families = append(families, family)
		if rows != 1 {
			t.Errorf("%s: expected 1 row, got %d", family, rows)
		}
	}); err != nil {
		t.Fatalf("Seed() error: %v", err)
	}

	want := []string{"unit_limits", "bundling_edits", "necessity_mappings", "payer_rules", "frequency_limits", "claim_history"}
	if diff := cmp.Diff(want, families); diff != "" {
		t.Errorf("family order mismatch (-want +got):\n%s", diff)
	}

	recs, err := s.RecentClaims(context.Background(), "P-100", time.Time{}, 10)
	if err != nil || len(recs) != 1 {
		t.Errorf("expected seeded history, got %v (%v)", recs, err)
	}
}

func TestLoadDataset(t *testing.T) {
	path := filepath.Join(t.TempDir(), "refdata.yaml")
	if err := os.WriteFile(path, []byte(sampleDataset), 0o600); err != nil {
		t.Fatal(err)
	}
	ds, err := LoadDataset(path)
	if err != nil {
		t.Fatalf("LoadDataset() error: %v", err)
	}
	store, err := NewMemoryStoreFromDataset(context.Background(), ds)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := store.UnitLimit(context.Background(), "20610", date("2026-01-01")); err != nil {
		t.Errorf("expected seeded unit limit, got %v", err)
	}
}

const looseDataset = `
unit_limits:
  - cpt_code: " j1100 "
    practitioner_limit: 1
bundling_edits:
  - column_one: "29881"
    column_two: "29877"
    modifier_indicator: Never
necessity_mappings:
  - cpt_code: "97110"
    icd_code: m62.81
    necessity_score: 80
payer_rules:
  - payer_name: Aetna
    rule_type: prior auth required
    applies_to: ["70553", "j1100"]
    severity: High
    description: prior authorization required
  - payer_name: Cigna
    rule_type: retired rule
    applies_to: ["70553"]
    severity: low
    description: no longer enforced
    active: false
frequency_limits:
  - cpt_code: g0439
    max_per_year: 1
claim_history:
  - patient_identifier: P-1
    submitted_at: 2026-02-01T10:00:00Z
    procedure_codes: ["g0439"]
`

func TestNewMemoryStoreFromDataset_NormalizesLikeTheAPI(t *testing.T) {
	ctx := context.Background()
	ds, err := ParseDataset([]byte(looseDataset))
	if err != nil {
		t.Fatal(err)
	}
	s, err := NewMemoryStoreFromDataset(ctx, ds)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := s.UnitLimit(ctx, "J1100", date("2026-01-01")); err != nil {
		t.Errorf("expected J1100 unit limit, got %v", err)
	}

	edit, err := s.BundlingEdit(ctx, "29877", "29881", date("2026-01-01"))
	if err != nil {
		t.Fatal(err)
	}
	if edit.ModifierIndicator != IndicatorNever {
		t.Errorf("expected indicator %q, got %q", IndicatorNever, edit.ModifierIndicator)
	}

	maps, err := s.NecessityMappings(ctx, "97110")
	if err != nil || len(maps) != 1 || maps[0].ICDCode != "M62.81" {
		t.Errorf("expected upper-cased ICD mapping, got %+v (%v)", maps, err)
	}

	rules, err := s.ActivePayerRules(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(rules) != 1 {
		t.Fatalf("expected only the rule without an active field to load as active, got %+v", rules)
	}
	if rules[0].Severity != "high" {
		t.Errorf("expected lower-cased severity, got %q", rules[0].Severity)
	}
	if diff := cmp.Diff([]string{"70553", "J1100"}, rules[0].AppliesTo); diff != "" {
		t.Errorf("applies_to mismatch (-want +got):\n%s", diff)
	}

	limits, err := s.FrequencyLimitsFor(ctx, "G0439")
	if err != nil || len(limits) != 1 {
		t.Errorf("expected G0439 frequency limit, got %+v (%v)", limits, err)
	}

	recs, err := s.RecentClaims(ctx, "P-1", time.Time{}, 10)
	if err != nil || len(recs) != 1 || !recs[0].HasCode("G0439") {
		t.Errorf("expected upper-cased history codes, got %+v (%v)", recs, err)
	}
}
