package refdata

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Dataset is the YAML layout for a reference-data bundle. It is used both to
// seed Postgres and to back the offline validator.
type Dataset struct {
	UnitLimits        []*UnitLimit          `yaml:"unit_limits"`
	BundlingEdits     []*BundlingEdit       `yaml:"bundling_edits"`
	NecessityMappings []*NecessityMapping   `yaml:"necessity_mappings"`
	PayerRules        []*PayerRule          `yaml:"payer_rules"`
	FrequencyLimits   []*FrequencyLimit     `yaml:"frequency_limits"`
	ClaimHistory      []*ClaimHistoryRecord `yaml:"claim_history"`
}

// Size returns the total number of records in the dataset.
func (d *Dataset) Size() int {
	return len(d.UnitLimits) + len(d.BundlingEdits) + len(d.NecessityMappings) +
		len(d.PayerRules) + len(d.FrequencyLimits) + len(d.ClaimHistory)
}

// LoadDataset reads a YAML reference-data bundle from disk.
func LoadDataset(path string) (*Dataset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("refdata.LoadDataset: %w", err)
	}
	return ParseDataset(data)
}

// ParseDataset decodes a YAML reference-data bundle.
func ParseDataset(data []byte) (*Dataset, error) {
	var ds Dataset
	if err := yaml.Unmarshal(data, &ds); err != nil {
		return nil, fmt.Errorf("refdata.ParseDataset: %w", err)
	}
	return &ds, nil
}

func (d *Dataset) normalize() {
	for _, u := range d.UnitLimits {
		u.normalize()
	}
	for _, b := range d.BundlingEdits {
		b.normalize()
	}
	for _, n := range d.NecessityMappings {
		n.normalize()
	}
	for _, p := range d.PayerRules {
		p.normalize()
	}
	for _, f := range d.FrequencyLimits {
		f.normalize()
	}
	for _, h := range d.ClaimHistory {
		h.normalize()
	}
}

// UnmarshalYAML defaults Active to true when the bundle leaves it out, matching
// the column default and the admin API.
func (p *PayerRule) UnmarshalYAML(value *yaml.Node) error {
	type plain PayerRule
	raw := plain{Active: true}
	if err := value.Decode(&raw); err != nil {
		return err
	}
	*p = PayerRule(raw)
	return nil
}

// SeedFunc is called after each family is written with the number of rows.
type SeedFunc func(family string, rows int)

// Seed writes every record in the dataset into the store. Bundling edits and
// necessity mappings go through CopyFrom since the published tables are large.
// Codes and severities are normalized the same way the admin API does it;
// validation still happens when the scrubber reads the rows.
func Seed(ctx context.Context, s *Store, ds *Dataset, progress SeedFunc) error {
	if progress == nil {
		progress = func(string, int) {}
	}
	ds.normalize()

	for _, u := range ds.UnitLimits {
		if err := s.UnitLimits.Create(ctx, u); err != nil {
			return fmt.Errorf("seed unit limit %s: %w", u.CPTCode, err)
		}
	}
	progress("unit_limits", len(ds.UnitLimits))

	if len(ds.BundlingEdits) > 0 {
		if _, err := s.BundlingEdits.CopyFrom(ctx, ds.BundlingEdits); err != nil {
			return fmt.Errorf("seed bundling edits: %w", err)
		}
	}
	progress("bundling_edits", len(ds.BundlingEdits))

	if len(ds.NecessityMappings) > 0 {
		if _, err := s.Necessity.CopyFrom(ctx, ds.NecessityMappings); err != nil {
			return fmt.Errorf("seed necessity mappings: %w", err)
		}
	}
	progress("necessity_mappings", len(ds.NecessityMappings))

	for _, p := range ds.PayerRules {
		if err := s.PayerRules.Create(ctx, p); err != nil {
			return fmt.Errorf("seed payer rule %s/%s: %w", p.PayerName, p.RuleType, err)
		}
	}
	progress("payer_rules", len(ds.PayerRules))

	for _, f := range ds.FrequencyLimits {
		if err := s.FrequencyLimits.Create(ctx, f); err != nil {
			return fmt.Errorf("seed frequency limit %s: %w", f.CPTCode, err)
		}
	}
	progress("frequency_limits", len(ds.FrequencyLimits))

	for _, h := range ds.ClaimHistory {
		if err := s.History.Create(ctx, h); err != nil {
			return fmt.Errorf("seed claim history %s: %w", h.PatientIdentifier, err)
		}
	}
	progress("claim_history", len(ds.ClaimHistory))
	return nil
}

// NewMemoryStoreFromDataset builds an in-memory store holding the dataset.
func NewMemoryStoreFromDataset(ctx context.Context, ds *Dataset) (*Store, error) {
	s := NewMemoryStore()
	if err := Seed(ctx, s, ds, nil); err != nil {
		return nil, err
	}
	return s, nil
}
