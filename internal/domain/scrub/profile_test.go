package scrub

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParseProfile_EmptyKeepsDefaults(t *testing.T) {
	p, err := ParseProfile(nil)
	if err != nil {
		t.Fatalf("ParseProfile() error: %v", err)
	}
	if diff := cmp.Diff(DefaultProfile(), p); diff != "" {
		t.Errorf("empty profile should equal defaults (-want +got):\n%s", diff)
	}
}

func TestParseProfile_Overrides(t *testing.T) {
	p, err := ParseProfile([]byte(`
rules:
  necessity_threshold: 65
  override_modifiers: ["59", "XU"]
scoring:
  critical_floor: 75
  payer_multipliers:
    - match: acme health
      multiplier: 1.12
`))
	if err != nil {
		t.Fatalf("ParseProfile() error: %v", err)
	}
	if p.Rules.NecessityThreshold != 65 || p.Scoring.CriticalFloor != 75 {
		t.Errorf("overrides not applied: %+v", p)
	}
	if diff := cmp.Diff([]string{"59", "XU"}, p.Rules.OverrideModifiers); diff != "" {
		t.Errorf("override modifiers mismatch (-want +got):\n%s", diff)
	}
	if len(p.Scoring.PayerMultipliers) != 1 || p.Scoring.PayerMultipliers[0].Multiplier != 1.12 {
		t.Errorf("expected the multiplier table to be replaced, got %+v", p.Scoring.PayerMultipliers)
	}
	if p.Scoring.Thresholds != DefaultScoringConfig().Thresholds {
		t.Errorf("untouched fields must keep defaults, got %+v", p.Scoring.Thresholds)
	}
}

func TestParseProfile_Rejects(t *testing.T) {
	cases := map[string]string{
		"unknown field":        "scoring:\n  critcal_floor: 70\n",
		"multiplier too large": "scoring:\n  payer_multipliers:\n    - match: acme\n      multiplier: 1.3\n",
		"thresholds inverted":  "scoring:\n  thresholds: {critical: 40, high: 50, medium: 25}\n",
		"not yaml":             "rules: [",
	}
	for name, doc := range cases {
		if _, err := ParseProfile([]byte(doc)); err == nil {
			t.Errorf("%s: expected an error", name)
		}
	}
}

func TestLoadProfile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profile.yaml")
	if err := os.WriteFile(path, []byte("scoring:\n  critical_floor: 80\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	p, err := LoadProfile(path)
	if err != nil {
		t.Fatalf("LoadProfile() error: %v", err)
	}
	if p.Scoring.CriticalFloor != 80 {
		t.Errorf("expected floor 80, got %d", p.Scoring.CriticalFloor)
	}

	if _, err := LoadProfile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected an error for a missing file")
	}
}
