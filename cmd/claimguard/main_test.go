package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/claimguard/claimguard/internal/config"
	"github.com/claimguard/claimguard/internal/domain/refdata"
	"github.com/claimguard/claimguard/internal/domain/scrub"
	"github.com/claimguard/claimguard/internal/platform/db"
	"github.com/claimguard/claimguard/internal/progress"
)

func TestDecodeClaims(t *testing.T) {
	list, err := decodeClaims([]byte(`
- procedures: [{cpt_code: "99213", units: 1}]
- procedures: [{cpt_code: "20610", units: 2, modifiers: [RT]}]
  payer: Aetna
`))
	if err != nil {
		t.Fatalf("decodeClaims() error: %v", err)
	}
	if len(list) != 2 || list[1].Payer != "Aetna" || list[1].Procedures[0].Modifiers[0] != "RT" {
		t.Errorf("unexpected claims %+v", list)
	}

	one, err := decodeClaims([]byte(`{"procedures":[{"cpt_code":"99214","units":1}],"icd_codes":["I10"]}`))
	if err != nil {
		t.Fatalf("decodeClaims() error: %v", err)
	}
	if len(one) != 1 || one[0].ICDCodes[0] != "I10" {
		t.Errorf("expected a single JSON claim, got %+v", one)
	}

	if _, err := decodeClaims([]byte("procedures: [")); err == nil {
		t.Error("expected an error for malformed input")
	}
}

func TestBuildProfile(t *testing.T) {
	cfg := &config.Config{LookupConcurrency: 3, HistoryWindow: 40}
	p, err := buildProfile(cfg, "")
	if err != nil {
		t.Fatal(err)
	}
	if p.Rules.LookupConcurrency != 3 || p.Rules.HistoryWindow != 40 {
		t.Errorf("environment settings not applied: %+v", p.Rules)
	}

	path := filepath.Join(t.TempDir(), "profile.yaml")
	if err := os.WriteFile(path, []byte("scoring:\n  critical_floor: 80\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	p, err = buildProfile(cfg, path)
	if err != nil {
		t.Fatal(err)
	}
	if p.Scoring.CriticalFloor != 80 || p.Rules.LookupConcurrency != 3 {
		t.Errorf("expected file and environment to combine, got %+v", p)
	}
}

func TestRunValidate(t *testing.T) {
	store := refdata.NewMemoryStore()
	if err := store.UnitLimits.Create(context.Background(), &refdata.UnitLimit{CPTCode: "20610", FacilityLimit: 2, PractitionerLimit: 2}); err != nil {
		t.Fatal(err)
	}
	svc := scrub.NewService(store, store, zerolog.New(io.Discard))
	svc.SetClock(func() time.Time { return time.Date(2026, 6, 15, 0, 0, 0, 0, time.UTC) })

	claims := []scrub.Claim{
		{Procedures: []scrub.ProcedureEntry{{CPTCode: "20610", Units: 3}}},
		{},
	}
	mgr := &progress.NoopManager{}
	var out bytes.Buffer
	if err := runValidate(context.Background(), svc, claims, 2, mgr, &out); err != nil {
		t.Fatalf("runValidate() error: %v", err)
	}

	var items []scrub.BatchItem
	if err := json.Unmarshal(out.Bytes(), &items); err != nil {
		t.Fatal(err)
	}
	if len(items) != 2 || items[0].Result == nil || items[0].Result.Counts.Critical != 1 || items[1].Error == "" {
		t.Errorf("unexpected items %s", out.String())
	}
	if mgr.Completed() != 2 {
		t.Errorf("expected progress for 2 claims, got %d", mgr.Completed())
	}
}

func TestPrintStatus(t *testing.T) {
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	var buf bytes.Buffer
	printStatus(&buf, "tenant_default", []db.MigrationStatus{
		{Version: 1, Name: "001_reference_data.sql", Applied: true, AppliedAt: &at},
		{Version: 2, Name: "002_claim_history.sql"},
	})
	out := buf.String()
	if !strings.Contains(out, "2026-01-02 03:04:05") || !strings.Contains(out, "pending") {
		t.Errorf("unexpected status output:\n%s", out)
	}
}
