package db

import (
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"
	"time"

	"github.com/claimguard/claimguard/migrations"
)

func TestLoadMigrations_FS(t *testing.T) {
	fsys := fstest.MapFS{
		"003_indexes.sql":        {Data: []byte("CREATE INDEX a ON t (x);")},
		"001_reference_data.sql": {Data: []byte("CREATE TABLE t (x INT);")},
		"002_claim_history.sql":  {Data: []byte("CREATE TABLE h (y INT);")},
		"README.md":              {Data: []byte("notes")},
		"abc_not_a_version.sql":  {Data: []byte("SELECT 1;")},
		"nounderscore.sql":       {Data: []byte("SELECT 1;")},
		"004_nested/ignored.sql": {Data: []byte("SELECT 1;")},
	}

	migs, err := NewMigratorFS(nil, fsys).LoadMigrations()
	if err != nil {
		t.Fatalf("LoadMigrations() error: %v", err)
	}
	if len(migs) != 3 {
		t.Fatalf("expected 3 migrations, got %d", len(migs))
	}
	for i, want := range []int{1, 2, 3} {
		if migs[i].Version != want {
			t.Errorf("migration %d: expected version %d, got %d", i, want, migs[i].Version)
		}
	}
	if migs[0].Name != "001_reference_data.sql" {
		t.Errorf("unexpected name %s", migs[0].Name)
	}
	if migs[0].SQL != "CREATE TABLE t (x INT);" {
		t.Errorf("unexpected SQL %q", migs[0].SQL)
	}
}

func TestLoadMigrations_Dir(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "001_core.sql"), []byte("SELECT 1;"), 0o644); err != nil {
		t.Fatal(err)
	}

	migs, err := NewMigrator(nil, dir).LoadMigrations()
	if err != nil {
		t.Fatalf("LoadMigrations() error: %v", err)
	}
	if len(migs) != 1 || migs[0].Version != 1 {
		t.Fatalf("unexpected migrations: %+v", migs)
	}
}

func TestLoadMigrations_MissingDir(t *testing.T) {
	if _, err := NewMigrator(nil, filepath.Join(t.TempDir(), "nope")).LoadMigrations(); err == nil {
		t.Fatal("expected error for missing directory")
	}
}

func TestEmbeddedMigrations(t *testing.T) {
	migs, err := NewMigratorFS(nil, migrations.FS).LoadMigrations()
	if err != nil {
		t.Fatalf("LoadMigrations() error: %v", err)
	}
	if len(migs) < 2 {
		t.Fatalf("expected embedded migrations, got %d", len(migs))
	}
	if migs[0].Name != "001_reference_data.sql" || migs[1].Name != "002_claim_history.sql" {
		t.Errorf("unexpected order: %s, %s", migs[0].Name, migs[1].Name)
	}
}

func TestBuildStatus(t *testing.T) {
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	migs := []Migration{{Version: 1, Name: "001_a.sql"}, {Version: 2, Name: "002_b.sql"}}

	st := buildStatus(migs, map[int]time.Time{1: at})
	if len(st) != 2 {
		t.Fatalf("expected 2 statuses, got %d", len(st))
	}
	if !st[0].Applied || st[0].AppliedAt == nil || !st[0].AppliedAt.Equal(at) {
		t.Errorf("expected first migration applied at %v, got %+v", at, st[0])
	}
	if st[1].Applied || st[1].AppliedAt != nil {
		t.Errorf("expected second migration pending, got %+v", st[1])
	}
}
