package store

import (
	"database/sql"
	"path/filepath"
	"testing"
	"time"
)

func TestRunMigrations_FreshStore(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	if v := GetSchemaVersion(s.db); v != CurrentSchemaVersion {
		t.Fatalf("schema version = %d, want %d", v, CurrentSchemaVersion)
	}
	if !columnExists(s.db, "runs", "catalog_generation") {
		t.Fatal("catalog_generation column missing")
	}

	// Idempotent on reopen.
	if err := RunMigrations(s.db); err != nil {
		t.Fatalf("RunMigrations error: %v", err)
	}
}

func TestRunMigrations_UpgradesV1(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "old.db")
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		t.Fatalf("sql.Open error: %v", err)
	}
	_, err = db.Exec(`
		CREATE TABLE runs (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			kind TEXT NOT NULL,
			input_json TEXT NOT NULL,
			output_json TEXT NOT NULL,
			created_at DATETIME NOT NULL
		);
		INSERT INTO runs VALUES ('old-1', 'u1', 'profile', 'null', '{}', '2025-01-02 03:04:05');
	`)
	if err != nil {
		t.Fatalf("seed error: %v", err)
	}
	if v := GetSchemaVersion(db); v != 0 {
		t.Errorf("unversioned schema = %d, want 0", v)
	}
	db.Close()

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open error: %v", err)
	}
	defer s.Close()

	if v := GetSchemaVersion(s.db); v != CurrentSchemaVersion {
		t.Errorf("schema version = %d, want %d", v, CurrentSchemaVersion)
	}
	got, err := s.GetRun("old-1")
	if err != nil {
		t.Fatalf("GetRun error: %v", err)
	}
	if got.CatalogGeneration != 0 {
		t.Errorf("CatalogGeneration = %d, want 0", got.CatalogGeneration)
	}
}

func TestSaveRun_CatalogGeneration(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	run := &Run{UserID: "u1", Kind: KindRecommendations, CatalogGeneration: 3, CreatedAt: time.Now()}
	if err := s.SaveRun(run); err != nil {
		t.Fatalf("SaveRun error: %v", err)
	}

	got, err := s.LatestRun("u1", KindRecommendations)
	if err != nil {
		t.Fatalf("LatestRun error: %v", err)
	}
	if got.CatalogGeneration != 3 {
		t.Errorf("CatalogGeneration = %d, want 3", got.CatalogGeneration)
	}
}
