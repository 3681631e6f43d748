package store

import (
	"database/sql"
	"fmt"
	"time"

	"northstar/internal/logging"
)

// Schema versions:
// v1: runs table (id, user_id, kind, input_json, output_json, created_at)
// v2: runs.catalog_generation for auditing which catalog produced a run
const CurrentSchemaVersion = 2

// Migration adds one column to an existing table.
type Migration struct {
	Version int
	Table   string
	Column  string
	Def     string
}

// pendingMigrations lists column additions in version order.
var pendingMigrations = []Migration{
	{2, "runs", "catalog_generation", "INTEGER NOT NULL DEFAULT 0"},
}

// RunMigrations brings an existing database up to CurrentSchemaVersion.
// Columns that already exist are skipped, so it is safe to run on every open.
func RunMigrations(db *sql.DB) error {
	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_versions (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME NOT NULL
		)
	`); err != nil {
		return fmt.Errorf("failed to create schema_versions: %w", err)
	}

	from := GetSchemaVersion(db)
	if from >= CurrentSchemaVersion {
		logging.StoreDebug("schema at version %d, no migrations needed", from)
		return nil
	}

	applied := 0
	for _, m := range pendingMigrations {
		if m.Version <= from {
			continue
		}
		if !tableExists(db, m.Table) {
			return fmt.Errorf("migration v%d: table %s missing", m.Version, m.Table)
		}
		if columnExists(db, m.Table, m.Column) {
			logging.StoreDebug("column already exists, skipping: %s.%s", m.Table, m.Column)
			continue
		}
		query := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", m.Table, m.Column, m.Def)
		if _, err := db.Exec(query); err != nil {
			return fmt.Errorf("migration v%d %s.%s: %w", m.Version, m.Table, m.Column, err)
		}
		applied++
	}

	if _, err := db.Exec(`INSERT OR REPLACE INTO schema_versions (version, applied_at) VALUES (?, ?)`,
		CurrentSchemaVersion, time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to record schema version: %w", err)
	}

	logging.Store("schema migrated from v%d to v%d (%d columns added)", from, CurrentSchemaVersion, applied)
	return nil
}

// GetSchemaVersion returns the recorded schema version, or 0 when none is
// recorded yet.
func GetSchemaVersion(db *sql.DB) int {
	if !tableExists(db, "schema_versions") {
		return 0
	}
	var version sql.NullInt64
	if err := db.QueryRow(`SELECT MAX(version) FROM schema_versions`).Scan(&version); err != nil || !version.Valid {
		return 0
	}
	return int(version.Int64)
}

// columnExists checks if a column exists in a table using PRAGMA table_info.
func columnExists(db *sql.DB, table, column string) bool {
	rows, err := db.Query(fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		logging.StoreDebug("PRAGMA table_info(%s) failed: %v", table, err)
		return false
	}
	defer rows.Close()

	for rows.Next() {
		var cid int
		var name, ctype string
		var notnull, pk int
		var dfltValue interface{}
		if err := rows.Scan(&cid, &name, &ctype, &notnull, &dfltValue, &pk); err != nil {
			continue
		}
		if name == column {
			return true
		}
	}
	return false
}

func tableExists(db *sql.DB, table string) bool {
	var count int
	err := db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&count)
	return err == nil && count > 0
}
