// Package store keeps a history of engine runs in SQLite.
package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"northstar/internal/logging"
)

// ErrNotFound is returned when a run does not exist.
var ErrNotFound = errors.New("run not found")

// Kind classifies a recorded run.
type Kind string

const (
	KindRecommendations Kind = "recommendations"
	KindProfile         Kind = "profile"
)

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	return k == KindRecommendations || k == KindProfile
}

// Run is one recorded engine invocation.
type Run struct {
	ID        string          `json:"id"`
	UserID    string          `json:"userId"`
	Kind      Kind            `json:"kind"`
	Input     json.RawMessage `json:"input"`
	Output    json.RawMessage `json:"output"`
	CreatedAt time.Time       `json:"createdAt"`

	// CatalogGeneration is the server catalog generation that produced the
	// run; zero for CLI runs.
	CatalogGeneration uint64 `json:"catalogGeneration,omitempty"`
}

// Stats summarizes the store contents.
type Stats struct {
	TotalRuns int          `json:"totalRuns"`
	Users     int          `json:"users"`
	ByKind    map[Kind]int `json:"byKind"`
	LastRunAt *time.Time   `json:"lastRunAt,omitempty"`
}

// Store manages the run history database.
type Store struct {
	db     *sql.DB
	dbPath string
	mu     sync.RWMutex
	now    func() time.Time
}

// Open creates or opens a run history store at path.
func Open(path string) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("database path is empty")
	}

	// Ensure directory exists
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{
		db:     db,
		dbPath: path,
		now:    time.Now,
	}

	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	if err := RunMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate schema: %w", err)
	}

	logging.StoreDebug("opened run store at %s", path)
	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.dbPath
}

// initSchema creates the v1 schema; RunMigrations takes it from there.
func (s *Store) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		kind TEXT NOT NULL,
		input_json TEXT NOT NULL,
		output_json TEXT NOT NULL,
		created_at DATETIME NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_runs_user ON runs(user_id, created_at);
	CREATE INDEX IF NOT EXISTS idx_runs_kind ON runs(kind);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// RUN OPERATIONS
// =============================================================================

// SaveRun stores a run. Missing ids and timestamps are filled in and written
// back to r.
func (s *Store) SaveRun(r *Run) error {
	if r == nil {
		return fmt.Errorf("run is nil")
	}
	if !r.Kind.Valid() {
		return fmt.Errorf("invalid run kind %q", r.Kind)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = s.now()
	}
	r.CreatedAt = r.CreatedAt.UTC()

	_, err := s.db.Exec(`
		INSERT INTO runs (id, user_id, kind, input_json, output_json, created_at, catalog_generation)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, r.ID, r.UserID, string(r.Kind), rawOrNull(r.Input), rawOrNull(r.Output), r.CreatedAt, int64(r.CatalogGeneration))
	if err != nil {
		return fmt.Errorf("failed to save run: %w", err)
	}

	logging.StoreDebug("saved %s run %s for user %q", r.Kind, r.ID, r.UserID)
	return nil
}

// GetRun loads one run by id.
func (s *Store) GetRun(id string) (*Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRow(`
		SELECT id, user_id, kind, input_json, output_json, created_at, catalog_generation
		FROM runs WHERE id = ?
	`, id)

	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load run: %w", err)
	}
	return r, nil
}

// ListRuns returns the newest runs for a user. A limit <= 0 means 20.
func (s *Store) ListRuns(userID string, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`
		SELECT id, user_id, kind, input_json, output_json, created_at, catalog_generation
		FROM runs WHERE user_id = ?
		ORDER BY created_at DESC, rowid DESC
		LIMIT ?
	`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, *r)
	}
	return runs, rows.Err()
}

// LatestRun returns the newest run of a kind for a user.
func (s *Store) LatestRun(userID string, kind Kind) (*Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRow(`
		SELECT id, user_id, kind, input_json, output_json, created_at, catalog_generation
		FROM runs WHERE user_id = ? AND kind = ?
		ORDER BY created_at DESC, rowid DESC
		LIMIT 1
	`, userID, string(kind))

	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: no %s run for user %q", ErrNotFound, kind, userID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load latest run: %w", err)
	}
	return r, nil
}

// Stats returns counts over the whole store.
func (s *Store) Stats() (*Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := &Stats{ByKind: make(map[Kind]int)}

	if err := s.db.QueryRow(`SELECT COUNT(*), COUNT(DISTINCT user_id) FROM runs`).
		Scan(&stats.TotalRuns, &stats.Users); err != nil {
		return nil, fmt.Errorf("failed to count runs: %w", err)
	}

	rows, err := s.db.Query(`SELECT kind, COUNT(*) FROM runs GROUP BY kind`)
	if err != nil {
		return nil, fmt.Errorf("failed to count kinds: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var kind string
		var n int
		if err := rows.Scan(&kind, &n); err != nil {
			return nil, fmt.Errorf("failed to scan kind count: %w", err)
		}
		stats.ByKind[Kind(kind)] = n
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var last time.Time
	err = s.db.QueryRow(`SELECT created_at FROM runs ORDER BY created_at DESC, rowid DESC LIMIT 1`).Scan(&last)
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return nil, fmt.Errorf("failed to load last run time: %w", err)
	default:
		stats.LastRunAt = &last
	}

	return stats, nil
}

// =============================================================================
// HELPERS
// =============================================================================

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(sc scanner) (*Run, error) {
	var r Run
	var kind, input, output string
	var gen int64
	if err := sc.Scan(&r.ID, &r.UserID, &kind, &input, &output, &r.CreatedAt, &gen); err != nil {
		return nil, err
	}
	r.CatalogGeneration = uint64(gen)
	r.Kind = Kind(kind)
	r.Input = json.RawMessage(input)
	r.Output = json.RawMessage(output)
	r.CreatedAt = r.CreatedAt.UTC()
	return &r, nil
}

func rawOrNull(raw json.RawMessage) string {
	if len(raw) == 0 {
		return "null"
	}
	return string(raw)
}
