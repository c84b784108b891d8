// Package store persists recorded runs and their history events in
// SQLite.
//
// The store holds replay input only: decision traces recorded as
// history events. Live queue contents are never persisted; the queue
// is an in-memory construct scoped to one execution.
package store

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/roach88/loom/internal/history"
)

//go:embed schema.sql
var schemaSQL string

// Store provides durable storage for recorded runs.
// Uses SQLite with WAL mode for concurrent read access.
type Store struct {
	db *sql.DB
}

// Run is one recorded workflow execution.
type Run struct {
	RunID       string `json:"run_id"`
	Scenario    string `json:"scenario"`
	Fingerprint string `json:"fingerprint"`
	CreatedAt   string `json:"created_at"`
}

// Open creates or opens a SQLite database at the given path.
//
// The database is configured with:
//   - WAL mode for concurrent reads during writes
//   - NORMAL synchronous mode (balance durability/performance)
//   - 5-second busy timeout for lock contention
//   - Foreign key enforcement
//
// Idempotent - safe to call on an existing database.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// SQLite supports one writer at a time; a single connection avoids
	// SQLITE_BUSY under concurrent use.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &Store{db: db}, nil
}

func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return fmt.Errorf("%s: %w", p, err)
		}
	}
	return nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// CreateRun records a new run with its trace fingerprint and returns
// the generated run ID.
func (s *Store) CreateRun(ctx context.Context, scenario, fingerprint string) (string, error) {
	runID := uuid.NewString()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (run_id, scenario, fingerprint) VALUES (?, ?, ?)`,
		runID, scenario, fingerprint)
	if err != nil {
		return "", fmt.Errorf("create run: %w", err)
	}
	return runID, nil
}

// AppendEvents writes history events for a run in one transaction.
// Event IDs must be unique within the run; a duplicate fails the whole
// batch and persists nothing.
func (s *Store) AppendEvents(ctx context.Context, runID string, events []history.Event) error {
	if len(events) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("append events: begin: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO history_events (run_id, event_id, type, payload) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("append events: prepare: %w", err)
	}
	defer stmt.Close()

	for _, e := range events {
		if _, err := stmt.ExecContext(ctx, runID, e.ID, e.Type, e.Payload); err != nil {
			return fmt.Errorf("append event %d: %w", e.ID, err)
		}
	}
	return tx.Commit()
}

// GetRun loads one run row.
func (s *Store) GetRun(ctx context.Context, runID string) (Run, error) {
	var r Run
	err := s.db.QueryRowContext(ctx,
		`SELECT run_id, scenario, fingerprint, created_at FROM runs WHERE run_id = ?`,
		runID).Scan(&r.RunID, &r.Scenario, &r.Fingerprint, &r.CreatedAt)
	if err == sql.ErrNoRows {
		return Run{}, fmt.Errorf("run %s not found", runID)
	}
	if err != nil {
		return Run{}, fmt.Errorf("get run %s: %w", runID, err)
	}
	return r, nil
}

// ListRuns returns all runs, newest first. Ties on creation time break
// by run ID so the order is stable.
func (s *Store) ListRuns(ctx context.Context) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT run_id, scenario, fingerprint, created_at FROM runs ORDER BY created_at DESC, run_id ASC`)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		if err := rows.Scan(&r.RunID, &r.Scenario, &r.Fingerprint, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("list runs: scan: %w", err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// Pager returns a history.Pager over one run's events, using keyset
// pagination so page fetches stay cheap regardless of history length.
func (s *Store) Pager(runID string) history.Pager {
	return &runPager{store: s, runID: runID}
}

type runPager struct {
	store *Store
	runID string
}

func (p *runPager) Page(afterID int64, limit int) ([]history.Event, error) {
	rows, err := p.store.db.Query(
		`SELECT event_id, type, payload FROM history_events
		 WHERE run_id = ? AND event_id > ?
		 ORDER BY event_id ASC
		 LIMIT ?`,
		p.runID, afterID, limit)
	if err != nil {
		return nil, fmt.Errorf("page run %s after %d: %w", p.runID, afterID, err)
	}
	defer rows.Close()

	var events []history.Event
	for rows.Next() {
		var e history.Event
		if err := rows.Scan(&e.ID, &e.Type, &e.Payload); err != nil {
			return nil, fmt.Errorf("page run %s: scan: %w", p.runID, err)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// LoadTask builds a decision task for a recorded run, with its history
// exposed through a lazily paginated iterator.
func (s *Store) LoadTask(ctx context.Context, runID string, pageSize int) (history.TaskWithHistory, error) {
	run, err := s.GetRun(ctx, runID)
	if err != nil {
		return nil, err
	}
	payload := []byte(fmt.Sprintf(`{"scenario":%q,"fingerprint":%q}`, run.Scenario, run.Fingerprint))
	task := history.NewDecisionTask(run.RunID, payload)
	return history.NewTaskWithHistory(task, history.Iterate(s.Pager(runID), pageSize)), nil
}
