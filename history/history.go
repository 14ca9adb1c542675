// Package history persists workflow runs in a SQLite database.
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/jonwraymond/toolgen/workflow"
)

// ErrNotFound is returned by Get for an unknown run id.
var ErrNotFound = errors.New("run not found")

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	run_id      TEXT PRIMARY KEY,
	query       TEXT NOT NULL,
	success     INTEGER NOT NULL,
	error       TEXT NOT NULL DEFAULT '',
	executed    INTEGER NOT NULL,
	tier        TEXT NOT NULL DEFAULT '',
	started_at  INTEGER NOT NULL,
	duration_ms INTEGER NOT NULL,
	payload     TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);
`

// Entry summarizes one recorded run.
type Entry struct {
	RunID      string    `json:"run_id"`
	Query      string    `json:"query"`
	Success    bool      `json:"success"`
	Error      string    `json:"error,omitempty"`
	Executed   bool      `json:"executed"`
	Tier       string    `json:"tier"`
	StartedAt  time.Time `json:"started_at"`
	DurationMs int64     `json:"duration_ms"`
}

// Store is a run history backed by SQLite. It implements
// workflow.Recorder.
//
// Contract:
// - Concurrency: safe for concurrent use.
// - Errors: Get returns ErrNotFound for unknown ids.
type Store struct {
	db *sql.DB
}

// Open opens or creates the history database at path. The parent
// directory is created when missing.
func Open(ctx context.Context, path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create history directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open history: %w", err)
	}
	// SQLite allows one writer; a single connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create history schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Record stores r, replacing any earlier record with the same run id.
func (s *Store) Record(ctx context.Context, r workflow.Result) error {
	payload, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("encode run %s: %w", r.RunID, err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO runs
			(run_id, query, success, error, executed, tier, started_at, duration_ms, payload)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.RunID, r.Query, r.Success, r.Error, r.Executed, r.Tier,
		r.StartedAt.UnixNano(), r.DurationMs, string(payload))
	if err != nil {
		return fmt.Errorf("record run %s: %w", r.RunID, err)
	}
	return nil
}

// List returns up to limit runs, newest first. A limit of zero or less
// returns every run.
func (s *Store) List(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, query, success, error, executed, tier, started_at, duration_ms
		FROM runs
		ORDER BY started_at DESC, rowid DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var (
			e       Entry
			started int64
		)
		if err := rows.Scan(&e.RunID, &e.Query, &e.Success, &e.Error, &e.Executed, &e.Tier, &started, &e.DurationMs); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		e.StartedAt = time.Unix(0, started)
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	return out, nil
}

// Get returns the full result of one run.
func (s *Store) Get(ctx context.Context, runID string) (workflow.Result, error) {
	var payload string
	err := s.db.QueryRowContext(ctx, `SELECT payload FROM runs WHERE run_id = ?`, runID).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return workflow.Result{}, fmt.Errorf("%w: %s", ErrNotFound, runID)
	}
	if err != nil {
		return workflow.Result{}, fmt.Errorf("get run %s: %w", runID, err)
	}

	var r workflow.Result
	if err := json.Unmarshal([]byte(payload), &r); err != nil {
		return workflow.Result{}, fmt.Errorf("decode run %s: %w", runID, err)
	}
	return r, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

var _ workflow.Recorder = (*Store)(nil)
