// Package ledger records conversion runs and the files they produced in a
// local SQLite database, so past batches can be listed with `pic history`.
package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id          TEXT PRIMARY KEY,
	transform   TEXT NOT NULL,
	source_dir  TEXT NOT NULL,
	target_dir  TEXT NOT NULL,
	started_at  TEXT NOT NULL,
	finished_at TEXT NOT NULL DEFAULT '',
	total       INTEGER NOT NULL DEFAULT 0,
	converted   INTEGER NOT NULL DEFAULT 0,
	failed      INTEGER NOT NULL DEFAULT 0,
	cleaned     INTEGER NOT NULL DEFAULT 0
);
CREATE TABLE IF NOT EXISTS outputs (
	id      INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id  TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
	source  TEXT NOT NULL,
	output  TEXT NOT NULL DEFAULT '',
	error   TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS outputs_run_id ON outputs(run_id);
`

// timeLayout has fixed width so stored timestamps sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Totals are the per-run counters stored when a run finishes.
type Totals struct {
	Total     int
	Converted int
	Failed    int
	Cleaned   int
}

// Run is one recorded conversion batch.
type Run struct {
	ID         string
	Transform  string
	SourceDir  string
	TargetDir  string
	StartedAt  time.Time
	FinishedAt time.Time
	Totals
}

// Output is one processed source image of a run. Err is empty on success.
type Output struct {
	Source string
	Output string
	Err    string
}

// Store wraps the ledger database.
type Store struct {
	db *sql.DB
}

// Open opens or creates the database at path and ensures the schema.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating ledger directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening ledger: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("creating ledger schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// BeginRun inserts a new run and returns its generated ID.
func (s *Store) BeginRun(ctx context.Context, transform, sourceDir, targetDir string, started time.Time) (string, error) {
	id := uuid.NewString()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, transform, source_dir, target_dir, started_at) VALUES (?, ?, ?, ?, ?)`,
		id, transform, sourceDir, targetDir, started.UTC().Format(timeLayout))
	if err != nil {
		return "", fmt.Errorf("recording run: %w", err)
	}
	return id, nil
}

// RecordImage stores the outcome of one source image.
func (s *Store) RecordImage(ctx context.Context, runID, source, output string, imgErr error) error {
	msg := ""
	if imgErr != nil {
		msg = imgErr.Error()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO outputs (run_id, source, output, error) VALUES (?, ?, ?, ?)`,
		runID, source, output, msg)
	if err != nil {
		return fmt.Errorf("recording image %s: %w", source, err)
	}
	return nil
}

// FinishRun stores the final counters of a run.
func (s *Store) FinishRun(ctx context.Context, runID string, finished time.Time, totals Totals) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET finished_at = ?, total = ?, converted = ?, failed = ?, cleaned = ? WHERE id = ?`,
		finished.UTC().Format(timeLayout), totals.Total, totals.Converted, totals.Failed, totals.Cleaned, runID)
	if err != nil {
		return fmt.Errorf("finishing run: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("finishing run: unknown run %s", runID)
	}
	return nil
}

// Runs returns up to limit runs, newest first. A non-positive limit returns
// every run.
func (s *Store) Runs(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, transform, source_dir, target_dir, started_at, finished_at, total, converted, failed, cleaned
		 FROM runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		var started, finished string
		if err := rows.Scan(&r.ID, &r.Transform, &r.SourceDir, &r.TargetDir, &started, &finished,
			&r.Total, &r.Converted, &r.Failed, &r.Cleaned); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		r.StartedAt, _ = time.Parse(timeLayout, started)
		if finished != "" {
			r.FinishedAt, _ = time.Parse(timeLayout, finished)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// Outputs returns the images recorded for runID in insertion order.
func (s *Store) Outputs(ctx context.Context, runID string) ([]Output, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT source, output, error FROM outputs WHERE run_id = ? ORDER BY id`, runID)
	if err != nil {
		return nil, fmt.Errorf("listing outputs: %w", err)
	}
	defer rows.Close()

	var outputs []Output
	for rows.Next() {
		var o Output
		if err := rows.Scan(&o.Source, &o.Output, &o.Err); err != nil {
			return nil, fmt.Errorf("scanning output: %w", err)
		}
		outputs = append(outputs, o)
	}
	return outputs, rows.Err()
}
