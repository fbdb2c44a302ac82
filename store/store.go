// Package store persists sealed run artifacts to sqlite. Runs are
// write-once: once sealed and saved they are never updated.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	// sqlite driver
	_ "github.com/mattn/go-sqlite3"

	"github.com/quantview/backtester/engine"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id TEXT PRIMARY KEY,
	nickname TEXT NOT NULL,
	strategy TEXT NOT NULL,
	status TEXT NOT NULL,
	started_at TIMESTAMP NOT NULL,
	finished_at TIMESTAMP NOT NULL,
	payload BLOB NOT NULL
);`

// Open creates or opens the database at path and ensures the schema
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open store %q: %w", path, err)
	}
	if _, err = db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate store: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the database handle
func (s *Store) Close() error {
	return s.db.Close()
}

// Save persists a sealed run. Saving the same ID twice returns
// ErrDuplicate and leaves the stored artifact untouched
func (s *Store) Save(ctx context.Context, run *engine.Run) error {
	payload, err := json.Marshal(run)
	if err != nil {
		return fmt.Errorf("marshal run %s: %w", run.ID, err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO runs (id, nickname, strategy, status, started_at, finished_at, payload)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Nickname, run.Strategy, string(run.Status),
		run.StartedAt, run.FinishedAt, payload)
	if err != nil {
		var exists bool
		if scanErr := s.db.QueryRowContext(ctx,
			`SELECT EXISTS(SELECT 1 FROM runs WHERE id = ?)`, run.ID).Scan(&exists); scanErr == nil && exists {
			return fmt.Errorf("%w: %s", ErrDuplicate, run.ID)
		}
		return fmt.Errorf("save run %s: %w", run.ID, err)
	}
	return nil
}

// Get returns the full artifact for one run
func (s *Store) Get(ctx context.Context, id string) (*engine.Run, error) {
	var payload []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT payload FROM runs WHERE id = ?`, id).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get run %s: %w", id, err)
	}
	var run engine.Run
	if err = json.Unmarshal(payload, &run); err != nil {
		return nil, fmt.Errorf("unmarshal run %s: %w", id, err)
	}
	return &run, nil
}

// List returns summaries of every stored run, newest first
func (s *Store) List(ctx context.Context) ([]Summary, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, nickname, strategy, status, started_at, finished_at
		 FROM runs ORDER BY started_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var out []Summary
	for rows.Next() {
		var s Summary
		if err = rows.Scan(&s.ID, &s.Nickname, &s.Strategy, &s.Status, &s.StartedAt, &s.FinishedAt); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
