// Package store spools time-series batches that could not be pushed to the
// cloud, so they survive broker outages and restarts.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/nhonchu/fridge-truck/internal/telemetry"
)

const sqliteDriverName = "sqlite"

const schemaSpool = `
CREATE TABLE IF NOT EXISTS series_spool (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    created_at TIMESTAMP NOT NULL,
    payload TEXT NOT NULL
);
`

const (
	insertSpoolSQL    = `INSERT INTO series_spool (created_at, payload) VALUES (?, ?)`
	selectSpoolSQL    = `SELECT id, payload FROM series_spool ORDER BY id`
	deleteAllSpoolSQL = `DELETE FROM series_spool`
	countSpoolSQL     = `SELECT COUNT(*) FROM series_spool`
)

// Spool is the sqlite-backed batch queue.
type Spool struct {
	db *sql.DB
}

// Open opens/creates the spool database and ensures the schema exists.
func Open(path string) (*Spool, error) {
	db, err := sql.Open(sqliteDriverName, path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite at %q: %w", path, err)
	}

	// SQLite is not great with many writers; the run loop is the only one.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL;",
		"PRAGMA busy_timeout = 5000;",
	} {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("set %s: %w", pragma, err)
		}
	}

	if _, err := db.Exec(schemaSpool); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure spool schema: %w", err)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	return &Spool{db: db}, nil
}

// New wraps an existing database handle. Used by tests.
func New(db *sql.DB) *Spool {
	return &Spool{db: db}
}

// Enqueue stores a batch that failed to publish.
func (s *Spool) Enqueue(ctx context.Context, series telemetry.Series) error {
	payload, err := json.Marshal(series)
	if err != nil {
		return fmt.Errorf("marshal series %s: %w", series.BatchID, err)
	}
	if _, err := s.db.ExecContext(ctx, insertSpoolSQL, time.Now().UTC(), string(payload)); err != nil {
		return fmt.Errorf("enqueue series %s: %w", series.BatchID, err)
	}
	return nil
}

// DequeueAll removes and returns every spooled batch, oldest first.
// Batches that fail to re-publish must be re-enqueued by the caller.
func (s *Spool) DequeueAll(ctx context.Context) ([]telemetry.Series, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin dequeue: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	rows, err := tx.QueryContext(ctx, selectSpoolSQL)
	if err != nil {
		return nil, fmt.Errorf("select spool: %w", err)
	}

	var out []telemetry.Series
	for rows.Next() {
		var id int64
		var payload string
		if err := rows.Scan(&id, &payload); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan spool row: %w", err)
		}
		var series telemetry.Series
		if err := json.Unmarshal([]byte(payload), &series); err != nil {
			rows.Close()
			return nil, fmt.Errorf("decode spool row %d: %w", id, err)
		}
		out = append(out, series)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("iterate spool: %w", err)
	}
	rows.Close()

	if len(out) == 0 {
		return nil, nil
	}

	if _, err := tx.ExecContext(ctx, deleteAllSpoolSQL); err != nil {
		return nil, fmt.Errorf("clear spool: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit dequeue: %w", err)
	}
	return out, nil
}

// Len returns the number of spooled batches.
func (s *Spool) Len(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, countSpoolSQL).Scan(&n); err != nil {
		return 0, fmt.Errorf("count spool: %w", err)
	}
	return n, nil
}

// Close closes the underlying database.
func (s *Spool) Close() error {
	return s.db.Close()
}
