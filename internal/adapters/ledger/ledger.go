// Package ledger records pipeline runs in a SQLite database so each summary
// can be traced back to the processed table and raw batch it came from.
package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite" // registers the "sqlite" driver
)

// Stage names.
const (
	StageIngest    = "ingest"
	StageAggregate = "aggregate"
)

// Run statuses.
const (
	StatusSuccess = "success"
	StatusFailure = "failure"
)

const pingTimeout = 5 * time.Second

const busyTimeoutSQL = `PRAGMA busy_timeout = 5000`

const schemaSQL = `CREATE TABLE IF NOT EXISTS runs (
	run_id       TEXT PRIMARY KEY,
	stage        TEXT NOT NULL,
	status       TEXT NOT NULL,
	input_path   TEXT NOT NULL,
	output_path  TEXT NOT NULL,
	input_digest TEXT NOT NULL DEFAULT '',
	row_count    INTEGER NOT NULL DEFAULT 0,
	error        TEXT NOT NULL DEFAULT '',
	started_at   TEXT NOT NULL,
	finished_at  TEXT NOT NULL
)`

const indexSQL = `CREATE INDEX IF NOT EXISTS runs_stage_finished ON runs (stage, status, finished_at)`

// Run is one row of the ledger.
type Run struct {
	ID          string
	Stage       string
	Status      string
	InputPath   string
	OutputPath  string
	InputDigest string
	Rows        int64
	Error       string
	StartedAt   time.Time
	FinishedAt  time.Time
}

// Recorder is the ledger contract used by the pipeline.
type Recorder interface {
	Record(ctx context.Context, run Run) error
	Latest(ctx context.Context, stage, status string) (Run, bool, error)
	Close() error
}

// Ledger is a SQLite-backed Recorder.
type Ledger struct {
	mu     sync.Mutex
	db     *sql.DB
	closed bool
}

var _ Recorder = (*Ledger)(nil)

// Open creates or opens the ledger at path and ensures its schema.
func Open(ctx context.Context, path string) (*Ledger, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("%w: path must not be empty", ErrOpen)
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrOpen, err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrOpen, err)
	}
	db.SetMaxOpenConns(1)

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: ping: %w", ErrOpen, err)
	}

	for _, step := range []struct{ name, stmt string }{
		{"busy_timeout", busyTimeoutSQL},
		{"schema", schemaSQL},
		{"index", indexSQL},
	} {
		if _, err := db.ExecContext(ctx, step.stmt); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("%w: %s: %w", ErrOpen, step.name, err)
		}
	}
	return &Ledger{db: db}, nil
}

// Record inserts run inside a transaction.
func (l *Ledger) Record(ctx context.Context, run Run) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return ErrClosed
	}

	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin tx: %w", ErrRecord, err)
	}
	_, err = tx.ExecContext(ctx, `INSERT INTO runs
		(run_id, stage, status, input_path, output_path, input_digest, row_count, error, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Stage, run.Status, run.InputPath, run.OutputPath, run.InputDigest,
		run.Rows, run.Error, formatTime(run.StartedAt), formatTime(run.FinishedAt),
	)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("%w: insert %s: %w", ErrRecord, run.ID, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit: %w", ErrRecord, err)
	}
	return nil
}

// Latest returns the most recently finished run of stage with status.
func (l *Ledger) Latest(ctx context.Context, stage, status string) (Run, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return Run{}, false, ErrClosed
	}

	row := l.db.QueryRowContext(ctx, `SELECT
		run_id, stage, status, input_path, output_path, input_digest, row_count, error, started_at, finished_at
		FROM runs
		WHERE stage = ? AND status = ?
		ORDER BY finished_at DESC, rowid DESC
		LIMIT 1`, stage, status)

	var (
		run               Run
		started, finished string
	)
	err := row.Scan(&run.ID, &run.Stage, &run.Status, &run.InputPath, &run.OutputPath,
		&run.InputDigest, &run.Rows, &run.Error, &started, &finished)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, false, nil
	}
	if err != nil {
		return Run{}, false, fmt.Errorf("%w: %w", ErrQuery, err)
	}
	if run.StartedAt, err = parseTime(started); err != nil {
		return Run{}, false, fmt.Errorf("%w: started_at: %w", ErrQuery, err)
	}
	if run.FinishedAt, err = parseTime(finished); err != nil {
		return Run{}, false, fmt.Errorf("%w: finished_at: %w", ErrQuery, err)
	}
	return run, true, nil
}

// Close releases the database. It is safe to call more than once.
func (l *Ledger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil
	}
	l.closed = true
	return l.db.Close()
}

// Nop is a Recorder that keeps nothing.
type Nop struct{}

var _ Recorder = Nop{}

// Record does nothing.
func (Nop) Record(context.Context, Run) error { return nil }

// Latest reports no run.
func (Nop) Latest(context.Context, string, string) (Run, bool, error) { return Run{}, false, nil }

// Close does nothing.
func (Nop) Close() error { return nil }

// Timestamps are stored as fixed-width UTC RFC 3339 so text order is time order.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(timeLayout, s)
}
