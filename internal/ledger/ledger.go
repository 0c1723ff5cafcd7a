// Package ledger records harvest runs and their per-page outcomes in a
// SQLite database, so past and interrupted runs can be inspected.
package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // SQLite driver
)

// FileName is the database file name inside the ledger directory.
const FileName = "pageharvest.db"

// Run status values.
const (
	StatusRunning   = "running"
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
)

// ErrRunNotFound is returned for an unknown run ID.
var ErrRunNotFound = errors.New("ledger: run not found")

// Run is one invocation of a harvest command.
type Run struct {
	ID       string
	Kind     string // command name, serve- prefixed for server jobs
	URL      string
	Started  time.Time
	Finished time.Time // zero while running
	Status   string
	Error    string
}

// Page is the outcome of one page of a run.
type Page struct {
	RunID   string
	Page    int
	Path    string
	Bytes   int
	Skipped bool
	Error   string
}

// Ledger is a run history store.
type Ledger struct {
	db   *sql.DB
	path string
}

// Options configures Open.
type Options struct {
	// CreateIfNotExists creates the directory and database file.
	CreateIfNotExists bool
	// EnableWAL turns on write-ahead logging.
	EnableWAL bool
}

// DefaultOptions returns options that create the database with WAL enabled.
func DefaultOptions() Options {
	return Options{CreateIfNotExists: true, EnableWAL: true}
}

// Open opens the ledger stored in dir.
func Open(dir string, opts Options) (*Ledger, error) {
	path := filepath.Join(dir, FileName)

	mode := "rw"
	if opts.CreateIfNotExists {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("ledger: creating directory: %w", err)
		}
		mode = "rwc"
	} else if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("ledger: %w", err)
	}

	db, err := sql.Open("sqlite", path+"?mode="+mode)
	if err != nil {
		return nil, fmt.Errorf("ledger: opening database: %w", err)
	}
	// SQLite has a single writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	l := &Ledger{db: db, path: path}
	if opts.EnableWAL {
		if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("ledger: enabling WAL: %w", err)
		}
	}
	if err := l.createTables(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return l, nil
}

// Path returns the database file path.
func (l *Ledger) Path() string { return l.path }

// Close closes the database.
func (l *Ledger) Close() error {
	return l.db.Close()
}

func (l *Ledger) createTables() error {
	const schema = `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		kind TEXT NOT NULL,
		url TEXT NOT NULL DEFAULT '',
		started INTEGER NOT NULL,
		finished INTEGER NOT NULL DEFAULT 0,
		status TEXT NOT NULL,
		error TEXT NOT NULL DEFAULT ''
	);

	CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started);

	CREATE TABLE IF NOT EXISTS pages (
		run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
		page INTEGER NOT NULL,
		path TEXT NOT NULL,
		bytes INTEGER NOT NULL DEFAULT 0,
		skipped INTEGER NOT NULL DEFAULT 0,
		error TEXT NOT NULL DEFAULT '',
		PRIMARY KEY (run_id, page)
	);
	`
	if _, err := l.db.Exec(schema); err != nil {
		return fmt.Errorf("ledger: creating tables: %w", err)
	}
	return nil
}

// StartRun inserts a running run of the given kind and returns it.
func (l *Ledger) StartRun(ctx context.Context, kind, url string) (*Run, error) {
	run := &Run{
		ID:      uuid.NewString(),
		Kind:    kind,
		URL:     url,
		Started: time.Now().UTC(),
		Status:  StatusRunning,
	}
	_, err := l.db.ExecContext(ctx,
		`INSERT INTO runs (id, kind, url, started, status) VALUES (?, ?, ?, ?, ?)`,
		run.ID, run.Kind, run.URL, run.Started.UnixNano(), run.Status)
	if err != nil {
		return nil, fmt.Errorf("ledger: inserting run: %w", err)
	}
	return run, nil
}

// RecordPage stores the outcome of a page. Recording the same page twice
// replaces the earlier outcome.
func (l *Ledger) RecordPage(ctx context.Context, p Page) error {
	_, err := l.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO pages (run_id, page, path, bytes, skipped, error) VALUES (?, ?, ?, ?, ?, ?)`,
		p.RunID, p.Page, p.Path, p.Bytes, p.Skipped, p.Error)
	if err != nil {
		return fmt.Errorf("ledger: recording page %d: %w", p.Page, err)
	}
	return nil
}

// FinishRun marks the run as finished. A nil runErr means success.
func (l *Ledger) FinishRun(ctx context.Context, id string, runErr error) error {
	status, msg := StatusSucceeded, ""
	if runErr != nil {
		status, msg = StatusFailed, runErr.Error()
	}
	res, err := l.db.ExecContext(ctx,
		`UPDATE runs SET finished = ?, status = ?, error = ? WHERE id = ?`,
		time.Now().UTC().UnixNano(), status, msg, id)
	if err != nil {
		return fmt.Errorf("ledger: finishing run: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return nil
}

// Runs returns the most recent runs first. limit <= 0 returns all runs.
func (l *Ledger) Runs(ctx context.Context, limit int) ([]Run, error) {
	query := `SELECT id, kind, url, started, finished, status, error FROM runs ORDER BY started DESC, rowid DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := l.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ledger: querying runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// Run returns the run with the given ID.
func (l *Ledger) Run(ctx context.Context, id string) (*Run, error) {
	row := l.db.QueryRowContext(ctx,
		`SELECT id, kind, url, started, finished, status, error FROM runs WHERE id = ?`, id)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// Pages returns the recorded pages of a run in page order.
func (l *Ledger) Pages(ctx context.Context, runID string) ([]Page, error) {
	rows, err := l.db.QueryContext(ctx,
		`SELECT run_id, page, path, bytes, skipped, error FROM pages WHERE run_id = ? ORDER BY page`, runID)
	if err != nil {
		return nil, fmt.Errorf("ledger: querying pages: %w", err)
	}
	defer rows.Close()

	var pages []Page
	for rows.Next() {
		var p Page
		if err := rows.Scan(&p.RunID, &p.Page, &p.Path, &p.Bytes, &p.Skipped, &p.Error); err != nil {
			return nil, fmt.Errorf("ledger: scanning page: %w", err)
		}
		pages = append(pages, p)
	}
	return pages, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner) (Run, error) {
	var (
		r                 Run
		started, finished int64
	)
	if err := s.Scan(&r.ID, &r.Kind, &r.URL, &started, &finished, &r.Status, &r.Error); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return r, err
		}
		return r, fmt.Errorf("ledger: scanning run: %w", err)
	}
	r.Started = time.Unix(0, started).UTC()
	if finished > 0 {
		r.Finished = time.Unix(0, finished).UTC()
	}
	return r, nil
}
