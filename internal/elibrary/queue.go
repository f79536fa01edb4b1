// Package elibrary tracks the download-and-ingest lifecycle of decisions
// published on the Supreme Court e-Library. A local SQLite queue records each
// staged decision's status so a sync can be resumed after interruption and a
// decision is never downloaded or ingested twice.
package elibrary

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // register "sqlite" driver
)

// Status is the lifecycle state of a staged decision.
type Status string

const (
	// StatusPending means the decision is staged but not yet downloaded.
	StatusPending Status = "pending"
	// StatusDownloading means a download is in flight.
	StatusDownloading Status = "downloading"
	// StatusDownloaded means the file is on disk, awaiting ingest.
	StatusDownloaded Status = "downloaded"
	// StatusIngesting means an ingest is in flight.
	StatusIngesting Status = "ingesting"
	// StatusIngested is the terminal success state.
	StatusIngested Status = "ingested"
	// StatusFailed is the terminal failure state; LastError holds the cause.
	StatusFailed Status = "failed"
)

// Decision is one staged e-Library decision.
type Decision struct {
	// ID is the queue row ID.
	ID int64
	// CaseNumber is the docket number from the staging CSV.
	CaseNumber string
	// Title is the caption from the staging CSV.
	Title string
	// SourceURL is the e-Library page or document URL.
	SourceURL string
	// Status is the current lifecycle state.
	Status Status
	// LocalPath is where the downloaded file lives, or "".
	LocalPath string
	// LastError is the most recent failure message, or "".
	LastError string
	// UpdatedAt is when the row last changed.
	UpdatedAt time.Time
}

// Queue is the SQLite-backed staging queue. It is safe for concurrent use
// within a single process.
type Queue struct {
	db *sql.DB
}

// OpenQueue opens (or creates) the queue database at path and runs the schema
// migration. Use ":memory:" in tests.
func OpenQueue(path string) (*Queue, error) {
	// WAL mode improves concurrent read performance and is safe for single-host use.
	dsn := path + "?_journal_mode=WAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("elibrary: open queue %s: %w", path, err)
	}
	// Limit to a single writer connection to avoid SQLITE_BUSY under concurrent writes.
	db.SetMaxOpenConns(1)

	q := &Queue{db: db}
	if err := q.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return q, nil
}

// Close releases the database handle.
func (q *Queue) Close() error { return q.db.Close() }

func (q *Queue) migrate() error {
	const ddl = `
CREATE TABLE IF NOT EXISTS decisions (
    id           INTEGER PRIMARY KEY AUTOINCREMENT,
    case_number  TEXT    NOT NULL DEFAULT '',
    title        TEXT    NOT NULL DEFAULT '',
    source_url   TEXT    NOT NULL UNIQUE,
    status       TEXT    NOT NULL CHECK(status IN ('pending','downloading','downloaded','ingesting','ingested','failed')),
    local_path   TEXT    NOT NULL DEFAULT '',
    last_error   TEXT    NOT NULL DEFAULT '',
    updated_at   INTEGER NOT NULL  -- Unix timestamp (seconds)
);
CREATE INDEX IF NOT EXISTS idx_decisions_status ON decisions (status);
`
	if _, err := q.db.Exec(ddl); err != nil {
		return fmt.Errorf("elibrary: migrate queue: %w", err)
	}
	return nil
}

// Stage inserts a pending decision. A URL already staged is left untouched,
// whatever its current status, so repeated CSV imports are idempotent.
func (q *Queue) Stage(ctx context.Context, caseNumber, title, sourceURL string) (bool, error) {
	if sourceURL == "" {
		return false, fmt.Errorf("elibrary: source URL must not be empty")
	}
	const stmt = `INSERT INTO decisions (case_number, title, source_url, status, updated_at)
	              VALUES (?, ?, ?, ?, ?)
	              ON CONFLICT(source_url) DO NOTHING`
	res, err := q.db.ExecContext(ctx, stmt, caseNumber, title, sourceURL, string(StatusPending), time.Now().Unix())
	if err != nil {
		return false, fmt.Errorf("elibrary: stage decision: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("elibrary: stage decision: %w", err)
	}
	return n > 0, nil
}

// ByStatus returns decisions in the given state, oldest change first.
func (q *Queue) ByStatus(ctx context.Context, status Status) ([]Decision, error) {
	const stmt = `SELECT id, case_number, title, source_url, status, local_path, last_error, updated_at
	              FROM decisions WHERE status = ? ORDER BY updated_at ASC, id ASC`
	rows, err := q.db.QueryContext(ctx, stmt, string(status))
	if err != nil {
		return nil, fmt.Errorf("elibrary: list %s decisions: %w", status, err)
	}
	defer rows.Close()

	var out []Decision
	for rows.Next() {
		d, err := scanDecision(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("elibrary: iterate decisions: %w", err)
	}
	return out, nil
}

// MarkStatus transitions a decision to the given state, clearing any previous
// error message.
func (q *Queue) MarkStatus(ctx context.Context, id int64, status Status) error {
	return q.update(ctx, id, status, "", "")
}

// MarkDownloaded records the local file path alongside the downloaded state.
func (q *Queue) MarkDownloaded(ctx context.Context, id int64, localPath string) error {
	return q.update(ctx, id, StatusDownloaded, localPath, "")
}

// MarkFailed records the failure cause alongside the failed state.
func (q *Queue) MarkFailed(ctx context.Context, id int64, cause string) error {
	return q.update(ctx, id, StatusFailed, "", cause)
}

func (q *Queue) update(ctx context.Context, id int64, status Status, localPath, lastError string) error {
	stmt := `UPDATE decisions SET status = ?, last_error = ?, updated_at = ?`
	args := []any{string(status), lastError, time.Now().Unix()}
	if localPath != "" {
		stmt += `, local_path = ?`
		args = append(args, localPath)
	}
	stmt += ` WHERE id = ?`
	args = append(args, id)

	res, err := q.db.ExecContext(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("elibrary: update decision %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("elibrary: update decision %d: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("elibrary: decision %d not found", id)
	}
	return nil
}

// Stats returns the number of decisions per status.
func (q *Queue) Stats(ctx context.Context) (map[Status]int, error) {
	rows, err := q.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM decisions GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("elibrary: queue stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[Status]int)
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("elibrary: scan stats: %w", err)
		}
		stats[Status(status)] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("elibrary: iterate stats: %w", err)
	}
	return stats, nil
}

func scanDecision(rows *sql.Rows) (Decision, error) {
	var d Decision
	var status string
	var updated int64
	if err := rows.Scan(&d.ID, &d.CaseNumber, &d.Title, &d.SourceURL, &status, &d.LocalPath, &d.LastError, &updated); err != nil {
		return Decision{}, fmt.Errorf("elibrary: scan decision: %w", err)
	}
	d.Status = Status(status)
	d.UpdatedAt = time.Unix(updated, 0)
	return d, nil
}
