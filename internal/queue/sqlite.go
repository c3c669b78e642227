// ABOUTME: SQLite implementation of the queue Engine using modernc.org/sqlite
// ABOUTME: Lease-based exclusive fetch with automatic schema creation and dead-lettering.

package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// DefaultLease is how long a fetched job stays invisible before it becomes
// fetchable again.
const DefaultLease = 5 * time.Minute

// DefaultMaxRetries is the attempt budget before a job is dead-lettered.
const DefaultMaxRetries = 3

// SQLiteEngine implements Engine on a local SQLite database. Exclusive fetch
// is a single UPDATE..RETURNING statement, so concurrent fetchers never claim
// the same job.
type SQLiteEngine struct {
	db     *sql.DB
	lease  time.Duration
	logger *slog.Logger
}

// NewSQLiteEngine opens (or creates) the queue database at the given path.
// Parent directories are created if needed.
func NewSQLiteEngine(path string) (*SQLiteEngine, error) {
	logger := slog.Default().With("component", "queue")

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	// WAL keeps fetchers from blocking senders. The pragmas ride on the DSN
	// so every pooled connection gets them, not just the one a bare Exec
	// happens to run on.
	dsn := path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	e := &SQLiteEngine{
		db:     db,
		lease:  DefaultLease,
		logger: logger,
	}

	if err := e.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	logger.Info("SQLite queue engine initialized", "path", path)
	return e, nil
}

// SetLease overrides the default fetch lease duration.
func (e *SQLiteEngine) SetLease(d time.Duration) {
	e.lease = d
}

func (e *SQLiteEngine) createSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS queues (
			name TEXT PRIMARY KEY,
			created_at DATETIME NOT NULL
		);

		CREATE TABLE IF NOT EXISTS jobs (
			id TEXT PRIMARY KEY,
			queue TEXT NOT NULL,
			payload BLOB NOT NULL,
			state TEXT NOT NULL DEFAULT 'created',
			priority INTEGER NOT NULL DEFAULT 0,
			retry_count INTEGER NOT NULL DEFAULT 0,
			max_retries INTEGER NOT NULL DEFAULT 3,
			lease_expires_at DATETIME,
			output BLOB,
			created_at DATETIME NOT NULL,
			completed_at DATETIME
		);

		CREATE INDEX IF NOT EXISTS idx_jobs_queue_state
			ON jobs(queue, state, priority DESC, created_at);
	`

	if _, err := e.db.Exec(schema); err != nil {
		return fmt.Errorf("executing schema: %w", err)
	}
	return nil
}

// CreateQueue registers the queue name. Sends to unregistered queues still
// work; the registry exists for bookkeeping and health reporting.
func (e *SQLiteEngine) CreateQueue(ctx context.Context, name string) error {
	_, err := e.db.ExecContext(ctx,
		"INSERT OR IGNORE INTO queues (name, created_at) VALUES (?, ?)",
		name, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("creating queue %q: %w", name, err)
	}
	return nil
}

// Send enqueues a payload and returns the new job id.
func (e *SQLiteEngine) Send(ctx context.Context, name string, payload []byte, opts *SendOptions) (string, error) {
	priority := 0
	maxRetries := DefaultMaxRetries
	if opts != nil {
		priority = opts.Priority
		if opts.MaxRetries > 0 {
			maxRetries = opts.MaxRetries
		}
	}

	id := uuid.New().String()
	_, err := e.db.ExecContext(ctx,
		`INSERT INTO jobs (id, queue, payload, state, priority, max_retries, created_at)
		 VALUES (?, ?, ?, 'created', ?, ?, ?)`,
		id, name, payload, priority, maxRetries, time.Now().UTC(),
	)
	if err != nil {
		return "", fmt.Errorf("sending to queue %q: %w", name, err)
	}
	return id, nil
}

// Fetch claims the next job on the queue, or returns (nil, nil) when empty.
// Jobs whose lease expired are reclaimed here, which is what makes crash
// redelivery work.
func (e *SQLiteEngine) Fetch(ctx context.Context, name string) (*Job, error) {
	now := time.Now().UTC()

	row := e.db.QueryRowContext(ctx,
		`UPDATE jobs
		 SET state = 'active', retry_count = retry_count + 1, lease_expires_at = ?
		 WHERE id = (
			SELECT id FROM jobs
			WHERE queue = ?
			  AND (state = 'created' OR (state = 'active' AND lease_expires_at < ?))
			ORDER BY priority DESC, created_at ASC
			LIMIT 1
		 )
		 RETURNING id, payload, priority, retry_count, created_at`,
		now.Add(e.lease), name, now,
	)

	var job Job
	err := row.Scan(&job.ID, &job.Payload, &job.Priority, &job.Retries, &job.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("fetching from queue %q: %w", name, err)
	}
	job.Queue = name
	return &job, nil
}

// Complete acknowledges an active job as done and stores optional output.
func (e *SQLiteEngine) Complete(ctx context.Context, name, jobID string, data []byte) error {
	res, err := e.db.ExecContext(ctx,
		`UPDATE jobs
		 SET state = 'completed', completed_at = ?, output = ?, lease_expires_at = NULL
		 WHERE id = ? AND queue = ? AND state = 'active'`,
		time.Now().UTC(), data, jobID, name,
	)
	if err != nil {
		return fmt.Errorf("completing job %q: %w", jobID, err)
	}
	return requireOneRow(res, jobID)
}

// Fail releases an active job back to the queue, or dead-letters it once the
// retry budget is spent. Data (typically the handler error) is kept as the
// job output.
func (e *SQLiteEngine) Fail(ctx context.Context, name, jobID string, data []byte) error {
	res, err := e.db.ExecContext(ctx,
		`UPDATE jobs
		 SET state = CASE WHEN retry_count >= max_retries THEN 'dead' ELSE 'created' END,
		     lease_expires_at = NULL, output = ?
		 WHERE id = ? AND queue = ? AND state = 'active'`,
		data, jobID, name,
	)
	if err != nil {
		return fmt.Errorf("failing job %q: %w", jobID, err)
	}
	return requireOneRow(res, jobID)
}

// DropQueue deletes the queue and every job on it.
func (e *SQLiteEngine) DropQueue(ctx context.Context, name string) error {
	if _, err := e.db.ExecContext(ctx, "DELETE FROM jobs WHERE queue = ?", name); err != nil {
		return fmt.Errorf("dropping jobs for queue %q: %w", name, err)
	}
	if _, err := e.db.ExecContext(ctx, "DELETE FROM queues WHERE name = ?", name); err != nil {
		return fmt.Errorf("dropping queue %q: %w", name, err)
	}
	return nil
}

// Ping reports whether the database is reachable.
func (e *SQLiteEngine) Ping(ctx context.Context) error {
	return e.db.PingContext(ctx)
}

// Close closes the underlying database.
func (e *SQLiteEngine) Close() error {
	return e.db.Close()
}

func requireOneRow(res sql.Result, jobID string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected for job %q: %w", jobID, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrJobNotFound, jobID)
	}
	return nil
}
