// ABOUTME: Engine interface and Job type for the durable job queue.
// ABOUTME: Includes the Work subscription loop shared by all engine implementations.

package queue

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// ErrJobNotFound is returned when completing or failing a job that is not
// currently active on the named queue.
var ErrJobNotFound = errors.New("job not found or not active")

// Job is one fetched unit of work. A fetched job is invisible to other
// fetchers until it is completed, failed, or its lease expires.
type Job struct {
	ID        string
	Queue     string
	Payload   []byte
	Priority  int
	Retries   int // delivery attempts so far, including this one
	CreatedAt time.Time
}

// SendOptions carries optional queue-engine-level hints for Send.
type SendOptions struct {
	// Priority orders fetches within a queue where the engine supports it
	// (higher first). Engines may treat it as a hint only.
	Priority int
	// MaxRetries overrides the engine default for attempts before the job
	// is moved to the dead-letter state.
	MaxRetries int
}

// Engine is the at-least-once, exclusive-delivery queue primitive the
// dispatcher and approval coordinator are built on. Implementations must be
// safe for concurrent use from multiple goroutines.
type Engine interface {
	// CreateQueue ensures the named queue exists. Idempotent.
	CreateQueue(ctx context.Context, name string) error

	// Send enqueues a payload and returns the job id.
	Send(ctx context.Context, name string, payload []byte, opts *SendOptions) (string, error)

	// Fetch exclusively claims the next job, or returns (nil, nil) when the
	// queue is empty. A claimed job becomes fetchable again if its lease
	// expires before Complete or Fail is called.
	Fetch(ctx context.Context, name string) (*Job, error)

	// Complete acknowledges a fetched job as done. Data is optional
	// completion output retained by engines that persist job history.
	Complete(ctx context.Context, name, jobID string, data []byte) error

	// Fail marks a fetched job attempt as failed. The job is redelivered
	// until its retry budget is exhausted, then moved to the dead-letter
	// state.
	Fail(ctx context.Context, name, jobID string, data []byte) error

	// DropQueue removes a queue and its jobs. Used for ephemeral approval
	// queues once their round trip has finished.
	DropQueue(ctx context.Context, name string) error

	// Close releases any resources held by the engine.
	Close() error
}

// Handler processes one fetched job. A non-nil error fails the job attempt
// at the queue level, driving the engine's redelivery policy.
type Handler func(ctx context.Context, job *Job) error

// WorkOptions tunes the Work subscription loop.
type WorkOptions struct {
	// BatchSize is the number of jobs fetched per poll. With BatchSize 1
	// the handler sees one job at a time, serialized.
	BatchSize int
	// PollInterval is the sleep between polls when the queue is empty.
	PollInterval time.Duration
	// Logger receives fetch and handler failures. Defaults to slog.Default.
	Logger *slog.Logger
}

// Work subscribes to a queue, repeatedly fetching jobs and invoking the
// handler until the context is cancelled. The queue is created if it does
// not exist. Handler errors fail the job; handler success completes it.
func Work(ctx context.Context, e Engine, name string, handler Handler, opts WorkOptions) error {
	if opts.BatchSize <= 0 {
		opts.BatchSize = 1
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = time.Second
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("queue", name)

	if err := e.CreateQueue(ctx, name); err != nil {
		return err
	}

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		fetched := 0
		for i := 0; i < opts.BatchSize; i++ {
			job, err := e.Fetch(ctx, name)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				logger.Error("fetch failed", "error", err)
				break
			}
			if job == nil {
				break
			}
			fetched++

			if err := handler(ctx, job); err != nil {
				logger.Warn("job failed", "job_id", job.ID, "attempt", job.Retries, "error", err)
				if ferr := e.Fail(ctx, name, job.ID, []byte(err.Error())); ferr != nil {
					logger.Error("marking job failed", "job_id", job.ID, "error", ferr)
				}
				continue
			}
			if cerr := e.Complete(ctx, name, job.ID, nil); cerr != nil {
				logger.Error("marking job complete", "job_id", job.ID, "error", cerr)
			}
		}

		if fetched == 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(opts.PollInterval):
			}
		}
	}
}
