// ABOUTME: Redis implementation of the queue Engine using the reliable-queue pattern.
// ABOUTME: Pending/processing lists with per-job lease keys for crash redelivery.

package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RedisEngine implements Engine on Redis lists. Jobs move from a pending list
// to a per-queue processing list on fetch (LMOVE, atomic), with a TTL lease
// key per job. Jobs found on the processing list without a live lease are
// requeued on the next fetch. Priority is accepted but not honored; Redis
// lists are strictly FIFO.
type RedisEngine struct {
	client *redis.Client
	lease  time.Duration
	logger *slog.Logger
}

// NewRedisEngine connects to Redis and verifies the connection.
func NewRedisEngine(ctx context.Context, addr, password string, db int) (*RedisEngine, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connecting to redis at %s: %w", addr, err)
	}

	logger := slog.Default().With("component", "queue")
	logger.Info("Redis queue engine initialized", "addr", addr, "db", db)

	return &RedisEngine{
		client: client,
		lease:  DefaultLease,
		logger: logger,
	}, nil
}

// SetLease overrides the default fetch lease duration.
func (e *RedisEngine) SetLease(d time.Duration) {
	e.lease = d
}

func pendingKey(name string) string    { return "agentq:q:" + name }
func processingKey(name string) string { return "agentq:q:" + name + ":active" }
func deadKey(name string) string       { return "agentq:q:" + name + ":dead" }
func jobKey(id string) string          { return "agentq:job:" + id }
func leaseKey(id string) string        { return "agentq:lease:" + id }

const queuesKey = "agentq:queues"

// CreateQueue registers the queue name in the queue set. Idempotent.
func (e *RedisEngine) CreateQueue(ctx context.Context, name string) error {
	if err := e.client.SAdd(ctx, queuesKey, name).Err(); err != nil {
		return fmt.Errorf("creating queue %q: %w", name, err)
	}
	return nil
}

// Send stores the job hash and pushes its id onto the pending list.
func (e *RedisEngine) Send(ctx context.Context, name string, payload []byte, opts *SendOptions) (string, error) {
	priority := 0
	maxRetries := DefaultMaxRetries
	if opts != nil {
		priority = opts.Priority
		if opts.MaxRetries > 0 {
			maxRetries = opts.MaxRetries
		}
	}

	id := uuid.New().String()
	fields := map[string]any{
		"queue":       name,
		"payload":     payload,
		"priority":    priority,
		"retry_count": 0,
		"max_retries": maxRetries,
		"created_at":  time.Now().UTC().Format(time.RFC3339Nano),
	}

	pipe := e.client.TxPipeline()
	pipe.HSet(ctx, jobKey(id), fields)
	pipe.LPush(ctx, pendingKey(name), id)
	pipe.SAdd(ctx, queuesKey, name)
	if _, err := pipe.Exec(ctx); err != nil {
		return "", fmt.Errorf("sending to queue %q: %w", name, err)
	}
	return id, nil
}

// Fetch requeues lease-expired jobs, then atomically moves the next pending
// job id to the processing list and claims a lease on it.
func (e *RedisEngine) Fetch(ctx context.Context, name string) (*Job, error) {
	if err := e.reapExpired(ctx, name); err != nil {
		e.logger.Warn("reaping expired leases", "queue", name, "error", err)
	}

	id, err := e.client.LMove(ctx, pendingKey(name), processingKey(name), "RIGHT", "LEFT").Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("fetching from queue %q: %w", name, err)
	}

	pipe := e.client.TxPipeline()
	retries := pipe.HIncrBy(ctx, jobKey(id), "retry_count", 1)
	fields := pipe.HGetAll(ctx, jobKey(id))
	pipe.Set(ctx, leaseKey(id), name, e.lease)
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("claiming job %q: %w", id, err)
	}

	data := fields.Val()
	job := &Job{
		ID:      id,
		Queue:   name,
		Payload: []byte(data["payload"]),
		Retries: int(retries.Val()),
	}
	if p, perr := strconv.Atoi(data["priority"]); perr == nil {
		job.Priority = p
	}
	if t, terr := time.Parse(time.RFC3339Nano, data["created_at"]); terr == nil {
		job.CreatedAt = t
	}
	return job, nil
}

// reapExpired scans the processing list for jobs whose lease key is gone and
// returns them to the pending list (or dead-letters them).
func (e *RedisEngine) reapExpired(ctx context.Context, name string) error {
	ids, err := e.client.LRange(ctx, processingKey(name), 0, -1).Result()
	if err != nil {
		return err
	}

	for _, id := range ids {
		exists, err := e.client.Exists(ctx, leaseKey(id)).Result()
		if err != nil {
			return err
		}
		if exists > 0 {
			continue
		}
		if err := e.release(ctx, name, id, nil); err != nil {
			return err
		}
		e.logger.Warn("requeued job with expired lease", "queue", name, "job_id", id)
	}
	return nil
}

// Complete removes the job entirely. Completion data is not retained; the
// caller has already delivered the outcome.
func (e *RedisEngine) Complete(ctx context.Context, name, jobID string, data []byte) error {
	removed, err := e.client.LRem(ctx, processingKey(name), 1, jobID).Result()
	if err != nil {
		return fmt.Errorf("completing job %q: %w", jobID, err)
	}
	if removed == 0 {
		return fmt.Errorf("%w: %s", ErrJobNotFound, jobID)
	}

	pipe := e.client.TxPipeline()
	pipe.Del(ctx, jobKey(jobID))
	pipe.Del(ctx, leaseKey(jobID))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("cleaning up job %q: %w", jobID, err)
	}
	return nil
}

// Fail returns the job to the pending list for redelivery, or dead-letters it
// once the retry budget is spent.
func (e *RedisEngine) Fail(ctx context.Context, name, jobID string, data []byte) error {
	removed, err := e.client.LRem(ctx, processingKey(name), 1, jobID).Result()
	if err != nil {
		return fmt.Errorf("failing job %q: %w", jobID, err)
	}
	if removed == 0 {
		return fmt.Errorf("%w: %s", ErrJobNotFound, jobID)
	}
	if len(data) > 0 {
		if err := e.client.HSet(ctx, jobKey(jobID), "last_error", data).Err(); err != nil {
			return fmt.Errorf("recording failure for job %q: %w", jobID, err)
		}
	}
	return e.requeueOrBury(ctx, name, jobID)
}

// release puts a job back on the queue after a lease expiry. Unlike Fail it
// has already been removed from the processing list by the caller's LREM or
// will be here.
func (e *RedisEngine) release(ctx context.Context, name, jobID string, data []byte) error {
	if _, err := e.client.LRem(ctx, processingKey(name), 1, jobID).Result(); err != nil {
		return err
	}
	return e.requeueOrBury(ctx, name, jobID)
}

func (e *RedisEngine) requeueOrBury(ctx context.Context, name, jobID string) error {
	vals, err := e.client.HMGet(ctx, jobKey(jobID), "retry_count", "max_retries").Result()
	if err != nil {
		return fmt.Errorf("reading retry state for job %q: %w", jobID, err)
	}

	retries, _ := strconv.Atoi(toString(vals[0]))
	maxRetries, _ := strconv.Atoi(toString(vals[1]))
	if maxRetries <= 0 {
		maxRetries = DefaultMaxRetries
	}

	pipe := e.client.TxPipeline()
	pipe.Del(ctx, leaseKey(jobID))
	if retries >= maxRetries {
		pipe.LPush(ctx, deadKey(name), jobID)
	} else {
		pipe.RPush(ctx, pendingKey(name), jobID)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("requeueing job %q: %w", jobID, err)
	}
	return nil
}

// DropQueue deletes the queue's lists and every job hash they reference.
func (e *RedisEngine) DropQueue(ctx context.Context, name string) error {
	for _, key := range []string{pendingKey(name), processingKey(name), deadKey(name)} {
		ids, err := e.client.LRange(ctx, key, 0, -1).Result()
		if err != nil {
			return fmt.Errorf("dropping queue %q: %w", name, err)
		}
		for _, id := range ids {
			if err := e.client.Del(ctx, jobKey(id), leaseKey(id)).Err(); err != nil {
				return fmt.Errorf("dropping job %q: %w", id, err)
			}
		}
		if err := e.client.Del(ctx, key).Err(); err != nil {
			return fmt.Errorf("dropping queue %q: %w", name, err)
		}
	}
	if err := e.client.SRem(ctx, queuesKey, name).Err(); err != nil {
		return fmt.Errorf("unregistering queue %q: %w", name, err)
	}
	return nil
}

// Ping reports whether the Redis server is reachable.
func (e *RedisEngine) Ping(ctx context.Context) error {
	return e.client.Ping(ctx).Err()
}

// Close closes the Redis client.
func (e *RedisEngine) Close() error {
	return e.client.Close()
}

func toString(v any) string {
	s, _ := v.(string)
	return s
}
