// Package queue lets a host application enqueue jobs for asynchronous
// execution by a worker process, backed by Redis lists.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/flowforge/engine/internal/schema"
)

const (
	pendingJobsKey   = "flowforge:jobs:pending"
	jobDataKeyPrefix = "flowforge:jobs:data:"
	jobDataTTL       = 24 * time.Hour
)

// Submission is what a host enqueues: a reference to the workflow to run
// and the caller-supplied input values, not the job's full runtime state.
type Submission struct {
	JobID      string                   `json:"job_id"`
	WorkflowID string                   `json:"workflow_id"`
	Inputs     map[string]schema.Value `json:"inputs"`
	CreatedAt  time.Time                `json:"created_at"`
}

// Queue manages the pending-job list in Redis.
type Queue struct {
	client *redis.Client
	logger *slog.Logger
}

// Option configures a Queue via functional options.
type Option func(*Queue)

// WithLogger overrides the Queue's logger.
func WithLogger(l *slog.Logger) Option {
	return func(q *Queue) { q.logger = l }
}

// New builds a Queue around client.
func New(client *redis.Client, opts ...Option) *Queue {
	q := &Queue{client: client}
	for _, opt := range opts {
		opt(q)
	}
	if q.logger == nil {
		q.logger = slog.Default()
	}
	return q
}

// Enqueue assigns s a JobID if it doesn't have one, stores its payload,
// and pushes its ID onto the pending list.
func (q *Queue) Enqueue(ctx context.Context, s Submission) (string, error) {
	if s.JobID == "" {
		s.JobID = uuid.New().String()
	}
	s.CreatedAt = time.Now().UTC()

	data, err := json.Marshal(s)
	if err != nil {
		return "", fmt.Errorf("queue: marshal submission: %w", err)
	}

	dataKey := jobDataKeyPrefix + s.JobID
	if err := q.client.Set(ctx, dataKey, data, jobDataTTL).Err(); err != nil {
		return "", fmt.Errorf("queue: store submission: %w", err)
	}
	if err := q.client.LPush(ctx, pendingJobsKey, s.JobID).Err(); err != nil {
		return "", fmt.Errorf("queue: push job id: %w", err)
	}

	q.logger.Info("job enqueued", "job_id", s.JobID, "workflow_id", s.WorkflowID)
	return s.JobID, nil
}

// Dequeue blocks up to timeout for a pending submission. A nil Submission
// with a nil error means the wait timed out with nothing queued.
func (q *Queue) Dequeue(ctx context.Context, timeout time.Duration) (*Submission, error) {
	result, err := q.client.BRPop(ctx, timeout, pendingJobsKey).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("queue: dequeue: %w", err)
	}
	if len(result) < 2 {
		return nil, nil
	}

	jobID := result[1]
	dataKey := jobDataKeyPrefix + jobID
	data, err := q.client.Get(ctx, dataKey).Bytes()
	if err != nil {
		return nil, fmt.Errorf("queue: load submission %s: %w", jobID, err)
	}

	var s Submission
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("queue: unmarshal submission %s: %w", jobID, err)
	}

	if err := q.client.Del(ctx, dataKey).Err(); err != nil {
		q.logger.Warn("failed to delete dequeued job payload", "job_id", jobID, "error", err)
	}

	return &s, nil
}

// Length returns the number of submissions waiting to be dequeued.
func (q *Queue) Length(ctx context.Context) (int64, error) {
	return q.client.LLen(ctx, pendingJobsKey).Result()
}
