package queue

import (
	"context"
	"time"

	"github.com/google/uuid"

	"influence-explainer/internal/retry"
)

// TaskType enumerates supported task categories.
type TaskType string

const TaskTypeExplain TaskType = "explain"

// DefaultMaxAttempts applies when a task does not set MaxAttempts.
const DefaultMaxAttempts = 5

// Task represents a unit of work shared between the API and the workers.
type Task struct {
	ID          uuid.UUID
	Type        TaskType
	Payload     []byte
	Attempts    int
	MaxAttempts int
	NotBefore   time.Time
}

// LastAttempt reports whether a failure of this delivery is final.
func (t Task) LastAttempt() bool {
	limit := t.MaxAttempts
	if limit == 0 {
		limit = DefaultMaxAttempts
	}
	return t.Attempts+1 >= limit
}

type Handler func(context.Context, Task) error

// Queue exposes a minimal contract to enqueue and consume tasks.
type Queue interface {
	Enqueue(ctx context.Context, task Task) error
	Worker(ctx context.Context, taskType TaskType, handler Handler) error
	// Close flushes pending publishes and releases the connection.
	Close() error
}

// EnqueueWithRetry attempts to enqueue with retries and exponential backoff.
func EnqueueWithRetry(ctx context.Context, q Queue, task Task, attempts int, base time.Duration) error {
	if attempts <= 0 {
		attempts = 1
	}
	for attempt := 0; attempt < attempts; attempt++ {
		if err := q.Enqueue(ctx, task); err == nil {
			return nil
		} else if attempt == attempts-1 {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(retry.ExponentialBackoff(attempt, base)):
		}
	}
	return nil
}
