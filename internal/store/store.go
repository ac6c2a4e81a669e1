package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusPending Status = "pending"
	StatusReady   Status = "ready"
	StatusFailed  Status = "failed"
)

var ErrNotFound = errors.New("explanation not found")

// Record is one explanation request and, once processed, its result.
type Record struct {
	ID          uuid.UUID          `json:"id"`
	Status      Status             `json:"status"`
	Influences  map[string]float64 `json:"influences"`
	Predictors  []string           `json:"predictors"`
	Explanation string             `json:"explanation,omitempty"`
	Error       string             `json:"error,omitempty"`
	CreatedAt   time.Time          `json:"created_at"`
	UpdatedAt   time.Time          `json:"updated_at"`
}

// Store defines persistence contract; an external DB implementation can replace this.
type Store interface {
	CreateExplanation(ctx context.Context, influences map[string]float64) (Record, error)
	GetExplanation(ctx context.Context, id uuid.UUID) (Record, error)
	ListExplanations(ctx context.Context, limit int) ([]Record, error)
	CompleteExplanation(ctx context.Context, id uuid.UUID, explanation string) error
	FailExplanation(ctx context.Context, id uuid.UUID, reason string) error
	Close() error
}
