package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// MockStore is a mock implementation of Store using testify/mock.
type MockStore struct {
	mock.Mock
}

func (m *MockStore) CreateExplanation(ctx context.Context, influences map[string]float64) (Record, error) {
	args := m.Called(ctx, influences)
	return args.Get(0).(Record), args.Error(1)
}

func (m *MockStore) GetExplanation(ctx context.Context, id uuid.UUID) (Record, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(Record), args.Error(1)
}

func (m *MockStore) ListExplanations(ctx context.Context, limit int) ([]Record, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]Record), args.Error(1)
}

func (m *MockStore) CompleteExplanation(ctx context.Context, id uuid.UUID, explanation string) error {
	args := m.Called(ctx, id, explanation)
	return args.Error(0)
}

func (m *MockStore) FailExplanation(ctx context.Context, id uuid.UUID, reason string) error {
	args := m.Called(ctx, id, reason)
	return args.Error(0)
}

func (m *MockStore) Close() error {
	args := m.Called()
	return args.Error(0)
}
