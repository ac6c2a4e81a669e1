package store

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPredictorNames(t *testing.T) {
	got := predictorNames(map[string]float64{"tenure": 1, "age": 2, "balance": 3})
	assert.Equal(t, []string{"age", "balance", "tenure"}, got)
	assert.Empty(t, predictorNames(nil))
}

// TestPostgresStore runs against a real database when TEST_DB_URL is set.
func TestPostgresStore(t *testing.T) {
	dsn := os.Getenv("TEST_DB_URL")
	if dsn == "" {
		t.Skip("TEST_DB_URL not set")
	}
	s, err := NewPostgres(dsn)
	require.NoError(t, err)
	defer s.Close()
	ctx := context.Background()

	rec, err := s.CreateExplanation(ctx, map[string]float64{"age": 0.42, "tenure": -0.05})
	require.NoError(t, err)
	assert.Equal(t, StatusPending, rec.Status)

	require.NoError(t, s.CompleteExplanation(ctx, rec.ID, "Age (age) dominated."))

	got, err := s.GetExplanation(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusReady, got.Status)
	assert.Equal(t, "Age (age) dominated.", got.Explanation)
	assert.Equal(t, 0.42, got.Influences["age"])
	assert.Equal(t, []string{"age", "tenure"}, got.Predictors)

	list, err := s.ListExplanations(ctx, 10)
	require.NoError(t, err)
	assert.NotEmpty(t, list)

	_, err = s.GetExplanation(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, s.FailExplanation(ctx, uuid.New(), "x"), ErrNotFound)
}
