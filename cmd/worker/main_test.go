package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"influence-explainer/internal/app"
	"influence-explainer/internal/explainer"
	"influence-explainer/internal/llm"
	"influence-explainer/internal/metrics"
	"influence-explainer/internal/queue"
	"influence-explainer/internal/store"
)

func newTestDeps(t *testing.T, st store.Store, l *llm.MockClient) app.Deps {
	t.Helper()
	exp, err := explainer.New(explainer.Config{
		TaskDescription: "predict churn",
		Predictors: []explainer.Predictor{
			{Name: "age", Description: "customer age"},
			{Name: "tenure", Description: "months as customer"},
		},
		Generate: l.Complete,
	})
	require.NoError(t, err)
	return app.Deps{
		Store:     st,
		Explainer: exp,
		Metrics:   metrics.New(),
		Log:       slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func TestHandleExplain(t *testing.T) {
	recID := uuid.New()
	pending := store.Record{
		ID:         recID,
		Status:     store.StatusPending,
		Influences: map[string]float64{"age": 0.42, "tenure": -0.05},
	}

	tests := []struct {
		name    string
		task    queue.Task
		setup   func(*store.MockStore, *llm.MockClient)
		wantErr bool
	}{
		{
			name: "successful explanation is saved",
			task: queue.Task{MaxAttempts: 3},
			setup: func(s *store.MockStore, l *llm.MockClient) {
				s.On("GetExplanation", mock.Anything, recID).Return(pending, nil).Once()
				l.On("Complete", mock.Anything, mock.Anything).
					Return(" Older customers churn less.\n", nil).Once()
				s.On("CompleteExplanation", mock.Anything, recID, "Older customers churn less.").
					Return(nil).Once()
			},
		},
		{
			name: "missing record is skipped",
			task: queue.Task{MaxAttempts: 3},
			setup: func(s *store.MockStore, l *llm.MockClient) {
				s.On("GetExplanation", mock.Anything, recID).Return(store.Record{}, store.ErrNotFound).Once()
			},
		},
		{
			name: "store load failure is retried",
			task: queue.Task{MaxAttempts: 3},
			setup: func(s *store.MockStore, l *llm.MockClient) {
				s.On("GetExplanation", mock.Anything, recID).Return(store.Record{}, errors.New("database error")).Once()
			},
			wantErr: true,
		},
		{
			name: "already processed record is skipped",
			task: queue.Task{MaxAttempts: 3},
			setup: func(s *store.MockStore, l *llm.MockClient) {
				s.On("GetExplanation", mock.Anything, recID).
					Return(store.Record{ID: recID, Status: store.StatusReady}, nil).Once()
			},
		},
		{
			name: "unknown predictor fails without retry",
			task: queue.Task{MaxAttempts: 3},
			setup: func(s *store.MockStore, l *llm.MockClient) {
				s.On("GetExplanation", mock.Anything, recID).Return(store.Record{
					ID:         recID,
					Status:     store.StatusPending,
					Influences: map[string]float64{"income": 1},
				}, nil).Once()
				s.On("FailExplanation", mock.Anything, recID, mock.AnythingOfType("string")).Return(nil).Once()
			},
		},
		{
			name: "generation failure before last attempt is retried",
			task: queue.Task{Attempts: 0, MaxAttempts: 3},
			setup: func(s *store.MockStore, l *llm.MockClient) {
				s.On("GetExplanation", mock.Anything, recID).Return(pending, nil).Once()
				l.On("Complete", mock.Anything, mock.Anything).Return("", errors.New("LLM error")).Once()
			},
			wantErr: true,
		},
		{
			name: "generation failure on last attempt marks record failed",
			task: queue.Task{Attempts: 2, MaxAttempts: 3},
			setup: func(s *store.MockStore, l *llm.MockClient) {
				s.On("GetExplanation", mock.Anything, recID).Return(pending, nil).Once()
				l.On("Complete", mock.Anything, mock.Anything).Return("", errors.New("LLM error")).Once()
				s.On("FailExplanation", mock.Anything, recID, "LLM error").Return(nil).Once()
			},
			wantErr: true,
		},
		{
			name: "save failure is retried",
			task: queue.Task{MaxAttempts: 3},
			setup: func(s *store.MockStore, l *llm.MockClient) {
				s.On("GetExplanation", mock.Anything, recID).Return(pending, nil).Once()
				l.On("Complete", mock.Anything, mock.Anything).Return("ok", nil).Once()
				s.On("CompleteExplanation", mock.Anything, recID, "ok").Return(errors.New("database error")).Once()
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockStore := new(store.MockStore)
			mockLLM := new(llm.MockClient)
			tt.setup(mockStore, mockLLM)

			deps := newTestDeps(t, mockStore, mockLLM)

			err := handleExplain(context.Background(), deps, tt.task, explainTaskPayload{ExplanationID: recID})

			if (err != nil) != tt.wantErr {
				t.Errorf("handleExplain() error = %v, wantErr %v", err, tt.wantErr)
			}
			mockStore.AssertExpectations(t)
			mockLLM.AssertExpectations(t)
		})
	}
}
