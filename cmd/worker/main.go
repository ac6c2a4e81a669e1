package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"influence-explainer/internal/app"
	"influence-explainer/internal/explainer"
	"influence-explainer/internal/httputil"
	"influence-explainer/internal/queue"
	"influence-explainer/internal/store"
)

type explainTaskPayload struct {
	ExplanationID uuid.UUID `json:"explanation_id"`
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Queue redelivery retries failed generations.
	deps, err := app.Build(ctx, app.WithGenerationAttempts(1))
	if err != nil {
		slog.Default().Error("failed to build dependencies", "err", err)
		os.Exit(1)
	}
	defer func() {
		if err := deps.Close(); err != nil {
			deps.Log.Error("failed to release dependencies", "err", err)
		}
	}()
	deps.Log.Info("explain worker starting")

	g, ctx := errgroup.WithContext(ctx)

	// Run queue worker
	g.Go(func() error {
		return deps.Queue.Worker(ctx, queue.TaskTypeExplain, func(ctx context.Context, task queue.Task) error {
			var payload explainTaskPayload
			if err := json.Unmarshal(task.Payload, &payload); err != nil {
				deps.Log.Error("dropping malformed task", "id", task.ID, "err", err)
				return nil
			}
			return handleExplain(ctx, deps, task, payload)
		})
	})

	// Run health check server
	g.Go(func() error {
		return httputil.ServeHealth(ctx, deps.Log, deps.Config.Port, "worker", deps.Metrics.Handler())
	})

	if err := g.Wait(); err != nil {
		deps.Log.Error("explain worker stopped", "err", err)
	}
}

// handleExplain generates the explanation for one stored request. A returned
// error asks the queue to redeliver the task.
func handleExplain(ctx context.Context, deps app.Deps, task queue.Task, payload explainTaskPayload) error {
	log := deps.Log.With("explanation_id", payload.ExplanationID, "attempt", task.Attempts+1)

	rec, err := deps.Store.GetExplanation(ctx, payload.ExplanationID)
	if errors.Is(err, store.ErrNotFound) {
		log.Warn("explanation no longer exists; skipping")
		return nil
	}
	if err != nil {
		return fmt.Errorf("load explanation: %w", err)
	}
	if rec.Status != store.StatusPending {
		log.Info("explanation already processed", "status", rec.Status)
		return nil
	}

	start := time.Now()
	text, err := deps.Explainer.Explain(ctx, rec.Influences)
	deps.Metrics.Observe(start, err)
	switch {
	case errors.Is(err, explainer.ErrInvalidPredictor), errors.Is(err, explainer.ErrMissingValue):
		// Predictors changed since the request was accepted; retrying cannot help.
		log.Warn("explanation rejected", "err", err)
		return deps.Store.FailExplanation(ctx, rec.ID, err.Error())
	case err != nil:
		if task.LastAttempt() {
			if ferr := deps.Store.FailExplanation(ctx, rec.ID, err.Error()); ferr != nil {
				log.Error("failed to mark explanation failed", "err", ferr)
			}
		}
		return fmt.Errorf("generate explanation: %w", err)
	}

	if err := deps.Store.CompleteExplanation(ctx, rec.ID, text); err != nil {
		return fmt.Errorf("save explanation: %w", err)
	}
	log.Info("explanation ready", "duration_ms", time.Since(start).Milliseconds())
	return nil
}
