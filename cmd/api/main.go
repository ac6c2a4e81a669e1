package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"influence-explainer/internal/app"
	"influence-explainer/internal/explainer"
	"influence-explainer/internal/httputil"
	"influence-explainer/internal/queue"
	"influence-explainer/internal/store"
)

type explainRequest struct {
	Influences map[string]float64 `json:"influences" validate:"required,min=1"`
}

type explainTaskPayload struct {
	ExplanationID uuid.UUID `json:"explanation_id"`
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	deps, err := app.Build(ctx)
	if err != nil {
		slog.Default().Error("failed to build dependencies", "err", err)
		os.Exit(1)
	}
	defer func() {
		if err := deps.Close(); err != nil {
			deps.Log.Error("failed to release dependencies", "err", err)
		}
	}()

	r := httputil.NewRouter(deps.Log)
	routes(r, deps)

	srv := &http.Server{Addr: fmt.Sprintf(":%d", deps.Config.Port), Handler: r}
	deps.Log.Info("explainer api listening", "addr", srv.Addr)
	if err := httputil.Serve(ctx, deps.Log, srv); err != nil {
		deps.Log.Error("server error", "err", err)
	}
}

func routes(r chi.Router, deps app.Deps) {
	r.Post("/api/explain", explainHandler(deps))
	r.Post("/api/prompt", promptHandler(deps))
	r.Post("/api/explanations", submitHandler(deps))
	r.Get("/api/explanations", listHandler(deps))
	r.Get("/api/explanations/{id}", getHandler(deps))
	r.Get("/api/predictors", predictorsHandler(deps))
	r.Get("/healthz", httputil.HealthHandler(deps.Log))
	r.Handle("/metrics", deps.Metrics.Handler())
}

// decodeRequest writes the error response itself and reports whether the
// handler may continue.
func decodeRequest(deps app.Deps, w http.ResponseWriter, r *http.Request) (explainRequest, bool) {
	var req explainRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Fail(deps.Log, w, "invalid payload", err, http.StatusBadRequest)
		return req, false
	}
	if err := httputil.Validator.Struct(&req); err != nil {
		httputil.ValidationError(deps.Log, w, err)
		return req, false
	}
	return req, true
}

func failExplain(deps app.Deps, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, explainer.ErrInvalidPredictor), errors.Is(err, explainer.ErrMissingValue):
		httputil.Fail(deps.Log, w, err.Error(), err, http.StatusBadRequest)
	case errors.Is(err, context.DeadlineExceeded):
		httputil.Fail(deps.Log, w, "generation timed out", err, http.StatusGatewayTimeout)
	default:
		httputil.Fail(deps.Log, w, "generation failed", err, http.StatusBadGateway)
	}
}

func explainHandler(deps app.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, ok := decodeRequest(deps, w, r)
		if !ok {
			return
		}
		start := time.Now()
		text, err := deps.Explainer.Explain(r.Context(), req.Influences)
		deps.Metrics.Observe(start, err)
		if err != nil {
			failExplain(deps, w, err)
			return
		}
		httputil.WriteJSON(w, http.StatusOK, map[string]any{"explanation": text})
	}
}

func promptHandler(deps app.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, ok := decodeRequest(deps, w, r)
		if !ok {
			return
		}
		prompt, err := deps.Explainer.Prompt(req.Influences)
		if err != nil {
			failExplain(deps, w, err)
			return
		}
		httputil.WriteJSON(w, http.StatusOK, map[string]any{"prompt": prompt})
	}
}

// submitHandler validates up front, persists a pending record and hands it to the worker.
func submitHandler(deps app.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, ok := decodeRequest(deps, w, r)
		if !ok {
			return
		}
		if err := deps.Explainer.Validate(req.Influences); err != nil {
			failExplain(deps, w, err)
			return
		}
		ctx := r.Context()
		rec, err := deps.Store.CreateExplanation(ctx, req.Influences)
		if err != nil {
			httputil.Fail(deps.Log, w, "failed to persist explanation", err, http.StatusInternalServerError)
			return
		}
		log := deps.Log.With("explanation_id", rec.ID)

		body, err := json.Marshal(explainTaskPayload{ExplanationID: rec.ID})
		if err != nil {
			markFailed(ctx, deps, log, rec.ID, err)
			httputil.Fail(log, w, "marshal payload failed", err, http.StatusInternalServerError)
			return
		}
		task := queue.Task{Type: queue.TaskTypeExplain, Payload: body, MaxAttempts: deps.Config.TaskMaxAttempts}
		if err := queue.EnqueueWithRetry(ctx, deps.Queue, task, 3, 200*time.Millisecond); err != nil {
			markFailed(ctx, deps, log, rec.ID, err)
			httputil.Fail(log, w, "failed to enqueue explanation; please retry", err, http.StatusInternalServerError)
			return
		}

		httputil.WriteJSON(w, http.StatusAccepted, map[string]any{
			"id":     rec.ID.String(),
			"status": rec.Status,
		})
	}
}

func markFailed(ctx context.Context, deps app.Deps, log *slog.Logger, id uuid.UUID, cause error) {
	if err := deps.Store.FailExplanation(ctx, id, cause.Error()); err != nil {
		log.Error("failed to mark explanation failed", "err", err)
	}
}

func getHandler(deps app.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			httputil.Fail(deps.Log, w, "invalid explanation id", err, http.StatusBadRequest)
			return
		}
		rec, err := deps.Store.GetExplanation(r.Context(), id)
		if errors.Is(err, store.ErrNotFound) {
			httputil.Fail(deps.Log, w, "explanation not found", err, http.StatusNotFound)
			return
		}
		if err != nil {
			httputil.Fail(deps.Log, w, "failed to load explanation", err, http.StatusInternalServerError)
			return
		}
		httputil.WriteJSON(w, http.StatusOK, rec)
	}
}

func listHandler(deps app.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := 0
		if raw := r.URL.Query().Get("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n < 1 || n > 500 {
				httputil.Fail(deps.Log, w, "limit must be between 1 and 500", err, http.StatusBadRequest)
				return
			}
			limit = n
		}
		recs, err := deps.Store.ListExplanations(r.Context(), limit)
		if err != nil {
			httputil.Fail(deps.Log, w, "failed to list explanations", err, http.StatusInternalServerError)
			return
		}
		httputil.WriteJSON(w, http.StatusOK, map[string]any{"explanations": recs})
	}
}

func predictorsHandler(deps app.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteJSON(w, http.StatusOK, map[string]any{
			"task":            deps.Explainer.TaskDescription(),
			"answer_language": deps.Explainer.AnswerLanguage(),
			"predictors":      deps.Explainer.Predictors(),
		})
	}
}
