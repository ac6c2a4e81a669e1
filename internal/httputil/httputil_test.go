package httputil

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

var discardLog = slog.New(slog.NewTextHandler(io.Discard, nil))

type sample struct {
	Influences map[string]float64 `json:"influences" validate:"required,min=1"`
}

func TestValidationError(t *testing.T) {
	err := Validator.Struct(&sample{})
	require.Error(t, err)

	w := httptest.NewRecorder()
	ValidationError(discardLog, w, err)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "validation failed", body["error"])
	assert.Equal(t, []any{"influences: failed required"}, body["fields"])
}

func TestValidationErrorNonValidator(t *testing.T) {
	w := httptest.NewRecorder()
	ValidationError(discardLog, w, errors.New("boom"))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestFailDefaultsTo500(t *testing.T) {
	w := httptest.NewRecorder()
	Fail(discardLog, w, "llm failed", errors.New("x"), 0)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"error":"llm failed"}`, w.Body.String())
}

func TestRouterRecoversPanics(t *testing.T) {
	r := NewRouter(discardLog)
	r.Get("/panic", func(http.ResponseWriter, *http.Request) { panic("boom") })
	r.Get("/healthz", HealthHandler(discardLog))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/panic", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", w.Body.String())
}

func TestServeHealthStopsOnCancel(t *testing.T) {
	parent, cancel := context.WithCancel(context.Background())
	g, ctx := errgroup.WithContext(parent)
	g.Go(func() error {
		<-ctx.Done()
		return nil
	})
	g.Go(func() error {
		return ServeHealth(ctx, discardLog, 0, "worker", nil)
	})

	time.Sleep(50 * time.Millisecond)
	cancel()

	done := make(chan error, 1)
	go func() { done <- g.Wait() }()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("group still running after cancellation")
	}
}

func TestServeReturnsListenError(t *testing.T) {
	srv := &http.Server{Addr: "bad-address", Handler: http.NotFoundHandler()}
	err := Serve(context.Background(), discardLog, srv)
	assert.Error(t, err)
}

func TestServeAlreadyCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	srv := &http.Server{Addr: "127.0.0.1:0", Handler: http.NotFoundHandler()}
	assert.NoError(t, Serve(ctx, discardLog, srv))
}
