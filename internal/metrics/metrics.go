package metrics

import (
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"influence-explainer/internal/explainer"
)

const (
	OutcomeOK              = "ok"
	OutcomeInvalid         = "invalid"
	OutcomeGenerationError = "generation_error"
)

// Metrics records explanation outcomes on its own registry.
type Metrics struct {
	registry     *prometheus.Registry
	explanations *prometheus.CounterVec
	duration     prometheus.Histogram
}

func New() *Metrics {
	explanations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "explanations_total",
		Help: "Explanation requests by outcome.",
	}, []string{"outcome"})
	duration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "explanation_duration_seconds",
		Help:    "Time spent producing an explanation, generation included.",
		Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
	})
	reg := prometheus.NewRegistry()
	reg.MustRegister(explanations, duration)
	return &Metrics{registry: reg, explanations: explanations, duration: duration}
}

// Observe records one explanation attempt that started at start and ended with err.
func (m *Metrics) Observe(start time.Time, err error) {
	m.duration.Observe(time.Since(start).Seconds())
	m.explanations.WithLabelValues(Outcome(err)).Inc()
}

// Outcome classifies an Explain error.
func Outcome(err error) string {
	switch {
	case err == nil:
		return OutcomeOK
	case errors.Is(err, explainer.ErrInvalidPredictor), errors.Is(err, explainer.ErrMissingValue):
		return OutcomeInvalid
	default:
		return OutcomeGenerationError
	}
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
