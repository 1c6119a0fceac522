// Package metrics exposes Prometheus instrumentation for the integration
// layer.
package metrics

import (
	"net/url"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/CanAISolutions/canai-intent-build-sub000/internal/events"
	"github.com/CanAISolutions/canai-intent-build-sub000/internal/resilience"
)

var (
	// RequestAttempts counts finished attempts by endpoint and outcome
	// (ok, timeout, status, network, other).
	RequestAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "canai_request_attempts_total",
			Help: "Total number of outbound request attempts",
		},
		[]string{"endpoint", "outcome"},
	)

	// RequestRetries counts scheduled retries by endpoint.
	RequestRetries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "canai_request_retries_total",
			Help: "Total number of outbound request retries",
		},
		[]string{"endpoint"},
	)

	// RequestLatency tracks attempt latency.
	RequestLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "canai_request_attempt_duration_seconds",
			Help:    "Outbound request attempt latency in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		},
		[]string{"endpoint"},
	)

	// Fallbacks counts operations answered with locally generated content.
	Fallbacks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "canai_fallbacks_total",
			Help: "Total number of fallback responses",
		},
		[]string{"operation"},
	)

	// LogFailures counts swallowed best-effort log writes by channel.
	LogFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "canai_log_failures_total",
			Help: "Total number of failed best-effort log writes",
		},
		[]string{"channel"},
	)
)

// Observer records integration events as Prometheus metrics.
type Observer struct{}

var _ events.Observer = Observer{}

func (Observer) OnAttempt(e events.Attempt) {
	ep := endpointLabel(e.Endpoint)
	RequestAttempts.WithLabelValues(ep, resilience.Kind(e.Err)).Inc()
	RequestLatency.WithLabelValues(ep).Observe(e.Duration.Seconds())
}

func (Observer) OnRetry(e events.Retry) {
	RequestRetries.WithLabelValues(endpointLabel(e.Endpoint)).Inc()
}

func (Observer) OnFallback(e events.Fallback) {
	Fallbacks.WithLabelValues(e.Operation).Inc()
}

func (Observer) OnLogFailure(e events.LogFailure) {
	LogFailures.WithLabelValues(e.Channel).Inc()
}

// endpointLabel keeps only the path so absolute webhook and store URLs do
// not leak hosts or credentials into label values.
func endpointLabel(endpoint string) string {
	u, err := url.Parse(endpoint)
	if err != nil || u.Path == "" {
		return "unknown"
	}
	return u.Path
}
