package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "mlserver"

var (
	// InferenceDuration tracks model calls by provider, model and operation.
	InferenceDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "inference_duration_seconds",
			Help:      "Model inference duration in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"provider", "model", "operation"},
	)

	InferenceRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "inference_requests_total",
			Help:      "Total number of model inference calls",
		},
		[]string{"provider", "model", "operation", "status"},
	)

	// EmbeddingCacheTotal counts embedding cache lookups, label "result" is "hit" or "miss".
	EmbeddingCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "embedding_cache_total",
			Help:      "Embedding cache lookups by result",
		},
		[]string{"result"},
	)

	CircuitBreakerState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "circuit_breaker_state",
			Help:      "Circuit breaker state (0 closed, 1 half-open, 2 open)",
		},
		[]string{"name"},
	)
)

func init() {
	prometheus.MustRegister(InferenceDuration)
	prometheus.MustRegister(InferenceRequestsTotal)
	prometheus.MustRegister(EmbeddingCacheTotal)
	prometheus.MustRegister(CircuitBreakerState)
}

// ObserveInference records one model call that started at start.
func ObserveInference(provider, model, operation string, start time.Time, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	InferenceRequestsTotal.WithLabelValues(provider, model, operation, status).Inc()
	if err == nil {
		InferenceDuration.WithLabelValues(provider, model, operation).Observe(time.Since(start).Seconds())
	}
}
