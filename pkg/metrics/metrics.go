package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Global collectors, registered on the default registry through promauto.

var (
	// HttpRequestsTotal counts API requests, labeled by method, path, and status code.
	HttpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wikiwalk_http_requests_total",
			Help: "Total number of HTTP requests processed",
		},
		[]string{"method", "path", "status"},
	)

	// HttpRequestDuration measures server response time. A synchronous walk
	// can take tens of seconds, hence the long tail of buckets.
	HttpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "wikiwalk_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		},
		[]string{"method", "path"},
	)

	// RunsTotal counts finished walks by terminal status ("reached",
	// "step_limit_exceeded", "dead_end", "error").
	RunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wikiwalk_runs_total",
			Help: "Total number of walks by outcome",
		},
		[]string{"status"},
	)

	// RunSteps records hops taken per finished walk.
	RunSteps = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "wikiwalk_run_steps",
			Help:    "Hops taken per walk",
			Buckets: []float64{0, 1, 2, 3, 5, 8, 13, 21, 34, 55, 100},
		},
	)

	// RunDuration records wall-clock time per walk.
	RunDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "wikiwalk_run_duration_seconds",
			Help:    "Wall-clock duration of a walk",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 14),
		},
	)

	// CacheLookups counts link cache reads by result ("hit" or "miss").
	CacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wikiwalk_link_cache_lookups_total",
			Help: "Link cache lookups by result",
		},
		[]string{"result"},
	)

	// ProviderFetches counts calls to the link provider by outcome ("ok" or "error").
	ProviderFetches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wikiwalk_provider_fetches_total",
			Help: "Link provider fetches by outcome",
		},
		[]string{"outcome"},
	)

	// EmbedRequests counts embedder calls by outcome.
	EmbedRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wikiwalk_embed_requests_total",
			Help: "Embedder calls by outcome",
		},
		[]string{"outcome"},
	)

	// EmbedTexts counts texts sent to the embedder.
	EmbedTexts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "wikiwalk_embed_texts_total",
			Help: "Texts sent to the embedder",
		},
	)

	// EmbedDuration measures embedder latency per call.
	EmbedDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "wikiwalk_embed_duration_seconds",
			Help:    "Embedder call latency",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
	)
)

// ObserveEmbed records one embedder call of n texts.
func ObserveEmbed(n int, d time.Duration, err error) {
	EmbedDuration.Observe(d.Seconds())
	EmbedTexts.Add(float64(n))
	EmbedRequests.WithLabelValues(outcome(err)).Inc()
}

// ObserveFetch records one link provider call.
func ObserveFetch(err error) {
	ProviderFetches.WithLabelValues(outcome(err)).Inc()
}

// ObserveCache records one link cache read.
func ObserveCache(hit bool) {
	if hit {
		CacheLookups.WithLabelValues("hit").Inc()
		return
	}
	CacheLookups.WithLabelValues("miss").Inc()
}

// ObserveRun records a finished walk.
func ObserveRun(status string, steps int, d time.Duration) {
	RunsTotal.WithLabelValues(status).Inc()
	RunSteps.Observe(float64(steps))
	RunDuration.Observe(d.Seconds())
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
