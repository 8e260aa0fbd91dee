// Package metrics provides Prometheus instrumentation for sheetdb.
//
// All collectors are registered with the default registry on package load,
// so any process that exposes promhttp.Handler() gets them for free:
//
//	// Record a remote call
//	timer := metrics.NewTimer()
//	resp, err := call()
//	metrics.RequestDuration.WithLabelValues("batch_get").Observe(timer.Seconds())
//
//	// Count a cache lookup
//	metrics.CacheLookups.WithLabelValues(metrics.ResultHit).Inc()
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Label values shared by the collectors below.
const (
	ResultHit  = "hit"
	ResultMiss = "miss"

	OutcomeSuccess     = "success"
	OutcomeFatal       = "fatal"
	OutcomeExhausted   = "exhausted"
	OutcomeAuthMissing = "auth_missing"
	OutcomeCanceled    = "canceled"
)

var (
	// Requests counts logical remote operations by final outcome.
	// Labels: operation (batch_get, get, append, update, delete_row, metadata), outcome
	//
	// Example:
	//	metrics.Requests.WithLabelValues("append", metrics.OutcomeSuccess).Inc()
	Requests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sheetdb_requests_total",
			Help: "Total number of remote store operations by outcome",
		},
		[]string{"operation", "outcome"},
	)

	// Retries counts attempts beyond the first one.
	Retries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sheetdb_request_retries_total",
			Help: "Total number of retried remote store attempts",
		},
		[]string{"operation", "status"},
	)

	// RequestDuration tracks the wall time of a logical operation, backoff included.
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sheetdb_request_duration_seconds",
			Help:    "Remote store operation latency in seconds, retries included",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 4, 8, 16},
		},
		[]string{"operation"},
	)

	// CacheLookups counts read-cache lookups by result (hit/miss).
	CacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sheetdb_cache_lookups_total",
			Help: "Total number of read cache lookups",
		},
		[]string{"result"},
	)

	// CacheClears counts whole-cache invalidations.
	CacheClears = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sheetdb_cache_clears_total",
			Help: "Total number of whole-cache invalidations",
		},
	)

	// Writes counts successful entity mutations.
	// Labels: operation (append, update, delete)
	Writes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sheetdb_writes_total",
			Help: "Total number of successful entity mutations",
		},
		[]string{"operation"},
	)

	// RowsDecoded counts rows turned into entities.
	RowsDecoded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sheetdb_rows_decoded_total",
			Help: "Total number of rows decoded into entities",
		},
		[]string{"sheet"},
	)
)

// Timer measures elapsed time for a histogram observation.
type Timer struct {
	start time.Time
}

// NewTimer starts a timer.
func NewTimer() Timer {
	return Timer{start: time.Now()}
}

// Seconds returns the elapsed time in seconds.
func (t Timer) Seconds() float64 {
	return time.Since(t.start).Seconds()
}
