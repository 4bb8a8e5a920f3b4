// Package metrics holds the process-wide Prometheus collectors.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// StoreMutations counts store operations by name and outcome (ok, error).
	StoreMutations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "opsmap_store_mutations_total",
			Help: "Total number of workspace store mutations",
		},
		[]string{"op", "outcome"},
	)

	PersistFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "opsmap_store_persist_failures_total",
			Help: "Total number of failed local state writes",
		},
	)

	syncCyclesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "opsmap_sync_cycles_total",
			Help: "Total number of synchronization cycles",
		},
		[]string{"outcome"},
	)

	syncDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "opsmap_sync_duration_seconds",
			Help:    "Synchronization cycle duration in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		},
	)

	syncUploadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "opsmap_sync_uploads_total",
			Help: "Total number of workspace uploads after a merge",
		},
		[]string{"outcome"},
	)

	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "opsmap_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "opsmap_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	assistRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "opsmap_assist_requests_total",
			Help: "Total number of generation requests",
		},
		[]string{"action", "outcome"},
	)
)

// RecordSync records one synchronization cycle.
func RecordSync(outcome string, duration time.Duration) {
	syncCyclesTotal.WithLabelValues(outcome).Inc()
	syncDuration.Observe(duration.Seconds())
}

func RecordUpload(outcome string) {
	syncUploadsTotal.WithLabelValues(outcome).Inc()
}

func RecordHTTPRequest(method, endpoint string, status int, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, endpoint, strconv.Itoa(status)).Inc()
	httpRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

func RecordAssist(action, outcome string) {
	assistRequestsTotal.WithLabelValues(action, outcome).Inc()
}

// SyncCycles exposes the cycle counter for a given outcome.
func SyncCycles(outcome string) prometheus.Counter {
	return syncCyclesTotal.WithLabelValues(outcome)
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
