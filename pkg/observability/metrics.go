// Package observability exposes Prometheus metrics for the HTTP surface
// and the ingestion pipeline.
package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestsTotal tracks total HTTP requests by route and status code.
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"route", "code"},
	)

	// RequestDuration tracks request duration per route.
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ledger_http_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route"},
	)

	// ActiveRequests tracks in-flight requests.
	ActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "ledger_http_active_requests",
			Help: "Number of active HTTP requests",
		},
	)

	// RefreshesTotal counts completed pipeline refreshes by outcome.
	RefreshesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_refreshes_total",
			Help: "Total number of pipeline refresh runs",
		},
		[]string{"outcome"},
	)

	// SnapshotRecords reports the size of the published snapshot.
	SnapshotRecords = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "ledger_snapshot_records",
			Help: "Number of records in the current snapshot",
		},
	)

	// SnapshotInvalidRecords reports invalid records in the snapshot.
	SnapshotInvalidRecords = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "ledger_snapshot_invalid_records",
			Help: "Number of invalid records in the current snapshot",
		},
	)
)

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// Metrics collects request counts, durations and in-flight gauges.
func Metrics() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			route := r.URL.Path

			ActiveRequests.Inc()
			defer ActiveRequests.Dec()

			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)

			RequestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
			RequestsTotal.WithLabelValues(route, strconv.Itoa(rec.status)).Inc()
		})
	}
}
