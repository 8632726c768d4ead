// Package metrics exposes prometheus instrumentation for the API.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	BuildInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "pointscape_api_build_info",
			Help: "Build information of the Pointscape API",
		},
		[]string{"version", "commit", "date"},
	)

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pointscape_api_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pointscape_api_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "pointscape_api_http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)

	UploadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pointscape_api_uploads_total",
			Help: "Total number of upload requests by declared format and outcome",
		},
		[]string{"format", "status"},
	)

	IngestDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "pointscape_api_ingest_duration_seconds",
			Help:    "Duration of upload parsing in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 14), // 1ms to ~16s
		},
	)

	IngestRows = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "pointscape_api_ingest_rows",
			Help:    "Number of records produced per successful ingestion",
			Buckets: prometheus.ExponentialBuckets(1, 4, 10), // 1 to ~260k
		},
	)

	RegistryCacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pointscape_api_registry_cache_lookups_total",
			Help: "Registry cache lookups by outcome",
		},
		[]string{"result"}, // "hit" or "miss"
	)
)

// Middleware returns a chi middleware that records HTTP metrics.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		HTTPRequestsInFlight.Inc()
		defer HTTPRequestsInFlight.Dec()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		// Use the route pattern if available, otherwise use the path
		path := chi.RouteContext(r.Context()).RoutePattern()
		if path == "" {
			path = r.URL.Path
		}

		HTTPRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(ww.Status())).Inc()
		HTTPRequestDuration.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())
	})
}

// RecordUpload records the outcome of one upload request.
func RecordUpload(format string, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	if format == "" {
		format = "unknown"
	}
	UploadsTotal.WithLabelValues(format, status).Inc()
}

// RecordIngest records parse duration and row count for a successful ingestion.
func RecordIngest(duration time.Duration, rows int) {
	IngestDuration.Observe(duration.Seconds())
	IngestRows.Observe(float64(rows))
}

// RecordCacheLookup records a registry cache lookup outcome.
func RecordCacheLookup(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	RegistryCacheLookups.WithLabelValues(result).Inc()
}
