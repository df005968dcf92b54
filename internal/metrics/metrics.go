// Package metrics exposes the Prometheus collectors shared by the HTTP layer
// and the visit pipeline.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shortener_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "shortener_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"method", "path", "status"},
	)

	// VisitsRecorded counts visits handed to the aggregator.
	VisitsRecorded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "shortener_visits_recorded_total",
		Help: "Visits processed by the aggregator",
	})

	// VisitsDropped counts visits discarded because the buffer was full.
	VisitsDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "shortener_visits_dropped_total",
		Help: "Visits dropped because the collector buffer was full",
	})

	VisitsBot = promauto.NewCounter(prometheus.CounterOpts{
		Name: "shortener_visits_bot_total",
		Help: "Visits skipped because the user agent looked like a bot",
	})

	// UniqueVisitors counts first visits of an IP to a link.
	UniqueVisitors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "shortener_unique_visitors_total",
		Help: "First-time visitors across all links",
	})

	// AggregationFailures counts failed sub-updates by step.
	AggregationFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shortener_aggregation_failures_total",
			Help: "Visit aggregation steps that failed",
		},
		[]string{"step"},
	)

	GeoMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "shortener_geo_misses_total",
		Help: "Visits with no geolocation, including lookups that timed out",
	})
)

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (rw *statusRecorder) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Middleware records request count and latency per route pattern.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapped, r)

		path := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			path = rctx.RoutePattern()
		}
		status := strconv.Itoa(wrapped.statusCode)

		httpRequestsTotal.WithLabelValues(r.Method, path, status).Inc()
		httpRequestDuration.WithLabelValues(r.Method, path, status).Observe(time.Since(start).Seconds())
	})
}
