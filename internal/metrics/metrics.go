// Package metrics exposes Prometheus instrumentation for the catalog
// service. All collectors are registered with the default registry via
// promauto at package init; Handler serves them at GET /metrics along
// with the standard Go runtime and process collectors.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// HTTPRequests counts handled HTTP requests by method, route and status.
var HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "ludex_http_requests_total",
	Help: "Total HTTP requests handled.",
}, []string{"method", "path", "status"})

// HTTPDuration tracks HTTP request latency.
var HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "ludex_http_request_duration_seconds",
	Help:    "HTTP request latency in seconds.",
	Buckets: prometheus.DefBuckets,
}, []string{"method", "path"})

// CloneRuns counts clone attempts per mirrored endpoint.
var CloneRuns = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "ludex_clone_runs_total",
	Help: "Collection clone attempts by endpoint and result.",
}, []string{"endpoint", "result"})

// CloneDuration tracks how long a full collection clone takes. Clones page
// through entire upstream collections, so the buckets run into minutes.
var CloneDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "ludex_clone_duration_seconds",
	Help:    "Wall-clock duration of a full collection clone.",
	Buckets: []float64{1, 5, 15, 60, 300, 900, 1800, 3600},
}, []string{"endpoint"})

// CatalogDocuments is the local document count per mirrored endpoint,
// refreshed after each clone cycle.
var CatalogDocuments = promauto.NewGaugeVec(prometheus.GaugeOpts{
	Name: "ludex_catalog_documents",
	Help: "Documents held locally per mirrored endpoint.",
}, []string{"endpoint"})

// MatchRequests counts metadata match outcomes.
var MatchRequests = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "ludex_match_requests_total",
	Help: "Metadata match requests by outcome.",
}, []string{"outcome"})

// Match outcome label values.
const (
	MatchOutcomeMatched   = "matched"
	MatchOutcomeUnmatched = "unmatched"
	MatchOutcomeExternal  = "external"
)

// WebhookEvents counts webhook deliveries by entity and result.
var WebhookEvents = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "ludex_webhook_events_total",
	Help: "Webhook deliveries by entity and result.",
}, []string{"entity", "result"})

// Handler returns the Prometheus scrape handler. Mount it at GET /metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware records request counts and latency for every routed request.
// The path label uses the chi route pattern so parameterized routes stay
// one time series regardless of the concrete URL.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rw, r)

		path := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				path = pattern
			}
		}
		HTTPRequests.WithLabelValues(r.Method, path, strconv.Itoa(rw.status)).Inc()
		HTTPDuration.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())
	})
}

// responseWriter captures the status code written by the handler chain.
type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}
