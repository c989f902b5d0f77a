// Package metrics provides Prometheus instrumentation for the analytics service.
package metrics

import (
	"bufio"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// DashboardRenders counts rendered pages, partitioned by view mode.
	DashboardRenders = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cot_dashboard_renders_total",
		Help: "Total number of dashboard pages rendered",
	}, []string{"view"})

	// RenderErrors counts pages that ended in a blocking error.
	RenderErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cot_dashboard_render_errors_total",
		Help: "Dashboard renders that produced an error page",
	}, []string{"kind"})

	// FeedbackSubmissions counts submit attempts by outcome:
	// invalid, failed, succeeded.
	FeedbackSubmissions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cot_feedback_submissions_total",
		Help: "Feedback submit attempts by outcome",
	}, []string{"outcome"})

	// FeedbackStoreLatency tracks remote store insert latency.
	FeedbackStoreLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "cot_feedback_store_latency_seconds",
		Help:    "Feedback store insert latency in seconds",
		Buckets: prometheus.DefBuckets,
	})

	// MarketsLoaded is the size of the market catalog loaded at startup.
	MarketsLoaded = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "cot_markets_loaded",
		Help: "Number of market records available for selection",
	})

	// Sessions tracks connected interactive sessions.
	Sessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "cot_websocket_sessions",
		Help: "Number of connected WebSocket sessions",
	})

	// HTTPRequestsTotal counts HTTP requests by method, path, and status.
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cot_http_requests_total",
		Help: "Total HTTP requests",
	}, []string{"method", "path", "status"})

	// HTTPRequestDuration tracks request duration by method and path.
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "cot_http_request_duration_seconds",
		Help:    "HTTP request duration in seconds",
		Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
	}, []string{"method", "path"})
)

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware returns an HTTP middleware that records request metrics.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &statusWriter{ResponseWriter: w, status: 200}
		next.ServeHTTP(wrapped, r)
		duration := time.Since(start).Seconds()

		// Route pattern keeps the path label low-cardinality.
		path := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				path = pattern
			}
		}
		HTTPRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(wrapped.status)).Inc()
		HTTPRequestDuration.WithLabelValues(r.Method, path).Observe(duration)
	})
}

// statusWriter wraps http.ResponseWriter to capture the status code.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

// Hijack lets the WebSocket upgrade take over the connection.
func (w *statusWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("metrics: response writer does not support hijacking")
	}
	return h.Hijack()
}
