package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/shopmanager/shopmanager/internal/lifecycle"
)

// Metrics collects the Prometheus series exported by the API.
type Metrics struct {
	registry         *prometheus.Registry
	handler          http.Handler
	requestsTotal    *prometheus.CounterVec
	requestDuration  *prometheus.HistogramVec
	stockAdjustments *prometheus.CounterVec
	stockUnits       *prometheus.CounterVec
	archiveFailures  *prometheus.CounterVec
}

// NewMetrics builds a registry with the HTTP and inventory series.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "shopmanager_http_requests_total",
		Help: "HTTP requests by route and status code.",
	}, []string{"route", "code"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "shopmanager_http_request_duration_seconds",
		Help:    "HTTP request duration by route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})
	adjustments := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "shopmanager_stock_adjustments_total",
		Help: "Stock adjustments by entity and reason.",
	}, []string{"entity", "reason"})
	units := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "shopmanager_stock_units_total",
		Help: "Absolute units moved by stock adjustments, by entity and reason.",
	}, []string{"entity", "reason"})
	archives := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "shopmanager_archive_failures_total",
		Help: "Soft deletes whose archive write failed.",
	}, []string{"entity"})
	registry.MustRegister(requests, duration, adjustments, units, archives,
		collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	return &Metrics{
		registry:         registry,
		handler:          promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestsTotal:    requests,
		requestDuration:  duration,
		stockAdjustments: adjustments,
		stockUnits:       units,
		archiveFailures:  archives,
	}
}

// Handler returns the /metrics handler.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// Middleware records count and latency for every request.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(&recorder, r)
		route := routePattern(r)
		m.requestsTotal.WithLabelValues(route, strconv.Itoa(recorder.status)).Inc()
		m.requestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}

// Registerer exposes the registry for additional collectors.
func (m *Metrics) Registerer() prometheus.Registerer {
	if m == nil {
		return prometheus.DefaultRegisterer
	}
	return m.registry
}

// StockAdjusted implements lifecycle.Observer.
func (m *Metrics) StockAdjusted(entity string, reason lifecycle.Reason, delta int64) {
	if m == nil {
		return
	}
	if delta < 0 {
		delta = -delta
	}
	m.stockAdjustments.WithLabelValues(entity, string(reason)).Inc()
	m.stockUnits.WithLabelValues(entity, string(reason)).Add(float64(delta))
}

// ArchiveFailed implements lifecycle.Observer.
func (m *Metrics) ArchiveFailed(entity string) {
	if m == nil {
		return
	}
	m.archiveFailures.WithLabelValues(entity).Inc()
}

var _ lifecycle.Observer = (*Metrics)(nil)

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func routePattern(r *http.Request) string {
	if routeCtx := chi.RouteContext(r.Context()); routeCtx != nil {
		if pattern := routeCtx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unknown"
}
