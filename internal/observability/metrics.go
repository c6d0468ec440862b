package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics collects the Prometheus metrics for the application.
type Metrics struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	generatedTotal  *prometheus.CounterVec
	mergesTotal     *prometheus.CounterVec
	finderScans     *prometheus.HistogramVec
}

// NewMetrics initialises the registry and the base collectors.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "secledger_http_requests_total",
		Help: "HTTP requests partitioned by route and status code.",
	}, []string{"route", "code"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "secledger_http_request_duration_seconds",
		Help:    "HTTP request duration per route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})
	generated := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "secledger_generated_transactions_total",
		Help: "Ledger transactions produced by the generators, by kind.",
	}, []string{"kind"})
	merges := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "secledger_merges_total",
		Help: "Transaction merge attempts by strategy and outcome.",
	}, []string{"strategy", "outcome"})
	scans := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "secledger_finder_scan_duration_seconds",
		Help:    "Duration of finder scans over the transaction set.",
		Buckets: prometheus.DefBuckets,
	}, []string{"kind"})
	registry.MustRegister(requests, duration, generated, merges, scans)
	return &Metrics{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestsTotal:   requests,
		requestDuration: duration,
		generatedTotal:  generated,
		mergesTotal:     merges,
		finderScans:     scans,
	}
}

// Handler returns the http.Handler serving the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// Middleware records request metrics for every HTTP request.
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

// ObserveGenerated counts one generated transaction of the given kind
// ("buy", "dividend", "stock_split").
func (m *Metrics) ObserveGenerated(kind string) {
	if m == nil {
		return
	}
	m.generatedTotal.WithLabelValues(kind).Inc()
}

// ObserveMerge counts one merge attempt for the given strategy and outcome.
func (m *Metrics) ObserveMerge(strategy, outcome string) {
	if m == nil {
		return
	}
	m.mergesTotal.WithLabelValues(strategy, outcome).Inc()
}

// ObserveFinderScan records the duration of one finder scan.
func (m *Metrics) ObserveFinderScan(kind string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.finderScans.WithLabelValues(kind).Observe(elapsed.Seconds())
}

// Registerer exposes the registry for registering custom collectors.
func (m *Metrics) Registerer() prometheus.Registerer {
	if m == nil {
		return prometheus.DefaultRegisterer
	}
	return m.registry
}

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
