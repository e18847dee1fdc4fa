package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics collects Prometheus metrics for the console.
type Metrics struct {
	registry             *prometheus.Registry
	handler              http.Handler
	requestsTotal        *prometheus.CounterVec
	requestDuration      *prometheus.HistogramVec
	permissionDenied     *prometheus.CounterVec
	impersonationStarted prometheus.Counter
	impersonationStopped prometheus.Counter
	jobsTotal            *prometheus.CounterVec
}

// NewMetrics initializes the registry and the base metric set.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "fleetdesk_http_requests_total",
		Help: "HTTP requests by route and status code.",
	}, []string{"route", "code"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "fleetdesk_http_request_duration_seconds",
		Help:    "HTTP request duration per route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})
	denied := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "fleetdesk_permission_denied_total",
		Help: "Authorization denials by route.",
	}, []string{"route"})
	started := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "fleetdesk_impersonation_started_total",
		Help: "Impersonation sessions started.",
	})
	stopped := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "fleetdesk_impersonation_stopped_total",
		Help: "Impersonation sessions stopped.",
	})
	jobs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "fleetdesk_jobs_total",
		Help: "Background job executions by task and outcome.",
	}, []string{"task", "outcome"})
	registry.MustRegister(requests, duration, denied, started, stopped, jobs)
	return &Metrics{
		registry:             registry,
		handler:              promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestsTotal:        requests,
		requestDuration:      duration,
		permissionDenied:     denied,
		impersonationStarted: started,
		impersonationStopped: stopped,
		jobsTotal:            jobs,
	}
}

// Handler returns the http.Handler for the /metrics endpoint.
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

// IncPermissionDenied counts an authorization denial on the given route.
func (m *Metrics) IncPermissionDenied(route string) {
	if m == nil {
		return
	}
	if route == "" {
		route = "unknown"
	}
	m.permissionDenied.WithLabelValues(route).Inc()
}

// IncImpersonationStarted counts an impersonation start.
func (m *Metrics) IncImpersonationStarted() {
	if m == nil {
		return
	}
	m.impersonationStarted.Inc()
}

// IncImpersonationStopped counts an impersonation stop.
func (m *Metrics) IncImpersonationStopped() {
	if m == nil {
		return
	}
	m.impersonationStopped.Inc()
}

// RegisterOpenImpersonations exposes fleetdesk_impersonation_open_sessions as
// a gauge sampled at scrape time. The count comes from the store, so it stays
// correct across restarts and when another process closes a record.
func (m *Metrics) RegisterOpenImpersonations(count func() float64) {
	if m == nil || count == nil {
		return
	}
	m.registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "fleetdesk_impersonation_open_sessions",
		Help: "Impersonation records currently open in the store.",
	}, count))
}

// IncJob counts one background job execution.
func (m *Metrics) IncJob(task, outcome string) {
	if m == nil {
		return
	}
	m.jobsTotal.WithLabelValues(task, outcome).Inc()
}

// Registerer exposes the registry for custom metric registration.
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
