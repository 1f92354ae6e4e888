package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Ingestion results recorded by ObserveIngestion
const (
	ResultAccepted      = "accepted"
	ResultInvalid       = "invalid"
	ResultUnknownDevice = "unknown_device"
	ResultError         = "error"
)

// Metrics owns the collectors of the service and the registry they live in.
type Metrics struct {
	registry *prometheus.Registry

	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	SamplesIngested     *prometheus.CounterVec
	AdminOperations     *prometheus.CounterVec
}

// New registers every collector under prefix on a fresh registry.
func New(prefix string) *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		registry: reg,
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: prefix + "_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    prefix + "_http_request_duration_seconds",
				Help:    "Duration of HTTP requests in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path", "status"},
		),
		SamplesIngested: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: prefix + "_samples_ingested_total",
				Help: "Telemetry reports received, by outcome",
			},
			[]string{"result"},
		),
		AdminOperations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: prefix + "_admin_operations_total",
				Help: "Administrative operations, by entity and operation",
			},
			[]string{"entity", "operation"},
		),
	}

	reg.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.SamplesIngested,
		m.AdminOperations,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return m
}

// Registry exposes the underlying registry, mostly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveIngestion counts one telemetry report.
func (m *Metrics) ObserveIngestion(result string) {
	m.SamplesIngested.WithLabelValues(result).Inc()
}

// ObserveAdmin counts one administrative operation.
func (m *Metrics) ObserveAdmin(entity, operation string) {
	m.AdminOperations.WithLabelValues(entity, operation).Inc()
}

// Middleware records request count and latency. The path label is the
// matched route template so per-device URLs do not explode cardinality.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		path := "unmatched"
		if route := mux.CurrentRoute(r); route != nil {
			if tmpl, err := route.GetPathTemplate(); err == nil {
				path = tmpl
			}
		}
		status := strconv.Itoa(rec.status)

		m.HTTPRequestsTotal.WithLabelValues(r.Method, path, status).Inc()
		m.HTTPRequestDuration.WithLabelValues(r.Method, path, status).Observe(time.Since(start).Seconds())
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}
