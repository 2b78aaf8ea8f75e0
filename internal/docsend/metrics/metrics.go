// Package metrics exposes Prometheus collectors for the send pipeline, the
// verification flow, the rate limiter and the HTTP layer.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aussiebroadwan/docsend/pkg/ratelimit"
)

// Metrics owns its registry so several instances can coexist in tests. A
// nil *Metrics records nothing.
type Metrics struct {
	registry *prometheus.Registry

	httpRequests      *prometheus.CounterVec
	httpDuration      *prometheus.HistogramVec
	sends             *prometheus.CounterVec
	verifications     *prometheus.CounterVec
	rateLimitDecision *prometheus.CounterVec
}

func New(serviceName string) *Metrics {
	constLabels := prometheus.Labels{"service": serviceName}
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		httpRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name:        "http_requests_total",
				Help:        "Total number of HTTP requests.",
				ConstLabels: constLabels,
			},
			[]string{"method", "path", "status"},
		),
		httpDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:        "http_request_duration_seconds",
				Help:        "Duration of HTTP requests.",
				Buckets:     prometheus.DefBuckets,
				ConstLabels: constLabels,
			},
			[]string{"method", "path"},
		),
		sends: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name:        "docsend_documents_sent_total",
				Help:        "Send pipeline runs by document type and result code.",
				ConstLabels: constLabels,
			},
			[]string{"type", "result"},
		),
		verifications: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name:        "docsend_sender_verifications_total",
				Help:        "Verification link redemptions by outcome.",
				ConstLabels: constLabels,
			},
			[]string{"outcome"},
		),
		rateLimitDecision: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name:        "docsend_ratelimit_decisions_total",
				Help:        "Rate limit decisions by scope, result and backend.",
				ConstLabels: constLabels,
			},
			[]string{"scope", "result", "backend"},
		),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpRequests,
		m.httpDuration,
		m.sends,
		m.verifications,
		m.rateLimitDecision,
	)
	return m
}

// Registry is exposed for tests.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) SendFinished(docType, result string) {
	if m == nil {
		return
	}
	if docType == "" {
		docType = "unknown"
	}
	m.sends.WithLabelValues(docType, result).Inc()
}

func (m *Metrics) VerificationFinished(outcome string) {
	if m == nil {
		return
	}
	m.verifications.WithLabelValues(outcome).Inc()
}

// ObserveRateLimit matches ratelimit.Observer.
func (m *Metrics) ObserveRateLimit(scope string, d ratelimit.Decision) {
	if m == nil {
		return
	}
	result := "allowed"
	if !d.Allowed {
		result = "limited"
	}
	m.rateLimitDecision.WithLabelValues(scope, result, string(d.Backend)).Inc()
}

// Middleware counts and times requests. The path label is the matched
// route pattern, never the raw URL.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)

		path := r.Pattern
		if path == "" {
			path = "unmatched"
		}
		m.httpRequests.WithLabelValues(r.Method, path, strconv.Itoa(sw.status)).Inc()
		m.httpDuration.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())
	})
}

type statusWriter struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (w *statusWriter) WriteHeader(code int) {
	if !w.wroteHeader {
		w.status = code
		w.wroteHeader = true
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Unwrap() http.ResponseWriter { return w.ResponseWriter }
