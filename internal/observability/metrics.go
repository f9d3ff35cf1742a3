package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the service's Prometheus collectors on a private registry.
// All methods are safe on a nil receiver so tests can run without metrics.
type Metrics struct {
	registry *prometheus.Registry

	httpRequestsTotal    *prometheus.CounterVec
	httpRequestDuration  *prometheus.HistogramVec
	modelInvocations     *prometheus.CounterVec
	modelDuration        *prometheus.HistogramVec
	modelFallbacks       prometheus.Counter
	shortClipSkips       prometheus.Counter
	normalizerDegraded   *prometheus.CounterVec
	analysesStoredTotal  prometheus.Counter
	counterWriteFailures prometheus.Counter
}

func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		httpRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cough_http_requests_total",
				Help: "Total number of HTTP requests handled.",
			},
			[]string{"route", "method", "status"},
		),
		httpRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "cough_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"route", "method", "status"},
		),
		modelInvocations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cough_model_invocations_total",
				Help: "Generative model invocations by tier and outcome.",
			},
			[]string{"tier", "status"},
		),
		modelDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "cough_model_invocation_duration_seconds",
				Help:    "Generative model invocation duration in seconds.",
				Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 600},
			},
			[]string{"tier", "status"},
		),
		modelFallbacks: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "cough_model_fallbacks_total",
				Help: "Number of analyses that fell back to the secondary model.",
			},
		),
		shortClipSkips: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "cough_short_clip_skips_total",
				Help: "Number of analyses answered by the short-clip fast path without a model call.",
			},
		),
		normalizerDegraded: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cough_normalizer_degraded_total",
				Help: "Model replies that required degraded extraction, by mode.",
			},
			[]string{"mode"},
		),
		analysesStoredTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "cough_analyses_stored_total",
				Help: "Analysis records durably written.",
			},
		),
		counterWriteFailures: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "cough_profile_counter_failures_total",
				Help: "Best-effort profile counter updates that failed.",
			},
		),
	}

	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpRequestsTotal,
		m.httpRequestDuration,
		m.modelInvocations,
		m.modelDuration,
		m.modelFallbacks,
		m.shortClipSkips,
		m.normalizerDegraded,
		m.analysesStoredTotal,
		m.counterWriteFailures,
	)

	return m
}

// Handler returns the /metrics endpoint handler.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveRequest(route, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	code := strconv.Itoa(status)
	m.httpRequestsTotal.WithLabelValues(route, method, code).Inc()
	m.httpRequestDuration.WithLabelValues(route, method, code).Observe(duration.Seconds())
}

func (m *Metrics) ObserveModelInvocation(tier, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.modelInvocations.WithLabelValues(tier, status).Inc()
	m.modelDuration.WithLabelValues(tier, status).Observe(duration.Seconds())
}

func (m *Metrics) IncModelFallback() {
	if m == nil {
		return
	}
	m.modelFallbacks.Inc()
}

func (m *Metrics) IncShortClipSkip() {
	if m == nil {
		return
	}
	m.shortClipSkips.Inc()
}

// IncNormalizerDegraded records a reply that could not be taken verbatim.
// Mode is "keyword" for the pattern-matching fallback or "no_cough" for the
// canonical no-cough mapping.
func (m *Metrics) IncNormalizerDegraded(mode string) {
	if m == nil {
		return
	}
	m.normalizerDegraded.WithLabelValues(mode).Inc()
}

func (m *Metrics) IncAnalysisStored() {
	if m == nil {
		return
	}
	m.analysesStoredTotal.Inc()
}

func (m *Metrics) IncCounterWriteFailure() {
	if m == nil {
		return
	}
	m.counterWriteFailures.Inc()
}
