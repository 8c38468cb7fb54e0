package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds Prometheus counters and gauges for the verbatim daemon.
type Metrics struct {
	registry                *prometheus.Registry
	hypothesesTotal         prometheus.Counter
	hypothesesRejectedTotal *prometheus.CounterVec
	segmentsFinalizedTotal  prometheus.Counter
	segmentsCorrectedTotal  prometheus.Counter
	segmentsClampedTotal    prometheus.Counter
	exportsTotal            *prometheus.CounterVec
	exportErrorsTotal       prometheus.Counter
	requestsTotal           prometheus.Counter
	httpErrorsTotal         prometheus.Counter
	queueDepth              prometheus.Gauge
	activeSubscribers       prometheus.Gauge
	sessionActive           prometheus.Gauge
}

// New creates and registers Prometheus metrics for the daemon.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	hypothesesTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "verbatim_hypotheses_total",
		Help: "Total number of hypothesis events received from the recognition engine",
	})
	hypothesesRejectedTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "verbatim_hypotheses_rejected_total",
		Help: "Total number of hypothesis events dropped, by reason",
	}, []string{"reason"})
	segmentsFinalizedTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "verbatim_segments_finalized_total",
		Help: "Total number of segments finalized",
	})
	segmentsCorrectedTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "verbatim_segments_corrected_total",
		Help: "Total number of corrections applied to finalized segments",
	})
	segmentsClampedTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "verbatim_segments_clamped_total",
		Help: "Total number of finalized segments trimmed to resolve timing overlap",
	})
	exportsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "verbatim_exports_total",
		Help: "Total number of successful exports, by format",
	}, []string{"format"})
	exportErrorsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "verbatim_export_errors_total",
		Help: "Total number of failed exports",
	})
	requestsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "verbatim_http_requests_total",
		Help: "Total number of HTTP requests received",
	})
	httpErrorsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "verbatim_http_errors_total",
		Help: "Total number of HTTP responses with error status (4xx or 5xx)",
	})
	queueDepth := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "verbatim_queue_depth",
		Help: "Hypotheses waiting in the reconciliation queue",
	})
	activeSubscribers := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "verbatim_active_subscribers",
		Help: "Number of attached change subscribers",
	})
	sessionActive := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "verbatim_session_active",
		Help: "1 while a recording session is active, else 0",
	})

	registry.MustRegister(
		hypothesesTotal,
		hypothesesRejectedTotal,
		segmentsFinalizedTotal,
		segmentsCorrectedTotal,
		segmentsClampedTotal,
		exportsTotal,
		exportErrorsTotal,
		requestsTotal,
		httpErrorsTotal,
		queueDepth,
		activeSubscribers,
		sessionActive,
	)

	return &Metrics{
		registry:                registry,
		hypothesesTotal:         hypothesesTotal,
		hypothesesRejectedTotal: hypothesesRejectedTotal,
		segmentsFinalizedTotal:  segmentsFinalizedTotal,
		segmentsCorrectedTotal:  segmentsCorrectedTotal,
		segmentsClampedTotal:    segmentsClampedTotal,
		exportsTotal:            exportsTotal,
		exportErrorsTotal:       exportErrorsTotal,
		requestsTotal:           requestsTotal,
		httpErrorsTotal:         httpErrorsTotal,
		queueDepth:              queueDepth,
		activeSubscribers:       activeSubscribers,
		sessionActive:           sessionActive,
	}
}

// IncHypotheses increments the received hypotheses counter.
func (m *Metrics) IncHypotheses() {
	m.hypothesesTotal.Inc()
}

// IncHypothesesRejected increments the rejected hypotheses counter for reason.
func (m *Metrics) IncHypothesesRejected(reason string) {
	m.hypothesesRejectedTotal.WithLabelValues(reason).Inc()
}

// IncSegmentsFinalized increments the finalized segments counter.
func (m *Metrics) IncSegmentsFinalized() {
	m.segmentsFinalizedTotal.Inc()
}

// IncSegmentsCorrected increments the corrections counter.
func (m *Metrics) IncSegmentsCorrected() {
	m.segmentsCorrectedTotal.Inc()
}

// IncSegmentsClamped increments the clamped segments counter.
func (m *Metrics) IncSegmentsClamped() {
	m.segmentsClampedTotal.Inc()
}

// IncExports increments the successful exports counter for format.
func (m *Metrics) IncExports(format string) {
	m.exportsTotal.WithLabelValues(format).Inc()
}

// IncExportErrors increments the failed exports counter.
func (m *Metrics) IncExportErrors() {
	m.exportErrorsTotal.Inc()
}

// IncRequests increments the total HTTP request counter.
func (m *Metrics) IncRequests() {
	m.requestsTotal.Inc()
}

// IncHTTPErrors increments the HTTP error counter.
func (m *Metrics) IncHTTPErrors() {
	m.httpErrorsTotal.Inc()
}

// SetQueueDepth sets the reconciliation queue depth gauge.
func (m *Metrics) SetQueueDepth(n int) {
	m.queueDepth.Set(float64(n))
}

// SetActiveSubscribers sets the subscriber gauge.
func (m *Metrics) SetActiveSubscribers(n int) {
	m.activeSubscribers.Set(float64(n))
}

// SetSessionActive sets the active-session gauge.
func (m *Metrics) SetSessionActive(active bool) {
	if active {
		m.sessionActive.Set(1)
	} else {
		m.sessionActive.Set(0)
	}
}

// Handler returns an http.Handler that serves Prometheus metrics.
// updateGauges is called before each scrape to refresh gauge values.
func (m *Metrics) Handler(updateGauges func()) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if updateGauges != nil {
			updateGauges()
		}
		promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}).ServeHTTP(w, r)
	})
}
