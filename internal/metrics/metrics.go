// Package metrics provides Prometheus metrics for the Tutorly server.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "tutorly"

// Metrics holds all Prometheus metrics on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	// HTTP request metrics
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge

	// Tutoring metrics
	RepliesTotal       *prometheus.CounterVec
	RateLimitedTotal   prometheus.Counter
	ImageUploadsTotal  *prometheus.CounterVec
	ConversationLogged *prometheus.CounterVec

	// Gemini metrics
	GenerationsTotal   *prometheus.CounterVec
	GenerationDuration *prometheus.HistogramVec
}

// New creates all metrics on a fresh registry together with the Go and
// process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	m := &Metrics{registry: reg}

	m.HTTPRequestsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	m.HTTPRequestDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	m.HTTPRequestsInFlight = factory.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "http_requests_in_flight",
			Help:      "Number of HTTP requests currently being served",
		},
	)

	m.RepliesTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tutor_replies_total",
			Help:      "Tutor replies by subject, source and failure kind",
		},
		[]string{"subject", "source", "failure"},
	)

	m.RateLimitedTotal = factory.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tutor_rate_limited_total",
			Help:      "Tutoring requests rejected by the per-student rate limit",
		},
	)

	m.ImageUploadsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tutor_image_uploads_total",
			Help:      "Image uploads by result",
		},
		[]string{"result"},
	)

	m.ConversationLogged = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "conversation_log_events_total",
			Help:      "Conversation log events by result",
		},
		[]string{"result"},
	)

	m.GenerationsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "gemini_requests_total",
			Help:      "Gemini generateContent calls by outcome",
		},
		[]string{"outcome"},
	)

	m.GenerationDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "gemini_request_duration_seconds",
			Help:      "Duration of Gemini generateContent calls in seconds",
			Buckets:   []float64{.1, .25, .5, 1, 2, 4, 8, 15, 30},
		},
		[]string{"outcome"},
	)

	return m
}

// Registry exposes the underlying registry for tests and custom collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveReply records a tutor reply.
func (m *Metrics) ObserveReply(subject, source, failure string) {
	m.RepliesTotal.WithLabelValues(subject, source, failure).Inc()
}

// ObserveGeneration records a Gemini call.
func (m *Metrics) ObserveGeneration(outcome string, elapsed time.Duration) {
	m.GenerationsTotal.WithLabelValues(outcome).Inc()
	m.GenerationDuration.WithLabelValues(outcome).Observe(elapsed.Seconds())
}

// ObserveRateLimited records a rejected tutoring request.
func (m *Metrics) ObserveRateLimited() {
	m.RateLimitedTotal.Inc()
}

// ObserveImageUpload records an image upload outcome such as "accepted"
// or "unsupported".
func (m *Metrics) ObserveImageUpload(result string) {
	m.ImageUploadsTotal.WithLabelValues(result).Inc()
}

// ObserveConversationLog records whether a log event was queued or dropped.
func (m *Metrics) ObserveConversationLog(result string) {
	m.ConversationLogged.WithLabelValues(result).Inc()
}

// RecordHTTPRequest records a served HTTP request.
func (m *Metrics) RecordHTTPRequest(method, route string, status int, elapsed time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// RequestStarted increments the in-flight gauge.
func (m *Metrics) RequestStarted() {
	m.HTTPRequestsInFlight.Inc()
}

// RequestFinished decrements the in-flight gauge.
func (m *Metrics) RequestFinished() {
	m.HTTPRequestsInFlight.Dec()
}
