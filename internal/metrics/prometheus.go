package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains all Prometheus metrics for the tutor service
type Metrics struct {
	// Session metrics
	ActiveSessions  prometheus.Gauge
	SessionsCreated prometheus.Counter
	SessionsDeleted prometheus.Counter

	// Message metrics
	Messages *prometheus.CounterVec

	// Gateway metrics
	GatewayRequests  prometheus.Counter
	GatewaySuccesses prometheus.Counter
	GatewayFailures  prometheus.Counter
	GatewayDuration  prometheus.Histogram

	// Audio metrics
	Recordings      prometheus.Counter
	RecordingLength prometheus.Histogram
	Playbacks       prometheus.Counter

	// Vocabulary metrics
	VocabularySize prometheus.Gauge

	// HTTP API metrics
	HTTPRequests        *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	HTTPErrors          *prometheus.CounterVec
}

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics() *Metrics {
	return &Metrics{
		// Session metrics
		ActiveSessions: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "tutor_sessions",
			Help: "Current number of stored conversation sessions",
		}),
		SessionsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "tutor_sessions_created_total",
			Help: "Total number of sessions created",
		}),
		SessionsDeleted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "tutor_sessions_deleted_total",
			Help: "Total number of sessions deleted",
		}),

		// Message metrics
		Messages: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "tutor_messages_total",
			Help: "Total number of messages appended to sessions",
		}, []string{"role", "kind"}),

		// Gateway metrics
		GatewayRequests: promauto.NewCounter(prometheus.CounterOpts{
			Name: "tutor_gateway_requests_total",
			Help: "Total number of inference gateway requests sent",
		}),
		GatewaySuccesses: promauto.NewCounter(prometheus.CounterOpts{
			Name: "tutor_gateway_successes_total",
			Help: "Total number of successful inference gateway requests",
		}),
		GatewayFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "tutor_gateway_failures_total",
			Help: "Total number of failed inference gateway requests",
		}),
		GatewayDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "tutor_gateway_duration_seconds",
			Help:    "Duration of inference gateway round-trips",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10), // 100ms to ~2 minutes
		}),

		// Audio metrics
		Recordings: promauto.NewCounter(prometheus.CounterOpts{
			Name: "tutor_recordings_total",
			Help: "Total number of finalized microphone recordings",
		}),
		RecordingLength: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "tutor_recording_duration_seconds",
			Help:    "Duration of finalized microphone recordings",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 8), // 0.5s to ~2 minutes
		}),
		Playbacks: promauto.NewCounter(prometheus.CounterOpts{
			Name: "tutor_playbacks_total",
			Help: "Total number of pronunciation playbacks started",
		}),

		// Vocabulary metrics
		VocabularySize: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "tutor_vocabulary_size",
			Help: "Current number of saved vocabulary entries",
		}),

		// HTTP API metrics
		HTTPRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "tutor_http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "endpoint", "status_code"}),
		HTTPRequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "tutor_http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "endpoint"}),
		HTTPErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "tutor_http_errors_total",
			Help: "Total number of HTTP errors",
		}, []string{"method", "endpoint", "error_type"}),
	}
}

// SetActiveSessions sets the current number of stored sessions
func (m *Metrics) SetActiveSessions(count int) {
	m.ActiveSessions.Set(float64(count))
}

// RecordSessionCreated increments the sessions created counter
func (m *Metrics) RecordSessionCreated() {
	m.SessionsCreated.Inc()
}

// RecordSessionDeleted increments the sessions deleted counter
func (m *Metrics) RecordSessionDeleted() {
	m.SessionsDeleted.Inc()
}

// RecordMessage counts an appended message by role and kind
func (m *Metrics) RecordMessage(role, kind string) {
	m.Messages.WithLabelValues(role, kind).Inc()
}

// RecordGatewayRequest increments the gateway requests counter
func (m *Metrics) RecordGatewayRequest() {
	m.GatewayRequests.Inc()
}

// RecordGatewaySuccess records a successful gateway round-trip
func (m *Metrics) RecordGatewaySuccess(durationSeconds float64) {
	m.GatewaySuccesses.Inc()
	m.GatewayDuration.Observe(durationSeconds)
}

// RecordGatewayFailure records a failed gateway round-trip
func (m *Metrics) RecordGatewayFailure(durationSeconds float64) {
	m.GatewayFailures.Inc()
	m.GatewayDuration.Observe(durationSeconds)
}

// RecordRecording records a finalized microphone recording
func (m *Metrics) RecordRecording(durationSeconds float64) {
	m.Recordings.Inc()
	m.RecordingLength.Observe(durationSeconds)
}

// RecordPlayback increments the playbacks counter
func (m *Metrics) RecordPlayback() {
	m.Playbacks.Inc()
}

// SetVocabularySize sets the current vocabulary bank size
func (m *Metrics) SetVocabularySize(count int) {
	m.VocabularySize.Set(float64(count))
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, endpoint, statusCode string, durationSeconds float64) {
	m.HTTPRequests.WithLabelValues(method, endpoint, statusCode).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, endpoint).Observe(durationSeconds)
}

// RecordHTTPError records an HTTP error
func (m *Metrics) RecordHTTPError(method, endpoint, errorType string) {
	m.HTTPErrors.WithLabelValues(method, endpoint, errorType).Inc()
}
