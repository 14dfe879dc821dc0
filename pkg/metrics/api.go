package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// APIMetrics records the counters and histograms the API exports on /metrics:
// AI generation traffic, Stripe webhook processing and exercise submissions.
type APIMetrics struct {
	aiRequests        *prometheus.CounterVec
	aiLatency         *prometheus.HistogramVec
	webhookEvents     *prometheus.CounterVec
	exercises         *prometheus.CounterVec
	rateLimitRejected *prometheus.CounterVec
}

// NewAPIMetrics registers the API metrics on the provided registerer.
func NewAPIMetrics(reg prometheus.Registerer) *APIMetrics {
	if reg == nil {
		return &APIMetrics{}
	}
	aiRequests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ai_requests_total",
		Help: "AI generation requests by operation and outcome.",
	}, []string{"operation", "outcome"})
	aiLatency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "ai_request_duration_seconds",
		Help:    "Duration of AI generation requests in seconds.",
		Buckets: []float64{0.5, 1, 2.5, 5, 10, 20, 30, 60},
	}, []string{"operation"})
	webhookEvents := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "stripe_webhook_events_total",
		Help: "Stripe webhook events by type and outcome.",
	}, []string{"type", "outcome"})
	exercises := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "exercises_submitted_total",
		Help: "Exercise submissions by type.",
	}, []string{"type"})
	rateLimitRejected := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "rate_limit_rejections_total",
		Help: "Requests rejected by the fixed-window rate limiter.",
	}, []string{"scope"})
	reg.MustRegister(aiRequests, aiLatency, webhookEvents, exercises, rateLimitRejected)
	return &APIMetrics{
		aiRequests:        aiRequests,
		aiLatency:         aiLatency,
		webhookEvents:     webhookEvents,
		exercises:         exercises,
		rateLimitRejected: rateLimitRejected,
	}
}

// ObserveAIRequest records one AI call with its outcome and latency.
func (m *APIMetrics) ObserveAIRequest(operation, outcome string, duration time.Duration) {
	if m == nil || m.aiRequests == nil {
		return
	}
	m.aiRequests.WithLabelValues(normalizeLabel(operation), normalizeLabel(outcome)).Inc()
	m.aiLatency.WithLabelValues(normalizeLabel(operation)).Observe(duration.Seconds())
}

// IncWebhookEvent counts one processed Stripe webhook event.
func (m *APIMetrics) IncWebhookEvent(eventType, outcome string) {
	if m == nil || m.webhookEvents == nil {
		return
	}
	m.webhookEvents.WithLabelValues(normalizeLabel(eventType), normalizeLabel(outcome)).Inc()
}

// IncExerciseSubmitted counts one exercise submission.
func (m *APIMetrics) IncExerciseSubmitted(exerciseType string) {
	if m == nil || m.exercises == nil {
		return
	}
	m.exercises.WithLabelValues(normalizeLabel(exerciseType)).Inc()
}

// IncRateLimitRejection counts one request rejected by the rate limiter.
func (m *APIMetrics) IncRateLimitRejection(scope string) {
	if m == nil || m.rateLimitRejected == nil {
		return
	}
	m.rateLimitRejected.WithLabelValues(normalizeLabel(scope)).Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
