package observability

import (
	"sync"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	registerOnce       sync.Once
	apiRequestsTotal   *prometheus.CounterVec
	apiLatencySeconds  *prometheus.HistogramVec
	apiErrorsTotal     *prometheus.CounterVec
	fallbacksTotal     *prometheus.CounterVec
	assessmentsTotal   *prometheus.CounterVec
	interviewsTotal    *prometheus.CounterVec
	voiceSessionsGauge prometheus.Gauge
)

// RegisterMetrics initialises the Prometheus collectors used across the API.
func RegisterMetrics() {
	registerOnce.Do(func() {
		apiRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "prep_api_requests_total",
			Help: "Total number of API requests served.",
		}, []string{"method", "route", "status"})

		apiLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "prep_api_latency_seconds",
			Help:    "Latency distribution for API requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0, 5.0, 10.0},
		}, []string{"method", "route"})

		apiErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "prep_api_errors_total",
			Help: "Total number of error responses returned by API endpoints.",
		}, []string{"method", "route", "status"})

		fallbacksTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "prep_fallbacks_total",
			Help: "Number of times a local fallback replaced an unavailable external service.",
		}, []string{"component", "operation"})

		assessmentsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "prep_assessments_total",
			Help: "Coding assessment lifecycle events.",
		}, []string{"event"})

		interviewsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "prep_interviews_total",
			Help: "Mock interview lifecycle events.",
		}, []string{"event"})

		voiceSessionsGauge = prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "prep_voice_sessions_active",
			Help: "Number of open voice channel connections.",
		})

		prometheus.MustRegister(apiRequestsTotal, apiLatencySeconds, apiErrorsTotal, fallbacksTotal, assessmentsTotal, interviewsTotal, voiceSessionsGauge)
	})
}

// APIRequests exposes the counter for API requests.
func APIRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return apiRequestsTotal
}

// APILatency exposes the latency histogram for API requests.
func APILatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return apiLatencySeconds
}

// APIErrors exposes the counter for API error responses.
func APIErrors() *prometheus.CounterVec {
	RegisterMetrics()
	return apiErrorsTotal
}

// Fallbacks exposes the counter for degraded responses.
func Fallbacks() *prometheus.CounterVec {
	RegisterMetrics()
	return fallbacksTotal
}

// Assessments exposes the coding assessment lifecycle counter.
func Assessments() *prometheus.CounterVec {
	RegisterMetrics()
	return assessmentsTotal
}

// Interviews exposes the interview lifecycle counter.
func Interviews() *prometheus.CounterVec {
	RegisterMetrics()
	return interviewsTotal
}

// VoiceSessions exposes the gauge of open voice channels.
func VoiceSessions() prometheus.Gauge {
	RegisterMetrics()
	return voiceSessionsGauge
}

// MetricsHandler serves the default registry, registering the API collectors first.
func MetricsHandler() fiber.Handler {
	RegisterMetrics()
	return adaptor.HTTPHandler(promhttp.HandlerFor(prometheus.DefaultGatherer, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	}))
}
