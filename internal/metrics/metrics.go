// Package metrics exposes Prometheus collectors for the screening service.
package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// OutcomeSuccess labels acquisitions that produced a record.
const OutcomeSuccess = "success"

var (
	acquisitionsTotal          *prometheus.CounterVec
	acquisitionDuration        *prometheus.HistogramVec
	stageDuration              *prometheus.HistogramVec
	sessionsActive             prometheus.Gauge
	sessionQueueWait           prometheus.Histogram
	navigationFallbacksTotal   prometheus.Counter
	profileScore               prometheus.Histogram
	rateLimitedTotal           prometheus.Counter
	httpRequestsTotal          *prometheus.CounterVec
	httpRequestDurationSeconds *prometheus.HistogramVec

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		acquisitionsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "screener_acquisitions_total",
				Help: "Total number of profile acquisitions, labeled by outcome (success or error kind).",
			},
			[]string{"outcome"},
		)

		acquisitionDuration = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "screener_acquisition_duration_seconds",
				Help:    "Wall time of profile acquisitions, labeled by outcome.",
				Buckets: []float64{1, 2.5, 5, 10, 20, 40, 60, 120},
			},
			[]string{"outcome"},
		)

		stageDuration = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "screener_stage_duration_seconds",
				Help:    "Duration of individual acquisition stages.",
				Buckets: []float64{0.05, 0.25, 1, 2.5, 5, 15, 30, 60},
			},
			[]string{"stage"},
		)

		sessionsActive = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "screener_browser_sessions_active",
				Help: "Number of browser sessions currently open.",
			},
		)

		sessionQueueWait = promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "screener_session_queue_wait_seconds",
				Help:    "Time spent waiting for a free browser session slot.",
				Buckets: []float64{0.01, 0.1, 0.5, 1, 5, 10, 30},
			},
		)

		navigationFallbacksTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "screener_navigation_fallbacks_total",
				Help: "Navigations that needed the DOM-ready fallback after the network-idle wait failed.",
			},
		)

		profileScore = promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "screener_profile_score",
				Help:    "Distribution of computed suitability scores.",
				Buckets: []float64{20, 40, 60, 80, 100, 120, 140},
			},
		)

		rateLimitedTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "screener_rate_limited_total",
				Help: "Requests rejected by the per-client rate limiter.",
			},
		)

		httpRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests, labeled by method and code.",
			},
			[]string{"method", "code"},
		)

		httpRequestDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Histogram of HTTP request latencies, labeled by method and route.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 15, 60},
			},
			[]string{"method", "route"},
		)
	})
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveAcquisition records one finished acquisition.
func ObserveAcquisition(outcome string, duration time.Duration) {
	acquisitionsTotal.WithLabelValues(outcome).Inc()
	acquisitionDuration.WithLabelValues(outcome).Observe(duration.Seconds())
}

// ObserveStage records the duration of one pipeline stage.
func ObserveStage(stage string, duration time.Duration) {
	stageDuration.WithLabelValues(stage).Observe(duration.Seconds())
}

// IncActiveSessions increments the open sessions gauge.
func IncActiveSessions() {
	sessionsActive.Inc()
}

// DecActiveSessions decrements the open sessions gauge.
func DecActiveSessions() {
	sessionsActive.Dec()
}

// ObserveQueueWait records how long a caller waited for a session slot.
func ObserveQueueWait(duration time.Duration) {
	sessionQueueWait.Observe(duration.Seconds())
}

// ObserveNavigationFallback counts a DOM-ready fallback navigation.
func ObserveNavigationFallback() {
	navigationFallbacksTotal.Inc()
}

// ObserveScore records a computed score.
func ObserveScore(score int) {
	profileScore.Observe(float64(score))
}

// ObserveRateLimited counts a request rejected by the rate limiter.
func ObserveRateLimited() {
	rateLimitedTotal.Inc()
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}
