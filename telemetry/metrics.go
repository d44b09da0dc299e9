package telemetry

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// HTTP metrics
var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests received, partitioned by method, route and status class.",
		},
		[]string{"method", "route", "status_class"},
	)

	httpRequestDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds, partitioned by method, route and status class.",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5, 10},
		},
		[]string{"method", "route", "status_class"},
	)
)

// Gateway metrics
var (
	gatewayRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gateway_requests_total",
			Help: "Total number of upstream gateway calls, partitioned by provider, operation and outcome.",
		},
		[]string{"provider", "operation", "outcome"}, // outcomes: ok | upstream_error | network_error
	)

	gatewayRequestDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gateway_request_duration_seconds",
			Help:    "Upstream gateway call duration in seconds, partitioned by provider and operation.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5, 10},
		},
		[]string{"provider", "operation"},
	)

	pixRecoveryAttempts = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pix_recovery_attempts",
			Help:    "Polling attempts spent per PIX recovery cycle, partitioned by result.",
			Buckets: []float64{1, 2, 3, 5, 8, 12, 20, 40},
		},
		[]string{"result"}, // recovered | exhausted
	)

	transactionsCreatedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "transactions_created_total",
			Help: "Total number of gateway transactions created, partitioned by provider and whether PIX came back immediately.",
		},
		[]string{"provider", "pix_immediate"}, // "true" | "false"
	)

	transactionsFailedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "transactions_failed_total",
			Help: "Total number of failed transaction creations, partitioned by reason.",
		},
		[]string{"reason"}, // reasons: validation | config | upstream | network
	)
)

// Postback metrics
var (
	postbacksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "postbacks_total",
			Help: "Total number of gateway postbacks received, partitioned by outcome.",
		},
		[]string{"outcome"}, // accepted | invalid_body | missing_id | unauthorized
	)

	paymentEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payment_events_total",
			Help: "Total number of payment events published to the broker, partitioned by result.",
		},
		[]string{"result"}, // published | schema_error | publish_error
	)
)

// InitMetrics called on startup
func InitMetrics() {
	prometheus.MustRegister(
		httpRequestsTotal,
		httpRequestDurationSeconds,
		gatewayRequestsTotal,
		gatewayRequestDurationSeconds,
		pixRecoveryAttempts,
		transactionsCreatedTotal,
		transactionsFailedTotal,
		postbacksTotal,
		paymentEventsTotal,
	)
}

// PrometheusMiddleware measures one HTTP request: increments counter and observes latency.
// It uses gin.Context.FullPath() to record the *route template* (e.g., /api/v1/transactions).
func PrometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next() // execute handler chain

		route := c.FullPath()
		if route == "" {
			route = "unknown"
		}
		method := c.Request.Method
		status := c.Writer.Status()
		statusClass := fmt.Sprintf("%dxx", status/100)

		httpRequestsTotal.WithLabelValues(method, route, statusClass).Inc()
		httpRequestDurationSeconds.WithLabelValues(method, route, statusClass).Observe(time.Since(start).Seconds())
	}
}

// MetricsHandler exposes /metrics in Prometheus text exposition format.
func MetricsHandler() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}
