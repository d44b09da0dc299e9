package telemetry

import "time"

// ObserveGatewayRequest records one upstream call.
// Outcomes: "ok", "upstream_error", "network_error".
func ObserveGatewayRequest(provider, operation, outcome string, dur time.Duration) {
	gatewayRequestsTotal.WithLabelValues(provider, operation, outcome).Inc()
	gatewayRequestDurationSeconds.WithLabelValues(provider, operation).Observe(dur.Seconds())
}

// ObserveRecoveryCycle records how many attempts one recovery loop consumed.
func ObserveRecoveryCycle(attempts int, recovered bool) {
	result := "exhausted"
	if recovered {
		result = "recovered"
	}
	pixRecoveryAttempts.WithLabelValues(result).Observe(float64(attempts))
}

// IncTransactionCreated increments the creation counter.
func IncTransactionCreated(provider string, pixImmediate bool) {
	lbl := "false"
	if pixImmediate {
		lbl = "true"
	}
	transactionsCreatedTotal.WithLabelValues(provider, lbl).Inc()
}

// Increments the failed-create counter with a bounded reason.
// Reasons: "validation", "config", "upstream", "network".
func IncTransactionFailed(reason string) {
	if reason == "" {
		reason = "unknown"
	}
	transactionsFailedTotal.WithLabelValues(reason).Inc()
}

// IncPostback increments the postback counter with a bounded outcome.
func IncPostback(outcome string) {
	postbacksTotal.WithLabelValues(outcome).Inc()
}

// IncPaymentEvent increments the broker publish counter.
func IncPaymentEvent(result string) {
	paymentEventsTotal.WithLabelValues(result).Inc()
}
