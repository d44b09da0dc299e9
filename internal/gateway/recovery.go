package gateway

import (
	"context"
	"time"

	"github.com/chipinfinity/checkout-api/internal/pix"
	"github.com/chipinfinity/checkout-api/telemetry"
	"go.uber.org/zap"
)

// RecoveryAttempt is one diagnostic entry from a recovery cycle, surfaced in
// debug responses.
type RecoveryAttempt struct {
	Attempt   int    `json:"attempt"`
	LatencyMS int64  `json:"latencyMs"`
	Status    string `json:"status,omitempty"`
	CodeLen   int    `json:"codeLen"`
	Err       string `json:"error,omitempty"`
}

// RecoverPix re-queries the gateway until a PIX payload with a non-empty code
// materializes or attempts run out. Some gateways create the transaction
// before provisioning its PIX artifact, so the immediate creation response can
// legitimately lack it.
//
// One failing attempt never aborts the cycle; absence after exhaustion is a
// normal outcome and comes back as nil, never as an error.
func RecoverPix(ctx context.Context, log *zap.Logger, p Provider, id string, maxAttempts int, delay time.Duration, debug *DebugInfo) *pix.Payload {
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		start := time.Now()
		tx, err := p.Fetch(ctx, id)
		latency := time.Since(start)

		entry := RecoveryAttempt{Attempt: attempt, LatencyMS: latency.Milliseconds()}
		if err != nil {
			entry.Err = err.Error()
			log.Warn("pix recovery attempt failed",
				zap.String("provider", p.Name()),
				zap.String("transaction_id", id),
				zap.Int("attempt", attempt),
				zap.Error(err),
			)
		} else {
			entry.Status = tx.RawStatus
			if tx.Pix != nil {
				entry.CodeLen = len(tx.Pix.Code)
			}
		}
		debug.AddRecoveryAttempt(entry)

		if err == nil && tx.Pix != nil {
			log.Info("pix recovered",
				zap.String("provider", p.Name()),
				zap.String("transaction_id", id),
				zap.Int("attempts", attempt),
			)
			telemetry.ObserveRecoveryCycle(attempt, true)
			return tx.Pix
		}

		if attempt == maxAttempts {
			break
		}
		select {
		case <-ctx.Done():
			telemetry.ObserveRecoveryCycle(attempt, false)
			return nil
		case <-time.After(delay):
		}
	}

	log.Warn("pix recovery exhausted",
		zap.String("provider", p.Name()),
		zap.String("transaction_id", id),
		zap.Int("attempts", maxAttempts),
	)
	telemetry.ObserveRecoveryCycle(maxAttempts, false)
	return nil
}
