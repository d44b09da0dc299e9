package telemetry

import (
	"os"

	"go.uber.org/zap"
)

// NewLogger builds the process-wide zap logger. JSON in production,
// human-readable when LOG_MODE=dev.
func NewLogger() (*zap.Logger, error) {
	if os.Getenv("LOG_MODE") == "dev" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
