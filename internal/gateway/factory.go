package gateway

import (
	"github.com/chipinfinity/checkout-api/internal/config"
	"go.uber.org/zap"
)

// NewBynetFromConfig wires a Bynet provider from the environment config.
func NewBynetFromConfig(cfg config.Config, log *zap.Logger) *Bynet {
	return NewBynet(
		cfg.BynetBaseURL,
		cfg.BynetSecretKey,
		cfg.DefaultProductName,
		newHTTPJSON("bynet", cfg.HTTPTimeout, log),
	)
}

// NewTriboPayFromConfig wires a TriboPay provider from the environment config.
func NewTriboPayFromConfig(cfg config.Config, log *zap.Logger) *TriboPay {
	return NewTriboPay(
		cfg.TriboPayBaseURL,
		cfg.TriboPayToken,
		cfg.OfferHash,
		cfg.DefaultProductHash,
		cfg.DefaultProductName,
		cfg.ExpireInDays,
		newHTTPJSON("tribopay", cfg.HTTPTimeout, log),
	)
}
