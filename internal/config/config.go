package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds every environment-sourced knob. Credentials stay empty rather
// than failing at load time; gateway calls fail closed when they are missing.
type Config struct {
	Port     string
	Provider string // "bynet" | "tribopay"

	BynetSecretKey  string
	BynetBaseURL    string
	TriboPayToken   string
	TriboPayBaseURL string

	OfferHash          string
	DefaultProductHash string
	DefaultProductName string
	DefaultPostbackURL string
	ExpireInDays       int

	PostbackSecret string

	HTTPTimeout       time.Duration
	RecoveryDelay     time.Duration
	RecoveryMaxCreate int
	RecoveryMaxStatus int

	KafkaBrokers []string
	KafkaTopic   string
}

// Load reads .env when present and materializes the config from the
// environment. Missing optional values get the documented defaults.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		Port:     getenv("PORT", "8080"),
		Provider: strings.ToLower(getenv("GATEWAY_PROVIDER", "tribopay")),

		BynetSecretKey:  os.Getenv("BYNET_SECRET_KEY"),
		BynetBaseURL:    getenv("BYNET_BASE_URL", "https://api.bynetglobal.com.br/v1"),
		TriboPayToken:   os.Getenv("TRIBOPAY_API_TOKEN"),
		TriboPayBaseURL: getenv("TRIBOPAY_BASE_URL", "https://api.tribopay.com.br/api/public/v1"),

		OfferHash:          getenv("TRIBOPAY_OFFER_HASH", "4sx9hlg2x7"),
		DefaultProductHash: getenv("DEFAULT_PRODUCT_HASH", "tybzriceak"),
		DefaultProductName: getenv("DEFAULT_PRODUCT_NAME", "Chip Infinity M3"),
		DefaultPostbackURL: os.Getenv("DEFAULT_POSTBACK_URL"),
		ExpireInDays:       getenvInt("PIX_EXPIRE_IN_DAYS", 1),

		PostbackSecret: os.Getenv("POSTBACK_SECRET"),

		HTTPTimeout:       getenvDuration("GATEWAY_HTTP_TIMEOUT", 10*time.Second),
		RecoveryDelay:     getenvDuration("PIX_RECOVERY_DELAY", 750*time.Millisecond),
		RecoveryMaxCreate: getenvInt("PIX_RECOVERY_MAX_CREATE", 12),
		RecoveryMaxStatus: getenvInt("PIX_RECOVERY_MAX_STATUS", 8),

		KafkaBrokers: splitNonEmpty(os.Getenv("KAFKA_BROKERS")),
		KafkaTopic:   os.Getenv("KAFKA_TOPIC_PAYMENTS"),
	}
}

// KafkaEnabled reports whether the optional payment-events producer should run.
func (c Config) KafkaEnabled() bool {
	return len(c.KafkaBrokers) > 0 && c.KafkaTopic != ""
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getenvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}

func getenvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

func splitNonEmpty(csv string) []string {
	if csv == "" {
		return nil
	}
	parts := strings.Split(csv, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
