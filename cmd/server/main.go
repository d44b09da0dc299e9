package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/chipinfinity/checkout-api/internal/api"
	"github.com/chipinfinity/checkout-api/internal/config"
	"github.com/chipinfinity/checkout-api/internal/events"
	"github.com/chipinfinity/checkout-api/internal/gateway"
	"github.com/chipinfinity/checkout-api/internal/storage"
	"github.com/chipinfinity/checkout-api/telemetry"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

func registerCustomValidations(v *validator.Validate) {
	_ = v.RegisterValidation("cpfdigits", func(fl validator.FieldLevel) bool {
		digits := 0
		for _, r := range fl.Field().String() {
			if r >= '0' && r <= '9' {
				digits++
			}
		}
		// CPF has 11 digits; masked input is tolerated
		return digits == 11
	})
}

func buildProvider(cfg config.Config, log *zap.Logger) gateway.Provider {
	switch cfg.Provider {
	case "bynet":
		return gateway.NewBynetFromConfig(cfg, log)
	default:
		return gateway.NewTriboPayFromConfig(cfg, log)
	}
}

func main() {
	log, _ := telemetry.NewLogger()
	defer log.Sync()

	cfg := config.Load()
	telemetry.InitMetrics()

	// validator
	v := validator.New()
	registerCustomValidations(v)

	provider := buildProvider(cfg, log)
	svc := gateway.NewService(provider, log, gateway.ServiceOptions{
		RecoveryDelay:     cfg.RecoveryDelay,
		RecoveryMaxCreate: cfg.RecoveryMaxCreate,
		RecoveryMaxStatus: cfg.RecoveryMaxStatus,
		ProductName:       cfg.DefaultProductName,
		PostbackURL:       cfg.DefaultPostbackURL,
	})

	// optional payment-events producer
	var producer *events.Producer
	if cfg.KafkaEnabled() {
		schema, err := events.NewValidator()
		if err != nil {
			log.Fatal("event schema", zap.Error(err))
		}
		producer = events.NewProducer(cfg.KafkaBrokers, cfg.KafkaTopic, schema)
		defer producer.Close()
		log.Info("payment events enabled",
			zap.String("topic", cfg.KafkaTopic),
			zap.String("brokers", strings.Join(cfg.KafkaBrokers, ",")),
		)
	}

	// handlers with dependencies
	h := &api.Handlers{
		Log:            log,
		Svc:            svc,
		V:              v,
		Receipts:       storage.NewMemoryStore(200),
		Events:         producer,
		PostbackSecret: cfg.PostbackSecret,
		KafkaEnabled:   cfg.KafkaEnabled(),
	}

	// gin engine
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(telemetry.PrometheusMiddleware())

	// simple http log middleware
	r.Use(func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Info("http",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("dur", time.Since(start)),
		)
	})

	api.SetupRoutes(r, h)

	srv := &http.Server{Addr: ":" + cfg.Port, Handler: r}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("server error", zap.Error(err))
		}
	}()
	log.Info("server started",
		zap.String("port", cfg.Port),
		zap.String("provider", provider.Name()),
	)

	// graceful shutdown
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig
	ctxTimeout, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctxTimeout)
	log.Info("server stopped")
}
