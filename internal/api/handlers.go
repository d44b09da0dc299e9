package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/chipinfinity/checkout-api/internal/events"
	"github.com/chipinfinity/checkout-api/internal/gateway"
	"github.com/chipinfinity/checkout-api/internal/money"
	"github.com/chipinfinity/checkout-api/internal/pix"
	"github.com/chipinfinity/checkout-api/internal/storage"
	"github.com/chipinfinity/checkout-api/telemetry"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

type Handlers struct {
	Log      *zap.Logger
	Svc      *gateway.Service
	V        *validator.Validate
	Receipts storage.ReceiptRepo
	Events   *events.Producer // nil when the broker is not configured

	PostbackSecret string
	KafkaEnabled   bool
}

// health handler
func (h *Handlers) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":        "ok",
		"provider":      h.Svc.Provider(),
		"kafka_enabled": h.KafkaEnabled,
	})
}

// transactions handlers

func (h *Handlers) CreateTransaction(c *gin.Context) {
	var req CreateTransactionRequest
	if err := c.BindJSON(&req); err != nil {
		telemetry.IncTransactionFailed("validation")
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON"})
		return
	}

	if req.Structured() {
		if err := h.V.Struct(req.Customer); err != nil {
			telemetry.IncTransactionFailed("validation")
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	res, err := h.Svc.Create(c.Request.Context(), toCheckoutRequest(&req), debugRequested(c))
	if err != nil {
		h.writeGatewayError(c, err, "transaction creation failed")
		return
	}

	resp := CreateTransactionResponse{
		Status: res.Status,
		ID:     res.ID,
		Pix:    toPixDTO(res.Pix, res.ID),
	}
	if res.Debug != nil {
		resp.DebugInfo = res.Debug
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handlers) GetTransaction(c *gin.Context) {
	id := c.Query("id")
	if id == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "transaction id is required"})
		return
	}

	res, err := h.Svc.Status(c.Request.Context(), id, debugRequested(c))
	if err != nil {
		h.writeGatewayError(c, err, "status lookup failed")
		return
	}

	resp := TransactionStatusResponse{
		ID:        res.ID,
		Status:    string(res.Status),
		Method:    res.Method,
		CustomID:  nullable(res.CustomRef),
		CreatedAt: nullable(res.CreatedAt),
		UpdatedAt: nullable(res.UpdatedAt),
		Amount:    res.Amount,
		Pix:       toPixDTO(res.Pix, res.ID),
	}
	if res.Debug != nil {
		resp.DebugInfo = res.Debug
	}

	if res.Status == pix.StatusPaid {
		h.publishEvent(events.PaymentStatusEvent{
			TransactionID: res.ID,
			Status:        string(res.Status),
			PaymentMethod: res.Method,
			Amount:        res.Amount,
			Source:        "status_poll",
			OccurredAt:    time.Now().UTC().Format(time.RFC3339),
		})
	}

	c.JSON(http.StatusOK, resp)
}

// ListPostbacks exposes the in-memory receipt log, newest first. Debug
// surface only; nothing here is durable.
func (h *Handlers) ListPostbacks(c *gin.Context) {
	receipts := h.Receipts.List()
	c.JSON(http.StatusOK, gin.H{"count": len(receipts), "receipts": receipts})
}

// writeGatewayError maps the error taxonomy onto HTTP statuses: validation
// 400, configuration 500, upstream errors propagate the gateway's status.
func (h *Handlers) writeGatewayError(c *gin.Context, err error, msg string) {
	var vErr *gateway.ValidationError
	if errors.As(err, &vErr) {
		c.JSON(http.StatusBadRequest, gin.H{"error": vErr.Reason})
		return
	}

	var cErr *gateway.ConfigError
	if errors.As(err, &cErr) {
		h.Log.Error(msg, zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "payment gateway not configured"})
		return
	}

	var gErr *gateway.Error
	if errors.As(err, &gErr) {
		status := gErr.StatusCode
		if status < 400 || status > 599 {
			status = http.StatusBadRequest
		}
		c.JSON(status, gin.H{
			"error":   "payment gateway error",
			"message": gErr.Message,
			"details": gErr.Body,
		})
		return
	}

	h.Log.Error(msg, zap.Error(err))
	c.JSON(http.StatusInternalServerError, gin.H{
		"error":   "internal error",
		"message": "failed to reach payment gateway",
	})
}

// publishEvent writes to the broker off the request path; publish failures
// are logged, never surfaced.
func (h *Handlers) publishEvent(ev events.PaymentStatusEvent) {
	if h.Events == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := h.Events.Publish(ctx, ev); err != nil {
			telemetry.IncPaymentEvent("publish_error")
			h.Log.Warn("payment event publish failed",
				zap.String("transaction_id", ev.TransactionID),
				zap.Error(err),
			)
			return
		}
		telemetry.IncPaymentEvent("published")
	}()
}

func debugRequested(c *gin.Context) bool {
	return c.Query("debug") == "1"
}

// toCheckoutRequest flattens both accepted wire forms into the provider-
// agnostic request. Structured cart prices arrive in cents, legacy in reais.
func toCheckoutRequest(req *CreateTransactionRequest) gateway.CheckoutRequest {
	out := gateway.CheckoutRequest{
		Amount:      req.Amount,
		Tracking:    stringMap(req.Tracking),
		PostbackURL: req.PostbackURL,
		SessionID:   req.SessionID,
		UserAgent:   req.UserAgent,
		ExternalRef: req.Referrer,
	}

	if req.Structured() {
		out.Customer = gateway.Customer{
			Name:     req.Customer.Name,
			Email:    req.Customer.Email,
			Phone:    req.Customer.PhoneNumber,
			Document: req.Customer.Document,
		}
		out.Address = gateway.Address{
			Street:       req.Customer.StreetName,
			Number:       req.Customer.Number,
			Complement:   req.Customer.Complement,
			Neighborhood: req.Customer.Neighborhood,
			City:         req.Customer.City,
			State:        req.Customer.State,
			Zip:          req.Customer.ZipCode,
		}
		for _, it := range req.Cart {
			out.Cart = append(out.Cart, gateway.CartItem{
				ID:        it.ProductHash,
				Title:     it.Title,
				UnitPrice: money.FromMinorUnits(it.Price),
				Quantity:  it.Quantity,
			})
		}
		return out
	}

	out.Customer = gateway.Customer{
		Name:     req.Name,
		Email:    req.Email,
		Phone:    req.Phone,
		Document: req.CPF,
	}
	if len(out.Tracking) == 0 {
		out.Tracking = stringMap(req.UTMs)
	}
	if out.PostbackURL == "" {
		out.PostbackURL = req.RedirectURL
	}
	for _, it := range req.Items {
		out.Cart = append(out.Cart, gateway.CartItem{
			ID:        it.ID,
			Title:     it.Name,
			UnitPrice: coerceFloat(it.Price),
			Quantity:  coerceInt(it.Quantity, 1),
		})
	}
	return out
}

func toPixDTO(p *pix.Payload, txID string) *PixDTO {
	if p == nil {
		return nil
	}
	end2end := p.EndToEndID
	if end2end == "" {
		end2end = txID
	}
	return &PixDTO{
		Qrcode:         p.Code,
		QrcodeImage:    p.Image,
		ExpirationDate: p.Expiration,
		End2EndID:      end2end,
	}
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func stringMap(m map[string]any) map[string]string {
	if len(m) == 0 {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = fmt.Sprint(v)
	}
	return out
}

func coerceFloat(v any) float64 {
	switch t := v.(type) {
	case float64:
		return t
	case string:
		f, err := strconv.ParseFloat(t, 64)
		if err != nil {
			return 0
		}
		return f
	default:
		return 0
	}
}

func coerceInt(v any, fallback int) int {
	switch t := v.(type) {
	case float64:
		if t > 0 {
			return int(t)
		}
	case string:
		if n, err := strconv.Atoi(t); err == nil && n > 0 {
			return n
		}
	}
	return fallback
}
