package api

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/chipinfinity/checkout-api/internal/events"
	"github.com/chipinfinity/checkout-api/internal/money"
	"github.com/chipinfinity/checkout-api/internal/pix"
	"github.com/chipinfinity/checkout-api/internal/storage"
	"github.com/chipinfinity/checkout-api/telemetry"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Identifier aliases probed at the payload top level and under the nested
// "transaction" object, in priority order.
var postbackIDAliases = []string{
	"transaction_hash", "hash", "id", "reference", "external_reference",
}

// ReceivePostback validates and normalizes an asynchronous status webhook.
// This is the secondary confirmation channel; the polling loop never reads
// it. No persistence, no downstream notification beyond the optional broker
// event — CRM/e-mail live outside this service.
func (h *Handlers) ReceivePostback(c *gin.Context) {
	var raw any
	if err := json.NewDecoder(c.Request.Body).Decode(&raw); err != nil {
		telemetry.IncPostback("invalid_body")
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_payload",
			"message": "request body is not valid JSON",
		})
		return
	}

	payload, ok := raw.(map[string]any)
	if !ok {
		telemetry.IncPostback("invalid_body")
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_payload",
			"message": "postback body must be a JSON object",
		})
		return
	}

	nested, _ := payload["transaction"].(map[string]any)

	transactionID := firstStringAlias(payload, nested, postbackIDAliases)
	if transactionID == "" {
		telemetry.IncPostback("missing_id")
		h.Log.Warn("postback without transaction identifier")
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error":   "missing_transaction_id",
			"message": "postback carries no recognizable transaction identifier",
		})
		return
	}

	if h.PostbackSecret != "" && !h.postbackAuthorized(c) {
		telemetry.IncPostback("unauthorized")
		h.Log.Warn("postback rejected: bad secret", zap.String("transaction_id", transactionID))
		c.JSON(http.StatusUnauthorized, gin.H{
			"error":   "unauthorized",
			"message": "invalid postback secret",
		})
		return
	}

	rawStatus := firstStringAlias(payload, nested, []string{"status"})
	status := pix.NormalizeStatusLenient(rawStatus)

	method := strings.ToLower(firstStringAlias(payload, nested, []string{"payment_method"}))
	if method == "" {
		method = "pix"
	}

	amount := money.RescaleHeuristic(firstNumberAlias(payload, nested, "amount"))
	receivedAt := time.Now().UTC()

	h.Receipts.Append(storage.Receipt{
		ID:            uuid.New(),
		TransactionID: transactionID,
		Status:        status,
		PaymentMethod: method,
		Amount:        amount,
		ReceivedAt:    receivedAt,
	})

	h.publishEvent(events.PaymentStatusEvent{
		TransactionID: transactionID,
		Status:        string(pix.NormalizeStatus(rawStatus)),
		PaymentMethod: method,
		Amount:        amount,
		Source:        "postback",
		OccurredAt:    receivedAt.Format(time.RFC3339),
	})

	telemetry.IncPostback("accepted")
	h.Log.Info("postback received",
		zap.String("transaction_id", transactionID),
		zap.String("status", status),
		zap.String("payment_method", method),
	)

	c.JSON(http.StatusOK, PostbackAck{
		OK:            true,
		TransactionID: transactionID,
		Status:        status,
		PaymentMethod: method,
		Amount:        amount,
		ReceivedAt:    receivedAt.Format(time.RFC3339),
	})
}

// postbackAuthorized accepts the shared secret from either custom header or
// the token query parameter, compared in constant time.
func (h *Handlers) postbackAuthorized(c *gin.Context) bool {
	for _, provided := range []string{
		c.GetHeader("x-tribopay-secret"),
		c.GetHeader("x-postback-token"),
		c.Query("token"),
	} {
		if provided != "" &&
			subtle.ConstantTimeCompare([]byte(provided), []byte(h.PostbackSecret)) == 1 {
			return true
		}
	}
	return false
}

func firstStringAlias(payload, nested map[string]any, aliases []string) string {
	for _, section := range []map[string]any{payload, nested} {
		if section == nil {
			continue
		}
		for _, alias := range aliases {
			if v, ok := section[alias].(string); ok {
				if s := strings.TrimSpace(v); s != "" {
					return s
				}
			}
		}
	}
	return ""
}

// firstNumberAlias tolerates numeric strings with a comma decimal separator.
func firstNumberAlias(payload, nested map[string]any, alias string) float64 {
	for _, section := range []map[string]any{payload, nested} {
		if section == nil {
			continue
		}
		switch v := section[alias].(type) {
		case float64:
			return v
		case string:
			normalized := strings.TrimSpace(strings.ReplaceAll(v, ",", "."))
			if normalized == "" {
				continue
			}
			if f, err := strconv.ParseFloat(normalized, 64); err == nil {
				return f
			}
		}
	}
	return 0
}
