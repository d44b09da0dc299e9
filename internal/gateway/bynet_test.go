package gateway

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestBynet(t *testing.T, handler http.HandlerFunc) *Bynet {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewBynet(srv.URL, "sk_test_123", "Chip Infinity M3",
		newHTTPJSON("bynet", 5*time.Second, zap.NewNop()))
}

func TestBynetCreateRequestShape(t *testing.T) {
	var captured map[string]any
	var authHeader string

	b := newTestBynet(t, func(w http.ResponseWriter, r *http.Request) {
		authHeader = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		_ = json.NewEncoder(w).Encode(map[string]any{
			"transactionId": "byn-1",
			"status":        "waiting_payment",
			"pix":           map[string]any{"qrcode": "00020126emv"},
		})
	})

	tx, err := b.Create(context.Background(), CheckoutRequest{
		Amount: 197.90,
		Customer: Customer{
			Name:     "Maria Silva",
			Email:    "maria@example.com",
			Phone:    "11999990000",
			Document: "12345678901",
		},
		Cart: []CartItem{
			{Title: "Chip Infinity M3", UnitPrice: 98.95, Quantity: 2},
		},
		ExternalRef: "order_abc",
		PostbackURL: "https://shop.example.com/postback",
	})
	require.NoError(t, err)

	wantAuth := "Basic " + base64.StdEncoding.EncodeToString([]byte("sk_test_123:x"))
	assert.Equal(t, wantAuth, authHeader)

	assert.Equal(t, float64(19790), captured["amount"], "amount in cents")
	assert.Equal(t, "pix", captured["paymentMethod"])
	assert.Equal(t, "order_abc", captured["externalRef"])

	customer := captured["customer"].(map[string]any)
	document := customer["document"].(map[string]any)
	assert.Equal(t, "cpf", document["type"])
	assert.Equal(t, "12345678901", document["number"])

	items := captured["items"].([]any)
	require.Len(t, items, 1)
	item := items[0].(map[string]any)
	assert.Equal(t, float64(9895), item["unitPrice"], "item price in cents")
	assert.Equal(t, float64(2), item["quantity"])
	assert.Equal(t, false, item["tangible"])

	assert.Equal(t, "byn-1", tx.ID)
	require.NotNil(t, tx.Pix)
	assert.Equal(t, "00020126emv", tx.Pix.Code)
}

func TestBynetCreateFailsClosedWithoutCredentials(t *testing.T) {
	b := NewBynet("http://unused", "", "x", newHTTPJSON("bynet", time.Second, zap.NewNop()))
	_, err := b.Create(context.Background(), CheckoutRequest{})
	var cErr *ConfigError
	require.ErrorAs(t, err, &cErr)
}

func TestBynetUpstreamErrorCarriesStatusAndBody(t *testing.T) {
	b := newTestBynet(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"error":   "invalid_document",
			"message": "document rejected",
		})
	})

	_, err := b.Create(context.Background(), CheckoutRequest{})
	var gErr *Error
	require.ErrorAs(t, err, &gErr)
	assert.Equal(t, http.StatusUnprocessableEntity, gErr.StatusCode)
	assert.Equal(t, "document rejected", gErr.Message)
	assert.Contains(t, gErr.Body, "invalid_document")
}

func TestBynetErrorDiscriminatorOn200(t *testing.T) {
	b := newTestBynet(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"error": "limit exceeded"})
	})

	_, err := b.Fetch(context.Background(), "byn-1")
	var gErr *Error
	require.ErrorAs(t, err, &gErr)
	assert.Equal(t, "limit exceeded", gErr.Message)
}

func TestBynetFetchParsesAliasedIdentifiers(t *testing.T) {
	b := newTestBynet(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":            "byn-9",
			"status":        "paid",
			"amount":        float64(19790),
			"register":      "2024-06-01T10:00:00Z",
			"paymentMethod": "pix",
		})
	})

	tx, err := b.Fetch(context.Background(), "byn-9")
	require.NoError(t, err)
	assert.Equal(t, "byn-9", tx.ID)
	assert.Equal(t, "paid", tx.RawStatus)
	assert.Equal(t, int64(19790), tx.AmountMinor)
	assert.Equal(t, "2024-06-01T10:00:00Z", tx.CreatedAt, "register doubles as createdAt")
	assert.Nil(t, tx.Pix)
}
