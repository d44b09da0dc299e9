package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/chipinfinity/checkout-api/internal/gateway"
	"github.com/chipinfinity/checkout-api/internal/pix"
	"github.com/chipinfinity/checkout-api/internal/storage"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// fakeProvider answers every call with the configured transaction.
type fakeProvider struct {
	tx      *gateway.Transaction
	err     error
	creates int
	fetches int
	lastReq gateway.CheckoutRequest
}

func (f *fakeProvider) Name() string { return "fake" }

func (f *fakeProvider) Create(ctx context.Context, req gateway.CheckoutRequest) (*gateway.Transaction, error) {
	f.creates++
	f.lastReq = req
	return f.tx, f.err
}

func (f *fakeProvider) Fetch(ctx context.Context, id string) (*gateway.Transaction, error) {
	f.fetches++
	return f.tx, f.err
}

func newTestRouter(p gateway.Provider) (*gin.Engine, *Handlers) {
	v := validator.New()
	_ = v.RegisterValidation("cpfdigits", func(fl validator.FieldLevel) bool {
		return len(fl.Field().String()) > 0
	})
	h := &Handlers{
		Log: zap.NewNop(),
		Svc: gateway.NewService(p, zap.NewNop(), gateway.ServiceOptions{
			RecoveryDelay:     time.Millisecond,
			RecoveryMaxCreate: 2,
			RecoveryMaxStatus: 2,
			ProductName:       "Chip Infinity M3",
		}),
		V:        v,
		Receipts: storage.NewMemoryStore(10),
	}
	r := gin.New()
	SetupRoutes(r, h)
	return r, h
}

func doJSON(t *testing.T, r *gin.Engine, method, url string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(encoded)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, url, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var doc map[string]any
	if len(w.Body.Bytes()) > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &doc))
	}
	return w, doc
}

func structuredBody() map[string]any {
	return map[string]any{
		"amount":         197.90,
		"payment_method": "pix",
		"customer": map[string]any{
			"name":         "Maria Silva",
			"email":        "maria@example.com",
			"phone_number": "11999990000",
			"document":     "12345678901",
		},
		"cart": []map[string]any{
			{"product_hash": "chip-infinity", "title": "Chip Infinity M3", "price": 19790, "quantity": 1},
		},
	}
}

func TestCreateTransactionStructuredForm(t *testing.T) {
	p := &fakeProvider{tx: &gateway.Transaction{
		ID:        "tx-1",
		RawStatus: "waiting_payment",
		Pix:       &pix.Payload{Code: "00020126emv", Expiration: "2024-06-01T00:00:00Z"},
	}}
	r, _ := newTestRouter(p)

	w, doc := doJSON(t, r, http.MethodPost, "/api/v1/transactions", structuredBody())
	require.Equal(t, http.StatusOK, w.Code)

	assert.Equal(t, "tx-1", doc["id"])
	assert.Equal(t, "pending", doc["status"])
	pixDoc := doc["pix"].(map[string]any)
	assert.Equal(t, "00020126emv", pixDoc["qrcode"])
	assert.Equal(t, "tx-1", pixDoc["end2EndId"], "tx id fills a missing end-to-end id")
	assert.NotContains(t, doc, "debugInfo")

	// structured cart price arrives in cents and is converted back to reais
	require.Len(t, p.lastReq.Cart, 1)
	assert.Equal(t, 197.90, p.lastReq.Cart[0].UnitPrice)
}

func TestCreateTransactionLegacyFlatForm(t *testing.T) {
	p := &fakeProvider{tx: &gateway.Transaction{
		ID:        "tx-2",
		RawStatus: "pending",
		Pix:       &pix.Payload{Code: "emv"},
	}}
	r, _ := newTestRouter(p)

	body := map[string]any{
		"name":   "Maria Silva",
		"email":  "maria@example.com",
		"cpf":    "123.456.789-01",
		"phone":  "(11) 99999-0000",
		"amount": 197.90,
		"items": []map[string]any{
			// legacy typing: price as string, in reais
			{"id": "chip-infinity", "name": "Chip", "price": "98.95", "quantity": "2"},
		},
		"utms":        map[string]any{"utm_source": "ads"},
		"redirectUrl": "https://shop.example.com/back",
	}
	w, doc := doJSON(t, r, http.MethodPost, "/api/v1/transactions", body)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "tx-2", doc["id"])

	require.Len(t, p.lastReq.Cart, 1)
	assert.Equal(t, 98.95, p.lastReq.Cart[0].UnitPrice)
	assert.Equal(t, 2, p.lastReq.Cart[0].Quantity)
	assert.Equal(t, "ads", p.lastReq.Tracking["utm_source"])
	assert.Equal(t, "https://shop.example.com/back", p.lastReq.PostbackURL)
	assert.Equal(t, "12345678901", p.lastReq.Customer.Document)
}

func TestCreateTransactionValidationErrorIs400(t *testing.T) {
	p := &fakeProvider{}
	r, _ := newTestRouter(p)

	body := structuredBody()
	body["amount"] = -5.0
	w, doc := doJSON(t, r, http.MethodPost, "/api/v1/transactions", body)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.NotEmpty(t, doc["error"])
	assert.Zero(t, p.creates, "rejected before any gateway call")
}

func TestCreateTransactionUpstreamStatusPropagates(t *testing.T) {
	p := &fakeProvider{err: &gateway.Error{StatusCode: 403, Message: "forbidden", Body: "{}"}}
	r, _ := newTestRouter(p)

	w, doc := doJSON(t, r, http.MethodPost, "/api/v1/transactions", structuredBody())
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "forbidden", doc["message"])
}

func TestCreateTransactionConfigErrorIs500(t *testing.T) {
	p := &fakeProvider{err: &gateway.ConfigError{Missing: "BYNET_SECRET_KEY"}}
	r, _ := newTestRouter(p)

	w, _ := doJSON(t, r, http.MethodPost, "/api/v1/transactions", structuredBody())
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestCreateTransactionDebugFlag(t *testing.T) {
	// pix missing: recovery runs and its attempts land in debugInfo
	p := &fakeProvider{tx: &gateway.Transaction{ID: "tx-3", RawStatus: "pending"}}
	r, _ := newTestRouter(p)

	w, doc := doJSON(t, r, http.MethodPost, "/api/v1/transactions?debug=1", structuredBody())
	require.Equal(t, http.StatusOK, w.Code)
	assert.Nil(t, doc["pix"], "pix stays null after exhausted recovery")

	dbg := doc["debugInfo"].(map[string]any)
	attempts := dbg["recoveryAttempts"].([]any)
	assert.Len(t, attempts, 2, "RecoveryMaxCreate bounded")
}

func TestGetTransactionRequiresID(t *testing.T) {
	r, _ := newTestRouter(&fakeProvider{})
	w, doc := doJSON(t, r, http.MethodGet, "/api/v1/transactions", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.NotEmpty(t, doc["error"])
}

func TestGetTransactionNormalizedShape(t *testing.T) {
	p := &fakeProvider{tx: &gateway.Transaction{
		ID:          "tx-4",
		RawStatus:   "approved",
		Method:      "pix",
		CustomRef:   "order_1",
		CreatedAt:   "2024-06-01T10:00:00Z",
		AmountMinor: 19790,
		Pix:         &pix.Payload{Code: "emv"},
	}}
	r, _ := newTestRouter(p)

	w, doc := doJSON(t, r, http.MethodGet, "/api/v1/transactions?id=tx-4", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "paid", doc["status"])
	assert.Equal(t, "order_1", doc["customId"])
	assert.Equal(t, 197.9, doc["amount"])
	assert.Nil(t, doc["updatedAt"], "absent timestamps serialize as null")
}

func TestHealth(t *testing.T) {
	r, _ := newTestRouter(&fakeProvider{})
	w, doc := doJSON(t, r, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", doc["status"])
	assert.Equal(t, "fake", doc["provider"])
}
