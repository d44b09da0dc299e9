package gateway

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/chipinfinity/checkout-api/internal/money"
	"github.com/chipinfinity/checkout-api/internal/pix"
	"go.uber.org/zap"
)

// Bynet integrates Bynet Global. Auth is HTTP Basic with the secret key as
// user and a literal "x" password. Amounts travel in cents.
type Bynet struct {
	http        httpJSON
	baseURL     string
	secretKey   string
	productName string
}

func NewBynet(baseURL, secretKey, productName string, http httpJSON) *Bynet {
	return &Bynet{
		http:        http,
		baseURL:     baseURL,
		secretKey:   secretKey,
		productName: productName,
	}
}

func (b *Bynet) Name() string { return "bynet" }

type bynetDocument struct {
	Type   string `json:"type"`
	Number string `json:"number"`
}

type bynetCustomer struct {
	Name     string        `json:"name"`
	Email    string        `json:"email"`
	Phone    string        `json:"phone"`
	Document bynetDocument `json:"document"`
}

type bynetItem struct {
	Title       string `json:"title"`
	UnitPrice   int64  `json:"unitPrice"`
	Quantity    int    `json:"quantity"`
	ExternalRef string `json:"externalRef"`
	Tangible    bool   `json:"tangible"`
}

type bynetCreateRequest struct {
	Amount        int64         `json:"amount"`
	ExternalRef   string        `json:"externalRef"`
	Customer      bynetCustomer `json:"customer"`
	Items         []bynetItem   `json:"items"`
	PaymentMethod string        `json:"paymentMethod"`
	Metadata      string        `json:"metadata,omitempty"`
	PostbackURL   string        `json:"postbackUrl,omitempty"`
}

func (b *Bynet) Create(ctx context.Context, req CheckoutRequest) (*Transaction, error) {
	if b.secretKey == "" {
		return nil, &ConfigError{Missing: "BYNET_SECRET_KEY"}
	}

	items := make([]bynetItem, 0, len(req.Cart))
	for _, it := range req.Cart {
		title := it.Title
		if title == "" {
			title = b.productName
		}
		items = append(items, bynetItem{
			Title:     title,
			UnitPrice: money.ToMinorUnits(it.UnitPrice),
			Quantity:  it.Quantity,
			Tangible:  false,
		})
	}

	metadata, _ := json.Marshal(map[string]any{
		"provider":  "Bynet Global",
		"utmData":   req.Tracking,
		"sessionId": req.SessionID,
		"userAgent": req.UserAgent,
	})

	payload := bynetCreateRequest{
		Amount:      money.ToMinorUnits(req.Amount),
		ExternalRef: req.ExternalRef,
		Customer: bynetCustomer{
			Name:  req.Customer.Name,
			Email: req.Customer.Email,
			Phone: req.Customer.Phone,
			Document: bynetDocument{
				Type:   "cpf",
				Number: req.Customer.Document,
			},
		},
		Items:         items,
		PaymentMethod: "pix",
		Metadata:      string(metadata),
		PostbackURL:   req.PostbackURL,
	}

	b.http.log.Info("creating bynet transaction",
		zap.String("external_ref", req.ExternalRef),
		zap.Int64("amount_cents", payload.Amount),
	)

	doc, err := b.http.do(ctx, "create", "POST", b.baseURL+"/transactions", b.headers(), payload)
	if err != nil {
		return nil, err
	}
	return b.parse(doc), nil
}

func (b *Bynet) Fetch(ctx context.Context, id string) (*Transaction, error) {
	if b.secretKey == "" {
		return nil, &ConfigError{Missing: "BYNET_SECRET_KEY"}
	}
	doc, err := b.http.do(ctx, "fetch", "GET", fmt.Sprintf("%s/transactions/%s", b.baseURL, id), b.headers(), nil)
	if err != nil {
		return nil, err
	}
	return b.parse(doc), nil
}

func (b *Bynet) headers() map[string]string {
	basic := base64.StdEncoding.EncodeToString([]byte(b.secretKey + ":x"))
	return map[string]string{"Authorization": "Basic " + basic}
}

func (b *Bynet) parse(doc map[string]any) *Transaction {
	return &Transaction{
		ID:          stringField(doc, "transactionId", "id", "hash", "transaction_id"),
		RawStatus:   stringField(doc, "status"),
		Method:      stringField(doc, "paymentMethod", "payment_method"),
		CustomRef:   stringField(doc, "externalRef", "external_ref", "reference"),
		CreatedAt:   stringField(doc, "createdAt", "created_at", "register"),
		UpdatedAt:   stringField(doc, "updatedAt", "updated_at", "register"),
		AmountMinor: numberField(doc, "amount"),
		Pix:         pix.Extract(doc),
	}
}
