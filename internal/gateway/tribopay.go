package gateway

import (
	"context"
	"fmt"
	"net/url"

	"github.com/chipinfinity/checkout-api/internal/money"
	"github.com/chipinfinity/checkout-api/internal/pix"
	"go.uber.org/zap"
)

// Address fallbacks applied when the checkout form left a field blank. The
// gateway rejects requests with missing address fields, so low-confidence
// defaults go out instead.
const (
	fallbackStreet       = "Não informado"
	fallbackNumber       = "S/N"
	fallbackNeighborhood = "Centro"
	fallbackCity         = "São Paulo"
	fallbackState        = "SP"
	fallbackZip          = "00000000"
)

// TriboPay integrates the TriboPay public API. The credential travels as an
// api_token query parameter; products must be pre-registered, so cart items
// are mapped onto gateway product hashes through an explicit alias table.
type TriboPay struct {
	http         httpJSON
	baseURL      string
	apiToken     string
	offerHash    string
	productHash  string
	productName  string
	expireInDays int

	// internal SKU -> gateway product hash
	productAliases map[string]string
}

func NewTriboPay(baseURL, apiToken, offerHash, productHash, productName string, expireInDays int, http httpJSON) *TriboPay {
	return &TriboPay{
		http:         http,
		baseURL:      baseURL,
		apiToken:     apiToken,
		offerHash:    offerHash,
		productHash:  productHash,
		productName:  productName,
		expireInDays: expireInDays,
		productAliases: map[string]string{
			"chip-infinity": productHash,
		},
	}
}

func (t *TriboPay) Name() string { return "tribopay" }

type triboPayCustomer struct {
	Name         string `json:"name"`
	Email        string `json:"email"`
	PhoneNumber  string `json:"phone_number"`
	Document     string `json:"document"`
	StreetName   string `json:"street_name"`
	Number       string `json:"number"`
	Complement   string `json:"complement"`
	Neighborhood string `json:"neighborhood"`
	City         string `json:"city"`
	State        string `json:"state"`
	ZipCode      string `json:"zip_code"`
}

type triboPayItem struct {
	ProductHash   string  `json:"product_hash"`
	Title         string  `json:"title"`
	Price         int64   `json:"price"`
	Quantity      int     `json:"quantity"`
	OperationType int     `json:"operation_type"`
	Tangible      bool    `json:"tangible"`
	Cover         *string `json:"cover"`
}

type triboPayCreateRequest struct {
	Amount            int64             `json:"amount"`
	OfferHash         string            `json:"offer_hash"`
	PaymentMethod     string            `json:"payment_method"`
	Customer          triboPayCustomer  `json:"customer"`
	Cart              []triboPayItem    `json:"cart"`
	Installments      int               `json:"installments"`
	ExpireInDays      int               `json:"expire_in_days"`
	TransactionOrigin string            `json:"transaction_origin"`
	Tracking          map[string]string `json:"tracking,omitempty"`
	PostbackURL       string            `json:"postback_url,omitempty"`
}

func (t *TriboPay) Create(ctx context.Context, req CheckoutRequest) (*Transaction, error) {
	if t.apiToken == "" {
		return nil, &ConfigError{Missing: "TRIBOPAY_API_TOKEN"}
	}
	if t.offerHash == "" {
		return nil, &ConfigError{Missing: "TRIBOPAY_OFFER_HASH"}
	}

	cart := make([]triboPayItem, 0, len(req.Cart))
	for _, it := range req.Cart {
		title := it.Title
		if title == "" {
			title = t.productName
		}
		cart = append(cart, triboPayItem{
			ProductHash:   t.resolveProductHash(it.ID),
			Title:         title,
			Price:         money.ToMinorUnits(it.UnitPrice),
			Quantity:      it.Quantity,
			OperationType: 1,
			Tangible:      false,
		})
	}

	payload := triboPayCreateRequest{
		Amount:        money.ToMinorUnits(req.Amount),
		OfferHash:     t.offerHash,
		PaymentMethod: "pix",
		Customer: triboPayCustomer{
			Name:         req.Customer.Name,
			Email:        req.Customer.Email,
			PhoneNumber:  req.Customer.Phone,
			Document:     req.Customer.Document,
			StreetName:   withFallback(req.Address.Street, fallbackStreet),
			Number:       withFallback(req.Address.Number, fallbackNumber),
			Complement:   req.Address.Complement,
			Neighborhood: withFallback(req.Address.Neighborhood, fallbackNeighborhood),
			City:         withFallback(req.Address.City, fallbackCity),
			State:        withFallback(req.Address.State, fallbackState),
			ZipCode:      withFallback(req.Address.Zip, fallbackZip),
		},
		Cart:              cart,
		Installments:      1, // PIX is always a single installment
		ExpireInDays:      t.expireInDays,
		TransactionOrigin: "web",
		Tracking:          req.Tracking,
		PostbackURL:       req.PostbackURL,
	}

	t.http.log.Info("creating tribopay transaction",
		zap.String("offer_hash", t.offerHash),
		zap.Int64("amount_cents", payload.Amount),
	)

	doc, err := t.http.do(ctx, "create", "POST", t.endpoint("/transactions"), nil, payload)
	if err != nil {
		return nil, err
	}
	return t.parse(doc), nil
}

func (t *TriboPay) Fetch(ctx context.Context, id string) (*Transaction, error) {
	if t.apiToken == "" {
		return nil, &ConfigError{Missing: "TRIBOPAY_API_TOKEN"}
	}
	doc, err := t.http.do(ctx, "fetch", "GET", t.endpoint("/transactions/"+url.PathEscape(id)), nil, nil)
	if err != nil {
		return nil, err
	}
	return t.parse(doc), nil
}

// resolveProductHash maps an internal SKU onto the pre-registered gateway
// product hash. Unknown SKUs pass through untouched; the configured default
// covers items with no identifier at all.
func (t *TriboPay) resolveProductHash(sku string) string {
	if sku == "" {
		return t.productHash
	}
	if hash, ok := t.productAliases[sku]; ok {
		return hash
	}
	return sku
}

func (t *TriboPay) endpoint(path string) string {
	return fmt.Sprintf("%s%s?api_token=%s", t.baseURL, path, url.QueryEscape(t.apiToken))
}

func (t *TriboPay) parse(doc map[string]any) *Transaction {
	return &Transaction{
		ID:          stringField(doc, "hash", "transaction_hash", "id", "transactionId"),
		RawStatus:   stringField(doc, "payment_status", "status"),
		Method:      stringField(doc, "payment_method", "paymentMethod"),
		CustomRef:   stringField(doc, "external_reference", "reference", "offer_hash"),
		CreatedAt:   stringField(doc, "created_at", "createdAt"),
		UpdatedAt:   stringField(doc, "updated_at", "updatedAt"),
		AmountMinor: numberField(doc, "amount", "total_value"),
		Pix:         pix.Extract(doc),
	}
}

func withFallback(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
