// Package client drives the checkout experience against the storefront API:
// submit, wait for a payable PIX artifact, watch for payment confirmation.
// It is the headless counterpart of the browser flow.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/chipinfinity/checkout-api/internal/pix"
)

// API is a thin HTTP client for the storefront transaction endpoints.
type API struct {
	base string
	hc   *http.Client
}

func NewAPI(baseURL string, timeout time.Duration) *API {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &API{base: baseURL, hc: &http.Client{Timeout: timeout}}
}

// CheckoutForm is what the buyer fills in. Amount and item prices in reais.
type CheckoutForm struct {
	Name  string
	Email string
	Phone string
	CPF   string

	CEP        string
	Street     string
	Number     string
	Complement string
	City       string
	State      string

	Amount   float64
	Items    []FormItem
	Tracking map[string]string
}

type FormItem struct {
	ID       string
	Title    string
	Price    float64
	Quantity int
}

// CreateOutcome is a parsed creation response. Pix stays nil when the server
// answered without a code; ID may still be present for follow-up polling.
type CreateOutcome struct {
	ID     string
	Status string
	Pix    *pix.Payload
}

// StatusOutcome is a parsed status poll.
type StatusOutcome struct {
	ID     string
	Status string
	Pix    *pix.Payload
}

func (a *API) Create(ctx context.Context, form CheckoutForm) (*CreateOutcome, error) {
	cart := make([]map[string]any, 0, len(form.Items))
	for _, it := range form.Items {
		qty := it.Quantity
		if qty <= 0 {
			qty = 1
		}
		cart = append(cart, map[string]any{
			"product_hash": it.ID,
			"title":        it.Title,
			"price":        int64(it.Price*100 + 0.5),
			"quantity":     qty,
		})
	}

	body := map[string]any{
		"amount":         form.Amount,
		"payment_method": "pix",
		"customer": map[string]any{
			"name":         form.Name,
			"email":        form.Email,
			"phone_number": form.Phone,
			"document":     form.CPF,
			"street_name":  form.Street,
			"number":       form.Number,
			"complement":   form.Complement,
			"city":         form.City,
			"state":        form.State,
			"zip_code":     form.CEP,
		},
		"cart":         cart,
		"installments": 1,
	}
	if len(form.Tracking) > 0 {
		body["tracking"] = form.Tracking
	}

	doc, err := a.postJSON(ctx, a.base+"/api/v1/transactions", body)
	if err != nil {
		return nil, err
	}

	return &CreateOutcome{
		ID:     stringAt(doc, "id"),
		Status: stringAt(doc, "status"),
		Pix:    pix.Extract(doc),
	}, nil
}

func (a *API) Status(ctx context.Context, id string) (*StatusOutcome, error) {
	u := fmt.Sprintf("%s/api/v1/transactions?id=%s", a.base, url.QueryEscape(id))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	doc, err := a.doJSON(req)
	if err != nil {
		return nil, err
	}
	return &StatusOutcome{
		ID:     stringAt(doc, "id"),
		Status: stringAt(doc, "status"),
		Pix:    pix.Extract(doc),
	}, nil
}

func (a *API) postJSON(ctx context.Context, url string, body any) (map[string]any, error) {
	encoded, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(encoded))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return a.doJSON(req)
}

func (a *API) doJSON(req *http.Request) (map[string]any, error) {
	resp, err := a.hc.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, err
	}

	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("malformed response (HTTP %d)", resp.StatusCode)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := stringAt(doc, "message")
		if msg == "" {
			msg = stringAt(doc, "error")
		}
		if msg == "" {
			msg = fmt.Sprintf("HTTP %d", resp.StatusCode)
		}
		return nil, fmt.Errorf("checkout API: %s", msg)
	}
	return doc, nil
}

func stringAt(doc map[string]any, key string) string {
	s, _ := doc[key].(string)
	return s
}
