// Package gateway talks to the upstream PIX payment gateways. A Provider
// builds the gateway-specific request, submits it, and parses the divergent
// response shapes back into the one Transaction type everything else consumes.
package gateway

import (
	"context"
	"fmt"

	"github.com/chipinfinity/checkout-api/internal/pix"
)

// Customer is the buyer identification required by every gateway.
// Document is CPF digits only after validation.
type Customer struct {
	Name     string
	Email    string
	Phone    string
	Document string
}

// Address is the shipping address some gateways require. Empty fields get
// the documented fallbacks before a request is built.
type Address struct {
	Street       string
	Number       string
	Complement   string
	Neighborhood string
	City         string
	State        string
	Zip          string
}

// CartItem is one checkout line item, priced in major units.
type CartItem struct {
	ID        string
	Title     string
	UnitPrice float64
	Quantity  int
}

// CheckoutRequest is the provider-agnostic creation request. Amount is in
// major units; providers convert to cents themselves.
type CheckoutRequest struct {
	Amount      float64
	Customer    Customer
	Address     Address
	Cart        []CartItem
	Tracking    map[string]string
	PostbackURL string
	ExternalRef string
	SessionID   string
	UserAgent   string
}

// Transaction is the normalized view of a gateway transaction. RawStatus is
// whatever the gateway said; normalization happens at the service layer.
type Transaction struct {
	ID          string
	RawStatus   string
	Method      string
	CustomRef   string
	CreatedAt   string
	UpdatedAt   string
	AmountMinor int64
	Pix         *pix.Payload
}

// Provider is one gateway integration strategy.
type Provider interface {
	Name() string
	Create(ctx context.Context, req CheckoutRequest) (*Transaction, error)
	Fetch(ctx context.Context, id string) (*Transaction, error)
}

// Error carries a failed upstream exchange: the gateway's HTTP status, its
// message, and a truncated excerpt of the raw body for diagnostics.
type Error struct {
	StatusCode int
	Message    string
	Body       string
}

func (e *Error) Error() string {
	return fmt.Sprintf("gateway error (status %d): %s", e.StatusCode, e.Message)
}

// ConfigError means a required credential or identifier is absent. Raised
// before any network call; surfaces as HTTP 500.
type ConfigError struct {
	Missing string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("gateway configuration missing: %s", e.Missing)
}

// ValidationError is a rejected checkout request. Surfaces as HTTP 400 and
// is never logged as a system failure.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return e.Reason }
