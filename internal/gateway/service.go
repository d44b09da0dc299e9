package gateway

import (
	"context"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/chipinfinity/checkout-api/internal/money"
	"github.com/chipinfinity/checkout-api/internal/pix"
	"github.com/chipinfinity/checkout-api/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DebugInfo accumulates per-request diagnostics, returned only when the
// caller asked for debug mode. A nil receiver discards everything.
type DebugInfo struct {
	mu               sync.Mutex
	Provider         string            `json:"provider"`
	RecoveryAttempts []RecoveryAttempt `json:"recoveryAttempts,omitempty"`
}

func (d *DebugInfo) AddRecoveryAttempt(a RecoveryAttempt) {
	if d == nil {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.RecoveryAttempts = append(d.RecoveryAttempts, a)
}

// CreateResult is the creation outcome handed back to the HTTP layer. Status
// keeps the lenient normalization: unmapped gateway vocabulary passes through
// lower-cased so callers can still display it.
type CreateResult struct {
	ID     string
	Status string
	Pix    *pix.Payload
	Debug  *DebugInfo
}

// StatusResult is the normalized status view of one transaction.
type StatusResult struct {
	ID        string
	Status    pix.Status
	Method    string
	CustomRef string
	CreatedAt string
	UpdatedAt string
	Amount    float64
	Pix       *pix.Payload
	Debug     *DebugInfo
}

// ServiceOptions bound the synchronous recovery cycles run inside a request.
type ServiceOptions struct {
	RecoveryDelay     time.Duration
	RecoveryMaxCreate int
	RecoveryMaxStatus int
	ProductName       string
	PostbackURL       string // default webhook target when the request has none
}

// Service drives one provider: validates checkout requests, creates
// transactions, and runs the blocking PIX recovery cycle when the gateway
// answered without the artifact.
type Service struct {
	provider Provider
	log      *zap.Logger
	opts     ServiceOptions
}

func NewService(provider Provider, log *zap.Logger, opts ServiceOptions) *Service {
	if opts.RecoveryDelay <= 0 {
		opts.RecoveryDelay = 750 * time.Millisecond
	}
	if opts.RecoveryMaxCreate <= 0 {
		opts.RecoveryMaxCreate = 12
	}
	if opts.RecoveryMaxStatus <= 0 {
		opts.RecoveryMaxStatus = 8
	}
	return &Service{provider: provider, log: log, opts: opts}
}

func (s *Service) Provider() string { return s.provider.Name() }

// Create validates and submits one checkout. When the creation response lacks
// PIX data but carries an identifier, it blocks on one bounded recovery cycle
// before answering, so callers are not returned a premature "pix: null".
func (s *Service) Create(ctx context.Context, req CheckoutRequest, debug bool) (*CreateResult, error) {
	if err := s.validate(&req); err != nil {
		telemetry.IncTransactionFailed("validation")
		return nil, err
	}

	var dbg *DebugInfo
	if debug {
		dbg = &DebugInfo{Provider: s.provider.Name()}
	}

	tx, err := s.provider.Create(ctx, req)
	if err != nil {
		telemetry.IncTransactionFailed(failureReason(err))
		return nil, err
	}

	telemetry.IncTransactionCreated(s.provider.Name(), tx.Pix != nil)

	payload := tx.Pix
	if payload == nil && tx.ID != "" {
		payload = RecoverPix(ctx, s.log, s.provider, tx.ID, s.opts.RecoveryMaxCreate, s.opts.RecoveryDelay, dbg)
	}

	status := pix.NormalizeStatusLenient(tx.RawStatus)
	if tx.RawStatus == "" {
		status = string(pix.StatusPending)
	}

	return &CreateResult{
		ID:     tx.ID,
		Status: status,
		Pix:    payload,
		Debug:  dbg,
	}, nil
}

// Status fetches and normalizes one transaction, mirroring Create's blocking
// recovery so clients need not special-case the first call versus later polls.
func (s *Service) Status(ctx context.Context, id string, debug bool) (*StatusResult, error) {
	var dbg *DebugInfo
	if debug {
		dbg = &DebugInfo{Provider: s.provider.Name()}
	}

	tx, err := s.provider.Fetch(ctx, id)
	if err != nil {
		return nil, err
	}

	payload := tx.Pix
	if payload == nil {
		payload = RecoverPix(ctx, s.log, s.provider, id, s.opts.RecoveryMaxStatus, s.opts.RecoveryDelay, dbg)
	}

	txID := tx.ID
	if txID == "" {
		txID = id
	}
	method := tx.Method
	if method == "" {
		method = "pix"
	}

	return &StatusResult{
		ID:        txID,
		Status:    pix.NormalizeStatus(tx.RawStatus),
		Method:    method,
		CustomRef: tx.CustomRef,
		CreatedAt: tx.CreatedAt,
		UpdatedAt: tx.UpdatedAt,
		Amount:    money.FromMinorUnits(tx.AmountMinor),
		Pix:       payload,
		Debug:     dbg,
	}, nil
}

// validate rejects bad input before any network call and normalizes the
// request in place: digits-only document, synthetic fallback cart item,
// generated external reference.
func (s *Service) validate(req *CheckoutRequest) error {
	if math.IsNaN(req.Amount) || math.IsInf(req.Amount, 0) || req.Amount <= 0 {
		return &ValidationError{Reason: "amount must be a positive number"}
	}
	if strings.TrimSpace(req.Customer.Name) == "" {
		return &ValidationError{Reason: "customer name is required"}
	}
	if strings.TrimSpace(req.Customer.Email) == "" {
		return &ValidationError{Reason: "customer email is required"}
	}
	if strings.TrimSpace(req.Customer.Phone) == "" {
		return &ValidationError{Reason: "customer phone is required"}
	}
	req.Customer.Document = digitsOnly(req.Customer.Document)
	if req.Customer.Document == "" {
		return &ValidationError{Reason: "customer document is required"}
	}
	req.Customer.Phone = digitsOnly(req.Customer.Phone)

	if len(req.Cart) == 0 {
		// whole order as a single line item
		req.Cart = []CartItem{{
			Title:     s.opts.ProductName,
			UnitPrice: req.Amount,
			Quantity:  1,
		}}
	}
	for i := range req.Cart {
		if req.Cart[i].Quantity <= 0 {
			req.Cart[i].Quantity = 1
		}
	}

	if req.PostbackURL == "" {
		req.PostbackURL = s.opts.PostbackURL
	}
	if req.ExternalRef == "" {
		req.ExternalRef = "order_" + uuid.NewString()
	}
	return nil
}

func failureReason(err error) string {
	switch err.(type) {
	case *ConfigError:
		return "config"
	case *Error:
		return "upstream"
	default:
		return "network"
	}
}

func digitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
