// Package storage keeps the ephemeral postback receipt log. Transaction state
// lives in the gateway; nothing here survives a restart, by contract.
package storage

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Receipt is one acknowledged postback, already normalized.
type Receipt struct {
	ID            uuid.UUID `json:"id"`
	TransactionID string    `json:"transactionId"`
	Status        string    `json:"status"`
	PaymentMethod string    `json:"paymentMethod"`
	Amount        float64   `json:"amount,omitempty"`
	ReceivedAt    time.Time `json:"receivedAt"`
}

type ReceiptRepo interface {
	Append(Receipt)
	List() []Receipt
}

// MemoryStore implements ReceiptRepo: bounded ring of the most recent receipts.
type MemoryStore struct {
	mu       sync.RWMutex
	receipts []Receipt
	limit    int
}

func NewMemoryStore(limit int) *MemoryStore {
	if limit <= 0 {
		limit = 200
	}
	return &MemoryStore{limit: limit}
}

func (s *MemoryStore) Append(r Receipt) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.receipts = append(s.receipts, r)
	if len(s.receipts) > s.limit {
		s.receipts = s.receipts[len(s.receipts)-s.limit:]
	}
}

// List returns newest-first.
func (s *MemoryStore) List() []Receipt {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Receipt, len(s.receipts))
	for i, r := range s.receipts {
		out[len(s.receipts)-1-i] = r
	}
	return out
}
