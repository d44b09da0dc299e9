package client

import "sync"

// Store caches the last transaction id so a restarted client resumes polling
// for the existing transaction instead of creating a duplicate one. Payment
// secrets are never written here.
type Store interface {
	SaveTransactionID(id string)
	TransactionID() string
	Clear()
}

// MemoryStore is the session-scoped in-memory Store.
type MemoryStore struct {
	mu sync.Mutex
	id string
}

func NewMemoryStore() *MemoryStore { return &MemoryStore{} }

func (s *MemoryStore) SaveTransactionID(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.id = id
}

func (s *MemoryStore) TransactionID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.id
}

func (s *MemoryStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.id = ""
}
