package storage

import (
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreNewestFirst(t *testing.T) {
	s := NewMemoryStore(10)
	for i := 0; i < 3; i++ {
		s.Append(Receipt{
			ID:            uuid.New(),
			TransactionID: fmt.Sprintf("tx-%d", i),
			Status:        "pending",
			ReceivedAt:    time.Now(),
		})
	}

	out := s.List()
	require.Len(t, out, 3)
	assert.Equal(t, "tx-2", out[0].TransactionID)
	assert.Equal(t, "tx-0", out[2].TransactionID)
}

func TestMemoryStoreBounded(t *testing.T) {
	s := NewMemoryStore(2)
	for i := 0; i < 5; i++ {
		s.Append(Receipt{TransactionID: fmt.Sprintf("tx-%d", i)})
	}

	out := s.List()
	require.Len(t, out, 2)
	assert.Equal(t, "tx-4", out[0].TransactionID, "oldest receipts are evicted")
	assert.Equal(t, "tx-3", out[1].TransactionID)
}

func TestMemoryStoreDefaultLimit(t *testing.T) {
	s := NewMemoryStore(0)
	for i := 0; i < 250; i++ {
		s.Append(Receipt{TransactionID: fmt.Sprintf("tx-%d", i)})
	}
	assert.Len(t, s.List(), 200)
}
