package memory

import (
	"context"
	"sync"

	"payment-gateway/pkg/ledger"
)

// MemoryStore is an in-memory ledger store. Records live for the process
// lifetime only; there is no durability. The mutex protects the slice and
// index, not the business-level read-then-flip done by status checks — two
// concurrent checks on the same pending ID may still both observe pending.
type MemoryStore struct {
	mu    sync.RWMutex
	order []*ledger.Transaction
	byID  map[string]*ledger.Transaction
}

// NewMemoryStore creates an empty in-memory ledger store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byID: make(map[string]*ledger.Transaction),
	}
}

// Append inserts the transaction at the front of the ledger ordering.
func (s *MemoryStore) Append(ctx context.Context, tx *ledger.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.order = append([]*ledger.Transaction{tx}, s.order...)
	s.byID[tx.ID] = tx
	return nil
}

// Find returns the transaction with the given ID, or ledger.ErrNotFound.
func (s *MemoryStore) Find(ctx context.Context, id string) (*ledger.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tx, ok := s.byID[id]
	if !ok {
		return nil, ledger.ErrNotFound
	}
	return tx, nil
}

// Update is a no-op beyond existence checking: Find hands out the stored
// record itself, so field mutation is already visible to later reads.
func (s *MemoryStore) Update(ctx context.Context, tx *ledger.Transaction) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.byID[tx.ID]; !ok {
		return ledger.ErrNotFound
	}
	return nil
}

// List returns all transactions most-recent-first.
func (s *MemoryStore) List(ctx context.Context) ([]*ledger.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*ledger.Transaction, len(s.order))
	copy(out, s.order)
	return out, nil
}

// Close releases nothing; it exists to satisfy ledger.Store.
func (s *MemoryStore) Close() error {
	return nil
}
