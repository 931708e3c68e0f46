package memory

import (
	"sync"

	"solana-token-screener/internal/domain"
	"solana-token-screener/internal/storage"
)

// DefaultCapacity is the soft upper bound of the live collection.
const DefaultCapacity = 100

// TokenStore is an in-memory implementation of storage.TokenStore.
// Insertion order is tracked separately from the address index so FIFO
// eviction and snapshot ordering stay independent of any display sort.
type TokenStore struct {
	mu       sync.RWMutex
	capacity int
	order    []string                 // addresses, newest first
	byAddr   map[string]*domain.Token // keyed by mint address
}

// NewTokenStore creates a store with the default capacity bound.
func NewTokenStore() *TokenStore {
	return NewTokenStoreWithCapacity(DefaultCapacity)
}

// NewTokenStoreWithCapacity creates a store with a custom bound.
// A non-positive capacity falls back to the default.
func NewTokenStoreWithCapacity(capacity int) *TokenStore {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &TokenStore{
		capacity: capacity,
		byAddr:   make(map[string]*domain.Token),
	}
}

// ReplaceAll discards the current collection and installs records verbatim.
func (s *TokenStore) ReplaceAll(records []*domain.Token) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.order = s.order[:0]
	s.byAddr = make(map[string]*domain.Token, len(records))

	for _, r := range records {
		if r == nil || r.Address == "" {
			continue
		}
		if _, exists := s.byAddr[r.Address]; !exists {
			s.order = append(s.order, r.Address)
		}
		// Last occurrence wins for duplicate addresses.
		tokenCopy := *r
		s.byAddr[r.Address] = &tokenCopy
	}
}

// UpsertPatch merges p into the record for address, if present.
func (s *TokenStore) UpsertPatch(address string, p domain.TokenPatch) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, exists := s.byAddr[address]
	if !exists {
		return false
	}
	p.ApplyTo(t)
	return true
}

// InsertNew inserts t at the front, evicting the oldest-inserted record when
// the capacity bound would be exceeded.
func (s *TokenStore) InsertNew(t *domain.Token) {
	if t == nil || t.Address == "" {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byAddr[t.Address]; exists {
		// Re-announced token: refresh fields, keep its insertion slot.
		tokenCopy := *t
		s.byAddr[t.Address] = &tokenCopy
		return
	}

	tokenCopy := *t
	s.order = append([]string{t.Address}, s.order...)
	s.byAddr[t.Address] = &tokenCopy

	if len(s.order) > s.capacity {
		oldest := s.order[len(s.order)-1]
		s.order = s.order[:len(s.order)-1]
		delete(s.byAddr, oldest)
	}
}

// Get retrieves a copy of the record for address.
func (s *TokenStore) Get(address string) (*domain.Token, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, exists := s.byAddr[address]
	if !exists {
		return nil, storage.ErrNotFound
	}
	tokenCopy := *t
	return &tokenCopy, nil
}

// Snapshot returns a deep copy of the collection in insertion order.
func (s *TokenStore) Snapshot() []*domain.Token {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*domain.Token, 0, len(s.order))
	for _, addr := range s.order {
		t := s.byAddr[addr]
		tokenCopy := *t
		out = append(out, &tokenCopy)
	}
	return out
}

// Len returns the current number of records.
func (s *TokenStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}

// Verify interface compliance at compile time.
var _ storage.TokenStore = (*TokenStore)(nil)
