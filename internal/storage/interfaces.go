package storage

import (
	"solana-token-screener/internal/domain"
)

// TokenStore owns the live in-memory token collection, keyed by address and
// ordered by insertion. It is bounded: inserting past capacity evicts the
// oldest-inserted record (FIFO by insertion order, not last-update time).
type TokenStore interface {
	// ReplaceAll discards the current collection and installs records
	// verbatim, preserving the given order as insertion order. An empty
	// slice yields an empty store. When the same address appears more
	// than once, the last occurrence wins.
	ReplaceAll(records []*domain.Token)

	// UpsertPatch merges p into the record with the given address, field
	// by field; fields absent from the patch are left untouched. Returns
	// false and performs no mutation when the address is not present.
	UpsertPatch(address string, p domain.TokenPatch) bool

	// InsertNew inserts t at the front of the collection. When the
	// insertion would exceed the capacity bound, exactly one record is
	// evicted from the tail.
	InsertNew(t *domain.Token)

	// Get retrieves a copy of the record for address. Returns ErrNotFound
	// if not present.
	Get(address string) (*domain.Token, error)

	// Snapshot returns a deep copy of the collection in insertion order.
	// Mutating the returned records never affects the store.
	Snapshot() []*domain.Token

	// Len returns the current number of records.
	Len() int
}
