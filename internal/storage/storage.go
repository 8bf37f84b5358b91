// Package storage provides the tab-scoped key-value store that backs all
// session, flow, and entitlement state. Implementations exist for an
// in-memory map, SQLite, and Redis; consumers depend only on the Store
// interface so tests can swap in the in-memory fake.
package storage

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when the requested key is absent from the store.
// Every consumer treats an absent key as a safe default, so callers should
// branch on this error rather than surface it.
var ErrNotFound = errors.New("storage: key not found")

// Scope identifies the owner of a set of keys: one anonymous device and one
// browser tab. Two tabs on the same device never share keys, matching the
// tab-scoped semantics of the web client this service backs.
type Scope struct {
	DeviceID string
	TabID    string
}

// Store is the persistence interface for tab-scoped state.
// All values are strings; typed access lives in Bag.
type Store interface {
	// Get retrieves the value for a key within a scope.
	// Returns ErrNotFound if the key is absent.
	Get(ctx context.Context, scope Scope, key string) (string, error)

	// Set writes a value, overwriting any previous value for the key.
	Set(ctx context.Context, scope Scope, key string, value string) error

	// Delete removes a key. Deleting an absent key is not an error.
	Delete(ctx context.Context, scope Scope, key string) error

	// Ping verifies backend connectivity.
	Ping(ctx context.Context) error

	// Close releases backend resources.
	Close() error
}

// Sweeper is an optional interface for durable backends that accumulate
// rows and need periodic cleanup of stale entries. Backends with native
// expiry (Redis) do not implement it.
type Sweeper interface {
	// DeleteOlderThan removes entries not written for at least the given
	// age and reports how many were removed.
	DeleteOlderThan(ctx context.Context, age time.Duration) (int64, error)
}
