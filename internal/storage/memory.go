package storage

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is an in-process Store. It is the default backend in
// development and the fake used throughout the tests. State is lost on
// restart, which matches the rebuildable nature of everything stored here.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[Scope]map[string]memoryEntry
}

type memoryEntry struct {
	value     string
	updatedAt time.Time
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[Scope]map[string]memoryEntry),
	}
}

// Get retrieves the value for a key within a scope.
func (m *MemoryStore) Get(ctx context.Context, scope Scope, key string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if keys, ok := m.entries[scope]; ok {
		if e, ok := keys[key]; ok {
			return e.value, nil
		}
	}
	return "", ErrNotFound
}

// Set writes a value, overwriting any previous value for the key.
func (m *MemoryStore) Set(ctx context.Context, scope Scope, key string, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.entries[scope]; !ok {
		m.entries[scope] = make(map[string]memoryEntry)
	}
	m.entries[scope][key] = memoryEntry{value: value, updatedAt: time.Now()}
	return nil
}

// Delete removes a key.
func (m *MemoryStore) Delete(ctx context.Context, scope Scope, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if keys, ok := m.entries[scope]; ok {
		delete(keys, key)
		if len(keys) == 0 {
			delete(m.entries, scope)
		}
	}
	return nil
}

// Ping always succeeds for the in-memory store.
func (m *MemoryStore) Ping(ctx context.Context) error {
	return nil
}

// Close is a no-op for the in-memory store.
func (m *MemoryStore) Close() error {
	return nil
}

// DeleteOlderThan removes entries not written for at least the given age.
func (m *MemoryStore) DeleteOlderThan(ctx context.Context, age time.Duration) (int64, error) {
	threshold := time.Now().Add(-age)

	m.mu.Lock()
	defer m.mu.Unlock()

	var deleted int64
	for scope, keys := range m.entries {
		for key, e := range keys {
			if e.updatedAt.Before(threshold) {
				delete(keys, key)
				deleted++
			}
		}
		if len(keys) == 0 {
			delete(m.entries, scope)
		}
	}
	return deleted, nil
}
