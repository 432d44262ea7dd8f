// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 TierGate Contributors

package whitelist

import (
	"context"
	"sync"
)

// MemoryStore is a Store kept in process memory. Used by the memory driver
// and in tests.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]Entry
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]Entry)}
}

// ListWhitelist returns all stored entries.
func (m *MemoryStore) ListWhitelist(_ context.Context) ([]Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Entry, 0, len(m.entries))
	for _, e := range m.entries {
		out = append(out, e)
	}
	return out, nil
}

// AddWhitelist stores entry, replacing any existing entry for the address.
func (m *MemoryStore) AddWhitelist(_ context.Context, entry Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[entry.Address] = entry
	return nil
}

// RemoveWhitelist deletes address if present.
func (m *MemoryStore) RemoveWhitelist(_ context.Context, address string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, address)
	return nil
}

var _ Store = (*MemoryStore)(nil)
