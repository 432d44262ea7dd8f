// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 TierGate Contributors

package directory

import (
	"context"
	"sync"

	"github.com/tiergate/tiergate/internal/access"
)

// MemoryStore is a Store kept in process memory.
type MemoryStore struct {
	mu    sync.Mutex
	users map[string]*User
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{users: make(map[string]*User)}
}

// GetUser returns a copy of the stored record.
func (m *MemoryStore) GetUser(_ context.Context, address string) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[address]
	if !ok {
		return nil, access.ErrNotFound("user", address)
	}
	return u.Clone(), nil
}

// PutUser stores a copy of u.
func (m *MemoryStore) PutUser(_ context.Context, u *User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[u.Address] = u.Clone()
	return nil
}

// ListUsers returns copies of all stored records.
func (m *MemoryStore) ListUsers(_ context.Context) ([]*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*User, 0, len(m.users))
	for _, u := range m.users {
		out = append(out, u.Clone())
	}
	return out, nil
}

var _ Store = (*MemoryStore)(nil)
