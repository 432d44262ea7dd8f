// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 TierGate Contributors

// Package directory holds the durable address → user record map.
//
// Reads are served from an in-memory index loaded once at startup; writes go
// to the Store first and only then replace the indexed record. Records are
// never deleted.
package directory

import (
	"cmp"
	"context"
	"slices"
	"sync"

	"github.com/samber/oops"

	"github.com/tiergate/tiergate/internal/access"
)

// Store persists user records.
type Store interface {
	// GetUser returns a NOT_FOUND error when no record exists.
	GetUser(ctx context.Context, address string) (*User, error)
	PutUser(ctx context.Context, u *User) error
	ListUsers(ctx context.Context) ([]*User, error)
}

// Directory is a write-through index over a Store.
// It does not serialize read-modify-write cycles; callers own per-address
// ordering.
type Directory struct {
	store Store

	mu    sync.RWMutex
	users map[string]*User
}

// New creates a Directory backed by store. If store is nil, a MemoryStore is used.
func New(store Store) *Directory {
	if store == nil {
		store = NewMemoryStore()
	}
	return &Directory{
		store: store,
		users: make(map[string]*User),
	}
}

// Load replaces the index with every persisted record.
func (d *Directory) Load(ctx context.Context) error {
	stored, err := d.store.ListUsers(ctx)
	if err != nil {
		return oops.In("directory").Code("DIRECTORY_LOAD_FAILED").Wrap(err)
	}

	users := make(map[string]*User, len(stored))
	for _, u := range stored {
		users[u.Address] = u.Clone()
	}

	d.mu.Lock()
	d.users = users
	d.mu.Unlock()
	return nil
}

// Get returns a copy of the record for address.
func (d *Directory) Get(address string) (*User, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	u, ok := d.users[address]
	if !ok {
		return nil, false
	}
	return u.Clone(), true
}

// Put persists u and then indexes a copy of it.
func (d *Directory) Put(ctx context.Context, u *User) error {
	if err := d.store.PutUser(ctx, u); err != nil {
		return oops.In("directory").
			Code("DIRECTORY_PUT_FAILED").
			With("address", u.Address).
			Wrap(err)
	}

	d.mu.Lock()
	d.users[u.Address] = u.Clone()
	d.mu.Unlock()
	return nil
}

// List returns copies of every record ordered by join time, then address.
func (d *Directory) List() []*User {
	d.mu.RLock()
	out := make([]*User, 0, len(d.users))
	for _, u := range d.users {
		out = append(out, u.Clone())
	}
	d.mu.RUnlock()

	slices.SortFunc(out, func(a, b *User) int {
		if c := a.JoinedAt.Compare(b.JoinedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.Address, b.Address)
	})
	return out
}

// Len returns the number of records.
func (d *Directory) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.users)
}

// TierCounts returns how many records fall into each tier. Every tier is
// present in the result.
func (d *Directory) TierCounts() map[access.Tier]int {
	counts := make(map[access.Tier]int, len(access.Tiers()))
	for _, t := range access.Tiers() {
		counts[t] = 0
	}

	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, u := range d.users {
		counts[u.Tier]++
	}
	return counts
}
