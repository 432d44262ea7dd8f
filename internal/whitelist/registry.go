// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 TierGate Contributors

// Package whitelist tracks the addresses granted administrative standing.
//
// The registry holds two subsets: a compiled-in permanent subset that can
// never be removed, and a dynamic subset that existing admins edit at runtime.
// Every successful edit is persisted before the call returns.
package whitelist

import (
	"cmp"
	"context"
	"slices"
	"sync"
	"time"

	"github.com/samber/oops"

	"github.com/tiergate/tiergate/internal/access"
)

// Entry is a dynamic whitelist member.
type Entry struct {
	Address string
	AddedBy string
	AddedAt time.Time
}

// Store persists the dynamic subset.
type Store interface {
	ListWhitelist(ctx context.Context) ([]Entry, error)
	AddWhitelist(ctx context.Context, entry Entry) error
	RemoveWhitelist(ctx context.Context, address string) error
}

// Registry implements the whitelist.
//
// Thread-safety: permanent is immutable after construction. dynamic is
// protected by mu; writers hold mu across persistence so edits are globally
// serialized.
type Registry struct {
	permanent  access.Set[string]
	superAdmin string
	store      Store
	now        func() time.Time

	mu      sync.RWMutex
	dynamic map[string]Entry
}

// Option configures a Registry.
type Option func(*Registry)

// WithClock overrides the time source used for AddedAt.
func WithClock(now func() time.Time) Option {
	return func(r *Registry) {
		r.now = now
	}
}

// NewRegistry creates a registry over store with the given permanent
// entries. The first permanent entry is the super admin.
//
// Returns error if permanent is empty or contains an empty address.
func NewRegistry(store Store, permanent []string, opts ...Option) (*Registry, error) {
	if len(permanent) == 0 {
		return nil, oops.In("whitelist").
			Code("WHITELIST_NO_PERMANENT").
			Errorf("at least one permanent whitelist entry is required")
	}
	if store == nil {
		store = NewMemoryStore()
	}

	perm := access.NewSet[string]()
	for _, addr := range permanent {
		normalized, err := access.NormalizeAddress(addr)
		if err != nil {
			return nil, oops.In("whitelist").With("entry", addr).Wrap(err)
		}
		perm.Add(normalized)
	}
	superAdmin, _ := access.NormalizeAddress(permanent[0]) //nolint:errcheck // validated above

	r := &Registry{
		permanent:  perm,
		superAdmin: superAdmin,
		store:      store,
		now:        time.Now,
		dynamic:    make(map[string]Entry),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Load replaces the dynamic subset with the persisted one.
func (r *Registry) Load(ctx context.Context) error {
	entries, err := r.store.ListWhitelist(ctx)
	if err != nil {
		return oops.In("whitelist").Code("WHITELIST_LOAD_FAILED").Wrap(err)
	}

	dynamic := make(map[string]Entry, len(entries))
	for _, e := range entries {
		if r.permanent.Has(e.Address) {
			continue
		}
		dynamic[e.Address] = e
	}

	r.mu.Lock()
	r.dynamic = dynamic
	r.mu.Unlock()
	return nil
}

// IsWhitelisted reports whether address is a permanent or dynamic entry.
func (r *Registry) IsWhitelisted(address string) bool {
	if r.permanent.Has(address) {
		return true
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.dynamic[address]
	return ok
}

// IsPermanent reports whether address is a compiled-in entry.
func (r *Registry) IsPermanent(address string) bool {
	return r.permanent.Has(address)
}

// SuperAdmin returns the distinguished first permanent entry.
func (r *Registry) SuperAdmin() string {
	return r.superAdmin
}

// Add whitelists address on behalf of requestedBy, who must already be
// whitelisted. Adding a present address is a no-op; added reports whether
// the set changed.
func (r *Registry) Add(ctx context.Context, address, requestedBy string) (added bool, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.isWhitelistedLocked(requestedBy) {
		return false, access.ErrUnauthorized("whitelist_add", requestedBy)
	}
	if r.isWhitelistedLocked(address) {
		return false, nil
	}

	entry := Entry{Address: address, AddedBy: requestedBy, AddedAt: r.now().UTC()}
	if err := r.store.AddWhitelist(ctx, entry); err != nil {
		return false, oops.In("whitelist").
			Code("WHITELIST_ADD_FAILED").
			With("address", address).
			Wrap(err)
	}
	r.dynamic[address] = entry
	return true, nil
}

// Remove drops address from the dynamic subset on behalf of requestedBy.
// Permanent entries are always rejected with PROTECTED_ENTRY, regardless of
// requester. Removing an absent address is a no-op.
func (r *Registry) Remove(ctx context.Context, address, requestedBy string) (removed bool, err error) {
	if r.permanent.Has(address) {
		return false, access.ErrProtectedEntry("whitelist entry", address)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.isWhitelistedLocked(requestedBy) {
		return false, access.ErrUnauthorized("whitelist_remove", requestedBy)
	}
	if _, ok := r.dynamic[address]; !ok {
		return false, nil
	}

	if err := r.store.RemoveWhitelist(ctx, address); err != nil {
		return false, oops.In("whitelist").
			Code("WHITELIST_REMOVE_FAILED").
			With("address", address).
			Wrap(err)
	}
	delete(r.dynamic, address)
	return true, nil
}

// All returns a sorted snapshot of permanent and dynamic entries.
func (r *Registry) All() []string {
	r.mu.RLock()
	all := r.permanent.Clone()
	for addr := range r.dynamic {
		all.Add(addr)
	}
	r.mu.RUnlock()
	return all.Sorted()
}

// Dynamic returns the mutable entries ordered by address.
func (r *Registry) Dynamic() []Entry {
	r.mu.RLock()
	entries := make([]Entry, 0, len(r.dynamic))
	for _, e := range r.dynamic {
		entries = append(entries, e)
	}
	r.mu.RUnlock()

	slices.SortFunc(entries, func(a, b Entry) int {
		return cmp.Compare(a.Address, b.Address)
	})
	return entries
}

// Len returns the total number of entries.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.permanent) + len(r.dynamic)
}

func (r *Registry) isWhitelistedLocked(address string) bool {
	if r.permanent.Has(address) {
		return true
	}
	_, ok := r.dynamic[address]
	return ok
}
