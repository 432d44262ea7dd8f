// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 TierGate Contributors

package whitelist_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tiergate/tiergate/internal/access"
	"github.com/tiergate/tiergate/internal/access/accesstest"
	"github.com/tiergate/tiergate/internal/whitelist"
	"github.com/tiergate/tiergate/pkg/errutil"
)

func newRegistry(t *testing.T, store whitelist.Store) *whitelist.Registry {
	t.Helper()
	r, err := whitelist.NewRegistry(store, access.PermanentAdmins)
	require.NoError(t, err)
	return r
}

// failingStore fails every write.
type failingStore struct {
	*whitelist.MemoryStore
}

func (failingStore) AddWhitelist(context.Context, whitelist.Entry) error {
	return errors.New("disk full")
}

func (failingStore) RemoveWhitelist(context.Context, string) error {
	return errors.New("disk full")
}

func TestNewRegistry_RequiresPermanent(t *testing.T) {
	_, err := whitelist.NewRegistry(nil, nil)
	require.Error(t, err)
	errutil.AssertErrorCode(t, err, "WHITELIST_NO_PERMANENT")

	_, err = whitelist.NewRegistry(nil, []string{""})
	require.Error(t, err)
	errutil.AssertErrorCode(t, err, access.CodeInvalidAddress)
}

func TestRegistry_PermanentEntries(t *testing.T) {
	r := newRegistry(t, nil)

	assert.True(t, r.IsWhitelisted(accesstest.SuperAdmin))
	assert.True(t, r.IsWhitelisted(accesstest.PermanentAdmin))
	assert.True(t, r.IsPermanent(accesstest.PermanentAdmin))
	assert.False(t, r.IsWhitelisted(accesstest.Alice))
	assert.Equal(t, accesstest.SuperAdmin, r.SuperAdmin())
}

func TestRegistry_Add(t *testing.T) {
	ctx := context.Background()
	store := whitelist.NewMemoryStore()
	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	r, err := whitelist.NewRegistry(store, access.PermanentAdmins, whitelist.WithClock(func() time.Time { return fixed }))
	require.NoError(t, err)

	added, err := r.Add(ctx, accesstest.Alice, accesstest.SuperAdmin)
	require.NoError(t, err)
	assert.True(t, added)
	assert.True(t, r.IsWhitelisted(accesstest.Alice))

	persisted, err := store.ListWhitelist(ctx)
	require.NoError(t, err)
	require.Len(t, persisted, 1)
	assert.Equal(t, whitelist.Entry{Address: accesstest.Alice, AddedBy: accesstest.SuperAdmin, AddedAt: fixed}, persisted[0])
}

func TestRegistry_AddIdempotent(t *testing.T) {
	ctx := context.Background()
	r := newRegistry(t, nil)

	_, err := r.Add(ctx, accesstest.Alice, accesstest.SuperAdmin)
	require.NoError(t, err)
	before := r.All()

	added, err := r.Add(ctx, accesstest.Alice, accesstest.SuperAdmin)
	require.NoError(t, err)
	assert.False(t, added)
	assert.Equal(t, before, r.All())

	added, err = r.Add(ctx, accesstest.PermanentAdmin, accesstest.SuperAdmin)
	require.NoError(t, err)
	assert.False(t, added, "permanent entries are already present")
}

func TestRegistry_AddRequiresWhitelistedRequester(t *testing.T) {
	ctx := context.Background()
	r := newRegistry(t, nil)

	_, err := r.Add(ctx, accesstest.Bob, accesstest.Alice)
	require.Error(t, err)
	assert.True(t, access.IsUnauthorized(err))
	assert.False(t, r.IsWhitelisted(accesstest.Bob))
}

func TestRegistry_DynamicAdminCanAdd(t *testing.T) {
	ctx := context.Background()
	r := newRegistry(t, nil)

	_, err := r.Add(ctx, accesstest.Alice, accesstest.SuperAdmin)
	require.NoError(t, err)

	added, err := r.Add(ctx, accesstest.Bob, accesstest.Alice)
	require.NoError(t, err)
	assert.True(t, added)
}

func TestRegistry_RemovePermanentAlwaysProtected(t *testing.T) {
	ctx := context.Background()
	r := newRegistry(t, nil)

	for _, requester := range []string{accesstest.SuperAdmin, accesstest.PermanentAdmin, accesstest.Alice, ""} {
		_, err := r.Remove(ctx, accesstest.PermanentAdmin, requester)
		require.Error(t, err, "requester %q", requester)
		assert.True(t, access.IsProtected(err))
	}
	assert.True(t, r.IsWhitelisted(accesstest.PermanentAdmin))
}

func TestRegistry_Remove(t *testing.T) {
	ctx := context.Background()
	store := whitelist.NewMemoryStore()
	r := newRegistry(t, store)

	_, err := r.Add(ctx, accesstest.Alice, accesstest.SuperAdmin)
	require.NoError(t, err)

	_, err = r.Remove(ctx, accesstest.Alice, accesstest.Bob)
	require.Error(t, err)
	assert.True(t, access.IsUnauthorized(err))

	removed, err := r.Remove(ctx, accesstest.Alice, accesstest.SuperAdmin)
	require.NoError(t, err)
	assert.True(t, removed)
	assert.False(t, r.IsWhitelisted(accesstest.Alice))

	persisted, err := store.ListWhitelist(ctx)
	require.NoError(t, err)
	assert.Empty(t, persisted)

	removed, err = r.Remove(ctx, accesstest.Alice, accesstest.SuperAdmin)
	require.NoError(t, err)
	assert.False(t, removed, "removing an absent entry is a no-op")
}

func TestRegistry_PersistFailureLeavesStateUnchanged(t *testing.T) {
	ctx := context.Background()
	r := newRegistry(t, failingStore{whitelist.NewMemoryStore()})

	_, err := r.Add(ctx, accesstest.Alice, accesstest.SuperAdmin)
	require.Error(t, err)
	errutil.AssertErrorCode(t, err, "WHITELIST_ADD_FAILED")
	assert.False(t, r.IsWhitelisted(accesstest.Alice))
}

func TestRegistry_Load(t *testing.T) {
	ctx := context.Background()
	store := whitelist.NewMemoryStore()
	require.NoError(t, store.AddWhitelist(ctx, whitelist.Entry{Address: accesstest.Carol, AddedBy: accesstest.SuperAdmin}))
	require.NoError(t, store.AddWhitelist(ctx, whitelist.Entry{Address: accesstest.SuperAdmin}))

	r := newRegistry(t, store)
	require.NoError(t, r.Load(ctx))

	assert.True(t, r.IsWhitelisted(accesstest.Carol))
	assert.Len(t, r.Dynamic(), 1, "permanent entries are never part of the dynamic subset")
	assert.Equal(t, len(access.PermanentAdmins)+1, r.Len())
}

func TestRegistry_AllSorted(t *testing.T) {
	ctx := context.Background()
	r := newRegistry(t, nil)
	_, err := r.Add(ctx, accesstest.Bob, accesstest.SuperAdmin)
	require.NoError(t, err)
	_, err = r.Add(ctx, accesstest.Alice, accesstest.SuperAdmin)
	require.NoError(t, err)

	all := r.All()
	assert.IsNonDecreasing(t, all)
	assert.Len(t, all, len(access.PermanentAdmins)+2)
}

func TestRegistry_ConcurrentAdds(t *testing.T) {
	ctx := context.Background()
	r := newRegistry(t, nil)

	var wg sync.WaitGroup
	var mu sync.Mutex
	addedCount := 0
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			added, err := r.Add(ctx, accesstest.Alice, accesstest.SuperAdmin)
			assert.NoError(t, err)
			if added {
				mu.Lock()
				addedCount++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, addedCount, "exactly one concurrent add changes the set")
}
