// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 TierGate Contributors

package access_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tiergate/tiergate/internal/access"
	"github.com/tiergate/tiergate/pkg/errutil"
)

type staticWhitelist map[string]bool

func (w staticWhitelist) IsWhitelisted(address string) bool { return w[address] }

const (
	plainAddr  = "0x1111111111111111111111111111111111111111"
	listedAddr = "0x2222222222222222222222222222222222222222"
)

func TestRolesFor(t *testing.T) {
	wl := staticWhitelist{listedAddr: true, access.SuperAdminAddress(): true}

	tests := []struct {
		name    string
		address string
		tier    access.Tier
		want    []access.Role
	}{
		{"unknown address", plainAddr, access.TierUnauthorized, []access.Role{access.RoleUser}},
		{"tier role only", plainAddr, access.TierOperator, []access.Role{access.RoleOperator}},
		{"whitelisted adds admin", listedAddr, access.TierShadowElite, []access.Role{access.RoleShadowElite, access.RoleAdmin}},
		{"super admin", access.SuperAdminAddress(), access.TierUnauthorized, []access.Role{access.RoleUser, access.RoleAdmin, access.RoleSuperAdmin}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := access.RolesFor(tt.address, tt.tier, wl)
			assert.Equal(t, tt.want, access.SortRoles(got))
		})
	}
}

func TestRolesFor_NilWhitelist(t *testing.T) {
	got := access.RolesFor(listedAddr, access.TierEntryLevel, nil)
	assert.Equal(t, []access.Role{access.RoleEntryLevel}, access.SortRoles(got))
}

func TestResolve_UnionOfRolesAndCustom(t *testing.T) {
	roles := access.NewSet(access.RoleUser)
	custom := access.NewSet(access.PermVote)

	got := access.Resolve(roles, custom)

	assert.Equal(t,
		[]access.Permission{access.PermViewDividends, access.PermViewProposals, access.PermVote},
		got.Sorted())
}

func TestResolve_BaseScenario(t *testing.T) {
	roles := access.RolesFor(plainAddr, access.TierOf(0), nil)
	got := access.Resolve(roles, nil)

	assert.Equal(t, []access.Permission{access.PermViewDividends, access.PermViewProposals}, got.Sorted())
}

func TestResolve_WhitelistedShadowElite(t *testing.T) {
	wl := staticWhitelist{listedAddr: true}
	roles := access.RolesFor(listedAddr, access.TierOf(300_000), wl)
	got := access.Resolve(roles, nil)

	want := access.PermissionsFor(access.RoleShadowElite).Union(access.PermissionsFor(access.RoleAdmin))
	assert.True(t, got.Equal(want))
	assert.True(t, got.HasAll(access.PermMEVExtraction, access.PermAdminViewUsers))
}

func TestResolve_OrderIndependent(t *testing.T) {
	a := access.Resolve(access.NewSet(access.RoleAdmin, access.RoleOperator), access.NewSet(access.PermVeto))
	b := access.Resolve(access.NewSet(access.RoleOperator, access.RoleAdmin), access.NewSet(access.PermVeto))
	assert.True(t, a.Equal(b))
}

func TestRoleSources(t *testing.T) {
	roles := access.NewSet(access.RoleEntryLevel, access.RoleOperator, access.RoleAdmin)

	assert.Equal(t, []access.Role{access.RoleEntryLevel, access.RoleOperator},
		access.RoleSources(roles, access.PermShadowSwap))
	assert.Empty(t, access.RoleSources(roles, access.PermVeto))
}

func TestVerifyResolved(t *testing.T) {
	roles := access.NewSet(access.RoleEntryLevel)

	require.NoError(t, access.VerifyResolved(plainAddr, roles, access.Resolve(roles, nil)))

	err := access.VerifyResolved(plainAddr, roles, access.NewSet(access.PermShadowSwap))
	require.Error(t, err)
	errutil.AssertErrorCode(t, err, access.CodeInvariantViolation)
	assert.True(t, access.IsInvariantViolation(err))
}

func TestMatchPermissions(t *testing.T) {
	set := access.PermissionsFor(access.RoleOperator)

	got, err := access.MatchPermissions(set, "access:*")
	require.NoError(t, err)
	assert.Equal(t, []access.Permission{
		access.PermAdvancedAnalytics, access.PermBasicAnalytics,
		access.PermShadowSwap, access.PermStealthRouter,
	}, got)

	got, err = access.MatchPermissions(set, "governance:vote")
	require.NoError(t, err)
	assert.Equal(t, []access.Permission{access.PermVote}, got)

	_, err = access.MatchPermissions(set, "access:[")
	require.Error(t, err)
	errutil.AssertErrorCode(t, err, "INVALID_PERMISSION_PATTERN")
}
