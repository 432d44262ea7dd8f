// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 TierGate Contributors

package directory_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/tiergate/tiergate/internal/access"
	"github.com/tiergate/tiergate/internal/access/accesstest"
	"github.com/tiergate/tiergate/internal/directory"
)

var joined = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func TestNewUser_Defaults(t *testing.T) {
	u := directory.NewUser(accesstest.Alice, joined)

	assert.Equal(t, access.TierUnauthorized, u.Tier)
	assert.Equal(t, []access.Role{access.RoleUser}, access.SortRoles(u.Roles))
	assert.Empty(t, u.CustomPermissions)
	assert.Equal(t, joined, u.JoinedAt)
	assert.Equal(t, joined, u.LastActive)
}

func TestUser_RecomputeFromBalance(t *testing.T) {
	u := directory.NewUser(accesstest.Alice, joined)
	u.Balance = 300_000

	u.Recompute(accesstest.StaticWhitelist{accesstest.Alice: true})

	assert.Equal(t, access.TierShadowElite, u.Tier)
	assert.Equal(t, []access.Role{access.RoleShadowElite, access.RoleAdmin}, access.SortRoles(u.Roles))
}

func TestUser_RecomputeKeepsOverrides(t *testing.T) {
	u := directory.NewUser(accesstest.Alice, joined)
	u.GrantedRoles.Add(access.RoleOperator)
	u.Balance = 20_000

	u.Recompute(nil)
	assert.Equal(t, []access.Role{access.RoleEntryLevel, access.RoleOperator}, access.SortRoles(u.Roles))

	u.RevokedRoles.Add(access.RoleEntryLevel)
	u.Recompute(nil)
	assert.Equal(t, []access.Role{access.RoleOperator}, access.SortRoles(u.Roles))
}

func TestUser_RecomputeNeverEmpty(t *testing.T) {
	u := directory.NewUser(accesstest.Alice, joined)
	u.Balance = 60_000
	u.RevokedRoles.Add(access.RoleOperator)

	u.Recompute(nil)

	assert.Equal(t, []access.Role{access.RoleUser}, access.SortRoles(u.Roles))
}

func TestUser_RecomputeInitialisesNilSets(t *testing.T) {
	u := &directory.User{Address: accesstest.Bob, Balance: 10_000}

	u.Recompute(nil)

	assert.Equal(t, access.TierEntryLevel, u.Tier)
	assert.NotNil(t, u.CustomPermissions)
	assert.True(t, u.Permissions().Has(access.PermShadowSwap))
}

func TestUser_CloneIsDeep(t *testing.T) {
	u := directory.NewUser(accesstest.Alice, joined)
	c := u.Clone()

	c.Roles.Add(access.RoleAdmin)
	c.CustomPermissions.Add(access.PermVeto)

	assert.False(t, u.Roles.Has(access.RoleAdmin))
	assert.False(t, u.CustomPermissions.Has(access.PermVeto))

	var nilUser *directory.User
	assert.Nil(t, nilUser.Clone())
}

func TestUser_RecomputeIgnoresAdministrativeRevocations(t *testing.T) {
	u := directory.NewUser(accesstest.Alice, joined)
	u.RevokedRoles.Add(access.RoleAdmin)

	u.Recompute(accesstest.StaticWhitelist{accesstest.Alice: true})

	assert.True(t, u.Roles.Has(access.RoleAdmin))
	assert.Empty(t, u.RevokedRoles)
}
