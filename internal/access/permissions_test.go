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

func TestCatalogue_Namespaced(t *testing.T) {
	categories := map[string]bool{
		access.CategoryAccess:     true,
		access.CategoryAdmin:      true,
		access.CategoryFinance:    true,
		access.CategoryGovernance: true,
	}
	for _, p := range access.Catalogue() {
		assert.True(t, categories[p.Category()], "permission %s has unknown category", p)
	}
}

func TestParsePermission(t *testing.T) {
	got, err := access.ParsePermission("access:shadow-swap")
	require.NoError(t, err)
	assert.Equal(t, access.PermShadowSwap, got)

	_, err = access.ParsePermission("access:shadowswap")
	require.Error(t, err)
	errutil.AssertErrorCode(t, err, access.CodeInvalidPermission)
}

func TestPermissionsFor_Table(t *testing.T) {
	user := access.PermissionsFor(access.RoleUser)
	assert.True(t, user.Equal(access.NewSet(access.PermViewDividends, access.PermViewProposals)))

	assert.True(t, access.PermissionsFor(access.RoleEntryLevel).Has(access.PermShadowSwap))
	assert.True(t, access.PermissionsFor(access.RoleShadowElite).Has(access.PermMEVExtraction))
	assert.True(t, access.PermissionsFor(access.RoleAdmin).Has(access.PermAdminViewUsers))
	assert.True(t, access.PermissionsFor(access.RoleSuperAdmin).Has(access.PermAdminKillSwitch))
}

func TestPermissionsFor_UnknownRoleEmpty(t *testing.T) {
	assert.Empty(t, access.PermissionsFor("whale"))
}

func TestPermissionsFor_ReturnsCopy(t *testing.T) {
	p := access.PermissionsFor(access.RoleUser)
	p.Add(access.PermVeto)

	assert.False(t, access.PermissionsFor(access.RoleUser).Has(access.PermVeto))
}

func TestPermissionsFor_AdminRolesCarryNoTierTools(t *testing.T) {
	for _, r := range []access.Role{access.RoleAdmin} {
		for p := range access.PermissionsFor(r) {
			assert.Equal(t, access.CategoryAdmin, p.Category(), "%s should only carry admin permissions, has %s", r, p)
		}
	}
	assert.False(t, access.PermissionsFor(access.RoleSuperAdmin).Has(access.PermShadowSwap))
	assert.False(t, access.PermissionsFor(access.RoleSuperAdmin).Has(access.PermViewDividends))
}

func TestPermissionsFor_TierRolesGrowWithHierarchy(t *testing.T) {
	tierRoles := []access.Role{
		access.RoleUser, access.RoleEntryLevel, access.RoleOperator,
		access.RoleShadowElite, access.RolePhantomCouncil,
	}
	for i := 1; i < len(tierRoles); i++ {
		lower := access.PermissionsFor(tierRoles[i-1])
		higher := access.PermissionsFor(tierRoles[i])
		assert.True(t, higher.IsSuperset(lower), "%s should include %s permissions", tierRoles[i], tierRoles[i-1])
	}
}

func TestPermissionsFor_AllInCatalogue(t *testing.T) {
	for _, r := range access.AllRoles() {
		for p := range access.PermissionsFor(r) {
			assert.True(t, p.Valid(), "role %s references unknown permission %s", r, p)
		}
	}
}
