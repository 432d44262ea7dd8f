// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 TierGate Contributors

package access

import (
	"strings"

	"github.com/samber/oops"
)

// Permission is an atomic capability tag from a closed catalogue, namespaced
// by category. Permissions are flat: only roles form a hierarchy.
type Permission string

// Access permissions gate tier tools.
const (
	PermShadowSwap         Permission = "access:shadow-swap"
	PermBasicAnalytics     Permission = "access:basic-analytics"
	PermStealthRouter      Permission = "access:stealth-router"
	PermAdvancedAnalytics  Permission = "access:advanced-analytics"
	PermMEVExtraction      Permission = "access:mev-extraction"
	PermQuantumManipulator Permission = "access:quantum-manipulator"
	PermCouncilChamber     Permission = "access:council-chamber"
)

// Admin permissions gate directory, whitelist and system controls.
const (
	PermAdminViewUsers         Permission = "admin:view-users"
	PermAdminManageRoles       Permission = "admin:manage-roles"
	PermAdminManagePermissions Permission = "admin:manage-permissions"
	PermAdminManageWhitelist   Permission = "admin:manage-whitelist"
	PermAdminViewAudit         Permission = "admin:view-audit"
	PermAdminSystemSettings    Permission = "admin:system-settings"
	PermAdminKillSwitch        Permission = "admin:kill-switch"
	PermAdminLockdown          Permission = "admin:lockdown"
)

// Finance permissions.
const (
	PermViewDividends   Permission = "finance:view-dividends"
	PermClaimDividends  Permission = "finance:claim-dividends"
	PermViewTreasury    Permission = "finance:view-treasury"
	PermManageTreasury  Permission = "finance:manage-treasury"
	PermPriorityPayouts Permission = "finance:priority-payouts"
)

// Governance permissions.
const (
	PermViewProposals   Permission = "governance:view-proposals"
	PermVote            Permission = "governance:vote"
	PermCreateProposals Permission = "governance:create-proposals"
	PermVeto            Permission = "governance:veto"
)

// catalogue lists every known permission.
var catalogue = NewSet(
	PermShadowSwap, PermBasicAnalytics, PermStealthRouter, PermAdvancedAnalytics,
	PermMEVExtraction, PermQuantumManipulator, PermCouncilChamber,
	PermAdminViewUsers, PermAdminManageRoles, PermAdminManagePermissions,
	PermAdminManageWhitelist, PermAdminViewAudit, PermAdminSystemSettings,
	PermAdminKillSwitch, PermAdminLockdown,
	PermViewDividends, PermClaimDividends, PermViewTreasury, PermManageTreasury, PermPriorityPayouts,
	PermViewProposals, PermVote, PermCreateProposals, PermVeto,
)

// Permission categories.
const (
	CategoryAccess     = "access"
	CategoryAdmin      = "admin"
	CategoryFinance    = "finance"
	CategoryGovernance = "governance"
)

// Catalogue returns every known permission in lexical order.
func Catalogue() []Permission {
	return catalogue.Sorted()
}

// ParsePermission validates a permission tag against the catalogue.
func ParsePermission(tag string) (Permission, error) {
	p := Permission(tag)
	if !p.Valid() {
		return "", oops.In("access").
			Code(CodeInvalidPermission).
			With("permission", tag).
			Errorf("unknown permission %q", tag)
	}
	return p, nil
}

// Valid reports whether p belongs to the catalogue.
func (p Permission) Valid() bool {
	return catalogue.Has(p)
}

// Category returns the namespace before the first colon.
func (p Permission) Category() string {
	category, _, _ := strings.Cut(string(p), ":")
	return category
}

// String implements fmt.Stringer.
func (p Permission) String() string {
	return string(p)
}
