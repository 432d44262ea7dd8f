// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 TierGate Contributors

package access

// defaultPermissions is the hand-maintained role → permission table.
//
// Tier roles grow richer as the hierarchy rises, but admin and super_admin
// carry only administrative permissions and do not inherit tier tools. Keep
// every row literal; nothing here is derived from hierarchy level.
var defaultPermissions = map[Role][]Permission{
	RoleUser: {
		PermViewDividends,
		PermViewProposals,
	},
	RoleEntryLevel: {
		PermShadowSwap,
		PermBasicAnalytics,
		PermViewDividends,
		PermClaimDividends,
		PermViewProposals,
	},
	RoleOperator: {
		PermShadowSwap,
		PermBasicAnalytics,
		PermStealthRouter,
		PermAdvancedAnalytics,
		PermViewDividends,
		PermClaimDividends,
		PermViewProposals,
		PermVote,
	},
	RoleShadowElite: {
		PermShadowSwap,
		PermBasicAnalytics,
		PermStealthRouter,
		PermAdvancedAnalytics,
		PermMEVExtraction,
		PermQuantumManipulator,
		PermViewDividends,
		PermClaimDividends,
		PermPriorityPayouts,
		PermViewProposals,
		PermVote,
		PermCreateProposals,
	},
	RolePhantomCouncil: {
		PermShadowSwap,
		PermBasicAnalytics,
		PermStealthRouter,
		PermAdvancedAnalytics,
		PermMEVExtraction,
		PermQuantumManipulator,
		PermCouncilChamber,
		PermViewDividends,
		PermClaimDividends,
		PermPriorityPayouts,
		PermViewTreasury,
		PermViewProposals,
		PermVote,
		PermCreateProposals,
		PermVeto,
	},
	RoleAdmin: {
		PermAdminViewUsers,
		PermAdminManageRoles,
		PermAdminManagePermissions,
		PermAdminManageWhitelist,
		PermAdminViewAudit,
	},
	RoleSuperAdmin: {
		PermAdminViewUsers,
		PermAdminManageRoles,
		PermAdminManagePermissions,
		PermAdminManageWhitelist,
		PermAdminViewAudit,
		PermAdminSystemSettings,
		PermAdminKillSwitch,
		PermAdminLockdown,
		PermManageTreasury,
	},
}

// PermissionsFor returns the default permissions of a role. Unknown roles
// yield an empty set. The result is a fresh set owned by the caller.
func PermissionsFor(r Role) Set[Permission] {
	return NewSet(defaultPermissions[r]...)
}

// RoleGrants reports whether role r's default permissions include p.
func RoleGrants(r Role, p Permission) bool {
	for _, granted := range defaultPermissions[r] {
		if granted == p {
			return true
		}
	}
	return false
}
