// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 TierGate Contributors

package access

import (
	"github.com/gobwas/glob"
	"github.com/samber/oops"
)

// PermanentAdmins are compiled-in whitelist entries that can never be removed
// at runtime. The first entry is the super admin.
var PermanentAdmins = []string{
	"0x7a3f9c2e4b1d8a6f5e0c3b9d2a7f4e1c8b5d6a90",
	"0x4e8b1c7d2f9a3e6b0c5d8f1a4e7b2c9d6f3a0b18",
}

// SuperAdminAddress returns the normalised super admin address.
func SuperAdminAddress() string {
	return MustNormalizeAddress(PermanentAdmins[0])
}

// RolesFor derives the roles of an address: the tier role, plus admin when
// the address is whitelisted, plus super_admin for the super admin address.
// Addresses are expected to be normalised.
func RolesFor(address string, tier Tier, whitelist WhitelistView) Set[Role] {
	roles := NewSet(RoleForTier(tier))
	if whitelist != nil && whitelist.IsWhitelisted(address) {
		roles.Add(RoleAdmin)
	}
	if address == SuperAdminAddress() {
		roles.Add(RoleSuperAdmin)
	}
	return roles
}

// RoleImplied returns the union of default permissions for roles.
func RoleImplied(roles Set[Role]) Set[Permission] {
	out := NewSet[Permission]()
	for r := range roles {
		for _, p := range defaultPermissions[r] {
			out.Add(p)
		}
	}
	return out
}

// Resolve computes the resolved permission set: role defaults unioned with
// custom grants. Pure and order-independent.
func Resolve(roles Set[Role], custom Set[Permission]) Set[Permission] {
	return RoleImplied(roles).Union(custom)
}

// RoleSources returns the held roles whose default permissions include p,
// in hierarchy order. A non-empty result means p cannot be removed by editing
// custom permissions alone.
func RoleSources(roles Set[Role], p Permission) []Role {
	var sources []Role
	for _, r := range SortRoles(roles) {
		if RoleGrants(r, p) {
			sources = append(sources, r)
		}
	}
	return sources
}

// VerifyResolved checks that resolved contains every permission implied by
// roles. A failure is an INVARIANT_VIOLATION.
func VerifyResolved(address string, roles Set[Role], resolved Set[Permission]) error {
	implied := RoleImplied(roles)
	if resolved.IsSuperset(implied) {
		return nil
	}
	return ErrInvariantViolation(address, implied.Difference(resolved).Sorted())
}

// MatchPermissions returns the permissions in set matching a glob pattern
// such as "access:*". ':' separates pattern segments.
func MatchPermissions(set Set[Permission], pattern string) ([]Permission, error) {
	g, err := glob.Compile(pattern, ':')
	if err != nil {
		return nil, oops.In("access").
			Code("INVALID_PERMISSION_PATTERN").
			With("pattern", pattern).
			Wrap(err)
	}
	var matched []Permission
	for _, p := range set.Sorted() {
		if g.Match(string(p)) {
			matched = append(matched, p)
		}
	}
	return matched, nil
}
