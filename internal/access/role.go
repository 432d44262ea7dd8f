// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 TierGate Contributors

package access

import (
	"slices"

	"github.com/samber/oops"
)

// Role is an assignable identity category. A user may hold several at once.
type Role string

// Roles in hierarchy order.
const (
	RoleUser           Role = "user"
	RoleEntryLevel     Role = "entry_level"
	RoleOperator       Role = "operator"
	RoleShadowElite    Role = "shadow_elite"
	RolePhantomCouncil Role = "phantom_council"
	RoleAdmin          Role = "admin"
	RoleSuperAdmin     Role = "super_admin"
)

// roleHierarchy is the explicit total order over roles. Comparisons must use
// this table, never the position of a role in the permission table.
var roleHierarchy = map[Role]int{
	RoleUser:           0,
	RoleEntryLevel:     1,
	RoleOperator:       2,
	RoleShadowElite:    3,
	RolePhantomCouncil: 4,
	RoleAdmin:          5,
	RoleSuperAdmin:     6,
}

// tierRoles maps each tier to the role it confers.
var tierRoles = map[Tier]Role{
	TierUnauthorized:   RoleUser,
	TierEntryLevel:     RoleEntryLevel,
	TierOperator:       RoleOperator,
	TierShadowElite:    RoleShadowElite,
	TierPhantomCouncil: RolePhantomCouncil,
}

// AllRoles returns every role in ascending hierarchy order.
func AllRoles() []Role {
	return []Role{RoleUser, RoleEntryLevel, RoleOperator, RoleShadowElite, RolePhantomCouncil, RoleAdmin, RoleSuperAdmin}
}

// ParseRole validates a role name.
func ParseRole(name string) (Role, error) {
	r := Role(name)
	if !r.Valid() {
		return "", oops.In("access").
			Code(CodeInvalidRole).
			With("role", name).
			Errorf("unknown role %q", name)
	}
	return r, nil
}

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	_, ok := roleHierarchy[r]
	return ok
}

// String implements fmt.Stringer.
func (r Role) String() string {
	return string(r)
}

// HierarchyLevel returns the role's position in the total order, or -1 for
// unknown roles.
func HierarchyLevel(r Role) int {
	level, ok := roleHierarchy[r]
	if !ok {
		return -1
	}
	return level
}

// IsAdministrative reports whether r carries admin standing.
func (r Role) IsAdministrative() bool {
	return r == RoleAdmin || r == RoleSuperAdmin
}

// RoleForTier returns the role a tier confers.
func RoleForTier(t Tier) Role {
	if r, ok := tierRoles[t]; ok {
		return r
	}
	return RoleUser
}

// HighestLevel returns the highest hierarchy level among roles, or -1 when
// roles is empty.
func HighestLevel(roles Set[Role]) int {
	highest := -1
	for r := range roles {
		if level := HierarchyLevel(r); level > highest {
			highest = level
		}
	}
	return highest
}

// SortRoles returns roles ordered by hierarchy level, lowest first.
func SortRoles(roles Set[Role]) []Role {
	out := roles.Slice()
	slices.SortFunc(out, func(a, b Role) int {
		return HierarchyLevel(a) - HierarchyLevel(b)
	})
	return out
}
