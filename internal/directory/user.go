// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 TierGate Contributors

package directory

import (
	"time"

	"github.com/tiergate/tiergate/internal/access"
)

// User is the durable record for one address.
//
// Tier and Roles are derived: Recompute must run whenever Balance, the
// whitelist, GrantedRoles or RevokedRoles change. GrantedRoles and
// RevokedRoles hold admin overrides so they survive recomputation.
type User struct {
	Address           string
	Balance           float64
	Tier              access.Tier
	Roles             access.Set[access.Role]
	GrantedRoles      access.Set[access.Role]
	RevokedRoles      access.Set[access.Role]
	CustomPermissions access.Set[access.Permission]
	LastActive        time.Time
	JoinedAt          time.Time
}

// NewUser creates a zero-balance record for address joined at now.
func NewUser(address string, now time.Time) *User {
	u := &User{
		Address:           address,
		GrantedRoles:      access.NewSet[access.Role](),
		RevokedRoles:      access.NewSet[access.Role](),
		CustomPermissions: access.NewSet[access.Permission](),
		LastActive:        now,
		JoinedAt:          now,
	}
	u.Tier = access.TierOf(0)
	u.Roles = access.NewSet(access.RoleForTier(u.Tier))
	return u
}

// Recompute derives Tier from Balance and Roles from the tier, whitelist
// membership and overrides:
//
//	Roles = (RolesFor(address, tier, whitelist) \ RevokedRoles) ∪ GrantedRoles
//
// A record never ends up without roles; the base user role is the fallback.
func (u *User) Recompute(wl access.WhitelistView) {
	u.ensureSets()
	// Administrative standing follows the whitelist alone.
	u.RevokedRoles.Remove(access.RoleAdmin)
	u.RevokedRoles.Remove(access.RoleSuperAdmin)
	u.Tier = access.TierOf(u.Balance)
	derived := access.RolesFor(u.Address, u.Tier, wl)
	u.Roles = derived.Difference(u.RevokedRoles).Union(u.GrantedRoles)
	if len(u.Roles) == 0 {
		u.Roles.Add(access.RoleUser)
	}
}

// Permissions returns the resolved permission set.
func (u *User) Permissions() access.Set[access.Permission] {
	return access.Resolve(u.Roles, u.CustomPermissions)
}

// Clone returns a deep copy.
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	c := *u
	c.Roles = u.Roles.Clone()
	c.GrantedRoles = u.GrantedRoles.Clone()
	c.RevokedRoles = u.RevokedRoles.Clone()
	c.CustomPermissions = u.CustomPermissions.Clone()
	return &c
}

func (u *User) ensureSets() {
	if u.Roles == nil {
		u.Roles = access.NewSet[access.Role]()
	}
	if u.GrantedRoles == nil {
		u.GrantedRoles = access.NewSet[access.Role]()
	}
	if u.RevokedRoles == nil {
		u.RevokedRoles = access.NewSet[access.Role]()
	}
	if u.CustomPermissions == nil {
		u.CustomPermissions = access.NewSet[access.Permission]()
	}
}
