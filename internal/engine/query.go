// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 TierGate Contributors

package engine

import (
	"time"

	"github.com/tiergate/tiergate/internal/access"
	"github.com/tiergate/tiergate/internal/directory"
)

// View is the read model of one address.
type View struct {
	Address           string              `json:"address"`
	Known             bool                `json:"known"`
	Balance           float64             `json:"balance"`
	Tier              access.Tier         `json:"tier"`
	Roles             []access.Role       `json:"roles"`
	GrantedRoles      []access.Role       `json:"granted_roles,omitempty"`
	RevokedRoles      []access.Role       `json:"revoked_roles,omitempty"`
	CustomPermissions []access.Permission `json:"custom_permissions,omitempty"`
	Permissions       []access.Permission `json:"permissions"`
	Whitelisted       bool                `json:"whitelisted"`
	LastActive        time.Time           `json:"last_active,omitzero"`
	JoinedAt          time.Time           `json:"joined_at,omitzero"`
}

func (s *Service) viewOf(u *directory.User, known bool) View {
	return View{
		Address:           u.Address,
		Known:             known,
		Balance:           u.Balance,
		Tier:              u.Tier,
		Roles:             access.SortRoles(u.Roles),
		GrantedRoles:      access.SortRoles(u.GrantedRoles),
		RevokedRoles:      access.SortRoles(u.RevokedRoles),
		CustomPermissions: u.CustomPermissions.Sorted(),
		Permissions:       u.Permissions().Sorted(),
		Whitelisted:       s.whitelist.IsWhitelisted(u.Address),
		LastActive:        u.LastActive,
		JoinedAt:          u.JoinedAt,
	}
}

// current returns the record for a normalized address recomputed against the
// live whitelist. Unknown addresses get an unsaved default record.
func (s *Service) current(address string) (*directory.User, bool) {
	u, ok := s.directory.Get(address)
	if !ok {
		u = directory.NewUser(address, time.Time{})
	}
	u.Recompute(s.whitelist)
	return u, ok
}

// TierOf maps a balance to its tier.
func (s *Service) TierOf(balance float64) access.Tier {
	s.metrics.query("tier_of")
	return access.TierOf(balance)
}

// User returns the view of address. Addresses without a record get the
// default view of a zero-balance user; no record is created.
func (s *Service) User(address string) (View, error) {
	s.metrics.query("user")
	addr, err := access.NormalizeAddress(address)
	if err != nil {
		return View{}, err
	}
	u, known := s.current(addr)
	return s.viewOf(u, known), nil
}

// Users lists every known record ordered by join time.
func (s *Service) Users() []View {
	s.metrics.query("users")
	users := s.directory.List()
	out := make([]View, 0, len(users))
	for _, u := range users {
		u.Recompute(s.whitelist)
		out = append(out, s.viewOf(u, true))
	}
	return out
}

// Roles returns the roles held by address in hierarchy order.
func (s *Service) Roles(address string) ([]access.Role, error) {
	s.metrics.query("roles")
	addr, err := access.NormalizeAddress(address)
	if err != nil {
		return nil, err
	}
	u, _ := s.current(addr)
	return access.SortRoles(u.Roles), nil
}

// Permissions returns the resolved permission set of address, verified to
// contain every role-implied permission.
func (s *Service) Permissions(address string) (access.Set[access.Permission], error) {
	s.metrics.query("permissions")
	addr, err := access.NormalizeAddress(address)
	if err != nil {
		return nil, err
	}
	u, _ := s.current(addr)
	resolved := u.Permissions()
	if err := access.VerifyResolved(addr, u.Roles, resolved); err != nil {
		return nil, err
	}
	return resolved, nil
}

// resolvedOrDeny resolves address for a boolean check. Any failure denies.
func (s *Service) resolvedOrDeny(op, address string) access.Set[access.Permission] {
	s.metrics.query(op)
	addr, err := access.NormalizeAddress(address)
	if err != nil {
		s.logger.Debug("permission check on invalid address", "operation", op, "address", address)
		return nil
	}
	u, _ := s.current(addr)
	return u.Permissions()
}

// HasPermission reports whether address holds p.
func (s *Service) HasPermission(address string, p access.Permission) bool {
	return s.resolvedOrDeny("has_permission", address).Has(p)
}

// HasAnyPermission reports whether address holds at least one of ps.
// False for an empty list.
func (s *Service) HasAnyPermission(address string, ps ...access.Permission) bool {
	return s.resolvedOrDeny("has_any_permission", address).HasAny(ps...)
}

// HasAllPermissions reports whether address holds every one of ps.
// True for an empty list.
func (s *Service) HasAllPermissions(address string, ps ...access.Permission) bool {
	resolved := s.resolvedOrDeny("has_all_permissions", address)
	if resolved == nil {
		return false
	}
	return resolved.HasAll(ps...)
}

// IsAtLeast reports whether the highest role held by address ranks at or
// above role in the hierarchy.
func (s *Service) IsAtLeast(address string, role access.Role) bool {
	s.metrics.query("is_at_least")
	if !role.Valid() {
		return false
	}
	addr, err := access.NormalizeAddress(address)
	if err != nil {
		return false
	}
	u, _ := s.current(addr)
	return access.HighestLevel(u.Roles) >= access.HierarchyLevel(role)
}

// PermissionsMatching returns the resolved permissions of address matching
// a glob pattern such as "finance:*".
func (s *Service) PermissionsMatching(address, pattern string) ([]access.Permission, error) {
	s.metrics.query("permissions_matching")
	addr, err := access.NormalizeAddress(address)
	if err != nil {
		return nil, err
	}
	u, _ := s.current(addr)
	return access.MatchPermissions(u.Permissions(), pattern)
}

// IsWhitelisted reports whitelist membership.
func (s *Service) IsWhitelisted(address string) bool {
	s.metrics.query("is_whitelisted")
	addr, err := access.NormalizeAddress(address)
	if err != nil {
		return false
	}
	return s.whitelist.IsWhitelisted(addr)
}

// Whitelist returns every whitelisted address, sorted.
func (s *Service) Whitelist() []string {
	s.metrics.query("whitelist")
	return s.whitelist.All()
}

// IsPermanentAdmin reports whether address is a compiled-in whitelist entry.
func (s *Service) IsPermanentAdmin(address string) bool {
	addr, err := access.NormalizeAddress(address)
	if err != nil {
		return false
	}
	return s.whitelist.IsPermanent(addr)
}

// TierCounts returns the number of known records per tier.
func (s *Service) TierCounts() map[access.Tier]int {
	s.metrics.query("tier_counts")
	return s.directory.TierCounts()
}

// Modes returns the current mode flags.
func (s *Service) Modes() Modes {
	s.metrics.query("modes")
	s.modeMu.RLock()
	defer s.modeMu.RUnlock()
	return s.modes
}
