// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 TierGate Contributors

package engine

import (
	"context"
	"strconv"

	"github.com/tiergate/tiergate/internal/access"
	"github.com/tiergate/tiergate/internal/directory"
)

// RevokeResult reports the effect of RevokePermission.
type RevokeResult struct {
	// Removed is true when the permission was dropped from the custom set.
	Removed bool
	// RetainedVia lists the held roles that still imply the permission.
	RetainedVia []access.Role
}

// StillGranted reports whether the address keeps the permission through a role.
func (r RevokeResult) StillGranted() bool {
	return len(r.RetainedVia) > 0
}

// authorizer decides whether requester may perform a user mutation.
type authorizer func(requester string) error

// editFunc applies a change to u and reports whether anything changed.
type editFunc func(u *directory.User) (bool, error)

// requireAdmin admits holders of admin or super_admin.
func (s *Service) requireAdmin(op string) authorizer {
	return func(requester string) error {
		if requester == access.SystemActor || !s.isAdmin(requester) {
			return access.ErrUnauthorized(op, requester)
		}
		return nil
	}
}

// requireSystemOrAdmin additionally admits the balance ingester.
func (s *Service) requireSystemOrAdmin(op string) authorizer {
	return func(requester string) error {
		if requester == access.SystemActor {
			return nil
		}
		return s.requireAdmin(op)(requester)
	}
}

// editUser runs one serialized read-modify-write cycle on the record of
// address. Missing records are created. The record is persisted only when
// edit reports a change or the record is new.
func (s *Service) editUser(ctx context.Context, address, requester string, authorize authorizer, edit editFunc) (*directory.User, bool, error) {
	unlock := s.keys.Lock(address, requester)
	defer unlock()
	s.wlMu.RLock()
	defer s.wlMu.RUnlock()

	if authorize != nil {
		if err := authorize(requester); err != nil {
			return nil, false, err
		}
	}

	u, known := s.directory.Get(address)
	if !known {
		u = directory.NewUser(address, s.now().UTC())
	}
	u.Recompute(s.whitelist)

	changed, err := edit(u)
	if err != nil {
		return nil, false, err
	}
	if !changed && known {
		return u, false, nil
	}

	u.Recompute(s.whitelist)
	if err := s.directory.Put(ctx, u); err != nil {
		return nil, false, err
	}
	if !known {
		s.refreshGauges()
	}
	return u, changed, nil
}

// SetBalance records a new balance for address and recomputes its tier and
// roles. Negative balances are clamped to zero. Only the system actor and
// admins may set balances.
func (s *Service) SetBalance(ctx context.Context, address string, balance float64, requestedBy string) (View, error) {
	ctx, m := s.begin(ctx, "set_balance", address, requestedBy, strconv.FormatFloat(balance, 'f', -1, 64))

	clamped, err := access.ClampBalance(balance)
	if err != nil {
		return View{}, s.finish(ctx, m, false, err)
	}
	addr, requester, err := normalizePair(address, requestedBy)
	if err != nil {
		return View{}, s.finish(ctx, m, false, err)
	}
	m.address, m.requestedBy = addr, requester

	u, changed, err := s.editUser(ctx, addr, requester, s.requireSystemOrAdmin("set_balance"),
		func(u *directory.User) (bool, error) {
			if u.Balance == clamped {
				return false, nil
			}
			u.Balance = clamped
			return true, nil
		})
	if err != nil {
		return View{}, s.finish(ctx, m, false, err)
	}
	return s.viewOf(u, true), s.finish(ctx, m, changed, nil)
}

// Touch marks address as active now, creating its record when missing.
func (s *Service) Touch(ctx context.Context, address string) (View, error) {
	ctx, m := s.begin(ctx, "touch", address, access.SystemActor, "")

	addr, err := access.NormalizeAddress(address)
	if err != nil {
		return View{}, s.finish(ctx, m, false, err)
	}
	m.address = addr

	u, _, err := s.editUser(ctx, addr, "", nil, func(u *directory.User) (bool, error) {
		u.LastActive = s.now().UTC()
		return true, nil
	})
	if err != nil {
		return View{}, s.finish(ctx, m, false, err)
	}
	return s.viewOf(u, true), s.finish(ctx, m, true, nil)
}

// AddRole grants role to address on behalf of an admin. Adding a role
// already held is a no-op. Only super admins may grant super_admin.
func (s *Service) AddRole(ctx context.Context, address string, role access.Role, requestedBy string) (bool, error) {
	ctx, m := s.begin(ctx, "add_role", address, requestedBy, string(role))

	if _, err := access.ParseRole(string(role)); err != nil {
		return false, s.finish(ctx, m, false, err)
	}
	addr, requester, err := normalizePair(address, requestedBy)
	if err != nil {
		return false, s.finish(ctx, m, false, err)
	}
	m.address, m.requestedBy = addr, requester

	_, changed, err := s.editUser(ctx, addr, requester, s.roleEditAuthorizer("add_role", role),
		func(u *directory.User) (bool, error) {
			if u.Roles.Has(role) {
				return false, nil
			}
			if !u.RevokedRoles.Remove(role) {
				u.GrantedRoles.Add(role)
			}
			return true, nil
		})
	return changed, s.finish(ctx, m, changed, err)
}

// RemoveRole takes role away from address on behalf of an admin. The base
// user role is protected, and so is an administrative role address holds
// through the whitelist: admin standing is revoked by removing the address
// from the whitelist, never by a revocation override. Removing a role not
// held is a no-op.
func (s *Service) RemoveRole(ctx context.Context, address string, role access.Role, requestedBy string) (bool, error) {
	ctx, m := s.begin(ctx, "remove_role", address, requestedBy, string(role))

	if _, err := access.ParseRole(string(role)); err != nil {
		return false, s.finish(ctx, m, false, err)
	}
	addr, requester, err := normalizePair(address, requestedBy)
	if err != nil {
		return false, s.finish(ctx, m, false, err)
	}
	m.address, m.requestedBy = addr, requester

	_, changed, err := s.editUser(ctx, addr, requester, s.roleEditAuthorizer("remove_role", role),
		func(u *directory.User) (bool, error) {
			if role == access.RoleUser {
				return false, access.ErrProtectedEntry("role", string(role))
			}
			if !u.Roles.Has(role) {
				return false, nil
			}
			derived := access.RolesFor(u.Address, u.Tier, s.whitelist).Has(role)
			if role.IsAdministrative() && derived {
				return false, access.ErrWhitelistRole(u.Address, role)
			}
			u.GrantedRoles.Remove(role)
			if derived {
				u.RevokedRoles.Add(role)
			}
			return true, nil
		})
	return changed, s.finish(ctx, m, changed, err)
}

// roleEditAuthorizer requires an admin, and a super admin when the role being
// edited is super_admin.
func (s *Service) roleEditAuthorizer(op string, role access.Role) authorizer {
	admin := s.requireAdmin(op)
	return func(requester string) error {
		if err := admin(requester); err != nil {
			return err
		}
		if role == access.RoleSuperAdmin && !s.rolesOf(requester).Has(access.RoleSuperAdmin) {
			return access.ErrUnauthorized(op, requester)
		}
		return nil
	}
}

// GrantPermission adds p to the custom permissions of address. Granting a
// permission already in the custom set is a no-op.
func (s *Service) GrantPermission(ctx context.Context, address string, p access.Permission, requestedBy string) (bool, error) {
	ctx, m := s.begin(ctx, "grant_permission", address, requestedBy, string(p))

	if _, err := access.ParsePermission(string(p)); err != nil {
		return false, s.finish(ctx, m, false, err)
	}
	addr, requester, err := normalizePair(address, requestedBy)
	if err != nil {
		return false, s.finish(ctx, m, false, err)
	}
	m.address, m.requestedBy = addr, requester

	_, changed, err := s.editUser(ctx, addr, requester, s.requireAdmin("grant_permission"),
		func(u *directory.User) (bool, error) {
			return u.CustomPermissions.Add(p), nil
		})
	return changed, s.finish(ctx, m, changed, err)
}

// RevokePermission removes p from the custom permissions of address. When a
// held role still implies p the address keeps it; the result names those
// roles.
func (s *Service) RevokePermission(ctx context.Context, address string, p access.Permission, requestedBy string) (RevokeResult, error) {
	ctx, m := s.begin(ctx, "revoke_permission", address, requestedBy, string(p))

	if _, err := access.ParsePermission(string(p)); err != nil {
		return RevokeResult{}, s.finish(ctx, m, false, err)
	}
	addr, requester, err := normalizePair(address, requestedBy)
	if err != nil {
		return RevokeResult{}, s.finish(ctx, m, false, err)
	}
	m.address, m.requestedBy = addr, requester

	u, changed, err := s.editUser(ctx, addr, requester, s.requireAdmin("revoke_permission"),
		func(u *directory.User) (bool, error) {
			return u.CustomPermissions.Remove(p), nil
		})
	if err != nil {
		return RevokeResult{}, s.finish(ctx, m, false, err)
	}

	result := RevokeResult{Removed: changed, RetainedVia: access.RoleSources(u.Roles, p)}
	if result.StillGranted() {
		s.logger.InfoContext(ctx, "permission retained through role",
			"address", addr,
			"permission", string(p),
			"roles", result.RetainedVia,
		)
	}
	return result, s.finish(ctx, m, changed, nil)
}

// AddToWhitelist whitelists address on behalf of a whitelisted requester and
// recomputes the address's record.
func (s *Service) AddToWhitelist(ctx context.Context, address, requestedBy string) (bool, error) {
	ctx, m := s.begin(ctx, "whitelist_add", address, requestedBy, "")

	addr, requester, err := normalizePair(address, requestedBy)
	if err != nil {
		return false, s.finish(ctx, m, false, err)
	}
	m.address, m.requestedBy = addr, requester

	changed, err := s.editWhitelist(ctx, addr, requester, true)
	return changed, s.finish(ctx, m, changed, err)
}

// RemoveFromWhitelist drops address from the dynamic whitelist on behalf of
// a whitelisted requester. Permanent entries are protected.
func (s *Service) RemoveFromWhitelist(ctx context.Context, address, requestedBy string) (bool, error) {
	ctx, m := s.begin(ctx, "whitelist_remove", address, requestedBy, "")

	addr, requester, err := normalizePair(address, requestedBy)
	if err != nil {
		return false, s.finish(ctx, m, false, err)
	}
	m.address, m.requestedBy = addr, requester

	changed, err := s.editWhitelist(ctx, addr, requester, false)
	return changed, s.finish(ctx, m, changed, err)
}

func (s *Service) editWhitelist(ctx context.Context, address, requester string, add bool) (bool, error) {
	if !add && s.whitelist.IsPermanent(address) {
		return false, access.ErrProtectedEntry("whitelist entry", address)
	}
	if requester == access.SystemActor {
		return false, access.ErrUnauthorized("whitelist", requester)
	}

	unlock := s.keys.Lock(address, requester)
	defer unlock()
	s.wlMu.Lock()
	defer s.wlMu.Unlock()

	var (
		changed bool
		err     error
	)
	if add {
		changed, err = s.whitelist.Add(ctx, address, requester)
	} else {
		changed, err = s.whitelist.Remove(ctx, address, requester)
	}
	if err != nil || !changed {
		return changed, err
	}
	s.refreshGauges()

	u, known := s.directory.Get(address)
	if !known {
		return true, nil
	}
	u.Recompute(s.whitelist)
	if err := s.directory.Put(ctx, u); err != nil {
		// The whitelist edit stands; queries recompute roles from the live
		// whitelist and Load repairs the stored record.
		s.logger.WarnContext(ctx, "record recompute after whitelist edit failed",
			"address", address, "error", err)
	}
	return true, nil
}

// SetAccessMode changes the access mode on behalf of an admin.
func (s *Service) SetAccessMode(ctx context.Context, mode AccessMode, requestedBy string) error {
	ctx, m := s.begin(ctx, "set_access_mode", "", requestedBy, string(mode))
	if _, err := ParseAccessMode(string(mode)); err != nil {
		return s.finish(ctx, m, false, err)
	}
	changed, err := s.editModes(ctx, m, func(modes *Modes) bool {
		if modes.AccessMode == mode {
			return false
		}
		modes.AccessMode = mode
		return true
	})
	return s.finish(ctx, m, changed, err)
}

// SetKillSwitch toggles the kill switch on behalf of an admin.
func (s *Service) SetKillSwitch(ctx context.Context, active bool, requestedBy string) error {
	return s.setFlag(ctx, "set_kill_switch", requestedBy, active, func(modes *Modes) *bool {
		return &modes.KillSwitchActive
	})
}

// SetBlockAllConnections toggles connection blocking on behalf of an admin.
func (s *Service) SetBlockAllConnections(ctx context.Context, active bool, requestedBy string) error {
	return s.setFlag(ctx, "set_block_all_connections", requestedBy, active, func(modes *Modes) *bool {
		return &modes.BlockAllConnections
	})
}

// SetWhitelistOnly toggles whitelist-only access on behalf of an admin.
func (s *Service) SetWhitelistOnly(ctx context.Context, active bool, requestedBy string) error {
	return s.setFlag(ctx, "set_whitelist_only", requestedBy, active, func(modes *Modes) *bool {
		return &modes.WhitelistOnly
	})
}

func (s *Service) setFlag(ctx context.Context, op, requestedBy string, value bool, field func(*Modes) *bool) error {
	ctx, m := s.begin(ctx, op, "", requestedBy, strconv.FormatBool(value))
	changed, err := s.editModes(ctx, m, func(modes *Modes) bool {
		f := field(modes)
		if *f == value {
			return false
		}
		*f = value
		return true
	})
	return s.finish(ctx, m, changed, err)
}

// editModes authorizes m.requestedBy as an admin, applies edit and persists
// the result when it changed.
func (s *Service) editModes(ctx context.Context, m *mutation, edit func(*Modes) bool) (bool, error) {
	requester, err := access.NormalizeAddress(m.requestedBy)
	if err != nil {
		return false, err
	}
	m.requestedBy = requester

	unlock := s.keys.Lock(requester)
	defer unlock()
	s.wlMu.RLock()
	defer s.wlMu.RUnlock()

	if err := s.requireAdmin(m.op)(requester); err != nil {
		return false, err
	}

	s.modeMu.Lock()
	defer s.modeMu.Unlock()

	next := s.modes
	if !edit(&next) {
		return false, nil
	}
	if err := s.modeStore.SaveModes(ctx, next); err != nil {
		return false, oopsModes(err)
	}
	s.modes = next
	return true, nil
}

func normalizePair(address, requestedBy string) (string, string, error) {
	addr, err := access.NormalizeAddress(address)
	if err != nil {
		return "", "", err
	}
	requester, err := normalizeRequester(requestedBy)
	if err != nil {
		return "", "", err
	}
	return addr, requester, nil
}
