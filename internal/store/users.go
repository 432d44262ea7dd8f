// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 TierGate Contributors

package store

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/samber/oops"

	"github.com/tiergate/tiergate/internal/access"
	"github.com/tiergate/tiergate/internal/directory"
)

const userColumns = `address, balance, tier, roles, granted_roles, revoked_roles, custom_permissions, last_active, joined_at`

// UserRepository implements directory.Store.
type UserRepository struct {
	pool poolIface
}

// NewUserRepository creates a UserRepository.
func NewUserRepository(pool poolIface) *UserRepository {
	return &UserRepository{pool: pool}
}

// GetUser loads one record. A missing record is a NOT_FOUND error.
func (r *UserRepository) GetUser(ctx context.Context, address string) (*directory.User, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE address = $1`, address)
	u, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, access.ErrNotFound("user", address)
	}
	if err != nil {
		return nil, oops.In("store").Code("USER_GET_FAILED").With("address", address).Wrap(err)
	}
	return u, nil
}

// PutUser inserts or replaces a record. joined_at is kept from the first insert.
func (r *UserRepository) PutUser(ctx context.Context, u *directory.User) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO users (`+userColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 ON CONFLICT (address) DO UPDATE SET
		   balance = EXCLUDED.balance,
		   tier = EXCLUDED.tier,
		   roles = EXCLUDED.roles,
		   granted_roles = EXCLUDED.granted_roles,
		   revoked_roles = EXCLUDED.revoked_roles,
		   custom_permissions = EXCLUDED.custom_permissions,
		   last_active = EXCLUDED.last_active`,
		u.Address,
		u.Balance,
		int(u.Tier),
		toStrings(u.Roles),
		toStrings(u.GrantedRoles),
		toStrings(u.RevokedRoles),
		toStrings(u.CustomPermissions),
		u.LastActive,
		u.JoinedAt,
	)
	if err != nil {
		return oops.In("store").Code("USER_PUT_FAILED").With("address", u.Address).Wrap(err)
	}
	return nil
}

// ListUsers loads every record.
func (r *UserRepository) ListUsers(ctx context.Context) ([]*directory.User, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+userColumns+` FROM users ORDER BY joined_at, address`)
	if err != nil {
		return nil, oops.In("store").Code("USER_LIST_FAILED").Wrap(err)
	}
	defer rows.Close()

	var users []*directory.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, oops.In("store").Code("USER_LIST_FAILED").Wrap(err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, oops.In("store").Code("USER_LIST_FAILED").Wrap(err)
	}
	return users, nil
}

func scanUser(row pgx.Row) (*directory.User, error) {
	var (
		u                                   directory.User
		tier                                int
		roles, granted, revoked, customPerm []string
		lastActive, joinedAt                time.Time
	)
	if err := row.Scan(&u.Address, &u.Balance, &tier, &roles, &granted, &revoked, &customPerm, &lastActive, &joinedAt); err != nil {
		return nil, err
	}

	var err error
	if u.Roles, err = parseSet(roles, access.ParseRole); err != nil {
		return nil, err
	}
	if u.GrantedRoles, err = parseSet(granted, access.ParseRole); err != nil {
		return nil, err
	}
	if u.RevokedRoles, err = parseSet(revoked, access.ParseRole); err != nil {
		return nil, err
	}
	if u.CustomPermissions, err = parseSet(customPerm, access.ParsePermission); err != nil {
		return nil, err
	}
	u.Tier = access.Tier(tier)
	u.LastActive = lastActive.UTC()
	u.JoinedAt = joinedAt.UTC()
	return &u, nil
}

func toStrings[T ~string](s access.Set[T]) []string {
	out := make([]string, 0, len(s))
	for _, item := range s.Sorted() {
		out = append(out, string(item))
	}
	return out
}

// parseSet validates stored tags. An unknown tag means the row was written by
// an incompatible version.
func parseSet[T ~string](items []string, parse func(string) (T, error)) (access.Set[T], error) {
	out := access.NewSet[T]()
	for _, item := range items {
		v, err := parse(item)
		if err != nil {
			return nil, err
		}
		out.Add(v)
	}
	return out, nil
}

var _ directory.Store = (*UserRepository)(nil)
