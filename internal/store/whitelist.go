// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 TierGate Contributors

package store

import (
	"context"

	"github.com/samber/oops"

	"github.com/tiergate/tiergate/internal/whitelist"
)

// WhitelistRepository implements whitelist.Store over the whitelist table.
// Only the dynamic subset is stored; permanent entries are compiled in.
type WhitelistRepository struct {
	pool poolIface
}

// NewWhitelistRepository creates a WhitelistRepository.
func NewWhitelistRepository(pool poolIface) *WhitelistRepository {
	return &WhitelistRepository{pool: pool}
}

// ListWhitelist returns every dynamic entry ordered by address.
func (r *WhitelistRepository) ListWhitelist(ctx context.Context) ([]whitelist.Entry, error) {
	rows, err := r.pool.Query(ctx, `SELECT address, added_by, added_at FROM whitelist ORDER BY address`)
	if err != nil {
		return nil, oops.In("store").Code("WHITELIST_QUERY_FAILED").Wrap(err)
	}
	defer rows.Close()

	var entries []whitelist.Entry
	for rows.Next() {
		var e whitelist.Entry
		if err := rows.Scan(&e.Address, &e.AddedBy, &e.AddedAt); err != nil {
			return nil, oops.In("store").Code("WHITELIST_QUERY_FAILED").Wrap(err)
		}
		e.AddedAt = e.AddedAt.UTC()
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, oops.In("store").Code("WHITELIST_QUERY_FAILED").Wrap(err)
	}
	return entries, nil
}

// AddWhitelist inserts entry. An existing row for the address is left as is.
func (r *WhitelistRepository) AddWhitelist(ctx context.Context, entry whitelist.Entry) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO whitelist (address, added_by, added_at) VALUES ($1, $2, $3)`,
		entry.Address, entry.AddedBy, entry.AddedAt)
	if err != nil && !isUniqueViolation(err) {
		return oops.In("store").
			Code("WHITELIST_INSERT_FAILED").
			With("address", entry.Address).
			Wrap(err)
	}
	return nil
}

// RemoveWhitelist deletes the row for address, if any.
func (r *WhitelistRepository) RemoveWhitelist(ctx context.Context, address string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM whitelist WHERE address = $1`, address)
	if err != nil {
		return oops.In("store").
			Code("WHITELIST_DELETE_FAILED").
			With("address", address).
			Wrap(err)
	}
	return nil
}

var _ whitelist.Store = (*WhitelistRepository)(nil)
