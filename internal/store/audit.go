// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 TierGate Contributors

package store

import (
	"context"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/tiergate/tiergate/internal/engine"
)

// AuditRepository implements engine.AuditWriter over access_audit and
// serves audit history reads.
type AuditRepository struct {
	pool poolIface
}

// NewAuditRepository creates an AuditRepository.
func NewAuditRepository(pool poolIface) *AuditRepository {
	return &AuditRepository{pool: pool}
}

// WriteAudit inserts entry. Re-inserting an id already stored is a no-op.
func (r *AuditRepository) WriteAudit(ctx context.Context, e engine.AuditEntry) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO access_audit (id, operation, address, requested_by, detail, outcome, error, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		e.ID.String(), e.Operation, e.Address, e.RequestedBy, e.Detail, string(e.Outcome), e.Error, e.At)
	if err != nil && !isUniqueViolation(err) {
		return oops.In("store").
			Code("AUDIT_WRITE_FAILED").
			With("audit_id", e.ID.String()).
			With("operation", e.Operation).
			Wrap(err)
	}
	return nil
}

// RecentAudit returns the newest entries, optionally filtered to one address.
// An empty address returns entries for every address.
func (r *AuditRepository) RecentAudit(ctx context.Context, address string, limit int) ([]engine.AuditEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.pool.Query(ctx,
		`SELECT id, operation, address, requested_by, detail, outcome, error, created_at
		 FROM access_audit
		 WHERE $1 = '' OR address = $1
		 ORDER BY id DESC
		 LIMIT $2`,
		address, limit)
	if err != nil {
		return nil, oops.In("store").Code("AUDIT_QUERY_FAILED").Wrap(err)
	}
	defer rows.Close()

	var entries []engine.AuditEntry
	for rows.Next() {
		var (
			e       engine.AuditEntry
			id      string
			outcome string
		)
		if err := rows.Scan(&id, &e.Operation, &e.Address, &e.RequestedBy, &e.Detail, &outcome, &e.Error, &e.At); err != nil {
			return nil, oops.In("store").Code("AUDIT_QUERY_FAILED").Wrap(err)
		}
		if e.ID, err = ulid.Parse(id); err != nil {
			return nil, oops.In("store").Code("AUDIT_QUERY_FAILED").With("audit_id", id).Wrap(err)
		}
		e.Outcome = engine.Outcome(outcome)
		e.At = e.At.UTC()
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, oops.In("store").Code("AUDIT_QUERY_FAILED").Wrap(err)
	}
	return entries, nil
}

var _ engine.AuditWriter = (*AuditRepository)(nil)
