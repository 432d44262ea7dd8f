// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 TierGate Contributors

package engine

import (
	"context"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// Outcome classifies a mutation attempt.
type Outcome string

// Mutation outcomes.
const (
	OutcomeApplied Outcome = "applied"
	OutcomeNoop    Outcome = "noop"
	OutcomeDenied  Outcome = "denied"
	OutcomeFailed  Outcome = "failed"
)

// AuditEntry records one mutation attempt, successful or not.
type AuditEntry struct {
	ID          ulid.ULID
	Operation   string
	Address     string
	RequestedBy string
	Detail      string
	Outcome     Outcome
	Error       string
	At          time.Time
}

// AuditWriter persists audit entries.
type AuditWriter interface {
	WriteAudit(ctx context.Context, entry AuditEntry) error
}

// LogAuditWriter writes audit entries to a slog.Logger. Used when no durable
// audit sink is configured.
type LogAuditWriter struct {
	Logger *slog.Logger
}

// WriteAudit logs entry at Info.
func (w LogAuditWriter) WriteAudit(ctx context.Context, entry AuditEntry) error {
	logger := w.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.InfoContext(ctx, "audit",
		"audit_id", entry.ID.String(),
		"operation", entry.Operation,
		"address", entry.Address,
		"requested_by", entry.RequestedBy,
		"detail", entry.Detail,
		"outcome", string(entry.Outcome),
		"error", entry.Error,
	)
	return nil
}

// MemoryAuditLog keeps audit entries in process memory.
type MemoryAuditLog struct {
	mu      sync.Mutex
	entries []AuditEntry
}

// WriteAudit appends entry.
func (l *MemoryAuditLog) WriteAudit(_ context.Context, entry AuditEntry) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, entry)
	return nil
}

// RecentAudit returns up to limit entries, newest first, optionally filtered
// to one address. A non-positive limit means 50.
func (l *MemoryAuditLog) RecentAudit(_ context.Context, address string, limit int) ([]AuditEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	var out []AuditEntry
	for _, e := range slices.Backward(l.entries) {
		if len(out) == limit {
			break
		}
		if address == "" || e.Address == address {
			out = append(out, e)
		}
	}
	return out, nil
}

// discardAuditWriter drops every entry.
type discardAuditWriter struct{}

func (discardAuditWriter) WriteAudit(context.Context, AuditEntry) error { return nil }

var (
	_ AuditWriter = LogAuditWriter{}
	_ AuditWriter = discardAuditWriter{}
)
