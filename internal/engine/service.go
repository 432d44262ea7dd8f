// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 TierGate Contributors

// Package engine is the access control facade. It answers permission queries
// from the in-memory directory and whitelist, and applies authorized
// mutations against them.
//
// Locking: mutations first take the per-address locks of the target and the
// requester (in sorted order), then the whitelist lock. User mutations hold
// the whitelist lock shared, whitelist mutations hold it exclusively. The
// requester's authorization is therefore evaluated against the same state the
// write is applied to. Queries take no engine locks.
package engine

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/tiergate/tiergate/internal/access"
	"github.com/tiergate/tiergate/internal/directory"
	"github.com/tiergate/tiergate/internal/whitelist"
	"github.com/tiergate/tiergate/pkg/errutil"
)

var tracer = otel.Tracer("github.com/tiergate/tiergate/internal/engine")

// Service is the access control facade.
type Service struct {
	directory *directory.Directory
	whitelist *whitelist.Registry
	modeStore ModeStore
	audit     AuditWriter
	metrics   *Metrics
	logger    *slog.Logger
	now       func() time.Time

	keys *keyedMutex
	wlMu sync.RWMutex

	modeMu sync.RWMutex
	modes  Modes
}

// Option configures a Service.
type Option func(*Service)

// WithModeStore sets the store persisting mode flags.
func WithModeStore(store ModeStore) Option {
	return func(s *Service) {
		s.modeStore = store
	}
}

// WithAuditWriter sets the audit sink.
func WithAuditWriter(w AuditWriter) Option {
	return func(s *Service) {
		s.audit = w
	}
}

// WithMetrics sets the collectors the service reports to.
func WithMetrics(m *Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithLogger sets the service logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithClock overrides the time source for record timestamps and audit ids.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// New creates a Service over dir and wl.
func New(dir *directory.Directory, wl *whitelist.Registry, opts ...Option) (*Service, error) {
	if dir == nil {
		return nil, oops.In("engine").Code("ENGINE_MISCONFIGURED").Errorf("directory is required")
	}
	if wl == nil {
		return nil, oops.In("engine").Code("ENGINE_MISCONFIGURED").Errorf("whitelist is required")
	}

	s := &Service{
		directory: dir,
		whitelist: wl,
		modeStore: NewMemoryModeStore(),
		audit:     discardAuditWriter{},
		logger:    slog.Default(),
		now:       time.Now,
		keys:      newKeyedMutex(),
		modes:     DefaultModes(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.metrics == nil {
		s.metrics = NewMetrics(nil)
	}
	return s, nil
}

// Load reads the directory, whitelist and mode flags from their stores.
// Records are recomputed against the loaded whitelist so derived roles never
// lag a whitelist edit that happened while the service was down.
func (s *Service) Load(ctx context.Context) error {
	if err := s.whitelist.Load(ctx); err != nil {
		return err
	}
	if err := s.directory.Load(ctx); err != nil {
		return err
	}

	modes, err := s.modeStore.LoadModes(ctx)
	if err != nil {
		return oops.In("engine").Code("MODES_LOAD_FAILED").Wrap(err)
	}
	s.modeMu.Lock()
	s.modes = modes
	s.modeMu.Unlock()

	for _, u := range s.directory.List() {
		before := u.Roles.Clone()
		u.Recompute(s.whitelist)
		if before.Equal(u.Roles) {
			continue
		}
		if err := s.directory.Put(ctx, u); err != nil {
			return err
		}
		s.logger.InfoContext(ctx, "recomputed stale roles on load", "address", u.Address)
	}

	s.refreshGauges()
	s.logger.InfoContext(ctx, "access state loaded",
		"users", s.directory.Len(),
		"whitelist", s.whitelist.Len(),
		"access_mode", string(modes.AccessMode),
	)
	return nil
}

func (s *Service) refreshGauges() {
	s.metrics.DirectoryUsers.Set(float64(s.directory.Len()))
	s.metrics.WhitelistEntries.Set(float64(s.whitelist.Len()))
}

// mutation carries the bookkeeping for one mutating call.
type mutation struct {
	op          string
	address     string
	requestedBy string
	detail      string
	span        trace.Span
}

func (s *Service) begin(ctx context.Context, op, address, requestedBy, detail string) (context.Context, *mutation) {
	ctx, span := tracer.Start(ctx, "engine."+op, trace.WithAttributes(
		attribute.String("tiergate.address", address),
		attribute.String("tiergate.requested_by", requestedBy),
	))
	return ctx, &mutation{op: op, address: address, requestedBy: requestedBy, detail: detail, span: span}
}

// finish records the audit entry, metric and log line for m and returns err
// unchanged. Audit failures are logged and never fail the mutation.
func (s *Service) finish(ctx context.Context, m *mutation, changed bool, err error) error {
	defer m.span.End()

	outcome := OutcomeApplied
	switch {
	case err != nil && (access.IsUnauthorized(err) || access.IsProtected(err)):
		outcome = OutcomeDenied
	case err != nil:
		outcome = OutcomeFailed
	case !changed:
		outcome = OutcomeNoop
	}

	entry := AuditEntry{
		ID:          ulid.MustNew(ulid.Timestamp(s.now()), ulid.DefaultEntropy()),
		Operation:   m.op,
		Address:     m.address,
		RequestedBy: m.requestedBy,
		Detail:      m.detail,
		Outcome:     outcome,
		At:          s.now().UTC(),
	}
	if err != nil {
		entry.Error = err.Error()
		m.span.RecordError(err)
		m.span.SetStatus(codes.Error, errutil.Code(err))
	}
	if auditErr := s.audit.WriteAudit(ctx, entry); auditErr != nil {
		s.logger.WarnContext(ctx, "audit write failed", "operation", m.op, "error", auditErr)
	}

	s.metrics.mutation(m.op, outcome)
	m.span.SetAttributes(attribute.String("tiergate.outcome", string(outcome)))

	switch outcome {
	case OutcomeFailed:
		errutil.LogError(s.logger, m.op+" failed", err)
	case OutcomeDenied:
		s.logger.WarnContext(ctx, "mutation denied",
			"operation", m.op,
			"address", m.address,
			"requested_by", m.requestedBy,
			"code", errutil.Code(err),
		)
	case OutcomeApplied:
		s.logger.InfoContext(ctx, "mutation applied",
			"operation", m.op,
			"address", m.address,
			"requested_by", m.requestedBy,
			"detail", m.detail,
		)
	}
	return err
}

// normalizeRequester normalizes requestedBy, passing SystemActor through.
func normalizeRequester(requestedBy string) (string, error) {
	if requestedBy == access.SystemActor {
		return requestedBy, nil
	}
	return access.NormalizeAddress(requestedBy)
}

// rolesOf returns the current roles of a normalized address without creating
// a record. Callers hold wlMu when the result gates a write.
func (s *Service) rolesOf(address string) access.Set[access.Role] {
	u, ok := s.directory.Get(address)
	if !ok {
		return access.RolesFor(address, access.TierOf(0), s.whitelist)
	}
	u.Recompute(s.whitelist)
	return u.Roles
}

// isAdmin reports whether address holds an administrative role.
func (s *Service) isAdmin(address string) bool {
	return s.rolesOf(address).HasAny(access.RoleAdmin, access.RoleSuperAdmin)
}
