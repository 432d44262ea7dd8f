// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 TierGate Contributors

package main

import (
	"context"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/samber/oops"

	"github.com/tiergate/tiergate/internal/config"
	"github.com/tiergate/tiergate/internal/directory"
	"github.com/tiergate/tiergate/internal/engine"
	"github.com/tiergate/tiergate/internal/observability"
	"github.com/tiergate/tiergate/internal/store"
	"github.com/tiergate/tiergate/internal/whitelist"
)

// Deps contains injectable dependencies for the commands.
// All fields with nil values will use their default implementations.
type Deps struct {
	// StoresFactory opens the persistence selected by cfg.Store.Driver.
	// Default: openStores
	StoresFactory func(ctx context.Context, cfg *config.Config) (*Stores, error)

	// MigratorFactory creates a schema migrator for a database URL.
	// Default: store.NewMigrator
	MigratorFactory func(databaseURL string) (Migrator, error)

	// ObservabilityServerFactory creates the metrics/health server.
	// Default: observability.NewServer
	ObservabilityServerFactory func(addr string, ready observability.ReadinessChecker) ObservabilityServer

	// Getenv reads environment variables.
	// Default: os.Getenv
	Getenv func(string) string
}

// Stores is the persistence an engine runs on.
type Stores struct {
	Users     directory.Store
	Whitelist whitelist.Store
	Modes     engine.ModeStore
	// Audit is the durable audit sink, nil when the driver has none.
	Audit engine.AuditWriter
	// History reads the audit trail back, nil when unsupported.
	History AuditReader
	Ping    func(ctx context.Context) error
	Close   func()
}

// AuditReader wraps store.AuditRepository.RecentAudit.
type AuditReader interface {
	RecentAudit(ctx context.Context, address string, limit int) ([]engine.AuditEntry, error)
}

// Migrator wraps the methods used from store.Migrator.
type Migrator interface {
	Up() error
	Down() error
	Steps(n int) error
	Version() (uint, bool, error)
	Force(version int) error
	Status() (store.MigrationStatus, error)
	Close() error
}

// ObservabilityServer wraps the methods used from observability.Server.
type ObservabilityServer interface {
	Start() (<-chan error, error)
	Stop(ctx context.Context) error
	Addr() string
	Registry() prometheus.Registerer
}

func (d *Deps) withDefaults() *Deps {
	out := Deps{}
	if d != nil {
		out = *d
	}
	if out.StoresFactory == nil {
		out.StoresFactory = openStores
	}
	if out.MigratorFactory == nil {
		out.MigratorFactory = func(url string) (Migrator, error) {
			return store.NewMigrator(url)
		}
	}
	if out.ObservabilityServerFactory == nil {
		out.ObservabilityServerFactory = func(addr string, ready observability.ReadinessChecker) ObservabilityServer {
			return observability.NewServer(addr, ready)
		}
	}
	if out.Getenv == nil {
		out.Getenv = os.Getenv
	}
	return &out
}

// openStores is the default StoresFactory.
func openStores(ctx context.Context, cfg *config.Config) (*Stores, error) {
	switch cfg.Store.Driver {
	case config.DriverMemory:
		return memoryStores(), nil
	case config.DriverPostgres:
		pg, err := store.Connect(ctx, cfg.Database.URL, store.ConnectOptions{
			Retries: cfg.Database.ConnectRetries,
			Backoff: cfg.Database.ConnectBackoff,
		})
		if err != nil {
			return nil, err
		}
		return &Stores{
			Users:     pg.Users,
			Whitelist: pg.Lists,
			Modes:     pg.Modes,
			Audit:     pg.Audit,
			History:   pg.Audit,
			Ping:      pg.Ping,
			Close:     pg.Close,
		}, nil
	default:
		return nil, oops.In("cli").Code("INVALID_CONFIG").Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}

// memoryStores returns process-local stores. State is lost on exit.
func memoryStores() *Stores {
	audit := &engine.MemoryAuditLog{}
	return &Stores{
		Users:     directory.NewMemoryStore(),
		Whitelist: whitelist.NewMemoryStore(),
		Modes:     engine.NewMemoryModeStore(),
		Audit:     audit,
		History:   audit,
		Ping:      func(context.Context) error { return nil },
		Close:     func() {},
	}
}
