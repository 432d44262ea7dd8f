// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 TierGate Contributors

package main

import (
	"context"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/tiergate/tiergate/internal/access"
	"github.com/tiergate/tiergate/internal/config"
	"github.com/tiergate/tiergate/internal/engine"
)

const shutdownTimeout = 5 * time.Second

func newServeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Load the engine and serve metrics and health probes until stopped",
		Long: `Load the access engine from the configured store and serve Prometheus
metrics and liveness/readiness probes on metrics.addr until SIGINT or SIGTERM.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			return a.runServe(ctx, cmd)
		},
	}
}

func (a *app) runServe(ctx context.Context, cmd *cobra.Command) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	slog.Info("starting tiergate",
		"store", a.cfg.Store.Driver,
		"metrics_addr", a.cfg.Metrics.Addr,
		"audit", a.cfg.Audit.Enabled,
	)

	if a.cfg.Store.Driver == config.DriverPostgres && a.cfg.Database.AutoMigrate {
		if err := a.migrateUp(); err != nil {
			return err
		}
	}

	stores, err := a.deps.StoresFactory(ctx, a.cfg)
	if err != nil {
		return err
	}
	defer stores.Close()

	var obsServer ObservabilityServer
	var opts []engine.Option
	if a.cfg.Metrics.Addr != "" {
		obsServer = a.deps.ObservabilityServerFactory(a.cfg.Metrics.Addr, stores.Ping)
		opts = append(opts, engine.WithMetrics(engine.NewMetrics(obsServer.Registry())))
	}

	svc, err := a.newEngine(ctx, stores, opts)
	if err != nil {
		return err
	}

	if obsServer != nil {
		obsErrChan, err := obsServer.Start()
		if err != nil {
			return oops.In("cli").Code("OBSERVABILITY_START_FAILED").Wrap(err)
		}
		go monitorServerErrors(ctx, cancel, obsErrChan, "observability")
		slog.Info("observability server started", "addr", obsServer.Addr())
	}

	counts := svc.TierCounts()
	attrs := []any{"users", len(svc.Users()), "whitelist", len(svc.Whitelist())}
	for _, t := range access.Tiers() {
		attrs = append(attrs, "tier_"+t.String(), counts[t])
	}
	slog.Info("engine ready", attrs...)
	cmd.Println("TierGate started")

	<-ctx.Done()
	slog.Info("shutting down...")

	if obsServer != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer shutdownCancel()
		if err := obsServer.Stop(shutdownCtx); err != nil {
			slog.Warn("error stopping observability server", "error", err)
		}
	}

	slog.Info("shutdown complete")
	return nil
}

// monitorServerErrors cancels the context when a server reports an error.
// It returns when an error arrives, the channel closes, or ctx is done.
func monitorServerErrors(ctx context.Context, cancel context.CancelFunc, errCh <-chan error, serverName string) {
	select {
	case err, ok := <-errCh:
		if !ok {
			return
		}
		if err != nil {
			slog.Error("server error, triggering shutdown",
				"server", serverName,
				"error", err,
			)
			cancel()
		}
	case <-ctx.Done():
	}
}
