// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 TierGate Contributors

package main

import (
	"context"
	"log/slog"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/tiergate/tiergate/internal/access"
	"github.com/tiergate/tiergate/internal/config"
	"github.com/tiergate/tiergate/internal/directory"
	"github.com/tiergate/tiergate/internal/engine"
	"github.com/tiergate/tiergate/internal/logging"
	"github.com/tiergate/tiergate/internal/whitelist"
	"github.com/tiergate/tiergate/internal/xdg"
)

// skipConfig marks commands that run without loading configuration.
const skipConfig = "tiergate/skip-config"

// app carries state shared by every subcommand of one invocation.
type app struct {
	deps    *Deps
	cfgFile string
	cfg     *config.Config
	logger  *slog.Logger
}

// NewRootCmd creates the root command for the tiergate CLI.
func NewRootCmd() *cobra.Command {
	return newRootCmd(nil)
}

func newRootCmd(deps *Deps) *cobra.Command {
	a := &app{deps: deps.withDefaults(), logger: slog.Default()}

	cmd := &cobra.Command{
		Use:   "tiergate",
		Short: "TierGate - balance-tiered access control",
		Long: `TierGate resolves wallet balances into membership tiers, roles and
permissions, and lets whitelisted admins edit roles, permissions, the
admin whitelist and the global access mode flags.`,
		SilenceUsage:      true,
		PersistentPreRunE: a.setup,
	}

	cmd.PersistentFlags().StringVar(&a.cfgFile, "config", "", "config file path (default: $XDG_CONFIG_HOME/tiergate/config.yaml)")
	config.RegisterFlags(cmd.PersistentFlags())

	cmd.AddCommand(
		newServeCmd(a),
		newMigrateCmd(a),
		newTierCmd(),
		newUserCmd(a),
		newUsersCmd(a),
		newCheckCmd(a),
		newPermsCmd(a),
		newBalanceCmd(a),
		newTouchCmd(a),
		newRoleCmd(a),
		newPermCmd(a),
		newWhitelistCmd(a),
		newModeCmd(a),
		newAuditCmd(a),
		newStatusCmd(a),
		newConfigCmd(a),
	)
	return cmd
}

// setup loads configuration and installs the logger before any subcommand runs.
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	if cmd.Annotations[skipConfig] == "true" {
		return nil
	}

	opts := config.LoadOptions{
		Path:     a.cfgFile,
		Explicit: a.cfgFile != "",
		Flags:    cmd.Flags(),
		Getenv:   a.deps.Getenv,
	}
	if opts.Path == "" {
		// No resolvable home directory just means no default file.
		if path, err := xdg.ConfigFile(); err == nil {
			opts.Path = path
		}
	}

	cfg, err := config.Load(opts)
	if err != nil {
		return err
	}
	a.cfg = cfg

	logger, err := logging.Setup(logging.Options{
		Service: "tiergate",
		Version: version,
		Format:  cfg.Log.Format,
		Level:   cfg.Log.Level,
	}, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	a.logger = logger
	slog.SetDefault(logger)
	return nil
}

// openEngine opens the configured stores and returns a loaded engine.
// The caller must call Stores.Close.
func (a *app) openEngine(ctx context.Context, opts ...engine.Option) (*engine.Service, *Stores, error) {
	if a.cfg.Store.Driver == config.DriverPostgres && a.cfg.Database.AutoMigrate {
		if err := a.migrateUp(); err != nil {
			return nil, nil, err
		}
	}

	stores, err := a.deps.StoresFactory(ctx, a.cfg)
	if err != nil {
		return nil, nil, err
	}

	svc, err := a.newEngine(ctx, stores, opts)
	if err != nil {
		stores.Close()
		return nil, nil, err
	}
	return svc, stores, nil
}

func (a *app) newEngine(ctx context.Context, stores *Stores, opts []engine.Option) (*engine.Service, error) {
	wl, err := whitelist.NewRegistry(stores.Whitelist, access.PermanentAdmins)
	if err != nil {
		return nil, err
	}

	base := []engine.Option{
		engine.WithModeStore(stores.Modes),
		engine.WithLogger(a.logger),
	}
	if a.cfg.Audit.Enabled {
		var sink engine.AuditWriter = engine.LogAuditWriter{Logger: a.logger}
		if stores.Audit != nil {
			sink = stores.Audit
		}
		base = append(base, engine.WithAuditWriter(sink))
	}

	svc, err := engine.New(directory.New(stores.Users), wl, append(base, opts...)...)
	if err != nil {
		return nil, err
	}
	if err := svc.Load(ctx); err != nil {
		return nil, oops.In("cli").Code("ENGINE_LOAD_FAILED").Wrap(err)
	}
	return svc, nil
}

// withEngine runs fn against a freshly opened engine and closes the stores.
func (a *app) withEngine(cmd *cobra.Command, fn func(ctx context.Context, svc *engine.Service, stores *Stores) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	svc, stores, err := a.openEngine(ctx)
	if err != nil {
		return err
	}
	defer stores.Close()
	return fn(ctx, svc, stores)
}
