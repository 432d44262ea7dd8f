// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 TierGate Contributors

package main

import (
	"strconv"
	"strings"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/tiergate/tiergate/internal/config"
	"github.com/tiergate/tiergate/internal/store"
)

func newMigrateCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage database schema migrations",
		Long: `Manage the PostgreSQL schema. Without a subcommand, apply every
pending migration.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runMigrateUp(cmd)
		},
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply all pending migrations",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return a.runMigrateUp(cmd)
			},
		},
		newMigrateDownCmd(a),
		&cobra.Command{
			Use:   "steps <n>",
			Short: "Apply n migrations up (positive) or down (negative)",
			Long: `Apply n migrations up (positive) or down (negative). Put -- before a
negative count so it is not read as a flag: tiergate migrate steps -- -1`,
			Args: cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				n, err := parseSteps(args[0])
				if err != nil {
					return err
				}
				return a.withMigrator(func(m Migrator) error {
					if err := m.Steps(n); err != nil {
						return err
					}
					cmd.Printf("Migrated %d step(s)\n", n)
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "version",
			Short: "Show the applied schema version",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return a.withMigrator(func(m Migrator) error {
					v, dirty, err := m.Version()
					if err != nil {
						return err
					}
					if dirty {
						cmd.Printf("%d (dirty)\n", v)
						return nil
					}
					cmd.Printf("%d\n", v)
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "force <version>",
			Short: "Mark a version as applied without running it",
			Long: `Mark a version as applied without running it. Use this to clear a
dirty state after repairing a failed migration by hand.`,
			Args: cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				v, err := parseForceVersion(args[0])
				if err != nil {
					return err
				}
				return a.withMigrator(func(m Migrator) error {
					if err := m.Force(v); err != nil {
						return err
					}
					cmd.Printf("Forced version %d\n", v)
					return nil
				})
			},
		},
		newMigrateStatusCmd(a),
	)
	return cmd
}

func newMigrateDownCmd(a *app) *cobra.Command {
	var confirm bool

	cmd := &cobra.Command{
		Use:   "down",
		Short: "Roll back every migration, dropping all access data",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !confirm {
				return oops.In("cli").Code("CONFIRMATION_REQUIRED").Errorf("migrate down drops all data; pass --yes to confirm")
			}
			return a.withMigrator(func(m Migrator) error {
				if err := m.Down(); err != nil {
					return err
				}
				cmd.Println("All migrations rolled back")
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&confirm, "yes", false, "confirm dropping all data")
	return cmd
}

func newMigrateStatusCmd(a *app) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "List applied and pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withMigrator(func(m Migrator) error {
				status, err := m.Status()
				if err != nil {
					return err
				}
				if jsonOutput {
					return writeJSON(cmd.OutOrStdout(), status)
				}

				tw := newTable(cmd.OutOrStdout())
				printf(tw, "VERSION\tNAME\tSTATE\n")
				for _, list := range []struct {
					versions []uint
					state    string
				}{{status.Applied, "applied"}, {status.Pending, "pending"}} {
					for _, v := range list.versions {
						name, err := store.MigrationName(v)
						if err != nil {
							return err
						}
						state := list.state
						if status.Dirty && v == status.Current {
							state = "dirty"
						}
						printf(tw, "%d\t%s\t%s\n", v, name, state)
					}
				}
				return tw.Flush()
			})
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output as JSON")
	return cmd
}

func (a *app) runMigrateUp(cmd *cobra.Command) error {
	cmd.Println("Running migrations...")
	if err := a.migrateUp(); err != nil {
		return err
	}
	cmd.Println("Migrations completed successfully")
	return nil
}

// migrateUp applies pending migrations to the configured database.
func (a *app) migrateUp() error {
	return a.withMigrator(func(m Migrator) error {
		return m.Up()
	})
}

func (a *app) withMigrator(fn func(Migrator) error) error {
	if a.cfg.Store.Driver != config.DriverPostgres {
		return oops.In("cli").
			Code("MIGRATION_UNSUPPORTED").
			With("driver", a.cfg.Store.Driver).
			Errorf("migrations need the postgres store, configured driver is %q", a.cfg.Store.Driver)
	}

	m, err := a.deps.MigratorFactory(a.cfg.Database.URL)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := m.Close(); cerr != nil {
			a.logger.Warn("failed to close migrator", "error", cerr)
		}
	}()
	return fn(m)
}

func parseForceVersion(arg string) (int, error) {
	v, err := strconv.Atoi(strings.TrimSpace(arg))
	if err != nil || v < 0 {
		return 0, oops.In("cli").
			Code("INVALID_VERSION").
			With("version", arg).
			Errorf("version must be a non-negative integer, got %q", arg)
	}
	return v, nil
}

func parseSteps(arg string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(arg))
	if err != nil || n == 0 {
		return 0, oops.In("cli").
			Code("INVALID_ARGUMENT").
			With("steps", arg).
			Errorf("steps must be a non-zero integer, got %q", arg)
	}
	return n, nil
}
