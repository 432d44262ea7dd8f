// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 TierGate Contributors

package main

import (
	"net/url"
	"os"
	"path/filepath"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/tiergate/tiergate/internal/config"
	"github.com/tiergate/tiergate/internal/xdg"
)

func newConfigCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Create, inspect and validate configuration",
	}
	cmd.AddCommand(
		newConfigInitCmd(a),
		newConfigValidateCmd(a),
		newConfigShowCmd(a),
		newConfigSchemaCmd(),
	)
	return cmd
}

func newConfigInitCmd(a *app) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:         "init",
		Short:       "Write a default config file",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{skipConfig: "true"},
		RunE: func(cmd *cobra.Command, _ []string) error {
			path, err := a.configPath()
			if err != nil {
				return err
			}
			if _, err := os.Stat(path); err == nil && !force {
				return oops.In("cli").
					Code("CONFIG_EXISTS").
					With("path", path).
					Errorf("%s already exists; pass --force to overwrite", path)
			}

			if err := xdg.EnsureDir(filepath.Dir(path)); err != nil {
				return err
			}
			cfg := config.Default()
			data, err := cfg.Marshal()
			if err != nil {
				return err
			}
			if err := os.WriteFile(path, data, 0o600); err != nil {
				return oops.In("cli").Code("CONFIG_WRITE_FAILED").With("path", path).Wrap(err)
			}
			cmd.Printf("Wrote %s\n", path)
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")
	return cmd
}

func newConfigValidateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:         "validate [file]",
		Short:       "Check a config file against the schema and semantic rules",
		Args:        cobra.MaximumNArgs(1),
		Annotations: map[string]string{skipConfig: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			path := a.cfgFile
			if len(args) == 1 {
				path = args[0]
			}
			if path == "" {
				p, err := a.configPath()
				if err != nil {
					return err
				}
				path = p
			}

			if _, err := config.Load(config.LoadOptions{
				Path:     path,
				Explicit: true,
				Getenv:   a.deps.Getenv,
			}); err != nil {
				return err
			}
			cmd.Printf("%s is valid\n", path)
			return nil
		},
	}
}

func newConfigShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration after files, environment and flags",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := *a.cfg
			cfg.Database.URL = redactURL(cfg.Database.URL)
			data, err := cfg.Marshal()
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
}

func newConfigSchemaCmd() *cobra.Command {
	return &cobra.Command{
		Use:         "schema",
		Short:       "Print the JSON schema of the config file",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{skipConfig: "true"},
		RunE: func(cmd *cobra.Command, _ []string) error {
			data, err := config.GenerateSchema()
			if err != nil {
				return err
			}
			printf(cmd.OutOrStdout(), "%s\n", data)
			return nil
		},
	}
}

// configPath returns --config or the XDG default.
func (a *app) configPath() (string, error) {
	if a.cfgFile != "" {
		return a.cfgFile, nil
	}
	path, err := xdg.ConfigFile()
	if err != nil {
		return "", err
	}
	return path, nil
}

// redactURL hides the password of a database URL.
func redactURL(raw string) string {
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "<unparseable>"
	}
	return u.Redacted()
}
