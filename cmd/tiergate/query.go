// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 TierGate Contributors

package main

import (
	"context"
	"fmt"
	"io"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/tiergate/tiergate/internal/access"
	"github.com/tiergate/tiergate/internal/engine"
)

// tierResult is the JSON form of the tier command.
type tierResult struct {
	Balance       float64             `json:"balance"`
	Tier          access.Tier         `json:"tier"`
	Role          access.Role         `json:"role"`
	Permissions   []access.Permission `json:"permissions"`
	NextTier      *access.Tier        `json:"next_tier,omitempty"`
	NextThreshold float64             `json:"next_threshold,omitempty"`
}

func newTierCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "tier [balance]",
		Short: "Show the tier table or resolve a balance to its tier",
		Long: `Without arguments, list every tier with its minimum balance and role.
With a balance, show the tier, role and role permissions it unlocks.`,
		Args:        cobra.MaximumNArgs(1),
		Annotations: map[string]string{skipConfig: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return printTierTable(cmd.OutOrStdout(), jsonOutput)
			}
			raw, err := parseBalance(args[0])
			if err != nil {
				return err
			}
			balance, err := access.ClampBalance(raw)
			if err != nil {
				return err
			}
			return printTier(cmd.OutOrStdout(), balance, jsonOutput)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output as JSON")
	return cmd
}

func printTierTable(w io.Writer, jsonOutput bool) error {
	type row struct {
		Tier       access.Tier `json:"tier"`
		MinBalance float64     `json:"min_balance"`
		Role       access.Role `json:"role"`
	}
	rows := make([]row, 0, len(access.Tiers()))
	for _, t := range access.Tiers() {
		rows = append(rows, row{Tier: t, MinBalance: t.Threshold(), Role: access.RoleForTier(t)})
	}
	if jsonOutput {
		return writeJSON(w, rows)
	}

	tw := newTable(w)
	printf(tw, "TIER\tMIN BALANCE\tROLE\n")
	for _, r := range rows {
		printf(tw, "%s\t%s\t%s\n", r.Tier, formatBalance(r.MinBalance), r.Role)
	}
	return tw.Flush()
}

func printTier(w io.Writer, balance float64, jsonOutput bool) error {
	tier := access.TierOf(balance)
	role := access.RoleForTier(tier)
	res := tierResult{
		Balance:     balance,
		Tier:        tier,
		Role:        role,
		Permissions: access.PermissionsFor(role).Sorted(),
	}
	if tier < access.TierPhantomCouncil {
		next := tier + 1
		res.NextTier = &next
		res.NextThreshold = next.Threshold()
	}
	if jsonOutput {
		return writeJSON(w, res)
	}

	printf(w, "balance:     %s\n", formatBalance(res.Balance))
	printf(w, "tier:        %s\n", res.Tier)
	printf(w, "role:        %s\n", res.Role)
	printf(w, "permissions: %s\n", joinPermissions(res.Permissions))
	if res.NextTier != nil {
		printf(w, "next tier:   %s at %s\n", *res.NextTier, formatBalance(res.NextThreshold))
	}
	return nil
}

func newUserCmd(a *app) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "user <address>",
		Short: "Show the resolved access of an address",
		Long: `Show tier, roles, overrides and resolved permissions of an address.
Unknown addresses show the default view; nothing is created.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withEngine(cmd, func(_ context.Context, svc *engine.Service, _ *Stores) error {
				view, err := svc.User(args[0])
				if err != nil {
					return err
				}
				if jsonOutput {
					return writeJSON(cmd.OutOrStdout(), view)
				}
				printView(cmd.OutOrStdout(), view)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output as JSON")
	return cmd
}

func printView(w io.Writer, v engine.View) {
	known := "yes"
	if !v.Known {
		known = "no (default view)"
	}
	printf(w, "address:      %s\n", v.Address)
	printf(w, "known:        %s\n", known)
	printf(w, "balance:      %s\n", formatBalance(v.Balance))
	printf(w, "tier:         %s\n", v.Tier)
	printf(w, "roles:        %s\n", joinRoles(v.Roles))
	printf(w, "granted:      %s\n", joinRoles(v.GrantedRoles))
	printf(w, "revoked:      %s\n", joinRoles(v.RevokedRoles))
	printf(w, "custom:       %s\n", joinPermissions(v.CustomPermissions))
	printf(w, "permissions:  %s\n", joinPermissions(v.Permissions))
	printf(w, "whitelisted:  %t\n", v.Whitelisted)
}

func newUsersCmd(a *app) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "users",
		Short: "List every user record",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withEngine(cmd, func(_ context.Context, svc *engine.Service, _ *Stores) error {
				views := svc.Users()
				if jsonOutput {
					return writeJSON(cmd.OutOrStdout(), views)
				}
				tw := newTable(cmd.OutOrStdout())
				printf(tw, "ADDRESS\tTIER\tBALANCE\tROLES\tWHITELISTED\n")
				for _, v := range views {
					printf(tw, "%s\t%s\t%s\t%s\t%t\n", v.Address, v.Tier, formatBalance(v.Balance), joinRoles(v.Roles), v.Whitelisted)
				}
				return tw.Flush()
			})
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output as JSON")
	return cmd
}

// checkConfig holds flags for the check command.
type checkConfig struct {
	any  bool
	role string
}

func newCheckCmd(a *app) *cobra.Command {
	cfg := &checkConfig{}

	cmd := &cobra.Command{
		Use:   "check <address> [permission...]",
		Short: "Check permissions or a minimum role; exits non-zero when denied",
		Long: `Check whether an address holds every listed permission (or any of them
with --any), or whether its highest role is at least --role.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(cmd, a, cfg, args[0], args[1:])
		},
	}

	cmd.Flags().BoolVar(&cfg.any, "any", false, "require any one of the permissions instead of all")
	cmd.Flags().StringVar(&cfg.role, "role", "", "require at least this role in the hierarchy")
	return cmd
}

func runCheck(cmd *cobra.Command, a *app, cfg *checkConfig, address string, tags []string) error {
	if cfg.role == "" && len(tags) == 0 {
		return oops.In("cli").Code("INVALID_ARGUMENT").Errorf("give at least one permission or --role")
	}

	perms := make([]access.Permission, 0, len(tags))
	for _, tag := range tags {
		p, err := access.ParsePermission(tag)
		if err != nil {
			return err
		}
		perms = append(perms, p)
	}
	var role access.Role
	if cfg.role != "" {
		r, err := access.ParseRole(cfg.role)
		if err != nil {
			return err
		}
		role = r
	}

	return a.withEngine(cmd, func(_ context.Context, svc *engine.Service, _ *Stores) error {
		granted := true
		if len(perms) > 0 {
			if cfg.any {
				granted = svc.HasAnyPermission(address, perms...)
			} else {
				granted = svc.HasAllPermissions(address, perms...)
			}
		}
		if role != "" {
			granted = granted && svc.IsAtLeast(address, role)
		}

		if !granted {
			printf(cmd.OutOrStdout(), "denied\n")
			return oops.In("cli").
				Code("ACCESS_DENIED").
				With("address", address).
				Errorf("access denied for %s", address)
		}
		printf(cmd.OutOrStdout(), "granted\n")
		return nil
	})
}

func newPermsCmd(a *app) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "perms <address> [pattern]",
		Short: "List resolved permissions, optionally filtered by a glob such as access:*",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			pattern := "**"
			if len(args) == 2 {
				pattern = args[1]
			}
			return a.withEngine(cmd, func(_ context.Context, svc *engine.Service, _ *Stores) error {
				perms, err := svc.PermissionsMatching(args[0], pattern)
				if err != nil {
					return err
				}
				if jsonOutput {
					if perms == nil {
						perms = []access.Permission{}
					}
					return writeJSON(cmd.OutOrStdout(), perms)
				}
				for _, p := range perms {
					_, _ = fmt.Fprintln(cmd.OutOrStdout(), p)
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output as JSON")
	return cmd
}
