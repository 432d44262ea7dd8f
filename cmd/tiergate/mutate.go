// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 TierGate Contributors

package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/tiergate/tiergate/internal/access"
	"github.com/tiergate/tiergate/internal/engine"
)

// addRequesterFlag registers --as. Admin-only commands pass an empty default
// and mark the flag required.
func addRequesterFlag(cmd *cobra.Command, target *string, def string) {
	cmd.Flags().StringVar(target, "as", def, "address of the requesting actor")
	if def == "" {
		_ = cmd.MarkFlagRequired("as")
	}
}

// reportChange prints "changed" or "unchanged" for idempotent mutations.
func reportChange(cmd *cobra.Command, changed bool) {
	if changed {
		printf(cmd.OutOrStdout(), "changed\n")
		return
	}
	printf(cmd.OutOrStdout(), "unchanged\n")
}

func newBalanceCmd(a *app) *cobra.Command {
	var (
		requester  string
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "balance <address> <amount>",
		Short: "Set the balance of an address and re-derive its tier",
		Long: `Set the balance of an address. Negative amounts are clamped to zero.
The balance oracle acts as "system"; admins may also set balances.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := parseBalance(args[1])
			if err != nil {
				return err
			}
			return a.withEngine(cmd, func(ctx context.Context, svc *engine.Service, _ *Stores) error {
				view, err := svc.SetBalance(ctx, args[0], amount, requester)
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

	addRequesterFlag(cmd, &requester, access.SystemActor)
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output as JSON")
	return cmd
}

func newTouchCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "touch <address>",
		Short: "Record activity for an address, creating it if unknown",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withEngine(cmd, func(ctx context.Context, svc *engine.Service, _ *Stores) error {
				view, err := svc.Touch(ctx, args[0])
				if err != nil {
					return err
				}
				printf(cmd.OutOrStdout(), "%s last active %s\n", view.Address, view.LastActive.Format(time.RFC3339))
				return nil
			})
		},
	}
}

func newRoleCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "role",
		Short: "Grant or remove roles (admin only)",
	}
	cmd.AddCommand(
		newRoleEditCmd(a, "add", "Grant a role to an address", (*engine.Service).AddRole),
		newRoleEditCmd(a, "remove", "Remove a role from an address", (*engine.Service).RemoveRole),
	)
	return cmd
}

type roleEdit func(*engine.Service, context.Context, string, access.Role, string) (bool, error)

func newRoleEditCmd(a *app, use, short string, edit roleEdit) *cobra.Command {
	var requester string

	cmd := &cobra.Command{
		Use:   use + " <address> <role>",
		Short: short,
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			role, err := access.ParseRole(args[1])
			if err != nil {
				return err
			}
			return a.withEngine(cmd, func(ctx context.Context, svc *engine.Service, _ *Stores) error {
				changed, err := edit(svc, ctx, args[0], role, requester)
				if err != nil {
					return err
				}
				reportChange(cmd, changed)
				return nil
			})
		},
	}

	addRequesterFlag(cmd, &requester, "")
	return cmd
}

func newPermCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "perm",
		Short: "Grant or revoke custom permissions (admin only)",
	}
	cmd.AddCommand(newPermGrantCmd(a), newPermRevokeCmd(a))
	return cmd
}

func newPermGrantCmd(a *app) *cobra.Command {
	var requester string

	cmd := &cobra.Command{
		Use:   "grant <address> <permission>",
		Short: "Add a permission to the custom set of an address",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			perm, err := access.ParsePermission(args[1])
			if err != nil {
				return err
			}
			return a.withEngine(cmd, func(ctx context.Context, svc *engine.Service, _ *Stores) error {
				changed, err := svc.GrantPermission(ctx, args[0], perm, requester)
				if err != nil {
					return err
				}
				reportChange(cmd, changed)
				return nil
			})
		},
	}

	addRequesterFlag(cmd, &requester, "")
	return cmd
}

func newPermRevokeCmd(a *app) *cobra.Command {
	var requester string

	cmd := &cobra.Command{
		Use:   "revoke <address> <permission>",
		Short: "Remove a permission from the custom set of an address",
		Long: `Remove a permission from the custom set. When a held role still implies
the permission, the address keeps it and the roles are listed.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			perm, err := access.ParsePermission(args[1])
			if err != nil {
				return err
			}
			return a.withEngine(cmd, func(ctx context.Context, svc *engine.Service, _ *Stores) error {
				res, err := svc.RevokePermission(ctx, args[0], perm, requester)
				if err != nil {
					return err
				}
				reportChange(cmd, res.Removed)
				if res.StillGranted() {
					printf(cmd.OutOrStdout(), "still granted via %s\n", joinRoles(res.RetainedVia))
				}
				return nil
			})
		},
	}

	addRequesterFlag(cmd, &requester, "")
	return cmd
}

func newWhitelistCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "whitelist",
		Short: "Inspect or edit the admin whitelist",
	}
	cmd.AddCommand(
		newWhitelistListCmd(a),
		newWhitelistEditCmd(a, "add", "Add an address to the whitelist", (*engine.Service).AddToWhitelist),
		newWhitelistEditCmd(a, "remove", "Remove an address from the whitelist", (*engine.Service).RemoveFromWhitelist),
	)
	return cmd
}

func newWhitelistListCmd(a *app) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List whitelisted addresses",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withEngine(cmd, func(_ context.Context, svc *engine.Service, _ *Stores) error {
				addrs := svc.Whitelist()
				if jsonOutput {
					type entry struct {
						Address   string `json:"address"`
						Permanent bool   `json:"permanent"`
					}
					out := make([]entry, len(addrs))
					for i, addr := range addrs {
						out[i] = entry{Address: addr, Permanent: svc.IsPermanentAdmin(addr)}
					}
					return writeJSON(cmd.OutOrStdout(), out)
				}
				tw := newTable(cmd.OutOrStdout())
				printf(tw, "ADDRESS\tPERMANENT\n")
				for _, addr := range addrs {
					printf(tw, "%s\t%t\n", addr, svc.IsPermanentAdmin(addr))
				}
				return tw.Flush()
			})
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output as JSON")
	return cmd
}

type whitelistEdit func(*engine.Service, context.Context, string, string) (bool, error)

func newWhitelistEditCmd(a *app, use, short string, edit whitelistEdit) *cobra.Command {
	var requester string

	cmd := &cobra.Command{
		Use:   use + " <address>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withEngine(cmd, func(ctx context.Context, svc *engine.Service, _ *Stores) error {
				changed, err := edit(svc, ctx, args[0], requester)
				if err != nil {
					return err
				}
				reportChange(cmd, changed)
				return nil
			})
		},
	}

	addRequesterFlag(cmd, &requester, "")
	return cmd
}

func newModeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mode",
		Short: "Show or change the global access mode flags",
	}
	cmd.AddCommand(
		newModeShowCmd(a),
		newModeAccessCmd(a),
		newModeFlagCmd(a, "kill-switch", "Activate or clear the kill switch", (*engine.Service).SetKillSwitch),
		newModeFlagCmd(a, "block-all", "Block or allow all connections", (*engine.Service).SetBlockAllConnections),
		newModeFlagCmd(a, "whitelist-only", "Restrict or open access to whitelisted addresses", (*engine.Service).SetWhitelistOnly),
	)
	return cmd
}

func newModeShowCmd(a *app) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show the current mode flags",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withEngine(cmd, func(_ context.Context, svc *engine.Service, _ *Stores) error {
				modes := svc.Modes()
				if jsonOutput {
					return writeJSON(cmd.OutOrStdout(), modes)
				}
				printModes(cmd, modes)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output as JSON")
	return cmd
}

func printModes(cmd *cobra.Command, m engine.Modes) {
	w := cmd.OutOrStdout()
	printf(w, "access mode:     %s\n", m.AccessMode)
	printf(w, "kill switch:     %s\n", onOff(m.KillSwitchActive))
	printf(w, "block all:       %s\n", onOff(m.BlockAllConnections))
	printf(w, "whitelist only:  %s\n", onOff(m.WhitelistOnly))
}

func newModeAccessCmd(a *app) *cobra.Command {
	var requester string

	cmd := &cobra.Command{
		Use:   "access <NORMAL|LOCKDOWN>",
		Short: "Set the access mode",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mode, err := engine.ParseAccessMode(args[0])
			if err != nil {
				return err
			}
			return a.withEngine(cmd, func(ctx context.Context, svc *engine.Service, _ *Stores) error {
				if err := svc.SetAccessMode(ctx, mode, requester); err != nil {
					return err
				}
				printf(cmd.OutOrStdout(), "access mode %s\n", mode)
				return nil
			})
		},
	}

	addRequesterFlag(cmd, &requester, "")
	return cmd
}

type flagEdit func(*engine.Service, context.Context, bool, string) error

func newModeFlagCmd(a *app, use, short string, edit flagEdit) *cobra.Command {
	var requester string

	cmd := &cobra.Command{
		Use:   use + " <on|off>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			active, err := parseSwitch(args[0])
			if err != nil {
				return err
			}
			return a.withEngine(cmd, func(ctx context.Context, svc *engine.Service, _ *Stores) error {
				if err := edit(svc, ctx, active, requester); err != nil {
					return err
				}
				printf(cmd.OutOrStdout(), "%s %s\n", use, onOff(active))
				return nil
			})
		},
	}

	addRequesterFlag(cmd, &requester, "")
	return cmd
}
