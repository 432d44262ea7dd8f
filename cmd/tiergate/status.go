// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 TierGate Contributors

package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/tiergate/tiergate/internal/access"
	"github.com/tiergate/tiergate/internal/engine"
)

// statusReport is the JSON form of the status command.
type statusReport struct {
	Driver     string         `json:"driver"`
	Modes      engine.Modes   `json:"modes"`
	Users      int            `json:"users"`
	Whitelist  int            `json:"whitelist"`
	TierCounts map[string]int `json:"tier_counts"`
}

func newStatusCmd(a *app) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Summarize modes, tier distribution and whitelist size",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withEngine(cmd, func(_ context.Context, svc *engine.Service, _ *Stores) error {
				counts := svc.TierCounts()
				report := statusReport{
					Driver:     a.cfg.Store.Driver,
					Modes:      svc.Modes(),
					Users:      len(svc.Users()),
					Whitelist:  len(svc.Whitelist()),
					TierCounts: make(map[string]int, len(access.Tiers())),
				}
				for _, t := range access.Tiers() {
					report.TierCounts[t.String()] = counts[t]
				}
				if jsonOutput {
					return writeJSON(cmd.OutOrStdout(), report)
				}

				w := cmd.OutOrStdout()
				printf(w, "driver:          %s\n", report.Driver)
				printModes(cmd, report.Modes)
				printf(w, "users:           %d\n", report.Users)
				printf(w, "whitelist:       %d\n", report.Whitelist)
				tw := newTable(w)
				printf(tw, "\nTIER\tUSERS\n")
				for _, t := range access.Tiers() {
					printf(tw, "%s\t%d\n", t, counts[t])
				}
				return tw.Flush()
			})
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output as JSON")
	return cmd
}
