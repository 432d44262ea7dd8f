// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 TierGate Contributors

package main

import (
	"context"
	"time"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/tiergate/tiergate/internal/access"
	"github.com/tiergate/tiergate/internal/engine"
)

// auditRecord is the JSON form of an audit entry.
type auditRecord struct {
	ID          string    `json:"id"`
	At          time.Time `json:"at"`
	Operation   string    `json:"operation"`
	Address     string    `json:"address,omitempty"`
	RequestedBy string    `json:"requested_by,omitempty"`
	Detail      string    `json:"detail,omitempty"`
	Outcome     string    `json:"outcome"`
	Error       string    `json:"error,omitempty"`
}

func newAuditCmd(a *app) *cobra.Command {
	var (
		limit      int
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "audit [address]",
		Short: "Show recent mutation attempts, newest first",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var address string
			if len(args) == 1 {
				addr, err := access.NormalizeAddress(args[0])
				if err != nil {
					return err
				}
				address = addr
			}
			if limit <= 0 {
				return oops.In("cli").Code("INVALID_ARGUMENT").With("limit", limit).Errorf("--limit must be positive")
			}

			return a.withEngine(cmd, func(ctx context.Context, _ *engine.Service, stores *Stores) error {
				if stores.History == nil {
					return oops.In("cli").
						Code("AUDIT_UNAVAILABLE").
						With("driver", a.cfg.Store.Driver).
						Errorf("store driver %q keeps no audit history", a.cfg.Store.Driver)
				}
				entries, err := stores.History.RecentAudit(ctx, address, limit)
				if err != nil {
					return err
				}
				return printAudit(cmd, entries, jsonOutput)
			})
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "maximum number of entries")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output as JSON")
	return cmd
}

func printAudit(cmd *cobra.Command, entries []engine.AuditEntry, jsonOutput bool) error {
	records := make([]auditRecord, len(entries))
	for i, e := range entries {
		records[i] = auditRecord{
			ID:          e.ID.String(),
			At:          e.At,
			Operation:   e.Operation,
			Address:     e.Address,
			RequestedBy: e.RequestedBy,
			Detail:      e.Detail,
			Outcome:     string(e.Outcome),
			Error:       e.Error,
		}
	}
	if jsonOutput {
		return writeJSON(cmd.OutOrStdout(), records)
	}

	tw := newTable(cmd.OutOrStdout())
	printf(tw, "TIME\tOPERATION\tADDRESS\tBY\tDETAIL\tOUTCOME\n")
	for _, r := range records {
		printf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			r.At.Format(time.RFC3339), r.Operation, dash(r.Address), dash(r.RequestedBy), dash(r.Detail), r.Outcome)
	}
	return tw.Flush()
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
