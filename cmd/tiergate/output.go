// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 TierGate Contributors

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/samber/oops"

	"github.com/tiergate/tiergate/internal/access"
)

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return oops.In("cli").Code("OUTPUT_FAILED").Wrap(err)
	}
	return nil
}

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
}

func joinRoles(roles []access.Role) string {
	if len(roles) == 0 {
		return "-"
	}
	names := make([]string, len(roles))
	for i, r := range roles {
		names[i] = string(r)
	}
	return strings.Join(names, ",")
}

func joinPermissions(perms []access.Permission) string {
	if len(perms) == 0 {
		return "-"
	}
	tags := make([]string, len(perms))
	for i, p := range perms {
		tags[i] = string(p)
	}
	return strings.Join(tags, ",")
}

func formatBalance(b float64) string {
	return strconv.FormatFloat(b, 'f', -1, 64)
}

func parseBalance(arg string) (float64, error) {
	b, err := strconv.ParseFloat(strings.ReplaceAll(arg, "_", ""), 64)
	if err != nil {
		return 0, oops.In("cli").
			Code(access.CodeInvalidBalance).
			With("balance", arg).
			Errorf("balance %q is not a number", arg)
	}
	return b, nil
}

// parseSwitch accepts on/off as well as the strconv.ParseBool spellings.
func parseSwitch(arg string) (bool, error) {
	switch strings.ToLower(arg) {
	case "on":
		return true, nil
	case "off":
		return false, nil
	}
	v, err := strconv.ParseBool(arg)
	if err != nil {
		return false, oops.In("cli").
			Code("INVALID_ARGUMENT").
			With("value", arg).
			Errorf("expected on or off, got %q", arg)
	}
	return v, nil
}

func onOff(v bool) string {
	if v {
		return "on"
	}
	return "off"
}

func printf(w io.Writer, format string, args ...any) {
	_, _ = fmt.Fprintf(w, format, args...)
}
