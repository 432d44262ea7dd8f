// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 TierGate Contributors

// Command gen-schema writes the config file JSON Schema.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/tiergate/tiergate/internal/config"
)

func main() {
	out := filepath.Join("schemas", "config.schema.json")
	if len(os.Args) > 1 {
		out = os.Args[1]
	}

	if err := run(out); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Generated %s\n", out)
}

func run(out string) error {
	schema, err := config.GenerateSchema()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(out), 0o750); err != nil {
		return fmt.Errorf("creating directory: %w", err)
	}
	if err := os.WriteFile(out, append(schema, '\n'), 0o600); err != nil {
		return fmt.Errorf("writing schema: %w", err)
	}
	return nil
}
