// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 TierGate Contributors

package main

import (
	"bytes"
	"context"
	"testing"

	"github.com/tiergate/tiergate/internal/config"
)

// harness runs root commands against one set of memory stores, so state
// survives across invocations the way a database would.
type harness struct {
	t      *testing.T
	stores *Stores
	deps   *Deps
	env    map[string]string
	stderr bytes.Buffer
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	h := &harness{t: t, stores: memoryStores(), env: map[string]string{}}
	h.deps = &Deps{
		StoresFactory: func(context.Context, *config.Config) (*Stores, error) {
			return h.stores, nil
		},
		Getenv: func(key string) string { return h.env[key] },
	}
	return h
}

// run executes args with the memory driver and returns stdout.
func (h *harness) run(args ...string) (string, error) {
	h.t.Helper()
	return h.runRaw(append([]string{"--store=memory", "--log-level=error"}, args...)...)
}

// runRaw executes args without the default flags.
func (h *harness) runRaw(args ...string) (string, error) {
	h.t.Helper()
	cmd := newRootCmd(h.deps)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&h.stderr)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}
