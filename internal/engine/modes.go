// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 TierGate Contributors

package engine

import (
	"context"
	"sync"

	"github.com/samber/oops"

	"github.com/tiergate/tiergate/internal/access"
)

// AccessMode is the coarse access posture consulted by the presentation layer.
type AccessMode string

// Access modes.
const (
	AccessModeNormal   AccessMode = "NORMAL"
	AccessModeLockdown AccessMode = "LOCKDOWN"
)

// ParseAccessMode validates a mode name.
func ParseAccessMode(name string) (AccessMode, error) {
	switch m := AccessMode(name); m {
	case AccessModeNormal, AccessModeLockdown:
		return m, nil
	default:
		return "", oops.In("engine").
			Code(access.CodeInvalidMode).
			With("mode", name).
			Errorf("unknown access mode %q", name)
	}
}

// Modes are global circuit breakers. The engine stores them and gates who may
// change them; it attaches no resolution logic to them.
type Modes struct {
	AccessMode          AccessMode `json:"access_mode"`
	KillSwitchActive    bool       `json:"kill_switch_active"`
	BlockAllConnections bool       `json:"block_all_connections"`
	WhitelistOnly       bool       `json:"whitelist_only"`
}

// DefaultModes returns the modes of a fresh installation.
func DefaultModes() Modes {
	return Modes{AccessMode: AccessModeNormal}
}

// ModeStore persists Modes.
type ModeStore interface {
	// LoadModes returns DefaultModes when nothing was saved yet.
	LoadModes(ctx context.Context) (Modes, error)
	SaveModes(ctx context.Context, m Modes) error
}

// MemoryModeStore is a ModeStore kept in process memory.
type MemoryModeStore struct {
	mu    sync.Mutex
	modes *Modes
}

// NewMemoryModeStore creates an empty MemoryModeStore.
func NewMemoryModeStore() *MemoryModeStore {
	return &MemoryModeStore{}
}

// LoadModes returns the saved modes or the defaults.
func (m *MemoryModeStore) LoadModes(_ context.Context) (Modes, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.modes == nil {
		return DefaultModes(), nil
	}
	return *m.modes, nil
}

// SaveModes stores modes.
func (m *MemoryModeStore) SaveModes(_ context.Context, modes Modes) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.modes = &modes
	return nil
}

var _ ModeStore = (*MemoryModeStore)(nil)

func oopsModes(err error) error {
	return oops.In("engine").Code("MODES_SAVE_FAILED").Wrap(err)
}
