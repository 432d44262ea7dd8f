// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 TierGate Contributors

package store

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/samber/oops"

	"github.com/tiergate/tiergate/internal/engine"
)

// ModeRepository implements engine.ModeStore over the single-row
// access_modes table.
type ModeRepository struct {
	pool poolIface
}

// NewModeRepository creates a ModeRepository.
func NewModeRepository(pool poolIface) *ModeRepository {
	return &ModeRepository{pool: pool}
}

// LoadModes returns the stored modes, or the defaults when none were saved.
func (r *ModeRepository) LoadModes(ctx context.Context) (engine.Modes, error) {
	var (
		m    engine.Modes
		mode string
	)
	err := r.pool.QueryRow(ctx,
		`SELECT access_mode, kill_switch_active, block_all_connections, whitelist_only
		 FROM access_modes WHERE id = 1`).
		Scan(&mode, &m.KillSwitchActive, &m.BlockAllConnections, &m.WhitelistOnly)
	if errors.Is(err, pgx.ErrNoRows) {
		return engine.DefaultModes(), nil
	}
	if err != nil {
		return engine.Modes{}, oops.In("store").Code("MODES_LOAD_FAILED").Wrap(err)
	}

	switch m.AccessMode = engine.AccessMode(mode); m.AccessMode {
	case engine.AccessModeNormal, engine.AccessModeLockdown:
		return m, nil
	default:
		return engine.Modes{}, oops.In("store").
			Code("MODES_LOAD_FAILED").
			With("access_mode", mode).
			Errorf("stored access mode %q is unknown", mode)
	}
}

// SaveModes upserts the single modes row.
func (r *ModeRepository) SaveModes(ctx context.Context, m engine.Modes) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO access_modes (id, access_mode, kill_switch_active, block_all_connections, whitelist_only, updated_at)
		 VALUES (1, $1, $2, $3, $4, now())
		 ON CONFLICT (id) DO UPDATE SET
		   access_mode = EXCLUDED.access_mode,
		   kill_switch_active = EXCLUDED.kill_switch_active,
		   block_all_connections = EXCLUDED.block_all_connections,
		   whitelist_only = EXCLUDED.whitelist_only,
		   updated_at = EXCLUDED.updated_at`,
		string(m.AccessMode), m.KillSwitchActive, m.BlockAllConnections, m.WhitelistOnly)
	if err != nil {
		return oops.In("store").Code("MODES_SAVE_FAILED").Wrap(err)
	}
	return nil
}

var _ engine.ModeStore = (*ModeRepository)(nil)
