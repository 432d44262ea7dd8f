// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 TierGate Contributors

// Package accesstest provides test helpers for access control.
package accesstest

import (
	"github.com/tiergate/tiergate/internal/access"
)

// Well-known addresses for tests.
var (
	SuperAdmin     = access.SuperAdminAddress()
	PermanentAdmin = access.MustNormalizeAddress(access.PermanentAdmins[1])
	Alice          = "0xa11ce00000000000000000000000000000000001"
	Bob            = "0xb0b0000000000000000000000000000000000002"
	Carol          = "0xca401000000000000000000000000000000000003"
)

// StaticWhitelist is a WhitelistView backed by a map.
type StaticWhitelist map[string]bool

// IsWhitelisted reports whether address is in the map.
func (w StaticWhitelist) IsWhitelisted(address string) bool {
	return w[address]
}

// Verify interfaces are satisfied.
var _ access.WhitelistView = StaticWhitelist(nil)
