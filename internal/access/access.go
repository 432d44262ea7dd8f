// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 TierGate Contributors

// Package access turns a wallet's token balance into a tier, a tier plus
// whitelist membership into a set of roles, and roles plus custom grants into
// a resolved permission set.
//
// Everything in this package is pure: the tables are compiled in and no
// function here touches storage. Stateful concerns live in the whitelist,
// directory and engine packages.
package access

import (
	"strings"

	"github.com/samber/oops"
)

// SystemActor identifies trusted internal callers such as the balance
// ingestion pipeline. It may set balances and record activity but holds no
// administrative roles.
const SystemActor = "system"

// WhitelistView reports whitelist membership. Satisfied by whitelist.Registry.
type WhitelistView interface {
	IsWhitelisted(address string) bool
}

// NormalizeAddress canonicalises a wallet address for use as a map key.
// Addresses are compared case-insensitively.
func NormalizeAddress(address string) (string, error) {
	normalized := strings.ToLower(strings.TrimSpace(address))
	if normalized == "" {
		return "", oops.In("access").
			Code(CodeInvalidAddress).
			Errorf("address cannot be empty")
	}
	return normalized, nil
}

// MustNormalizeAddress is NormalizeAddress for compiled-in constants.
// Panics on an empty address.
func MustNormalizeAddress(address string) string {
	normalized, err := NormalizeAddress(address)
	if err != nil {
		panic("invalid compiled-in address: " + err.Error())
	}
	return normalized
}
