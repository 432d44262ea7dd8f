// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 TierGate Contributors

package access

import (
	"math"

	"github.com/samber/oops"
)

// Tier is a balance-derived membership level. Tiers are ordered: a higher
// value always means a higher minimum balance.
type Tier int

// Tiers in ascending order.
const (
	TierUnauthorized Tier = iota
	TierEntryLevel
	TierOperator
	TierShadowElite
	TierPhantomCouncil
)

// tierThresholds holds the inclusive minimum balance for each tier, indexed by Tier.
var tierThresholds = [...]float64{
	TierUnauthorized:   0,
	TierEntryLevel:     10_000,
	TierOperator:       50_000,
	TierShadowElite:    250_000,
	TierPhantomCouncil: 1_000_000,
}

var tierNames = [...]string{
	TierUnauthorized:   "UNAUTHORIZED",
	TierEntryLevel:     "ENTRY_LEVEL",
	TierOperator:       "OPERATOR",
	TierShadowElite:    "SHADOW_ELITE",
	TierPhantomCouncil: "PHANTOM_COUNCIL",
}

// Tiers returns every tier in ascending order.
func Tiers() []Tier {
	return []Tier{TierUnauthorized, TierEntryLevel, TierOperator, TierShadowElite, TierPhantomCouncil}
}

// String returns the canonical upper-case tier name.
func (t Tier) String() string {
	if t < TierUnauthorized || t > TierPhantomCouncil {
		return "UNKNOWN"
	}
	return tierNames[t]
}

// Threshold returns the inclusive minimum balance that unlocks t.
func (t Tier) Threshold() float64 {
	if t < TierUnauthorized || t > TierPhantomCouncil {
		return math.Inf(1)
	}
	return tierThresholds[t]
}

// MarshalText renders the tier name, so JSON output carries "ENTRY_LEVEL"
// rather than the ordinal.
func (t Tier) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText parses a tier name.
func (t *Tier) UnmarshalText(text []byte) error {
	parsed, err := ParseTier(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// ParseTier converts a tier name back to a Tier.
func ParseTier(name string) (Tier, error) {
	for _, t := range Tiers() {
		if tierNames[t] == name {
			return t, nil
		}
	}
	return TierUnauthorized, oops.In("access").
		Code(CodeInvalidTier).
		With("tier", name).
		Errorf("unknown tier %q", name)
}

// TierOf returns the highest tier whose threshold balance meets or exceeds.
// Negative balances are treated as zero.
func TierOf(balance float64) Tier {
	tier := TierUnauthorized
	for _, t := range Tiers() {
		if balance >= tierThresholds[t] {
			tier = t
		}
	}
	return tier
}

// ClampBalance validates an externally supplied balance. Negative values are
// clamped to zero; NaN and infinities are rejected.
func ClampBalance(balance float64) (float64, error) {
	if math.IsNaN(balance) || math.IsInf(balance, 0) {
		return 0, oops.In("access").
			Code(CodeInvalidBalance).
			With("balance", balance).
			Errorf("balance must be a finite number")
	}
	if balance < 0 {
		return 0, nil
	}
	return balance, nil
}
