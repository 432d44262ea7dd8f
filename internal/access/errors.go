// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 TierGate Contributors

package access

import (
	"github.com/samber/oops"
)

// Error codes shared by the access, whitelist, directory and engine packages.
const (
	CodeUnauthorized       = "UNAUTHORIZED"
	CodeProtectedEntry     = "PROTECTED_ENTRY"
	CodeNotFound           = "NOT_FOUND"
	CodeInvariantViolation = "INVARIANT_VIOLATION"
	CodeInvalidAddress     = "INVALID_ADDRESS"
	CodeInvalidRole        = "INVALID_ROLE"
	CodeInvalidTier        = "INVALID_TIER"
	CodeInvalidPermission  = "INVALID_PERMISSION"
	CodeInvalidBalance     = "INVALID_BALANCE"
	CodeInvalidMode        = "INVALID_MODE"
)

// ErrUnauthorized creates an error for a mutation attempted by an actor
// lacking the required role.
func ErrUnauthorized(operation, requestedBy string) error {
	return oops.In("access").
		Code(CodeUnauthorized).
		With("operation", operation).
		With("requested_by", requestedBy).
		Errorf("%s requires admin authorization", operation)
}

// ErrProtectedEntry creates an error for an attempt to remove an entry that
// can never be removed at runtime.
func ErrProtectedEntry(kind, entry string) error {
	return oops.In("access").
		Code(CodeProtectedEntry).
		With("kind", kind).
		With("entry", entry).
		Errorf("%s %q is protected and cannot be removed", kind, entry)
}

// ErrWhitelistRole creates an error for an attempt to strip an
// administrative role that address holds through whitelist membership.
func ErrWhitelistRole(address string, role Role) error {
	return oops.In("access").
		Code(CodeProtectedEntry).
		With("kind", "role").
		With("entry", string(role)).
		With("address", address).
		Hint("remove the address from the whitelist instead").
		Errorf("role %q of %s comes from the whitelist and cannot be removed directly", role, address)
}

// ErrNotFound creates an error for a storage miss.
func ErrNotFound(kind, key string) error {
	return oops.In("access").
		Code(CodeNotFound).
		With("kind", kind).
		With("key", key).
		Errorf("%s not found", kind)
}

// ErrInvariantViolation signals an internal consistency failure. Seeing one
// means there is a bug.
func ErrInvariantViolation(address string, missing []Permission) error {
	return oops.In("access").
		Code(CodeInvariantViolation).
		With("address", address).
		With("missing", missing).
		Errorf("resolved permissions are missing role-implied permissions")
}

// IsUnauthorized reports whether err is an UNAUTHORIZED error.
func IsUnauthorized(err error) bool {
	return hasCode(err, CodeUnauthorized)
}

// IsProtected reports whether err is a PROTECTED_ENTRY error.
func IsProtected(err error) bool {
	return hasCode(err, CodeProtectedEntry)
}

// IsNotFound reports whether err is a NOT_FOUND error.
func IsNotFound(err error) bool {
	return hasCode(err, CodeNotFound)
}

// IsInvariantViolation reports whether err is an INVARIANT_VIOLATION error.
func IsInvariantViolation(err error) bool {
	return hasCode(err, CodeInvariantViolation)
}

func hasCode(err error, code string) bool {
	if err == nil {
		return false
	}
	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return false
	}
	return oopsErr.Code() == code
}
