// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 TierGate Contributors

package access_test

import (
	"errors"
	"testing"

	"github.com/samber/oops"
	"github.com/stretchr/testify/assert"

	"github.com/tiergate/tiergate/internal/access"
)

func TestErrUnauthorized(t *testing.T) {
	err := access.ErrUnauthorized("add_role", "0xabc")

	oopsErr, ok := oops.AsOops(err)
	assert.True(t, ok)
	assert.Equal(t, access.CodeUnauthorized, oopsErr.Code())
	assert.Equal(t, "add_role", oopsErr.Context()["operation"])
	assert.Equal(t, "0xabc", oopsErr.Context()["requested_by"])
	assert.True(t, access.IsUnauthorized(err))
	assert.False(t, access.IsProtected(err))
}

func TestErrProtectedEntry(t *testing.T) {
	err := access.ErrProtectedEntry("role", "user")

	oopsErr, _ := oops.AsOops(err)
	assert.Equal(t, access.CodeProtectedEntry, oopsErr.Code())
	assert.Equal(t, "role", oopsErr.Context()["kind"])
	assert.True(t, access.IsProtected(err))
}

func TestErrNotFound(t *testing.T) {
	err := access.ErrNotFound("user", "0xabc")
	assert.True(t, access.IsNotFound(err))
	assert.False(t, access.IsNotFound(nil))
}

func TestPredicates_PlainErrors(t *testing.T) {
	plain := errors.New("boom")
	assert.False(t, access.IsUnauthorized(plain))
	assert.False(t, access.IsProtected(plain))
	assert.False(t, access.IsNotFound(plain))
	assert.False(t, access.IsInvariantViolation(plain))
}
