// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 TierGate Contributors

// Package errutil holds helpers for inspecting and logging oops errors.
package errutil

import (
	"fmt"

	"github.com/samber/oops"
)

// Code returns the oops error code of err as a string, or "" when err carries
// none.
func Code(err error) string {
	if err == nil {
		return ""
	}
	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return ""
	}
	code := oopsErr.Code()
	if code == nil {
		return ""
	}
	if s, ok := code.(string); ok {
		return s
	}
	return fmt.Sprint(code)
}

// HasCode reports whether err carries the given oops code.
func HasCode(err error, code string) bool {
	return code != "" && Code(err) == code
}
