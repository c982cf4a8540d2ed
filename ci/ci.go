// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: BUSL-1.1

// Package ci provides helpers for tests running under continuous
// integration.
package ci

import (
	"os"
	"testing"
)

// Parallel runs t in parallel, unless OZI_TEST_SERIAL is set, in which
// case tests run sequentially (useful when bisecting flaky runs).
func Parallel(t *testing.T) {
	t.Helper()
	if os.Getenv("OZI_TEST_SERIAL") == "" {
		t.Parallel()
	}
}

// SkipSlow skips a slow test unless OZI_SLOW_TESTS is set.
func SkipSlow(t *testing.T, reason string) {
	t.Helper()
	if os.Getenv("OZI_SLOW_TESTS") == "" {
		t.Skipf("skipping slow test: %s", reason)
	}
}
