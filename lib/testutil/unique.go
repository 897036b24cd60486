// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package testutil

import (
	"fmt"
	"sync/atomic"
)

var uniqueCounter atomic.Uint64

// UniqueID returns a string of the form "prefix-N" where N is a
// monotonically increasing integer. Use this instead of time.Now() when
// tests need unique identifiers for correlation ids, credential labels,
// or fact arguments that must be distinguishable across concurrent
// requests in the same test.
//
//	corrID := testutil.UniqueID("corr")   // "corr-1", "corr-2", ...
//	cid := testutil.UniqueID("cid")       // "cid-3", ...
func UniqueID(prefix string) string {
	return fmt.Sprintf("%s-%d", prefix, uniqueCounter.Add(1))
}
