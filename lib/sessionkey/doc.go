// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package sessionkey manages the sidecar's own Ed25519 signing key —
// the key receipts are signed with, distinct from the root key that
// anchors credentials and delegation tokens.
//
// [Generate] produces a fresh [Keypair] at startup. [Rotator] drives
// periodic rotation on a [clock.Clock]-backed ticker, swapping the
// live keypair atomically so a request goroutine reading the public
// key for receipt verification never observes a half-rotated state.
// A receipt minted before a rotation becomes unverifiable after it —
// spec.md calls this out as intentional, since the receipt validity
// window is tuned to the rotation cadence.
package sessionkey
