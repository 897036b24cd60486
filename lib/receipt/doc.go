// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package receipt verifies and mints X-VAC-Receipt tokens.
//
// A receipt is proof that a prior proxied request completed, signed by
// the sidecar's own session key rather than the root key — it attests
// to something the sidecar itself observed, not something the
// credential issuer granted. [Verify] checks the signature under the
// sidecar's current session public key, extracts the single
// prior_event(operation, correlation_id, timestamp) fact a receipt must
// carry, and enforces the expiry window and clock-skew cap from
// [ExpiryWindow] and [SkewGrace]. [Mint] produces a new receipt after a proxied request
// completes successfully.
package receipt
