// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package delegation verifies the chain of X-VAC-Delegation headers
// attached to a proxied request.
//
// A request may carry zero or more delegation tokens, each narrowing
// the authority of the token before it. [Verify] checks every token's
// signature under the root public key, confirms the depth(N) facts
// form a gapless 0, 1, 2, … sequence, and enforces the maximum chain
// length. The first delegation token carries depth(0); a request with
// no delegation headers yields an empty chain, whose Depth is also 0.
package delegation
