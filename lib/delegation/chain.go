// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package delegation

import (
	"crypto/ed25519"

	"github.com/vac-sidecar/sidecar/lib/logic"
	"github.com/vac-sidecar/sidecar/lib/vacerr"
	"github.com/vac-sidecar/sidecar/lib/vactoken"
)

// MaxDepth is the deepest a delegation chain may go. A request
// credential at depth 0 may be delegated at most this many times.
const MaxDepth = 5

// Chain is the result of verifying an ordered list of delegation
// tokens: the hex ids of every token in the chain (root excluded) and
// the depth of the final, most-restricted token.
type Chain struct {
	IDs   []string
	Depth int
}

// Verify checks the signature of every delegation token under
// publicKey, confirms their depth(N) facts form a gapless 0, 1, 2, …
// sequence starting after the root credential, and returns the
// resulting chain. An empty wireChain is legal and yields a zero-value
// Chain at depth 0 — the root credential itself.
func Verify(publicKey ed25519.PublicKey, wireChain [][]byte) (Chain, error) {
	if len(wireChain) > MaxDepth {
		return Chain{}, vacerr.PolicyViolationf("delegation depth exceeded")
	}

	chain := Chain{IDs: make([]string, 0, len(wireChain))}
	expectedDepth := 0

	for _, wire := range wireChain {
		token, id, err := vactoken.Verify(publicKey, wire)
		if err != nil {
			return Chain{}, err
		}

		depth, err := extractDepth(token)
		if err != nil {
			return Chain{}, err
		}
		if depth != expectedDepth {
			return Chain{}, vacerr.PolicyViolationf("delegation chain depth gap: expected %d, got %d", expectedDepth, depth)
		}

		chain.IDs = append(chain.IDs, id.Hex())
		chain.Depth = depth
		expectedDepth++
	}

	return chain, nil
}

// extractDepth parses every block of token looking for a single
// depth(N) fact. Zero or more than one is malformed.
func extractDepth(token *vactoken.Token) (int, error) {
	var depth int
	found := false

	for i, source := range token.Blocks {
		block, err := logic.Parse(source)
		if err != nil {
			return 0, vacerr.Newf(vacerr.InvalidTokenFormat, "delegation: block %d: %v", i, err)
		}
		for _, fact := range block.Facts {
			if fact.Name != "depth" {
				continue
			}
			if found {
				return 0, vacerr.PolicyViolationf("delegation token carries more than one depth fact")
			}
			if len(fact.Args) != 1 || !fact.Args[0].IsInt() {
				return 0, vacerr.PolicyViolationf("delegation token's depth fact is malformed")
			}
			depth = int(fact.Args[0].IntValue())
			found = true
		}
	}

	if !found {
		return 0, vacerr.PolicyViolationf("delegation token is missing its depth fact")
	}
	return depth, nil
}
