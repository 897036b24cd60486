// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package vactoken

import (
	"crypto/ed25519"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/vac-sidecar/sidecar/lib/codec"
	"github.com/vac-sidecar/sidecar/lib/logic"
	"github.com/vac-sidecar/sidecar/lib/vacerr"
)

// signatureSize is the fixed size of an Ed25519 signature.
const signatureSize = ed25519.SignatureSize // 64 bytes

// ID is a token's identifier: the SHA-256 digest of its complete wire
// bytes.
type ID [sha256.Size]byte

// Hex renders the id as a lowercase hex string, the form used as a
// revocation-set key and embedded in delegation_chain facts (facts
// carry only strings and integers, never raw bytes).
func (id ID) Hex() string { return hex.EncodeToString(id[:]) }

// Token is the CBOR-encoded payload of a capability token. Blocks are
// kept as logic-language source text and are parsed into facts and
// clauses, in order, when building an [logic.Authorizer] for a
// request.
type Token struct {
	// Blocks is the ordered list of logic-language source blocks that
	// make up this token's authority. The first block is conventionally
	// the root authority; later blocks (for delegation tokens) narrow it.
	Blocks []string `cbor:"1,keyasint"`

	// IssuedAt is a Unix timestamp (seconds) recording when this token
	// was minted. Not used for expiry on its own — receipts carry their
	// own prior_event timestamp fact for that — but useful for audit.
	IssuedAt int64 `cbor:"2,keyasint"`
}

// Mint signs a Token with privateKey and returns the wire bytes: CBOR
// payload followed by the 64-byte Ed25519 signature.
func Mint(privateKey ed25519.PrivateKey, token *Token) ([]byte, error) {
	payload, err := codec.Marshal(token)
	if err != nil {
		return nil, fmt.Errorf("vactoken: encoding payload: %w", err)
	}

	signature := ed25519.Sign(privateKey, payload)

	wire := make([]byte, len(payload)+signatureSize)
	copy(wire, payload)
	copy(wire[len(payload):], signature)
	return wire, nil
}

// Decode computes a token's id from its raw wire bytes without
// checking the signature. Use this to test the id against a
// revocation set before spending a signature verification.
func Decode(wire []byte) (ID, error) {
	if len(wire) <= signatureSize {
		return ID{}, vacerr.New(vacerr.InvalidTokenFormat)
	}
	return sha256.Sum256(wire), nil
}

// Verify checks wire's Ed25519 signature under publicKey and, on
// success, decodes the payload and returns the parsed Token along
// with its id.
func Verify(publicKey ed25519.PublicKey, wire []byte) (*Token, ID, error) {
	if len(wire) <= signatureSize {
		return nil, ID{}, vacerr.New(vacerr.InvalidTokenFormat)
	}

	splitPoint := len(wire) - signatureSize
	payload := wire[:splitPoint]
	signature := wire[splitPoint:]

	if !ed25519.Verify(publicKey, payload, signature) {
		return nil, ID{}, vacerr.New(vacerr.InvalidSignature)
	}

	var token Token
	if err := codec.Unmarshal(payload, &token); err != nil {
		return nil, ID{}, vacerr.New(vacerr.InvalidTokenFormat)
	}

	id := sha256.Sum256(wire)
	return &token, id, nil
}

// BuildAuthorizer parses every block of the token, in order, into an
// existing [logic.Authorizer]. Blocks are parsed independently; a
// malformed block is reported with its index.
func (t *Token) BuildAuthorizer(a *logic.Authorizer) error {
	for i, source := range t.Blocks {
		block, err := logic.Parse(source)
		if err != nil {
			return fmt.Errorf("vactoken: block %d: %w", i, err)
		}
		a.AddBlock(block)
	}
	return nil
}
