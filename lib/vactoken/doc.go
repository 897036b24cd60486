// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package vactoken implements the wire format shared by every
// capability token in the system: root credentials, delegation
// tokens, and receipts.
//
// A token is CBOR-encoded payload bytes followed by a fixed-size
// Ed25519 signature over those bytes, with no header or length
// prefix — a split-point convention for signed bearer tokens,
// generalized here to carry an ordered list of logic-language
// source blocks instead of a flat grant list. Each block is kept as
// its literal source text rather than a structured tree: the token
// format's job is to deliver blocks to a [logic.Authorizer] in order,
// and logic.Parse is the single place that turns text into predicates,
// so there is no second, parallel structured encoding to keep in
// sync. CBOR uses Core Deterministic Encoding, so two mints of the
// same logical token produce byte-identical wire bytes — the property
// that makes "token id is the digest of the encoded form" well-defined.
//
// A token's id is the SHA-256 digest of its complete wire bytes
// (payload and signature together), computed by [Decode] before the
// signature is even checked — the proxy pipeline looks that id up in
// the revocation set before calling [Verify], so a revoked token is
// rejected without spending a signature check.
package vactoken
