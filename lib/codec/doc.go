// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec provides the sidecar's standard CBOR encoding configuration.
//
// VAC uses two serialization formats with a clear boundary:
//
//   - JSON for external interfaces: the control-plane heartbeat
//     protocol and CLI/config diagnostics.
//   - CBOR for capability tokens: root credentials, delegation tokens,
//     and receipts are all CBOR-encoded payloads under an Ed25519
//     signature, since the token id is the digest of the encoded bytes
//     and that digest must be stable across encode/decode round trips.
//
// This package provides the shared CBOR encoding and decoding modes so
// that every package encodes identically without duplicating
// configuration. The encoder uses Core Deterministic Encoding (RFC 8949
// §4.2): sorted map keys, smallest integer encoding, no
// indefinite-length items. Same logical data always produces identical
// bytes.
//
// For buffer-oriented operations (files, tokens):
//
//	data, err := codec.Marshal(value)
//	err = codec.Unmarshal(data, &value)
//
// For stream-oriented operations (sockets, IPC):
//
//	encoder := codec.NewEncoder(conn)
//	decoder := codec.NewDecoder(conn)
//
// # Struct Tag Rules
//
// The struct tag on a type documents its serialization format:
//
//   - `cbor` tag: this type is ONLY ever serialized as CBOR. It will
//     never be marshaled to JSON. Examples: token blocks, facts, and
//     every capability-token wire type.
//   - `json` tag: this type may be serialized as BOTH JSON and CBOR.
//     fxamacker/cbor v2 reads `json` tags as fallback when `cbor`
//     tags are absent, so a single `json` tag controls field naming
//     and omitempty for both formats. Examples: the heartbeat
//     request/response types, which cross the wire as JSON but are
//     also convenient to log via the same struct.
//
// Never use both `cbor` and `json` tags on the same field. The tag
// choice documents the contract — doubling up is noise that obscures
// whether a type participates in JSON serialization.
package codec
