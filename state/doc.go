// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package state holds the sidecar's process-wide shared state: the
// rotating session keypair, the root public key, the upstream API key
// and base URL, the sidecar's own id, the lockdown flag, heartbeat
// bookkeeping, the revocation set, and the adapter registry.
//
// [State] is built once at startup from [config.Config] and handed to
// both the request pipeline and the background heartbeat/rotation
// goroutines. Every field follows spec.md §3's discipline: the
// session keypair and lockdown flag are single-writer (the heartbeat
// and rotation goroutines), the revocation set is behind a
// reader-preferring lock via [revocation.Set], and the adapter
// registry is built once and never mutated, so the request pipeline
// reads it without any lock at all.
package state
