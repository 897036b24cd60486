// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package controlplane implements the sidecar's side of the
// heartbeat protocol: a periodic POST /heartbeat that reports the
// sidecar's live session public key and receives back a health
// verdict and the control plane's revocation list.
//
// This package is a client only. The control plane itself — the
// server answering /heartbeat, /revoke, /kill, /revive, and
// /sidecars — is an external collaborator exercised in tests with
// net/http/httptest, never implemented here.
//
// [Client.Heartbeat] performs one poll. [Monitor] drives the
// Healthy/Degraded/Lockdown state machine from spec.md §4.8 on a
// [clock.Clock]-backed ticker: three consecutive failures (or an
// explicit healthy:false) enters lockdown; a success from lockdown
// exits it and triggers a session-key rotation.
package controlplane
