// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package revocation holds the sidecar's set of revoked token ids.
//
// The set is mutated only by the heartbeat task, which merges in the
// ids the control plane reports on every successful heartbeat, and
// read by every request goroutine's credential, delegation, and
// receipt verification steps. [Set] uses a reader-preferring
// sync.RWMutex: [Set.Contains] takes RLock, [Set.Merge] takes Lock.
//
// Merge is union-only — the control plane can never cause a sidecar to
// forget a revocation it already knows about, even across a heartbeat
// that reports a shorter list than a previous one (e.g. after the
// control plane's own compaction). An entry never un-revokes.
package revocation
