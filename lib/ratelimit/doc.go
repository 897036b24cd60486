// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package ratelimit guards the proxy path against abusive call
// volume with a per-path token bucket built on
// golang.org/x/time/rate.
//
// [Limiter] hands out one bucket per request path the first time that
// path is seen and reuses it afterward — the bucket set grows with
// the set of distinct paths a sidecar actually serves, which in
// practice is small and bounded by the upstream API's own route
// surface. A request denied by the limiter never reaches credential
// verification, mirroring the lockdown check's fail-fast position in
// the pipeline.
package ratelimit
