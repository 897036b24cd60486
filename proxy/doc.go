// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package proxy is the sidecar's inbound HTTP surface: it runs the
// full authorization pipeline on every request — rate limit, lockdown,
// credential verification, delegation verification, receipt
// verification, adapter fact extraction, policy evaluation — and, on
// acceptance, forwards the request upstream with the real API key
// attached and mints a fresh receipt for the response.
//
// The pipeline mirrors the teacher's proxy.HTTPService in structure
// (header filtering, credential injection, singleJoiningSlash request
// construction) but replaces static header-based credential injection
// with the full capability-token verification chain from spec.md §4.
// Nothing upstream of [Handler.ServeHTTP]'s final error write touches
// the response writer — every rejection funnels through one
// vacerr.AsError call, matching the fail-closed discipline in
// lib/vacerr.
package proxy
