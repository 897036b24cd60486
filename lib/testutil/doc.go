// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil provides shared test helpers for the sidecar's packages.
//
// [SocketDir] creates a temporary directory in /tmp suitable for Unix
// domain sockets, since they have a 108-byte path limit (sun_path in
// sockaddr_un) that t.TempDir() can exceed. The directory is
// automatically removed when the test completes.
//
// [RequireReceive], [RequireSend], and [RequireClosed] encapsulate the
// timeout safety valve pattern (select with time.After fallback) so
// that individual tests do not need direct time.After calls. Code
// driven by a clock is tested with a FakeClock; the remaining
// wall-clock timeouts in the suite are hang guards, such as the
// shutdown deadlines in proxy's server tests.
//
// [UniqueID] generates monotonically increasing identifiers for test
// disambiguation. Use it instead of time.Now() when tests need unique
// correlation ids or sidecar ids distinguishable across cases.
//
// All helpers call t.Fatalf on failure rather than returning errors,
// since test setup failures are not recoverable.
//
// This package has no dependencies on the rest of this module.
package testutil
