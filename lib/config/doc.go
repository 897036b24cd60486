// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package config provides YAML configuration loading for the VAC sidecar.
//
// Configuration is loaded from a single file specified by either the
// VAC_CONFIG environment variable (via [Load]) or a --config flag
// (via [LoadFile]). There are no fallbacks, no discovery, and no
// automatic file search. This ensures deterministic, auditable
// configuration with no hidden overrides.
//
// Four fields are the exception: RootPublicKeyHex, APIKey, UpstreamURL,
// and ControlPlaneURL can each be overridden by a VAC_-prefixed
// environment variable after the file loads, so a deploy pipeline can
// inject secrets without writing them to a file on disk. [Config.Validate]
// refuses to start without a root public key and an API key, since
// either one missing means the sidecar would run either unable to
// verify any credential or unable to forward any authorized request.
//
// Variable expansion is performed on the adapters directory field after
// loading: ${HOME} and ${VAR:-default} patterns are expanded. No other
// path fields are templated.
//
// Key exports:
//
//   - [Config] -- the master struct
//   - [Default] -- returns a Config with non-secret defaults filled in
//   - [Load] and [LoadFile] -- the two entry points for loading
//
// This package depends on no other package in this module.
package config
