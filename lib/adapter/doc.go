// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package adapter sandboxes and invokes WebAssembly fact-extraction
// modules.
//
// An adapter is a .wasm module indexed by the SHA-256 of its bytes. It
// exports linear memory and a single function, extract_facts(ptr,
// len) -> i32, which reads the request body the host wrote into that
// memory and returns a pointer to a NUL-terminated UTF-8 JSON array of
// {"fact": name, "args": [...]} objects. [Registry] loads every
// .wasm file in a directory at startup and is immutable thereafter;
// [Registry.Extract] runs one module against one request body inside a
// bounded, host-import-free sandbox and returns the parsed facts.
//
// The runtime is github.com/tetratelabs/wazero: a dependency-free,
// pure-Go WebAssembly engine, so the adapter sandbox does not pull in
// a cgo dependency on wasmtime or wasmer just to run a handful of
// fact-extraction functions per request.
package adapter
