// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package adapter

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"testing"
)

// The tests in this file exercise Extract against a real compiled
// WebAssembly module rather than an empty registry. There is no WASM
// toolchain available at test time, so buildAdapterModule assembles
// the minimal valid module bytes directly: one exported memory, an
// extract_facts(ptr, len) -> i32 function that ignores its arguments
// and always returns a pointer into a data segment holding a canned
// NUL-terminated JSON fact array, and — when withAlloc is set — an
// alloc(size) -> i32 function so the alloc-aware staging branch in
// runExtract gets exercised too.

const i32 = 0x7f

func uleb128(v uint64) []byte {
	var out []byte
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			b |= 0x80
		}
		out = append(out, b)
		if v == 0 {
			break
		}
	}
	return out
}

func sleb128(v int64) []byte {
	var out []byte
	for {
		b := byte(v & 0x7f)
		v >>= 7
		signBitSet := b&0x40 != 0
		done := (v == 0 && !signBitSet) || (v == -1 && signBitSet)
		if !done {
			b |= 0x80
		}
		out = append(out, b)
		if done {
			break
		}
	}
	return out
}

func wasmSection(id byte, content []byte) []byte {
	out := []byte{id}
	out = append(out, uleb128(uint64(len(content)))...)
	return append(out, content...)
}

func wasmVec(items ...[]byte) []byte {
	out := uleb128(uint64(len(items)))
	for _, item := range items {
		out = append(out, item...)
	}
	return out
}

func wasmName(s string) []byte {
	return append(uleb128(uint64(len(s))), []byte(s)...)
}

func wasmFuncType(params, results []byte) []byte {
	out := []byte{0x60}
	out = append(out, uleb128(uint64(len(params)))...)
	out = append(out, params...)
	out = append(out, uleb128(uint64(len(results)))...)
	out = append(out, results...)
	return out
}

// buildAdapterModule returns a compiled-module-ready byte slice for a
// fixture adapter that always reports json, regardless of the request
// body it's handed.
func buildAdapterModule(t *testing.T, json string, withAlloc bool) []byte {
	t.Helper()
	const dataOffset = 8192
	const allocScratch = 4096

	extractType := wasmFuncType([]byte{i32, i32}, []byte{i32})
	allocType := wasmFuncType([]byte{i32}, []byte{i32})
	typeSection := wasmVec(extractType, allocType)

	var funcSection []byte
	if withAlloc {
		funcSection = wasmVec(uleb128(0), uleb128(1))
	} else {
		funcSection = wasmVec(uleb128(0))
	}

	memType := append([]byte{0x00}, uleb128(1)...)
	memSection := wasmVec(memType)

	exportMemory := append(wasmName("memory"), 0x02, 0x00)
	exportExtract := append(wasmName("extract_facts"), 0x00, 0x00)
	var exportSection []byte
	if withAlloc {
		exportAlloc := append(wasmName("alloc"), 0x00, 0x01)
		exportSection = wasmVec(exportMemory, exportExtract, exportAlloc)
	} else {
		exportSection = wasmVec(exportMemory, exportExtract)
	}

	extractBody := append(uleb128(0), 0x41)
	extractBody = append(extractBody, sleb128(dataOffset)...)
	extractBody = append(extractBody, 0x0b)
	extractEntry := append(uleb128(uint64(len(extractBody))), extractBody...)

	var codeSection []byte
	if withAlloc {
		allocBody := append(uleb128(0), 0x41)
		allocBody = append(allocBody, sleb128(allocScratch)...)
		allocBody = append(allocBody, 0x0b)
		allocEntry := append(uleb128(uint64(len(allocBody))), allocBody...)
		codeSection = wasmVec(extractEntry, allocEntry)
	} else {
		codeSection = wasmVec(extractEntry)
	}

	offsetExpr := append([]byte{0x41}, sleb128(dataOffset)...)
	offsetExpr = append(offsetExpr, 0x0b)
	dataBytes := append([]byte(json), 0x00)
	dataSegment := append([]byte{0x00}, offsetExpr...)
	dataSegment = append(dataSegment, uleb128(uint64(len(dataBytes)))...)
	dataSegment = append(dataSegment, dataBytes...)
	dataSection := wasmVec(dataSegment)

	module := []byte{0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00}
	module = append(module, wasmSection(1, typeSection)...)
	module = append(module, wasmSection(3, funcSection)...)
	module = append(module, wasmSection(5, memSection)...)
	module = append(module, wasmSection(7, exportSection)...)
	module = append(module, wasmSection(10, codeSection)...)
	module = append(module, wasmSection(11, dataSection)...)
	return module
}

// registerModule compiles moduleBytes into reg's compiled set the
// same way LoadDir would for a file on disk, keyed by the SHA-256 of
// its bytes, and returns that hex hash.
func registerModule(t *testing.T, ctx context.Context, reg *Registry, moduleBytes []byte) string {
	t.Helper()
	compiled, err := reg.runtime.CompileModule(ctx, moduleBytes)
	if err != nil {
		t.Fatalf("CompileModule: %v", err)
	}
	hash := sha256.Sum256(moduleBytes)
	hexHash := hex.EncodeToString(hash[:])
	reg.compiled[hexHash] = compiled
	return hexHash
}

func TestExtractRunsCompiledModuleWithoutAlloc(t *testing.T) {
	ctx := context.Background()
	reg, err := LoadDir(ctx, "")
	if err != nil {
		t.Fatalf("LoadDir: %v", err)
	}
	defer reg.Close(ctx)

	moduleBytes := buildAdapterModule(t, `[{"fact":"adapter_seen","args":["ok"]}]`, false)
	hexHash := registerModule(t, ctx, reg, moduleBytes)

	facts, err := reg.Extract(ctx, hexHash, []byte(`{"irrelevant":"body"}`))
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(facts) != 1 || facts[0].Name != "adapter_seen" {
		t.Fatalf("unexpected facts: %+v", facts)
	}
	if !facts[0].Args[0].IsString() || facts[0].Args[0].StringValue() != "ok" {
		t.Errorf("unexpected fact args: %+v", facts[0].Args)
	}
}

func TestExtractUsesAllocWhenModuleExportsIt(t *testing.T) {
	ctx := context.Background()
	reg, err := LoadDir(ctx, "")
	if err != nil {
		t.Fatalf("LoadDir: %v", err)
	}
	defer reg.Close(ctx)

	moduleBytes := buildAdapterModule(t, `[{"fact":"adapter_seen","args":["ok"]}]`, true)
	hexHash := registerModule(t, ctx, reg, moduleBytes)

	facts, err := reg.Extract(ctx, hexHash, []byte(`{"irrelevant":"body"}`))
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(facts) != 1 || facts[0].Name != "adapter_seen" {
		t.Fatalf("unexpected facts: %+v", facts)
	}
}

func TestExtractRejectsMalformedAdapterOutput(t *testing.T) {
	ctx := context.Background()
	reg, err := LoadDir(ctx, "")
	if err != nil {
		t.Fatalf("LoadDir: %v", err)
	}
	defer reg.Close(ctx)

	moduleBytes := buildAdapterModule(t, `not json`, false)
	hexHash := registerModule(t, ctx, reg, moduleBytes)

	if _, err := reg.Extract(ctx, hexHash, nil); err == nil {
		t.Error("expected malformed adapter output to be rejected")
	}
}

func TestExtractRejectsUnpinnedHash(t *testing.T) {
	ctx := context.Background()
	reg, err := LoadDir(ctx, "")
	if err != nil {
		t.Fatalf("LoadDir: %v", err)
	}
	defer reg.Close(ctx)

	if _, err := reg.Extract(ctx, "deadbeef", nil); err == nil {
		t.Error("expected an unpinned adapter hash to be rejected")
	}
}
