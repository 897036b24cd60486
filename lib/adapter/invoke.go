// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package adapter

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"

	"github.com/vac-sidecar/sidecar/lib/logic"
	"github.com/vac-sidecar/sidecar/lib/vacerr"
)

// memoryLimitPages caps every adapter instance's linear memory growth
// at 16 MiB (256 pages of 64 KiB), generously larger than any
// fact-extraction workload should need and small enough to bound a
// runaway module's footprint.
const memoryLimitPages = 256

// executionBudget bounds how long a single extract_facts call may
// run. wazero's interpreter and compiler both check for context
// cancellation at function-call and loop-back-edge boundaries when
// WithCloseOnContextDone is set, which is the deterministic-enough
// analogue of an instruction-fuel cap available without a second WASM
// engine.
const executionBudget = 50 * time.Millisecond

// reservedOffset is the linear-memory offset used to stage the
// request body when a module exports no "alloc" function. Conservative
// choice — below the 64 KiB mark where a module's own static data
// rarely extends for a fact-extraction-sized module.
const reservedOffset = 1 << 12

// rawFact mirrors the JSON object an adapter emits per fact:
// {"fact": name, "args": [...]}. Each argument may be a JSON string
// (kept as a string term) or a JSON number (coerced to an integer
// term) — the adapter "marks" an argument numeric simply by emitting
// it as a JSON number instead of a quoted string.
type rawFact struct {
	Fact string            `json:"fact"`
	Args []json.RawMessage `json:"args"`
}

// Extract runs the adapter identified by hexHash against body and
// returns the facts it produced. Any trap, timeout, or malformed
// output maps to PolicyViolation("adapter failed"), matching spec's
// fail-closed treatment of adapter misbehavior.
func (r *Registry) Extract(ctx context.Context, hexHash string, body []byte) ([]logic.Fact, error) {
	compiled, ok := r.compiled[hexHash]
	if !ok {
		return nil, vacerr.PolicyViolationf("adapter not pinned")
	}

	runCtx, cancel := context.WithTimeout(ctx, executionBudget)
	defer cancel()

	module, err := r.runtime.InstantiateModule(runCtx, compiled, wazero.NewModuleConfig().WithName(""))
	if err != nil {
		return nil, vacerr.PolicyViolationf("adapter failed")
	}
	defer module.Close(ctx)

	output, err := runExtract(runCtx, module, body)
	if err != nil {
		return nil, vacerr.PolicyViolationf("adapter failed")
	}

	return parseFacts(output)
}

// runExtract stages body in the module's linear memory and invokes
// extract_facts, returning the raw JSON bytes it produced.
func runExtract(ctx context.Context, module api.Module, body []byte) ([]byte, error) {
	memory := module.Memory()

	ptr := uint32(reservedOffset)
	if alloc := module.ExportedFunction("alloc"); alloc != nil {
		results, err := alloc.Call(ctx, uint64(len(body)))
		if err != nil || len(results) == 0 {
			return nil, fmt.Errorf("adapter: alloc failed: %w", err)
		}
		ptr = uint32(results[0])
	}

	if !memory.Write(ptr, body) {
		return nil, fmt.Errorf("adapter: failed to write request body into memory")
	}

	extract := module.ExportedFunction("extract_facts")
	if extract == nil {
		return nil, fmt.Errorf("adapter: module does not export extract_facts")
	}
	results, err := extract.Call(ctx, uint64(ptr), uint64(len(body)))
	if err != nil {
		return nil, fmt.Errorf("adapter: extract_facts trapped: %w", err)
	}
	if len(results) == 0 {
		return nil, fmt.Errorf("adapter: extract_facts returned no result")
	}

	return readCString(memory, uint32(results[0]))
}

// readCString reads a NUL-terminated string from memory starting at
// offset, one byte at a time, bounded by maxFactOutput.
func readCString(memory api.Memory, offset uint32) ([]byte, error) {
	const maxFactOutput = 1 << 20 // 1 MiB ceiling on adapter output

	var out []byte
	for i := uint32(0); i < maxFactOutput; i++ {
		b, ok := memory.ReadByte(offset + i)
		if !ok {
			return nil, fmt.Errorf("adapter: read past memory bounds at offset %d", offset+i)
		}
		if b == 0 {
			return out, nil
		}
		out = append(out, b)
	}
	return nil, fmt.Errorf("adapter: output exceeded %d bytes without a NUL terminator", maxFactOutput)
}

// parseFacts decodes the adapter's JSON output into logic facts.
func parseFacts(output []byte) ([]logic.Fact, error) {
	var raw []rawFact
	if err := json.Unmarshal(output, &raw); err != nil {
		return nil, vacerr.PolicyViolationf("adapter failed")
	}

	facts := make([]logic.Fact, 0, len(raw))
	for _, rf := range raw {
		if rf.Fact == "" {
			return nil, vacerr.PolicyViolationf("adapter failed")
		}
		args := make([]logic.Term, len(rf.Args))
		for i, a := range rf.Args {
			args[i] = decodeArg(a)
		}
		facts = append(facts, logic.NewFact(rf.Fact, args...))
	}
	return facts, nil
}

// decodeArg converts one JSON argument into a ground term: a bare
// JSON integer becomes an integer term, a quoted string becomes a
// string term holding its decoded value, and anything else (a
// fractional number, a bool, an object) becomes a string term using
// its literal JSON text.
func decodeArg(raw json.RawMessage) logic.Term {
	var n int64
	if err := json.Unmarshal(raw, &n); err == nil {
		return logic.Int(n)
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return logic.Str(s)
	}
	return logic.Str(string(raw))
}
