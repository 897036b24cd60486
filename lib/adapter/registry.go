// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package adapter

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tetratelabs/wazero"
)

// Registry is an immutable, hash-keyed collection of compiled
// adapter modules. Built once at startup; safe for concurrent read
// access with no locking, since nothing ever mutates it afterward.
type Registry struct {
	runtime  wazero.Runtime
	compiled map[string]wazero.CompiledModule
}

// LoadDir scans dir for *.wasm files, compiles each one, and keys it
// by the lowercase hex SHA-256 of its raw bytes. A directory that
// does not exist yields an empty registry rather than an error — an
// adapters_dir is optional configuration.
func LoadDir(ctx context.Context, dir string) (*Registry, error) {
	runtime := wazero.NewRuntimeWithConfig(ctx, wazero.NewRuntimeConfig().
		WithCloseOnContextDone(true).
		WithMemoryLimitPages(memoryLimitPages))

	reg := &Registry{runtime: runtime, compiled: make(map[string]wazero.CompiledModule)}

	if dir == "" {
		return reg, nil
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return reg, nil
		}
		return nil, fmt.Errorf("adapter: reading %s: %w", dir, err)
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".wasm") {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("adapter: reading %s: %w", path, err)
		}

		compiled, err := runtime.CompileModule(ctx, raw)
		if err != nil {
			return nil, fmt.Errorf("adapter: compiling %s: %w", path, err)
		}

		hash := sha256.Sum256(raw)
		reg.compiled[hex.EncodeToString(hash[:])] = compiled
	}

	return reg, nil
}

// Has reports whether hexHash is a known adapter.
func (r *Registry) Has(hexHash string) bool {
	_, ok := r.compiled[hexHash]
	return ok
}

// Close releases the underlying wazero runtime and every compiled
// module. Call once at process shutdown.
func (r *Registry) Close(ctx context.Context) error {
	return r.runtime.Close(ctx)
}
