// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package state

import (
	"context"
	"crypto/ed25519"
	"encoding/hex"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/vac-sidecar/sidecar/lib/adapter"
	"github.com/vac-sidecar/sidecar/lib/clock"
	"github.com/vac-sidecar/sidecar/lib/config"
	"github.com/vac-sidecar/sidecar/lib/revocation"
	"github.com/vac-sidecar/sidecar/lib/secret"
	"github.com/vac-sidecar/sidecar/lib/sessionkey"
)

// State is the sidecar's process-wide shared state.
type State struct {
	SidecarID     string
	RootPublicKey ed25519.PublicKey
	APIKey        *secret.Buffer
	UpstreamURL   string

	Sessions    *sessionkey.Store
	Revocations *revocation.Set
	Adapters    *adapter.Registry

	lockdown          atomic.Bool
	lastHeartbeat     atomic.Pointer[time.Time]
	heartbeatFailures atomic.Int32
}

// New builds sidecar state from cfg: decodes the root public key,
// seals the API key in locked memory, generates the initial session
// keypair, and loads the adapter registry from cfg.AdaptersDir.
func New(ctx context.Context, cfg *config.Config, clk clock.Clock) (*State, error) {
	rootKey, err := hex.DecodeString(cfg.RootPublicKeyHex)
	if err != nil || len(rootKey) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("state: invalid root public key: %w", err)
	}

	apiKey, err := secret.NewFromBytes([]byte(cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("state: sealing API key: %w", err)
	}

	initial, err := sessionkey.Generate(clk)
	if err != nil {
		return nil, fmt.Errorf("state: generating session keypair: %w", err)
	}

	registry, err := adapter.LoadDir(ctx, cfg.AdaptersDir)
	if err != nil {
		return nil, fmt.Errorf("state: loading adapters: %w", err)
	}

	return &State{
		SidecarID:     uuid.NewString(),
		RootPublicKey: ed25519.PublicKey(rootKey),
		APIKey:        apiKey,
		UpstreamURL:   cfg.UpstreamURL,
		Sessions:      sessionkey.NewStore(initial),
		Revocations:   revocation.New(),
		Adapters:      registry,
	}, nil
}

// InLockdown reports whether the sidecar is currently in lockdown.
func (s *State) InLockdown() bool {
	return s.lockdown.Load()
}

// EnterLockdown is the heartbeat task's mutator for entering
// lockdown. Idempotent.
func (s *State) EnterLockdown() {
	s.lockdown.Store(true)
}

// ExitLockdown is the heartbeat task's mutator for leaving lockdown
// on recovery. Idempotent.
func (s *State) ExitLockdown() {
	s.lockdown.Store(false)
}

// RecordHeartbeat stamps the last-successful-heartbeat timestamp and
// resets the failure count. Called by the heartbeat task on success.
func (s *State) RecordHeartbeat(at time.Time) {
	s.lastHeartbeat.Store(&at)
	s.heartbeatFailures.Store(0)
}

// RecordHeartbeatFailure increments the consecutive-failure count and
// returns the new value.
func (s *State) RecordHeartbeatFailure() int32 {
	return s.heartbeatFailures.Add(1)
}

// LastHeartbeat returns the time of the last successful heartbeat, or
// the zero time if none has succeeded yet.
func (s *State) LastHeartbeat() time.Time {
	t := s.lastHeartbeat.Load()
	if t == nil {
		return time.Time{}
	}
	return *t
}

// Close releases resources held by state: the API key's locked
// memory and the adapter runtime.
func (s *State) Close(ctx context.Context) error {
	apiKeyErr := s.APIKey.Close()
	adapterErr := s.Adapters.Close(ctx)
	if apiKeyErr != nil {
		return apiKeyErr
	}
	return adapterErr
}
