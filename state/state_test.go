// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package state

import (
	"context"
	"crypto/ed25519"
	"encoding/hex"
	"testing"
	"time"

	"github.com/vac-sidecar/sidecar/lib/clock"
	"github.com/vac-sidecar/sidecar/lib/config"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	pub, _, err := ed25519.GenerateKey(nil)
	if err != nil {
		t.Fatalf("ed25519.GenerateKey: %v", err)
	}
	cfg := config.Default()
	cfg.RootPublicKeyHex = hex.EncodeToString(pub)
	cfg.APIKey = "sk-test-key"
	cfg.UpstreamURL = "http://upstream.example"
	return cfg
}

func TestNewBuildsState(t *testing.T) {
	clk := clock.Fake(time.Unix(0, 0))
	s, err := New(context.Background(), testConfig(t), clk)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer s.Close(context.Background())

	if s.SidecarID == "" {
		t.Error("expected a non-empty sidecar id")
	}
	if len(s.RootPublicKey) != ed25519.PublicKeySize {
		t.Errorf("unexpected root public key length: %d", len(s.RootPublicKey))
	}
	if !s.APIKey.Equal([]byte("sk-test-key")) {
		t.Error("expected the API key to round-trip through secret storage")
	}
	if s.InLockdown() {
		t.Error("expected a fresh state to not be in lockdown")
	}
}

func TestNewRejectsMalformedRootKey(t *testing.T) {
	clk := clock.Fake(time.Unix(0, 0))
	cfg := testConfig(t)
	cfg.RootPublicKeyHex = "not-hex"

	if _, err := New(context.Background(), cfg, clk); err == nil {
		t.Error("expected a malformed root public key to be rejected")
	}
}

func TestLockdownToggles(t *testing.T) {
	clk := clock.Fake(time.Unix(0, 0))
	s, err := New(context.Background(), testConfig(t), clk)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer s.Close(context.Background())

	s.EnterLockdown()
	if !s.InLockdown() {
		t.Error("expected InLockdown to report true after EnterLockdown")
	}
	s.ExitLockdown()
	if s.InLockdown() {
		t.Error("expected InLockdown to report false after ExitLockdown")
	}
}

func TestRecordHeartbeatResetsFailureCount(t *testing.T) {
	clk := clock.Fake(time.Unix(0, 0))
	s, err := New(context.Background(), testConfig(t), clk)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer s.Close(context.Background())

	s.RecordHeartbeatFailure()
	s.RecordHeartbeatFailure()
	s.RecordHeartbeat(clk.Now())
	if s.heartbeatFailures.Load() != 0 {
		t.Error("expected RecordHeartbeat to reset the failure count")
	}
	if !s.LastHeartbeat().Equal(clk.Now()) {
		t.Errorf("LastHeartbeat = %v, want %v", s.LastHeartbeat(), clk.Now())
	}
}
