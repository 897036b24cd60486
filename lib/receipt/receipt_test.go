// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package receipt

import (
	"crypto/ed25519"
	"testing"
	"time"

	"github.com/vac-sidecar/sidecar/lib/clock"
	"github.com/vac-sidecar/sidecar/lib/logic"
	"github.com/vac-sidecar/sidecar/lib/sessionkey"
	"github.com/vac-sidecar/sidecar/lib/vactoken"
)

func mustKey(t *testing.T) (ed25519.PublicKey, ed25519.PrivateKey) {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		t.Fatalf("ed25519.GenerateKey: %v", err)
	}
	return pub, priv
}

func TestMintVerifyRoundtrip(t *testing.T) {
	pub, priv := mustKey(t)
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	clk := clock.Fake(base)

	wire, err := Mint(clk, priv, "GET /search", "cid-1")
	if err != nil {
		t.Fatalf("Mint: %v", err)
	}

	event, err := Verify(pub, wire, "cid-1", base)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if event.Operation != "GET /search" || event.CorrelationID != "cid-1" {
		t.Errorf("unexpected event: %+v", event)
	}
	if !event.Timestamp.Equal(base) {
		t.Errorf("Timestamp = %v, want %v", event.Timestamp, base)
	}
}

func TestVerifyRejectsExpired(t *testing.T) {
	pub, priv := mustKey(t)
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	clk := clock.Fake(base)

	wire, err := Mint(clk, priv, "GET /search", "cid-1")
	if err != nil {
		t.Fatalf("Mint: %v", err)
	}

	later := base.Add(ExpiryWindow + time.Second)
	if _, err := Verify(pub, wire, "cid-1", later); err == nil {
		t.Error("expected an expired receipt to be rejected")
	}
}

func TestVerifyAcceptsWithinExpiryWindow(t *testing.T) {
	pub, priv := mustKey(t)
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	clk := clock.Fake(base)

	wire, err := Mint(clk, priv, "GET /search", "cid-1")
	if err != nil {
		t.Fatalf("Mint: %v", err)
	}

	justBefore := base.Add(ExpiryWindow - time.Second)
	if _, err := Verify(pub, wire, "cid-1", justBefore); err != nil {
		t.Errorf("expected acceptance just inside the expiry window, got %v", err)
	}
}

func TestVerifyRejectsFutureTimestampBeyondSkew(t *testing.T) {
	pub, priv := mustKey(t)
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	clk := clock.Fake(base)

	wire, err := Mint(clk, priv, "GET /search", "cid-1")
	if err != nil {
		t.Fatalf("Mint: %v", err)
	}

	earlier := base.Add(-SkewGrace - time.Second)
	if _, err := Verify(pub, wire, "cid-1", earlier); err == nil {
		t.Error("expected a receipt from beyond the clock-skew grace to be rejected")
	}
}

func TestVerifyRejectsCorrelationMismatch(t *testing.T) {
	pub, priv := mustKey(t)
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	clk := clock.Fake(base)

	wire, err := Mint(clk, priv, "GET /search", "cid-1")
	if err != nil {
		t.Fatalf("Mint: %v", err)
	}

	if _, err := Verify(pub, wire, "cid-2", base); err == nil {
		t.Error("expected a correlation id mismatch to be rejected")
	}
}

func TestVerifyRejectsWrongSessionKey(t *testing.T) {
	pub, _ := mustKey(t)
	_, otherPriv := mustKey(t)
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	clk := clock.Fake(base)

	wire, err := Mint(clk, otherPriv, "GET /search", "cid-1")
	if err != nil {
		t.Fatalf("Mint: %v", err)
	}

	if _, err := Verify(pub, wire, "cid-1", base); err == nil {
		t.Error("expected a receipt signed by a different session key to be rejected")
	}
}

func TestVerifyRejectsMissingPriorEventFact(t *testing.T) {
	pub, priv := mustKey(t)
	wire, err := vactoken.Mint(priv, &vactoken.Token{Blocks: []string{`adapter_hash("x");`}})
	if err != nil {
		t.Fatalf("Mint: %v", err)
	}

	if _, err := Verify(pub, wire, "cid-1", time.Now()); err == nil {
		t.Error("expected missing prior_event fact to be rejected")
	}
}

func TestMintCarriesExtraFacts(t *testing.T) {
	pub, priv := mustKey(t)
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	clk := clock.Fake(base)

	depth := logic.NewFact("depth", logic.Int(2))
	chainLink := logic.FactString("delegation_chain", "ab12")

	wire, err := Mint(clk, priv, "GET /search", "cid-1", depth, chainLink)
	if err != nil {
		t.Fatalf("Mint: %v", err)
	}

	token, _, err := vactoken.Verify(pub, wire)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}

	authorizer := logic.New()
	if err := token.BuildAuthorizer(authorizer); err != nil {
		t.Fatalf("BuildAuthorizer: %v", err)
	}
	if len(authorizer.Facts("depth")) != 1 || len(authorizer.Facts("delegation_chain")) != 1 {
		t.Errorf("expected the receipt to carry both extra facts alongside prior_event")
	}
}

// TestVerifyRejectsReceiptMintedUnderRotatedOutKey covers spec.md §8's
// session-key-rotation invariant: a receipt signed under the sidecar's
// session key before rotation must fail verification against the key
// that's live after rotation, since Verify is always handed the
// store's *current* public key, never the one a given receipt happens
// to have been minted under.
func TestVerifyRejectsReceiptMintedUnderRotatedOutKey(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	clk := clock.Fake(base)

	initial, err := sessionkey.Generate(clk)
	if err != nil {
		t.Fatalf("sessionkey.Generate: %v", err)
	}
	store := sessionkey.NewStore(initial)

	wire, err := Mint(clk, store.Current().Private, "GET /search", "cid-1")
	if err != nil {
		t.Fatalf("Mint: %v", err)
	}

	if _, err := store.Rotate(clk); err != nil {
		t.Fatalf("Rotate: %v", err)
	}

	if _, err := Verify(store.Current().Public, wire, "cid-1", base); err == nil {
		t.Error("expected a receipt minted under the rotated-out key to fail verification")
	}
}
