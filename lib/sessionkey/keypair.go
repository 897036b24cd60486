// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package sessionkey

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/vac-sidecar/sidecar/lib/clock"
)

// Keypair is the sidecar's current session signing key.
type Keypair struct {
	Public      ed25519.PublicKey
	Private     ed25519.PrivateKey
	GeneratedAt time.Time
}

// Generate produces a fresh Ed25519 keypair stamped with clk's current
// time.
func Generate(clk clock.Clock) (Keypair, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return Keypair{}, err
	}
	return Keypair{Public: pub, Private: priv, GeneratedAt: clk.Now()}, nil
}

// Store holds the sidecar's live session keypair behind an atomic
// pointer, so readers never observe a torn read during rotation.
type Store struct {
	current atomic.Pointer[Keypair]
}

// NewStore returns a Store initialized to initial.
func NewStore(initial Keypair) *Store {
	s := &Store{}
	s.current.Store(&initial)
	return s
}

// Current returns the live keypair.
func (s *Store) Current() Keypair {
	return *s.current.Load()
}

// Rotate generates a new keypair stamped with clk's current time and
// atomically replaces the live one, returning the new keypair.
func (s *Store) Rotate(clk clock.Clock) (Keypair, error) {
	next, err := Generate(clk)
	if err != nil {
		return Keypair{}, err
	}
	s.current.Store(&next)
	return next, nil
}

// Rotator drives periodic session-key rotation on a clock-backed
// ticker. Call Run in its own goroutine; it returns when ctx is
// canceled.
type Rotator struct {
	store    *Store
	clock    clock.Clock
	interval time.Duration
	log      *slog.Logger

	// OnRotate, if set, is called synchronously after every rotation
	// (including the triggered one from RotateNow) with the new
	// keypair — used to attach the new public key to the next
	// heartbeat payload.
	OnRotate func(Keypair)
}

// NewRotator constructs a Rotator that rotates store's keypair every
// interval, using clk to drive the ticker.
func NewRotator(store *Store, clk clock.Clock, interval time.Duration, log *slog.Logger) *Rotator {
	return &Rotator{store: store, clock: clk, interval: interval, log: log}
}

// Run blocks, rotating the keypair every interval until ctx is
// canceled.
func (r *Rotator) Run(ctx context.Context) {
	ticker := r.clock.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.rotate("scheduled")
		}
	}
}

// RotateNow triggers an immediate rotation outside the regular ticker
// cadence — used on recovery from lockdown, per spec.md §4.8.
func (r *Rotator) RotateNow() {
	r.rotate("lockdown-recovery")
}

func (r *Rotator) rotate(reason string) {
	next, err := r.store.Rotate(r.clock)
	if err != nil {
		if r.log != nil {
			r.log.Error("session key rotation failed", "reason", reason, "error", err)
		}
		return
	}
	if r.log != nil {
		r.log.Info("session key rotated", "reason", reason, "generated_at", next.GeneratedAt)
	}
	if r.OnRotate != nil {
		r.OnRotate(next)
	}
}
