// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package controlplane

import (
	"context"
	"crypto/ed25519"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/vac-sidecar/sidecar/lib/clock"
	"github.com/vac-sidecar/sidecar/lib/vactoken"
)

// LockdownThreshold is the number of consecutive heartbeat failures
// that forces the sidecar into lockdown.
const LockdownThreshold = 3

// Monitor drives the Healthy / Degraded / Lockdown state machine by
// polling a Client on a clock-backed ticker.
type Monitor struct {
	client   *Client
	clock    clock.Clock
	interval time.Duration
	log      *slog.Logger

	// SessionPublicKey is called before every poll to fetch the
	// current session public key to report.
	SessionPublicKey func() ed25519.PublicKey

	// OnRevoked is called with the ids a successful heartbeat reports
	// as revoked, for merging into the revocation set.
	OnRevoked func(ids []vactoken.ID)

	// OnSuccess is called after every successful poll, regardless of
	// lockdown transition, so callers can stamp a last-heartbeat time.
	OnSuccess func()

	// OnFailure is called after every failed poll (transport error or
	// explicit unhealthy), so callers can track the consecutive-failure
	// count independently of the lockdown threshold.
	OnFailure func(err error)

	// OnLockdownEnter is called the moment the sidecar transitions
	// into lockdown (3 consecutive failures, or an explicit
	// healthy:false from the control plane).
	OnLockdownEnter func()

	// OnLockdownExit is called when a successful heartbeat recovers
	// from lockdown — the trigger for a session-key rotation.
	OnLockdownExit func()

	failureCount atomic.Int32
	inLockdown   atomic.Bool
}

// NewMonitor constructs a Monitor that polls client every interval
// using clk to drive the ticker.
func NewMonitor(client *Client, clk clock.Clock, interval time.Duration, log *slog.Logger) *Monitor {
	return &Monitor{client: client, clock: clk, interval: interval, log: log}
}

// InLockdown reports whether the sidecar is currently in lockdown.
func (m *Monitor) InLockdown() bool {
	return m.inLockdown.Load()
}

// FailureCount returns the current consecutive-failure count.
func (m *Monitor) FailureCount() int {
	return int(m.failureCount.Load())
}

// Run blocks, polling on schedule until ctx is canceled.
func (m *Monitor) Run(ctx context.Context) {
	ticker := m.clock.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.poll(ctx)
		}
	}
}

// Poll performs one heartbeat round trip immediately, outside the
// regular ticker cadence. Exported for tests and for an initial
// heartbeat at startup.
func (m *Monitor) Poll(ctx context.Context) {
	m.poll(ctx)
}

func (m *Monitor) poll(ctx context.Context) {
	var pub ed25519.PublicKey
	if m.SessionPublicKey != nil {
		pub = m.SessionPublicKey()
	}

	result, err := m.client.Heartbeat(ctx, pub, m.clock.Now())
	if err != nil {
		m.onFailure(err)
		return
	}
	if !result.Healthy {
		m.onExplicitUnhealthy()
		return
	}
	m.onSuccess(result.RevokedTokenIDs)
}

func (m *Monitor) onSuccess(revokedIDs []vactoken.ID) {
	m.failureCount.Store(0)
	if m.OnRevoked != nil {
		m.OnRevoked(revokedIDs)
	}
	if m.OnSuccess != nil {
		m.OnSuccess()
	}

	wasInLockdown := m.inLockdown.CompareAndSwap(true, false)
	if m.log != nil {
		m.log.Info("heartbeat succeeded", "revoked_count", len(revokedIDs), "exited_lockdown", wasInLockdown)
	}
	if wasInLockdown && m.OnLockdownExit != nil {
		m.OnLockdownExit()
	}
}

func (m *Monitor) onFailure(err error) {
	count := m.failureCount.Add(1)
	if m.log != nil {
		m.log.Warn("heartbeat failed", "error", err, "failure_count", count)
	}
	if m.OnFailure != nil {
		m.OnFailure(err)
	}
	if count >= LockdownThreshold {
		m.enterLockdown()
	}
}

func (m *Monitor) onExplicitUnhealthy() {
	count := m.failureCount.Add(1)
	if m.log != nil {
		m.log.Warn("control plane reported unhealthy", "failure_count", count)
	}
	if m.OnFailure != nil {
		m.OnFailure(fmt.Errorf("control plane reported unhealthy"))
	}
	m.enterLockdown()
}

func (m *Monitor) enterLockdown() {
	wasHealthy := m.inLockdown.CompareAndSwap(false, true)
	if wasHealthy {
		if m.log != nil {
			m.log.Error("entering lockdown")
		}
		if m.OnLockdownEnter != nil {
			m.OnLockdownEnter()
		}
	}
}
