// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package revocation

import (
	"encoding/hex"
	"errors"
	"sync"

	"github.com/vac-sidecar/sidecar/lib/vactoken"
)

var errWrongLength = errors.New("revocation: id is not 32 bytes")

// Set is a thread-safe, append-only set of revoked token ids.
type Set struct {
	mu  sync.RWMutex
	ids map[vactoken.ID]struct{}
}

// New returns an empty revocation set.
func New() *Set {
	return &Set{ids: make(map[vactoken.ID]struct{})}
}

// Contains reports whether id has been revoked. Safe to call
// concurrently with Merge.
func (s *Set) Contains(id vactoken.ID) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, revoked := s.ids[id]
	return revoked
}

// Merge adds every id to the set. Already-present ids are left
// unchanged. Merge never removes an id — the set only grows.
func (s *Set) Merge(ids []vactoken.ID) {
	if len(ids) == 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		s.ids[id] = struct{}{}
	}
}

// MergeHex parses a list of hex-encoded ids, as carried in the
// /revoke admin endpoint's request body, and merges the well-formed
// ones into the set. Heartbeat responses carry ids as byte arrays and
// go through Merge instead; MergeHex exists only for this hex-encoded
// wire shape. Malformed entries are skipped rather than rejecting the
// whole batch: one bad entry should not hide every other revocation
// it arrived with. Callers should log the skipped count.
func (s *Set) MergeHex(hexIDs []string) (skipped int) {
	ids := make([]vactoken.ID, 0, len(hexIDs))
	for _, h := range hexIDs {
		id, err := decodeHex(h)
		if err != nil {
			skipped++
			continue
		}
		ids = append(ids, id)
	}
	s.Merge(ids)
	return skipped
}

// Len returns the number of ids currently revoked. Intended for
// diagnostics and tests, not for request-path decisions.
func (s *Set) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.ids)
}

func decodeHex(h string) (vactoken.ID, error) {
	var id vactoken.ID
	decoded, err := hex.DecodeString(h)
	if err != nil {
		return id, err
	}
	if len(decoded) != len(id) {
		return id, errWrongLength
	}
	copy(id[:], decoded)
	return id, nil
}
