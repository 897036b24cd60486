// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package revocation

import (
	"testing"

	"github.com/vac-sidecar/sidecar/lib/vactoken"
)

func TestContainsFalseForUnknown(t *testing.T) {
	s := New()
	var id vactoken.ID
	id[0] = 0x42
	if s.Contains(id) {
		t.Error("expected an unmerged id to not be revoked")
	}
}

func TestMergeThenContains(t *testing.T) {
	s := New()
	var id vactoken.ID
	id[0] = 0x42
	s.Merge([]vactoken.ID{id})
	if !s.Contains(id) {
		t.Error("expected a merged id to be revoked")
	}
}

func TestMergeIsUnionOnly(t *testing.T) {
	s := New()
	var a, b vactoken.ID
	a[0], b[0] = 1, 2
	s.Merge([]vactoken.ID{a})
	s.Merge([]vactoken.ID{b})
	if !s.Contains(a) || !s.Contains(b) {
		t.Error("expected both ids to remain revoked after a second, disjoint merge")
	}
	if s.Len() != 2 {
		t.Errorf("Len() = %d, want 2", s.Len())
	}
}

func TestMergeHexSkipsMalformedEntries(t *testing.T) {
	s := New()
	var good vactoken.ID
	good[0] = 0xAB
	skipped := s.MergeHex([]string{good.Hex(), "not-hex", "deadbeef"})
	if skipped != 2 {
		t.Errorf("skipped = %d, want 2", skipped)
	}
	if !s.Contains(good) {
		t.Error("expected the well-formed id to be merged despite malformed siblings")
	}
	if s.Len() != 1 {
		t.Errorf("Len() = %d, want 1", s.Len())
	}
}

func TestMergeEmptyIsNoop(t *testing.T) {
	s := New()
	s.Merge(nil)
	if s.Len() != 0 {
		t.Errorf("Len() = %d, want 0", s.Len())
	}
}
