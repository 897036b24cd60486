// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package logic

// ClauseKind distinguishes the three statement kinds that carry a
// predicate body.
type ClauseKind int

const (
	ClauseCheck ClauseKind = iota
	ClauseDeny
	ClauseAllow
)

func (k ClauseKind) String() string {
	switch k {
	case ClauseCheck:
		return "check"
	case ClauseDeny:
		return "deny"
	case ClauseAllow:
		return "allow"
	default:
		return "?"
	}
}

// Clause is one check/deny/allow statement: a kind and a conjunction
// of predicates that must all hold for the clause to match.
type Clause struct {
	Kind ClauseKind
	Body []Predicate
}

// Block is an ordered set of fact statements and check/deny/allow
// clauses — the unit a credential's authority chain is built from.
// Blocks from multiple sources (engine-seeded context, receipts,
// delegation, adapters, the credential itself) are merged into one
// [Authorizer].
type Block struct {
	Facts   []Fact
	Clauses []Clause
}
