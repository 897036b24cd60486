// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package logic

import (
	"strings"

	"github.com/vac-sidecar/sidecar/lib/vacerr"
)

// Authorizer accumulates facts and clauses from every source that
// contributes to one policy decision — engine-seeded context, receipt
// facts, delegation facts, adapter output, and the credential's own
// blocks — and evaluates them as a single Datalog program.
type Authorizer struct {
	facts   []Fact
	clauses []Clause
}

// New returns an empty Authorizer.
func New() *Authorizer {
	return &Authorizer{}
}

// AddFact adds one ground fact to the authorizer's working memory.
func (a *Authorizer) AddFact(f Fact) {
	a.facts = append(a.facts, f)
}

// AddClause adds one check/deny/allow clause.
func (a *Authorizer) AddClause(c Clause) {
	a.clauses = append(a.clauses, c)
}

// AddBlock merges a parsed block's facts and clauses into the
// authorizer.
func (a *Authorizer) AddBlock(b Block) {
	a.facts = append(a.facts, b.Facts...)
	a.clauses = append(a.clauses, b.Clauses...)
}

// Facts returns every fact currently loaded with the given name, in
// the order they were added. This is the authorizer's query
// primitive — callers that need a single fact's arguments (receipt
// extraction, delegation depth, adapter hash) use this rather than a
// general query language, since every such lookup in this system
// wants "the facts named X", not an arbitrary join.
func (a *Authorizer) Facts(name string) []Fact {
	var out []Fact
	for _, f := range a.facts {
		if f.Name == name {
			out = append(out, f)
		}
	}
	return out
}

// Evaluate runs the authorizer's decision procedure: every check must
// be satisfiable, then no deny may match, then at least one allow must
// match. Returns nil on acceptance or a *vacerr.Error of Kind
// PolicyViolation naming the first unmet check or matched deny, or,
// when no allow matches, listing every unmatched allow body.
func (a *Authorizer) Evaluate() error {
	for _, c := range a.clauses {
		if c.Kind != ClauseCheck {
			continue
		}
		if !Satisfiable(c.Body, a.facts) {
			return vacerr.PolicyViolationf("unmet check: %s", renderBody(c.Body))
		}
	}

	for _, c := range a.clauses {
		if c.Kind != ClauseDeny {
			continue
		}
		if Satisfiable(c.Body, a.facts) {
			return vacerr.PolicyViolationf("matched deny: %s", renderBody(c.Body))
		}
	}

	var unmatched []string
	for _, c := range a.clauses {
		if c.Kind != ClauseAllow {
			continue
		}
		if Satisfiable(c.Body, a.facts) {
			return nil
		}
		unmatched = append(unmatched, renderBody(c.Body))
	}

	if len(unmatched) > 0 {
		return vacerr.PolicyViolationf("no matching allow: %s", strings.Join(unmatched, " | "))
	}
	return vacerr.PolicyViolationf("no matching allow")
}

func renderBody(body []Predicate) string {
	s := ""
	for i, p := range body {
		if i > 0 {
			s += ", "
		}
		s += p.String()
	}
	return s
}
