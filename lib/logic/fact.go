// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package logic

import "strings"

// Fact is a ground predicate application: a name plus zero or more
// ground (non-variable) arguments. Facts are the authorizer's working
// memory; clauses test them but never add to them during evaluation.
type Fact struct {
	Name string
	Args []Term
}

// NewFact constructs a Fact from a name and a list of ground Terms.
// Panics if any argument is a variable — facts must be ground by
// construction, the same invariant the parser enforces on fact
// statements.
func NewFact(name string, args ...Term) Fact {
	for _, a := range args {
		if a.IsVar() {
			panic("logic: fact argument must be ground, got variable $" + a.VarName())
		}
	}
	return Fact{Name: name, Args: args}
}

// FactString builds a Fact whose arguments are all string terms. This
// is the common case for facts seeded from request context (operation,
// correlation id) or adapter output.
func FactString(name string, args ...string) Fact {
	terms := make([]Term, len(args))
	for i, a := range args {
		terms[i] = Str(a)
	}
	return Fact{Name: name, Args: terms}
}

// String renders the fact as a parseable fact statement, e.g.
// `operation("GET", "/search")`. Used when a minted token needs to
// carry a fact as a logic-language source block.
func (f Fact) String() string {
	args := make([]string, len(f.Args))
	for i, a := range f.Args {
		args[i] = a.String()
	}
	return f.Name + "(" + strings.Join(args, ", ") + ")"
}
