// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package logic implements the small Datalog fragment that capability
// tokens carry as their policy language.
//
// A [Block] is an ordered list of statements parsed from source text:
//
//	fact_name(arg, arg, ...);
//	allow if pred, pred, ...;
//	deny if pred, pred, ...;
//	check if pred, pred, ...;
//
// A pred is either a fact application name(term, ...) (term is a
// string literal, integer literal, or $variable) or a comparison
// $variable OP term (OP one of > >= < <= == !=) or a string predicate
// $variable.starts_with("..."), .ends_with("..."), or .contains("...").
//
// An [Authorizer] accumulates facts and clauses from multiple blocks —
// engine-seeded context facts, receipt facts, delegation facts,
// adapter facts, and the credential's own blocks — and [Authorizer.Evaluate]
// runs every check, then every deny, then every allow, using naive
// backtracking unification against the current fact set. There is no
// recursion, negation, or disjunction within one clause; disjunction
// is expressed by writing multiple allow statements, the standard
// Datalog encoding. Every check must hold, so multiple check
// statements combine as a conjunction.
package logic
