// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package logic

import "fmt"

// termKind distinguishes the three term shapes the language allows.
type termKind int

const (
	termString termKind = iota
	termInt
	termVar
)

// Term is a string literal, an integer literal, or a $variable
// reference. Only string and integer terms may appear as fact
// arguments at rest — a Term in a fact must be ground (not a
// variable). Variables appear only in clause bodies, where evaluation
// binds them against ground facts.
type Term struct {
	kind termKind
	str  string
	num  int64
}

// Str constructs a ground string term.
func Str(s string) Term { return Term{kind: termString, str: s} }

// Int constructs a ground integer term.
func Int(n int64) Term { return Term{kind: termInt, num: n} }

// Var constructs a variable term. name should not include the leading
// "$" (it is stripped by the parser already).
func Var(name string) Term { return Term{kind: termVar, str: name} }

// IsVar reports whether t is a variable reference.
func (t Term) IsVar() bool { return t.kind == termVar }

// IsString reports whether t is a ground string term.
func (t Term) IsString() bool { return t.kind == termString }

// IsInt reports whether t is a ground integer term.
func (t Term) IsInt() bool { return t.kind == termInt }

// VarName returns the variable's name. Only valid when IsVar is true.
func (t Term) VarName() string { return t.str }

// StringValue returns the term's string value. Only valid when
// IsString is true.
func (t Term) StringValue() string { return t.str }

// IntValue returns the term's integer value. Only valid when IsInt is
// true.
func (t Term) IntValue() int64 { return t.num }

// Equal reports whether two ground terms carry the same value. Terms
// of different kinds are never equal, including a string term and an
// integer term whose textual forms happen to coincide.
func (t Term) Equal(other Term) bool {
	if t.kind != other.kind {
		return false
	}
	switch t.kind {
	case termString:
		return t.str == other.str
	case termInt:
		return t.num == other.num
	default:
		return t.str == other.str
	}
}

// String renders the term in the language's surface syntax, for
// diagnostics.
func (t Term) String() string {
	switch t.kind {
	case termString:
		return fmt.Sprintf("%q", t.str)
	case termInt:
		return fmt.Sprintf("%d", t.num)
	case termVar:
		return "$" + t.str
	default:
		return "?"
	}
}
