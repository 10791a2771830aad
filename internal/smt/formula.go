// Package smt implements the SMT bridge (spec §4.8) and the small
// linear-arithmetic decision procedure it feeds: no cgo Z3 binding is
// available in the retrieved pack, so this package translates the same
// constraint language internal/numerical already speaks into a boolean
// formula over linear atoms and decides it with Fourier-Motzkin elimination
// over the rationals. That relaxation is sound for UNSAT (a real solution
// is a necessary condition for an integer one) but not complete for SAT —
// documented in DESIGN.md — so the checker (C10) only ever trusts this
// package's Unsat verdicts, falling back to Warning otherwise.
package smt

import "mir-checker/internal/numerical"

// Formula is a boolean combination of linear atoms (spec §4.8 "boolean
// connectives map one-to-one; comparisons map one-to-one").
type Formula interface {
	isFormula()
}

// Lit is a single linear-arithmetic atom.
type Lit struct {
	Constraint numerical.LinearConstraint
}

func (Lit) isFormula() {}

// And is a conjunction.
type And struct {
	Operands []Formula
}

func (And) isFormula() {}

// Or is a disjunction.
type Or struct {
	Operands []Formula
}

func (Or) isFormula() {}

// Not negates a sub-formula.
type Not struct {
	Operand Formula
}

func (Not) isFormula() {}

// BoolConst is a formula that is trivially true or false (used for the base
// constraint system when it's empty, and as the translation of a constant
// boolean expression).
type BoolConst struct {
	Value bool
}

func (BoolConst) isFormula() {}

// Unknown marks a sub-expression the bridge couldn't translate (spec §4.8:
// "Top/Bottom/Cast/Reference/HeapBlock/Widen/Join/Offset are unsupported").
// A Formula containing Unknown anywhere can't be decided precisely; Decide
// reports ResultUnknown for it rather than guessing.
type Unknown struct{}

func (Unknown) isFormula() {}
