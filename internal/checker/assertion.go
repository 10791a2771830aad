// Package checker implements the assertion checker (C10 part 2, spec §4.7):
// it consumes one AssertObservation per Assert terminator the transfer
// function evaluates and classifies it Safe, Unsafe, or Warning by querying
// the SMT bridge (internal/smt).
package checker

import (
	"fmt"
	"math/big"

	"mir-checker/internal/mir"
	"mir-checker/internal/smt"
	"mir-checker/internal/transfer"
)

// Verdict is the three-way classification spec §4.7 step 3 describes.
type Verdict int

const (
	Safe Verdict = iota
	Unsafe
	Warning
)

func (v Verdict) String() string {
	switch v {
	case Safe:
		return "safe"
	case Unsafe:
		return "unsafe"
	default:
		return "warning"
	}
}

// Diagnostic is one reported assertion classification. Safe assertions never
// reach a Sink; only Unsafe and Warning do.
type Diagnostic struct {
	Fn      mir.FuncID
	Block   mir.BlockID
	Span    mir.Span
	Kind    mir.AssertKind
	Verdict Verdict
	Message string
}

// Sink receives one Diagnostic per non-Safe assertion.
type Sink interface {
	Report(Diagnostic)
}

// Checker implements transfer.AssertSink, turning each observation into a
// classified Diagnostic forwarded to Sink.
type Checker struct {
	Sink Sink
}

var _ transfer.AssertSink = (*Checker)(nil)

func (c *Checker) Observe(obs transfer.AssertObservation) {
	v := Classify(obs)
	if v == Safe || c.Sink == nil {
		return
	}
	c.Sink.Report(Diagnostic{
		Fn:      obs.Fn,
		Block:   obs.Block,
		Span:    obs.Term.Pos(),
		Kind:    obs.Term.Kind,
		Verdict: v,
		Message: messageFor(obs.Term, v),
	})
}

// Classify runs the spec §4.7 algorithm: feed the lattice bounds as a base
// constraint set, translate the (possibly negated) condition, then check
// which side is unsatisfiable.
func Classify(obs transfer.AssertObservation) Verdict {
	if v, ok := boundPreFilter(obs); ok {
		return v
	}

	atoms := append(smt.LatticeAtoms(obs.Numerical), obs.ExtraAtoms...)
	desired := desiredFormula(obs)
	ctx := smt.Default()

	if ctx.Query(atoms, smt.Not{Operand: desired}) == smt.Unsat {
		return Safe
	}
	if ctx.Query(atoms, desired) == smt.Unsat {
		return Unsafe
	}
	return Warning
}

// desiredFormula translates `v` (or `¬v` if expected = false), spec §4.7
// step 2.
func desiredFormula(obs transfer.AssertObservation) smt.Formula {
	if obs.Term.Expected {
		return smt.TranslateFormula(obs.Cond)
	}
	return smt.NegateExpr(obs.Cond)
}

// boundPreFilter is the cheap numerical-only short-circuit the comment on
// AssertObservation.Bound exists for: when cond's place is itself
// numerically tracked (common for a CheckedBinaryOp overflow flag or a
// bounds-check comparison folded into a plain 0/1 dimension), the interval
// bound alone can already decide the query without invoking the solver.
func boundPreFilter(obs transfer.AssertObservation) (Verdict, bool) {
	if obs.Bound.IsTop() || obs.Bound.IsBottom() {
		return Safe, false
	}
	want := big.NewInt(0)
	if obs.Term.Expected {
		want = big.NewInt(1)
	}
	if obs.Bound.IsExact() {
		if obs.Bound.Lo.Cmp(want) == 0 {
			return Safe, true
		}
		return Unsafe, true
	}
	if !obs.Bound.Contains(want) {
		return Unsafe, true
	}
	return Safe, false
}

func messageFor(t *mir.AssertTerm, v Verdict) string {
	base := kindMessage(t)
	if v == Safe {
		return base
	}
	if v == Unsafe {
		return fmt.Sprintf("%s is always reachable", base)
	}
	return fmt.Sprintf("%s could not be ruled out (solver timeout or insufficient precision)", base)
}

func kindMessage(t *mir.AssertTerm) string {
	switch t.Kind {
	case mir.AssertOverflow:
		return "arithmetic overflow"
	case mir.AssertOverflowNeg:
		return "negation overflow"
	case mir.AssertDivisionByZero:
		return "division by zero"
	case mir.AssertRemainderByZero:
		return "remainder by zero"
	case mir.AssertBoundsCheck:
		return "index out of bounds"
	default:
		if t.Msg != "" {
			return t.Msg
		}
		return "assertion failure"
	}
}
