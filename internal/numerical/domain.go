// Package numerical implements the dimension-keyed numerical abstract
// domain adapter (C4, spec §3.3 "Numerical domain" / §4.4). It stands in for
// an external solver library such as Apron or PPL — none of the retrieved
// examples bind one from Go, so the lattice itself (intervals, and a
// simplified difference-bound extension standing in for octagons) is
// implemented directly on top of math/big, the same way the teacher and
// pack repos implement their own algebra packages rather than reach outside
// for one (see DESIGN.md).
package numerical

import (
	"math/big"
	"sort"
)

// Kind selects which underlying abstraction a State is built from. Only two
// concrete shapes are implemented; PPL-style domains named in spec.md
// (polyhedra, linear congruences) are mapped onto one of these two, noted in
// DESIGN.md as an approximation.
type Kind int

const (
	KindInterval Kind = iota
	KindOctagon
)

func (k Kind) String() string {
	switch k {
	case KindOctagon:
		return "octagon"
	default:
		return "interval"
	}
}

// Operand is an argument to an arithmetic or comparison transfer: either a
// dimension reference or an immediate constant.
type Operand struct {
	Dim     string
	Const   *big.Int
	IsConst bool
}

func DimOperand(dim string) Operand   { return Operand{Dim: dim} }
func ConstOperand(v *big.Int) Operand { return Operand{Const: v, IsConst: true} }

func (o Operand) interval(s State) Interval {
	if o.IsConst {
		return Exact(o.Const)
	}
	return s.GetInterval(o.Dim)
}

// ArithOp is the set of transfer-level arithmetic operators a State must
// interpret (spec §4.8 binary op transfer).
type ArithOp int

const (
	ArithAdd ArithOp = iota
	ArithSub
	ArithMul
	ArithDiv
	ArithRem
)

// State is one abstract element of the numerical lattice, keyed by opaque
// dimension strings (the caller — typically the hybrid domain, C5 — supplies
// path.Path.Hash() as the dimension key).
type State interface {
	Kind() Kind
	IsBottom() bool
	IsTop() bool
	Dims() []string
	GetInterval(dim string) Interval

	Leq(o State) bool
	Join(o State) State
	Meet(o State) State
	Widen(o State) State
	Narrow(o State) State

	AssignInt(dim string, v *big.Int) State
	AssignVar(dst, src string) State
	ApplyArith(dst string, op ArithOp, left, right Operand) State
	ApplyNeg(dst, src string) State
	Forget(dim string) State
	Rename(old, new string) State
	Duplicate(src, dst string) State
	AddConstraints(cs ConstraintSystem) State
}

// align computes the union of dims across a and b in canonical (sorted)
// order, per spec §4.4: "pad each operand's dimension set to the union,
// permuting into a canonical insertion order before invoking the underlying
// domain operation".
func align(a, b map[string]Interval) []string {
	set := map[string]bool{}
	for d := range a {
		set[d] = true
	}
	for d := range b {
		set[d] = true
	}
	out := make([]string, 0, len(set))
	for d := range set {
		out = append(out, d)
	}
	sort.Strings(out)
	return out
}

func boundsOf(s State) map[string]Interval {
	out := map[string]Interval{}
	for _, d := range s.Dims() {
		out[d] = s.GetInterval(d)
	}
	return out
}
