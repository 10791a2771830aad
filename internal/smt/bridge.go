package smt

import (
	"math/big"

	"mir-checker/internal/expr"
	"mir-checker/internal/numerical"
)

// TranslateTerm translates one arithmetic-valued Expression into a
// numerical.LinearExpr (spec §4.8): a compile-time integer constant becomes
// a literal, and a tracked variable/numerical forwarding marker becomes an
// uninterpreted constant keyed by the path's hash (the same key
// domain.NumDim uses, so atoms built here line up with the numerical
// lattice's own dimensions). Anything else reports ok=false.
func TranslateTerm(e *expr.Expression) (numerical.LinearExpr, bool) {
	if e == nil {
		return numerical.LinearExpr{}, false
	}
	switch e.Kind {
	case expr.KConstant:
		if e.ConstVal.Kind == expr.ConstInt {
			return numerical.ConstExpr(e.ConstVal.Int), true
		}
		return numerical.LinearExpr{}, false
	case expr.KNumerical, expr.KVariable:
		return numerical.Term(e.Path.Hash()), true
	default:
		// Top, Bottom, Reference, HeapBlock, Drop, Widen, Join, Cast are all
		// unsupported per spec §4.8 and fall through to false ("unknown").
		return numerical.LinearExpr{}, false
	}
}

// TranslateFormula translates a boolean-valued Expression into a Formula
// (spec §4.8: "boolean connectives map one-to-one; comparisons map
// one-to-one"). An Expression this package can't translate (either because
// its own Kind is unsupported, or because one of its comparison operands
// is) becomes Unknown{}, never a guess.
func TranslateFormula(e *expr.Expression) Formula {
	if e == nil {
		return Unknown{}
	}
	switch e.Kind {
	case expr.KConstant:
		if e.ConstVal.Kind == expr.ConstInt {
			return BoolConst{Value: e.ConstVal.Int.Sign() != 0}
		}
		return Unknown{}
	case expr.KAnd:
		return And{Operands: []Formula{TranslateFormula(e.Left), TranslateFormula(e.Right)}}
	case expr.KOr:
		return Or{Operands: []Formula{TranslateFormula(e.Left), TranslateFormula(e.Right)}}
	case expr.KNot:
		return Not{Operand: TranslateFormula(e.Operand)}
	case expr.KEq, expr.KNe, expr.KLt, expr.KLe, expr.KGt, expr.KGe:
		return translateComparison(e)
	default:
		return Unknown{}
	}
}

func translateComparison(e *expr.Expression) Formula {
	lhs, lok := TranslateTerm(e.Left)
	rhs, rok := TranslateTerm(e.Right)
	if !lok || !rok {
		return Unknown{}
	}
	op := relOpOf(e.Kind)
	return Lit{Constraint: numerical.Constraint(lhs, op, rhs)}
}

func relOpOf(k expr.Kind) numerical.RelOp {
	switch k {
	case expr.KEq:
		return numerical.RelEq
	case expr.KNe:
		return numerical.RelNe
	case expr.KLt:
		return numerical.RelLt
	case expr.KLe:
		return numerical.RelLe
	case expr.KGt:
		return numerical.RelGt
	default:
		return numerical.RelGe
	}
}

// NegateExpr builds ¬e as a Formula directly (used by the checker to query
// "expected = false" without round-tripping through expr.LogicalNot, which
// applies simplification laws this package doesn't need).
func NegateExpr(e *expr.Expression) Formula {
	return Not{Operand: TranslateFormula(e)}
}

// LatticeAtoms reads every tracked dimension's current interval out of a
// numerical.State and returns the conjunction of its bound constraints
// (spec §4.7 step 1: "feed every constraint from the current numerical
// lattice into the solver"). Cross-dimension relations the octagon domain
// tracks internally aren't separately exposed (see internal/numerical's own
// simplified-octagon note); per-dimension bounds are what Dims/GetInterval
// can give us, which is what's fed in here.
func LatticeAtoms(s numerical.State) []numerical.LinearConstraint {
	var atoms []numerical.LinearConstraint
	for _, dim := range s.Dims() {
		iv := s.GetInterval(dim)
		if iv.Bottom {
			atoms = append(atoms, numerical.Constraint(numerical.ConstExpr(big.NewInt(1)), numerical.RelEq, numerical.ConstExpr(big.NewInt(0))))
			continue
		}
		if !iv.LoInf {
			atoms = append(atoms, numerical.Constraint(numerical.Term(dim), numerical.RelGe, numerical.ConstExpr(iv.Lo)))
		}
		if !iv.HiInf {
			atoms = append(atoms, numerical.Constraint(numerical.Term(dim), numerical.RelLe, numerical.ConstExpr(iv.Hi)))
		}
	}
	return atoms
}
