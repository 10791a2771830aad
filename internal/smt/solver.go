package smt

import (
	"math/big"
	"sort"

	"mir-checker/internal/numerical"
)

// Result is the three-valued SMT verdict spec §4.7 classifies assertions
// from.
type Result int

const (
	Unsat Result = iota
	Sat
	ResultUnknown
)

func (r Result) String() string {
	switch r {
	case Sat:
		return "sat"
	case Unsat:
		return "unsat"
	default:
		return "unknown"
	}
}

// maxDNFClauses and maxAtoms bound the work Decide will do before giving up
// and returning ResultUnknown — this decision procedure has no real
// solver's incremental search, so a hard cap is how it stands in for the
// "fixed timeout (default 100ms)" spec §4.8 describes; Context.Query adds a
// wall-clock backstop on top of this.
const (
	maxDNFClauses = 64
	maxAtoms      = 48
)

// Decide reports whether the conjunction of atoms (typically LatticeAtoms,
// spec §4.7 step 1) together with f is satisfiable.
func Decide(atoms []numerical.LinearConstraint, f Formula) Result {
	clauses, ok := toDNF(f)
	if !ok {
		return ResultUnknown
	}
	if len(clauses) == 0 {
		return Unsat // f itself is the false formula
	}
	sawUnknown := false
	for _, clause := range clauses {
		full := make([]numerical.LinearConstraint, 0, len(atoms)+len(clause))
		full = append(full, atoms...)
		full = append(full, clause...)
		switch solveConjunction(full) {
		case Sat:
			return Sat
		case ResultUnknown:
			sawUnknown = true
		}
	}
	if sawUnknown {
		return ResultUnknown
	}
	return Unsat
}

// --- Formula -> DNF -------------------------------------------------------

func toDNF(f Formula) ([][]numerical.LinearConstraint, bool) {
	return dnf(nnf(f))
}

// nnf pushes every Not down to the literals, leaving a Not-free tree of
// And/Or/Lit/BoolConst/Unknown.
func nnf(f Formula) Formula {
	switch v := f.(type) {
	case Lit, BoolConst, Unknown:
		return v
	case And:
		ops := make([]Formula, len(v.Operands))
		for i, o := range v.Operands {
			ops[i] = nnf(o)
		}
		return And{Operands: ops}
	case Or:
		ops := make([]Formula, len(v.Operands))
		for i, o := range v.Operands {
			ops[i] = nnf(o)
		}
		return Or{Operands: ops}
	case Not:
		return nnfNot(v.Operand)
	default:
		return Unknown{}
	}
}

func nnfNot(f Formula) Formula {
	switch v := f.(type) {
	case Unknown:
		return Unknown{}
	case BoolConst:
		return BoolConst{Value: !v.Value}
	case Lit:
		return Lit{Constraint: negateConstraint(v.Constraint)}
	case Not:
		return nnf(v.Operand)
	case And:
		ops := make([]Formula, len(v.Operands))
		for i, o := range v.Operands {
			ops[i] = nnfNot(o)
		}
		return Or{Operands: ops}
	case Or:
		ops := make([]Formula, len(v.Operands))
		for i, o := range v.Operands {
			ops[i] = nnfNot(o)
		}
		return And{Operands: ops}
	default:
		return Unknown{}
	}
}

func negateConstraint(c numerical.LinearConstraint) numerical.LinearConstraint {
	switch c.Op {
	case numerical.RelLe:
		return numerical.LinearConstraint{Expr: c.Expr, Op: numerical.RelGt}
	case numerical.RelLt:
		return numerical.LinearConstraint{Expr: c.Expr, Op: numerical.RelGe}
	case numerical.RelGe:
		return numerical.LinearConstraint{Expr: c.Expr, Op: numerical.RelLt}
	case numerical.RelGt:
		return numerical.LinearConstraint{Expr: c.Expr, Op: numerical.RelLe}
	case numerical.RelEq:
		return numerical.LinearConstraint{Expr: c.Expr, Op: numerical.RelNe}
	default: // RelNe
		return numerical.LinearConstraint{Expr: c.Expr, Op: numerical.RelEq}
	}
}

// dnf expands a Not-free formula into a list of conjunctive clauses (an OR
// of ANDs of atoms). Returns ok=false if it ever meets Unknown, or if
// expansion would exceed maxDNFClauses (both treated as "can't decide").
func dnf(f Formula) ([][]numerical.LinearConstraint, bool) {
	switch v := f.(type) {
	case Unknown:
		return nil, false
	case BoolConst:
		if v.Value {
			return [][]numerical.LinearConstraint{{}}, true
		}
		return [][]numerical.LinearConstraint{}, true
	case Lit:
		return [][]numerical.LinearConstraint{{v.Constraint}}, true
	case And:
		clauses := [][]numerical.LinearConstraint{{}}
		for _, o := range v.Operands {
			sub, ok := dnf(o)
			if !ok {
				return nil, false
			}
			clauses = crossProduct(clauses, sub)
			if len(clauses) == 0 {
				return clauses, true
			}
			if len(clauses) > maxDNFClauses {
				return nil, false
			}
		}
		return clauses, true
	case Or:
		var all [][]numerical.LinearConstraint
		for _, o := range v.Operands {
			sub, ok := dnf(o)
			if !ok {
				return nil, false
			}
			all = append(all, sub...)
			if len(all) > maxDNFClauses {
				return nil, false
			}
		}
		return all, true
	default:
		return nil, false
	}
}

func crossProduct(a, b [][]numerical.LinearConstraint) [][]numerical.LinearConstraint {
	if len(a) == 0 || len(b) == 0 {
		return nil
	}
	out := make([][]numerical.LinearConstraint, 0, len(a)*len(b))
	for _, ca := range a {
		for _, cb := range b {
			merged := make([]numerical.LinearConstraint, 0, len(ca)+len(cb))
			merged = append(merged, ca...)
			merged = append(merged, cb...)
			out = append(out, merged)
		}
	}
	return out
}

// --- conjunction feasibility (Fourier-Motzkin over the rationals) --------

// solveConjunction decides a conjunction of atoms, case-splitting on any
// RelNe atom (disequalities aren't directly expressible as a single FM
// inequality) before handing the rest to feasibleRational.
func solveConjunction(atoms []numerical.LinearConstraint) Result {
	if len(atoms) > maxAtoms {
		return ResultUnknown
	}
	for i, c := range atoms {
		if c.Op != numerical.RelNe {
			continue
		}
		rest := make([]numerical.LinearConstraint, 0, len(atoms)-1)
		rest = append(rest, atoms[:i]...)
		rest = append(rest, atoms[i+1:]...)

		lt := append(append([]numerical.LinearConstraint{}, rest...), numerical.LinearConstraint{Expr: c.Expr, Op: numerical.RelLt})
		ltRes := solveConjunction(lt)
		if ltRes == Sat {
			return Sat
		}
		gt := append(append([]numerical.LinearConstraint{}, rest...), numerical.LinearConstraint{Expr: c.Expr, Op: numerical.RelGt})
		gtRes := solveConjunction(gt)
		if gtRes == Sat {
			return Sat
		}
		if ltRes == ResultUnknown || gtRes == ResultUnknown {
			return ResultUnknown
		}
		return Unsat
	}
	return feasibleRational(atoms)
}

type ratAtom struct {
	coeffs map[string]*big.Rat
	c      *big.Rat
	strict bool // true: coeffs·x + c < 0 ; false: coeffs·x + c <= 0
}

// feasibleRational decides real-arithmetic feasibility of a conjunction of
// <=/</== atoms by Fourier-Motzkin elimination. Sound for UNSAT (no real
// solution implies no integer one); not complete for SAT, since a real
// solution needn't be an integer one — the caller (checker, C10) only
// trusts Unsat verdicts from this path, so that gap never produces a wrong
// classification, only a more conservative one (documented in DESIGN.md).
func feasibleRational(atoms []numerical.LinearConstraint) Result {
	if len(atoms) > maxAtoms {
		return ResultUnknown
	}
	var rat []ratAtom
	for _, c := range atoms {
		sub, ok := toRatAtoms(c)
		if !ok {
			return ResultUnknown
		}
		rat = append(rat, sub...)
	}

	for _, v := range collectVars(rat) {
		var noV, pos, neg []ratAtom
		for _, a := range rat {
			coef, ok := a.coeffs[v]
			if !ok || coef.Sign() == 0 {
				noV = append(noV, a)
				continue
			}
			if coef.Sign() > 0 {
				pos = append(pos, a)
			} else {
				neg = append(neg, a)
			}
		}
		if len(pos)*len(neg) > maxAtoms {
			return ResultUnknown
		}
		combined := noV
		for _, p := range pos {
			for _, n := range neg {
				combined = append(combined, combineEliminate(p, n, v))
			}
		}
		rat = combined
		if len(rat) > maxAtoms*maxAtoms {
			return ResultUnknown
		}
	}

	for _, a := range rat {
		if a.strict {
			if a.c.Sign() >= 0 {
				return Unsat
			}
		} else if a.c.Sign() > 0 {
			return Unsat
		}
	}
	return Sat
}

func toRatAtoms(c numerical.LinearConstraint) ([]ratAtom, bool) {
	coeffs := toRatMap(c.Expr.Terms)
	cst := new(big.Rat).SetInt(c.Expr.Const)
	switch c.Op {
	case numerical.RelLe:
		return []ratAtom{{coeffs: coeffs, c: cst, strict: false}}, true
	case numerical.RelLt:
		return []ratAtom{{coeffs: coeffs, c: cst, strict: true}}, true
	case numerical.RelGe:
		return []ratAtom{{coeffs: negMap(coeffs), c: neg(cst), strict: false}}, true
	case numerical.RelGt:
		return []ratAtom{{coeffs: negMap(coeffs), c: neg(cst), strict: true}}, true
	case numerical.RelEq:
		return []ratAtom{
			{coeffs: coeffs, c: cst, strict: false},
			{coeffs: negMap(coeffs), c: neg(cst), strict: false},
		}, true
	default: // RelNe never reaches here; solveConjunction splits it first
		return nil, false
	}
}

func toRatMap(terms map[string]*big.Int) map[string]*big.Rat {
	out := make(map[string]*big.Rat, len(terms))
	for k, v := range terms {
		out[k] = new(big.Rat).SetInt(v)
	}
	return out
}

func negMap(m map[string]*big.Rat) map[string]*big.Rat {
	out := make(map[string]*big.Rat, len(m))
	for k, v := range m {
		out[k] = new(big.Rat).Neg(v)
	}
	return out
}

func neg(r *big.Rat) *big.Rat { return new(big.Rat).Neg(r) }

func collectVars(atoms []ratAtom) []string {
	set := map[string]bool{}
	for _, a := range atoms {
		for k, c := range a.coeffs {
			if c.Sign() != 0 {
				set[k] = true
			}
		}
	}
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func combineEliminate(p, n ratAtom, v string) ratAtom {
	coefP := p.coeffs[v]
	coefN := n.coeffs[v]
	negCoefN := new(big.Rat).Neg(coefN) // positive, since coefN < 0

	out := ratAtom{coeffs: map[string]*big.Rat{}, c: new(big.Rat), strict: p.strict || n.strict}
	for k, c := range p.coeffs {
		if k == v {
			continue
		}
		addInto(out.coeffs, k, new(big.Rat).Mul(negCoefN, c))
	}
	for k, c := range n.coeffs {
		if k == v {
			continue
		}
		addInto(out.coeffs, k, new(big.Rat).Mul(coefP, c))
	}
	t1 := new(big.Rat).Mul(negCoefN, p.c)
	t2 := new(big.Rat).Mul(coefP, n.c)
	out.c.Add(t1, t2)
	return out
}

func addInto(m map[string]*big.Rat, k string, v *big.Rat) {
	if cur, ok := m[k]; ok {
		cur.Add(cur, v)
	} else {
		m[k] = v
	}
}
