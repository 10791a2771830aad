package numerical

import (
	"math/big"
	"sort"
	"strings"
)

// RelOp is the comparator of a linear constraint.
type RelOp int

const (
	RelLe RelOp = iota
	RelLt
	RelGe
	RelGt
	RelEq
	RelNe
)

// LinearExpr is a sum of dimension*coefficient terms plus a constant,
// dimensions keyed by the same dimension key used by State (spec §4.4's
// "linear constraint system" operated on by add_constraints).
type LinearExpr struct {
	Terms map[string]*big.Int
	Const *big.Int
}

// NewLinearExpr builds the zero expression.
func NewLinearExpr() LinearExpr {
	return LinearExpr{Terms: map[string]*big.Int{}, Const: big.NewInt(0)}
}

// Term returns a single-variable expression dim*1.
func Term(dim string) LinearExpr {
	e := NewLinearExpr()
	e.Terms[dim] = big.NewInt(1)
	return e
}

// ConstExpr returns a constant-only expression.
func ConstExpr(v *big.Int) LinearExpr {
	e := NewLinearExpr()
	e.Const = new(big.Int).Set(v)
	return e
}

func (e LinearExpr) clone() LinearExpr {
	out := NewLinearExpr()
	out.Const.Set(e.Const)
	for k, v := range e.Terms {
		out.Terms[k] = new(big.Int).Set(v)
	}
	return out
}

// Scale multiplies every coefficient and the constant by k.
func (e LinearExpr) Scale(k *big.Int) LinearExpr {
	out := e.clone()
	out.Const.Mul(out.Const, k)
	for d, c := range out.Terms {
		out.Terms[d] = new(big.Int).Mul(c, k)
	}
	return out
}

// Add returns e + o, merging terms.
func (e LinearExpr) Add(o LinearExpr) LinearExpr {
	out := e.clone()
	out.Const.Add(out.Const, o.Const)
	for d, c := range o.Terms {
		if cur, ok := out.Terms[d]; ok {
			out.Terms[d] = new(big.Int).Add(cur, c)
		} else {
			out.Terms[d] = new(big.Int).Set(c)
		}
	}
	return out
}

// Sub returns e - o.
func (e LinearExpr) Sub(o LinearExpr) LinearExpr {
	return e.Add(o.Scale(big.NewInt(-1)))
}

// Dims returns the sorted set of dimension keys with nonzero coefficients.
func (e LinearExpr) Dims() []string {
	out := make([]string, 0, len(e.Terms))
	for d, c := range e.Terms {
		if c.Sign() != 0 {
			out = append(out, d)
		}
	}
	sort.Strings(out)
	return out
}

func (e LinearExpr) String() string {
	var b strings.Builder
	dims := e.Dims()
	if len(dims) == 0 {
		return e.Const.String()
	}
	for i, d := range dims {
		c := e.Terms[d]
		if i > 0 {
			b.WriteString(" + ")
		}
		b.WriteString(c.String())
		b.WriteString("*")
		b.WriteString(d)
	}
	if e.Const.Sign() != 0 {
		b.WriteString(" + ")
		b.WriteString(e.Const.String())
	}
	return b.String()
}

// LinearConstraint is `Expr Op 0`.
type LinearConstraint struct {
	Expr LinearExpr
	Op   RelOp
}

// Constraint builds `lhs Op rhs` normalized to `(lhs - rhs) Op 0`.
func Constraint(lhs LinearExpr, op RelOp, rhs LinearExpr) LinearConstraint {
	return LinearConstraint{Expr: lhs.Sub(rhs), Op: op}
}

// ConstraintSystem is a conjunction of linear constraints.
type ConstraintSystem struct {
	Constraints []LinearConstraint
}

// And appends c to the system.
func (s ConstraintSystem) And(c LinearConstraint) ConstraintSystem {
	out := ConstraintSystem{Constraints: make([]LinearConstraint, len(s.Constraints)+1)}
	copy(out.Constraints, s.Constraints)
	out.Constraints[len(s.Constraints)] = c
	return out
}

// IsUnsatByIntervalTrivially checks each single-dimension constraint against
// dim bounds and reports true if any is trivially false — an inexpensive
// pre-filter used before invoking the SMT bridge (spec §4.8).
func (s ConstraintSystem) IsUnsatByIntervalTrivially(bounds map[string]Interval) bool {
	for _, c := range s.Constraints {
		dims := c.Expr.Dims()
		if len(dims) != 1 {
			continue
		}
		d := dims[0]
		coeff := c.Expr.Terms[d]
		if coeff.Cmp(big.NewInt(1)) != 0 {
			continue
		}
		b, ok := bounds[d]
		if !ok || b.LoInf || b.HiInf {
			continue
		}
		lo := new(big.Int).Add(b.Lo, c.Expr.Const)
		hi := new(big.Int).Add(b.Hi, c.Expr.Const)
		switch c.Op {
		case RelLe:
			if lo.Sign() > 0 {
				return true
			}
		case RelLt:
			if lo.Sign() >= 0 {
				return true
			}
		case RelGe:
			if hi.Sign() < 0 {
				return true
			}
		case RelGt:
			if hi.Sign() <= 0 {
				return true
			}
		case RelEq:
			if lo.Sign() > 0 || hi.Sign() < 0 {
				return true
			}
		}
	}
	return false
}
