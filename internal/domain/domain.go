// Package domain implements the hybrid abstract domain (C5, spec §3.4): the
// product of the symbolic store (C3) and the numerical lattice (C4). A path
// is tracked numerically when its bound value is expr.KNumerical — the
// symbolic store then holds only a forwarding marker and the real bound
// lives in the numerical State keyed by the path's hash.
package domain

import (
	"math/big"

	"mir-checker/internal/expr"
	"mir-checker/internal/numerical"
	"mir-checker/internal/path"
	"mir-checker/internal/symbolic"
)

// AbstractDomain is one dataflow fact: symbolic bindings for paths tracked
// symbolically, numerical bounds for paths tracked numerically, or Bottom
// for unreachable code.
type AbstractDomain struct {
	Symbolic  *symbolic.Store
	Numerical numerical.State
	isBottom  bool

	// Facts holds extra linear atoms proven true on entry to this program
	// point — typically a branch's discriminant condition (spec §4.1: "each
	// post first constrained by p's exit condition toward bb ... translated
	// into a linear constraint system and intersected with the numerical
	// half") for a condition the numerical lattice itself can't represent as
	// an interval (e.g. a disequality). It rides through Clone but is
	// dropped by Join/Meet/Widen/Narrow: once two edges merge there's no
	// single condition true on both sides, so carrying a fact past a merge
	// would apply it unsoundly to a path it never held on.
	Facts []numerical.LinearConstraint
}

// Top returns the fully unconstrained domain element.
func Top(mgr *numerical.Manager) *AbstractDomain {
	return &AbstractDomain{Symbolic: symbolic.New(), Numerical: mgr.Top()}
}

// Bottom returns the unreachable domain element.
func Bottom(mgr *numerical.Manager) *AbstractDomain {
	return &AbstractDomain{Symbolic: symbolic.New(), Numerical: mgr.Bottom(), isBottom: true}
}

// AddFact records c as an extra atom known true at this program point.
func (d *AbstractDomain) AddFact(c numerical.LinearConstraint) {
	facts := make([]numerical.LinearConstraint, len(d.Facts), len(d.Facts)+1)
	copy(facts, d.Facts)
	d.Facts = append(facts, c)
}

func (d *AbstractDomain) IsBottom() bool {
	return d.isBottom || d.Numerical.IsBottom()
}

// Clone deep-enough-copies a domain element for branch-local mutation.
func (d *AbstractDomain) Clone() *AbstractDomain {
	facts := make([]numerical.LinearConstraint, len(d.Facts))
	copy(facts, d.Facts)
	return &AbstractDomain{Symbolic: d.Symbolic.Clone(), Numerical: d.Numerical, isBottom: d.isBottom, Facts: facts}
}

// SetBottom marks this element unreachable in place (used when a transfer
// determines a branch condition can never hold, spec §4.6).
func (d *AbstractDomain) SetBottom() {
	d.isBottom = true
}

// Get returns the symbolic value bound to p; for a numerically tracked path
// this is the expr.KNumerical forwarding marker, not the bound itself — use
// Interval for that.
func (d *AbstractDomain) Get(p path.Path) (*expr.Expression, bool) {
	return d.Symbolic.Get(p)
}

// Interval returns the numerical bound tracked for p (Top if untracked).
func (d *AbstractDomain) Interval(p path.Path) numerical.Interval {
	return d.Numerical.GetInterval(p.Hash())
}

// BindSymbolic records p -> e in the symbolic half, clearing any numerical
// tracking for p (a path is tracked in exactly one half at a time).
func (d *AbstractDomain) BindSymbolic(p path.Path, e *expr.Expression) {
	d.Numerical = d.Numerical.Forget(p.Hash())
	d.Symbolic.Set(p, e)
}

// BindNumericalInt records p as numerically tracked with the exact value n.
func (d *AbstractDomain) BindNumericalInt(p path.Path, n int64) {
	d.Numerical = d.Numerical.AssignInt(p.Hash(), big.NewInt(n))
	d.Symbolic.Set(p, expr.Numerical(p))
}

// BindNumericalTop marks p numerically tracked with no known bound — used
// to seed an entry function's integer parameters (their caller is outside
// the program under analysis, so nothing constrains them yet) so a later
// guard can still narrow them via AddConstraints/AddFact.
func (d *AbstractDomain) BindNumericalTop(p path.Path) {
	d.Numerical = d.Numerical.Forget(p.Hash())
	d.Symbolic.Set(p, expr.Numerical(p))
}

// BindNumericalVar copies another numerically tracked path's bound into p.
func (d *AbstractDomain) BindNumericalVar(dst, src path.Path) {
	d.Numerical = d.Numerical.AssignVar(dst.Hash(), src.Hash())
	d.Symbolic.Set(dst, expr.Numerical(dst))
}

// BindNumericalArith evaluates op over left/right (each either a tracked
// path or a constant, expressed via numerical.Operand) and binds the result
// to dst numerically.
func (d *AbstractDomain) BindNumericalArith(dst path.Path, op numerical.ArithOp, left, right numerical.Operand) {
	d.Numerical = d.Numerical.ApplyArith(dst.Hash(), op, left, right)
	d.Symbolic.Set(dst, expr.Numerical(dst))
}

// BindNumericalNeg binds dst to the negation of src's numerical bound.
func (d *AbstractDomain) BindNumericalNeg(dst, src path.Path) {
	d.Numerical = d.Numerical.ApplyNeg(dst.Hash(), src.Hash())
	d.Symbolic.Set(dst, expr.Numerical(dst))
}

// AddConstraints refines the numerical half with cs (used by conditional
// branch transfer to narrow a path's bound along the taken edge, spec §4.6).
func (d *AbstractDomain) AddConstraints(cs numerical.ConstraintSystem) {
	d.Numerical = d.Numerical.AddConstraints(cs)
}

// NumDim exposes p's numerical dimension key, for callers building
// numerical.Operand/LinearExpr values (transfer, C8).
func NumDim(p path.Path) string { return p.Hash() }

// IsNumericallyTracked reports whether p currently resolves to the
// KNumerical forwarding marker.
func (d *AbstractDomain) IsNumericallyTracked(p path.Path) bool {
	v, ok := d.Symbolic.Get(p)
	return ok && v.Kind == expr.KNumerical
}

// Forget removes all knowledge of p from both halves (spec §4.3 dead
// variable cleanup, via StorageDead).
func (d *AbstractDomain) Forget(p path.Path) {
	d.Symbolic.Remove(p)
	d.Numerical = d.Numerical.Forget(p.Hash())
}

// Rename moves p's tracked state (either half) from oldP to newP, used by
// call transfer when binding a callee's parameters to the caller's argument
// paths (spec §4.6).
func (d *AbstractDomain) Rename(oldP, newP path.Path) {
	if v, ok := d.Symbolic.Get(oldP); ok {
		d.Symbolic.Remove(oldP)
		d.Symbolic.Set(newP, rebind(v, oldP, newP))
	}
	d.Numerical = d.Numerical.Rename(oldP.Hash(), newP.Hash())
}

// rebind re-homes a KNumerical or KVariable marker onto a new path after a
// rename; other expression kinds carry no path identity tied to oldP and
// pass through unchanged.
func rebind(v *expr.Expression, oldP, newP path.Path) *expr.Expression {
	switch v.Kind {
	case expr.KNumerical:
		return expr.Numerical(newP)
	case expr.KVariable:
		if p, ok := v.AsVariablePath(); ok && p.Equal(oldP) {
			return expr.Variable(newP, v.VarType)
		}
	}
	return v
}

// Join is the pointwise join of both halves; Bottom is the identity.
func Join(a, b *AbstractDomain) *AbstractDomain {
	if a.IsBottom() {
		return b.Clone()
	}
	if b.IsBottom() {
		return a.Clone()
	}
	return &AbstractDomain{
		Symbolic:  symbolic.Join(a.Symbolic, b.Symbolic),
		Numerical: a.Numerical.Join(b.Numerical),
	}
}

// Meet is the pointwise meet; per the documented symbolic asymmetry
// (internal/symbolic.Meet) the right operand's symbolic bindings win
// verbatim, while the numerical half meets normally.
func Meet(a, b *AbstractDomain) *AbstractDomain {
	if a.IsBottom() || b.IsBottom() {
		return &AbstractDomain{Symbolic: symbolic.New(), Numerical: a.Numerical.Meet(b.Numerical), isBottom: true}
	}
	return &AbstractDomain{
		Symbolic:  symbolic.Meet(a.Symbolic, b.Symbolic),
		Numerical: a.Numerical.Meet(b.Numerical),
	}
}

// Widen applies numerical widening and the symbolic fallback join (spec
// §4.4/§9: the symbolic half has no independent widening operator).
func Widen(a, b *AbstractDomain) *AbstractDomain {
	if a.IsBottom() {
		return b.Clone()
	}
	if b.IsBottom() {
		return a.Clone()
	}
	return &AbstractDomain{
		Symbolic:  symbolic.Widen(a.Symbolic, b.Symbolic),
		Numerical: a.Numerical.Widen(b.Numerical),
	}
}

// Narrow applies numerical narrowing and the symbolic fallback meet.
func Narrow(a, b *AbstractDomain) *AbstractDomain {
	if a.IsBottom() || b.IsBottom() {
		return &AbstractDomain{Symbolic: symbolic.New(), Numerical: a.Numerical.Narrow(b.Numerical), isBottom: true}
	}
	return &AbstractDomain{
		Symbolic:  symbolic.Narrow(a.Symbolic, b.Symbolic),
		Numerical: a.Numerical.Narrow(b.Numerical),
	}
}

// Leq reports a ⊑ b. Termination of the fixpoint iterator relies only on
// this check, and this check delegates entirely to the numerical half (spec
// §3.4/§4.1): the symbolic half's size is already bounded by
// expr.MaxExpressionSize collapsing, so it cannot drive non-termination on
// its own.
func Leq(a, b *AbstractDomain) bool {
	if a.IsBottom() {
		return true
	}
	if b.IsBottom() {
		return false
	}
	return a.Numerical.Leq(b.Numerical)
}
