package numerical

import "math/big"

// BoxState is the non-relational interval domain: each dimension is bounded
// independently. It is the default backend (spec §3.3's baseline numerical
// domain) and the fallback every OctagonState projects onto for the
// operations that don't need relational precision.
type BoxState struct {
	bottom bool
	bounds map[string]Interval
}

// TopBox returns the box state with no dimensions (vacuously top: every
// dimension not present is implicitly Top when queried).
func TopBox() *BoxState { return &BoxState{bounds: map[string]Interval{}} }

// BottomBox returns the unreachable box state.
func BottomBox() *BoxState { return &BoxState{bottom: true, bounds: map[string]Interval{}} }

func (s *BoxState) Kind() Kind     { return KindInterval }
func (s *BoxState) IsBottom() bool { return s.bottom }
func (s *BoxState) IsTop() bool    { return !s.bottom && len(s.bounds) == 0 }

func (s *BoxState) Dims() []string {
	out := make([]string, 0, len(s.bounds))
	for d := range s.bounds {
		out = append(out, d)
	}
	return out
}

func (s *BoxState) GetInterval(dim string) Interval {
	if s.bottom {
		return BottomInterval()
	}
	if iv, ok := s.bounds[dim]; ok {
		return iv
	}
	return TopInterval()
}

func (s *BoxState) clone() *BoxState {
	out := &BoxState{bottom: s.bottom, bounds: make(map[string]Interval, len(s.bounds))}
	for d, iv := range s.bounds {
		out.bounds[d] = iv
	}
	return out
}

func (s *BoxState) set(dim string, iv Interval) *BoxState {
	out := s.clone()
	if iv.IsBottom() {
		out.bottom = true
		return out
	}
	if iv.IsTop() {
		delete(out.bounds, dim)
		return out
	}
	out.bounds[dim] = iv
	return out
}

func asBox(o State) *BoxState {
	if b, ok := o.(*BoxState); ok {
		return b
	}
	if oct, ok := o.(*OctagonState); ok {
		return oct.box
	}
	panic("numerical: mismatched State implementation")
}

func (s *BoxState) Leq(o State) bool {
	ob := asBox(o)
	if s.bottom {
		return true
	}
	if ob.bottom {
		return false
	}
	for _, d := range align(s.bounds, ob.bounds) {
		if !s.GetInterval(d).Leq(ob.GetInterval(d)) {
			return false
		}
	}
	return true
}

func (s *BoxState) pointwise(o State, f func(x, y Interval) Interval) *BoxState {
	ob := asBox(o)
	if s.bottom && ob.bottom {
		return BottomBox()
	}
	out := TopBox()
	for _, d := range align(s.bounds, ob.bounds) {
		iv := f(s.GetInterval(d), ob.GetInterval(d))
		if !iv.IsTop() {
			out.bounds[d] = iv
		}
		if iv.IsBottom() {
			out.bottom = true
		}
	}
	return out
}

func (s *BoxState) Join(o State) State {
	ob := asBox(o)
	if s.bottom {
		return ob.clone()
	}
	if ob.bottom {
		return s.clone()
	}
	return s.pointwise(o, Interval.Join)
}

func (s *BoxState) Meet(o State) State {
	ob := asBox(o)
	if s.bottom || ob.bottom {
		return BottomBox()
	}
	return s.pointwise(o, Interval.Meet)
}

func (s *BoxState) Widen(o State) State {
	ob := asBox(o)
	if s.bottom {
		return ob.clone()
	}
	if ob.bottom {
		return s.clone()
	}
	return s.pointwise(o, Interval.Widen)
}

func (s *BoxState) Narrow(o State) State {
	ob := asBox(o)
	if s.bottom || ob.bottom {
		return BottomBox()
	}
	return s.pointwise(o, Interval.Narrow)
}

func (s *BoxState) AssignInt(dim string, v *big.Int) State {
	return s.set(dim, Exact(v))
}

func (s *BoxState) AssignVar(dst, src string) State {
	return s.set(dst, s.GetInterval(src))
}

func (s *BoxState) ApplyArith(dst string, op ArithOp, left, right Operand) State {
	l, r := left.interval(s), right.interval(s)
	var res Interval
	switch op {
	case ArithAdd:
		res = l.Add(r)
	case ArithSub:
		res = l.Sub(r)
	case ArithMul:
		res = l.Mul(r)
	case ArithDiv:
		res = l.Div(r)
	case ArithRem:
		// Remainder bounds: if the divisor is a bounded nonzero interval, the
		// result is bounded by its absolute magnitude; otherwise Top.
		if r.IsExact() && r.Lo.Sign() != 0 {
			mag := new(big.Int).Abs(r.Lo)
			bound := new(big.Int).Sub(mag, big.NewInt(1))
			res = Range(new(big.Int).Neg(bound), bound)
		} else {
			res = TopInterval()
		}
	}
	return s.set(dst, res)
}

func (s *BoxState) ApplyNeg(dst, src string) State {
	return s.set(dst, s.GetInterval(src).Neg())
}

func (s *BoxState) Forget(dim string) State {
	out := s.clone()
	delete(out.bounds, dim)
	return out
}

func (s *BoxState) Rename(oldDim, newDim string) State {
	out := s.clone()
	if iv, ok := out.bounds[oldDim]; ok {
		delete(out.bounds, oldDim)
		out.bounds[newDim] = iv
	}
	return out
}

func (s *BoxState) Duplicate(src, dst string) State {
	return s.set(dst, s.GetInterval(src))
}

func (s *BoxState) AddConstraints(cs ConstraintSystem) State {
	out := s.clone()
	for _, c := range cs.Constraints {
		dims := c.Expr.Dims()
		if len(dims) != 1 {
			continue // relational constraints need the octagon backend
		}
		d := dims[0]
		coeff := c.Expr.Terms[d]
		if coeff.CmpAbs(big.NewInt(1)) != 0 {
			continue // only unit coefficients refine precisely; others are left alone
		}
		// c.Expr encodes coeff*d + const Op 0  =>  d Op (-const/coeff), with
		// Op reversed when coeff is -1.
		bound := new(big.Int).Neg(c.Expr.Const)
		op := c.Op
		if coeff.Cmp(big.NewInt(-1)) == 0 {
			bound.Neg(bound)
			switch op {
			case RelLe:
				op = RelGe
			case RelLt:
				op = RelGt
			case RelGe:
				op = RelLe
			case RelGt:
				op = RelLt
			}
		}
		cur := out.GetInterval(d)
		var refined Interval
		switch op {
		case RelLe:
			refined = cur.Meet(Interval{LoInf: true, Hi: bound})
		case RelLt:
			refined = cur.Meet(Interval{LoInf: true, Hi: new(big.Int).Sub(bound, big.NewInt(1))})
		case RelGe:
			refined = cur.Meet(Interval{Lo: bound, HiInf: true})
		case RelGt:
			refined = cur.Meet(Interval{Lo: new(big.Int).Add(bound, big.NewInt(1)), HiInf: true})
		case RelEq:
			refined = cur.Meet(Exact(bound))
		default:
			refined = cur
		}
		if refined.IsBottom() {
			out.bottom = true
			return out
		}
		if refined.IsTop() {
			delete(out.bounds, d)
		} else {
			out.bounds[d] = refined
		}
	}
	return out
}
