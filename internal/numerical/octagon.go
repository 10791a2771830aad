package numerical

import "math/big"

// diffKey orders a pair of dimensions so (a,b) and (b,a) share one entry; the
// stored interval bounds a-b (not b-a) and sign tracks which way round the
// original pair was.
type diffKey struct {
	lo, hi string
}

func pairKey(a, b string) (diffKey, bool) {
	if a == b {
		return diffKey{}, false
	}
	if a < b {
		return diffKey{a, b}, false
	}
	return diffKey{b, a}, true
}

// OctagonState extends BoxState with a sparse set of tracked pairwise
// difference bounds (dim_a - dim_b ∈ Interval), giving relational precision
// between dimensions the caller has explicitly related (e.g. via a
// comparison in a branch condition) without implementing a full
// difference-bound-matrix closure. This is a deliberately simplified stand-in
// for an octagon abstract domain (see DESIGN.md) — good enough to preserve
// relational facts created by straight-line comparisons and conditionals,
// without claiming complete octagon inference.
type OctagonState struct {
	box   *BoxState
	diffs map[diffKey]Interval
}

func TopOctagon() *OctagonState {
	return &OctagonState{box: TopBox(), diffs: map[diffKey]Interval{}}
}

func BottomOctagon() *OctagonState {
	return &OctagonState{box: BottomBox(), diffs: map[diffKey]Interval{}}
}

func (s *OctagonState) Kind() Kind     { return KindOctagon }
func (s *OctagonState) IsBottom() bool { return s.box.IsBottom() }
func (s *OctagonState) IsTop() bool    { return s.box.IsTop() && len(s.diffs) == 0 }
func (s *OctagonState) Dims() []string { return s.box.Dims() }

func (s *OctagonState) GetInterval(dim string) Interval { return s.box.GetInterval(dim) }

func (s *OctagonState) clone() *OctagonState {
	out := &OctagonState{box: s.box.clone(), diffs: make(map[diffKey]Interval, len(s.diffs))}
	for k, v := range s.diffs {
		out.diffs[k] = v
	}
	return out
}

// diffOf returns the tracked bound for a-b, deriving it from Top if
// untracked.
func (s *OctagonState) diffOf(a, b string) Interval {
	k, flipped := pairKey(a, b)
	iv, ok := s.diffs[k]
	if !ok {
		return TopInterval()
	}
	if flipped {
		return iv.Neg()
	}
	return iv
}

func (s *OctagonState) setDiff(a, b string, iv Interval) {
	k, flipped := pairKey(a, b)
	if flipped {
		iv = iv.Neg()
	}
	if iv.IsTop() {
		delete(s.diffs, k)
		return
	}
	s.diffs[k] = iv
}

func unionDiffDims(a, b map[diffKey]Interval) []diffKey {
	set := map[diffKey]bool{}
	for k := range a {
		set[k] = true
	}
	for k := range b {
		set[k] = true
	}
	out := make([]diffKey, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	return out
}

func asOctagon(o State) *OctagonState {
	if oct, ok := o.(*OctagonState); ok {
		return oct
	}
	// A plain BoxState is treated as an octagon with no tracked relations.
	return &OctagonState{box: asBox(o), diffs: map[diffKey]Interval{}}
}

func (s *OctagonState) diffPointwise(o *OctagonState, f func(x, y Interval) Interval) map[diffKey]Interval {
	out := map[diffKey]Interval{}
	for _, k := range unionDiffDims(s.diffs, o.diffs) {
		sv, ok1 := s.diffs[k]
		if !ok1 {
			sv = TopInterval()
		}
		ov, ok2 := o.diffs[k]
		if !ok2 {
			ov = TopInterval()
		}
		iv := f(sv, ov)
		if !iv.IsTop() {
			out[k] = iv
		}
	}
	return out
}

func (s *OctagonState) Leq(o State) bool {
	ob := asOctagon(o)
	if !s.box.Leq(ob.box) {
		return false
	}
	for k, ov := range ob.diffs {
		sv, ok := s.diffs[k]
		if !ok {
			sv = TopInterval()
		}
		if !sv.Leq(ov) {
			return false
		}
	}
	return true
}

func (s *OctagonState) Join(o State) State {
	ob := asOctagon(o)
	return &OctagonState{box: s.box.Join(ob.box).(*BoxState), diffs: s.diffPointwise(ob, Interval.Join)}
}

func (s *OctagonState) Meet(o State) State {
	ob := asOctagon(o)
	return &OctagonState{box: s.box.Meet(ob.box).(*BoxState), diffs: s.diffPointwise(ob, Interval.Meet)}
}

func (s *OctagonState) Widen(o State) State {
	ob := asOctagon(o)
	return &OctagonState{box: s.box.Widen(ob.box).(*BoxState), diffs: s.diffPointwise(ob, Interval.Widen)}
}

func (s *OctagonState) Narrow(o State) State {
	ob := asOctagon(o)
	return &OctagonState{box: s.box.Narrow(ob.box).(*BoxState), diffs: s.diffPointwise(ob, Interval.Narrow)}
}

func (s *OctagonState) AssignInt(dim string, v *big.Int) State {
	out := s.clone()
	out.box = out.box.AssignInt(dim, v).(*BoxState)
	out.dropRelations(dim)
	return out
}

func (s *OctagonState) AssignVar(dst, src string) State {
	out := s.clone()
	out.box = out.box.AssignVar(dst, src).(*BoxState)
	out.dropRelations(dst)
	out.setDiff(dst, src, Exact(big.NewInt(0)))
	return out
}

// ApplyArith updates only the box bound of dst and drops every relation
// involving dst. No relation is derived from the arithmetic, including for
// dst = left - right.
func (s *OctagonState) ApplyArith(dst string, op ArithOp, left, right Operand) State {
	out := s.clone()
	out.box = out.box.ApplyArith(dst, op, left, right).(*BoxState)
	out.dropRelations(dst)
	return out
}

func (s *OctagonState) ApplyNeg(dst, src string) State {
	out := s.clone()
	out.box = out.box.ApplyNeg(dst, src).(*BoxState)
	out.dropRelations(dst)
	return out
}

func (s *OctagonState) Forget(dim string) State {
	out := s.clone()
	out.box = out.box.Forget(dim).(*BoxState)
	out.dropRelations(dim)
	return out
}

func (s *OctagonState) Rename(oldDim, newDim string) State {
	out := s.clone()
	out.box = out.box.Rename(oldDim, newDim).(*BoxState)
	for k, v := range out.diffs {
		nk := k
		switch oldDim {
		case k.lo:
			nk.lo = newDim
		case k.hi:
			nk.hi = newDim
		default:
			continue
		}
		delete(out.diffs, k)
		fixed, flip := pairKey(nk.lo, nk.hi)
		if flip {
			v = v.Neg()
		}
		out.diffs[fixed] = v
	}
	return out
}

func (s *OctagonState) Duplicate(src, dst string) State {
	out := s.clone()
	out.box = out.box.Duplicate(src, dst).(*BoxState)
	out.setDiff(dst, src, Exact(big.NewInt(0)))
	return out
}

// AddConstraints refines the box via single-dimension constraints and, for a
// two-dimension constraint of the shape `dim_a - dim_b Op c`, refines the
// tracked relation directly.
func (s *OctagonState) AddConstraints(cs ConstraintSystem) State {
	out := s.clone()
	var single ConstraintSystem
	for _, c := range cs.Constraints {
		dims := c.Expr.Dims()
		if len(dims) == 2 {
			a, b := dims[0], dims[1]
			ca, cb := c.Expr.Terms[a], c.Expr.Terms[b]
			if ca.Cmp(big.NewInt(1)) == 0 && cb.Cmp(big.NewInt(-1)) == 0 {
				bound := new(big.Int).Neg(c.Expr.Const)
				cur := out.diffOf(a, b)
				var refined Interval
				switch c.Op {
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
					out.box.bottom = true
					return out
				}
				out.setDiff(a, b, refined)
				continue
			}
		}
		single.Constraints = append(single.Constraints, c)
	}
	out.box = out.box.AddConstraints(single).(*BoxState)
	return out
}

func (s *OctagonState) dropRelations(dim string) {
	for k := range s.diffs {
		if k.lo == dim || k.hi == dim {
			delete(s.diffs, k)
		}
	}
}
