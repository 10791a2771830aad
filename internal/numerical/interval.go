package numerical

import "math/big"

// Interval is a single-dimension bound [Lo, Hi], with LoInf/HiInf marking an
// unbounded side. An interval with Bottom set represents the empty set
// (unreachable), distinct from [-inf, +inf] (Top, fully unconstrained).
type Interval struct {
	Lo, Hi       *big.Int
	LoInf, HiInf bool
	Bottom       bool
}

// TopInterval is the fully unconstrained interval.
func TopInterval() Interval { return Interval{LoInf: true, HiInf: true} }

// BottomInterval is the empty interval.
func BottomInterval() Interval { return Interval{Bottom: true} }

// Exact builds a single-point interval.
func Exact(n *big.Int) Interval {
	v := new(big.Int).Set(n)
	return Interval{Lo: v, Hi: new(big.Int).Set(v)}
}

// Range builds a bounded interval [lo, hi].
func Range(lo, hi *big.Int) Interval {
	return Interval{Lo: new(big.Int).Set(lo), Hi: new(big.Int).Set(hi)}
}

func (i Interval) IsBottom() bool { return i.Bottom }
func (i Interval) IsTop() bool    { return !i.Bottom && i.LoInf && i.HiInf }

// IsExact reports whether the interval denotes a single concrete value.
func (i Interval) IsExact() bool {
	return !i.Bottom && !i.LoInf && !i.HiInf && i.Lo.Cmp(i.Hi) == 0
}

func (i Interval) Leq(o Interval) bool {
	if i.Bottom {
		return true
	}
	if o.Bottom {
		return false
	}
	if !o.LoInf && (i.LoInf || i.Lo.Cmp(o.Lo) < 0) {
		return false
	}
	if !o.HiInf && (i.HiInf || i.Hi.Cmp(o.Hi) > 0) {
		return false
	}
	return true
}

// Join is the convex hull (widest of both bounds).
func (i Interval) Join(o Interval) Interval {
	if i.Bottom {
		return o
	}
	if o.Bottom {
		return i
	}
	out := Interval{}
	if i.LoInf || o.LoInf {
		out.LoInf = true
	} else if i.Lo.Cmp(o.Lo) <= 0 {
		out.Lo = i.Lo
	} else {
		out.Lo = o.Lo
	}
	if i.HiInf || o.HiInf {
		out.HiInf = true
	} else if i.Hi.Cmp(o.Hi) >= 0 {
		out.Hi = i.Hi
	} else {
		out.Hi = o.Hi
	}
	return out
}

// Meet is the intersection.
func (i Interval) Meet(o Interval) Interval {
	if i.Bottom || o.Bottom {
		return BottomInterval()
	}
	out := Interval{}
	if i.LoInf {
		out.LoInf = o.LoInf
		out.Lo = o.Lo
	} else if o.LoInf || i.Lo.Cmp(o.Lo) >= 0 {
		out.Lo = i.Lo
	} else {
		out.Lo = o.Lo
	}
	if i.HiInf {
		out.HiInf = o.HiInf
		out.Hi = o.Hi
	} else if o.HiInf || i.Hi.Cmp(o.Hi) <= 0 {
		out.Hi = i.Hi
	} else {
		out.Hi = o.Hi
	}
	if !out.LoInf && !out.HiInf && out.Lo.Cmp(out.Hi) > 0 {
		return BottomInterval()
	}
	return out
}

// Widen is the classic interval widening: a bound that grew is snapped to
// infinity (spec §4.4 "no staircase refinement").
func (i Interval) Widen(o Interval) Interval {
	if i.Bottom {
		return o
	}
	if o.Bottom {
		return i
	}
	out := Interval{}
	if i.LoInf || o.LoInf || o.Lo.Cmp(i.Lo) < 0 {
		out.LoInf = true
	} else {
		out.Lo = i.Lo
	}
	if i.HiInf || o.HiInf || o.Hi.Cmp(i.Hi) > 0 {
		out.HiInf = true
	} else {
		out.Hi = i.Hi
	}
	return out
}

// Narrow tightens an infinite bound toward the newer, more precise value
// (spec §4.4: for non-octagon domains narrowing falls back to meet, but the
// interval domain genuinely narrows an infinite bound).
func (i Interval) Narrow(o Interval) Interval {
	if i.Bottom || o.Bottom {
		return BottomInterval()
	}
	out := i
	if i.LoInf && !o.LoInf {
		out.LoInf = false
		out.Lo = o.Lo
	}
	if i.HiInf && !o.HiInf {
		out.HiInf = false
		out.Hi = o.Hi
	}
	return out
}

func (i Interval) Add(o Interval) Interval {
	if i.Bottom || o.Bottom {
		return BottomInterval()
	}
	out := Interval{}
	if i.LoInf || o.LoInf {
		out.LoInf = true
	} else {
		out.Lo = new(big.Int).Add(i.Lo, o.Lo)
	}
	if i.HiInf || o.HiInf {
		out.HiInf = true
	} else {
		out.Hi = new(big.Int).Add(i.Hi, o.Hi)
	}
	return out
}

func (i Interval) Neg() Interval {
	if i.Bottom {
		return i
	}
	out := Interval{LoInf: i.HiInf, HiInf: i.LoInf}
	if !i.HiInf {
		out.Lo = new(big.Int).Neg(i.Hi)
	}
	if !i.LoInf {
		out.Hi = new(big.Int).Neg(i.Lo)
	}
	return out
}

func (i Interval) Sub(o Interval) Interval { return i.Add(o.Neg()) }

// Mul computes the interval product by taking the extremes of the four
// corner products; unbounded operands propagate Top unless the other side
// is the exact value 0.
func (i Interval) Mul(o Interval) Interval {
	if i.Bottom || o.Bottom {
		return BottomInterval()
	}
	if i.IsExact() && i.Lo.Sign() == 0 {
		return Exact(big.NewInt(0))
	}
	if o.IsExact() && o.Lo.Sign() == 0 {
		return Exact(big.NewInt(0))
	}
	if i.LoInf || i.HiInf || o.LoInf || o.HiInf {
		return TopInterval()
	}
	corners := []*big.Int{
		new(big.Int).Mul(i.Lo, o.Lo),
		new(big.Int).Mul(i.Lo, o.Hi),
		new(big.Int).Mul(i.Hi, o.Lo),
		new(big.Int).Mul(i.Hi, o.Hi),
	}
	lo, hi := corners[0], corners[0]
	for _, c := range corners[1:] {
		if c.Cmp(lo) < 0 {
			lo = c
		}
		if c.Cmp(hi) > 0 {
			hi = c
		}
	}
	return Range(lo, hi)
}

// Div computes interval division; dividing by an interval that may contain
// zero yields Top (the division-by-zero case itself is flagged separately
// by the assertion checker, spec §8 scenario 1).
func (i Interval) Div(o Interval) Interval {
	if i.Bottom || o.Bottom {
		return BottomInterval()
	}
	if o.Contains(big.NewInt(0)) || o.LoInf || o.HiInf || i.LoInf || i.HiInf {
		return TopInterval()
	}
	corners := []*big.Int{
		new(big.Int).Quo(i.Lo, o.Lo),
		new(big.Int).Quo(i.Lo, o.Hi),
		new(big.Int).Quo(i.Hi, o.Lo),
		new(big.Int).Quo(i.Hi, o.Hi),
	}
	lo, hi := corners[0], corners[0]
	for _, c := range corners[1:] {
		if c.Cmp(lo) < 0 {
			lo = c
		}
		if c.Cmp(hi) > 0 {
			hi = c
		}
	}
	return Range(lo, hi)
}

func (i Interval) Contains(v *big.Int) bool {
	if i.Bottom {
		return false
	}
	if !i.LoInf && v.Cmp(i.Lo) < 0 {
		return false
	}
	if !i.HiInf && v.Cmp(i.Hi) > 0 {
		return false
	}
	return true
}

func (i Interval) String() string {
	if i.Bottom {
		return "⊥"
	}
	lo := "-inf"
	if !i.LoInf {
		lo = i.Lo.String()
	}
	hi := "+inf"
	if !i.HiInf {
		hi = i.Hi.String()
	}
	return "[" + lo + ", " + hi + "]"
}
