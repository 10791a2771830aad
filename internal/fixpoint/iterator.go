// Package fixpoint drives the WTO-guided chaotic iteration strategy (C7,
// spec §3.4/§4.1): a widening at every loop head, descending narrowing
// iterations afterward, and a recursion guard for inter-procedural calls.
// The outer "repeat while changed" shape mirrors the reaching-definitions
// worklist in other_examples/77767e38_godoctor-godoctor__extras-cfg-df.go.go,
// scoped here per WTO component instead of globally over all blocks.
package fixpoint

import (
	"mir-checker/internal/domain"
	"mir-checker/internal/mir"
	"mir-checker/internal/wto"
)

// WideningDelay is the number of plain iterations around a loop head before
// widening kicks in (spec §4.1 "bounded number of non-widening passes").
const WideningDelay = 1

// NarrowingIterations bounds the descending phase so narrowing can't loop
// forever on a domain whose narrow operator isn't strictly decreasing.
const NarrowingIterations = 2

// Options overrides the widening/narrowing schedule (spec §6's
// `--widening_delay`/`--narrowing_iteration` CLI flags, surfaced through
// internal/config). DefaultOptions reproduces the package-level constants
// above so Run's existing behavior is unchanged.
type Options struct {
	WideningDelay       int
	NarrowingIterations int
}

func DefaultOptions() Options {
	return Options{WideningDelay: WideningDelay, NarrowingIterations: NarrowingIterations}
}

// Transfer computes the post-state of a single block given its pre-state.
// Supplied by C8 (statement/terminator transfer); kept as a function value
// here so fixpoint has no import-time dependency on that package.
type Transfer func(b *mir.Block, pre *domain.AbstractDomain) map[mir.BlockID]*domain.AbstractDomain

// ExitBlock is a reserved, never-real BlockID a Transfer uses to report the
// state of a block ending in Return: the state has to be the one *after*
// that block's own statements ran, which a Return terminator (having no
// outgoing edge) otherwise has no way to communicate back to the iterator.
const ExitBlock mir.BlockID = -1

// CallStack guards against unbounded inter-procedural recursion (spec §4.6):
// interproc.CallTransfer refuses to analyze a function already on the
// current call stack and returns the caller's state unchanged instead of
// looping forever.
type CallStack struct {
	active map[mir.FuncID]int
}

func NewCallStack() *CallStack { return &CallStack{active: map[mir.FuncID]int{}} }

// Enter reports whether fn may be entered (false if already on the stack
// past the allowed recursion bound) and, if so, returns a function to call
// on return.
func (c *CallStack) Enter(fn mir.FuncID, maxDepth int) (ok bool, leave func()) {
	if c.active[fn] >= maxDepth {
		return false, func() {}
	}
	c.active[fn]++
	return true, func() { c.active[fn]-- }
}

// Result holds the analyzed pre-state of every block in a function, the
// entry state's fixpoint, and the join of every Return terminator's state
// (the function's summarized result, for call transfer).
type Result struct {
	PreStates map[mir.BlockID]*domain.AbstractDomain
	Exit      *domain.AbstractDomain
}

// Run computes the fixpoint over fn's CFG starting from entryState, using
// transfer to propagate states across blocks and w as the WTO guiding
// widening/narrowing placement.
func Run(fn *mir.Function, w *wto.WTO, entryState *domain.AbstractDomain, transfer Transfer) *Result {
	return RunWithOptions(fn, w, entryState, transfer, DefaultOptions())
}

// RunWithOptions is Run with an explicit widening/narrowing schedule.
func RunWithOptions(fn *mir.Function, w *wto.WTO, entryState *domain.AbstractDomain, transfer Transfer, opts Options) *Result {
	r := &runner{
		fn:        fn,
		heads:     w.Heads(),
		transfer:  transfer,
		pre:       map[mir.BlockID]*domain.AbstractDomain{},
		iterCount: map[mir.BlockID]int{},
		exit:      entryState, // placeholder, reassigned as Return blocks are seen
		opts:      opts,
	}
	r.exitSeen = false
	r.pre[fn.Entry] = entryState
	r.runSequence(w.Elements)
	if !r.exitSeen {
		r.exit = entryState.Clone()
		r.exit.SetBottom()
	}
	return &Result{PreStates: r.pre, Exit: r.exit}
}

type runner struct {
	fn        *mir.Function
	heads     map[mir.BlockID]bool
	transfer  Transfer
	pre       map[mir.BlockID]*domain.AbstractDomain
	iterCount map[mir.BlockID]int
	exit      *domain.AbstractDomain
	exitSeen  bool
	opts      Options
}

func (r *runner) stateAt(b mir.BlockID) *domain.AbstractDomain {
	if s, ok := r.pre[b]; ok {
		return s
	}
	return nil
}

// runSequence processes a straight-line WTO sequence (a slice of vertices
// and nested components) once, propagating post-states forward to whichever
// successor block owns the next pre-state slot.
func (r *runner) runSequence(els []wto.Element) {
	for _, e := range els {
		if e.IsComponent {
			r.runComponent(e)
		} else {
			r.runVertex(e.Vertex)
		}
	}
}

func (r *runner) runVertex(id mir.BlockID) {
	pre := r.stateAt(id)
	if pre == nil {
		return // unreachable (no predecessor has propagated a state yet)
	}
	b, ok := r.fn.Block(id)
	if !ok {
		return
	}
	r.propagate(b, pre)
}

func (r *runner) propagate(b *mir.Block, pre *domain.AbstractDomain) {
	posts := r.transfer(b, pre)
	if exitState, ok := posts[ExitBlock]; ok {
		if !r.exitSeen {
			r.exit = exitState.Clone()
			r.exitSeen = true
		} else {
			r.exit = domain.Join(r.exit, exitState)
		}
	}
	for target, post := range posts {
		if target == ExitBlock {
			continue
		}
		if existing, ok := r.pre[target]; ok {
			r.pre[target] = domain.Join(existing, post)
		} else {
			r.pre[target] = post
		}
	}
}

// runComponent runs the ascending (widening) then descending (narrowing)
// phases for one loop component (spec §4.1).
func (r *runner) runComponent(e wto.Element) {
	head := e.Head
	iters := 0
	for {
		pre := r.stateAt(head)
		if pre == nil {
			return
		}
		before := pre
		r.runVertex(head)
		r.runSequence(e.Body)

		after := r.stateAt(head)
		if after == nil {
			after = before
		}
		iters++
		if iters > r.opts.WideningDelay {
			widened := domain.Widen(before, after)
			r.pre[head] = widened
		}
		if domain.Leq(after, before) {
			break
		}
		if iters > 1000 {
			break // pathological input guard; widening should have converged well before this
		}
	}

	// Descending narrowing phase.
	for i := 0; i < r.opts.NarrowingIterations; i++ {
		before := r.stateAt(head)
		r.runVertex(head)
		r.runSequence(e.Body)
		after := r.stateAt(head)
		narrowed := domain.Narrow(before, after)
		r.pre[head] = narrowed
	}
}
