// Package taint implements the taint tracker (C11, spec §4.6): a small set
// of MIR locals marked tainted when they receive the result of an
// ownership-transferring call or are copied from another tainted local.
// Dropping or returning a tainted local, and dropping the same heap block
// twice, are both memory-safety diagnostics.
package taint

import (
	"mir-checker/internal/expr"
	"mir-checker/internal/mir"
	"mir-checker/internal/path"
	"mir-checker/internal/transfer"
)

// Diagnostic is one taint/double-free finding. Always memory-safety (spec
// §3.7's is_memory_safety flag is implicitly true for everything this
// package reports).
type Diagnostic struct {
	Fn      mir.FuncID
	Block   mir.BlockID
	Span    mir.Span
	Message string
}

// Sink receives one Diagnostic per flagged Drop/Return site.
type Sink interface {
	Report(Diagnostic)
}

// Tracker implements transfer.TaintTracker: IsTainted/MarkTainted give the
// transfer function a running tainted-local set to propagate across
// assignments, and ObserveDrop runs the spec §4.6 checks at every
// Drop/Return terminator.
//
// Heap-block identity (the already-dropped set) is process-wide across the
// whole analysis run the Tracker is constructed for, not reset per
// function — matching spec §3.6's "injective per fixpoint run" heap id
// scheme, which mints the same id on every revisit of a loop-enclosed
// allocation site. A loop that legitimately allocates once but is visited
// by the fixpoint iterator multiple times will see the same heap id each
// time, which is the documented heap-in-loops precision loss (spec §3.6),
// not a bug in this tracker.
type Tracker struct {
	Sink Sink

	tainted map[string]bool
	dropped map[string]bool
}

var _ transfer.TaintTracker = (*Tracker)(nil)

// New builds an empty Tracker reporting to sink.
func New(sink Sink) *Tracker {
	return &Tracker{Sink: sink, tainted: map[string]bool{}, dropped: map[string]bool{}}
}

func (t *Tracker) IsTainted(p path.Path) bool { return t.tainted[p.Hash()] }

func (t *Tracker) MarkTainted(p path.Path) { t.tainted[p.Hash()] = true }

func (t *Tracker) ObserveDrop(obs transfer.TaintObservation) {
	if t.tainted[obs.Place.Hash()] {
		action := "dropped"
		if obs.IsReturn {
			action = "returned"
		}
		t.report(obs, action+" while still holding ownership transferred from a raw pointer")
	}

	if obs.Value == nil || obs.Value.Kind != expr.KHeapBlock {
		return
	}
	id := obs.Value.HeapID
	if t.dropped[id] {
		t.report(obs, "heap block dropped more than once (double free)")
		return
	}
	t.dropped[id] = true
}

func (t *Tracker) report(obs transfer.TaintObservation, msg string) {
	if t.Sink == nil {
		return
	}
	t.Sink.Report(Diagnostic{Fn: obs.Fn, Block: obs.Block, Span: obs.Span, Message: msg})
}
