package taint

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mir-checker/internal/domain"
	"mir-checker/internal/expr"
	"mir-checker/internal/mir"
	"mir-checker/internal/mirbuilder"
	"mir-checker/internal/numerical"
	"mir-checker/internal/path"
	"mir-checker/internal/transfer"
)

type recordingSink struct {
	got []Diagnostic
}

func (r *recordingSink) Report(d Diagnostic) { r.got = append(r.got, d) }

func TestMarkTaintedThenIsTainted(t *testing.T) {
	tr := New(nil)
	p := path.Local(1, 0)
	assert.False(t, tr.IsTainted(p))
	tr.MarkTainted(p)
	assert.True(t, tr.IsTainted(p))
}

func TestObserveDropFlagsTaintedReturn(t *testing.T) {
	sink := &recordingSink{}
	tr := New(sink)
	tr.MarkTainted(path.Result())

	tr.ObserveDrop(transfer.TaintObservation{
		Fn: 1, Block: 2, Place: path.Result(), IsReturn: true,
	})
	require.Len(t, sink.got, 1)
	assert.Contains(t, sink.got[0].Message, "returned")
}

func TestObserveDropFlagsTaintedDrop(t *testing.T) {
	sink := &recordingSink{}
	tr := New(sink)
	p := path.Local(3, 0)
	tr.MarkTainted(p)

	tr.ObserveDrop(transfer.TaintObservation{Fn: 1, Block: 4, Place: p, IsReturn: false})
	require.Len(t, sink.got, 1)
	assert.Contains(t, sink.got[0].Message, "dropped")
}

func TestObserveDropIgnoresUntaintedLocal(t *testing.T) {
	sink := &recordingSink{}
	tr := New(sink)
	tr.ObserveDrop(transfer.TaintObservation{Fn: 1, Block: 1, Place: path.Local(9, 0)})
	assert.Len(t, sink.got, 0)
}

func TestObserveDropFlagsDoubleFree(t *testing.T) {
	sink := &recordingSink{}
	tr := New(sink)
	hb := expr.HeapBlock("fn0:blk0:stmt0")

	tr.ObserveDrop(transfer.TaintObservation{Fn: 1, Block: 1, Place: path.Local(1, 0), Value: hb})
	require.Len(t, sink.got, 0)

	tr.ObserveDrop(transfer.TaintObservation{Fn: 1, Block: 2, Place: path.Local(1, 0), Value: hb})
	require.Len(t, sink.got, 1)
	assert.Contains(t, sink.got[0].Message, "double")
}

// buildBoxDropTwice builds a function that allocates a heap block once but
// drops the same local (and hence the same heap block) on two different
// paths: _1 = Box::new(u32); switch _2 { 0 => drop(_1) -> 1, _ => drop(_1)
// -> 2 }; both targets return.
func buildBoxDropTwice() (*mir.Function, *mir.Block) {
	u32 := mirbuilder.IntTy(false, mir.Width32, "u32")
	p := mirbuilder.NewProgram()
	fb := p.Func("drop_twice", nil, u32).Local(1, u32).Local(2, u32)
	fb.Block(0).
		Assign(mir.LocalPlace(1), &mir.NullaryOpRvalue{Kind: mir.NullaryBox, Type: u32}).
		SwitchInt(mir.Copy(mir.LocalPlace(2)), []int64{0}, []int{1, 2})
	fb.Block(1).Drop(mir.LocalPlace(1), 3)
	fb.Block(2).Drop(mir.LocalPlace(1), 3)
	fb.Block(3).Return()
	prog := p.Build()
	fn, _, _ := prog.ByName("drop_twice")
	blk0, _ := fn.Block(0)
	return fn, blk0
}

func TestHeapBlockMintedAtBoxSiteAndDoubleDropDetected(t *testing.T) {
	fn, blk0 := buildBoxDropTwice()
	tr := &recordingSink{}
	tracker := New(tr)
	it := &transfer.Interpreter{FnID: fn.ID, Taint: tracker}

	pre := domain.Top(numerical.Default())
	posts := it.Step(blk0, pre)
	require.Contains(t, posts, mir.BlockID(1))
	require.Contains(t, posts, mir.BlockID(2))

	blk1, _ := fn.Block(1)
	blk2, _ := fn.Block(2)

	it.Step(blk1, posts[mir.BlockID(1)])
	require.Len(t, tr.got, 0)

	it.Step(blk2, posts[mir.BlockID(2)])
	require.Len(t, tr.got, 1)
	assert.Contains(t, tr.got[0].Message, "double")
}
