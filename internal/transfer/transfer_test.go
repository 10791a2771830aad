package transfer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mir-checker/internal/domain"
	"mir-checker/internal/fixpoint"
	"mir-checker/internal/mir"
	"mir-checker/internal/mirbuilder"
	"mir-checker/internal/numerical"
	"mir-checker/internal/path"
)

// buildAddOne builds: _0 = _1 + 1; return.
func buildAddOne() (*mir.Function, *mir.Block) {
	u32 := mirbuilder.IntTy(false, mir.Width32, "u32")
	p := mirbuilder.NewProgram()
	fb := p.Func("add_one", []mir.Type{u32}, u32).Local(1, u32).Local(0, u32)
	fb.Block(0).
		Assign(mir.ResultPlace(), &mir.BinaryOpRvalue{
			Op:    mir.OpAdd,
			Left:  mir.Copy(mir.ParamPlace(1)),
			Right: mir.ConstInt(1, u32),
		}).
		Return()
	prog := p.Build()
	fn, _, _ := prog.ByName("add_one")
	blk, _ := fn.Block(0)
	return fn, blk
}

func TestAssignBinaryOpTracksNumericalSum(t *testing.T) {
	fn, blk := buildAddOne()
	mgr := numerical.Default()
	pre := domain.Top(mgr)
	pre.BindNumericalInt(path.Parameter(1, 0), 5)

	it := &Interpreter{Prog: nil, FnID: fn.ID}
	posts := it.Step(blk, pre)
	require.Len(t, posts, 1) // Return reports its post-statement state under ExitBlock
	exit, ok := posts[fixpoint.ExitBlock]
	require.True(t, ok)
	iv := exit.Interval(path.Result())
	assert.True(t, iv.IsExact())
	assert.Equal(t, "6", iv.Lo.String())
}

func TestSwitchIntRefinesDiscriminantOnEachBranch(t *testing.T) {
	u32 := mirbuilder.IntTy(false, mir.Width32, "u32")
	p := mirbuilder.NewProgram()
	fb := p.Func("classify", nil, u32).Local(1, u32)
	fb.Block(0).SwitchInt(mir.Copy(mir.LocalPlace(1)), []int64{0, 1}, []int{1, 2, 3})
	fb.Block(1).Return()
	fb.Block(2).Return()
	fb.Block(3).Return()
	prog := p.Build()
	fn, _, _ := prog.ByName("classify")
	blk, _ := fn.Block(0)

	pre := domain.Top(numerical.Default())
	pre.BindNumericalInt(path.Local(1, 0), 0) // unconstrained would also work; exact value still switches cleanly

	it := &Interpreter{FnID: fn.ID}
	posts := it.Step(blk, pre)
	require.Len(t, posts, 3)
	assert.Contains(t, posts, mir.BlockID(1))
	assert.Contains(t, posts, mir.BlockID(2))
	assert.Contains(t, posts, mir.BlockID(3))
}

func TestAssertObservesExactBoundOfTrackedCondition(t *testing.T) {
	boolTy := mirbuilder.BoolTy()
	p := mirbuilder.NewProgram()
	fb := p.Func("checked", nil, boolTy).Local(1, boolTy)
	fb.Block(0).Assert(mir.Copy(mir.LocalPlace(1)), true, mir.AssertBoundsCheck, "index out of bounds", 1)
	fb.Block(1).Return()
	prog := p.Build()
	fn, _, _ := prog.ByName("checked")
	blk, _ := fn.Block(0)

	pre := domain.Top(numerical.Default())
	pre.BindNumericalInt(path.Local(1, 0), 1)

	var observed []AssertObservation
	it := &Interpreter{FnID: fn.ID, Asserts: sinkFunc(func(o AssertObservation) { observed = append(observed, o) })}
	posts := it.Step(blk, pre)
	require.Len(t, posts, 1)
	require.Len(t, observed, 1)
	assert.True(t, observed[0].Bound.IsExact())
}

// buildNeZeroGuard builds: _2 = _1 != 0; switchInt _2 [0 -> bb1, otherwise -> bb2].
func buildNeZeroGuard() (*mir.Program, *mir.Function, *mir.Block) {
	u32 := mirbuilder.IntTy(false, mir.Width32, "u32")
	boolTy := mirbuilder.BoolTy()
	p := mirbuilder.NewProgram()
	fb := p.Func("guarded", []mir.Type{u32}, u32).Local(1, u32).Local(2, boolTy)
	fb.Block(0).
		Assign(mir.LocalPlace(2), &mir.BinaryOpRvalue{
			Op:    mir.OpNe,
			Left:  mir.Copy(mir.ParamPlace(1)),
			Right: mir.ConstInt(0, u32),
		}).
		SwitchInt(mir.Copy(mir.LocalPlace(2)), []int64{0}, []int{1, 2})
	fb.Block(1).Return()
	fb.Block(2).Return()
	prog := p.Build()
	fn, _, _ := prog.ByName("guarded")
	blk, _ := fn.Block(0)
	return prog, fn, blk
}

func TestSwitchIntRefinesSymbolicDiscriminantAsFacts(t *testing.T) {
	prog, fn, blk := buildNeZeroGuard()
	pre := domain.Top(numerical.Default())
	pre.BindNumericalTop(path.Parameter(1, 0))

	it := &Interpreter{Prog: prog, FnID: fn.ID}
	posts := it.Step(blk, pre)
	require.Len(t, posts, 2)

	elseBranch := posts[mir.BlockID(1)]
	require.Len(t, elseBranch.Facts, 1)
	assert.Equal(t, numerical.RelEq, elseBranch.Facts[0].Op) // n == 0 known false-side

	thenBranch := posts[mir.BlockID(2)]
	require.Len(t, thenBranch.Facts, 1)
	assert.Equal(t, numerical.RelNe, thenBranch.Facts[0].Op) // n != 0 known true-side
}

// buildAssertNeZero builds: _2 = _1 != 0; assert(_2, expected=true, DivisionByZero) -> bb1.
func buildAssertNeZero() (*mir.Program, *mir.Function, *mir.Block) {
	u32 := mirbuilder.IntTy(false, mir.Width32, "u32")
	boolTy := mirbuilder.BoolTy()
	p := mirbuilder.NewProgram()
	fb := p.Func("assert_guard", []mir.Type{u32}, u32).Local(1, u32).Local(2, boolTy)
	fb.Block(0).
		Assign(mir.LocalPlace(2), &mir.BinaryOpRvalue{
			Op:    mir.OpNe,
			Left:  mir.Copy(mir.ParamPlace(1)),
			Right: mir.ConstInt(0, u32),
		}).
		Assert(mir.Copy(mir.LocalPlace(2)), true, mir.AssertDivisionByZero, "division by zero", 1)
	fb.Block(1).Return()
	prog := p.Build()
	fn, _, _ := prog.ByName("assert_guard")
	blk, _ := fn.Block(0)
	return prog, fn, blk
}

func TestAssertAddsFactOnTakenEdgeForSymbolicCondition(t *testing.T) {
	prog, fn, blk := buildAssertNeZero()
	pre := domain.Top(numerical.Default())
	pre.BindNumericalTop(path.Parameter(1, 0))

	var observed []AssertObservation
	it := &Interpreter{Prog: prog, FnID: fn.ID, Asserts: sinkFunc(func(o AssertObservation) { observed = append(observed, o) })}
	posts := it.Step(blk, pre)
	require.Len(t, posts, 1)
	require.Len(t, observed, 1)
	assert.Empty(t, observed[0].ExtraAtoms) // nothing known yet at the assert itself

	next := posts[mir.BlockID(1)]
	require.Len(t, next.Facts, 1)
	assert.Equal(t, numerical.RelNe, next.Facts[0].Op)
}

func TestStorageDeadForgetsUnreferencedLocal(t *testing.T) {
	pre := domain.Top(numerical.Default())
	local := path.Local(2, 0)
	pre.BindNumericalInt(local, 42)

	it := &Interpreter{CleaningDelay: 1}
	it.execStorageDead(pre, 0, 2)
	assert.True(t, pre.Interval(local).IsTop())
}

func TestCallDelegatesToHandler(t *testing.T) {
	u32 := mirbuilder.IntTy(false, mir.Width32, "u32")
	p := mirbuilder.NewProgram()
	fb := p.Func("caller", nil, u32).Local(1, u32)
	fb.Block(0).Call(mir.ConstFunc("callee"), nil, mir.LocalPlace(1), intPtr(1))
	fb.Block(1).Return()
	prog := p.Build()
	fn, _, _ := prog.ByName("caller")
	blk, _ := fn.Block(0)

	pre := domain.Top(numerical.Default())
	handler := callHandlerFunc(func(caller mir.FuncID, term *mir.CallTerm, d *domain.AbstractDomain) *domain.AbstractDomain {
		out := d.Clone()
		out.BindNumericalInt(path.Local(1, 0), 7)
		return out
	})
	it := &Interpreter{FnID: fn.ID, Calls: handler}
	posts := it.Step(blk, pre)
	require.Len(t, posts, 1)
	iv := posts[1].Interval(path.Local(1, 0))
	assert.Equal(t, "7", iv.Lo.String())
}

type sinkFunc func(AssertObservation)

func (f sinkFunc) Observe(o AssertObservation) { f(o) }

type callHandlerFunc func(mir.FuncID, *mir.CallTerm, *domain.AbstractDomain) *domain.AbstractDomain

func (f callHandlerFunc) Call(caller mir.FuncID, term *mir.CallTerm, pre *domain.AbstractDomain) *domain.AbstractDomain {
	return f(caller, term, pre)
}

func intPtr(n int) *int { return &n }
