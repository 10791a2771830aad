package mirparser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mir-checker/internal/mir"
)

const fixture = `
fn div_zero(arg1: u32) -> u32 {
    local _2: bool;
    local _3: u32;

    bb0: {
        _2 = BinaryOp(Ne, copy(arg1), 0_u32);
        assert(copy(_2), true, DivisionByZero, "division by zero") -> bb1;
    }
    bb1: {
        _3 = BinaryOp(Div, 100_u32, copy(arg1));
        return;
    }
}

fn second(arg1: u32) -> u32 {
    local _2: bool;
    local _3: u32;
    local _4: &u32;
    local _5: u32;
    local _6: u32;
    local _7: bool;
    local _8: Vec<u8>;
    local _9: usize;

    bb0: {
        _2 = BinaryOp(Eq, copy(arg1), 0_u32);
        switchInt(copy(_2)) {
            0 => bb2,
            otherwise => bb1
        }
    }
    bb1: {
        _3 = UnaryOp(Neg, copy(arg1));
        _4 = Ref(_3);
        _5 = Len(_8);
        _6 = Discriminant(_8);
        _7 = Cast(copy(_2), bool);
        _9 = NullaryOp(SizeOf, u32);
        storagedead _4;
        _5 = call(helper, copy(_3), copy(_6)) -> bb2;
    }
    bb2: {
        drop(_8) -> bb3;
    }
    bb3: {
        return;
    }
}
`

func TestParseStringBuildsDivZeroFunction(t *testing.T) {
	prog, err := ParseString("fixture.mir", fixture)
	require.NoError(t, err)
	require.Len(t, prog.Functions, 2)

	fn, id, ok := prog.ByName("div_zero")
	require.True(t, ok)
	assert.Equal(t, mir.FuncID(0), id)
	require.Len(t, fn.ParamTypes, 1)
	assert.Equal(t, mir.KindUnsignedInt, fn.ParamTypes[0].Kind)
	assert.Equal(t, mir.Width32, fn.ParamTypes[0].Width)
	assert.Equal(t, mir.KindUnsignedInt, fn.ReturnType.Kind)

	bb0, ok := fn.Block(0)
	require.True(t, ok)
	require.Len(t, bb0.Statements, 1)
	assign := bb0.Statements[0].(*mir.AssignStmt)
	assert.Equal(t, mir.LocalPlace(2), assign.Place)
	bin := assign.Rvalue.(*mir.BinaryOpRvalue)
	assert.Equal(t, mir.OpNe, bin.Op)
	assert.Equal(t, mir.ParamPlace(1), bin.Left.Place)
	assert.True(t, bin.Right.Constant.IsInt)
	assert.EqualValues(t, 0, bin.Right.Constant.Int)

	assertTerm := bb0.Terminator.(*mir.AssertTerm)
	assert.True(t, assertTerm.Expected)
	assert.Equal(t, mir.AssertDivisionByZero, assertTerm.Kind)
	assert.Equal(t, "division by zero", assertTerm.Msg)
	assert.Equal(t, mir.BlockID(1), assertTerm.Target)
	assert.Equal(t, "fixture.mir", assertTerm.Span.File)
	assert.Equal(t, 8, assertTerm.Span.Line)

	bb1, ok := fn.Block(1)
	require.True(t, ok)
	_, isReturn := bb1.Terminator.(*mir.ReturnTerm)
	assert.True(t, isReturn)
}

func TestParseStringHandlesSwitchCallDropAndRvalueForms(t *testing.T) {
	prog, err := ParseString("fixture.mir", fixture)
	require.NoError(t, err)

	fn, _, ok := prog.ByName("second")
	require.True(t, ok)

	bb0, _ := fn.Block(0)
	sw := bb0.Terminator.(*mir.SwitchIntTerm)
	require.Equal(t, []int64{0}, sw.Values)
	require.Equal(t, []mir.BlockID{2, 1}, sw.Targets) // value arm first, "otherwise" moved last

	bb1, _ := fn.Block(1)
	require.Len(t, bb1.Statements, 7)

	neg := bb1.Statements[0].(*mir.AssignStmt).Rvalue.(*mir.UnaryOpRvalue)
	assert.Equal(t, mir.OpNeg, neg.Op)

	ref := bb1.Statements[1].(*mir.AssignStmt).Rvalue.(*mir.RefRvalue)
	assert.Equal(t, mir.LocalPlace(3), ref.Place)

	lenRv := bb1.Statements[2].(*mir.AssignStmt).Rvalue.(*mir.LenRvalue)
	assert.Equal(t, mir.LocalPlace(8), lenRv.Place)

	discr := bb1.Statements[3].(*mir.AssignStmt).Rvalue.(*mir.DiscriminantRvalue)
	assert.Equal(t, mir.LocalPlace(8), discr.Place)

	cast := bb1.Statements[4].(*mir.AssignStmt).Rvalue.(*mir.CastRvalue)
	assert.Equal(t, mir.KindBool, cast.Target.Kind)

	nullary := bb1.Statements[5].(*mir.AssignStmt).Rvalue.(*mir.NullaryOpRvalue)
	assert.Equal(t, mir.NullarySizeOf, nullary.Kind)
	assert.Equal(t, mir.KindUnsignedInt, nullary.Type.Kind)

	call := bb1.Terminator.(*mir.CallTerm)
	assert.True(t, call.Func.Constant.IsFunc)
	assert.Equal(t, "helper", call.Func.Constant.FuncName)
	require.Len(t, call.Args, 2)
	require.NotNil(t, call.Target)
	assert.Equal(t, mir.BlockID(2), *call.Target)
	assert.Equal(t, mir.LocalPlace(5), call.Destination)

	bb2, _ := fn.Block(2)
	drop := bb2.Terminator.(*mir.DropTerm)
	assert.Equal(t, mir.LocalPlace(8), drop.Place)
	assert.Equal(t, mir.BlockID(3), drop.Target)
}

func TestParseStringRejectsSwitchWithoutOtherwise(t *testing.T) {
	src := `
fn bad() -> u32 {
    local _1: bool;
    bb0: {
        switchInt(copy(_1)) {
            0 => bb1
        }
    }
    bb1: {
        return;
    }
}
`
	_, err := ParseString("bad.mir", src)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "otherwise")
}

func TestParseStringRejectsUnknownPlaceRoot(t *testing.T) {
	src := `
fn bad(arg1: u32) -> u32 {
    bb0: {
        notaplace.0 = BinaryOp(Add, copy(arg1), 1_u32);
        return;
    }
}
`
	_, err := ParseString("bad.mir", src)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a recognized place")
}
