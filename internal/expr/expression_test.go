package expr

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mir-checker/internal/path"
)

func TestJoinLaws(t *testing.T) {
	x := Variable(path.Local(1, 0), NonPrimitive)
	assert.True(t, Join(x, BottomExpr()).Equal(x))
	assert.True(t, Join(x, Top()).Equal(Top()))

	w := Widen(path.Local(2, 0), x)
	assert.True(t, Join(w, x).Equal(w))
}

func TestAndOrLaws(t *testing.T) {
	x := Variable(path.Local(1, 0), Bool)
	notX := LogicalNot(x)

	assert.True(t, And(x, x).Equal(x))
	assert.True(t, And(x, notX).Equal(boolConst(false)))
	assert.True(t, Or(x, notX).Equal(boolConst(true)))
}

func TestLogicalNotPushesThroughComparisons(t *testing.T) {
	a := Numerical(path.Local(1, 0))
	b := Numerical(path.Local(2, 0))
	lt := Comparison(KLt, a, b)

	notLt := LogicalNot(lt)
	require.Equal(t, KGe, notLt.Kind)

	doubleNot := LogicalNot(LogicalNot(lt))
	assert.True(t, doubleNot.Equal(lt))
}

func TestCastCollapsesConsecutiveUnsignedWidening(t *testing.T) {
	u8 := ExpressionType{Kind: TUnsignedInt, Width: Width8, Name: "u8"}
	u16 := ExpressionType{Kind: TUnsignedInt, Width: Width16, Name: "u16"}
	u32 := ExpressionType{Kind: TUnsignedInt, Width: Width32, Name: "u32"}

	x := Numerical(path.Local(1, 0))
	onceCast := Cast(x, u16)
	twiceCast := Cast(onceCast, u32)

	direct := Cast(x, u32)
	assert.True(t, twiceCast.Equal(direct))
	_ = u8
}

func TestSizeSaturatesAndCollapsesOversizedExpressions(t *testing.T) {
	var e *Expression = Numerical(path.Local(1, 0))
	// Each Join adds 2 to the size, so the 500th one reaches 1001 and collapses.
	for i := 0; i < MaxExpressionSize/2; i++ {
		e = Join(e, Variable(path.Local(i+2, 0), NonPrimitive))
	}
	assert.Equal(t, uint32(1), e.Size())
	assert.Equal(t, KVariable, e.Kind)
}

func TestExpressionEqualityWidenIgnoresOperand(t *testing.T) {
	p := path.Local(1, 0)
	w1 := Widen(p, Numerical(p))
	w2 := Widen(p, Top())
	assert.True(t, w1.Equal(w2))
}

func TestPathEnvEntryAdapters(t *testing.T) {
	p := path.Local(3, 0)
	v := Variable(p, NonPrimitive)
	got, ok := v.AsVariablePath()
	require.True(t, ok)
	assert.True(t, got.Equal(p))

	hb := HeapBlock("site#1")
	_, ok = hb.AsHeapBlock()
	assert.True(t, ok)

	c := Cast(v, Bool)
	inner, ok := c.AsCastOperand()
	require.True(t, ok)
	innerPath, ok := inner.AsVariablePath()
	require.True(t, ok)
	assert.True(t, innerPath.Equal(p))
}
