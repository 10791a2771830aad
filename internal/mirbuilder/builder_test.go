package mirbuilder

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mir-checker/internal/mir"
)

func TestBuildsSimpleFunction(t *testing.T) {
	u32 := IntTy(false, mir.Width32, "u32")

	p := NewProgram()
	p.Func("add_one", []mir.Type{u32}, u32).
		Local(0, u32).
		Local(1, u32).
		Block(0).
		Assign(mir.ResultPlace(), &mir.BinaryOpRvalue{
			Op:    mir.OpAdd,
			Left:  mir.Copy(mir.ParamPlace(1)),
			Right: mir.ConstInt(1, u32),
		}).
		Return()

	prog := p.Build()
	fn, id, ok := prog.ByName("add_one")
	require.True(t, ok)
	assert.Equal(t, mir.FuncID(0), id)
	assert.Equal(t, mir.BlockID(0), fn.Entry)

	b, ok := fn.Block(0)
	require.True(t, ok)
	require.Len(t, b.Statements, 1)
	_, isReturn := b.Terminator.(*mir.ReturnTerm)
	assert.True(t, isReturn)
}
