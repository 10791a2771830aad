package fixpoint

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mir-checker/internal/domain"
	"mir-checker/internal/mir"
	"mir-checker/internal/mirbuilder"
	"mir-checker/internal/numerical"
	"mir-checker/internal/path"
	"mir-checker/internal/wto"
)

// buildLoopFn builds: 0 (x=0, goto 1); 1 (x=x+1, switches to 1 or 2); 2 (return).
func buildLoopFn() *mir.Program {
	u32 := mirbuilder.IntTy(false, mir.Width32, "u32")
	p := mirbuilder.NewProgram()
	fb := p.Func("loop_fn", nil, u32).Local(1, u32)
	fb.Block(0).Goto(1)
	fb.Block(1).SwitchInt(mir.Copy(mir.LocalPlace(1)), []int64{0}, []int{1, 2})
	fb.Block(2).Return()
	return p.Build()
}

func TestLoopWideningConverges(t *testing.T) {
	prog := buildLoopFn()
	fn, _, ok := prog.ByName("loop_fn")
	require.True(t, ok)

	succs := func(b mir.BlockID) []mir.BlockID {
		blk, _ := fn.Block(b)
		switch t := blk.Terminator.(type) {
		case *mir.GotoTerm:
			return []mir.BlockID{t.Target}
		case *mir.SwitchIntTerm:
			return t.Targets
		default:
			return nil
		}
	}
	w := wto.Build(fn.Entry, succs)
	require.True(t, w.Heads()[1])

	x := path.Local(1, 0)
	mgr := numerical.Default()
	entry := domain.Top(mgr)

	transfer := func(b *mir.Block, pre *domain.AbstractDomain) map[mir.BlockID]*domain.AbstractDomain {
		switch b.ID {
		case 0:
			post := pre.Clone()
			post.BindNumericalInt(x, 0)
			return map[mir.BlockID]*domain.AbstractDomain{1: post}
		case 1:
			post := pre.Clone()
			post.BindNumericalArith(x, numerical.ArithAdd, numerical.DimOperand(domain.NumDim(x)), numerical.ConstOperand(big.NewInt(1)))
			return map[mir.BlockID]*domain.AbstractDomain{1: post.Clone(), 2: post.Clone()}
		case 2:
			return map[mir.BlockID]*domain.AbstractDomain{ExitBlock: pre}
		}
		return nil
	}

	res := Run(fn, w, entry, transfer)
	require.NotNil(t, res.PreStates[1])

	iv := res.PreStates[1].Interval(x)
	assert.True(t, iv.HiInf, "expected widening to push the loop bound to +inf, got %s", iv)
	assert.False(t, res.Exit.IsBottom())
}
