package smt

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mir-checker/internal/domain"
	"mir-checker/internal/expr"
	"mir-checker/internal/numerical"
	"mir-checker/internal/path"
)

func TestTranslateTermConstantAndVariable(t *testing.T) {
	c, ok := TranslateTerm(expr.CompileTimeConstant(expr.IntConst(7)))
	require.True(t, ok)
	assert.Equal(t, "0", c.Sub(numerical.ConstExpr(big.NewInt(7))).String())

	p := path.Local(1, 0)
	v, ok := TranslateTerm(expr.Numerical(p))
	require.True(t, ok)
	assert.Contains(t, v.Dims(), p.Hash())
}

func TestTranslateTermUnsupportedKinds(t *testing.T) {
	_, ok := TranslateTerm(expr.Top())
	assert.False(t, ok)
	_, ok = TranslateTerm(expr.Reference(path.Local(1, 0)))
	assert.False(t, ok)
}

func TestTranslateFormulaComparisonRoundTrips(t *testing.T) {
	p := path.Local(1, 0)
	cond := expr.Comparison(expr.KLt, expr.Numerical(p), expr.CompileTimeConstant(expr.IntConst(10)))
	f := TranslateFormula(cond)
	lit, ok := f.(Lit)
	require.True(t, ok)
	assert.Equal(t, numerical.RelLt, lit.Constraint.Op)
}

func TestTranslateFormulaUnsupportedLeafPropagatesUnknown(t *testing.T) {
	cond := expr.Comparison(expr.KLt, expr.Reference(path.Local(1, 0)), expr.CompileTimeConstant(expr.IntConst(10)))
	f := TranslateFormula(cond)
	_, isUnknown := f.(Unknown)
	assert.True(t, isUnknown)
}

func TestLatticeAtomsReflectsBoundIntervals(t *testing.T) {
	mgr := numerical.Default()
	d := domain.Top(mgr)
	p := path.Local(1, 0)
	d.BindNumericalInt(p, 3)

	atoms := LatticeAtoms(d.Numerical)
	assert.Equal(t, Sat, Decide(atoms, Lit{Constraint: numerical.Constraint(numerical.Term(p.Hash()), numerical.RelEq, numerical.ConstExpr(big.NewInt(3)))}))
	assert.Equal(t, Unsat, Decide(atoms, Lit{Constraint: numerical.Constraint(numerical.Term(p.Hash()), numerical.RelEq, numerical.ConstExpr(big.NewInt(4)))}))
}
