package symbolic

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mir-checker/internal/expr"
	"mir-checker/internal/path"
)

func TestSetGetRemove(t *testing.T) {
	s := New()
	p := path.Local(1, 0)
	v := expr.Variable(p, expr.NonPrimitive)

	s.Set(p, v)
	got, ok := s.Get(p)
	require.True(t, ok)
	assert.True(t, got.Equal(v))

	s.Remove(p)
	_, ok = s.Get(p)
	assert.False(t, ok)
}

func TestSetNilRemoves(t *testing.T) {
	s := New()
	p := path.Local(1, 0)
	s.Set(p, expr.Top())
	s.Set(p, nil)
	assert.False(t, s.Has(p))
}

func TestJoinKeepsUnionAndJoinsShared(t *testing.T) {
	a := New()
	b := New()
	p1 := path.Local(1, 0)
	p2 := path.Local(2, 0)

	a.Set(p1, expr.Numerical(p1))
	b.Set(p1, expr.Top())
	b.Set(p2, expr.Variable(p2, expr.NonPrimitive))

	joined := Join(a, b)
	v1, ok := joined.Get(p1)
	require.True(t, ok)
	assert.Equal(t, expr.KTop, v1.Kind)

	v2, ok := joined.Get(p2)
	require.True(t, ok)
	assert.True(t, v2.Equal(b.values[p2.Hash()]))
}

func TestMeetKeepsRightOperandVerbatim(t *testing.T) {
	a := New()
	b := New()
	p := path.Local(1, 0)
	a.Set(p, expr.Top())
	b.Set(p, expr.Numerical(p))

	m := Meet(a, b)
	v, ok := m.Get(p)
	require.True(t, ok)
	assert.True(t, v.Equal(expr.Numerical(p)))
}

func TestDependsOnTransitive(t *testing.T) {
	s := New()
	root := path.Local(1, 0)
	dependent := path.Local(2, 0)
	s.Set(dependent, expr.Reference(root.WithSelector(path.Selector{Kind: path.SelField, Field: 0})))

	assert.True(t, s.DependsOn(root))
	assert.False(t, s.DependsOn(path.Local(99, 0)))
}

func TestCloneIsIndependent(t *testing.T) {
	s := New()
	p := path.Local(1, 0)
	s.Set(p, expr.Top())

	clone := s.Clone()
	clone.Remove(p)

	assert.True(t, s.Has(p))
	assert.False(t, clone.Has(p))
}
