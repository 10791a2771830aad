package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mir-checker/internal/numerical"
	"mir-checker/internal/path"
)

func TestBindNumericalIntTracksBound(t *testing.T) {
	mgr := numerical.Default()
	d := Top(mgr)
	p := path.Local(1, 0)

	d.BindNumericalInt(p, 42)
	assert.True(t, d.IsNumericallyTracked(p))

	iv := d.Interval(p)
	require.True(t, iv.IsExact())
}

func TestJoinOfBottomIsIdentity(t *testing.T) {
	mgr := numerical.Default()
	top := Top(mgr)
	bot := Bottom(mgr)

	p := path.Local(1, 0)
	top.BindNumericalInt(p, 7)

	joined := Join(top, bot)
	assert.False(t, joined.IsBottom())
	assert.True(t, joined.Interval(p).IsExact())
}

func TestLeqDelegatesToNumerical(t *testing.T) {
	mgr := numerical.Default()
	a := Top(mgr)
	b := Top(mgr)
	p := path.Local(1, 0)

	a.BindNumericalInt(p, 5)
	assert.True(t, Leq(a, b)) // a is more precise, so a <= top(b)
	assert.False(t, Leq(b, a))
}

func TestRenameMovesNumericalTracking(t *testing.T) {
	mgr := numerical.Default()
	d := Top(mgr)
	oldP := path.Local(1, 0)
	newP := path.Local(2, 0)

	d.BindNumericalInt(oldP, 9)
	d.Rename(oldP, newP)

	assert.False(t, d.IsNumericallyTracked(oldP))
	assert.True(t, d.IsNumericallyTracked(newP))
	assert.True(t, d.Interval(newP).IsExact())
}
