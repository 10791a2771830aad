package wto

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mir-checker/internal/mir"
)

func TestStraightLineHasNoComponents(t *testing.T) {
	// 0 -> 1 -> 2
	graph := map[mir.BlockID][]mir.BlockID{
		0: {1},
		1: {2},
		2: {},
	}
	w := Build(0, func(b mir.BlockID) []mir.BlockID { return graph[b] })

	require.Len(t, w.Elements, 3)
	for _, e := range w.Elements {
		assert.False(t, e.IsComponent)
	}
	assert.Empty(t, w.Heads())
}

func TestSimpleLoopProducesOneComponent(t *testing.T) {
	// 0 -> 1 -> 2 -> 1 (loop), 2 -> 3 (exit)
	graph := map[mir.BlockID][]mir.BlockID{
		0: {1},
		1: {2},
		2: {1, 3},
		3: {},
	}
	w := Build(0, func(b mir.BlockID) []mir.BlockID { return graph[b] })

	heads := w.Heads()
	assert.True(t, heads[1])
	assert.Len(t, heads, 1)

	// find the component and check its head and that it contains block 2
	var found bool
	for _, e := range w.Elements {
		if e.IsComponent && e.Head == 1 {
			found = true
			require.Len(t, e.Body, 1)
			assert.Equal(t, mir.BlockID(2), e.Body[0].Vertex)
		}
	}
	assert.True(t, found)
}

func TestNestedLoopsProduceNestedComponents(t *testing.T) {
	// 0 -> 1 -> 2 -> 3 -> 2 (inner loop) ; 3 -> 1 (outer loop) ; 1 -> 4 (exit)
	graph := map[mir.BlockID][]mir.BlockID{
		0: {1},
		1: {2, 4},
		2: {3},
		3: {2, 1},
		4: {},
	}
	w := Build(0, func(b mir.BlockID) []mir.BlockID { return graph[b] })

	heads := w.Heads()
	assert.True(t, heads[1])
	assert.True(t, heads[2])
}
