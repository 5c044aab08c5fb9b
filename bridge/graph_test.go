package bridge

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func liveRegistry(n int) *registry {
	r := newRegistry(n)
	for i := 0; i < n; i++ {
		r.slots[i].state = stateActive
	}
	return r
}

func TestAddEdgeIsUniquePerPair(t *testing.T) {
	r := liveRegistry(2)

	require.NoError(t, r.addEdge(0, 1, 0))
	require.NoError(t, r.addEdge(0, 1, 50)) // re-connect updates gain, not a duplicate

	assert.Len(t, r.slots[1].inbound, 1)
	assert.EqualValues(t, 50, r.slots[1].inbound[0].gain)
	assert.Equal(t, 1, r.totalEdgeCount())
	assert.Equal(t, []int{1}, r.edgesFrom(0))
}

func TestAddEdgeRejectsDeadEndpoints(t *testing.T) {
	r := liveRegistry(2)
	r.slots[1].state = stateFree

	err := r.addEdge(0, 1, 0)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, 0, r.totalEdgeCount())
}

func TestRemoveEdgeExactRemovesOnlyThatPair(t *testing.T) {
	r := liveRegistry(3)
	require.NoError(t, r.addEdge(0, 2, 0))
	require.NoError(t, r.addEdge(1, 2, 0))

	removed := r.removeEdge(0, 2)
	assert.Equal(t, 1, removed)
	assert.Len(t, r.slots[2].inbound, 1)
	assert.Equal(t, 1, r.slots[2].inbound[0].src)
	assert.Equal(t, []int(nil), r.edgesFrom(0))
}

func TestRemoveEdgeWildcardSink(t *testing.T) {
	r := liveRegistry(3)
	require.NoError(t, r.addEdge(0, 1, 0))
	require.NoError(t, r.addEdge(0, 2, 0))

	removed := r.removeEdge(0, -1)
	assert.Equal(t, 2, removed)
	assert.Empty(t, r.edgesFrom(0))
	assert.Empty(t, r.edgesInto(1))
	assert.Empty(t, r.edgesInto(2))
}

func TestRemoveEdgeWildcardSrc(t *testing.T) {
	r := liveRegistry(3)
	require.NoError(t, r.addEdge(0, 2, 0))
	require.NoError(t, r.addEdge(1, 2, 0))

	removed := r.removeEdge(-1, 2)
	assert.Equal(t, 2, removed)
	assert.Empty(t, r.edgesInto(2))
	assert.Empty(t, r.edgesFrom(0))
	assert.Empty(t, r.edgesFrom(1))
}

func TestRemoveAllEdgesOfStripsBothDirections(t *testing.T) {
	r := liveRegistry(3)
	require.NoError(t, r.addEdge(0, 1, 0)) // 0 -> 1
	require.NoError(t, r.addEdge(1, 2, 0)) // 1 -> 2 (1 is both a sink and a src)

	r.removeAllEdgesOf(1)

	assert.Equal(t, 0, r.totalEdgeCount())
	assert.Empty(t, r.edgesFrom(0))
	assert.Empty(t, r.edgesInto(2))
}

func TestTotalEdgeCountIgnoresFreeSlots(t *testing.T) {
	r := liveRegistry(3)
	require.NoError(t, r.addEdge(0, 1, 0))
	require.NoError(t, r.addEdge(0, 2, 0))
	r.slots[2].state = stateFree

	// totalEdgeCount sums inbound lists of non-free slots only; slot 2's
	// stale inbound entry (from before it was freed) must not be counted.
	assert.Equal(t, 1, r.totalEdgeCount())
}
