package mesh

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSerialIndexMap(t *testing.T) {
	im := SerialIndexMap(5)
	assert.Equal(t, 0, im.Rank())
	assert.Equal(t, 1, im.NumRanks())
	assert.Equal(t, 5, im.LocalSize())
	assert.Equal(t, 5, im.Size())
	assert.Equal(t, 5, im.GlobalSize())

	for l := 0; l < 5; l++ {
		g := im.LocalToGlobal(l)
		assert.Equal(t, l, g)
		back, ok := im.GlobalToLocal(g)
		require.True(t, ok)
		assert.Equal(t, l, back)
		assert.Equal(t, 0, im.Owner(l))
	}
}

func TestIndexMapWithGhosts(t *testing.T) {
	// Two ranks: rank 0 owns [0,3), rank 1 owns [3,6). Rank 0 ghosts
	// global 4; rank 1 ghosts globals 1 and 2.
	im0, err := NewIndexMap(0, []int{3, 3}, []int{4}, []int{1})
	require.NoError(t, err)
	im1, err := NewIndexMap(1, []int{3, 3}, []int{1, 2}, []int{0, 0})
	require.NoError(t, err)

	assert.Equal(t, 3, im0.LocalSize())
	assert.Equal(t, 4, im0.Size())
	assert.Equal(t, 6, im0.GlobalSize())

	// Ghost local numbering follows the owned range
	assert.Equal(t, 4, im0.LocalToGlobal(3))
	l, ok := im0.GlobalToLocal(4)
	require.True(t, ok)
	assert.Equal(t, 3, l)
	assert.Equal(t, 1, im0.Owner(3))
	assert.False(t, im0.IsOwned(3))
	assert.True(t, im0.IsOwned(2))

	// Unknown globals are reported, not zero-filled
	_, ok = im0.GlobalToLocal(5)
	assert.False(t, ok)

	lo, hi := im1.OwnedRange()
	assert.Equal(t, 3, lo)
	assert.Equal(t, 6, hi)
	assert.Equal(t, 3+2, im1.Size())

	// Owner resolution across the whole global range
	for g, want := range []int{0, 0, 0, 1, 1, 1} {
		assert.Equal(t, want, im0.OwnerOfGlobal(g), "global %d", g)
	}
	assert.Equal(t, -1, im0.OwnerOfGlobal(6))
	assert.Equal(t, -1, im0.OwnerOfGlobal(-1))
}

func TestIndexMapRejectsBadGhosts(t *testing.T) {
	// Locally owned dof declared as ghost
	if _, err := NewIndexMap(0, []int{3, 3}, []int{1}, []int{1}); err == nil {
		t.Fatal("expected error for locally owned ghost")
	}
	// Wrong declared owner
	if _, err := NewIndexMap(0, []int{3, 3}, []int{4}, []int{0}); err == nil {
		t.Fatal("expected error for wrong ghost owner")
	}
	// Out of range
	if _, err := NewIndexMap(0, []int{3, 3}, []int{9}, []int{1}); err == nil {
		t.Fatal("expected error for out-of-range ghost")
	}
	// Mismatched arrays
	if _, err := NewIndexMap(0, []int{3, 3}, []int{4}, nil); err == nil {
		t.Fatal("expected error for mismatched ghost arrays")
	}
}
