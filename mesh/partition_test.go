package mesh

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPartitionStrategies(t *testing.T) {
	m, err := UnitSquare(4, 4, 1)
	require.NoError(t, err)

	for _, strategy := range []PartitionStrategy{BlockPartition, RoundRobin, GreedyGraph} {
		pb := &PartitionBuilder{NumParts: 4, Strategy: strategy}
		cellToPart, err := pb.Build(m)
		require.NoError(t, err, "strategy %d", strategy)
		require.Len(t, cellToPart, m.NumCells)

		counts := make([]int, 4)
		for _, p := range cellToPart {
			require.GreaterOrEqual(t, p, 0)
			require.Less(t, p, 4)
			counts[p]++
		}
		for p, n := range counts {
			assert.Greater(t, n, 0, "strategy %d partition %d empty", strategy, p)
		}
	}
}

func TestBlockPartitionIsContiguous(t *testing.T) {
	m, err := UnitInterval(8, 1)
	require.NoError(t, err)

	pb := &PartitionBuilder{NumParts: 2, Strategy: BlockPartition}
	cellToPart, err := pb.Build(m)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 0, 0, 0, 1, 1, 1, 1}, cellToPart)
}

func TestRoundRobinCycles(t *testing.T) {
	m, err := UnitInterval(6, 1)
	require.NoError(t, err)

	pb := &PartitionBuilder{NumParts: 3, Strategy: RoundRobin}
	cellToPart, err := pb.Build(m)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 2, 0, 1, 2}, cellToPart)
}

func TestPartitionErrors(t *testing.T) {
	m, err := UnitInterval(2, 1)
	require.NoError(t, err)

	pb := &PartitionBuilder{NumParts: 0}
	if _, err := pb.Build(m); err == nil {
		t.Fatal("expected error for zero partitions")
	}
	pb = &PartitionBuilder{NumParts: 5}
	if _, err := pb.Build(m); err == nil {
		t.Fatal("expected error for more partitions than cells")
	}
}

func TestCellAdjacency(t *testing.T) {
	m, err := UnitInterval(3, 1)
	require.NoError(t, err)

	adj := CellAdjacency(m)
	require.Len(t, adj, 3)
	assert.ElementsMatch(t, []int{1}, adj[0])
	assert.ElementsMatch(t, []int{0, 2}, adj[1])
	assert.ElementsMatch(t, []int{1}, adj[2])
}
