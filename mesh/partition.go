package mesh

import (
	"fmt"
)

// PartitionStrategy defines how cells are grouped into rank domains.
type PartitionStrategy int

const (
	// BlockPartition assigns consecutive cells
	BlockPartition PartitionStrategy = iota
	// RoundRobin distributes cells cyclically
	RoundRobin
	// GreedyGraph grows partitions along cell adjacency to reduce the
	// number of dof blocks shared across ranks
	GreedyGraph
)

// PartitionBuilder constructs a cell-to-rank assignment from mesh
// connectivity.
type PartitionBuilder struct {
	NumParts int
	Strategy PartitionStrategy
}

// Build returns cellToPart of length m.NumCells with entries in
// [0, NumParts).
func (pb *PartitionBuilder) Build(m *Mesh) ([]int, error) {
	if pb.NumParts < 1 {
		return nil, fmt.Errorf("invalid partition count %d", pb.NumParts)
	}
	if pb.NumParts > m.NumCells {
		return nil, fmt.Errorf("cannot split %d cells into %d parts", m.NumCells, pb.NumParts)
	}

	cellToPart := make([]int, m.NumCells)
	switch pb.Strategy {
	case BlockPartition:
		per := (m.NumCells + pb.NumParts - 1) / pb.NumParts
		for c := 0; c < m.NumCells; c++ {
			p := c / per
			if p >= pb.NumParts {
				p = pb.NumParts - 1
			}
			cellToPart[c] = p
		}
	case RoundRobin:
		for c := 0; c < m.NumCells; c++ {
			cellToPart[c] = c % pb.NumParts
		}
	case GreedyGraph:
		pb.greedyGrow(m, cellToPart)
	default:
		return nil, fmt.Errorf("unknown partition strategy %d", pb.Strategy)
	}

	if err := validatePartition(cellToPart, pb.NumParts); err != nil {
		return nil, err
	}
	return cellToPart, nil
}

// greedyGrow performs breadth-first growth over the cell adjacency graph,
// starting a new partition whenever the current one reaches its target size.
func (pb *PartitionBuilder) greedyGrow(m *Mesh, cellToPart []int) {
	adj := CellAdjacency(m)
	target := (m.NumCells + pb.NumParts - 1) / pb.NumParts

	for i := range cellToPart {
		cellToPart[i] = -1
	}

	part, placed := 0, 0
	var queue []int
	for seed := 0; seed < m.NumCells; seed++ {
		if cellToPart[seed] >= 0 {
			continue
		}
		queue = append(queue[:0], seed)
		for len(queue) > 0 {
			c := queue[0]
			queue = queue[1:]
			if cellToPart[c] >= 0 {
				continue
			}
			cellToPart[c] = part
			placed++
			if placed == target && part < pb.NumParts-1 {
				part++
				placed = 0
				queue = queue[:0]
				break
			}
			queue = append(queue, adj[c]...)
		}
	}
	// Any cells missed by an exhausted frontier land in the last partition
	for i := range cellToPart {
		if cellToPart[i] < 0 {
			cellToPart[i] = pb.NumParts - 1
		}
	}
}

// CellAdjacency builds cell-to-cell connectivity through shared dof blocks.
func CellAdjacency(m *Mesh) [][]int {
	blockToCells := make([][]int, m.Index.Size())
	for c := 0; c < m.NumCells; c++ {
		for _, b := range m.CellBlocks(c) {
			blockToCells[b] = append(blockToCells[b], c)
		}
	}
	adj := make([][]int, m.NumCells)
	seen := make(map[[2]int]bool)
	for _, cells := range blockToCells {
		for i, a := range cells {
			for _, b := range cells[i+1:] {
				if a == b || seen[[2]int{a, b}] {
					continue
				}
				seen[[2]int{a, b}] = true
				adj[a] = append(adj[a], b)
				adj[b] = append(adj[b], a)
			}
		}
	}
	return adj
}

func validatePartition(cellToPart []int, numParts int) error {
	counts := make([]int, numParts)
	for c, p := range cellToPart {
		if p < 0 || p >= numParts {
			return fmt.Errorf("cell %d assigned to invalid partition %d", c, p)
		}
		counts[p]++
	}
	for p, n := range counts {
		if n == 0 {
			return fmt.Errorf("partition %d received no cells", p)
		}
	}
	return nil
}
