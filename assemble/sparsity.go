package assemble

import (
	"fmt"

	"github.com/bits-and-blooms/bitset"

	"github.com/nodalfem/mpckit/backend"
	"github.com/nodalfem/mpckit/constraint"
	"github.com/nodalfem/mpckit/mesh"
)

// BuildPattern computes the sparsity pattern of a constrained assembly: the
// unconstrained cell-local couplings, the fill-in condensation introduces,
// and the placeholder diagonals for slave and boundary dofs.
//
// For every cell with k>=1 slaves the effective column set is the cell's
// non-slave dofs joined with the masters of each cell slave; condensation
// writes into every pair of that set, including master-master pairs between
// masters of different slaves, so the full cross product is inserted.
func BuildPattern(m *mesh.Mesh, t *constraint.Table, ci *constraint.CellIndex, boundary *bitset.BitSet) (*backend.Pattern, error) {
	n := m.NumDofs()
	p := backend.NewPattern(n, n)

	nd := m.DofsPerCell * m.BlockSize
	dofs := make([]int, nd)
	for c := 0; c < m.NumCells; c++ {
		m.CellScalarDofs(c, dofs)
		if err := p.Insert(dofs, dofs); err != nil {
			return nil, fmt.Errorf("cell %d: %w", c, err)
		}
	}

	for _, c := range ci.Cells() {
		m.CellScalarDofs(c, dofs)
		set := expandedDofSet(dofs, t, ci.CellSlaves(c))
		if err := p.Insert(set, set); err != nil {
			return nil, fmt.Errorf("cell %d constraint fill-in: %w", c, err)
		}
	}

	diag := make([]int, 1)
	for _, s := range t.Slaves() {
		diag[0] = s
		if err := p.Insert(diag, diag); err != nil {
			return nil, err
		}
	}
	if boundary != nil {
		for d, ok := boundary.NextSet(0); ok; d, ok = boundary.NextSet(d + 1) {
			diag[0] = int(d)
			if err := p.Insert(diag, diag); err != nil {
				return nil, err
			}
		}
	}
	return p, nil
}

// expandedDofSet returns the cell's non-slave dofs joined with the masters
// of every cell slave, deduplicated.
func expandedDofSet(dofs []int, t *constraint.Table, cellSlaves []int) []int {
	seen := make(map[int]struct{}, len(dofs))
	set := make([]int, 0, len(dofs))
	add := func(d int) {
		if _, ok := seen[d]; !ok {
			seen[d] = struct{}{}
			set = append(set, d)
		}
	}
	for _, d := range dofs {
		if !t.IsSlave(d) {
			add(d)
		}
	}
	for _, s := range cellSlaves {
		i, ok := t.SlaveIndex(s)
		if !ok {
			continue
		}
		masters, _ := t.Masters(i)
		for _, md := range masters {
			add(md)
		}
	}
	return set
}
