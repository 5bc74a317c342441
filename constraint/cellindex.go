package constraint

import (
	"github.com/nodalfem/mpckit/mesh"
)

// CellIndex maps cells to the local slave dofs appearing in their dof
// blocks, in CSR form. It is built once per table and mesh; cells without
// slaves never enter the condensation path.
type CellIndex struct {
	offsets []int // len NumCells+1
	slaves  []int // local slave dofs, concatenated per cell
	cells   []int // cells with at least one slave
}

// NewCellIndex scans the cell dof blocks of m against the slave set of t.
func NewCellIndex(m *mesh.Mesh, t *Table) *CellIndex {
	ci := &CellIndex{
		offsets: make([]int, 1, m.NumCells+1),
	}
	bs := m.BlockSize
	for c := 0; c < m.NumCells; c++ {
		n := len(ci.slaves)
		for _, b := range m.CellBlocks(c) {
			for k := 0; k < bs; k++ {
				d := b*bs + k
				if t.IsSlave(d) {
					ci.slaves = append(ci.slaves, d)
				}
			}
		}
		ci.offsets = append(ci.offsets, len(ci.slaves))
		if len(ci.slaves) > n {
			ci.cells = append(ci.cells, c)
		}
	}
	return ci
}

// Cells returns the cells containing at least one slave dof, ascending.
func (ci *CellIndex) Cells() []int { return ci.cells }

// CellSlaves returns the local slave dofs of cell c.
func (ci *CellIndex) CellSlaves(c int) []int {
	return ci.slaves[ci.offsets[c]:ci.offsets[c+1]]
}

// HasSlaves reports whether cell c touches any slave dof.
func (ci *CellIndex) HasSlaves(c int) bool {
	return ci.offsets[c+1] > ci.offsets[c]
}
