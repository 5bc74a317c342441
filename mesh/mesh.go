package mesh

import (
	"fmt"
)

// Facet identifies one exterior facet by owning cell and the facet's local
// number within that cell, together with its orientation permutation.
type Facet struct {
	Cell       int
	LocalFacet int
	Perm       uint8
}

// Mesh carries the cell connectivity and geometry a finite-element assembly
// needs: a fixed-width cell to dof-block map, nodal coordinates, and the
// exterior facet list. Dof blocks pack BlockSize vector components, so
// scalar dof d = block*BlockSize + component.
type Mesh struct {
	// Connectivity
	NumCells    int
	DofsPerCell int   // Dof blocks per cell
	CellDofs    []int // [NumCells*DofsPerCell] cell -> dof block, local numbering
	BlockSize   int

	// Geometry
	GeomDim int
	Coords  []float64 // [numNodes*GeomDim] nodal coordinates; node i == dof block i

	// Exterior boundary
	Facets []Facet

	// Dof block distribution
	Index *IndexMap
}

// Validate checks the structural consistency of the mesh.
func (m *Mesh) Validate() error {
	if m.NumCells < 0 || m.DofsPerCell <= 0 {
		return fmt.Errorf("invalid mesh dimensions: NumCells=%d, DofsPerCell=%d", m.NumCells, m.DofsPerCell)
	}
	if m.BlockSize <= 0 {
		return fmt.Errorf("invalid block size %d", m.BlockSize)
	}
	if len(m.CellDofs) != m.NumCells*m.DofsPerCell {
		return fmt.Errorf("CellDofs length %d does not match NumCells*DofsPerCell=%d",
			len(m.CellDofs), m.NumCells*m.DofsPerCell)
	}
	if m.Index == nil {
		return fmt.Errorf("mesh has no index map")
	}
	nBlocks := m.Index.Size()
	for i, b := range m.CellDofs {
		if b < 0 || b >= nBlocks {
			return fmt.Errorf("cell %d: dof block %d out of range [0,%d)", i/m.DofsPerCell, b, nBlocks)
		}
	}
	for i, f := range m.Facets {
		if f.Cell < 0 || f.Cell >= m.NumCells {
			return fmt.Errorf("facet %d: cell %d out of range", i, f.Cell)
		}
	}
	return nil
}

// NumDofs returns the number of locally addressable scalar dofs.
func (m *Mesh) NumDofs() int { return m.Index.Size() * m.BlockSize }

// CellBlocks returns the dof blocks of cell c.
func (m *Mesh) CellBlocks(c int) []int {
	return m.CellDofs[c*m.DofsPerCell : (c+1)*m.DofsPerCell]
}

// CellScalarDofs expands the dof blocks of cell c into scalar dof indices,
// writing into dst which must have length DofsPerCell*BlockSize.
func (m *Mesh) CellScalarDofs(c int, dst []int) {
	blocks := m.CellBlocks(c)
	for i, b := range blocks {
		for k := 0; k < m.BlockSize; k++ {
			dst[i*m.BlockSize+k] = b*m.BlockSize + k
		}
	}
}

// CellGeometry writes the nodal coordinates of cell c into dst, which must
// have length DofsPerCell*GeomDim.
func (m *Mesh) CellGeometry(c int, dst []float64) {
	blocks := m.CellBlocks(c)
	for i, b := range blocks {
		copy(dst[i*m.GeomDim:(i+1)*m.GeomDim], m.Coords[b*m.GeomDim:(b+1)*m.GeomDim])
	}
}

// NodeCoords returns the coordinates of node (dof block) b.
func (m *Mesh) NodeCoords(b int) []float64 {
	return m.Coords[b*m.GeomDim : (b+1)*m.GeomDim]
}

// BlocksWhere returns the dof blocks whose coordinates satisfy pred.
func (m *Mesh) BlocksWhere(pred func(x []float64) bool) []int {
	var out []int
	for b := 0; b < m.Index.Size(); b++ {
		if pred(m.NodeCoords(b)) {
			out = append(out, b)
		}
	}
	return out
}

// DofsWhere returns the scalar dofs of all blocks whose coordinates satisfy
// pred, expanding every component of a matching block.
func (m *Mesh) DofsWhere(pred func(x []float64) bool) []int {
	var out []int
	for _, b := range m.BlocksWhere(pred) {
		for k := 0; k < m.BlockSize; k++ {
			out = append(out, b*m.BlockSize+k)
		}
	}
	return out
}

// BlockNear returns the single dof block closest to the given point. It is
// the lookup used to turn coordinate-based constraint specifications into
// dof indices.
func (m *Mesh) BlockNear(x []float64) (int, error) {
	if len(x) != m.GeomDim {
		return -1, fmt.Errorf("point dimension %d does not match mesh dimension %d", len(x), m.GeomDim)
	}
	best, bestDist := -1, 0.0
	for b := 0; b < m.Index.Size(); b++ {
		c := m.NodeCoords(b)
		d := 0.0
		for i := range x {
			diff := c[i] - x[i]
			d += diff * diff
		}
		if best < 0 || d < bestDist {
			best, bestDist = b, d
		}
	}
	if best < 0 {
		return -1, fmt.Errorf("mesh has no dof blocks")
	}
	return best, nil
}
