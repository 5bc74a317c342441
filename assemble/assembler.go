package assemble

import (
	"fmt"
	"time"

	"github.com/bits-and-blooms/bitset"
	"gonum.org/v1/gonum/mat"

	"github.com/nodalfem/mpckit/backend"
	"github.com/nodalfem/mpckit/constraint"
	"github.com/nodalfem/mpckit/logger"
	"github.com/nodalfem/mpckit/mesh"
)

// Assembler drives constrained assembly over one mesh partition. The
// unconstrained local block of every cell is inserted through the cheap
// path; cells listed in the constraint cell index additionally run the
// condensation engine and insert its delta.
type Assembler struct {
	mesh      *mesh.Mesh
	table     *constraint.Table
	cellIndex *constraint.CellIndex
	boundary  *bitset.BitSet
	diag      float64
}

// Option configures an Assembler.
type Option func(*options)

type options struct {
	boundaryDofs []int
	diag         float64
}

// WithBoundaryDofs marks local scalar dofs as essential (Dirichlet)
// boundary dofs; their rows and columns are zeroed before condensation and
// their diagonals receive the placeholder value.
func WithBoundaryDofs(dofs []int) Option {
	return func(o *options) { o.boundaryDofs = dofs }
}

// WithDiagonal sets the placeholder value written at slave and boundary dof
// diagonals. Default 1.
func WithDiagonal(v float64) Option {
	return func(o *options) { o.diag = v }
}

// NewAssembler validates the mesh/table pair and precomputes the cell
// constraint index. A master dof that is also a boundary dof has undefined
// elimination semantics and is rejected.
func NewAssembler(m *mesh.Mesh, t *constraint.Table, opts ...Option) (*Assembler, error) {
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("invalid mesh: %w", err)
	}
	o := options{diag: 1}
	for _, opt := range opts {
		opt(&o)
	}

	boundary := bitset.New(uint(m.NumDofs()))
	for _, d := range o.boundaryDofs {
		if d < 0 || d >= m.NumDofs() {
			return nil, fmt.Errorf("boundary dof %d out of range [0,%d)", d, m.NumDofs())
		}
		boundary.Set(uint(d))
	}

	for i := 0; i < t.NumSlaves(); i++ {
		masters, _ := t.Masters(i)
		for _, md := range masters {
			if boundary.Test(uint(md)) {
				return nil, &constraint.ConfigurationError{
					Msg: fmt.Sprintf("master dof %d is also a Dirichlet boundary dof", md),
				}
			}
		}
	}

	return &Assembler{
		mesh:      m,
		table:     t,
		cellIndex: constraint.NewCellIndex(m, t),
		boundary:  boundary,
		diag:      o.diag,
	}, nil
}

// CellIndex exposes the precomputed cell-to-slaves adjacency.
func (a *Assembler) CellIndex() *constraint.CellIndex { return a.cellIndex }

// Matrix assembles the bilinear form into a freshly allocated matrix with
// slave rows and columns condensed onto masters and the placeholder
// diagonal written at slave and boundary dofs.
func (a *Assembler) Matrix(f Form) (*backend.Matrix, error) {
	start := time.Now()

	pattern, err := BuildPattern(a.mesh, a.table, a.cellIndex, a.boundary)
	if err != nil {
		return nil, err
	}
	mtx := backend.NewMatrix(pattern)

	m := a.mesh
	nd := m.DofsPerCell * m.BlockSize
	ae := make([]float64, nd*nd)
	geom := make([]float64, m.DofsPerCell*m.GeomDim)
	dofs := make([]int, nd)

	// Unconstrained pass over every cell
	for c := 0; c < m.NumCells; c++ {
		a.tabulateCell(f, c, ae, geom)
		m.CellScalarDofs(c, dofs)
		a.maskMatrix(ae, dofs)
		if err := mtx.Add(dofs, dofs, ae); err != nil {
			return nil, fmt.Errorf("cell %d: %w", c, err)
		}
	}
	if f.Facet != nil {
		for fi, facet := range m.Facets {
			a.tabulateFacet(f, facet, ae, geom)
			m.CellScalarDofs(facet.Cell, dofs)
			a.maskMatrix(ae, dofs)
			if err := mtx.Add(dofs, dofs, ae); err != nil {
				return nil, fmt.Errorf("facet %d: %w", fi, err)
			}
		}
	}

	// Condensation delta for constrained cells only
	aeCopy := make([]float64, nd*nd)
	for _, c := range a.cellIndex.Cells() {
		a.tabulateCell(f, c, ae, geom)
		m.CellScalarDofs(c, dofs)
		a.maskMatrix(ae, dofs)
		if err := a.condenseDelta(mtx, ae, aeCopy, dofs, a.cellIndex.CellSlaves(c)); err != nil {
			return nil, fmt.Errorf("cell %d: %w", c, err)
		}
	}
	if f.Facet != nil {
		for fi, facet := range m.Facets {
			if !a.cellIndex.HasSlaves(facet.Cell) {
				continue
			}
			a.tabulateFacet(f, facet, ae, geom)
			m.CellScalarDofs(facet.Cell, dofs)
			a.maskMatrix(ae, dofs)
			if err := a.condenseDelta(mtx, ae, aeCopy, dofs, a.cellIndex.CellSlaves(facet.Cell)); err != nil {
				return nil, fmt.Errorf("facet %d: %w", fi, err)
			}
		}
	}

	// Clear slave and boundary rows/columns outright before writing the
	// placeholder diagonal: the delta pass cancels them only to roundoff
	// when a dof's cells differ in size.
	pinned := make([]int, 0, len(a.table.Slaves()))
	for _, s := range a.table.Slaves() {
		if a.ownedDof(s) {
			pinned = append(pinned, s)
		}
	}
	for d, ok := a.boundary.NextSet(0); ok; d, ok = a.boundary.NextSet(d + 1) {
		if a.ownedDof(int(d)) {
			pinned = append(pinned, int(d))
		}
	}
	mtx.ZeroRowsColumns(pinned)
	for _, d := range pinned {
		if err := mtx.SetValue(d, d, a.diag); err != nil {
			return nil, err
		}
	}

	log := logger.Logger()
	log.Debug().
		Int("cells", m.NumCells).
		Int("constrainedCells", len(a.cellIndex.Cells())).
		Int("nnz", mtx.NNZ()).
		Dur("elapsed", time.Since(start)).
		Msg("assembled constrained matrix")
	return mtx, nil
}

// Vector assembles the linear form into a freshly allocated vector with
// slave entries redistributed onto masters and zeroed.
func (a *Assembler) Vector(f Form) (*backend.Vector, error) {
	start := time.Now()

	m := a.mesh
	vec := backend.NewVector(m.NumDofs())

	nd := m.DofsPerCell * m.BlockSize
	be := make([]float64, nd)
	geom := make([]float64, m.DofsPerCell*m.GeomDim)
	dofs := make([]int, nd)

	for c := 0; c < m.NumCells; c++ {
		a.tabulateCell(f, c, be, geom)
		m.CellScalarDofs(c, dofs)
		a.maskVector(be, dofs)
		for i, d := range dofs {
			vec.Add(d, be[i])
		}
	}
	if f.Facet != nil {
		for _, facet := range m.Facets {
			a.tabulateFacet(f, facet, be, geom)
			m.CellScalarDofs(facet.Cell, dofs)
			a.maskVector(be, dofs)
			for i, d := range dofs {
				vec.Add(d, be[i])
			}
		}
	}

	beCopy := make([]float64, nd)
	condense := func(slaves []int) error {
		copy(beCopy, be)
		if err := condenseCellVector(vec, be, dofs, a.table, slaves); err != nil {
			return err
		}
		for i, d := range dofs {
			vec.Add(d, be[i]-beCopy[i])
		}
		return nil
	}
	for _, c := range a.cellIndex.Cells() {
		a.tabulateCell(f, c, be, geom)
		m.CellScalarDofs(c, dofs)
		a.maskVector(be, dofs)
		if err := condense(a.cellIndex.CellSlaves(c)); err != nil {
			return nil, fmt.Errorf("cell %d: %w", c, err)
		}
	}
	if f.Facet != nil {
		for fi, facet := range m.Facets {
			if !a.cellIndex.HasSlaves(facet.Cell) {
				continue
			}
			a.tabulateFacet(f, facet, be, geom)
			m.CellScalarDofs(facet.Cell, dofs)
			a.maskVector(be, dofs)
			if err := condense(a.cellIndex.CellSlaves(facet.Cell)); err != nil {
				return nil, fmt.Errorf("facet %d: %w", fi, err)
			}
		}
	}

	// Slave entries are cleared outright for the same reason as the matrix
	// rows: the delta pass cancels them only to roundoff.
	for _, s := range a.table.Slaves() {
		if a.ownedDof(s) {
			vec.Set(s, 0)
		}
	}

	log := logger.Logger()
	log.Debug().
		Int("cells", m.NumCells).
		Int("constrainedCells", len(a.cellIndex.Cells())).
		Dur("elapsed", time.Since(start)).
		Msg("assembled constrained vector")
	return vec, nil
}

// condenseDelta runs the condensation engine on a working copy and inserts
// only the difference against the already-inserted unconstrained block.
func (a *Assembler) condenseDelta(mtx *backend.Matrix, ae, aeCopy []float64, dofs, slaves []int) error {
	n := len(dofs)
	copy(aeCopy, ae)
	work := mat.NewDense(n, n, ae)
	if err := condenseCellMatrix(mtx, work, dofs, a.table, slaves); err != nil {
		return err
	}
	for i := range ae {
		ae[i] -= aeCopy[i]
	}
	return mtx.Add(dofs, dofs, ae)
}

func (a *Assembler) tabulateCell(f Form, c int, dst, geom []float64) {
	for i := range dst {
		dst[i] = 0
	}
	a.mesh.CellGeometry(c, geom)
	f.Cell(dst, f.cellCoeffs(c), f.Constants, geom)
}

func (a *Assembler) tabulateFacet(f Form, facet mesh.Facet, dst, geom []float64) {
	for i := range dst {
		dst[i] = 0
	}
	a.mesh.CellGeometry(facet.Cell, geom)
	f.Facet(dst, f.cellCoeffs(facet.Cell), f.Constants, geom, facet.LocalFacet, facet.Perm)
}

// maskMatrix zeroes rows and columns of boundary dofs before condensation
// so essential elimination and constraint elimination compose.
func (a *Assembler) maskMatrix(ae []float64, dofs []int) {
	n := len(dofs)
	for i, d := range dofs {
		if !a.boundary.Test(uint(d)) {
			continue
		}
		for j := 0; j < n; j++ {
			ae[i*n+j] = 0
			ae[j*n+i] = 0
		}
	}
}

func (a *Assembler) maskVector(be []float64, dofs []int) {
	for i, d := range dofs {
		if a.boundary.Test(uint(d)) {
			be[i] = 0
		}
	}
}

func (a *Assembler) ownedDof(d int) bool {
	return a.mesh.Index.IsOwned(d / a.mesh.BlockSize)
}
