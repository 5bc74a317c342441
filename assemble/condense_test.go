package assemble

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nodalfem/mpckit/backend"
	"github.com/nodalfem/mpckit/constraint"
	"github.com/nodalfem/mpckit/mesh"
)

// singleCellMesh builds a one-cell mesh with four dof blocks, used to pin
// down condensation against a hand-written element matrix.
func singleCellMesh(t *testing.T) *mesh.Mesh {
	t.Helper()
	m := &mesh.Mesh{
		NumCells:    1,
		DofsPerCell: 4,
		CellDofs:    []int{0, 1, 2, 3},
		BlockSize:   1,
		GeomDim:     1,
		Coords:      []float64{0, 1, 2, 3},
		Index:       mesh.SerialIndexMap(4),
	}
	require.NoError(t, m.Validate())
	return m
}

func TestCrossMasterCoupling(t *testing.T) {
	// Two slaves in one cell with distinct masters: the only path between
	// master 0 and master 3 is the cross-master term
	// coeff_a * coeff_b * Ae[slave_a, slave_b].
	const (
		coeffA = 0.5  // slave 1 -> master 0
		coeffB = 0.25 // slave 2 -> master 3
		cross  = 7.0  // Ae[1,2] = Ae[2,1]
	)

	// Element matrix: diagonal plus the slave-slave interaction only, so
	// every other path to (0,3) is zero.
	ae := []float64{
		1, 0, 0, 0,
		0, 2, cross, 0,
		0, cross, 3, 0,
		0, 0, 0, 4,
	}
	kern := func(dst, _, _, _ []float64) { copy(dst, ae) }

	m := singleCellMesh(t)
	table, err := constraint.NewTable(m.Index, 1, []constraint.Constraint{
		{Slave: 1, Masters: []int{0}, Coeffs: []float64{coeffA}},
		{Slave: 2, Masters: []int{3}, Coeffs: []float64{coeffB}},
	})
	require.NoError(t, err)

	asm, err := NewAssembler(m, table)
	require.NoError(t, err)
	a, err := asm.Matrix(Form{Cell: kern})
	require.NoError(t, err)

	// Cross-master coupling, both orientations
	assert.Equal(t, coeffA*coeffB*cross, a.At(0, 3))
	assert.Equal(t, coeffB*coeffA*cross, a.At(3, 0))

	// Master self couplings: original diagonal plus c^2 * Ae[slave,slave]
	assert.Equal(t, 1+coeffA*coeffA*2, a.At(0, 0))
	assert.Equal(t, 4+coeffB*coeffB*3, a.At(3, 3))

	// Slave rows and columns reduce to the placeholder diagonal
	for _, s := range []int{1, 2} {
		for j := 0; j < 4; j++ {
			if j == s {
				assert.Equal(t, 1.0, a.At(s, s))
				continue
			}
			assert.Equal(t, 0.0, a.At(s, j), "slave row (%d,%d)", s, j)
			assert.Equal(t, 0.0, a.At(j, s), "slave col (%d,%d)", j, s)
		}
	}
}

func TestCondensationRedistributesSlaveRow(t *testing.T) {
	// One slave whose row couples to a non-slave dof: the coupling must
	// move to the master row/column scaled by the coefficient.
	const c = 0.5
	ae := []float64{
		4, 1, 0, 0,
		1, 5, 2, 0,
		0, 2, 6, 0,
		0, 0, 0, 7,
	}
	kern := func(dst, _, _, _ []float64) { copy(dst, ae) }

	m := singleCellMesh(t)
	table, err := constraint.NewTable(m.Index, 1, []constraint.Constraint{
		{Slave: 1, Masters: []int{3}, Coeffs: []float64{c}},
	})
	require.NoError(t, err)

	asm, err := NewAssembler(m, table)
	require.NoError(t, err)
	a, err := asm.Matrix(Form{Cell: kern})
	require.NoError(t, err)

	// Ae[0,1]=1 moves to (0,3) and (3,0) scaled by c; Ae[2,1]=2 likewise
	assert.Equal(t, c*1.0, a.At(0, 3))
	assert.Equal(t, c*1.0, a.At(3, 0))
	assert.Equal(t, c*2.0, a.At(2, 3))
	assert.Equal(t, c*2.0, a.At(3, 2))
	// Master diagonal gains c^2 * Ae[1,1]
	assert.Equal(t, 7+c*c*5, a.At(3, 3))
	// Untouched block stays put
	assert.Equal(t, 4.0, a.At(0, 0))
	assert.Equal(t, 6.0, a.At(2, 2))
}

func TestVectorCondensation(t *testing.T) {
	const c1, c2 = 0.5, -2.0
	be := []float64{10, 20, 30, 40}
	kern := func(dst, _, _, _ []float64) { copy(dst, be) }

	m := singleCellMesh(t)
	table, err := constraint.NewTable(m.Index, 1, []constraint.Constraint{
		{Slave: 1, Masters: []int{0, 3}, Coeffs: []float64{c1, c2}},
	})
	require.NoError(t, err)

	asm, err := NewAssembler(m, table)
	require.NoError(t, err)
	b, err := asm.Vector(Form{Cell: kern})
	require.NoError(t, err)

	assert.Equal(t, 10+c1*20, b.At(0))
	assert.Equal(t, 0.0, b.At(1))
	assert.Equal(t, 30.0, b.At(2))
	assert.Equal(t, 40+c2*20, b.At(3))
}

func TestCondenseVectorDirect(t *testing.T) {
	im := mesh.SerialIndexMap(4)
	table, err := constraint.NewTable(im, 1, []constraint.Constraint{
		{Slave: 2, Masters: []int{0}, Coeffs: []float64{3}},
	})
	require.NoError(t, err)

	vec := backend.NewVector(4)
	be := []float64{1, 2, 5, 4}
	dofs := []int{0, 1, 2, 3}

	require.NoError(t, condenseCellVector(vec, be, dofs, table, []int{2}))
	assert.Equal(t, 15.0, vec.At(0))
	assert.Equal(t, 0.0, be[2])
	assert.Equal(t, 1.0, be[0])
}
