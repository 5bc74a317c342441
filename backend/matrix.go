package backend

import (
	"fmt"

	"github.com/james-bowman/sparse"
	"gonum.org/v1/gonum/mat"
)

// SparsityError reports an additive insertion outside the preallocated
// pattern. Assembly treats it as fatal.
type SparsityError struct {
	Row, Col int
}

func (e *SparsityError) Error() string {
	return fmt.Sprintf("insertion target (%d,%d) missing from sparsity pattern", e.Row, e.Col)
}

// Matrix is a sparse matrix with additive insertion semantics restricted to
// a prebuilt pattern. Values accumulate in a DOK store and convert to CSR
// once assembly finishes.
type Matrix struct {
	pattern      *Pattern
	dok          *sparse.DOK
	nrows, ncols int
}

// NewMatrix allocates a zero matrix over the given pattern.
func NewMatrix(p *Pattern) *Matrix {
	r, c := p.Dims()
	return &Matrix{
		pattern: p,
		dok:     sparse.NewDOK(r, c),
		nrows:   r,
		ncols:   c,
	}
}

// Dims returns the matrix dimensions.
func (m *Matrix) Dims() (int, int) { return m.nrows, m.ncols }

// At returns the value at (i, j).
func (m *Matrix) At(i, j int) float64 { return m.dok.At(i, j) }

// AddValue adds v at (i, j). Zero values outside the pattern are dropped
// rather than rejected, matching the behavior of backends that filter
// structural zeros.
func (m *Matrix) AddValue(i, j int, v float64) error {
	if !m.pattern.Has(i, j) {
		if v == 0 {
			return nil
		}
		return &SparsityError{Row: i, Col: j}
	}
	m.dok.Set(i, j, m.dok.At(i, j)+v)
	return nil
}

// SetValue overwrites the value at (i, j), which must be in the pattern.
func (m *Matrix) SetValue(i, j int, v float64) error {
	if !m.pattern.Has(i, j) {
		return &SparsityError{Row: i, Col: j}
	}
	m.dok.Set(i, j, v)
	return nil
}

// ZeroRowsColumns clears every stored entry whose row or column appears in
// dofs. The pattern is unchanged.
func (m *Matrix) ZeroRowsColumns(dofs []int) {
	in := make(map[int]struct{}, len(dofs))
	for _, d := range dofs {
		in[d] = struct{}{}
	}
	type coord struct{ i, j int }
	var hits []coord
	m.dok.DoNonZero(func(i, j int, _ float64) {
		if _, ok := in[i]; ok {
			hits = append(hits, coord{i, j})
			return
		}
		if _, ok := in[j]; ok {
			hits = append(hits, coord{i, j})
		}
	})
	for _, c := range hits {
		m.dok.Set(c.i, c.j, 0)
	}
}

// Add performs a dense block insertion: vals is row-major of shape
// len(rows) x len(cols) and every value accumulates at the corresponding
// (row, col) pair.
func (m *Matrix) Add(rows, cols []int, vals []float64) error {
	if len(vals) != len(rows)*len(cols) {
		return fmt.Errorf("block insertion: %d values for %dx%d block", len(vals), len(rows), len(cols))
	}
	for a, i := range rows {
		for b, j := range cols {
			if err := m.AddValue(i, j, vals[a*len(cols)+b]); err != nil {
				return err
			}
		}
	}
	return nil
}

// NNZ returns the number of stored entries.
func (m *Matrix) NNZ() int { return m.dok.NNZ() }

// ToCSR converts the accumulated values to compressed sparse row form.
func (m *Matrix) ToCSR() *sparse.CSR { return m.dok.ToCSR() }

// Dense expands the matrix into a gonum dense matrix.
func (m *Matrix) Dense() *mat.Dense {
	d := mat.NewDense(m.nrows, m.ncols, nil)
	m.dok.DoNonZero(func(i, j int, v float64) {
		d.Set(i, j, v)
	})
	return d
}

// Equal reports whether two matrices hold bit-identical values entry by
// entry, regardless of stored-zero structure.
func (m *Matrix) Equal(o *Matrix) bool {
	if m.nrows != o.nrows || m.ncols != o.ncols {
		return false
	}
	same := true
	m.dok.DoNonZero(func(i, j int, v float64) {
		if o.dok.At(i, j) != v {
			same = false
		}
	})
	o.dok.DoNonZero(func(i, j int, v float64) {
		if m.dok.At(i, j) != v {
			same = false
		}
	})
	return same
}
