package backend

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPatternInsertAndHas(t *testing.T) {
	p := NewPattern(4, 4)
	require.NoError(t, p.Insert([]int{0, 2}, []int{1, 3}))

	assert.True(t, p.Has(0, 1))
	assert.True(t, p.Has(2, 3))
	assert.False(t, p.Has(1, 0))
	assert.False(t, p.Has(3, 3))
	assert.Equal(t, 4, p.NNZ())

	// Reinsertion does not inflate the count
	require.NoError(t, p.Insert([]int{0}, []int{1}))
	assert.Equal(t, 4, p.NNZ())
}

func TestPatternRejectsOutOfRange(t *testing.T) {
	p := NewPattern(2, 2)
	if err := p.Insert([]int{2}, []int{0}); err == nil {
		t.Fatal("expected error for out-of-range row")
	}
	if err := p.Insert([]int{0}, []int{-1}); err == nil {
		t.Fatal("expected error for out-of-range col")
	}
}

func TestMatrixAdditiveInsertion(t *testing.T) {
	p := NewPattern(3, 3)
	require.NoError(t, p.Insert([]int{0, 1, 2}, []int{0, 1, 2}))
	m := NewMatrix(p)

	// Cross-cell accumulation: two insertions at the same entry sum
	require.NoError(t, m.AddValue(1, 1, 2.0))
	require.NoError(t, m.AddValue(1, 1, 0.5))
	assert.Equal(t, 2.5, m.At(1, 1))

	block := []float64{
		1, 2,
		3, 4,
	}
	require.NoError(t, m.Add([]int{0, 2}, []int{0, 2}, block))
	assert.Equal(t, 1.0, m.At(0, 0))
	assert.Equal(t, 2.0, m.At(0, 2))
	assert.Equal(t, 3.0, m.At(2, 0))
	assert.Equal(t, 4.0, m.At(2, 2))
}

func TestMatrixFailsFastOutsidePattern(t *testing.T) {
	p := NewPattern(3, 3)
	require.NoError(t, p.Insert([]int{0}, []int{0}))
	m := NewMatrix(p)

	err := m.AddValue(1, 2, 1.0)
	require.Error(t, err)
	var sparsityErr *SparsityError
	require.True(t, errors.As(err, &sparsityErr))
	assert.Equal(t, 1, sparsityErr.Row)
	assert.Equal(t, 2, sparsityErr.Col)

	// Structural zeros outside the pattern are dropped, not rejected
	require.NoError(t, m.AddValue(1, 2, 0.0))
}

func TestMatrixSetValueAndZeroRowsColumns(t *testing.T) {
	p := NewPattern(3, 3)
	require.NoError(t, p.Insert([]int{0, 1, 2}, []int{0, 1, 2}))
	m := NewMatrix(p)
	require.NoError(t, m.Add([]int{0, 1, 2}, []int{0, 1, 2}, []float64{
		1, 2, 3,
		4, 5, 6,
		7, 8, 9,
	}))

	m.ZeroRowsColumns([]int{1})
	require.NoError(t, m.SetValue(1, 1, 3.5))

	// Row and column 1 carry exactly the overwritten diagonal
	assert.Equal(t, 3.5, m.At(1, 1))
	assert.Equal(t, 0.0, m.At(1, 0))
	assert.Equal(t, 0.0, m.At(1, 2))
	assert.Equal(t, 0.0, m.At(0, 1))
	assert.Equal(t, 0.0, m.At(2, 1))
	// Other entries untouched
	assert.Equal(t, 1.0, m.At(0, 0))
	assert.Equal(t, 9.0, m.At(2, 2))

	// Overwrite replaces rather than accumulates
	require.NoError(t, m.SetValue(0, 0, -1))
	assert.Equal(t, -1.0, m.At(0, 0))

	// Overwrite outside the pattern is rejected
	p2 := NewPattern(2, 2)
	require.NoError(t, p2.Insert([]int{0}, []int{0}))
	m2 := NewMatrix(p2)
	err := m2.SetValue(1, 1, 1)
	require.Error(t, err)
	var sparsityErr *SparsityError
	assert.True(t, errors.As(err, &sparsityErr))
}

func TestMatrixEqual(t *testing.T) {
	p := NewPattern(2, 2)
	require.NoError(t, p.Insert([]int{0, 1}, []int{0, 1}))

	a := NewMatrix(p)
	b := NewMatrix(p)
	require.NoError(t, a.AddValue(0, 1, 3.0))
	require.NoError(t, b.AddValue(0, 1, 3.0))
	assert.True(t, a.Equal(b))

	require.NoError(t, b.AddValue(1, 0, 1e-300))
	assert.False(t, a.Equal(b))
}

func TestSolve(t *testing.T) {
	p := NewPattern(2, 2)
	require.NoError(t, p.Insert([]int{0, 1}, []int{0, 1}))
	a := NewMatrix(p)
	// [[2,1],[1,3]] x = [3,5] -> x = [4/5, 7/5]
	require.NoError(t, a.AddValue(0, 0, 2))
	require.NoError(t, a.AddValue(0, 1, 1))
	require.NoError(t, a.AddValue(1, 0, 1))
	require.NoError(t, a.AddValue(1, 1, 3))

	b := NewVector(2)
	b.Set(0, 3)
	b.Set(1, 5)

	x, err := Solve(a, b)
	require.NoError(t, err)
	assert.InDelta(t, 0.8, x.At(0), 1e-12)
	assert.InDelta(t, 1.4, x.At(1), 1e-12)
}

func TestSolveRejectsNonSquare(t *testing.T) {
	p := NewPattern(2, 3)
	m := NewMatrix(p)
	if _, err := Solve(m, NewVector(3)); err == nil {
		t.Fatal("expected error for non-square matrix")
	}
}

func TestVectorOps(t *testing.T) {
	v := NewVector(3)
	v.Set(0, 1)
	v.Add(0, 2)
	assert.Equal(t, 3.0, v.At(0))

	w := v.Copy()
	w.Set(1, 5)
	assert.Equal(t, 0.0, v.At(1))

	require.NoError(t, v.AXPY(2, w))
	assert.Equal(t, 9.0, v.At(0))
	assert.Equal(t, 10.0, v.At(1))

	v.Zero()
	assert.Equal(t, 0.0, v.At(0))
}
