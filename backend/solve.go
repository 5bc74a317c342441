package backend

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Solve computes x with A*x = b by dense LU factorization. The assembled
// systems this package targets are the reduced systems of moderate size
// produced per rank; iterative solvers plug in behind the same signature.
func Solve(a *Matrix, b *Vector) (*Vector, error) {
	n, c := a.Dims()
	if n != c {
		return nil, fmt.Errorf("solve requires a square matrix, got %dx%d", n, c)
	}
	if b.Len() < n {
		return nil, fmt.Errorf("right-hand side length %d below matrix dimension %d", b.Len(), n)
	}

	var lu mat.LU
	lu.Factorize(a.Dense())

	rhs := mat.NewVecDense(n, b.Data()[:n:n])
	var sol mat.VecDense
	if err := lu.SolveVecTo(&sol, false, rhs); err != nil {
		return nil, fmt.Errorf("LU solve failed: %w", err)
	}

	x := NewVector(b.Len())
	for i := 0; i < n; i++ {
		x.Set(i, sol.AtVec(i))
	}
	return x, nil
}
