package constraint

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// TransformationMatrix builds the dense reduction matrix K of shape
// (dim, dim-numSlaves) mapping reduced dofs to full dofs: identity on
// non-slave rows, and for each slave row the master coefficients placed in
// the columns of the corresponding reduced dofs.
//
// For dim=3 with u_1 = alpha*u_0 + beta*u_2:
//
//	K = [[1, 0], [alpha, beta], [0, 1]]
//
// It is the reference operator for the equivalence property
// Kᵀ·A_full·K == A_reduced and is intended for verification on a single
// rank, where local and global numbering coincide.
func TransformationMatrix(t *Table, dim int) (*mat.Dense, error) {
	ns := t.NumSlaves()
	if dim <= ns {
		return nil, fmt.Errorf("dimension %d too small for %d slaves", dim, ns)
	}

	// reduced[d] is the column of non-slave dof d: its index minus the
	// number of slaves below it
	reduced := make([]int, dim)
	count := 0
	for d := 0; d < dim; d++ {
		if t.IsSlave(d) {
			reduced[d] = -1
			count++
		} else {
			reduced[d] = d - count
		}
	}

	k := mat.NewDense(dim, dim-ns, nil)
	for d := 0; d < dim; d++ {
		if !t.IsSlave(d) {
			k.Set(d, reduced[d], 1)
			continue
		}
		i, _ := t.SlaveIndex(d)
		masters, coeffs := t.Masters(i)
		for j, m := range masters {
			if reduced[m] < 0 {
				return nil, configErrorf("master %d of slave %d is itself a slave", m, d)
			}
			k.Set(d, reduced[m], coeffs[j])
		}
	}
	return k, nil
}
