// Package backend provides the linear-algebra surface used by the assembly
// core: a sparsity pattern builder, a pattern-checked additive sparse
// matrix, distributed-layout vectors, and a direct solve for the reduced
// system.
package backend

import "fmt"

// Pattern accumulates the nonzero structure of a matrix before allocation.
// Insertions into the assembled matrix outside the pattern fail fast.
type Pattern struct {
	nrows, ncols int
	rows         []map[int]struct{}
	nnz          int
}

// NewPattern creates an empty pattern of the given dimensions.
func NewPattern(nrows, ncols int) *Pattern {
	return &Pattern{
		nrows: nrows,
		ncols: ncols,
		rows:  make([]map[int]struct{}, nrows),
	}
}

// Dims returns the pattern dimensions.
func (p *Pattern) Dims() (int, int) { return p.nrows, p.ncols }

// NNZ returns the number of distinct entries inserted so far.
func (p *Pattern) NNZ() int { return p.nnz }

// Insert records every (row, col) pair of the cross product rows x cols.
func (p *Pattern) Insert(rows, cols []int) error {
	for _, i := range rows {
		if i < 0 || i >= p.nrows {
			return fmt.Errorf("pattern row %d out of range [0,%d)", i, p.nrows)
		}
		if p.rows[i] == nil {
			p.rows[i] = make(map[int]struct{}, len(cols))
		}
		for _, j := range cols {
			if j < 0 || j >= p.ncols {
				return fmt.Errorf("pattern col %d out of range [0,%d)", j, p.ncols)
			}
			if _, ok := p.rows[i][j]; !ok {
				p.rows[i][j] = struct{}{}
				p.nnz++
			}
		}
	}
	return nil
}

// Has reports whether (i, j) is part of the pattern.
func (p *Pattern) Has(i, j int) bool {
	if i < 0 || i >= p.nrows {
		return false
	}
	_, ok := p.rows[i][j]
	return ok
}
