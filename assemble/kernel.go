// Package assemble drives constrained finite-element assembly: it runs the
// numerical kernel over cells and exterior facets, composes essential
// boundary masking with multi-point-constraint condensation, and inserts
// the results into the global system through the backend's additive
// interface.
package assemble

// CellKernel tabulates the element tensor of one cell into dst, which the
// caller provides zeroed: (ndofs*blockSize)^2 values in row-major order for
// a matrix form, ndofs*blockSize values for a vector form. coeffs holds the
// packed per-cell coefficient values and constants the form constants;
// geometry holds the cell's nodal coordinates.
type CellKernel func(dst, coeffs, constants, geometry []float64)

// FacetKernel is the exterior-facet variant of CellKernel. localFacet is
// the facet's number within the cell and perm its orientation permutation.
type FacetKernel func(dst, coeffs, constants, geometry []float64, localFacet int, perm uint8)

// Form bundles the kernels and data of one variational form. Facet may be
// nil when the form has no exterior-facet integral. Coefficients is indexed
// per cell; nil means the form takes no coefficients.
type Form struct {
	Cell         CellKernel
	Facet        FacetKernel
	Coefficients [][]float64
	Constants    []float64
}

func (f *Form) cellCoeffs(c int) []float64 {
	if f.Coefficients == nil {
		return nil
	}
	return f.Coefficients[c]
}
