package assemble

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/nodalfem/mpckit/backend"
	"github.com/nodalfem/mpckit/constraint"
)

// condenseCellMatrix eliminates the slave rows and columns of the element
// matrix ae and redistributes their contribution onto master dofs with
// additive insertions into mtx. ae is modified in place: on return every
// slave row and column is zero, and the caller inserts the delta against
// its pre-condensation copy through the standard local-block path.
//
// dofs holds the cell's local scalar dofs (length n matching ae), and
// cellSlaves the slave dofs present in the cell.
func condenseCellMatrix(mtx *backend.Matrix, ae *mat.Dense, dofs []int, t *constraint.Table, cellSlaves []int) error {
	n := len(dofs)

	// Local position of each cell slave inside dofs, and the flattened
	// master count.
	localPos := make([]int, len(cellSlaves))
	numFlattened := 0
	for i, s := range cellSlaves {
		pos := -1
		for p, d := range dofs {
			if d == s {
				pos = p
				break
			}
		}
		if pos < 0 {
			return fmt.Errorf("slave dof %d not found in cell dofs", s)
		}
		localPos[i] = pos
		si, ok := t.SlaveIndex(s)
		if !ok {
			return fmt.Errorf("dof %d is not in the constraint table", s)
		}
		masters, _ := t.Masters(si)
		numFlattened += len(masters)
	}

	// aeOrig keeps the untouched element matrix; aeStripped zeroes only
	// the entries whose both endpoints are slaves, retaining the
	// slave/non-slave couplings to be redistributed.
	aeOrig := mat.DenseCopyOf(ae)
	aeStripped := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		si := t.IsSlave(dofs[i])
		for j := 0; j < n; j++ {
			if si && t.IsSlave(dofs[j]) {
				continue
			}
			aeStripped.Set(i, j, aeOrig.At(i, j))
		}
	}

	// Flatten every (slave position, master, coefficient) triple of the cell.
	fPos := make([]int, 0, numFlattened)
	fMaster := make([]int, 0, numFlattened)
	fCoeff := make([]float64, 0, numFlattened)
	for i, s := range cellSlaves {
		si, _ := t.SlaveIndex(s)
		masters, coeffs := t.Masters(si)
		for j := range masters {
			fPos = append(fPos, localPos[i])
			fMaster = append(fMaster, masters[j])
			fCoeff = append(fCoeff, coeffs[j])
		}
	}

	for i := 0; i < numFlattened; i++ {
		pos, master, coeff := fPos[i], fMaster[i], fCoeff[i]

		// The slave's row and column leave the local block entirely.
		for p := 0; p < n; p++ {
			ae.Set(p, pos, 0)
			ae.Set(pos, p, 0)
		}

		// Redistribute the slave's column and row onto the master. Entries
		// at other slave positions are identically zero after stripping and
		// are skipped to keep insertions within the extended pattern.
		for p := 0; p < n; p++ {
			if t.IsSlave(dofs[p]) {
				continue
			}
			if err := mtx.AddValue(dofs[p], master, coeff*aeStripped.At(p, pos)); err != nil {
				return err
			}
			if err := mtx.AddValue(master, dofs[p], coeff*aeStripped.At(pos, p)); err != nil {
				return err
			}
		}

		// Self coupling
		if err := mtx.AddValue(master, master, coeff*coeff*aeOrig.At(pos, pos)); err != nil {
			return err
		}

		// Cross-master coupling: two slaves of the same cell interacting
		// through the original stiffness term couple their masters.
		for j := 0; j < numFlattened; j++ {
			if j == i {
				continue
			}
			v := coeff * fCoeff[j] * aeOrig.At(pos, fPos[j])
			if err := mtx.AddValue(master, fMaster[j], v); err != nil {
				return err
			}
		}
	}
	return nil
}

// condenseCellVector is the single-dimension analogue: each slave entry of
// be is redistributed to its masters with additive insertions into vec and
// zeroed in place.
func condenseCellVector(vec *backend.Vector, be []float64, dofs []int, t *constraint.Table, cellSlaves []int) error {
	for _, s := range cellSlaves {
		pos := -1
		for p, d := range dofs {
			if d == s {
				pos = p
				break
			}
		}
		if pos < 0 {
			return fmt.Errorf("slave dof %d not found in cell dofs", s)
		}
		si, ok := t.SlaveIndex(s)
		if !ok {
			return fmt.Errorf("dof %d is not in the constraint table", s)
		}
		masters, coeffs := t.Masters(si)
		for j, m := range masters {
			vec.Add(m, coeffs[j]*be[pos])
		}
		be[pos] = 0
	}
	return nil
}
