// Package constraint holds the multi-point-constraint table: which dofs are
// slaves, which masters carry them, and with what coefficients. A table is
// built once from an explicit specification, validated, and immutable
// thereafter.
package constraint

import (
	"fmt"

	"github.com/bits-and-blooms/bitset"

	"github.com/nodalfem/mpckit/mesh"
)

// ConfigurationError reports a malformed constraint configuration: a slave
// reappearing as a master, a chained or cyclic relation, a master clashing
// with a Dirichlet dof, or unresolved ownership. Always fatal.
type ConfigurationError struct {
	Msg string
}

func (e *ConfigurationError) Error() string {
	return "constraint configuration: " + e.Msg
}

func configErrorf(format string, args ...interface{}) error {
	return &ConfigurationError{Msg: fmt.Sprintf(format, args...)}
}

// Constraint declares one slave dof as an affine combination of masters.
// All indices are global scalar dofs; coefficients carry arbitrary weights.
type Constraint struct {
	Slave   int
	Masters []int
	Coeffs  []float64
}

// Table is the immutable slave/master structure used during assembly and
// backsubstitution. Masters are stored in CSR form parallel to the slave
// order, in local (ghost-extended) dof numbering with per-master owner
// ranks.
type Table struct {
	im        *mesh.IndexMap
	blockSize int

	isSlave *bitset.BitSet
	slaves  []int // local slave dofs, creation order, unique
	offsets []int // CSR offsets, len(slaves)+1
	masters []int // local master dofs
	coeffs  []float64
	owners  []int // owning rank per master

	slaveIndex map[int]int // local slave dof -> position in slaves
}

// NewTable builds and validates a constraint table over the scalar dofs of
// the given index map (blockSize scalar dofs per index-map entry). Every
// slave must be locally known; every master must be locally known as an
// owned or ghost dof. Chained constraints, where a master is itself a slave
// of another relation, are rejected rather than resolved.
func NewTable(im *mesh.IndexMap, blockSize int, spec []Constraint) (*Table, error) {
	if blockSize < 1 {
		return nil, fmt.Errorf("invalid block size %d", blockSize)
	}
	numDofs := im.Size() * blockSize

	t := &Table{
		im:         im,
		blockSize:  blockSize,
		isSlave:    bitset.New(uint(numDofs)),
		offsets:    make([]int, 1, len(spec)+1),
		slaveIndex: make(map[int]int, len(spec)),
	}

	globalToLocal := func(g int) (int, bool) {
		block, comp := g/blockSize, g%blockSize
		lb, ok := im.GlobalToLocal(block)
		if !ok {
			return -1, false
		}
		return lb*blockSize + comp, true
	}

	for _, c := range spec {
		if len(c.Masters) == 0 {
			return nil, configErrorf("slave %d has no masters", c.Slave)
		}
		if len(c.Masters) != len(c.Coeffs) {
			return nil, configErrorf("slave %d: %d masters but %d coefficients",
				c.Slave, len(c.Masters), len(c.Coeffs))
		}
		ls, ok := globalToLocal(c.Slave)
		if !ok {
			return nil, configErrorf("slave %d is not locally known", c.Slave)
		}
		if _, dup := t.slaveIndex[ls]; dup {
			return nil, configErrorf("dof %d constrained twice", c.Slave)
		}

		t.slaveIndex[ls] = len(t.slaves)
		t.slaves = append(t.slaves, ls)
		t.isSlave.Set(uint(ls))

		for j, mg := range c.Masters {
			if mg == c.Slave {
				return nil, configErrorf("dof %d is its own master", c.Slave)
			}
			lm, ok := globalToLocal(mg)
			if !ok {
				return nil, configErrorf("master %d of slave %d is not locally known", mg, c.Slave)
			}
			t.masters = append(t.masters, lm)
			t.coeffs = append(t.coeffs, c.Coeffs[j])
			t.owners = append(t.owners, im.Owner(lm/blockSize))
		}
		t.offsets = append(t.offsets, len(t.masters))
	}

	// Reject chained and cyclic relations: no master may be a slave.
	for _, lm := range t.masters {
		if t.isSlave.Test(uint(lm)) {
			return nil, configErrorf("dof %d is both a master and a slave; chained constraints are not supported",
				t.im.LocalToGlobal(lm/blockSize)*blockSize+lm%blockSize)
		}
	}

	return t, nil
}

// IndexMap returns the dof-block index map the table was built over.
func (t *Table) IndexMap() *mesh.IndexMap { return t.im }

// BlockSize returns the number of scalar dofs per block.
func (t *Table) BlockSize() int { return t.blockSize }

// NumSlaves returns the number of local slave dofs.
func (t *Table) NumSlaves() int { return len(t.slaves) }

// Slaves returns the local slave dofs in creation order.
func (t *Table) Slaves() []int { return t.slaves }

// IsSlave reports whether local dof d is a slave. O(1).
func (t *Table) IsSlave(d int) bool { return t.isSlave.Test(uint(d)) }

// SlaveIndex returns the table position of local slave dof d.
func (t *Table) SlaveIndex(d int) (int, bool) {
	i, ok := t.slaveIndex[d]
	return i, ok
}

// Masters returns the local master dofs and coefficients of slave i.
func (t *Table) Masters(i int) (dofs []int, coeffs []float64) {
	lo, hi := t.offsets[i], t.offsets[i+1]
	return t.masters[lo:hi], t.coeffs[lo:hi]
}

// MasterOwners returns the owning ranks of the masters of slave i.
func (t *Table) MasterOwners(i int) []int {
	lo, hi := t.offsets[i], t.offsets[i+1]
	return t.owners[lo:hi]
}

// OwnerOf returns the owning rank of local dof d.
func (t *Table) OwnerOf(d int) int {
	return t.im.Owner(d / t.blockSize)
}

// GlobalDof converts a local scalar dof to its global index.
func (t *Table) GlobalDof(d int) int {
	return t.im.LocalToGlobal(d/t.blockSize)*t.blockSize + d%t.blockSize
}

// LocalDof converts a global scalar dof to local numbering.
func (t *Table) LocalDof(g int) (int, bool) {
	lb, ok := t.im.GlobalToLocal(g / t.blockSize)
	if !ok {
		return -1, false
	}
	return lb*t.blockSize + g%t.blockSize, true
}
