package backend

import "fmt"

// Vector is a dense vector in the distributed layout used by assembly:
// locally owned entries first, ghost entries after.
type Vector struct {
	data []float64
}

// NewVector allocates a zero vector of length n (owned plus ghost entries).
func NewVector(n int) *Vector {
	return &Vector{data: make([]float64, n)}
}

// Len returns the local length.
func (v *Vector) Len() int { return len(v.data) }

// At returns entry i.
func (v *Vector) At(i int) float64 { return v.data[i] }

// Set overwrites entry i.
func (v *Vector) Set(i int, x float64) { v.data[i] = x }

// Add accumulates x into entry i.
func (v *Vector) Add(i int, x float64) { v.data[i] += x }

// Zero clears all entries.
func (v *Vector) Zero() {
	for i := range v.data {
		v.data[i] = 0
	}
}

// Copy returns a deep copy.
func (v *Vector) Copy() *Vector {
	out := NewVector(len(v.data))
	copy(out.data, v.data)
	return out
}

// Data exposes the underlying storage.
func (v *Vector) Data() []float64 { return v.data }

// AXPY adds alpha*x into v entrywise.
func (v *Vector) AXPY(alpha float64, x *Vector) error {
	if x.Len() != v.Len() {
		return fmt.Errorf("axpy length mismatch: %d vs %d", x.Len(), v.Len())
	}
	for i := range v.data {
		v.data[i] += alpha * x.data[i]
	}
	return nil
}
