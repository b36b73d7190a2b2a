// Package sparse holds the small amount of sparse linear algebra needed to
// score TF-IDF vectors against each other.
package sparse

import "math"

// Vector is a sparse vector. Indices are strictly increasing.
type Vector struct {
	Indices []int     `json:"indices"`
	Values  []float64 `json:"values"`
}

// NNZ returns the number of stored entries.
func (v Vector) NNZ() int { return len(v.Indices) }

// IsZero reports whether the vector has no non-zero entry.
func (v Vector) IsZero() bool {
	for _, x := range v.Values {
		if x != 0 {
			return false
		}
	}
	return true
}

// Dot computes the inner product of two sparse vectors.
func Dot(a, b Vector) float64 {
	sum := 0.0
	i, j := 0, 0
	for i < len(a.Indices) && j < len(b.Indices) {
		switch {
		case a.Indices[i] == b.Indices[j]:
			sum += a.Values[i] * b.Values[j]
			i++
			j++
		case a.Indices[i] < b.Indices[j]:
			i++
		default:
			j++
		}
	}
	return sum
}

// Norm returns the L2 norm of v.
func (v Vector) Norm() float64 {
	sum := 0.0
	for _, x := range v.Values {
		sum += x * x
	}
	return math.Sqrt(sum)
}

// Normalize scales v in place to unit L2 norm. Zero vectors are left untouched.
func (v Vector) Normalize() {
	norm := v.Norm()
	if norm == 0 {
		return
	}
	for i := range v.Values {
		v.Values[i] /= norm
	}
}

// Dense expands v into a dense slice of length dim.
func (v Vector) Dense(dim int) []float64 {
	out := make([]float64, dim)
	for k, idx := range v.Indices {
		if idx < dim {
			out[idx] = v.Values[k]
		}
	}
	return out
}

// Matrix is a row-major sparse matrix.
type Matrix struct {
	Cols int      `json:"cols"`
	Rows []Vector `json:"rows"`
}

// Len returns the number of rows.
func (m *Matrix) Len() int { return len(m.Rows) }

// Row returns row i.
func (m *Matrix) Row(i int) Vector { return m.Rows[i] }

// NNZ returns the number of stored entries over all rows.
func (m *Matrix) NNZ() int {
	n := 0
	for _, r := range m.Rows {
		n += r.NNZ()
	}
	return n
}
