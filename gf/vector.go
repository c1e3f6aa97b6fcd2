package gf

import "fmt"

// Vector is an ordered list of field elements.
type Vector []uint32

// NewVector returns the zero vector of length n.
func NewVector(n int) Vector {
	return make(Vector, n)
}

// Clone returns a copy of v.
func (v Vector) Clone() Vector {
	out := make(Vector, len(v))
	copy(out, v)
	return out
}

// Equal reports whether v and w have the same length and entries.
func (v Vector) Equal(w Vector) bool {
	if len(v) != len(w) {
		return false
	}
	for i := range v {
		if v[i] != w[i] {
			return false
		}
	}
	return true
}

// IsZero reports whether every entry of v is zero.
func (v Vector) IsZero() bool {
	for _, x := range v {
		if x != 0 {
			return false
		}
	}
	return true
}

// CheckVector validates that v has length n and every entry lies in the field.
func (f Field) CheckVector(v Vector, n int) error {
	if len(v) != n {
		return fmt.Errorf("%w: vector length %d, want %d", ErrDimensionMismatch, len(v), n)
	}
	for i, x := range v {
		if !f.Contains(x) {
			return fmt.Errorf("%w: entry %d = %d, q = %d", ErrInvalidElement, i, x, f.q)
		}
	}
	return nil
}

// VecAdd returns a + b.
func (f Field) VecAdd(a, b Vector) (Vector, error) {
	if len(a) != len(b) {
		return nil, fmt.Errorf("%w: %d vs %d", ErrDimensionMismatch, len(a), len(b))
	}
	out := make(Vector, len(a))
	for i := range a {
		out[i] = f.Add(a[i], b[i])
	}
	return out, nil
}

// VecSub returns a - b.
func (f Field) VecSub(a, b Vector) (Vector, error) {
	if len(a) != len(b) {
		return nil, fmt.Errorf("%w: %d vs %d", ErrDimensionMismatch, len(a), len(b))
	}
	out := make(Vector, len(a))
	for i := range a {
		out[i] = f.Sub(a[i], b[i])
	}
	return out, nil
}

// VecScale returns c * a.
func (f Field) VecScale(c uint32, a Vector) Vector {
	out := make(Vector, len(a))
	for i := range a {
		out[i] = f.Mul(c, a[i])
	}
	return out
}

// Dot returns the inner product of a and b.
func (f Field) Dot(a, b Vector) (uint32, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("%w: %d vs %d", ErrDimensionMismatch, len(a), len(b))
	}
	var sum uint64
	for i := range a {
		sum = (sum + uint64(a[i])*uint64(b[i])) % f.q
	}
	return uint32(sum), nil
}
