// Package gf implements arithmetic over prime fields GF(q) together with the
// vector and matrix operations needed by the IKK cryptosystem and its attack.
//
// All operations take the Field explicitly. There is no package-level modulus,
// so several parameter sets can be used side by side.
package gf

import (
	"errors"
	"fmt"
)

// MaxModulus bounds q so that the product of two reduced elements fits in a uint64.
const MaxModulus = 1 << 31

var (
	// ErrInvalidModulus indicates q is not a prime in [2, MaxModulus).
	ErrInvalidModulus = errors.New("invalid field modulus")

	// ErrNotInvertible indicates an attempt to invert zero.
	ErrNotInvertible = errors.New("element is not invertible")

	// ErrInvalidElement indicates a value outside [0, q).
	ErrInvalidElement = errors.New("element not in field")

	// ErrDimensionMismatch indicates incompatible vector or matrix shapes.
	ErrDimensionMismatch = errors.New("dimension mismatch")

	// ErrSingularMatrix indicates a matrix that was required to be invertible
	// (or of full rank) is not.
	ErrSingularMatrix = errors.New("singular matrix")

	// ErrInconsistent indicates a linear system with no solution.
	ErrInconsistent = errors.New("inconsistent linear system")
)

// Field is the prime field GF(q). The zero value is not usable; use NewField.
type Field struct {
	q uint64
}

// NewField returns GF(q) for a prime q < MaxModulus.
func NewField(q int) (Field, error) {
	if q < 2 || q >= MaxModulus {
		return Field{}, fmt.Errorf("%w: %d out of range", ErrInvalidModulus, q)
	}
	if !IsPrime(q) {
		return Field{}, fmt.Errorf("%w: %d is not prime", ErrInvalidModulus, q)
	}
	return Field{q: uint64(q)}, nil
}

// MustField is like NewField but panics on error. Intended for constants and tests.
func MustField(q int) Field {
	f, err := NewField(q)
	if err != nil {
		panic(err)
	}
	return f
}

// Q returns the field characteristic.
func (f Field) Q() int { return int(f.q) }

// ElementBytes is the number of bytes needed to store one element.
func (f Field) ElementBytes() int {
	switch {
	case f.q <= 1<<8:
		return 1
	case f.q <= 1<<16:
		return 2
	default:
		return 4
	}
}

// Contains reports whether a is a reduced element of the field.
func (f Field) Contains(a uint32) bool { return uint64(a) < f.q }

// Reduce maps an arbitrary integer into [0, q).
func (f Field) Reduce(x int64) uint32 {
	r := x % int64(f.q)
	if r < 0 {
		r += int64(f.q)
	}
	return uint32(r)
}

func (f Field) Add(a, b uint32) uint32 {
	return uint32((uint64(a) + uint64(b)) % f.q)
}

func (f Field) Sub(a, b uint32) uint32 {
	return uint32((uint64(a) + f.q - uint64(b)) % f.q)
}

func (f Field) Mul(a, b uint32) uint32 {
	return uint32(uint64(a) * uint64(b) % f.q)
}

func (f Field) Neg(a uint32) uint32 {
	if a == 0 {
		return 0
	}
	return uint32(f.q - uint64(a))
}

func (f Field) Equal(a, b uint32) bool {
	return uint64(a)%f.q == uint64(b)%f.q
}

// Inv returns the multiplicative inverse of a using Fermat's little theorem.
func (f Field) Inv(a uint32) (uint32, error) {
	if uint64(a)%f.q == 0 {
		return 0, ErrNotInvertible
	}
	return f.exp(a, f.q-2), nil
}

func (f Field) exp(a uint32, e uint64) uint32 {
	result := uint64(1)
	base := uint64(a) % f.q
	for e > 0 {
		if e&1 == 1 {
			result = result * base % f.q
		}
		base = base * base % f.q
		e >>= 1
	}
	return uint32(result)
}

// IsPrime checks primality by trial division.
// It is only used to validate parameters, not to generate primes.
func IsPrime(n int) bool {
	if n < 2 {
		return false
	}
	if n == 2 {
		return true
	}
	if n%2 == 0 {
		return false
	}
	for i := 3; i*i <= n; i += 2 {
		if n%i == 0 {
			return false
		}
	}
	return true
}
