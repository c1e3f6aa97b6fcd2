package gf

import (
	"errors"
	"fmt"
	"io"
)

const samplerBufferSize = 4096

// Sampler draws uniform field elements from a byte stream using rejection
// sampling. It is not safe for concurrent use.
type Sampler struct {
	f     Field
	r     io.Reader
	buf   []byte
	pos   int
	width int
	mask  uint64
}

// NewSampler returns a Sampler over f reading from r. r is typically a SHAKE
// stream for deterministic sampling or crypto/rand.Reader.
func NewSampler(f Field, r io.Reader) *Sampler {
	bitsNeeded := 0
	for m := f.q - 1; m > 0; m >>= 1 {
		bitsNeeded++
	}
	return &Sampler{
		f:     f,
		r:     r,
		buf:   make([]byte, samplerBufferSize),
		pos:   samplerBufferSize,
		width: (bitsNeeded + 7) / 8,
		mask:  (1 << bitsNeeded) - 1,
	}
}

// Field returns the field the sampler draws from.
func (s *Sampler) Field() Field { return s.f }

func (s *Sampler) refill() error {
	if _, err := io.ReadFull(s.r, s.buf); err != nil {
		return fmt.Errorf("reading randomness: %w", err)
	}
	s.pos = 0
	return nil
}

// Element returns a uniform element of the field.
func (s *Sampler) Element() (uint32, error) {
	for {
		if s.pos+s.width > len(s.buf) {
			if err := s.refill(); err != nil {
				return 0, err
			}
		}
		var value uint64
		for i := 0; i < s.width; i++ {
			value = (value << 8) | uint64(s.buf[s.pos+i])
		}
		s.pos += s.width
		value &= s.mask

		if value < s.f.q {
			return uint32(value), nil
		}
	}
}

// Vector returns a uniform vector of length n.
func (s *Sampler) Vector(n int) (Vector, error) {
	v := make(Vector, n)
	for i := range v {
		x, err := s.Element()
		if err != nil {
			return nil, err
		}
		v[i] = x
	}
	return v, nil
}

// Matrix returns a uniform rows x cols matrix.
func (s *Sampler) Matrix(rows, cols int) (Matrix, error) {
	data, err := s.Vector(rows * cols)
	if err != nil {
		return Matrix{}, err
	}
	return Matrix{Rows: rows, Cols: cols, Data: data}, nil
}

// FullRankMatrix returns a uniform rows x cols matrix of rank min(rows, cols).
// Rank-deficient draws are discarded and resampled at most attempts times;
// after that the error wraps ErrSingularMatrix.
func (s *Sampler) FullRankMatrix(rows, cols, attempts int) (Matrix, error) {
	if attempts < 1 {
		return Matrix{}, errors.New("attempts must be positive")
	}
	want := rows
	if cols < want {
		want = cols
	}
	for i := 0; i < attempts; i++ {
		m, err := s.Matrix(rows, cols)
		if err != nil {
			return Matrix{}, err
		}
		if s.f.Rank(m) == want {
			return m, nil
		}
	}
	return Matrix{}, fmt.Errorf("%w: no full rank %dx%d matrix after %d attempts", ErrSingularMatrix, rows, cols, attempts)
}

// InvertibleMatrix returns a uniform invertible n x n matrix together with
// its inverse, resampling singular draws at most attempts times.
func (s *Sampler) InvertibleMatrix(n, attempts int) (Matrix, Matrix, error) {
	if attempts < 1 {
		return Matrix{}, Matrix{}, errors.New("attempts must be positive")
	}
	for i := 0; i < attempts; i++ {
		m, err := s.Matrix(n, n)
		if err != nil {
			return Matrix{}, Matrix{}, err
		}
		inv, err := s.f.Inverse(m)
		if errors.Is(err, ErrSingularMatrix) {
			continue
		}
		if err != nil {
			return Matrix{}, Matrix{}, err
		}
		return m, inv, nil
	}
	return Matrix{}, Matrix{}, fmt.Errorf("%w: no invertible %dx%d matrix after %d attempts", ErrSingularMatrix, n, n, attempts)
}
