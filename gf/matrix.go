package gf

import (
	"fmt"
	"runtime"
	"sync"
)

// parallelThreshold is the number of output entries above which matrix
// products and eliminations are split across GOMAXPROCS workers.
const parallelThreshold = 1 << 14

// Matrix is a dense matrix stored in row-major order.
type Matrix struct {
	Rows, Cols int
	Data       []uint32
}

// NewMatrix returns the rows x cols zero matrix.
func NewMatrix(rows, cols int) Matrix {
	return Matrix{Rows: rows, Cols: cols, Data: make([]uint32, rows*cols)}
}

// Identity returns the n x n identity matrix.
func Identity(n int) Matrix {
	m := NewMatrix(n, n)
	for i := 0; i < n; i++ {
		m.Data[i*n+i] = 1
	}
	return m
}

// FromRows builds a matrix from equally sized row vectors.
func FromRows(rows ...Vector) (Matrix, error) {
	if len(rows) == 0 {
		return Matrix{}, nil
	}
	cols := len(rows[0])
	m := NewMatrix(len(rows), cols)
	for i, r := range rows {
		if len(r) != cols {
			return Matrix{}, fmt.Errorf("%w: row %d has length %d, want %d", ErrDimensionMismatch, i, len(r), cols)
		}
		copy(m.Data[i*cols:], r)
	}
	return m, nil
}

// At returns the entry at (row, col).
func (m Matrix) At(row, col int) uint32 {
	if row < 0 || row >= m.Rows || col < 0 || col >= m.Cols {
		panic(fmt.Sprintf("gf: index (%d, %d) out of bounds for %dx%d matrix", row, col, m.Rows, m.Cols))
	}
	return m.Data[row*m.Cols+col]
}

// Set writes the entry at (row, col).
func (m Matrix) Set(row, col int, v uint32) {
	if row < 0 || row >= m.Rows || col < 0 || col >= m.Cols {
		panic(fmt.Sprintf("gf: index (%d, %d) out of bounds for %dx%d matrix", row, col, m.Rows, m.Cols))
	}
	m.Data[row*m.Cols+col] = v
}

// Row returns a copy of row i.
func (m Matrix) Row(i int) Vector {
	out := make(Vector, m.Cols)
	copy(out, m.Data[i*m.Cols:(i+1)*m.Cols])
	return out
}

func (m Matrix) row(i int) []uint32 {
	return m.Data[i*m.Cols : (i+1)*m.Cols]
}

// Clone returns a deep copy of m.
func (m Matrix) Clone() Matrix {
	data := make([]uint32, len(m.Data))
	copy(data, m.Data)
	return Matrix{Rows: m.Rows, Cols: m.Cols, Data: data}
}

// Equal reports whether m and o have the same shape and entries.
func (m Matrix) Equal(o Matrix) bool {
	return m.Rows == o.Rows && m.Cols == o.Cols && Vector(m.Data).Equal(Vector(o.Data))
}

// IsZero reports whether every entry of m is zero.
func (m Matrix) IsZero() bool {
	return Vector(m.Data).IsZero()
}

// Transpose returns mᵀ.
func (m Matrix) Transpose() Matrix {
	t := NewMatrix(m.Cols, m.Rows)
	for i := 0; i < m.Rows; i++ {
		for j := 0; j < m.Cols; j++ {
			t.Data[j*m.Rows+i] = m.Data[i*m.Cols+j]
		}
	}
	return t
}

// Columns returns the submatrix made of the given columns, in order.
func (m Matrix) Columns(idx []int) (Matrix, error) {
	out := NewMatrix(m.Rows, len(idx))
	for j, c := range idx {
		if c < 0 || c >= m.Cols {
			return Matrix{}, fmt.Errorf("%w: column %d of %d", ErrDimensionMismatch, c, m.Cols)
		}
		for i := 0; i < m.Rows; i++ {
			out.Data[i*out.Cols+j] = m.Data[i*m.Cols+c]
		}
	}
	return out, nil
}

// SubRows returns rows [start, end) of m.
func (m Matrix) SubRows(start, end int) (Matrix, error) {
	if start < 0 || end > m.Rows || start > end {
		return Matrix{}, fmt.Errorf("%w: rows [%d, %d) of %d", ErrDimensionMismatch, start, end, m.Rows)
	}
	out := NewMatrix(end-start, m.Cols)
	copy(out.Data, m.Data[start*m.Cols:end*m.Cols])
	return out, nil
}

// HStack returns [a | b].
func HStack(a, b Matrix) (Matrix, error) {
	if a.Rows != b.Rows {
		return Matrix{}, fmt.Errorf("%w: hstack of %d and %d rows", ErrDimensionMismatch, a.Rows, b.Rows)
	}
	out := NewMatrix(a.Rows, a.Cols+b.Cols)
	for i := 0; i < a.Rows; i++ {
		copy(out.Data[i*out.Cols:], a.row(i))
		copy(out.Data[i*out.Cols+a.Cols:], b.row(i))
	}
	return out, nil
}

// VStack returns a on top of b.
func VStack(a, b Matrix) (Matrix, error) {
	if a.Cols != b.Cols {
		return Matrix{}, fmt.Errorf("%w: vstack of %d and %d columns", ErrDimensionMismatch, a.Cols, b.Cols)
	}
	out := NewMatrix(a.Rows+b.Rows, a.Cols)
	copy(out.Data, a.Data)
	copy(out.Data[len(a.Data):], b.Data)
	return out, nil
}

// ColumnVector returns v as a len(v) x 1 matrix.
func ColumnVector(v Vector) Matrix {
	m := NewMatrix(len(v), 1)
	copy(m.Data, v)
	return m
}

// MatAdd returns a + b.
func (f Field) MatAdd(a, b Matrix) (Matrix, error) {
	if a.Rows != b.Rows || a.Cols != b.Cols {
		return Matrix{}, fmt.Errorf("%w: %dx%d + %dx%d", ErrDimensionMismatch, a.Rows, a.Cols, b.Rows, b.Cols)
	}
	out := NewMatrix(a.Rows, a.Cols)
	for i := range a.Data {
		out.Data[i] = f.Add(a.Data[i], b.Data[i])
	}
	return out, nil
}

// MatMul returns a * b. Large products are computed in parallel by rows.
func (f Field) MatMul(a, b Matrix) (Matrix, error) {
	if a.Cols != b.Rows {
		return Matrix{}, fmt.Errorf("%w: %dx%d * %dx%d", ErrDimensionMismatch, a.Rows, a.Cols, b.Rows, b.Cols)
	}
	out := NewMatrix(a.Rows, b.Cols)
	parallelRows(a.Rows, a.Rows*b.Cols, func(start, end int) {
		acc := make([]uint64, b.Cols)
		for i := start; i < end; i++ {
			f.accumulateRow(acc, a.row(i), b)
			dst := out.row(i)
			for j := range acc {
				dst[j] = uint32(acc[j] % f.q)
			}
		}
	})
	return out, nil
}

// VecMul returns the row vector v * m.
func (f Field) VecMul(v Vector, m Matrix) (Vector, error) {
	if len(v) != m.Rows {
		return nil, fmt.Errorf("%w: vector of length %d times %dx%d", ErrDimensionMismatch, len(v), m.Rows, m.Cols)
	}
	acc := make([]uint64, m.Cols)
	f.accumulateRow(acc, v, m)
	out := make(Vector, m.Cols)
	for j := range acc {
		out[j] = uint32(acc[j] % f.q)
	}
	return out, nil
}

// accumulateRow sets acc to v * m without the final reduction.
// For q <= 2^16 every product fits in 32 bits, so reduction is deferred.
func (f Field) accumulateRow(acc []uint64, v []uint32, m Matrix) {
	for j := range acc {
		acc[j] = 0
	}
	lazy := f.q <= 1<<16
	for t, c := range v {
		if c == 0 {
			continue
		}
		src := m.row(t)
		cc := uint64(c)
		if lazy {
			for j, x := range src {
				acc[j] += cc * uint64(x)
			}
		} else {
			for j, x := range src {
				acc[j] = (acc[j] + cc*uint64(x)) % f.q
			}
		}
	}
}

// parallelRows runs fn over [0, rows) split into contiguous chunks, using
// GOMAXPROCS workers when the amount of work is large enough.
func parallelRows(rows, work int, fn func(start, end int)) {
	numWorkers := runtime.GOMAXPROCS(0)
	if work < parallelThreshold || numWorkers <= 1 || rows < 2 {
		fn(0, rows)
		return
	}

	var wg sync.WaitGroup
	rowsPerWorker := (rows + numWorkers - 1) / numWorkers
	for w := 0; w < numWorkers; w++ {
		start := w * rowsPerWorker
		end := start + rowsPerWorker
		if end > rows {
			end = rows
		}
		if start >= rows {
			break
		}
		wg.Add(1)
		go func(start, end int) {
			defer wg.Done()
			fn(start, end)
		}(start, end)
	}
	wg.Wait()
}
