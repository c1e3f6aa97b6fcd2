package gf

import "fmt"

// RREF returns the reduced row echelon form of m and its pivot columns.
// m is not modified.
func (f Field) RREF(m Matrix) (Matrix, []int) {
	r := m.Clone()
	pivots := f.reduceInPlace(r, r.Cols)
	return r, pivots
}

// reduceInPlace row-reduces r, choosing pivots only among the first
// pivotCols columns. Columns after pivotCols are carried along.
func (f Field) reduceInPlace(r Matrix, pivotCols int) []int {
	limit := r.Rows
	if pivotCols < limit {
		limit = pivotCols
	}
	pivots := make([]int, 0, limit)

	row := 0
	for col := 0; col < pivotCols && row < r.Rows; col++ {
		p := -1
		for i := row; i < r.Rows; i++ {
			if r.Data[i*r.Cols+col] != 0 {
				p = i
				break
			}
		}
		if p < 0 {
			continue
		}
		if p != row {
			swapRows(r, p, row)
		}

		// Pivot is non-zero, so the inverse exists.
		inv, _ := f.Inv(r.Data[row*r.Cols+col])
		pr := r.row(row)
		for j := col; j < r.Cols; j++ {
			pr[j] = f.Mul(pr[j], inv)
		}

		f.eliminate(r, row, col)
		pivots = append(pivots, col)
		row++
	}
	return pivots
}

// eliminate clears column col in every row except the pivot row.
func (f Field) eliminate(r Matrix, pivotRow, col int) {
	pr := r.row(pivotRow)
	parallelRows(r.Rows, r.Rows*(r.Cols-col), func(start, end int) {
		for i := start; i < end; i++ {
			if i == pivotRow {
				continue
			}
			dst := r.row(i)
			factor := dst[col]
			if factor == 0 {
				continue
			}
			c := f.q - uint64(factor)
			for j := col; j < r.Cols; j++ {
				if pr[j] != 0 {
					dst[j] = uint32((uint64(dst[j]) + c*uint64(pr[j])) % f.q)
				}
			}
		}
	})
}

func swapRows(m Matrix, a, b int) {
	ra, rb := m.row(a), m.row(b)
	for j := range ra {
		ra[j], rb[j] = rb[j], ra[j]
	}
}

// Rank returns the rank of m.
func (f Field) Rank(m Matrix) int {
	_, pivots := f.RREF(m)
	return len(pivots)
}

// Inverse returns m⁻¹, or ErrSingularMatrix if m is not invertible.
func (f Field) Inverse(m Matrix) (Matrix, error) {
	if m.Rows != m.Cols {
		return Matrix{}, fmt.Errorf("%w: inverse of %dx%d matrix", ErrDimensionMismatch, m.Rows, m.Cols)
	}
	n := m.Rows
	aug, err := HStack(m, Identity(n))
	if err != nil {
		return Matrix{}, err
	}
	pivots := f.reduceInPlace(aug, n)
	if len(pivots) < n {
		return Matrix{}, fmt.Errorf("%w: rank %d of %d", ErrSingularMatrix, len(pivots), n)
	}
	inv := NewMatrix(n, n)
	for i := 0; i < n; i++ {
		copy(inv.row(i), aug.row(i)[n:])
	}
	return inv, nil
}

// RightKernel returns a basis of {x : m·xᵀ = 0} as the rows of a matrix
// with m.Cols columns. The basis is empty when m has full column rank.
func (f Field) RightKernel(m Matrix) Matrix {
	r, pivots := f.RREF(m)
	return f.kernelFromReduced(r, pivots, m.Cols)
}

// kernelFromReduced builds the kernel basis of the first cols columns of a
// matrix already in reduced row echelon form.
func (f Field) kernelFromReduced(r Matrix, pivots []int, cols int) Matrix {
	isPivot := make([]bool, cols)
	for _, p := range pivots {
		isPivot[p] = true
	}
	free := make([]int, 0, cols-len(pivots))
	for c := 0; c < cols; c++ {
		if !isPivot[c] {
			free = append(free, c)
		}
	}

	basis := NewMatrix(len(free), cols)
	for b, fc := range free {
		row := basis.row(b)
		row[fc] = 1
		for i, p := range pivots {
			row[p] = f.Neg(r.Data[i*r.Cols+fc])
		}
	}
	return basis
}

// Solve finds x with a·xᵀ = bᵀ. It returns one solution (free variables set
// to zero) and a basis of the kernel of a, so that every solution is x plus
// a combination of kernel rows. ErrInconsistent is returned when no solution
// exists.
func (f Field) Solve(a Matrix, b Vector) (Vector, Matrix, error) {
	if len(b) != a.Rows {
		return nil, Matrix{}, fmt.Errorf("%w: %dx%d system with right-hand side of length %d", ErrDimensionMismatch, a.Rows, a.Cols, len(b))
	}
	aug, err := HStack(a, ColumnVector(b))
	if err != nil {
		return nil, Matrix{}, err
	}
	pivots := f.reduceInPlace(aug, a.Cols)

	// A non-zero right-hand side below the last pivot row means 0 = c.
	for i := len(pivots); i < aug.Rows; i++ {
		if aug.Data[i*aug.Cols+a.Cols] != 0 {
			return nil, Matrix{}, ErrInconsistent
		}
	}

	x := make(Vector, a.Cols)
	for i, p := range pivots {
		x[p] = aug.Data[i*aug.Cols+a.Cols]
	}
	return x, f.kernelFromReduced(aug, pivots, a.Cols), nil
}
