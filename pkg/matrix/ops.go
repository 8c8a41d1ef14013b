package matrix

import "math"

// Axis selects the direction of a reduction.
type Axis int

const (
	// Row reduces across columns: one total per row, result shape (rows, 1).
	Row Axis = iota
	// Column reduces across rows: one total per column, result shape (1, cols).
	Column
)

func (a Axis) String() string {
	switch a {
	case Row:
		return "row"
	case Column:
		return "column"
	default:
		return "unknown"
	}
}

// Add returns a + b. Both operands must have the same shape.
func Add[T Float](a, b *Dense[T]) *Dense[T] {
	sameShape("Add", a, b)
	out := b.Clone()
	axpy(1, a.data, out.data)
	return out
}

// Sub returns a - b. Both operands must have the same shape.
func Sub[T Float](a, b *Dense[T]) *Dense[T] {
	sameShape("Sub", a, b)
	out := a.Clone()
	axpy(-1, b.data, out.data)
	return out
}

// Scale returns alpha*a.
func Scale[T Float](alpha T, a *Dense[T]) *Dense[T] {
	out := a.Clone()
	scal(alpha, out.data)
	return out
}

// Negate returns -a.
func Negate[T Float](a *Dense[T]) *Dense[T] {
	return Scale(-1, a)
}

// Mul returns the matrix product a*b; a.Cols() must equal b.Rows().
func Mul[T Float](a, b *Dense[T]) *Dense[T] {
	if a.cols != b.rows {
		shapePanic("Mul", "%dx%d times %dx%d", a.rows, a.cols, b.rows, b.cols)
	}
	out := zeros[T](a.rows, b.cols)
	gemm(a.rows, b.cols, a.cols, a.data, b.data, out.data)
	return out
}

// Transpose returns aᵀ.
func Transpose[T Float](a *Dense[T]) *Dense[T] {
	out := zeros[T](a.cols, a.rows)
	for i := 0; i < a.rows; i++ {
		for j := 0; j < a.cols; j++ {
			out.data[j*a.rows+i] = a.data[i*a.cols+j]
		}
	}
	return out
}

// Pow raises every element of a to exponent. Squaring is done as v*v so it
// carries no error beyond one floating-point multiplication.
func Pow[T Float](a *Dense[T], exponent float64) *Dense[T] {
	out := zeros[T](a.rows, a.cols)
	if exponent == 2 {
		for i, v := range a.data {
			out.data[i] = v * v
		}
		return out
	}
	for i, v := range a.data {
		out.data[i] = T(math.Pow(float64(v), exponent))
	}
	return out
}

// Sum reduces a along axis. Totals are accumulated in index order.
func Sum[T Float](a *Dense[T], axis Axis) *Dense[T] {
	switch axis {
	case Column:
		out := zeros[T](1, a.cols)
		for i := 0; i < a.rows; i++ {
			row := a.data[i*a.cols : (i+1)*a.cols]
			for j, v := range row {
				out.data[j] += v
			}
		}
		return out
	case Row:
		out := zeros[T](a.rows, 1)
		for i := 0; i < a.rows; i++ {
			var s T
			for _, v := range a.data[i*a.cols : (i+1)*a.cols] {
				s += v
			}
			out.data[i] = s
		}
		return out
	default:
		shapePanic("Sum", "unsupported axis %d", int(axis))
		return nil
	}
}

func sameShape[T Float](op string, a, b *Dense[T]) {
	if a.rows != b.rows || a.cols != b.cols {
		shapePanic(op, "%dx%d and %dx%d", a.rows, a.cols, b.rows, b.cols)
	}
}
