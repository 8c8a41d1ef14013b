package matrix

import (
	"fmt"
	"strings"
)

// Float is the set of element types a Dense matrix can hold.
type Float interface {
	~float32 | ~float64
}

// Dense is a row-major matrix. data always has exactly rows*cols elements and
// element (r, c) lives at data[r*cols+c].
type Dense[T Float] struct {
	rows, cols int
	data       []T
}

var _ fmt.Stringer = (*Dense[float64])(nil)

// New builds a matrix from nested rows. The column count is taken from the
// first row; ragged input panics. An empty slice yields a 0x0 matrix.
func New[T Float](rows [][]T) *Dense[T] {
	if len(rows) == 0 {
		return &Dense[T]{}
	}
	cols := len(rows[0])
	m := &Dense[T]{rows: len(rows), cols: cols, data: make([]T, len(rows)*cols)}
	for i, row := range rows {
		if len(row) != cols {
			shapePanic("New", "row %d has %d columns, want %d", i, len(row), cols)
		}
		copy(m.data[i*cols:], row)
	}
	return m
}

// NewFilled returns a rows x cols matrix with every element set to v.
func NewFilled[T Float](rows, cols int, v T) *Dense[T] {
	m := zeros[T](rows, cols)
	if v != 0 {
		for i := range m.data {
			m.data[i] = v
		}
	}
	return m
}

// NewFunc returns a rows x cols matrix whose elements are produced by fn,
// called exactly once per cell in row-major order.
func NewFunc[T Float](rows, cols int, fn func() T) *Dense[T] {
	m := zeros[T](rows, cols)
	for i := range m.data {
		m.data[i] = fn()
	}
	return m
}

// NewFromData returns a rows x cols matrix backed by a copy of data.
func NewFromData[T Float](rows, cols int, data []T) *Dense[T] {
	if rows < 0 || cols < 0 {
		shapePanic("NewFromData", "negative dimensions %dx%d", rows, cols)
	}
	if len(data) != rows*cols {
		shapePanic("NewFromData", "%d elements for %dx%d", len(data), rows, cols)
	}
	m := zeros[T](rows, cols)
	copy(m.data, data)
	return m
}

// Repeat stacks n copies of row into an n x len(row) matrix.
func Repeat[T Float](row []T, n int) *Dense[T] {
	m := zeros[T](n, len(row))
	for i := 0; i < n; i++ {
		copy(m.data[i*m.cols:], row)
	}
	return m
}

func zeros[T Float](rows, cols int) *Dense[T] {
	if rows < 0 || cols < 0 {
		shapePanic("New", "negative dimensions %dx%d", rows, cols)
	}
	return &Dense[T]{rows: rows, cols: cols, data: make([]T, rows*cols)}
}

func (m *Dense[T]) Rows() int { return m.rows }

func (m *Dense[T]) Cols() int { return m.cols }

// Dims returns the number of rows and columns.
func (m *Dense[T]) Dims() (int, int) { return m.rows, m.cols }

// RawData exposes the row-major backing slice. Callers must not change its length.
func (m *Dense[T]) RawData() []T { return m.data }

func (m *Dense[T]) Clone() *Dense[T] {
	out := &Dense[T]{rows: m.rows, cols: m.cols, data: make([]T, len(m.data))}
	copy(out.data, m.data)
	return out
}

func (m *Dense[T]) At(r, c int) T {
	m.checkIndex("At", r, c)
	return m.data[r*m.cols+c]
}

func (m *Dense[T]) Set(r, c int, v T) {
	m.checkIndex("Set", r, c)
	m.data[r*m.cols+c] = v
}

// Row returns a copy of row r.
func (m *Dense[T]) Row(r int) []T {
	if r < 0 || r >= m.rows {
		indexPanic("Row", "row %d of %d", r, m.rows)
	}
	out := make([]T, m.cols)
	copy(out, m.data[r*m.cols:(r+1)*m.cols])
	return out
}

// SetRow replaces row r; v must have exactly Cols() elements.
func (m *Dense[T]) SetRow(r int, v []T) {
	if r < 0 || r >= m.rows {
		indexPanic("SetRow", "row %d of %d", r, m.rows)
	}
	if len(v) != m.cols {
		shapePanic("SetRow", "%d values for %d columns", len(v), m.cols)
	}
	copy(m.data[r*m.cols:], v)
}

// Col returns a copy of column c (every Cols()-th element starting at c).
func (m *Dense[T]) Col(c int) []T {
	if c < 0 || c >= m.cols {
		indexPanic("Col", "column %d of %d", c, m.cols)
	}
	out := make([]T, m.rows)
	for i := range out {
		out[i] = m.data[i*m.cols+c]
	}
	return out
}

// SetCol replaces column c; v must have exactly Rows() elements.
func (m *Dense[T]) SetCol(c int, v []T) {
	if c < 0 || c >= m.cols {
		indexPanic("SetCol", "column %d of %d", c, m.cols)
	}
	if len(v) != m.rows {
		shapePanic("SetCol", "%d values for %d rows", len(v), m.rows)
	}
	for i, x := range v {
		m.data[i*m.cols+c] = x
	}
}

// Equal reports whether o has the same dimensions and exactly the same
// elements. There is no tolerance and NaN never compares equal.
func (m *Dense[T]) Equal(o *Dense[T]) bool {
	if m.rows != o.rows || m.cols != o.cols {
		return false
	}
	for i, v := range m.data {
		if v != o.data[i] {
			return false
		}
	}
	return true
}

func (m *Dense[T]) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Dense(%dx%d)\n", m.rows, m.cols)
	for i := 0; i < m.rows; i++ {
		sb.WriteString("[")
		for j := 0; j < m.cols; j++ {
			if j > 0 {
				sb.WriteString(", ")
			}
			fmt.Fprint(&sb, m.data[i*m.cols+j])
		}
		sb.WriteString("]\n")
	}
	return sb.String()
}

func (m *Dense[T]) checkIndex(op string, r, c int) {
	if r < 0 || r >= m.rows || c < 0 || c >= m.cols {
		indexPanic(op, "(%d,%d) outside %dx%d", r, c, m.rows, m.cols)
	}
}
