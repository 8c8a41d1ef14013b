package matrix_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/your-org/facematch/pkg/matrix"
)

// requirePanicsWith asserts that fn panics with an error wrapping target.
func requirePanicsWith(t *testing.T, target error, fn func()) {
	t.Helper()
	defer func() {
		r := recover()
		require.NotNil(t, r, "expected panic")
		err, ok := r.(error)
		require.True(t, ok, "panic value %v is not an error", r)
		require.True(t, errors.Is(err, target), "panic %v does not wrap %v", err, target)
	}()
	fn()
}

func requireShapeInvariant[T matrix.Float](t *testing.T, m *matrix.Dense[T]) {
	t.Helper()
	r, c := m.Dims()
	require.Len(t, m.RawData(), r*c)
}

func TestNewFromRows(t *testing.T) {
	m := matrix.New([][]float64{{1, 2, 3}, {4, 5, 6}})
	require.Equal(t, 2, m.Rows())
	require.Equal(t, 3, m.Cols())
	require.Equal(t, []float64{1, 2, 3, 4, 5, 6}, m.RawData())
	require.Equal(t, 6.0, m.At(1, 2))
	requireShapeInvariant(t, m)
}

func TestNewCopiesInput(t *testing.T) {
	rows := [][]float64{{1, 2}}
	m := matrix.New(rows)
	rows[0][0] = 99
	require.Equal(t, 1.0, m.At(0, 0))
}

func TestNewEmpty(t *testing.T) {
	m := matrix.New[float64](nil)
	r, c := m.Dims()
	require.Zero(t, r)
	require.Zero(t, c)
	requireShapeInvariant(t, m)
}

func TestNewRaggedPanics(t *testing.T) {
	requirePanicsWith(t, matrix.ErrShape, func() {
		matrix.New([][]float64{{1, 2}, {3}})
	})
}

func TestNewFilled(t *testing.T) {
	m := matrix.NewFilled(2, 3, float32(7))
	for _, v := range m.RawData() {
		require.Equal(t, float32(7), v)
	}
	requireShapeInvariant(t, m)

	z := matrix.NewFilled(0, 4, 1.0)
	require.Equal(t, 0, z.Rows())
	require.Equal(t, 4, z.Cols())
	require.Empty(t, z.RawData())
}

func TestNewFuncCalledOncePerCell(t *testing.T) {
	calls := 0
	m := matrix.NewFunc(3, 2, func() float64 {
		calls++
		return float64(calls)
	})
	require.Equal(t, 6, calls)
	require.Equal(t, []float64{1, 2, 3, 4, 5, 6}, m.RawData())
}

func TestNewFromDataLengthMismatch(t *testing.T) {
	requirePanicsWith(t, matrix.ErrShape, func() {
		matrix.NewFromData(2, 2, []float64{1, 2, 3})
	})
}

func TestRepeat(t *testing.T) {
	m := matrix.Repeat([]float64{1, 2, 3}, 3)
	require.True(t, m.Equal(matrix.New([][]float64{{1, 2, 3}, {1, 2, 3}, {1, 2, 3}})))

	empty := matrix.Repeat([]float64{1, 2}, 0)
	require.Equal(t, 0, empty.Rows())
	require.Equal(t, 2, empty.Cols())
}

func TestAtSetOutOfRange(t *testing.T) {
	m := matrix.NewFilled(2, 2, 0.0)
	requirePanicsWith(t, matrix.ErrIndexOutOfRange, func() { m.At(-1, 0) })
	requirePanicsWith(t, matrix.ErrIndexOutOfRange, func() { m.At(0, 2) })
	requirePanicsWith(t, matrix.ErrIndexOutOfRange, func() { m.Set(2, 0, 1) })

	m.Set(1, 0, 4.5)
	require.Equal(t, 4.5, m.At(1, 0))
}

func TestRowAccess(t *testing.T) {
	m := matrix.New([][]float64{{1, 2}, {3, 4}, {5, 6}})
	require.Equal(t, []float64{3, 4}, m.Row(1))

	row := m.Row(0)
	row[0] = 100
	require.Equal(t, 1.0, m.At(0, 0), "Row must return a copy")

	m.SetRow(2, []float64{7, 8})
	require.Equal(t, []float64{1, 2, 3, 4, 7, 8}, m.RawData())

	requirePanicsWith(t, matrix.ErrShape, func() { m.SetRow(0, []float64{1}) })
	requirePanicsWith(t, matrix.ErrIndexOutOfRange, func() { m.Row(3) })
}

func TestColumnAccess(t *testing.T) {
	m := matrix.New([][]float64{{1, 2}, {3, 4}, {5, 6}})
	require.Equal(t, []float64{2, 4, 6}, m.Col(1))

	m.SetCol(0, []float64{9, 8, 7})
	require.Equal(t, []float64{9, 2, 8, 4, 7, 6}, m.RawData())

	requirePanicsWith(t, matrix.ErrShape, func() { m.SetCol(1, []float64{1, 2}) })
	requirePanicsWith(t, matrix.ErrIndexOutOfRange, func() { m.Col(-1) })
}

func TestCloneIndependence(t *testing.T) {
	m := matrix.New([][]float64{{1, 2}})
	c := m.Clone()
	c.Set(0, 0, 5)
	require.Equal(t, 1.0, m.At(0, 0))
	require.Equal(t, 5.0, c.At(0, 0))
}

func TestEqual(t *testing.T) {
	a := matrix.New([][]float64{{1, 2}, {3, 4}})
	require.True(t, a.Equal(matrix.New([][]float64{{1, 2}, {3, 4}})))
	require.False(t, a.Equal(matrix.New([][]float64{{1, 2, 3, 4}})))
	require.False(t, a.Equal(matrix.New([][]float64{{1, 2}, {3, 4.0000001}})))
}

func TestString(t *testing.T) {
	s := matrix.New([][]float64{{1, 2}, {3, 4}}).String()
	require.Contains(t, s, "2x2")
	require.Contains(t, s, "[1, 2]")
	require.Contains(t, s, "[3, 4]")
}
