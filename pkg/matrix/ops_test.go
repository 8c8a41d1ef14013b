package matrix_test

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/your-org/facematch/pkg/matrix"
)

// score is a named float type; it bypasses the BLAS dispatch and exercises
// the loop kernels.
type score float64

func randDense(rng *rand.Rand, rows, cols int) *matrix.Dense[float64] {
	return matrix.NewFunc(rows, cols, func() float64 { return rng.Float64()*2 - 1 })
}

func toScore(m *matrix.Dense[float64]) *matrix.Dense[score] {
	data := make([]score, len(m.RawData()))
	for i, v := range m.RawData() {
		data[i] = score(v)
	}
	return matrix.NewFromData(m.Rows(), m.Cols(), data)
}

func requireAllClose[T matrix.Float](t *testing.T, want, got *matrix.Dense[T], tol float64) {
	t.Helper()
	wr, wc := want.Dims()
	gr, gc := got.Dims()
	require.Equal(t, wr, gr)
	require.Equal(t, wc, gc)
	for i, w := range want.RawData() {
		require.InDelta(t, float64(w), float64(got.RawData()[i]), tol, "element %d", i)
	}
}

func TestAddSub(t *testing.T) {
	a := matrix.New([][]float64{{1, 2}, {3, 4}})
	b := matrix.New([][]float64{{10, 20}, {30, 40}})

	require.True(t, matrix.Add(a, b).Equal(matrix.New([][]float64{{11, 22}, {33, 44}})))
	require.True(t, matrix.Sub(b, a).Equal(matrix.New([][]float64{{9, 18}, {27, 36}})))

	// inputs untouched
	require.Equal(t, []float64{1, 2, 3, 4}, a.RawData())
	require.Equal(t, []float64{10, 20, 30, 40}, b.RawData())
}

func TestAddSubShapeMismatch(t *testing.T) {
	a := matrix.NewFilled(2, 2, 1.0)
	b := matrix.NewFilled(2, 3, 1.0)
	requirePanicsWith(t, matrix.ErrShape, func() { matrix.Add(a, b) })
	requirePanicsWith(t, matrix.ErrShape, func() { matrix.Sub(a, b) })
}

func TestAddNegateIsZero(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for _, dims := range [][2]int{{1, 1}, {3, 5}, {8, 2}, {0, 3}} {
		a := randDense(rng, dims[0], dims[1])
		z := matrix.Add(a, matrix.Negate(a))
		require.True(t, z.Equal(matrix.NewFilled(dims[0], dims[1], 0.0)), "dims %v", dims)
		requireShapeInvariant(t, z)
	}
}

func TestScale(t *testing.T) {
	a := matrix.New([][]float32{{1, -2}, {0.5, 4}})
	got := matrix.Scale(float32(2), a)
	require.True(t, got.Equal(matrix.New([][]float32{{2, -4}, {1, 8}})))
}

func TestMul(t *testing.T) {
	a := matrix.New([][]float64{{1, 2, 3}, {4, 5, 6}})
	b := matrix.New([][]float64{{7, 8}, {9, 10}, {11, 12}})
	got := matrix.Mul(a, b)
	require.True(t, got.Equal(matrix.New([][]float64{{58, 64}, {139, 154}})), got.String())

	requirePanicsWith(t, matrix.ErrShape, func() { matrix.Mul(a, a) })
}

func TestMulEmptyInner(t *testing.T) {
	a := matrix.NewFilled(2, 0, 1.0)
	b := matrix.NewFilled(0, 3, 1.0)
	got := matrix.Mul(a, b)
	require.True(t, got.Equal(matrix.NewFilled(2, 3, 0.0)))
}

func TestMulAssociativity(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	a := randDense(rng, 4, 6)
	b := randDense(rng, 6, 3)
	c := randDense(rng, 3, 5)

	left := matrix.Mul(matrix.Mul(a, b), c)
	right := matrix.Mul(a, matrix.Mul(b, c))
	requireAllClose(t, left, right, 1e-12)
}

func TestTransposeInvolution(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	for _, dims := range [][2]int{{1, 1}, {2, 5}, {7, 3}, {0, 4}} {
		a := randDense(rng, dims[0], dims[1])
		at := matrix.Transpose(a)
		require.Equal(t, dims[1], at.Rows())
		require.Equal(t, dims[0], at.Cols())
		require.True(t, matrix.Transpose(at).Equal(a), "dims %v", dims)
	}
}

func TestTransposeElements(t *testing.T) {
	a := matrix.New([][]float64{{1, 2, 3}, {4, 5, 6}})
	at := matrix.Transpose(a)
	for i := 0; i < a.Rows(); i++ {
		for j := 0; j < a.Cols(); j++ {
			require.Equal(t, a.At(i, j), at.At(j, i))
		}
	}
}

func TestPow(t *testing.T) {
	a := matrix.New([][]float64{{-3, 0.1}, {2, 4}})

	tenth := 0.1
	sq := matrix.Pow(a, 2)
	require.Equal(t, []float64{9, tenth * tenth, 4, 16}, sq.RawData())

	root := matrix.Pow(matrix.New([][]float64{{4, 9}}), 0.5)
	require.Equal(t, []float64{2, 3}, root.RawData())

	nan := matrix.Pow(matrix.New([][]float64{{math.NaN()}}), 2)
	require.True(t, math.IsNaN(nan.At(0, 0)))
}

func TestSumAxis(t *testing.T) {
	a := matrix.New([][]float64{{1, 2}, {3, 4}})

	require.True(t, matrix.Sum(a, matrix.Column).Equal(matrix.New([][]float64{{4, 6}})))
	require.True(t, matrix.Sum(a, matrix.Row).Equal(matrix.New([][]float64{{3}, {7}})))
}

func TestSumEmpty(t *testing.T) {
	a := matrix.NewFilled(0, 3, 1.0)
	cols := matrix.Sum(a, matrix.Column)
	require.True(t, cols.Equal(matrix.NewFilled(1, 3, 0.0)))

	rows := matrix.Sum(a, matrix.Row)
	require.Equal(t, 0, rows.Rows())
	require.Equal(t, 1, rows.Cols())
}

func TestSumUnknownAxisPanics(t *testing.T) {
	requirePanicsWith(t, matrix.ErrShape, func() {
		matrix.Sum(matrix.NewFilled(1, 1, 1.0), matrix.Axis(9))
	})
}

func TestBLASAndLoopKernelsAgree(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	a := randDense(rng, 5, 4)
	b := randDense(rng, 5, 4)
	c := randDense(rng, 4, 3)
	sa, sb, sc := toScore(a), toScore(b), toScore(c)

	requireAllClose(t, matrix.Add(a, b), toFloat(matrix.Add(sa, sb)), 0)
	requireAllClose(t, matrix.Sub(a, b), toFloat(matrix.Sub(sa, sb)), 0)
	requireAllClose(t, matrix.Scale(0.25, a), toFloat(matrix.Scale(0.25, sa)), 0)
	requireAllClose(t, matrix.Mul(a, c), toFloat(matrix.Mul(sa, sc)), 1e-12)
}

func TestFloat32Mul(t *testing.T) {
	a := matrix.New([][]float32{{1, 2}, {3, 4}})
	id := matrix.New([][]float32{{1, 0}, {0, 1}})
	require.True(t, matrix.Mul(a, id).Equal(a))
	require.True(t, matrix.Mul(id, a).Equal(a))
}

func TestAxisString(t *testing.T) {
	require.Equal(t, "row", matrix.Row.String())
	require.Equal(t, "column", matrix.Column.String())
}

func toFloat(m *matrix.Dense[score]) *matrix.Dense[float64] {
	data := make([]float64, len(m.RawData()))
	for i, v := range m.RawData() {
		data[i] = float64(v)
	}
	return matrix.NewFromData(m.Rows(), m.Cols(), data)
}
