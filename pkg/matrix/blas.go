package matrix

import (
	"gonum.org/v1/gonum/blas"
	"gonum.org/v1/gonum/blas/blas32"
	"gonum.org/v1/gonum/blas/blas64"
)

// The kernels below dispatch float32/float64 slices to gonum BLAS and use
// plain loops for any other element type. Callers guarantee matching lengths.

// axpy computes y += alpha*x.
func axpy[T Float](alpha T, x, y []T) {
	if len(x) == 0 {
		return
	}
	switch xs := any(x).(type) {
	case []float64:
		ys := any(y).([]float64)
		blas64.Axpy(float64(alpha),
			blas64.Vector{N: len(xs), Inc: 1, Data: xs},
			blas64.Vector{N: len(ys), Inc: 1, Data: ys})
		return
	case []float32:
		ys := any(y).([]float32)
		blas32.Axpy(float32(alpha),
			blas32.Vector{N: len(xs), Inc: 1, Data: xs},
			blas32.Vector{N: len(ys), Inc: 1, Data: ys})
		return
	}
	for i, v := range x {
		y[i] += alpha * v
	}
}

// scal computes x *= alpha.
func scal[T Float](alpha T, x []T) {
	if len(x) == 0 {
		return
	}
	switch xs := any(x).(type) {
	case []float64:
		blas64.Scal(float64(alpha), blas64.Vector{N: len(xs), Inc: 1, Data: xs})
		return
	case []float32:
		blas32.Scal(float32(alpha), blas32.Vector{N: len(xs), Inc: 1, Data: xs})
		return
	}
	for i := range x {
		x[i] *= alpha
	}
}

// gemm computes c = a*b for row-major a (m x k), b (k x n) and c (m x n).
// c must be zeroed by the caller.
func gemm[T Float](m, n, k int, a, b, c []T) {
	if m == 0 || n == 0 || k == 0 {
		return
	}
	switch as := any(a).(type) {
	case []float64:
		blas64.Gemm(blas.NoTrans, blas.NoTrans, 1,
			blas64.General{Rows: m, Cols: k, Stride: k, Data: as},
			blas64.General{Rows: k, Cols: n, Stride: n, Data: any(b).([]float64)},
			0,
			blas64.General{Rows: m, Cols: n, Stride: n, Data: any(c).([]float64)})
		return
	case []float32:
		blas32.Gemm(blas.NoTrans, blas.NoTrans, 1,
			blas32.General{Rows: m, Cols: k, Stride: k, Data: as},
			blas32.General{Rows: k, Cols: n, Stride: n, Data: any(b).([]float32)},
			0,
			blas32.General{Rows: m, Cols: n, Stride: n, Data: any(c).([]float32)})
		return
	}
	for i := 0; i < m; i++ {
		row := c[i*n : (i+1)*n]
		for p := 0; p < k; p++ {
			av := a[i*k+p]
			brow := b[p*n : (p+1)*n]
			for j := range row {
				row[j] += av * brow[j]
			}
		}
	}
}
