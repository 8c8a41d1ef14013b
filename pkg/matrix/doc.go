// Package matrix provides a small dense, row-major matrix over float32 or
// float64 elements together with the linear-algebra primitives used by the
// embedding classifier: element-wise add/sub/negate/power, scalar and matrix
// multiplication, transpose and axis reductions.
//
// Every operation returns a freshly allocated matrix and leaves its inputs
// untouched. Shape mismatches and out-of-range indices are programming errors
// and panic with an error wrapping ErrShape or ErrIndexOutOfRange.
//
// float32 and float64 matrices run their bulk kernels through gonum's BLAS
// (blas32/blas64); named float types fall back to plain loops.
package matrix
