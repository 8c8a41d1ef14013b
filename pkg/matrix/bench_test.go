package matrix_test

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/your-org/facematch/pkg/matrix"
)

// benchShapes mirror reference galleries: N identities by 128-d embeddings.
var benchShapes = [][2]int{{16, 128}, {256, 128}, {4096, 128}}

var sinkM *matrix.Dense[float64]

func BenchmarkSub(b *testing.B) {
	b.ReportAllocs()
	for _, s := range benchShapes {
		b.Run(fmt.Sprintf("n=%d", s[0]), func(b *testing.B) {
			rng := rand.New(rand.NewSource(1337))
			x := randDense(rng, s[0], s[1])
			y := randDense(rng, s[0], s[1])
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				sinkM = matrix.Sub(x, y)
			}
		})
	}
}

func BenchmarkSquaredRowDistance(b *testing.B) {
	b.ReportAllocs()
	for _, s := range benchShapes {
		b.Run(fmt.Sprintf("n=%d", s[0]), func(b *testing.B) {
			rng := rand.New(rand.NewSource(4242))
			ref := randDense(rng, s[0], s[1])
			q := randDense(rng, 1, s[1]).Row(0)
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				diff := matrix.Sub(ref, matrix.Repeat(q, s[0]))
				sinkM = matrix.Sum(matrix.Pow(diff, 2), matrix.Row)
			}
		})
	}
}

func BenchmarkMul(b *testing.B) {
	b.ReportAllocs()
	for _, n := range []int{64, 128, 256} {
		b.Run(fmt.Sprintf("n=%d", n), func(b *testing.B) {
			rng := rand.New(rand.NewSource(11))
			x := randDense(rng, n, n)
			y := randDense(rng, n, n)
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				sinkM = matrix.Mul(x, y)
			}
		})
	}
}
