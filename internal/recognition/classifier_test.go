package recognition_test

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/your-org/facematch/internal/recognition"
	"github.com/your-org/facematch/pkg/matrix"
)

func identitySet(t *testing.T) *recognition.ReferenceSet {
	t.Helper()
	set, err := recognition.NewReferenceSet(
		[]string{"a", "b", "c"},
		[][]float64{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}},
	)
	require.NoError(t, err)
	return set
}

func TestClassifyExactMatch(t *testing.T) {
	res := recognition.Classify(identitySet(t), []float64{0, 1, 0})
	require.Equal(t, "b", res.Label)
	require.Equal(t, 1, res.Index)
	require.Equal(t, 0.0, res.Distance)
	require.False(t, res.IsUnknown())
}

func TestClassifyNearestNotExact(t *testing.T) {
	res := recognition.Classify(identitySet(t), []float64{0, 0.9, 0.1})
	require.Equal(t, "b", res.Label)
	require.InDelta(t, 0.02, res.Distance, 1e-12)
}

func TestClassifyKeepsSquaredDistance(t *testing.T) {
	set, err := recognition.NewReferenceSet([]string{"x"}, [][]float64{{0, 0}})
	require.NoError(t, err)

	res := recognition.Classify(set, []float64{3, 4})
	require.Equal(t, 25.0, res.Distance)
}

func TestClassifyEmptySetIsUnknown(t *testing.T) {
	empty, err := recognition.NewReferenceSet(nil, nil)
	require.NoError(t, err)

	for name, set := range map[string]*recognition.ReferenceSet{
		"nil":      nil,
		"empty":    empty,
		"empty128": recognition.EmptyReferenceSet(128),
	} {
		t.Run(name, func(t *testing.T) {
			res := recognition.Classify(set, []float64{1, 2, 3})
			require.Equal(t, recognition.UnknownLabel, res.Label)
			require.True(t, res.IsUnknown())
			require.False(t, res.Known(0))
		})
	}
}

func TestClassifyTieBreaksOnFirstIndex(t *testing.T) {
	vectors := [][]float64{
		{9, 9}, {8, 8}, {1, 1}, {7, 7}, {6, 6}, {1, 1},
	}
	labels := []string{"l0", "l1", "l2", "l3", "l4", "l5"}
	set, err := recognition.NewReferenceSet(labels, vectors)
	require.NoError(t, err)

	res := recognition.Classify(set, []float64{1, 1})
	require.Equal(t, 2, res.Index)
	require.Equal(t, "l2", res.Label)
}

func TestClassifyDimensionMismatchPanics(t *testing.T) {
	set := identitySet(t)
	defer func() {
		r := recover()
		require.NotNil(t, r)
		err, ok := r.(error)
		require.True(t, ok)
		require.ErrorIs(t, err, recognition.ErrDimensionMismatch)
	}()
	recognition.Classify(set, []float64{1, 2})
}

func TestClassifyMatchesBruteForce(t *testing.T) {
	rng := rand.New(rand.NewSource(99))
	const n, d = 50, 128
	vectors := make([][]float64, n)
	labels := make([]string, n)
	for i := range vectors {
		labels[i] = fmt.Sprintf("id-%02d", i)
		vectors[i] = make([]float64, d)
		for j := range vectors[i] {
			vectors[i][j] = rng.NormFloat64()
		}
	}
	set, err := recognition.NewReferenceSet(labels, vectors)
	require.NoError(t, err)

	for k := 0; k < 20; k++ {
		q := make([]float64, d)
		for j := range q {
			q[j] = rng.NormFloat64()
		}
		best, bestDist := -1, 0.0
		for i, v := range vectors {
			var s float64
			for j := range v {
				diff := v[j] - q[j]
				s += diff * diff
			}
			if best < 0 || s < bestDist {
				best, bestDist = i, s
			}
		}
		res := recognition.Classify(set, q)
		require.Equal(t, best, res.Index)
		require.Equal(t, bestDist, res.Distance)
	}
}

func TestResultKnown(t *testing.T) {
	res := recognition.Result{Label: "a", Distance: 0.5, Index: 0}
	require.True(t, res.Known(0))
	require.True(t, res.Known(0.5))
	require.False(t, res.Known(0.4))
}

func TestResultCheckFinite(t *testing.T) {
	res := recognition.Classify(identitySet(t), []float64{1e200, 0, 0})
	require.ErrorIs(t, res.CheckFinite(), recognition.ErrNonFiniteDistance)

	require.NoError(t, recognition.Classify(identitySet(t), []float64{1, 0, 0}).CheckFinite())
	require.NoError(t, recognition.Classify(nil, []float64{1e200}).CheckFinite())
	require.ErrorIs(t, recognition.Result{Label: "a", Distance: math.NaN()}.CheckFinite(),
		recognition.ErrNonFiniteDistance)
}

func TestNewReferenceSetValidation(t *testing.T) {
	_, err := recognition.NewReferenceSet([]string{"a"}, [][]float64{{1}, {2}})
	require.ErrorIs(t, err, recognition.ErrLabelMismatch)

	_, err = recognition.NewReferenceSet([]string{"a", "b"}, [][]float64{{1, 2}, {3}})
	require.ErrorIs(t, err, recognition.ErrRaggedEmbeddings)

	_, err = recognition.NewReferenceSet([]string{"a"}, [][]float64{{}})
	require.ErrorIs(t, err, recognition.ErrRaggedEmbeddings)
}

func TestReferenceSetIsIsolatedFromInputs(t *testing.T) {
	labels := []string{"a"}
	vectors := [][]float64{{1, 2}}
	set, err := recognition.NewReferenceSet(labels, vectors)
	require.NoError(t, err)

	labels[0] = "z"
	vectors[0][0] = 100
	require.Equal(t, "a", set.Label(0))
	require.Equal(t, []float64{1, 2}, set.Embedding(0))

	got := set.Labels()
	got[0] = "mutated"
	require.Equal(t, "a", set.Label(0))
}

func TestNewReferenceSetFromMatrix(t *testing.T) {
	m := matrix.New([][]float64{{1, 0}, {0, 1}})
	set, err := recognition.NewReferenceSetFromMatrix([]string{"x", "y"}, m)
	require.NoError(t, err)
	require.Equal(t, 2, set.Len())
	require.Equal(t, 2, set.Dim())

	m.Set(0, 0, 42)
	require.Equal(t, []float64{1, 0}, set.Embedding(0))

	_, err = recognition.NewReferenceSetFromMatrix([]string{"x"}, m)
	require.ErrorIs(t, err, recognition.ErrLabelMismatch)
}

func TestCheckQuery(t *testing.T) {
	set := identitySet(t)
	require.NoError(t, set.CheckQuery([]float64{1, 2, 3}))
	require.ErrorIs(t, set.CheckQuery([]float64{1}), recognition.ErrDimensionMismatch)

	var none *recognition.ReferenceSet
	require.NoError(t, none.CheckQuery([]float64{1}))
}

func TestClassifyBatch(t *testing.T) {
	set := identitySet(t)
	queries := [][]float64{{1, 0, 0}, {0, 0, 1}, {0, 0.9, 0.1}, {0.2, 0.1, 0}}

	results, err := recognition.ClassifyBatch(context.Background(), set, queries, 2)
	require.NoError(t, err)
	require.Len(t, results, len(queries))
	require.Equal(t, []string{"a", "c", "b", "a"}, []string{
		results[0].Label, results[1].Label, results[2].Label, results[3].Label,
	})
}

func TestClassifyBatchRejectsMalformedQuery(t *testing.T) {
	_, err := recognition.ClassifyBatch(context.Background(), identitySet(t),
		[][]float64{{1, 0, 0}, {1}}, 0)
	require.ErrorIs(t, err, recognition.ErrDimensionMismatch)
	require.Contains(t, err.Error(), "query 1")
}

func TestClassifyBatchCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := recognition.ClassifyBatch(ctx, identitySet(t), [][]float64{{1, 0, 0}}, 1)
	require.True(t, errors.Is(err, context.Canceled))
}

func TestConcurrentClassifyIsSafe(t *testing.T) {
	set := identitySet(t)
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				res := recognition.Classify(set, []float64{0, 0, 1})
				if res.Label != "c" {
					t.Errorf("got %q", res.Label)
					return
				}
			}
		}()
	}
	wg.Wait()
}
