package recognition

import (
	"context"
	"fmt"
	"math"

	"golang.org/x/sync/errgroup"

	"github.com/your-org/facematch/pkg/matrix"
)

// UnknownLabel is reported when there is nothing to compare against.
const UnknownLabel = "Unknown"

// Result is the outcome of one classification. For an Unknown result Index
// is -1 and Distance carries no meaning.
type Result struct {
	Label    string
	Distance float64 // squared Euclidean distance to the matched reference row
	Index    int
}

func (r Result) IsUnknown() bool { return r.Index < 0 }

// CheckFinite returns ErrNonFiniteDistance when a matched result's distance
// overflowed to Inf or is NaN. Such results have no JSON encoding.
func (r Result) CheckFinite() error {
	if r.IsUnknown() {
		return nil
	}
	if math.IsInf(r.Distance, 0) || math.IsNaN(r.Distance) {
		return fmt.Errorf("%w: %q at index %d has distance %v", ErrNonFiniteDistance, r.Label, r.Index, r.Distance)
	}
	return nil
}

// Known reports whether r matched a reference row within maxDistance.
// A non-positive maxDistance accepts every match.
func (r Result) Known(maxDistance float64) bool {
	if r.IsUnknown() {
		return false
	}
	return maxDistance <= 0 || r.Distance <= maxDistance
}

func unknown() Result { return Result{Label: UnknownLabel, Index: -1} }

// Classify returns the reference identity closest to query by squared
// Euclidean distance. Ties go to the lowest row index. A nil or empty set
// yields the Unknown result. A query whose length differs from set.Dim()
// is a caller bug and panics; use CheckQuery to validate untrusted input.
func Classify(set *ReferenceSet, query []float64) Result {
	if set.Empty() {
		return unknown()
	}
	if len(query) != set.Dim() {
		panic(fmt.Errorf("recognition.Classify: %w: got %d values, want %d",
			ErrDimensionMismatch, len(query), set.Dim()))
	}

	n := set.Len()
	diff := matrix.Sub(set.embeddings, matrix.Repeat(query, n))
	distances := matrix.Sum(matrix.Pow(diff, 2), matrix.Row).RawData()

	best := 0
	for i := 1; i < n; i++ {
		if distances[i] < distances[best] {
			best = i
		}
	}
	return Result{Label: set.labels[best], Distance: distances[best], Index: best}
}

// ClassifyBatch classifies every query against set using at most concurrency
// goroutines (<=0 means one per query). All queries are validated up front;
// results are index-aligned with queries.
func ClassifyBatch(ctx context.Context, set *ReferenceSet, queries [][]float64, concurrency int) ([]Result, error) {
	for i, q := range queries {
		if err := set.CheckQuery(q); err != nil {
			return nil, fmt.Errorf("query %d: %w", i, err)
		}
	}

	results := make([]Result, len(queries))
	g, ctx := errgroup.WithContext(ctx)
	if concurrency > 0 {
		g.SetLimit(concurrency)
	}
	for i, q := range queries {
		i, q := i, q
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			results[i] = Classify(set, q)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
