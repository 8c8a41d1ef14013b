package recognition

import (
	"errors"
	"fmt"

	"github.com/your-org/facematch/pkg/matrix"
)

var (
	ErrLabelMismatch     = errors.New("labels and embeddings are not index-aligned")
	ErrRaggedEmbeddings  = errors.New("embeddings have different dimensions")
	ErrDimensionMismatch = errors.New("query dimension does not match reference set")
	ErrNonFiniteDistance = errors.New("distance is not finite")
)

// ReferenceSet is an immutable gallery of known embeddings: row i of the
// matrix is the embedding for labels[i]. A set is never modified after
// construction, so it can be shared by any number of concurrent classifications.
type ReferenceSet struct {
	labels     []string
	embeddings *matrix.Dense[float64]
}

// NewReferenceSet validates and copies labels and vectors into a new set.
// All vectors must have the same, non-zero length.
func NewReferenceSet(labels []string, vectors [][]float64) (*ReferenceSet, error) {
	if len(labels) != len(vectors) {
		return nil, fmt.Errorf("%w: %d labels, %d embeddings", ErrLabelMismatch, len(labels), len(vectors))
	}
	if len(vectors) == 0 {
		return EmptyReferenceSet(0), nil
	}
	dim := len(vectors[0])
	if dim == 0 {
		return nil, fmt.Errorf("%w: embedding 0 is empty", ErrRaggedEmbeddings)
	}
	for i, v := range vectors {
		if len(v) != dim {
			return nil, fmt.Errorf("%w: embedding %d has %d values, want %d", ErrRaggedEmbeddings, i, len(v), dim)
		}
	}
	return &ReferenceSet{
		labels:     append([]string(nil), labels...),
		embeddings: matrix.New(vectors),
	}, nil
}

// NewReferenceSetFromMatrix builds a set from an (N, D) matrix and N labels.
// The matrix is copied.
func NewReferenceSetFromMatrix(labels []string, embeddings *matrix.Dense[float64]) (*ReferenceSet, error) {
	if len(labels) != embeddings.Rows() {
		return nil, fmt.Errorf("%w: %d labels, %d embeddings", ErrLabelMismatch, len(labels), embeddings.Rows())
	}
	if embeddings.Rows() > 0 && embeddings.Cols() == 0 {
		return nil, fmt.Errorf("%w: embeddings are empty", ErrRaggedEmbeddings)
	}
	return &ReferenceSet{
		labels:     append([]string(nil), labels...),
		embeddings: embeddings.Clone(),
	}, nil
}

// EmptyReferenceSet returns a set with no identities and the given dimension.
func EmptyReferenceSet(dim int) *ReferenceSet {
	return &ReferenceSet{embeddings: matrix.NewFilled(0, dim, 0.0)}
}

// Len returns the number of reference identities (rows). Safe on a nil set.
func (s *ReferenceSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.labels)
}

func (s *ReferenceSet) Empty() bool { return s.Len() == 0 }

// Dim returns the embedding dimension. Safe on a nil set.
func (s *ReferenceSet) Dim() int {
	if s == nil {
		return 0
	}
	return s.embeddings.Cols()
}

func (s *ReferenceSet) Label(i int) string { return s.labels[i] }

func (s *ReferenceSet) Labels() []string {
	if s == nil {
		return nil
	}
	return append([]string(nil), s.labels...)
}

// Embedding returns a copy of reference row i.
func (s *ReferenceSet) Embedding(i int) []float64 { return s.embeddings.Row(i) }

// CheckQuery reports whether query can be classified against s. Empty sets
// accept any query since classification short-circuits to Unknown.
func (s *ReferenceSet) CheckQuery(query []float64) error {
	if s.Empty() {
		return nil
	}
	if len(query) != s.Dim() {
		return fmt.Errorf("%w: got %d values, want %d", ErrDimensionMismatch, len(query), s.Dim())
	}
	return nil
}
