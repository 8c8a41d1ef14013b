package reference

import (
	"bytes"
	"context"
	"fmt"
	"os"

	"github.com/your-org/facematch/internal/config"
	"github.com/your-org/facematch/internal/models"
	"github.com/your-org/facematch/internal/recognition"
	"github.com/your-org/facematch/pkg/matrix"
)

// FileSource reads the CSV pair from local disk.
type FileSource struct {
	LabelsPath string
	RepsPath   string
}

func (s FileSource) Load(_ context.Context) (*recognition.ReferenceSet, error) {
	labels, err := os.Open(s.LabelsPath)
	if err != nil {
		return nil, fmt.Errorf("open labels: %w", err)
	}
	defer labels.Close()

	reps, err := os.Open(s.RepsPath)
	if err != nil {
		return nil, fmt.Errorf("open representations: %w", err)
	}
	defer reps.Close()

	return Parse(labels, reps)
}

// ObjectGetter is the read side of the object store.
type ObjectGetter interface {
	GetObject(ctx context.Context, key string) ([]byte, error)
}

// ObjectSource reads the CSV pair from object storage.
type ObjectSource struct {
	Store     ObjectGetter
	LabelsKey string
	RepsKey   string
}

func (s ObjectSource) Load(ctx context.Context) (*recognition.ReferenceSet, error) {
	labels, err := s.Store.GetObject(ctx, s.LabelsKey)
	if err != nil {
		return nil, fmt.Errorf("fetch labels: %w", err)
	}
	reps, err := s.Store.GetObject(ctx, s.RepsKey)
	if err != nil {
		return nil, fmt.Errorf("fetch representations: %w", err)
	}
	return Parse(bytes.NewReader(labels), bytes.NewReader(reps))
}

// EmbeddingLister returns every stored reference embedding in a stable order.
type EmbeddingLister interface {
	ListReferenceEmbeddings(ctx context.Context) ([]models.LabeledEmbedding, error)
}

// DatabaseSource builds the set from identities stored in Postgres. An
// identity with several embeddings contributes one row per embedding.
type DatabaseSource struct {
	Store EmbeddingLister
}

func (s DatabaseSource) Load(ctx context.Context) (*recognition.ReferenceSet, error) {
	rows, err := s.Store.ListReferenceEmbeddings(ctx)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return recognition.EmptyReferenceSet(0), nil
	}

	dim := len(rows[0].Embedding)
	labels := make([]string, len(rows))
	data := make([]float64, 0, len(rows)*dim)
	for i, r := range rows {
		if len(r.Embedding) != dim {
			return nil, fmt.Errorf("build reference set: %w: %q row %d has %d values, want %d",
				recognition.ErrRaggedEmbeddings, r.Label, i, len(r.Embedding), dim)
		}
		labels[i] = r.Label
		data = append(data, r.Embedding...)
	}

	set, err := recognition.NewReferenceSetFromMatrix(labels, matrix.NewFromData(len(rows), dim, data))
	if err != nil {
		return nil, fmt.Errorf("build reference set: %w", err)
	}
	return set, nil
}

// NewSource picks the source named by cfg.Source. objects and db may be nil
// when the corresponding source is not selected.
func NewSource(cfg config.RecognitionConfig, objects ObjectGetter, db EmbeddingLister) (recognition.Source, error) {
	switch cfg.Source {
	case config.SourceFile:
		return FileSource{LabelsPath: cfg.LabelsPath, RepsPath: cfg.RepsPath}, nil
	case config.SourceObject:
		if objects == nil {
			return nil, fmt.Errorf("reference source %q: object store not configured", cfg.Source)
		}
		return ObjectSource{Store: objects, LabelsKey: cfg.LabelsKey, RepsKey: cfg.RepsKey}, nil
	case config.SourceDatabase:
		if db == nil {
			return nil, fmt.Errorf("reference source %q: database not configured", cfg.Source)
		}
		return DatabaseSource{Store: db}, nil
	default:
		return nil, fmt.Errorf("unknown reference source %q", cfg.Source)
	}
}

// DimensionChecked wraps src so that loaded sets must have dimension dim.
// Empty sets pass.
func DimensionChecked(src recognition.Source, dim int) recognition.Source {
	return recognition.SourceFunc(func(ctx context.Context) (*recognition.ReferenceSet, error) {
		set, err := src.Load(ctx)
		if err != nil {
			return nil, err
		}
		if dim > 0 && !set.Empty() && set.Dim() != dim {
			return nil, fmt.Errorf("reference set has dimension %d, want %d", set.Dim(), dim)
		}
		return set, nil
	})
}
