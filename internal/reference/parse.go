// Package reference loads reference sets from the labels.csv / reps.csv pair
// produced by OpenFace's representation generator, from object storage, or
// from Postgres.
package reference

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path"
	"strconv"
	"strings"

	"github.com/your-org/facematch/internal/recognition"
)

var ErrRowCountMismatch = errors.New("labels and representations have different row counts")

// Parse reads a labels file and a representations file into a reference set.
// Row i of reps is the embedding for line i of labels.
func Parse(labels, reps io.Reader) (*recognition.ReferenceSet, error) {
	names, err := ParseLabels(labels)
	if err != nil {
		return nil, err
	}
	vectors, err := ParseReps(reps)
	if err != nil {
		return nil, err
	}
	if len(names) != len(vectors) {
		return nil, fmt.Errorf("%w: %d labels, %d representations", ErrRowCountMismatch, len(names), len(vectors))
	}
	set, err := recognition.NewReferenceSet(names, vectors)
	if err != nil {
		return nil, fmt.Errorf("build reference set: %w", err)
	}
	return set, nil
}

// ParseLabels returns one identity per non-blank line.
func ParseLabels(r io.Reader) ([]string, error) {
	cr := newReader(r)
	var labels []string
	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return labels, nil
		}
		if err != nil {
			return nil, fmt.Errorf("read labels: %w", err)
		}
		line, _ := cr.FieldPos(0)
		label := IdentityFromPath(strings.TrimSpace(record[len(record)-1]))
		if label == "" {
			return nil, fmt.Errorf("read labels: line %d: empty label", line)
		}
		labels = append(labels, label)
	}
}

// IdentityFromPath maps "./aligned/<identity>/<image>.png" to <identity>.
// A value without a path separator is already an identity.
func IdentityFromPath(p string) string {
	if !strings.Contains(p, "/") {
		return p
	}
	dir := path.Dir(path.Clean(p))
	if dir == "." || dir == "/" {
		return ""
	}
	return path.Base(dir)
}

// ParseReps returns one embedding per non-blank line. Every row must have
// the same number of values.
func ParseReps(r io.Reader) ([][]float64, error) {
	cr := newReader(r)
	var rows [][]float64
	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return rows, nil
		}
		if err != nil {
			return nil, fmt.Errorf("read representations: %w", err)
		}
		line, _ := cr.FieldPos(0)
		if len(rows) > 0 && len(record) != len(rows[0]) {
			return nil, fmt.Errorf("read representations: line %d: %d values, want %d",
				line, len(record), len(rows[0]))
		}
		row := make([]float64, len(record))
		for i, field := range record {
			v, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
			if err != nil {
				return nil, fmt.Errorf("read representations: line %d, column %d: %w", line, i+1, err)
			}
			row[i] = v
		}
		rows = append(rows, row)
	}
}

func newReader(r io.Reader) *csv.Reader {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	return cr
}

// Write renders set as a labels/reps pair that Parse reads back into an
// equal set. Labels are written as "<index>,<identity>".
func Write(labelsW, repsW io.Writer, set *recognition.ReferenceSet) error {
	lw := csv.NewWriter(labelsW)
	rw := csv.NewWriter(repsW)

	for i := 0; i < set.Len(); i++ {
		if err := lw.Write([]string{strconv.Itoa(i + 1), set.Label(i)}); err != nil {
			return fmt.Errorf("write labels: %w", err)
		}
		emb := set.Embedding(i)
		fields := make([]string, len(emb))
		for j, v := range emb {
			fields[j] = strconv.FormatFloat(v, 'g', -1, 64)
		}
		if err := rw.Write(fields); err != nil {
			return fmt.Errorf("write representations: %w", err)
		}
	}

	lw.Flush()
	if err := lw.Error(); err != nil {
		return fmt.Errorf("write labels: %w", err)
	}
	rw.Flush()
	if err := rw.Error(); err != nil {
		return fmt.Errorf("write representations: %w", err)
	}
	return nil
}
