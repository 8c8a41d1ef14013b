package main

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/your-org/facematch/internal/models"
	"github.com/your-org/facematch/internal/recognition"
	"github.com/your-org/facematch/internal/reference"
	"github.com/your-org/facematch/internal/storage"
)

type memStore struct {
	identities map[string]*models.Identity
	rows       []models.ReferenceEmbedding
}

func newMemStore(existing ...*models.Identity) *memStore {
	m := &memStore{identities: map[string]*models.Identity{}}
	for _, ident := range existing {
		m.identities[ident.Label] = ident
	}
	return m
}

func (m *memStore) GetIdentityByLabel(_ context.Context, label string) (*models.Identity, error) {
	if ident, ok := m.identities[label]; ok {
		return ident, nil
	}
	return nil, storage.ErrNotFound
}

func (m *memStore) CreateIdentity(_ context.Context, label string, _ json.RawMessage) (*models.Identity, error) {
	ident := &models.Identity{ID: uuid.New(), Label: label}
	m.identities[label] = ident
	return ident, nil
}

func (m *memStore) AddEmbedding(_ context.Context, identityID uuid.UUID, embedding []float64) (*models.ReferenceEmbedding, error) {
	row := models.ReferenceEmbedding{ID: uuid.New(), IdentityID: identityID, Embedding: embedding}
	m.rows = append(m.rows, row)
	return &row, nil
}

func (m *memStore) ListEmbeddings(_ context.Context, identityID uuid.UUID) ([]models.ReferenceEmbedding, error) {
	var out []models.ReferenceEmbedding
	for _, r := range m.rows {
		if r.IdentityID == identityID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *memStore) DeleteEmbedding(_ context.Context, identityID, embeddingID uuid.UUID) error {
	for i, r := range m.rows {
		if r.ID == embeddingID && r.IdentityID == identityID {
			m.rows = append(m.rows[:i], m.rows[i+1:]...)
			return nil
		}
	}
	return storage.ErrNotFound
}

func (m *memStore) ListReferenceEmbeddings(context.Context) ([]models.LabeledEmbedding, error) {
	out := make([]models.LabeledEmbedding, 0, len(m.rows))
	for _, r := range m.rows {
		for label, ident := range m.identities {
			if ident.ID == r.IdentityID {
				out = append(out, models.LabeledEmbedding{Label: label, Embedding: r.Embedding})
			}
		}
	}
	return out, nil
}

func parseSet(t *testing.T, labels, reps string) *recognition.ReferenceSet {
	t.Helper()
	set, err := reference.Parse(strings.NewReader(labels), strings.NewReader(reps))
	require.NoError(t, err)
	return set
}

const (
	sampleLabels = "1,./aligned/ann/1.png\n2,./aligned/bob/1.png\n1,./aligned/ann/2.png\n"
	sampleReps   = "1,0\n0,1\n0.9,0.1\n"
)

func TestImportToPostgresPreservesOrder(t *testing.T) {
	set := parseSet(t, sampleLabels, sampleReps)

	existing := &models.Identity{ID: uuid.New(), Label: "bob"}
	store := newMemStore(existing)

	require.NoError(t, importToPostgres(context.Background(), store, set, false))
	require.Len(t, store.identities, 2)
	require.Same(t, existing, store.identities["bob"])

	// the database source rebuilds the same set
	again, err := reference.DatabaseSource{Store: store}.Load(context.Background())
	require.NoError(t, err)
	require.Equal(t, set.Labels(), again.Labels())
	for i := 0; i < set.Len(); i++ {
		require.Equal(t, set.Embedding(i), again.Embedding(i))
	}
}

func TestImportToPostgresIsRepeatable(t *testing.T) {
	set := parseSet(t, sampleLabels, sampleReps)
	store := newMemStore()

	require.NoError(t, importToPostgres(context.Background(), store, set, false))
	require.NoError(t, importToPostgres(context.Background(), store, set, false))
	require.Len(t, store.rows, 3)

	// a new identity in a later file is still added
	more := parseSet(t, sampleLabels+"3,./aligned/cy/1.png\n", sampleReps+"0.5,0.5\n")
	require.NoError(t, importToPostgres(context.Background(), store, more, false))
	require.Len(t, store.rows, 4)
	require.Contains(t, store.identities, "cy")
}

func TestImportToPostgresReplace(t *testing.T) {
	store := newMemStore()
	require.NoError(t, importToPostgres(context.Background(), store, parseSet(t, sampleLabels, sampleReps), false))

	updated := parseSet(t, "1,./aligned/ann/3.png\n", "0.7,0.3\n")
	require.NoError(t, importToPostgres(context.Background(), store, updated, true))

	got, err := reference.DatabaseSource{Store: store}.Load(context.Background())
	require.NoError(t, err)
	require.Equal(t, []string{"bob", "ann"}, got.Labels())
	require.Equal(t, []float64{0.7, 0.3}, got.Embedding(1))
}

type memObjects struct {
	objects  map[string][]byte
	truncate bool
}

func (m *memObjects) PutObject(_ context.Context, key string, data []byte, _ string) error {
	if m.truncate {
		data = data[:len(data)/2]
	}
	m.objects[key] = data
	return nil
}

func (m *memObjects) StatObject(_ context.Context, key string) (*storage.ObjectInfo, error) {
	data, ok := m.objects[key]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return &storage.ObjectInfo{Key: key, Size: int64(len(data)), ETag: "etag"}, nil
}

func TestUploadObjects(t *testing.T) {
	store := &memObjects{objects: map[string][]byte{}}
	err := uploadObjects(context.Background(), store, map[string][]byte{
		"labels.csv": []byte(sampleLabels),
		"reps.csv":   []byte(sampleReps),
	})
	require.NoError(t, err)
	require.Equal(t, []byte(sampleReps), store.objects["reps.csv"])

	store = &memObjects{objects: map[string][]byte{}, truncate: true}
	err = uploadObjects(context.Background(), store, map[string][]byte{"reps.csv": []byte(sampleReps)})
	require.Error(t, err)
	require.False(t, errors.Is(err, storage.ErrNotFound))
	require.Contains(t, err.Error(), "want")
}
