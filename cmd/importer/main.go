// Command importer moves reference sets between the labels.csv / reps.csv
// pair and the service's stores.
//
//	importer -target=postgres -labels=labels.csv -reps=reps.csv [-replace]
//	importer -target=minio    -labels=labels.csv -reps=reps.csv
//	importer -export -labels=out/labels.csv -reps=out/reps.csv
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"

	"github.com/your-org/facematch/internal/config"
	"github.com/your-org/facematch/internal/models"
	"github.com/your-org/facematch/internal/observability"
	"github.com/your-org/facematch/internal/recognition"
	"github.com/your-org/facematch/internal/reference"
	"github.com/your-org/facematch/internal/storage"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to config file")
	target := flag.String("target", config.SourceDatabase, "import destination: postgres or minio")
	labelsPath := flag.String("labels", "", "labels CSV path (default: recognition.labels_path)")
	repsPath := flag.String("reps", "", "representations CSV path (default: recognition.reps_path)")
	replace := flag.Bool("replace", false, "postgres: drop stored embeddings of imported identities instead of skipping them")
	export := flag.Bool("export", false, "write the configured reference source to -labels/-reps instead of importing")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	observability.SetupLogger(cfg.Logging.Level, cfg.Logging.Format)

	if *labelsPath == "" {
		*labelsPath = cfg.Recognition.LabelsPath
	}
	if *repsPath == "" {
		*repsPath = cfg.Recognition.RepsPath
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if *export {
		err = runExport(ctx, cfg, *labelsPath, *repsPath)
	} else {
		err = runImport(ctx, cfg, *target, *labelsPath, *repsPath, *replace)
	}
	if err != nil {
		slog.Error("importer failed", "error", err)
		os.Exit(1)
	}
}

func runImport(ctx context.Context, cfg *config.Config, target, labelsPath, repsPath string, replace bool) error {
	labels, err := os.ReadFile(labelsPath)
	if err != nil {
		return fmt.Errorf("read labels: %w", err)
	}
	reps, err := os.ReadFile(repsPath)
	if err != nil {
		return fmt.Errorf("read representations: %w", err)
	}

	// Parse first so a broken pair never reaches a store.
	set, err := reference.Parse(bytes.NewReader(labels), bytes.NewReader(reps))
	if err != nil {
		return err
	}
	if d := cfg.Recognition.Dimension; d > 0 && !set.Empty() && set.Dim() != d {
		return fmt.Errorf("reference set has dimension %d, want %d", set.Dim(), d)
	}
	slog.Info("parsed reference set", "identities", set.Len(), "dimension", set.Dim())

	switch target {
	case config.SourceDatabase:
		db, err := storage.NewPostgresStore(ctx, cfg.Database)
		if err != nil {
			return err
		}
		defer db.Close()
		if err := db.EnsureSchema(ctx); err != nil {
			return err
		}
		return importToPostgres(ctx, db, set, replace)

	case config.SourceObject:
		store, err := storage.NewMinIOStore(cfg.MinIO)
		if err != nil {
			return err
		}
		if err := store.EnsureBucket(ctx); err != nil {
			return err
		}
		return uploadObjects(ctx, store, map[string][]byte{
			cfg.Recognition.LabelsKey: labels,
			cfg.Recognition.RepsKey:   reps,
		})

	default:
		return fmt.Errorf("unknown target %q", target)
	}
}

// objectWriter is the part of MinIOStore the upload needs.
type objectWriter interface {
	PutObject(ctx context.Context, key string, data []byte, contentType string) error
	StatObject(ctx context.Context, key string) (*storage.ObjectInfo, error)
}

// uploadObjects puts each object and reads its size back, so a truncated
// upload fails the import.
func uploadObjects(ctx context.Context, store objectWriter, objects map[string][]byte) error {
	for key, data := range objects {
		if err := store.PutObject(ctx, key, data, "text/csv"); err != nil {
			return err
		}
		info, err := store.StatObject(ctx, key)
		if err != nil {
			return err
		}
		if info.Size != int64(len(data)) {
			return fmt.Errorf("object %s: stored %d bytes, want %d", key, info.Size, len(data))
		}
		slog.Info("uploaded reference object", "key", key, "size", info.Size, "etag", info.ETag)
	}
	return nil
}

// referenceWriter is the part of PostgresStore the import needs.
type referenceWriter interface {
	GetIdentityByLabel(ctx context.Context, label string) (*models.Identity, error)
	CreateIdentity(ctx context.Context, label string, metadata json.RawMessage) (*models.Identity, error)
	AddEmbedding(ctx context.Context, identityID uuid.UUID, embedding []float64) (*models.ReferenceEmbedding, error)
	ListEmbeddings(ctx context.Context, identityID uuid.UUID) ([]models.ReferenceEmbedding, error)
	DeleteEmbedding(ctx context.Context, identityID, embeddingID uuid.UUID) error
}

// importToPostgres adds one embedding per row, creating identities that do
// not exist yet. Rows are inserted in file order so a database-sourced set
// indexes like the CSV pair.
//
// An identity that already has embeddings is skipped, so running the same
// import twice does not duplicate rows. With replace its stored embeddings
// are deleted and the CSV rows take their place.
func importToPostgres(ctx context.Context, db referenceWriter, set *recognition.ReferenceSet, replace bool) error {
	ids := map[string]uuid.UUID{}
	skip := map[string]bool{}
	created, inserted := 0, 0
	for i := 0; i < set.Len(); i++ {
		label := set.Label(i)
		if skip[label] {
			continue
		}
		id, ok := ids[label]
		if !ok {
			var skipped bool
			ident, err := db.GetIdentityByLabel(ctx, label)
			switch {
			case errors.Is(err, storage.ErrNotFound):
				ident, err = db.CreateIdentity(ctx, label, nil)
				created++
			case err == nil:
				skipped, err = clearEmbeddings(ctx, db, ident.ID, replace)
			}
			if err != nil {
				return fmt.Errorf("identity %q: %w", label, err)
			}
			if skipped {
				slog.Info("identity already has embeddings, skipping", "label", label)
				skip[label] = true
				continue
			}
			id = ident.ID
			ids[label] = id
		}
		if _, err := db.AddEmbedding(ctx, id, set.Embedding(i)); err != nil {
			return fmt.Errorf("row %d: %w", i+1, err)
		}
		inserted++
	}

	slog.Info("imported reference set",
		"rows", inserted, "identities", len(ids), "created", created, "skipped", len(skip))
	return nil
}

// clearEmbeddings reports whether an existing identity must be skipped. With
// replace its embeddings are deleted and it is never skipped.
func clearEmbeddings(ctx context.Context, db referenceWriter, identityID uuid.UUID, replace bool) (bool, error) {
	existing, err := db.ListEmbeddings(ctx, identityID)
	if err != nil {
		return false, err
	}
	if len(existing) == 0 {
		return false, nil
	}
	if !replace {
		return true, nil
	}
	for _, e := range existing {
		if err := db.DeleteEmbedding(ctx, identityID, e.ID); err != nil {
			return false, err
		}
	}
	return false, nil
}

func runExport(ctx context.Context, cfg *config.Config, labelsPath, repsPath string) error {
	var (
		objects reference.ObjectGetter
		lister  reference.EmbeddingLister
	)
	switch cfg.Recognition.Source {
	case config.SourceObject:
		store, err := storage.NewMinIOStore(cfg.MinIO)
		if err != nil {
			return err
		}
		objects = store
	case config.SourceDatabase:
		db, err := storage.NewPostgresStore(ctx, cfg.Database)
		if err != nil {
			return err
		}
		defer db.Close()
		lister = db
	}

	source, err := reference.NewSource(cfg.Recognition, objects, lister)
	if err != nil {
		return err
	}
	set, err := source.Load(ctx)
	if err != nil {
		return err
	}

	var labels, reps bytes.Buffer
	if err := reference.Write(&labels, &reps, set); err != nil {
		return err
	}
	if err := os.WriteFile(labelsPath, labels.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write labels: %w", err)
	}
	if err := os.WriteFile(repsPath, reps.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write representations: %w", err)
	}
	slog.Info("exported reference set", "rows", set.Len(), "labels", labelsPath, "reps", repsPath)
	return nil
}
