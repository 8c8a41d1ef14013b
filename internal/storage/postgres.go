package storage

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/your-org/facematch/internal/config"
	"github.com/your-org/facematch/internal/models"
)

//go:embed schema.sql
var schemaSQL string

var (
	ErrNotFound       = errors.New("not found")
	ErrDuplicate      = errors.New("already exists")
	ErrEmptyEmbedding = errors.New("embedding is empty")
)

const uniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore connects to Postgres, retrying with exponential backoff
// until ctx is done or the retry budget runs out.
func NewPostgresStore(ctx context.Context, cfg config.DatabaseConfig) (*PostgresStore, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	poolCfg.MaxConns = int32(cfg.MaxConns)

	var pool *pgxpool.Pool
	connect := func() error {
		p, err := pgxpool.NewWithConfig(ctx, poolCfg)
		if err != nil {
			return fmt.Errorf("connect to postgres: %w", err)
		}
		if err := p.Ping(ctx); err != nil {
			p.Close()
			return fmt.Errorf("ping postgres: %w", err)
		}
		pool = p
		return nil
	}
	notify := func(err error, wait time.Duration) {
		slog.Warn("postgres not ready, retrying", "error", err, "wait", wait.String())
	}
	if err := backoff.RetryNotify(connect, backoff.WithContext(connectBackoff(), ctx), notify); err != nil {
		return nil, err
	}

	return &PostgresStore{pool: pool}, nil
}

func connectBackoff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxInterval = 10 * time.Second
	b.MaxElapsedTime = 2 * time.Minute
	return b
}

func (s *PostgresStore) Close() {
	s.pool.Close()
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// EnsureSchema creates the extension, tables and indexes if missing.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// --- Identities ---

func (s *PostgresStore) CreateIdentity(ctx context.Context, label string, metadata json.RawMessage) (*models.Identity, error) {
	if metadata == nil {
		metadata = json.RawMessage("{}")
	}
	id := &models.Identity{
		ID:       uuid.New(),
		Label:    label,
		Metadata: metadata,
	}
	err := s.pool.QueryRow(ctx,
		`INSERT INTO identities (id, label, metadata) VALUES ($1, $2, $3) RETURNING created_at, updated_at`,
		id.ID, id.Label, id.Metadata,
	).Scan(&id.CreatedAt, &id.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("create identity %q: %w", label, ErrDuplicate)
		}
		return nil, fmt.Errorf("create identity: %w", err)
	}
	return id, nil
}

func (s *PostgresStore) GetIdentity(ctx context.Context, id uuid.UUID) (*models.Identity, error) {
	return s.getIdentity(ctx, `WHERE id = $1`, id)
}

func (s *PostgresStore) GetIdentityByLabel(ctx context.Context, label string) (*models.Identity, error) {
	return s.getIdentity(ctx, `WHERE label = $1`, label)
}

func (s *PostgresStore) getIdentity(ctx context.Context, where string, arg any) (*models.Identity, error) {
	ident := &models.Identity{}
	err := s.pool.QueryRow(ctx,
		`SELECT id, label, metadata, created_at, updated_at FROM identities `+where, arg,
	).Scan(&ident.ID, &ident.Label, &ident.Metadata, &ident.CreatedAt, &ident.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get identity: %w", err)
	}
	return ident, nil
}

func (s *PostgresStore) ListIdentities(ctx context.Context) ([]models.Identity, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, label, metadata, created_at, updated_at FROM identities ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("list identities: %w", err)
	}
	defer rows.Close()

	var identities []models.Identity
	for rows.Next() {
		var ident models.Identity
		if err := rows.Scan(&ident.ID, &ident.Label, &ident.Metadata, &ident.CreatedAt, &ident.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan identity: %w", err)
		}
		identities = append(identities, ident)
	}
	return identities, rows.Err()
}

// DeleteIdentity removes an identity and, by cascade, its embeddings.
func (s *PostgresStore) DeleteIdentity(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM identities WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete identity: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) CountEmbeddings(ctx context.Context, identityID uuid.UUID) (int, error) {
	var count int
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM reference_embeddings WHERE identity_id = $1`, identityID,
	).Scan(&count)
	return count, err
}

// --- Reference embeddings ---

// AddEmbedding stores the embedding twice: exactly as double precision for
// classification, and as a pgvector column for candidate search.
func (s *PostgresStore) AddEmbedding(ctx context.Context, identityID uuid.UUID, embedding []float64) (*models.ReferenceEmbedding, error) {
	if len(embedding) == 0 {
		return nil, ErrEmptyEmbedding
	}
	re := &models.ReferenceEmbedding{
		ID:         uuid.New(),
		IdentityID: identityID,
		Embedding:  append([]float64(nil), embedding...),
	}
	err := s.pool.QueryRow(ctx,
		`INSERT INTO reference_embeddings (id, identity_id, embedding, embedding_vec) VALUES ($1, $2, $3, $4) RETURNING created_at`,
		re.ID, re.IdentityID, re.Embedding, pgvector.NewVector(toFloat32(embedding)),
	).Scan(&re.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("add embedding: %w", err)
	}
	return re, nil
}

func (s *PostgresStore) DeleteEmbedding(ctx context.Context, identityID, embeddingID uuid.UUID) error {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM reference_embeddings WHERE id = $1 AND identity_id = $2`, embeddingID, identityID)
	if err != nil {
		return fmt.Errorf("delete embedding: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ListEmbeddings returns an identity's embeddings without vector values.
func (s *PostgresStore) ListEmbeddings(ctx context.Context, identityID uuid.UUID) ([]models.ReferenceEmbedding, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, identity_id, created_at FROM reference_embeddings WHERE identity_id = $1 ORDER BY created_at, id`,
		identityID)
	if err != nil {
		return nil, fmt.Errorf("list embeddings: %w", err)
	}
	defer rows.Close()

	var embeddings []models.ReferenceEmbedding
	for rows.Next() {
		var re models.ReferenceEmbedding
		if err := rows.Scan(&re.ID, &re.IdentityID, &re.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan embedding: %w", err)
		}
		embeddings = append(embeddings, re)
	}
	return embeddings, rows.Err()
}

// ListReferenceEmbeddings returns every stored embedding with its label, in
// a stable order so that rebuilt reference sets index identically.
func (s *PostgresStore) ListReferenceEmbeddings(ctx context.Context) ([]models.LabeledEmbedding, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT i.label, e.embedding
		FROM reference_embeddings e
		JOIN identities i ON i.id = e.identity_id
		ORDER BY i.created_at, i.id, e.created_at, e.id`)
	if err != nil {
		return nil, fmt.Errorf("list reference embeddings: %w", err)
	}
	defer rows.Close()

	var out []models.LabeledEmbedding
	for rows.Next() {
		var le models.LabeledEmbedding
		if err := rows.Scan(&le.Label, &le.Embedding); err != nil {
			return nil, fmt.Errorf("scan reference embedding: %w", err)
		}
		out = append(out, le)
	}
	return out, rows.Err()
}

type SearchCandidate struct {
	IdentityID  uuid.UUID `json:"identity_id"`
	Label       string    `json:"label"`
	EmbeddingID uuid.UUID `json:"embedding_id"`
	Distance    float64   `json:"distance"`
}

// SearchNearest returns the limit closest stored embeddings by pgvector L2
// distance. Values are float32 precision; exact classification goes through
// the in-memory reference set.
func (s *PostgresStore) SearchNearest(ctx context.Context, embedding []float64, limit int) ([]SearchCandidate, error) {
	if len(embedding) == 0 {
		return nil, ErrEmptyEmbedding
	}
	if limit <= 0 {
		limit = 5
	}
	vec := pgvector.NewVector(toFloat32(embedding))

	rows, err := s.pool.Query(ctx, `
		SELECT e.identity_id, i.label, e.id, e.embedding_vec <-> $1 AS distance
		FROM reference_embeddings e
		JOIN identities i ON i.id = e.identity_id
		ORDER BY e.embedding_vec <-> $1
		LIMIT $2`, vec, limit)
	if err != nil {
		return nil, fmt.Errorf("search nearest: %w", err)
	}
	defer rows.Close()

	var candidates []SearchCandidate
	for rows.Next() {
		var c SearchCandidate
		if err := rows.Scan(&c.IdentityID, &c.Label, &c.EmbeddingID, &c.Distance); err != nil {
			return nil, fmt.Errorf("scan search candidate: %w", err)
		}
		candidates = append(candidates, c)
	}
	return candidates, rows.Err()
}

func toFloat32(v []float64) []float32 {
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(x)
	}
	return out
}

// --- Matches ---

// CreateMatch persists a match result, linking it to the identity with the
// same label when the result was recognized.
func (s *PostgresStore) CreateMatch(ctx context.Context, res models.MatchResult) (*models.Match, error) {
	m := &models.Match{
		ID:         uuid.New(),
		TaskID:     res.TaskID,
		SourceID:   res.SourceID,
		FaceID:     res.FaceID,
		Label:      res.Label,
		Distance:   res.Distance,
		Recognized: res.Recognized,
		Timestamp:  res.Timestamp,
	}
	if m.Timestamp.IsZero() {
		m.Timestamp = time.Now()
	}
	err := s.pool.QueryRow(ctx, `
		INSERT INTO matches (id, task_id, source_id, face_id, label, distance, recognized, identity_id, timestamp)
		VALUES ($1, $2, $3, $4, $5, $6, $7,
			CASE WHEN $7 THEN (SELECT id FROM identities WHERE label = $5) END, $8)
		RETURNING identity_id, created_at`,
		m.ID, m.TaskID, m.SourceID, m.FaceID, m.Label, m.Distance, m.Recognized, m.Timestamp,
	).Scan(&m.IdentityID, &m.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("create match: %w", err)
	}
	return m, nil
}

const matchColumns = `id, task_id, source_id, face_id, label, distance, recognized, identity_id, timestamp, created_at`

func scanMatch(row pgx.Row, m *models.Match) error {
	return row.Scan(&m.ID, &m.TaskID, &m.SourceID, &m.FaceID, &m.Label, &m.Distance,
		&m.Recognized, &m.IdentityID, &m.Timestamp, &m.CreatedAt)
}

func (s *PostgresStore) QueryMatches(ctx context.Context, f models.MatchFilter) ([]models.Match, int, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = 50
	}
	if limit > 500 {
		limit = 500
	}

	baseWhere := "WHERE TRUE"
	var args []any
	argIdx := 1

	if f.SourceID != "" {
		baseWhere += fmt.Sprintf(" AND source_id = $%d", argIdx)
		args = append(args, f.SourceID)
		argIdx++
	}
	if f.Label != "" {
		baseWhere += fmt.Sprintf(" AND label = $%d", argIdx)
		args = append(args, f.Label)
		argIdx++
	}
	if f.From != nil {
		baseWhere += fmt.Sprintf(" AND timestamp >= $%d", argIdx)
		args = append(args, *f.From)
		argIdx++
	}
	if f.To != nil {
		baseWhere += fmt.Sprintf(" AND timestamp <= $%d", argIdx)
		args = append(args, *f.To)
		argIdx++
	}
	if f.Unknown != nil {
		baseWhere += fmt.Sprintf(" AND recognized = %t", !*f.Unknown)
	}

	var total int
	if err := s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM matches "+baseWhere, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count matches: %w", err)
	}

	query := fmt.Sprintf(`SELECT %s FROM matches %s ORDER BY timestamp DESC, id LIMIT $%d OFFSET $%d`,
		matchColumns, baseWhere, argIdx, argIdx+1)
	args = append(args, limit, f.Offset)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("query matches: %w", err)
	}
	defer rows.Close()

	var matches []models.Match
	for rows.Next() {
		var m models.Match
		if err := scanMatch(rows, &m); err != nil {
			return nil, 0, fmt.Errorf("scan match: %w", err)
		}
		matches = append(matches, m)
	}
	return matches, total, rows.Err()
}

func (s *PostgresStore) GetMatch(ctx context.Context, id uuid.UUID) (*models.Match, error) {
	var m models.Match
	err := scanMatch(s.pool.QueryRow(ctx, `SELECT `+matchColumns+` FROM matches WHERE id = $1`, id), &m)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get match: %w", err)
	}
	return &m, nil
}
