package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Identity is a known person; its label is what classification reports.
type Identity struct {
	ID        uuid.UUID       `json:"id" db:"id"`
	Label     string          `json:"label" db:"label"`
	Metadata  json.RawMessage `json:"metadata" db:"metadata"`
	CreatedAt time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt time.Time       `json:"updated_at" db:"updated_at"`
}

type ReferenceEmbedding struct {
	ID         uuid.UUID `json:"id" db:"id"`
	IdentityID uuid.UUID `json:"identity_id" db:"identity_id"`
	Embedding  []float64 `json:"embedding,omitempty" db:"embedding"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}

// LabeledEmbedding is one row of a reference set as stored in Postgres.
type LabeledEmbedding struct {
	Label     string
	Embedding []float64
}
