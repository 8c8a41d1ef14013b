package dto

import (
	"encoding/json"

	"github.com/google/uuid"
)

type CreateIdentityRequest struct {
	Label    string          `json:"label" binding:"required"`
	Metadata json.RawMessage `json:"metadata,omitempty"`
}

type IdentityResponse struct {
	ID             uuid.UUID       `json:"id"`
	Label          string          `json:"label"`
	Metadata       json.RawMessage `json:"metadata,omitempty"`
	EmbeddingCount int             `json:"embedding_count"`
	CreatedAt      string          `json:"created_at"`
}

type AddEmbeddingRequest struct {
	Embedding []float64 `json:"embedding" binding:"required"`
}

type EmbeddingResponse struct {
	ID         uuid.UUID `json:"id"`
	IdentityID uuid.UUID `json:"identity_id"`
	CreatedAt  string    `json:"created_at"`
}

type SearchRequest struct {
	Embedding []float64 `json:"embedding" binding:"required"`
	Limit     int       `json:"limit"`
}

type SearchResult struct {
	IdentityID  uuid.UUID `json:"identity_id"`
	Label       string    `json:"label"`
	EmbeddingID uuid.UUID `json:"embedding_id"`
	Distance    float64   `json:"distance"`
}
