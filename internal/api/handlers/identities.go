package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/your-org/facematch/internal/models"
	"github.com/your-org/facematch/internal/storage"
	"github.com/your-org/facematch/pkg/dto"
)

const timeLayout = time.RFC3339

// IdentityStore is the Postgres surface the identity endpoints need.
type IdentityStore interface {
	CreateIdentity(ctx context.Context, label string, metadata json.RawMessage) (*models.Identity, error)
	GetIdentity(ctx context.Context, id uuid.UUID) (*models.Identity, error)
	ListIdentities(ctx context.Context) ([]models.Identity, error)
	DeleteIdentity(ctx context.Context, id uuid.UUID) error
	CountEmbeddings(ctx context.Context, identityID uuid.UUID) (int, error)
	AddEmbedding(ctx context.Context, identityID uuid.UUID, embedding []float64) (*models.ReferenceEmbedding, error)
	ListEmbeddings(ctx context.Context, identityID uuid.UUID) ([]models.ReferenceEmbedding, error)
	DeleteEmbedding(ctx context.Context, identityID, embeddingID uuid.UUID) error
	SearchNearest(ctx context.Context, embedding []float64, limit int) ([]storage.SearchCandidate, error)
}

type IdentityHandler struct {
	db        IdentityStore
	dimension int
}

// NewIdentityHandler builds the handler; embeddings must have dimension
// values (0 disables the check).
func NewIdentityHandler(db IdentityStore, dimension int) *IdentityHandler {
	return &IdentityHandler{db: db, dimension: dimension}
}

func (h *IdentityHandler) checkEmbedding(v []float64) error {
	if len(v) == 0 {
		return errors.New("embedding is empty")
	}
	if h.dimension > 0 && len(v) != h.dimension {
		return fmt.Errorf("embedding has %d values, want %d", len(v), h.dimension)
	}
	return nil
}

func identityResponse(ident *models.Identity, count int) dto.IdentityResponse {
	return dto.IdentityResponse{
		ID:             ident.ID,
		Label:          ident.Label,
		Metadata:       ident.Metadata,
		EmbeddingCount: count,
		CreatedAt:      ident.CreatedAt.UTC().Format(timeLayout),
	}
}

func parseID(c *gin.Context, param, what string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(param))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + what})
		return uuid.Nil, false
	}
	return id, true
}

func (h *IdentityHandler) Create(c *gin.Context) {
	var req dto.CreateIdentityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ident, err := h.db.CreateIdentity(c.Request.Context(), req.Label, req.Metadata)
	if err != nil {
		if errors.Is(err, storage.ErrDuplicate) {
			c.JSON(http.StatusConflict, gin.H{"error": "label already exists"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, identityResponse(ident, 0))
}

func (h *IdentityHandler) List(c *gin.Context) {
	identities, err := h.db.ListIdentities(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	resp := make([]dto.IdentityResponse, 0, len(identities))
	for i := range identities {
		count, _ := h.db.CountEmbeddings(c.Request.Context(), identities[i].ID)
		resp = append(resp, identityResponse(&identities[i], count))
	}

	c.JSON(http.StatusOK, gin.H{"identities": resp, "total": len(resp)})
}

func (h *IdentityHandler) Get(c *gin.Context) {
	id, ok := parseID(c, "id", "identity id")
	if !ok {
		return
	}

	ident, err := h.db.GetIdentity(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "identity not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	count, _ := h.db.CountEmbeddings(c.Request.Context(), id)
	c.JSON(http.StatusOK, identityResponse(ident, count))
}

func (h *IdentityHandler) Delete(c *gin.Context) {
	id, ok := parseID(c, "id", "identity id")
	if !ok {
		return
	}

	if err := h.db.DeleteIdentity(c.Request.Context(), id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "identity not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *IdentityHandler) AddEmbedding(c *gin.Context) {
	id, ok := parseID(c, "id", "identity id")
	if !ok {
		return
	}

	var req dto.AddEmbeddingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.checkEmbedding(req.Embedding); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if _, err := h.db.GetIdentity(c.Request.Context(), id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "identity not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	emb, err := h.db.AddEmbedding(c.Request.Context(), id, req.Embedding)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, dto.EmbeddingResponse{
		ID:         emb.ID,
		IdentityID: emb.IdentityID,
		CreatedAt:  emb.CreatedAt.UTC().Format(timeLayout),
	})
}

func (h *IdentityHandler) ListEmbeddings(c *gin.Context) {
	id, ok := parseID(c, "id", "identity id")
	if !ok {
		return
	}

	embeddings, err := h.db.ListEmbeddings(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	resp := make([]dto.EmbeddingResponse, 0, len(embeddings))
	for _, e := range embeddings {
		resp = append(resp, dto.EmbeddingResponse{
			ID:         e.ID,
			IdentityID: e.IdentityID,
			CreatedAt:  e.CreatedAt.UTC().Format(timeLayout),
		})
	}
	c.JSON(http.StatusOK, gin.H{"embeddings": resp, "total": len(resp)})
}

func (h *IdentityHandler) DeleteEmbedding(c *gin.Context) {
	id, ok := parseID(c, "id", "identity id")
	if !ok {
		return
	}
	embID, ok := parseID(c, "embeddingId", "embedding id")
	if !ok {
		return
	}

	if err := h.db.DeleteEmbedding(c.Request.Context(), id, embID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "embedding not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}

// Search returns approximate nearest stored embeddings from pgvector. It is
// a candidate lookup; /v1/classify gives the exact answer.
func (h *IdentityHandler) Search(c *gin.Context) {
	var req dto.SearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.checkEmbedding(req.Embedding); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Limit > 100 {
		req.Limit = 100
	}

	candidates, err := h.db.SearchNearest(c.Request.Context(), req.Embedding, req.Limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	results := make([]dto.SearchResult, 0, len(candidates))
	for _, m := range candidates {
		results = append(results, dto.SearchResult{
			IdentityID:  m.IdentityID,
			Label:       m.Label,
			EmbeddingID: m.EmbeddingID,
			Distance:    m.Distance,
		})
	}
	c.JSON(http.StatusOK, gin.H{"results": results})
}
