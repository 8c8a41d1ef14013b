package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/your-org/facematch/internal/models"
	"github.com/your-org/facematch/internal/storage"
	"github.com/your-org/facematch/pkg/dto"
)

type MatchStore interface {
	QueryMatches(ctx context.Context, f models.MatchFilter) ([]models.Match, int, error)
	GetMatch(ctx context.Context, id uuid.UUID) (*models.Match, error)
}

type MatchHandler struct {
	db MatchStore
}

func NewMatchHandler(db MatchStore) *MatchHandler {
	return &MatchHandler{db: db}
}

// MatchToResponse renders a persisted match.
func MatchToResponse(m *models.Match) dto.MatchResponse {
	return dto.MatchResponse{
		ID:         m.ID,
		TaskID:     m.TaskID,
		SourceID:   m.SourceID,
		FaceID:     m.FaceID,
		Label:      m.Label,
		Distance:   m.Distance,
		Recognized: m.Recognized,
		IdentityID: m.IdentityID,
		Timestamp:  m.Timestamp.UTC().Format(timeLayout),
		CreatedAt:  m.CreatedAt.UTC().Format(timeLayout),
	}
}

func parseTime(v string) (*time.Time, error) {
	if v == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (h *MatchHandler) List(c *gin.Context) {
	var q dto.MatchQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if q.Limit < 0 || q.Offset < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "limit and offset must not be negative"})
		return
	}

	from, err := parseTime(q.From)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid from: use RFC3339"})
		return
	}
	to, err := parseTime(q.To)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid to: use RFC3339"})
		return
	}

	matches, total, err := h.db.QueryMatches(c.Request.Context(), models.MatchFilter{
		SourceID: q.SourceID,
		Label:    q.Label,
		Unknown:  q.Unknown,
		From:     from,
		To:       to,
		Limit:    q.Limit,
		Offset:   q.Offset,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	resp := dto.MatchListResponse{Matches: make([]dto.MatchResponse, 0, len(matches)), Total: total}
	for i := range matches {
		resp.Matches = append(resp.Matches, MatchToResponse(&matches[i]))
	}
	c.JSON(http.StatusOK, resp)
}

func (h *MatchHandler) Get(c *gin.Context) {
	id, ok := parseID(c, "id", "match id")
	if !ok {
		return
	}

	m, err := h.db.GetMatch(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "match not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, MatchToResponse(m))
}
