package handlers

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/your-org/facematch/internal/matcher"
	"github.com/your-org/facematch/internal/models"
	"github.com/your-org/facematch/internal/observability"
	"github.com/your-org/facematch/internal/recognition"
	"github.com/your-org/facematch/pkg/dto"
)

// EmbeddingPublisher enqueues query embeddings for workers.
type EmbeddingPublisher interface {
	PublishEmbedding(ctx context.Context, task models.EmbeddingTask) error
}

type ClassifyHandler struct {
	registry    *recognition.Registry
	queue       EmbeddingPublisher
	maxDistance float64
	concurrency int
}

// NewClassifyHandler builds the handler. queue may be nil, in which case
// Submit answers 503.
func NewClassifyHandler(registry *recognition.Registry, queue EmbeddingPublisher, maxDistance float64, concurrency int) *ClassifyHandler {
	return &ClassifyHandler{
		registry:    registry,
		queue:       queue,
		maxDistance: maxDistance,
		concurrency: concurrency,
	}
}

func (h *ClassifyHandler) toResponse(res recognition.Result) dto.ClassifyResponse {
	recognized := res.Known(h.maxDistance)
	observability.Classifications.WithLabelValues(matcher.Outcome(res, recognized)).Inc()

	resp := dto.ClassifyResponse{
		Label:      res.Label,
		Index:      res.Index,
		Recognized: recognized,
	}
	if !res.IsUnknown() {
		d := res.Distance
		resp.Distance = &d
	}
	return resp
}

func (h *ClassifyHandler) Classify(c *gin.Context) {
	var req dto.ClassifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if len(req.Embedding) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "embedding is empty"})
		return
	}

	start := time.Now()
	res, err := h.registry.Classify(req.Embedding)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := res.CheckFinite(); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}
	observability.ClassificationDuration.WithLabelValues("single").Observe(time.Since(start).Seconds())

	c.JSON(http.StatusOK, h.toResponse(res))
}

func (h *ClassifyHandler) ClassifyBatch(c *gin.Context) {
	var req dto.ClassifyBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	start := time.Now()
	results, err := recognition.ClassifyBatch(c.Request.Context(), h.registry.Current(), req.Embeddings, h.concurrency)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	for i, res := range results {
		if err := res.CheckFinite(); err != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": fmt.Sprintf("query %d: %v", i, err)})
			return
		}
	}
	observability.ClassificationDuration.WithLabelValues("batch").Observe(time.Since(start).Seconds())

	resp := dto.ClassifyBatchResponse{Results: make([]dto.ClassifyResponse, 0, len(results))}
	for _, res := range results {
		resp.Results = append(resp.Results, h.toResponse(res))
	}
	c.JSON(http.StatusOK, resp)
}

// Submit enqueues an embedding for asynchronous classification. The result
// arrives over the WebSocket and in the matches history.
func (h *ClassifyHandler) Submit(c *gin.Context) {
	if h.queue == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "queue not configured"})
		return
	}

	var req dto.SubmitEmbeddingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if len(req.Embedding) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "embedding is empty"})
		return
	}
	if err := h.registry.Current().CheckQuery(req.Embedding); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	task := models.EmbeddingTask{
		TaskID:    uuid.New(),
		SourceID:  req.SourceID,
		FaceID:    req.FaceID,
		Timestamp: time.Now().UTC(),
		Embedding: req.Embedding,
	}
	if err := h.queue.PublishEmbedding(c.Request.Context(), task); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusAccepted, dto.SubmitEmbeddingResponse{
		TaskID: task.TaskID.String(),
		Status: "queued",
	})
}
