package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/your-org/facematch/internal/recognition"
	"github.com/your-org/facematch/pkg/dto"
)

// Reloader refreshes the local registry from its source.
type Reloader interface {
	Reload(ctx context.Context) error
}

// ReloadPublisher tells workers to reload their reference sets.
type ReloadPublisher interface {
	PublishReload() error
}

type ReferenceHandler struct {
	registry *recognition.Registry
	reloader Reloader
	reload   ReloadPublisher
	// OnReload, when set, runs after a successful local reload.
	OnReload func(set *recognition.ReferenceSet)
}

func NewReferenceHandler(registry *recognition.Registry, reloader Reloader, reload ReloadPublisher) *ReferenceHandler {
	return &ReferenceHandler{registry: registry, reloader: reloader, reload: reload}
}

func (h *ReferenceHandler) Get(c *gin.Context) {
	set := h.registry.Current()
	labels := set.Labels()
	if labels == nil {
		labels = []string{}
	}
	c.JSON(http.StatusOK, dto.ReferenceSetResponse{
		Size:      set.Len(),
		Dimension: set.Dim(),
		Labels:    labels,
	})
}

func (h *ReferenceHandler) Reload(c *gin.Context) {
	if err := h.reloader.Reload(c.Request.Context()); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	set := h.registry.Current()
	if h.OnReload != nil {
		h.OnReload(set)
	}

	workersNotified := false
	if h.reload != nil {
		if err := h.reload.PublishReload(); err != nil {
			slog.Warn("notify workers of reload", "error", err)
		} else {
			workersNotified = true
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"size":             set.Len(),
		"dimension":        set.Dim(),
		"workers_notified": workersNotified,
	})
}
