package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/tomoki/wallfeed/internal/domain"
)

// InteractionTracker records user interactions.
type InteractionTracker interface {
	LogInteraction(ctx context.Context, itemID, category string, typ domain.InteractionType, durationMs int64, tags []string)
}

// InteractionHandler handles interaction tracking endpoints.
type InteractionHandler struct {
	tracker InteractionTracker
}

// NewInteractionHandler creates a new interaction handler.
// Parameters:
//   - tracker: interaction tracker service.
// Returns:
//   - *InteractionHandler: initialized handler.
func NewInteractionHandler(tracker InteractionTracker) *InteractionHandler {
	return &InteractionHandler{tracker: tracker}
}

type interactionRequest struct {
	ItemID     string   `json:"item_id" binding:"required"`
	Category   string   `json:"category"`
	Type       string   `json:"type" binding:"required"`
	DurationMs int64    `json:"duration_ms"`
	Tags       []string `json:"tags"`
}

// LogInteraction handles POST /api/v1/interactions. Tracking is
// fire-and-forget on the service side, so a well-formed request is always
// accepted.
// Parameters:
//   - c: Gin request context.
// Returns: none (writes JSON response).
func (h *InteractionHandler) LogInteraction(c *gin.Context) {
	var req interactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid interaction payload: " + err.Error(),
		})
		return
	}

	typ := domain.InteractionType(req.Type)
	if !typ.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Unknown interaction type: " + req.Type,
		})
		return
	}

	h.tracker.LogInteraction(c.Request.Context(), req.ItemID, req.Category, typ, req.DurationMs, req.Tags)

	c.JSON(http.StatusAccepted, gin.H{
		"status": "recorded",
	})
}
