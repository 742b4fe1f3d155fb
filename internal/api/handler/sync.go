package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/tomoki/wallfeed/internal/domain"
)

// Syncer triggers a catalog sync run.
type Syncer interface {
	PerformSync(ctx context.Context) (int, error)
}

// SyncStatusReader reads the persisted sync status.
type SyncStatusReader interface {
	GetOrCreate(ctx context.Context) (*domain.SyncStatus, error)
}

// SyncHandler handles sync trigger and status endpoints.
type SyncHandler struct {
	syncer Syncer
	status SyncStatusReader
}

// NewSyncHandler creates a new sync handler.
// Parameters:
//   - syncer: sync orchestrator.
//   - status: sync status repository.
// Returns:
//   - *SyncHandler: initialized handler.
func NewSyncHandler(syncer Syncer, status SyncStatusReader) *SyncHandler {
	return &SyncHandler{syncer: syncer, status: status}
}

// TriggerSync handles POST /api/v1/sync. The call is synchronous: it returns
// the number of newly synced wallpapers, or the aggregated provider failures
// when every provider failed. A trigger that finds a sync already running
// returns new_count 0.
// Parameters:
//   - c: Gin request context.
// Returns: none (writes JSON response).
func (h *SyncHandler) TriggerSync(c *gin.Context) {
	count, err := h.syncer.PerformSync(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{
			"error": "Sync failed: " + err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"new_count": count,
	})
}

// GetStatus handles GET /api/v1/sync/status.
// Parameters:
//   - c: Gin request context.
// Returns: none (writes JSON response).
func (h *SyncHandler) GetStatus(c *gin.Context) {
	status, err := h.status.GetOrCreate(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to load sync status: " + err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, status)
}
