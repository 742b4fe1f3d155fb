package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/tomoki/wallfeed/internal/logger"
	"github.com/tomoki/wallfeed/internal/recommend"
)

// Recommender is the scorer surface the recommendation endpoints call.
type Recommender interface {
	ForYou(ctx context.Context) ([]recommend.Recommendation, error)
	Similar(ctx context.Context, itemID, category string, tags []string, limit int) ([]recommend.Recommendation, error)
	PopularThisWeek(ctx context.Context) ([]recommend.Recommendation, error)
	Trending(ctx context.Context) ([]recommend.Recommendation, error)
}

// RecommendHandler handles recommendation endpoints. Scorer failures never
// surface as errors: the endpoints degrade to an empty list.
type RecommendHandler struct {
	scorer Recommender
	cache  OriginalCache
}

// NewRecommendHandler creates a new recommendation handler.
// Parameters:
//   - scorer: recommendation scorer.
//   - cache: catalog lookup used to resolve the Similar anchor.
// Returns:
//   - *RecommendHandler: initialized handler.
func NewRecommendHandler(scorer Recommender, cache OriginalCache) *RecommendHandler {
	return &RecommendHandler{scorer: scorer, cache: cache}
}

// respond writes the recommendation list, degrading a scorer failure to an
// empty list rather than a 5xx.
func respond(c *gin.Context, recs []recommend.Recommendation, err error) {
	if err != nil {
		logger.CtxWarn(c.Request.Context(), "Recommendation scoring failed, returning empty list: %v", err)
		recs = nil
	}
	if recs == nil {
		recs = []recommend.Recommendation{}
	}
	c.JSON(http.StatusOK, gin.H{
		"recommendations": recs,
		"count":           len(recs),
	})
}

// ForYou handles GET /api/v1/recommendations/for-you.
// Parameters:
//   - c: Gin request context.
// Returns: none (writes JSON response).
func (h *RecommendHandler) ForYou(c *gin.Context) {
	recs, err := h.scorer.ForYou(c.Request.Context())
	respond(c, recs, err)
}

// Popular handles GET /api/v1/recommendations/popular.
// Parameters:
//   - c: Gin request context.
// Returns: none (writes JSON response).
func (h *RecommendHandler) Popular(c *gin.Context) {
	recs, err := h.scorer.PopularThisWeek(c.Request.Context())
	respond(c, recs, err)
}

// Trending handles GET /api/v1/recommendations/trending.
// Parameters:
//   - c: Gin request context.
// Returns: none (writes JSON response).
func (h *RecommendHandler) Trending(c *gin.Context) {
	recs, err := h.scorer.Trending(c.Request.Context())
	respond(c, recs, err)
}

// Similar handles GET /api/v1/recommendations/similar/:id.
// Parameters:
//   - c: Gin request context.
// Returns: none (writes JSON response).
func (h *RecommendHandler) Similar(c *gin.Context) {
	id := c.Param("id")
	anchor, ok := h.cache.Lookup(c.Request.Context(), id)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "Wallpaper not found",
		})
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "0"))
	recs, err := h.scorer.Similar(c.Request.Context(), anchor.ID, anchor.Category, anchor.Tags, limit)
	respond(c, recs, err)
}
