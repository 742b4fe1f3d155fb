package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/tomoki/wallfeed/internal/domain"
	"github.com/tomoki/wallfeed/internal/logger"
)

// WallpaperCatalog is the catalog surface the wallpaper endpoints read.
type WallpaperCatalog interface {
	List(ctx context.Context, category string, limit, offset int) ([]domain.Wallpaper, error)
	Categories(ctx context.Context) ([]string, error)
	Count(ctx context.Context) (int64, error)
	MarkViewed(ctx context.Context, id string) error
}

// OriginalCache pins and evicts full-resolution originals.
type OriginalCache interface {
	Lookup(ctx context.Context, id string) (*domain.Wallpaper, bool)
	CacheOriginal(ctx context.Context, id string) (string, error)
	Evict(ctx context.Context, id string) error
}

// WallpaperHandler handles wallpaper catalog endpoints.
type WallpaperHandler struct {
	catalog WallpaperCatalog
	cache   OriginalCache
}

// NewWallpaperHandler creates a new wallpaper handler.
// Parameters:
//   - catalog: wallpaper repository.
//   - cache: original cache service.
// Returns:
//   - *WallpaperHandler: initialized handler.
func NewWallpaperHandler(catalog WallpaperCatalog, cache OriginalCache) *WallpaperHandler {
	return &WallpaperHandler{catalog: catalog, cache: cache}
}

// ListWallpapers handles GET /api/v1/wallpapers.
// Parameters:
//   - c: Gin request context.
// Returns: none (writes JSON response).
func (h *WallpaperHandler) ListWallpapers(c *gin.Context) {
	category := c.Query("category")
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	items, err := h.catalog.List(c.Request.Context(), category, limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to list wallpapers: " + err.Error(),
		})
		return
	}

	total, err := h.catalog.Count(c.Request.Context())
	if err != nil {
		total = int64(len(items))
	}

	c.JSON(http.StatusOK, gin.H{
		"wallpapers": items,
		"total":      total,
	})
}

// GetWallpaper handles GET /api/v1/wallpapers/:id. A successful read marks
// the item viewed.
// Parameters:
//   - c: Gin request context.
// Returns: none (writes JSON response).
func (h *WallpaperHandler) GetWallpaper(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Wallpaper ID is required",
		})
		return
	}

	w, ok := h.cache.Lookup(c.Request.Context(), id)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "Wallpaper not found",
		})
		return
	}

	if err := h.catalog.MarkViewed(c.Request.Context(), id); err != nil {
		// Non-fatal: the read still succeeds.
		logger.CtxWarn(c.Request.Context(), "Failed to mark wallpaper %s viewed: %v", id, err)
	}

	c.JSON(http.StatusOK, w)
}

// CacheWallpaper handles POST /api/v1/wallpapers/:id/cache.
// Parameters:
//   - c: Gin request context.
// Returns: none (writes JSON response).
func (h *WallpaperHandler) CacheWallpaper(c *gin.Context) {
	id := c.Param("id")
	path, err := h.cache.CacheOriginal(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{
			"error": "Failed to cache wallpaper: " + err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"id":   id,
		"path": path,
	})
}

// EvictWallpaper handles DELETE /api/v1/wallpapers/:id/cache.
// Parameters:
//   - c: Gin request context.
// Returns: none (writes JSON response).
func (h *WallpaperHandler) EvictWallpaper(c *gin.Context) {
	id := c.Param("id")
	if err := h.cache.Evict(c.Request.Context(), id); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to evict wallpaper: " + err.Error(),
		})
		return
	}

	c.Status(http.StatusNoContent)
}

// GetCategories handles GET /api/v1/categories.
// Parameters:
//   - c: Gin request context.
// Returns: none (writes JSON response).
func (h *WallpaperHandler) GetCategories(c *gin.Context) {
	categories, err := h.catalog.Categories(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to list categories: " + err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"categories": categories,
	})
}
