// Package api wires the HTTP surface: routing, middleware and handlers.
package api

import (
	"github.com/gin-gonic/gin"
	"github.com/tomoki/wallfeed/internal/api/handler"
	"github.com/tomoki/wallfeed/internal/api/middleware"
	"github.com/tomoki/wallfeed/internal/config"
	"github.com/tomoki/wallfeed/internal/logger"
)

// Services bundles everything the router's handlers depend on.
type Services struct {
	Syncer     handler.Syncer
	SyncStatus handler.SyncStatusReader
	Catalog    handler.WallpaperCatalog
	Cache      handler.OriginalCache
	Scorer     handler.Recommender
	Tracker    handler.InteractionTracker
}

// SetupRouter configures the Gin router with all routes
func SetupRouter(svc Services, cfg *config.ServerConfig, log *logger.Logger) *gin.Engine {
	switch cfg.Mode {
	case "release":
		gin.SetMode(gin.ReleaseMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.DebugMode)
	}

	r := gin.New()

	r.Use(gin.Recovery())
	r.Use(middleware.LoggerMiddleware(log))
	r.Use(middleware.CORS(middleware.CORSConfig{
		AllowedOrigins:  cfg.CORS.AllowedOrigins,
		AllowAllOrigins: cfg.CORS.AllowAllOrigins,
	}))

	healthHandler := handler.NewHealthHandler()
	syncHandler := handler.NewSyncHandler(svc.Syncer, svc.SyncStatus)
	wallpaperHandler := handler.NewWallpaperHandler(svc.Catalog, svc.Cache)
	recommendHandler := handler.NewRecommendHandler(svc.Scorer, svc.Cache)
	interactionHandler := handler.NewInteractionHandler(svc.Tracker)

	// Health check
	r.GET("/health", healthHandler.Health)

	// API v1 routes
	v1 := r.Group("/api/v1")
	{
		// Sync
		v1.POST("/sync", syncHandler.TriggerSync)
		v1.GET("/sync/status", syncHandler.GetStatus)

		// Wallpapers
		v1.GET("/wallpapers", wallpaperHandler.ListWallpapers)
		v1.GET("/wallpapers/:id", wallpaperHandler.GetWallpaper)
		v1.POST("/wallpapers/:id/cache", wallpaperHandler.CacheWallpaper)
		v1.DELETE("/wallpapers/:id/cache", wallpaperHandler.EvictWallpaper)

		// Categories
		v1.GET("/categories", wallpaperHandler.GetCategories)

		// Recommendations
		v1.GET("/recommendations/for-you", recommendHandler.ForYou)
		v1.GET("/recommendations/popular", recommendHandler.Popular)
		v1.GET("/recommendations/trending", recommendHandler.Trending)
		v1.GET("/recommendations/similar/:id", recommendHandler.Similar)

		// Interactions
		v1.POST("/interactions", interactionHandler.LogInteraction)
	}

	return r
}
