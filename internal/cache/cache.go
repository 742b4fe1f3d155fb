// Package cache downloads wallpaper originals and stores them through the
// object storage backend, marking items exempt from the retention sweep.
package cache

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"path"
	"time"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/webp"

	"github.com/go-resty/resty/v2"

	"github.com/tomoki/wallfeed/internal/domain"
	"github.com/tomoki/wallfeed/internal/logger"
	"github.com/tomoki/wallfeed/internal/storage"
)

// lookupTimeout bounds single-item catalog reads so a wedged database
// degrades to not-found instead of hanging the caller.
const lookupTimeout = 5 * time.Second

const downloadTimeout = 60 * time.Second

// Catalog is the repository surface the cache reads and updates.
type Catalog interface {
	GetByID(ctx context.Context, id string) (*domain.Wallpaper, error)
	SetLocalPath(ctx context.Context, id, path string, width, height int) error
}

// Cache fetches full-resolution originals and pins them in object storage.
type Cache struct {
	catalog Catalog
	store   storage.ObjectStorage
	client  *resty.Client
	log     *logger.Logger
}

// New creates a cache over the catalog and storage backend.
func New(catalog Catalog, store storage.ObjectStorage, log *logger.Logger) *Cache {
	client := resty.New().
		SetTimeout(downloadTimeout).
		SetHeader("User-Agent", "wallfeed/1.0")
	return &Cache{catalog: catalog, store: store, client: client, log: log}
}

// Lookup reads one catalog item with a bounded timeout. A slow or failed
// read degrades to not-found.
// Parameters:
//   - ctx: parent context.
//   - id: wallpaper ID.
// Returns:
//   - *domain.Wallpaper: the item, or nil when absent or the read timed out.
//   - bool: whether the item was found.
func (c *Cache) Lookup(ctx context.Context, id string) (*domain.Wallpaper, bool) {
	lctx, cancel := context.WithTimeout(ctx, lookupTimeout)
	defer cancel()

	w, err := c.catalog.GetByID(lctx, id)
	if err != nil {
		if !errors.Is(err, context.DeadlineExceeded) {
			logger.CtxDebug(ctx, "Catalog lookup for %s failed: %v", id, err)
		}
		return nil, false
	}
	return w, true
}

// CacheOriginal downloads the full-resolution file of one wallpaper,
// verifies its dimensions, writes it to object storage and records the
// resulting path on the catalog row. Caching an already cached item is a
// no-op returning the existing path.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - id: wallpaper ID.
// Returns:
//   - string: storage path or URL of the cached original.
//   - error: non-nil if the item is unknown or the download/store fails.
func (c *Cache) CacheOriginal(ctx context.Context, id string) (string, error) {
	w, ok := c.Lookup(ctx, id)
	if !ok {
		return "", fmt.Errorf("wallpaper %s not found", id)
	}
	if w.LocalCachePath != "" {
		return w.LocalCachePath, nil
	}

	url := w.OriginalURL
	if url == "" {
		url = w.FullURL
	}
	if url == "" {
		return "", fmt.Errorf("wallpaper %s has no downloadable URL", id)
	}

	started := time.Now()
	resp, err := c.client.R().SetContext(ctx).Get(url)
	if err != nil {
		return "", fmt.Errorf("failed to download original: %w", err)
	}
	if !resp.IsSuccess() {
		return "", fmt.Errorf("failed to download original: status %d", resp.StatusCode())
	}
	body := resp.Body()

	cfg, format, err := image.DecodeConfig(bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("downloaded file is not a decodable image: %w", err)
	}

	key := objectKey(id, format)
	contentType := "image/" + format
	if err := c.store.Upload(ctx, key, bytes.NewReader(body), int64(len(body)), contentType); err != nil {
		return "", fmt.Errorf("failed to store original: %w", err)
	}

	stored := c.store.GetURL(key)
	if err := c.catalog.SetLocalPath(ctx, id, stored, cfg.Width, cfg.Height); err != nil {
		return "", fmt.Errorf("failed to record cache path: %w", err)
	}

	logger.With(logger.Fields{
		logger.FieldItemID:     id,
		logger.FieldDurationMs: time.Since(started).Milliseconds(),
	}).Info(ctx, "Cached original %s (%dx%d %s, %d bytes)", id, cfg.Width, cfg.Height, format, len(body))

	return stored, nil
}

// Evict removes a cached original and clears the catalog path, returning the
// item to the retention sweep's reach. Evicting an uncached item is a no-op.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - id: wallpaper ID.
// Returns:
//   - error: non-nil if the delete or the catalog update fails.
func (c *Cache) Evict(ctx context.Context, id string) error {
	w, ok := c.Lookup(ctx, id)
	if !ok {
		return fmt.Errorf("wallpaper %s not found", id)
	}
	if w.LocalCachePath == "" {
		return nil
	}

	key := objectKey(id, formatFromPath(w.LocalCachePath))
	if err := c.store.Delete(ctx, key); err != nil {
		return fmt.Errorf("failed to delete cached original: %w", err)
	}
	if err := c.catalog.SetLocalPath(ctx, id, "", w.Width, w.Height); err != nil {
		return fmt.Errorf("failed to clear cache path: %w", err)
	}
	logger.CtxInfo(ctx, "Evicted cached original %s", id)
	return nil
}

// objectKey builds the storage key of one original.
func objectKey(id, format string) string {
	ext := format
	if ext == "" {
		ext = "img"
	}
	if ext == "jpeg" {
		ext = "jpg"
	}
	return "originals/" + id + "." + ext
}

// formatFromPath recovers the image format from a stored path's extension.
func formatFromPath(p string) string {
	ext := path.Ext(p)
	if len(ext) > 1 {
		ext = ext[1:]
	}
	if ext == "jpg" {
		return "jpeg"
	}
	return ext
}
