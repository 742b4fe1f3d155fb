package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/tomoki/wallfeed/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// WallpaperRepository handles catalog data operations.
type WallpaperRepository struct {
	db *gorm.DB
}

// NewWallpaperRepository creates a new WallpaperRepository.
// Parameters:
//   - db: GORM database handle used for queries.
// Returns:
//   - *WallpaperRepository: repository instance bound to db.
func NewWallpaperRepository(db *gorm.DB) *WallpaperRepository {
	return &WallpaperRepository{db: db}
}

// InsertIgnore inserts wallpapers, ignoring rows whose (source, source_id)
// already exists. This protects against the race where an item lands between
// the dedup snapshot and the insert.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - items: wallpapers to persist.
// Returns:
//   - int64: number of rows actually inserted.
//   - error: non-nil if the insert fails.
func (r *WallpaperRepository) InsertIgnore(ctx context.Context, items []domain.Wallpaper) (int64, error) {
	if len(items) == 0 {
		return 0, nil
	}
	res := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "source"}, {Name: "source_id"}},
		DoNothing: true,
	}).Create(&items)
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

// SourceKeys returns the full set of existing (source, source_id) keys in one
// round-trip, used as the in-memory dedup filter for a sync run.
// Parameters:
//   - ctx: context for cancellation and deadlines.
// Returns:
//   - map[string]struct{}: set keyed by domain.SourceKey.
//   - error: non-nil if the query fails.
func (r *WallpaperRepository) SourceKeys(ctx context.Context) (map[string]struct{}, error) {
	var rows []struct {
		Source   domain.Source
		SourceID string
	}
	if err := r.db.WithContext(ctx).
		Model(&domain.Wallpaper{}).
		Select("source", "source_id").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	keys := make(map[string]struct{}, len(rows))
	for _, row := range rows {
		keys[domain.SourceKey(row.Source, row.SourceID)] = struct{}{}
	}
	return keys, nil
}

// ExistsBySource checks if a wallpaper exists by source and source ID.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - source: provider identifier.
//   - sourceID: provider-native ID.
// Returns:
//   - bool: true if a record exists.
//   - error: non-nil if the lookup fails.
func (r *WallpaperRepository) ExistsBySource(ctx context.Context, source domain.Source, sourceID string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&domain.Wallpaper{}).
		Where("source = ? AND source_id = ?", source, sourceID).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// GetByID retrieves a wallpaper by its ID.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - id: wallpaper ID.
// Returns:
//   - *domain.Wallpaper: record if found.
//   - error: non-nil if lookup fails.
func (r *WallpaperRepository) GetByID(ctx context.Context, id string) (*domain.Wallpaper, error) {
	var w domain.Wallpaper
	if err := r.db.WithContext(ctx).First(&w, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &w, nil
}

// List retrieves wallpapers with optional category filter and pagination.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - category: normalized category key; empty means all.
//   - limit: maximum number of records to return.
//   - offset: number of records to skip.
// Returns:
//   - []domain.Wallpaper: matching records, newest first.
//   - error: non-nil if the query fails.
func (r *WallpaperRepository) List(ctx context.Context, category string, limit, offset int) ([]domain.Wallpaper, error) {
	var items []domain.Wallpaper
	query := r.db.WithContext(ctx)
	if category != "" {
		query = query.Where("category = ?", category)
	}
	if err := query.
		Limit(limit).
		Offset(offset).
		Order("synced_at DESC").
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// AllForScoring loads the most recent slice of the catalog for ranking.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - limit: maximum number of records to load; <= 0 means no limit.
// Returns:
//   - []domain.Wallpaper: catalog slice, newest first.
//   - error: non-nil if the query fails.
func (r *WallpaperRepository) AllForScoring(ctx context.Context, limit int) ([]domain.Wallpaper, error) {
	var items []domain.Wallpaper
	query := r.db.WithContext(ctx).Order("synced_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// Categories retrieves all distinct category keys.
// Parameters:
//   - ctx: context for cancellation and deadlines.
// Returns:
//   - []string: distinct categories.
//   - error: non-nil if the query fails.
func (r *WallpaperRepository) Categories(ctx context.Context) ([]string, error) {
	var categories []string
	if err := r.db.WithContext(ctx).
		Model(&domain.Wallpaper{}).
		Distinct("category").
		Pluck("category", &categories).Error; err != nil {
		return nil, err
	}
	return categories, nil
}

// DeleteOlderThan removes wallpapers synced before the cutoff. Items with a
// local cache path are exempt from the sweep when excludeCached is set.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - cutoff: age threshold.
//   - excludeCached: skip locally cached items.
// Returns:
//   - int64: number of rows deleted.
//   - error: non-nil if the delete fails.
func (r *WallpaperRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time, excludeCached bool) (int64, error) {
	query := r.db.WithContext(ctx).Where("synced_at < ?", cutoff)
	if excludeCached {
		query = query.Where("local_cache_path IS NULL OR local_cache_path = ''")
	}
	res := query.Delete(&domain.Wallpaper{})
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

// MarkViewed flags a wallpaper as seen by the user.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - id: wallpaper ID.
// Returns:
//   - error: non-nil if the update fails.
func (r *WallpaperRepository) MarkViewed(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Model(&domain.Wallpaper{}).
		Where("id = ?", id).
		Update("viewed", true).Error
}

// SetLocalPath records the local cache location and verified dimensions.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - id: wallpaper ID.
//   - path: cache path or storage key; empty clears the cache marker.
//   - width, height: verified dimensions; zero values leave them unchanged.
// Returns:
//   - error: non-nil if the update fails.
func (r *WallpaperRepository) SetLocalPath(ctx context.Context, id, path string, width, height int) error {
	updates := map[string]interface{}{"local_cache_path": path}
	if width > 0 && height > 0 {
		updates["width"] = width
		updates["height"] = height
	}
	return r.db.WithContext(ctx).Model(&domain.Wallpaper{}).
		Where("id = ?", id).
		Updates(updates).Error
}

// Count returns the catalog size.
// Parameters:
//   - ctx: context for cancellation and deadlines.
// Returns:
//   - int64: number of wallpapers.
//   - error: non-nil if the query fails.
func (r *WallpaperRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&domain.Wallpaper{}).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// GetByIDs retrieves wallpapers by a list of IDs.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - ids: list of wallpaper IDs.
// Returns:
//   - []domain.Wallpaper: matching records.
//   - error: non-nil if the query fails.
func (r *WallpaperRepository) GetByIDs(ctx context.Context, ids []string) ([]domain.Wallpaper, error) {
	if len(ids) == 0 {
		return []domain.Wallpaper{}, nil
	}
	var items []domain.Wallpaper
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&items).Error; err != nil {
		return nil, fmt.Errorf("failed to get wallpapers by IDs: %w", err)
	}
	return items, nil
}
