package repository

import (
	"context"
	"time"

	"github.com/tomoki/wallfeed/internal/domain"
	"gorm.io/gorm"
)

// SyncStatusRepository manages the singleton sync status row.
type SyncStatusRepository struct {
	db *gorm.DB
}

// NewSyncStatusRepository creates a new SyncStatusRepository.
// Parameters:
//   - db: GORM database handle used for queries.
// Returns:
//   - *SyncStatusRepository: repository instance bound to db.
func NewSyncStatusRepository(db *gorm.DB) *SyncStatusRepository {
	return &SyncStatusRepository{db: db}
}

// GetOrCreate returns the singleton status row, creating it on first use.
// Parameters:
//   - ctx: context for cancellation and deadlines.
// Returns:
//   - *domain.SyncStatus: current status record.
//   - error: non-nil if the lookup fails.
func (r *SyncStatusRepository) GetOrCreate(ctx context.Context) (*domain.SyncStatus, error) {
	status := domain.SyncStatus{ID: domain.SyncStatusID}
	if err := r.db.WithContext(ctx).
		Where("id = ?", domain.SyncStatusID).
		FirstOrCreate(&status).Error; err != nil {
		return nil, err
	}
	return &status, nil
}

// SetSyncing mirrors the in-process sync guard to the persisted flag so
// external observers can see a sync in progress.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - syncing: new flag value.
// Returns:
//   - error: non-nil if the update fails.
func (r *SyncStatusRepository) SetSyncing(ctx context.Context, syncing bool) error {
	if _, err := r.GetOrCreate(ctx); err != nil {
		return err
	}
	return r.db.WithContext(ctx).Model(&domain.SyncStatus{}).
		Where("id = ?", domain.SyncStatusID).
		Update("is_syncing", syncing).Error
}

// RecordSuccess persists the outcome of a sync where at least one provider
// contributed, clearing any previous error.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - at: completion timestamp.
//   - sources: providers that contributed data.
//   - newCount: newly inserted item count.
//   - cursors: updated per-provider pagination cursors.
// Returns:
//   - error: non-nil if the update fails.
func (r *SyncStatusRepository) RecordSuccess(ctx context.Context, at time.Time, sources []string, newCount int, cursors domain.CursorMap) error {
	if _, err := r.GetOrCreate(ctx); err != nil {
		return err
	}
	return r.db.WithContext(ctx).Model(&domain.SyncStatus{}).
		Where("id = ?", domain.SyncStatusID).
		Updates(map[string]interface{}{
			"last_sync_at":      at,
			"last_sync_sources": domain.StringArray(sources),
			"last_sync_count":   newCount,
			"total_synced":      gorm.Expr("total_synced + ?", newCount),
			"cursors":           cursors,
			"last_error":        "",
		}).Error
}

// RecordError persists the aggregated failure reasons of a sync where every
// provider failed.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - message: aggregated error string.
// Returns:
//   - error: non-nil if the update fails.
func (r *SyncStatusRepository) RecordError(ctx context.Context, message string) error {
	if _, err := r.GetOrCreate(ctx); err != nil {
		return err
	}
	return r.db.WithContext(ctx).Model(&domain.SyncStatus{}).
		Where("id = ?", domain.SyncStatusID).
		Update("last_error", message).Error
}
