package repository

import (
	"context"
	"time"

	"github.com/tomoki/wallfeed/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// InteractionRepository owns the interaction log and its two materialized
// aggregates: per-category affinity and per-item weekly stats.
type InteractionRepository struct {
	db *gorm.DB
}

// NewInteractionRepository creates a new InteractionRepository.
// Parameters:
//   - db: GORM database handle used for queries.
// Returns:
//   - *InteractionRepository: repository instance bound to db.
func NewInteractionRepository(db *gorm.DB) *InteractionRepository {
	return &InteractionRepository{db: db}
}

// Append inserts one interaction log entry.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - in: interaction record.
// Returns:
//   - error: non-nil if the insert fails.
func (r *InteractionRepository) Append(ctx context.Context, in *domain.Interaction) error {
	return r.db.WithContext(ctx).Create(in).Error
}

// UpsertAffinity adds an interaction weight to a category's affinity score.
// The increment runs inside the conflict clause so two concurrent
// interactions on the same category never lose an update.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - categoryID: normalized category key.
//   - weight: interaction weight, may be negative.
//   - at: interaction timestamp.
// Returns:
//   - error: non-nil if the upsert fails.
func (r *InteractionRepository) UpsertAffinity(ctx context.Context, categoryID string, weight int, at time.Time) error {
	affinity := domain.CategoryAffinity{
		CategoryID:        categoryID,
		Score:             float64(weight),
		InteractionCount:  1,
		LastInteractionAt: at,
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "category_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"score":               gorm.Expr("score + ?", weight),
			"interaction_count":   gorm.Expr("interaction_count + 1"),
			"last_interaction_at": at,
		}),
	}).Create(&affinity).Error
}

// UpsertWeeklyStat increments the weekly counter matching the interaction
// type and recomputes the popularity score. Types that map to no weekly
// counter are a no-op.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - itemID: wallpaper ID.
//   - weekNumber: isoYear*100 + isoWeek key.
//   - typ: interaction type.
// Returns:
//   - error: non-nil if the upsert fails.
func (r *InteractionRepository) UpsertWeeklyStat(ctx context.Context, itemID string, weekNumber int, typ domain.InteractionType) error {
	now := time.Now()
	stat := domain.WeeklyStat{
		ItemID:     itemID,
		WeekNumber: weekNumber,
		UpdatedAt:  now,
	}

	var counter string
	var delta int64
	switch typ {
	case domain.InteractionView, domain.InteractionDetailView:
		counter, delta = "view_count", 1
		stat.ViewCount = 1
	case domain.InteractionDownload:
		counter, delta = "download_count", 5
		stat.DownloadCount = 1
	case domain.InteractionFavorite:
		counter, delta = "favorite_count", 10
		stat.FavoriteCount = 1
	default:
		return nil
	}
	stat.PopularityScore = delta

	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "item_id"}, {Name: "week_number"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			counter: gorm.Expr(counter + " + 1"),
			// popularity is recomputed from the pre-update counters plus
			// this interaction's contribution
			"popularity_score": gorm.Expr("view_count * 1 + download_count * 5 + favorite_count * 10 + ?", delta),
			"updated_at":       now,
		}),
	}).Create(&stat).Error
}

// Affinities returns every category affinity keyed by category.
// Parameters:
//   - ctx: context for cancellation and deadlines.
// Returns:
//   - map[string]domain.CategoryAffinity: affinities by category key.
//   - error: non-nil if the query fails.
func (r *InteractionRepository) Affinities(ctx context.Context) (map[string]domain.CategoryAffinity, error) {
	var rows []domain.CategoryAffinity
	if err := r.db.WithContext(ctx).Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make(map[string]domain.CategoryAffinity, len(rows))
	for _, a := range rows {
		out[a.CategoryID] = a
	}
	return out, nil
}

// DistinctCategoriesSince counts distinct categories interacted with since
// the given time, used for the cold-start decision.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - since: start of the trailing window.
// Returns:
//   - int64: distinct category count.
//   - error: non-nil if the query fails.
func (r *InteractionRepository) DistinctCategoriesSince(ctx context.Context, since time.Time) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&domain.Interaction{}).
		Where("timestamp >= ?", since).
		Distinct("category_id").
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// RecentTags aggregates the tag sets of the most recent interactions of the
// given types into the user's preferred-tag set.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - types: interaction types to consider.
//   - limit: number of recent interactions to aggregate.
// Returns:
//   - []string: normalized, deduplicated preferred tags.
//   - error: non-nil if the query fails.
func (r *InteractionRepository) RecentTags(ctx context.Context, types []domain.InteractionType, limit int) ([]string, error) {
	var rows []domain.Interaction
	if err := r.db.WithContext(ctx).
		Where("type IN ?", types).
		Order("timestamp DESC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	var tags []string
	for _, in := range rows {
		tags = append(tags, in.Tags...)
	}
	return domain.NormalizeTags(tags), nil
}

// InteractedItemIDs returns the set of item IDs the user has interacted with.
// Parameters:
//   - ctx: context for cancellation and deadlines.
// Returns:
//   - map[string]struct{}: set of wallpaper IDs.
//   - error: non-nil if the query fails.
func (r *InteractionRepository) InteractedItemIDs(ctx context.Context) (map[string]struct{}, error) {
	var ids []string
	if err := r.db.WithContext(ctx).
		Model(&domain.Interaction{}).
		Distinct("item_id").
		Pluck("item_id", &ids).Error; err != nil {
		return nil, err
	}
	out := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		out[id] = struct{}{}
	}
	return out, nil
}

// WeeklyTop returns the highest-scoring weekly stats for one week key.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - weekNumber: isoYear*100 + isoWeek key.
//   - limit: maximum number of rows.
// Returns:
//   - []domain.WeeklyStat: stats sorted by popularity descending.
//   - error: non-nil if the query fails.
func (r *InteractionRepository) WeeklyTop(ctx context.Context, weekNumber, limit int) ([]domain.WeeklyStat, error) {
	var rows []domain.WeeklyStat
	if err := r.db.WithContext(ctx).
		Where("week_number = ?", weekNumber).
		Order("popularity_score DESC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// DeleteInteractionsBefore prunes interaction log entries older than cutoff.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - cutoff: age threshold.
// Returns:
//   - int64: number of rows deleted.
//   - error: non-nil if the delete fails.
func (r *InteractionRepository) DeleteInteractionsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("timestamp < ?", cutoff).
		Delete(&domain.Interaction{})
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

// DeleteWeeklyBefore prunes weekly stats with a week key older than the
// given key. Week keys compare numerically.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - weekNumber: exclusive lower bound to keep.
// Returns:
//   - int64: number of rows deleted.
//   - error: non-nil if the delete fails.
func (r *InteractionRepository) DeleteWeeklyBefore(ctx context.Context, weekNumber int) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("week_number < ?", weekNumber).
		Delete(&domain.WeeklyStat{})
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}
