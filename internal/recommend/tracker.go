// Package recommend implements interaction tracking and the multi-factor
// recommendation scorer built on top of the tracked signals.
package recommend

import (
	"context"
	"time"

	"github.com/tomoki/wallfeed/internal/domain"
	"github.com/tomoki/wallfeed/internal/logger"
)

// InteractionStore is the persistence surface the tracker writes through.
type InteractionStore interface {
	Append(ctx context.Context, in *domain.Interaction) error
	UpsertAffinity(ctx context.Context, categoryID string, weight int, at time.Time) error
	UpsertWeeklyStat(ctx context.Context, itemID string, weekNumber int, typ domain.InteractionType) error
	DeleteInteractionsBefore(ctx context.Context, cutoff time.Time) (int64, error)
	DeleteWeeklyBefore(ctx context.Context, weekNumber int) (int64, error)
}

// Tracker records user interactions and keeps the category affinity and
// weekly popularity aggregates current.
type Tracker struct {
	store InteractionStore
	log   *logger.Logger
}

// NewTracker creates a tracker over the given store.
func NewTracker(store InteractionStore, log *logger.Logger) *Tracker {
	return &Tracker{store: store, log: log}
}

// LogInteraction records one interaction and updates both aggregates.
// Tracking is fire-and-forget: failures are logged and never surface to the
// caller, so a broken write path cannot break the interaction itself.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - itemID: wallpaper ID the interaction targets.
//   - category: normalized category of the item.
//   - typ: interaction type; unknown types are dropped.
//   - durationMs: view duration in milliseconds, 0 when not applicable.
//   - tags: the item's tags at interaction time.
func (t *Tracker) LogInteraction(ctx context.Context, itemID, category string, typ domain.InteractionType, durationMs int64, tags []string) {
	if !typ.Valid() {
		logger.CtxWarn(ctx, "Dropping interaction with unknown type %q on item %s", typ, itemID)
		return
	}

	now := time.Now()
	in := &domain.Interaction{
		ItemID:     itemID,
		CategoryID: domain.NormalizeKey(category),
		Type:       typ,
		Timestamp:  now,
		DurationMs: durationMs,
		Tags:       domain.StringArray(domain.NormalizeTags(tags)),
	}

	if err := t.store.Append(ctx, in); err != nil {
		logger.CtxError(ctx, "Failed to append interaction for item %s: %v", itemID, err)
		return
	}

	if in.CategoryID != "" {
		if err := t.store.UpsertAffinity(ctx, in.CategoryID, typ.Weight(), now); err != nil {
			logger.CtxError(ctx, "Failed to update affinity for category %s: %v", in.CategoryID, err)
		}
	}

	if err := t.store.UpsertWeeklyStat(ctx, itemID, domain.WeekNumber(now), typ); err != nil {
		logger.CtxError(ctx, "Failed to update weekly stats for item %s: %v", itemID, err)
	}
}

// Prune removes interaction log entries older than the retention window and
// weekly stats older than the given number of weeks. Affinities are
// cumulative and never pruned.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - retention: interaction log retention window.
//   - keepWeeks: number of trailing weeks of stats to keep.
// Returns:
//   - error: non-nil if either delete fails.
func (t *Tracker) Prune(ctx context.Context, retention time.Duration, keepWeeks int) error {
	cutoff := time.Now().Add(-retention)
	deleted, err := t.store.DeleteInteractionsBefore(ctx, cutoff)
	if err != nil {
		return err
	}

	weekCutoff := domain.WeekNumber(time.Now().AddDate(0, 0, -7*keepWeeks))
	weekly, err := t.store.DeleteWeeklyBefore(ctx, weekCutoff)
	if err != nil {
		return err
	}

	if deleted > 0 || weekly > 0 {
		logger.With(logger.Fields{
			logger.FieldCount: deleted + weekly,
		}).Info(ctx, "Pruned %d interactions and %d weekly stats", deleted, weekly)
	}
	return nil
}
