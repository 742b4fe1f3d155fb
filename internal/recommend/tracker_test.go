package recommend

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/tomoki/wallfeed/internal/domain"
	"github.com/tomoki/wallfeed/internal/logger"
)

type affinityUpdate struct {
	categoryID string
	weight     int
}

type weeklyUpdate struct {
	itemID     string
	weekNumber int
	typ        domain.InteractionType
}

type fakeInteractionStore struct {
	appended []domain.Interaction
	affinity []affinityUpdate
	weekly   []weeklyUpdate

	appendErr   error
	affinityErr error
	weeklyErr   error

	deletedInteractions time.Time
	deletedWeeklyBefore int
}

func (f *fakeInteractionStore) Append(ctx context.Context, in *domain.Interaction) error {
	if f.appendErr != nil {
		return f.appendErr
	}
	f.appended = append(f.appended, *in)
	return nil
}

func (f *fakeInteractionStore) UpsertAffinity(ctx context.Context, categoryID string, weight int, at time.Time) error {
	if f.affinityErr != nil {
		return f.affinityErr
	}
	f.affinity = append(f.affinity, affinityUpdate{categoryID, weight})
	return nil
}

func (f *fakeInteractionStore) UpsertWeeklyStat(ctx context.Context, itemID string, weekNumber int, typ domain.InteractionType) error {
	if f.weeklyErr != nil {
		return f.weeklyErr
	}
	f.weekly = append(f.weekly, weeklyUpdate{itemID, weekNumber, typ})
	return nil
}

func (f *fakeInteractionStore) DeleteInteractionsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	f.deletedInteractions = cutoff
	return 3, nil
}

func (f *fakeInteractionStore) DeleteWeeklyBefore(ctx context.Context, weekNumber int) (int64, error) {
	f.deletedWeeklyBefore = weekNumber
	return 1, nil
}

func TestLogInteractionRecordsAllThreeWrites(t *testing.T) {
	store := &fakeInteractionStore{}
	tracker := NewTracker(store, logger.GetDefault())

	tracker.LogInteraction(context.Background(), "item-1", "Nature", domain.InteractionFavorite, 0, []string{"Sky", "sky"})

	if len(store.appended) != 1 {
		t.Fatalf("expected 1 appended interaction, got %d", len(store.appended))
	}
	in := store.appended[0]
	if in.CategoryID != "nature" {
		t.Errorf("category not normalized: %q", in.CategoryID)
	}
	if len(in.Tags) != 1 {
		t.Errorf("tags not deduplicated: %v", in.Tags)
	}

	if len(store.affinity) != 1 {
		t.Fatalf("expected 1 affinity update, got %d", len(store.affinity))
	}
	if store.affinity[0].weight != 10 {
		t.Errorf("favorite weight = %d, want 10", store.affinity[0].weight)
	}

	if len(store.weekly) != 1 {
		t.Fatalf("expected 1 weekly update, got %d", len(store.weekly))
	}
	if store.weekly[0].weekNumber != domain.WeekNumber(time.Now()) {
		t.Errorf("unexpected week key %d", store.weekly[0].weekNumber)
	}
}

func TestLogInteractionWeights(t *testing.T) {
	cases := []struct {
		typ    domain.InteractionType
		weight int
	}{
		{domain.InteractionView, 1},
		{domain.InteractionDetailView, 2},
		{domain.InteractionShare, 4},
		{domain.InteractionDownload, 5},
		{domain.InteractionSetWallpaper, 8},
		{domain.InteractionFavorite, 10},
		{domain.InteractionUnfavorite, -5},
	}

	for _, tc := range cases {
		t.Run(string(tc.typ), func(t *testing.T) {
			store := &fakeInteractionStore{}
			tracker := NewTracker(store, logger.GetDefault())
			tracker.LogInteraction(context.Background(), "item-1", "nature", tc.typ, 0, nil)
			if len(store.affinity) != 1 {
				t.Fatalf("expected 1 affinity update, got %d", len(store.affinity))
			}
			if store.affinity[0].weight != tc.weight {
				t.Errorf("weight = %d, want %d", store.affinity[0].weight, tc.weight)
			}
		})
	}
}

func TestLogInteractionDropsUnknownType(t *testing.T) {
	store := &fakeInteractionStore{}
	tracker := NewTracker(store, logger.GetDefault())

	tracker.LogInteraction(context.Background(), "item-1", "nature", "bogus", 0, nil)

	if len(store.appended) != 0 || len(store.affinity) != 0 || len(store.weekly) != 0 {
		t.Error("unknown interaction type must not be recorded")
	}
}

func TestLogInteractionNeverPanicsOnStoreFailure(t *testing.T) {
	store := &fakeInteractionStore{
		appendErr: errors.New("db down"),
	}
	tracker := NewTracker(store, logger.GetDefault())

	// Fire-and-forget: failures are swallowed.
	tracker.LogInteraction(context.Background(), "item-1", "nature", domain.InteractionView, 0, nil)

	if len(store.affinity) != 0 {
		t.Error("aggregates must not be updated when the log append fails")
	}
}

func TestLogInteractionSkipsAffinityForEmptyCategory(t *testing.T) {
	store := &fakeInteractionStore{}
	tracker := NewTracker(store, logger.GetDefault())

	tracker.LogInteraction(context.Background(), "item-1", "  ", domain.InteractionView, 0, nil)

	if len(store.affinity) != 0 {
		t.Error("empty category must not produce an affinity row")
	}
	if len(store.weekly) != 1 {
		t.Error("weekly stats still update without a category")
	}
}

func TestPrune(t *testing.T) {
	store := &fakeInteractionStore{}
	tracker := NewTracker(store, logger.GetDefault())

	if err := tracker.Prune(context.Background(), 90*24*time.Hour, 4); err != nil {
		t.Fatalf("Prune: %v", err)
	}

	wantCutoff := time.Now().Add(-90 * 24 * time.Hour)
	if d := store.deletedInteractions.Sub(wantCutoff); d < -time.Minute || d > time.Minute {
		t.Errorf("interaction cutoff %v too far from %v", store.deletedInteractions, wantCutoff)
	}
	wantWeek := domain.WeekNumber(time.Now().AddDate(0, 0, -28))
	if store.deletedWeeklyBefore != wantWeek {
		t.Errorf("weekly cutoff = %d, want %d", store.deletedWeeklyBefore, wantWeek)
	}
}
