package repository

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/tomoki/wallfeed/internal/domain"
)

type fakeLister struct {
	mu    sync.Mutex
	items []domain.Wallpaper
	err   error
}

func (f *fakeLister) List(ctx context.Context, category string, limit, offset int) ([]domain.Wallpaper, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	out := make([]domain.Wallpaper, len(f.items))
	copy(out, f.items)
	return out, nil
}

func (f *fakeLister) set(items []domain.Wallpaper) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.items = items
}

func TestFeedSubscribeReturnsSnapshot(t *testing.T) {
	lister := &fakeLister{items: []domain.Wallpaper{{ID: "a"}, {ID: "b"}}}
	feed := NewCatalogFeed(lister, "", 10)

	snapshot, ch, cancel, err := feed.Subscribe(context.Background())
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	defer cancel()

	if len(snapshot) != 2 {
		t.Errorf("snapshot length = %d, want 2", len(snapshot))
	}
	select {
	case <-ch:
		t.Error("channel should be empty before any invalidation")
	default:
	}
}

func TestFeedInvalidatePushesNewSnapshot(t *testing.T) {
	lister := &fakeLister{items: []domain.Wallpaper{{ID: "a"}}}
	feed := NewCatalogFeed(lister, "", 10)

	_, ch, cancel, err := feed.Subscribe(context.Background())
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	defer cancel()

	lister.set([]domain.Wallpaper{{ID: "a"}, {ID: "new"}})
	feed.Invalidate(context.Background())

	select {
	case snapshot := <-ch:
		if len(snapshot) != 2 {
			t.Errorf("pushed snapshot length = %d, want 2", len(snapshot))
		}
	case <-time.After(time.Second):
		t.Fatal("no snapshot pushed after invalidation")
	}
}

func TestFeedSlowSubscriberGetsLatestOnly(t *testing.T) {
	lister := &fakeLister{items: []domain.Wallpaper{{ID: "v1"}}}
	feed := NewCatalogFeed(lister, "", 10)

	_, ch, cancel, err := feed.Subscribe(context.Background())
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	defer cancel()

	// Two invalidations without the subscriber draining: the stale pending
	// snapshot must be replaced, not queued.
	lister.set([]domain.Wallpaper{{ID: "v2"}})
	feed.Invalidate(context.Background())
	lister.set([]domain.Wallpaper{{ID: "v3"}})
	feed.Invalidate(context.Background())

	snapshot := <-ch
	if len(snapshot) != 1 || snapshot[0].ID != "v3" {
		t.Errorf("expected only the latest snapshot v3, got %+v", snapshot)
	}
	select {
	case extra := <-ch:
		t.Errorf("unexpected queued snapshot: %+v", extra)
	default:
	}
}

func TestFeedUnsubscribeStopsDelivery(t *testing.T) {
	lister := &fakeLister{items: []domain.Wallpaper{{ID: "a"}}}
	feed := NewCatalogFeed(lister, "", 10)

	_, _, cancel, err := feed.Subscribe(context.Background())
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	if feed.Subscribers() != 1 {
		t.Fatalf("subscriber count = %d, want 1", feed.Subscribers())
	}

	cancel()
	if feed.Subscribers() != 0 {
		t.Errorf("subscriber count after cancel = %d, want 0", feed.Subscribers())
	}

	// Cancel is idempotent.
	cancel()

	// Invalidation with no subscribers must not panic.
	feed.Invalidate(context.Background())
}

func TestFeedSubscribeFailsWhenQueryFails(t *testing.T) {
	lister := &fakeLister{err: errors.New("db down")}
	feed := NewCatalogFeed(lister, "", 10)

	if _, _, _, err := feed.Subscribe(context.Background()); err == nil {
		t.Fatal("expected error when the snapshot query fails")
	}
	if feed.Subscribers() != 0 {
		t.Errorf("failed subscription must not be registered, count = %d", feed.Subscribers())
	}
}

func TestFeedConcurrentSubscribers(t *testing.T) {
	lister := &fakeLister{items: []domain.Wallpaper{{ID: "a"}}}
	feed := NewCatalogFeed(lister, "", 10)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, ch, cancel, err := feed.Subscribe(context.Background())
			if err != nil {
				t.Errorf("Subscribe: %v", err)
				return
			}
			defer cancel()
			feed.Invalidate(context.Background())
			select {
			case <-ch:
			case <-time.After(time.Second):
				t.Error("no snapshot delivered")
			}
		}()
	}
	wg.Wait()
}
