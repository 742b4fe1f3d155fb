package repository

import (
	"context"
	"sync"

	"github.com/tomoki/wallfeed/internal/domain"
	"github.com/tomoki/wallfeed/internal/logger"
)

// CatalogFeed is the subscribable read model over a catalog query. A
// subscription yields the current snapshot plus a stream of subsequent
// snapshots pushed whenever a writer invalidates the feed. Safe for
// concurrent subscribers while writes occur.
type CatalogFeed struct {
	repo     CatalogLister
	category string
	limit    int

	mu     sync.Mutex
	nextID int
	subs   map[int]chan []domain.Wallpaper
}

// CatalogLister is the query surface a feed refreshes from.
type CatalogLister interface {
	List(ctx context.Context, category string, limit, offset int) ([]domain.Wallpaper, error)
}

// NewCatalogFeed creates a feed over the newest wallpapers of a category
// (empty category means the whole catalog).
func NewCatalogFeed(repo CatalogLister, category string, limit int) *CatalogFeed {
	if limit <= 0 {
		limit = 100
	}
	return &CatalogFeed{
		repo:     repo,
		category: category,
		limit:    limit,
		subs:     make(map[int]chan []domain.Wallpaper),
	}
}

// Subscribe returns the current snapshot, a channel of subsequent snapshots,
// and a cancel function that must be called to release the subscription.
// Parameters:
//   - ctx: context for the initial snapshot query.
// Returns:
//   - []domain.Wallpaper: current query result.
//   - <-chan []domain.Wallpaper: subsequent snapshots.
//   - func(): unsubscribe.
//   - error: non-nil if the snapshot query fails.
func (f *CatalogFeed) Subscribe(ctx context.Context) ([]domain.Wallpaper, <-chan []domain.Wallpaper, func(), error) {
	snapshot, err := f.repo.List(ctx, f.category, f.limit, 0)
	if err != nil {
		return nil, nil, nil, err
	}

	ch := make(chan []domain.Wallpaper, 1)

	f.mu.Lock()
	id := f.nextID
	f.nextID++
	f.subs[id] = ch
	f.mu.Unlock()

	cancel := func() {
		f.mu.Lock()
		if sub, ok := f.subs[id]; ok {
			delete(f.subs, id)
			close(sub)
		}
		f.mu.Unlock()
	}

	return snapshot, ch, cancel, nil
}

// Invalidate re-runs the query and pushes the new snapshot to every
// subscriber. A slow subscriber only ever sees the latest snapshot; stale
// pending ones are replaced rather than queued.
func (f *CatalogFeed) Invalidate(ctx context.Context) {
	snapshot, err := f.repo.List(ctx, f.category, f.limit, 0)
	if err != nil {
		logger.CtxWarn(ctx, "Catalog feed refresh failed: %v", err)
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	for _, ch := range f.subs {
		select {
		case ch <- snapshot:
		default:
			// drop the stale pending snapshot, then deliver the fresh one
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- snapshot:
			default:
			}
		}
	}
}

// CatalogChanged implements the syncer notification hook.
func (f *CatalogFeed) CatalogChanged(ctx context.Context) {
	f.Invalidate(ctx)
}

// Subscribers returns the current subscriber count.
func (f *CatalogFeed) Subscribers() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subs)
}
