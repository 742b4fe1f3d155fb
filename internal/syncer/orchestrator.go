// Package syncer owns the catalog synchronization pipeline: the fallback
// chain across provider adapters, dedup against the existing catalog,
// retry/backoff, persistence, and status reporting.
package syncer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	gobreaker "github.com/sony/gobreaker/v2"
	"github.com/tomoki/wallfeed/internal/domain"
	"github.com/tomoki/wallfeed/internal/logger"
	"github.com/tomoki/wallfeed/internal/provider"
)

// CatalogStore is the persistence surface the orchestrator writes through.
type CatalogStore interface {
	SourceKeys(ctx context.Context) (map[string]struct{}, error)
	InsertIgnore(ctx context.Context, items []domain.Wallpaper) (int64, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time, excludeCached bool) (int64, error)
}

// StatusStore persists the singleton sync status record.
type StatusStore interface {
	GetOrCreate(ctx context.Context) (*domain.SyncStatus, error)
	SetSyncing(ctx context.Context, syncing bool) error
	RecordSuccess(ctx context.Context, at time.Time, sources []string, newCount int, cursors domain.CursorMap) error
	RecordError(ctx context.Context, message string) error
}

// Notifier is told when a sync changed the catalog, so read models can
// refresh their subscribers.
type Notifier interface {
	CatalogChanged(ctx context.Context)
}

// Config holds orchestrator tuning knobs.
type Config struct {
	MaxPerProvider  int
	ProviderDelay   time.Duration
	RetryAttempts   int
	RetryBaseDelay  time.Duration
	RetentionDays   int
	BreakerFailures uint32
}

// Orchestrator runs the sync pipeline. PerformSync is single-flight:
// overlapping triggers collapse into the one in-progress run.
type Orchestrator struct {
	catalog   CatalogStore
	status    StatusStore
	providers []provider.Provider
	notifier  Notifier
	log       *logger.Logger
	cfg       Config

	syncing  atomic.Bool
	breakers map[domain.Source]*gobreaker.CircuitBreaker[[]provider.Record]
}

// New creates an orchestrator over the given providers. Provider order is
// the fallback chain priority: adapters are attempted in slice order.
func New(catalog CatalogStore, status StatusStore, providers []provider.Provider, notifier Notifier, log *logger.Logger, cfg Config) *Orchestrator {
	if cfg.RetryAttempts <= 0 {
		cfg.RetryAttempts = 3
	}
	if cfg.RetryBaseDelay <= 0 {
		cfg.RetryBaseDelay = time.Second
	}
	if cfg.RetentionDays <= 0 {
		cfg.RetentionDays = 30
	}
	if cfg.BreakerFailures == 0 {
		cfg.BreakerFailures = 5
	}

	o := &Orchestrator{
		catalog:   catalog,
		status:    status,
		providers: providers,
		notifier:  notifier,
		log:       log,
		cfg:       cfg,
		breakers:  make(map[domain.Source]*gobreaker.CircuitBreaker[[]provider.Record], len(providers)),
	}
	for _, p := range providers {
		src := p.Source()
		o.breakers[src] = gobreaker.NewCircuitBreaker[[]provider.Record](gobreaker.Settings{
			Name:    string(src),
			Timeout: time.Minute,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= cfg.BreakerFailures
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				log.WithFields(logger.Fields{
					logger.FieldSource: name,
					"from":             from.String(),
					"to":               to.String(),
				}).Warn("Provider circuit breaker state changed")
			},
		})
	}
	return o
}

// PerformSync runs one full sync across the fallback chain and returns the
// number of newly inserted wallpapers. A call that finds another sync in
// progress returns (0, nil) immediately: the concurrent run satisfies the
// request. An error is returned only when every configured provider failed.
func (o *Orchestrator) PerformSync(ctx context.Context) (int, error) {
	if !o.syncing.CompareAndSwap(false, true) {
		o.log.Debug("Sync already in progress, collapsing trigger")
		return 0, nil
	}
	// Scoped release: must run on success, total failure, panic, and
	// cancellation alike. The persisted mirror is cleared with a detached
	// context so a cancelled sync cannot leave IsSyncing stuck.
	defer func() {
		if err := o.status.SetSyncing(context.WithoutCancel(ctx), false); err != nil {
			o.log.WithError(err).Warn("Failed to clear persisted syncing flag")
		}
		o.syncing.Store(false)
	}()

	ctx = logger.SetSyncID(ctx, uuid.New().String())
	started := time.Now()
	logger.CtxInfo(ctx, "Starting catalog sync across %d providers", len(o.providers))

	if err := o.status.SetSyncing(ctx, true); err != nil {
		o.log.WithError(err).Warn("Failed to persist syncing flag")
	}

	// One round-trip snapshot of existing keys for in-memory dedup.
	existing, err := o.catalog.SourceKeys(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to snapshot catalog keys: %w", err)
	}

	cursors := domain.CursorMap{}
	if status, serr := o.status.GetOrCreate(ctx); serr == nil {
		for k, v := range status.Cursors {
			cursors[k] = v
		}
	} else {
		o.log.WithError(serr).Warn("Failed to load sync cursors, starting from page 1")
	}

	totalNew := 0
	var contributed []string
	var failures []string

	for i, p := range o.providers {
		if cerr := ctx.Err(); cerr != nil {
			return totalNew, cerr
		}

		src := string(p.Source())
		if !p.Configured() {
			// Missing credential: skipped entirely, not a failure.
			logger.CtxDebug(ctx, "Provider %s has no credential configured, skipping", src)
			continue
		}

		if i > 0 && o.cfg.ProviderDelay > 0 {
			// Pacing between providers to stay clear of rate limits.
			if serr := sleepCtx(ctx, o.cfg.ProviderDelay); serr != nil {
				return totalNew, serr
			}
		}

		page := cursors[src] + 1
		records, ferr := o.fetchProvider(ctx, p, page)
		if ferr != nil {
			// Cancellation is exempt from the swallow-and-continue path.
			if cerr := ctx.Err(); cerr != nil {
				return totalNew, cerr
			}
			failures = append(failures, fmt.Sprintf("%s: %v", src, ferr))
			logger.CtxError(ctx, "Provider %s failed: %v", src, ferr)
			continue
		}

		batch := o.buildBatch(p.Source(), records, existing)
		inserted, ierr := o.catalog.InsertIgnore(ctx, batch)
		if ierr != nil {
			failures = append(failures, fmt.Sprintf("%s: insert: %v", src, ierr))
			logger.CtxError(ctx, "Provider %s insert failed: %v", src, ierr)
			continue
		}

		totalNew += int(inserted)
		contributed = append(contributed, src)
		if len(records) > 0 {
			cursors[src] = page
		} else {
			// Exhausted pagination; rotate back to the first page.
			cursors[src] = 0
		}
		logger.With(logger.Fields{
			logger.FieldSource: src,
			logger.FieldCount:  inserted,
		}).Info(ctx, "Provider contributed %d new wallpapers (fetched %d)", inserted, len(records))
	}

	o.sweep(ctx)

	if len(contributed) == 0 && len(failures) > 0 {
		message := strings.Join(failures, "; ")
		if serr := o.status.RecordError(ctx, message); serr != nil {
			o.log.WithError(serr).Warn("Failed to persist sync error")
		}
		return 0, errors.New(message)
	}

	if len(contributed) > 0 {
		if serr := o.status.RecordSuccess(ctx, time.Now(), contributed, totalNew, cursors); serr != nil {
			o.log.WithError(serr).Warn("Failed to persist sync status")
		}
		if o.notifier != nil && totalNew > 0 {
			o.notifier.CatalogChanged(ctx)
		}
	}

	logger.With(logger.Fields{
		logger.FieldCount:      totalNew,
		logger.FieldDurationMs: time.Since(started).Milliseconds(),
	}).Info(ctx, "Catalog sync completed: %d new from %v", totalNew, contributed)

	return totalNew, nil
}

// fetchProvider runs the category/query plan of one provider through its
// circuit breaker. The provider succeeds if at least one category request
// succeeded; partial results still contribute data.
func (o *Orchestrator) fetchProvider(ctx context.Context, p provider.Provider, page int) ([]provider.Record, error) {
	br := o.breakers[p.Source()]
	if br == nil {
		return o.fetchCategories(ctx, p, page)
	}
	return br.Execute(func() ([]provider.Record, error) {
		return o.fetchCategories(ctx, p, page)
	})
}

func (o *Orchestrator) fetchCategories(ctx context.Context, p provider.Provider, page int) ([]provider.Record, error) {
	categories := p.Categories()
	if len(categories) == 0 {
		return nil, nil
	}

	var all []provider.Record
	var lastErr error
	succeeded := 0

	for _, category := range categories {
		records, err := retrySearch(ctx, o.cfg.RetryAttempts, o.cfg.RetryBaseDelay, func(ctx context.Context) ([]provider.Record, error) {
			return p.Search(ctx, category, category, page)
		})
		if err != nil {
			if cerr := ctx.Err(); cerr != nil {
				return nil, cerr
			}
			lastErr = err
			logger.CtxWarn(ctx, "Category %q failed on %s: %v", category, p.Source(), err)
			continue
		}
		succeeded++
		all = append(all, records...)
	}

	if succeeded == 0 {
		return nil, lastErr
	}
	return all, nil
}

// buildBatch filters records already in the catalog, deduplicates within the
// batch by source ID, caps the batch size, and translates to domain rows.
func (o *Orchestrator) buildBatch(src domain.Source, records []provider.Record, existing map[string]struct{}) []domain.Wallpaper {
	now := time.Now()
	seen := make(map[string]struct{}, len(records))
	batch := make([]domain.Wallpaper, 0, len(records))

	for _, rec := range records {
		if rec.SourceID == "" {
			continue
		}
		key := domain.SourceKey(src, rec.SourceID)
		if _, ok := existing[key]; ok {
			continue
		}
		if _, ok := seen[rec.SourceID]; ok {
			continue
		}
		seen[rec.SourceID] = struct{}{}
		existing[key] = struct{}{}

		batch = append(batch, domain.Wallpaper{
			ID:          domain.WallpaperID(src, rec.SourceID),
			Source:      src,
			SourceID:    rec.SourceID,
			ThumbURL:    rec.URLs.Thumb,
			PreviewURL:  rec.URLs.Preview,
			FullURL:     rec.URLs.Full,
			OriginalURL: rec.URLs.Original,
			Width:       rec.Width,
			Height:      rec.Height,
			Category:    domain.NormalizeKey(rec.Category),
			Tags:        domain.StringArray(domain.NormalizeTags(rec.Tags)),
			Attribution: rec.Attribution,
			Likes:       rec.Likes,
			Downloads:   rec.Downloads,
			SyncedAt:    now,
		})

		if o.cfg.MaxPerProvider > 0 && len(batch) >= o.cfg.MaxPerProvider {
			break
		}
	}
	return batch
}

// sweep deletes items past the retention age, skipping anything with a local
// cache path. Sweep failures are logged, never fatal to the sync.
func (o *Orchestrator) sweep(ctx context.Context) {
	cutoff := time.Now().AddDate(0, 0, -o.cfg.RetentionDays)
	deleted, err := o.catalog.DeleteOlderThan(ctx, cutoff, true)
	if err != nil {
		logger.CtxWarn(ctx, "Retention sweep failed: %v", err)
		return
	}
	if deleted > 0 {
		logger.CtxInfo(ctx, "Retention sweep removed %d uncached wallpapers", deleted)
	}
}
