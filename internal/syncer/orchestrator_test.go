package syncer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/tomoki/wallfeed/internal/domain"
	"github.com/tomoki/wallfeed/internal/logger"
	"github.com/tomoki/wallfeed/internal/provider"
)

type fakeCatalog struct {
	mu       sync.Mutex
	existing map[string]struct{}
	inserted [][]domain.Wallpaper
	sweeps   []bool

	keysErr   error
	insertErr error
}

func newFakeCatalog() *fakeCatalog {
	return &fakeCatalog{existing: map[string]struct{}{}}
}

func (f *fakeCatalog) SourceKeys(ctx context.Context) (map[string]struct{}, error) {
	if f.keysErr != nil {
		return nil, f.keysErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string]struct{}, len(f.existing))
	for k := range f.existing {
		out[k] = struct{}{}
	}
	return out, nil
}

func (f *fakeCatalog) InsertIgnore(ctx context.Context, items []domain.Wallpaper) (int64, error) {
	if f.insertErr != nil {
		return 0, f.insertErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inserted = append(f.inserted, items)
	var n int64
	for _, w := range items {
		key := domain.SourceKey(w.Source, w.SourceID)
		if _, ok := f.existing[key]; ok {
			continue
		}
		f.existing[key] = struct{}{}
		n++
	}
	return n, nil
}

func (f *fakeCatalog) DeleteOlderThan(ctx context.Context, cutoff time.Time, excludeCached bool) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sweeps = append(f.sweeps, excludeCached)
	return 0, nil
}

type fakeStatus struct {
	mu        sync.Mutex
	status    domain.SyncStatus
	syncing   []bool
	successes int
	lastError string
}

func (f *fakeStatus) GetOrCreate(ctx context.Context) (*domain.SyncStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s := f.status
	return &s, nil
}

func (f *fakeStatus) SetSyncing(ctx context.Context, syncing bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.syncing = append(f.syncing, syncing)
	f.status.IsSyncing = syncing
	return nil
}

func (f *fakeStatus) RecordSuccess(ctx context.Context, at time.Time, sources []string, newCount int, cursors domain.CursorMap) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.successes++
	f.status.LastSyncCount = newCount
	f.status.Cursors = cursors
	f.lastError = ""
	return nil
}

func (f *fakeStatus) RecordError(ctx context.Context, message string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastError = message
	return nil
}

type fakeProvider struct {
	source     domain.Source
	configured bool
	categories []string

	mu      sync.Mutex
	calls   int
	records []provider.Record
	err     error
}

func (f *fakeProvider) Source() domain.Source { return f.source }
func (f *fakeProvider) Configured() bool      { return f.configured }
func (f *fakeProvider) Categories() []string  { return f.categories }

func (f *fakeProvider) Search(ctx context.Context, query, category string, page int) ([]provider.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.records, nil
}

type fakeNotifier struct {
	mu    sync.Mutex
	calls int
}

func (f *fakeNotifier) CatalogChanged(ctx context.Context) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
}

func records(n int) []provider.Record {
	out := make([]provider.Record, n)
	for i := range out {
		out[i] = provider.Record{
			SourceID: fmt.Sprintf("item-%d", i),
			URLs:     provider.URLSet{Full: "https://example.com/full.jpg"},
			Category: "nature",
		}
	}
	return out
}

func newTestOrchestrator(catalog *fakeCatalog, status *fakeStatus, providers []provider.Provider, notifier Notifier) *Orchestrator {
	return New(catalog, status, providers, notifier, logger.GetDefault(), Config{
		RetryAttempts:  1,
		RetryBaseDelay: time.Millisecond,
		RetentionDays:  30,
	})
}

func TestPerformSyncInsertsNewItems(t *testing.T) {
	catalog := newFakeCatalog()
	status := &fakeStatus{}
	notifier := &fakeNotifier{}
	p := &fakeProvider{
		source:     domain.SourceWallhaven,
		configured: true,
		categories: []string{"nature"},
		records:    records(5),
	}

	o := newTestOrchestrator(catalog, status, []provider.Provider{p}, notifier)
	count, err := o.PerformSync(context.Background())
	if err != nil {
		t.Fatalf("PerformSync returned error: %v", err)
	}
	if count != 5 {
		t.Errorf("expected 5 new items, got %d", count)
	}
	if status.successes != 1 {
		t.Errorf("expected 1 recorded success, got %d", status.successes)
	}
	if notifier.calls != 1 {
		t.Errorf("expected 1 catalog-changed notification, got %d", notifier.calls)
	}
}

func TestPerformSyncIsIdempotent(t *testing.T) {
	catalog := newFakeCatalog()
	status := &fakeStatus{}
	p := &fakeProvider{
		source:     domain.SourceWallhaven,
		configured: true,
		categories: []string{"nature"},
		records:    records(5),
	}

	o := newTestOrchestrator(catalog, status, []provider.Provider{p}, nil)
	if _, err := o.PerformSync(context.Background()); err != nil {
		t.Fatalf("first sync: %v", err)
	}

	count, err := o.PerformSync(context.Background())
	if err != nil {
		t.Fatalf("second sync: %v", err)
	}
	if count != 0 {
		t.Errorf("re-sync of identical records inserted %d items, want 0", count)
	}
}

func TestPerformSyncSingleFlight(t *testing.T) {
	catalog := newFakeCatalog()
	status := &fakeStatus{}
	p := &fakeProvider{
		source:     domain.SourceWallhaven,
		configured: true,
		categories: []string{"nature"},
		records:    records(1),
	}

	o := newTestOrchestrator(catalog, status, []provider.Provider{p}, nil)

	// Simulate an in-progress run holding the guard.
	if !o.syncing.CompareAndSwap(false, true) {
		t.Fatal("failed to take the sync guard")
	}
	count, err := o.PerformSync(context.Background())
	if err != nil {
		t.Fatalf("overlapping trigger returned error: %v", err)
	}
	if count != 0 {
		t.Errorf("overlapping trigger returned count %d, want 0", count)
	}
	if p.calls != 0 {
		t.Errorf("overlapping trigger issued %d provider calls, want 0", p.calls)
	}
	o.syncing.Store(false)
}

func TestPerformSyncReleasesGuardAfterTotalFailure(t *testing.T) {
	catalog := newFakeCatalog()
	status := &fakeStatus{}
	p := &fakeProvider{
		source:     domain.SourceWallhaven,
		configured: true,
		categories: []string{"nature"},
		err:        errors.New("boom"),
	}

	o := newTestOrchestrator(catalog, status, []provider.Provider{p}, nil)
	if _, err := o.PerformSync(context.Background()); err == nil {
		t.Fatal("expected error when every provider fails")
	}
	if status.lastError == "" {
		t.Error("expected aggregated failure to be persisted")
	}
	if !strings.Contains(status.lastError, "wallhaven") {
		t.Errorf("aggregated error should name the failed provider, got %q", status.lastError)
	}
	if o.syncing.Load() {
		t.Error("sync guard still held after a failed run")
	}

	// A later trigger must be able to run.
	p.mu.Lock()
	p.err = nil
	p.records = records(2)
	p.mu.Unlock()
	count, err := o.PerformSync(context.Background())
	if err != nil {
		t.Fatalf("follow-up sync: %v", err)
	}
	if count != 2 {
		t.Errorf("follow-up sync inserted %d, want 2", count)
	}
}

func TestPerformSyncFallbackContinuesPastFailure(t *testing.T) {
	catalog := newFakeCatalog()
	status := &fakeStatus{}
	failing := &fakeProvider{
		source:     domain.SourceWallhaven,
		configured: true,
		categories: []string{"nature"},
		err:        &provider.StatusError{Source: domain.SourceWallhaven, StatusCode: 503},
	}
	working := &fakeProvider{
		source:     domain.SourcePixabay,
		configured: true,
		categories: []string{"nature"},
		records:    records(3),
	}

	o := newTestOrchestrator(catalog, status, []provider.Provider{failing, working}, nil)
	count, err := o.PerformSync(context.Background())
	if err != nil {
		t.Fatalf("sync with partial failure should succeed: %v", err)
	}
	if count != 3 {
		t.Errorf("expected 3 items from the fallback provider, got %d", count)
	}
	if status.successes != 1 {
		t.Errorf("partial success must be recorded as success, got %d", status.successes)
	}
}

func TestPerformSyncSkipsUnconfiguredProviders(t *testing.T) {
	catalog := newFakeCatalog()
	status := &fakeStatus{}
	unconfigured := &fakeProvider{
		source:     domain.SourcePexels,
		configured: false,
		categories: []string{"nature"},
	}

	o := newTestOrchestrator(catalog, status, []provider.Provider{unconfigured}, nil)
	count, err := o.PerformSync(context.Background())
	if err != nil {
		t.Fatalf("sync with no configured providers should not error: %v", err)
	}
	if count != 0 {
		t.Errorf("expected 0 items, got %d", count)
	}
	if unconfigured.calls != 0 {
		t.Errorf("unconfigured provider was called %d times", unconfigured.calls)
	}
	if status.lastError != "" {
		t.Errorf("skipping is not a failure, got error %q", status.lastError)
	}
}

func TestPerformSyncPropagatesCancellation(t *testing.T) {
	catalog := newFakeCatalog()
	status := &fakeStatus{}
	p := &fakeProvider{
		source:     domain.SourceWallhaven,
		configured: true,
		categories: []string{"nature"},
		records:    records(1),
	}

	o := newTestOrchestrator(catalog, status, []provider.Provider{p}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := o.PerformSync(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if o.syncing.Load() {
		t.Error("sync guard still held after cancellation")
	}
}

func TestPerformSyncRunsRetentionSweepExcludingCached(t *testing.T) {
	catalog := newFakeCatalog()
	status := &fakeStatus{}
	p := &fakeProvider{
		source:     domain.SourceWallhaven,
		configured: true,
		categories: []string{"nature"},
		records:    records(1),
	}

	o := newTestOrchestrator(catalog, status, []provider.Provider{p}, nil)
	if _, err := o.PerformSync(context.Background()); err != nil {
		t.Fatalf("PerformSync: %v", err)
	}
	if len(catalog.sweeps) != 1 {
		t.Fatalf("expected 1 retention sweep, got %d", len(catalog.sweeps))
	}
	if !catalog.sweeps[0] {
		t.Error("retention sweep must exclude locally cached items")
	}
}

func TestBuildBatchDeduplicatesWithinBatch(t *testing.T) {
	o := newTestOrchestrator(newFakeCatalog(), &fakeStatus{}, nil, nil)

	recs := []provider.Record{
		{SourceID: "a", Category: "Nature", Tags: []string{"Sky", "sky", "blue"}},
		{SourceID: "a", Category: "nature"},
		{SourceID: "b", Category: "nature"},
		{SourceID: ""},
	}
	batch := o.buildBatch(domain.SourceWallhaven, recs, map[string]struct{}{})
	if len(batch) != 2 {
		t.Fatalf("expected 2 deduplicated items, got %d", len(batch))
	}
	if batch[0].ID != domain.WallpaperID(domain.SourceWallhaven, "a") {
		t.Errorf("unexpected deterministic ID: %s", batch[0].ID)
	}
	if batch[0].Category != "nature" {
		t.Errorf("category not normalized: %q", batch[0].Category)
	}
	if len(batch[0].Tags) != 2 {
		t.Errorf("tags not deduplicated: %v", batch[0].Tags)
	}
}

func TestBuildBatchFiltersExistingAndCapsSize(t *testing.T) {
	catalog := newFakeCatalog()
	status := &fakeStatus{}
	o := New(catalog, status, nil, nil, logger.GetDefault(), Config{MaxPerProvider: 3})

	existing := map[string]struct{}{
		domain.SourceKey(domain.SourceWallhaven, "item-0"): {},
	}
	batch := o.buildBatch(domain.SourceWallhaven, records(10), existing)
	if len(batch) != 3 {
		t.Fatalf("expected cap of 3, got %d", len(batch))
	}
	for _, w := range batch {
		if w.SourceID == "item-0" {
			t.Error("existing item must be filtered out")
		}
	}
}
