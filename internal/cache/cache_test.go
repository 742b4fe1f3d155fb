package cache

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/tomoki/wallfeed/internal/domain"
	"github.com/tomoki/wallfeed/internal/logger"
	"github.com/tomoki/wallfeed/internal/storage"
)

type fakeCatalog struct {
	items map[string]*domain.Wallpaper
	paths map[string]string
}

func newFakeCatalog(items ...*domain.Wallpaper) *fakeCatalog {
	c := &fakeCatalog{
		items: map[string]*domain.Wallpaper{},
		paths: map[string]string{},
	}
	for _, w := range items {
		c.items[w.ID] = w
	}
	return c
}

func (f *fakeCatalog) GetByID(ctx context.Context, id string) (*domain.Wallpaper, error) {
	w, ok := f.items[id]
	if !ok {
		return nil, errors.New("record not found")
	}
	return w, nil
}

func (f *fakeCatalog) SetLocalPath(ctx context.Context, id, path string, width, height int) error {
	f.paths[id] = path
	if w, ok := f.items[id]; ok {
		w.LocalCachePath = path
		w.Width = width
		w.Height = height
	}
	return nil
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, w, h))); err != nil {
		t.Fatalf("encode test image: %v", err)
	}
	return buf.Bytes()
}

func TestCacheOriginalStoresAndRecordsPath(t *testing.T) {
	img := pngBytes(t, 320, 200)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		w.Write(img)
	}))
	defer srv.Close()

	store, err := storage.NewLocalStorage(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocalStorage: %v", err)
	}
	catalog := newFakeCatalog(&domain.Wallpaper{ID: "w1", OriginalURL: srv.URL + "/orig.png"})
	c := New(catalog, store, logger.GetDefault())

	path, err := c.CacheOriginal(context.Background(), "w1")
	if err != nil {
		t.Fatalf("CacheOriginal: %v", err)
	}
	if path == "" {
		t.Fatal("expected a stored path")
	}
	if catalog.paths["w1"] != path {
		t.Errorf("catalog path = %q, want %q", catalog.paths["w1"], path)
	}
	if catalog.items["w1"].Width != 320 || catalog.items["w1"].Height != 200 {
		t.Errorf("dimensions = %dx%d, want 320x200", catalog.items["w1"].Width, catalog.items["w1"].Height)
	}

	exists, err := store.Exists(context.Background(), objectKey("w1", "png"))
	if err != nil || !exists {
		t.Errorf("stored object missing: exists=%v err=%v", exists, err)
	}
}

func TestCacheOriginalIsIdempotent(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Write(pngBytes(t, 10, 10))
	}))
	defer srv.Close()

	store, err := storage.NewLocalStorage(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocalStorage: %v", err)
	}
	catalog := newFakeCatalog(&domain.Wallpaper{ID: "w1", OriginalURL: srv.URL + "/orig.png"})
	c := New(catalog, store, logger.GetDefault())

	first, err := c.CacheOriginal(context.Background(), "w1")
	if err != nil {
		t.Fatalf("first CacheOriginal: %v", err)
	}
	second, err := c.CacheOriginal(context.Background(), "w1")
	if err != nil {
		t.Fatalf("second CacheOriginal: %v", err)
	}
	if first != second {
		t.Errorf("second call returned %q, want %q", second, first)
	}
	if calls != 1 {
		t.Errorf("expected 1 download, got %d", calls)
	}
}

func TestCacheOriginalRejectsNonImage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("this is not an image"))
	}))
	defer srv.Close()

	store, err := storage.NewLocalStorage(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocalStorage: %v", err)
	}
	catalog := newFakeCatalog(&domain.Wallpaper{ID: "w1", OriginalURL: srv.URL + "/orig"})
	c := New(catalog, store, logger.GetDefault())

	if _, err := c.CacheOriginal(context.Background(), "w1"); err == nil {
		t.Fatal("expected error for a non-image payload")
	}
	if catalog.paths["w1"] != "" {
		t.Error("catalog path must stay empty after a failed cache attempt")
	}
}

func TestCacheOriginalUnknownItem(t *testing.T) {
	store, err := storage.NewLocalStorage(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocalStorage: %v", err)
	}
	c := New(newFakeCatalog(), store, logger.GetDefault())

	_, err = c.CacheOriginal(context.Background(), "missing")
	if err == nil || !strings.Contains(err.Error(), "not found") {
		t.Fatalf("expected not-found error, got %v", err)
	}
}

func TestEvictClearsPathAndObject(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(pngBytes(t, 10, 10))
	}))
	defer srv.Close()

	store, err := storage.NewLocalStorage(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocalStorage: %v", err)
	}
	catalog := newFakeCatalog(&domain.Wallpaper{ID: "w1", OriginalURL: srv.URL + "/orig.png"})
	c := New(catalog, store, logger.GetDefault())

	if _, err := c.CacheOriginal(context.Background(), "w1"); err != nil {
		t.Fatalf("CacheOriginal: %v", err)
	}
	if err := c.Evict(context.Background(), "w1"); err != nil {
		t.Fatalf("Evict: %v", err)
	}
	if catalog.items["w1"].LocalCachePath != "" {
		t.Error("cache path not cleared after eviction")
	}
	exists, _ := store.Exists(context.Background(), objectKey("w1", "png"))
	if exists {
		t.Error("object still present after eviction")
	}

	// Evicting an uncached item is a no-op.
	if err := c.Evict(context.Background(), "w1"); err != nil {
		t.Errorf("second Evict should be a no-op, got %v", err)
	}
}

func TestLookupDegradesToNotFound(t *testing.T) {
	store, err := storage.NewLocalStorage(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocalStorage: %v", err)
	}
	c := New(newFakeCatalog(), store, logger.GetDefault())

	if _, ok := c.Lookup(context.Background(), "missing"); ok {
		t.Error("missing item must report not found")
	}
}
