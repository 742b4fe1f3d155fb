package wallhaven

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/tomoki/wallfeed/internal/provider"
)

func TestSearchParsesResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/search" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("q"); got != "nature" {
			t.Errorf("query q = %q, want nature", got)
		}
		if got := r.URL.Query().Get("page"); got != "2" {
			t.Errorf("query page = %q, want 2", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"data": [
				{
					"id": "wh-1",
					"short_url": "https://whvn.cc/wh-1",
					"favorites": 42,
					"dimension_x": 1920,
					"dimension_y": 1080,
					"path": "https://w.wallhaven.cc/full/wh-1.jpg",
					"thumbs": {"large": "l.jpg", "original": "o.jpg", "small": "s.jpg"}
				},
				{
					"id": "",
					"path": "ignored-without-id.jpg"
				}
			]
		}`))
	}))
	defer srv.Close()

	a := New(Config{BaseURL: srv.URL, RPS: 100})
	records, err := a.Search(context.Background(), "nature", "nature", 2)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}

	r := records[0]
	if r.SourceID != "wh-1" {
		t.Errorf("SourceID = %q", r.SourceID)
	}
	if r.Likes != 42 {
		t.Errorf("Likes = %d, want 42", r.Likes)
	}
	if r.Width != 1920 || r.Height != 1080 {
		t.Errorf("dimensions = %dx%d", r.Width, r.Height)
	}
	if r.URLs.Full != "https://w.wallhaven.cc/full/wh-1.jpg" {
		t.Errorf("full URL = %q", r.URLs.Full)
	}
	if r.Category != "nature" {
		t.Errorf("Category = %q", r.Category)
	}
}

func TestSearchMapsStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	a := New(Config{BaseURL: srv.URL, RPS: 100})
	_, err := a.Search(context.Background(), "nature", "nature", 1)

	var se *provider.StatusError
	if !errors.As(err, &se) {
		t.Fatalf("expected *provider.StatusError, got %v", err)
	}
	if se.StatusCode != http.StatusTooManyRequests {
		t.Errorf("StatusCode = %d, want 429", se.StatusCode)
	}
	if !provider.IsRetryable(err) {
		t.Error("429 must classify as retryable")
	}
}

func TestConfiguredWithoutKey(t *testing.T) {
	a := New(Config{})
	if !a.Configured() {
		t.Error("wallhaven requires no credential and must report configured")
	}
}
