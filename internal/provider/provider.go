// Package provider defines the adapter interface for wallpaper sources and
// the canonical record shape adapters translate provider responses into.
package provider

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"

	"github.com/tomoki/wallfeed/internal/domain"
)

// URLSet holds the image URL variants of one provider item.
type URLSet struct {
	Thumb    string
	Preview  string
	Full     string
	Original string
}

// Record is the canonical representation of one provider item before it is
// turned into a domain.Wallpaper.
type Record struct {
	SourceID    string
	URLs        URLSet
	Width       int
	Height      int
	Category    string
	Tags        []string
	Attribution string
	Likes       int64
	Downloads   int64
}

// Provider is the adapter interface one wallpaper source implements.
// Adapters are independently failable; the orchestrator treats each as one
// link of the fallback chain.
type Provider interface {
	// Source returns the provider identifier.
	Source() domain.Source

	// Configured reports whether required credentials are present. The
	// orchestrator skips unconfigured providers without counting a failure.
	Configured() bool

	// Categories returns the category/query plan for one sync run.
	Categories() []string

	// Search fetches one page of results for a query within a category.
	// Non-2xx responses are returned as *StatusError.
	Search(ctx context.Context, query, category string, page int) ([]Record, error)
}

// StatusError is a provider failure carrying the HTTP status code so the
// retry loop can classify transient vs fatal conditions.
type StatusError struct {
	Source     domain.Source
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: status %d: %s", e.Source, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s: status %d", e.Source, e.StatusCode)
}

// IsRetryable reports whether an error is a transient condition worth a
// backoff retry: network I/O failures, HTTP 429, and 5xx. Client errors and
// malformed responses are fatal for the attempt. Context cancellation is
// never retryable and must propagate.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var se *StatusError
	if errors.As(err, &se) {
		return se.StatusCode == 429 || se.StatusCode >= 500
	}

	var ne net.Error
	if errors.As(err, &ne) {
		return true
	}
	var ue *url.Error
	return errors.As(err, &ue)
}
