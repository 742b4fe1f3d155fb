package syncer

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/tomoki/wallfeed/internal/domain"
	"github.com/tomoki/wallfeed/internal/provider"
)

func TestRetrySearchRetriesTransientErrors(t *testing.T) {
	calls := 0
	fn := func(ctx context.Context) ([]provider.Record, error) {
		calls++
		if calls < 3 {
			return nil, &provider.StatusError{Source: domain.SourceWallhaven, StatusCode: 503}
		}
		return []provider.Record{{SourceID: "ok"}}, nil
	}

	out, err := retrySearch(context.Background(), 3, time.Millisecond, fn)
	if err != nil {
		t.Fatalf("expected success after retries, got %v", err)
	}
	if calls != 3 {
		t.Errorf("expected 3 attempts, got %d", calls)
	}
	if len(out) != 1 {
		t.Errorf("expected 1 record, got %d", len(out))
	}
}

func TestRetrySearchStopsOnFatalError(t *testing.T) {
	calls := 0
	fatal := &provider.StatusError{Source: domain.SourceWallhaven, StatusCode: 401}
	fn := func(ctx context.Context) ([]provider.Record, error) {
		calls++
		return nil, fatal
	}

	_, err := retrySearch(context.Background(), 3, time.Millisecond, fn)
	if !errors.Is(err, fatal) {
		t.Fatalf("expected the fatal error back, got %v", err)
	}
	if calls != 1 {
		t.Errorf("client errors must not be retried, got %d attempts", calls)
	}
}

func TestRetrySearchRetriesRateLimit(t *testing.T) {
	calls := 0
	fn := func(ctx context.Context) ([]provider.Record, error) {
		calls++
		if calls == 1 {
			return nil, &provider.StatusError{Source: domain.SourcePixabay, StatusCode: 429}
		}
		return nil, nil
	}

	if _, err := retrySearch(context.Background(), 2, time.Millisecond, fn); err != nil {
		t.Fatalf("429 should be retried, got %v", err)
	}
	if calls != 2 {
		t.Errorf("expected 2 attempts, got %d", calls)
	}
}

func TestRetrySearchExhaustsAttempts(t *testing.T) {
	calls := 0
	fn := func(ctx context.Context) ([]provider.Record, error) {
		calls++
		return nil, &provider.StatusError{Source: domain.SourcePexels, StatusCode: 500}
	}

	_, err := retrySearch(context.Background(), 3, time.Millisecond, fn)
	if err == nil {
		t.Fatal("expected error after exhausting attempts")
	}
	if calls != 3 {
		t.Errorf("expected exactly 3 attempts, got %d", calls)
	}
}

func TestRetrySearchNeverSwallowsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	fn := func(ctx context.Context) ([]provider.Record, error) {
		cancel()
		return nil, &provider.StatusError{Source: domain.SourceWallhaven, StatusCode: 500}
	}

	_, err := retrySearch(ctx, 3, time.Minute, fn)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestSleepCtxCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	err := sleepCtx(ctx, time.Minute)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if time.Since(start) > 5*time.Second {
		t.Error("sleepCtx did not return promptly on cancellation")
	}
}
