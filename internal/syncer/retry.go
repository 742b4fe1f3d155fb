package syncer

import (
	"context"
	"time"

	"github.com/tomoki/wallfeed/internal/provider"
)

// searchFunc is one provider page fetch, retried on transient failure.
type searchFunc func(ctx context.Context) ([]provider.Record, error)

// retrySearch runs fn with bounded exponential backoff (delay doubles per
// attempt). Only transient conditions are retried; client errors fail the
// attempt immediately. The backoff sleep is a cancellation point, and a
// cancelled context unwinds without being swallowed.
func retrySearch(ctx context.Context, attempts int, baseDelay time.Duration, fn searchFunc) ([]provider.Record, error) {
	if attempts < 1 {
		attempts = 1
	}

	delay := baseDelay
	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		if cerr := ctx.Err(); cerr != nil {
			return nil, cerr
		}

		var out []provider.Record
		out, err = fn(ctx)
		if err == nil {
			return out, nil
		}
		if !provider.IsRetryable(err) || attempt == attempts {
			return nil, err
		}
		if serr := sleepCtx(ctx, delay); serr != nil {
			return nil, serr
		}
		delay *= 2
	}
	return nil, err
}

// sleepCtx sleeps for d or until the context is done, whichever comes first.
func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
