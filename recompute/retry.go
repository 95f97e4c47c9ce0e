// recompute/retry.go
package recompute

import (
	"context"
	"time"
)

// retryBatch drives a "send batch, get back the unprocessed subset"
// operation until everything is processed or attempts run out. The delay
// doubles after each attempt. All retry state is local; there is nothing
// shared between concurrent callers.
//
// A send error is treated as transient: the remaining items are retried
// whole, and if the final attempt still errors that error is returned.
// Items still unprocessed after a clean final attempt are returned to the
// caller, who decides whether a residue is fatal.
func retryBatch[T any](ctx context.Context, items []T, attempts int, base time.Duration,
	send func(context.Context, []T) ([]T, error)) ([]T, error) {

	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	delay := base

	for attempt := 0; attempt < attempts && len(items) > 0; attempt++ {
		if attempt > 0 {
			if err := sleep(ctx, delay); err != nil {
				return items, err
			}
			delay *= 2
		}

		unprocessed, err := send(ctx, items)
		if err != nil {
			lastErr = err
			continue
		}
		lastErr = nil
		items = unprocessed
	}

	if lastErr != nil {
		return items, lastErr
	}
	return items, nil
}

// withRetry retries a unit store call under the same backoff policy.
func withRetry(ctx context.Context, attempts int, base time.Duration, fn func(context.Context) error) error {
	_, err := retryBatch(ctx, []struct{}{{}}, attempts, base,
		func(ctx context.Context, items []struct{}) ([]struct{}, error) {
			if err := fn(ctx); err != nil {
				return items, err
			}
			return nil, nil
		})
	return err
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// chunk splits items into fixed-size batches; the final batch may be short.
func chunk[T any](items []T, size int) [][]T {
	if size <= 0 {
		size = 1
	}
	var out [][]T
	for len(items) > size {
		out = append(out, items[:size])
		items = items[size:]
	}
	if len(items) > 0 {
		out = append(out, items)
	}
	return out
}
