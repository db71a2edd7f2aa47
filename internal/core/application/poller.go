package application

import (
	"context"
	"time"
)

// pollUntil repeatedly evaluates the predicate with exponential backoff until
// it reports done, the deadline elapses or the context is canceled. It
// replaces the fixed sleeps the eventual consistency of the indexer would
// otherwise require.
func pollUntil(
	ctx context.Context,
	deadline time.Duration,
	initialInterval time.Duration,
	predicate func(ctx context.Context) (bool, error),
) error {
	ctx, cancel := context.WithTimeout(ctx, deadline)
	defer cancel()

	interval := initialInterval
	for {
		done, err := predicate(ctx)
		if err != nil {
			return err
		}
		if done {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(interval):
		}

		interval *= 2
		if interval > 10*time.Second {
			interval = 10 * time.Second
		}
	}
}
