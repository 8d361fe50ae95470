package marketdata

import (
	"context"
	"time"
)

// RetryPolicy is a reusable retry strategy: a fixed attempt bound with
// exponential backoff between attempts.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
}

// Delay returns the backoff before retry n (0-based): base * 2^n.
func (p RetryPolicy) Delay(attempt int) time.Duration {
	return p.BaseDelay * (1 << attempt)
}

// Do runs op up to MaxAttempts times, sleeping the backoff between failed
// attempts. The sleep is interruptible: a cancelled context returns
// immediately with the context error.
func (p RetryPolicy) Do(ctx context.Context, op func() error) error {
	var err error
	for attempt := 0; attempt < p.MaxAttempts; attempt++ {
		if attempt > 0 {
			if werr := sleepCtx(ctx, p.Delay(attempt-1)); werr != nil {
				return werr
			}
		}
		if err = op(); err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
	return err
}

// sleepCtx sleeps for d or until the context is cancelled.
func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
