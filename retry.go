package feign

import (
	"context"
	"time"
)

// RetryPolicy decides, given a failure and the number of the attempt that
// produced it (starting at 1), whether to retry after a delay or give up.
// Only transport failures and decoded API errors are offered to it.
type RetryPolicy interface {
	ShouldRetry(ctx context.Context, err error, attempt int) (delay time.Duration, retry bool)
}

// NoRetry gives up after the first attempt.
type NoRetry struct{}

func (NoRetry) ShouldRetry(ctx context.Context, err error, attempt int) (time.Duration, bool) {
	return 0, false
}

// Backoff retries with exponentially growing delays: Period, then 1.5x
// per attempt, capped at MaxPeriod, at most MaxAttempts attempts total.
type Backoff struct {
	Period      time.Duration
	MaxPeriod   time.Duration
	MaxAttempts int
}

func DefaultBackoff() *Backoff {
	return &Backoff{
		Period:      100 * time.Millisecond,
		MaxPeriod:   time.Second,
		MaxAttempts: 5,
	}
}

func (b *Backoff) ShouldRetry(ctx context.Context, err error, attempt int) (time.Duration, bool) {
	if attempt >= b.MaxAttempts {
		return 0, false
	}
	delay := b.Period
	for i := 1; i < attempt; i++ {
		delay = delay * 3 / 2
		if delay >= b.MaxPeriod {
			delay = b.MaxPeriod
			break
		}
	}
	return delay, true
}

// sleep waits out a retry delay, cut short by context cancellation.
func sleep(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
