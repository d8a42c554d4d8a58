package booking

import (
	"context"
	"math/rand"
	"time"
)

// retrier re-runs a transaction that lost a lock race.  Only
// ConcurrentModificationError is retried; everything else is final.
type retrier struct {
	maxAttempts int
	baseDelay   time.Duration
	maxDelay    time.Duration
}

func newRetrier(maxAttempts int, baseDelay time.Duration) retrier {
	return retrier{
		maxAttempts: maxAttempts,
		baseDelay:   baseDelay,
		maxDelay:    baseDelay * 16,
	}
}

func (r retrier) do(ctx context.Context, fn func() error) error {
	for attempt := 1; ; attempt++ {
		err := fn()
		conflict := IsConcurrentModificationError(err)
		if conflict == nil {
			return err
		}
		if attempt >= r.maxAttempts {
			return &ConcurrentModificationError{Attempts: attempt, Err: conflict.Err}
		}
		t := time.NewTimer(r.backoff(attempt))
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
	}
}

// backoff is base * 2^(attempt-1) with ±25% jitter, capped at maxDelay.
func (r retrier) backoff(attempt int) time.Duration {
	if attempt <= 0 || r.baseDelay <= 0 {
		return r.baseDelay
	}
	d := r.baseDelay * time.Duration(1<<(attempt-1))
	if quarter := int64(d / 4); quarter > 0 {
		jitter := time.Duration(rand.Int63n(quarter))
		if rand.Intn(2) == 0 {
			d += jitter
		} else {
			d -= jitter
		}
	}
	if d > r.maxDelay {
		d = r.maxDelay
	}
	return d
}
