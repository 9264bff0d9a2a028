// Package retry paces repeated attempts at operations that talk to the
// robot over the network: exponential backoff between attempts, and a
// breaker that fails fast once a host has stopped answering.
package retry

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	rlerr "robolink/internal/errors"
)

// Backoff retries an operation with exponentially growing pauses.
type Backoff struct {
	Initial  time.Duration // first pause (default 250ms)
	Max      time.Duration // pause cap (default 5s)
	Factor   float64       // growth per attempt (default 2)
	Attempts int           // total tries, 0 = until ctx ends
	Jitter   bool          // spread pauses by ±25%

	// RetryIf decides whether an error is worth another attempt.  The
	// default retries network errors classified as retryable.
	RetryIf func(error) bool
}

// Delay returns the pause after the given 1-based attempt, before
// jitter.
func (b *Backoff) Delay(attempt int) time.Duration {
	d := b.Initial
	if d <= 0 {
		d = 250 * time.Millisecond
	}
	limit := b.Max
	if limit <= 0 {
		limit = 5 * time.Second
	}
	f := b.Factor
	if f <= 1 {
		f = 2
	}
	for i := 1; i < attempt && d < limit; i++ {
		d = time.Duration(float64(d) * f)
	}
	return min(d, limit)
}

// Do calls fn until it succeeds, fails with an error RetryIf rejects,
// runs out of attempts, or ctx ends.  The last error is returned.
func (b *Backoff) Do(ctx context.Context, fn func(attempt int) error) error {
	retryIf := b.RetryIf
	if retryIf == nil {
		retryIf = rlerr.IsRetryable
	}

	for attempt := 1; ; attempt++ {
		err := fn(attempt)
		if err == nil {
			return nil
		}
		if !retryIf(err) {
			return err
		}
		if b.Attempts > 0 && attempt >= b.Attempts {
			return fmt.Errorf("gave up after %d attempts: %w", attempt, err)
		}

		wait := b.Delay(attempt)
		if b.Jitter {
			wait = jitter(wait)
		}
		t := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			t.Stop()
			return fmt.Errorf("%w (last error: %v)", ctx.Err(), err)
		case <-t.C:
		}
	}
}

func jitter(d time.Duration) time.Duration {
	spread := float64(d) / 4
	return max(time.Duration(float64(d)+(rand.Float64()*2-1)*spread), time.Millisecond)
}
