package retry

import (
	"fmt"
	"sync"
	"time"

	rlerr "robolink/internal/errors"
)

// Breaker stops calling a host after Threshold consecutive failures.
// Once Cooldown has passed it lets a single trial call through; a
// success closes the breaker again, a failure restarts the cooldown.
type Breaker struct {
	Threshold int           // default 3
	Cooldown  time.Duration // default 30s

	mu       sync.Mutex
	failures int
	openedAt time.Time
	trial    bool
	now      func() time.Time
}

// Open reports whether calls are currently being refused.
func (b *Breaker) Open() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.failures >= b.threshold() && !b.cooled()
}

// Failures returns the consecutive failure count.
func (b *Breaker) Failures() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.failures
}

// Do runs fn unless the breaker is open, in which case it returns an
// error wrapping ErrCircuitOpen without calling fn.
func (b *Breaker) Do(fn func() error) error {
	b.mu.Lock()
	if b.failures >= b.threshold() {
		if !b.cooled() || b.trial {
			wait := b.cooldown() - b.clock().Sub(b.openedAt)
			b.mu.Unlock()
			return fmt.Errorf("%w: retry in %v", rlerr.ErrCircuitOpen, wait.Round(time.Second))
		}
		b.trial = true
	}
	b.mu.Unlock()

	err := fn()

	b.mu.Lock()
	defer b.mu.Unlock()
	b.trial = false
	if err == nil {
		b.failures = 0
		return nil
	}
	b.failures++
	if b.failures >= b.threshold() {
		b.openedAt = b.clock()
	}
	return err
}

func (b *Breaker) threshold() int {
	if b.Threshold <= 0 {
		return 3
	}
	return b.Threshold
}

func (b *Breaker) cooldown() time.Duration {
	if b.Cooldown <= 0 {
		return 30 * time.Second
	}
	return b.Cooldown
}

func (b *Breaker) cooled() bool {
	return b.clock().Sub(b.openedAt) >= b.cooldown()
}

func (b *Breaker) clock() time.Time {
	if b.now != nil {
		return b.now()
	}
	return time.Now()
}
