// Package watchdog implements the link liveness timer.
//
// A Watchdog counts down from its timeout.  When the countdown reaches
// zero the expiry callback runs exactly once, and the watchdog stays
// expired until the next Restart or SetTimeout.
package watchdog

import (
	"sync"
	"time"
)

// Watchdog is a single-shot, re-armable countdown.  All methods are
// safe for concurrent use.  The expiry callback runs on its own
// goroutine and must not block.
type Watchdog struct {
	mu       sync.Mutex
	timeout  time.Duration
	timer    *time.Timer
	gen      uint64 // bumped on every arm; stale timers compare and bail
	expired  bool
	stopped  bool
	onExpire func()
}

// New returns an armed watchdog.  A non-positive timeout leaves it
// disarmed until SetTimeout is called with a positive value.
func New(timeout time.Duration, onExpire func()) *Watchdog {
	w := &Watchdog{timeout: timeout, onExpire: onExpire}
	w.mu.Lock()
	w.arm()
	w.mu.Unlock()
	return w
}

// Restart re-arms the countdown with the full configured timeout.
func (w *Watchdog) Restart() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.stopped = false
	w.arm()
}

// SetTimeout changes the configured duration and re-arms immediately.
func (w *Watchdog) SetTimeout(d time.Duration) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.timeout = d
	w.stopped = false
	w.arm()
}

// Timeout returns the configured duration.
func (w *Watchdog) Timeout() time.Duration {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.timeout
}

// Expired reports whether the countdown has fired since the last arm.
func (w *Watchdog) Expired() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.expired
}

// Stop disarms the watchdog.  No callback fires until the next Restart
// or SetTimeout.
func (w *Watchdog) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.stopped = true
	w.gen++
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
}

// arm must be called with mu held.
func (w *Watchdog) arm() {
	w.gen++
	w.expired = false
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
	if w.timeout <= 0 {
		return
	}
	gen := w.gen
	w.timer = time.AfterFunc(w.timeout, func() { w.fire(gen) })
}

func (w *Watchdog) fire(gen uint64) {
	w.mu.Lock()
	if gen != w.gen || w.stopped || w.expired {
		w.mu.Unlock()
		return
	}
	w.expired = true
	w.timer = nil
	cb := w.onExpire
	w.mu.Unlock()

	if cb != nil {
		cb()
	}
}
