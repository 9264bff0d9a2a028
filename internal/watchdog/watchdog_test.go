package watchdog

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestFiresOnceAfterTimeout(t *testing.T) {
	var count atomic.Int32
	fired := make(chan time.Time, 4)

	start := time.Now()
	w := New(100*time.Millisecond, func() {
		count.Add(1)
		fired <- time.Now()
	})
	defer w.Stop()

	select {
	case at := <-fired:
		elapsed := at.Sub(start)
		if elapsed < 95*time.Millisecond || elapsed > 150*time.Millisecond {
			t.Errorf("fired after %v, want between 95ms and 150ms", elapsed)
		}
	case <-time.After(time.Second):
		t.Fatal("watchdog never fired")
	}

	// It stays expired: no second event without a Restart.
	time.Sleep(300 * time.Millisecond)
	if got := count.Load(); got != 1 {
		t.Errorf("fired %d times, want 1", got)
	}
	if !w.Expired() {
		t.Error("Expired() = false after firing")
	}
}

func TestRestartPreventsExpiry(t *testing.T) {
	var count atomic.Int32
	w := New(100*time.Millisecond, func() { count.Add(1) })
	defer w.Stop()

	for i := 0; i < 8; i++ {
		time.Sleep(50 * time.Millisecond)
		w.Restart()
	}
	if got := count.Load(); got != 0 {
		t.Errorf("fired %d times while being restarted, want 0", got)
	}
}

func TestRestartAfterExpiryRearms(t *testing.T) {
	fired := make(chan struct{}, 4)
	w := New(30*time.Millisecond, func() { fired <- struct{}{} })
	defer w.Stop()

	for i := 0; i < 2; i++ {
		select {
		case <-fired:
		case <-time.After(time.Second):
			t.Fatalf("expiry %d never fired", i+1)
		}
		w.Restart()
	}
}

func TestSetTimeoutRearmsWithNewDuration(t *testing.T) {
	fired := make(chan time.Time, 1)
	w := New(time.Hour, func() { fired <- time.Now() })
	defer w.Stop()

	start := time.Now()
	w.SetTimeout(50 * time.Millisecond)
	if got := w.Timeout(); got != 50*time.Millisecond {
		t.Errorf("Timeout() = %v, want 50ms", got)
	}

	select {
	case at := <-fired:
		if elapsed := at.Sub(start); elapsed < 45*time.Millisecond {
			t.Errorf("fired after %v, want >= 50ms", elapsed)
		}
	case <-time.After(time.Second):
		t.Fatal("watchdog never fired after SetTimeout")
	}
}

func TestStopDisarms(t *testing.T) {
	var count atomic.Int32
	w := New(20*time.Millisecond, func() { count.Add(1) })
	w.Stop()
	time.Sleep(80 * time.Millisecond)
	if got := count.Load(); got != 0 {
		t.Errorf("fired %d times after Stop, want 0", got)
	}
}

func TestZeroTimeoutIsDisarmed(t *testing.T) {
	var count atomic.Int32
	w := New(0, func() { count.Add(1) })
	defer w.Stop()
	time.Sleep(30 * time.Millisecond)
	if got := count.Load(); got != 0 {
		t.Errorf("fired %d times with zero timeout, want 0", got)
	}
}
