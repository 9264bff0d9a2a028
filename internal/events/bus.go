// Package events carries status notifications from the connection
// manager to whoever is watching: the CLI, a dashboard, a logger.
package events

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Kind names an event.
type Kind string

const (
	CommStatusChanged   Kind = "comm_status_changed"   // protocol.CommStatus
	CodeChanged         Kind = "robot_code_changed"    // bool
	ControlModeChanged  Kind = "control_mode_changed"  // protocol.ControlMode
	EnabledChanged      Kind = "enabled_changed"       // bool
	VoltageChanged      Kind = "voltage_changed"       // float64
	CANMetricsReceived  Kind = "can_metrics_received"  // protocol.CANMetrics
	RobotAddressChanged Kind = "robot_address_changed" // string
	EmergencyStopped    Kind = "emergency_stopped"     // bool
	ConsoleMessage      Kind = "console_message"       // string
	RadioChanged        Kind = "radio_changed"         // bool
	FMSChanged          Kind = "fms_changed"           // bool
	ProtocolChanged     Kind = "protocol_changed"      // string, "" when removed
	LinkDegraded        Kind = "link_degraded"         // bool, false when restored
)

// Event is one notification.
type Event struct {
	Kind    Kind
	Time    time.Time
	Payload any
}

// Subscription is a live feed from a Bus.  C is closed when the
// subscription ends.
type Subscription struct {
	ID uuid.UUID
	C  <-chan Event
	ch chan Event
}

// Bus fans events out to subscribers.  Publishing never blocks: a
// subscriber whose buffer is full misses the event.
type Bus struct {
	mu     sync.RWMutex
	subs   map[uuid.UUID]chan Event
	closed bool
}

// New returns an empty bus.
func New() *Bus {
	return &Bus{subs: make(map[uuid.UUID]chan Event)}
}

// Subscribe registers a subscriber with the given buffer depth.  On a
// closed bus the returned subscription's channel is already closed.
func (b *Bus) Subscribe(buffer int) *Subscription {
	if buffer < 1 {
		buffer = 1
	}
	ch := make(chan Event, buffer)
	s := &Subscription{ID: uuid.New(), C: ch, ch: ch}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		close(ch)
		return s
	}
	b.subs[s.ID] = ch
	return s
}

// Unsubscribe stops delivery to s and closes its channel.  Calling it
// twice is harmless.
func (b *Bus) Unsubscribe(s *Subscription) {
	if s == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if ch, ok := b.subs[s.ID]; ok {
		delete(b.subs, s.ID)
		close(ch)
	}
}

// Publish stamps e (if unstamped) and offers it to every subscriber.
// It returns how many subscribers accepted it.
func (b *Bus) Publish(e Event) int {
	if e.Time.IsZero() {
		e.Time = time.Now()
	}
	b.mu.RLock()
	defer b.mu.RUnlock()

	n := 0
	for _, ch := range b.subs {
		select {
		case ch <- e:
			n++
		default:
		}
	}
	return n
}

// Subscribers returns the number of live subscriptions.
func (b *Bus) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Close ends every subscription.  Later publishes go nowhere.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for id, ch := range b.subs {
		delete(b.subs, id)
		close(ch)
	}
}
