// Package metrics provides lightweight, lock-free counters describing
// the health of the robot link.
//
// All methods are safe for concurrent use.  A nil *Collector is a
// valid no-op receiver, so components never need to nil-check.
package metrics

import (
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"
)

// Collector tracks runtime metrics for one robolink process.
type Collector struct {
	packetsSent      atomic.Int64
	packetsReceived  atomic.Int64
	bytesIn          atomic.Int64
	bytesOut         atomic.Int64
	decodeErrors     atomic.Int64
	scanProbes       atomic.Int64
	watchdogExpiries atomic.Int64
	resets           atomic.Int64
	consoleMessages  atomic.Int64
	errorsTotal      atomic.Int64

	mu           sync.RWMutex
	startTime    time.Time
	lastContact  time.Time
	lastError    time.Time
	lastErrorMsg string
}

// New creates a collector with the start time set to now.
func New() *Collector {
	return &Collector{startTime: time.Now()}
}

// ── Link traffic ─────────────────────────────────────────────────────

// PacketSent records one control packet of n bytes handed to a socket.
func (c *Collector) PacketSent(n int) {
	if c == nil {
		return
	}
	c.packetsSent.Add(1)
	c.bytesOut.Add(int64(n))
}

// PacketReceived records one robot datagram of n bytes.
func (c *Collector) PacketReceived(n int) {
	if c == nil {
		return
	}
	c.packetsReceived.Add(1)
	c.bytesIn.Add(int64(n))
}

// RobotContact stamps the time of the last decoded robot packet.
func (c *Collector) RobotContact() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.lastContact = time.Now()
	c.mu.Unlock()
}

// PacketsSent returns the total number of control packets sent.
func (c *Collector) PacketsSent() int64 {
	if c == nil {
		return 0
	}
	return c.packetsSent.Load()
}

// PacketsReceived returns the total number of robot datagrams seen.
func (c *Collector) PacketsReceived() int64 {
	if c == nil {
		return 0
	}
	return c.packetsReceived.Load()
}

// TotalBytesIn returns total bytes received.
func (c *Collector) TotalBytesIn() int64 {
	if c == nil {
		return 0
	}
	return c.bytesIn.Load()
}

// TotalBytesOut returns total bytes sent.
func (c *Collector) TotalBytesOut() int64 {
	if c == nil {
		return 0
	}
	return c.bytesOut.Load()
}

// DecodeError records a datagram the protocol rejected.
func (c *Collector) DecodeError() {
	if c == nil {
		return
	}
	c.decodeErrors.Add(1)
}

// DecodeErrors returns the number of rejected datagrams.
func (c *Collector) DecodeErrors() int64 {
	if c == nil {
		return 0
	}
	return c.decodeErrors.Load()
}

// ── Discovery ────────────────────────────────────────────────────────

// ScanProbes records n candidate probes sent by the scanner.
func (c *Collector) ScanProbes(n int) {
	if c == nil {
		return
	}
	c.scanProbes.Add(int64(n))
}

// TotalScanProbes returns the number of scanner probes sent.
func (c *Collector) TotalScanProbes() int64 {
	if c == nil {
		return 0
	}
	return c.scanProbes.Load()
}

// ── Liveness ─────────────────────────────────────────────────────────

// WatchdogExpired records one watchdog expiry.
func (c *Collector) WatchdogExpired() {
	if c == nil {
		return
	}
	c.watchdogExpiries.Add(1)
}

// WatchdogExpiries returns the number of watchdog expiries.
func (c *Collector) WatchdogExpiries() int64 {
	if c == nil {
		return 0
	}
	return c.watchdogExpiries.Load()
}

// ResetObserved records one run of the link reset sequence.
func (c *Collector) ResetObserved() {
	if c == nil {
		return
	}
	c.resets.Add(1)
}

// Resets returns the number of reset sequences run.
func (c *Collector) Resets() int64 {
	if c == nil {
		return 0
	}
	return c.resets.Load()
}

// ── Console ──────────────────────────────────────────────────────────

// ConsoleMessage records one inbound NetConsole message.
func (c *Collector) ConsoleMessage() {
	if c == nil {
		return
	}
	c.consoleMessages.Add(1)
}

// ConsoleMessages returns the number of NetConsole messages received.
func (c *Collector) ConsoleMessages() int64 {
	if c == nil {
		return 0
	}
	return c.consoleMessages.Load()
}

// ── Errors ───────────────────────────────────────────────────────────

// RecordError increments the error counter and stores the message.
func (c *Collector) RecordError(msg string) {
	if c == nil {
		return
	}
	c.errorsTotal.Add(1)
	c.mu.Lock()
	c.lastError = time.Now()
	c.lastErrorMsg = msg
	c.mu.Unlock()
}

// ErrorCount returns the total number of errors recorded.
func (c *Collector) ErrorCount() int64 {
	if c == nil {
		return 0
	}
	return c.errorsTotal.Load()
}

// ── Snapshot ─────────────────────────────────────────────────────────

// Snapshot is a point-in-time view of all metrics.
type Snapshot struct {
	Uptime           string `json:"uptime"`
	PacketsSent      int64  `json:"packets_sent"`
	PacketsReceived  int64  `json:"packets_received"`
	BytesIn          int64  `json:"bytes_in"`
	BytesOut         int64  `json:"bytes_out"`
	DecodeErrors     int64  `json:"decode_errors"`
	ScanProbes       int64  `json:"scan_probes"`
	WatchdogExpiries int64  `json:"watchdog_expiries"`
	Resets           int64  `json:"resets"`
	ConsoleMessages  int64  `json:"console_messages"`
	ErrorsTotal      int64  `json:"errors_total"`
	LastContact      string `json:"last_contact,omitempty"`
	LastError        string `json:"last_error,omitempty"`
	LastErrorMessage string `json:"last_error_message,omitempty"`
}

// Snapshot returns a copy of all current metrics.
func (c *Collector) Snapshot() Snapshot {
	if c == nil {
		return Snapshot{}
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	s := Snapshot{
		Uptime:           time.Since(c.startTime).Truncate(time.Second).String(),
		PacketsSent:      c.packetsSent.Load(),
		PacketsReceived:  c.packetsReceived.Load(),
		BytesIn:          c.bytesIn.Load(),
		BytesOut:         c.bytesOut.Load(),
		DecodeErrors:     c.decodeErrors.Load(),
		ScanProbes:       c.scanProbes.Load(),
		WatchdogExpiries: c.watchdogExpiries.Load(),
		Resets:           c.resets.Load(),
		ConsoleMessages:  c.consoleMessages.Load(),
		ErrorsTotal:      c.errorsTotal.Load(),
	}
	if !c.lastContact.IsZero() {
		s.LastContact = c.lastContact.Format(time.RFC3339)
	}
	if !c.lastError.IsZero() {
		s.LastError = c.lastError.Format(time.RFC3339)
		s.LastErrorMessage = c.lastErrorMsg
	}
	return s
}

// JSON returns the snapshot as an indented JSON string.
func (c *Collector) JSON() string {
	s := c.Snapshot()
	data, _ := json.MarshalIndent(s, "", "  ")
	return string(data)
}
