// Package manager ties the connection components together around one
// pluggable protocol.
//
// A Manager runs a single reactor goroutine (Run).  Every piece of
// connection state is owned by that goroutine: socket readers, the
// resolver, the watchdog and probes hand their results to it through
// an inbox, and the exported command methods do the same.  Outward
// notifications go through an events.Bus.
package manager

import (
	"context"
	"errors"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"robolink/config"
	rlerr "robolink/internal/errors"
	"robolink/internal/events"
	"robolink/internal/metrics"
	"robolink/internal/resolver"
	"robolink/internal/session"
	"robolink/internal/transport"
	"robolink/internal/watchdog"
	"robolink/protocol"
	"robolink/util"
)

// Config holds the manager's tunables.  Zero fields take defaults.
type Config struct {
	Factory transport.Factory
	Dialer  transport.Dialer

	Team    int
	Address string // operator-supplied robot address, "" for the protocol default

	Scan             bool
	ScanWidth        int
	ScanInterval     time.Duration
	ScanLocalSubnets bool
	ExtraCandidates  []string

	Probe        bool
	ProbeTimeout time.Duration

	Resolver resolver.Config

	// InstructionPackets is how many control packets carry a reboot or
	// restart request.
	InstructionPackets int
}

func (c *Config) applyDefaults() {
	if c.Factory == nil {
		c.Factory = transport.NewUDPFactory()
	}
	if c.ScanInterval <= 0 {
		c.ScanInterval = config.DefaultScanInterval
	}
	if c.ProbeTimeout <= 0 {
		c.ProbeTimeout = config.DefaultProbeTimeout
	}
	if c.Dialer == nil {
		c.Dialer = &transport.TCPDialer{Timeout: c.ProbeTimeout}
	}
	if c.InstructionPackets <= 0 {
		c.InstructionPackets = config.DefaultInstructionPackets
	}
}

// Manager owns the active protocol and everything bound to it.
type Manager struct {
	cfg      Config
	logger   *util.Logger
	metrics  *metrics.Collector
	bus      *events.Bus
	resolver *resolver.Resolver
	watchdog *watchdog.Watchdog

	inbox    chan func()
	done     chan struct{}
	stopped  chan struct{}
	running  atomic.Bool
	stopOnce sync.Once
	shutOnce sync.Once

	// Everything below is touched only by the Run goroutine.
	ctx        context.Context
	proto      protocol.Protocol
	sess       *session.Session
	sendTicker *time.Ticker
	scanTicker *time.Ticker

	control   protocol.Control
	status    protocol.Status
	intent    protocol.ControlMode
	mode      protocol.ControlMode
	comm      protocol.CommStatus
	code      bool
	voltage   float64
	robotIP   net.IP
	radio     bool
	scanning  bool
	scanList  []string
	degraded  bool
	lastPkt   []byte
	probeGen  uint64
	instr     protocol.Instruction
	instrLeft int
}

// New creates a manager with no protocol installed.  Nothing is bound
// until Run is started and a protocol is installed.  Commands issued
// before Run starts wait for it, and fail with ErrClosed if Close comes
// first.
func New(cfg Config, logger *util.Logger, m *metrics.Collector) *Manager {
	cfg.applyDefaults()
	if m == nil {
		m = metrics.New()
	}
	mgr := &Manager{
		cfg:     cfg,
		logger:  logger.With("manager"),
		metrics: m,
		bus:     events.New(),
		inbox:   make(chan func(), 64),
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
		intent:  protocol.ModeTeleoperated,
		mode:    protocol.ModeNoCommunication,
		comm:    protocol.CommFailing,
		ctx:     context.Background(),
	}
	mgr.control.Team = cfg.Team
	mgr.control.Mode = mgr.intent
	mgr.resolver = resolver.New(cfg.Resolver, logger, func(r resolver.Result) {
		mgr.post(func() { mgr.onResolved(r) })
	})
	mgr.watchdog = watchdog.New(0, func() {
		mgr.post(mgr.onWatchdog)
	})
	return mgr
}

// Run drives the manager until ctx ends or Close is called.
func (m *Manager) Run(ctx context.Context) error {
	if !m.running.CompareAndSwap(false, true) {
		return errors.New("manager: already running")
	}
	defer close(m.stopped)
	defer m.stopOnce.Do(func() { close(m.done) })
	defer m.shutdown()
	m.ctx = ctx

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-m.done:
			return nil
		case fn := <-m.inbox:
			fn()
		case <-tickC(m.sendTicker):
			m.sendControl()
		case <-tickC(m.scanTicker):
			m.scanTick()
		}
	}
}

// Close stops the manager and releases every socket.  If Run is
// active, Close waits for it to return.
func (m *Manager) Close() error {
	m.stopOnce.Do(func() { close(m.done) })
	if m.running.Load() {
		<-m.stopped
	} else {
		m.shutdown()
	}
	return nil
}

// Subscribe returns a feed of outward events.
func (m *Manager) Subscribe(buffer int) *events.Subscription {
	if buffer <= 0 {
		buffer = config.DefaultEventBuffer
	}
	return m.bus.Subscribe(buffer)
}

// Unsubscribe ends a feed obtained from Subscribe.
func (m *Manager) Unsubscribe(s *events.Subscription) { m.bus.Unsubscribe(s) }

// Metrics returns the manager's counters.
func (m *Manager) Metrics() *metrics.Collector { return m.metrics }

// ── reactor plumbing ─────────────────────────────────────────────────

// post queues fn for the reactor without waiting for it to run.
func (m *Manager) post(fn func()) {
	select {
	case m.inbox <- fn:
	case <-m.done:
	}
}

// do runs fn on the reactor and waits for it.  Before Run starts, fn
// sits in the inbox until Run or Close.
func (m *Manager) do(fn func()) error {
	ran := make(chan struct{})
	select {
	case m.inbox <- func() { fn(); close(ran) }:
	case <-m.done:
		return rlerr.ErrClosed
	}
	select {
	case <-ran:
		return nil
	case <-m.done:
		return rlerr.ErrClosed
	}
}

func tickC(t *time.Ticker) <-chan time.Time {
	if t == nil {
		return nil
	}
	return t.C
}

func (m *Manager) emit(kind events.Kind, payload any) {
	m.bus.Publish(events.Event{Kind: kind, Payload: payload})
}

func (m *Manager) shutdown() {
	m.shutOnce.Do(func() {
		m.teardown()
		m.resolver.Close()
		m.watchdog.Stop()
		m.bus.Close()
	})
}
