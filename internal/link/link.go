// Package link is the UDP control channel to the robot: one socket
// sending control packets to the robot's port and one bound to the
// local client port receiving its replies.
package link

import (
	"net"
	"sync"
	"time"

	rlerr "robolink/internal/errors"
	"robolink/internal/metrics"
	"robolink/internal/transport"
	"robolink/util"
)

// Config describes the link endpoints.
type Config struct {
	Factory    transport.Factory
	ClientPort int // local port robot packets arrive on
	RobotPort  int // remote port control packets are sent to
}

// Link is a robot control channel.  Sends are fire-and-forget.  When
// datagrams arrive faster than onData consumes them, only the most
// recent one is forwarded.
type Link struct {
	factory transport.Factory
	logger  *util.Logger
	metrics *metrics.Collector
	onData  func(data []byte, from *net.UDPAddr)

	latest chan datagram
	done   chan struct{}

	mu         sync.Mutex
	clientPort int
	robotPort  int
	robotIP    net.IP
	send       transport.Socket
	recv       transport.Socket
	lastSend   time.Time
	roundTrip  time.Duration
	closed     bool
}

type datagram struct {
	data []byte
	from *net.UDPAddr
}

// New creates a link.  No sockets are bound until Open.
func New(cfg Config, logger *util.Logger, m *metrics.Collector, onData func([]byte, *net.UDPAddr)) *Link {
	if cfg.Factory == nil {
		cfg.Factory = transport.NewUDPFactory()
	}
	return &Link{
		factory:    cfg.Factory,
		logger:     logger.With("link"),
		metrics:    m,
		onData:     onData,
		latest:     make(chan datagram, 1),
		done:       make(chan struct{}),
		clientPort: cfg.ClientPort,
		robotPort:  cfg.RobotPort,
	}
}

// Open binds the send and receive sockets and starts forwarding.
func (l *Link) Open() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return rlerr.ErrClosed
	}
	if l.send != nil {
		return nil
	}

	send, err := l.factory.ListenUDP(0)
	if err != nil {
		return err
	}
	recv, err := l.factory.ListenUDP(l.clientPort)
	if err != nil {
		send.Close()
		return err
	}
	l.send, l.recv = send, recv
	go l.read(recv)
	go l.forward()
	l.logger.Verbose("listening on %s", recv.LocalAddr())
	return nil
}

// SetRobotAddress sets the destination host.  A nil ip stops sends.
func (l *Link) SetRobotAddress(ip net.IP) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.robotIP = ip
}

// RobotAddress returns the destination host, or nil if unknown.
func (l *Link) RobotAddress() net.IP {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.robotIP
}

// SetRobotPort sets the destination port for subsequent sends.
func (l *Link) SetRobotPort(port int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.robotPort = port
}

// SetClientPort rebinds the receive socket.  The new socket is bound
// before the old one is closed, and datagrams the old socket already
// read are still forwarded.
func (l *Link) SetClientPort(port int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if port == l.clientPort {
		return nil
	}
	l.clientPort = port
	if l.recv == nil {
		return nil
	}

	recv, err := l.factory.ListenUDP(port)
	if err != nil {
		return err
	}
	old := l.recv
	l.recv = recv
	go l.read(recv)
	old.Close()
	l.logger.Verbose("client port now %d", port)
	return nil
}

// ClientPort returns the local receive port.
func (l *Link) ClientPort() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.clientPort
}

// LocalAddr returns the bound receive address, or nil before Open.
func (l *Link) LocalAddr() *net.UDPAddr {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.recv == nil {
		return nil
	}
	addr, _ := l.recv.LocalAddr().(*net.UDPAddr)
	return addr
}

// Send writes one control packet to the robot.
func (l *Link) Send(data []byte) error {
	l.mu.Lock()
	sock, ip, port := l.send, l.robotIP, l.robotPort
	l.mu.Unlock()

	if sock == nil {
		return rlerr.ErrNotConnected
	}
	if ip == nil {
		return rlerr.ErrNoAddress
	}
	dst := &net.UDPAddr{IP: ip, Port: port}
	l.mu.Lock()
	l.lastSend = time.Now()
	l.mu.Unlock()
	n, err := sock.WriteToUDP(data, dst)
	if err != nil {
		return rlerr.Wrap("send", dst.String(), err)
	}
	l.metrics.PacketSent(n)
	return nil
}

// RoundTrip is the time between the last send and the reply that
// followed it.  It is a diagnostic hint only.
func (l *Link) RoundTrip() time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.roundTrip
}

// Close releases both sockets and stops forwarding.
func (l *Link) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil
	}
	l.closed = true
	close(l.done)

	var errs []error
	for _, s := range []transport.Socket{l.send, l.recv} {
		if s != nil {
			if err := s.Close(); err != nil && !util.IsHarmless(err) {
				errs = append(errs, err)
			}
		}
	}
	l.send, l.recv = nil, nil
	return rlerr.Join(errs...)
}

func (l *Link) read(sock transport.Socket) {
	err := transport.Serve(sock, func(data []byte, from *net.UDPAddr) {
		l.metrics.PacketReceived(len(data))
		l.mu.Lock()
		if !l.lastSend.IsZero() {
			l.roundTrip = time.Since(l.lastSend)
		}
		l.mu.Unlock()
		l.offer(datagram{data: data, from: from})
	})
	if err != nil {
		l.logger.Debug("receiver stopped: %v", err)
	}
}

// offer replaces any datagram still waiting to be forwarded.
func (l *Link) offer(d datagram) {
	for {
		select {
		case l.latest <- d:
			return
		default:
		}
		select {
		case <-l.latest:
		default:
		}
	}
}

func (l *Link) forward() {
	for {
		select {
		case d := <-l.latest:
			if l.onData != nil {
				l.onData(d.data, d.from)
			}
		case <-l.done:
			return
		}
	}
}
