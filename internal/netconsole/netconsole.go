// Package netconsole carries the robot's plain-text diagnostic channel.
// It is independent of the control link: text arrives as broadcast UDP
// datagrams on one port, and commands (when the protocol allows them)
// go out on another.
package netconsole

import (
	"net"
	"strings"
	"sync"

	rlerr "robolink/internal/errors"
	"robolink/internal/metrics"
	"robolink/internal/transport"
	"robolink/protocol"
	"robolink/util"
)

// Config describes the console ports and whether commands may be sent.
type Config struct {
	Factory         transport.Factory
	InPort          int // local port robot text arrives on
	OutPort         int // remote port commands go to, protocol.NoPort if none
	AcceptsCommands bool
}

// Console is one NetConsole channel.
type Console struct {
	factory   transport.Factory
	logger    *util.Logger
	metrics   *metrics.Collector
	onMessage func(text string)

	mu     sync.Mutex
	cfg    Config
	target net.IP
	recv   transport.Socket
	send   transport.Socket
	opened bool
	closed bool
}

// New creates a console.  No sockets are bound until Open.
func New(cfg Config, logger *util.Logger, m *metrics.Collector, onMessage func(string)) *Console {
	if cfg.Factory == nil {
		cfg.Factory = transport.NewUDPFactory()
	}
	return &Console{
		factory:   cfg.Factory,
		logger:    logger.With("netconsole"),
		metrics:   m,
		onMessage: onMessage,
		cfg:       cfg,
	}
}

// Open binds the receive port, and a send socket if commands are
// accepted.
func (c *Console) Open() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return rlerr.ErrClosed
	}
	if c.opened {
		return nil
	}

	if c.cfg.InPort != protocol.NoPort {
		recv, err := c.factory.ListenUDP(c.cfg.InPort)
		if err != nil {
			return err
		}
		c.recv = recv
		go c.read(recv)
		c.logger.Verbose("listening on %s", recv.LocalAddr())
	}
	if c.canSendLocked() {
		send, err := c.factory.ListenUDP(0)
		if err != nil {
			c.closeLocked()
			return err
		}
		c.send = send
	}
	c.opened = true
	return nil
}

// AcceptsCommands reports whether SendCommand will transmit.
func (c *Console) AcceptsCommands() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.canSendLocked()
}

// SetTarget directs commands at ip.  With a nil ip commands are
// broadcast.
func (c *Console) SetTarget(ip net.IP) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.target = ip
}

// SetOutPort changes the remote command port used by the next
// SendCommand.  An open console that had no port to send to binds its
// send socket now.
func (c *Console) SetOutPort(port int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cfg.OutPort = port
	if !c.opened || c.closed || c.send != nil || !c.canSendLocked() {
		return nil
	}
	send, err := c.factory.ListenUDP(0)
	if err != nil {
		return err
	}
	c.send = send
	return nil
}

// SendCommand transmits one line of text to the robot.  If the protocol
// does not accept console commands nothing is sent and
// ErrConsoleRejected is returned.
func (c *Console) SendCommand(text string) error {
	c.mu.Lock()
	if !c.canSendLocked() {
		c.mu.Unlock()
		return rlerr.ErrConsoleRejected
	}
	sock := c.send
	dst := &net.UDPAddr{IP: net.IPv4bcast, Port: c.cfg.OutPort}
	if c.target != nil {
		dst.IP = c.target
	}
	c.mu.Unlock()

	if sock == nil {
		return rlerr.ErrNotConnected
	}
	if !strings.HasSuffix(text, "\n") {
		text += "\n"
	}
	if _, err := sock.WriteToUDP([]byte(text), dst); err != nil {
		return rlerr.Wrap("send", dst.String(), err)
	}
	return nil
}

// Close releases the console sockets.
func (c *Console) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	c.closeLocked()
	return nil
}

func (c *Console) canSendLocked() bool {
	return c.cfg.AcceptsCommands && c.cfg.OutPort != protocol.NoPort
}

func (c *Console) closeLocked() {
	if c.recv != nil {
		c.recv.Close()
		c.recv = nil
	}
	if c.send != nil {
		c.send.Close()
		c.send = nil
	}
}

func (c *Console) read(sock transport.Socket) {
	err := transport.Serve(sock, func(data []byte, _ *net.UDPAddr) {
		text := decode(data)
		if text == "" {
			return
		}
		c.metrics.ConsoleMessage()
		if c.onMessage != nil {
			c.onMessage(text)
		}
	})
	if err != nil {
		c.logger.Debug("receiver stopped: %v", err)
	}
}

// decode turns one datagram into one message.
func decode(data []byte) string {
	s := strings.ToValidUTF8(string(data), "�")
	return strings.TrimRight(s, "\r\n\x00")
}
