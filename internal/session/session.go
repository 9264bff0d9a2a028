// Package session groups the sockets one installed protocol owns: the
// robot link, the scanner's socket pairs and the NetConsole ports.
//
// A Session is opened when a protocol is installed and closed, in
// full, before the next protocol's session is opened.  Nothing else
// writes to a session's sockets.
package session

import (
	"net"

	rlerr "robolink/internal/errors"
	"robolink/internal/link"
	"robolink/internal/metrics"
	"robolink/internal/netconsole"
	"robolink/internal/scanner"
	"robolink/internal/transport"
	"robolink/protocol"
	"robolink/util"
)

// Handlers receive traffic from a session's sockets.  They run on
// socket goroutines.
type Handlers struct {
	// RobotData gets every datagram from the link or a scanner receiver.
	RobotData func(data []byte, from *net.UDPAddr)
	// ConsoleText gets one NetConsole message.
	ConsoleText func(text string)
}

// Options tune how a session binds its sockets.
type Options struct {
	Factory   transport.Factory
	ScanWidth int
}

// Session is the runtime state bound to one protocol.
type Session struct {
	Protocol protocol.Protocol
	Link     *link.Link
	Scanner  *scanner.Scanner
	Console  *netconsole.Console
}

// Open binds the link and console sockets for p.  Scanner sockets are
// bound later, when scanning is enabled.  On error everything already
// bound is released.
func Open(p protocol.Protocol, opts Options, logger *util.Logger, m *metrics.Collector, h Handlers) (*Session, error) {
	if p == nil {
		return nil, rlerr.ErrNoProtocol
	}
	if opts.Factory == nil {
		opts.Factory = transport.NewUDPFactory()
	}
	ports := p.Ports()
	logger = logger.With(p.Name())

	s := &Session{
		Protocol: p,
		Link: link.New(link.Config{
			Factory:    opts.Factory,
			ClientPort: ports.Client,
			RobotPort:  ports.Robot,
		}, logger, m, h.RobotData),
		Scanner: scanner.New(scanner.Config{
			Factory:    opts.Factory,
			ClientPort: ports.Client,
			RobotPort:  ports.Robot,
			Width:      opts.ScanWidth,
		}, logger, m, h.RobotData),
		Console: netconsole.New(netconsole.Config{
			Factory:         opts.Factory,
			InPort:          ports.ConsoleIn,
			OutPort:         ports.ConsoleOut,
			AcceptsCommands: p.AcceptsConsoleCommands(),
		}, logger, m, h.ConsoleText),
	}

	if err := s.Link.Open(); err != nil {
		s.Close()
		return nil, err
	}
	if err := s.Console.Open(); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

// Close releases every socket the session owns.  It returns once they
// are all closed.
func (s *Session) Close() error {
	return rlerr.Join(
		s.Scanner.Close(),
		s.Link.Close(),
		s.Console.Close(),
	)
}

// SetPorts points the session at p's current ports.  Sends use the new
// robot and console ports from the next operation on, and the link
// receiver is rebound before its old socket closes.  The console
// receive port stays as opened.
func (s *Session) SetPorts(ports protocol.Ports) error {
	s.Link.SetRobotPort(ports.Robot)
	return rlerr.Join(
		s.Link.SetClientPort(ports.Client),
		s.Scanner.SetPorts(ports.Client, ports.Robot),
		s.Console.SetOutPort(ports.ConsoleOut),
	)
}
