// Package transport provides the socket primitives the link layer is
// built on: UDP sockets that may share a local port, a read loop that
// survives shutdown cleanly, and a TCP dialer for reachability probes
// and remote shells.
package transport

import (
	"context"
	"net"
	"time"
)

// Socket is the subset of *net.UDPConn the link components use.  It
// exists so tests can observe socket lifetimes.
type Socket interface {
	ReadFromUDP(b []byte) (n int, addr *net.UDPAddr, err error)
	WriteToUDP(b []byte, addr *net.UDPAddr) (int, error)
	SetReadDeadline(t time.Time) error
	LocalAddr() net.Addr
	Close() error
}

// Factory opens UDP sockets.  Port 0 binds an ephemeral port.
type Factory interface {
	ListenUDP(port int) (Socket, error)
}

// Dialer opens outbound stream connections.
type Dialer interface {
	Dial(ctx context.Context, network, address string) (net.Conn, error)
}
