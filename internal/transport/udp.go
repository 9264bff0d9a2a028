package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
	"syscall"

	rlerr "robolink/internal/errors"
	"robolink/util"
)

// UDPFactory opens IPv4 UDP sockets bound to the wildcard address.
// With Shared set, sockets are opened with address/port reuse so the
// link receiver and every scanner receiver can listen on the same
// client port at once.
type UDPFactory struct {
	Shared bool
	// Host overrides the bind address ("" = all interfaces).
	Host string
}

// NewUDPFactory returns a factory with shared binds enabled.
func NewUDPFactory() *UDPFactory {
	return &UDPFactory{Shared: true}
}

// ListenUDP binds a UDP socket on port.
func (f *UDPFactory) ListenUDP(port int) (Socket, error) {
	var lc net.ListenConfig
	if f.Shared {
		lc.Control = reuseControl
	}
	addr := util.FormatAddr(f.Host, port)
	pc, err := lc.ListenPacket(context.Background(), "udp4", addr)
	if err != nil {
		return nil, rlerr.Wrap("bind", addr, err)
	}
	conn, ok := pc.(*net.UDPConn)
	if !ok {
		pc.Close()
		return nil, fmt.Errorf("bind %s: unexpected packet conn %T", addr, pc)
	}
	return conn, nil
}

// Serve reads datagrams from sock until the socket is closed, handing
// each one to fn as a private copy.  A closed socket ends the loop with
// a nil error.
func Serve(sock Socket, fn func(data []byte, from *net.UDPAddr)) error {
	bufp := util.GetBuf()
	defer util.PutBuf(bufp)
	buf := *bufp

	for {
		n, from, err := sock.ReadFromUDP(buf)
		if err != nil {
			if util.IsHarmless(err) {
				return nil
			}
			if transient(err) {
				continue
			}
			return rlerr.Wrap("recv", sock.LocalAddr().String(), err)
		}
		data := make([]byte, n)
		copy(data, buf[:n])
		fn(data, from)
	}
}

// transient reports read errors caused by ICMP feedback from an earlier
// send, which some platforms surface on the next read.
func transient(err error) bool {
	if errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ECONNRESET) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
