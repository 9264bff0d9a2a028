package transport

import (
	"context"
	"net"
	"time"

	rlerr "robolink/internal/errors"
)

// TCPDialer establishes plain TCP connections with a bounded timeout.
type TCPDialer struct {
	Timeout time.Duration
}

// Dial connects to address.
func (d *TCPDialer) Dial(ctx context.Context, network, address string) (net.Conn, error) {
	dialer := net.Dialer{Timeout: d.Timeout}
	conn, err := dialer.DialContext(ctx, network, address)
	if err != nil {
		return nil, rlerr.Wrap("dial", address, err)
	}
	return conn, nil
}
