package core

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"robolink/internal/probe"
	"robolink/internal/transport"
)

// ResolveMode locates the robot, prints its address and, optionally,
// whether its TCP probe port answers.
type ResolveMode struct {
	Locator   Locator
	Probe     bool
	ProbePort int
	Timeout   time.Duration
	Dialer    transport.Dialer

	// Stdout defaults to os.Stdout when nil.
	Stdout io.Writer
}

func (m *ResolveMode) stdout() io.Writer {
	if m.Stdout != nil {
		return m.Stdout
	}
	return os.Stdout
}

// Run resolves the candidates in order and prints the first hit.
func (m *ResolveMode) Run(ctx context.Context) error {
	ip, addr, err := m.Locator.Locate(ctx)
	if err != nil {
		return err
	}
	line := fmt.Sprintf("%s\t%s", addr, ip)
	if m.Probe && m.ProbePort > 0 {
		state := "closed"
		if probe.Reachable(ctx, ip.String(), m.ProbePort, m.Timeout, m.Dialer) {
			state = "open"
		}
		line += fmt.Sprintf("\ttcp/%d %s", m.ProbePort, state)
	}
	_, err = fmt.Fprintln(m.stdout(), line)
	return err
}

func (m *ResolveMode) String() string {
	return fmt.Sprintf("resolve %v", m.Locator.Candidates)
}
