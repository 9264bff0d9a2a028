package core

import (
	"context"
	"fmt"
	"io"
	"os"

	"robolink/internal/remote"
	"robolink/internal/transport"
	"robolink/util"
)

// RemoteMode locates the robot and runs one command on it over SSH.
type RemoteMode struct {
	Locator Locator
	SSH     remote.Config // Host is filled in from the located address
	Command string
	Dialer  transport.Dialer
	Logger  *util.Logger

	// Stdout defaults to os.Stdout when nil.
	Stdout io.Writer
}

func (m *RemoteMode) stdout() io.Writer {
	if m.Stdout != nil {
		return m.Stdout
	}
	return os.Stdout
}

// Run resolves the robot, executes the command and copies its output.
// A command that fails still has its output printed.
func (m *RemoteMode) Run(ctx context.Context) error {
	ip, addr, err := m.Locator.Locate(ctx)
	if err != nil {
		return err
	}
	m.Logger.Verbose("robot %s is %s", addr, ip)

	cfg := m.SSH
	cfg.Host = ip.String()
	out, runErr := remote.New(cfg, m.Logger, m.Dialer).Run(ctx, m.Command)
	if len(out) > 0 {
		if _, err := m.stdout().Write(out); err != nil {
			return err
		}
	}
	if runErr != nil {
		return fmt.Errorf("%s: %w", m.Command, runErr)
	}
	return nil
}

func (m *RemoteMode) String() string {
	return fmt.Sprintf("ssh %s@%v: %s", m.SSH.User, m.Locator.Candidates, m.Command)
}
