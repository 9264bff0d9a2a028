package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"

	"golang.org/x/sync/errgroup"

	rlerr "robolink/internal/errors"
	"robolink/internal/metrics"
	"robolink/internal/netconsole"
	"robolink/util"
)

// ConsoleMode runs NetConsole on its own: robot text is printed and,
// where the protocol allows it, input lines are sent as commands.
type ConsoleMode struct {
	Console netconsole.Config
	Target  net.IP // nil broadcasts commands
	Prompt  bool   // print "> " after each line (interactive stdin)
	Metrics *metrics.Collector
	Logger  *util.Logger

	// Stdin/Stdout default to os.Stdin/os.Stdout when nil.
	Stdin  io.Reader
	Stdout io.Writer
}

func (m *ConsoleMode) stdin() io.Reader {
	if m.Stdin != nil {
		return m.Stdin
	}
	return os.Stdin
}

func (m *ConsoleMode) stdout() io.Writer {
	if m.Stdout != nil {
		return m.Stdout
	}
	return os.Stdout
}

// Run prints robot text until ctx ends.  End of input stops sending
// but not printing.
func (m *ConsoleMode) Run(ctx context.Context) error {
	out := &lockedWriter{w: m.stdout()}
	console := netconsole.New(m.Console, m.Logger, m.Metrics, func(msg string) {
		fmt.Fprintln(out, msg)
	})
	if err := console.Open(); err != nil {
		return fmt.Errorf("netconsole: %w", err)
	}
	defer console.Close()
	if m.Target != nil {
		console.SetTarget(m.Target)
	}

	if !console.AcceptsCommands() {
		m.Logger.Info("robot does not accept console commands; input is ignored")
	}
	m.prompt(out)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		warned := false
		return util.PumpLines(gctx, m.stdin(), func(line string) {
			err := console.SendCommand(line)
			switch {
			case errors.Is(err, rlerr.ErrConsoleRejected):
				if !warned {
					m.Logger.Warn("command dropped: %v", err)
					warned = true
				}
			case err != nil:
				m.Logger.Warn("send %q: %v", line, err)
			}
			m.prompt(out)
		})
	})
	g.Go(func() error {
		<-gctx.Done()
		return nil
	})
	return g.Wait()
}

func (m *ConsoleMode) prompt(w io.Writer) {
	if m.Prompt {
		fmt.Fprint(w, "> ")
	}
}

func (m *ConsoleMode) String() string {
	return fmt.Sprintf("netconsole in=%d out=%d", m.Console.InPort, m.Console.OutPort)
}
