package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"golang.org/x/sync/errgroup"

	"robolink/internal/events"
	"robolink/internal/manager"
	"robolink/internal/metrics"
	"robolink/protocol"
	"robolink/util"
)

// LinkMode runs the full driver station link: the manager drives the
// protocol, events are printed as they happen, and operator lines from
// stdin are executed (see Execute).
type LinkMode struct {
	Config   manager.Config
	Protocol protocol.Protocol
	Metrics  *metrics.Collector
	Logger   *util.Logger

	// Stdin/Stdout default to os.Stdin/os.Stdout when nil.
	Stdin  io.Reader
	Stdout io.Writer
}

func (m *LinkMode) stdin() io.Reader {
	if m.Stdin != nil {
		return m.Stdin
	}
	return os.Stdin
}

func (m *LinkMode) stdout() io.Writer {
	if m.Stdout != nil {
		return m.Stdout
	}
	return os.Stdout
}

// Run installs the protocol and keeps the link up until ctx ends.
func (m *LinkMode) Run(ctx context.Context) error {
	mgr := manager.New(m.Config, m.Logger, m.Metrics)
	defer mgr.Close()

	out := &lockedWriter{w: m.stdout()}
	sub := mgr.Subscribe(0)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		err := mgr.Run(gctx)
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		if err := mgr.SetProtocol(m.Protocol); err != nil {
			return fmt.Errorf("install %s: %w", m.Protocol.Name(), err)
		}
		return printEvents(gctx, sub, out, m.Logger)
	})
	g.Go(func() error {
		return util.PumpLines(gctx, m.stdin(), func(line string) {
			reply, err := Execute(mgr, line)
			if err != nil {
				m.Logger.Warn("%s: %v", line, err)
				return
			}
			if reply != "" {
				fmt.Fprintln(out, reply)
			}
		})
	})
	return g.Wait()
}

func (m *LinkMode) String() string {
	target := m.Config.Address
	if target == "" {
		target = fmt.Sprintf("team %d", m.Config.Team)
	}
	return fmt.Sprintf("link %s to %s (scan=%t)", m.Protocol.Name(), target, m.Config.Scan)
}

// printEvents writes one line per event until the feed closes.
func printEvents(ctx context.Context, sub *events.Subscription, w io.Writer, logger *util.Logger) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case e, ok := <-sub.C:
			if !ok {
				return nil
			}
			if e.Kind == events.CANMetricsReceived {
				logger.Debug("can %+v", e.Payload)
				continue
			}
			fmt.Fprintf(w, "%s  %s\n", e.Time.Format("15:04:05.000"), Describe(e))
		}
	}
}

// Describe renders an event for the terminal.
func Describe(e events.Event) string {
	switch e.Kind {
	case events.CommStatusChanged:
		return fmt.Sprintf("comm %v", e.Payload)
	case events.ControlModeChanged:
		return fmt.Sprintf("mode %v", e.Payload)
	case events.CodeChanged:
		return onOff(e.Payload, "robot code running", "no robot code")
	case events.EnabledChanged:
		return onOff(e.Payload, "enabled", "disabled")
	case events.VoltageChanged:
		return fmt.Sprintf("battery %.2f V", e.Payload)
	case events.RobotAddressChanged:
		if e.Payload == "" {
			return "robot address unknown"
		}
		return fmt.Sprintf("robot at %v", e.Payload)
	case events.EmergencyStopped:
		return onOff(e.Payload, "EMERGENCY STOP", "emergency stop cleared")
	case events.ConsoleMessage:
		return fmt.Sprintf("console: %v", e.Payload)
	case events.RadioChanged:
		return onOff(e.Payload, "radio reachable", "radio unreachable")
	case events.FMSChanged:
		return onOff(e.Payload, "FMS attached", "FMS detached")
	case events.ProtocolChanged:
		if e.Payload == "" {
			return "protocol removed"
		}
		return fmt.Sprintf("protocol %v", e.Payload)
	case events.LinkDegraded:
		return onOff(e.Payload, "link degraded", "link restored")
	default:
		return fmt.Sprintf("%s %v", e.Kind, e.Payload)
	}
}

func onOff(payload any, on, off string) string {
	if b, _ := payload.(bool); b {
		return on
	}
	return off
}
