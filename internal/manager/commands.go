package manager

import (
	"time"

	rlerr "robolink/internal/errors"
	"robolink/internal/events"
	"robolink/protocol"
)

// State is a point-in-time view of the connection.
type State struct {
	Protocol      string
	Team          int
	Address       string // operator-supplied address
	RobotIP       string // address packets are sent to, "" if unknown
	Comm          protocol.CommStatus
	Mode          protocol.ControlMode
	Intent        protocol.ControlMode
	Enabled       bool
	EmergencyStop bool
	Alliance      protocol.Alliance
	CodePresent   bool
	Voltage       float64
	FMSAttached   bool
	Radio         bool
	Scanning      bool
	Degraded      bool
	RoundTrip     time.Duration
	Status        protocol.Status // last decoded robot packet
}

// SetProtocol installs p, replacing the active protocol.  A nil p
// leaves no protocol installed.
func (m *Manager) SetProtocol(p protocol.Protocol) error {
	return m.do(func() { m.install(p) })
}

// SetTeam changes the team number and restarts discovery.
func (m *Manager) SetTeam(team int) error {
	return m.do(func() {
		if team == m.control.Team {
			return
		}
		m.control.Team = team
		m.setRobotIP(nil)
		m.reset("team changed")
	})
}

// SetRobotAddress overrides the robot address ("" restores the
// protocol default) and restarts discovery.
func (m *Manager) SetRobotAddress(address string) error {
	return m.do(func() {
		if address == m.cfg.Address {
			return
		}
		m.cfg.Address = address
		m.setRobotIP(nil)
		m.reset("address changed")
	})
}

// SetScanning enables or disables the network scanner.  Scanning
// only runs while the robot has not been found.
func (m *Manager) SetScanning(on bool) error {
	return m.do(func() {
		m.cfg.Scan = on
		if on {
			m.scannerOn()
		} else {
			m.scannerOff()
		}
	})
}

// SendConsoleCommand sends text over NetConsole.  It fails with
// ErrNoProtocol when nothing is installed and ErrConsoleRejected when
// the protocol does not accept commands.
func (m *Manager) SendConsoleCommand(text string) error {
	var err error
	if derr := m.do(func() {
		if m.sess == nil {
			err = rlerr.ErrNoProtocol
			return
		}
		err = m.sess.Console.SendCommand(text)
	}); derr != nil {
		return derr
	}
	return err
}

// SetControlMode sets the mode the robot should run in.  It is ignored
// while emergency stopped; use SetEmergencyStop to enter that mode.
func (m *Manager) SetControlMode(mode protocol.ControlMode) error {
	return m.do(func() {
		if m.control.EmergencyStop {
			return
		}
		switch mode {
		case protocol.ModeEmergencyStop:
			m.setEmergencyStop(true)
			return
		case protocol.ModeNoCommunication:
			return
		}
		m.intent = mode
		m.control.Mode = mode
		if m.comm == protocol.CommFull {
			m.setMode(mode)
		}
	})
}

// SetEnabled enables or disables the robot.  Enabling is refused
// while emergency stopped.
func (m *Manager) SetEnabled(on bool) error {
	return m.do(func() {
		if on && m.control.EmergencyStop {
			return
		}
		if on == m.control.Enabled {
			return
		}
		m.control.Enabled = on
		m.emit(events.EnabledChanged, on)
	})
}

// SetAlliance sets the alliance station reported to the robot.
func (m *Manager) SetAlliance(a protocol.Alliance) error {
	return m.do(func() { m.control.Alliance = a })
}

// SetEmergencyStop latches (or, with false, clears) the emergency stop.
func (m *Manager) SetEmergencyStop(on bool) error {
	return m.do(func() { m.setEmergencyStop(on) })
}

// SetJoysticks replaces the joystick snapshot sent to the robot.
func (m *Manager) SetJoysticks(js []protocol.Joystick) error {
	return m.do(func() {
		m.control.Joysticks = append([]protocol.Joystick(nil), js...)
	})
}

// Reboot asks the robot controller to reboot.
func (m *Manager) Reboot() error {
	return m.instruct(protocol.InstructionReboot)
}

// RestartCode asks the robot to restart its user program.
func (m *Manager) RestartCode() error {
	return m.instruct(protocol.InstructionRestartCode)
}

func (m *Manager) instruct(in protocol.Instruction) error {
	var err error
	if derr := m.do(func() {
		if m.proto == nil {
			err = rlerr.ErrNoProtocol
			return
		}
		if m.comm != protocol.CommFull {
			err = rlerr.ErrNotConnected
			return
		}
		m.instr = in
		m.instrLeft = m.cfg.InstructionPackets
	}); derr != nil {
		return derr
	}
	return err
}

// Snapshot returns the current connection state.
func (m *Manager) Snapshot() (State, error) {
	var st State
	err := m.do(func() {
		st = State{
			Team:          m.control.Team,
			Address:       m.cfg.Address,
			Comm:          m.comm,
			Mode:          m.mode,
			Intent:        m.intent,
			Enabled:       m.control.Enabled,
			EmergencyStop: m.control.EmergencyStop,
			Alliance:      m.control.Alliance,
			CodePresent:   m.code,
			Voltage:       m.voltage,
			FMSAttached:   m.status.FMSAttached,
			Radio:         m.radio,
			Scanning:      m.scanning,
			Degraded:      m.degraded,
			Status:        m.status,
		}
		if m.proto != nil {
			st.Protocol = m.proto.Name()
		}
		if m.robotIP != nil {
			st.RobotIP = m.robotIP.String()
		}
		if m.sess != nil {
			st.RoundTrip = m.sess.Link.RoundTrip()
		}
	})
	return st, err
}
