// Package protocol defines the contract between the connection manager
// and a robot wire format.
//
// A Protocol is a codec plus a capability descriptor: which ports the
// robot talks on, how often control packets go out, how long silence
// is tolerated, and whether the robot accepts console commands.  The
// manager owns all sockets and timers; a Protocol only turns control
// state into bytes and robot bytes into status.
package protocol

import (
	"fmt"
	"time"
)

// NoPort marks a port the protocol does not use.
const NoPort = 0

// Protocol is one robot wire format.  Implementations are used from a
// single goroutine and need no locking.
type Protocol interface {
	// Name identifies the protocol in logs and events.
	Name() string
	// Ports declares the UDP and TCP ports the protocol uses.
	Ports() Ports
	// SendInterval is the period between control packets.
	SendInterval() time.Duration
	// WatchdogTimeout is how long the robot may stay silent before the
	// link is presumed dead.
	WatchdogTimeout() time.Duration
	// AcceptsConsoleCommands reports whether NetConsole text may be
	// sent to the robot.
	AcceptsConsoleCommands() bool
	// Candidates lists the robot's conventional addresses for team,
	// most preferred first.  Entries may be host names or dotted quads.
	Candidates(team int) []string
	// RadioAddress is the robot radio's address for team, or "".
	RadioAddress(team int) string
	// EncodeControlPacket serialises one control packet.
	EncodeControlPacket(c *Control) []byte
	// DecodeRobotPacket parses one robot datagram into s.  A non-nil
	// error means the datagram is not a recognised robot packet.
	DecodeRobotPacket(data []byte, s *Status) error
	// Reset drops any per-connection codec state.
	Reset()
}

// Ports is the port set a protocol declares.
type Ports struct {
	Robot      int // UDP port control packets are sent to
	Client     int // local UDP port robot packets arrive on
	ConsoleIn  int // local UDP port NetConsole text arrives on
	ConsoleOut int // UDP port NetConsole commands are sent to
	Probe      int // TCP port used for reachability probes
}

// ── Control state ────────────────────────────────────────────────────

// ControlMode is the robot's operating state.
type ControlMode int

const (
	ModeNoCommunication ControlMode = iota
	ModeTest
	ModeAutonomous
	ModeTeleoperated
	ModeEmergencyStop
)

func (m ControlMode) String() string {
	switch m {
	case ModeNoCommunication:
		return "no-communication"
	case ModeTest:
		return "test"
	case ModeAutonomous:
		return "autonomous"
	case ModeTeleoperated:
		return "teleoperated"
	case ModeEmergencyStop:
		return "emergency-stop"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// CommStatus summarises how well the robot is reachable.
type CommStatus int

const (
	CommFailing CommStatus = iota // no robot packets
	CommPartial                   // robot host reachable, no protocol traffic
	CommFull                      // robot packets are being decoded
)

func (c CommStatus) String() string {
	switch c {
	case CommFailing:
		return "failing"
	case CommPartial:
		return "partial"
	case CommFull:
		return "full"
	default:
		return fmt.Sprintf("comm(%d)", int(c))
	}
}

// Alliance is the team's alliance colour and driver station position.
type Alliance int

const (
	Red1 Alliance = iota
	Red2
	Red3
	Blue1
	Blue2
	Blue3
)

// IsRed reports whether a is on the red alliance.
func (a Alliance) IsRed() bool { return a <= Red3 }

// Position returns the 1-based driver station position.
func (a Alliance) Position() int { return int(a)%3 + 1 }

func (a Alliance) String() string {
	if a < Red1 || a > Blue3 {
		return fmt.Sprintf("alliance(%d)", int(a))
	}
	colour := "blue"
	if a.IsRed() {
		colour = "red"
	}
	return fmt.Sprintf("%s%d", colour, a.Position())
}

// Instruction is a one-off request carried by control packets.
type Instruction int

const (
	InstructionNone Instruction = iota
	InstructionReboot
	InstructionRestartCode
)

// Joystick is one captured input device.
type Joystick struct {
	Axes    []float64 // -1..1
	Buttons []bool
	POVs    []int // degrees, -1 when centred
}

// Control is everything an encoder may put in a control packet.  The
// manager owns it and refreshes it before every send.
type Control struct {
	Team          int
	Mode          ControlMode
	Enabled       bool
	EmergencyStop bool
	Alliance      Alliance
	Joysticks     []Joystick
	Connected     bool        // robot packets are currently arriving
	Instruction   Instruction // pending reboot / restart request
	SendDateTime  bool        // the robot asked for wall-clock time
	Now           time.Time
}

// ── Robot status ─────────────────────────────────────────────────────

// CANMetrics are the robot's internal bus counters.
type CANMetrics struct {
	Utilization    float64 // percent
	BusOff         int
	TxFull         int
	ReceiveErrors  int
	TransmitErrors int
}

// Status is what a decoder extracts from one robot packet.  Decoders
// fill only the fields their format carries.
type Status struct {
	CodePresent     bool
	Voltage         float64
	Brownout        bool
	EmergencyStop   bool
	Enabled         bool
	Mode            ControlMode
	FMSAttached     bool
	RequestDateTime bool
	CAN             *CANMetrics
	CPUUsage        float64 // percent, 0 if not reported
	RAMFree         int64   // bytes, 0 if not reported
	DiskFree        int64   // bytes, 0 if not reported
}
