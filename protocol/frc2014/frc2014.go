// Package frc2014 implements the cRIO-era control protocol.
//
// Control packets are a fixed 1024 bytes with a CRC32 over the whole
// packet stored big-endian in the last four bytes (computed with those
// bytes zeroed).  Robot replies carry a control echo and the battery
// voltage as two BCD bytes; full-size replies carry the same CRC
// trailer and are verified.
package frc2014

import (
	"encoding/binary"
	"math"
	"time"

	"robolink/internal/checksum"
	rlerr "robolink/internal/errors"
	"robolink/internal/resolver"
	"robolink/protocol"
)

// PacketSize is the length of every control packet.
const PacketSize = 1024

const (
	ctlReboot     = 0x80
	ctlNotEStop   = 0x40
	ctlEnabled    = 0x20
	ctlAutonomous = 0x10
	ctlFMS        = 0x08
	ctlTest       = 0x02

	joystickOffset = 8
	joystickCount  = 4
	joystickAxes   = 6
	joystickSize   = joystickAxes + 2 // axes + u16 buttons

	crcOffset = PacketSize - 4
	minReply  = 8
	fullReply = PacketSize
)

// Protocol is the 2014 codec.
type Protocol struct {
	seq uint16
}

// New returns a fresh codec.
func New() protocol.Protocol { return &Protocol{} }

func (p *Protocol) Name() string { return "frc2014" }

func (p *Protocol) Ports() protocol.Ports {
	return protocol.Ports{
		Robot:      1110,
		Client:     1150,
		ConsoleIn:  6666,
		ConsoleOut: 6668,
		Probe:      80,
	}
}

func (p *Protocol) SendInterval() time.Duration    { return 20 * time.Millisecond }
func (p *Protocol) WatchdogTimeout() time.Duration { return time.Second }
func (p *Protocol) AcceptsConsoleCommands() bool   { return true }

func (p *Protocol) Candidates(team int) []string {
	return []string{resolver.StaticIP(team, 2)}
}

func (p *Protocol) RadioAddress(team int) string { return resolver.StaticIP(team, 1) }

func (p *Protocol) Reset() { p.seq = 0 }

// EncodeControlPacket builds one 1024-byte control packet.
func (p *Protocol) EncodeControlPacket(c *protocol.Control) []byte {
	pkt := make([]byte, PacketSize)
	binary.BigEndian.PutUint16(pkt[0:], p.seq)
	p.seq++

	pkt[2] = controlByte(c)
	pkt[3] = 0xff // digital inputs, all released
	binary.BigEndian.PutUint16(pkt[4:], uint16(c.Team))
	if c.Alliance.IsRed() {
		pkt[6] = 'R'
	} else {
		pkt[6] = 'B'
	}
	pkt[7] = byte('0' + c.Alliance.Position())

	for i := 0; i < joystickCount && i < len(c.Joysticks); i++ {
		putJoystick(pkt[joystickOffset+i*joystickSize:], c.Joysticks[i])
	}

	binary.BigEndian.PutUint32(pkt[crcOffset:], checksum.Sum(pkt))
	return pkt
}

func controlByte(c *protocol.Control) byte {
	if c.Connected && c.Instruction == protocol.InstructionReboot {
		return ctlReboot
	}
	if c.EmergencyStop || c.Mode == protocol.ModeEmergencyStop {
		return 0x00
	}
	b := byte(ctlNotEStop)
	if c.Enabled {
		b |= ctlEnabled
	}
	switch c.Mode {
	case protocol.ModeAutonomous:
		b |= ctlAutonomous
	case protocol.ModeTest:
		b |= ctlTest
	}
	return b
}

func putJoystick(dst []byte, js protocol.Joystick) {
	for i := 0; i < joystickAxes && i < len(js.Axes); i++ {
		v := math.Max(-1, math.Min(1, js.Axes[i]))
		dst[i] = byte(int8(math.Round(v * 127)))
	}
	var buttons uint16
	for i := 0; i < 16 && i < len(js.Buttons); i++ {
		if js.Buttons[i] {
			buttons |= 1 << i
		}
	}
	binary.BigEndian.PutUint16(dst[joystickAxes:], buttons)
}

// DecodeRobotPacket parses a cRIO status reply.
func (p *Protocol) DecodeRobotPacket(data []byte, s *protocol.Status) error {
	if len(data) < minReply {
		return rlerr.Decode(p.Name(), len(data), "short packet")
	}
	if len(data) >= fullReply && !validCRC(data[:fullReply]) {
		return rlerr.Decode(p.Name(), len(data), "checksum mismatch")
	}

	control := data[0]
	s.EmergencyStop = control&ctlNotEStop == 0 && control&ctlReboot == 0
	s.Enabled = control&ctlEnabled != 0
	s.FMSAttached = control&ctlFMS != 0
	switch {
	case s.EmergencyStop:
		s.Mode = protocol.ModeEmergencyStop
	case control&ctlAutonomous != 0:
		s.Mode = protocol.ModeAutonomous
	case control&ctlTest != 0:
		s.Mode = protocol.ModeTest
	default:
		s.Mode = protocol.ModeTeleoperated
	}

	// The reply is produced by the user program's network task, so any
	// well-formed reply means code is running.
	s.CodePresent = true
	s.Voltage = float64(bcd(data[1])) + float64(bcd(data[2]))/100
	return nil
}

func validCRC(pkt []byte) bool {
	want := binary.BigEndian.Uint32(pkt[crcOffset:])
	c := checksum.New()
	c.Update(pkt[:crcOffset])
	c.Update([]byte{0, 0, 0, 0})
	return c.Value() == want
}

// bcd decodes a two-digit packed BCD byte.  Invalid nibbles decode as
// their hex value.
func bcd(b byte) int { return int(b>>4)*10 + int(b&0x0f) }
