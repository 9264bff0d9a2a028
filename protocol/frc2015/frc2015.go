// Package frc2015 implements the 2015 roboRIO control protocol.
//
// Control packets: u16 sequence, 0x01 version tag, control byte,
// instruction byte, alliance byte, then either a date/time section (when
// the robot asked for one) or one tagged section per joystick.
//
// Robot packets: u16 sequence, version, control echo, status, voltage
// (integer byte + 1/256 byte), request byte, then optional tagged
// sections for CPU, RAM, disk and CAN metrics.
package frc2015

import (
	"encoding/binary"
	"fmt"
	"math"
	"time"

	rlerr "robolink/internal/errors"
	"robolink/internal/resolver"
	"robolink/protocol"
)

const (
	estopBit   = 0x80
	brownout   = 0x10
	enabledBit = 0x04
	fmsBit     = 0x08

	controlTest       = 0x01
	controlAutonomous = 0x02
	controlTeleop     = 0x00
	controlModeMask   = 0x03

	tagGeneral  = 0x01
	tagJoystick = 0x0c
	tagTime     = 0x0f
	tagTimezone = 0x10

	instructionInvalid = 0x00
	instructionNormal  = 0x10
	instructionReboot  = 0x14
	instructionRestart = 0x16

	statusCodePresent = 0x20
	requestTime       = 0x01

	tagDisk = 0x04
	tagCPU  = 0x05
	tagRAM  = 0x06
	tagCAN  = 0x0e

	headerLen = 8
)

// Protocol is the 2015 codec.
type Protocol struct {
	seq uint16
}

// New returns a fresh codec.
func New() protocol.Protocol { return &Protocol{} }

func (p *Protocol) Name() string { return "frc2015" }

func (p *Protocol) Ports() protocol.Ports {
	return protocol.Ports{
		Robot:      1110,
		Client:     1150,
		ConsoleIn:  6666,
		ConsoleOut: protocol.NoPort,
		Probe:      80,
	}
}

func (p *Protocol) SendInterval() time.Duration    { return 20 * time.Millisecond }
func (p *Protocol) WatchdogTimeout() time.Duration { return time.Second }
func (p *Protocol) AcceptsConsoleCommands() bool   { return false }

// Candidates returns the mDNS name, the static team address and the
// USB address, in that order.
func (p *Protocol) Candidates(team int) []string {
	return []string{
		fmt.Sprintf("roboRIO-%d-FRC.local", team),
		resolver.StaticIP(team, 2),
		"172.22.11.2",
	}
}

func (p *Protocol) RadioAddress(team int) string { return resolver.StaticIP(team, 1) }

func (p *Protocol) Reset() { p.seq = 0 }

// EncodeControlPacket builds one control packet and advances the
// sequence number.
func (p *Protocol) EncodeControlPacket(c *protocol.Control) []byte {
	out := make([]byte, 0, 64)
	out = binary.BigEndian.AppendUint16(out, p.seq)
	p.seq++

	out = append(out, tagGeneral, controlByte(c), instructionByte(c), byte(c.Alliance))
	if c.SendDateTime {
		return appendDateTime(out, c.Now)
	}
	for _, js := range c.Joysticks {
		out = appendJoystick(out, js)
	}
	return out
}

func controlByte(c *protocol.Control) byte {
	var b byte
	if c.EmergencyStop || c.Mode == protocol.ModeEmergencyStop {
		b |= estopBit
	}
	if c.Enabled {
		b |= enabledBit
	}
	switch c.Mode {
	case protocol.ModeTest:
		b |= controlTest
	case protocol.ModeAutonomous:
		b |= controlAutonomous
	default:
		b |= controlTeleop
	}
	return b
}

func instructionByte(c *protocol.Control) byte {
	if !c.Connected {
		return instructionInvalid
	}
	switch c.Instruction {
	case protocol.InstructionReboot:
		return instructionReboot
	case protocol.InstructionRestartCode:
		return instructionRestart
	default:
		return instructionNormal
	}
}

// appendJoystick writes [size][0x0c][n axes][axes...][n buttons]
// [button bits...][n povs][povs as i16...].  size excludes itself.
func appendJoystick(out []byte, js protocol.Joystick) []byte {
	sec := []byte{tagJoystick, byte(len(js.Axes))}
	for _, a := range js.Axes {
		sec = append(sec, byte(int8(math.Round(clamp(a)*127))))
	}

	sec = append(sec, byte(len(js.Buttons)))
	bits := make([]byte, (len(js.Buttons)+7)/8)
	for i, pressed := range js.Buttons {
		if pressed {
			// Button 1 is the least significant bit of the last byte.
			bits[len(bits)-1-i/8] |= 1 << (i % 8)
		}
	}
	sec = append(sec, bits...)

	sec = append(sec, byte(len(js.POVs)))
	for _, pov := range js.POVs {
		sec = binary.BigEndian.AppendUint16(sec, uint16(int16(pov)))
	}

	out = append(out, byte(len(sec)))
	return append(out, sec...)
}

// appendDateTime writes the wall-clock section followed by the time
// zone section.
func appendDateTime(out []byte, now time.Time) []byte {
	if now.IsZero() {
		now = time.Now()
	}
	out = append(out, 0x0b, tagTime)
	out = binary.BigEndian.AppendUint32(out, uint32(now.Nanosecond()/1000))
	out = append(out,
		byte(now.Second()),
		byte(now.Minute()),
		byte(now.Hour()),
		byte(now.Day()),
		byte(now.Month()-1),
		byte(now.Year()-1900),
	)

	zone, _ := now.Zone()
	out = append(out, byte(len(zone)+1), tagTimezone)
	return append(out, zone...)
}

func clamp(v float64) float64 {
	return math.Max(-1, math.Min(1, v))
}

// DecodeRobotPacket parses a robot status packet.
func (p *Protocol) DecodeRobotPacket(data []byte, s *protocol.Status) error {
	if len(data) < headerLen {
		return rlerr.Decode(p.Name(), len(data), "short packet")
	}

	control := data[3]
	s.EmergencyStop = control&estopBit != 0
	s.Brownout = control&brownout != 0
	s.Enabled = control&enabledBit != 0
	s.FMSAttached = control&fmsBit != 0
	switch {
	case s.EmergencyStop:
		s.Mode = protocol.ModeEmergencyStop
	case control&controlModeMask == controlTest:
		s.Mode = protocol.ModeTest
	case control&controlModeMask == controlAutonomous:
		s.Mode = protocol.ModeAutonomous
	default:
		s.Mode = protocol.ModeTeleoperated
	}

	s.CodePresent = data[4]&statusCodePresent != 0
	s.Voltage = float64(data[5]) + float64(data[6])/256
	s.RequestDateTime = data[7]&requestTime != 0

	return decodeExtended(data[headerLen:], s)
}

// decodeExtended walks the [size][tag][payload] sections after the
// header.  A truncated section ends the walk without failing the packet.
func decodeExtended(b []byte, s *protocol.Status) error {
	for len(b) >= 2 {
		size := int(b[0])
		if size == 0 || size+1 > len(b) {
			return nil
		}
		tag, payload := b[1], b[2:size+1]
		b = b[size+1:]

		switch tag {
		case tagCAN:
			if len(payload) >= 14 {
				s.CAN = &protocol.CANMetrics{
					Utilization:    float64(math.Float32frombits(binary.BigEndian.Uint32(payload[0:4]))),
					BusOff:         int(binary.BigEndian.Uint32(payload[4:8])),
					TxFull:         int(binary.BigEndian.Uint32(payload[8:12])),
					ReceiveErrors:  int(payload[12]),
					TransmitErrors: int(payload[13]),
				}
			}
		case tagRAM:
			if len(payload) >= 8 {
				s.RAMFree = int64(binary.BigEndian.Uint32(payload[4:8]))
			}
		case tagDisk:
			if len(payload) >= 4 {
				s.DiskFree = int64(binary.BigEndian.Uint32(payload[0:4]))
			}
		case tagCPU:
			// [cpu count] then per-cpu float32 usage figures; report the first.
			if len(payload) >= 5 && payload[0] > 0 {
				s.CPUUsage = float64(math.Float32frombits(binary.BigEndian.Uint32(payload[1:5])))
			}
		}
	}
	return nil
}
