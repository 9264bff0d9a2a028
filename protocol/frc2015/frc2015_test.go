package frc2015

import (
	"encoding/binary"
	"math"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	rlerr "robolink/internal/errors"
	"robolink/protocol"
)

func TestDescriptor(t *testing.T) {
	p := New()
	assert.Equal(t, "frc2015", p.Name())
	assert.Equal(t, protocol.Ports{Robot: 1110, Client: 1150, ConsoleIn: 6666, Probe: 80}, p.Ports())
	assert.False(t, p.AcceptsConsoleCommands())
	assert.Equal(t, 20*time.Millisecond, p.SendInterval())
	assert.Equal(t, []string{"roboRIO-118-FRC.local", "10.1.18.2", "172.22.11.2"}, p.Candidates(118))
	assert.Equal(t, "10.1.18.1", p.RadioAddress(118))
}

func TestEncode_Header(t *testing.T) {
	tests := []struct {
		name string
		ctl  protocol.Control
		want []byte
	}{
		{
			name: "disconnected teleop",
			ctl:  protocol.Control{Mode: protocol.ModeTeleoperated, Alliance: protocol.Red1},
			want: []byte{0x00, 0x00, 0x01, 0x00, 0x00, 0x00},
		},
		{
			name: "enabled autonomous blue2",
			ctl: protocol.Control{
				Mode: protocol.ModeAutonomous, Enabled: true, Connected: true, Alliance: protocol.Blue2,
			},
			want: []byte{0x00, 0x00, 0x01, 0x06, 0x10, 0x04},
		},
		{
			name: "estop test reboot",
			ctl: protocol.Control{
				Mode: protocol.ModeTest, EmergencyStop: true, Connected: true,
				Instruction: protocol.InstructionReboot, Alliance: protocol.Red3,
			},
			want: []byte{0x00, 0x00, 0x01, 0x81, 0x14, 0x02},
		},
		{
			name: "restart code",
			ctl: protocol.Control{
				Connected: true, Instruction: protocol.InstructionRestartCode,
			},
			want: []byte{0x00, 0x00, 0x01, 0x00, 0x16, 0x00},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := New().EncodeControlPacket(&tt.ctl)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("packet mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestEncode_SequenceAdvancesAndResets(t *testing.T) {
	p := New()
	ctl := &protocol.Control{}
	for want := uint16(0); want < 3; want++ {
		pkt := p.EncodeControlPacket(ctl)
		assert.Equal(t, want, binary.BigEndian.Uint16(pkt))
	}
	p.Reset()
	assert.Equal(t, uint16(0), binary.BigEndian.Uint16(p.EncodeControlPacket(ctl)))
}

func TestEncode_Joystick(t *testing.T) {
	ctl := &protocol.Control{
		Joysticks: []protocol.Joystick{{
			Axes:    []float64{1, -1, 0, 2},
			Buttons: []bool{true, false, true, false, false, false, false, false, false, true},
			POVs:    []int{-1, 90},
		}},
	}
	got := New().EncodeControlPacket(ctl)[6:]
	want := []byte{
		14, tagJoystick,
		4, 127, 0x81, 0, 127, // axes, clamped
		10, 0x02, 0x05, // buttons 1,3 low byte; button 10 high byte
		2, 0xff, 0xff, 0x00, 90,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("joystick section mismatch (-want +got):\n%s", diff)
	}
}

func TestEncode_DateTime(t *testing.T) {
	now := time.Date(2016, time.March, 5, 14, 30, 15, 250_000_000, time.UTC)
	ctl := &protocol.Control{
		SendDateTime: true,
		Now:          now,
		Joysticks:    []protocol.Joystick{{Axes: []float64{0}}},
	}
	got := New().EncodeControlPacket(ctl)[6:]
	want := []byte{
		0x0b, tagTime, 0x00, 0x03, 0xd0, 0x90, // 250000 µs
		15, 30, 14, 5, 2, 116,
		4, tagTimezone, 'U', 'T', 'C',
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("date/time section mismatch (-want +got):\n%s", diff)
	}
}

func TestDecode_Header(t *testing.T) {
	p := New()
	var s protocol.Status
	err := p.DecodeRobotPacket([]byte{0x00, 0x01, 0x01, 0x06, 0x20, 12, 128, 0x01}, &s)
	require.NoError(t, err)

	want := protocol.Status{
		CodePresent:     true,
		Voltage:         12.5,
		Enabled:         true,
		Mode:            protocol.ModeAutonomous,
		RequestDateTime: true,
	}
	if diff := cmp.Diff(want, s); diff != "" {
		t.Errorf("status mismatch (-want +got):\n%s", diff)
	}
}

func TestDecode_EmergencyStop(t *testing.T) {
	var s protocol.Status
	require.NoError(t, New().DecodeRobotPacket([]byte{0, 0, 1, 0x80, 0, 11, 0, 0}, &s))
	assert.True(t, s.EmergencyStop)
	assert.Equal(t, protocol.ModeEmergencyStop, s.Mode)
	assert.False(t, s.CodePresent)
}

func TestDecode_ShortPacket(t *testing.T) {
	var s protocol.Status
	err := New().DecodeRobotPacket([]byte{0, 0, 1}, &s)
	require.Error(t, err)
	assert.True(t, rlerr.IsDecode(err))
	assert.Equal(t, protocol.Status{}, s, "status must be untouched")
}

func TestDecode_Extended(t *testing.T) {
	pkt := []byte{0, 0, 1, 0, 0x20, 12, 0, 0}

	can := []byte{15, tagCAN}
	can = binary.BigEndian.AppendUint32(can, math.Float32bits(42.5))
	can = binary.BigEndian.AppendUint32(can, 1)
	can = binary.BigEndian.AppendUint32(can, 2)
	can = append(can, 3, 4)
	pkt = append(pkt, can...)

	ram := []byte{9, tagRAM}
	ram = binary.BigEndian.AppendUint32(ram, 0)
	ram = binary.BigEndian.AppendUint32(ram, 1<<20)
	pkt = append(pkt, ram...)

	disk := []byte{5, tagDisk}
	disk = binary.BigEndian.AppendUint32(disk, 1<<30)
	pkt = append(pkt, disk...)

	cpu := []byte{6, tagCPU, 1}
	cpu = binary.BigEndian.AppendUint32(cpu, math.Float32bits(37.5))
	pkt = append(pkt, cpu...)

	// Trailing truncated section is ignored.
	pkt = append(pkt, 20, tagCAN, 1)

	var s protocol.Status
	require.NoError(t, New().DecodeRobotPacket(pkt, &s))

	want := &protocol.CANMetrics{Utilization: 42.5, BusOff: 1, TxFull: 2, ReceiveErrors: 3, TransmitErrors: 4}
	if diff := cmp.Diff(want, s.CAN); diff != "" {
		t.Errorf("CAN mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, int64(1<<20), s.RAMFree)
	assert.Equal(t, int64(1<<30), s.DiskFree)
	assert.InDelta(t, 37.5, s.CPUUsage, 0.001)
}
