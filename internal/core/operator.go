package core

import (
	"fmt"
	"strconv"
	"strings"

	"robolink/internal/manager"
	"robolink/protocol"
)

// Controller is the set of manager commands operator input can reach.
type Controller interface {
	SetEnabled(on bool) error
	SetControlMode(mode protocol.ControlMode) error
	SetEmergencyStop(on bool) error
	SetAlliance(a protocol.Alliance) error
	SetTeam(team int) error
	SetRobotAddress(address string) error
	SetScanning(on bool) error
	Reboot() error
	RestartCode() error
	SendConsoleCommand(text string) error
	Snapshot() (manager.State, error)
}

var modeNames = map[string]protocol.ControlMode{
	"test":   protocol.ModeTest,
	"auto":   protocol.ModeAutonomous,
	"teleop": protocol.ModeTeleoperated,
}

var allianceNames = map[string]protocol.Alliance{
	"red1": protocol.Red1, "red2": protocol.Red2, "red3": protocol.Red3,
	"blue1": protocol.Blue1, "blue2": protocol.Blue2, "blue3": protocol.Blue3,
}

const operatorHelp = `/enable  /disable  /estop [off]  /mode test|auto|teleop
/alliance red1..blue3  /team N  /address HOST  /scan on|off
/reboot  /restart  /status  /help
anything else is sent to the robot console`

// Execute runs one line of operator input.  Lines starting with '/'
// are commands; anything else is sent to the robot console.  The
// returned text, if any, is meant for the operator.
func Execute(c Controller, line string) (string, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return "", nil
	}
	if !strings.HasPrefix(line, "/") {
		return "", c.SendConsoleCommand(line)
	}

	fields := strings.Fields(line[1:])
	if len(fields) == 0 {
		return operatorHelp, nil
	}
	cmd, args := strings.ToLower(fields[0]), fields[1:]
	arg := ""
	if len(args) > 0 {
		arg = strings.ToLower(args[0])
	}

	switch cmd {
	case "enable":
		return "", c.SetEnabled(true)
	case "disable":
		return "", c.SetEnabled(false)
	case "estop":
		return "", c.SetEmergencyStop(arg != "off")
	case "mode":
		mode, ok := modeNames[arg]
		if !ok {
			return "", fmt.Errorf("unknown mode %q (test, auto, teleop)", arg)
		}
		return "", c.SetControlMode(mode)
	case "alliance":
		a, ok := allianceNames[arg]
		if !ok {
			return "", fmt.Errorf("unknown alliance %q", arg)
		}
		return "", c.SetAlliance(a)
	case "team":
		team, err := strconv.Atoi(arg)
		if err != nil || team < 0 {
			return "", fmt.Errorf("bad team number %q", arg)
		}
		return "", c.SetTeam(team)
	case "address":
		if len(args) == 0 {
			return "", c.SetRobotAddress("")
		}
		return "", c.SetRobotAddress(args[0])
	case "scan":
		switch arg {
		case "on":
			return "", c.SetScanning(true)
		case "off":
			return "", c.SetScanning(false)
		}
		return "", fmt.Errorf("usage: /scan on|off")
	case "reboot":
		return "", c.Reboot()
	case "restart":
		return "", c.RestartCode()
	case "status":
		st, err := c.Snapshot()
		if err != nil {
			return "", err
		}
		return formatState(st), nil
	case "help":
		return operatorHelp, nil
	default:
		return "", fmt.Errorf("unknown command /%s (try /help)", cmd)
	}
}

func formatState(st manager.State) string {
	robot := st.RobotIP
	if robot == "" {
		robot = "?"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s team %d robot %s: comm %v, mode %v", st.Protocol, st.Team, robot, st.Comm, st.Mode)
	if st.Enabled {
		b.WriteString(", enabled")
	}
	if st.EmergencyStop {
		b.WriteString(", ESTOP")
	}
	fmt.Fprintf(&b, ", code %t, %.2f V, %v", st.CodePresent, st.Voltage, st.Alliance)
	if st.RoundTrip > 0 {
		fmt.Fprintf(&b, ", rtt %v", st.RoundTrip)
	}
	return b.String()
}
