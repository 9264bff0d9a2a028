package manager

import (
	"math"
	"net"
	"slices"
	"time"

	"robolink/config"
	rlerr "robolink/internal/errors"
	"robolink/internal/events"
	"robolink/internal/probe"
	"robolink/internal/resolver"
	"robolink/internal/session"
	"robolink/protocol"
	"robolink/util"
)

const (
	// loopbackCandidate covers a robot simulator on this machine.
	loopbackCandidate = "127.0.0.1"
	radioPort         = config.DefaultRadioPort
)

// install replaces the active protocol.  The previous protocol's
// sockets and timers are gone before anything for p is bound.
func (m *Manager) install(p protocol.Protocol) {
	if m.proto != nil {
		m.logger.Info("removing protocol %s", m.proto.Name())
		m.teardown()
	}
	m.proto = p
	if p == nil {
		m.setComm(protocol.CommFailing)
		m.setMode(protocol.ModeNoCommunication)
		m.emit(events.ProtocolChanged, "")
		return
	}

	m.logger.Info("installing protocol %s", p.Name())
	m.emit(events.ProtocolChanged, p.Name())
	m.openSession()
	m.sendTicker = time.NewTicker(p.SendInterval())
	m.scanTicker = time.NewTicker(m.cfg.ScanInterval)
	m.reset("protocol installed")
}

// teardown closes everything bound to the active protocol.
func (m *Manager) teardown() {
	if m.sendTicker != nil {
		m.sendTicker.Stop()
		m.sendTicker = nil
	}
	if m.scanTicker != nil {
		m.scanTicker.Stop()
		m.scanTicker = nil
	}
	m.watchdog.Stop()
	m.probeGen++
	if m.sess != nil {
		if err := m.sess.Close(); err != nil {
			m.logger.Debug("closing session: %v", err)
		}
		m.sess = nil
	}
	m.scanning = false
	m.scanList = nil
	m.robotIP = nil
	m.lastPkt = nil
}

// openSession binds the protocol's sockets.  A failure is reported as
// a degraded link and retried on the next send tick.
func (m *Manager) openSession() bool {
	if m.sess != nil {
		return true
	}
	var s *session.Session
	s, err := session.Open(m.proto, session.Options{
		Factory:   m.cfg.Factory,
		ScanWidth: m.cfg.ScanWidth,
	}, m.logger, m.metrics, m.handlers(&s))
	if err != nil {
		m.degrade(err)
		return false
	}
	m.sess = s
	m.scanList = nil
	if m.robotIP != nil {
		s.Link.SetRobotAddress(m.robotIP)
		s.Console.SetTarget(m.robotIP)
	}
	return true
}

// reset returns the connection to its searching state: joysticks are
// cleared, the robot is presumed gone, and resolution, scanning and
// probes start over.
func (m *Manager) reset(reason string) {
	if m.proto == nil {
		return
	}
	m.logger.Debug("reset: %s", reason)
	m.metrics.ResetObserved()

	m.control.Joysticks = nil
	m.control.Connected = false
	m.control.SendDateTime = false
	m.instrLeft = 0
	m.setComm(protocol.CommFailing)
	m.setMode(protocol.ModeNoCommunication)
	m.setCode(false)
	m.setVoltage(0)
	m.status = protocol.Status{}
	m.proto.Reset()
	if m.sess != nil {
		if err := m.sess.SetPorts(m.proto.Ports()); err != nil {
			m.degrade(err)
		}
	}

	if addr := m.primaryAddress(); addr != "" {
		if ip, ok := m.resolver.Resolve(addr); ok {
			m.setRobotIP(ip)
		}
	}
	if m.cfg.Scan {
		m.scannerOn()
	}
	m.watchdog.SetTimeout(m.proto.WatchdogTimeout())
	m.startProbes()
}

// primaryAddress is the operator's address, or the protocol's
// preferred candidate for the team.
func (m *Manager) primaryAddress() string {
	if m.cfg.Address != "" {
		return m.cfg.Address
	}
	if c := m.proto.Candidates(m.control.Team); len(c) > 0 {
		return c[0]
	}
	return ""
}

// candidates builds the scanner's list: the protocol's static
// addresses, configured extras, loopback, then the local /24s.
func (m *Manager) candidates() []string {
	var list []string
	if resolver.Classify(m.cfg.Address) == resolver.Static {
		list = append(list, m.cfg.Address)
	}
	for _, c := range m.proto.Candidates(m.control.Team) {
		if resolver.Classify(c) == resolver.Static {
			list = append(list, c)
		}
	}
	list = append(list, m.cfg.ExtraCandidates...)
	list = append(list, loopbackCandidate)

	if m.cfg.ScanLocalSubnets {
		ips, err := util.LocalIPv4Addrs()
		if err != nil {
			m.logger.Debug("local addresses: %v", err)
		}
		for _, ip := range ips {
			list = append(list, util.Slash24Hosts(ip)...)
		}
	}
	return list
}

// scannerOn starts or continues the scan.  The cursor is only rewound
// when the candidate list changed, so a pass longer than the watchdog
// still reaches the tail of the list across resets.
func (m *Manager) scannerOn() {
	if m.sess == nil || m.comm == protocol.CommFull {
		return
	}
	sc := m.sess.Scanner
	list := m.candidates()
	if !slices.Equal(list, m.scanList) {
		if err := sc.SetCandidates(list); err != nil {
			m.degrade(err)
			return
		}
		m.scanList = list
	}
	if err := sc.SetEnabled(true); err != nil {
		m.degrade(err)
		return
	}
	if !m.scanning {
		m.logger.Verbose("scanning %d candidates, %d per tick", len(list), sc.Width())
	}
	m.scanning = true
}

func (m *Manager) scannerOff() {
	if m.sess != nil {
		m.sess.Scanner.SetEnabled(false) //nolint:errcheck
	}
	m.scanning = false
}

func (m *Manager) startProbes() {
	if !m.cfg.Probe || m.proto == nil {
		return
	}
	var targets []probe.Target
	if host := m.probeHost(); host != "" && m.proto.Ports().Probe != protocol.NoPort {
		targets = append(targets, probe.Target{Name: "robot", Host: host, Port: m.proto.Ports().Probe})
	}
	if radio := m.proto.RadioAddress(m.control.Team); radio != "" {
		targets = append(targets, probe.Target{Name: "radio", Host: radio, Port: radioPort})
	}
	if len(targets) == 0 {
		return
	}

	m.probeGen++
	gen := m.probeGen
	ctx, timeout, dialer := m.ctx, m.cfg.ProbeTimeout, m.cfg.Dialer
	go func() {
		results := probe.Run(ctx, targets, timeout, dialer)
		m.post(func() { m.onProbes(gen, results) })
	}()
}

func (m *Manager) probeHost() string {
	if m.robotIP != nil {
		return m.robotIP.String()
	}
	return m.primaryAddress()
}

// ── reactor callbacks ────────────────────────────────────────────────

// handlers route a session's traffic to the reactor.  *s is filled in
// once the session is open; traffic from a session that has since been
// replaced is dropped.
func (m *Manager) handlers(s **session.Session) session.Handlers {
	return session.Handlers{
		RobotData: func(data []byte, from *net.UDPAddr) {
			m.post(func() {
				if m.sess != nil && m.sess == *s {
					m.readRobotPacket(data, from)
				}
			})
		},
		ConsoleText: func(text string) {
			m.post(func() {
				if m.sess != nil && m.sess == *s {
					m.emit(events.ConsoleMessage, text)
				}
			})
		},
	}
}

// readRobotPacket hands one datagram to the protocol's decoder.
// Datagrams the decoder rejects are counted and otherwise ignored.
func (m *Manager) readRobotPacket(data []byte, from *net.UDPAddr) {
	if m.proto == nil {
		return
	}
	var st protocol.Status
	if err := m.proto.DecodeRobotPacket(data, &st); err != nil {
		m.metrics.DecodeError()
		m.logger.Debug("ignoring datagram from %v: %v", from, err)
		return
	}
	// Until the robot is found, only the scanner may pick a new host.
	stranger := from != nil && !from.IP.Equal(m.robotIP)
	if m.comm != protocol.CommFull && stranger && !m.scanning {
		m.logger.Debug("ignoring robot packet from %v: target is %v", from, m.robotIP)
		return
	}
	m.watchdog.Restart()
	m.metrics.RobotContact()

	if m.comm != protocol.CommFull {
		if stranger {
			m.setRobotIP(from.IP)
		}
		m.scannerOff()
		m.control.Connected = true
		m.setComm(protocol.CommFull)
		if m.control.EmergencyStop {
			m.setMode(protocol.ModeEmergencyStop)
		} else {
			m.setMode(m.intent)
		}
		m.logger.Info("robot found at %s", m.robotIP)
	}
	m.applyStatus(st)
}

// applyStatus publishes whatever changed since the last packet.
func (m *Manager) applyStatus(st protocol.Status) {
	prev := m.status
	m.status = st

	m.setCode(st.CodePresent)
	m.setVoltage(st.Voltage)
	if st.FMSAttached != prev.FMSAttached {
		m.emit(events.FMSChanged, st.FMSAttached)
	}
	if st.CAN != nil {
		m.emit(events.CANMetricsReceived, *st.CAN)
	}
	if st.EmergencyStop && !m.control.EmergencyStop {
		m.setEmergencyStop(true)
	}
	m.control.SendDateTime = st.RequestDateTime
}

func (m *Manager) onResolved(r resolver.Result) {
	if m.proto == nil || r.Address != m.resolver.Current() {
		return
	}
	m.setRobotIP(r.IP)
}

func (m *Manager) onWatchdog() {
	if m.proto == nil || !m.watchdog.Expired() {
		return
	}
	m.metrics.WatchdogExpired()
	if m.comm == protocol.CommFull {
		m.logger.Warn("robot went silent")
	}
	m.reset("watchdog expired")
}

func (m *Manager) onProbes(gen uint64, results []probe.Result) {
	if gen != m.probeGen {
		return
	}
	for _, r := range results {
		switch r.Name {
		case "robot":
			if r.Open && m.comm == protocol.CommFailing {
				m.setComm(protocol.CommPartial)
			}
		case "radio":
			if r.Open != m.radio {
				m.radio = r.Open
				m.emit(events.RadioChanged, r.Open)
			}
		}
	}
}

// ── periodic work ────────────────────────────────────────────────────

func (m *Manager) sendControl() {
	if m.proto == nil || !m.openSession() {
		return
	}
	m.control.Now = time.Now()
	m.control.Instruction = protocol.InstructionNone
	if m.instrLeft > 0 {
		m.control.Instruction = m.instr
		m.instrLeft--
	}
	pkt := m.proto.EncodeControlPacket(&m.control)
	m.lastPkt = pkt

	err := m.sess.Link.Send(pkt)
	if rlerr.Is(err, rlerr.ErrNoAddress) {
		return
	}
	m.noteSend(err)
}

func (m *Manager) scanTick() {
	if !m.scanning || m.sess == nil {
		return
	}
	payload := m.lastPkt
	if payload == nil {
		payload = m.proto.EncodeControlPacket(&m.control)
	}
	_, err := m.sess.Scanner.Tick(payload)
	m.noteSend(err)
}

// noteSend reports a degraded link once per run of failures.
func (m *Manager) noteSend(err error) {
	if err != nil {
		m.degrade(err)
		return
	}
	if m.degraded {
		m.degraded = false
		m.logger.Info("link restored")
		m.emit(events.LinkDegraded, false)
	}
}

func (m *Manager) degrade(err error) {
	if m.degraded {
		return
	}
	m.degraded = true
	m.metrics.RecordError(err.Error())
	m.logger.Warn("link degraded: %v", err)
	m.emit(events.LinkDegraded, true)
}

// ── state setters ────────────────────────────────────────────────────

func (m *Manager) setComm(c protocol.CommStatus) {
	if c == m.comm {
		return
	}
	m.comm = c
	m.emit(events.CommStatusChanged, c)
}

func (m *Manager) setMode(mode protocol.ControlMode) {
	if mode == m.mode {
		return
	}
	m.mode = mode
	m.emit(events.ControlModeChanged, mode)
}

func (m *Manager) setCode(present bool) {
	if present == m.code {
		return
	}
	m.code = present
	m.emit(events.CodeChanged, present)
}

func (m *Manager) setVoltage(v float64) {
	v = math.Round(v*100) / 100
	if v == m.voltage {
		return
	}
	m.voltage = v
	m.emit(events.VoltageChanged, v)
}

func (m *Manager) setRobotIP(ip net.IP) {
	if ip.Equal(m.robotIP) {
		return
	}
	m.robotIP = ip
	if m.sess != nil {
		m.sess.Link.SetRobotAddress(ip)
		m.sess.Console.SetTarget(ip)
	}
	addr := ""
	if ip != nil {
		addr = ip.String()
	}
	m.emit(events.RobotAddressChanged, addr)
}

func (m *Manager) setEmergencyStop(on bool) {
	if on == m.control.EmergencyStop {
		return
	}
	m.control.EmergencyStop = on
	if on {
		m.control.Enabled = false
		m.setMode(protocol.ModeEmergencyStop)
		m.logger.Warn("emergency stop")
	} else if m.comm == protocol.CommFull {
		m.setMode(m.intent)
	} else {
		m.setMode(protocol.ModeNoCommunication)
	}
	m.emit(events.EmergencyStopped, on)
}
