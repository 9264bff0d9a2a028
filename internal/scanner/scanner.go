// Package scanner finds a robot whose address is unknown by sending the
// current control packet to many candidate hosts at once.
//
// The scanner owns W send/receive socket pairs.  Each Tick sends the
// payload to the next W candidates, so a full pass over N candidates
// takes ceil(N/W) ticks.  Replies can arrive on any receive socket at
// any time and are reported with their source address.
package scanner

import (
	"net"
	"sync"

	rlerr "robolink/internal/errors"
	"robolink/internal/metrics"
	"robolink/internal/transport"
	"robolink/util"
)

// Config describes the sockets a scanner opens.
type Config struct {
	Factory    transport.Factory
	ClientPort int // local port robot replies arrive on
	RobotPort  int // port probes are sent to
	// Width is the number of candidates probed per tick.  Zero derives
	// max(1, N/8) from the candidate count.
	Width int
}

type pair struct {
	send transport.Socket
	recv transport.Socket
}

// Scanner probes candidate addresses.  All methods are safe for
// concurrent use; onData runs on a socket goroutine.
type Scanner struct {
	logger  *util.Logger
	metrics *metrics.Collector
	onData  func(data []byte, from *net.UDPAddr)

	mu         sync.Mutex
	cfg        Config
	candidates []net.IP
	cursor     int
	enabled    bool
	pairs      []pair
	gen        uint64 // bumped when sockets are torn down
}

// New creates a disabled scanner.
func New(cfg Config, logger *util.Logger, m *metrics.Collector, onData func([]byte, *net.UDPAddr)) *Scanner {
	if cfg.Factory == nil {
		cfg.Factory = transport.NewUDPFactory()
	}
	return &Scanner{
		cfg:     cfg,
		logger:  logger.With("scanner"),
		metrics: m,
		onData:  onData,
	}
}

// SetCandidates replaces the candidate list and rewinds the cursor.
// Entries that are not IPv4 literals are skipped.  If the scanner is
// enabled and the effective width changes, its sockets are reopened.
func (s *Scanner) SetCandidates(list []string) error {
	ips := make([]net.IP, 0, len(list))
	seen := make(map[string]bool, len(list))
	for _, a := range list {
		ip := net.ParseIP(a).To4()
		if ip == nil || seen[ip.String()] {
			continue
		}
		seen[ip.String()] = true
		ips = append(ips, ip)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.candidates = ips
	s.cursor = 0
	if s.enabled && s.widthLocked() != len(s.pairs) {
		s.closeLocked()
		return s.openLocked()
	}
	return nil
}

// SetPorts changes the reply and probe ports, reopening sockets if the
// scanner is enabled.
func (s *Scanner) SetPorts(clientPort, robotPort int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	changed := s.cfg.ClientPort != clientPort
	s.cfg.ClientPort = clientPort
	s.cfg.RobotPort = robotPort
	if s.enabled && changed {
		s.closeLocked()
		return s.openLocked()
	}
	return nil
}

// SetEnabled opens or closes the socket pairs.  Disabling closes every
// socket before returning.
func (s *Scanner) SetEnabled(on bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if on == s.enabled {
		return nil
	}
	if !on {
		s.closeLocked()
		s.enabled = false
		s.logger.Verbose("disabled")
		return nil
	}
	if err := s.openLocked(); err != nil {
		return err
	}
	s.enabled = true
	s.cursor = 0
	s.logger.Verbose("enabled: %d candidates, width %d", len(s.candidates), len(s.pairs))
	return nil
}

// Enabled reports whether the scanner currently owns sockets.
func (s *Scanner) Enabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.enabled
}

// Width returns the effective number of candidates probed per tick.
func (s *Scanner) Width() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.widthLocked()
}

// Tick sends payload to the next window of candidates and advances the
// cursor.  It returns the number of probes handed to sockets; send
// errors are joined and returned after the whole window is attempted.
func (s *Scanner) Tick(payload []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := len(s.candidates)
	if !s.enabled || n == 0 || len(s.pairs) == 0 {
		return 0, nil
	}

	w := len(s.pairs)
	end := min(s.cursor+w, n)
	var errs []error
	sent := 0
	for i, ip := range s.candidates[s.cursor:end] {
		dst := &net.UDPAddr{IP: ip, Port: s.cfg.RobotPort}
		if _, err := s.pairs[i].send.WriteToUDP(payload, dst); err != nil {
			errs = append(errs, rlerr.Wrap("send", dst.String(), err))
			continue
		}
		sent++
	}

	s.cursor += w
	if s.cursor >= n {
		s.cursor = 0
	}
	s.metrics.ScanProbes(sent)
	return sent, rlerr.Join(errs...)
}

// Close disables the scanner.
func (s *Scanner) Close() error {
	return s.SetEnabled(false)
}

func (s *Scanner) widthLocked() int {
	if s.cfg.Width > 0 {
		return s.cfg.Width
	}
	return max(1, len(s.candidates)/8)
}

func (s *Scanner) openLocked() error {
	w := s.widthLocked()
	pairs := make([]pair, 0, w)
	for i := 0; i < w; i++ {
		send, err := s.cfg.Factory.ListenUDP(0)
		if err != nil {
			closePairs(pairs)
			return err
		}
		recv, err := s.cfg.Factory.ListenUDP(s.cfg.ClientPort)
		if err != nil {
			send.Close()
			closePairs(pairs)
			return err
		}
		pairs = append(pairs, pair{send: send, recv: recv})
	}

	s.gen++
	gen := s.gen
	for _, p := range pairs {
		go s.serve(gen, p.recv)
	}
	s.pairs = pairs
	return nil
}

func (s *Scanner) closeLocked() {
	s.gen++
	closePairs(s.pairs)
	s.pairs = nil
}

func (s *Scanner) serve(gen uint64, sock transport.Socket) {
	err := transport.Serve(sock, func(data []byte, from *net.UDPAddr) {
		s.mu.Lock()
		stale := gen != s.gen
		s.mu.Unlock()
		if stale || s.onData == nil {
			return
		}
		s.onData(data, from)
	})
	if err != nil {
		s.logger.Debug("receiver stopped: %v", err)
	}
}

func closePairs(pairs []pair) {
	for _, p := range pairs {
		p.send.Close()
		p.recv.Close()
	}
}
