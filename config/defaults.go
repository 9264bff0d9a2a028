package config

import "time"

// ── Default values ───────────────────────────────────────────────────
//
// All tuneable defaults live here so they are easy to audit and reuse
// across CLI flags, config file parsing, and environment variable
// loading.

const (
	// DefaultProtocol is the wire format used when none is configured.
	DefaultProtocol = "frc2015"

	// DefaultScanInterval is the period between scanner ticks.
	DefaultScanInterval = 50 * time.Millisecond

	// DefaultResolveTimeout bounds one DNS or mDNS lookup.
	DefaultResolveTimeout = 2 * time.Second

	// DefaultResolveCacheTTL is how long a resolved name is reused.
	DefaultResolveCacheTTL = 10 * time.Second

	// DefaultProbeTimeout bounds one TCP reachability probe.
	DefaultProbeTimeout = time.Second

	// DefaultRadioPort is the robot radio's web port, used to probe it.
	DefaultRadioPort = 80

	// DefaultInstructionPackets is how many consecutive control packets
	// repeat a reboot or restart-code request.
	DefaultInstructionPackets = 10

	// DefaultEventBuffer is the per-subscriber event queue depth.
	DefaultEventBuffer = 64

	// DefaultSSHUser is the robot controller's maintenance account.
	DefaultSSHUser = "admin"

	// DefaultSSHPort is the standard SSH port.
	DefaultSSHPort = 22

	// DefaultSSHTimeout bounds the SSH dial and handshake.
	DefaultSSHTimeout = 10 * time.Second

	// DefaultSSHAttempts is how many times an SSH connect is tried.
	DefaultSSHAttempts = 3

	// MaxTeam is the largest team number the address convention covers.
	MaxTeam = 9999
)

// Protocols lists the wire formats robolink can speak.
var Protocols = []string{"frc2015", "frc2014"}
