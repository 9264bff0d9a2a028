// Package config defines the runtime configuration for robolink.
//
// Values are layered, highest precedence first: CLI flags, ROBOLINK_*
// environment variables, a YAML config file, then the defaults in
// defaults.go.
package config

import (
	"slices"
	"strings"
	"time"

	rlerr "robolink/internal/errors"
)

// Config holds every tuneable for one robolink run.
type Config struct {
	// ── Robot ────────────────────────────────────────────────────────
	Team     int    `yaml:"team"`
	Address  string `yaml:"address"` // overrides the protocol's default host
	Protocol string `yaml:"protocol"`

	// ── Discovery ────────────────────────────────────────────────────
	Scan             bool          `yaml:"scan"`
	ScanWidth        int           `yaml:"scan_width"` // 0 = derive from candidate count
	ScanInterval     time.Duration `yaml:"scan_interval"`
	ScanLocalSubnets bool          `yaml:"scan_local_subnets"`
	ExtraCandidates  []string      `yaml:"extra_candidates"`
	Probe            bool          `yaml:"probe"`
	Timeout          time.Duration `yaml:"timeout"` // per lookup / wait for --resolve

	// ── Modes (CLI only) ─────────────────────────────────────────────
	Console     bool   `yaml:"-"`
	ResolveOnly bool   `yaml:"-"`
	SSHCommand  string `yaml:"-"`

	// ── SSH ──────────────────────────────────────────────────────────
	SSHUser        string `yaml:"ssh_user"`
	SSHKeyPath     string `yaml:"ssh_key"`
	SSHPassword    bool   `yaml:"-"` // true → prompt interactively
	UseSSHAgent    bool   `yaml:"ssh_agent"`
	StrictHostKey  bool   `yaml:"strict_hostkey"`
	KnownHostsPath string `yaml:"known_hosts"`

	// ── Output ───────────────────────────────────────────────────────
	Verbose    int    `yaml:"verbose"`
	Stats      bool   `yaml:"-"`
	DryRun     bool   `yaml:"-"`
	ConfigFile string `yaml:"-"`
}

// Default returns a Config with every default applied.
func Default() *Config {
	return &Config{
		Protocol:         DefaultProtocol,
		Scan:             true,
		ScanInterval:     DefaultScanInterval,
		ScanLocalSubnets: true,
		Probe:            true,
		Timeout:          DefaultResolveTimeout,
		SSHUser:          DefaultSSHUser,
		Verbose:          1,
	}
}

// Mode names the operation the configuration selects.
func (c *Config) Mode() string {
	switch {
	case c.ResolveOnly:
		return "resolve"
	case c.Console:
		return "console"
	case c.SSHCommand != "":
		return "ssh"
	default:
		return "link"
	}
}

// Validate checks that the configuration is internally consistent.
// Errors are *errors.ConfigError with a hint where one helps.
func (c *Config) Validate() error {
	if c.Team < 0 || c.Team > MaxTeam {
		return &rlerr.ConfigError{
			Field:   "team",
			Value:   c.Team,
			Message: "team number out of range 0-9999",
		}
	}
	if !slices.Contains(Protocols, c.Protocol) {
		return &rlerr.ConfigError{
			Field:   "protocol",
			Value:   c.Protocol,
			Message: "unknown protocol",
			Hint:    "one of: " + strings.Join(Protocols, ", "),
		}
	}
	if c.ScanWidth < 0 {
		return &rlerr.ConfigError{
			Field:   "scan-width",
			Value:   c.ScanWidth,
			Message: "must not be negative",
			Hint:    "use 0 to size the scan from the candidate count",
		}
	}
	if c.ScanInterval < 0 || c.Timeout < 0 {
		return &rlerr.ConfigError{
			Field:   "timeout",
			Message: "durations must not be negative",
		}
	}

	modes := 0
	for _, on := range []bool{c.Console, c.ResolveOnly, c.SSHCommand != ""} {
		if on {
			modes++
		}
	}
	if modes > 1 {
		return &rlerr.ConfigError{
			Field:   "console",
			Message: "--console, --resolve and --ssh are mutually exclusive",
		}
	}

	needsRobot := c.ResolveOnly || c.SSHCommand != ""
	if needsRobot && c.Team == 0 && c.Address == "" {
		return &rlerr.ConfigError{
			Field:   "team",
			Message: "a team number or robot address is required",
			Hint:    "pass -t <team> or -a <address>",
		}
	}
	if c.SSHCommand != "" && c.SSHPassword && c.UseSSHAgent {
		return &rlerr.ConfigError{
			Field:   "ssh-password",
			Message: "--ssh-password and --ssh-agent are mutually exclusive",
		}
	}
	return nil
}
