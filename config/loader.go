package config

// loader.go - configuration loading from environment variables.
//
// Precedence order (highest wins):
//   1. CLI flags  (handled by cmd/root.go)
//   2. Environment variables  (this file)
//   3. Config file  (file.go)
//   4. Defaults   (defaults.go)

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// ── Environment variable mapping ─────────────────────────────────────
//
// Every supported env var uses the ROBOLINK_ prefix.  Boolean values
// accept "1", "true", "yes" and "0", "false", "no" (case-insensitive).
// Durations accept Go syntax ("250ms") or whole seconds.

// LoadFromEnv overlays environment variables onto cfg.  Only set env
// vars override the existing value.  This should be called BEFORE CLI
// flag parsing so that flags take precedence.
func LoadFromEnv(cfg *Config) {
	if v := envInt("ROBOLINK_TEAM"); v > 0 {
		cfg.Team = v
	}
	if v := os.Getenv("ROBOLINK_ADDRESS"); v != "" {
		cfg.Address = v
	}
	if v := os.Getenv("ROBOLINK_PROTOCOL"); v != "" {
		cfg.Protocol = v
	}

	// Discovery
	envBool("ROBOLINK_SCAN", &cfg.Scan)
	envBool("ROBOLINK_SCAN_LOCAL_SUBNETS", &cfg.ScanLocalSubnets)
	envBool("ROBOLINK_PROBE", &cfg.Probe)
	if v := envInt("ROBOLINK_SCAN_WIDTH"); v > 0 {
		cfg.ScanWidth = v
	}
	if d := envDuration("ROBOLINK_SCAN_INTERVAL"); d > 0 {
		cfg.ScanInterval = d
	}
	if d := envDuration("ROBOLINK_TIMEOUT"); d > 0 {
		cfg.Timeout = d
	}
	if v := os.Getenv("ROBOLINK_EXTRA_CANDIDATES"); v != "" {
		cfg.ExtraCandidates = splitList(v)
	}

	// SSH
	if v := os.Getenv("ROBOLINK_SSH_USER"); v != "" {
		cfg.SSHUser = v
	}
	if v := os.Getenv("ROBOLINK_SSH_KEY"); v != "" {
		cfg.SSHKeyPath = v
	}
	envBool("ROBOLINK_SSH_PASSWORD", &cfg.SSHPassword)
	envBool("ROBOLINK_SSH_AGENT", &cfg.UseSSHAgent)
	envBool("ROBOLINK_STRICT_HOSTKEY", &cfg.StrictHostKey)
	if v := os.Getenv("ROBOLINK_KNOWN_HOSTS"); v != "" {
		cfg.KnownHostsPath = v
	}

	// Output
	if v := envInt("ROBOLINK_VERBOSE"); v > 0 {
		cfg.Verbose = v
	}
}

// ── helpers ──────────────────────────────────────────────────────────

func envInt(key string) int {
	v := os.Getenv(key)
	if v == "" {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0
	}
	return n
}

// envBool sets *dst when key holds a recognised boolean.
func envBool(key string, dst *bool) {
	switch strings.ToLower(os.Getenv(key)) {
	case "1", "true", "yes":
		*dst = true
	case "0", "false", "no":
		*dst = false
	}
}

func envDuration(key string) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return 0
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if n, err := strconv.Atoi(v); err == nil {
		return time.Duration(n) * time.Second
	}
	return 0
}

func splitList(v string) []string {
	var out []string
	for _, f := range strings.FieldsFunc(v, func(r rune) bool { return r == ',' || r == ' ' }) {
		out = append(out, f)
	}
	return out
}
