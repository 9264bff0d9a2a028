package config

import (
	"errors"
	"strings"
	"testing"

	rlerr "robolink/internal/errors"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.Protocol != DefaultProtocol {
		t.Errorf("Protocol = %q, want %q", cfg.Protocol, DefaultProtocol)
	}
	if !cfg.Scan || !cfg.Probe || !cfg.ScanLocalSubnets {
		t.Errorf("discovery should be on by default: %+v", cfg)
	}
	if cfg.ScanInterval != DefaultScanInterval {
		t.Errorf("ScanInterval = %v, want %v", cfg.ScanInterval, DefaultScanInterval)
	}
	if cfg.SSHUser != DefaultSSHUser {
		t.Errorf("SSHUser = %q, want %q", cfg.SSHUser, DefaultSSHUser)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config invalid: %v", err)
	}
}

func TestMode(t *testing.T) {
	tests := []struct {
		name string
		mut  func(*Config)
		want string
	}{
		{"link", func(*Config) {}, "link"},
		{"console", func(c *Config) { c.Console = true }, "console"},
		{"resolve", func(c *Config) { c.ResolveOnly = true }, "resolve"},
		{"ssh", func(c *Config) { c.SSHCommand = "uptime" }, "ssh"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mut(cfg)
			if got := cfg.Mode(); got != tt.want {
				t.Errorf("Mode() = %q, want %q", got, tt.want)
			}
		})
	}
}

// ── Validate ─────────────────────────────────────────────────────────

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mut     func(*Config)
		wantErr string // substring; "" means valid
	}{
		{"team 0 allowed", func(c *Config) {}, ""},
		{"team max", func(c *Config) { c.Team = 9999 }, ""},
		{"team too large", func(c *Config) { c.Team = 10000 }, "out of range"},
		{"team negative", func(c *Config) { c.Team = -1 }, "out of range"},
		{"frc2014", func(c *Config) { c.Protocol = "frc2014" }, ""},
		{"unknown protocol", func(c *Config) { c.Protocol = "frc2099" }, "one of: frc2015, frc2014"},
		{"negative width", func(c *Config) { c.ScanWidth = -2 }, "must not be negative"},
		{"negative interval", func(c *Config) { c.ScanInterval = -1 }, "durations"},
		{"console and resolve", func(c *Config) {
			c.Team = 1
			c.Console = true
			c.ResolveOnly = true
		}, "mutually exclusive"},
		{"resolve needs robot", func(c *Config) { c.ResolveOnly = true }, "-t <team>"},
		{"resolve with address", func(c *Config) {
			c.ResolveOnly = true
			c.Address = "10.0.0.2"
		}, ""},
		{"ssh needs robot", func(c *Config) { c.SSHCommand = "ls" }, "required"},
		{"ssh password and agent", func(c *Config) {
			c.Team = 3794
			c.SSHCommand = "ls"
			c.SSHPassword = true
			c.UseSSHAgent = true
		}, "--ssh-agent"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mut(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("expected error containing %q", tt.wantErr)
			}
			var ce *rlerr.ConfigError
			if !errors.As(err, &ce) {
				t.Errorf("error %T is not a *ConfigError", err)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not contain %q", err, tt.wantErr)
			}
		})
	}
}
