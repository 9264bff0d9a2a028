package config

import (
	"slices"
	"testing"
	"time"
)

func TestLoadFromEnv_Robot(t *testing.T) {
	t.Setenv("ROBOLINK_TEAM", "3794")
	t.Setenv("ROBOLINK_ADDRESS", "roborio-3794-frc.local")
	t.Setenv("ROBOLINK_PROTOCOL", "frc2014")
	cfg := Default()
	LoadFromEnv(cfg)
	if cfg.Team != 3794 {
		t.Errorf("Team = %d, want 3794", cfg.Team)
	}
	if cfg.Address != "roborio-3794-frc.local" {
		t.Errorf("Address = %q", cfg.Address)
	}
	if cfg.Protocol != "frc2014" {
		t.Errorf("Protocol = %q", cfg.Protocol)
	}
}

func TestLoadFromEnv_Booleans(t *testing.T) {
	tests := []struct {
		value string
		want  bool
	}{
		{"1", true}, {"true", true}, {"YES", true},
		{"0", false}, {"false", false}, {"No", false},
	}
	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			t.Setenv("ROBOLINK_SCAN", tt.value)
			cfg := &Config{Scan: !tt.want}
			LoadFromEnv(cfg)
			if cfg.Scan != tt.want {
				t.Errorf("Scan = %v, want %v", cfg.Scan, tt.want)
			}
		})
	}
}

func TestLoadFromEnv_UnrecognisedBoolKeepsValue(t *testing.T) {
	t.Setenv("ROBOLINK_PROBE", "maybe")
	cfg := &Config{Probe: true}
	LoadFromEnv(cfg)
	if !cfg.Probe {
		t.Error("Probe changed by an unrecognised value")
	}
}

func TestLoadFromEnv_Durations(t *testing.T) {
	t.Setenv("ROBOLINK_SCAN_INTERVAL", "20ms")
	t.Setenv("ROBOLINK_TIMEOUT", "5")
	cfg := Default()
	LoadFromEnv(cfg)
	if cfg.ScanInterval != 20*time.Millisecond {
		t.Errorf("ScanInterval = %v, want 20ms", cfg.ScanInterval)
	}
	if cfg.Timeout != 5*time.Second {
		t.Errorf("Timeout = %v, want 5s", cfg.Timeout)
	}
}

func TestLoadFromEnv_ExtraCandidates(t *testing.T) {
	t.Setenv("ROBOLINK_EXTRA_CANDIDATES", "10.37.94.2, 172.22.11.2")
	cfg := Default()
	LoadFromEnv(cfg)
	want := []string{"10.37.94.2", "172.22.11.2"}
	if !slices.Equal(cfg.ExtraCandidates, want) {
		t.Errorf("ExtraCandidates = %v, want %v", cfg.ExtraCandidates, want)
	}
}

func TestLoadFromEnv_InvalidIgnored(t *testing.T) {
	t.Setenv("ROBOLINK_TEAM", "abc")
	t.Setenv("ROBOLINK_SCAN_INTERVAL", "soon")
	cfg := Default()
	LoadFromEnv(cfg)
	if cfg.Team != 0 {
		t.Errorf("Team = %d, want 0", cfg.Team)
	}
	if cfg.ScanInterval != DefaultScanInterval {
		t.Errorf("ScanInterval = %v, want default", cfg.ScanInterval)
	}
}

func TestLoadFromEnv_SSH(t *testing.T) {
	t.Setenv("ROBOLINK_SSH_USER", "lvuser")
	t.Setenv("ROBOLINK_SSH_KEY", "/tmp/id_ed25519")
	t.Setenv("ROBOLINK_STRICT_HOSTKEY", "1")
	cfg := Default()
	LoadFromEnv(cfg)
	if cfg.SSHUser != "lvuser" || cfg.SSHKeyPath != "/tmp/id_ed25519" || !cfg.StrictHostKey {
		t.Errorf("ssh settings not applied: %+v", cfg)
	}
}
