package cmd

import (
	"context"
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"
)

// isolate keeps a developer's own config file and ROBOLINK_* variables
// out of the test.
func isolate(t *testing.T) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	t.Setenv("ROBOLINK_CONFIG", "")
	t.Setenv("ROBOLINK_TEAM", "")
	chdirTemp(t)
}

// TestExecute_Version verifies --version prints a version string.
func TestExecute_Version(t *testing.T) {
	isolate(t)
	if err := Execute(context.Background(), []string{"--version"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// TestExecute_Help verifies --help returns without error.
func TestExecute_Help(t *testing.T) {
	isolate(t)
	for _, args := range [][]string{{"--help"}, {"-h"}} {
		t.Run(args[0], func(t *testing.T) {
			if err := Execute(context.Background(), args); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

// TestExecute_DryRun verifies --dry-run validates and exits cleanly
// for every mode.
func TestExecute_DryRun(t *testing.T) {
	isolate(t)
	for _, args := range [][]string{
		{"-t", "3794", "--dry-run"},
		{"-t", "3794", "--resolve", "--dry-run"},
		{"-a", "10.0.0.2", "--console", "-P", "frc2014", "--dry-run"},
		{"-t", "3794", "--ssh", "uptime", "--dry-run"},
	} {
		t.Run(args[len(args)-2], func(t *testing.T) {
			if err := Execute(context.Background(), args); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

// TestExecute_DryRunInvalid verifies --dry-run still catches bad configs.
func TestExecute_DryRunInvalid(t *testing.T) {
	isolate(t)
	tests := map[string][]string{
		"team range":       {"-t", "10000", "--dry-run"},
		"unknown protocol": {"-P", "frc1999", "--dry-run"},
		"two modes":        {"-t", "1", "--console", "--resolve", "--dry-run"},
		"resolve no robot": {"--resolve", "--dry-run"},
	}
	for name, args := range tests {
		t.Run(name, func(t *testing.T) {
			if err := Execute(context.Background(), args); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

// TestExecute_InvalidFlags verifies unknown flags and stray arguments
// produce an error.
func TestExecute_InvalidFlags(t *testing.T) {
	isolate(t)
	for _, args := range [][]string{{"--nonexistent-flag"}, {"robot"}} {
		if err := Execute(context.Background(), args); err == nil {
			t.Fatalf("expected error for %v", args)
		}
	}
}

// TestExecute_RunsUntilCancelled verifies the link mode returns
// cleanly when its context ends.
func TestExecute_RunsUntilCancelled(t *testing.T) {
	isolate(t)
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	err := Execute(ctx, []string{"-a", "127.0.0.1", "--no-scan", "--no-probe", "--stats"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// ── precedence ───────────────────────────────────────────────────────

func TestParseArgs_Precedence(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "robolink.yaml")
	body := "team: 111\nprotocol: frc2014\nscan_width: 3\nextra_candidates: [10.0.0.9]\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("ROBOLINK_TEAM", "222")

	// file < env
	cfg, _, _, err := parseArgs([]string{"--config", path})
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Team != 222 || cfg.Protocol != "frc2014" || cfg.ScanWidth != 3 {
		t.Errorf("file/env layering wrong: team=%d protocol=%s width=%d",
			cfg.Team, cfg.Protocol, cfg.ScanWidth)
	}
	if cfg.ConfigFile != path {
		t.Errorf("ConfigFile = %q, want %q", cfg.ConfigFile, path)
	}

	// env < flags
	cfg, _, _, err = parseArgs([]string{"--config", path, "-t", "333", "--extra", "10.0.0.7"})
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Team != 333 {
		t.Errorf("Team = %d, want 333", cfg.Team)
	}
	if !slices.Equal(cfg.ExtraCandidates, []string{"10.0.0.7"}) {
		t.Errorf("ExtraCandidates = %v", cfg.ExtraCandidates)
	}
}

func TestParseArgs_Switches(t *testing.T) {
	isolate(t)
	cfg, _, _, err := parseArgs([]string{"--no-scan", "--no-probe", "-vv", "--scan-interval", "20ms"})
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Scan || cfg.Probe {
		t.Errorf("scan=%t probe=%t, want both off", cfg.Scan, cfg.Probe)
	}
	if cfg.Verbose != 3 {
		t.Errorf("Verbose = %d, want 3", cfg.Verbose)
	}
	if cfg.ScanInterval != 20*time.Millisecond {
		t.Errorf("ScanInterval = %v", cfg.ScanInterval)
	}
}

// chdirTemp moves the test into a fresh temp directory and restores the
// previous working directory on cleanup.
func chdirTemp(t *testing.T) {
	t.Helper()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(t.TempDir()); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chdir(wd) })
}
