package core

import (
	"net"
	"slices"
	"testing"

	"robolink/config"
	"robolink/util"
)

// TestBuild_Link verifies that Build produces a LinkMode for the
// default configuration.
func TestBuild_Link(t *testing.T) {
	cfg := config.Default()
	cfg.Team = 3794

	mode, err := Build(cfg, util.NewLogger(0), nil)
	if err != nil {
		t.Fatal(err)
	}
	lm, ok := mode.(*LinkMode)
	if !ok {
		t.Fatalf("expected *LinkMode, got %T", mode)
	}
	if lm.Config.Team != 3794 || !lm.Config.Scan {
		t.Errorf("manager config not carried over: %+v", lm.Config)
	}
	if lm.Protocol.Name() != "frc2015" {
		t.Errorf("protocol = %s", lm.Protocol.Name())
	}
}

// TestBuild_Console verifies Build produces a ConsoleMode wired to the
// protocol's console ports.
func TestBuild_Console(t *testing.T) {
	cfg := config.Default()
	cfg.Console = true
	cfg.Protocol = "frc2014"
	cfg.Address = "10.37.94.2"

	mode, err := Build(cfg, util.NewLogger(0), nil)
	if err != nil {
		t.Fatal(err)
	}
	cm, ok := mode.(*ConsoleMode)
	if !ok {
		t.Fatalf("expected *ConsoleMode, got %T", mode)
	}
	if !cm.Console.AcceptsCommands {
		t.Error("frc2014 accepts console commands")
	}
	if !cm.Target.Equal(net.IPv4(10, 37, 94, 2)) {
		t.Errorf("Target = %v", cm.Target)
	}
}

// TestBuild_Resolve verifies Build produces a ResolveMode.
func TestBuild_Resolve(t *testing.T) {
	cfg := config.Default()
	cfg.ResolveOnly = true
	cfg.Team = 254

	mode, err := Build(cfg, util.NewLogger(0), nil)
	if err != nil {
		t.Fatal(err)
	}
	rm, ok := mode.(*ResolveMode)
	if !ok {
		t.Fatalf("expected *ResolveMode, got %T", mode)
	}
	if !slices.Contains(rm.Locator.Candidates, "10.2.54.2") {
		t.Errorf("candidates %v missing the team address", rm.Locator.Candidates)
	}
}

// TestBuild_Remote verifies Build produces a RemoteMode.
func TestBuild_Remote(t *testing.T) {
	cfg := config.Default()
	cfg.SSHCommand = "uptime"
	cfg.Address = "roborio-254-frc.local"

	mode, err := Build(cfg, util.NewLogger(0), nil)
	if err != nil {
		t.Fatal(err)
	}
	rm, ok := mode.(*RemoteMode)
	if !ok {
		t.Fatalf("expected *RemoteMode, got %T", mode)
	}
	if rm.Command != "uptime" || rm.SSH.User != config.DefaultSSHUser {
		t.Errorf("remote = %q as %q", rm.Command, rm.SSH.User)
	}
}

// TestBuild_UnknownProtocol verifies an unregistered protocol is
// rejected before any mode is built.
func TestBuild_UnknownProtocol(t *testing.T) {
	cfg := config.Default()
	cfg.Protocol = "frc1999"
	if _, err := Build(cfg, util.NewLogger(0), nil); err == nil {
		t.Fatal("expected error")
	}
}

// TestProtocolNames_MatchConfig keeps the registry and the names
// accepted by config validation in step.
func TestProtocolNames_MatchConfig(t *testing.T) {
	want := slices.Clone(config.Protocols)
	slices.Sort(want)
	if got := ProtocolNames(); !slices.Equal(got, want) {
		t.Errorf("ProtocolNames() = %v, config.Protocols = %v", got, want)
	}
}

func TestBuildLocator(t *testing.T) {
	p, _ := NewProtocol("frc2015")
	tests := []struct {
		name    string
		address string
		extra   []string
		want    []string
	}{
		{
			name:    "address wins",
			address: "10.0.0.2",
			extra:   []string{"172.22.11.2", "10.0.0.2"},
			want:    []string{"10.0.0.2", "172.22.11.2"},
		},
		{
			name: "protocol defaults",
			want: p.Candidates(3794),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			cfg.Team = 3794
			cfg.Address = tt.address
			cfg.ExtraCandidates = tt.extra
			loc := buildLocator(cfg, p, util.NewLogger(0))
			if !slices.Equal(loc.Candidates, tt.want) {
				t.Errorf("candidates = %v, want %v", loc.Candidates, tt.want)
			}
		})
	}
}
