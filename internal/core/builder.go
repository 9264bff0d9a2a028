package core

import (
	"fmt"
	"net"
	"os"
	"slices"
	"sort"

	"golang.org/x/term"

	"robolink/config"
	"robolink/internal/manager"
	"robolink/internal/metrics"
	"robolink/internal/netconsole"
	"robolink/internal/remote"
	"robolink/internal/resolver"
	"robolink/internal/transport"
	"robolink/protocol"
	"robolink/protocol/frc2014"
	"robolink/protocol/frc2015"
	"robolink/util"
)

var protocols = map[string]func() protocol.Protocol{
	"frc2015": frc2015.New,
	"frc2014": frc2014.New,
}

// NewProtocol returns a fresh codec for name.
func NewProtocol(name string) (protocol.Protocol, error) {
	newFn, ok := protocols[name]
	if !ok {
		return nil, fmt.Errorf("unknown protocol %q (known: %v)", name, ProtocolNames())
	}
	return newFn(), nil
}

// ProtocolNames lists the registered protocols, sorted.
func ProtocolNames() []string {
	names := make([]string, 0, len(protocols))
	for n := range protocols {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Build constructs the appropriate Mode from the given configuration.
// m collects counters for the link and console modes and may be nil.
func Build(cfg *config.Config, logger *util.Logger, m *metrics.Collector) (Mode, error) {
	p, err := NewProtocol(cfg.Protocol)
	if err != nil {
		return nil, err
	}
	switch cfg.Mode() {
	case "resolve":
		return buildResolve(cfg, p, logger), nil
	case "console":
		return buildConsole(cfg, p, logger, m), nil
	case "ssh":
		return buildRemote(cfg, p, logger), nil
	default:
		return buildLink(cfg, p, logger, m), nil
	}
}

// ── mode builders ────────────────────────────────────────────────────

func buildLink(cfg *config.Config, p protocol.Protocol, logger *util.Logger, m *metrics.Collector) Mode {
	return &LinkMode{
		Config: manager.Config{
			Team:             cfg.Team,
			Address:          cfg.Address,
			Scan:             cfg.Scan,
			ScanWidth:        cfg.ScanWidth,
			ScanInterval:     cfg.ScanInterval,
			ScanLocalSubnets: cfg.ScanLocalSubnets,
			ExtraCandidates:  cfg.ExtraCandidates,
			Probe:            cfg.Probe,
			Resolver:         resolverConfig(cfg),
		},
		Protocol: p,
		Metrics:  m,
		Logger:   logger,
	}
}

func buildConsole(cfg *config.Config, p protocol.Protocol, logger *util.Logger, m *metrics.Collector) Mode {
	ports := p.Ports()
	var target net.IP
	if resolver.Classify(cfg.Address) == resolver.Static {
		target = net.ParseIP(cfg.Address).To4()
	}
	return &ConsoleMode{
		Console: netconsole.Config{
			InPort:          ports.ConsoleIn,
			OutPort:         ports.ConsoleOut,
			AcceptsCommands: p.AcceptsConsoleCommands(),
		},
		Target:  target,
		Prompt:  term.IsTerminal(int(os.Stdin.Fd())),
		Metrics: m,
		Logger:  logger,
	}
}

func buildResolve(cfg *config.Config, p protocol.Protocol, logger *util.Logger) Mode {
	return &ResolveMode{
		Locator:   buildLocator(cfg, p, logger),
		Probe:     cfg.Probe,
		ProbePort: p.Ports().Probe,
		Timeout:   config.DefaultProbeTimeout,
		Dialer:    &transport.TCPDialer{Timeout: config.DefaultProbeTimeout},
	}
}

func buildRemote(cfg *config.Config, p protocol.Protocol, logger *util.Logger) Mode {
	return &RemoteMode{
		Locator: buildLocator(cfg, p, logger),
		SSH: remote.Config{
			User:          cfg.SSHUser,
			KeyPath:       cfg.SSHKeyPath,
			PromptPass:    cfg.SSHPassword,
			UseAgent:      cfg.UseSSHAgent,
			StrictHostKey: cfg.StrictHostKey,
			KnownHosts:    cfg.KnownHostsPath,
		},
		Command: cfg.SSHCommand,
		Logger:  logger,
	}
}

// ── shared helpers ───────────────────────────────────────────────────

// buildLocator lists the operator's address, or else the protocol's
// conventional addresses, followed by any extra candidates.
func buildLocator(cfg *config.Config, p protocol.Protocol, logger *util.Logger) Locator {
	var candidates []string
	if cfg.Address != "" {
		candidates = append(candidates, cfg.Address)
	} else {
		candidates = append(candidates, p.Candidates(cfg.Team)...)
	}
	for _, c := range cfg.ExtraCandidates {
		if !slices.Contains(candidates, c) {
			candidates = append(candidates, c)
		}
	}
	return Locator{
		Candidates: candidates,
		Timeout:    cfg.Timeout,
		Resolver:   resolverConfig(cfg),
		Logger:     logger,
	}
}

func resolverConfig(cfg *config.Config) resolver.Config {
	return resolver.Config{
		Timeout:  cfg.Timeout,
		CacheTTL: config.DefaultResolveCacheTTL,
	}
}
