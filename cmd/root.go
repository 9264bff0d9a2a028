// Package cmd wires up the CLI flags and dispatches to the core modes.
package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	flag "github.com/spf13/pflag"

	"robolink/config"
	"robolink/internal/core"
	"robolink/internal/metrics"
	"robolink/util"
)

// version is overridable at link time:
//
//	go build -ldflags "-X robolink/cmd.version=2.0.0"
var version = "0.1.0" //nolint:gochecknoglobals

// Execute parses args and runs the appropriate robolink mode.
func Execute(ctx context.Context, args []string) error {
	cfg, fs, opts, err := parseArgs(args)
	if err != nil {
		return err
	}
	if opts.showHelp {
		printUsage(fs)
		return nil
	}
	if opts.showVersion {
		fmt.Printf("robolink %s\n", version)
		return nil
	}

	// ── validate ─────────────────────────────────────────────────
	if err := cfg.Validate(); err != nil {
		return err
	}

	// ── build components ─────────────────────────────────────────
	logger := util.NewLogger(cfg.Verbose)
	if cfg.ConfigFile != "" {
		logger.Verbose("config file %s", cfg.ConfigFile)
	}

	m := metrics.New()
	mode, err := core.Build(cfg, logger, m)
	if err != nil {
		return err
	}

	if cfg.DryRun {
		fmt.Printf("%v\n", mode)
		return nil
	}

	start := time.Now()
	err = mode.Run(ctx)
	if cfg.Stats {
		logger.Verbose("ran for %v", time.Since(start).Round(time.Millisecond))
		fmt.Fprintln(os.Stderr, m.JSON())
	}
	return err
}

type options struct {
	showVersion bool
	showHelp    bool
}

// parseArgs layers the config file, the environment and the flags.
func parseArgs(args []string) (*config.Config, *flag.FlagSet, options, error) {
	var opts options

	// Pre-scan for --config so the file can sit under env and flags.
	pre := flag.NewFlagSet("robolink", flag.ContinueOnError)
	pre.ParseErrorsWhitelist.UnknownFlags = true
	pre.Usage = func() {}
	var configPath string
	pre.StringVar(&configPath, "config", "", "")
	pre.BoolP("help", "h", false, "")
	_ = pre.Parse(args)

	cfg, usedPath, err := config.Load(configPath)
	if err != nil {
		return nil, nil, opts, err
	}
	config.LoadFromEnv(cfg)
	cfg.ConfigFile = usedPath

	fs := flag.NewFlagSet("robolink", flag.ContinueOnError)

	// ── robot ────────────────────────────────────────────────────
	fs.IntVarP(&cfg.Team, "team", "t", cfg.Team, "Team number")
	fs.StringVarP(&cfg.Address, "address", "a", cfg.Address, "Robot address (IP, DNS or .local name)")
	fs.StringVarP(&cfg.Protocol, "protocol", "P", cfg.Protocol, "Protocol: frc2015 or frc2014")

	// ── discovery ────────────────────────────────────────────────
	var noScan, noProbe bool
	fs.BoolVar(&noScan, "no-scan", false, "Do not scan for the robot")
	fs.BoolVar(&noProbe, "no-probe", false, "Do not probe robot and radio over TCP")
	fs.IntVar(&cfg.ScanWidth, "scan-width", cfg.ScanWidth, "Addresses probed per scan tick (0 = auto)")
	fs.DurationVar(&cfg.ScanInterval, "scan-interval", cfg.ScanInterval, "Time between scan ticks")
	fs.StringSliceVar(&cfg.ExtraCandidates, "extra", cfg.ExtraCandidates, "Extra candidate addresses (repeatable)")
	fs.DurationVarP(&cfg.Timeout, "timeout", "w", cfg.Timeout, "Name lookup timeout")

	// ── modes ────────────────────────────────────────────────────
	fs.BoolVar(&cfg.Console, "console", false, "NetConsole only")
	fs.BoolVar(&cfg.ResolveOnly, "resolve", false, "Resolve the robot address and exit")
	fs.StringVar(&cfg.SSHCommand, "ssh", "", "Run a command on the robot over SSH")

	// ── SSH ──────────────────────────────────────────────────────
	fs.StringVar(&cfg.SSHUser, "ssh-user", cfg.SSHUser, "SSH user on the robot")
	fs.StringVar(&cfg.SSHKeyPath, "ssh-key", cfg.SSHKeyPath, "SSH private key file")
	fs.BoolVar(&cfg.SSHPassword, "ssh-password", cfg.SSHPassword, "Prompt for SSH password")
	fs.BoolVar(&cfg.UseSSHAgent, "ssh-agent", cfg.UseSSHAgent, "Use SSH agent")
	fs.BoolVar(&cfg.StrictHostKey, "strict-hostkey", cfg.StrictHostKey, "Verify SSH host keys")
	fs.StringVar(&cfg.KnownHostsPath, "known-hosts", cfg.KnownHostsPath, "Custom known_hosts path")

	// ── output ───────────────────────────────────────────────────
	var verbose int
	fs.CountVarP(&verbose, "verbose", "v", "Increase verbosity (repeatable)")
	fs.BoolVar(&cfg.Stats, "stats", false, "Print counters as JSON on exit")
	fs.BoolVar(&cfg.DryRun, "dry-run", false, "Validate, print the selected mode and exit")
	fs.StringVar(&configPath, "config", configPath, "Config file (YAML)")

	fs.BoolVar(&opts.showVersion, "version", false, "Print version and exit")
	fs.BoolVarP(&opts.showHelp, "help", "h", false, "Show this help")

	fs.Usage = func() { printUsage(fs) }

	// ── parse ────────────────────────────────────────────────────
	if err := fs.Parse(args); err != nil {
		return nil, fs, opts, err
	}
	if fs.NArg() > 0 {
		return nil, fs, opts, fmt.Errorf("unexpected argument %q (use --help for usage)", fs.Arg(0))
	}

	if noScan {
		cfg.Scan = false
	}
	if noProbe {
		cfg.Probe = false
	}
	if verbose > 0 {
		cfg.Verbose = verbose + 1
	}
	return cfg, fs, opts, nil
}

// ── helpers ──────────────────────────────────────────────────────────

func printUsage(fs *flag.FlagSet) {
	fmt.Fprintf(os.Stderr, `robolink – robot driver station link v%s

Finds the robot, keeps the control link alive and reports its state.

Usage:
  robolink -t <team> [options]                 Run the link
  robolink -t <team> --resolve                 Print the robot address
  robolink -t <team> --console                 NetConsole only
  robolink -t <team> --ssh <command>           Run a command on the robot

Options:
`, version)
	fs.PrintDefaults()
	fmt.Fprintf(os.Stderr, `
Operator input while linked:
  /enable /disable /estop [off] /mode test|auto|teleop /status /help
  any other line is sent to the robot console

Examples:
  robolink -t 3794                             Link over the protocol default
  robolink -t 3794 -P frc2014 --no-scan        cRIO robot, no scanning
  robolink -a 10.37.94.2 --resolve             Check an address
  robolink -t 3794 --ssh 'cat /etc/version'    Query the controller
  ROBOLINK_TEAM=3794 robolink --stats          Team from the environment
`)
}
