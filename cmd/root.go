// Package cmd wires up the CLI flags and dispatches to the core.
package cmd

import (
	"context"
	"fmt"
	"os"

	flag "github.com/spf13/pflag"
	"golang.org/x/term"

	"relink/config"
	"relink/internal/core"
	"relink/util"
)

// version is overridable at link time:
//
//	go build -ldflags "-X relink/cmd.version=2.0.0"
var version = "1.0.0" //nolint:gochecknoglobals

// Execute parses args and runs relink.
//
// Precedence: flags > RELINK_* environment (.env files included) >
// config file > defaults.
func Execute(ctx context.Context, args []string) error {
	cfg := config.Default()

	if err := config.LoadDotEnv(config.DotEnvFiles...); err != nil {
		return fmt.Errorf("dotenv: %w", err)
	}
	fs := flag.NewFlagSet("relink", flag.ContinueOnError)

	// ── connection ───────────────────────────────────────────────
	fs.DurationP("timeout", "w", cfg.Timeout, "Connect timeout")
	fs.Duration("write-timeout", cfg.WriteTimeout, "Send timeout (0 disables)")
	fs.IntP("port", "p", 0, "Local source port")
	fs.Bool("nagle", false, "Keep Nagle's algorithm enabled")

	// ── reconnect ────────────────────────────────────────────────
	fs.BoolP("reconnect", "r", false, "Reconnect automatically when the link drops")
	fs.Duration("initial-delay", cfg.InitialDelay, "First reconnect delay (min 200ms)")
	fs.Duration("max-delay", cfg.MaxDelay, "Reconnect delay cap")

	// ── SSH tunnel ───────────────────────────────────────────────
	fs.StringP("tunnel", "T", "", "SSH tunnel via [user@]host[:port]")
	fs.String("ssh-key", "", "SSH private key file")
	fs.Bool("ssh-password", false, "Prompt for SSH password")
	fs.Bool("ssh-agent", false, "Use SSH agent")
	fs.Bool("strict-hostkey", false, "Verify SSH host keys")
	fs.String("known-hosts", "", "Custom known_hosts path")

	// ── output ───────────────────────────────────────────────────
	fs.StringP("output", "o", cfg.Output, "Received data rendering: raw, hex, auto")
	fs.String("encoding", "", "Charset for outgoing text (IANA name, default UTF-8)")
	fs.String("metrics", "", "Print link metrics on exit: prometheus, json")
	fs.CountP("verbose", "v", "Increase verbosity (repeatable)")
	fs.StringP("config", "c", "", "YAML config file (default ./"+config.DefaultConfigFile+" if present)")

	var showVersion, showHelp, dryRun bool
	fs.BoolVar(&showVersion, "version", false, "Print version and exit")
	fs.BoolVarP(&showHelp, "help", "h", false, "Show this help")
	fs.BoolVar(&dryRun, "dry-run", false, "Validate configuration and exit")

	fs.Usage = func() { printUsage(fs) }

	// ── parse ────────────────────────────────────────────────────
	if err := fs.Parse(args); err != nil {
		return err
	}

	if showHelp {
		printUsage(fs)
		return nil
	}
	if showVersion {
		fmt.Printf("relink %s\n", version)
		return nil
	}

	// ── layer sources: file, env, flags ──────────────────────────
	path, optional := config.DefaultConfigFile, true
	if v, _ := fs.GetString("config"); v != "" {
		path, optional = v, false
	} else if v := os.Getenv(config.EnvPrefix + "CONFIG"); v != "" {
		path, optional = v, false
	}
	if err := config.LoadFile(cfg, path, optional); err != nil {
		return err
	}
	config.LoadFromEnv(cfg)
	applyFlags(fs, cfg)

	// ── positional arguments ─────────────────────────────────────
	if err := parsePositional(cfg, fs.Args()); err != nil {
		return err
	}
	if cfg.Host == "" && len(fs.Args()) == 0 && !dryRun {
		// nothing from args, env or file: plain "relink"
		printUsage(fs)
		return nil
	}
	if err := cfg.ApplyTunnel(); err != nil {
		return err
	}
	if cfg.Output == string(util.OutputAuto) && !term.IsTerminal(int(os.Stdout.Fd())) {
		cfg.Output = string(util.OutputRaw)
	}

	// ── validate ─────────────────────────────────────────────────
	if err := cfg.Validate(); err != nil {
		return err
	}
	if dryRun {
		return nil
	}

	// ── build and run ────────────────────────────────────────────
	logger := util.NewLogger(cfg.Verbose)
	mode, err := core.Build(cfg, logger)
	if err != nil {
		return err
	}
	return mode.Run(ctx)
}

// ── helpers ──────────────────────────────────────────────────────────

// applyFlags copies every flag the user actually set onto cfg, so
// unset flags never clobber file or env values.
func applyFlags(fs *flag.FlagSet, cfg *config.Config) {
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "timeout":
			cfg.Timeout, _ = fs.GetDuration("timeout")
		case "write-timeout":
			cfg.WriteTimeout, _ = fs.GetDuration("write-timeout")
		case "initial-delay":
			cfg.InitialDelay, _ = fs.GetDuration("initial-delay")
		case "max-delay":
			cfg.MaxDelay, _ = fs.GetDuration("max-delay")
		case "port":
			cfg.LocalPort, _ = fs.GetInt("port")
		case "nagle":
			cfg.Nagle, _ = fs.GetBool("nagle")
		case "reconnect":
			cfg.AutoReconnect, _ = fs.GetBool("reconnect")
		case "tunnel":
			cfg.TunnelSpec, _ = fs.GetString("tunnel")
		case "ssh-key":
			cfg.SSHKeyPath, _ = fs.GetString("ssh-key")
		case "ssh-password":
			cfg.SSHPassword, _ = fs.GetBool("ssh-password")
		case "ssh-agent":
			cfg.UseSSHAgent, _ = fs.GetBool("ssh-agent")
		case "strict-hostkey":
			cfg.StrictHostKey, _ = fs.GetBool("strict-hostkey")
		case "known-hosts":
			cfg.KnownHostsPath, _ = fs.GetString("known-hosts")
		case "output":
			cfg.Output, _ = fs.GetString("output")
		case "encoding":
			cfg.Encoding, _ = fs.GetString("encoding")
		case "metrics":
			cfg.Metrics, _ = fs.GetString("metrics")
		case "verbose":
			cfg.Verbose, _ = fs.GetCount("verbose")
		}
	})
}

// parsePositional accepts "host port".  Either may be omitted when the
// config file or environment already supplies it.
func parsePositional(cfg *config.Config, remaining []string) error {
	switch len(remaining) {
	case 0:
		return nil
	case 1:
		cfg.Host = remaining[0]
		return nil
	case 2:
		return cfg.SetTarget(remaining[0], remaining[1])
	default:
		return fmt.Errorf("too many arguments (want host port)")
	}
}

func printUsage(fs *flag.FlagSet) {
	fmt.Fprintf(os.Stderr, `relink - resilient TCP link v%s

Keeps one TCP connection open, relaying stdin to the peer and the
peer's bytes to stdout, and redials with exponential backoff.

Usage:
  relink [options] <host> <port>

Options:
`, version)
	fs.PrintDefaults()
	fmt.Fprintf(os.Stderr, `
Environment:
  RELINK_HOST, RELINK_PORT, RELINK_RECONNECT, RELINK_INITIAL_DELAY, ...
  (also read from .env and .env.local)

Examples:
  relink example.com 9000                       One-shot link
  relink -r --initial-delay 500ms host 9000     Reconnect forever
  relink -T admin@bastion -r db-internal 5432   Through an SSH gateway
  relink -o hex --metrics json host 9000        Hex dump, metrics on exit
`)
}
