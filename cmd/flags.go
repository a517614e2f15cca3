package cmd

import (
	"fmt"
	"io"

	flag "github.com/spf13/pflag"

	"rpsclient/config"
)

// newFlagSet binds every flag to fv.  Only flags the user actually set
// are copied onto the resolved config, so unset flags never mask the
// file or the environment.
func newFlagSet(fv *config.Config, opts *options, out io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet("rpsclient", flag.ContinueOnError)
	fs.SetOutput(out)

	// ── server ───────────────────────────────────────────────────
	fs.StringVarP(&fv.Nickname, "nick", "n", "", "Nickname used by 'connect'")
	fs.BoolVar(&opts.autoLogin, "login", false, "Log in with --nick at startup")
	fs.StringVarP(&fv.Transport, "transport", "t", fv.Transport, "Transport: tcp or ws")
	fs.StringVar(&fv.WSPath, "ws-path", fv.WSPath, "WebSocket upgrade path")
	fs.BoolVar(&fv.WSSecure, "ws-secure", false, "Use wss:// for the ws transport")
	fs.DurationVar(&fv.ConnectTimeout, "connect-timeout", fv.ConnectTimeout, "Dial timeout")
	fs.DurationVar(&fv.ReadPoll, "read-poll", fv.ReadPoll, "Reader poll interval")

	// ── liveness ─────────────────────────────────────────────────
	fs.DurationVar(&fv.HeartbeatTimeout, "heartbeat-timeout", fv.HeartbeatTimeout, "Drop the connection after this much silence")
	fs.DurationVar(&fv.KeepaliveInterval, "keepalive", fv.KeepaliveInterval, "REQ_PING interval")
	fs.DurationVar(&fv.ReconnectCooldown, "reconnect-cooldown", fv.ReconnectCooldown, "Wait before the first reconnect attempt")
	fs.DurationVar(&fv.ReconnectMaxDelay, "reconnect-max-delay", fv.ReconnectMaxDelay, "Longest wait between reconnect attempts")
	fs.IntVar(&fv.ReconnectAttempts, "reconnect-attempts", fv.ReconnectAttempts, "Reconnect budget (0 = unlimited)")

	// ── session ──────────────────────────────────────────────────
	fs.DurationVar(&fv.RoundOverlay, "round-overlay", fv.RoundOverlay, "How long a round result stays up")
	fs.DurationVar(&fv.ToastTTL, "toast-ttl", fv.ToastTTL, "Default toast lifetime")
	fs.DurationVar(&fv.Tick, "tick", fv.Tick, "Frame period")

	// ── SSH tunnel ───────────────────────────────────────────────
	fs.StringVarP(&fv.TunnelSpec, "tunnel", "T", "", "Reach the server through SSH [user@]host[:port]")
	fs.IntVar(&fv.TunnelRetries, "tunnel-retries", fv.TunnelRetries, "SSH handshake attempts per dial")
	fs.StringVar(&fv.SSHKeyPath, "ssh-key", "", "SSH private key file")
	fs.BoolVar(&fv.SSHPassword, "ssh-password", false, "Prompt for SSH password")
	fs.BoolVar(&fv.UseSSHAgent, "ssh-agent", false, "Use SSH agent")
	fs.BoolVar(&fv.StrictHostKey, "strict-hostkey", false, "Verify SSH host keys")
	fs.StringVar(&fv.KnownHostsPath, "known-hosts", "", "Custom known_hosts path")

	// ── output ───────────────────────────────────────────────────
	fs.CountVarP(&fv.Verbose, "verbose", "v", "Increase verbosity (repeatable)")
	fs.BoolVarP(&opts.quiet, "quiet", "q", false, "Only print errors")
	fs.StringVar(&fv.MetricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address")
	fs.StringVarP(&fv.ConfigFile, "config", "c", "", "TOML config file")
	fs.StringVar(&fv.EnvFile, "env-file", fv.EnvFile, "dotenv file loaded before RPS_* variables")

	fs.BoolVar(&opts.showVersion, "version", false, "Print version and exit")
	fs.BoolVar(&opts.dryRun, "dry-run", false, "Print the resolved configuration and exit")
	fs.BoolVarP(&opts.showHelp, "help", "h", false, "Show this help")

	fs.Usage = func() { printUsage(fs, out) }
	return fs
}

// flagFields copies a set flag from the flag values onto the config.
var flagFields = map[string]func(dst, src *config.Config){ //nolint:gochecknoglobals
	"nick":                func(d, s *config.Config) { d.Nickname = s.Nickname },
	"transport":           func(d, s *config.Config) { d.Transport = s.Transport },
	"ws-path":             func(d, s *config.Config) { d.WSPath = s.WSPath },
	"ws-secure":           func(d, s *config.Config) { d.WSSecure = s.WSSecure },
	"connect-timeout":     func(d, s *config.Config) { d.ConnectTimeout = s.ConnectTimeout },
	"read-poll":           func(d, s *config.Config) { d.ReadPoll = s.ReadPoll },
	"heartbeat-timeout":   func(d, s *config.Config) { d.HeartbeatTimeout = s.HeartbeatTimeout },
	"keepalive":           func(d, s *config.Config) { d.KeepaliveInterval = s.KeepaliveInterval },
	"reconnect-cooldown":  func(d, s *config.Config) { d.ReconnectCooldown = s.ReconnectCooldown },
	"reconnect-max-delay": func(d, s *config.Config) { d.ReconnectMaxDelay = s.ReconnectMaxDelay },
	"reconnect-attempts":  func(d, s *config.Config) { d.ReconnectAttempts = s.ReconnectAttempts },
	"round-overlay":       func(d, s *config.Config) { d.RoundOverlay = s.RoundOverlay },
	"toast-ttl":           func(d, s *config.Config) { d.ToastTTL = s.ToastTTL },
	"tick":                func(d, s *config.Config) { d.Tick = s.Tick },
	"tunnel":              func(d, s *config.Config) { d.TunnelSpec = s.TunnelSpec },
	"tunnel-retries":      func(d, s *config.Config) { d.TunnelRetries = s.TunnelRetries },
	"ssh-key":             func(d, s *config.Config) { d.SSHKeyPath = s.SSHKeyPath },
	"ssh-password":        func(d, s *config.Config) { d.SSHPassword = s.SSHPassword },
	"ssh-agent":           func(d, s *config.Config) { d.UseSSHAgent = s.UseSSHAgent },
	"strict-hostkey":      func(d, s *config.Config) { d.StrictHostKey = s.StrictHostKey },
	"known-hosts":         func(d, s *config.Config) { d.KnownHostsPath = s.KnownHostsPath },
	"verbose":             func(d, s *config.Config) { d.Verbose = s.Verbose + 1 },
	"quiet":               func(d, s *config.Config) { d.Verbose = 0 },
	"metrics-addr":        func(d, s *config.Config) { d.MetricsAddr = s.MetricsAddr },
	"config":              func(d, s *config.Config) { d.ConfigFile = s.ConfigFile },
	"env-file":            func(d, s *config.Config) { d.EnvFile = s.EnvFile },
}

func printUsage(fs *flag.FlagSet, out io.Writer) {
	fmt.Fprintf(out, `rpsclient – Rock-Paper-Scissors game client v%s

Usage:
  rpsclient [options] [host [port]]

Options:
`, version)
	fs.PrintDefaults()
	fmt.Fprintf(out, `
Environment:
  RPS_HOST, RPS_PORT, RPS_NICKNAME, RPS_TRANSPORT, ... override the
  config file; flags override both.  A .env file is read first.

Examples:
  rpsclient                                   Play on 127.0.0.1:10000
  rpsclient -n alice --login game.lan 10000   Log in straight away
  rpsclient -t ws --ws-path /rps game.lan 80  Through a WebSocket gateway
  rpsclient -T ops@bastion 10.0.0.5 10000     Through an SSH gateway
`)
}

func printConfig(out io.Writer, cfg *config.Config) {
	fmt.Fprintf(out, "server:     %s (%s)\n", cfg.Address(), cfg.Transport)
	if cfg.Nickname != "" {
		fmt.Fprintf(out, "nickname:   %s\n", cfg.Nickname)
	}
	if cfg.TunnelEnabled {
		fmt.Fprintf(out, "tunnel:     %s@%s:%d\n", cfg.TunnelUser, cfg.TunnelHost, cfg.TunnelPort)
	}
	fmt.Fprintf(out, "watchdog:   %s (keepalive %s)\n", cfg.HeartbeatTimeout, cfg.KeepaliveInterval)
	fmt.Fprintf(out, "reconnect:  %d attempts, %s..%s\n",
		cfg.ReconnectAttempts, cfg.ReconnectCooldown, cfg.ReconnectMaxDelay)
	fmt.Fprintf(out, "overlay:    %s  tick %s\n", cfg.RoundOverlay, cfg.Tick)
	if cfg.MetricsAddr != "" {
		fmt.Fprintf(out, "metrics:    %s\n", cfg.MetricsAddr)
	}
}
