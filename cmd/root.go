// Package cmd wires up the CLI flags and runs the game client.
package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"

	flag "github.com/spf13/pflag"

	"rpsclient/config"
	"rpsclient/console"
	"rpsclient/internal/core"
	ncerr "rpsclient/internal/errors"
	"rpsclient/internal/metrics"
	"rpsclient/internal/session"
	"rpsclient/util"
)

// version is overridable at link time:
//
//	go build -ldflags "-X rpsclient/cmd.version=1.1.0"
var version = "1.0.0" //nolint:gochecknoglobals

// Execute parses args and runs the client on stdin/stdout.
func Execute(ctx context.Context, args []string) error {
	return execute(ctx, args, os.Stdin, os.Stdout)
}

// options are CLI switches that are not part of config.Config.
type options struct {
	showVersion bool
	showHelp    bool
	dryRun      bool
	autoLogin   bool
	quiet       bool
}

func execute(ctx context.Context, args []string, in io.Reader, out io.Writer) error {
	fv := config.Default()
	var opts options
	fs := newFlagSet(fv, &opts, out)

	if err := fs.Parse(args); err != nil {
		return err
	}
	if opts.showHelp {
		printUsage(fs, out)
		return nil
	}
	if opts.showVersion {
		fmt.Fprintf(out, "rpsclient %s\n", version)
		return nil
	}

	cfg, err := resolve(fs, fv)
	if err != nil {
		return err
	}

	logger := util.NewLogger(cfg.Verbose)
	if opts.dryRun {
		printConfig(out, cfg)
		return nil
	}
	return run(ctx, cfg, opts, logger, in, out)
}

// resolve layers defaults, the config file, .env, the environment and
// the flags that were set explicitly, in that order.
func resolve(fs *flag.FlagSet, fv *config.Config) (*config.Config, error) {
	cfg := config.Default()

	if fv.ConfigFile != "" {
		if err := config.LoadFile(fv.ConfigFile, cfg); err != nil {
			return nil, err
		}
	}
	envFile := cfg.EnvFile
	if fs.Changed("env-file") {
		envFile = fv.EnvFile
	}
	if err := config.LoadDotEnv(envFile); err != nil {
		return nil, err
	}
	if err := config.LoadFromEnv(cfg); err != nil {
		return nil, err
	}

	fs.Visit(func(f *flag.Flag) {
		if apply, ok := flagFields[f.Name]; ok {
			apply(cfg, fv)
		}
	})

	if err := parsePositional(cfg, fs.Args()); err != nil {
		return nil, err
	}
	if err := cfg.ApplyTunnelSpec(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func run(ctx context.Context, cfg *config.Config, opts options, logger *util.Logger, in io.Reader, out io.Writer) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if logger.Level() >= util.LogVerbose {
		zl := logger.Zerolog()
		zl.Debug().
			Str("server", cfg.Address()).
			Str("transport", cfg.Transport).
			Bool("tunnel", cfg.TunnelEnabled).
			Dur("tick", cfg.Tick).
			Msg("starting")
	}

	m := metrics.New()
	if cfg.MetricsAddr != "" {
		go func() {
			logger.Verbose("metrics on http://%s/metrics", cfg.MetricsAddr)
			if err := m.Serve(ctx, cfg.MetricsAddr); err != nil {
				logger.Error("metrics server: %v", err)
			}
		}()
	}

	drv, err := core.Build(cfg, logger, m)
	if err != nil {
		return err
	}

	con := console.New(drv, in, out, logger)
	con.Nickname = cfg.Nickname
	drv.Observe(con)

	if opts.autoLogin {
		nick := cfg.Nickname
		drv.Post(func(ctx context.Context, mc *session.Machine, s *session.Context) {
			if err := mc.Login(ctx, s, nick); err != nil {
				logger.Warn("login: %v", err)
			}
		})
	}

	done := make(chan error, 1)
	go func() { done <- drv.Run(ctx) }()

	conErr := con.Run(ctx)
	cancel()
	drvErr := <-done

	logger.Verbose("session stats: %s", m.JSON())

	if conErr != nil {
		return conErr
	}
	return drvErr
}

// ── helpers ──────────────────────────────────────────────────────────

func parsePositional(cfg *config.Config, remaining []string) error {
	switch len(remaining) {
	case 0:
	case 2:
		port, err := strconv.Atoi(remaining[1])
		if err != nil {
			return &ncerr.ConfigError{
				Field:   "port",
				Value:   remaining[1],
				Message: "not a number",
				Hint:    "usage: rpsclient [options] [host [port]]",
			}
		}
		cfg.Port = port
		fallthrough
	case 1:
		cfg.Host = remaining[0]
	default:
		return fmt.Errorf("too many arguments (use --help for usage)")
	}
	return nil
}
