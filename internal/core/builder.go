package core

import (
	"fmt"

	"rpsclient/config"
	"rpsclient/internal/heartbeat"
	"rpsclient/internal/metrics"
	"rpsclient/internal/reconnect"
	"rpsclient/internal/retry"
	"rpsclient/internal/session"
	"rpsclient/internal/transport"
	"rpsclient/tunnel"
	"rpsclient/util"
)

// Build assembles a Driver from cfg.  cfg must already be validated.
// A nil collector disables metrics.
func Build(cfg *config.Config, logger *util.Logger, m *metrics.Collector) (*Driver, error) {
	dialer, err := buildDialer(cfg, logger)
	if err != nil {
		return nil, err
	}

	client := transport.NewClient(cfg.Host, cfg.Port, dialer, transport.Options{
		ConnectTimeout: cfg.ConnectTimeout,
		ReadPoll:       cfg.ReadPoll,
		Logger:         logger,
		Metrics:        m,
	})

	machine := session.NewMachine(client, session.Config{
		RoundOverlay: cfg.RoundOverlay,
		ToastTTL:     cfg.ToastTTL,
	}, logger)

	monitor := heartbeat.New(client, cfg.HeartbeatTimeout, cfg.KeepaliveInterval, logger, m)
	supervisor := reconnect.New(client, buildBackoff(cfg), logger, m)

	return NewDriver(Parts{
		Client:     client,
		Dialer:     dialer,
		Machine:    machine,
		Monitor:    monitor,
		Supervisor: supervisor,
		Tick:       cfg.Tick,
		Logger:     logger,
		Metrics:    m,
	}), nil
}

// ── helpers ──────────────────────────────────────────────────────────

// buildDialer creates the right transport.Dialer for the given config.
func buildDialer(cfg *config.Config, logger *util.Logger) (transport.Dialer, error) {
	if cfg.TunnelEnabled {
		if cfg.Transport != config.TransportTCP {
			return nil, fmt.Errorf("transport %q cannot run through an SSH tunnel", cfg.Transport)
		}
		return transport.NewSSHDialer(&tunnel.SSHConfig{
			User:          cfg.TunnelUser,
			Host:          cfg.TunnelHost,
			Port:          cfg.TunnelPort,
			KeyPath:       cfg.SSHKeyPath,
			PromptPass:    cfg.SSHPassword,
			UseAgent:      cfg.UseSSHAgent,
			StrictHostKey: cfg.StrictHostKey,
			KnownHosts:    cfg.KnownHostsPath,
			ConnTimeout:   cfg.ConnectTimeout,
			Retries:       cfg.TunnelRetries,
		}, logger), nil
	}

	switch cfg.Transport {
	case config.TransportTCP, "":
		return &transport.TCPDialer{Timeout: cfg.ConnectTimeout}, nil
	case config.TransportWS:
		return &transport.WebSocketDialer{Path: cfg.WSPath, Secure: cfg.WSSecure}, nil
	}
	return nil, fmt.Errorf("unknown transport %q", cfg.Transport)
}

// buildBackoff maps the reconnect settings onto a backoff schedule.
func buildBackoff(cfg *config.Config) *retry.Backoff {
	return &retry.Backoff{
		InitialDelay: cfg.ReconnectCooldown,
		MaxDelay:     cfg.ReconnectMaxDelay,
		Multiplier:   2.0,
		MaxAttempts:  cfg.ReconnectAttempts,
	}
}
