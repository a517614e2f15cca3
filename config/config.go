// Package config defines the runtime configuration of the game client
// and the layers it is assembled from: defaults, an optional TOML
// file, a .env file plus RPS_* environment variables, and CLI flags.
package config

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	ncerr "rpsclient/internal/errors"
)

// Config holds every tuneable for one client process.
type Config struct {
	// ── Server ───────────────────────────────────────────────────────
	Host           string
	Port           int
	Nickname       string // pre-filled login name
	Transport      string // "tcp" or "ws"
	WSPath         string
	WSSecure       bool
	ConnectTimeout time.Duration
	ReadPoll       time.Duration

	// ── Liveness ─────────────────────────────────────────────────────
	HeartbeatTimeout  time.Duration
	KeepaliveInterval time.Duration
	ReconnectCooldown time.Duration
	ReconnectMaxDelay time.Duration
	ReconnectAttempts int

	// ── Session timing ───────────────────────────────────────────────
	RoundOverlay time.Duration
	ToastTTL     time.Duration
	Tick         time.Duration

	// ── SSH tunnel ───────────────────────────────────────────────────
	TunnelSpec     string // raw user@host[:port] from -T
	TunnelEnabled  bool
	TunnelUser     string
	TunnelHost     string
	TunnelPort     int
	TunnelRetries  int
	SSHKeyPath     string
	SSHPassword    bool // true → prompt interactively
	UseSSHAgent    bool
	StrictHostKey  bool
	KnownHostsPath string

	// ── Output ───────────────────────────────────────────────────────
	Verbose     int
	MetricsAddr string
	ConfigFile  string
	EnvFile     string
}

// Default returns a Config populated from defaults.go.
func Default() *Config {
	return &Config{
		Host:              DefaultHost,
		Port:              DefaultPort,
		Transport:         TransportTCP,
		WSPath:            DefaultWSPath,
		ConnectTimeout:    DefaultConnectTimeout,
		ReadPoll:          DefaultReadPoll,
		HeartbeatTimeout:  DefaultHeartbeatTimeout,
		KeepaliveInterval: DefaultKeepaliveInterval,
		ReconnectCooldown: DefaultReconnectCooldown,
		ReconnectMaxDelay: DefaultReconnectMaxDelay,
		ReconnectAttempts: DefaultReconnectAttempts,
		RoundOverlay:      DefaultRoundOverlay,
		ToastTTL:          DefaultToastTTL,
		Tick:              DefaultTick,
		TunnelRetries:     DefaultTunnelRetries,
		Verbose:           1,
		EnvFile:           DefaultEnvFile,
	}
}

// Address returns host:port of the game server.
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// ── Tunnel-spec parser ───────────────────────────────────────────────

// tunnelRe matches [user@]host[:port].
var tunnelRe = regexp.MustCompile(`^(?:([^@]+)@)?([^:]+)(?::(\d+))?$`)

// ParseTunnelSpec extracts user, host, and port from a string such as
// "admin@bastion.example.com:2222".  Port defaults to 22.
func ParseTunnelSpec(spec string) (user, host string, port int, err error) {
	m := tunnelRe.FindStringSubmatch(spec)
	if m == nil {
		return "", "", 0, fmt.Errorf("invalid tunnel spec %q – expected [user@]host[:port]", spec)
	}
	user = m[1]
	host = m[2]
	port = DefaultSSHPort
	if m[3] != "" {
		port, err = strconv.Atoi(m[3])
		if err != nil || port < 1 || port > 65535 {
			return "", "", 0, fmt.Errorf("invalid tunnel port %q", m[3])
		}
	}
	if host == "" {
		return "", "", 0, fmt.Errorf("tunnel host is required")
	}
	return user, host, port, nil
}

// ApplyTunnelSpec parses TunnelSpec into the tunnel fields.  An empty
// spec disables the tunnel.
func (c *Config) ApplyTunnelSpec() error {
	if c.TunnelSpec == "" {
		c.TunnelEnabled = false
		return nil
	}
	user, host, port, err := ParseTunnelSpec(c.TunnelSpec)
	if err != nil {
		return &ncerr.ConfigError{
			Field:   "tunnel",
			Value:   c.TunnelSpec,
			Message: err.Error(),
			Hint:    "use -T user@bastion[:port]",
		}
	}
	c.TunnelEnabled = true
	c.TunnelUser = user
	c.TunnelHost = host
	c.TunnelPort = port
	return nil
}

// ── Validation ───────────────────────────────────────────────────────

// Validate checks that the configuration is internally consistent.
// Every failure is a *ConfigError carrying a hint.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Host) == "" {
		return &ncerr.ConfigError{
			Field:   "host",
			Message: "server host is required",
			Hint:    "pass it as the first argument or set RPS_HOST",
		}
	}
	if c.Port < 1 || c.Port > 65535 {
		return &ncerr.ConfigError{
			Field:   "port",
			Value:   c.Port,
			Message: "port out of range 1-65535",
			Hint:    fmt.Sprintf("the game server listens on %d by default", DefaultPort),
		}
	}

	switch c.Transport {
	case TransportTCP, TransportWS:
	default:
		return &ncerr.ConfigError{
			Field:   "transport",
			Value:   c.Transport,
			Message: "unknown transport",
			Hint:    "use tcp or ws",
		}
	}

	if c.TunnelEnabled && c.Transport == TransportWS {
		return &ncerr.ConfigError{
			Field:   "tunnel",
			Value:   c.TunnelSpec,
			Message: "websocket transport cannot be combined with an SSH tunnel",
			Hint:    "drop -T or use --transport tcp",
		}
	}
	if c.TunnelEnabled && c.TunnelHost == "" {
		return &ncerr.ConfigError{Field: "tunnel", Message: "tunnel host is required"}
	}

	durations := []struct {
		field string
		v     time.Duration
	}{
		{"connect-timeout", c.ConnectTimeout},
		{"read-poll", c.ReadPoll},
		{"heartbeat-timeout", c.HeartbeatTimeout},
		{"keepalive", c.KeepaliveInterval},
		{"reconnect-cooldown", c.ReconnectCooldown},
		{"tick", c.Tick},
	}
	for _, d := range durations {
		if d.v <= 0 {
			return &ncerr.ConfigError{
				Field:   d.field,
				Value:   d.v,
				Message: "must be positive",
				Hint:    "durations use Go syntax, e.g. 1.5s or 200ms",
			}
		}
	}

	if c.KeepaliveInterval >= c.HeartbeatTimeout {
		return &ncerr.ConfigError{
			Field:   "keepalive",
			Value:   c.KeepaliveInterval,
			Message: fmt.Sprintf("must be shorter than the heartbeat timeout (%s)", c.HeartbeatTimeout),
			Hint:    "otherwise an idle but healthy session is dropped",
		}
	}
	if c.ReconnectMaxDelay < c.ReconnectCooldown {
		return &ncerr.ConfigError{
			Field:   "reconnect-max-delay",
			Value:   c.ReconnectMaxDelay,
			Message: fmt.Sprintf("must not be below the cooldown (%s)", c.ReconnectCooldown),
		}
	}
	if c.ReconnectAttempts < 0 {
		return &ncerr.ConfigError{
			Field:   "reconnect-attempts",
			Value:   c.ReconnectAttempts,
			Message: "must not be negative",
			Hint:    "0 retries forever",
		}
	}
	return nil
}
