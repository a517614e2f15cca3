package config

// loader.go - configuration loading from environment variables.
//
// Precedence order (highest wins):
//   1. CLI flags  (handled by cmd/root.go)
//   2. Environment variables, after an optional .env file  (this file)
//   3. TOML config file  (file.go)
//   4. Defaults   (defaults.go)

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	ncerr "rpsclient/internal/errors"
)

// ── .env ─────────────────────────────────────────────────────────────

// LoadDotEnv loads KEY=VALUE pairs from path into the process
// environment.  Variables that are already set win over the file, and
// a missing file is not an error.
func LoadDotEnv(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return &ncerr.ConfigError{
			Field:   "env-file",
			Value:   path,
			Message: err.Error(),
			Hint:    "each line must be KEY=VALUE",
		}
	}
	return nil
}

// ── Environment variable mapping ─────────────────────────────────────
//
// Every supported env var uses the RPS_ prefix.  Boolean values
// accept "1", "true", "yes" (case-insensitive).  Durations accept Go
// syntax ("1.5s") or a bare number of seconds.

// LoadFromEnv overlays environment variables onto cfg.  Only non-empty
// env vars override the existing value.  This should be called BEFORE
// CLI flag parsing so that flags take precedence.  The first malformed
// value is reported; the rest are still applied.
func LoadFromEnv(cfg *Config) error {
	var first error
	keep := func(err error) {
		if err != nil && first == nil {
			first = err
		}
	}

	if v := os.Getenv("RPS_HOST"); v != "" {
		cfg.Host = v
	}
	keep(envInt("RPS_PORT", &cfg.Port))
	if v := os.Getenv("RPS_NICKNAME"); v != "" {
		cfg.Nickname = v
	}
	if v := os.Getenv("RPS_TRANSPORT"); v != "" {
		cfg.Transport = strings.ToLower(v)
	}
	if v := os.Getenv("RPS_WS_PATH"); v != "" {
		cfg.WSPath = v
	}
	envBool("RPS_WS_SECURE", &cfg.WSSecure)
	keep(envDuration("RPS_CONNECT_TIMEOUT", &cfg.ConnectTimeout))
	keep(envDuration("RPS_READ_POLL", &cfg.ReadPoll))

	// Liveness
	keep(envDuration("RPS_HEARTBEAT_TIMEOUT", &cfg.HeartbeatTimeout))
	keep(envDuration("RPS_KEEPALIVE", &cfg.KeepaliveInterval))
	keep(envDuration("RPS_RECONNECT_COOLDOWN", &cfg.ReconnectCooldown))
	keep(envDuration("RPS_RECONNECT_MAX_DELAY", &cfg.ReconnectMaxDelay))
	keep(envInt("RPS_RECONNECT_ATTEMPTS", &cfg.ReconnectAttempts))

	// Session timing
	keep(envDuration("RPS_ROUND_OVERLAY", &cfg.RoundOverlay))
	keep(envDuration("RPS_TOAST_TTL", &cfg.ToastTTL))
	keep(envDuration("RPS_TICK", &cfg.Tick))

	// SSH tunnel
	if v := os.Getenv("RPS_TUNNEL"); v != "" {
		cfg.TunnelSpec = v
	}
	keep(envInt("RPS_TUNNEL_RETRIES", &cfg.TunnelRetries))
	if v := os.Getenv("RPS_SSH_KEY"); v != "" {
		cfg.SSHKeyPath = v
	}
	envBool("RPS_SSH_PASSWORD", &cfg.SSHPassword)
	envBool("RPS_SSH_AGENT", &cfg.UseSSHAgent)
	envBool("RPS_STRICT_HOSTKEY", &cfg.StrictHostKey)
	if v := os.Getenv("RPS_KNOWN_HOSTS"); v != "" {
		cfg.KnownHostsPath = v
	}

	// Output
	keep(envInt("RPS_VERBOSE", &cfg.Verbose))
	if v := os.Getenv("RPS_METRICS_ADDR"); v != "" {
		cfg.MetricsAddr = v
	}

	return first
}

// ── helpers ──────────────────────────────────────────────────────────

func envInt(key string, dst *int) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return &ncerr.ConfigError{Field: envField(key), Value: v, Message: "not an integer"}
	}
	*dst = n
	return nil
}

func envBool(key string, dst *bool) {
	v := strings.ToLower(os.Getenv(key))
	if v == "1" || v == "true" || v == "yes" {
		*dst = true
	}
}

func envDuration(key string, dst *time.Duration) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	d, err := ParseDuration(v)
	if err != nil {
		return &ncerr.ConfigError{
			Field:   envField(key),
			Value:   v,
			Message: err.Error(),
			Hint:    "use Go syntax such as 1.5s, or whole seconds",
		}
	}
	*dst = d
	return nil
}

// ParseDuration accepts Go duration syntax or a bare number of seconds.
func ParseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return time.Duration(f * float64(time.Second)), nil
	}
	return time.ParseDuration(s)
}

// envField turns RPS_READ_POLL into read-poll for error messages.
func envField(key string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(key, "RPS_")), "_", "-")
}
