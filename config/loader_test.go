package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	ncerr "rpsclient/internal/errors"
)

func TestLoadFromEnv_Server(t *testing.T) {
	t.Setenv("RPS_HOST", "game.example.com")
	t.Setenv("RPS_PORT", "10500")
	t.Setenv("RPS_NICKNAME", "alice")
	t.Setenv("RPS_TRANSPORT", "WS")
	t.Setenv("RPS_WS_PATH", "/rps")

	cfg := Default()
	if err := LoadFromEnv(cfg); err != nil {
		t.Fatal(err)
	}
	if cfg.Host != "game.example.com" || cfg.Port != 10500 || cfg.Nickname != "alice" {
		t.Errorf("server = %s:%d nick=%q", cfg.Host, cfg.Port, cfg.Nickname)
	}
	if cfg.Transport != TransportWS || cfg.WSPath != "/rps" {
		t.Errorf("transport = %q path=%q", cfg.Transport, cfg.WSPath)
	}
}

func TestLoadFromEnv_Durations(t *testing.T) {
	tests := []struct {
		key   string
		value string
		get   func(*Config) time.Duration
		want  time.Duration
	}{
		{"RPS_HEARTBEAT_TIMEOUT", "7s", func(c *Config) time.Duration { return c.HeartbeatTimeout }, 7 * time.Second},
		{"RPS_KEEPALIVE", "1.5", func(c *Config) time.Duration { return c.KeepaliveInterval }, 1500 * time.Millisecond},
		{"RPS_READ_POLL", "50ms", func(c *Config) time.Duration { return c.ReadPoll }, 50 * time.Millisecond},
		{"RPS_RECONNECT_COOLDOWN", "2", func(c *Config) time.Duration { return c.ReconnectCooldown }, 2 * time.Second},
		{"RPS_ROUND_OVERLAY", "4s", func(c *Config) time.Duration { return c.RoundOverlay }, 4 * time.Second},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			cfg := Default()
			if err := LoadFromEnv(cfg); err != nil {
				t.Fatal(err)
			}
			if got := tt.get(cfg); got != tt.want {
				t.Errorf("%s=%s → %v, want %v", tt.key, tt.value, got, tt.want)
			}
		})
	}
}

func TestLoadFromEnv_Booleans(t *testing.T) {
	for _, v := range []string{"1", "true", "yes", "TRUE", "Yes"} {
		t.Run(v, func(t *testing.T) {
			t.Setenv("RPS_SSH_AGENT", v)
			t.Setenv("RPS_STRICT_HOSTKEY", v)
			cfg := Default()
			if err := LoadFromEnv(cfg); err != nil {
				t.Fatal(err)
			}
			if !cfg.UseSSHAgent || !cfg.StrictHostKey {
				t.Errorf("%q not parsed as true", v)
			}
		})
	}
}

func TestLoadFromEnv_Malformed(t *testing.T) {
	t.Setenv("RPS_PORT", "abc")
	t.Setenv("RPS_TICK", "soon")
	t.Setenv("RPS_HOST", "still.applied")

	cfg := Default()
	err := LoadFromEnv(cfg)
	var ce *ncerr.ConfigError
	if !errors.As(err, &ce) || ce.Field != "port" {
		t.Fatalf("err = %v, want ConfigError for port", err)
	}
	if cfg.Port != DefaultPort || cfg.Tick != DefaultTick {
		t.Errorf("malformed values must not be applied: port=%d tick=%v", cfg.Port, cfg.Tick)
	}
	if cfg.Host != "still.applied" {
		t.Error("valid values must still be applied")
	}
}

func TestLoadFromEnv_EmptyIgnored(t *testing.T) {
	t.Setenv("RPS_HOST", "")
	cfg := Default()
	if err := LoadFromEnv(cfg); err != nil {
		t.Fatal(err)
	}
	if cfg.Host != DefaultHost {
		t.Errorf("empty env var should not override, got %q", cfg.Host)
	}
}

// TestLoadDotEnv verifies .env values reach LoadFromEnv without
// overriding variables that are already set.
func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	data := "RPS_NICKNAME=fromfile\nRPS_HOST=file.example\n"
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatal(err)
	}

	t.Setenv("RPS_HOST", "env.example")
	// Register cleanup for a variable the file will set.
	t.Setenv("RPS_NICKNAME", "")
	os.Unsetenv("RPS_NICKNAME")

	if err := LoadDotEnv(path); err != nil {
		t.Fatalf("LoadDotEnv: %v", err)
	}
	cfg := Default()
	if err := LoadFromEnv(cfg); err != nil {
		t.Fatal(err)
	}
	if cfg.Nickname != "fromfile" {
		t.Errorf("Nickname = %q, want fromfile", cfg.Nickname)
	}
	if cfg.Host != "env.example" {
		t.Errorf("Host = %q, existing env must win over .env", cfg.Host)
	}
}

func TestLoadDotEnv_Missing(t *testing.T) {
	if err := LoadDotEnv(filepath.Join(t.TempDir(), "nope.env")); err != nil {
		t.Errorf("missing .env should be ignored, got %v", err)
	}
	if err := LoadDotEnv(""); err != nil {
		t.Errorf("empty path should be ignored, got %v", err)
	}
}

func TestParseDuration(t *testing.T) {
	tests := []struct {
		in      string
		want    time.Duration
		wantErr bool
	}{
		{"1.5s", 1500 * time.Millisecond, false},
		{"200ms", 200 * time.Millisecond, false},
		{"3", 3 * time.Second, false},
		{" 0.25 ", 250 * time.Millisecond, false},
		{"later", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseDuration(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseDuration(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}
