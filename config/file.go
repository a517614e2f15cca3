package config

import (
	"fmt"
	"time"

	"github.com/BurntSushi/toml"

	ncerr "rpsclient/internal/errors"
)

// duration decodes TOML strings such as "1.5s" or numbers of seconds.
type duration struct {
	set bool
	d   time.Duration
}

func (d *duration) UnmarshalText(text []byte) error {
	v, err := ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.set, d.d = true, v
	return nil
}

func (d duration) apply(dst *time.Duration) {
	if d.set {
		*dst = d.d
	}
}

// fileConfig mirrors the TOML layout.  Pointers distinguish "absent"
// from zero so the file only overrides what it names.
type fileConfig struct {
	Server struct {
		Host           *string  `toml:"host"`
		Port           *int     `toml:"port"`
		Nickname       *string  `toml:"nickname"`
		Transport      *string  `toml:"transport"`
		WSPath         *string  `toml:"ws_path"`
		WSSecure       *bool    `toml:"ws_secure"`
		ConnectTimeout duration `toml:"connect_timeout"`
		ReadPoll       duration `toml:"read_poll"`
	} `toml:"server"`

	Liveness struct {
		HeartbeatTimeout  duration `toml:"heartbeat_timeout"`
		KeepaliveInterval duration `toml:"keepalive_interval"`
		ReconnectCooldown duration `toml:"reconnect_cooldown"`
		ReconnectMaxDelay duration `toml:"reconnect_max_delay"`
		ReconnectAttempts *int     `toml:"reconnect_attempts"`
	} `toml:"liveness"`

	Session struct {
		RoundOverlay duration `toml:"round_overlay"`
		ToastTTL     duration `toml:"toast_ttl"`
		Tick         duration `toml:"tick"`
	} `toml:"session"`

	Tunnel struct {
		Spec          *string `toml:"spec"`
		Retries       *int    `toml:"retries"`
		SSHKey        *string `toml:"ssh_key"`
		SSHAgent      *bool   `toml:"ssh_agent"`
		SSHPassword   *bool   `toml:"ssh_password"`
		StrictHostKey *bool   `toml:"strict_hostkey"`
		KnownHosts    *string `toml:"known_hosts"`
	} `toml:"tunnel"`

	Metrics struct {
		Addr *string `toml:"addr"`
	} `toml:"metrics"`
}

// LoadFile overlays the TOML file at path onto cfg.  Unknown keys are
// rejected so typos do not pass silently.
func LoadFile(path string, cfg *Config) error {
	var fc fileConfig
	md, err := toml.DecodeFile(path, &fc)
	if err != nil {
		return &ncerr.ConfigError{
			Field:   "config",
			Value:   path,
			Message: err.Error(),
		}
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return &ncerr.ConfigError{
			Field:   "config",
			Value:   path,
			Message: fmt.Sprintf("unknown key %q", undecoded[0].String()),
			Hint:    "see config.example.toml for the supported keys",
		}
	}
	fc.apply(cfg)
	return nil
}

func (fc *fileConfig) apply(cfg *Config) {
	s := fc.Server
	setString(&cfg.Host, s.Host)
	setInt(&cfg.Port, s.Port)
	setString(&cfg.Nickname, s.Nickname)
	setString(&cfg.Transport, s.Transport)
	setString(&cfg.WSPath, s.WSPath)
	setBool(&cfg.WSSecure, s.WSSecure)
	s.ConnectTimeout.apply(&cfg.ConnectTimeout)
	s.ReadPoll.apply(&cfg.ReadPoll)

	l := fc.Liveness
	l.HeartbeatTimeout.apply(&cfg.HeartbeatTimeout)
	l.KeepaliveInterval.apply(&cfg.KeepaliveInterval)
	l.ReconnectCooldown.apply(&cfg.ReconnectCooldown)
	l.ReconnectMaxDelay.apply(&cfg.ReconnectMaxDelay)
	setInt(&cfg.ReconnectAttempts, l.ReconnectAttempts)

	fc.Session.RoundOverlay.apply(&cfg.RoundOverlay)
	fc.Session.ToastTTL.apply(&cfg.ToastTTL)
	fc.Session.Tick.apply(&cfg.Tick)

	t := fc.Tunnel
	setString(&cfg.TunnelSpec, t.Spec)
	setInt(&cfg.TunnelRetries, t.Retries)
	setString(&cfg.SSHKeyPath, t.SSHKey)
	setBool(&cfg.UseSSHAgent, t.SSHAgent)
	setBool(&cfg.SSHPassword, t.SSHPassword)
	setBool(&cfg.StrictHostKey, t.StrictHostKey)
	setString(&cfg.KnownHostsPath, t.KnownHosts)

	setString(&cfg.MetricsAddr, fc.Metrics.Addr)
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func setInt(dst *int, v *int) {
	if v != nil {
		*dst = *v
	}
}

func setBool(dst *bool, v *bool) {
	if v != nil {
		*dst = *v
	}
}
