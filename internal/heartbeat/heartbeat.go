// Package heartbeat implements the client-side liveness checks: a
// watchdog that drops a connection that has gone silent, and a
// keepalive that keeps the server's own watchdog satisfied.
package heartbeat

import (
	"fmt"
	"time"

	ncerr "rpsclient/internal/errors"
	"rpsclient/internal/metrics"
	"rpsclient/internal/session"
	"rpsclient/protocol"
	"rpsclient/util"
)

const (
	// DefaultTimeout is the silence after which the watchdog fires.
	DefaultTimeout = 20 * time.Second
	// DefaultInterval is the keepalive period.
	DefaultInterval = 1500 * time.Millisecond
)

// Link is the part of the transport the monitor drives.
type Link interface {
	Connected() bool
	Send(typ string, params ...string) error
	Close() error
}

// Monitor runs both checks.  It is driven from the tick loop and is
// not safe for concurrent use.
type Monitor struct {
	link     Link
	timeout  time.Duration
	interval time.Duration
	logger   *util.Logger
	metrics  *metrics.Collector

	sinceKeepalive time.Duration
}

// New returns a Monitor.  Non-positive durations select the defaults.
func New(link Link, timeout, interval time.Duration, logger *util.Logger, m *metrics.Collector) *Monitor {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Monitor{
		link:     link,
		timeout:  timeout,
		interval: interval,
		logger:   logger,
		metrics:  m,
	}
}

// Watch force-closes the transport when an active session has heard
// nothing for longer than the timeout.  It stays quiet in the Connect
// scene and while LastContact is unset, and clears LastContact when it
// fires so it fires once per silence.  The returned error wraps
// [ncerr.ErrHeartbeatLost] and takes the normal connection-lost path.
func (m *Monitor) Watch(now time.Time, c *session.Context) error {
	if !m.link.Connected() || !c.Scene.Active() || c.LastContact.IsZero() {
		return nil
	}
	silence := now.Sub(c.LastContact)
	if silence <= m.timeout {
		return nil
	}

	c.LastContact = time.Time{}
	m.metrics.HeartbeatTimeout()
	m.logger.Warn("no traffic from server for %s, dropping connection", silence.Round(time.Millisecond))
	if err := m.link.Close(); err != nil {
		m.logger.Debug("close after heartbeat loss: %v", err)
	}
	return fmt.Errorf("%w: silent for %s", ncerr.ErrHeartbeatLost, silence.Round(time.Millisecond))
}

// Keepalive accumulates dt while an active session is connected and
// sends REQ_PING once per interval.  Send failures surface through the
// transport's error queue as well; the error is returned for logging.
func (m *Monitor) Keepalive(dt time.Duration, c *session.Context) error {
	if !m.link.Connected() || !c.Scene.Active() {
		m.sinceKeepalive = 0
		return nil
	}
	m.sinceKeepalive += dt
	if m.sinceKeepalive < m.interval {
		return nil
	}
	m.sinceKeepalive = 0
	return m.link.Send(protocol.ReqPing)
}
