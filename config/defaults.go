package config

import "time"

// ── Default values ───────────────────────────────────────────────────
//
// All tuneable defaults live here so they are easy to audit and reuse
// across CLI flags, config file parsing, and environment variable
// loading.

const (
	// DefaultHost and DefaultPort locate the game server.
	DefaultHost = "127.0.0.1"
	DefaultPort = 10000

	// TransportTCP speaks the line protocol on a plain socket.
	TransportTCP = "tcp"
	// TransportWS carries the same lines in WebSocket text frames.
	TransportWS = "ws"

	// DefaultWSPath is the upgrade endpoint for the ws transport.
	DefaultWSPath = "/"

	// DefaultConnectTimeout bounds a single dial.
	DefaultConnectTimeout = 5 * time.Second

	// DefaultReadPoll is the reader's deadline-based poll interval.
	DefaultReadPoll = 200 * time.Millisecond

	// DefaultHeartbeatTimeout is the watchdog's silence threshold.
	DefaultHeartbeatTimeout = 20 * time.Second

	// DefaultKeepaliveInterval is the REQ_PING period.
	DefaultKeepaliveInterval = 1500 * time.Millisecond

	// DefaultReconnectCooldown is the wait before the first reconnect
	// attempt; later waits double up to DefaultReconnectMaxDelay.
	DefaultReconnectCooldown = 1 * time.Second
	DefaultReconnectMaxDelay = 10 * time.Second

	// DefaultReconnectAttempts is the reconnect budget.
	DefaultReconnectAttempts = 10

	// DefaultRoundOverlay is how long a round result stays visible.
	DefaultRoundOverlay = 3 * time.Second

	// DefaultToastTTL is the default toast lifetime.
	DefaultToastTTL = 3 * time.Second

	// DefaultTick is the driver's frame period (about 60 Hz).
	DefaultTick = 16 * time.Millisecond

	// DefaultSSHPort is the standard SSH port.
	DefaultSSHPort = 22

	// DefaultTunnelRetries is how many times the SSH handshake is tried
	// per dial.
	DefaultTunnelRetries = 3

	// DefaultEnvFile is loaded when present.
	DefaultEnvFile = ".env"
)
