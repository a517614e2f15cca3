package transport

import (
	"context"
	"fmt"
	"net"
	"sync"

	"rpsclient/tunnel"
	"rpsclient/util"
)

// SSHDialer reaches the game server through an SSH gateway.  The
// gateway session opens on the first Dial and is reopened when a later
// Dial finds it down, so a reconnect recovers from a dropped gateway as
// well as from a restarted server.
type SSHDialer struct {
	mu      sync.Mutex
	gateway tunnel.Tunnel
	target  string
	logger  *util.Logger
}

func NewSSHDialer(cfg *tunnel.SSHConfig, logger *util.Logger) *SSHDialer {
	gw := tunnel.NewSSHTunnel(cfg, logger)
	return &SSHDialer{
		gateway: gw,
		target:  cfg.User + "@" + cfg.Addr(),
		logger:  logger,
	}
}

func (d *SSHDialer) ensureGateway(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.gateway.IsAlive() {
		return nil
	}
	d.logger.Verbose("opening SSH gateway %s", d.target)
	if err := d.gateway.Connect(ctx); err != nil {
		return fmt.Errorf("tunnel: %w", err)
	}
	d.logger.Verbose("SSH gateway %s up", d.target)
	return nil
}

// Dial opens a game connection on the far side of the gateway.
func (d *SSHDialer) Dial(ctx context.Context, network, address string) (net.Conn, error) {
	if err := d.ensureGateway(ctx); err != nil {
		return nil, err
	}
	return d.gateway.Dial(ctx, network, address)
}

// Close ends the gateway session.  A later Dial reopens it.
func (d *SSHDialer) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.gateway.Close()
}
