// Package tunnel carries game connections through an SSH gateway for
// servers that are only reachable from behind a bastion host.
package tunnel

import (
	"context"
	"net"
)

// Tunnel is an encrypted channel that game connections are forwarded
// through.
type Tunnel interface {
	// Connect performs the gateway handshake.
	Connect(ctx context.Context) error

	// Dial opens a stream to address on the far side of the gateway.
	Dial(ctx context.Context, network, address string) (net.Conn, error)

	// Close tears the gateway session down.
	Close() error

	// IsAlive reports whether the gateway session is still up.
	IsAlive() bool
}
