package transport

import (
	"context"
	"net"
	"time"
)

const tcpKeepAlive = 15 * time.Second

// TCPDialer opens plain TCP connections to the game server.
type TCPDialer struct {
	// Timeout bounds the dial.  Zero leaves it to ctx.
	Timeout time.Duration
}

func (d *TCPDialer) Dial(ctx context.Context, network, address string) (net.Conn, error) {
	dialer := net.Dialer{Timeout: d.Timeout, KeepAlive: tcpKeepAlive}
	return dialer.DialContext(ctx, network, address)
}

// Close holds nothing to release.
func (d *TCPDialer) Close() error { return nil }
