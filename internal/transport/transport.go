// Package transport owns the socket side of the game client: dialers
// that open a byte stream to the server (plain TCP, WebSocket, or
// through an SSH gateway) and the [Client] that frames that stream
// into protocol messages on a background reader.
package transport

import (
	"context"
	"net"
)

// Dialer opens outbound network connections.  Implementations include
// a plain TCP dialer, a WebSocket dialer that exposes text frames as a
// byte stream, and an SSH-tunnelled dialer that routes traffic through
// an encrypted gateway.
type Dialer interface {
	// Dial establishes a connection to the given network address.
	Dial(ctx context.Context, network, address string) (net.Conn, error)

	// Close releases any long-lived resources held by the dialer
	// (e.g. an SSH session).  Stateless dialers return nil.
	Close() error
}
