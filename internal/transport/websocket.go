package transport

import (
	"context"
	"fmt"
	"net"
	"strings"

	"nhooyr.io/websocket"
)

// WebSocketDialer reaches servers that sit behind a WebSocket gateway.
// Each protocol line travels in text frames; websocket.NetConn turns the
// frame stream back into a net.Conn so the line reader works unchanged.
type WebSocketDialer struct {
	// Path is the HTTP path of the upgrade endpoint (default "/").
	Path string
	// Secure selects wss:// instead of ws://.
	Secure bool
}

// Dial performs the WebSocket handshake against address (host:port).
// The network argument is ignored; WebSockets always ride on TCP.
func (d *WebSocketDialer) Dial(ctx context.Context, _ string, address string) (net.Conn, error) {
	u := d.URL(address)
	c, _, err := websocket.Dial(ctx, u, nil)
	if err != nil {
		return nil, fmt.Errorf("websocket dial %s: %w", u, err)
	}
	// The NetConn context must outlive the dial context: cancelling it
	// tears the socket down.
	return websocket.NetConn(context.Background(), c, websocket.MessageText), nil
}

// URL builds the endpoint URL for address.
func (d *WebSocketDialer) URL(address string) string {
	scheme := "ws"
	if d.Secure {
		scheme = "wss"
	}
	path := d.Path
	if path == "" {
		path = "/"
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return fmt.Sprintf("%s://%s%s", scheme, address, path)
}

// Close is a no-op; each connection owns its own socket.
func (d *WebSocketDialer) Close() error { return nil }

// NoReadDeadline reports that read deadlines must not be used to poll
// WebSocket connections: an expired deadline aborts the socket.  The
// reader relies on Close to unblock instead.
func (d *WebSocketDialer) NoReadDeadline() bool { return true }
