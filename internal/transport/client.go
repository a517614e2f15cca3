package transport

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"

	ncerr "rpsclient/internal/errors"
	"rpsclient/internal/metrics"
	"rpsclient/protocol"
	"rpsclient/util"
)

// maxPendingLine bounds a line that never sees its newline.  Anything
// longer means the stream is lost and the connection is closed.
const maxPendingLine = 64 * 1024

// Client owns at most one live connection to the game server.
//
// A background reader per connection splits the byte stream into
// lines, decodes them, and pushes the results onto two unbounded
// queues that the tick loop drains without blocking: decoded messages
// and human-readable transport errors.  The reader never touches
// session state.
type Client struct {
	dialer  Dialer
	logger  *util.Logger
	metrics *metrics.Collector

	connectTimeout time.Duration
	readPoll       time.Duration

	mu   sync.Mutex
	host string
	port int
	conn *connection

	inbox  Queue[protocol.Message]
	errors Queue[string]
}

// Options tunes a [Client].  Zero values select a 5s connect timeout
// and a 200ms read poll.
type Options struct {
	ConnectTimeout time.Duration
	ReadPoll       time.Duration
	Logger         *util.Logger
	Metrics        *metrics.Collector
}

// connection is one socket plus its liveness flag.  "Connected" holds
// iff the connection is installed on the Client and alive is set.
type connection struct {
	sock     net.Conn
	addr     string
	alive    atomic.Bool
	readPoll time.Duration
	writeMu  sync.Mutex
	once     sync.Once
	closeErr error
	done     chan struct{}

	// deadlines is false for sockets where an expired deadline would
	// abort the connection instead of failing one call.
	deadlines bool
}

// deadlineless is implemented by dialers whose connections must not be
// polled with read deadlines.
type deadlineless interface {
	NoReadDeadline() bool
}

// NewClient returns a Client targeting host:port.  Nothing is dialled
// until [Client.Connect].
func NewClient(host string, port int, dialer Dialer, opts Options) *Client {
	if dialer == nil {
		dialer = &TCPDialer{}
	}
	if opts.ConnectTimeout <= 0 {
		opts.ConnectTimeout = 5 * time.Second
	}
	if opts.ReadPoll <= 0 {
		opts.ReadPoll = 200 * time.Millisecond
	}
	if opts.Logger == nil {
		opts.Logger = util.NewLogger(0)
	}
	return &Client{
		dialer:         dialer,
		logger:         opts.Logger,
		metrics:        opts.Metrics,
		connectTimeout: opts.ConnectTimeout,
		readPoll:       opts.ReadPoll,
		host:           host,
		port:           port,
	}
}

// SetTarget changes the address used by the next Connect.  It does
// not affect a live connection.
func (c *Client) SetTarget(host string, port int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.host, c.port = host, port
}

// Target returns the configured host and port.
func (c *Client) Target() (string, int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.host, c.port
}

// Connected reports whether a live connection is installed.
func (c *Client) Connected() bool {
	return c.current() != nil
}

// Connect dials the server unless already connected and starts exactly
// one reader for the new connection.  Dial failures are returned to
// the caller; retrying is the reconnect supervisor's job.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn != nil && c.conn.alive.Load() {
		return nil
	}

	addr := util.FormatAddr(c.host, c.port)
	dctx, cancel := context.WithTimeout(ctx, c.connectTimeout)
	defer cancel()

	c.logger.Verbose("connecting to %s", addr)
	sock, err := c.dialer.Dial(dctx, "tcp", addr)
	if err != nil {
		c.metrics.RecordError(fmt.Sprintf("dial %s: %v", addr, err))
		return ncerr.Wrap("dial", addr, err)
	}

	conn := &connection{
		sock:     sock,
		addr:     addr,
		readPoll: c.readPoll,
		done:     make(chan struct{}),

		deadlines: true,
	}
	if d, ok := c.dialer.(deadlineless); ok && d.NoReadDeadline() {
		conn.readPoll = 0
		conn.deadlines = false
	}
	conn.alive.Store(true)
	c.conn = conn
	c.metrics.ConnectionOpened()

	go c.readLoop(conn)

	c.logger.Verbose("connected to %s", addr)
	return nil
}

// Send encodes and writes one frame.  A write failure is reported on
// the error queue and closes the connection; it is not retried here.
func (c *Client) Send(typ string, params ...string) error {
	conn := c.current()
	if conn == nil {
		return ncerr.ErrNotConnected
	}

	frame := protocol.Encode(typ, params...)

	conn.writeMu.Lock()
	if conn.deadlines {
		if err := conn.sock.SetWriteDeadline(time.Now().Add(c.connectTimeout)); err != nil {
			c.logger.Debug("set write deadline on %s: %v", conn.addr, err)
		}
	}
	n, err := conn.sock.Write(frame)
	conn.writeMu.Unlock()

	if err != nil {
		werr := ncerr.Wrap("write", conn.addr, err)
		c.report(conn, fmt.Sprintf("send failed: %v", werr))
		if cerr := c.closeConn(conn); cerr != nil {
			c.logger.Debug("close after send failure: %v", cerr)
		}
		return werr
	}

	c.metrics.BytesSent(int64(n))
	c.metrics.MessageSent()
	c.logger.Debug("tx %s", bytes.TrimRight(frame, "\n"))
	return nil
}

// Close clears the liveness flag, shuts the socket down and releases
// it.  Calling Close on a closed client is a no-op.
func (c *Client) Close() error {
	c.mu.Lock()
	conn := c.conn
	c.conn = nil
	c.mu.Unlock()

	if conn == nil {
		return nil
	}
	return c.closeConn(conn)
}

// NextMessage pops the oldest decoded message without blocking.
func (c *Client) NextMessage() (protocol.Message, bool) {
	return c.inbox.TryPop()
}

// NextError pops the oldest transport error without blocking.  Errors
// are advisory: one may describe a connection that has already been
// replaced by a newer one.
func (c *Client) NextError() (string, bool) {
	return c.errors.TryPop()
}

// ── internal ─────────────────────────────────────────────────────────

func (c *Client) current() *connection {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil || !c.conn.alive.Load() {
		return nil
	}
	return c.conn
}

// release uninstalls conn if it is still the current connection.
func (c *Client) release(conn *connection) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == conn {
		c.conn = nil
	}
}

func (c *Client) closeConn(conn *connection) error {
	err := conn.shutdown()
	if err != nil && !ncerr.IsClosed(err) {
		return ncerr.Wrap("close", conn.addr, err)
	}
	return nil
}

// report marks conn dead before publishing msg, so a consumer that sees
// the error already observes Connected() == false.
func (c *Client) report(conn *connection, msg string) {
	conn.alive.Store(false)
	c.metrics.RecordError(msg)
	c.errors.Push(msg)
}

// shutdown is idempotent: the first call closes the socket, later
// calls return the same result.
func (conn *connection) shutdown() error {
	conn.alive.Store(false)
	conn.once.Do(func() {
		if hc, ok := conn.sock.(interface{ CloseWrite() error }); ok {
			// Half-close first so the peer sees FIN before RST.
			_ = hc.CloseWrite()
		}
		conn.closeErr = conn.sock.Close()
	})
	return conn.closeErr
}

// readLoop is the only reader of conn.sock.  It exits when the
// liveness flag is cleared, the peer hangs up, the protocol desyncs, or
// a read fails; on exit the connection is always torn down.
func (c *Client) readLoop(conn *connection) {
	defer func() {
		if err := c.closeConn(conn); err != nil {
			c.logger.Debug("reader close %s: %v", conn.addr, err)
		}
		c.release(conn)
		c.metrics.ConnectionClosed()
		close(conn.done)
	}()

	bufp := util.GetBuf()
	defer util.PutBuf(bufp)
	buf := *bufp

	var pending []byte
	for conn.alive.Load() {
		if conn.readPoll > 0 {
			if err := conn.sock.SetReadDeadline(time.Now().Add(conn.readPoll)); err != nil {
				c.logger.Verbose("read deadlines unsupported on %s, relying on close: %v", conn.addr, err)
				conn.readPoll = 0
			}
		}

		n, err := conn.sock.Read(buf)
		if n > 0 {
			c.metrics.BytesReceived(int64(n))
			pending = append(pending, buf[:n]...)
			var ok bool
			if pending, ok = c.drainLines(conn, pending); !ok {
				return
			}
		}
		if err == nil {
			continue
		}

		switch {
		case ncerr.IsTimeout(err):
			continue
		case !conn.alive.Load():
			return // closed locally
		case errors.Is(err, io.EOF):
			c.report(conn, "disconnected by peer")
			return
		default:
			c.report(conn, fmt.Sprintf("receive failed: %v", ncerr.Wrap("read", conn.addr, err)))
			return
		}
	}
}

// drainLines decodes every complete line in pending and returns the
// unconsumed tail.  It returns false when the connection must close.
func (c *Client) drainLines(conn *connection, pending []byte) ([]byte, bool) {
	for {
		i := bytes.IndexByte(pending, '\n')
		if i < 0 {
			break
		}
		raw := string(bytes.ToValidUTF8(pending[:i], []byte("�")))
		pending = pending[i+1:]

		msg, ok, err := protocol.Decode(raw)
		switch {
		case err != nil:
			c.metrics.DecodeError()
			c.report(conn, fmt.Sprintf("protocol desync: %v", err))
			return nil, false
		case !ok:
			if !protocol.IsBlank(raw) {
				c.metrics.DecodeError()
				c.errors.Push(fmt.Sprintf("malformed line: %q", raw))
			}
		default:
			c.metrics.MessageReceived()
			c.inbox.Push(msg)
		}
	}

	if len(pending) > maxPendingLine {
		c.metrics.DecodeError()
		c.report(conn, fmt.Sprintf("line too long: %d bytes without newline", len(pending)))
		return nil, false
	}
	return pending, true
}
