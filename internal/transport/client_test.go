package transport

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"nhooyr.io/websocket"

	ncerr "rpsclient/internal/errors"
	"rpsclient/internal/metrics"
	"rpsclient/protocol"
	"rpsclient/util"
)

// ── helpers ──────────────────────────────────────────────────────────

func quietLogger() *util.Logger {
	l := util.NewLogger(3)
	l.SetOutput(io.Discard)
	return l
}

// serve runs handlers against successive connections accepted on a
// loopback listener and returns its host and port.
func serve(t *testing.T, handlers ...func(net.Conn)) (string, int) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { ln.Close() })

	go func() {
		for _, h := range handlers {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go func(h func(net.Conn), conn net.Conn) {
				defer conn.Close()
				h(conn)
			}(h, conn)
		}
	}()

	host, port, err := util.SplitAddr(ln.Addr().String())
	if err != nil {
		t.Fatal(err)
	}
	return host, port
}

// drainUntilClosed keeps the server side open until the client leaves.
func drainUntilClosed(conn net.Conn) {
	io.Copy(io.Discard, conn) //nolint:errcheck
}

func newTestClient(host string, port int, d Dialer) *Client {
	if d == nil {
		d = &TCPDialer{}
	}
	return NewClient(host, port, d, Options{
		ConnectTimeout: 2 * time.Second,
		ReadPoll:       20 * time.Millisecond,
		Logger:         quietLogger(),
		Metrics:        metrics.New(),
	})
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func collect(t *testing.T, c *Client, n int) []protocol.Message {
	t.Helper()
	var out []protocol.Message
	waitFor(t, "messages", func() bool {
		for {
			m, ok := c.NextMessage()
			if !ok {
				break
			}
			out = append(out, m)
		}
		return len(out) >= n
	})
	return out
}

func nextError(t *testing.T, c *Client) string {
	t.Helper()
	var msg string
	waitFor(t, "transport error", func() bool {
		var ok bool
		msg, ok = c.NextError()
		return ok
	})
	return msg
}

type countingDialer struct {
	TCPDialer
	dials atomic.Int32
}

func (d *countingDialer) Dial(ctx context.Context, network, address string) (net.Conn, error) {
	d.dials.Add(1)
	return d.TCPDialer.Dial(ctx, network, address)
}

// ── tests ────────────────────────────────────────────────────────────

// TestClient_ReceivesMessages verifies one framed line becomes one
// queued message.
func TestClient_ReceivesMessages(t *testing.T) {
	host, port := serve(t, func(conn net.Conn) {
		conn.Write([]byte("MRLLN|RES_LOGIN_OK|7|\n")) //nolint:errcheck
		drainUntilClosed(conn)
	})

	c := newTestClient(host, port, nil)
	if err := c.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer c.Close()

	if !c.Connected() {
		t.Fatal("expected Connected after Connect")
	}
	msgs := collect(t, c, 1)
	if msgs[0].Kind != protocol.KindLoginOK || msgs[0].Param(0) != "7" {
		t.Errorf("got %v, want RES_LOGIN_OK 7", msgs[0])
	}
}

// TestClient_ReassemblesSplitLines verifies lines spanning reads are
// delivered once, in order, and identical to unsplit delivery.
func TestClient_ReassemblesSplitLines(t *testing.T) {
	chunks := []string{
		"MRLLN|RES_PI",
		"NG|1|\nMRLLN|RES_LOGIN_OK|7|\nMRL",
		"LN|RES_LOBBY_LEFT|\n",
	}
	host, port := serve(t, func(conn net.Conn) {
		for _, ch := range chunks {
			conn.Write([]byte(ch)) //nolint:errcheck
			time.Sleep(30 * time.Millisecond)
		}
		drainUntilClosed(conn)
	})

	c := newTestClient(host, port, nil)
	if err := c.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer c.Close()

	msgs := collect(t, c, 3)
	want := []struct {
		typ    string
		params int
	}{
		{protocol.ResPing, 1},
		{protocol.ResLoginOK, 1},
		{protocol.ResLobbyLeft, 0},
	}
	if len(msgs) != len(want) {
		t.Fatalf("got %d messages, want %d", len(msgs), len(want))
	}
	for i, w := range want {
		if msgs[i].Type != w.typ || len(msgs[i].Params) != w.params {
			t.Errorf("msg[%d] = %v, want %s with %d params", i, msgs[i], w.typ, w.params)
		}
	}
}

// TestClient_SkipsBlankAndMalformed verifies blank lines vanish,
// malformed lines are reported without dropping the connection.
func TestClient_SkipsBlankAndMalformed(t *testing.T) {
	host, port := serve(t, func(conn net.Conn) {
		conn.Write([]byte("\n\r\nMRLLN|\nMRLLN|RES_PING|x|\n")) //nolint:errcheck
		drainUntilClosed(conn)
	})

	c := newTestClient(host, port, nil)
	if err := c.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer c.Close()

	msgs := collect(t, c, 1)
	if msgs[0].Type != protocol.ResPing {
		t.Errorf("got %v, want RES_PING", msgs[0])
	}

	msg, ok := c.NextError()
	if !ok || !strings.Contains(msg, "malformed") {
		t.Errorf("error = %q,%v, want malformed line report", msg, ok)
	}
	if _, ok := c.NextError(); ok {
		t.Error("blank lines must not produce errors")
	}
	if !c.Connected() {
		t.Error("malformed line must not close the connection")
	}
}

// TestClient_BadMagicCloses verifies a desynchronised stream is fatal.
func TestClient_BadMagicCloses(t *testing.T) {
	host, port := serve(t, func(conn net.Conn) {
		conn.Write([]byte("BADMAGIC|X|1|\nMRLLN|RES_PING|1|\n")) //nolint:errcheck
		drainUntilClosed(conn)
	})

	c := newTestClient(host, port, nil)
	if err := c.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer c.Close()

	msg := nextError(t, c)
	if !strings.Contains(msg, "desync") {
		t.Errorf("error = %q, want desync report", msg)
	}
	if c.Connected() {
		t.Error("bad magic must close the connection")
	}
	if m, ok := c.NextMessage(); ok {
		t.Errorf("no message may follow a desync, got %v", m)
	}
}

// TestClient_OversizedLineCloses verifies a line that outgrows the
// pending buffer without a newline drops the connection.
func TestClient_OversizedLineCloses(t *testing.T) {
	host, port := serve(t, func(conn net.Conn) {
		conn.Write(bytes.Repeat([]byte("x"), maxPendingLine+1024)) //nolint:errcheck
		drainUntilClosed(conn)
	})

	c := newTestClient(host, port, nil)
	if err := c.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer c.Close()

	msg := nextError(t, c)
	if !strings.Contains(msg, "without newline") {
		t.Errorf("error = %q, want oversized line report", msg)
	}
	if c.Connected() {
		t.Error("oversized line must close the connection")
	}
	if m, ok := c.NextMessage(); ok {
		t.Errorf("no message may follow an oversized line, got %v", m)
	}
}

// TestClient_PeerClose verifies EOF is reported and the client becomes
// disconnected before the error is visible.
func TestClient_PeerClose(t *testing.T) {
	host, port := serve(t, func(conn net.Conn) {})

	c := newTestClient(host, port, nil)
	if err := c.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer c.Close()

	msg := nextError(t, c)
	if msg != "disconnected by peer" {
		t.Errorf("error = %q", msg)
	}
	if c.Connected() {
		t.Error("expected disconnected after peer close")
	}
}

// TestClient_Send verifies the encoded frame reaches the server.
func TestClient_Send(t *testing.T) {
	got := make(chan string, 1)
	host, port := serve(t, func(conn net.Conn) {
		line, _ := bufio.NewReader(conn).ReadString('\n')
		got <- line
		drainUntilClosed(conn)
	})

	c := newTestClient(host, port, nil)
	if err := c.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer c.Close()

	if err := c.Send(protocol.ReqLogin, "alice"); err != nil {
		t.Fatalf("Send: %v", err)
	}
	select {
	case line := <-got:
		if line != "MRLLN|REQ_LOGIN|alice|\n" {
			t.Errorf("server got %q", line)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("server never received the frame")
	}
}

func TestClient_SendNotConnected(t *testing.T) {
	c := newTestClient("127.0.0.1", 1, nil)
	err := c.Send(protocol.ReqPing)
	if !errors.Is(err, ncerr.ErrNotConnected) {
		t.Errorf("Send = %v, want ErrNotConnected", err)
	}
}

// TestClient_CloseIdempotent verifies Close stops the reader quietly.
func TestClient_CloseIdempotent(t *testing.T) {
	host, port := serve(t, drainUntilClosed)

	c := newTestClient(host, port, nil)
	if err := c.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	conn := c.conn

	if err := c.Close(); err != nil {
		t.Errorf("first Close: %v", err)
	}
	if err := c.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
	if c.Connected() {
		t.Error("expected disconnected after Close")
	}

	select {
	case <-conn.done:
	case <-time.After(3 * time.Second):
		t.Fatal("reader did not exit after Close")
	}
	if msg, ok := c.NextError(); ok {
		t.Errorf("local close must not report an error, got %q", msg)
	}
}

func TestClient_ConnectRefused(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	host, port, _ := util.SplitAddr(ln.Addr().String())
	ln.Close()

	c := newTestClient(host, port, nil)
	if err := c.Connect(context.Background()); err == nil {
		t.Fatal("expected connect error")
	}
	if c.Connected() {
		t.Error("failed connect must leave the client disconnected")
	}
}

// TestClient_ConnectWhileConnected verifies a second Connect is a no-op.
func TestClient_ConnectWhileConnected(t *testing.T) {
	host, port := serve(t, drainUntilClosed, drainUntilClosed)
	d := &countingDialer{}

	c := newTestClient(host, port, d)
	defer c.Close()
	for i := 0; i < 2; i++ {
		if err := c.Connect(context.Background()); err != nil {
			t.Fatalf("Connect #%d: %v", i+1, err)
		}
	}
	if n := d.dials.Load(); n != 1 {
		t.Errorf("dials = %d, want 1", n)
	}
}

// TestClient_ReconnectAfterPeerClose verifies the stale reader does not
// clobber a newer connection.
func TestClient_ReconnectAfterPeerClose(t *testing.T) {
	host, port := serve(t,
		func(conn net.Conn) {},
		func(conn net.Conn) {
			conn.Write([]byte("MRLLN|RES_PING|2|\n")) //nolint:errcheck
			drainUntilClosed(conn)
		},
	)

	c := newTestClient(host, port, nil)
	defer c.Close()
	if err := c.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if msg := nextError(t, c); msg != "disconnected by peer" {
		t.Fatalf("error = %q", msg)
	}

	if err := c.Connect(context.Background()); err != nil {
		t.Fatalf("reconnect: %v", err)
	}
	msgs := collect(t, c, 1)
	if msgs[0].Param(0) != "2" {
		t.Errorf("got %v from second connection", msgs[0])
	}
	if !c.Connected() {
		t.Error("expected connected after reconnect")
	}
}

// TestClient_WebSocket verifies the line protocol over text frames.
func TestClient_WebSocket(t *testing.T) {
	got := make(chan string, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		defer ws.Close(websocket.StatusNormalClosure, "")

		ctx := r.Context()
		if err := ws.Write(ctx, websocket.MessageText, []byte("MRLLN|RES_PING|ws|\n")); err != nil {
			return
		}
		_, data, err := ws.Read(ctx)
		if err != nil {
			return
		}
		got <- string(data)
		ws.Read(ctx) //nolint:errcheck
	}))
	defer srv.Close()

	host, port, err := util.SplitAddr(srv.Listener.Addr().String())
	if err != nil {
		t.Fatal(err)
	}

	c := newTestClient(host, port, &WebSocketDialer{})
	if err := c.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer c.Close()

	msgs := collect(t, c, 1)
	if msgs[0].Type != protocol.ResPing || msgs[0].Param(0) != "ws" {
		t.Fatalf("got %v", msgs[0])
	}

	if err := c.Send(protocol.ReqPong, "ws"); err != nil {
		t.Fatalf("Send: %v", err)
	}
	select {
	case frame := <-got:
		if frame != "MRLLN|REQ_PONG|ws|\n" {
			t.Errorf("server got %q", frame)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("server never received the frame")
	}
}

// TestClient_Metrics verifies traffic is counted.
func TestClient_Metrics(t *testing.T) {
	host, port := serve(t, func(conn net.Conn) {
		conn.Write([]byte("MRLLN|RES_PING|1|\n")) //nolint:errcheck
		drainUntilClosed(conn)
	})

	m := metrics.New()
	c := NewClient(host, port, &TCPDialer{}, Options{
		ReadPoll: 20 * time.Millisecond,
		Logger:   quietLogger(),
		Metrics:  m,
	})
	if err := c.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	collect(t, c, 1)
	if err := c.Send(protocol.ReqPong, "1"); err != nil {
		t.Fatalf("Send: %v", err)
	}
	c.Close()

	waitFor(t, "connection count to settle", func() bool { return m.Value(metrics.ConnectionsActive) == 0 })
	if m.Value(metrics.ConnectionsTotal) != 1 || m.Value(metrics.MessagesIn) != 1 || m.Value(metrics.MessagesOut) != 1 {
		t.Errorf("snapshot = %s", m.JSON())
	}
	if m.Value(metrics.BytesIn) != int64(len("MRLLN|RES_PING|1|\n")) {
		t.Errorf("bytes in = %d", m.Value(metrics.BytesIn))
	}
}
