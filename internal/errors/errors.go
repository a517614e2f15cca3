// Package errors holds the failure vocabulary shared by the transport,
// the SSH gateway and the session layer.
//
// [OpError] records which socket operation failed and whether a
// reconnect could plausibly cure it.  The driver consults [IsRetryable]
// and [IsTimeout] instead of matching on error strings.
package errors

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
)

var (
	ErrNotConnected       = errors.New("not connected")
	ErrTimeout            = errors.New("operation timed out")
	ErrHeartbeatLost      = errors.New("server heartbeat lost")
	ErrReconnectExhausted = errors.New("reconnect attempts exhausted")
	ErrTunnelClosed       = errors.New("tunnel is closed")
	ErrActionRejected     = errors.New("action not allowed in current state")
)

// OpError is a failed dial, read, write or close against the game
// server or the SSH gateway.
type OpError struct {
	Op   string
	Addr string
	Err  error

	// Retryable marks failures a later reconnect may cure.
	Retryable bool
}

func (e *OpError) Error() string {
	var b strings.Builder
	b.WriteString(e.Op)
	b.WriteByte(' ')
	b.WriteString(e.Addr)
	b.WriteString(": ")
	fmt.Fprint(&b, e.Err)
	if e.Retryable {
		b.WriteString(" (retryable)")
	}
	return b.String()
}

func (e *OpError) Unwrap() error { return e.Err }

// Wrap records a failed socket operation on addr.
func Wrap(op, addr string, err error) *OpError {
	return &OpError{Op: op, Addr: addr, Err: err, Retryable: transient(err)}
}

// WrapSSH records a failed gateway step ("auth", "hostkey",
// "handshake").  Gateway failures are never retryable on their own;
// the tunnel decides that from the underlying dial error.
func WrapSSH(step, host string, port int, err error) *OpError {
	addr := net.JoinHostPort(host, strconv.Itoa(port))
	return &OpError{Op: "ssh " + step, Addr: addr, Err: err}
}

// ConfigError is an invalid configuration value.  Field names the flag
// that sets it, so the message reads as "--field=value".
type ConfigError struct {
	Field   string
	Value   any // nil when the value is missing
	Message string
	Hint    string
}

func (e *ConfigError) Error() string {
	var b strings.Builder
	b.WriteString("config: --")
	b.WriteString(e.Field)
	if e.Value != nil {
		fmt.Fprintf(&b, "=%v", e.Value)
	}
	b.WriteString(": ")
	b.WriteString(e.Message)
	if e.Hint != "" {
		b.WriteString("\n  hint: ")
		b.WriteString(e.Hint)
	}
	return b.String()
}

// IsRetryable reports whether err is worth another attempt.
func IsRetryable(err error) bool {
	var oe *OpError
	if errors.As(err, &oe) {
		return oe.Retryable
	}
	return transient(err)
}

// IsTimeout reports whether err is a deadline expiry.  The transport
// reader polls with short read deadlines, so a timeout there is not a
// failure.
func IsTimeout(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, os.ErrDeadlineExceeded) || errors.Is(err, ErrTimeout) {
		return true
	}
	var nerr net.Error
	return errors.As(err, &nerr) && nerr.Timeout()
}

// IsClosed reports whether err comes from a connection this process
// already closed.
func IsClosed(err error) bool {
	return errors.Is(err, net.ErrClosed)
}

// transient classifies standard library errors.  Timeouts and refused
// dials are expected while a game server restarts.
func transient(err error) bool {
	switch {
	case err == nil:
		return false
	case IsTimeout(err):
		return true
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return opErr.Op == "dial"
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return dnsErr.IsTemporary || dnsErr.IsTimeout
	}
	return false
}
