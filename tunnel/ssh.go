package tunnel

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"

	ncerr "rpsclient/internal/errors"
	"rpsclient/internal/retry"
	"rpsclient/util"
)

const (
	defaultSSHPort    = 22
	defaultSSHTimeout = 10 * time.Second
)

// SSHConfig describes the gateway and how to authenticate to it.
type SSHConfig struct {
	Host        string
	Port        int
	User        string
	ConnTimeout time.Duration

	// Retries is how many times dial plus handshake are attempted
	// before Connect gives up.  Credential and host-key failures are
	// never retried.
	Retries int

	KeyPath    string
	UseAgent   bool
	PromptPass bool

	StrictHostKey bool
	KnownHosts    string
}

// Addr returns host:port of the gateway.
func (c *SSHConfig) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// SSHTunnel implements [Tunnel] over one ssh.Client.  Game streams are
// direct-tcpip channels on that client.  The tunnel is alive exactly
// while it holds a client.
type SSHTunnel struct {
	cfg     *SSHConfig
	backoff *retry.Backoff
	logger  *util.Logger

	mu     sync.RWMutex
	client *ssh.Client
}

// NewSSHTunnel fills in defaults on cfg and returns an unconnected
// tunnel.
func NewSSHTunnel(cfg *SSHConfig, logger *util.Logger) *SSHTunnel {
	if cfg.Port == 0 {
		cfg.Port = defaultSSHPort
	}
	if cfg.ConnTimeout == 0 {
		cfg.ConnTimeout = defaultSSHTimeout
	}
	if cfg.Retries <= 0 {
		cfg.Retries = 1
	}
	return &SSHTunnel{
		cfg: cfg,
		backoff: &retry.Backoff{
			InitialDelay: 500 * time.Millisecond,
			MaxDelay:     4 * time.Second,
			Multiplier:   2.0,
			MaxAttempts:  cfg.Retries,
			Jitter:       true,
		},
		logger: logger,
	}
}

func (t *SSHTunnel) clientConfig() (*ssh.ClientConfig, error) {
	auth, err := BuildAuthMethods(t.cfg)
	if err != nil {
		return nil, ncerr.WrapSSH("auth", t.cfg.Host, t.cfg.Port, err)
	}
	hostKeys, err := hostKeyCallback(t.cfg)
	if err != nil {
		return nil, ncerr.WrapSSH("hostkey", t.cfg.Host, t.cfg.Port, err)
	}
	return &ssh.ClientConfig{
		User:            t.cfg.User,
		Auth:            auth,
		HostKeyCallback: hostKeys,
		Timeout:         t.cfg.ConnTimeout,
	}, nil
}

// Connect opens the gateway session, retrying transient failures.
func (t *SSHTunnel) Connect(ctx context.Context) error {
	sshCfg, err := t.clientConfig()
	if err != nil {
		return err
	}

	var client *ssh.Client
	err = t.backoff.Do(ctx, func(attempt int) error {
		c, err := t.handshake(ctx, sshCfg)
		if err != nil {
			t.logger.Verbose("gateway attempt %d/%d failed: %v", attempt, t.cfg.Retries, err)
			return err
		}
		client = c
		return nil
	})
	if err != nil {
		return err
	}

	t.mu.Lock()
	old := t.client
	t.client = client
	t.mu.Unlock()
	if old != nil {
		old.Close()
	}

	go t.monitor(client)
	return nil
}

// handshake performs one dial plus SSH handshake.  Failures a retry
// cannot fix are marked permanent.
func (t *SSHTunnel) handshake(ctx context.Context, sshCfg *ssh.ClientConfig) (*ssh.Client, error) {
	addr := t.cfg.Addr()
	t.logger.Debug("gateway: dialing %s as %s", addr, t.cfg.User)

	dialCtx, cancel := context.WithTimeout(ctx, t.cfg.ConnTimeout)
	defer cancel()

	var d net.Dialer
	conn, err := d.DialContext(dialCtx, "tcp", addr)
	if err != nil {
		werr := ncerr.Wrap("dial", addr, err)
		if !werr.Retryable {
			return nil, retry.Permanent(werr)
		}
		return nil, werr
	}

	sshConn, chans, reqs, err := ssh.NewClientConn(conn, addr, sshCfg)
	if err != nil {
		conn.Close()
		werr := ncerr.WrapSSH("handshake", t.cfg.Host, t.cfg.Port, err)
		if isAuthFailure(err) {
			return nil, retry.Permanent(werr)
		}
		return nil, werr
	}
	return ssh.NewClient(sshConn, chans, reqs), nil
}

// isAuthFailure reports whether err came from rejected credentials or
// a host key mismatch.
func isAuthFailure(err error) bool {
	var keyErr *knownhosts.KeyError
	if errors.As(err, &keyErr) {
		return true
	}
	msg := err.Error()
	for _, s := range []string{"unable to authenticate", "no supported methods remain", "knownhosts:"} {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}

func (t *SSHTunnel) current() *ssh.Client {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.client
}

// Dial opens a stream to address on the far side of the gateway.
func (t *SSHTunnel) Dial(ctx context.Context, network, address string) (net.Conn, error) {
	client := t.current()
	if client == nil {
		return nil, ncerr.ErrTunnelClosed
	}
	t.logger.Debug("gateway: opening %s %s", network, address)
	conn, err := client.DialContext(ctx, network, address)
	if err != nil {
		return nil, fmt.Errorf("tunnel dial %s: %w", address, err)
	}
	return conn, nil
}

// Close ends the gateway session.  Closing an unconnected tunnel is a
// no-op.
func (t *SSHTunnel) Close() error {
	t.mu.Lock()
	client := t.client
	t.client = nil
	t.mu.Unlock()
	if client == nil {
		return nil
	}
	return client.Close()
}

func (t *SSHTunnel) IsAlive() bool { return t.current() != nil }

// monitor waits for the gateway connection to end and forgets the
// client so the transport reopens the gateway on its next dial.
func (t *SSHTunnel) monitor(client *ssh.Client) {
	err := client.Wait()

	t.mu.Lock()
	if t.client == client {
		t.client = nil
	}
	t.mu.Unlock()

	t.logger.Verbose("gateway closed: %v", err)
}
