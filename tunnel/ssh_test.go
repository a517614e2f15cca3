package tunnel

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"time"

	ncerr "rpsclient/internal/errors"
	"rpsclient/util"
)

func TestNewSSHTunnel_Defaults(t *testing.T) {
	cfg := &SSHConfig{Host: "bastion"}
	NewSSHTunnel(cfg, util.NewLogger(0))

	if cfg.Port != 22 {
		t.Errorf("Port = %d, want 22", cfg.Port)
	}
	if cfg.Retries != 1 {
		t.Errorf("Retries = %d, want 1", cfg.Retries)
	}
	if cfg.ConnTimeout <= 0 {
		t.Error("ConnTimeout should default to a positive value")
	}
	if got := cfg.Addr(); got != "bastion:22" {
		t.Errorf("Addr() = %q", got)
	}
}

func TestSSHTunnel_DialBeforeConnect(t *testing.T) {
	tun := NewSSHTunnel(&SSHConfig{Host: "bastion"}, util.NewLogger(0))
	if tun.IsAlive() {
		t.Fatal("new tunnel should not be alive")
	}
	_, err := tun.Dial(context.Background(), "tcp", "127.0.0.1:10000")
	if !errors.Is(err, ncerr.ErrTunnelClosed) {
		t.Errorf("err = %v, want ErrTunnelClosed", err)
	}
	if err := tun.Close(); err != nil {
		t.Errorf("Close on an unconnected tunnel: %v", err)
	}
}

// TestSSHTunnel_ConnectRefused verifies the handshake is retried and
// the final error names the gateway.
func TestSSHTunnel_ConnectRefused(t *testing.T) {
	port, err := util.FindFreePort()
	if err != nil {
		t.Fatal(err)
	}

	keyPath := filepath.Join(t.TempDir(), "id_test")
	writeTestKey(t, keyPath)

	tun := NewSSHTunnel(&SSHConfig{
		User:        "player",
		Host:        "127.0.0.1",
		Port:        port,
		KeyPath:     keyPath,
		ConnTimeout: time.Second,
		Retries:     2,
	}, util.NewLogger(0))

	start := time.Now()
	err = tun.Connect(context.Background())
	if err == nil {
		t.Fatal("expected connect to fail")
	}
	if !strings.Contains(err.Error(), "max retries (2)") {
		t.Errorf("error should report the retry budget: %v", err)
	}
	if elapsed := time.Since(start); elapsed < 300*time.Millisecond {
		t.Errorf("second attempt should wait for the backoff, took %v", elapsed)
	}
	if tun.IsAlive() {
		t.Error("failed tunnel must not report alive")
	}
}

func TestIsAuthFailure(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{fmt.Errorf("ssh: handshake failed: ssh: unable to authenticate, attempted methods [none publickey]"), true},
		{fmt.Errorf("ssh: handshake failed: knownhosts: key is unknown"), true},
		{fmt.Errorf("ssh: handshake failed: EOF"), false},
		{fmt.Errorf("read: connection reset by peer"), false},
	}
	for _, tt := range tests {
		if got := isAuthFailure(tt.err); got != tt.want {
			t.Errorf("isAuthFailure(%q) = %v, want %v", tt.err, got, tt.want)
		}
	}
}
