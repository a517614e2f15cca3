package heartbeat

import (
	"errors"
	"io"
	"testing"
	"time"

	ncerr "rpsclient/internal/errors"
	"rpsclient/internal/metrics"
	"rpsclient/internal/session"
	"rpsclient/protocol"
	"rpsclient/util"
)

type fakeLink struct {
	connected bool
	closes    int
	sent      []string
}

func (f *fakeLink) Connected() bool { return f.connected }

func (f *fakeLink) Send(typ string, _ ...string) error {
	if !f.connected {
		return ncerr.ErrNotConnected
	}
	f.sent = append(f.sent, typ)
	return nil
}

func (f *fakeLink) Close() error {
	f.closes++
	f.connected = false
	return nil
}

func newMonitor(link Link, m *metrics.Collector) *Monitor {
	l := util.NewLogger(0)
	l.SetOutput(io.Discard)
	return New(link, 20*time.Second, 1500*time.Millisecond, l, m)
}

// TestWatch_FiresOnceAfterSilence verifies a silent active session is
// closed exactly once and LastContact is reset.
func TestWatch_FiresOnceAfterSilence(t *testing.T) {
	link := &fakeLink{connected: true}
	col := metrics.New()
	mon := newMonitor(link, col)

	c := session.NewContext()
	c.Scene = session.SceneGame
	start := time.Unix(1000, 0)
	c.LastContact = start

	if err := mon.Watch(start.Add(20*time.Second), c); err != nil {
		t.Fatalf("fired at exactly the threshold: %v", err)
	}

	err := mon.Watch(start.Add(21*time.Second), c)
	if !errors.Is(err, ncerr.ErrHeartbeatLost) {
		t.Fatalf("Watch = %v, want ErrHeartbeatLost", err)
	}
	if link.closes != 1 {
		t.Errorf("closes = %d, want 1", link.closes)
	}
	if !c.LastContact.IsZero() {
		t.Error("LastContact must be cleared")
	}

	// Reconnected but no traffic yet: LastContact unset, no second fire.
	link.connected = true
	if err := mon.Watch(start.Add(60*time.Second), c); err != nil {
		t.Errorf("fired twice: %v", err)
	}
	if link.closes != 1 || col.Value(metrics.HeartbeatTimeouts) != 1 {
		t.Errorf("closes=%d timeouts=%d, want 1/1", link.closes, col.Value(metrics.HeartbeatTimeouts))
	}
}

func TestWatch_Guards(t *testing.T) {
	start := time.Unix(1000, 0)
	late := start.Add(time.Minute)

	tests := []struct {
		name      string
		connected bool
		scene     session.Scene
		contact   time.Time
	}{
		{"connect scene", true, session.SceneConnect, start},
		{"not connected", false, session.SceneLobby, start},
		{"no contact yet", true, session.SceneLobby, time.Time{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			link := &fakeLink{connected: tt.connected}
			mon := newMonitor(link, nil)
			c := session.NewContext()
			c.Scene = tt.scene
			c.LastContact = tt.contact

			if err := mon.Watch(late, c); err != nil {
				t.Errorf("Watch = %v, want nil", err)
			}
			if link.closes != 0 {
				t.Error("watchdog closed the link")
			}
		})
	}
}

func TestKeepalive_Interval(t *testing.T) {
	link := &fakeLink{connected: true}
	mon := newMonitor(link, nil)
	c := session.NewContext()
	c.Scene = session.SceneLobby

	for i := 0; i < 100; i++ { // 1.6s in 16ms steps
		if err := mon.Keepalive(16*time.Millisecond, c); err != nil {
			t.Fatalf("Keepalive: %v", err)
		}
	}
	if len(link.sent) != 1 || link.sent[0] != protocol.ReqPing {
		t.Errorf("sent = %v, want one REQ_PING", link.sent)
	}
}

func TestKeepalive_IdleOutsideSession(t *testing.T) {
	link := &fakeLink{connected: true}
	mon := newMonitor(link, nil)
	c := session.NewContext()

	for i := 0; i < 10; i++ {
		mon.Keepalive(time.Second, c) //nolint:errcheck
	}
	if len(link.sent) != 0 {
		t.Errorf("keepalive sent in connect scene: %v", link.sent)
	}

	// The accumulator restarts once the session becomes active.
	c.Scene = session.SceneGame
	if err := mon.Keepalive(time.Second, c); err != nil {
		t.Fatal(err)
	}
	if len(link.sent) != 0 {
		t.Error("keepalive fired before a full interval in session")
	}
}

func TestNew_Defaults(t *testing.T) {
	mon := New(&fakeLink{}, 0, 0, nil, nil)
	if mon.timeout != DefaultTimeout || mon.interval != DefaultInterval {
		t.Errorf("timeout=%v interval=%v", mon.timeout, mon.interval)
	}
}
