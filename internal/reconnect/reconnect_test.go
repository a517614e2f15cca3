package reconnect

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	ncerr "rpsclient/internal/errors"
	"rpsclient/internal/metrics"
	"rpsclient/internal/retry"
	"rpsclient/protocol"
	"rpsclient/util"
)

type fakeLink struct {
	failConnects int
	connects     int
	closes       int
	sent         []protocol.Message
}

func (f *fakeLink) Connect(context.Context) error {
	f.connects++
	if f.connects <= f.failConnects {
		return errors.New("connection refused")
	}
	return nil
}

func (f *fakeLink) Send(typ string, params ...string) error {
	f.sent = append(f.sent, protocol.New(typ, params...))
	return nil
}

func (f *fakeLink) Close() error {
	f.closes++
	return nil
}

func quiet() *util.Logger {
	l := util.NewLogger(0)
	l.SetOutput(io.Discard)
	return l
}

func schedule() *retry.Backoff {
	return &retry.Backoff{
		InitialDelay: time.Second,
		MaxDelay:     10 * time.Second,
		Multiplier:   2,
		MaxAttempts:  3,
	}
}

// TestTick_OneAttemptAfterCooldown verifies exactly one attempt and one
// login resend once the cooldown expires.
func TestTick_OneAttemptAfterCooldown(t *testing.T) {
	link := &fakeLink{}
	col := metrics.New()
	s := New(link, schedule(), quiet(), col)
	now := time.Unix(1000, 0)

	if out, _ := s.Tick(context.Background(), now); out != Idle {
		t.Fatalf("disarmed Tick = %s, want idle", out)
	}

	s.Arm(now, "alice")
	if out, _ := s.Tick(context.Background(), now.Add(500*time.Millisecond)); out != Waiting {
		t.Fatalf("Tick before cooldown = %s, want waiting", out)
	}
	if link.connects != 0 {
		t.Fatal("dialled before cooldown")
	}

	out, err := s.Tick(context.Background(), now.Add(time.Second))
	if out != Reconnected || err != nil {
		t.Fatalf("Tick = %s, %v", out, err)
	}
	if link.connects != 1 {
		t.Errorf("connects = %d, want 1", link.connects)
	}
	if len(link.sent) != 1 || link.sent[0].Type != protocol.ReqLogin || link.sent[0].Param(0) != "alice" {
		t.Errorf("sent = %v, want one REQ_LOGIN alice", link.sent)
	}
	if s.Armed() {
		t.Error("supervisor should disarm after success")
	}

	if out, _ := s.Tick(context.Background(), now.Add(time.Minute)); out != Idle {
		t.Errorf("Tick after success = %s, want idle", out)
	}
	if col.Value(metrics.Reconnects) != 1 || col.Value(metrics.ReconnectAttempts) != 1 {
		t.Errorf("metrics = %s", col.JSON())
	}
}

func TestTick_BackoffThenGiveUp(t *testing.T) {
	link := &fakeLink{failConnects: 100}
	s := New(link, schedule(), quiet(), nil)
	now := time.Unix(1000, 0)
	s.Arm(now, "bob")

	now = now.Add(time.Second)
	if out, err := s.Tick(context.Background(), now); out != Retrying || err == nil {
		t.Fatalf("attempt 1 = %s, %v", out, err)
	}

	// Next attempt waits Delay(2) = 2s.
	if out, _ := s.Tick(context.Background(), now.Add(1900*time.Millisecond)); out != Waiting {
		t.Fatalf("early tick = %s, want waiting", out)
	}
	now = now.Add(2 * time.Second)
	if out, _ := s.Tick(context.Background(), now); out != Retrying {
		t.Fatalf("attempt 2 = %s", out)
	}

	now = now.Add(4 * time.Second)
	out, err := s.Tick(context.Background(), now)
	if out != GaveUp {
		t.Fatalf("attempt 3 = %s, want gave-up", out)
	}
	if !errors.Is(err, ncerr.ErrReconnectExhausted) {
		t.Errorf("err = %v, want ErrReconnectExhausted", err)
	}
	if link.connects != 3 || len(link.sent) != 0 {
		t.Errorf("connects=%d sent=%d", link.connects, len(link.sent))
	}
	if s.Armed() {
		t.Error("supervisor should disarm after giving up")
	}
}

// TestArm_Idempotent verifies a stale error does not reset the schedule.
func TestArm_Idempotent(t *testing.T) {
	link := &fakeLink{}
	s := New(link, schedule(), quiet(), nil)
	now := time.Unix(1000, 0)

	s.Arm(now, "alice")
	s.Arm(now.Add(900*time.Millisecond), "alice")

	if out, _ := s.Tick(context.Background(), now.Add(time.Second)); out != Reconnected {
		t.Errorf("Tick = %s, want reconnected on the first schedule", out)
	}
}

func TestDisarm(t *testing.T) {
	link := &fakeLink{}
	s := New(link, nil, quiet(), nil)
	now := time.Unix(1000, 0)

	s.Arm(now, "alice")
	s.Disarm()
	if out, _ := s.Tick(context.Background(), now.Add(time.Hour)); out != Idle {
		t.Errorf("Tick = %s, want idle", out)
	}
	if link.connects != 0 {
		t.Error("disarmed supervisor dialled")
	}
}

func TestOutcome_String(t *testing.T) {
	want := map[Outcome]string{
		Idle:        "idle",
		Waiting:     "waiting",
		Retrying:    "retrying",
		Reconnected: "reconnected",
		GaveUp:      "gave-up",
		Outcome(42): "unknown",
	}
	for o, s := range want {
		if o.String() != s {
			t.Errorf("%d.String() = %q, want %q", o, o.String(), s)
		}
	}
}
