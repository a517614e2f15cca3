package util

import (
	"bytes"
	"strings"
	"testing"
)

func newTestLogger(verbosity int) (*Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	l := NewLogger(verbosity)
	l.SetOutput(&buf)
	l.SetTimestamps(false)
	return l, &buf
}

func TestLogger_Verbosity(t *testing.T) {
	tests := []struct {
		verbosity int
		wantTags  []string
	}{
		{0, []string{"ERR"}},
		{1, []string{"ERR", "WRN", "INF"}},
		{2, []string{"ERR", "WRN", "INF", "DBG"}},
		{3, []string{"ERR", "WRN", "INF", "DBG", "DBG"}},
	}
	for _, tt := range tests {
		l, buf := newTestLogger(tt.verbosity)
		l.Error("reconnect failed")
		l.Warn("stale transport error")
		l.Info("connected to %s", "game.lan:10000")
		l.Verbose("-> REQ_PING")
		l.Debug("read %d bytes", 18)

		lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
		if len(lines) != len(tt.wantTags) {
			t.Errorf("verbosity %d: got %d lines, want %d:\n%s", tt.verbosity, len(lines), len(tt.wantTags), buf.String())
			continue
		}
		for i, tag := range tt.wantTags {
			if !strings.Contains(lines[i], tag) {
				t.Errorf("verbosity %d line %d %q missing %q", tt.verbosity, i, lines[i], tag)
			}
		}
	}
}

func TestLogger_DebugTrace(t *testing.T) {
	l, buf := newTestLogger(3)
	l.Verbose("plain")
	l.Debug("traced")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("lines = %q", lines)
	}
	if strings.Contains(lines[0], "trace=true") || !strings.Contains(lines[1], "trace=true") {
		t.Errorf("only Debug should carry the trace marker: %q", lines)
	}
}

func TestLogger_Formats(t *testing.T) {
	l, buf := newTestLogger(1)
	l.Info("round %d of %d", 2, 3)
	if !strings.Contains(buf.String(), "round 2 of 3") {
		t.Errorf("output = %q", buf.String())
	}
}

func TestLogger_Zerolog(t *testing.T) {
	l, buf := newTestLogger(1)
	zl := l.Zerolog()
	zl.Info().Str("transport", "tcp").Int("port", 10000).Msg("starting")

	out := buf.String()
	for _, want := range []string{"starting", "transport=tcp", "port=10000"} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in %q", want, out)
		}
	}
}

func TestLogger_Timestamps(t *testing.T) {
	l, buf := newTestLogger(1)
	l.SetTimestamps(true)
	l.Info("tick")

	// HH:MM:SS.mmm
	if strings.Count(buf.String(), ":") < 2 {
		t.Errorf("expected a timestamp, got %q", buf.String())
	}
}

func TestLogger_Nil(t *testing.T) {
	var l *Logger
	l.Info("no panic")
	l.Error("no panic")
}
