// Package metrics counts what a game client session does on the wire
// and how often it had to recover.
//
// All methods are safe for concurrent use.  A nil *Collector is a
// valid no-op receiver, so callers never need to nil-check.
package metrics

import (
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"
)

// Counter names one tracked value.
type Counter int

const (
	ConnectionsActive Counter = iota
	ConnectionsTotal
	BytesIn
	BytesOut
	MessagesIn
	MessagesOut
	DecodeErrors
	ReconnectAttempts
	Reconnects
	HeartbeatTimeouts
	Errors

	numCounters
)

type descriptor struct {
	key       string
	subsystem string
	help      string
	gauge     bool
}

var descriptors = [numCounters]descriptor{
	ConnectionsActive: {"connections_active", "transport", "Open connections to the game server.", true},
	ConnectionsTotal:  {"connections_total", "transport", "Connections opened.", false},
	BytesIn:           {"bytes_received_total", "transport", "Bytes read from the server.", false},
	BytesOut:          {"bytes_sent_total", "transport", "Bytes written to the server.", false},
	MessagesIn:        {"messages_received_total", "protocol", "Decoded inbound messages.", false},
	MessagesOut:       {"messages_sent_total", "protocol", "Frames sent.", false},
	DecodeErrors:      {"decode_errors_total", "protocol", "Malformed or desynchronised lines.", false},
	ReconnectAttempts: {"reconnect_attempts_total", "session", "Reconnect dials.", false},
	Reconnects:        {"reconnects_total", "session", "Successful reconnects.", false},
	HeartbeatTimeouts: {"heartbeat_timeouts_total", "session", "Watchdog firings.", false},
	Errors:            {"errors_total", "", "Errors recorded.", false},
}

// Key returns the snapshot key for c.
func (c Counter) Key() string { return descriptors[c].key }

// Collector tracks runtime metrics for one client process.
type Collector struct {
	counters [numCounters]atomic.Int64

	mu          sync.RWMutex
	started     time.Time
	lastContact time.Time
	lastError   time.Time
	lastErrMsg  string
}

// New creates a collector whose uptime starts now.
func New() *Collector {
	return &Collector{started: time.Now()}
}

func (c *Collector) add(k Counter, n int64) {
	if c == nil {
		return
	}
	c.counters[k].Add(n)
}

// Value returns the current value of k.
func (c *Collector) Value(k Counter) int64 {
	if c == nil {
		return 0
	}
	return c.counters[k].Load()
}

func (c *Collector) ConnectionOpened() {
	c.add(ConnectionsActive, 1)
	c.add(ConnectionsTotal, 1)
}

func (c *Collector) ConnectionClosed() { c.add(ConnectionsActive, -1) }
func (c *Collector) BytesReceived(n int64) { c.add(BytesIn, n) }
func (c *Collector) BytesSent(n int64) { c.add(BytesOut, n) }
func (c *Collector) MessageReceived() { c.add(MessagesIn, 1) }
func (c *Collector) MessageSent() { c.add(MessagesOut, 1) }
func (c *Collector) DecodeError() { c.add(DecodeErrors, 1) }
func (c *Collector) ReconnectAttempt() { c.add(ReconnectAttempts, 1) }
func (c *Collector) Reconnected() { c.add(Reconnects, 1) }
func (c *Collector) HeartbeatTimeout() { c.add(HeartbeatTimeouts, 1) }

// Contact records the arrival time of the last inbound message.
func (c *Collector) Contact(at time.Time) {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.lastContact = at
	c.mu.Unlock()
}

// RecordError counts an error and remembers its message.
func (c *Collector) RecordError(msg string) {
	if c == nil {
		return
	}
	c.add(Errors, 1)
	c.mu.Lock()
	c.lastError = time.Now()
	c.lastErrMsg = msg
	c.mu.Unlock()
}

// Snapshot is a point-in-time view of a Collector.
type Snapshot struct {
	Uptime      string           `json:"uptime"`
	Counters    map[string]int64 `json:"counters"`
	LastContact string           `json:"last_contact,omitempty"`
	LastError   string           `json:"last_error,omitempty"`
	LastErrMsg  string           `json:"last_error_message,omitempty"`
}

// Snapshot copies the current values.
func (c *Collector) Snapshot() Snapshot {
	s := Snapshot{Counters: make(map[string]int64, numCounters)}
	if c == nil {
		return s
	}
	for k := Counter(0); k < numCounters; k++ {
		s.Counters[k.Key()] = c.counters[k].Load()
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	s.Uptime = time.Since(c.started).Truncate(time.Second).String()
	if !c.lastContact.IsZero() {
		s.LastContact = c.lastContact.Format(time.RFC3339)
	}
	if !c.lastError.IsZero() {
		s.LastError = c.lastError.Format(time.RFC3339)
		s.LastErrMsg = c.lastErrMsg
	}
	return s
}

// JSON renders the snapshot as indented JSON.
func (c *Collector) JSON() string {
	data, _ := json.MarshalIndent(c.Snapshot(), "", "  ")
	return string(data)
}
