// Package session is the client's session state machine.  It turns
// inbound protocol events and local player actions into scene
// transitions and user-visible side effects (toasts, log lines, stored
// match data).
//
// All state lives in a [Context] owned by the tick loop and passed
// explicitly into every [Machine] call.  Nothing here is safe for
// concurrent use; the transport reader never touches it.
package session

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"rpsclient/protocol"
)

// Verdict is a finished round or match seen from the player's side.
type Verdict int

const (
	VerdictUnknown Verdict = iota
	VerdictWin
	VerdictLoss
	VerdictDraw
)

func (v Verdict) String() string {
	switch v {
	case VerdictWin:
		return "VICTORY"
	case VerdictLoss:
		return "DEFEAT"
	case VerdictDraw:
		return "DRAW"
	}
	return "?"
}

// verdictFor compares a winner id against the player's id.  Winner 0
// is a draw; a player id that is not numeric yields VerdictUnknown.
func verdictFor(winner int, self string) Verdict {
	if winner == 0 {
		return VerdictDraw
	}
	me, err := strconv.Atoi(strings.TrimSpace(self))
	if err != nil {
		return VerdictUnknown
	}
	if winner == me {
		return VerdictWin
	}
	return VerdictLoss
}

// Round is the outcome of the last round plus the player's own move,
// recorded before the move is cleared.
type Round struct {
	protocol.RoundResult
	MyMove  string
	Verdict Verdict
}

// Match is the final outcome of a match.
type Match struct {
	protocol.MatchResult
	Verdict Verdict
}

// Context is the long-lived session state.  It is created once at
// startup and mutated only by the [Machine] and the tick driver.
type Context struct {
	Scene Scene

	// Username survives transient disconnects and is cleared only by
	// an explicit logout.
	Username string
	UserID   string

	LobbyName string
	LobbyID   string
	InLobby   bool
	InGame    bool

	// Per-round scratch.
	LastMove           string
	WaitingForOpponent bool
	LastRound          *Round
	Overlay            time.Duration

	// Opponent-disconnected sub-state and its countdown.
	OpponentGone bool
	OpponentWait time.Duration

	// Per-match scratch.
	P1Wins            int
	P2Wins            int
	Match             *Match
	WaitingForRematch bool

	// PendingScene is applied when the round overlay expires.
	PendingScene Scene
	HasPending   bool

	// LastContact is the arrival time of the last inbound message.  It
	// is zero until the first message after a (re)connect.
	LastContact time.Time

	Toast    string
	ToastTTL time.Duration

	Log *Log
}

// NewContext returns a context in the Connect scene.
func NewContext() *Context {
	return &Context{
		Scene:    SceneConnect,
		Toast:    "Welcome.",
		ToastTTL: 3 * time.Second,
		Log:      NewLog(DefaultLogLines),
	}
}

// ShowToast replaces the current toast.
func (c *Context) ShowToast(text string, ttl time.Duration) {
	c.Toast = text
	c.ToastTTL = ttl
}

// OverlayVisible reports whether a round result is still on screen.
func (c *Context) OverlayVisible() bool { return c.Overlay > 0 }

// resetRound clears the scratch that a new game starts from.
func (c *Context) resetRound() {
	c.LastMove = ""
	c.WaitingForOpponent = false
	c.LastRound = nil
	c.Overlay = 0
	c.OpponentGone = false
	c.OpponentWait = 0
	c.P1Wins, c.P2Wins = 0, 0
	c.Match = nil
	c.WaitingForRematch = false
	c.HasPending = false
}

// leaveMatch drops everything tied to a running or finished match.
func (c *Context) leaveMatch() {
	c.InGame = false
	c.LastMove = ""
	c.WaitingForOpponent = false
	c.Overlay = 0
	c.OpponentGone = false
	c.OpponentWait = 0
	c.WaitingForRematch = false
	c.HasPending = false
}

// leaveLobby clears lobby membership.
func (c *Context) leaveLobby() {
	c.InLobby = false
	c.LobbyName = ""
	c.LobbyID = ""
}

// clearIdentity forgets the logged-in user.
func (c *Context) clearIdentity() {
	c.leaveMatch()
	c.leaveLobby()
	c.UserID = ""
	c.Username = ""
}

// ── diagnostic log ───────────────────────────────────────────────────

// DefaultLogLines bounds the diagnostic log kept in memory.
const DefaultLogLines = 1000

// Log is the append-only diagnostic log shown in the debug panel.
// Lines are tagged [TX], [RX], [SYS] or [ERR].  Once full, the oldest
// lines are dropped.
type Log struct {
	max   int
	lines []string
}

// NewLog returns a log that keeps at most max lines (0 = unbounded).
func NewLog(max int) *Log {
	return &Log{max: max}
}

// TX records an outbound frame.
func (l *Log) TX(typ string, params ...string) {
	l.append("[TX] " + protocol.New(typ, params...).String())
}

// RX records an inbound message.
func (l *Log) RX(m protocol.Message) {
	l.append("[RX] " + m.String())
}

// Sys records a client-side event.
func (l *Log) Sys(format string, args ...interface{}) {
	l.append("[SYS] " + fmt.Sprintf(format, args...))
}

// Err records a failure.
func (l *Log) Err(format string, args ...interface{}) {
	l.append("[ERR] " + fmt.Sprintf(format, args...))
}

// Lines returns every retained line, oldest first.
func (l *Log) Lines() []string {
	return append([]string(nil), l.lines...)
}

// Tail returns the last n lines.
func (l *Log) Tail(n int) []string {
	if n <= 0 || n >= len(l.lines) {
		return l.Lines()
	}
	return append([]string(nil), l.lines[len(l.lines)-n:]...)
}

// Len returns the number of retained lines.
func (l *Log) Len() int { return len(l.lines) }

func (l *Log) append(line string) {
	l.lines = append(l.lines, line)
	if l.max > 0 && len(l.lines) > l.max {
		drop := len(l.lines) - l.max
		copy(l.lines, l.lines[drop:])
		l.lines = l.lines[:l.max]
	}
}
