package session

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"rpsclient/protocol"
	"rpsclient/util"
)

// Link is the transport as seen by the state machine.
type Link interface {
	Connect(ctx context.Context) error
	Connected() bool
	Send(typ string, params ...string) error
	SetTarget(host string, port int)
}

// Config holds the machine's timing knobs.
type Config struct {
	// RoundOverlay is how long a round result stays on screen.
	RoundOverlay time.Duration
	// ToastTTL is the default toast lifetime.
	ToastTTL time.Duration
}

// DefaultConfig returns a 3s round overlay and a 3s toast lifetime.
func DefaultConfig() Config {
	return Config{
		RoundOverlay: 3 * time.Second,
		ToastTTL:     3 * time.Second,
	}
}

// Machine applies protocol events and local actions to a [Context].
// It holds no session state of its own.
type Machine struct {
	link   Link
	cfg    Config
	logger *util.Logger
}

// NewMachine returns a machine that sends through link.
func NewMachine(link Link, cfg Config, logger *util.Logger) *Machine {
	def := DefaultConfig()
	if cfg.RoundOverlay <= 0 {
		cfg.RoundOverlay = def.RoundOverlay
	}
	if cfg.ToastTTL <= 0 {
		cfg.ToastTTL = def.ToastTTL
	}
	return &Machine{link: link, cfg: cfg, logger: logger}
}

// Enter switches c to scene, logging real transitions.
func (m *Machine) Enter(c *Context, scene Scene) {
	if c.Scene == scene {
		return
	}
	c.Log.Sys("scene %s -> %s", c.Scene, scene)
	m.logger.Verbose("scene %s -> %s", c.Scene, scene)
	c.Scene = scene
}

// Handle applies one inbound message and returns the next scene.  The
// caller applies the result with [Machine.Enter].  Unknown message
// kinds, and kinds with no meaning in the current scene, are no-ops.
func (m *Machine) Handle(c *Context, msg protocol.Message) Scene {
	c.Log.RX(msg)

	switch msg.Kind {
	case protocol.KindPing:
		m.pong(c, msg)
		return c.Scene
	case protocol.KindError:
		m.serverError(c, msg)
		return c.Scene
	case protocol.KindLoginOK:
		if c.Scene.Active() {
			c.UserID = msg.Param(0)
			c.ShowToast("Reconnected.", 2*time.Second)
			return c.Scene
		}
	case protocol.KindLoginFail:
		if c.Scene.Active() {
			// The server refused the automatic re-login.
			c.leaveMatch()
			c.leaveLobby()
			c.UserID = ""
			c.ShowToast("Login failed.", m.cfg.ToastTTL)
			return SceneConnect
		}
	case protocol.KindState:
		if c.Scene.Active() {
			return m.resync(c, msg)
		}
		return c.Scene
	}

	switch c.Scene {
	case SceneConnect:
		return m.onConnect(c, msg)
	case SceneLobby:
		return m.onLobby(c, msg)
	case SceneGame:
		return m.onGame(c, msg)
	case SceneAfterMatch:
		return m.onAfterMatch(c, msg)
	}
	return c.Scene
}

// ── per-scene handlers ───────────────────────────────────────────────

func (m *Machine) onConnect(c *Context, msg protocol.Message) Scene {
	switch msg.Kind {
	case protocol.KindLoginOK:
		c.UserID = msg.Param(0)
		c.ShowToast(fmt.Sprintf("Logged in (id=%s)", c.UserID), 2500*time.Millisecond)
		return SceneLobby
	case protocol.KindLoginFail:
		c.ShowToast("Login failed.", m.cfg.ToastTTL)
	}
	return SceneConnect
}

func (m *Machine) onLobby(c *Context, msg protocol.Message) Scene {
	switch msg.Kind {
	case protocol.KindLobbyCreated:
		c.InLobby = true
		c.LobbyID = msg.Param(0)
		if c.LobbyName == "" {
			c.LobbyName = c.LobbyID
		}
		c.ShowToast(fmt.Sprintf("Lobby created (ID: %s)", c.LobbyID), m.cfg.ToastTTL)

	case protocol.KindLobbyJoined:
		c.InLobby = true
		if name := msg.Param(0); name != "" {
			c.LobbyName = name
		}
		c.ShowToast("Joined lobby: "+c.LobbyName, m.cfg.ToastTTL)

	case protocol.KindLobbyLeft:
		c.leaveLobby()
		c.ShowToast("Left lobby.", 2*time.Second)

	case protocol.KindGameStarted:
		c.resetRound()
		c.InGame = true
		c.ShowToast("Game started!", 2500*time.Millisecond)
		return SceneGame

	case protocol.KindLogoutOK:
		c.clearIdentity()
		c.ShowToast("Logged out.", 2500*time.Millisecond)
		return SceneConnect
	}
	return SceneLobby
}

func (m *Machine) onGame(c *Context, msg protocol.Message) Scene {
	switch msg.Kind {
	case protocol.KindRoundResult:
		rr, err := protocol.ParseRoundResult(msg)
		if err != nil {
			c.Log.Err("bad round result: %v", err)
			return SceneGame
		}
		c.LastRound = &Round{
			RoundResult: rr,
			MyMove:      c.LastMove,
			Verdict:     verdictFor(rr.Winner, c.UserID),
		}
		if rr.HasScore {
			c.P1Wins, c.P2Wins = rr.P1Wins, rr.P2Wins
		}
		c.WaitingForOpponent = false
		c.LastMove = ""
		c.Overlay = m.cfg.RoundOverlay

	case protocol.KindMatchResult:
		mr, err := protocol.ParseMatchResult(msg)
		if err != nil {
			c.Log.Err("bad match result: %v", err)
			return SceneGame
		}
		c.Match = &Match{MatchResult: mr, Verdict: verdictFor(mr.Winner, c.UserID)}
		c.P1Wins, c.P2Wins = mr.P1Wins, mr.P2Wins
		c.OpponentGone = false
		c.OpponentWait = 0
		c.WaitingForRematch = false
		if c.OverlayVisible() {
			c.PendingScene = SceneAfterMatch
			c.HasPending = true
			return SceneGame
		}
		c.InGame = false
		return SceneAfterMatch

	case protocol.KindOpponentDisconnected:
		c.OpponentGone = true
		secs, err := strconv.Atoi(strings.TrimSpace(msg.Param(0)))
		if err != nil || secs < 0 {
			secs = 0
		}
		c.OpponentWait = time.Duration(secs) * time.Second
		ttl := c.OpponentWait
		if ttl == 0 {
			ttl = m.cfg.ToastTTL
		}
		c.ShowToast(fmt.Sprintf("Opponent disconnected. Waiting %ds...", secs), ttl)

	case protocol.KindGameResumed:
		c.OpponentGone = false
		c.OpponentWait = 0
		c.WaitingForOpponent = false
		c.LastMove = ""
		c.ShowToast("Opponent reconnected! Play again!", 2*time.Second)

	case protocol.KindGameStarted:
		c.OpponentGone = false
		c.OpponentWait = 0
		c.WaitingForOpponent = false
		c.LastMove = ""

	case protocol.KindGameCannotContinue:
		c.leaveMatch()
		c.ShowToast(reason(msg), m.cfg.ToastTTL)
		return SceneLobby

	case protocol.KindLobbyLeft:
		c.leaveMatch()
		c.leaveLobby()
		c.ShowToast("Left match.", 2500*time.Millisecond)
		return SceneLobby
	}
	return SceneGame
}

func (m *Machine) onAfterMatch(c *Context, msg protocol.Message) Scene {
	switch msg.Kind {
	case protocol.KindRematchReady:
		c.WaitingForRematch = true

	case protocol.KindGameStarted:
		c.resetRound()
		c.InGame = true
		c.ShowToast("Rematch started!", 2500*time.Millisecond)
		return SceneGame

	case protocol.KindGameCannotContinue:
		c.leaveMatch()
		c.ShowToast(reason(msg), m.cfg.ToastTTL)
		return SceneLobby

	case protocol.KindLobbyLeft:
		c.leaveMatch()
		c.leaveLobby()
		c.ShowToast("Left match, back in menu.", 2500*time.Millisecond)
		return SceneLobby
	}
	return SceneAfterMatch
}

// ── scene-independent handlers ───────────────────────────────────────

func (m *Machine) pong(c *Context, msg protocol.Message) {
	if len(msg.Params) == 0 {
		c.Log.Err("ping without nonce")
		return
	}
	// Send failures reach the driver through the transport error queue.
	_ = m.send(c, protocol.ReqPong, msg.Params[0])
}

// serverError surfaces RES_ERROR.  In the lobby an error that mentions
// the session state means the client believes it is in a lobby the
// server has already dropped, so the membership is cleared.
func (m *Machine) serverError(c *Context, msg protocol.Message) {
	text := "Server error"
	if len(msg.Params) > 0 {
		text = strings.Join(msg.Params, " | ")
	}

	switch c.Scene {
	case SceneLobby:
		if c.InLobby && (strings.Contains(text, "Unexpected") || strings.Contains(text, "state")) {
			c.leaveLobby()
			c.ShowToast("Sync error: Resetting view.", 2*time.Second)
			return
		}
	case SceneAfterMatch:
		c.WaitingForRematch = false
	}
	c.ShowToast(text, 4*time.Second)
}

// resync applies RES_STATE, sent by the server after a re-login to
// restore a session that survived the disconnect.
func (m *Machine) resync(c *Context, msg protocol.Message) Scene {
	kv := protocol.ParseState(msg)
	if len(kv) == 0 {
		return c.Scene
	}

	if v, ok := kv["lobby"]; ok {
		c.LobbyName = v
		c.InLobby = v != ""
	}
	if v, ok := kv["p1wins"]; ok {
		if n, err := strconv.Atoi(v); err == nil {
			c.P1Wins = n
		}
	}
	if v, ok := kv["p2wins"]; ok {
		if n, err := strconv.Atoi(v); err == nil {
			c.P2Wins = n
		}
	}
	if v, ok := kv["moved"]; ok {
		c.WaitingForOpponent = v == "1"
		if !c.WaitingForOpponent {
			c.LastMove = ""
		}
	}

	next := c.Scene
	switch strings.ToUpper(kv["state"]) {
	case "LOBBY":
		c.leaveMatch()
		next = SceneLobby
	case "WAITING":
		c.leaveMatch()
		c.InLobby = true
		next = SceneLobby
	case "GAME":
		c.InGame = true
		c.InLobby = true
		c.OpponentGone = false
		c.OpponentWait = 0
		next = SceneGame
	case "AFTER_MATCH":
		c.InGame = false
		c.Overlay = 0
		c.HasPending = false
		next = SceneAfterMatch
	default:
		return next
	}
	c.Log.Sys("session restored in %s", next)
	c.ShowToast("Session restored.", 2*time.Second)
	return next
}

func reason(msg protocol.Message) string {
	if r := msg.Param(0); r != "" {
		return r
	}
	return "Game ended"
}

// send writes one frame and records it in the diagnostic log.
func (m *Machine) send(c *Context, typ string, params ...string) error {
	if err := m.link.Send(typ, params...); err != nil {
		c.Log.Err("Send failed: %v", err)
		m.logger.Verbose("send %s failed: %v", typ, err)
		return err
	}
	c.Log.TX(typ, params...)
	return nil
}
