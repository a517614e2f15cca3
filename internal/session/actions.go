package session

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"rpsclient/config"
	ncerr "rpsclient/internal/errors"
	"rpsclient/protocol"
	"rpsclient/util"
)

// Local player actions.  None of them changes the scene: the server's
// reply drives every transition.  An action that is not allowed in the
// current state returns an error wrapping [ncerr.ErrActionRejected].

func rejected(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ncerr.ErrActionRejected, fmt.Sprintf(format, args...))
}

// Login connects if needed, remembers nickname and sends REQ_LOGIN.
func (m *Machine) Login(ctx context.Context, c *Context, nickname string) error {
	if c.Scene != SceneConnect {
		return rejected("already logged in")
	}
	nickname = strings.TrimSpace(nickname)
	if nickname == "" {
		c.ShowToast("Enter nickname first.", 2500*time.Millisecond)
		return rejected("empty nickname")
	}

	if !m.link.Connected() {
		if err := m.link.Connect(ctx); err != nil {
			c.Log.Err("Connect failed: %v", err)
			c.ShowToast(fmt.Sprintf("Connect/Login failed: %v", err), 4*time.Second)
			return err
		}
		c.Log.Sys("connected")
		// Fresh connection: the watchdog stays off until traffic arrives.
		c.LastContact = time.Time{}
	}

	c.Username = nickname
	if err := m.send(c, protocol.ReqLogin, nickname); err != nil {
		c.ShowToast(fmt.Sprintf("Connect/Login failed: %v", err), 4*time.Second)
		return err
	}
	c.ShowToast("Logging in…", 2*time.Second)
	return nil
}

// SetServer points the next connect at host and port.  Blank values
// fall back to the default server.
func (m *Machine) SetServer(c *Context, host, port string) error {
	if c.Scene != SceneConnect || m.link.Connected() {
		return rejected("already connected")
	}
	host = strings.TrimSpace(host)
	if host == "" {
		host = config.DefaultHost
	}
	p := config.DefaultPort
	if port = strings.TrimSpace(port); port != "" {
		v, err := strconv.Atoi(port)
		if err != nil || v < 1 || v > 65535 {
			c.ShowToast("Port must be a number.", 2500*time.Millisecond)
			return rejected("bad port %q", port)
		}
		p = v
	}
	m.link.SetTarget(host, p)
	c.Log.Sys("server %s", util.FormatAddr(host, p))
	return nil
}

// CreateLobby asks the server for a new lobby called name.
func (m *Machine) CreateLobby(c *Context, name string) error {
	return m.lobbyRequest(c, protocol.ReqCreateLobby, name)
}

// JoinLobby asks to join the lobby called name.
func (m *Machine) JoinLobby(c *Context, name string) error {
	return m.lobbyRequest(c, protocol.ReqJoinLobby, name)
}

func (m *Machine) lobbyRequest(c *Context, typ, name string) error {
	if c.Scene != SceneLobby {
		return rejected("not in the lobby scene")
	}
	if c.InLobby {
		return rejected("already in lobby %q", c.LobbyName)
	}
	name = strings.TrimSpace(name)
	if name == "" {
		c.ShowToast("Enter lobby name first.", 2*time.Second)
		return rejected("empty lobby name")
	}
	c.LobbyName = name
	return m.send(c, typ, name)
}

// LeaveLobby leaves the current lobby.
func (m *Machine) LeaveLobby(c *Context) error {
	if c.Scene != SceneLobby || !c.InLobby {
		return rejected("not in a lobby")
	}
	return m.send(c, protocol.ReqLeaveLobby)
}

// Logout leaves the lobby first when in one; otherwise it logs out.
func (m *Machine) Logout(c *Context) error {
	if c.Scene != SceneLobby {
		return rejected("logout is only available in the lobby")
	}
	if c.InLobby {
		return m.send(c, protocol.ReqLeaveLobby)
	}
	return m.send(c, protocol.ReqLogout)
}

// Move submits the player's move for the current round.  It is ignored
// while the round overlay is visible, while the opponent is away, and
// after a move was already submitted.
func (m *Machine) Move(c *Context, move string) error {
	if c.Scene != SceneGame {
		return rejected("no game in progress")
	}
	move = strings.ToUpper(strings.TrimSpace(move))
	switch move {
	case "R", "P", "S":
	default:
		return rejected("unknown move %q", move)
	}
	switch {
	case c.OverlayVisible():
		return rejected("round result on screen")
	case c.OpponentGone:
		return rejected("opponent disconnected")
	case c.WaitingForOpponent:
		return rejected("move already submitted")
	}

	if err := m.send(c, protocol.ReqMove, move); err != nil {
		return err
	}
	c.LastMove = move
	c.WaitingForOpponent = true
	return nil
}

// Forfeit gives up the running match.  The scene changes only when the
// server confirms with RES_LOBBY_LEFT or RES_GAME_CANNOT_CONTINUE.
func (m *Machine) Forfeit(c *Context) error {
	if c.Scene != SceneGame {
		return rejected("no game in progress")
	}
	if c.OverlayVisible() || c.OpponentGone {
		return rejected("input blocked")
	}
	return m.send(c, protocol.ReqLeaveLobby)
}

// Rematch asks for another match.  It can be sent once per match.
func (m *Machine) Rematch(c *Context) error {
	if c.Scene != SceneAfterMatch {
		return rejected("no finished match")
	}
	if c.WaitingForRematch {
		return rejected("rematch already requested")
	}
	if err := m.send(c, protocol.ReqRematch); err != nil {
		return err
	}
	c.WaitingForRematch = true
	return nil
}

// ExitMatch leaves the finished match, even while waiting for a rematch.
func (m *Machine) ExitMatch(c *Context) error {
	if c.Scene != SceneAfterMatch {
		return rejected("no finished match")
	}
	return m.send(c, protocol.ReqLeaveLobby)
}
