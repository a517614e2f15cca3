package session

import (
	"time"

	"rpsclient/protocol"
)

// Tick advances the local timers by dt and returns the next scene.
// When the round overlay runs out, a scene switch deferred by
// RES_MATCH_RESULT is applied.
func (m *Machine) Tick(c *Context, dt time.Duration) Scene {
	if c.ToastTTL > 0 {
		c.ToastTTL -= dt
		if c.ToastTTL <= 0 {
			c.ToastTTL = 0
			c.Toast = ""
		}
	}

	if c.OpponentWait > 0 {
		c.OpponentWait -= dt
		if c.OpponentWait < 0 {
			c.OpponentWait = 0
		}
	}

	if c.Scene != SceneGame || c.Overlay <= 0 {
		return c.Scene
	}
	c.Overlay -= dt
	if c.Overlay > 0 {
		return c.Scene
	}
	c.Overlay = 0
	if !c.HasPending {
		return c.Scene
	}
	next := c.PendingScene
	c.HasPending = false
	if next == SceneAfterMatch {
		c.InGame = false
	}
	return next
}

// ConnectionLost handles a transport or heartbeat failure.  It reports
// whether automatic reconnection should be attempted: only when a
// username is remembered and the scene is active.  Otherwise the
// session falls back to the Connect scene.
func (m *Machine) ConnectionLost(c *Context, cause string) (reconnect bool, next Scene) {
	c.Log.Err("%s", cause)
	c.LastContact = time.Time{}

	if c.Username != "" && c.Scene.Active() {
		c.Log.Sys("Connection lost. Retrying...")
		c.ShowToast("Connection lost. Reconnecting...", m.cfg.ToastTTL)
		return true, c.Scene
	}

	c.ShowToast("Connection lost.", m.cfg.ToastTTL)
	c.leaveMatch()
	c.leaveLobby()
	c.UserID = ""
	return false, SceneConnect
}

// Reconnected records a successful automatic reconnect.  The re-login
// was already written by the supervisor.
func (m *Machine) Reconnected(c *Context, now time.Time) {
	c.LastContact = now
	c.Log.TX(protocol.ReqLogin, c.Username)
	c.Log.Sys("Auto-reconnect sent for %s", c.Username)
}

// ReconnectFailed gives up on the session after the reconnect budget is
// spent.  The username is kept so the player can log in again.
func (m *Machine) ReconnectFailed(c *Context, cause string) Scene {
	c.Log.Err("reconnect gave up: %s", cause)
	c.ShowToast("Reconnect failed.", m.cfg.ToastTTL)
	c.leaveMatch()
	c.leaveLobby()
	c.UserID = ""
	c.LastContact = time.Time{}
	return SceneConnect
}
