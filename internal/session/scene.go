package session

// Scene is the client-side session phase.  Exactly one is current.
type Scene int

const (
	SceneConnect Scene = iota
	SceneLobby
	SceneGame
	SceneAfterMatch
)

var sceneNames = [...]string{
	SceneConnect:    "connect",
	SceneLobby:      "lobby",
	SceneGame:       "game",
	SceneAfterMatch: "after-match",
}

func (s Scene) String() string {
	if s >= 0 && int(s) < len(sceneNames) {
		return sceneNames[s]
	}
	return "unknown"
}

// Active reports whether a logged-in session exists in this scene.
// Heartbeat, keepalive and reconnect only operate in active scenes.
func (s Scene) Active() bool {
	switch s {
	case SceneLobby, SceneGame, SceneAfterMatch:
		return true
	}
	return false
}
