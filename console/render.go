package console

import (
	"fmt"
	"strings"
	"time"

	"rpsclient/internal/session"
)

// view is what the console last printed.  Frame compares the session
// against it and prints only what changed.
type view struct {
	scene        session.Scene
	toast        string
	round        *session.Round
	match        *session.Match
	opponentGone bool
	rematch      bool
	waiting      bool
}

// Frame implements core.Observer.
func (c *Console) Frame(s *session.Context) {
	v := &c.view

	if s.Scene != v.scene {
		v.scene = s.Scene
		c.printf("\n== %s ==\n%s", strings.ToUpper(s.Scene.String()), sceneHint(s))
	}
	if s.Toast != v.toast {
		v.toast = s.Toast
		if s.Toast != "" {
			c.printf("* %s\n", s.Toast)
		}
	}
	if s.LastRound != nil && s.LastRound != v.round {
		v.round = s.LastRound
		c.printf("%s\n", describeRound(s.LastRound))
	}
	if s.Match != nil && s.Match != v.match && s.Scene == session.SceneAfterMatch {
		v.match = s.Match
		c.printf("%s\n", describeMatch(s.Match))
	}
	if s.OpponentGone != v.opponentGone {
		v.opponentGone = s.OpponentGone
		if s.OpponentGone {
			c.printf("Opponent disconnected, waiting up to %s.\n", s.OpponentWait.Round(time.Second))
		} else if s.Scene == session.SceneGame {
			c.printf("Opponent is back.\n")
		}
	}
	if s.WaitingForOpponent != v.waiting {
		v.waiting = s.WaitingForOpponent
		if s.WaitingForOpponent {
			c.printf("You played %s, waiting for opponent...\n", moveName(s.LastMove))
		}
	}
	if s.WaitingForRematch != v.rematch {
		v.rematch = s.WaitingForRematch
		if s.WaitingForRematch {
			c.printf("Waiting for rematch...\n")
		}
	}
}

func sceneHint(s *session.Context) string {
	switch s.Scene {
	case session.SceneConnect:
		return "connect [nickname] to log in\n"
	case session.SceneLobby:
		if s.InLobby {
			return fmt.Sprintf("In lobby %q, waiting for an opponent. leave | logout\n", s.LobbyName)
		}
		return "create <lobby> | join <lobby> | logout\n"
	case session.SceneGame:
		return "r | p | s to play, forfeit to give up\n"
	case session.SceneAfterMatch:
		return "rematch | exit\n"
	}
	return ""
}

func describeRound(r *session.Round) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Round: P1 %s vs P2 %s", moveName(r.P1Move), moveName(r.P2Move))
	if r.MyMove != "" {
		fmt.Fprintf(&b, " (you played %s)", moveName(r.MyMove))
	}
	fmt.Fprintf(&b, " → %s", r.Verdict)
	if r.HasScore {
		fmt.Fprintf(&b, "  [%d:%d]", r.P1Wins, r.P2Wins)
	}
	return b.String()
}

func describeMatch(m *session.Match) string {
	return fmt.Sprintf("Match over: %s  final score %d:%d", m.Verdict, m.P1Wins, m.P2Wins)
}

func describeStatus(s *session.Context) string {
	var b strings.Builder
	fmt.Fprintf(&b, "scene:   %s\n", s.Scene)
	if s.Username != "" {
		fmt.Fprintf(&b, "user:    %s (id %s)\n", s.Username, orDash(s.UserID))
	}
	if s.LobbyName != "" {
		fmt.Fprintf(&b, "lobby:   %s\n", s.LobbyName)
	}
	if s.Scene == session.SceneGame || s.Scene == session.SceneAfterMatch {
		fmt.Fprintf(&b, "score:   %d:%d\n", s.P1Wins, s.P2Wins)
	}
	if !s.LastContact.IsZero() {
		fmt.Fprintf(&b, "contact: %s\n", s.LastContact.Format("15:04:05"))
	}
	return b.String()
}

func moveName(m string) string {
	switch strings.ToUpper(m) {
	case "R":
		return "Rock"
	case "P":
		return "Paper"
	case "S":
		return "Scissors"
	case "":
		return "-"
	}
	return m
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
