package console

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"rpsclient/internal/session"
)

// defaultLogTail is how many diagnostic lines "log" prints.
const defaultLogTail = 20

type command struct {
	usage   string
	help    string
	minArgs int
	quit    bool

	// run executes on the session goroutine.
	run func(ctx context.Context, c *Console, m *session.Machine, s *session.Context, args []string) error
	// local executes on the input goroutine.
	local func(c *Console, args []string)
}

var commands map[string]*command

func init() {
	commands = map[string]*command{
		"connect": {
			usage: "connect [nickname]",
			help:  "connect and log in",
			run: func(ctx context.Context, c *Console, m *session.Machine, s *session.Context, args []string) error {
				nick := c.Nickname
				if len(args) > 0 {
					nick = strings.Join(args, " ")
				}
				return m.Login(ctx, s, nick)
			},
		},
		"server": {
			usage:   "server <host> [port]",
			help:    "choose the server for the next connect",
			minArgs: 1,
			run: func(_ context.Context, _ *Console, m *session.Machine, s *session.Context, args []string) error {
				host, port := args[0], ""
				if len(args) > 1 {
					port = args[1]
				}
				return m.SetServer(s, host, port)
			},
		},
		"create": {
			usage:   "create <lobby>",
			help:    "create a lobby",
			minArgs: 1,
			run: func(_ context.Context, _ *Console, m *session.Machine, s *session.Context, args []string) error {
				return m.CreateLobby(s, strings.Join(args, " "))
			},
		},
		"join": {
			usage:   "join <lobby>",
			help:    "join a lobby",
			minArgs: 1,
			run: func(_ context.Context, _ *Console, m *session.Machine, s *session.Context, args []string) error {
				return m.JoinLobby(s, strings.Join(args, " "))
			},
		},
		"leave": {
			usage: "leave",
			help:  "leave the current lobby",
			run: func(_ context.Context, _ *Console, m *session.Machine, s *session.Context, _ []string) error {
				return m.LeaveLobby(s)
			},
		},
		"logout": {
			usage: "logout",
			help:  "leave the lobby, or log out when not in one",
			run: func(_ context.Context, _ *Console, m *session.Machine, s *session.Context, _ []string) error {
				return m.Logout(s)
			},
		},
		"move": {
			usage:   "move <r|p|s>",
			help:    "play rock, paper or scissors",
			minArgs: 1,
			run: func(_ context.Context, _ *Console, m *session.Machine, s *session.Context, args []string) error {
				return m.Move(s, args[0])
			},
		},
		"forfeit": {
			usage: "forfeit",
			help:  "give up the running match",
			run: func(_ context.Context, _ *Console, m *session.Machine, s *session.Context, _ []string) error {
				return m.Forfeit(s)
			},
		},
		"rematch": {
			usage: "rematch",
			help:  "ask for another match",
			run: func(_ context.Context, _ *Console, m *session.Machine, s *session.Context, _ []string) error {
				return m.Rematch(s)
			},
		},
		"exit": {
			usage: "exit",
			help:  "leave the finished match",
			run: func(_ context.Context, _ *Console, m *session.Machine, s *session.Context, _ []string) error {
				return m.ExitMatch(s)
			},
		},
		"status": {
			usage: "status",
			help:  "show the session state",
			run: func(_ context.Context, c *Console, _ *session.Machine, s *session.Context, _ []string) error {
				c.printf("%s", describeStatus(s))
				return nil
			},
		},
		"log": {
			usage: "log [n]",
			help:  "print the last n diagnostic lines",
			run: func(_ context.Context, c *Console, _ *session.Machine, s *session.Context, args []string) error {
				n := defaultLogTail
				if len(args) > 0 {
					v, err := strconv.Atoi(args[0])
					if err != nil || v <= 0 {
						return fmt.Errorf("log: %q is not a positive number", args[0])
					}
					n = v
				}
				for _, line := range s.Log.Tail(n) {
					c.printf("  %s\n", line)
				}
				return nil
			},
		},
		"help": {
			usage: "help",
			help:  "list commands",
			local: func(c *Console, _ []string) { c.printf("%s", helpText()) },
		},
		"quit": {
			usage: "quit",
			help:  "close the client",
			quit:  true,
		},
	}

	// Single-letter moves.
	for _, mv := range []string{"r", "p", "s"} {
		mv := mv
		commands[mv] = &command{
			usage: mv,
			run: func(_ context.Context, _ *Console, m *session.Machine, s *session.Context, _ []string) error {
				return m.Move(s, mv)
			},
		}
	}
}

func lookup(name string) (*command, bool) {
	cmd, ok := commands[name]
	return cmd, ok
}

func helpText() string {
	names := make([]string, 0, len(commands))
	for name, cmd := range commands {
		if cmd.help != "" {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	var b strings.Builder
	b.WriteString("Commands:\n")
	for _, name := range names {
		cmd := commands[name]
		fmt.Fprintf(&b, "  %-20s %s\n", cmd.usage, cmd.help)
	}
	b.WriteString("  r, p, s              shorthand for move\n")
	return b.String()
}
