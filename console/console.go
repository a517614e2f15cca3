// Package console is a line-oriented front end for the game client.
// It reads player commands from an input stream and prints scene
// changes, toasts and round results as the driver reports them.
package console

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"golang.org/x/term"

	"rpsclient/internal/core"
	"rpsclient/internal/session"
	"rpsclient/util"
)

// Poster queues work for the session goroutine.  *core.Driver
// implements it.
type Poster interface {
	Post(a core.Action)
}

// Console connects a command stream to a [Poster] and renders frames.
type Console struct {
	poster Poster
	in     io.Reader
	out    io.Writer
	logger *util.Logger

	// Nickname is used by "connect" when no name is given.
	Nickname string

	interactive bool
	mu          sync.Mutex // serialises writes to out

	view view // last rendered state; touched only by Frame
}

// New returns a console reading from in and writing to out.  Prompts
// are printed only when in is a terminal.
func New(p Poster, in io.Reader, out io.Writer, logger *util.Logger) *Console {
	c := &Console{poster: p, in: in, out: out, logger: logger}
	if f, ok := in.(*os.File); ok {
		c.interactive = term.IsTerminal(int(f.Fd()))
	}
	c.view.scene = session.SceneConnect
	return c
}

// Run reads commands until ctx is cancelled, the input ends, or the
// player quits.  Commands are executed on the session goroutine.
func (c *Console) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	lines := make(chan string)
	readErr := make(chan error, 1)
	go func() {
		sc := bufio.NewScanner(c.in)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
		readErr <- sc.Err()
	}()

	c.printf("Type 'help' for commands.\n")
	c.prompt()
	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-readErr:
			if err != nil {
				return fmt.Errorf("console input: %w", err)
			}
			return nil
		case line := <-lines:
			if quit := c.Execute(line); quit {
				return nil
			}
			c.prompt()
		}
	}
}

// Execute parses and dispatches one command line.  It reports whether
// the player asked to quit.
func (c *Console) Execute(line string) (quit bool) {
	name, args := parseLine(line)
	if name == "" {
		return false
	}
	cmd, ok := lookup(name)
	if !ok {
		c.printf("unknown command %q, try 'help'\n", name)
		return false
	}
	if len(args) < cmd.minArgs {
		c.printf("usage: %s\n", cmd.usage)
		return false
	}
	if cmd.quit {
		return true
	}
	if cmd.local != nil {
		cmd.local(c, args)
		return false
	}
	c.poster.Post(func(ctx context.Context, m *session.Machine, s *session.Context) {
		if err := cmd.run(ctx, c, m, s, args); err != nil {
			c.printf("! %v\n", err)
			c.logger.Debug("%s: %v", name, err)
		}
	})
	return false
}

// parseLine splits a command line into a lower-cased name and its
// arguments.
func parseLine(line string) (string, []string) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return "", nil
	}
	return strings.ToLower(fields[0]), fields[1:]
}

func (c *Console) prompt() {
	if c.interactive {
		c.printf("> ")
	}
}

func (c *Console) printf(format string, args ...interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(c.out, format, args...)
}
