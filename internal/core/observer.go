// Package core is the orchestration layer.  It wires the transport,
// the session machine and the liveness helpers into a [Driver] that a
// front end runs on a fixed tick.
//
// Architecture layers (bottom → top):
//
//	protocol  →  transport  →  session / heartbeat / reconnect  →  core  →  console, cmd
//
// Everything above the transport runs on the driver's goroutine.  Front
// ends never touch the session directly: they [Driver.Post] actions and
// receive a read-only view through an [Observer] once per frame.
package core

import (
	"context"

	"rpsclient/internal/session"
)

// Observer is notified at the end of every frame.  It must not retain
// or modify c.
type Observer interface {
	Frame(c *session.Context)
}

// ObserverFunc adapts a function to [Observer].
type ObserverFunc func(c *session.Context)

// Frame calls f(c).
func (f ObserverFunc) Frame(c *session.Context) { f(c) }

// Action is a unit of work run on the driver's goroutine with exclusive
// access to the session.
type Action func(ctx context.Context, m *session.Machine, c *session.Context)
