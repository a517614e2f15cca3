// Package protocol implements the line-oriented wire format shared by
// the game client and server.
//
// Every frame is a single UTF-8 line:
//
//	MRLLN|TYPE|param1|param2|...|\n
//
// The codec is pure: no state, no I/O.
package protocol

import (
	"errors"
	"fmt"
	"strings"
)

// Magic prefixes every frame.  A line that starts with anything else
// means client and server have lost framing.
const Magic = "MRLLN"

const (
	delimiter = "|"
	newline   = "\n"
)

// ErrBadMagic is returned by [Decode] when the first segment of a line
// is not [Magic].  It is fatal for the connection that produced it.
var ErrBadMagic = errors.New("invalid protocol magic")

// Message is one decoded protocol event or command.
type Message struct {
	Kind   Kind
	Type   string
	Params []string
}

// New builds a Message and resolves its Kind from the type tag.
func New(typ string, params ...string) Message {
	return Message{Kind: KindOf(typ), Type: typ, Params: params}
}

// Param returns the i-th parameter or "" when it is absent.
func (m Message) Param(i int) string {
	if i < 0 || i >= len(m.Params) {
		return ""
	}
	return m.Params[i]
}

// String renders the message in wire form without the trailing newline.
func (m Message) String() string {
	return line(m.Type, m.Params)
}

// Encode sanitises every parameter and returns the full wire frame
// including the terminating newline.  It never fails.
func Encode(typ string, params ...string) []byte {
	safe := make([]string, len(params))
	for i, p := range params {
		safe[i] = sanitize(p)
	}
	return []byte(line(typ, safe) + newline)
}

// Decode parses a single line.
//
// The three outcomes are:
//   - ok == true: msg holds a well-formed message.
//   - ok == false, err == nil: the line is empty or malformed and should
//     be skipped without tearing down the connection.
//   - err != nil: the magic did not match (wraps [ErrBadMagic]).
func Decode(raw string) (msg Message, ok bool, err error) {
	raw = strings.TrimRight(raw, "\r\n")
	if raw == "" {
		return Message{}, false, nil
	}

	parts := strings.Split(raw, delimiter)
	if parts[len(parts)-1] == "" {
		parts = parts[:len(parts)-1]
	}
	if len(parts) < 2 {
		return Message{}, false, nil
	}

	if parts[0] != Magic {
		return Message{}, false, fmt.Errorf("%w: %q", ErrBadMagic, parts[0])
	}

	typ := strings.TrimSpace(parts[1])
	if typ == "" {
		return Message{}, false, nil
	}

	return Message{Kind: KindOf(typ), Type: typ, Params: parts[2:]}, true, nil
}

// IsBlank reports whether raw carries no content once line terminators
// are stripped.  Blank lines are dropped silently; other lines that
// [Decode] rejects are worth reporting.
func IsBlank(raw string) bool {
	return strings.TrimRight(raw, "\r\n") == ""
}

func line(typ string, params []string) string {
	var b strings.Builder
	b.WriteString(Magic)
	b.WriteString(delimiter)
	b.WriteString(typ)
	b.WriteString(delimiter)
	for _, p := range params {
		b.WriteString(p)
		b.WriteString(delimiter)
	}
	return b.String()
}

func sanitize(p string) string {
	return strings.NewReplacer("\n", " ", "\r", " ").Replace(p)
}
