// Package reconnect re-establishes a dropped session.  Once armed, it
// dials on a backoff schedule from the tick loop and re-sends the
// login for the remembered username when a dial succeeds.
package reconnect

import (
	"context"
	"fmt"
	"time"

	ncerr "rpsclient/internal/errors"
	"rpsclient/internal/metrics"
	"rpsclient/internal/retry"
	"rpsclient/protocol"
	"rpsclient/util"
)

// Link is the part of the transport the supervisor drives.
type Link interface {
	Connect(ctx context.Context) error
	Send(typ string, params ...string) error
	Close() error
}

// Outcome is what one [Supervisor.Tick] did.
type Outcome int

const (
	// Idle: not armed.
	Idle Outcome = iota
	// Waiting: armed, cooldown not yet expired.
	Waiting
	// Retrying: an attempt failed and another is scheduled.
	Retrying
	// Reconnected: connected and the login was re-sent.
	Reconnected
	// GaveUp: the attempt budget is spent; the supervisor disarmed.
	GaveUp
)

func (o Outcome) String() string {
	switch o {
	case Idle:
		return "idle"
	case Waiting:
		return "waiting"
	case Retrying:
		return "retrying"
	case Reconnected:
		return "reconnected"
	case GaveUp:
		return "gave-up"
	}
	return "unknown"
}

// Supervisor schedules reconnect attempts.  It is driven from the tick
// loop and is not safe for concurrent use.
type Supervisor struct {
	link    Link
	backoff *retry.Backoff
	logger  *util.Logger
	metrics *metrics.Collector

	armed    bool
	username string
	attempts int
	next     time.Time
}

// New returns a disarmed Supervisor.  A nil backoff selects a 1s
// cooldown doubling up to 10s over 10 attempts.
func New(link Link, backoff *retry.Backoff, logger *util.Logger, m *metrics.Collector) *Supervisor {
	if backoff == nil {
		backoff = &retry.Backoff{
			InitialDelay: time.Second,
			MaxDelay:     10 * time.Second,
			Multiplier:   2,
			MaxAttempts:  10,
		}
	}
	return &Supervisor{link: link, backoff: backoff, logger: logger, metrics: m}
}

// Arm schedules the first attempt one cooldown after now.  Arming an
// armed supervisor keeps the running schedule, so a stale error from an
// already-dead connection cannot cause an extra attempt.
func (s *Supervisor) Arm(now time.Time, username string) {
	if s.armed {
		return
	}
	s.armed = true
	s.username = username
	s.attempts = 0
	s.next = now.Add(s.backoff.Delay(1))
	s.logger.Info("connection lost, reconnecting as %s in %s", username, s.next.Sub(now))
}

// Disarm cancels any scheduled attempt.
func (s *Supervisor) Disarm() {
	s.armed = false
	s.attempts = 0
}

// Armed reports whether an attempt is scheduled.
func (s *Supervisor) Armed() bool { return s.armed }

// Attempts returns the number of attempts since the last Arm.
func (s *Supervisor) Attempts() int { return s.attempts }

// Tick makes at most one attempt, and only once the cooldown expired.
// The dial is synchronous and bounded by the transport's connect
// timeout.  On success exactly one REQ_LOGIN is sent.
func (s *Supervisor) Tick(ctx context.Context, now time.Time) (Outcome, error) {
	if !s.armed {
		return Idle, nil
	}
	if now.Before(s.next) {
		return Waiting, nil
	}

	s.attempts++
	s.metrics.ReconnectAttempt()
	s.logger.Verbose("reconnect attempt %d", s.attempts)

	err := s.link.Connect(ctx)
	if err == nil {
		if err = s.link.Send(protocol.ReqLogin, s.username); err != nil {
			if cerr := s.link.Close(); cerr != nil {
				s.logger.Debug("close after failed re-login: %v", cerr)
			}
		}
	}
	if err == nil {
		s.armed = false
		s.metrics.Reconnected()
		s.logger.Info("reconnected after %d attempt(s)", s.attempts)
		return Reconnected, nil
	}

	if s.backoff.Exhausted(s.attempts) {
		s.armed = false
		s.logger.Warn("reconnect gave up after %d attempts: %v", s.attempts, err)
		return GaveUp, fmt.Errorf("%w after %d attempts: %v", ncerr.ErrReconnectExhausted, s.attempts, err)
	}

	wait := s.backoff.Delay(s.attempts + 1)
	s.next = now.Add(wait)
	s.logger.Verbose("reconnect attempt %d failed: %v (next in %s)", s.attempts, err, wait)
	return Retrying, err
}
