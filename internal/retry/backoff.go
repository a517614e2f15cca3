// Package retry provides the exponential backoff schedule shared by the
// reconnect supervisor and the SSH gateway handshake.
package retry

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"time"
)

// ── Permanent errors ─────────────────────────────────────────────────

// PermanentError marks a failure that another attempt cannot fix, such
// as rejected SSH credentials.
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string { return e.Err.Error() }
func (e *PermanentError) Unwrap() error { return e.Err }

// Permanent wraps err so [Backoff.Do] stops at once and returns err
// unwrapped.  Permanent(nil) is nil.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &PermanentError{Err: err}
}

// IsPermanent reports whether err, or anything it wraps, is permanent.
func IsPermanent(err error) bool {
	var pe *PermanentError
	return errors.As(err, &pe)
}

// ── Backoff ──────────────────────────────────────────────────────────

// Backoff implements exponential backoff with optional jitter.
type Backoff struct {
	// InitialDelay is the reconnect cooldown: the wait after the
	// first failure (default 1s).
	InitialDelay time.Duration
	// MaxDelay caps the wait between attempts (default 60s).
	MaxDelay time.Duration
	// Multiplier grows the wait after each failure (default 2.0).
	Multiplier float64
	// MaxAttempts is the attempt budget; 0 means unlimited.
	MaxAttempts int
	// Jitter spreads each wait by ±25%.
	Jitter bool
}

// Delay returns the wait that follows the given 1-based attempt:
// InitialDelay after the first, multiplied each time, capped at
// MaxDelay.  Jitter is applied last when enabled.
func (b *Backoff) Delay(attempt int) time.Duration {
	delay := b.InitialDelay
	if delay <= 0 {
		delay = time.Second
	}
	multiplier := b.Multiplier
	if multiplier <= 0 {
		multiplier = 2.0
	}
	maxDelay := b.MaxDelay
	if maxDelay <= 0 {
		maxDelay = 60 * time.Second
	}

	for i := 1; i < attempt && delay < maxDelay; i++ {
		delay = time.Duration(float64(delay) * multiplier)
	}
	if delay > maxDelay {
		delay = maxDelay
	}
	if b.Jitter {
		delay = addJitter(delay)
	}
	return delay
}

// Exhausted reports whether attempts has used up the budget.  An
// unlimited budget (MaxAttempts == 0) is never exhausted.
func (b *Backoff) Exhausted(attempts int) bool {
	return b.MaxAttempts > 0 && attempts >= b.MaxAttempts
}

// Do calls fn with a 1-based attempt number until it returns nil, a
// [Permanent] error, or the budget or ctx runs out.  The last error is
// wrapped in the returned one.
func (b *Backoff) Do(ctx context.Context, fn func(attempt int) error) error {
	for attempt := 1; ; attempt++ {
		err := fn(attempt)
		if err == nil {
			return nil
		}

		var pe *PermanentError
		if errors.As(err, &pe) {
			return pe.Err
		}
		if b.Exhausted(attempt) {
			return fmt.Errorf("max retries (%d) exceeded: %w", b.MaxAttempts, err)
		}

		timer := time.NewTimer(b.Delay(attempt))
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("retry cancelled: %w", ctx.Err())
		case <-timer.C:
		}
	}
}

// addJitter moves d by up to a quarter in either direction, never
// below a millisecond.
func addJitter(d time.Duration) time.Duration {
	spread := float64(d) / 2
	j := float64(d) - spread/2 + rand.Float64()*spread
	return time.Duration(math.Max(j, float64(time.Millisecond)))
}
