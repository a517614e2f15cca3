package core

import (
	"context"
	"errors"
	"time"

	"rpsclient/config"
	"rpsclient/internal/heartbeat"
	"rpsclient/internal/metrics"
	"rpsclient/internal/reconnect"
	"rpsclient/internal/session"
	"rpsclient/internal/transport"
	"rpsclient/util"
)

// Parts are the collaborators a [Driver] runs.  [Build] fills them from
// a Config; tests assemble them directly.
type Parts struct {
	Client     *transport.Client
	Dialer     transport.Dialer // closed on shutdown; may be nil
	Machine    *session.Machine
	Monitor    *heartbeat.Monitor
	Supervisor *reconnect.Supervisor
	Tick       time.Duration
	Logger     *util.Logger
	Metrics    *metrics.Collector
}

// Driver is the single consumer of the transport queues.  One call to
// [Driver.Tick] is one frame: posted actions, the watchdog, inbound
// messages, transport errors, the keepalive, the reconnect supervisor
// and finally the session timers, in that order.
type Driver struct {
	client     *transport.Client
	dialer     transport.Dialer
	machine    *session.Machine
	monitor    *heartbeat.Monitor
	supervisor *reconnect.Supervisor
	logger     *util.Logger
	metrics    *metrics.Collector
	tick       time.Duration

	ctx       *session.Context
	actions   transport.Queue[Action]
	observers []Observer
	last      time.Time
}

// NewDriver returns a driver with a fresh session in the Connect scene.
func NewDriver(p Parts) *Driver {
	if p.Tick <= 0 {
		p.Tick = config.DefaultTick
	}
	return &Driver{
		client:     p.Client,
		dialer:     p.Dialer,
		machine:    p.Machine,
		monitor:    p.Monitor,
		supervisor: p.Supervisor,
		logger:     p.Logger,
		metrics:    p.Metrics,
		tick:       p.Tick,
		ctx:        session.NewContext(),
	}
}

// Observe registers o for per-frame notifications.  Call before Run.
func (d *Driver) Observe(o Observer) {
	d.observers = append(d.observers, o)
}

// Post queues a for the next frame.  Safe from any goroutine.
func (d *Driver) Post(a Action) {
	d.actions.Push(a)
}

// Session exposes the session for tests and for observers registered
// before Run.  Only the driver goroutine may touch it while running.
func (d *Driver) Session() *session.Context { return d.ctx }

// Client returns the transport client.
func (d *Driver) Client() *transport.Client { return d.client }

// Run ticks until ctx is cancelled, then closes the connection.
func (d *Driver) Run(ctx context.Context) error {
	ticker := time.NewTicker(d.tick)
	defer ticker.Stop()
	defer d.shutdown()

	d.logger.Verbose("driver running at %s per frame", d.tick)
	for {
		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.Canceled) {
				return nil
			}
			return ctx.Err()
		case now := <-ticker.C:
			d.Tick(ctx, now)
		}
	}
}

// Tick runs one frame at now.  The elapsed time since the previous
// frame drives the session timers.
func (d *Driver) Tick(ctx context.Context, now time.Time) {
	var dt time.Duration
	if !d.last.IsZero() {
		dt = now.Sub(d.last)
		if dt < 0 {
			dt = 0
		}
	}
	d.last = now
	c := d.ctx

	d.runActions(ctx)

	if err := d.monitor.Watch(now, c); err != nil {
		d.connectionLost(now, err.Error())
	}

	for {
		msg, ok := d.client.NextMessage()
		if !ok {
			break
		}
		c.LastContact = now
		d.metrics.Contact(now)
		d.machine.Enter(c, d.machine.Handle(c, msg))
	}

	for {
		cause, ok := d.client.NextError()
		if !ok {
			break
		}
		d.transportError(now, cause)
	}

	if !c.Scene.Active() && d.supervisor.Armed() {
		d.logger.Verbose("session ended, cancelling reconnect")
		d.supervisor.Disarm()
	}

	if err := d.monitor.Keepalive(dt, c); err != nil {
		d.logger.Debug("keepalive: %v", err)
	}

	d.superviseReconnect(ctx, now)

	d.machine.Enter(c, d.machine.Tick(c, dt))

	for _, o := range d.observers {
		o.Frame(c)
	}
}

// ── frame steps ──────────────────────────────────────────────────────

func (d *Driver) runActions(ctx context.Context) {
	for {
		a, ok := d.actions.TryPop()
		if !ok {
			return
		}
		a(ctx, d.machine, d.ctx)
	}
}

// transportError handles one queued error.  Errors are advisory: one
// that arrives while a newer connection is up, or while a reconnect is
// already scheduled, describes a connection that is already gone.
func (d *Driver) transportError(now time.Time, cause string) {
	if d.client.Connected() || d.supervisor.Armed() {
		d.ctx.Log.Err("%s", cause)
		d.logger.Debug("stale transport error: %s", cause)
		return
	}
	d.connectionLost(now, cause)
}

func (d *Driver) connectionLost(now time.Time, cause string) {
	d.logger.Warn("connection lost: %s", cause)
	resume, next := d.machine.ConnectionLost(d.ctx, cause)
	if resume {
		d.supervisor.Arm(now, d.ctx.Username)
		return
	}
	d.machine.Enter(d.ctx, next)
}

func (d *Driver) superviseReconnect(ctx context.Context, now time.Time) {
	outcome, err := d.supervisor.Tick(ctx, now)
	switch outcome {
	case reconnect.Reconnected:
		d.machine.Reconnected(d.ctx, now)
	case reconnect.Retrying:
		d.ctx.Log.Err("reconnect attempt %d failed: %v", d.supervisor.Attempts(), err)
	case reconnect.GaveUp:
		d.machine.Enter(d.ctx, d.machine.ReconnectFailed(d.ctx, err.Error()))
	}
}

func (d *Driver) shutdown() {
	if err := d.client.Close(); err != nil {
		d.logger.Debug("close: %v", err)
	}
	if d.dialer != nil {
		if err := d.dialer.Close(); err != nil {
			d.logger.Debug("dialer close: %v", err)
		}
	}
}
