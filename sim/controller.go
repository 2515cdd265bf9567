package sim

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/looplab/fsm"
	"github.com/sirupsen/logrus"
)

// Controller lifecycle states.
const (
	StateIdle    = "idle"
	StateRunning = "running"
	StateStopped = "stopped"
	// StateStalled is entered when the engine can make no further progress
	// before the horizon (e.g. the event queue drained), so the condition is
	// surfaced instead of appearing to hang.
	StateStalled = "stalled"
)

// NotificationType labels the events published to subscribers.
type NotificationType string

const (
	// NotifyState is emitted after every driven step while running.
	NotifyState NotificationType = "state"
	// NotifyComplete is emitted once when the simulated horizon is reached.
	NotifyComplete NotificationType = "complete"
	// NotifyReset is emitted on Reset and UpdateParams.
	NotifyReset NotificationType = "reset"
	// NotifyStalled is emitted when the engine runs out of schedulable
	// events before the horizon.
	NotifyStalled NotificationType = "stalled"
)

// Notification couples an event type with the snapshot taken when it fired.
type Notification struct {
	Type     NotificationType
	Snapshot Snapshot
}

// Controller owns one Clock, one RandomStream, one ProductionLine, and one
// MetricsAccumulator, exposes the lifecycle operations, and publishes
// snapshots to subscribers. All engine state is mutated either from within
// a driven step or from a lifecycle call, serialized on one mutex; distinct
// controllers are fully isolated.
type Controller struct {
	mu  sync.Mutex
	cfg Config

	machine *fsm.FSM

	clock   *Clock
	rng     *RandomStream
	line    *ProductionLine
	metrics *MetricsAccumulator

	subs   []chan Notification
	stopCh chan struct{} // closes to halt the external driving loop
}

// NewController validates cfg and builds a controller in the idle state.
func NewController(cfg Config) (*Controller, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	c := &Controller{cfg: cfg}
	c.machine = fsm.NewFSM(
		StateIdle,
		fsm.Events{
			{Name: "start", Src: []string{StateIdle, StateStopped}, Dst: StateRunning},
			{Name: "stop", Src: []string{StateRunning}, Dst: StateStopped},
			{Name: "finish", Src: []string{StateRunning}, Dst: StateStopped},
			{Name: "stall", Src: []string{StateRunning}, Dst: StateStalled},
		},
		fsm.Callbacks{
			"enter_state": func(_ context.Context, e *fsm.Event) {
				logrus.Debugf("controller: %s -> %s (%s)", e.Src, e.Dst, e.Event)
			},
		},
	)
	c.build()
	return c, nil
}

// build discards and recreates every owned instance from the configuration.
// Continuations captured by the discarded instances become unreachable.
func (c *Controller) build() {
	c.clock = NewClock()
	c.rng = NewRandomStream(c.cfg.Seed)
	c.metrics = NewMetricsAccumulator()
	c.line = NewProductionLine(c.cfg, c.clock, c.rng, c.metrics)
}

// State returns the current lifecycle state.
func (c *Controller) State() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.machine.Current()
}

// GetParams returns a copy of the current configuration.
func (c *Controller) GetParams() Config {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cfg
}

// GetState samples the current snapshot.
func (c *Controller) GetState() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Controller) snapshotLocked() Snapshot {
	return c.line.Snapshot(c.machine.Is(StateRunning))
}

// Metrics returns the accumulator owned by the current engine instance.
// It is replaced wholesale on Reset/UpdateParams; callers should not read
// it while a run is being driven.
func (c *Controller) Metrics() *MetricsAccumulator {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.metrics
}

// Subscribe registers a notification channel with the given buffer size.
// Per-step state notifications are dropped when the buffer is full;
// terminal and reset notifications are always delivered, so subscribers
// must keep consuming.
func (c *Controller) Subscribe(buffer int) <-chan Notification {
	c.mu.Lock()
	defer c.mu.Unlock()
	ch := make(chan Notification, buffer)
	c.subs = append(c.subs, ch)
	return ch
}

// Unsubscribe removes a channel previously returned by Subscribe.
func (c *Controller) Unsubscribe(ch <-chan Notification) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, sub := range c.subs {
		if sub == ch {
			c.subs = append(c.subs[:i], c.subs[i+1:]...)
			return
		}
	}
}

// publish fans out a notification. Guaranteed notifications block until
// every subscriber has buffered them; best-effort ones are dropped on slow
// subscribers. Called without the controller mutex held.
func (c *Controller) publish(n Notification, guaranteed bool) {
	c.mu.Lock()
	subs := make([]chan Notification, len(c.subs))
	copy(subs, c.subs)
	c.mu.Unlock()
	for _, ch := range subs {
		if guaranteed {
			ch <- n
			continue
		}
		select {
		case ch <- n:
		default:
		}
	}
}

// Start marks the controller running and begins driving the clock one step
// at a time on the configured pacing interval (pacing is wall-clock
// observability only, not simulated time). Generators are armed once per
// build; Start after Stop resumes the paused run without registering
// duplicates. Returns an error if already running.
func (c *Controller) Start() error {
	c.mu.Lock()
	if err := c.machine.Event(context.Background(), "start"); err != nil {
		cur := c.machine.Current()
		c.mu.Unlock()
		return fmt.Errorf("cannot start from state %q: %w", cur, err)
	}
	c.line.ArmGenerators()
	stop := make(chan struct{})
	c.stopCh = stop
	pace := time.Duration(c.cfg.PaceMs) * time.Millisecond
	c.mu.Unlock()

	logrus.Infof("simulation started: horizon %.0f min, seed %d", c.cfg.HorizonMinutes(), c.cfg.Seed)
	go c.drive(stop, pace)
	return nil
}

// drive is the external pacing loop. It runs until the horizon, a stall,
// or a Stop/Reset closes stop.
func (c *Controller) drive(stop chan struct{}, pace time.Duration) {
	var tick *time.Ticker
	if pace > 0 {
		tick = time.NewTicker(pace)
		defer tick.Stop()
	}
	for {
		if tick != nil {
			select {
			case <-stop:
				return
			case <-tick.C:
			}
		} else {
			select {
			case <-stop:
				return
			default:
			}
		}
		if c.stepOnce(stop) {
			return
		}
	}
}

// stepOnce drives a single clock step and emits the resulting snapshot.
// Returns true when the driving loop should end. The stop channel identity
// guards against a stale driver stepping after a stop/start cycle has
// installed a new one.
func (c *Controller) stepOnce(stop chan struct{}) bool {
	c.mu.Lock()
	if c.stopCh != stop || !c.machine.Is(StateRunning) {
		c.mu.Unlock()
		return true
	}

	if !c.clock.Step() {
		// No schedulable events before the horizon: surface a stalled
		// state rather than hang silently.
		_ = c.machine.Event(context.Background(), "stall")
		c.metrics.Finalize(c.clock.Now())
		snap := c.snapshotLocked()
		c.mu.Unlock()
		logrus.Warnf("simulation stalled at %.3f min: no schedulable events", snap.Time)
		c.publish(Notification{Type: NotifyStalled, Snapshot: snap}, true)
		return true
	}

	if c.clock.Now() >= c.cfg.HorizonMinutes() {
		_ = c.machine.Event(context.Background(), "finish")
		c.metrics.Finalize(c.clock.Now())
		snap := c.snapshotLocked()
		c.mu.Unlock()
		logrus.Infof("simulation complete at %.3f min: %d items", snap.Time, snap.Metrics.Completed)
		c.publish(Notification{Type: NotifyComplete, Snapshot: snap}, true)
		return true
	}

	snap := c.snapshotLocked()
	c.mu.Unlock()
	c.publish(Notification{Type: NotifyState, Snapshot: snap}, false)
	return false
}

// Stop halts the external driving loop only. Queued continuations survive
// and would still fire if stepping resumed without an intervening Reset.
func (c *Controller) Stop() error {
	c.mu.Lock()
	if err := c.machine.Event(context.Background(), "stop"); err != nil {
		cur := c.machine.Current()
		c.mu.Unlock()
		return fmt.Errorf("cannot stop from state %q: %w", cur, err)
	}
	c.haltDriverLocked()
	c.mu.Unlock()
	logrus.Info("simulation stopped")
	return nil
}

func (c *Controller) haltDriverLocked() {
	if c.stopCh != nil {
		close(c.stopCh)
		c.stopCh = nil
	}
}

// Reset discards the clock, random stream, line, and metrics wholesale and
// rebuilds fresh instances from the seed and configuration. Pending
// continuations in the discarded instances are never executed.
func (c *Controller) Reset() {
	c.mu.Lock()
	c.haltDriverLocked()
	c.machine.SetState(StateIdle)
	c.build()
	snap := c.snapshotLocked()
	c.mu.Unlock()
	logrus.Info("simulation reset")
	c.publish(Notification{Type: NotifyReset, Snapshot: snap}, true)
}

// UpdateParams merges patch into the configuration, then unconditionally
// performs stop+reset; no incremental reconfiguration is supported. An
// invalid merged configuration is rejected and the engine keeps running
// with the previous one.
func (c *Controller) UpdateParams(patch Patch) error {
	c.mu.Lock()
	next := c.cfg
	patch.Apply(&next)
	if err := next.Validate(); err != nil {
		c.mu.Unlock()
		return err
	}
	c.cfg = next
	c.mu.Unlock()
	c.Reset()
	return nil
}

// RunToCompletion performs one full experiment synchronously:
// reset → start → await the terminal notification → return its snapshot.
// A stalled run returns the stalled snapshot and an error.
func (c *Controller) RunToCompletion(ctx context.Context) (Snapshot, error) {
	sub := c.Subscribe(64)
	defer c.Unsubscribe(sub)

	c.Reset()
	// Drain notifications from any prior run up to our own reset marker, so
	// a stale terminal snapshot cannot be mistaken for this experiment's.
	for n := range sub {
		if n.Type == NotifyReset {
			break
		}
	}

	if err := c.Start(); err != nil {
		return Snapshot{}, err
	}
	for {
		select {
		case <-ctx.Done():
			_ = c.Stop()
			return Snapshot{}, ctx.Err()
		case n := <-sub:
			switch n.Type {
			case NotifyComplete:
				return n.Snapshot, nil
			case NotifyStalled:
				return n.Snapshot, fmt.Errorf("simulation stalled at %.3f min", n.Snapshot.Time)
			}
		}
	}
}
