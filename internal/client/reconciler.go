package client

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/cwrk-planet/studyroom/internal/domain"
	"github.com/cwrk-planet/studyroom/internal/metrics"

	"github.com/jonboulle/clockwork"
)

type Outcome string

const (
	// OutcomeInSync: run-state matches and drift is within the threshold.
	OutcomeInSync Outcome = "in_sync"
	// OutcomeResynced: the local countdown was overwritten.
	OutcomeResynced Outcome = "resynced"
	// OutcomeSkipped: the snapshot could not be trusted this cycle.
	OutcomeSkipped Outcome = "skipped"
	// OutcomeStale: the snapshot was older than local state or arrived
	// after the reconciler was stopped or a user action superseded it.
	OutcomeStale Outcome = "stale"
)

// maxTickSkew bounds how far a running timer's last tick may sit from the
// reference clock before the snapshot is considered corrupt.
const maxTickSkew = 24 * time.Hour

type Config struct {
	TickInterval   time.Duration
	PollInterval   time.Duration
	DriftThreshold int
	RequestTimeout time.Duration
}

func (c *Config) defaults() {
	if c.TickInterval <= 0 {
		c.TickInterval = time.Second
	}
	if c.PollInterval <= 0 {
		c.PollInterval = 3 * time.Second
	}
	if c.DriftThreshold <= 0 {
		c.DriftThreshold = 2
	}
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = 5 * time.Second
	}
}

// State is what the UI renders.
type State struct {
	Remaining int
	Running   bool
	Version   int64
}

// Reconciler keeps a locally ticking countdown close to the authoritative
// timer. Local state is overwritten only when the run-state differs or the
// drift exceeds the threshold, so the display does not jitter.
type Reconciler struct {
	api    RoomAPI
	roomID string
	clock  clockwork.Clock
	cfg    Config
	log    *slog.Logger

	mu          sync.Mutex
	state       State
	synced      bool
	lastVersion int64
	// gen changes whenever a response in flight must be discarded.
	gen      uint64
	// pending counts user actions whose server response has not arrived.
	pending  int
	stopped  bool
	onChange func(State)

	runMu  sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

type Option func(*Reconciler)

// OnChange registers a callback invoked after every local state change.
func OnChange(fn func(State)) Option {
	return func(r *Reconciler) { r.onChange = fn }
}

func WithLogger(l *slog.Logger) Option {
	return func(r *Reconciler) { r.log = l }
}

func NewReconciler(api RoomAPI, roomID string, clock clockwork.Clock, cfg Config, opts ...Option) *Reconciler {
	cfg.defaults()
	r := &Reconciler{
		api:    api,
		roomID: roomID,
		clock:  clock,
		cfg:    cfg,
		log:    slog.Default(),
	}
	for _, o := range opts {
		o(r)
	}
	r.log = r.log.With("room_id", roomID)
	return r
}

func (r *Reconciler) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Tick advances the local countdown by one second while running.
func (r *Reconciler) Tick() {
	r.mu.Lock()
	if r.stopped || !r.state.Running || r.state.Remaining == 0 {
		r.mu.Unlock()
		return
	}
	r.state.Remaining--
	st := r.state
	r.mu.Unlock()
	r.notify(st)
}

// Apply reconciles local state against snap.
func (r *Reconciler) Apply(snap Snapshot) Outcome {
	r.mu.Lock()
	out, st := r.applyLocked(snap)
	r.mu.Unlock()

	metrics.IncReconcile(string(out))
	if out == OutcomeResynced {
		r.notify(st)
	}
	return out
}

func (r *Reconciler) applyLocked(snap Snapshot) (Outcome, State) {
	if r.stopped || snap.Version < r.lastVersion {
		return OutcomeStale, r.state
	}

	lastTick, err := ParseTimestamp(snap.LastTick)
	if snap.IsTimerRunning && (err != nil || lastTick == nil) {
		r.log.Warn("skipping reconcile: unusable last_tick", "raw", string(snap.LastTick), "err", err)
		return OutcomeSkipped, r.state
	}

	asOf := r.clock.Now()
	if st, err := ParseTimestamp(snap.ServerTime); err == nil && st != nil {
		asOf = *st
	}
	if snap.IsTimerRunning {
		if skew := asOf.Sub(*lastTick); skew > maxTickSkew || skew < -maxTickSkew {
			r.log.Warn("skipping reconcile: last_tick far from clock", "last_tick", *lastTick, "as_of", asOf)
			return OutcomeSkipped, r.state
		}
	}
	server := domain.EffectiveRemaining(snap.TimerRemaining, snap.IsTimerRunning, lastTick, asOf)
	r.lastVersion = snap.Version

	if r.synced &&
		snap.IsTimerRunning == r.state.Running &&
		domain.Drift(server, r.state.Remaining) <= r.cfg.DriftThreshold {
		r.state.Version = snap.Version
		return OutcomeInSync, r.state
	}

	r.synced = true
	r.state = State{Remaining: server, Running: snap.IsTimerRunning, Version: snap.Version}
	return OutcomeResynced, r.state
}

// Reconcile fetches the room and applies it unless the response was
// superseded while in flight. Nothing is fetched while a user action is
// pending: its response carries the authoritative state.
func (r *Reconciler) Reconcile(ctx context.Context) (Outcome, error) {
	r.mu.Lock()
	gen, pending := r.gen, r.pending
	r.mu.Unlock()
	if pending > 0 {
		metrics.IncReconcile(string(OutcomeStale))
		return OutcomeStale, nil
	}

	ctx, cancel := context.WithTimeout(ctx, r.cfg.RequestTimeout)
	defer cancel()
	snap, err := r.api.GetRoom(ctx, r.roomID)
	if err != nil {
		return "", err
	}

	r.mu.Lock()
	superseded := r.gen != gen
	r.mu.Unlock()
	if superseded {
		metrics.IncReconcile(string(OutcomeStale))
		return OutcomeStale, nil
	}
	return r.Apply(snap), nil
}

// Start optimistically starts the local countdown, then asks the server.
func (r *Reconciler) Start(ctx context.Context) error {
	return r.userAction(ctx, domain.ActionStart, true)
}

// Pause optimistically pauses the local countdown, then asks the server.
func (r *Reconciler) Pause(ctx context.Context) error {
	return r.userAction(ctx, domain.ActionPause, false)
}

func (r *Reconciler) userAction(ctx context.Context, action domain.TimerAction, running bool) error {
	r.mu.Lock()
	r.gen++
	r.pending++
	r.state.Running = running
	st := r.state
	r.mu.Unlock()
	r.notify(st)

	// polls that started before or during the action are superseded
	defer func() {
		r.mu.Lock()
		r.gen++
		r.pending--
		r.mu.Unlock()
	}()

	ctx, cancel := context.WithTimeout(ctx, r.cfg.RequestTimeout)
	defer cancel()
	snap, err := r.api.ControlTimer(ctx, r.roomID, action)
	if err != nil {
		// the next reconciliation restores the authoritative state
		r.log.Warn("timer action failed", "action", action, "err", err)
		return err
	}
	r.Apply(snap)
	return nil
}

// Run ticks and reconciles until ctx is done or Stop is called.
func (r *Reconciler) Run(ctx context.Context) {
	r.runMu.Lock()
	r.mu.Lock()
	stopped := r.stopped
	r.mu.Unlock()
	if stopped {
		r.runMu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	done := make(chan struct{})
	r.done = done
	r.runMu.Unlock()
	defer close(done)
	defer cancel()

	tick := r.clock.NewTicker(r.cfg.TickInterval)
	defer tick.Stop()
	poll := r.clock.NewTicker(r.cfg.PollInterval)
	defer poll.Stop()

	r.reconcileLogged(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-tick.Chan():
			r.Tick()
		case <-poll.Chan():
			r.reconcileLogged(ctx)
		}
	}
}

func (r *Reconciler) reconcileLogged(ctx context.Context) {
	if _, err := r.Reconcile(ctx); err != nil && ctx.Err() == nil {
		r.log.Warn("reconcile failed", "err", err)
	}
}

// Stop ends Run and discards any response still in flight.
func (r *Reconciler) Stop() {
	r.mu.Lock()
	r.stopped = true
	r.gen++
	r.mu.Unlock()

	r.runMu.Lock()
	cancel, done := r.cancel, r.done
	r.runMu.Unlock()
	if cancel != nil {
		cancel()
		<-done
	}
}

func (r *Reconciler) notify(st State) {
	if r.onChange != nil {
		r.onChange(st)
	}
}
