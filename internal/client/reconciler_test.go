package client_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/cwrk-planet/studyroom/internal/client"
	"github.com/cwrk-planet/studyroom/internal/domain"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var epoch = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

type fakeAPI struct {
	mu      sync.Mutex
	snap    client.Snapshot
	tasks   []client.Task
	err     error
	actions []domain.TimerAction

	// when gate is set, reads signal entered and wait for gate to close
	gate    chan struct{}
	entered chan struct{}
	// same for timer commands
	ctlGate    chan struct{}
	ctlEntered chan struct{}
}

func (f *fakeAPI) set(s client.Snapshot) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.snap = s
}

func (f *fakeAPI) wait(ctx context.Context) error {
	f.mu.Lock()
	gate, entered := f.gate, f.entered
	f.mu.Unlock()
	if gate == nil {
		return nil
	}
	close(entered)
	select {
	case <-gate:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (f *fakeAPI) GetRoom(ctx context.Context, _ string) (client.Snapshot, error) {
	if err := f.wait(ctx); err != nil {
		return client.Snapshot{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snap, f.err
}

func (f *fakeAPI) ControlTimer(ctx context.Context, _ string, action domain.TimerAction) (client.Snapshot, error) {
	f.mu.Lock()
	gate, entered := f.ctlGate, f.ctlEntered
	f.mu.Unlock()
	if gate != nil {
		close(entered)
		select {
		case <-gate:
		case <-ctx.Done():
			return client.Snapshot{}, ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.actions = append(f.actions, action)
	return f.snap, f.err
}

func (f *fakeAPI) ListTasks(ctx context.Context, _ string) ([]client.Task, error) {
	if err := f.wait(ctx); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.tasks, f.err
}

func rawTime(t time.Time) json.RawMessage {
	b, _ := json.Marshal(t)
	return b
}

func running(remaining int, lastTick time.Time, version int64) client.Snapshot {
	return client.Snapshot{
		RoomID:         "r1",
		Duration:       25,
		TimerRemaining: remaining,
		IsTimerRunning: true,
		LastTick:       rawTime(lastTick),
		Version:        version,
	}
}

func paused(remaining int, version int64) client.Snapshot {
	return client.Snapshot{
		RoomID:         "r1",
		Duration:       25,
		TimerRemaining: remaining,
		LastTick:       json.RawMessage(`null`),
		Version:        version,
	}
}

func newReconciler(api client.RoomAPI, clock clockwork.Clock) *client.Reconciler {
	return client.NewReconciler(api, "r1", clock, client.Config{DriftThreshold: 2})
}

func TestReconciler_FirstApplyAdoptsServer(t *testing.T) {
	clock := clockwork.NewFakeClockAt(epoch)
	r := newReconciler(&fakeAPI{}, clock)

	out := r.Apply(running(1500, epoch.Add(-10*time.Second), 1))
	assert.Equal(t, client.OutcomeResynced, out)
	assert.Equal(t, client.State{Remaining: 1490, Running: true, Version: 1}, r.State())
}

func TestReconciler_SmallDriftKeepsLocal(t *testing.T) {
	clock := clockwork.NewFakeClockAt(epoch)
	r := newReconciler(&fakeAPI{}, clock)
	r.Apply(running(1500, epoch, 1))

	r.Tick()
	r.Tick()
	require.Equal(t, 1498, r.State().Remaining)

	// server says 1499: drift of one second leaves the display alone
	clock.Advance(time.Second)
	out := r.Apply(running(1500, epoch, 1))
	assert.Equal(t, client.OutcomeInSync, out)
	assert.Equal(t, 1498, r.State().Remaining)
}

func TestReconciler_LargeDriftResyncs(t *testing.T) {
	clock := clockwork.NewFakeClockAt(epoch)
	r := newReconciler(&fakeAPI{}, clock)
	r.Apply(running(100, epoch, 1))
	require.Equal(t, 100, r.State().Remaining)

	out := r.Apply(running(80, epoch, 2))
	assert.Equal(t, client.OutcomeResynced, out)
	assert.Equal(t, 80, r.State().Remaining)
}

func TestReconciler_RunStateChangeResyncs(t *testing.T) {
	clock := clockwork.NewFakeClockAt(epoch)
	r := newReconciler(&fakeAPI{}, clock)
	r.Apply(running(600, epoch, 1))

	out := r.Apply(paused(599, 2))
	assert.Equal(t, client.OutcomeResynced, out)
	assert.Equal(t, client.State{Remaining: 599, Running: false, Version: 2}, r.State())

	r.Tick()
	assert.Equal(t, 599, r.State().Remaining, "paused timer must not tick")
}

func TestReconciler_UnparseableLastTickSkips(t *testing.T) {
	clock := clockwork.NewFakeClockAt(epoch)
	r := newReconciler(&fakeAPI{}, clock)
	r.Apply(running(600, epoch, 1))
	before := r.State()

	garbage := []string{
		`"not a time"`,
		`null`,
		`{"foo":1}`,
		`{"seconds":"abc"}`,
		`{"seconds":1740819600,"nanos":-1}`,
		`0`,
		`-5`,
		// epoch seconds where millis are expected
		`1740819600`,
		// two days ahead of the local clock
		`"2025-03-03T09:00:00Z"`,
	}
	for _, raw := range garbage {
		snap := running(10, epoch, 2)
		snap.LastTick = json.RawMessage(raw)
		assert.Equal(t, client.OutcomeSkipped, r.Apply(snap), raw)
		assert.Equal(t, before, r.State(), raw)
	}

	// a paused snapshot ignores last_tick entirely
	snap := paused(300, 3)
	snap.LastTick = json.RawMessage(`"garbage"`)
	assert.Equal(t, client.OutcomeResynced, r.Apply(snap))
	assert.Equal(t, 300, r.State().Remaining)
}

func TestReconciler_OlderVersionIgnored(t *testing.T) {
	clock := clockwork.NewFakeClockAt(epoch)
	r := newReconciler(&fakeAPI{}, clock)
	r.Apply(paused(900, 5))

	assert.Equal(t, client.OutcomeStale, r.Apply(running(1500, epoch, 4)))
	assert.Equal(t, client.State{Remaining: 900, Running: false, Version: 5}, r.State())
}

func TestReconciler_UsesServerTime(t *testing.T) {
	// local clock is an hour off; server_time keeps the math on the server's clock
	clock := clockwork.NewFakeClockAt(epoch.Add(time.Hour))
	r := newReconciler(&fakeAPI{}, clock)

	snap := running(1500, epoch, 1)
	snap.ServerTime = rawTime(epoch.Add(20 * time.Second))
	r.Apply(snap)
	assert.Equal(t, 1480, r.State().Remaining)
}

func TestReconciler_TickStopsAtZero(t *testing.T) {
	clock := clockwork.NewFakeClockAt(epoch)
	r := newReconciler(&fakeAPI{}, clock)
	r.Apply(running(1, epoch, 1))

	r.Tick()
	r.Tick()
	assert.Equal(t, 0, r.State().Remaining)
}

func TestReconciler_ResponseAfterStopDiscarded(t *testing.T) {
	clock := clockwork.NewFakeClockAt(epoch)
	api := &fakeAPI{gate: make(chan struct{}), entered: make(chan struct{})}
	api.set(running(1500, epoch, 1))
	r := newReconciler(api, clock)

	type result struct {
		out client.Outcome
		err error
	}
	done := make(chan result, 1)
	go func() {
		out, err := r.Reconcile(context.Background())
		done <- result{out, err}
	}()

	<-api.entered
	r.Stop()
	close(api.gate)

	res := <-done
	require.NoError(t, res.err)
	assert.Equal(t, client.OutcomeStale, res.out)
	assert.Equal(t, client.State{}, r.State())
}

func TestReconciler_UserActionSupersedesInflightPoll(t *testing.T) {
	clock := clockwork.NewFakeClockAt(epoch)
	api := &fakeAPI{gate: make(chan struct{}), entered: make(chan struct{})}
	api.set(paused(1500, 0))
	r := newReconciler(api, clock)

	done := make(chan client.Outcome, 1)
	go func() {
		out, _ := r.Reconcile(context.Background())
		done <- out
	}()
	<-api.entered

	api.set(running(1500, epoch, 1))
	require.NoError(t, r.Start(context.Background()))
	close(api.gate)

	assert.Equal(t, client.OutcomeStale, <-done)
	assert.Equal(t, client.State{Remaining: 1500, Running: true, Version: 1}, r.State())
}

func TestReconciler_OptimisticStart(t *testing.T) {
	clock := clockwork.NewFakeClockAt(epoch)
	api := &fakeAPI{}
	api.set(paused(1500, 0))
	r := newReconciler(api, clock)
	r.Apply(paused(1500, 0))

	var seen []client.State
	r2 := client.NewReconciler(api, "r1", clock, client.Config{}, client.OnChange(func(s client.State) {
		seen = append(seen, s)
	}))
	r2.Apply(paused(1500, 0))

	api.mu.Lock()
	api.err = errors.New("boom")
	api.mu.Unlock()

	err := r2.Start(context.Background())
	require.Error(t, err)
	// local state flips immediately and stays until the next reconciliation
	assert.True(t, r2.State().Running)
	require.NotEmpty(t, seen)
	assert.True(t, seen[len(seen)-1].Running)

	api.mu.Lock()
	api.err = nil
	api.mu.Unlock()
	out, err := r2.Reconcile(context.Background())
	require.NoError(t, err)
	assert.Equal(t, client.OutcomeResynced, out)
	assert.False(t, r2.State().Running)

	api.set(running(1500, epoch, 1))
	require.NoError(t, r.Start(context.Background()))
	assert.Equal(t, client.State{Remaining: 1500, Running: true, Version: 1}, r.State())

	api.set(paused(1497, 2))
	require.NoError(t, r.Pause(context.Background()))
	assert.Equal(t, client.State{Remaining: 1497, Running: false, Version: 2}, r.State())

	api.mu.Lock()
	defer api.mu.Unlock()
	assert.Equal(t, []domain.TimerAction{domain.ActionStart, domain.ActionPause}, api.actions[1:])
}

func TestReconciler_RunLoop(t *testing.T) {
	clock := clockwork.NewFakeClockAt(epoch)
	api := &fakeAPI{}
	api.set(running(1500, epoch, 1))
	r := client.NewReconciler(api, "r1", clock, client.Config{
		TickInterval: time.Second,
		PollInterval: 3 * time.Second,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	stopped := make(chan struct{})
	go func() {
		r.Run(ctx)
		close(stopped)
	}()

	require.NoError(t, clock.BlockUntilContext(ctx, 2))
	require.Eventually(t, func() bool { return r.State().Version == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, 1500, r.State().Remaining)

	clock.Advance(time.Second)
	require.Eventually(t, func() bool { return r.State().Remaining == 1499 }, time.Second, 5*time.Millisecond)

	api.set(paused(1200, 2))
	clock.Advance(time.Second)
	require.Eventually(t, func() bool { return r.State().Remaining == 1498 }, time.Second, 5*time.Millisecond)

	clock.Advance(time.Second)
	require.Eventually(t, func() bool {
		return r.State() == client.State{Remaining: 1200, Running: false, Version: 2}
	}, time.Second, 5*time.Millisecond)

	r.Stop()
	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after Stop")
	}

	assert.Equal(t, client.OutcomeStale, r.Apply(running(100, epoch, 3)))
}

func TestReconciler_PollDuringPendingActionDiscarded(t *testing.T) {
	clock := clockwork.NewFakeClockAt(epoch)
	api := &fakeAPI{ctlGate: make(chan struct{}), ctlEntered: make(chan struct{})}
	api.set(paused(1500, 1))

	var (
		mu   sync.Mutex
		seen []client.State
	)
	r := client.NewReconciler(api, "r1", clock, client.Config{}, client.OnChange(func(s client.State) {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, s)
	}))
	r.Apply(paused(1500, 1))

	started := make(chan error, 1)
	go func() { started <- r.Start(context.Background()) }()
	<-api.ctlEntered

	// the server has not handled the command yet and still reports paused
	out, err := r.Reconcile(context.Background())
	require.NoError(t, err)
	assert.Equal(t, client.OutcomeStale, out)
	assert.True(t, r.State().Running)

	api.set(running(1500, epoch, 2))
	close(api.ctlGate)
	require.NoError(t, <-started)
	assert.Equal(t, client.State{Remaining: 1500, Running: true, Version: 2}, r.State())

	mu.Lock()
	defer mu.Unlock()
	for _, s := range seen[1:] {
		assert.True(t, s.Running, "display flipped back to paused: %+v", seen)
	}

	out, err = r.Reconcile(context.Background())
	require.NoError(t, err)
	assert.Equal(t, client.OutcomeInSync, out)
}

func TestReconciler_RunAfterStopReturns(t *testing.T) {
	r := newReconciler(&fakeAPI{}, clockwork.NewFakeClockAt(epoch))
	r.Stop()

	done := make(chan struct{})
	go func() {
		r.Run(context.Background())
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run kept going after Stop")
	}
}
