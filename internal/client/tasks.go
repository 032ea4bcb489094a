package client

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/samber/lo"
)

// TaskPoller keeps the latest task list of a room.
type TaskPoller struct {
	api      RoomAPI
	roomID   string
	clock    clockwork.Clock
	interval time.Duration
	timeout  time.Duration
	log      *slog.Logger

	mu      sync.Mutex
	tasks   []Task
	gen     uint64
	stopped bool

	runMu  sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func NewTaskPoller(api RoomAPI, roomID string, clock clockwork.Clock, interval, timeout time.Duration) *TaskPoller {
	if interval <= 0 {
		interval = 3 * time.Second
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &TaskPoller{
		api:      api,
		roomID:   roomID,
		clock:    clock,
		interval: interval,
		timeout:  timeout,
		log:      slog.Default().With("room_id", roomID),
	}
}

// Poll fetches the task list once. A response arriving after Stop is dropped.
func (p *TaskPoller) Poll(ctx context.Context) error {
	p.mu.Lock()
	gen := p.gen
	p.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	tasks, err := p.api.ListTasks(ctx, p.roomID)
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stopped || p.gen != gen {
		return nil
	}
	p.tasks = tasks
	return nil
}

func (p *TaskPoller) Tasks() []Task {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Task(nil), p.tasks...)
}

// Split partitions the latest list into the user's own tasks and the rest,
// preserving server order.
func (p *TaskPoller) Split(userID string) (mine, team []Task) {
	return lo.FilterReject(p.Tasks(), func(t Task, _ int) bool {
		return t.Owner == userID
	})
}

func (p *TaskPoller) Run(ctx context.Context) {
	p.runMu.Lock()
	p.mu.Lock()
	stopped := p.stopped
	p.mu.Unlock()
	if stopped {
		p.runMu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	done := make(chan struct{})
	p.done = done
	p.runMu.Unlock()
	defer close(done)
	defer cancel()

	t := p.clock.NewTicker(p.interval)
	defer t.Stop()

	p.pollLogged(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.Chan():
			p.pollLogged(ctx)
		}
	}
}

func (p *TaskPoller) pollLogged(ctx context.Context) {
	if err := p.Poll(ctx); err != nil && ctx.Err() == nil {
		p.log.Warn("task poll failed", "err", err)
	}
}

func (p *TaskPoller) Stop() {
	p.mu.Lock()
	p.stopped = true
	p.gen++
	p.mu.Unlock()

	p.runMu.Lock()
	cancel, done := p.cancel, p.done
	p.runMu.Unlock()
	if cancel != nil {
		cancel()
		<-done
	}
}
