package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/cwrk-planet/studyroom/internal/service"
	"github.com/cwrk-planet/studyroom/internal/store"

	"github.com/jonboulle/clockwork"
)

var epoch = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

type fixture struct {
	ctx   context.Context
	clock *clockwork.FakeClock
	store *store.MemoryStore
	svc   *service.Services
}

func newFixture(t *testing.T, opts ...service.RoomOption) *fixture {
	t.Helper()
	st := store.NewMemoryStore()
	clock := clockwork.NewFakeClockAt(epoch)
	return &fixture{
		ctx:   context.Background(),
		clock: clock,
		store: st,
		svc:   service.New(st, clock, opts...),
	}
}

// fixedCodes hands out codes in order, then repeats the last one.
func fixedCodes(codes ...string) service.InviteCodeFunc {
	i := 0
	return func() (string, error) {
		c := codes[min(i, len(codes)-1)]
		i++
		return c, nil
	}
}
