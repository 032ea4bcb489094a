package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cwrk-planet/studyroom/internal/domain"
	"github.com/cwrk-planet/studyroom/internal/metrics"
	"github.com/cwrk-planet/studyroom/internal/store"

	"github.com/jonboulle/clockwork"
)

// TimerService is the authority for room timers. Every transition is an
// atomic read-modify-write, so concurrent start/pause calls are serialized
// and each one bumps the room version.
type TimerService struct {
	rooms *store.Collection[domain.Room]
	clock clockwork.Clock
}

func NewTimerService(st store.Store, clock clockwork.Clock) *TimerService {
	return &TimerService{
		rooms: store.NewCollection[domain.Room](st, store.KindRooms),
		clock: clock,
	}
}

func (s *TimerService) Start(ctx context.Context, roomID string) (*domain.Room, error) {
	return s.Control(ctx, roomID, domain.ActionStart)
}

func (s *TimerService) Pause(ctx context.Context, roomID string) (*domain.Room, error) {
	return s.Control(ctx, roomID, domain.ActionPause)
}

func (s *TimerService) Reset(ctx context.Context, roomID string) (*domain.Room, error) {
	return s.Control(ctx, roomID, domain.ActionReset)
}

// Control applies action to the room timer using the authority clock.
func (s *TimerService) Control(ctx context.Context, roomID string, action domain.TimerAction) (*domain.Room, error) {
	room, err := s.rooms.Update(ctx, roomID, func(r *domain.Room) error {
		return r.Apply(action, s.clock.Now())
	})
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, domain.ErrRoomNotFound
		}
		if errors.Is(err, domain.ErrValidation) {
			return nil, err
		}
		return nil, fmt.Errorf("rooms.Update: %w", err)
	}

	metrics.IncTimerTransition(string(action))
	slog.InfoContext(ctx, "timer transition",
		"room_id", roomID,
		"action", action,
		"remaining", room.TimerRemaining,
		"version", room.Version)
	return room, nil
}

// EffectiveRemaining is the remaining time of room as of the authority clock.
func (s *TimerService) EffectiveRemaining(room *domain.Room) int {
	return room.Remaining(s.clock.Now())
}

// Now exposes the authority clock for snapshot timestamps.
func (s *TimerService) Now() time.Time {
	return s.clock.Now()
}
