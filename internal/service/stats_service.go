package service

import (
	"context"
	"fmt"

	"github.com/cwrk-planet/studyroom/internal/domain"
	"github.com/cwrk-planet/studyroom/internal/store"

	"github.com/samber/lo"
)

type StatsService struct {
	rooms *store.Collection[domain.Room]
	tasks *store.Collection[domain.Task]
}

func NewStatsService(st store.Store) *StatsService {
	return &StatsService{
		rooms: store.NewCollection[domain.Room](st, store.KindRooms),
		tasks: store.NewCollection[domain.Task](st, store.KindTasks),
	}
}

func (s *StatsService) UserStats(ctx context.Context, userID string) (domain.UserStats, error) {
	rooms, err := s.rooms.Find(ctx, store.Contains("members", userID))
	if err != nil {
		return domain.UserStats{}, fmt.Errorf("rooms.Find: %w", err)
	}
	tasks, err := s.tasks.Find(ctx, store.Eq("owner", userID))
	if err != nil {
		return domain.UserStats{}, fmt.Errorf("tasks.Find: %w", err)
	}

	return domain.UserStats{
		RoomsJoined:    len(rooms),
		TasksCreated:   len(tasks),
		TasksCompleted: lo.CountBy(tasks, func(t domain.Task) bool { return t.Completed }),
	}, nil
}
