package service

import (
	"github.com/cwrk-planet/studyroom/internal/store"

	"github.com/jonboulle/clockwork"
)

// Services bundles every domain service over one store and clock.
type Services struct {
	Rooms *RoomService
	Timer *TimerService
	Tasks *TaskService
	Chat  *ChatService
	Stats *StatsService
}

func New(st store.Store, clock clockwork.Clock, opts ...RoomOption) *Services {
	return &Services{
		Rooms: NewRoomService(st, clock, opts...),
		Timer: NewTimerService(st, clock),
		Tasks: NewTaskService(st, clock),
		Chat:  NewChatService(st, clock),
		Stats: NewStatsService(st),
	}
}
