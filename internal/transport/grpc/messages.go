package grpcx

import (
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/timestamppb"
)

type Room struct {
	ID             string                 `json:"id"`
	Owner          string                 `json:"owner"`
	Name           string                 `json:"name"`
	Description    string                 `json:"description,omitempty"`
	Mode           string                 `json:"mode"`
	Duration       int32                  `json:"duration"`
	TimerRemaining int32                  `json:"timer_remaining"`
	IsTimerRunning bool                   `json:"is_timer_running"`
	LastTick       *timestamppb.Timestamp `json:"last_tick"`
	Version        int64                  `json:"version"`
	Members        []string               `json:"members"`
	InviteCode     string                 `json:"invite_code"`
	CreatedAt      *timestamppb.Timestamp `json:"created_at"`
	ServerTime     *timestamppb.Timestamp `json:"server_time"`
}

type Task struct {
	ID        string                 `json:"id"`
	RoomID    string                 `json:"room_id"`
	Owner     string                 `json:"owner"`
	OwnerName string                 `json:"owner_name"`
	Text      string                 `json:"text"`
	Completed bool                   `json:"completed"`
	CreatedAt *timestamppb.Timestamp `json:"created_at"`
}

type CreateRoomRequest struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Mode        string `json:"mode,omitempty"`
}

type JoinRoomRequest struct {
	InviteCode string `json:"invite_code"`
}

type ListRoomsRequest = emptypb.Empty

type ListRoomsResponse struct {
	Items []*Room `json:"items"`
}

type GetRoomRequest struct {
	ID string `json:"id"`
}

type ControlTimerRequest struct {
	RoomID string `json:"room_id"`
	Action string `json:"action"`
}

type RoomResponse struct {
	Room *Room `json:"room"`
}

type AddTaskRequest struct {
	RoomID string `json:"room_id"`
	Text   string `json:"text"`
}

type ListTasksRequest struct {
	RoomID string `json:"room_id"`
}

type ListTasksResponse struct {
	Items []*Task `json:"items"`
}

type ToggleTaskRequest struct {
	RoomID string `json:"room_id"`
	TaskID string `json:"task_id"`
}

type TaskResponse struct {
	Task *Task `json:"task"`
}
