package http

import (
	"time"

	"github.com/cwrk-planet/studyroom/internal/domain"
)

type CreateRoomRequest struct {
	Name        string `json:"name" validate:"required,max=120"`
	Description string `json:"description" validate:"max=1000"`
	Mode        string `json:"mode" validate:"max=32"`
}

type JoinRoomRequest struct {
	InviteCode string `json:"invite_code" validate:"required,max=32"`
}

type TimerRequest struct {
	Action string `json:"action" validate:"required,oneof=start pause reset"`
}

type AddTaskRequest struct {
	Text string `json:"text" validate:"required,max=500"`
}

type SendMessageRequest struct {
	Text string `json:"text" validate:"required"`
}

// RoomItem is the room snapshot clients reconcile against.
type RoomItem struct {
	ID             string     `json:"id"`
	Owner          string     `json:"owner"`
	Name           string     `json:"name"`
	Description    string     `json:"description"`
	Mode           string     `json:"mode"`
	Duration       int        `json:"duration"`
	TimerRemaining int        `json:"timer_remaining"`
	IsTimerRunning bool       `json:"is_timer_running"`
	LastTick       *time.Time `json:"last_tick"`
	Version        int64      `json:"version"`
	Members        []string   `json:"members"`
	InviteCode     string     `json:"invite_code"`
	CreatedAt      time.Time  `json:"created_at"`
	ServerTime     time.Time  `json:"server_time"`
}

type RoomsListResponse struct {
	Items []RoomItem `json:"items"`
}

type TaskItem struct {
	ID        string    `json:"id"`
	RoomID    string    `json:"room_id"`
	Owner     string    `json:"owner"`
	OwnerName string    `json:"owner_name"`
	Text      string    `json:"text"`
	Completed bool      `json:"completed"`
	CreatedAt time.Time `json:"created_at"`
}

type TasksListResponse struct {
	Items []TaskItem `json:"items"`
}

type ChatMessageItem struct {
	ID        string    `json:"id"`
	RoomID    string    `json:"room_id"`
	UserID    string    `json:"user_id"`
	UserName  string    `json:"user_name"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

type ChatHistoryResponse struct {
	Items      []ChatMessageItem `json:"items"`
	NextCursor string            `json:"next_cursor,omitempty"`
}

func mapRoom(r *domain.Room, now time.Time) RoomItem {
	return RoomItem{
		ID:             r.ID,
		Owner:          r.Owner,
		Name:           r.Name,
		Description:    r.Description,
		Mode:           string(r.Mode),
		Duration:       r.Duration,
		TimerRemaining: r.TimerRemaining,
		IsTimerRunning: r.IsTimerRunning,
		LastTick:       r.LastTick,
		Version:        r.Version,
		Members:        r.Members,
		InviteCode:     r.InviteCode,
		CreatedAt:      r.CreatedAt,
		ServerTime:     now,
	}
}

func mapTask(t domain.Task) TaskItem {
	return TaskItem{
		ID:        t.ID,
		RoomID:    t.RoomID,
		Owner:     t.Owner,
		OwnerName: t.OwnerName,
		Text:      t.Text,
		Completed: t.Completed,
		CreatedAt: t.CreatedAt,
	}
}

func mapMessage(m domain.ChatMessage) ChatMessageItem {
	return ChatMessageItem{
		ID:        m.ID,
		RoomID:    m.RoomID,
		UserID:    m.UserID,
		UserName:  m.UserName,
		Text:      m.Text,
		CreatedAt: m.CreatedAt.Truncate(time.Millisecond),
	}
}
