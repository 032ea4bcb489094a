package client

import (
	"context"
	"encoding/json"
	"time"

	"github.com/cwrk-planet/studyroom/internal/domain"
)

// Snapshot is the authoritative timer state as sent by the server. Time
// fields stay raw so a malformed value only costs one reconciliation cycle.
type Snapshot struct {
	RoomID         string          `json:"id"`
	Name           string          `json:"name"`
	Mode           string          `json:"mode"`
	Duration       int             `json:"duration"`
	TimerRemaining int             `json:"timer_remaining"`
	IsTimerRunning bool            `json:"is_timer_running"`
	LastTick       json.RawMessage `json:"last_tick"`
	Version        int64           `json:"version"`
	InviteCode     string          `json:"invite_code"`
	Members        []string        `json:"members"`
	ServerTime     json.RawMessage `json:"server_time"`
}

type Task struct {
	ID        string          `json:"id"`
	RoomID    string          `json:"room_id"`
	Owner     string          `json:"owner"`
	OwnerName string          `json:"owner_name"`
	Text      string          `json:"text"`
	Completed bool            `json:"completed"`
	CreatedAt json.RawMessage `json:"created_at"`
}

// Created returns the task creation time, or the zero time when the server
// sent something unreadable.
func (t Task) Created() time.Time {
	ts, err := ParseTimestamp(t.CreatedAt)
	if err != nil || ts == nil {
		return time.Time{}
	}
	return *ts
}

// RoomAPI is the subset of the server the client loops need.
type RoomAPI interface {
	GetRoom(ctx context.Context, roomID string) (Snapshot, error)
	ControlTimer(ctx context.Context, roomID string, action domain.TimerAction) (Snapshot, error)
	ListTasks(ctx context.Context, roomID string) ([]Task, error)
}
