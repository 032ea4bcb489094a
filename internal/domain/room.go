package domain

import (
	"slices"
	"strings"
	"time"
)

type Mode string

const (
	ModePomodoro Mode = "pomodoro"
	ModeDeep     Mode = "deep"
)

// ParseMode maps user input to a mode; anything unrecognised is pomodoro.
func ParseMode(s string) Mode {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case ModeDeep:
		return ModeDeep
	default:
		return ModePomodoro
	}
}

// DurationMinutes is the fixed session length for the mode.
func (m Mode) DurationMinutes() int {
	if m == ModeDeep {
		return 50
	}
	return 25
}

type TimerAction string

const (
	ActionStart TimerAction = "start"
	ActionPause TimerAction = "pause"
	ActionReset TimerAction = "reset"
)

func ParseTimerAction(s string) (TimerAction, error) {
	switch a := TimerAction(strings.ToLower(strings.TrimSpace(s))); a {
	case ActionStart, ActionPause, ActionReset:
		return a, nil
	default:
		return "", ErrUnknownAction
	}
}

type Room struct {
	ID          string `json:"id"`
	Owner       string `json:"owner"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Mode        Mode   `json:"mode"`
	Duration    int    `json:"duration"`

	TimerRemaining int        `json:"timerRemaining"`
	IsTimerRunning bool       `json:"isTimerRunning"`
	LastTick       *time.Time `json:"lastTick"`
	// Version increases on every timer transition.
	Version int64 `json:"version"`

	Members    []string  `json:"members"`
	InviteCode string    `json:"inviteCode"`
	CreatedAt  time.Time `json:"createdAt"`
}

// NewRoom builds a paused room with a full timer for the given mode.
func NewRoom(id, owner, name, description string, mode Mode, inviteCode string, now time.Time) (*Room, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrEmptyRoomName
	}
	duration := mode.DurationMinutes()

	return &Room{
		ID:             id,
		Owner:          owner,
		Name:           name,
		Description:    strings.TrimSpace(description),
		Mode:           mode,
		Duration:       duration,
		TimerRemaining: duration * 60,
		Members:        []string{owner},
		InviteCode:     inviteCode,
		CreatedAt:      now,
	}, nil
}

// FullSeconds is the timer length fixed at creation.
func (r *Room) FullSeconds() int {
	return r.Duration * 60
}

// Remaining is the authoritative remaining time as of asOf.
func (r *Room) Remaining(asOf time.Time) int {
	return EffectiveRemaining(r.TimerRemaining, r.IsTimerRunning, r.LastTick, asOf)
}

// HasMember reports whether userID belongs to the room.
func (r *Room) HasMember(userID string) bool {
	return slices.Contains(r.Members, userID)
}

// Start sets the timer running from now. Starting a running timer folds the
// elapsed time into the baseline before re-stamping lastTick.
func (r *Room) Start(now time.Time) {
	r.normalize()
	if r.IsTimerRunning && r.LastTick != nil {
		r.TimerRemaining = r.Remaining(now)
	}
	t := now
	r.IsTimerRunning = true
	r.LastTick = &t
	r.Version++
}

// Pause commits the elapsed time and stops the timer. Pausing a paused
// timer only forces the not-running state.
func (r *Room) Pause(now time.Time) {
	r.normalize()
	if r.IsTimerRunning && r.LastTick != nil {
		r.TimerRemaining = r.Remaining(now)
	}
	r.IsTimerRunning = false
	r.LastTick = nil
	r.Version++
}

// Reset stops the timer and restores the full duration.
func (r *Room) Reset() {
	r.TimerRemaining = r.FullSeconds()
	r.IsTimerRunning = false
	r.LastTick = nil
	r.Version++
}

// normalize repairs timer fields written by a misbehaving client.
func (r *Room) normalize() {
	if r.TimerRemaining < 0 {
		r.TimerRemaining = 0
	}
	if full := r.FullSeconds(); full > 0 && r.TimerRemaining > full {
		r.TimerRemaining = full
	}
	if r.IsTimerRunning && r.LastTick == nil {
		r.IsTimerRunning = false
	}
	if !r.IsTimerRunning {
		r.LastTick = nil
	}
}

// Apply runs a timer action against the room.
func (r *Room) Apply(action TimerAction, now time.Time) error {
	switch action {
	case ActionStart:
		r.Start(now)
	case ActionPause:
		r.Pause(now)
	case ActionReset:
		r.Reset()
	default:
		return ErrUnknownAction
	}
	return nil
}
