package domain

import (
	"strings"
	"time"
)

type Task struct {
	ID        string    `json:"id"`
	RoomID    string    `json:"roomId"`
	Owner     string    `json:"owner"`
	OwnerName string    `json:"ownerName"`
	Text      string    `json:"text"`
	Completed bool      `json:"completed"`
	CreatedAt time.Time `json:"createdAt"`
}

func NewTask(id, roomID, owner, ownerName, text string, now time.Time) (*Task, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyTaskText
	}
	if strings.TrimSpace(ownerName) == "" {
		ownerName = "User"
	}

	return &Task{
		ID:        id,
		RoomID:    roomID,
		Owner:     owner,
		OwnerName: ownerName,
		Text:      text,
		CreatedAt: now,
	}, nil
}

// Toggle flips completion for the owner; anyone else is refused.
func (t *Task) Toggle(requester string) error {
	if requester != t.Owner {
		return ErrNotTaskOwner
	}
	t.Completed = !t.Completed
	return nil
}
