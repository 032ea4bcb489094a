package domain

import (
	"errors"
	"fmt"
)

var (
	ErrValidation       = errors.New("validation failed")
	ErrNotFound         = errors.New("not found")
	ErrPermissionDenied = errors.New("permission denied")
	ErrUnauthenticated  = errors.New("unauthenticated")
)

var (
	ErrRoomNotFound   = fmt.Errorf("room %w", ErrNotFound)
	ErrTaskNotFound   = fmt.Errorf("task %w", ErrNotFound)
	ErrInviteNotFound = fmt.Errorf("invite code %w", ErrNotFound)

	ErrEmptyRoomName   = fmt.Errorf("%w: room name required", ErrValidation)
	ErrEmptyTaskText   = fmt.Errorf("%w: task text required", ErrValidation)
	ErrEmptyMessage    = fmt.Errorf("%w: empty message", ErrValidation)
	ErrMessageTooLong  = fmt.Errorf("%w: message too long", ErrValidation)
	ErrUnknownAction   = fmt.Errorf("%w: unknown timer action", ErrValidation)
	ErrNotTaskOwner    = fmt.Errorf("%w: you can only complete your own tasks", ErrPermissionDenied)
)
