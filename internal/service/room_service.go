package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/cwrk-planet/studyroom/internal/domain"
	"github.com/cwrk-planet/studyroom/internal/metrics"
	"github.com/cwrk-planet/studyroom/internal/store"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/samber/lo"
)

type RoomService struct {
	rooms      *store.Collection[domain.Room]
	clock      clockwork.Clock
	inviteCode InviteCodeFunc
}

type RoomOption func(*RoomService)

// WithInviteCodes replaces the invite code generator.
func WithInviteCodes(fn InviteCodeFunc) RoomOption {
	return func(s *RoomService) { s.inviteCode = fn }
}

func NewRoomService(st store.Store, clock clockwork.Clock, opts ...RoomOption) *RoomService {
	s := &RoomService{
		rooms:      store.NewCollection[domain.Room](st, store.KindRooms),
		clock:      clock,
		inviteCode: RandomInviteCode,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// CreateRoom creates a paused room owned by ownerID with a fresh invite code.
func (s *RoomService) CreateRoom(ctx context.Context, ownerID, name, description string, mode domain.Mode) (*domain.Room, error) {
	if strings.TrimSpace(name) == "" {
		return nil, domain.ErrEmptyRoomName
	}

	for range inviteAttempts {
		code, err := s.inviteCode()
		if err != nil {
			return nil, fmt.Errorf("invite code: %w", err)
		}
		room, err := domain.NewRoom(uuid.NewString(), ownerID, name, description, mode, code, s.clock.Now())
		if err != nil {
			return nil, err
		}
		err = s.rooms.Create(ctx, room.ID, room, "inviteCode")
		if errors.Is(err, store.ErrExists) {
			metrics.IncInviteCollision()
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("rooms.Create: %w", err)
		}

		metrics.IncRoomCreated(string(room.Mode))
		slog.InfoContext(ctx, "room created", "room_id", room.ID, "owner", ownerID, "mode", room.Mode)
		return room, nil
	}
	return nil, errors.New("could not allocate a unique invite code")
}

// GetRoom returns the stored room.
func (s *RoomService) GetRoom(ctx context.Context, id string) (*domain.Room, error) {
	room, err := s.rooms.Get(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, domain.ErrRoomNotFound
		}
		return nil, err
	}
	return room, nil
}

// JoinRoom adds userID to the room holding inviteCode. Joining twice is a no-op.
func (s *RoomService) JoinRoom(ctx context.Context, userID, inviteCode string) (*domain.Room, error) {
	code := strings.ToUpper(strings.TrimSpace(inviteCode))
	if code == "" {
		return nil, domain.ErrInviteNotFound
	}
	found, err := s.rooms.Find(ctx, store.Eq("inviteCode", code))
	if err != nil {
		return nil, fmt.Errorf("rooms.Find: %w", err)
	}
	if len(found) == 0 {
		return nil, domain.ErrInviteNotFound
	}

	var added bool
	room, err := s.rooms.Update(ctx, found[0].ID, func(r *domain.Room) error {
		added = !lo.Contains(r.Members, userID)
		r.Members = lo.Uniq(append(r.Members, userID))
		return nil
	})
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, domain.ErrInviteNotFound
		}
		return nil, fmt.Errorf("rooms.Update: %w", err)
	}

	metrics.IncRoomJoin(added)
	if added {
		slog.InfoContext(ctx, "room joined", "room_id", room.ID, "user_id", userID)
	}
	return room, nil
}

// ListRoomsForUser returns every room userID belongs to, newest first.
func (s *RoomService) ListRoomsForUser(ctx context.Context, userID string) ([]domain.Room, error) {
	rooms, err := s.rooms.Find(ctx, store.Contains("members", userID))
	if err != nil {
		return nil, fmt.Errorf("rooms.Find: %w", err)
	}
	slices.SortStableFunc(rooms, func(a, b domain.Room) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return rooms, nil
}
