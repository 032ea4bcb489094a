package service

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/cwrk-planet/studyroom/internal/domain"
	"github.com/cwrk-planet/studyroom/internal/store"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

const maxMessageLen = 4000

type ChatService struct {
	messages *store.Collection[domain.ChatMessage]
	clock    clockwork.Clock
}

func NewChatService(st store.Store, clock clockwork.Clock) *ChatService {
	return &ChatService{
		messages: store.NewCollection[domain.ChatMessage](st, store.KindMessages),
		clock:    clock,
	}
}

func (s *ChatService) Save(ctx context.Context, roomID string, author domain.Identity, text string) (*domain.ChatMessage, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, domain.ErrEmptyMessage
	}
	if utf8.RuneCountInString(text) > maxMessageLen {
		return nil, domain.ErrMessageTooLong
	}

	msg := &domain.ChatMessage{
		ID:        uuid.NewString(),
		RoomID:    roomID,
		UserID:    author.UserID,
		UserName:  author.DisplayName(),
		Text:      text,
		CreatedAt: s.clock.Now(),
	}
	if err := s.messages.Create(ctx, msg.ID, msg); err != nil {
		return nil, fmt.Errorf("messages.Create: %w", err)
	}
	return msg, nil
}

// History returns messages newest first, continuing after the given cursor.
func (s *ChatService) History(ctx context.Context, roomID, after string, limit int) ([]domain.ChatMessage, string, error) {
	if limit <= 0 {
		limit = 50
	}
	if limit > 100 {
		limit = 100
	}
	cur, err := DecodeCursor(after)
	if err != nil {
		return nil, "", err
	}

	all, err := s.messages.Find(ctx, store.Eq("roomId", roomID))
	if err != nil {
		return nil, "", fmt.Errorf("messages.Find: %w", err)
	}
	slices.SortStableFunc(all, func(a, b domain.ChatMessage) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(b.ID, a.ID)
	})

	out := make([]domain.ChatMessage, 0, limit)
	for _, m := range all {
		if !cur.before(m.CreatedAt, m.ID) {
			continue
		}
		out = append(out, m)
		if len(out) == limit {
			break
		}
	}

	var next string
	if len(out) == limit {
		last := out[len(out)-1]
		if c, e := EncodeCursor(Cursor{CreatedAt: last.CreatedAt, ID: last.ID}); e == nil {
			next = c
		}
	}
	return out, next, nil
}
