package service

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

var ErrInvalidCursor = errors.New("invalid cursor")

type Cursor struct {
	CreatedAt time.Time `json:"created_at"`
	ID        string    `json:"id"`
}

func EncodeCursor(c Cursor) (string, error) {
	data, err := json.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("encode cursor: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(data), nil
}

func DecodeCursor(s string) (*Cursor, error) {
	if s == "" {
		return nil, nil
	}
	data, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: decode base64: %v", ErrInvalidCursor, err)
	}
	var c Cursor
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("%w: decode json: %v", ErrInvalidCursor, err)
	}
	return &c, nil
}

// before reports whether (t, id) sorts strictly after the cursor in
// newest-first order.
func (c *Cursor) before(t time.Time, id string) bool {
	if c == nil {
		return true
	}
	return t.Before(c.CreatedAt) || (t.Equal(c.CreatedAt) && id < c.ID)
}
