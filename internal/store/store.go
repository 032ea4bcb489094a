// Package store is the single document storage capability shared by the
// room, task and message services. Backends persist opaque JSON bodies
// keyed by kind and id; Collection adds typed access on top.
package store

import (
	"context"
	"errors"
)

var (
	ErrNotFound = errors.New("document not found")
	ErrConflict = errors.New("document changed concurrently")
	ErrExists   = errors.New("document already exists")
)

type Kind string

const (
	KindRooms    Kind = "rooms"
	KindTasks    Kind = "tasks"
	KindMessages Kind = "messages"
)

type Document struct {
	ID      string
	Version int64
	Body    []byte
}

// MutateFunc receives the current body and returns its replacement.
// Returning an error aborts the update and leaves the document unchanged.
type MutateFunc func(body []byte) ([]byte, error)

type Store interface {
	Get(ctx context.Context, kind Kind, id string) (Document, error)
	// Create inserts a new document and fails with ErrExists if the id is
	// taken or, atomically with the insert, if another document of the kind
	// holds the same value in any of the unique top-level fields.
	Create(ctx context.Context, kind Kind, id string, body []byte, unique ...string) error
	// Update is an atomic read-modify-write; the stored version is bumped
	// when fn succeeds.
	Update(ctx context.Context, kind Kind, id string, fn MutateFunc) (Document, error)
	// Find returns the documents matching every filter, oldest first.
	Find(ctx context.Context, kind Kind, filters ...Filter) ([]Document, error)
	Close() error
}
