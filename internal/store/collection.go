package store

import (
	"context"
	"encoding/json"
	"fmt"
)

// Collection is a typed view over one kind of document.
type Collection[T any] struct {
	store Store
	kind  Kind
}

func NewCollection[T any](s Store, kind Kind) *Collection[T] {
	return &Collection[T]{store: s, kind: kind}
}

func (c *Collection[T]) Kind() Kind { return c.kind }

func (c *Collection[T]) Get(ctx context.Context, id string) (*T, error) {
	doc, err := c.store.Get(ctx, c.kind, id)
	if err != nil {
		return nil, err
	}
	return c.decode(doc.Body)
}

// Create stores v under id. See Store.Create for unique.
func (c *Collection[T]) Create(ctx context.Context, id string, v *T, unique ...string) error {
	body, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s/%s: %w", c.kind, id, err)
	}
	return c.store.Create(ctx, c.kind, id, body, unique...)
}

// Update loads the entity, applies fn and writes it back atomically.
func (c *Collection[T]) Update(ctx context.Context, id string, fn func(*T) error) (*T, error) {
	var out *T
	_, err := c.store.Update(ctx, c.kind, id, func(body []byte) ([]byte, error) {
		v, err := c.decode(body)
		if err != nil {
			return nil, err
		}
		if err := fn(v); err != nil {
			return nil, err
		}
		next, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("encode %s/%s: %w", c.kind, id, err)
		}
		out = v
		return next, nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Collection[T]) Find(ctx context.Context, filters ...Filter) ([]T, error) {
	docs, err := c.store.Find(ctx, c.kind, filters...)
	if err != nil {
		return nil, err
	}
	out := make([]T, 0, len(docs))
	for _, d := range docs {
		v, err := c.decode(d.Body)
		if err != nil {
			return nil, err
		}
		out = append(out, *v)
	}
	return out, nil
}

func (c *Collection[T]) decode(body []byte) (*T, error) {
	var v T
	if err := json.Unmarshal(body, &v); err != nil {
		return nil, fmt.Errorf("decode %s: %w", c.kind, err)
	}
	return &v, nil
}
