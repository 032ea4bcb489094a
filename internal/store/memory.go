package store

import (
	"context"
	"slices"
	"sync"
)

type memEntry struct {
	version int64
	body    []byte
}

type memKind struct {
	docs  map[string]*memEntry
	order []string
}

// MemoryStore keeps documents in process memory. Every instance is
// independent, so tests can build as many as they need.
type MemoryStore struct {
	mu    sync.RWMutex
	kinds map[Kind]*memKind
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{kinds: make(map[Kind]*memKind)}
}

func (m *MemoryStore) kind(k Kind) *memKind {
	mk, ok := m.kinds[k]
	if !ok {
		mk = &memKind{docs: make(map[string]*memEntry)}
		m.kinds[k] = mk
	}
	return mk
}

func (m *MemoryStore) Get(_ context.Context, kind Kind, id string) (Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	mk, ok := m.kinds[kind]
	if !ok {
		return Document{}, ErrNotFound
	}
	e, ok := mk.docs[id]
	if !ok {
		return Document{}, ErrNotFound
	}
	return Document{ID: id, Version: e.version, Body: slices.Clone(e.body)}, nil
}

func (m *MemoryStore) Create(_ context.Context, kind Kind, id string, body []byte, unique ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	mk := m.kind(kind)
	if _, ok := mk.docs[id]; ok {
		return ErrExists
	}
	for _, f := range UniqueFilters(body, unique) {
		for _, e := range mk.docs {
			if Match(e.body, []Filter{f}) {
				return ErrExists
			}
		}
	}
	mk.docs[id] = &memEntry{version: 1, body: slices.Clone(body)}
	mk.order = append(mk.order, id)
	return nil
}

func (m *MemoryStore) Update(_ context.Context, kind Kind, id string, fn MutateFunc) (Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	mk, ok := m.kinds[kind]
	if !ok {
		return Document{}, ErrNotFound
	}
	e, ok := mk.docs[id]
	if !ok {
		return Document{}, ErrNotFound
	}
	next, err := fn(slices.Clone(e.body))
	if err != nil {
		return Document{}, err
	}
	e.body = slices.Clone(next)
	e.version++
	return Document{ID: id, Version: e.version, Body: slices.Clone(e.body)}, nil
}

func (m *MemoryStore) Find(_ context.Context, kind Kind, filters ...Filter) ([]Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	mk, ok := m.kinds[kind]
	if !ok {
		return nil, nil
	}
	var out []Document
	for _, id := range mk.order {
		e := mk.docs[id]
		if Match(e.body, filters) {
			out = append(out, Document{ID: id, Version: e.version, Body: slices.Clone(e.body)})
		}
	}
	return out, nil
}

func (m *MemoryStore) Close() error { return nil }
