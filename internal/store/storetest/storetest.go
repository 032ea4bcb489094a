// Package storetest holds the behaviour every store backend must share.
package storetest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/cwrk-planet/studyroom/internal/store"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type counter struct {
	ID      string   `json:"id"`
	RoomID  string   `json:"roomId"`
	Members []string `json:"members"`
	N       int      `json:"n"`
}

// Run exercises a fresh store returned by newStore.
func Run(t *testing.T, newStore func(t *testing.T) store.Store) {
	t.Run("GetMissing", func(t *testing.T) {
		s := newStore(t)
		_, err := s.Get(context.Background(), store.KindRooms, uuid.NewString())
		require.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("CreateGet", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		col := store.NewCollection[counter](s, store.KindRooms)
		id := uuid.NewString()

		require.NoError(t, col.Create(ctx, id, &counter{ID: id, RoomID: "r", N: 3}))
		got, err := col.Get(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, 3, got.N)

		err = col.Create(ctx, id, &counter{ID: id})
		require.ErrorIs(t, err, store.ErrExists)
	})

	t.Run("CreateUniqueField", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		col := store.NewCollection[counter](s, store.KindRooms)
		room := uuid.NewString()

		require.NoError(t, col.Create(ctx, uuid.NewString(), &counter{RoomID: room}, "roomId"))
		err := col.Create(ctx, uuid.NewString(), &counter{RoomID: room}, "roomId")
		require.ErrorIs(t, err, store.ErrExists)

		// without the constraint the same value is accepted
		require.NoError(t, col.Create(ctx, uuid.NewString(), &counter{RoomID: room}))
	})

	t.Run("ConcurrentCreatesHonourUniqueField", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		col := store.NewCollection[counter](s, store.KindRooms)
		room := uuid.NewString()

		const workers = 8
		var (
			wg      sync.WaitGroup
			mu      sync.Mutex
			created int
		)
		for range workers {
			wg.Add(1)
			go func() {
				defer wg.Done()
				err := col.Create(ctx, uuid.NewString(), &counter{RoomID: room}, "roomId")
				if err == nil {
					mu.Lock()
					created++
					mu.Unlock()
					return
				}
				assert.ErrorIs(t, err, store.ErrExists)
			}()
		}
		wg.Wait()

		assert.Equal(t, 1, created)
		got, err := col.Find(ctx, store.Eq("roomId", room))
		require.NoError(t, err)
		assert.Len(t, got, 1)
	})

	t.Run("UpdateBumpsVersion", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		id := uuid.NewString()
		require.NoError(t, s.Create(ctx, store.KindTasks, id, []byte(`{"n":1}`)))

		before, err := s.Get(ctx, store.KindTasks, id)
		require.NoError(t, err)
		after, err := s.Update(ctx, store.KindTasks, id, func(b []byte) ([]byte, error) {
			return []byte(`{"n":2}`), nil
		})
		require.NoError(t, err)
		assert.Greater(t, after.Version, before.Version)
		assert.JSONEq(t, `{"n":2}`, string(after.Body))
	})

	t.Run("UpdateMissing", func(t *testing.T) {
		s := newStore(t)
		_, err := s.Update(context.Background(), store.KindTasks, uuid.NewString(), func(b []byte) ([]byte, error) {
			return b, nil
		})
		require.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("UpdateAbortLeavesDocument", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		id := uuid.NewString()
		require.NoError(t, s.Create(ctx, store.KindTasks, id, []byte(`{"n":1}`)))

		boom := errors.New("boom")
		_, err := s.Update(ctx, store.KindTasks, id, func(b []byte) ([]byte, error) {
			return nil, boom
		})
		require.ErrorIs(t, err, boom)

		doc, err := s.Get(ctx, store.KindTasks, id)
		require.NoError(t, err)
		assert.JSONEq(t, `{"n":1}`, string(doc.Body))
	})

	t.Run("ConcurrentUpdatesAreSerialized", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		col := store.NewCollection[counter](s, store.KindRooms)
		id := uuid.NewString()
		require.NoError(t, col.Create(ctx, id, &counter{ID: id}))

		const workers = 8
		var wg sync.WaitGroup
		for range workers {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := col.Update(ctx, id, func(c *counter) error {
					c.N++
					return nil
				})
				assert.NoError(t, err)
			}()
		}
		wg.Wait()

		got, err := col.Get(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, workers, got.N)
	})

	t.Run("FindFilters", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		col := store.NewCollection[counter](s, store.KindRooms)
		room := uuid.NewString()

		for i, members := range [][]string{{"alice"}, {"alice", "bob"}, {"carol"}} {
			id := fmt.Sprintf("%s-%d", room, i)
			require.NoError(t, col.Create(ctx, id, &counter{ID: id, RoomID: room, Members: members, N: i}))
		}
		require.NoError(t, col.Create(ctx, "other-"+room, &counter{ID: "other", RoomID: "elsewhere", Members: []string{"alice"}}))

		byRoom, err := col.Find(ctx, store.Eq("roomId", room))
		require.NoError(t, err)
		assert.Len(t, byRoom, 3)

		withBob, err := col.Find(ctx, store.Eq("roomId", room), store.Contains("members", "bob"))
		require.NoError(t, err)
		require.Len(t, withBob, 1)
		assert.Equal(t, 1, withBob[0].N)

		none, err := col.Find(ctx, store.Contains("members", uuid.NewString()))
		require.NoError(t, err)
		assert.Empty(t, none)
	})
}
