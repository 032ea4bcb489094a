package service_test

import (
	"testing"
	"time"

	"github.com/cwrk-planet/studyroom/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	alice = domain.Identity{UserID: "alice", Name: "Alice"}
	bob   = domain.Identity{UserID: "bob", Name: "Bob"}
)

func TestAddTask_ListNewestFirst(t *testing.T) {
	f := newFixture(t)

	first, err := f.svc.Tasks.AddTask(f.ctx, "room-1", alice, "outline")
	require.NoError(t, err)
	f.clock.Advance(time.Second)
	second, err := f.svc.Tasks.AddTask(f.ctx, "room-1", bob, "flashcards")
	require.NoError(t, err)
	_, err = f.svc.Tasks.AddTask(f.ctx, "room-2", bob, "elsewhere")
	require.NoError(t, err)

	assert.Equal(t, "Alice", first.OwnerName)
	assert.False(t, first.Completed)

	tasks, err := f.svc.Tasks.ListTasks(f.ctx, "room-1")
	require.NoError(t, err)
	require.Len(t, tasks, 2)
	assert.Equal(t, second.ID, tasks[0].ID)
	assert.Equal(t, first.ID, tasks[1].ID)
}

func TestAddTask_RejectsBlankText(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Tasks.AddTask(f.ctx, "room-1", alice, "   ")
	require.ErrorIs(t, err, domain.ErrValidation)

	tasks, err := f.svc.Tasks.ListTasks(f.ctx, "room-1")
	require.NoError(t, err)
	assert.Empty(t, tasks)
}

func TestAddTask_DefaultOwnerName(t *testing.T) {
	f := newFixture(t)
	task, err := f.svc.Tasks.AddTask(f.ctx, "room-1", domain.Identity{UserID: "u1"}, "x")
	require.NoError(t, err)
	assert.Equal(t, "User", task.OwnerName)
}

func TestToggleTask_OwnerOnly(t *testing.T) {
	f := newFixture(t)
	task, err := f.svc.Tasks.AddTask(f.ctx, "room-1", alice, "read")
	require.NoError(t, err)

	_, err = f.svc.Tasks.ToggleTask(f.ctx, "room-1", task.ID, bob.UserID)
	require.ErrorIs(t, err, domain.ErrPermissionDenied)

	tasks, err := f.svc.Tasks.ListTasks(f.ctx, "room-1")
	require.NoError(t, err)
	assert.False(t, tasks[0].Completed)

	done, err := f.svc.Tasks.ToggleTask(f.ctx, "room-1", task.ID, alice.UserID)
	require.NoError(t, err)
	assert.True(t, done.Completed)

	undone, err := f.svc.Tasks.ToggleTask(f.ctx, "room-1", task.ID, alice.UserID)
	require.NoError(t, err)
	assert.False(t, undone.Completed)
}

func TestToggleTask_NotFound(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Tasks.ToggleTask(f.ctx, "room-1", "missing", alice.UserID)
	require.ErrorIs(t, err, domain.ErrTaskNotFound)

	task, err := f.svc.Tasks.AddTask(f.ctx, "room-1", alice, "read")
	require.NoError(t, err)
	_, err = f.svc.Tasks.ToggleTask(f.ctx, "room-2", task.ID, alice.UserID)
	require.ErrorIs(t, err, domain.ErrNotFound)
}
