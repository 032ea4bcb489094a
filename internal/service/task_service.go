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
)

// TaskService is the per-room task ledger. Tasks are append-only; the only
// mutation is an owner toggling completion.
type TaskService struct {
	tasks *store.Collection[domain.Task]
	clock clockwork.Clock
}

func NewTaskService(st store.Store, clock clockwork.Clock) *TaskService {
	return &TaskService{
		tasks: store.NewCollection[domain.Task](st, store.KindTasks),
		clock: clock,
	}
}

// AddTask appends a task owned by the caller. Room membership is not checked.
func (s *TaskService) AddTask(ctx context.Context, roomID string, owner domain.Identity, text string) (*domain.Task, error) {
	task, err := domain.NewTask(uuid.NewString(), roomID, owner.UserID, owner.DisplayName(), text, s.clock.Now())
	if err != nil {
		metrics.IncTaskOp("add", err)
		return nil, err
	}
	if err := s.tasks.Create(ctx, task.ID, task); err != nil {
		metrics.IncTaskOp("add", err)
		return nil, fmt.Errorf("tasks.Create: %w", err)
	}
	metrics.IncTaskOp("add", nil)
	return task, nil
}

// ListTasks returns the room's tasks, newest first.
func (s *TaskService) ListTasks(ctx context.Context, roomID string) ([]domain.Task, error) {
	tasks, err := s.tasks.Find(ctx, store.Eq("roomId", roomID))
	if err != nil {
		return nil, fmt.Errorf("tasks.Find: %w", err)
	}
	sortNewestFirst(tasks)
	return tasks, nil
}

// ToggleTask flips completion. Only the task owner may do so.
func (s *TaskService) ToggleTask(ctx context.Context, roomID, taskID, requester string) (*domain.Task, error) {
	task, err := s.tasks.Update(ctx, taskID, func(t *domain.Task) error {
		if t.RoomID != roomID {
			return domain.ErrTaskNotFound
		}
		return t.Toggle(requester)
	})
	if errors.Is(err, store.ErrNotFound) {
		err = domain.ErrTaskNotFound
	}
	metrics.IncTaskOp("toggle", err)
	if err != nil {
		if errors.Is(err, domain.ErrPermissionDenied) {
			slog.WarnContext(ctx, "task toggle denied", "task_id", taskID, "requester", requester)
		}
		return nil, err
	}
	return task, nil
}

func sortNewestFirst(tasks []domain.Task) {
	slices.SortStableFunc(tasks, func(a, b domain.Task) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(b.ID, a.ID)
	})
}
