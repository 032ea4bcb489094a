package grpcx

import (
	"context"
	"errors"
	"time"

	"github.com/cwrk-planet/studyroom/internal/auth"
	"github.com/cwrk-planet/studyroom/internal/domain"
	"github.com/cwrk-planet/studyroom/internal/service"
	"github.com/cwrk-planet/studyroom/internal/store"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/timestamppb"
)

const (
	mdAuthorization = "authorization"
	mdRequestID     = "x-request-id"
)

type Server struct {
	svc   *service.Services
	authn *auth.Authenticator
}

func NewServer(svc *service.Services, authn *auth.Authenticator) *Server {
	return &Server{svc: svc, authn: authn}
}

var _ RoomSyncServer = (*Server)(nil)

// -------- helpers --------

func (s *Server) identity(ctx context.Context) (domain.Identity, error) {
	var header string
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		header = first(md.Get(mdAuthorization))
	}
	id, err := s.authn.Authenticate(ctx, header)
	if err != nil {
		return domain.Identity{}, mapErr(err)
	}
	return id, nil
}

func first(ss []string) string {
	if len(ss) == 0 {
		return ""
	}
	return ss[0]
}

func timestampOrNil(t *time.Time) *timestamppb.Timestamp {
	if t == nil {
		return nil
	}
	return timestamppb.New(*t)
}

func mapRoom(r *domain.Room, now time.Time) *Room {
	return &Room{
		ID:             r.ID,
		Owner:          r.Owner,
		Name:           r.Name,
		Description:    r.Description,
		Mode:           string(r.Mode),
		Duration:       int32(r.Duration),
		TimerRemaining: int32(r.TimerRemaining),
		IsTimerRunning: r.IsTimerRunning,
		LastTick:       timestampOrNil(r.LastTick),
		Version:        r.Version,
		Members:        r.Members,
		InviteCode:     r.InviteCode,
		CreatedAt:      timestamppb.New(r.CreatedAt),
		ServerTime:     timestamppb.New(now),
	}
}

func mapTask(t *domain.Task) *Task {
	return &Task{
		ID:        t.ID,
		RoomID:    t.RoomID,
		Owner:     t.Owner,
		OwnerName: t.OwnerName,
		Text:      t.Text,
		Completed: t.Completed,
		CreatedAt: timestamppb.New(t.CreatedAt),
	}
}

func mapErr(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}
	switch {
	case errors.Is(err, domain.ErrValidation):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, domain.ErrUnauthenticated):
		return status.Error(codes.Unauthenticated, err.Error())
	case errors.Is(err, domain.ErrPermissionDenied):
		return status.Error(codes.PermissionDenied, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, store.ErrConflict):
		return status.Error(codes.Aborted, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}

// -------- methods --------

func (s *Server) CreateRoom(ctx context.Context, in *CreateRoomRequest) (*RoomResponse, error) {
	id, err := s.identity(ctx)
	if err != nil {
		return nil, err
	}
	room, err := s.svc.Rooms.CreateRoom(ctx, id.UserID, in.Name, in.Description, domain.ParseMode(in.Mode))
	if err != nil {
		return nil, mapErr(err)
	}
	return &RoomResponse{Room: mapRoom(room, s.svc.Timer.Now())}, nil
}

func (s *Server) JoinRoom(ctx context.Context, in *JoinRoomRequest) (*RoomResponse, error) {
	id, err := s.identity(ctx)
	if err != nil {
		return nil, err
	}
	room, err := s.svc.Rooms.JoinRoom(ctx, id.UserID, in.InviteCode)
	if err != nil {
		return nil, mapErr(err)
	}
	return &RoomResponse{Room: mapRoom(room, s.svc.Timer.Now())}, nil
}

func (s *Server) ListRooms(ctx context.Context, _ *ListRoomsRequest) (*ListRoomsResponse, error) {
	id, err := s.identity(ctx)
	if err != nil {
		return nil, err
	}
	rooms, err := s.svc.Rooms.ListRoomsForUser(ctx, id.UserID)
	if err != nil {
		return nil, mapErr(err)
	}
	now := s.svc.Timer.Now()
	out := &ListRoomsResponse{Items: make([]*Room, 0, len(rooms))}
	for i := range rooms {
		out.Items = append(out.Items, mapRoom(&rooms[i], now))
	}
	return out, nil
}

func (s *Server) GetRoom(ctx context.Context, in *GetRoomRequest) (*RoomResponse, error) {
	if _, err := s.identity(ctx); err != nil {
		return nil, err
	}
	room, err := s.svc.Rooms.GetRoom(ctx, in.ID)
	if err != nil {
		return nil, mapErr(err)
	}
	return &RoomResponse{Room: mapRoom(room, s.svc.Timer.Now())}, nil
}

func (s *Server) ControlTimer(ctx context.Context, in *ControlTimerRequest) (*RoomResponse, error) {
	if _, err := s.identity(ctx); err != nil {
		return nil, err
	}
	action, err := domain.ParseTimerAction(in.Action)
	if err != nil {
		return nil, mapErr(err)
	}
	room, err := s.svc.Timer.Control(ctx, in.RoomID, action)
	if err != nil {
		return nil, mapErr(err)
	}
	return &RoomResponse{Room: mapRoom(room, s.svc.Timer.Now())}, nil
}

func (s *Server) AddTask(ctx context.Context, in *AddTaskRequest) (*TaskResponse, error) {
	id, err := s.identity(ctx)
	if err != nil {
		return nil, err
	}
	task, err := s.svc.Tasks.AddTask(ctx, in.RoomID, id, in.Text)
	if err != nil {
		return nil, mapErr(err)
	}
	return &TaskResponse{Task: mapTask(task)}, nil
}

func (s *Server) ListTasks(ctx context.Context, in *ListTasksRequest) (*ListTasksResponse, error) {
	if _, err := s.identity(ctx); err != nil {
		return nil, err
	}
	tasks, err := s.svc.Tasks.ListTasks(ctx, in.RoomID)
	if err != nil {
		return nil, mapErr(err)
	}
	out := &ListTasksResponse{Items: make([]*Task, 0, len(tasks))}
	for i := range tasks {
		out.Items = append(out.Items, mapTask(&tasks[i]))
	}
	return out, nil
}

func (s *Server) ToggleTask(ctx context.Context, in *ToggleTaskRequest) (*TaskResponse, error) {
	id, err := s.identity(ctx)
	if err != nil {
		return nil, err
	}
	task, err := s.svc.Tasks.ToggleTask(ctx, in.RoomID, in.TaskID, id.UserID)
	if err != nil {
		return nil, mapErr(err)
	}
	return &TaskResponse{Task: mapTask(task)}, nil
}
