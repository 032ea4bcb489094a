package grpcx_test

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/cwrk-planet/studyroom/internal/auth"
	"github.com/cwrk-planet/studyroom/internal/service"
	"github.com/cwrk-planet/studyroom/internal/store"
	grpcx "github.com/cwrk-planet/studyroom/internal/transport/grpc"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
)

const secret = "grpc-secret"

var epoch = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

type harness struct {
	conn  *grpc.ClientConn
	clock *clockwork.FakeClock
	cfg   auth.Config
}

func newHarness(t *testing.T, policy auth.Policy) *harness {
	t.Helper()
	clock := clockwork.NewFakeClockAt(epoch)
	cfg := auth.Config{Alg: auth.AlgHS256, Secret: secret, ClockSkew: time.Minute}
	v, err := auth.NewVerifier(cfg, clock)
	require.NoError(t, err)

	lis := bufconn.Listen(1 << 20)
	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(grpcx.UnaryServerInterceptor()))
	grpcx.Register(srv, grpcx.NewServer(service.New(store.NewMemoryStore(), clock), auth.NewAuthenticator(v, policy)))
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.CallContentSubtype(grpcx.CodecName)),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	return &harness{conn: conn, clock: clock, cfg: cfg}
}

func (h *harness) ctxAs(t *testing.T, userID string) context.Context {
	t.Helper()
	ctx := context.Background()
	if userID == "" {
		return ctx
	}
	tok, err := auth.SignHS256(secret, h.cfg, userID, userID, h.clock.Now(), time.Hour)
	require.NoError(t, err)
	return metadata.AppendToOutgoingContext(ctx, "authorization", "Bearer "+tok)
}

func TestRoomSync_EndToEnd(t *testing.T) {
	h := newHarness(t, auth.PolicyGuest)
	alice := h.ctxAs(t, "alice")

	var created grpcx.RoomResponse
	require.NoError(t, h.conn.Invoke(alice, grpcx.MethodCreateRoom, &grpcx.CreateRoomRequest{Name: "Algebra"}, &created))
	room := created.Room
	assert.EqualValues(t, 1500, room.TimerRemaining)
	assert.Nil(t, room.LastTick)

	var started grpcx.RoomResponse
	require.NoError(t, h.conn.Invoke(alice, grpcx.MethodControlTimer, &grpcx.ControlTimerRequest{RoomID: room.ID, Action: "start"}, &started))
	require.NotNil(t, started.Room.LastTick)
	assert.True(t, started.Room.LastTick.AsTime().Equal(epoch))

	h.clock.Advance(10 * time.Second)

	var paused grpcx.RoomResponse
	require.NoError(t, h.conn.Invoke(alice, grpcx.MethodControlTimer, &grpcx.ControlTimerRequest{RoomID: room.ID, Action: "pause"}, &paused))
	assert.EqualValues(t, 1490, paused.Room.TimerRemaining)
	assert.False(t, paused.Room.IsTimerRunning)

	bob := h.ctxAs(t, "bob")
	var joined grpcx.RoomResponse
	require.NoError(t, h.conn.Invoke(bob, grpcx.MethodJoinRoom, &grpcx.JoinRoomRequest{InviteCode: room.InviteCode}, &joined))
	assert.ElementsMatch(t, []string{"alice", "bob"}, joined.Room.Members)

	var rooms grpcx.ListRoomsResponse
	require.NoError(t, h.conn.Invoke(bob, grpcx.MethodListRooms, &grpcx.ListRoomsRequest{}, &rooms))
	require.Len(t, rooms.Items, 1)

	var task grpcx.TaskResponse
	require.NoError(t, h.conn.Invoke(alice, grpcx.MethodAddTask, &grpcx.AddTaskRequest{RoomID: room.ID, Text: "proofs"}, &task))

	err := h.conn.Invoke(bob, grpcx.MethodToggleTask, &grpcx.ToggleTaskRequest{RoomID: room.ID, TaskID: task.Task.ID}, &grpcx.TaskResponse{})
	assert.Equal(t, codes.PermissionDenied, status.Code(err))

	var tasks grpcx.ListTasksResponse
	require.NoError(t, h.conn.Invoke(bob, grpcx.MethodListTasks, &grpcx.ListTasksRequest{RoomID: room.ID}, &tasks))
	require.Len(t, tasks.Items, 1)
	assert.False(t, tasks.Items[0].Completed)
}

func TestRoomSync_ErrorCodes(t *testing.T) {
	h := newHarness(t, auth.PolicyGuest)
	ctx := h.ctxAs(t, "alice")

	err := h.conn.Invoke(ctx, grpcx.MethodGetRoom, &grpcx.GetRoomRequest{ID: "missing"}, &grpcx.RoomResponse{})
	assert.Equal(t, codes.NotFound, status.Code(err))

	err = h.conn.Invoke(ctx, grpcx.MethodCreateRoom, &grpcx.CreateRoomRequest{Name: " "}, &grpcx.RoomResponse{})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	err = h.conn.Invoke(ctx, grpcx.MethodControlTimer, &grpcx.ControlTimerRequest{RoomID: "x", Action: "fly"}, &grpcx.RoomResponse{})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	err = h.conn.Invoke(ctx, grpcx.MethodJoinRoom, &grpcx.JoinRoomRequest{InviteCode: "NOPE00"}, &grpcx.RoomResponse{})
	assert.Equal(t, codes.NotFound, status.Code(err))
}

func TestRoomSync_RejectPolicy(t *testing.T) {
	h := newHarness(t, auth.PolicyReject)

	err := h.conn.Invoke(context.Background(), grpcx.MethodListRooms, &grpcx.ListRoomsRequest{}, &grpcx.ListRoomsResponse{})
	assert.Equal(t, codes.Unauthenticated, status.Code(err))

	require.NoError(t, h.conn.Invoke(h.ctxAs(t, "alice"), grpcx.MethodListRooms, &grpcx.ListRoomsRequest{}, &grpcx.ListRoomsResponse{}))
}
