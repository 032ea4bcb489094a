package grpcx

import (
	"context"

	"google.golang.org/grpc"
)

const ServiceName = "studyroom.v1.RoomSync"

// Full method names.
const (
	MethodCreateRoom   = "/" + ServiceName + "/CreateRoom"
	MethodJoinRoom     = "/" + ServiceName + "/JoinRoom"
	MethodListRooms    = "/" + ServiceName + "/ListRooms"
	MethodGetRoom      = "/" + ServiceName + "/GetRoom"
	MethodControlTimer = "/" + ServiceName + "/ControlTimer"
	MethodAddTask      = "/" + ServiceName + "/AddTask"
	MethodListTasks    = "/" + ServiceName + "/ListTasks"
	MethodToggleTask   = "/" + ServiceName + "/ToggleTask"
)

type RoomSyncServer interface {
	CreateRoom(context.Context, *CreateRoomRequest) (*RoomResponse, error)
	JoinRoom(context.Context, *JoinRoomRequest) (*RoomResponse, error)
	ListRooms(context.Context, *ListRoomsRequest) (*ListRoomsResponse, error)
	GetRoom(context.Context, *GetRoomRequest) (*RoomResponse, error)
	ControlTimer(context.Context, *ControlTimerRequest) (*RoomResponse, error)
	AddTask(context.Context, *AddTaskRequest) (*TaskResponse, error)
	ListTasks(context.Context, *ListTasksRequest) (*ListTasksResponse, error)
	ToggleTask(context.Context, *ToggleTaskRequest) (*TaskResponse, error)
}

var RoomSyncServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*RoomSyncServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("CreateRoom", RoomSyncServer.CreateRoom),
		unary("JoinRoom", RoomSyncServer.JoinRoom),
		unary("ListRooms", RoomSyncServer.ListRooms),
		unary("GetRoom", RoomSyncServer.GetRoom),
		unary("ControlTimer", RoomSyncServer.ControlTimer),
		unary("AddTask", RoomSyncServer.AddTask),
		unary("ListTasks", RoomSyncServer.ListTasks),
		unary("ToggleTask", RoomSyncServer.ToggleTask),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "studyroom/v1/room_sync",
}

func unary[Req, Resp any](name string, call func(RoomSyncServer, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(RoomSyncServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{
				Server:     srv,
				FullMethod: "/" + ServiceName + "/" + name,
			}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(RoomSyncServer), ctx, req.(*Req))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

func Register(grpcServer *grpc.Server, s RoomSyncServer) {
	grpcServer.RegisterService(&RoomSyncServiceDesc, s)
}
