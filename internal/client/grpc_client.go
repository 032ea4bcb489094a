package client

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cwrk-planet/studyroom/internal/domain"
	grpcx "github.com/cwrk-planet/studyroom/internal/transport/grpc"
	"github.com/cwrk-planet/studyroom/pkg/httputil"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

var ErrUpstream = errors.New("upstream error")

type Options struct {
	Target  string
	Timeout time.Duration
	// Token is sent as a bearer token; empty means guest.
	Token       string
	DialOptions []grpc.DialOption
}

// GRPCClient talks to the RoomSync service. Responses are decoded into
// client-side shapes with raw timestamps rather than the server's types.
type GRPCClient struct {
	conn    *grpc.ClientConn
	timeout time.Duration
	token   string
}

var _ RoomAPI = (*GRPCClient)(nil)

func NewGRPC(opts Options) (*GRPCClient, error) {
	if opts.Target == "" {
		return nil, fmt.Errorf("room client: empty target")
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 5 * time.Second
	}
	dialOpts := append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.CallContentSubtype(grpcx.CodecName)),
	}, opts.DialOptions...)

	conn, err := grpc.NewClient(opts.Target, dialOpts...)
	if err != nil {
		return nil, fmt.Errorf("room client: new client failed: %w", err)
	}
	return &GRPCClient{conn: conn, timeout: opts.Timeout, token: opts.Token}, nil
}

func (c *GRPCClient) Close() error { return c.conn.Close() }

func (c *GRPCClient) withOutboundMeta(ctx context.Context) context.Context {
	if rid, ok := httputil.FromContext(ctx); ok {
		ctx = metadata.AppendToOutgoingContext(ctx, "x-request-id", rid)
	}
	if c.token != "" {
		ctx = metadata.AppendToOutgoingContext(ctx, "authorization", "Bearer "+c.token)
	}
	return ctx
}

func (c *GRPCClient) invoke(ctx context.Context, method string, in, out any) error {
	rpcCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	if err := c.conn.Invoke(c.withOutboundMeta(rpcCtx), method, in, out); err != nil {
		return fromStatus(err)
	}
	return nil
}

type roomEnvelope struct {
	Room *Snapshot `json:"room"`
}

func (c *GRPCClient) GetRoom(ctx context.Context, roomID string) (Snapshot, error) {
	var res roomEnvelope
	if err := c.invoke(ctx, grpcx.MethodGetRoom, &grpcx.GetRoomRequest{ID: roomID}, &res); err != nil {
		return Snapshot{}, err
	}
	if res.Room == nil {
		return Snapshot{}, fmt.Errorf("%w: empty room", ErrUpstream)
	}
	return *res.Room, nil
}

func (c *GRPCClient) ControlTimer(ctx context.Context, roomID string, action domain.TimerAction) (Snapshot, error) {
	var res roomEnvelope
	req := &grpcx.ControlTimerRequest{RoomID: roomID, Action: string(action)}
	if err := c.invoke(ctx, grpcx.MethodControlTimer, req, &res); err != nil {
		return Snapshot{}, err
	}
	if res.Room == nil {
		return Snapshot{}, fmt.Errorf("%w: empty room", ErrUpstream)
	}
	return *res.Room, nil
}

func (c *GRPCClient) ListTasks(ctx context.Context, roomID string) ([]Task, error) {
	var res struct {
		Items []Task `json:"items"`
	}
	if err := c.invoke(ctx, grpcx.MethodListTasks, &grpcx.ListTasksRequest{RoomID: roomID}, &res); err != nil {
		return nil, err
	}
	return res.Items, nil
}

// fromStatus maps gRPC codes back onto domain sentinels.
func fromStatus(err error) error {
	st, ok := status.FromError(err)
	if !ok {
		return fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	switch st.Code() {
	case codes.InvalidArgument:
		return fmt.Errorf("%w: %s", domain.ErrValidation, st.Message())
	case codes.NotFound:
		return fmt.Errorf("%w: %s", domain.ErrNotFound, st.Message())
	case codes.PermissionDenied:
		return fmt.Errorf("%w: %s", domain.ErrPermissionDenied, st.Message())
	case codes.Unauthenticated:
		return fmt.Errorf("%w: %s", domain.ErrUnauthenticated, st.Message())
	default:
		return fmt.Errorf("%w: %s: %s", ErrUpstream, st.Code(), st.Message())
	}
}
