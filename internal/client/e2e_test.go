package client_test

import (
	"context"
	"net"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/cwrk-planet/studyroom/internal/auth"
	"github.com/cwrk-planet/studyroom/internal/client"
	"github.com/cwrk-planet/studyroom/internal/domain"
	"github.com/cwrk-planet/studyroom/internal/service"
	"github.com/cwrk-planet/studyroom/internal/store"
	grpcx "github.com/cwrk-planet/studyroom/internal/transport/grpc"
	transporthttp "github.com/cwrk-planet/studyroom/internal/transport/http"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/test/bufconn"
)

type backend struct {
	svc   *service.Services
	clock *clockwork.FakeClock
	authn *auth.Authenticator
}

func newBackend() *backend {
	clock := clockwork.NewFakeClockAt(epoch)
	return &backend{
		svc:   service.New(store.NewMemoryStore(), clock),
		clock: clock,
		authn: auth.NewAuthenticator(nil, auth.PolicyGuest),
	}
}

func (b *backend) httpAPI(t *testing.T) client.RoomAPI {
	t.Helper()
	h := transporthttp.NewRouter(transporthttp.NewHandler(b.svc), b.authn, transporthttp.RouterOptions{})
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return client.NewHTTP(srv.URL, "", time.Second)
}

func (b *backend) grpcAPI(t *testing.T) client.RoomAPI {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(grpcx.UnaryServerInterceptor()))
	grpcx.Register(srv, grpcx.NewServer(b.svc, b.authn))
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	c, err := client.NewGRPC(client.Options{
		Target:  "passthrough:///bufnet",
		Timeout: time.Second,
		DialOptions: []grpc.DialOption{
			grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		},
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestEndToEnd(t *testing.T) {
	transports := map[string]func(*backend, *testing.T) client.RoomAPI{
		"http": (*backend).httpAPI,
		"grpc": (*backend).grpcAPI,
	}
	for name, dial := range transports {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			b := newBackend()
			api := dial(b, t)

			room, err := b.svc.Rooms.CreateRoom(ctx, domain.GuestID, "Algebra", "", domain.ModePomodoro)
			require.NoError(t, err)

			r := client.NewReconciler(api, room.ID, b.clock, client.Config{})
			out, err := r.Reconcile(ctx)
			require.NoError(t, err)
			assert.Equal(t, client.OutcomeResynced, out)
			assert.Equal(t, client.State{Remaining: 1500}, r.State())

			require.NoError(t, r.Start(ctx))
			assert.Equal(t, client.State{Remaining: 1500, Running: true, Version: 1}, r.State())

			// no local ticks ran, so ten seconds of server time is real drift
			b.clock.Advance(10 * time.Second)
			out, err = r.Reconcile(ctx)
			require.NoError(t, err)
			assert.Equal(t, client.OutcomeResynced, out)
			assert.Equal(t, 1490, r.State().Remaining)

			b.clock.Advance(time.Second)
			r.Tick()
			out, err = r.Reconcile(ctx)
			require.NoError(t, err)
			assert.Equal(t, client.OutcomeInSync, out)

			require.NoError(t, r.Pause(ctx))
			assert.Equal(t, client.State{Remaining: 1489, Running: false, Version: 2}, r.State())

			_, err = client.NewReconciler(api, "missing", b.clock, client.Config{}).Reconcile(ctx)
			require.ErrorIs(t, err, domain.ErrNotFound)

			_, err = b.svc.Tasks.AddTask(ctx, room.ID, domain.Identity{UserID: "alice", Name: "Alice"}, "chapter 1")
			require.NoError(t, err)
			_, err = b.svc.Tasks.AddTask(ctx, room.ID, domain.GuestIdentity(), "flashcards")
			require.NoError(t, err)

			p := client.NewTaskPoller(api, room.ID, b.clock, 0, 0)
			require.NoError(t, p.Poll(ctx))
			mine, team := p.Split("alice")
			require.Len(t, mine, 1)
			require.Len(t, team, 1)
			assert.Equal(t, "chapter 1", mine[0].Text)
			assert.Equal(t, "Guest", team[0].OwnerName)
			assert.True(t, epoch.Add(11*time.Second).Equal(mine[0].Created()))
		})
	}
}
