package main

import (
	"context"
	"fmt"
	"io"
	"os/signal"
	"sync"
	"syscall"

	"github.com/cwrk-planet/studyroom/config"
	"github.com/cwrk-planet/studyroom/internal/client"

	"github.com/jonboulle/clockwork"
	"github.com/spf13/cobra"
)

var watchFlags struct {
	server    string
	room      string
	token     string
	user      string
	transport string
}

// watchCmd follows a room the way the web client does: a local countdown
// reconciled against the server plus a task list refresh.
var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Follow a room's timer and tasks",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		initLogger(cfg)

		api, closeFn, err := dialRoomAPI(cfg)
		if err != nil {
			return err
		}
		defer closeFn()

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return watch(ctx, cmd.OutOrStdout(), api, cfg.Sync)
	},
}

func init() {
	f := watchCmd.Flags()
	f.StringVar(&watchFlags.server, "server", "localhost:9090", "gRPC target or HTTP base URL")
	f.StringVar(&watchFlags.room, "room", "", "room id")
	f.StringVar(&watchFlags.token, "token", "", "bearer token; empty joins as guest")
	f.StringVar(&watchFlags.user, "user", "guest", "user id used to split own tasks from the team's")
	f.StringVar(&watchFlags.transport, "transport", "grpc", "grpc or http")
	_ = watchCmd.MarkFlagRequired("room")
	rootCmd.AddCommand(watchCmd)
}

func dialRoomAPI(cfg *config.Config) (client.RoomAPI, func(), error) {
	switch watchFlags.transport {
	case "http":
		return client.NewHTTP(watchFlags.server, watchFlags.token, cfg.Sync.RequestTimeout), func() {}, nil
	case "grpc":
		c, err := client.NewGRPC(client.Options{
			Target:  watchFlags.server,
			Timeout: cfg.Sync.RequestTimeout,
			Token:   watchFlags.token,
		})
		if err != nil {
			return nil, nil, err
		}
		return c, func() { _ = c.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unknown transport %q", watchFlags.transport)
	}
}

func watch(ctx context.Context, out io.Writer, api client.RoomAPI, sc config.Sync) error {
	clock := clockwork.NewRealClock()

	var mu sync.Mutex
	render := func(s client.State) {
		mu.Lock()
		defer mu.Unlock()
		state := "paused"
		if s.Running {
			state = "running"
		}
		fmt.Fprintf(out, "\r%02d:%02d %-7s v%d", s.Remaining/60, s.Remaining%60, state, s.Version)
	}

	rec := client.NewReconciler(api, watchFlags.room, clock, client.Config{
		TickInterval:   sc.TickInterval,
		PollInterval:   sc.PollInterval,
		DriftThreshold: sc.DriftThreshold,
		RequestTimeout: sc.RequestTimeout,
	}, client.OnChange(render))
	tasks := client.NewTaskPoller(api, watchFlags.room, clock, sc.TaskPollInterval, sc.RequestTimeout)

	// fail fast on a bad room id or a rejected token
	if _, err := rec.Reconcile(ctx); err != nil {
		return err
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() { defer wg.Done(); rec.Run(ctx) }()
	go func() { defer wg.Done(); tasks.Run(ctx) }()

	<-ctx.Done()
	rec.Stop()
	tasks.Stop()
	wg.Wait()

	mine, team := tasks.Split(watchFlags.user)
	mu.Lock()
	defer mu.Unlock()
	fmt.Fprintf(out, "\nmy tasks: %d, team tasks: %d\n", len(mine), len(team))
	for _, t := range mine {
		mark := " "
		if t.Completed {
			mark = "x"
		}
		fmt.Fprintf(out, "  [%s] %s\n", mark, t.Text)
	}
	return nil
}
