package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os/signal"
	"syscall"

	"github.com/cwrk-planet/studyroom/config"
	"github.com/cwrk-planet/studyroom/internal/auth"
	"github.com/cwrk-planet/studyroom/internal/postgres"
	"github.com/cwrk-planet/studyroom/internal/redisstore"
	"github.com/cwrk-planet/studyroom/internal/service"
	"github.com/cwrk-planet/studyroom/internal/store"
	"github.com/cwrk-planet/studyroom/internal/tracing"
	grpcx "github.com/cwrk-planet/studyroom/internal/transport/grpc"
	httpx "github.com/cwrk-planet/studyroom/internal/transport/http"
	"github.com/cwrk-planet/studyroom/pkg/logger"

	"github.com/jonboulle/clockwork"
	"github.com/spf13/cobra"
	"google.golang.org/grpc"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP and gRPC servers",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		return serve(cmd.Context(), cfg)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func initLogger(cfg *config.Config) {
	logger.Init(logger.Config{
		Env:       logger.Env(cfg.Logging.Env),
		Service:   cfg.Logging.Service,
		Version:   cfg.Logging.Version,
		Backend:   logger.Backend(cfg.Logging.Backend),
		AddSource: cfg.Logging.AddSource,
		Debug:     cfg.Logging.Debug,
		File:      cfg.Logging.File,
		MaxSizeMB: cfg.Logging.MaxSizeMB,
	})
}

func serve(ctx context.Context, cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	initLogger(cfg)
	log := logger.L()
	log.Info("starting studyroom",
		"env", cfg.Logging.Env, "version", cfg.Logging.Version, "store", cfg.Store.Driver)

	// --- tracing ---
	shutdownTracer, err := tracing.InitTracer(ctx, tracing.Config{
		ServiceName: cfg.Logging.Service,
		Version:     cfg.Logging.Version,
		Environment: cfg.Logging.Env,
		Endpoint:    cfg.Tracing.Endpoint,
		Insecure:    cfg.Tracing.Insecure,
		SampleRatio: cfg.Tracing.SampleRatio,
	})
	if err != nil {
		return fmt.Errorf("tracing: %w", err)
	}
	defer func() { _ = shutdownTracer(context.Background()) }()

	// --- storage ---
	st, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	// --- services ---
	clock := clockwork.NewRealClock()
	svc := service.New(st, clock)

	authn, err := newAuthenticator(cfg, clock)
	if err != nil {
		return err
	}

	// --- HTTP ---
	router := httpx.NewRouter(httpx.NewHandler(svc), authn, httpx.RouterOptions{
		CORSOrigins:    cfg.HTTP.CORSOrigins,
		RateLimitRPS:   cfg.RateLimit.RPS,
		RateLimitBurst: cfg.RateLimit.Burst,
		TrustProxy:     cfg.HTTP.TrustProxy,
	})
	httpSrv := httpx.NewServer(httpx.Config{
		Addr:         cfg.HTTP.Addr,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}, router)

	// --- gRPC ---
	grpcServer := grpc.NewServer(grpc.ChainUnaryInterceptor(grpcx.UnaryServerInterceptor()))
	grpcx.Register(grpcServer, grpcx.NewServer(svc, authn))

	// --- run both servers ---
	errCh := make(chan error, 2)

	go func() {
		log.Info("http listen", "addr", cfg.HTTP.Addr)
		if err := httpSrv.Run(ctx); err != nil {
			errCh <- fmt.Errorf("http: %w", err)
		}
	}()

	go func() {
		lis, err := net.Listen("tcp", cfg.GRPC.Addr)
		if err != nil {
			errCh <- fmt.Errorf("grpc listen: %w", err)
			return
		}
		log.Info("grpc listen", "addr", cfg.GRPC.Addr)
		if err := grpcServer.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			errCh <- fmt.Errorf("grpc: %w", err)
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
		log.Info("shutdown signal")
	case runErr = <-errCh:
		log.Error("server error", "err", runErr)
		stop()
	}

	grpcServer.GracefulStop()
	log.Info("stopped")
	return runErr
}

func openStore(ctx context.Context, cfg *config.Config) (store.Store, error) {
	switch cfg.Store.Driver {
	case config.StorePostgres:
		if cfg.Postgres.AutoMigrate {
			if err := postgres.Migrate(ctx, cfg.Postgres.DSN, "up"); err != nil {
				return nil, fmt.Errorf("migrate: %w", err)
			}
		}
		pool, err := postgres.NewPool(ctx, postgres.Config{
			DSN:               cfg.Postgres.DSN,
			MaxConns:          cfg.Postgres.MaxConns,
			MinConns:          cfg.Postgres.MinConns,
			MaxConnLifetime:   cfg.Postgres.MaxConnLifetime,
			MaxConnIdleTime:   cfg.Postgres.MaxConnIdleTime,
			HealthCheckPeriod: cfg.Postgres.HealthCheckPeriod,
			ApplicationName:   cfg.Logging.Service,
		})
		if err != nil {
			return nil, fmt.Errorf("postgres: %w", err)
		}
		return postgres.NewDocumentStore(pool), nil
	case config.StoreRedis:
		rs, err := redisstore.New(ctx, redisstore.Config{
			Addr:      cfg.Redis.Addr,
			Password:  cfg.Redis.Password,
			DB:        cfg.Redis.DB,
			KeyPrefix: cfg.Redis.KeyPrefix,
		})
		if err != nil {
			return nil, fmt.Errorf("redis: %w", err)
		}
		return rs, nil
	default:
		return store.NewMemoryStore(), nil
	}
}

func authConfig(cfg *config.Config) auth.Config {
	return auth.Config{
		Alg:           cfg.Auth.Alg,
		Secret:        cfg.Auth.Secret,
		PublicKeyPath: cfg.Auth.PublicKeyPath,
		Issuer:        cfg.Auth.Issuer,
		Audience:      cfg.Auth.Audience,
		ClockSkew:     cfg.Auth.ClockSkew,
	}
}

func newAuthenticator(cfg *config.Config, clock clockwork.Clock) (*auth.Authenticator, error) {
	policy, err := auth.ParsePolicy(cfg.Auth.OnFailure)
	if err != nil {
		return nil, err
	}
	v, err := auth.NewVerifier(authConfig(cfg), clock)
	if err != nil {
		if policy == auth.PolicyReject {
			return nil, fmt.Errorf("auth: %w", err)
		}
		// every request becomes a guest
		slog.Warn("token verification disabled", "err", err)
		v = nil
	}
	return auth.NewAuthenticator(v, policy), nil
}
