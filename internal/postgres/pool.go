package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

type Config struct {
	DSN               string
	MaxConns          int32
	MinConns          int32
	MaxConnLifetime   time.Duration
	MaxConnIdleTime   time.Duration
	HealthCheckPeriod time.Duration
	ApplicationName   string
	// ConnectAttempts bounds the startup ping loop; zero means 5.
	ConnectAttempts int
}

func poolConfig(cfg Config) (*pgxpool.Config, error) {
	pc, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}

	set := func(dst *time.Duration, v time.Duration) {
		if v > 0 {
			*dst = v
		}
	}
	if cfg.MaxConns > 0 {
		pc.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 && cfg.MinConns <= pc.MaxConns {
		pc.MinConns = cfg.MinConns
	}
	set(&pc.MaxConnLifetime, cfg.MaxConnLifetime)
	set(&pc.MaxConnIdleTime, cfg.MaxConnIdleTime)
	set(&pc.HealthCheckPeriod, cfg.HealthCheckPeriod)

	if cfg.ApplicationName != "" {
		pc.ConnConfig.RuntimeParams["application_name"] = cfg.ApplicationName
	}
	return pc, nil
}

// NewPool opens a pool and waits until the database answers, retrying with
// a doubling delay while it starts up.
func NewPool(ctx context.Context, cfg Config) (*pgxpool.Pool, error) {
	pc, err := poolConfig(cfg)
	if err != nil {
		return nil, err
	}
	pool, err := pgxpool.NewWithConfig(ctx, pc)
	if err != nil {
		return nil, err
	}

	attempts := cfg.ConnectAttempts
	if attempts <= 0 {
		attempts = 5
	}
	delay := 200 * time.Millisecond
	for i := 1; ; i++ {
		err = ping(ctx, pool)
		if err == nil {
			return pool, nil
		}
		if i == attempts {
			break
		}
		select {
		case <-ctx.Done():
			pool.Close()
			return nil, ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}
	pool.Close()
	return nil, fmt.Errorf("postgres unreachable after %d attempts: %w", attempts, err)
}

func ping(ctx context.Context, pool *pgxpool.Pool) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return pool.Ping(ctx)
}
