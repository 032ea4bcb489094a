package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
	StoreRedis    = "redis"
)

type HTTP struct {
	Addr         string        `yaml:"addr" env:"HTTP_ADDR"`
	ReadTimeout  time.Duration `yaml:"readTimeout" env:"HTTP_READ_TIMEOUT"`
	WriteTimeout time.Duration `yaml:"writeTimeout" env:"HTTP_WRITE_TIMEOUT"`
	IdleTimeout  time.Duration `yaml:"idleTimeout" env:"HTTP_IDLE_TIMEOUT"`
	// CORSOrigins lists allowed origins; empty allows any.
	CORSOrigins []string `yaml:"corsOrigins" env:"HTTP_CORS_ORIGINS" envSeparator:","`
	// TrustProxy honours X-Forwarded-For; guests are rate limited by that address.
	TrustProxy bool `yaml:"trustProxy" env:"HTTP_TRUST_PROXY"`
}

type GRPC struct {
	Addr string `yaml:"addr" env:"GRPC_ADDR"`
}

type Logging struct {
	Env       string `yaml:"env" env:"APP_ENV"`
	Service   string `yaml:"service" env:"LOG_SERVICE"`
	Version   string `yaml:"version" env:"APP_VERSION"`
	Backend   string `yaml:"backend" env:"LOG_BACKEND"` // std|zap
	AddSource bool   `yaml:"addSource" env:"LOG_ADD_SOURCE"`
	Debug     bool   `yaml:"debug" env:"LOG_DEBUG"`
	// File enables a rotated file sink for the zap backend.
	File      string `yaml:"file" env:"LOG_FILE"`
	MaxSizeMB int    `yaml:"maxSizeMB" env:"LOG_MAX_SIZE_MB"`
}

type Store struct {
	Driver string `yaml:"driver" env:"STORE_DRIVER"` // memory|postgres|redis
}

type Postgres struct {
	DSN               string        `yaml:"dsn" env:"POSTGRES_DSN"`
	MaxConns          int32         `yaml:"maxConns" env:"POSTGRES_MAX_CONNS"`
	MinConns          int32         `yaml:"minConns" env:"POSTGRES_MIN_CONNS"`
	MaxConnLifetime   time.Duration `yaml:"maxConnLifetime" env:"POSTGRES_MAX_CONN_LIFETIME"`
	MaxConnIdleTime   time.Duration `yaml:"maxConnIdleTime" env:"POSTGRES_MAX_CONN_IDLE_TIME"`
	HealthCheckPeriod time.Duration `yaml:"healthCheckPeriod" env:"POSTGRES_HEALTH_CHECK_PERIOD"`
	AutoMigrate       bool          `yaml:"autoMigrate" env:"POSTGRES_AUTO_MIGRATE"`
}

type Redis struct {
	Addr      string `yaml:"addr" env:"REDIS_ADDR"`
	Password  string `yaml:"password" env:"REDIS_PASSWORD"`
	DB        int    `yaml:"db" env:"REDIS_DB"`
	KeyPrefix string `yaml:"keyPrefix" env:"REDIS_KEY_PREFIX"`
}

type Auth struct {
	Alg           string        `yaml:"alg" env:"AUTH_ALG"`
	Secret        string        `yaml:"secret" env:"AUTH_SECRET"`
	PublicKeyPath string        `yaml:"publicKeyPath" env:"AUTH_PUBLIC_KEY_PATH"`
	Issuer        string        `yaml:"issuer" env:"AUTH_ISSUER"`
	Audience      string        `yaml:"audience" env:"AUTH_AUDIENCE"`
	ClockSkew     time.Duration `yaml:"clockSkew" env:"AUTH_CLOCK_SKEW"`
	OnFailure     string        `yaml:"onFailure" env:"AUTH_ON_FAILURE"`
}

// Sync holds client cadences. DriftThreshold is in seconds.
type Sync struct {
	TickInterval     time.Duration `yaml:"tickInterval" env:"SYNC_TICK_INTERVAL"`
	PollInterval     time.Duration `yaml:"pollInterval" env:"SYNC_POLL_INTERVAL"`
	DriftThreshold   int           `yaml:"driftThreshold" env:"SYNC_DRIFT_THRESHOLD"`
	TaskPollInterval time.Duration `yaml:"taskPollInterval" env:"SYNC_TASK_POLL_INTERVAL"`
	RequestTimeout   time.Duration `yaml:"requestTimeout" env:"SYNC_REQUEST_TIMEOUT"`
}

type RateLimit struct {
	RPS   float64 `yaml:"rps" env:"RATE_LIMIT_RPS"`
	Burst int     `yaml:"burst" env:"RATE_LIMIT_BURST"`
}

type Tracing struct {
	Endpoint    string  `yaml:"endpoint" env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	Insecure    bool    `yaml:"insecure" env:"OTEL_EXPORTER_OTLP_INSECURE"`
	SampleRatio float64 `yaml:"sampleRatio" env:"OTEL_SAMPLE_RATIO"`
}

type Config struct {
	HTTP      HTTP      `yaml:"http"`
	GRPC      GRPC      `yaml:"grpc"`
	Logging   Logging   `yaml:"logging"`
	Store     Store     `yaml:"store"`
	Postgres  Postgres  `yaml:"postgres"`
	Redis     Redis     `yaml:"redis"`
	Auth      Auth      `yaml:"auth"`
	Sync      Sync      `yaml:"sync"`
	RateLimit RateLimit `yaml:"rateLimit"`
	Tracing   Tracing   `yaml:"tracing"`
}

// Load reads the YAML file at path (CONFIG_PATH, then ./config/config.yaml
// when empty), applies environment overrides and fills defaults. A missing
// file is not an error: the environment and defaults still apply.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv("CONFIG_PATH")
	}
	if path == "" {
		path = "./config/config.yaml"
	}

	var cfg Config
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, err
	}

	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("env overrides: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.HTTP.Addr == "" {
		c.HTTP.Addr = ":8080"
	}
	c.HTTP.ReadTimeout = durationOr(c.HTTP.ReadTimeout, 10*time.Second)
	c.HTTP.WriteTimeout = durationOr(c.HTTP.WriteTimeout, 15*time.Second)
	c.HTTP.IdleTimeout = durationOr(c.HTTP.IdleTimeout, 60*time.Second)
	if c.GRPC.Addr == "" {
		c.GRPC.Addr = ":9090"
	}

	if c.Logging.Service == "" {
		c.Logging.Service = "studyroom"
	}
	if c.Logging.Env == "" {
		c.Logging.Env = "dev"
	}
	if c.Logging.Version == "" {
		c.Logging.Version = "v0.1.0"
	}
	if c.Logging.Backend == "" {
		c.Logging.Backend = "std"
	}

	switch c.Store.Driver {
	case "":
		c.Store.Driver = StoreMemory
	case StoreMemory:
	case StorePostgres:
		if c.Postgres.DSN == "" {
			return errors.New("postgres.dsn is required for the postgres store")
		}
	case StoreRedis:
		if c.Redis.Addr == "" {
			return errors.New("redis.addr is required for the redis store")
		}
	default:
		return fmt.Errorf("unknown store.driver %q", c.Store.Driver)
	}
	if c.Redis.KeyPrefix == "" {
		c.Redis.KeyPrefix = "studyroom:"
	}

	switch c.Auth.Alg {
	case "":
		c.Auth.Alg = "HS256"
	case "HS256", "RS256":
	default:
		return fmt.Errorf("unsupported auth.alg %q", c.Auth.Alg)
	}
	switch c.Auth.OnFailure {
	case "":
		c.Auth.OnFailure = "guest"
	case "guest", "reject":
	default:
		return fmt.Errorf("auth.onFailure must be guest or reject, got %q", c.Auth.OnFailure)
	}
	c.Auth.ClockSkew = durationOr(c.Auth.ClockSkew, 30*time.Second)

	c.Sync.TickInterval = durationOr(c.Sync.TickInterval, time.Second)
	c.Sync.PollInterval = durationOr(c.Sync.PollInterval, 3*time.Second)
	c.Sync.TaskPollInterval = durationOr(c.Sync.TaskPollInterval, 3*time.Second)
	c.Sync.RequestTimeout = durationOr(c.Sync.RequestTimeout, 5*time.Second)
	if c.Sync.DriftThreshold <= 0 {
		c.Sync.DriftThreshold = 2
	}

	if c.RateLimit.RPS > 0 && c.RateLimit.Burst <= 0 {
		c.RateLimit.Burst = int(c.RateLimit.RPS) + 1
	}
	if c.Tracing.SampleRatio <= 0 || c.Tracing.SampleRatio > 1 {
		c.Tracing.SampleRatio = 1
	}
	return nil
}

func durationOr(d, def time.Duration) time.Duration {
	if d > 0 {
		return d
	}
	return def
}
