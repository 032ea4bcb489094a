package logger

import (
	"log/slog"
	"sync/atomic"
)

var current atomic.Pointer[slog.Logger]

// Init builds the process logger and installs it as slog's default.
// It may be called again, e.g. after the config file is loaded.
func Init(cfg Config) {
	if cfg.Env == "" {
		cfg.Env = DetectEnv()
	} else {
		cfg.Env = ParseEnv(string(cfg.Env))
	}
	if cfg.Service == "" {
		cfg.Service = "studyroom"
	}
	cfg.InstanceID = instanceID(cfg.InstanceID)
	if cfg.Backend == "" {
		cfg.Backend = BackendZap
		if cfg.Env == EnvDev {
			cfg.Backend = BackendStd
		}
	}

	var h slog.Handler
	if cfg.Backend == BackendZap {
		h = newZapHandler(cfg)
	} else {
		h = newStdHandler(cfg)
	}

	l := slog.New(h.WithAttrs(baseAttrs(cfg)))
	slog.SetDefault(l)
	current.Store(l)
}

// L returns the logger installed by Init, initializing a default one on
// first use.
func L() *slog.Logger {
	if l := current.Load(); l != nil {
		return l
	}
	Init(Config{})
	return current.Load()
}
