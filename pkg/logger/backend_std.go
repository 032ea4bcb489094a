package logger

import (
	"log/slog"
	"os"
)

func newStdHandler(cfg Config) slog.Handler {
	return slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level:     effectiveLevel(cfg),
		AddSource: cfg.AddSource,
	})
}

func effectiveLevel(cfg Config) slog.Level {
	if cfg.Debug && cfg.Level == 0 {
		return slog.LevelDebug
	}
	return cfg.Level
}
