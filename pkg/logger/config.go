package logger

import "log/slog"

type Backend string

const (
	BackendStd Backend = "std" // text handler, dev
	BackendZap Backend = "zap" // JSON via slog-zap, stage/prod
)

type Config struct {
	Service    string
	Version    string
	InstanceID string

	Level   slog.Level
	Env     Env
	Backend Backend // default: zap for stage/prod, std for dev
	Debug   bool

	// Zap sampling
	SampleInitial    int
	SampleThereafter int

	// File duplicates zap output into a rotated file when set.
	File       string
	MaxSizeMB  int
	MaxBackups int

	AddSource bool
}
