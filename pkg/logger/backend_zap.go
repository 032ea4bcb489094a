package logger

import (
	"log/slog"
	"os"
	"time"

	slogzap "github.com/samber/slog-zap/v2"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

func newZapHandler(cfg Config) slog.Handler {
	lvl := effectiveLevel(cfg)

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "ts"
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
	if cfg.AddSource {
		encCfg.EncodeCaller = zapcore.ShortCallerEncoder
	}
	enc := zapcore.NewJSONEncoder(encCfg)

	ws := zapcore.AddSync(os.Stdout)
	if cfg.File != "" {
		ws = zapcore.NewMultiWriteSyncer(ws, zapcore.AddSync(newRotator(cfg)))
	}
	core := zapcore.NewCore(enc, ws, toZapLevel(lvl))

	// sampling on log bursts
	initial := cfg.SampleInitial
	if initial <= 0 {
		initial = 100
	}
	thereafter := cfg.SampleThereafter
	if thereafter <= 0 {
		thereafter = 10
	}

	core = zapcore.NewSamplerWithOptions(core, time.Second, initial, thereafter)

	z := zap.New(
		core,
		zap.AddCaller(),
		zap.AddCallerSkip(1), // point at the slog call site, not the bridge
	)

	return slogzap.Option{Logger: z}.NewZapHandler()
}

func newRotator(cfg Config) *lumberjack.Logger {
	size := cfg.MaxSizeMB
	if size <= 0 {
		size = 100
	}
	backups := cfg.MaxBackups
	if backups <= 0 {
		backups = 3
	}
	return &lumberjack.Logger{
		Filename:   cfg.File,
		MaxSize:    size,
		MaxBackups: backups,
		Compress:   true,
	}
}

func toZapLevel(lvl slog.Level) zapcore.Level {
	switch {
	case lvl <= slog.LevelDebug:
		return zapcore.DebugLevel
	case lvl == slog.LevelInfo:
		return zapcore.InfoLevel
	case lvl == slog.LevelWarn:
		return zapcore.WarnLevel
	default:
		return zapcore.ErrorLevel
	}
}
