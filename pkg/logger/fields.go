package logger

import (
	"log/slog"
	"os"
	"strconv"

	"github.com/google/uuid"
)

// instanceID prefers the pod name, then the host name, and always adds a
// short random suffix so restarts on the same host stay distinguishable.
func instanceID(v string) string {
	if v != "" {
		return v
	}
	host := os.Getenv("HOSTNAME")
	if host == "" {
		host, _ = os.Hostname()
	}
	if host == "" {
		host = "studyroom"
	}
	return host + "-" + uuid.NewString()[:8]
}

func baseAttrs(cfg Config) []slog.Attr {
	attrs := []slog.Attr{
		slog.String("service", cfg.Service),
		slog.String("env", string(cfg.Env)),
		slog.String("instance_id", cfg.InstanceID),
		slog.String("pid", strconv.Itoa(os.Getpid())),
	}
	if cfg.Version != "" {
		attrs = append(attrs, slog.String("version", cfg.Version))
	}
	return attrs
}
