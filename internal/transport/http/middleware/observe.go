package httpmw

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/cwrk-planet/studyroom/internal/metrics"
	"github.com/cwrk-planet/studyroom/pkg/httputil"
	"github.com/cwrk-planet/studyroom/pkg/logger"

	"github.com/go-chi/chi/v5"
)

type statusWriter struct {
	http.ResponseWriter
	status int
	bytes  int64
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	n, err := w.ResponseWriter.Write(b)
	w.bytes += int64(n)
	return n, err
}

type ctxKey int

const loggerKey ctxKey = iota

// WithRequestLoggerCtx stores a request-scoped *slog.Logger in the context.
func WithRequestLoggerCtx(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID, _ := httputil.FromContext(r.Context())
		l := logger.FromCtx(r.Context()).With(
			slog.String("req_id", reqID),
			slog.String("path", r.URL.Path),
			slog.String("method", r.Method),
		)
		ctx := context.WithValue(r.Context(), loggerKey, l)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// L returns the request logger, falling back to the global one.
func L(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(loggerKey).(*slog.Logger); ok && l != nil {
		return l
	}
	return logger.L()
}

// RequestLogger logs every request at a level chosen by status class and
// records the request metrics under the matched route pattern.
func RequestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w}

		next.ServeHTTP(sw, r)

		if sw.status == 0 {
			sw.status = http.StatusOK
		}
		dur := time.Since(start)

		route := r.URL.Path
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}
		metrics.RecordHTTP(r.Method, route, sw.status, dur)

		level := slog.LevelInfo
		switch {
		case sw.status >= 500:
			level = slog.LevelError
		case sw.status >= 400:
			level = slog.LevelWarn
		}

		L(r.Context()).LogAttrs(
			r.Context(),
			level,
			"http_request",
			slog.String("route", route),
			slog.Int("status", sw.status),
			slog.Int64("bytes", sw.bytes),
			slog.Duration("duration", dur),
			slog.String("remote_ip", r.RemoteAddr),
			slog.String("user_agent", r.UserAgent()),
		)
	})
}
