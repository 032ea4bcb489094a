package logger

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel/trace"
)

func AttrsFromCtx(ctx context.Context) []slog.Attr {
	span := trace.SpanFromContext(ctx)
	sc := span.SpanContext()

	if !sc.IsValid() {
		return nil
	}

	return []slog.Attr{
		slog.String("trace_id", sc.TraceID().String()),
		slog.String("span_id", sc.SpanID().String()),
	}
}

// FromCtx returns the default logger enriched with trace ids from ctx.
func FromCtx(ctx context.Context) *slog.Logger {
	attrs := AttrsFromCtx(ctx)
	if len(attrs) == 0 {
		return L()
	}
	args := make([]any, 0, len(attrs))
	for _, a := range attrs {
		args = append(args, a)
	}
	return L().With(args...)
}
