package grpcx

import (
	"context"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/cwrk-planet/studyroom/internal/metrics"
	"github.com/cwrk-planet/studyroom/pkg/logger"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

const defaultCallTimeout = 10 * time.Second

// UnaryServerInterceptor logs, recovers panics and applies a deadline when
// the caller did not set one.
func UnaryServerInterceptor() grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req any,
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (resp any, err error) {
		start := time.Now()
		if _, ok := ctx.Deadline(); !ok {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, defaultCallTimeout)
			defer cancel()
		}

		defer func() {
			if r := recover(); r != nil {
				slog.ErrorContext(ctx, "grpc unary panic",
					"method", info.FullMethod,
					"panic", r,
					"stack", string(debug.Stack()))
				err = status.Error(codes.Internal, "internal server error")
			}
			code := status.Code(err)
			metrics.RecordGRPC(info.FullMethod, code.String())

			level := slog.LevelInfo
			if code == codes.Internal || code == codes.Unknown {
				level = slog.LevelError
			}
			logger.FromCtx(ctx).Log(ctx, level, "grpc unary",
				"method", info.FullMethod,
				"req_id", requestID(ctx),
				"code", code.String(),
				"dur_ms", time.Since(start).Milliseconds(),
				"err", errString(err))
		}()

		return handler(ctx, req)
	}
}

func requestID(ctx context.Context) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ""
	}
	return first(md.Get(mdRequestID))
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
