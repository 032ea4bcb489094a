package httputil

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

const HeaderRequestID = "X-Request-ID"

const maxRequestIDLen = 128

type reqIDKey struct{}

// MiddlewareRequestID propagates the caller's X-Request-ID, replacing it
// with a fresh UUID when it is missing or not a plain printable token.
func MiddlewareRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := r.Header.Get(HeaderRequestID)
		if !validRequestID(reqID) {
			reqID = uuid.NewString()
		}
		w.Header().Set(HeaderRequestID, reqID)
		next.ServeHTTP(w, r.WithContext(WithRequestID(r.Context(), reqID)))
	})
}

func validRequestID(s string) bool {
	if s == "" || len(s) > maxRequestIDLen {
		return false
	}
	for i := 0; i < len(s); i++ {
		if c := s[i]; c <= ' ' || c > '~' {
			return false
		}
	}
	return true
}

func WithRequestID(ctx context.Context, reqID string) context.Context {
	return context.WithValue(ctx, reqIDKey{}, reqID)
}

func FromContext(ctx context.Context) (string, bool) {
	v, _ := ctx.Value(reqIDKey{}).(string)
	return v, v != ""
}
