package httpmw

import (
	"net"
	"net/http"
	"strconv"
	"sync"

	"github.com/cwrk-planet/studyroom/internal/auth"
	"github.com/cwrk-planet/studyroom/internal/metrics"
	"github.com/cwrk-planet/studyroom/pkg/httputil"

	"golang.org/x/time/rate"
)

const maxTrackedLimiters = 10_000

// RateLimiter holds one token bucket per caller. Verified users are keyed by
// id; guests are keyed by remote host, without the port.
type RateLimiter struct {
	mu       sync.Mutex
	limit    rate.Limit
	burst    int
	limiters map[string]*rate.Limiter
}

func NewRateLimiter(rps float64, burst int) *RateLimiter {
	return &RateLimiter{
		limit:    rate.Limit(rps),
		burst:    burst,
		limiters: make(map[string]*rate.Limiter),
	}
}

func (rl *RateLimiter) get(key string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	l, ok := rl.limiters[key]
	if !ok {
		if len(rl.limiters) >= maxTrackedLimiters {
			clear(rl.limiters)
		}
		l = rate.NewLimiter(rl.limit, rl.burst)
		rl.limiters[key] = l
	}
	return l
}

func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := auth.IdentityFromCtx(r.Context())
		key := "user:" + id.UserID
		if id.Guest {
			key = "ip:" + remoteHost(r.RemoteAddr)
		}

		l := rl.get(key)
		if !l.Allow() {
			metrics.IncRateLimited()
			w.Header().Set("Retry-After", strconv.Itoa(max(1, int(1/float64(rl.limit)))))
			httputil.Error(r.Context(), w, http.StatusTooManyRequests, "rate limit exceeded", nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func remoteHost(addr string) string {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return addr
	}
	return host
}
