package httpmw

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/cwrk-planet/studyroom/internal/auth"
	"github.com/cwrk-planet/studyroom/internal/domain"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-User", auth.IdentityFromCtx(r.Context()).UserID)
		w.WriteHeader(http.StatusNoContent)
	})
}

func TestAuthenticate_Policies(t *testing.T) {
	now := time.Now()
	cfg := auth.Config{Alg: auth.AlgHS256, Secret: "k"}
	v, err := auth.NewVerifier(cfg, clockwork.NewFakeClockAt(now))
	require.NoError(t, err)
	tok, err := auth.SignHS256("k", cfg, "alice", "Alice", now, time.Hour)
	require.NoError(t, err)

	guest := Authenticate(auth.NewAuthenticator(v, auth.PolicyGuest))(okHandler())
	reject := Authenticate(auth.NewAuthenticator(v, auth.PolicyReject))(okHandler())

	rec := httptest.NewRecorder()
	guest.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, domain.GuestID, rec.Header().Get("X-User"))

	rec = httptest.NewRecorder()
	reject.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	rec = httptest.NewRecorder()
	reject.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "alice", rec.Header().Get("X-User"))
}

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(0.001, 2)
	h := rl.Middleware(okHandler())

	codes := make([]int, 0, 3)
	for range 3 {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		h.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}
	assert.Equal(t, []int{http.StatusNoContent, http.StatusNoContent, http.StatusTooManyRequests}, codes)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.2:1234"
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestRateLimiter_GuestKeyIgnoresPort(t *testing.T) {
	h := NewRateLimiter(0.001, 1).Middleware(okHandler())

	codes := make([]int, 0, 2)
	for _, addr := range []string{"10.0.0.1:1111", "10.0.0.1:2222"} {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = addr
		h.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}
	assert.Equal(t, []int{http.StatusNoContent, http.StatusTooManyRequests}, codes)
}
