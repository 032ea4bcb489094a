package httpmw

import (
	"errors"
	"net/http"

	"github.com/cwrk-planet/studyroom/internal/auth"
	"github.com/cwrk-planet/studyroom/internal/domain"
	"github.com/cwrk-planet/studyroom/pkg/httputil"
)

// Authenticate attaches the caller identity to the request context. Under the
// guest policy unverifiable callers continue as the guest identity.
func Authenticate(a *auth.Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, err := a.Authenticate(r.Context(), r.Header.Get("Authorization"))
			if err != nil {
				if errors.Is(err, domain.ErrUnauthenticated) {
					httputil.Error(r.Context(), w, http.StatusUnauthorized, "unauthenticated", nil)
					return
				}
				httputil.Error(r.Context(), w, http.StatusInternalServerError, "internal error", nil)
				return
			}
			next.ServeHTTP(w, r.WithContext(auth.WithIdentity(r.Context(), id)))
		})
	}
}
