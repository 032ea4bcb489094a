package http

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/cwrk-planet/studyroom/internal/domain"
	"github.com/cwrk-planet/studyroom/internal/service"
	"github.com/cwrk-planet/studyroom/internal/store"
	httpmw "github.com/cwrk-planet/studyroom/internal/transport/http/middleware"
	"github.com/cwrk-planet/studyroom/pkg/httputil"

	"github.com/go-playground/validator/v10"
)

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrValidation), errors.Is(err, service.ErrInvalidCursor):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrPermissionDenied):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, store.ErrConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// fail writes err as an error envelope. Internal errors are logged and
// their details withheld.
func fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		httpmw.L(r.Context()).ErrorContext(r.Context(), op, slog.Any("err", err))
		httputil.Error(r.Context(), w, status, "internal error", nil)
		return
	}
	httputil.Error(r.Context(), w, status, err.Error(), nil)
}

func validationFailed(w http.ResponseWriter, r *http.Request, err error) {
	meta := map[string]any{}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		fields := make(map[string]string, len(verrs))
		for _, fe := range verrs {
			fields[fe.Field()] = fe.Tag()
		}
		meta["fields"] = fields
	}
	httputil.Error(r.Context(), w, http.StatusBadRequest, "validation failed", meta)
}
