package httputil

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
)

// Envelope is the body of every JSON response: exactly one of Data or
// Error is set.
type Envelope struct {
	Data  any        `json:"data,omitempty"`
	Error *ErrorBody `json:"error,omitempty"`
}

type ErrorBody struct {
	Message string         `json:"message"`
	Meta    map[string]any `json:"meta,omitempty"`
}

func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("write json response failed", slog.Any("err", err))
	}
}

func OK(w http.ResponseWriter, data any) {
	JSON(w, http.StatusOK, Envelope{Data: data})
}

func Created(w http.ResponseWriter, data any) {
	JSON(w, http.StatusCreated, Envelope{Data: data})
}

// Error writes the error envelope; the request id is added to meta when known.
func Error(ctx context.Context, w http.ResponseWriter, status int, msg string, meta map[string]any) {
	body := &ErrorBody{Message: msg, Meta: meta}
	if reqID, ok := FromContext(ctx); ok {
		if body.Meta == nil {
			body.Meta = make(map[string]any, 1)
		}
		body.Meta["request_id"] = reqID
	}
	JSON(w, status, Envelope{Error: body})
}
