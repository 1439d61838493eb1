package httputil

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	apperrors "github.com/utafrali/reviewfeed/pkg/errors"
	"github.com/utafrali/reviewfeed/pkg/logger"
)

// MaxBodyBytes is the default request body limit applied by DecodeJSON.
const MaxBodyBytes int64 = 64 << 10

// ErrorResponse is the JSON body of every non-2xx response. Detail is the
// human-readable message clients show verbatim.
type ErrorResponse struct {
	Detail    string `json:"detail"`
	Code      string `json:"code"`
	RequestID string `json:"request_id,omitempty"`
}

// ListResponse is the envelope for limit-bounded list endpoints.
type ListResponse[T any] struct {
	Data  []T `json:"data"`
	Total int `json:"total"`
	Limit int `json:"limit"`
}

// NewListResponse builds a ListResponse, normalizing nil data to an empty slice.
func NewListResponse[T any](data []T, total, limit int) ListResponse[T] {
	if data == nil {
		data = []T{}
	}
	return ListResponse[T]{Data: data, Total: total, Limit: limit}
}

// WriteJSON writes a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// Headers are already sent; nothing meaningful can be done if encoding fails.
	_ = json.NewEncoder(w).Encode(v)
}

// DecodeJSON decodes a single JSON object from the request body into dst,
// reading at most MaxBodyBytes. Decode failures are returned as 400 AppErrors.
func DecodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, MaxBodyBytes)

	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.As(err, &maxErr):
			return apperrors.InvalidInput(fmt.Sprintf("request body must not exceed %d bytes", maxErr.Limit))
		case errors.Is(err, io.EOF):
			return apperrors.InvalidInput("request body must not be empty")
		default:
			return apperrors.InvalidInput("invalid request body")
		}
	}
	if dec.More() {
		return apperrors.InvalidInput("request body must contain a single JSON object")
	}
	return nil
}

// WriteError writes the client-facing form of err. Server faults are logged
// with their cause at error level, dependency outages at warn, and client
// mistakes at debug. The request-scoped logger from RequestLogger wins over
// fallback.
func WriteError(w http.ResponseWriter, r *http.Request, err error, fallback *slog.Logger) {
	l := logger.FromContext(r.Context())
	if l == slog.Default() && fallback != nil {
		l = fallback
	}

	appErr := apperrors.Resolve(err)
	switch {
	case appErr.Internal():
		l.ErrorContext(r.Context(), "internal error",
			slog.String("error", err.Error()),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
		)
	case appErr.Status == http.StatusServiceUnavailable:
		l.WarnContext(r.Context(), "dependency unavailable",
			slog.String("code", appErr.Code),
			slog.String("error", err.Error()),
		)
	default:
		l.DebugContext(r.Context(), "request rejected",
			slog.String("code", appErr.Code),
			slog.String("detail", appErr.Message),
		)
	}

	WriteJSON(w, appErr.Status, ErrorResponse{
		Detail:    appErr.Message,
		Code:      appErr.Code,
		RequestID: logger.CorrelationIDFromContext(r.Context()),
	})
}
