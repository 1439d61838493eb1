package middleware

import (
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"

	apperrors "github.com/utafrali/reviewfeed/pkg/errors"
	"github.com/utafrali/reviewfeed/pkg/httputil"
	"github.com/utafrali/reviewfeed/pkg/logger"
)

// Recovery turns a handler panic into a 500 with the standard error body.
// http.ErrAbortHandler is re-raised so net/http can abort the connection.
func Recovery(l *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				switch rec {
				case nil:
					return
				case http.ErrAbortHandler:
					panic(rec)
				}

				appErr := apperrors.Internal(fmt.Errorf("panic: %v", rec))
				l.ErrorContext(r.Context(), "panic recovered",
					slog.String("error", appErr.Err.Error()),
					slog.String("method", r.Method),
					slog.String("path", r.URL.Path),
					slog.String("stack", string(debug.Stack())),
				)
				httputil.WriteJSON(w, appErr.Status, httputil.ErrorResponse{
					Detail:    appErr.Message,
					Code:      appErr.Code,
					RequestID: logger.CorrelationIDFromContext(r.Context()),
				})
			}()

			next.ServeHTTP(w, r)
		})
	}
}
