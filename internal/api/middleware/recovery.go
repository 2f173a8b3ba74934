package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/daap14/console/internal/api/response"
)

// Recovery is middleware that recovers from panics and returns a 500 error.
// The log line names the request and, past authentication, the identity it
// was served for. http.ErrAbortHandler is re-raised so net/http can drop the
// connection.
func Recovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}

			requestID := GetRequestID(r.Context())
			slog.Error("panic recovered",
				"error", rec,
				"requestId", requestID,
				"method", r.Method,
				"path", r.URL.Path,
				"identity", requestIdentity(r.Context()),
				"stack", string(debug.Stack()),
			)
			response.Err(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An unexpected error occurred", requestID)
		}()
		next.ServeHTTP(w, r)
	})
}
