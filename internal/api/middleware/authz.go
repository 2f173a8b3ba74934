package middleware

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/daap14/console/internal/api/response"
	"github.com/daap14/console/internal/backend"
	"github.com/daap14/console/internal/guard"
)

// RequireAccess returns middleware that loads the caller's profile and rejects
// the request with 403 unless the profile satisfies c.
func RequireAccess(c guard.Criteria) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := GetRequestID(r.Context())

			s := GetSession(r.Context())
			if s == nil {
				response.Err(w, http.StatusUnauthorized, "UNAUTHORIZED", "Bearer token is required", requestID)
				return
			}

			snap, err := s.Provider.Current(r.Context())
			if err != nil {
				slog.Warn("profile wait aborted", "error", err, "requestId", requestID)
				response.Err(w, http.StatusServiceUnavailable, "PROFILE_UNAVAILABLE", "Profile is still loading", requestID)
				return
			}

			if errors.Is(snap.Err, backend.ErrUnauthorized) {
				response.Err(w, http.StatusUnauthorized, "UNAUTHORIZED", "Bearer token was rejected", requestID)
				return
			}

			if !guard.CanAccess(snap.Profile, c) {
				response.Err(w, http.StatusForbidden, "FORBIDDEN", "Insufficient permissions", requestID)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
