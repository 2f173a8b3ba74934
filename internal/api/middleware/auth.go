package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/daap14/console/internal/api/response"
	"github.com/daap14/console/internal/auth"
	"github.com/daap14/console/internal/session"
)

const (
	identityKey contextKey = "identity"
	sessionKey  contextKey = "session"
)

// Authenticate reads the bearer token from the Authorization header, decodes
// the identity it carries and attaches that identity's session to the request
// context. Missing, undecodable or rejected tokens return 401.
func Authenticate(sessions *session.Registry) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := GetRequestID(r.Context())

			token := auth.BearerFromHeader(r.Header.Get("Authorization"))
			if token == "" {
				response.Err(w, http.StatusUnauthorized, "UNAUTHORIZED", "Bearer token is required", requestID)
				return
			}

			identity, err := auth.FromBearer(token)
			if err != nil {
				response.Err(w, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid bearer token", requestID)
				return
			}

			s, err := sessions.Session(r.Context(), identity)
			if err != nil {
				if errors.Is(err, session.ErrTokenRejected) {
					response.Err(w, http.StatusUnauthorized, "UNAUTHORIZED", "Bearer token was rejected", requestID)
					return
				}
				slog.Error("failed to open session", "error", err, "identity", identity.ID)
				response.Err(w, http.StatusServiceUnavailable, "UPSTREAM_UNAVAILABLE", "Could not verify bearer token", requestID)
				return
			}

			recordIdentity(r.Context(), identity.ID)
			next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), identity, s)))
		})
	}
}

// GetIdentity retrieves the authenticated Identity from the request context.
func GetIdentity(ctx context.Context) *auth.Identity {
	if id, ok := ctx.Value(identityKey).(*auth.Identity); ok {
		return id
	}
	return nil
}

// GetSession retrieves the caller's Session from the request context.
func GetSession(ctx context.Context) *session.Session {
	if s, ok := ctx.Value(sessionKey).(*session.Session); ok {
		return s
	}
	return nil
}

// WithSession returns a copy of ctx carrying identity and s.
func WithSession(ctx context.Context, identity *auth.Identity, s *session.Session) context.Context {
	ctx = context.WithValue(ctx, identityKey, identity)
	return context.WithValue(ctx, sessionKey, s)
}
