package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/daap14/console/internal/api/middleware"
	"github.com/daap14/console/internal/api/response"
	"github.com/daap14/console/internal/auth"
	"github.com/daap14/console/internal/backend"
	"github.com/daap14/console/internal/session"
)

type identityResponse struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

type sessionResponse struct {
	Identity identityResponse `json:"identity"`
	Profile  *profileResponse `json:"profile"`
	Loading  bool             `json:"loading"`
	Error    *string          `json:"error"`
	SignedIn bool             `json:"signedIn"`
	Ready    bool             `json:"ready"`
}

func toSessionResponse(id *auth.Identity, snap *session.Snapshot) sessionResponse {
	resp := sessionResponse{
		Identity: identityResponse{ID: id.ID, Email: id.Email, Name: id.Name},
		Profile:  toProfileResponse(snap.Profile),
		Loading:  snap.Loading,
		SignedIn: snap.SignedIn,
		Ready:    snap.Ready,
	}
	if snap.Err != nil {
		msg := snap.Err.Error()
		resp.Error = &msg
	}
	return resp
}

// SessionRemover forgets the session of an identity.
type SessionRemover interface {
	SignOut(identityID string)
}

// SessionHandler exposes the caller's session.
type SessionHandler struct {
	sessions SessionRemover
}

// NewSessionHandler creates a new SessionHandler.
func NewSessionHandler(sessions SessionRemover) *SessionHandler {
	return &SessionHandler{sessions: sessions}
}

// Get handles GET /api/session. The first call for an identity loads its profile.
func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, (*session.Provider).Current)
}

// Refresh handles POST /api/session/refresh.
func (h *SessionHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, (*session.Provider).Refresh)
}

type loadFunc func(*session.Provider, context.Context) (*session.Snapshot, error)

func (h *SessionHandler) respond(w http.ResponseWriter, r *http.Request, load loadFunc) {
	requestID := middleware.GetRequestID(r.Context())
	id, s, ok := requireSession(w, r)
	if !ok {
		return
	}

	snap, ok := loadSnapshot(w, r, s, load)
	if !ok {
		return
	}
	response.Success(w, http.StatusOK, toSessionResponse(id, snap), requestID)
}

// loadSnapshot runs load and writes the error response when the profile is
// unavailable or the API server refused the session's token.
func loadSnapshot(w http.ResponseWriter, r *http.Request, s *session.Session, load loadFunc) (*session.Snapshot, bool) {
	requestID := middleware.GetRequestID(r.Context())
	snap, err := load(s.Provider, r.Context())
	if err != nil {
		response.Err(w, http.StatusServiceUnavailable, "PROFILE_UNAVAILABLE", "Profile is still loading", requestID)
		return nil, false
	}
	if errors.Is(snap.Err, backend.ErrUnauthorized) {
		response.Err(w, http.StatusUnauthorized, "UNAUTHORIZED", "Bearer token was rejected", requestID)
		return nil, false
	}
	return snap, true
}

// ClearCache handles DELETE /api/session/cache. The profile is dropped
// without being fetched again.
func (h *SessionHandler) ClearCache(w http.ResponseWriter, r *http.Request) {
	if _, s, ok := requireSession(w, r); ok {
		s.Provider.ClearCache()
		response.NoContent(w)
	}
}

// SignOut handles DELETE /api/session.
func (h *SessionHandler) SignOut(w http.ResponseWriter, r *http.Request) {
	if id, _, ok := requireSession(w, r); ok {
		h.sessions.SignOut(id.ID)
		response.NoContent(w)
	}
}

// requireSession fetches the identity and session attached by the
// authentication middleware, writing a 401 when they are missing.
func requireSession(w http.ResponseWriter, r *http.Request) (*auth.Identity, *session.Session, bool) {
	id := middleware.GetIdentity(r.Context())
	s := middleware.GetSession(r.Context())
	if id == nil || s == nil {
		response.Err(w, http.StatusUnauthorized, "UNAUTHORIZED", "Bearer token is required", middleware.GetRequestID(r.Context()))
		return nil, nil, false
	}
	return id, s, true
}
