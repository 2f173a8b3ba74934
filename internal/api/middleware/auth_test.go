package middleware_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/daap14/console/internal/api/middleware"
	"github.com/daap14/console/internal/auth"
	"github.com/daap14/console/internal/backend"
	"github.com/daap14/console/internal/config"
	"github.com/daap14/console/internal/guard"
	"github.com/daap14/console/internal/rbac"
	"github.com/daap14/console/internal/session"
)

// profileAPI serves /auth/me from a token to profile map; other calls are
// unused here. A nil profile marks an accepted token without a user; tokens
// missing from the map are refused.
type profileAPI struct {
	profiles map[string]*rbac.Profile
}

func (a *profileAPI) Me(ctx context.Context, tokens auth.TokenProvider) (*rbac.Profile, error) {
	tok, err := tokens(ctx)
	if err != nil {
		return nil, err
	}
	p, ok := a.profiles[tok]
	switch {
	case !ok:
		return nil, &backend.StatusError{Status: http.StatusUnauthorized}
	case p == nil:
		return nil, &backend.StatusError{Status: http.StatusNotFound}
	}
	return p, nil
}

func (a *profileAPI) CreateUser(context.Context, backend.CreateUserInput) (*rbac.Profile, error) {
	return nil, &backend.StatusError{Status: http.StatusForbidden}
}

func (a *profileAPI) ListUsers(context.Context, auth.TokenProvider) ([]rbac.Profile, error) {
	return []rbac.Profile{}, nil
}

func (a *profileAPI) ListRoles(context.Context, auth.TokenProvider) ([]rbac.Role, error) {
	return []rbac.Role{}, nil
}

func (a *profileAPI) UpdateUserRole(context.Context, auth.TokenProvider, string, string) (*rbac.Profile, error) {
	return nil, nil
}

func (a *profileAPI) CreateRole(context.Context, auth.TokenProvider, backend.RoleInput) (*rbac.Role, error) {
	return nil, nil
}

func (a *profileAPI) UpdateRole(context.Context, auth.TokenProvider, string, backend.RoleInput) (*rbac.Role, error) {
	return nil, nil
}

func signToken(t *testing.T, sub string) string {
	t.Helper()
	return signTokenWith(t, "test-secret", sub)
}

func signTokenWith(t *testing.T, key, sub string) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":   sub,
		"email": sub + "@example.test",
	}).SignedString([]byte(key))
	require.NoError(t, err)
	return tok
}

type fixture struct {
	sessions *session.Registry
	editor   string
	viewer   string
	stranger string
}

func setupFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		editor:   signToken(t, "editor"),
		viewer:   signToken(t, "viewer"),
		stranger: signToken(t, "stranger"),
	}
	api := &profileAPI{profiles: map[string]*rbac.Profile{
		f.editor:   {ID: "u-1", Role: &rbac.Role{Name: "editor", Permissions: []string{"roles.read", "roles.update"}}},
		f.viewer:   {ID: "u-2", Role: &rbac.Role{Name: "viewer", Permissions: []string{"roles.read"}}},
		f.stranger: nil,
	}}
	windows := config.Windows{Stale: time.Minute, GC: time.Hour}
	reg, err := session.NewRegistry(8, time.Minute, session.Deps{
		API:           api,
		Users:         windows,
		Roles:         windows,
		CacheCapacity: 4,
	})
	require.NoError(t, err)
	f.sessions = reg
	return f
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func serve(h http.Handler, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

// --- Authenticate Tests ---

func TestAuthenticate_MissingToken(t *testing.T) {
	f := setupFixture(t)

	w := serve(middleware.Authenticate(f.sessions)(okHandler()), "")

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "Bearer token is required")
}

func TestAuthenticate_MalformedToken(t *testing.T) {
	f := setupFixture(t)

	w := serve(middleware.Authenticate(f.sessions)(okHandler()), "not-a-jwt")

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "Invalid bearer token")
	assert.Equal(t, 0, f.sessions.Len())
}

func TestAuthenticate_AttachesIdentityAndSession(t *testing.T) {
	f := setupFixture(t)

	var seen []*session.Session
	h := middleware.Authenticate(f.sessions)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := middleware.GetIdentity(r.Context())
		require.NotNil(t, id)
		assert.Equal(t, "editor", id.ID)
		assert.Equal(t, "editor@example.test", id.Email)
		seen = append(seen, middleware.GetSession(r.Context()))
	}))

	serve(h, f.editor)
	serve(h, f.editor)

	require.Len(t, seen, 2)
	assert.NotNil(t, seen[0])
	assert.Same(t, seen[0], seen[1])
	assert.True(t, seen[0].Provider.Snapshot().SignedIn)
}

func TestAuthenticate_RejectsOtherTokenForKnownIdentity(t *testing.T) {
	f := setupFixture(t)
	h := middleware.Authenticate(f.sessions)(middleware.RequireAccess(guard.Criteria{Permission: "roles.read"})(okHandler()))

	require.Equal(t, http.StatusOK, serve(h, f.editor).Code)

	forged := signTokenWith(t, "other-secret", "editor")
	w := serve(h, forged)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "Bearer token was rejected")
	assert.Equal(t, http.StatusOK, serve(h, f.editor).Code)
}

func TestAuthenticate_RefusedTokenForNewIdentity(t *testing.T) {
	f := setupFixture(t)
	h := middleware.Authenticate(f.sessions)(middleware.RequireAccess(guard.Criteria{Permission: "roles.read"})(okHandler()))

	w := serve(h, signTokenWith(t, "other-secret", "intruder"))

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "Bearer token was rejected")
}

func TestGetSession_EmptyContext(t *testing.T) {
	assert.Nil(t, middleware.GetSession(context.Background()))
	assert.Nil(t, middleware.GetIdentity(context.Background()))
}

// --- RequireAccess Tests ---

func TestRequireAccess(t *testing.T) {
	f := setupFixture(t)
	criteria := guard.Criteria{Permission: "roles.update"}
	h := middleware.Authenticate(f.sessions)(middleware.RequireAccess(criteria)(okHandler()))

	tests := []struct {
		name   string
		token  string
		status int
	}{
		{"permission granted", f.editor, http.StatusOK},
		{"permission missing", f.viewer, http.StatusForbidden},
		{"no profile", f.stranger, http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := serve(h, tt.token)
			assert.Equal(t, tt.status, w.Code)
		})
	}
}

func TestRequireAccess_WithoutSession(t *testing.T) {
	w := serve(middleware.RequireAccess(guard.Criteria{})(okHandler()), "")

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
