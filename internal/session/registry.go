package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/daap14/console/internal/audit"
	"github.com/daap14/console/internal/auth"
	"github.com/daap14/console/internal/backend"
	"github.com/daap14/console/internal/config"
	"github.com/daap14/console/internal/directory"
	"github.com/daap14/console/internal/profile"
	"github.com/daap14/console/internal/querycache"
)

// ErrTokenRejected is returned when the API server refuses a token presented
// for an identity that already has a session.
var ErrTokenRejected = errors.New("bearer token rejected by API server")

// API is the API server client a session talks to.
type API interface {
	profile.API
	directory.API
}

// Deps holds what every session is built from.
type Deps struct {
	API           API
	Audit         audit.Repository
	Bootstrap     bool
	Users         config.Windows
	Roles         config.Windows
	CacheCapacity int
	Metrics       *querycache.Metrics
}

// Session is the per-identity state: the profile provider and the cached
// user and role collections.
type Session struct {
	Provider  *Provider
	Directory *directory.Service
}

// New builds a Session. propagate and profileChanged may be nil.
func New(deps Deps, propagate func(keys ...string), profileChanged func(userID, roleID string)) (*Session, error) {
	cache, err := querycache.New(deps.CacheCapacity, querycache.WithMetrics(deps.Metrics))
	if err != nil {
		return nil, fmt.Errorf("creating query cache: %w", err)
	}
	guard := profile.NewGuard(profile.NewFetcher(deps.API, deps.Bootstrap))
	dir := directory.NewService(deps.API, cache, deps.Audit, directory.Options{
		Users:          deps.Users,
		Roles:          deps.Roles,
		Propagate:      propagate,
		ProfileChanged: profileChanged,
	})
	return &Session{Provider: NewProvider(guard), Directory: dir}, nil
}

// affectedBy reports whether a change to userID or to roleID alters the
// permissions of this session's profile.
func (s *Session) affectedBy(userID, roleID string) bool {
	p := s.Provider.Snapshot().Profile
	if p == nil {
		return false
	}
	if userID != "" && p.ID == userID {
		return true
	}
	return roleID != "" && p.Role != nil && p.Role.ID == roleID
}

// Close signs the session out and drops its cached collections.
func (s *Session) Close() {
	s.Provider.SignOut()
	s.Directory.Cache().Clear()
}

// Registry keeps one Session per identity, bounded by capacity. The least
// recently used session is closed when the bound is reached.
type Registry struct {
	deps     Deps
	interval time.Duration

	mu       sync.Mutex // serialises get-or-create
	sessions *lru.Cache[string, *Session]
}

// NewRegistry creates a Registry. interval is the cache sweep period used by Start.
func NewRegistry(capacity int, interval time.Duration, deps Deps) (*Registry, error) {
	sessions, err := lru.NewWithEvict(capacity, func(_ string, s *Session) {
		s.Close()
	})
	if err != nil {
		return nil, fmt.Errorf("creating session registry: %w", err)
	}
	return &Registry{deps: deps, interval: interval, sessions: sessions}, nil
}

// Session returns the session of id, creating it on first use. A known
// session is only handed to a different token once the API server has
// accepted that token; until then nothing cached in it is reachable.
func (r *Registry) Session(ctx context.Context, id *auth.Identity) (*Session, error) {
	r.mu.Lock()
	s, ok := r.sessions.Get(id.ID)
	if !ok {
		var err error
		s, err = New(r.deps, r.Invalidate, r.ProfilesChanged)
		if err != nil {
			r.mu.Unlock()
			return nil, err
		}
		r.sessions.Add(id.ID, s)
		s.Provider.SignIn(id)
		r.mu.Unlock()
		slog.Debug("session created", "identity", id.ID, "sessions", r.sessions.Len())
		return s, nil
	}
	r.mu.Unlock()

	if current := s.Provider.Identity(); current != nil && current.Token == id.Token {
		return s, nil
	}
	if err := r.verify(ctx, id); err != nil {
		return nil, err
	}

	s.Provider.SignIn(id)
	if s.Provider.Snapshot().Err != nil {
		// The previous token may have been refused; load again under the accepted one.
		s.Provider.ClearCache()
	}
	return s, nil
}

// verify asks the API server whether it accepts id's token. A 404 means the
// token was authenticated but has no profile yet.
func (r *Registry) verify(ctx context.Context, id *auth.Identity) error {
	_, err := r.deps.API.Me(ctx, id.Tokens())
	switch {
	case err == nil, errors.Is(err, backend.ErrNotFound):
		return nil
	case errors.Is(err, backend.ErrUnauthorized), errors.Is(err, backend.ErrForbidden), errors.Is(err, backend.ErrNoToken):
		slog.Warn("token for known identity rejected", "identity", id.ID, "error", err)
		return fmt.Errorf("%w: %w", ErrTokenRejected, err)
	default:
		return fmt.Errorf("verifying bearer token: %w", err)
	}
}

// SignOut closes and forgets the session of identityID.
func (r *Registry) SignOut(identityID string) {
	r.sessions.Remove(identityID)
}

// Invalidate marks keys stale in every live session.
func (r *Registry) Invalidate(keys ...string) {
	for _, s := range r.sessions.Values() {
		s.Directory.Cache().Invalidate(keys...)
	}
}

// ProfilesChanged drops the cached profile of every session whose user is
// userID or whose role is roleID, so the next request reloads it.
func (r *Registry) ProfilesChanged(userID, roleID string) {
	for _, s := range r.sessions.Values() {
		if s.affectedBy(userID, roleID) {
			s.Provider.ClearCache()
		}
	}
}

// Sweep evicts expired cache entries of all sessions and returns how many were dropped.
func (r *Registry) Sweep() int {
	n := 0
	for _, s := range r.sessions.Values() {
		n += s.Directory.Cache().Sweep()
	}
	return n
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	return r.sessions.Len()
}

// Start runs the sweep loop. It blocks until ctx is cancelled.
func (r *Registry) Start(ctx context.Context) {
	slog.Info("session sweeper started", "interval", r.interval)
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("session sweeper stopped")
			return
		case <-ticker.C:
			if n := r.Sweep(); n > 0 {
				slog.Debug("swept expired cache entries", "count", n, "sessions", r.Len())
			}
		}
	}
}
