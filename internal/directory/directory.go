package directory

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/daap14/console/internal/audit"
	"github.com/daap14/console/internal/auth"
	"github.com/daap14/console/internal/backend"
	"github.com/daap14/console/internal/config"
	"github.com/daap14/console/internal/querycache"
	"github.com/daap14/console/internal/rbac"
)

// Cache keys of the remote collections.
const (
	KeyUsers = "users"
	KeyRoles = "roles"
)

// ErrNoActor is returned when a mutation is attempted without a signed-in user.
var ErrNoActor = errors.New("no signed-in user")

// API is the subset of the API server client used for users and roles.
type API interface {
	ListUsers(ctx context.Context, tokens auth.TokenProvider) ([]rbac.Profile, error)
	ListRoles(ctx context.Context, tokens auth.TokenProvider) ([]rbac.Role, error)
	UpdateUserRole(ctx context.Context, tokens auth.TokenProvider, userID, roleName string) (*rbac.Profile, error)
	CreateRole(ctx context.Context, tokens auth.TokenProvider, in backend.RoleInput) (*rbac.Role, error)
	UpdateRole(ctx context.Context, tokens auth.TokenProvider, roleID string, in backend.RoleInput) (*rbac.Role, error)
}

// Options configures cache windows and cross-cache invalidation.
type Options struct {
	Users config.Windows
	Roles config.Windows
	// Propagate, when set, is called with the keys a mutation invalidated so
	// caches held for other users can drop them too.
	Propagate func(keys ...string)
	// ProfileChanged, when set, is called after a mutation that changes the
	// effective permissions of one user (userID) or of every holder of a role (roleID).
	ProfileChanged func(userID, roleID string)
}

// Service serves the user and role collections through a cache and performs
// mutations that invalidate it.
type Service struct {
	api   API
	cache *querycache.Cache
	audit audit.Repository
	opts  Options
}

// NewService creates a Service.
func NewService(api API, cache *querycache.Cache, auditRepo audit.Repository, opts Options) *Service {
	return &Service{api: api, cache: cache, audit: auditRepo, opts: opts}
}

// Cache returns the underlying cache.
func (s *Service) Cache() *querycache.Cache {
	return s.cache
}

// Users returns the user list. Failures are logged and yield an empty list.
func (s *Service) Users(ctx context.Context, actor *auth.Identity) []rbac.Profile {
	users, err := querycache.Get(ctx, s.cache, querycache.Query[[]rbac.Profile]{
		Key: KeyUsers,
		Fetch: func(ctx context.Context) ([]rbac.Profile, error) {
			return s.api.ListUsers(ctx, actor.Tokens())
		},
		StaleTime: s.opts.Users.Stale,
		GCTime:    s.opts.Users.GC,
		Enabled:   hasToken(actor),
	})
	if err != nil {
		if !errors.Is(err, querycache.ErrDisabled) {
			slog.Warn("listing users failed", "error", err)
		}
		return []rbac.Profile{}
	}
	return users
}

// Roles returns the role list. Failures are logged and yield an empty list.
func (s *Service) Roles(ctx context.Context, actor *auth.Identity) []rbac.Role {
	roles, err := querycache.Get(ctx, s.cache, querycache.Query[[]rbac.Role]{
		Key: KeyRoles,
		Fetch: func(ctx context.Context) ([]rbac.Role, error) {
			return s.api.ListRoles(ctx, actor.Tokens())
		},
		StaleTime: s.opts.Roles.Stale,
		GCTime:    s.opts.Roles.GC,
		Enabled:   hasToken(actor),
	})
	if err != nil {
		if !errors.Is(err, querycache.ErrDisabled) {
			slog.Warn("listing roles failed", "error", err)
		}
		return []rbac.Role{}
	}
	return roles
}

// CreateRole creates a role and invalidates the role list. It returns the
// invalidated keys.
func (s *Service) CreateRole(ctx context.Context, actor *auth.Identity, in backend.RoleInput) (*rbac.Role, []string, error) {
	if !hasToken(actor) {
		return nil, nil, ErrNoActor
	}
	role, err := s.api.CreateRole(ctx, actor.Tokens(), in)
	if err != nil {
		return nil, nil, fmt.Errorf("creating role: %w", err)
	}

	keys := s.invalidate(KeyRoles)
	s.record(ctx, actor, audit.Entry{
		Action:     audit.ActionRoleCreate,
		TargetType: "role",
		TargetID:   role.ID,
		Detail:     "name=" + role.Name + " permissions=" + strings.Join(role.Permissions, ","),
	})
	return role, keys, nil
}

// UpdateRole updates a role. Users' effective permissions change with it, so
// both the role and user lists are invalidated.
func (s *Service) UpdateRole(ctx context.Context, actor *auth.Identity, roleID string, in backend.RoleInput) (*rbac.Role, []string, error) {
	if !hasToken(actor) {
		return nil, nil, ErrNoActor
	}
	role, err := s.api.UpdateRole(ctx, actor.Tokens(), roleID, in)
	if err != nil {
		return nil, nil, fmt.Errorf("updating role: %w", err)
	}

	keys := s.invalidate(KeyRoles, KeyUsers)
	s.profileChanged("", roleID)
	s.record(ctx, actor, audit.Entry{
		Action:     audit.ActionRoleUpdate,
		TargetType: "role",
		TargetID:   roleID,
		Detail:     "name=" + role.Name + " permissions=" + strings.Join(role.Permissions, ","),
	})
	return role, keys, nil
}

// UpdateUserRole assigns roleName to a user and invalidates the user and role lists.
func (s *Service) UpdateUserRole(ctx context.Context, actor *auth.Identity, userID, roleName string) (*rbac.Profile, []string, error) {
	if !hasToken(actor) {
		return nil, nil, ErrNoActor
	}
	user, err := s.api.UpdateUserRole(ctx, actor.Tokens(), userID, roleName)
	if err != nil {
		return nil, nil, fmt.Errorf("updating user role: %w", err)
	}

	keys := s.invalidate(KeyUsers, KeyRoles)
	s.profileChanged(userID, "")
	s.record(ctx, actor, audit.Entry{
		Action:     audit.ActionUserRoleUpdate,
		TargetType: "user",
		TargetID:   userID,
		Detail:     "role=" + roleName,
	})
	return user, keys, nil
}

// AuditLog returns the most recent audit entries.
func (s *Service) AuditLog(ctx context.Context, limit int) ([]audit.Entry, error) {
	if s.audit == nil {
		return []audit.Entry{}, nil
	}
	return s.audit.List(ctx, limit)
}

func (s *Service) invalidate(keys ...string) []string {
	s.cache.Invalidate(keys...)
	if s.opts.Propagate != nil {
		s.opts.Propagate(keys...)
	}
	return keys
}

func (s *Service) profileChanged(userID, roleID string) {
	if s.opts.ProfileChanged != nil {
		s.opts.ProfileChanged(userID, roleID)
	}
}

// record stores an audit entry. The mutation already happened, so a failure is only logged.
func (s *Service) record(ctx context.Context, actor *auth.Identity, e audit.Entry) {
	if s.audit == nil {
		return
	}
	e.ActorID = actor.ID
	e.ActorEmail = actor.Email
	if err := s.audit.Record(ctx, &e); err != nil {
		slog.Error("failed to record audit entry", "action", e.Action, "target", e.TargetID, "error", err)
	}
}

func hasToken(actor *auth.Identity) bool {
	return actor != nil && actor.Token != ""
}
