package api

import (
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/go-chi/chi/v5"

	"github.com/daap14/console/internal/api/handler"
	"github.com/daap14/console/internal/api/middleware"
	"github.com/daap14/console/internal/guard"
	"github.com/daap14/console/internal/session"
)

// Permissions required by the admin routes.
const (
	PermUsersRead   = "users.read"
	PermUsersUpdate = "users.update"
	PermRolesRead   = "roles.read"
	PermRolesCreate = "roles.create"
	PermRolesUpdate = "roles.update"
	PermAuditRead   = "audit.read"
)

// RouterDeps holds all dependencies needed by the router.
type RouterDeps struct {
	Checker  handler.ConnectivityChecker
	DBPinger handler.DBPinger
	Version  string
	Sessions *session.Registry
	Policy   *guard.Policy
	Gatherer prometheus.Gatherer
}

// NewRouter creates and configures a Chi router with all middleware and routes.
func NewRouter(deps RouterDeps) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recovery)
	r.Use(chimiddleware.Logger)

	healthHandler := handler.NewHealthHandler(deps.Checker, deps.DBPinger, deps.Version)
	r.Get("/health", healthHandler.ServeHTTP)

	if deps.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{}))
	}

	if deps.Sessions == nil {
		return r
	}

	policy := deps.Policy
	if policy == nil {
		policy = guard.DefaultPolicy()
	}

	sessionHandler := handler.NewSessionHandler(deps.Sessions)
	navHandler := handler.NewNavHandler(policy)
	userHandler := handler.NewUserHandler()
	roleHandler := handler.NewRoleHandler()
	auditHandler := handler.NewAuditHandler()

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Authenticate(deps.Sessions))

		r.Route("/session", func(r chi.Router) {
			r.Get("/", sessionHandler.Get)
			r.Delete("/", sessionHandler.SignOut)
			r.Post("/refresh", sessionHandler.Refresh)
			r.Delete("/cache", sessionHandler.ClearCache)
		})

		r.Get("/nav", navHandler.Links)
		r.Get("/pages/{name}/access", navHandler.Access)

		r.Route("/users", func(r chi.Router) {
			r.With(middleware.RequireAccess(guard.Criteria{Permission: PermUsersRead})).Get("/", userHandler.List)
			r.With(middleware.RequireAccess(guard.Criteria{Permission: PermUsersUpdate})).Put("/{id}/role", userHandler.UpdateRole)
		})

		r.Route("/roles", func(r chi.Router) {
			r.With(middleware.RequireAccess(guard.Criteria{Permission: PermRolesRead})).Get("/", roleHandler.List)
			r.With(middleware.RequireAccess(guard.Criteria{Permission: PermRolesCreate})).Post("/", roleHandler.Create)
			r.With(middleware.RequireAccess(guard.Criteria{Permission: PermRolesUpdate})).Put("/{id}", roleHandler.Update)
		})

		r.With(middleware.RequireAccess(guard.Criteria{Permission: PermAuditRead})).Get("/audit", auditHandler.List)
	})

	return r
}
