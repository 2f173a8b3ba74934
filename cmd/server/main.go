package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/daap14/console/internal/api"
	"github.com/daap14/console/internal/api/handler"
	"github.com/daap14/console/internal/audit"
	"github.com/daap14/console/internal/auth"
	"github.com/daap14/console/internal/backend"
	"github.com/daap14/console/internal/config"
	"github.com/daap14/console/internal/database"
	"github.com/daap14/console/internal/guard"
	"github.com/daap14/console/internal/querycache"
	"github.com/daap14/console/internal/session"
)

const memoryAuditCapacity = 1000

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	setupLogger(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	clientOpts := []backend.ClientOption{backend.WithTimeout(cfg.RequestTimeout())}
	if cfg.ServiceCredentials() {
		clientOpts = append(clientOpts, backend.WithServiceTokens(auth.ClientCredentials(ctx, auth.ServiceCredentials{
			ClientID:     cfg.ServiceClientID,
			ClientSecret: cfg.ServiceClientSecret,
			TokenURL:     cfg.ServiceTokenURL,
			Scopes:       cfg.ServiceScopes,
		})))
		slog.Info("profile bootstrap uses service credentials", "clientId", cfg.ServiceClientID)
	}
	client, err := backend.NewClient(cfg.APIBaseURL, clientOpts...)
	if err != nil {
		slog.Error("invalid API server address", "error", err)
		os.Exit(1)
	}

	policy, err := loadPolicy(cfg.GuardPolicyPath)
	if err != nil {
		slog.Error("failed to load guard policy", "error", err, "path", cfg.GuardPolicyPath)
		os.Exit(1)
	}

	auditRepo, pinger, closeDB, err := initAudit(ctx, cfg)
	if err != nil {
		slog.Error("failed to initialize audit log", "error", err)
		os.Exit(1)
	}
	defer closeDB()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	sessions, err := session.NewRegistry(cfg.SessionCapacity, cfg.CacheSweepInterval(), session.Deps{
		API:           client,
		Audit:         auditRepo,
		Bootstrap:     cfg.ProfileBootstrap,
		Users:         cfg.UsersWindows(),
		Roles:         cfg.RolesWindows(),
		CacheCapacity: cfg.CacheCapacity,
		Metrics:       querycache.NewMetrics(registry),
	})
	if err != nil {
		slog.Error("failed to create session registry", "error", err)
		os.Exit(1)
	}
	go sessions.Start(ctx)

	router := api.NewRouter(api.RouterDeps{
		Checker:  client,
		DBPinger: pinger,
		Version:  cfg.Version,
		Sessions: sessions,
		Policy:   policy,
		Gatherer: registry,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		slog.Info("starting console server", "port", cfg.Port, "version", cfg.Version, "apiBaseUrl", cfg.APIBaseURL)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	select {
	case <-ctx.Done():
		slog.Info("shutting down server")
	case err := <-serverErr:
		slog.Error("server error", "error", err)
		os.Exit(1)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("server stopped gracefully")
}

func setupLogger(level string) {
	var logLevel slog.Level
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	})
	slog.SetDefault(slog.New(handler))
}

func loadPolicy(path string) (*guard.Policy, error) {
	if path == "" {
		return guard.DefaultPolicy(), nil
	}
	return guard.LoadPolicy(path)
}

// initAudit opens the Postgres audit log when DATABASE_URL is set and falls
// back to an in-memory log otherwise. The returned pinger is nil without a database.
func initAudit(ctx context.Context, cfg *config.Config) (audit.Repository, handler.DBPinger, func(), error) {
	if cfg.DatabaseURL == "" {
		slog.Warn("DATABASE_URL not set; audit log is kept in memory")
		return audit.NewMemoryRepository(memoryAuditCapacity), nil, func() {}, nil
	}

	db, err := database.New(ctx, cfg.DatabaseURL, cfg.DatabaseMaxConns, 10*time.Second)
	if err != nil {
		return nil, nil, nil, err
	}

	repo := audit.NewRepository(db.Pool())
	if err := repo.EnsureSchema(ctx); err != nil {
		db.Close()
		return nil, nil, nil, fmt.Errorf("creating audit schema: %w", err)
	}
	return repo, db, db.Close, nil
}
