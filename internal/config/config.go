package config

import (
	"errors"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds application configuration loaded from environment variables.
type Config struct {
	Port                  int    `envconfig:"PORT" default:"8080"`
	LogLevel              string `envconfig:"LOG_LEVEL" default:"info"`
	Version               string `envconfig:"VERSION" default:"dev"`
	APIBaseURL            string `envconfig:"API_BASE_URL" required:"true"`
	RequestTimeoutSeconds int    `envconfig:"REQUEST_TIMEOUT_SECONDS" default:"10"`
	ProfileBootstrap      bool   `envconfig:"PROFILE_BOOTSTRAP" default:"true"`
	UsersStaleSeconds     int    `envconfig:"USERS_STALE_SECONDS" default:"30"`
	UsersGCSeconds        int    `envconfig:"USERS_GC_SECONDS" default:"300"`
	RolesStaleSeconds     int    `envconfig:"ROLES_STALE_SECONDS" default:"60"`
	RolesGCSeconds        int    `envconfig:"ROLES_GC_SECONDS" default:"600"`
	CacheCapacity         int    `envconfig:"CACHE_CAPACITY" default:"64"`
	CacheSweepSeconds     int    `envconfig:"CACHE_SWEEP_SECONDS" default:"30"`
	SessionCapacity       int    `envconfig:"SESSION_CAPACITY" default:"1024"`
	GuardPolicyPath       string `envconfig:"GUARD_POLICY_PATH" default:""`
	DatabaseURL           string `envconfig:"DATABASE_URL" default:""`
	DatabaseMaxConns      int32  `envconfig:"DATABASE_MAX_CONNS" default:"4"`

	// Client credentials the console uses for the profile bootstrap call.
	// Left empty, that call is made without a token.
	ServiceClientID     string   `envconfig:"SERVICE_CLIENT_ID" default:""`
	ServiceClientSecret string   `envconfig:"SERVICE_CLIENT_SECRET" default:""`
	ServiceTokenURL     string   `envconfig:"SERVICE_TOKEN_URL" default:""`
	ServiceScopes       []string `envconfig:"SERVICE_SCOPES" default:""`
}

// Load reads configuration from environment variables into a Config struct.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if cfg.ServiceClientID != "" && cfg.ServiceTokenURL == "" {
		return nil, errors.New("SERVICE_TOKEN_URL is required when SERVICE_CLIENT_ID is set")
	}
	return &cfg, nil
}

// ServiceCredentials reports whether client credentials are configured.
func (c *Config) ServiceCredentials() bool {
	return c.ServiceClientID != ""
}

// RequestTimeout is the per-request timeout for calls to the API server.
func (c *Config) RequestTimeout() time.Duration {
	return seconds(c.RequestTimeoutSeconds)
}

// CacheSweepInterval is how often expired cache entries are evicted.
func (c *Config) CacheSweepInterval() time.Duration {
	return seconds(c.CacheSweepSeconds)
}

// Windows holds the staleness and garbage-collection windows of one cached collection.
type Windows struct {
	Stale time.Duration
	GC    time.Duration
}

// UsersWindows returns the cache windows for the user list.
func (c *Config) UsersWindows() Windows {
	return Windows{Stale: seconds(c.UsersStaleSeconds), GC: seconds(c.UsersGCSeconds)}
}

// RolesWindows returns the cache windows for the role list.
func (c *Config) RolesWindows() Windows {
	return Windows{Stale: seconds(c.RolesStaleSeconds), GC: seconds(c.RolesGCSeconds)}
}

func seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}
