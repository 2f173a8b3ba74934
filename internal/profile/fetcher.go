package profile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/daap14/console/internal/auth"
	"github.com/daap14/console/internal/backend"
	"github.com/daap14/console/internal/rbac"
)

// ErrUnauthenticated is returned when no bearer token is available for a fetch.
var ErrUnauthenticated = errors.New("not authenticated")

// ErrNoProfile is recorded when a load cycle finishes without a profile.
var ErrNoProfile = errors.New("no profile for identity")

// API is the subset of the API server client used to resolve profiles.
type API interface {
	Me(ctx context.Context, tokens auth.TokenProvider) (*rbac.Profile, error)
	CreateUser(ctx context.Context, in backend.CreateUserInput) (*rbac.Profile, error)
}

// Fetcher resolves the signed-in user's profile from the API server.
type Fetcher struct {
	api       API
	bootstrap bool
}

// NewFetcher creates a Fetcher. When bootstrap is true a missing profile is
// created once per load cycle through the unauthenticated bootstrap endpoint.
func NewFetcher(api API, bootstrap bool) *Fetcher {
	return &Fetcher{api: api, bootstrap: bootstrap}
}

// Fetch calls GET /auth/me with a token from tokens. Failures are logged and returned.
func (f *Fetcher) Fetch(ctx context.Context, tokens auth.TokenProvider) (*rbac.Profile, error) {
	p, err := f.api.Me(ctx, tokens)
	if err != nil {
		if errors.Is(err, backend.ErrNoToken) {
			return nil, ErrUnauthenticated
		}
		slog.Warn("profile fetch failed", "error", err)
		return nil, fmt.Errorf("fetching profile: %w", err)
	}
	return p, nil
}

// Bootstrap asks the API server to create the profile for id.
func (f *Fetcher) Bootstrap(ctx context.Context, id *auth.Identity) error {
	_, err := f.api.CreateUser(ctx, backend.CreateUserInput{
		ExternalID:  id.ID,
		Email:       id.Email,
		FirstName:   id.GivenName,
		LastName:    id.FamilyName,
		DisplayName: id.Name,
	})
	if err != nil {
		slog.Warn("profile bootstrap failed", "identity", id.ID, "error", err)
		return err
	}
	slog.Info("profile bootstrapped", "identity", id.ID)
	return nil
}

// Load runs one load cycle for id: fetch, and when the profile does not exist
// yet, bootstrap it once and fetch again. It is not retried further.
func (f *Fetcher) Load(ctx context.Context, id *auth.Identity) (*rbac.Profile, error) {
	p, err := f.Fetch(ctx, id.Tokens())
	if err == nil {
		return p, nil
	}
	if !f.bootstrap || !errors.Is(err, backend.ErrNotFound) {
		return nil, err
	}

	if err := f.Bootstrap(ctx, id); err != nil {
		return nil, fmt.Errorf("bootstrapping profile: %w", err)
	}
	return f.Fetch(ctx, id.Tokens())
}
