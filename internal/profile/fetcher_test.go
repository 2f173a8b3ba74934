package profile_test

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/daap14/console/internal/auth"
	"github.com/daap14/console/internal/backend"
	"github.com/daap14/console/internal/profile"
	"github.com/daap14/console/internal/rbac"
)

type meResult struct {
	profile *rbac.Profile
	err     error
}

// fakeAPI replays Me results in order and records bootstrap calls.
type fakeAPI struct {
	me          []meResult
	meCalls     int
	created     []backend.CreateUserInput
	createErr   error
	lastTokenOK bool
}

func (f *fakeAPI) Me(ctx context.Context, tokens auth.TokenProvider) (*rbac.Profile, error) {
	tok, _ := tokens(ctx)
	f.lastTokenOK = tok != ""
	if tok == "" {
		return nil, backend.ErrNoToken
	}
	i := f.meCalls
	f.meCalls++
	if i >= len(f.me) {
		return nil, errors.New("unexpected Me call")
	}
	return f.me[i].profile, f.me[i].err
}

func (f *fakeAPI) CreateUser(_ context.Context, in backend.CreateUserInput) (*rbac.Profile, error) {
	f.created = append(f.created, in)
	if f.createErr != nil {
		return nil, f.createErr
	}
	return &rbac.Profile{ID: "created", ExternalID: in.ExternalID}, nil
}

func notFound() error {
	return &backend.StatusError{Method: http.MethodGet, Path: "/auth/me", Status: http.StatusNotFound}
}

var ada = &auth.Identity{
	ID:         "idp|ada",
	Email:      "ada@example.test",
	Name:       "Ada Lovelace",
	GivenName:  "Ada",
	FamilyName: "Lovelace",
	Token:      "tok-ada",
}

func TestFetcherLoad_Success(t *testing.T) {
	api := &fakeAPI{me: []meResult{{profile: &rbac.Profile{ID: "p-ada"}}}}

	p, err := profile.NewFetcher(api, true).Load(context.Background(), ada)

	require.NoError(t, err)
	assert.Equal(t, "p-ada", p.ID)
	assert.Equal(t, 1, api.meCalls)
	assert.Empty(t, api.created)
}

func TestFetcherLoad_BootstrapsMissingProfileOnce(t *testing.T) {
	api := &fakeAPI{me: []meResult{
		{err: notFound()},
		{profile: &rbac.Profile{ID: "p-ada"}},
	}}

	p, err := profile.NewFetcher(api, true).Load(context.Background(), ada)

	require.NoError(t, err)
	assert.Equal(t, "p-ada", p.ID)
	assert.Equal(t, 2, api.meCalls)
	require.Len(t, api.created, 1)
	assert.Equal(t, backend.CreateUserInput{
		ExternalID:  "idp|ada",
		Email:       "ada@example.test",
		FirstName:   "Ada",
		LastName:    "Lovelace",
		DisplayName: "Ada Lovelace",
	}, api.created[0])
}

func TestFetcherLoad_SecondFailureIsFinal(t *testing.T) {
	api := &fakeAPI{me: []meResult{{err: notFound()}, {err: notFound()}}}

	p, err := profile.NewFetcher(api, true).Load(context.Background(), ada)

	assert.Nil(t, p)
	assert.ErrorIs(t, err, backend.ErrNotFound)
	assert.Equal(t, 2, api.meCalls)
	assert.Len(t, api.created, 1, "bootstrap is attempted exactly once per cycle")
}

func TestFetcherLoad_BootstrapDisabled(t *testing.T) {
	api := &fakeAPI{me: []meResult{{err: notFound()}}}

	_, err := profile.NewFetcher(api, false).Load(context.Background(), ada)

	assert.ErrorIs(t, err, backend.ErrNotFound)
	assert.Empty(t, api.created)
}

func TestFetcherLoad_OtherErrorsSkipBootstrap(t *testing.T) {
	api := &fakeAPI{me: []meResult{{err: &backend.StatusError{Status: http.StatusUnauthorized}}}}

	_, err := profile.NewFetcher(api, true).Load(context.Background(), ada)

	assert.ErrorIs(t, err, backend.ErrUnauthorized)
	assert.Empty(t, api.created)
	assert.Equal(t, 1, api.meCalls)
}

func TestFetcherLoad_BootstrapFailure(t *testing.T) {
	api := &fakeAPI{me: []meResult{{err: notFound()}}, createErr: errors.New("create failed")}

	_, err := profile.NewFetcher(api, true).Load(context.Background(), ada)

	assert.ErrorContains(t, err, "create failed")
	assert.Equal(t, 1, api.meCalls)
}

func TestFetcherFetch_NoToken(t *testing.T) {
	api := &fakeAPI{}

	p, err := profile.NewFetcher(api, true).Fetch(context.Background(), auth.Static(""))

	assert.Nil(t, p)
	assert.ErrorIs(t, err, profile.ErrUnauthenticated)
	assert.False(t, api.lastTokenOK)
}
