package auth_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/daap14/console/internal/auth"
)

func signToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return token
}

// --- FromBearer Tests ---

func TestFromBearer_ValidToken(t *testing.T) {
	token := signToken(t, jwt.MapClaims{
		"sub":         "idp|42",
		"email":       "ada@example.test",
		"name":        "Ada Lovelace",
		"given_name":  "Ada",
		"family_name": "Lovelace",
	})

	identity, err := auth.FromBearer(token)
	require.NoError(t, err)

	assert.Equal(t, "idp|42", identity.ID)
	assert.Equal(t, "ada@example.test", identity.Email)
	assert.Equal(t, "Ada Lovelace", identity.Name)
	assert.Equal(t, "Ada", identity.GivenName)
	assert.Equal(t, "Lovelace", identity.FamilyName)
	assert.Equal(t, token, identity.Token)
}

func TestFromBearer_ExpiredTokenStillDecodes(t *testing.T) {
	token := signToken(t, jwt.MapClaims{
		"sub": "idp|7",
		"exp": time.Now().Add(-time.Hour).Unix(),
	})

	identity, err := auth.FromBearer(token)
	require.NoError(t, err)
	assert.Equal(t, "idp|7", identity.ID)
}

func TestFromBearer_Errors(t *testing.T) {
	tests := []struct {
		name    string
		token   string
		wantErr error
	}{
		{name: "empty", token: "", wantErr: auth.ErrMissingToken},
		{name: "whitespace", token: "   ", wantErr: auth.ErrMissingToken},
		{name: "garbage", token: "not-a-jwt", wantErr: auth.ErrMalformedToken},
		{name: "no subject", token: signToken(t, jwt.MapClaims{"email": "x@example.test"}), wantErr: auth.ErrMalformedToken},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			identity, err := auth.FromBearer(tt.token)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Nil(t, identity)
		})
	}
}

func TestBearerFromHeader(t *testing.T) {
	assert.Equal(t, "abc", auth.BearerFromHeader("Bearer abc"))
	assert.Equal(t, "abc", auth.BearerFromHeader("bearer  abc "))
	assert.Equal(t, "", auth.BearerFromHeader("Basic abc"))
	assert.Equal(t, "", auth.BearerFromHeader(""))
}

// --- TokenProvider Tests ---

func TestIdentity_Tokens(t *testing.T) {
	ctx := context.Background()

	tok, err := (&auth.Identity{ID: "x", Token: "t-1"}).Tokens()(ctx)
	require.NoError(t, err)
	assert.Equal(t, "t-1", tok)

	var nilIdentity *auth.Identity
	tok, err = nilIdentity.Tokens()(ctx)
	require.NoError(t, err)
	assert.Equal(t, "", tok)
}

func TestFromTokenSource(t *testing.T) {
	ctx := context.Background()

	provider := auth.FromTokenSource(oauth2.StaticTokenSource(&oauth2.Token{AccessToken: "access-1"}))
	tok, err := provider(ctx)
	require.NoError(t, err)
	assert.Equal(t, "access-1", tok)

	expired := auth.FromTokenSource(oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: "old",
		Expiry:      time.Now().Add(-time.Minute),
	}))
	tok, err = expired(ctx)
	require.NoError(t, err)
	assert.Equal(t, "", tok, "expired tokens mean unauthenticated")

	tok, err = auth.FromTokenSource(nil)(ctx)
	require.NoError(t, err)
	assert.Equal(t, "", tok)
}

type failingSource struct{}

func (failingSource) Token() (*oauth2.Token, error) { return nil, errors.New("refresh failed") }

func TestFromTokenSource_Error(t *testing.T) {
	_, err := auth.FromTokenSource(failingSource{})(context.Background())
	assert.Error(t, err)
}
