package auth

import (
	"context"
	"fmt"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// TokenProvider returns the current bearer token. An empty token with a nil
// error means the caller is not authenticated.
type TokenProvider func(ctx context.Context) (string, error)

// Static returns a TokenProvider that always yields token.
func Static(token string) TokenProvider {
	return func(context.Context) (string, error) {
		return token, nil
	}
}

// FromTokenSource adapts an oauth2.TokenSource, which refreshes tokens as they expire.
func FromTokenSource(ts oauth2.TokenSource) TokenProvider {
	return func(context.Context) (string, error) {
		if ts == nil {
			return "", nil
		}
		tok, err := ts.Token()
		if err != nil {
			return "", fmt.Errorf("obtaining token: %w", err)
		}
		if !tok.Valid() {
			return "", nil
		}
		return tok.AccessToken, nil
	}
}

// ServiceCredentials identifies the console itself to the identity provider.
type ServiceCredentials struct {
	ClientID     string
	ClientSecret string
	TokenURL     string
	Scopes       []string
}

// ClientCredentials returns a TokenProvider running the OAuth2 client
// credentials flow. Tokens are cached and fetched again shortly before they
// expire. ctx bounds the token endpoint calls for the provider's lifetime.
func ClientCredentials(ctx context.Context, c ServiceCredentials) TokenProvider {
	cfg := &clientcredentials.Config{
		ClientID:     c.ClientID,
		ClientSecret: c.ClientSecret,
		TokenURL:     c.TokenURL,
		Scopes:       c.Scopes,
	}
	return FromTokenSource(cfg.TokenSource(ctx))
}
