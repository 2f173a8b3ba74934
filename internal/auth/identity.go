package auth

import (
	"errors"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// ErrMissingToken is returned when no bearer token was presented.
var ErrMissingToken = errors.New("bearer token is required")

// ErrMalformedToken is returned when a bearer token cannot be decoded or lacks a subject.
var ErrMalformedToken = errors.New("malformed bearer token")

// Identity is the signed-in user as asserted by the identity provider.
// It is stored in the request context after the bearer token is decoded.
type Identity struct {
	ID         string // identity provider subject
	Email      string
	Name       string
	GivenName  string
	FamilyName string
	Token      string
}

// identityClaims are the OIDC claims read from the identity provider's token.
type identityClaims struct {
	jwt.RegisteredClaims
	Email      string `json:"email"`
	Name       string `json:"name"`
	GivenName  string `json:"given_name"`
	FamilyName string `json:"family_name"`
}

// FromBearer decodes the claims of a bearer token into an Identity.
// The signature is not verified here; the API server verifies every token it receives.
func FromBearer(token string) (*Identity, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrMissingToken
	}

	var claims identityClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedToken, err)
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing sub claim", ErrMalformedToken)
	}

	return &Identity{
		ID:         claims.Subject,
		Email:      claims.Email,
		Name:       claims.Name,
		GivenName:  claims.GivenName,
		FamilyName: claims.FamilyName,
		Token:      token,
	}, nil
}

// BearerFromHeader extracts the token from an Authorization header value.
func BearerFromHeader(header string) string {
	const prefix = "bearer "
	if len(header) < len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}

// Tokens returns a TokenProvider serving this identity's token.
func (i *Identity) Tokens() TokenProvider {
	if i == nil {
		return Static("")
	}
	return Static(i.Token)
}
