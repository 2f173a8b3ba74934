package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/daap14/console/internal/auth"
	"github.com/daap14/console/internal/rbac"
)

const maxBodyBytes = 4 << 20

// Client calls the REST API server on behalf of a signed-in user.
type Client struct {
	baseURL string
	http    *http.Client
	service auth.TokenProvider
}

// ClientOption configures the Client.
type ClientOption func(*clientOptions)

type clientOptions struct {
	httpClient *http.Client
	timeout    time.Duration
	service    auth.TokenProvider
}

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(c *http.Client) ClientOption {
	return func(o *clientOptions) {
		o.httpClient = c
	}
}

// WithTimeout sets the per-request timeout of the default http.Client.
func WithTimeout(d time.Duration) ClientOption {
	return func(o *clientOptions) {
		o.timeout = d
	}
}

// WithServiceTokens sets the console's own credentials, sent on calls that
// are not made on behalf of a user.
func WithServiceTokens(tokens auth.TokenProvider) ClientOption {
	return func(o *clientOptions) {
		o.service = tokens
	}
}

// NewClient creates a Client for the API server at baseURL.
func NewClient(baseURL string, opts ...ClientOption) (*Client, error) {
	o := &clientOptions{timeout: 10 * time.Second}
	for _, opt := range opts {
		opt(o)
	}

	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing base URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("base URL %q must be http or https", baseURL)
	}

	hc := o.httpClient
	if hc == nil {
		hc = &http.Client{Timeout: o.timeout}
	}

	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    hc,
		service: o.service,
	}, nil
}

// RoleInput is the body of role create and update calls.
type RoleInput struct {
	Name        string   `json:"name"`
	DisplayName string   `json:"display_name,omitempty"`
	Description string   `json:"description,omitempty"`
	Permissions []string `json:"permissions"`
	IsActive    *bool    `json:"is_active,omitempty"`
}

// CreateUserInput is the body of the profile bootstrap call.
type CreateUserInput struct {
	ExternalID  string `json:"external_id"`
	Email       string `json:"email"`
	FirstName   string `json:"first_name,omitempty"`
	LastName    string `json:"last_name,omitempty"`
	DisplayName string `json:"display_name,omitempty"`
}

// Me handles GET /auth/me.
func (c *Client) Me(ctx context.Context, tokens auth.TokenProvider) (*rbac.Profile, error) {
	var p rbac.Profile
	if err := c.do(ctx, tokens, http.MethodGet, "/auth/me", nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// ListUsers handles GET /auth/users.
func (c *Client) ListUsers(ctx context.Context, tokens auth.TokenProvider) ([]rbac.Profile, error) {
	var users []rbac.Profile
	if err := c.do(ctx, tokens, http.MethodGet, "/auth/users", nil, &users); err != nil {
		return nil, err
	}
	if users == nil {
		users = []rbac.Profile{}
	}
	return users, nil
}

// ListRoles handles GET /auth/roles.
func (c *Client) ListRoles(ctx context.Context, tokens auth.TokenProvider) ([]rbac.Role, error) {
	var roles []rbac.Role
	if err := c.do(ctx, tokens, http.MethodGet, "/auth/roles", nil, &roles); err != nil {
		return nil, err
	}
	if roles == nil {
		roles = []rbac.Role{}
	}
	return roles, nil
}

// UpdateUserRole handles PUT /auth/users/{id}/role?role_name=...
func (c *Client) UpdateUserRole(ctx context.Context, tokens auth.TokenProvider, userID, roleName string) (*rbac.Profile, error) {
	path := "/auth/users/" + url.PathEscape(userID) + "/role?role_name=" + url.QueryEscape(roleName)
	var p rbac.Profile
	if err := c.do(ctx, tokens, http.MethodPut, path, nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// CreateRole handles POST /auth/roles/create.
func (c *Client) CreateRole(ctx context.Context, tokens auth.TokenProvider, in RoleInput) (*rbac.Role, error) {
	var r rbac.Role
	if err := c.do(ctx, tokens, http.MethodPost, "/auth/roles/create", in, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// UpdateRole handles PUT /auth/roles/{id}/update.
func (c *Client) UpdateRole(ctx context.Context, tokens auth.TokenProvider, roleID string, in RoleInput) (*rbac.Role, error) {
	var r rbac.Role
	if err := c.do(ctx, tokens, http.MethodPut, "/auth/roles/"+url.PathEscape(roleID)+"/update", in, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// CreateUser handles POST /debug/create-user. It carries the service token
// when one is configured and is unauthenticated otherwise.
func (c *Client) CreateUser(ctx context.Context, in CreateUserInput) (*rbac.Profile, error) {
	var p rbac.Profile
	if err := c.do(ctx, c.service, http.MethodPost, "/debug/create-user", in, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// ConnectivityStatus represents the result of an API server reachability check.
type ConnectivityStatus struct {
	Connected bool
	Status    int
}

// CheckConnectivity reports whether the API server answers HTTP at all.
func (c *Client) CheckConnectivity(ctx context.Context) ConnectivityStatus {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/", nil)
	if err != nil {
		return ConnectivityStatus{}
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return ConnectivityStatus{}
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
	return ConnectivityStatus{Connected: true, Status: resp.StatusCode}
}

// do performs one request. A nil tokens provider sends no Authorization header.
func (c *Client) do(ctx context.Context, tokens auth.TokenProvider, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encoding request body: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if tokens != nil {
		token, err := tokens(ctx)
		if err != nil {
			return fmt.Errorf("obtaining bearer token: %w", err)
		}
		if token == "" {
			return ErrNoToken
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		slog.Warn("api request failed", "method", method, "path", path, "error", err)
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return fmt.Errorf("reading response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		slog.Warn("api request rejected",
			"method", method,
			"path", path,
			"status", resp.StatusCode,
			"body", string(raw),
		)
		return &StatusError{Method: method, Path: path, Status: resp.StatusCode, Body: string(raw)}
	}

	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(unwrapData(raw), out); err != nil {
		return fmt.Errorf("decoding %s %s response: %w", method, path, err)
	}
	return nil
}

// unwrapData returns the "data" member of an enveloped response, or raw itself.
func unwrapData(raw []byte) []byte {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return raw
	}
	var env map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &env); err != nil {
		return raw
	}
	if _, isRecord := env["id"]; isRecord {
		return raw
	}
	if data, ok := env["data"]; ok {
		return data
	}
	return raw
}
