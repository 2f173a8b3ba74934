package guard_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/daap14/console/internal/guard"
	"github.com/daap14/console/internal/rbac"
)

func adminProfile() *rbac.Profile {
	return &rbac.Profile{
		ID:    "u-1",
		Email: "ada@example.test",
		Role:  &rbac.Role{Name: "admin", Permissions: []string{"users.read", "users.update"}},
	}
}

// --- CanAccess Tests ---

func TestCanAccess(t *testing.T) {
	tests := []struct {
		name     string
		criteria guard.Criteria
		want     bool
	}{
		{name: "no criteria", criteria: guard.Criteria{}, want: true},
		{name: "missing permission", criteria: guard.Criteria{Permission: "users.delete"}, want: false},
		{name: "held permission", criteria: guard.Criteria{Permission: "users.read"}, want: true},
		{name: "any permission with one match", criteria: guard.Criteria{AnyPermission: []string{"users.delete", "users.read"}}, want: true},
		{name: "any permission without match", criteria: guard.Criteria{AnyPermission: []string{"users.delete"}}, want: false},
		{name: "all permissions held", criteria: guard.Criteria{AllPermissions: []string{"users.read", "users.update"}}, want: true},
		{name: "all permissions partly held", criteria: guard.Criteria{AllPermissions: []string{"users.read", "users.delete"}}, want: false},
		{name: "required role", criteria: guard.Criteria{Role: "admin"}, want: true},
		{name: "wrong role", criteria: guard.Criteria{Role: "viewer"}, want: false},
		{name: "any role", criteria: guard.Criteria{AnyRole: []string{"viewer", "admin"}}, want: true},
		{name: "role and missing permission", criteria: guard.Criteria{Role: "admin", Permission: "roles.create"}, want: false},
		{name: "role and held permission", criteria: guard.Criteria{Role: "admin", Permission: "users.update"}, want: true},
		{name: "present but empty any role", criteria: guard.Criteria{AnyRole: []string{}}, want: false},
		{name: "present but empty any permission", criteria: guard.Criteria{AnyPermission: []string{}}, want: false},
		{name: "present but empty all permissions", criteria: guard.Criteria{AllPermissions: []string{}}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, guard.CanAccess(adminProfile(), tt.criteria))
		})
	}
}

func TestCanAccess_NilProfile(t *testing.T) {
	assert.False(t, guard.CanAccess(nil, guard.Criteria{}))
	assert.False(t, guard.CanAccess(nil, guard.Criteria{Permission: "users.read"}))
}

func TestCanAccess_ProfileWithoutRole(t *testing.T) {
	p := &rbac.Profile{ID: "u-2"}

	assert.True(t, guard.CanAccess(p, guard.Criteria{}), "signed-in users reach unguarded pages")
	assert.False(t, guard.CanAccess(p, guard.Criteria{Permission: "users.read"}))
}

// --- Policy Tests ---

func TestDefaultPolicy_VisibleLinks(t *testing.T) {
	policy := guard.DefaultPolicy()

	links := policy.VisibleLinks(adminProfile())

	names := make([]string, 0, len(links))
	for _, l := range links {
		names = append(names, l.Name)
	}
	assert.Equal(t, []string{"dashboard", "users", "settings"}, names)
}

func TestDefaultPolicy_VisibleLinksNilProfile(t *testing.T) {
	assert.Empty(t, guard.DefaultPolicy().VisibleLinks(nil))
}

func TestPolicy_Page(t *testing.T) {
	policy := guard.DefaultPolicy()

	page, err := policy.Page("roles")
	require.NoError(t, err)
	assert.Equal(t, "/roles", page.Path)
	assert.False(t, guard.CanAccess(adminProfile(), page.Criteria))

	_, err = policy.Page("nope")
	assert.ErrorIs(t, err, guard.ErrPageNotFound)
}

func TestParsePolicy(t *testing.T) {
	data := []byte(`
pages:
  - name: home
    path: /
    title: Home
  - name: people
    path: /people
    title: People
    criteria:
      anyPermission: [users.read, users.update]
  - name: locked
    path: /locked
    title: Locked
    criteria:
      anyRole: []
`)

	policy, err := guard.ParsePolicy(data)
	require.NoError(t, err)
	require.Len(t, policy.Pages, 3)

	people, err := policy.Page("people")
	require.NoError(t, err)
	assert.Equal(t, []string{"users.read", "users.update"}, people.Criteria.AnyPermission)

	locked, err := policy.Page("locked")
	require.NoError(t, err)
	assert.NotNil(t, locked.Criteria.AnyRole, "explicit empty list is kept")
	assert.False(t, guard.CanAccess(adminProfile(), locked.Criteria))

	home, err := policy.Page("home")
	require.NoError(t, err)
	assert.Nil(t, home.Criteria.AnyRole)
	assert.True(t, guard.CanAccess(adminProfile(), home.Criteria))
}

func TestParsePolicy_Invalid(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{name: "no pages", data: "pages: []"},
		{name: "missing name", data: "pages:\n  - path: /x\n"},
		{name: "relative path", data: "pages:\n  - name: x\n    path: x\n"},
		{name: "duplicate name", data: "pages:\n  - name: x\n    path: /x\n  - name: x\n    path: /y\n"},
		{name: "unknown field", data: "pages:\n  - name: x\n    path: /x\n    colour: red\n"},
		{name: "not yaml", data: "pages: [:"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := guard.ParsePolicy([]byte(tt.data))
			assert.Error(t, err)
		})
	}
}

func TestLoadPolicy(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pages.yaml")
	require.NoError(t, os.WriteFile(path, []byte("pages:\n  - name: home\n    path: /\n"), 0o600))

	policy, err := guard.LoadPolicy(path)
	require.NoError(t, err)
	assert.Len(t, policy.Pages, 1)

	_, err = guard.LoadPolicy(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
