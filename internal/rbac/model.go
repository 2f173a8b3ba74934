package rbac

import "time"

// PermissionAll is the wildcard permission; a role holding it is granted every permission.
const PermissionAll = "all"

// Role is a named set of permissions owned by the API server.
type Role struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	DisplayName string    `json:"display_name,omitempty"`
	Description string    `json:"description,omitempty"`
	Permissions []string  `json:"permissions"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Profile is the application-level user record, keyed by the identity provider's user id.
type Profile struct {
	ID          string     `json:"id"`
	ExternalID  string     `json:"external_id,omitempty"`
	Email       string     `json:"email"`
	FirstName   string     `json:"first_name,omitempty"`
	LastName    string     `json:"last_name,omitempty"`
	DisplayName string     `json:"display_name,omitempty"`
	AvatarURL   string     `json:"avatar_url,omitempty"`
	Phone       string     `json:"phone,omitempty"`
	Role        *Role      `json:"role,omitempty"`
	IsActive    bool       `json:"is_active"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
}

// RoleName returns the profile's role name, or "" when it has no role.
func (p *Profile) RoleName() string {
	if p == nil || p.Role == nil {
		return ""
	}
	return p.Role.Name
}
