package guard

import "github.com/daap14/console/internal/rbac"

// Criteria is a conjunction of access requirements. A zero field (empty string
// or nil slice) is not checked. A non-nil empty slice is checked and denies.
type Criteria struct {
	Role           string   `json:"role,omitempty"`
	AnyRole        []string `json:"anyRole,omitempty"`
	Permission     string   `json:"permission,omitempty"`
	AnyPermission  []string `json:"anyPermission,omitempty"`
	AllPermissions []string `json:"allPermissions,omitempty"`
}

// CanAccess reports whether p satisfies every criterion in c. A nil profile never does.
func CanAccess(p *rbac.Profile, c Criteria) bool {
	if p == nil {
		return false
	}
	if c.Role != "" && !rbac.HasRole(p, c.Role) {
		return false
	}
	if c.AnyRole != nil && !rbac.HasAnyRole(p, c.AnyRole) {
		return false
	}
	if c.Permission != "" && !rbac.HasPermission(p, c.Permission) {
		return false
	}
	if c.AnyPermission != nil && !rbac.HasAnyPermission(p, c.AnyPermission) {
		return false
	}
	if c.AllPermissions != nil && !rbac.HasAllPermissions(p, c.AllPermissions) {
		return false
	}
	return true
}
