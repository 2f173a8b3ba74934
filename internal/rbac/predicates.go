package rbac

// HasRole reports whether the profile's role is exactly name.
func HasRole(p *Profile, name string) bool {
	if p == nil || p.Role == nil {
		return false
	}
	return p.Role.Name == name
}

// HasAnyRole reports whether the profile holds one of names. An empty list grants nothing.
func HasAnyRole(p *Profile, names []string) bool {
	for _, name := range names {
		if HasRole(p, name) {
			return true
		}
	}
	return false
}

// HasPermission reports whether the profile's role grants permission,
// either directly or through PermissionAll.
func HasPermission(p *Profile, permission string) bool {
	if p == nil || p.Role == nil {
		return false
	}
	for _, granted := range p.Role.Permissions {
		if granted == permission || granted == PermissionAll {
			return true
		}
	}
	return false
}

// HasAnyPermission reports whether at least one of permissions is granted.
// An empty list grants nothing.
func HasAnyPermission(p *Profile, permissions []string) bool {
	for _, perm := range permissions {
		if HasPermission(p, perm) {
			return true
		}
	}
	return false
}

// HasAllPermissions reports whether every one of permissions is granted.
// An empty list grants nothing.
func HasAllPermissions(p *Profile, permissions []string) bool {
	if len(permissions) == 0 {
		return false
	}
	for _, perm := range permissions {
		if !HasPermission(p, perm) {
			return false
		}
	}
	return true
}
