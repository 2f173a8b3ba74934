package validation

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	roleNameRegex   = regexp.MustCompile(`^[a-z][a-z0-9_-]{1,62}$`)
	permissionRegex = regexp.MustCompile(`^([a-z][a-z0-9_-]*(\.[a-z][a-z0-9_-]*)+|all)$`)
)

// FieldError describes a validation error for a specific field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// RoleRequest mirrors the fields needed for role validation.
type RoleRequest struct {
	Name        string
	DisplayName string
	Description string
	Permissions []string
}

// ValidateRoleRequest validates the fields of a create or update role request.
func ValidateRoleRequest(req RoleRequest) []FieldError {
	var errs []FieldError

	if req.Name == "" {
		errs = append(errs, FieldError{Field: "name", Message: "name is required"})
	} else if !roleNameRegex.MatchString(req.Name) {
		errs = append(errs, FieldError{
			Field:   "name",
			Message: "name must be 2-63 lowercase letters, digits, '-' or '_', starting with a letter",
		})
	}

	if len(strings.TrimSpace(req.DisplayName)) > 255 {
		errs = append(errs, FieldError{Field: "displayName", Message: "displayName must be at most 255 characters"})
	}
	if len(req.Description) > 1024 {
		errs = append(errs, FieldError{Field: "description", Message: "description must be at most 1024 characters"})
	}

	seen := make(map[string]bool, len(req.Permissions))
	for i, p := range req.Permissions {
		field := fmt.Sprintf("permissions[%d]", i)
		switch {
		case !permissionRegex.MatchString(p):
			errs = append(errs, FieldError{Field: field, Message: fmt.Sprintf("%q is not a valid permission", p)})
		case seen[p]:
			errs = append(errs, FieldError{Field: field, Message: fmt.Sprintf("%q is listed twice", p)})
		}
		seen[p] = true
	}

	return errs
}

// ValidateUserRoleRequest validates a role assignment.
func ValidateUserRoleRequest(roleName string) []FieldError {
	if roleName == "" {
		return []FieldError{{Field: "roleName", Message: "roleName is required"}}
	}
	if !roleNameRegex.MatchString(roleName) {
		return []FieldError{{Field: "roleName", Message: "roleName is not a valid role name"}}
	}
	return nil
}
