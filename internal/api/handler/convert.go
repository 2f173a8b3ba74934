package handler

import (
	"time"

	"github.com/daap14/console/internal/rbac"
)

const timeFormat = "2006-01-02T15:04:05Z"

type roleResponse struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	DisplayName string   `json:"displayName"`
	Description string   `json:"description"`
	Permissions []string `json:"permissions"`
	IsActive    bool     `json:"isActive"`
	CreatedAt   *string  `json:"createdAt"`
	UpdatedAt   *string  `json:"updatedAt"`
}

type profileResponse struct {
	ID          string        `json:"id"`
	ExternalID  string        `json:"externalId"`
	Email       string        `json:"email"`
	FirstName   string        `json:"firstName"`
	LastName    string        `json:"lastName"`
	DisplayName string        `json:"displayName"`
	AvatarURL   string        `json:"avatarUrl"`
	Phone       string        `json:"phone"`
	Role        *roleResponse `json:"role"`
	IsActive    bool          `json:"isActive"`
	CreatedAt   *string       `json:"createdAt"`
	UpdatedAt   *string       `json:"updatedAt"`
	LastLoginAt *string       `json:"lastLoginAt"`
}

func formatTime(t time.Time) *string {
	if t.IsZero() {
		return nil
	}
	s := t.UTC().Format(timeFormat)
	return &s
}

func toRoleResponse(r *rbac.Role) *roleResponse {
	if r == nil {
		return nil
	}
	perms := r.Permissions
	if perms == nil {
		perms = []string{}
	}
	return &roleResponse{
		ID:          r.ID,
		Name:        r.Name,
		DisplayName: r.DisplayName,
		Description: r.Description,
		Permissions: perms,
		IsActive:    r.IsActive,
		CreatedAt:   formatTime(r.CreatedAt),
		UpdatedAt:   formatTime(r.UpdatedAt),
	}
}

func toProfileResponse(p *rbac.Profile) *profileResponse {
	if p == nil {
		return nil
	}
	resp := &profileResponse{
		ID:          p.ID,
		ExternalID:  p.ExternalID,
		Email:       p.Email,
		FirstName:   p.FirstName,
		LastName:    p.LastName,
		DisplayName: p.DisplayName,
		AvatarURL:   p.AvatarURL,
		Phone:       p.Phone,
		Role:        toRoleResponse(p.Role),
		IsActive:    p.IsActive,
		CreatedAt:   formatTime(p.CreatedAt),
		UpdatedAt:   formatTime(p.UpdatedAt),
	}
	if p.LastLoginAt != nil {
		resp.LastLoginAt = formatTime(*p.LastLoginAt)
	}
	return resp
}
