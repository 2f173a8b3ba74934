package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/daap14/console/internal/api/middleware"
	"github.com/daap14/console/internal/api/response"
	"github.com/daap14/console/internal/api/validation"
	"github.com/daap14/console/internal/backend"
)

type roleRequest struct {
	Name        string   `json:"name"`
	DisplayName string   `json:"displayName"`
	Description string   `json:"description"`
	Permissions []string `json:"permissions"`
	IsActive    *bool    `json:"isActive"`
}

type roleMutationResponse struct {
	Role        *roleResponse `json:"role"`
	Invalidated []string      `json:"invalidated"`
}

// RoleHandler handles the role list and role mutations.
type RoleHandler struct{}

// NewRoleHandler creates a new RoleHandler.
func NewRoleHandler() *RoleHandler {
	return &RoleHandler{}
}

// List handles GET /api/roles. API server failures yield an empty list.
func (h *RoleHandler) List(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	id, s, ok := requireSession(w, r)
	if !ok {
		return
	}

	roles := s.Directory.Roles(r.Context(), id)
	items := make([]*roleResponse, 0, len(roles))
	for i := range roles {
		items = append(items, toRoleResponse(&roles[i]))
	}
	response.SuccessList(w, http.StatusOK, items, len(items), requestID)
}

// Create handles POST /api/roles.
func (h *RoleHandler) Create(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	id, s, ok := requireSession(w, r)
	if !ok {
		return
	}

	in, ok := decodeRoleRequest(w, r, requestID)
	if !ok {
		return
	}

	role, keys, err := s.Directory.CreateRole(r.Context(), id, in)
	if err != nil {
		writeMutationError(w, err, "create role", requestID)
		return
	}

	response.Success(w, http.StatusCreated, roleMutationResponse{Role: toRoleResponse(role), Invalidated: keys}, requestID)
}

// Update handles PUT /api/roles/{id}.
func (h *RoleHandler) Update(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	id, s, ok := requireSession(w, r)
	if !ok {
		return
	}

	in, ok := decodeRoleRequest(w, r, requestID)
	if !ok {
		return
	}

	role, keys, err := s.Directory.UpdateRole(r.Context(), id, chi.URLParam(r, "id"), in)
	if err != nil {
		writeMutationError(w, err, "update role", requestID)
		return
	}

	response.Success(w, http.StatusOK, roleMutationResponse{Role: toRoleResponse(role), Invalidated: keys}, requestID)
}

func decodeRoleRequest(w http.ResponseWriter, r *http.Request, requestID string) (backend.RoleInput, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req roleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Err(w, http.StatusBadRequest, "INVALID_JSON", "Request body must be valid JSON", requestID)
		return backend.RoleInput{}, false
	}

	fieldErrors := validation.ValidateRoleRequest(validation.RoleRequest{
		Name:        req.Name,
		DisplayName: req.DisplayName,
		Description: req.Description,
		Permissions: req.Permissions,
	})
	if len(fieldErrors) > 0 {
		response.ErrWithDetails(w, http.StatusBadRequest, "VALIDATION_ERROR", "Input validation failed", fieldErrors, requestID)
		return backend.RoleInput{}, false
	}

	perms := req.Permissions
	if perms == nil {
		perms = []string{}
	}
	return backend.RoleInput{
		Name:        req.Name,
		DisplayName: req.DisplayName,
		Description: req.Description,
		Permissions: perms,
		IsActive:    req.IsActive,
	}, true
}
