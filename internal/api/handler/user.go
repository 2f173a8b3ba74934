package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/daap14/console/internal/api/middleware"
	"github.com/daap14/console/internal/api/response"
	"github.com/daap14/console/internal/api/validation"
)

type updateUserRoleRequest struct {
	RoleName string `json:"roleName"`
}

type userMutationResponse struct {
	User        *profileResponse `json:"user"`
	Invalidated []string         `json:"invalidated"`
}

// UserHandler handles the user list and role assignment.
type UserHandler struct{}

// NewUserHandler creates a new UserHandler.
func NewUserHandler() *UserHandler {
	return &UserHandler{}
}

// List handles GET /api/users. API server failures yield an empty list.
func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	id, s, ok := requireSession(w, r)
	if !ok {
		return
	}

	users := s.Directory.Users(r.Context(), id)
	items := make([]*profileResponse, 0, len(users))
	for i := range users {
		items = append(items, toProfileResponse(&users[i]))
	}
	response.SuccessList(w, http.StatusOK, items, len(items), requestID)
}

// UpdateRole handles PUT /api/users/{id}/role.
func (h *UserHandler) UpdateRole(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	id, s, ok := requireSession(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req updateUserRoleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Err(w, http.StatusBadRequest, "INVALID_JSON", "Request body must be valid JSON", requestID)
		return
	}

	if fieldErrors := validation.ValidateUserRoleRequest(req.RoleName); len(fieldErrors) > 0 {
		response.ErrWithDetails(w, http.StatusBadRequest, "VALIDATION_ERROR", "Input validation failed", fieldErrors, requestID)
		return
	}

	user, keys, err := s.Directory.UpdateUserRole(r.Context(), id, chi.URLParam(r, "id"), req.RoleName)
	if err != nil {
		writeMutationError(w, err, "update user role", requestID)
		return
	}

	response.Success(w, http.StatusOK, userMutationResponse{User: toProfileResponse(user), Invalidated: keys}, requestID)
}
