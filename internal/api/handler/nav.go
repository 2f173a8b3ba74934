package handler

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/daap14/console/internal/api/middleware"
	"github.com/daap14/console/internal/api/response"
	"github.com/daap14/console/internal/guard"
	"github.com/daap14/console/internal/session"
)

type pageResponse struct {
	Name  string `json:"name"`
	Path  string `json:"path"`
	Title string `json:"title"`
}

type pageAccessResponse struct {
	Page    pageResponse `json:"page"`
	Allowed bool         `json:"allowed"`
}

func toPageResponse(p guard.Page) pageResponse {
	return pageResponse{Name: p.Name, Path: p.Path, Title: p.Title}
}

// NavHandler serves navigation links and page access checks.
type NavHandler struct {
	policy *guard.Policy
}

// NewNavHandler creates a new NavHandler.
func NewNavHandler(policy *guard.Policy) *NavHandler {
	return &NavHandler{policy: policy}
}

// Links handles GET /api/nav: the pages the caller may see, in policy order.
func (h *NavHandler) Links(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	_, s, ok := requireSession(w, r)
	if !ok {
		return
	}

	snap, ok := loadSnapshot(w, r, s, (*session.Provider).Current)
	if !ok {
		return
	}

	pages := h.policy.VisibleLinks(snap.Profile)
	items := make([]pageResponse, 0, len(pages))
	for _, p := range pages {
		items = append(items, toPageResponse(p))
	}
	response.SuccessList(w, http.StatusOK, items, len(items), requestID)
}

// Access handles GET /api/pages/{name}/access. Denied pages answer 403.
func (h *NavHandler) Access(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	_, s, ok := requireSession(w, r)
	if !ok {
		return
	}

	name := chi.URLParam(r, "name")
	page, err := h.policy.Page(name)
	if err != nil {
		if errors.Is(err, guard.ErrPageNotFound) {
			response.Err(w, http.StatusNotFound, "NOT_FOUND", fmt.Sprintf("Page %q not found", name), requestID)
			return
		}
		response.Err(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to resolve page", requestID)
		return
	}

	snap, ok := loadSnapshot(w, r, s, (*session.Provider).Current)
	if !ok {
		return
	}

	if !guard.CanAccess(snap.Profile, page.Criteria) {
		response.Err(w, http.StatusForbidden, "FORBIDDEN", fmt.Sprintf("Access to %q denied", page.Name), requestID)
		return
	}
	response.Success(w, http.StatusOK, pageAccessResponse{Page: toPageResponse(page), Allowed: true}, requestID)
}
