package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/daap14/console/internal/api/middleware"
	"github.com/daap14/console/internal/api/response"
	"github.com/daap14/console/internal/audit"
)

type auditEntryResponse struct {
	ID         string `json:"id"`
	ActorID    string `json:"actorId"`
	ActorEmail string `json:"actorEmail"`
	Action     string `json:"action"`
	TargetType string `json:"targetType"`
	TargetID   string `json:"targetId"`
	Detail     string `json:"detail"`
	CreatedAt  string `json:"createdAt"`
}

func toAuditEntryResponse(e *audit.Entry) auditEntryResponse {
	return auditEntryResponse{
		ID:         e.ID.String(),
		ActorID:    e.ActorID,
		ActorEmail: e.ActorEmail,
		Action:     e.Action,
		TargetType: e.TargetType,
		TargetID:   e.TargetID,
		Detail:     e.Detail,
		CreatedAt:  e.CreatedAt.UTC().Format(timeFormat),
	}
}

// AuditHandler serves the audit log of administrative changes.
type AuditHandler struct{}

// NewAuditHandler creates a new AuditHandler.
func NewAuditHandler() *AuditHandler {
	return &AuditHandler{}
}

// List handles GET /api/audit?limit=N, newest first.
func (h *AuditHandler) List(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	_, s, ok := requireSession(w, r)
	if !ok {
		return
	}

	limit := audit.DefaultListLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 1000 {
			response.Err(w, http.StatusBadRequest, "INVALID_LIMIT", "limit must be an integer between 1 and 1000", requestID)
			return
		}
		limit = n
	}

	entries, err := s.Directory.AuditLog(r.Context(), limit)
	if err != nil {
		slog.Error("failed to list audit entries", "error", err)
		response.Err(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to list audit entries", requestID)
		return
	}

	items := make([]auditEntryResponse, 0, len(entries))
	for i := range entries {
		items = append(items, toAuditEntryResponse(&entries[i]))
	}
	response.SuccessList(w, http.StatusOK, items, len(items), requestID)
}
