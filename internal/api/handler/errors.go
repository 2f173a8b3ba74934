package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/daap14/console/internal/api/response"
	"github.com/daap14/console/internal/backend"
	"github.com/daap14/console/internal/directory"
)

// writeMutationError maps a failed write against the API server onto a response.
// Client errors keep their status and the server's message; anything else is a 502.
func writeMutationError(w http.ResponseWriter, err error, action, requestID string) {
	if errors.Is(err, directory.ErrNoActor) {
		response.Err(w, http.StatusUnauthorized, "UNAUTHORIZED", "Bearer token is required", requestID)
		return
	}

	var se *backend.StatusError
	if errors.As(err, &se) && backend.IsClientError(err) {
		response.Err(w, se.Status, codeForStatus(se.Status), se.Message(), requestID)
		return
	}

	slog.Error("api server write failed", "action", action, "error", err, "requestId", requestID)
	response.Err(w, http.StatusBadGateway, "UPSTREAM_ERROR", "Failed to "+action, requestID)
}

func codeForStatus(status int) string {
	switch status {
	case http.StatusUnauthorized:
		return "UNAUTHORIZED"
	case http.StatusForbidden:
		return "FORBIDDEN"
	case http.StatusNotFound:
		return "NOT_FOUND"
	case http.StatusConflict:
		return "CONFLICT"
	case http.StatusUnprocessableEntity:
		return "VALIDATION_ERROR"
	}
	return "BAD_REQUEST"
}
