package handler

import (
	"context"
	"net/http"

	"github.com/daap14/console/internal/api/middleware"
	"github.com/daap14/console/internal/api/response"
	"github.com/daap14/console/internal/backend"
)

// ConnectivityChecker reports whether the API server is reachable.
type ConnectivityChecker interface {
	CheckConnectivity(ctx context.Context) backend.ConnectivityStatus
}

// DBPinger pings the audit database.
type DBPinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler handles the GET /health endpoint.
type HealthHandler struct {
	checker ConnectivityChecker
	db      DBPinger
	version string
}

// NewHealthHandler creates a new HealthHandler. db may be nil when the audit
// log is kept in memory.
func NewHealthHandler(checker ConnectivityChecker, db DBPinger, version string) *HealthHandler {
	return &HealthHandler{
		checker: checker,
		db:      db,
		version: version,
	}
}

type apiServerStatus struct {
	Connected bool `json:"connected"`
	Status    *int `json:"status"`
}

type databaseStatus struct {
	Connected bool `json:"connected"`
}

type healthData struct {
	Status    string          `json:"status"`
	Version   string          `json:"version"`
	APIServer apiServerStatus `json:"apiServer"`
	Database  *databaseStatus `json:"database,omitempty"`
}

// ServeHTTP handles the health check request.
func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	connectivity := h.checker.CheckConnectivity(r.Context())

	status := "healthy"
	var code *int

	if connectivity.Connected {
		code = &connectivity.Status
	} else {
		status = "degraded"
	}

	data := healthData{
		Status:  status,
		Version: h.version,
		APIServer: apiServerStatus{
			Connected: connectivity.Connected,
			Status:    code,
		},
	}

	if h.db != nil {
		connected := h.db.Ping(r.Context()) == nil
		if !connected {
			status = "degraded"
		}
		data.Status = status
		data.Database = &databaseStatus{Connected: connected}
	}

	response.Success(w, http.StatusOK, data, requestID)
}
