package middleware

import (
	"context"
	"net/http"
	"sync"

	"github.com/google/uuid"
)

type contextKey string

const requestKey contextKey = "request"

// maxRequestIDLen bounds client supplied request ids; longer or malformed
// ids are replaced.
const maxRequestIDLen = 64

// requestState is shared by every middleware layer of one request. Inner
// layers fill it in so outer ones can log who the request belonged to.
type requestState struct {
	id string

	mu       sync.Mutex
	identity string
}

// RequestID is middleware that injects a request ID into the context and
// echoes it in the X-Request-ID response header. A well-formed incoming
// X-Request-ID is kept so calls can be traced across the dashboard.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if !validRequestID(id) {
			id = uuid.New().String()
		}

		ctx := context.WithValue(r.Context(), requestKey, &requestState{id: id})
		w.Header().Set("X-Request-ID", id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func validRequestID(id string) bool {
	if id == "" || len(id) > maxRequestIDLen {
		return false
	}
	for _, c := range id {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		case c == '-', c == '_', c == '.', c == ':':
		default:
			return false
		}
	}
	return true
}

// GetRequestID retrieves the request ID from the context.
func GetRequestID(ctx context.Context) string {
	if st := stateFrom(ctx); st != nil {
		return st.id
	}
	return ""
}

// recordIdentity notes the authenticated identity on the request state.
func recordIdentity(ctx context.Context, identityID string) {
	if st := stateFrom(ctx); st != nil {
		st.mu.Lock()
		st.identity = identityID
		st.mu.Unlock()
	}
}

// requestIdentity returns the identity recorded for the request, if any.
func requestIdentity(ctx context.Context) string {
	st := stateFrom(ctx)
	if st == nil {
		return ""
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.identity
}

func stateFrom(ctx context.Context) *requestState {
	st, _ := ctx.Value(requestKey).(*requestState)
	return st
}
