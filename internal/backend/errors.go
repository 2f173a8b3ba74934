package backend

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrUnauthorized is matched by a StatusError carrying 401.
var ErrUnauthorized = errors.New("unauthorized")

// ErrForbidden is matched by a StatusError carrying 403.
var ErrForbidden = errors.New("forbidden")

// ErrNotFound is matched by a StatusError carrying 404.
var ErrNotFound = errors.New("not found")

// ErrNoToken is returned when an authenticated call is attempted without a token.
var ErrNoToken = errors.New("no bearer token available")

// StatusError is returned for any non-2xx response from the API server.
type StatusError struct {
	Method string
	Path   string
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.Path, e.Status, e.Message())
}

// Is maps well-known statuses onto the package sentinels.
func (e *StatusError) Is(target error) bool {
	switch target {
	case ErrUnauthorized:
		return e.Status == http.StatusUnauthorized
	case ErrForbidden:
		return e.Status == http.StatusForbidden
	case ErrNotFound:
		return e.Status == http.StatusNotFound
	}
	return false
}

// Message extracts a human readable message from the response body. It
// understands {"detail": "..."}, {"message": "..."} and {"error": {"message": "..."}}.
func (e *StatusError) Message() string {
	var body struct {
		Detail  any    `json:"detail"`
		Message string `json:"message"`
		Error   *struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal([]byte(e.Body), &body); err == nil {
		if s, ok := body.Detail.(string); ok && s != "" {
			return s
		}
		if body.Message != "" {
			return body.Message
		}
		if body.Error != nil && body.Error.Message != "" {
			return body.Error.Message
		}
	}
	if msg := strings.TrimSpace(e.Body); msg != "" {
		return msg
	}
	return http.StatusText(e.Status)
}

// IsClientError reports whether err is a 4xx StatusError, i.e. a rejected
// request rather than a server or transport failure.
func IsClientError(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Status >= 400 && se.Status < 500
}
