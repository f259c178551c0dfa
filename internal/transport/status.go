package transport

import (
	"fmt"
	"io"
	"net/http"

	perrors "github.com/muhasabah-app/profilesync/internal/errors"
)

// maxBodyBytes caps how much of a response body is retained for error
// reporting and decoding.
const maxBodyBytes = 1 << 20

// StatusError is a non-2xx response from the profile service.
type StatusError struct {
	StatusCode int
	Method     string
	Endpoint   string
	Body       []byte
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s returned %d", e.Method, e.Endpoint, e.StatusCode)
}

// Unwrap maps well-known statuses onto the engine's sentinel errors so
// callers can use errors.Is without inspecting status codes.
func (e *StatusError) Unwrap() error {
	switch e.StatusCode {
	case http.StatusNotFound:
		return perrors.ErrProfileNotFound
	case http.StatusConflict:
		return perrors.ErrConflict
	case http.StatusRequestTimeout:
		return perrors.ErrTimeout
	case http.StatusUnauthorized, http.StatusForbidden:
		return perrors.ErrNotAuthenticated
	default:
		return nil
	}
}

func readBody(resp *http.Response) ([]byte, error) {
	return io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
}
