package api

import (
	"errors"
	"fmt"
	"net/http"
)

var ErrMissingToken = errors.New("missing auth token")

// HTTPError is returned for any non-2xx response.
type HTTPError struct {
	StatusCode int
	Message    string
}

func (e *HTTPError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("http %d", e.StatusCode)
	}
	return fmt.Sprintf("http %d: %s", e.StatusCode, e.Message)
}

// IsUnauthorized reports whether err is a 401 from the backend.
func IsUnauthorized(err error) bool {
	var httpErr *HTTPError
	return errors.As(err, &httpErr) && httpErr.StatusCode == http.StatusUnauthorized
}

// serverException mirrors the backend error body.
type serverException struct {
	Message    any    `json:"message"`
	Error      string `json:"error"`
	StatusCode int    `json:"statusCode"`
}

func (e serverException) text() string {
	switch m := e.Message.(type) {
	case string:
		return m
	case []any:
		if len(m) > 0 {
			if s, ok := m[0].(string); ok {
				return s
			}
		}
	}
	return e.Error
}
