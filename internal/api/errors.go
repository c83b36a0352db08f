// Package api provides the typed client for the Drive REST API.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	nethttp "net/http"
	"strings"
)

// Error is a non-success response from the Drive API. Message carries
// the server-provided error body when one exists, falling back to the
// standard status text, so it is always suitable to show to a user.
type Error struct {
	StatusCode int
	Message    string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s (status %d)", e.Message, e.StatusCode)
}

// IsUnauthorized reports whether err represents a 401 or 403 response.
func IsUnauthorized(err error) bool {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == nethttp.StatusUnauthorized ||
			apiErr.StatusCode == nethttp.StatusForbidden
	}
	return false
}

// IsNotFound reports whether err represents a 404 response.
func IsNotFound(err error) bool {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == nethttp.StatusNotFound
	}
	return false
}

// newError converts a non-success response into an *Error. The server
// may answer with a JSON {"message": ...} body, a plain-text body, or
// nothing; the first non-empty of those wins, then the status text.
func newError(resp *nethttp.Response) *Error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	message := ""
	var payload struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.Message != "" {
		message = payload.Message
	} else if text := strings.TrimSpace(string(body)); text != "" && !strings.HasPrefix(text, "{") {
		message = text
	}
	if message == "" {
		message = nethttp.StatusText(resp.StatusCode)
	}

	return &Error{StatusCode: resp.StatusCode, Message: message}
}
