package youtube

import (
	"errors"
	"fmt"
	"net/http"
)

// NetworkError indicates the request never produced an HTTP response.
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error: %v - check your connection and try again", e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// UpstreamError indicates the API answered with a non-success status.
// Message carries the upstream error body's own message when one was
// present, verbatim.
type UpstreamError struct {
	StatusCode int
	Message    string
}

func (e *UpstreamError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("YouTube API error (status %d): %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("YouTube API error (status %d)", e.StatusCode)
}

// AuthRequiredError indicates an authenticated operation was attempted
// without a bearer token. No network call was made.
type AuthRequiredError struct{}

func (e *AuthRequiredError) Error() string {
	return "authentication required - run 'vidsift auth' to sign in"
}

// IsAuthRequired reports whether err is an AuthRequiredError.
func IsAuthRequired(err error) bool {
	var authErr *AuthRequiredError
	return errors.As(err, &authErr)
}

// IsAuthError reports whether err means the caller should re-authenticate:
// either no token was available at all, or the API rejected the one used.
func IsAuthError(err error) bool {
	if IsAuthRequired(err) {
		return true
	}
	var upErr *UpstreamError
	if errors.As(err, &upErr) {
		return upErr.StatusCode == http.StatusUnauthorized || upErr.StatusCode == http.StatusForbidden
	}
	return false
}
