package teamcity

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrNotFound is the soft "nothing matched" outcome. Lookups return it for
// empty results, and a 404 HTTPError matches it via errors.Is.
var ErrNotFound = errors.New("not found")

// HTTPError is returned when the server answers with a non-2xx status.
type HTTPError struct {
	Method     string
	URL        string
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	msg := fmt.Sprintf("%s %s: API request failed with status %d", e.Method, e.URL, e.StatusCode)
	if e.Body != "" {
		msg += ": " + e.Body
	}
	return msg
}

// Is reports a 404 as ErrNotFound.
func (e *HTTPError) Is(target error) bool {
	return target == ErrNotFound && e.StatusCode == http.StatusNotFound
}

// TransportError is returned when a request never produced a response
// (DNS, connection refused, timeout, cancelled context).
type TransportError struct {
	Method string
	URL    string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s %s: failed to execute request: %v", e.Method, e.URL, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// IsTransport reports whether err is a network-level failure.
func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

// StatusCode returns the HTTP status carried by err, or 0 if there is none.
func StatusCode(err error) int {
	var he *HTTPError
	if errors.As(err, &he) {
		return he.StatusCode
	}
	return 0
}

// UserError wraps errors with user-friendly messages
type UserError struct {
	Message string
	Hint    string
	Err     error
}

func (e *UserError) Error() string {
	msg := e.Message
	if e.Hint != "" {
		msg += "\n\nHint: " + e.Hint
	}
	if e.Err != nil {
		msg += fmt.Sprintf("\n\nDetails: %v", e.Err)
	}
	return msg
}

func (e *UserError) Unwrap() error {
	return e.Err
}

// WrapError converts API errors to user-friendly messages
func WrapError(err error) error {
	if err == nil {
		return nil
	}

	switch code := StatusCode(err); code {
	case http.StatusUnauthorized, http.StatusForbidden:
		return &UserError{
			Message: "Authentication failed",
			Hint:    "Check that your TeamCity access token is valid and has the correct permissions.\n  - Set TEAMCITY_ACCESS_TOKEN or pass --teamcity-access-token <file>",
			Err:     err,
		}
	case http.StatusNotFound:
		return &UserError{
			Message: "Resource not found",
			Hint:    "Check the build configuration id, branch name and tag.",
			Err:     err,
		}
	}

	if IsTransport(err) {
		return &UserError{
			Message: "TeamCity server unreachable",
			Hint:    "Check TEAMCITY_URL and your network connection.",
			Err:     err,
		}
	}

	return err
}
