package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
)

// DefaultFailureMessage is used when neither the transport nor the server
// said anything about a failure.
const DefaultFailureMessage = "connection failed."

// TransportError describes a failed fetch.
type TransportError struct {
	URL        string
	StatusCode int
	StatusText string
	Reason     string
	Err        error
}

// Message returns the human-readable reason for the failure.
func (e *TransportError) Message() string {
	switch {
	case e.Reason != "":
		return e.Reason
	case e.StatusText != "":
		return e.StatusText
	default:
		return DefaultFailureMessage
	}
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: HTTP %d: %s", e.URL, e.StatusCode, e.Message())
	}
	return fmt.Sprintf("fetch %s: %s", e.URL, e.Message())
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

func newRequestError(url string, err error) *TransportError {
	reason := err.Error()
	switch {
	case errors.Is(err, context.Canceled):
		reason = "cancelled"
	case errors.Is(err, context.DeadlineExceeded):
		reason = "timed out"
	}
	return &TransportError{URL: url, Reason: reason, Err: err}
}

// statusText extracts the reason phrase the server sent, falling back to
// the standard text for the code.
func statusText(resp *http.Response) string {
	text := strings.TrimSpace(strings.TrimPrefix(resp.Status, strconv.Itoa(resp.StatusCode)))
	if text == "" {
		text = http.StatusText(resp.StatusCode)
	}
	return text
}
