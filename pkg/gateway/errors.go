package gateway

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/vitrine/storefront_sdk_go/internal/envelope"
)

// DefaultErrorCode is used when the API does not name one.
const DefaultErrorCode = "app_error"

// ErrTransport matches every failure where no HTTP response was obtained.
var ErrTransport = errors.New("gateway: transport failure")

// Issue is a field-level problem reported by the API.
type Issue = envelope.Issue

// APIError is returned for any non-2xx response.
type APIError struct {
	Message     string
	Status      int
	Code        string
	Action      string
	Issues      []Issue
	Operational bool
	RequestID   string
	// RetryAfter is the server's Retry-After hint, zero when absent.
	RetryAfter time.Duration
}

func (e *APIError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("gateway: status=%d code=%s: %s", e.Status, e.Code, e.Message)
}

// FieldIssues returns the issues that name a field, keyed by field. A later
// issue for the same field wins.
func (e *APIError) FieldIssues() map[string]string {
	if e == nil || len(e.Issues) == 0 {
		return nil
	}
	out := make(map[string]string, len(e.Issues))
	for _, is := range e.Issues {
		if is.Field == "" {
			continue
		}
		out[is.Field] = is.Message
	}
	return out
}

// ServerFault reports a 5xx status; these always raise a notification.
func (e *APIError) ServerFault() bool {
	return e != nil && e.Status >= 500 && e.Status <= 599
}

// Retryable reports whether repeating the request could succeed.
func (e *APIError) Retryable() bool {
	if e == nil {
		return false
	}
	return e.ServerFault() ||
		e.Status == http.StatusTooManyRequests ||
		e.Status == http.StatusRequestTimeout
}

// TransportError wraps a failure that happened before a response arrived
// (DNS, refused connection, timeout, cancellation).
type TransportError struct {
	Method    string
	Path      string
	RequestID string
	Err       error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("gateway: %s %s: %v", e.Method, e.Path, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

func (e *TransportError) Is(target error) bool {
	return target == ErrTransport
}

// AsAPIError extracts an *APIError from err.
func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

// IsStatus reports whether err is an APIError with the given status.
func IsStatus(err error, status int) bool {
	apiErr, ok := AsAPIError(err)
	return ok && apiErr.Status == status
}
