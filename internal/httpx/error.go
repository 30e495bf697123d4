package httpx

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/vitrine/storefront_sdk_go/internal/envelope"
)

// HTTPError is a non-2xx answer from the API. Envelope holds whatever the
// failure body carried; it is zero when the body was not a JSON object.
type HTTPError struct {
	StatusCode int
	Status     string
	Body       []byte
	Header     http.Header
	Envelope   envelope.ErrorBody
}

func newHTTPError(resp *http.Response, body []byte) *HTTPError {
	return &HTTPError{
		StatusCode: resp.StatusCode,
		Status:     http.StatusText(resp.StatusCode),
		Body:       body,
		Header:     resp.Header.Clone(),
		Envelope:   envelope.ParseError(body),
	}
}

func (e *HTTPError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Envelope.Message != "" {
		return fmt.Sprintf("httpx: %d %s: %s", e.StatusCode, e.Status, e.Envelope.Message)
	}
	return fmt.Sprintf("httpx: %d %s", e.StatusCode, e.Status)
}

// RetryAfter reads the Retry-After header in its delta-seconds form.
func (e *HTTPError) RetryAfter() (time.Duration, bool) {
	if e == nil || e.Header == nil {
		return 0, false
	}
	secs, err := strconv.Atoi(e.Header.Get("Retry-After"))
	if err != nil || secs < 0 {
		return 0, false
	}
	return time.Duration(secs) * time.Second, true
}
