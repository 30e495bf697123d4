package mock

import (
	"fmt"
	"math/rand/v2"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/vitrine/storefront_sdk_go/internal/envelope"
)

// Chaos injects latency and random failures.
type Chaos struct {
	Latency  time.Duration
	FailRate float64
	FailCode int
}

// ParseFailure reads "rate=<float>,code=<status>". An empty string disables
// failures; the code defaults to 500.
func ParseFailure(raw string) (rate float64, code int, err error) {
	if strings.TrimSpace(raw) == "" {
		return 0, 0, nil
	}
	code = http.StatusInternalServerError
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		key, val, ok := strings.Cut(part, "=")
		if !ok {
			return 0, 0, fmt.Errorf("invalid fail segment %q", part)
		}
		switch strings.TrimSpace(key) {
		case "rate":
			rate, err = strconv.ParseFloat(strings.TrimSpace(val), 64)
			if err != nil {
				return 0, 0, err
			}
		case "code":
			code, err = strconv.Atoi(strings.TrimSpace(val))
			if err != nil {
				return 0, 0, err
			}
		default:
			return 0, 0, fmt.Errorf("unknown fail key %q", key)
		}
	}
	return rate, code, nil
}

// Middleware applies c to every request.
func (c Chaos) Middleware(next http.Handler) http.Handler {
	if c.Latency <= 0 && c.FailRate <= 0 {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if c.Latency > 0 {
			select {
			case <-time.After(c.Latency):
			case <-r.Context().Done():
				return
			}
		}
		if c.FailRate > 0 && rand.Float64() < c.FailRate {
			status := c.FailCode
			if status == 0 {
				status = http.StatusInternalServerError
			}
			writeError(w, status, envelope.ErrorBody{Message: "failure injected", Code: "injected"})
			return
		}
		next.ServeHTTP(w, r)
	})
}
