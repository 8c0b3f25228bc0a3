package dbx

import (
	"fmt"
	"net/http"
	"strconv"
	"time"
)

// APIError is a non-2xx response from the Databricks REST API. It exposes the
// status code, the platform error code and any Retry-After hint to the retry
// classifier.
type APIError struct {
	Status     int
	Code       string
	Message    string
	RetryAfter time.Duration
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("databricks: %s (HTTP %d): %s", e.Code, e.Status, e.Message)
	}
	return fmt.Sprintf("databricks: HTTP %d: %s", e.Status, e.Message)
}

func (e *APIError) HTTPStatusCode() int { return e.Status }

func (e *APIError) ErrorCode() string { return e.Code }

func (e *APIError) RetryAfterHint() (time.Duration, bool) {
	return e.RetryAfter, e.RetryAfter > 0
}

// parseRetryAfter reads a Retry-After header as delta-seconds or an HTTP date.
func parseRetryAfter(h http.Header) time.Duration {
	raw := h.Get("Retry-After")
	if raw == "" {
		return 0
	}
	if secs, err := strconv.Atoi(raw); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	if at, err := http.ParseTime(raw); err == nil {
		if d := time.Until(at); d > 0 {
			return d
		}
	}
	return 0
}
