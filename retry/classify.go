package retry

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"syscall"
	"time"
)

// Kind labels the outcome of classifying a failed remote call.
type Kind string

const (
	KindServerError      Kind = "server_error"
	KindRateLimited      Kind = "rate_limited"
	KindNetworkError     Kind = "network_error"
	KindResourceNotReady Kind = "resource_not_ready"
	KindAuthentication   Kind = "authentication_error"
	KindPermission       Kind = "permission_error"
	KindNotFound         Kind = "not_found"
	KindBadRequest       Kind = "bad_request"
	KindStaleCursor      Kind = "stale_cursor"
	KindTimeout          Kind = "timeout"
	KindCancelled        Kind = "cancelled"
	KindUnknown          Kind = "unknown"
)

// ClassifiedError is the single failure outcome surfaced by the retry
// coordinator. History is populated only on terminal errors after exhausted
// retries.
type ClassifiedError struct {
	Kind       Kind
	Retryable  bool
	HTTPStatus int
	RetryAfter time.Duration
	Message    string
	Cause      error
	History    History
}

func (e *ClassifiedError) Error() string {
	if e.HTTPStatus > 0 {
		return fmt.Sprintf("%s (HTTP %d): %s", e.Kind, e.HTTPStatus, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *ClassifiedError) Unwrap() error { return e.Cause }

// Guidance returns an actionable hint for terminal kinds, empty otherwise.
func (e *ClassifiedError) Guidance() string {
	switch e.Kind {
	case KindAuthentication:
		return "credentials were rejected; refresh DATABRICKS_TOKEN and retry"
	case KindPermission:
		return "the authenticated principal lacks access to this resource"
	case KindNotFound:
		return "the resource does not exist; re-list to obtain a valid identifier"
	case KindBadRequest:
		return "the request was malformed; correct the parameters before retrying"
	case KindStaleCursor:
		return "the resume cursor has expired; restart the assembly from the beginning"
	}
	return ""
}

// Carrier interfaces the underlying client layer can implement to expose
// transport detail to the classifier without a package dependency.
type httpStatusCarrier interface{ HTTPStatusCode() int }

type retryAfterCarrier interface{ RetryAfterHint() (time.Duration, bool) }

type errorCodeCarrier interface{ ErrorCode() string }

// Databricks error codes for resources in a transitional state. Calls that
// hit these succeed once the resource finishes provisioning.
var transientErrorCodes = map[string]bool{
	"TEMPORARILY_UNAVAILABLE": true,
	"RESOURCE_EXHAUSTED":      true,
	"DEADLINE_EXCEEDED":       true,
}

var transientMessageHints = []string{
	"is starting",
	"is pending",
	"not ready",
	"still provisioning",
}

// Classify inspects a failed remote call and decides retryable vs terminal.
// Unrecognized failures are never retried.
func Classify(err error) *ClassifiedError {
	if err == nil {
		return nil
	}
	var ce *ClassifiedError
	if errors.As(err, &ce) {
		return ce
	}

	if errors.Is(err, context.Canceled) {
		return &ClassifiedError{Kind: KindCancelled, Message: "operation cancelled", Cause: err}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &ClassifiedError{Kind: KindTimeout, Message: "deadline exceeded", Cause: err}
	}

	out := &ClassifiedError{Kind: KindUnknown, Message: err.Error(), Cause: err}

	var ra retryAfterCarrier
	if errors.As(err, &ra) {
		if hint, ok := ra.RetryAfterHint(); ok {
			out.RetryAfter = hint
		}
	}

	var codeErr errorCodeCarrier
	if errors.As(err, &codeErr) && transientErrorCodes[codeErr.ErrorCode()] {
		out.Kind = KindResourceNotReady
		out.Retryable = true
		if status, ok := statusOf(err); ok {
			out.HTTPStatus = status
		}
		return out
	}

	if status, ok := statusOf(err); ok {
		out.HTTPStatus = status
		switch {
		case status == 429:
			out.Kind = KindRateLimited
			out.Retryable = true
		case status == 500 || status == 502 || status == 503 || status == 504:
			out.Kind = KindServerError
			out.Retryable = true
		case status == 401:
			out.Kind = KindAuthentication
		case status == 403:
			out.Kind = KindPermission
		case status == 404:
			out.Kind = KindNotFound
		case status == 400:
			out.Kind = KindBadRequest
			if hasTransientHint(err.Error()) {
				out.Kind = KindResourceNotReady
				out.Retryable = true
			}
		}
		return out
	}

	if isNetworkError(err) {
		out.Kind = KindNetworkError
		out.Retryable = true
		return out
	}

	return out
}

func statusOf(err error) (int, bool) {
	var sc httpStatusCarrier
	if errors.As(err, &sc) {
		if status := sc.HTTPStatusCode(); status > 0 {
			return status, true
		}
	}
	return 0, false
}

func hasTransientHint(msg string) bool {
	lower := strings.ToLower(msg)
	for _, hint := range transientMessageHints {
		if strings.Contains(lower, hint) {
			return true
		}
	}
	return false
}

func isNetworkError(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	// NXDOMAIN (IsNotFound) is a stable answer, not a transient failure.
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return dnsErr.IsTimeout || dnsErr.IsTemporary
	}
	if errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ECONNRESET) || errors.Is(err, syscall.EPIPE) {
		return true
	}
	var opErr *net.OpError
	return errors.As(err, &opErr)
}
