package retry

import (
	"context"
	"errors"
	"fmt"
	"net"
	"testing"
	"time"
)

type fakeAPIError struct {
	status     int
	code       string
	retryAfter time.Duration
	msg        string
}

func (e *fakeAPIError) Error() string {
	if e.msg != "" {
		return e.msg
	}
	return fmt.Sprintf("http %d", e.status)
}

func (e *fakeAPIError) HTTPStatusCode() int { return e.status }

func (e *fakeAPIError) ErrorCode() string { return e.code }

func (e *fakeAPIError) RetryAfterHint() (time.Duration, bool) {
	return e.retryAfter, e.retryAfter > 0
}

func TestClassifyHTTPStatus(t *testing.T) {
	tests := []struct {
		status    int
		wantKind  Kind
		retryable bool
	}{
		{500, KindServerError, true},
		{502, KindServerError, true},
		{503, KindServerError, true},
		{504, KindServerError, true},
		{429, KindRateLimited, true},
		{400, KindBadRequest, false},
		{401, KindAuthentication, false},
		{403, KindPermission, false},
		{404, KindNotFound, false},
		{418, KindUnknown, false},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("status_%d", tt.status), func(t *testing.T) {
			ce := Classify(&fakeAPIError{status: tt.status})
			if ce.Kind != tt.wantKind {
				t.Errorf("kind = %s, want %s", ce.Kind, tt.wantKind)
			}
			if ce.Retryable != tt.retryable {
				t.Errorf("retryable = %v, want %v", ce.Retryable, tt.retryable)
			}
			if ce.HTTPStatus != tt.status {
				t.Errorf("httpStatus = %d, want %d", ce.HTTPStatus, tt.status)
			}
		})
	}
}

func TestClassifyTransitionalState(t *testing.T) {
	ce := Classify(&fakeAPIError{status: 400, code: "TEMPORARILY_UNAVAILABLE", msg: "warehouse is starting"})
	if ce.Kind != KindResourceNotReady || !ce.Retryable {
		t.Fatalf("got %s retryable=%v, want resource_not_ready retryable", ce.Kind, ce.Retryable)
	}

	// Message-only hint on a 400.
	ce = Classify(&fakeAPIError{status: 400, msg: "cluster abc is pending"})
	if ce.Kind != KindResourceNotReady || !ce.Retryable {
		t.Fatalf("got %s retryable=%v, want resource_not_ready retryable", ce.Kind, ce.Retryable)
	}
}

func TestClassifyContextErrors(t *testing.T) {
	if kind := Classify(context.Canceled).Kind; kind != KindCancelled {
		t.Errorf("canceled kind = %s", kind)
	}
	if kind := Classify(context.DeadlineExceeded).Kind; kind != KindTimeout {
		t.Errorf("deadline kind = %s", kind)
	}
}

func TestClassifyDNSFailures(t *testing.T) {
	ce := Classify(&net.DNSError{Err: "i/o timeout", Name: "host", IsTimeout: true})
	if ce.Kind != KindNetworkError || !ce.Retryable {
		t.Errorf("dns timeout: got %s retryable=%v, want retryable network_error", ce.Kind, ce.Retryable)
	}

	// NXDOMAIN is a stable answer; retrying cannot fix it.
	ce = Classify(&net.DNSError{Err: "no such host", Name: "nohost", IsNotFound: true})
	if ce.Retryable {
		t.Errorf("nxdomain classified retryable as %s", ce.Kind)
	}
}

func TestClassifyUnknownNotRetried(t *testing.T) {
	ce := Classify(errors.New("something odd"))
	if ce.Kind != KindUnknown || ce.Retryable {
		t.Fatalf("got %s retryable=%v, want unknown not retryable", ce.Kind, ce.Retryable)
	}
}

func fastPolicy(attempts int) Policy {
	return Policy{
		MaxAttempts:    attempts,
		InitialDelay:   time.Millisecond,
		MaxDelay:       5 * time.Millisecond,
		Multiplier:     2,
		JitterFraction: 0,
	}
}

func TestDoExactAttemptCount(t *testing.T) {
	calls := 0
	history, err := Do(context.Background(), fastPolicy(4), func(context.Context) error {
		calls++
		return &fakeAPIError{status: 503}
	})
	if calls != 4 {
		t.Errorf("calls = %d, want 4", calls)
	}
	if len(history) != 4 {
		t.Errorf("history length = %d, want 4", len(history))
	}
	var ce *ClassifiedError
	if !errors.As(err, &ce) {
		t.Fatalf("terminal error is %T, want *ClassifiedError", err)
	}
	if len(ce.History) != 4 {
		t.Errorf("attached history length = %d, want 4", len(ce.History))
	}
}

func TestDoNoRetriesWithSingleAttempt(t *testing.T) {
	calls := 0
	_, err := Do(context.Background(), fastPolicy(1), func(context.Context) error {
		calls++
		return &fakeAPIError{status: 500}
	})
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
	if err == nil {
		t.Fatal("expected terminal error")
	}
}

func TestDoTerminalFailsFast(t *testing.T) {
	calls := 0
	_, err := Do(context.Background(), fastPolicy(4), func(context.Context) error {
		calls++
		return &fakeAPIError{status: 404}
	})
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
	var ce *ClassifiedError
	if !errors.As(err, &ce) || ce.Kind != KindNotFound {
		t.Fatalf("err = %v, want not_found", err)
	}
}

func TestDoSuccessAfterTransientFailures(t *testing.T) {
	calls := 0
	history, err := Do(context.Background(), fastPolicy(4), func(context.Context) error {
		calls++
		if calls < 3 {
			return &fakeAPIError{status: 429}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(history) != 2 {
		t.Errorf("history length = %d, want 2", len(history))
	}
}

func TestBackoffFormula(t *testing.T) {
	p := Policy{
		MaxAttempts:    5,
		InitialDelay:   time.Second,
		MaxDelay:       30 * time.Second,
		Multiplier:     2,
		JitterFraction: 0,
	}
	wants := []time.Duration{
		1 * time.Second,
		2 * time.Second,
		4 * time.Second,
		8 * time.Second,
		16 * time.Second,
		30 * time.Second, // capped
		30 * time.Second,
	}
	for i, want := range wants {
		if got := p.baseBackoff(i + 1); got != want {
			t.Errorf("baseBackoff(%d) = %s, want %s", i+1, got, want)
		}
	}
}

func TestJitterBounds(t *testing.T) {
	p := Policy{
		MaxAttempts:    3,
		InitialDelay:   time.Second,
		MaxDelay:       30 * time.Second,
		Multiplier:     2,
		JitterFraction: 0.2,
	}
	for _, rnd := range []float64{0, 0.25, 0.5, 0.75, 0.999} {
		got := p.backoff(2, func() float64 { return rnd })
		lo := time.Duration(float64(2*time.Second) * 0.8)
		hi := time.Duration(float64(2*time.Second) * 1.2)
		if got < lo || got > hi {
			t.Errorf("backoff with rnd=%v = %s, want within [%s, %s]", rnd, got, lo, hi)
		}
	}
}

func TestRetryAfterHintWins(t *testing.T) {
	hint := 50 * time.Millisecond
	start := time.Now()
	calls := 0
	_, err := Do(context.Background(), fastPolicy(2), func(context.Context) error {
		calls++
		if calls == 1 {
			return &fakeAPIError{status: 429, retryAfter: hint}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if elapsed := time.Since(start); elapsed < hint {
		t.Errorf("elapsed %s, want >= %s", elapsed, hint)
	}
}

func TestCancelDuringBackoff(t *testing.T) {
	policy := Policy{
		MaxAttempts:    3,
		InitialDelay:   10 * time.Second,
		MaxDelay:       10 * time.Second,
		Multiplier:     2,
		JitterFraction: 0,
	}
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	_, err := Do(ctx, policy, func(context.Context) error {
		return &fakeAPIError{status: 503}
	})
	if time.Since(start) > time.Second {
		t.Error("cancellation did not abort the backoff sleep promptly")
	}
	var ce *ClassifiedError
	if !errors.As(err, &ce) || ce.Kind != KindCancelled {
		t.Fatalf("err = %v, want cancelled", err)
	}
}

func TestDoRetriesRequestTimeout(t *testing.T) {
	// A transport-level timeout wraps context.DeadlineExceeded the way
	// net/http's per-request Client.Timeout does; with the invocation's
	// context still alive it must retry as a network failure.
	calls := 0
	history, err := Do(context.Background(), fastPolicy(3), func(context.Context) error {
		calls++
		if calls < 3 {
			return fmt.Errorf("Get \"https://host/api\": %w (Client.Timeout exceeded while awaiting headers)", context.DeadlineExceeded)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
	if len(history) != 2 {
		t.Fatalf("history length = %d, want 2", len(history))
	}
	for _, a := range history {
		if a.Err.Kind != KindNetworkError || !a.Err.Retryable {
			t.Errorf("attempt %d kind = %s retryable=%v, want retryable network_error", a.Number, a.Err.Kind, a.Err.Retryable)
		}
	}
}

func TestDoCancelledContextBeforeAttempt(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	history, err := Do(ctx, fastPolicy(3), func(context.Context) error {
		t.Fatal("operation must not run after cancellation")
		return nil
	})
	if len(history) != 0 {
		t.Errorf("history length = %d, want 0", len(history))
	}
	var ce *ClassifiedError
	if !errors.As(err, &ce) || ce.Kind != KindCancelled {
		t.Fatalf("err = %v, want cancelled", err)
	}
	if ce.History != nil {
		t.Errorf("cancellation carried history of length %d, want none", len(ce.History))
	}
}

func TestDeadlineRefusesDoomedSleep(t *testing.T) {
	policy := Policy{
		MaxAttempts:    3,
		InitialDelay:   time.Minute,
		MaxDelay:       time.Minute,
		Multiplier:     2,
		JitterFraction: 0,
	}
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := Do(ctx, policy, func(context.Context) error {
		return &fakeAPIError{status: 503}
	})
	if time.Since(start) > time.Second {
		t.Error("doomed backoff was not refused promptly")
	}
	var ce *ClassifiedError
	if !errors.As(err, &ce) || ce.Kind != KindTimeout {
		t.Fatalf("err = %v, want timeout", err)
	}
}

func TestDoValue(t *testing.T) {
	calls := 0
	got, history, err := DoValue(context.Background(), fastPolicy(3), func(context.Context) (string, error) {
		calls++
		if calls == 1 {
			return "", &fakeAPIError{status: 500}
		}
		return "ok", nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "ok" {
		t.Errorf("value = %q, want ok", got)
	}
	if len(history) != 1 {
		t.Errorf("history length = %d, want 1", len(history))
	}
}
