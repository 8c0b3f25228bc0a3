// Package retry wraps single remote calls in a bounded
// exponential-backoff-with-jitter retry loop, classifying each failure as
// retryable or terminal. Retryable kinds are server errors, rate limits,
// network failures and resources still provisioning; everything else fails
// fast on first occurrence.
package retry

import (
	"context"
	"time"
)

// Attempt records one entry in a retry sequence. Err is nil only when the
// attempt succeeded.
type Attempt struct {
	Number int              `json:"attempt"`
	Delay  time.Duration    `json:"delayBeforeRetry"`
	Err    *ClassifiedError `json:"-"`
}

// History is the ordered record of failed attempts for one logical operation.
type History []Attempt

// Do runs op until it succeeds, fails terminally, or the policy's attempt
// budget is spent. The returned History holds one entry per failed attempt;
// on success it may be empty. The terminal error is always a *ClassifiedError
// carrying the full history.
func Do(ctx context.Context, policy Policy, op func(ctx context.Context) error) (History, error) {
	policy = NormalizePolicy(policy)

	var history History
	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return history, Classify(err)
		}

		err := op(ctx)
		if err == nil {
			return history, nil
		}

		ce := Classify(err)
		if ce.Kind == KindCancelled || ce.Kind == KindTimeout {
			if ctx.Err() != nil {
				// The invocation's own context ended; surfaces bare,
				// without a terminal retry history.
				return history, ce
			}
			// A per-request transport timeout while the invocation is
			// still alive is a transient network failure.
			ce = &ClassifiedError{
				Kind:      KindNetworkError,
				Retryable: true,
				Message:   "request timed out: " + err.Error(),
				Cause:     err,
			}
		}
		if !ce.Retryable || attempt == policy.MaxAttempts {
			history = append(history, Attempt{Number: attempt, Err: ce})
			ce.History = history
			return history, ce
		}

		delay := policy.Backoff(attempt)
		if ce.RetryAfter > delay {
			// A server-supplied hint takes precedence over the local cap.
			delay = ce.RetryAfter
		}
		history = append(history, Attempt{Number: attempt, Delay: delay, Err: ce})

		if deadline, ok := ctx.Deadline(); ok && time.Now().Add(delay).After(deadline) {
			timeout := &ClassifiedError{
				Kind:    KindTimeout,
				Message: "backoff delay would exceed the operation deadline",
				Cause:   err,
				History: history,
			}
			return history, timeout
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			ce := Classify(ctx.Err())
			return history, ce
		case <-timer.C:
		}
	}
}

// DoValue is Do for operations that produce a value.
func DoValue[T any](ctx context.Context, policy Policy, op func(ctx context.Context) (T, error)) (T, History, error) {
	var out T
	history, err := Do(ctx, policy, func(ctx context.Context) error {
		v, err := op(ctx)
		if err != nil {
			return err
		}
		out = v
		return nil
	})
	return out, history, err
}
