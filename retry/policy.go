package retry

import (
	"math"
	"math/rand"
	"time"
)

const (
	defaultMaxAttempts    = 4
	defaultInitialDelay   = 1 * time.Second
	defaultMaxDelay       = 30 * time.Second
	defaultMultiplier     = 2.0
	defaultJitterFraction = 0.2
)

// Policy controls the retry behavior for remote calls. Construct once at
// startup and share; it is never mutated after normalization.
type Policy struct {
	MaxAttempts    int
	InitialDelay   time.Duration
	MaxDelay       time.Duration
	Multiplier     float64
	JitterFraction float64
}

func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:    defaultMaxAttempts,
		InitialDelay:   defaultInitialDelay,
		MaxDelay:       defaultMaxDelay,
		Multiplier:     defaultMultiplier,
		JitterFraction: defaultJitterFraction,
	}
}

func NormalizePolicy(in Policy) Policy {
	out := in
	if out.MaxAttempts < 1 {
		out.MaxAttempts = defaultMaxAttempts
	}
	if out.InitialDelay <= 0 {
		out.InitialDelay = defaultInitialDelay
	}
	if out.MaxDelay <= 0 {
		out.MaxDelay = defaultMaxDelay
	}
	if out.MaxDelay < out.InitialDelay {
		out.MaxDelay = out.InitialDelay
	}
	if out.Multiplier <= 1 {
		out.Multiplier = defaultMultiplier
	}
	if out.JitterFraction < 0 || out.JitterFraction > 1 {
		out.JitterFraction = defaultJitterFraction
	}
	return out
}

// Backoff returns the jittered delay to sleep after the given failed attempt
// (1-based). The unjittered value is min(MaxDelay, InitialDelay*Multiplier^(n-1)).
func (p Policy) Backoff(attempt int) time.Duration {
	return p.backoff(attempt, rand.Float64)
}

func (p Policy) backoff(attempt int, rnd func() float64) time.Duration {
	base := p.baseBackoff(attempt)
	if p.JitterFraction <= 0 {
		return base
	}
	// uniform in [-jitter, +jitter]
	factor := 1 + p.JitterFraction*(2*rnd()-1)
	jittered := time.Duration(float64(base) * factor)
	if jittered < 0 {
		jittered = 0
	}
	return jittered
}

func (p Policy) baseBackoff(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	delay := float64(p.InitialDelay) * math.Pow(p.Multiplier, float64(attempt-1))
	if delay > float64(p.MaxDelay) {
		delay = float64(p.MaxDelay)
	}
	return time.Duration(delay)
}
