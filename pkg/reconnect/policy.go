package reconnect

import (
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// ErrorType classifies a config-fetch failure for the reconnect policy.
// Temporary failures get the full attempt budget; Permanent failures are
// capped at two attempts since retrying a 4xx indefinitely wastes the
// budget on a request that will never succeed.
type ErrorType int

const (
	Unknown ErrorType = iota
	Temporary
	Permanent
)

// ClassifyHTTPStatus derives an ErrorType from a Control-Plane HTTP status
// code: 5xx is Temporary, 4xx is Permanent, anything else is Unknown (and
// treated like Temporary by the policy's attempt budget).
func ClassifyHTTPStatus(status int) ErrorType {
	switch {
	case status >= 500 && status < 600:
		return Temporary
	case status >= 400 && status < 500:
		return Permanent
	default:
		return Unknown
	}
}

const (
	DefaultInitialDelay = time.Second
	DefaultMaxDelay     = 60 * time.Second
	DefaultMaxAttempts  = 10
	permanentAttemptCap = 2
)

// Policy is the reconnect state machine: an exponential backoff curve with
// an error-class-aware attempt ceiling. Zero value is not usable; construct
// with New or Default.
//
// The curve itself (initial_delay * 2^(attempts-1), capped at max_delay) is
// identical regardless of error class — only the attempt ceiling differs —
// so a single cenkalti/backoff/v4 ExponentialBackOff drives both paths.
type Policy struct {
	mu          sync.Mutex
	maxAttempts int
	attempts    int
	reconnecting bool
	curve       *backoff.ExponentialBackOff
}

// New constructs a Policy with explicit tuning parameters.
func New(initialDelay, maxDelay time.Duration, maxAttempts int) *Policy {
	curve := backoff.NewExponentialBackOff()
	curve.InitialInterval = initialDelay
	curve.MaxInterval = maxDelay
	curve.Multiplier = 2
	curve.RandomizationFactor = 0 // deterministic curve; spec defines no jitter
	curve.MaxElapsedTime = 0      // never auto-stop on elapsed time; attempts gate that
	curve.Reset()

	return &Policy{
		maxAttempts: maxAttempts,
		curve:       curve,
	}
}

// Default constructs a Policy with the engine's default tuning:
// initial_delay=1s, max_delay=60s, max_attempts=10.
func Default() *Policy {
	return New(DefaultInitialDelay, DefaultMaxDelay, DefaultMaxAttempts)
}

// OnFailure records a config-fetch failure of the given class and reports
// the delay to wait before the next attempt. ok is false once the
// error-class-adjusted attempt ceiling is exceeded, signaling the caller to
// give up rearming the tick until an external OnSuccess.
func (p *Policy) OnFailure(errType ErrorType) (delay time.Duration, ok bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	effectiveMax := p.maxAttempts
	if errType == Permanent && permanentAttemptCap < effectiveMax {
		effectiveMax = permanentAttemptCap
	}

	p.attempts++
	if p.attempts > effectiveMax {
		return 0, false
	}

	p.reconnecting = true
	return p.curve.NextBackOff(), true
}

// OnSuccess resets the policy to its initial state: zero attempts, the
// curve back at initial_delay, and reconnecting cleared.
func (p *Policy) OnSuccess() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.attempts = 0
	p.reconnecting = false
	p.curve.Reset()
}

// IsReconnecting reports whether the policy is mid-backoff.
func (p *Policy) IsReconnecting() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.reconnecting
}

// Attempts returns the current consecutive-failure count.
func (p *Policy) Attempts() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.attempts
}
