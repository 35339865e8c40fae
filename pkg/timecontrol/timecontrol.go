// Package timecontrol implements the pure activation/expiry predicate that
// gates whether a matched rule is allowed to fire for a given request.
package timecontrol

// Decision is the outcome of ShouldInject.
type Decision int

const (
	// Inject means the rule's fault may proceed to the percentage roll.
	Inject Decision = iota
	// WaitForDelay means the rule's activation delay has not elapsed yet;
	// the request continues unmodified.
	WaitForDelay
	// Expired means the rule's validity window has passed; the request
	// continues unmodified regardless of percentage or start delay.
	Expired
)

func (d Decision) String() string {
	switch d {
	case Inject:
		return "Inject"
	case WaitForDelay:
		return "WaitForDelay"
	case Expired:
		return "Expired"
	default:
		return "Unknown"
	}
}

// RuleTiming carries the timing fields of a compiled rule relevant to
// activation/expiry.
type RuleTiming struct {
	StartDelayMs    uint32
	DurationSeconds uint32
	CreationTimeMs  uint64
}

// RequestTiming carries the timing fields of the current request relevant
// to activation/expiry.
type RequestTiming struct {
	ArrivalTimeMs         uint64
	ElapsedSinceArrivalMs uint64
}

// ShouldInject is a pure predicate over rule and request timing. Expiry is
// checked first and always wins: an expired rule never fires regardless of
// per-request timing. Arithmetic saturates at zero to tolerate clock skew
// between the host wall clock and the request-arrival timestamp. "Now" is
// derived from the request timing (arrival time plus elapsed-since-arrival)
// rather than taken as a separate parameter, since the caller already knows
// both halves of that sum and a pure function should not take redundant,
// potentially-inconsistent inputs.
func ShouldInject(rule RuleTiming, req RequestTiming) Decision {
	now := req.ArrivalTimeMs + req.ElapsedSinceArrivalMs
	if rule.DurationSeconds > 0 {
		age := saturatingSub(now, rule.CreationTimeMs)
		if age > uint64(rule.DurationSeconds)*1000 {
			return Expired
		}
	}

	if rule.StartDelayMs > 0 && req.ElapsedSinceArrivalMs < uint64(rule.StartDelayMs) {
		return WaitForDelay
	}

	return Inject
}

func saturatingSub(a, b uint64) uint64 {
	if b > a {
		return 0
	}
	return a - b
}
