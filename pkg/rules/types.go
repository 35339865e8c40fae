package rules

import (
	"fmt"

	"github.com/hfi-sidecar/engine/pkg/matching"
	"github.com/hfi-sidecar/engine/pkg/timecontrol"
)

// DefaultAbortBody is the literal body text used when an AbortAction
// doesn't specify its own.
const DefaultAbortBody = "Fault injection: Service unavailable"

// AbortAction short-circuits the request with a fixed status and body.
type AbortAction struct {
	HTTPStatus uint32
	Body       string // empty means DefaultAbortBody, applied by ResolvedBody
}

// ResolvedBody returns the body to emit, applying the default.
func (a *AbortAction) ResolvedBody() string {
	if a == nil || a.Body == "" {
		return DefaultAbortBody
	}
	return a.Body
}

// DelayAction stalls the request for a configured duration before either
// resuming it or (if the fault also carries an AbortAction) issuing the
// abort.
type DelayAction struct {
	FixedDelay string // source "Nms"|"Ns"|"Nm"|"N" shape, as received

	// ParsedDurationMs is computed at load time from FixedDelay. Nil if
	// parsing failed — the failure is logged at load time and the delay is
	// skipped when the fault executes.
	ParsedDurationMs *uint64
}

// Fault is the intent to degrade a matched request: an abort, a delay, or
// both (delay first, then abort on callback), gated by a percentage roll
// and an activation/expiry window.
type Fault struct {
	Abort *AbortAction
	Delay *DelayAction

	Percentage      uint32 // 0..=100
	StartDelayMs    uint32 // 0 means fire immediately on first match
	DurationSeconds uint32 // 0 means the rule never expires
}

// Timing extracts the timecontrol.RuleTiming view of this rule's gates.
func (r *CompiledRule) Timing() timecontrol.RuleTiming {
	return timecontrol.RuleTiming{
		StartDelayMs:    r.Fault.StartDelayMs,
		DurationSeconds: r.Fault.DurationSeconds,
		CreationTimeMs:  r.CreationTimeMs,
	}
}

// CompiledRule pairs a match condition with a fault, stamped with the wall
// clock time it was loaded at.
type CompiledRule struct {
	Name           string
	Match          matching.MatchCondition
	Fault          Fault
	CreationTimeMs uint64
}

// CompiledRuleSet is a versioned, ordered sequence of compiled rules.
// Order is significant: the per-request controller uses first-match
// semantics, so rule authors rely on declaration order for precedence.
type CompiledRuleSet struct {
	Version string
	Rules   []CompiledRule
}

// FirstMatch returns the first rule in declared order whose match
// condition is satisfied by the request view, or ok=false if none match.
func (rs *CompiledRuleSet) FirstMatch(r matching.RequestView) (*CompiledRule, bool) {
	if rs == nil {
		return nil, false
	}
	for i := range rs.Rules {
		if rs.Rules[i].Match.Matches(r) {
			return &rs.Rules[i], true
		}
	}
	return nil, false
}

// Validate checks fault-level invariants that are cheap to assert at load
// time (percentage range). It deliberately does not validate matcher regex
// compilation — that is handled by degradation, not rejection (see
// pkg/matching).
func (f *Fault) Validate() error {
	if f.Percentage > 100 {
		return fmt.Errorf("percentage must be in [0,100], got %d", f.Percentage)
	}
	return nil
}
