package timecontrol

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestShouldInject_PersistentRuleNoExpiry(t *testing.T) {
	rule := RuleTiming{DurationSeconds: 0, CreationTimeMs: 0}
	req := RequestTiming{ArrivalTimeMs: 1_000_000_000, ElapsedSinceArrivalMs: 0}
	assert.Equal(t, Inject, ShouldInject(rule, req))
}

func TestShouldInject_ExpiredStrictlyAfterWindow(t *testing.T) {
	rule := RuleTiming{DurationSeconds: 1, CreationTimeMs: 0}
	req := RequestTiming{ArrivalTimeMs: 2001, ElapsedSinceArrivalMs: 0}
	assert.Equal(t, Expired, ShouldInject(rule, req))
}

func TestShouldInject_BoundaryAgeEqualsDurationIsNotExpired(t *testing.T) {
	rule := RuleTiming{DurationSeconds: 1, CreationTimeMs: 0}
	req := RequestTiming{ArrivalTimeMs: 1000, ElapsedSinceArrivalMs: 0}
	assert.Equal(t, Inject, ShouldInject(rule, req))
}

func TestShouldInject_ExpiryTakesPriorityOverStartDelay(t *testing.T) {
	rule := RuleTiming{StartDelayMs: 100, DurationSeconds: 1, CreationTimeMs: 0}
	req := RequestTiming{ArrivalTimeMs: 2001, ElapsedSinceArrivalMs: 0}
	assert.Equal(t, Expired, ShouldInject(rule, req))
}

func TestShouldInject_WaitForDelayBeforeActivation(t *testing.T) {
	rule := RuleTiming{StartDelayMs: 100}
	req := RequestTiming{ArrivalTimeMs: 0, ElapsedSinceArrivalMs: 50}
	assert.Equal(t, WaitForDelay, ShouldInject(rule, req))
}

func TestShouldInject_BoundaryElapsedEqualsStartDelayIsInject(t *testing.T) {
	rule := RuleTiming{StartDelayMs: 100}
	req := RequestTiming{ArrivalTimeMs: 0, ElapsedSinceArrivalMs: 100}
	assert.Equal(t, Inject, ShouldInject(rule, req))
}

func TestShouldInject_NoStartDelayFiresImmediately(t *testing.T) {
	rule := RuleTiming{}
	req := RequestTiming{}
	assert.Equal(t, Inject, ShouldInject(rule, req))
}

func TestShouldInject_ClockSkewSaturatesAtZero(t *testing.T) {
	// creation time after "now" (clock skew): age must not underflow.
	rule := RuleTiming{DurationSeconds: 10, CreationTimeMs: 5000}
	req := RequestTiming{ArrivalTimeMs: 1000, ElapsedSinceArrivalMs: 0}
	assert.Equal(t, Inject, ShouldInject(rule, req))
}
