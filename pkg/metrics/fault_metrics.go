package metrics

import "sync/atomic"

// Metrics is the engine's process-wide, lock-free counter set. It is
// independent of whatever metric handles the host capability interface
// separately registers (see pkg/hostapi): those three handles mirror
// Aborts, Delays and the delay histogram outward to the host's own metric
// system, while Metrics itself is always available for the admin
// diagnostics surface even when no host is attached.
//
// All fields use relaxed atomic ordering: these are independent monotonic
// counts, never used to synchronize access to other state.
type Metrics struct {
	RulesMatched    atomic.Uint64
	FaultsInjected  atomic.Uint64
	Aborts          atomic.Uint64
	Delays          atomic.Uint64
	RequestsTotal   atomic.Uint64
	InjectionErrors atomic.Uint64
	TimeControlWait atomic.Uint64
	RuleExpired     atomic.Uint64

	delaySumMs atomic.Uint64
	delayCount atomic.Uint64
}

// New returns a zeroed Metrics set.
func New() *Metrics {
	return &Metrics{}
}

// RecordDelay increments the Delays counter and folds ms into the
// delay-mean accumulators.
func (m *Metrics) RecordDelay(ms uint64) {
	m.Delays.Add(1)
	m.delaySumMs.Add(ms)
	m.delayCount.Add(1)
}

// Snapshot is a by-value, consistent-enough-for-reporting copy of every
// counter plus rates derived from them.
type Snapshot struct {
	RulesMatched    uint64
	FaultsInjected  uint64
	Aborts          uint64
	Delays          uint64
	RequestsTotal   uint64
	InjectionErrors uint64
	TimeControlWait uint64
	RuleExpired     uint64

	// DelayMeanMs is delaySumMs/delayCount, 0 if no delay has ever fired.
	DelayMeanMs float64
	// AbortRate and DelayRate are Aborts/RequestsTotal and
	// Delays/RequestsTotal, 0 if no request has ever been seen.
	AbortRate float64
	DelayRate float64
}

// Snapshot takes a point-in-time copy of all counters and computes the
// zero-denominator-guarded derived rates.
func (m *Metrics) Snapshot() Snapshot {
	requests := m.RequestsTotal.Load()
	aborts := m.Aborts.Load()
	delays := m.Delays.Load()
	delayCount := m.delayCount.Load()
	delaySum := m.delaySumMs.Load()

	snap := Snapshot{
		RulesMatched:    m.RulesMatched.Load(),
		FaultsInjected:  m.FaultsInjected.Load(),
		Aborts:          aborts,
		Delays:          delays,
		RequestsTotal:   requests,
		InjectionErrors: m.InjectionErrors.Load(),
		TimeControlWait: m.TimeControlWait.Load(),
		RuleExpired:     m.RuleExpired.Load(),
	}
	if delayCount > 0 {
		snap.DelayMeanMs = float64(delaySum) / float64(delayCount)
	}
	if requests > 0 {
		snap.AbortRate = float64(aborts) / float64(requests)
		snap.DelayRate = float64(delays) / float64(requests)
	}
	return snap
}
