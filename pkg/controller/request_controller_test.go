package controller

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hfi-sidecar/engine/pkg/delaytracker"
	"github.com/hfi-sidecar/engine/pkg/hostapi"
	"github.com/hfi-sidecar/engine/pkg/hostapi/hostapitest"
	"github.com/hfi-sidecar/engine/pkg/matching"
	"github.com/hfi-sidecar/engine/pkg/metrics"
	"github.com/hfi-sidecar/engine/pkg/rules"
)

func uptr(v uint64) *uint64 { return &v }

func testHandles(caps hostapi.Capabilities) metricHandles {
	return metricHandles{
		aborts:         caps.RegisterCounter(MetricAbortsTotal),
		delays:         caps.RegisterCounter(MetricDelaysTotal),
		delayHistogram: caps.RegisterHistogram(MetricDelayDurationMs),
	}
}

func singleRuleSnapshot(name string, fault rules.Fault, creationTimeMs uint64) *rules.CompiledRuleSet {
	return &rules.CompiledRuleSet{
		Version: "test",
		Rules: []rules.CompiledRule{
			{
				Name:           name,
				Match:          matching.MatchCondition{},
				Fault:          fault,
				CreationTimeMs: creationTimeMs,
			},
		},
	}
}

func newTestRC(snapshot *rules.CompiledRuleSet, fake *hostapitest.Fake, arrivalMs uint64) (*RequestController, *metrics.Metrics) {
	m := metrics.New()
	tracker := delaytracker.New()
	handles := testHandles(fake)
	rc := NewRequestController(snapshot, m, slog.Default(), tracker, handles, "req-1", arrivalMs)
	return rc, m
}

// Scenario 1: abort at 100%.
func TestOnRequestHeaders_AbortAt100Percent(t *testing.T) {
	now := time.Now()
	fake := hostapitest.New(now)
	fault := rules.Fault{
		Abort:      &rules.AbortAction{HTTPStatus: 503, Body: "x"},
		Percentage: 100,
	}
	snapshot := singleRuleSnapshot("abort-all", fault, fake.NowMillis())
	rc, m := newTestRC(snapshot, fake, fake.NowMillis())

	action := rc.OnRequestHeaders(fake)

	assert.Equal(t, ActionPause, action)
	assert.True(t, fake.ResponseSent)
	assert.Equal(t, 503, fake.SentStatus)
	assert.Equal(t, "x", string(fake.SentBody))
	assert.Equal(t, "abort", fake.SentHeaders.Get("X-Fault-Injected"))

	snap := m.Snapshot()
	assert.EqualValues(t, 1, snap.RequestsTotal)
	assert.EqualValues(t, 1, snap.RulesMatched)
	assert.EqualValues(t, 1, snap.FaultsInjected)
	assert.EqualValues(t, 1, snap.Aborts)
}

// Scenario 2: delay at 100%, no start delay.
func TestOnRequestHeaders_DelayThenResume(t *testing.T) {
	now := time.Now()
	fake := hostapitest.New(now)
	fault := rules.Fault{
		Delay:      &rules.DelayAction{FixedDelay: "250ms", ParsedDurationMs: uptr(250)},
		Percentage: 100,
	}
	snapshot := singleRuleSnapshot("delay-all", fault, fake.NowMillis())
	rc, m := newTestRC(snapshot, fake, fake.NowMillis())

	action := rc.OnRequestHeaders(fake)
	require.Equal(t, ActionPause, action)
	require.False(t, fake.ResponseSent)
	require.Len(t, fake.Callbacks, 1)

	var token uint64
	for tok := range fake.Callbacks {
		token = tok
	}

	var resumed Action
	fake.Fire(token, func() {
		resumed = rc.OnScheduledCallback(fake)
	})

	assert.Equal(t, ActionContinue, resumed)
	assert.False(t, fake.ResponseSent)

	snap := m.Snapshot()
	assert.EqualValues(t, 1, snap.Delays)
	assert.InDelta(t, 250, snap.DelayMeanMs, 0.001)

	var observed []float64
	for _, obs := range fake.HistogramObs {
		observed = append(observed, obs...)
	}
	assert.Equal(t, []float64{250}, observed)
}

// Scenario 3: start-delay then abort.
func TestOnRequestHeaders_StartDelayThenAbort(t *testing.T) {
	now := time.Now()
	fake := hostapitest.New(now)
	fault := rules.Fault{
		Abort:        &rules.AbortAction{HTTPStatus: 500},
		Percentage:   100,
		StartDelayMs: 100,
	}
	snapshot := singleRuleSnapshot("start-delay-abort", fault, fake.NowMillis())
	rc, m := newTestRC(snapshot, fake, fake.NowMillis())

	action := rc.OnRequestHeaders(fake)
	require.Equal(t, ActionPause, action)
	require.False(t, fake.ResponseSent)
	require.Len(t, fake.Callbacks, 1)

	var token uint64
	var after time.Duration
	for tok, cb := range fake.Callbacks {
		token = tok
		after = cb.After
	}
	assert.Equal(t, 100*time.Millisecond, after)

	var resumed Action
	fake.Fire(token, func() {
		resumed = rc.OnScheduledCallback(fake)
	})

	assert.Equal(t, ActionPause, resumed)
	assert.True(t, fake.ResponseSent)
	assert.Equal(t, 500, fake.SentStatus)

	snap := m.Snapshot()
	assert.EqualValues(t, 1, snap.Aborts)
	assert.EqualValues(t, 1, snap.FaultsInjected)
}

// Scenario 4: an expired rule never fires, and the expiry counter moves.
func TestOnRequestHeaders_ExpiredRuleContinues(t *testing.T) {
	base := time.Now()
	fake := hostapitest.New(base)
	fault := rules.Fault{
		Abort:           &rules.AbortAction{HTTPStatus: 500},
		Percentage:      100,
		DurationSeconds: 1,
	}
	creation := fake.NowMillis()
	snapshot := singleRuleSnapshot("expires-fast", fault, creation)
	// Arrival is also at creation time; the request is handled "later"
	// because the fake's wall clock is advanced before OnRequestHeaders runs.
	fake.Now = base.Add(2 * time.Second)

	rc, m := newTestRC(snapshot, fake, creation)

	action := rc.OnRequestHeaders(fake)

	assert.Equal(t, ActionContinue, action)
	assert.False(t, fake.ResponseSent)

	snap := m.Snapshot()
	assert.EqualValues(t, 1, snap.RulesMatched)
	assert.EqualValues(t, 0, snap.FaultsInjected)
	assert.EqualValues(t, 1, snap.RuleExpired)
}

// Scenario 5: a 0% rule always misses the percentage roll.
func TestOnRequestHeaders_ZeroPercentNeverFires(t *testing.T) {
	now := time.Now()
	fake := hostapitest.New(now)
	fault := rules.Fault{
		Abort:      &rules.AbortAction{HTTPStatus: 500},
		Percentage: 0,
	}
	snapshot := singleRuleSnapshot("never-fires", fault, fake.NowMillis())
	rc, m := newTestRC(snapshot, fake, fake.NowMillis())

	action := rc.OnRequestHeaders(fake)

	assert.Equal(t, ActionContinue, action)
	assert.False(t, fake.ResponseSent)

	snap := m.Snapshot()
	assert.EqualValues(t, 1, snap.RulesMatched)
	assert.EqualValues(t, 0, snap.FaultsInjected)
}

func TestOnRequestHeaders_NoRulesAlwaysContinues(t *testing.T) {
	fake := hostapitest.New(time.Now())
	rc, m := newTestRC(&rules.CompiledRuleSet{}, fake, fake.NowMillis())

	action := rc.OnRequestHeaders(fake)

	assert.Equal(t, ActionContinue, action)
	assert.EqualValues(t, 1, m.Snapshot().RequestsTotal)
	assert.EqualValues(t, 0, m.Snapshot().RulesMatched)
}

func TestRollFires_Boundaries(t *testing.T) {
	assert.False(t, rollFires(0, 0))
	assert.False(t, rollFires(0, 100))
	assert.True(t, rollFires(100, 0))
	assert.True(t, rollFires(100, 100))
	assert.True(t, rollFires(50, 0))
	assert.False(t, rollFires(50, 50))
	assert.False(t, rollFires(50, 99))
}

func TestBuildRequestView_DefaultsMissingPseudoHeaders(t *testing.T) {
	fake := hostapitest.New(time.Now())
	snapshot := &rules.CompiledRuleSet{}
	rc, _ := newTestRC(snapshot, fake, fake.NowMillis())

	view := rc.buildRequestView(fake)

	assert.Equal(t, "/", view.Path)
	assert.Equal(t, "GET", view.Method)
}

func TestHeaderNamesToRead_UnionsRuleHeaders(t *testing.T) {
	fake := hostapitest.New(time.Now())
	snapshot := &rules.CompiledRuleSet{
		Rules: []rules.CompiledRule{
			{
				Match: matching.MatchCondition{
					Headers: []matching.HeaderMatcher{{Name: "X-Custom-Flag"}},
				},
			},
		},
	}
	rc, _ := newTestRC(snapshot, fake, fake.NowMillis())

	names := rc.headerNamesToRead()

	found := false
	for _, n := range names {
		if n == "X-Custom-Flag" {
			found = true
		}
	}
	assert.True(t, found)
	assert.Len(t, names, len(baseHeaderAllowlist)+1)
}

func TestOnScheduledCallback_NoPendingActionIsSafe(t *testing.T) {
	fake := hostapitest.New(time.Now())
	rc, _ := newTestRC(&rules.CompiledRuleSet{}, fake, fake.NowMillis())

	action := rc.OnScheduledCallback(fake)

	assert.Equal(t, ActionContinue, action)
}
