package controller

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/hfi-sidecar/engine/pkg/delaytracker"
	"github.com/hfi-sidecar/engine/pkg/hostapi"
	"github.com/hfi-sidecar/engine/pkg/matching"
	"github.com/hfi-sidecar/engine/pkg/metrics"
	"github.com/hfi-sidecar/engine/pkg/panicguard"
	"github.com/hfi-sidecar/engine/pkg/rules"
	"github.com/hfi-sidecar/engine/pkg/sampler"
	"github.com/hfi-sidecar/engine/pkg/timecontrol"
)

// pendingKind distinguishes the two reasons a RequestController can be
// mid-Pause.
type pendingKind int

const (
	pendingNone pendingKind = iota
	// pendingStartDelay means the paused callback is the rule's
	// activation wait; on fire the fault still needs to be executed.
	pendingStartDelay
	// pendingDelayFault means the paused callback is the fault's own
	// delay; on fire the request resumes (or, if an abort also rides
	// along, the abort fires now).
	pendingDelayFault
)

type pendingAction struct {
	kind       pendingKind
	fault      rules.Fault
	ruleName   string
	delayMs    uint64
	trackerTok delaytracker.Token
}

// metricHandles bundles the three host-registered metric IDs the Root
// Controller hands each RequestController, so a request never needs a
// pointer back to the RootController itself.
type metricHandles struct {
	aborts         hostapi.MetricID
	delays         hostapi.MetricID
	delayHistogram hostapi.MetricID
}

// RequestController is the per-request match -> gate -> act state
// machine. One is created per request by the host
// adapter and discarded at completion; it holds an immutable snapshot
// reference for its entire lifetime so a mid-flight ruleset swap never
// tears a match decision.
type RequestController struct {
	snapshot      *rules.CompiledRuleSet
	metrics       *metrics.Metrics
	log           *slog.Logger
	tracker       *delaytracker.Tracker
	handles       metricHandles
	arrivalTimeMs uint64
	requestID     string

	mu      sync.Mutex
	pending pendingAction
}

// NewRequestController constructs a RequestController bound to a single
// immutable ruleset snapshot. arrivalTimeMs should be the host wall clock
// read at request-headers time.
func NewRequestController(
	snapshot *rules.CompiledRuleSet,
	m *metrics.Metrics,
	log *slog.Logger,
	tracker *delaytracker.Tracker,
	handles metricHandles,
	requestID string,
	arrivalTimeMs uint64,
) *RequestController {
	if log == nil {
		log = slog.Default()
	}
	return &RequestController{
		snapshot:      snapshot,
		metrics:       m,
		log:           log,
		tracker:       tracker,
		handles:       handles,
		arrivalTimeMs: arrivalTimeMs,
		requestID:     requestID,
	}
}

// OnRequestHeaders runs the match -> time-control -> percentage -> act
// pipeline for a newly arrived request. It always resolves to a defined Action:
// any panic inside the pipeline is caught by pkg/panicguard, logged, and
// treated as "do not inject".
func (rc *RequestController) OnRequestHeaders(caps hostapi.Capabilities) Action {
	action := ActionContinue
	err := panicguard.Guard("request_headers", rc.log, caps, func() error {
		action = rc.onRequestHeaders(caps)
		return nil
	})
	if err != nil {
		rc.metrics.InjectionErrors.Add(1)
		return ActionContinue
	}
	return action
}

func (rc *RequestController) onRequestHeaders(caps hostapi.Capabilities) Action {
	rc.metrics.RequestsTotal.Add(1)

	if rc.snapshot == nil || len(rc.snapshot.Rules) == 0 {
		return ActionContinue
	}

	view := rc.buildRequestView(caps)

	rule, ok := rc.snapshot.FirstMatch(view)
	if !ok {
		return ActionContinue
	}

	rc.log.Info("rule matched", "rule", rule.Name)
	rc.metrics.RulesMatched.Add(1)

	now := caps.NowMillis()
	timing := timecontrol.RequestTiming{
		ArrivalTimeMs:         rc.arrivalTimeMs,
		ElapsedSinceArrivalMs: saturatingSub(now, rc.arrivalTimeMs),
	}

	// Only expiry is consulted here. elapsed_since_arrival is ~0 at
	// headers-received time for any ordinary HTTP request (the event
	// fires essentially the instant the request arrives), so feeding the
	// rule's own StartDelayMs into the activation-delay branch here would
	// gate away every start-delayed rule before it ever reaches the
	// pending/execute Pause-and-schedule mechanism below, which is what
	// actually implements the per-request activation stall. The
	// activation-delay branch of timecontrol.ShouldInject itself stays a
	// correctly-implemented, independently tested pure predicate for
	// hosts that can supply a meaningfully nonzero starting elapsed.
	ruleTiming := rule.Timing()
	ruleTiming.StartDelayMs = 0
	if timecontrol.ShouldInject(ruleTiming, timing) == timecontrol.Expired {
		rc.metrics.RuleExpired.Add(1)
		return ActionContinue
	}

	// The sampler is rolled exactly once per matched rule regardless of
	// percentage, so a 0% rule still exercises this path and a 100% rule
	// still draws (and discards) an observation — only the fire decision
	// is special-cased at the boundaries.
	roll := sampler.Sample()
	if !rollFires(rule.Fault.Percentage, roll) {
		return ActionContinue
	}

	rc.metrics.FaultsInjected.Add(1)
	return rc.execute(caps, rule.Fault, rule.Name)
}

// rollFires decides whether a percentage roll fires the fault. Percentage
// is interpreted over the sampler's 101-valued range (0..=100 inclusive);
// the 0 and 100 boundaries are special-cased rather than left to the
// general comparison; a uniform roll that happens to land on 100 would
// otherwise leave a 1-in-101 chance that a 100% rule does not fire (and
// symmetrically, for 0%, a roll of exactly 0 must never fire).
func rollFires(percentage, roll uint32) bool {
	switch percentage {
	case 0:
		return false
	case 100:
		return true
	default:
		return roll < percentage
	}
}

// buildRequestView extracts the narrow matching.RequestView from the host
// capability interface: pseudo-headers fall back to "/" and "GET" with a
// debug log, and only a fixed allowlist plus any header
// referenced by the active snapshot's own rules is actually read.
func (rc *RequestController) buildRequestView(caps hostapi.Capabilities) matching.RequestView {
	path, ok := caps.GetRequestHeader(":path")
	if !ok || path == "" {
		rc.log.Debug("missing :path pseudo-header; defaulting to /")
		path = "/"
	}
	method, ok := caps.GetRequestHeader(":method")
	if !ok || method == "" {
		rc.log.Debug("missing :method pseudo-header; defaulting to GET")
		method = "GET"
	}

	headers := http.Header{}
	for _, name := range rc.headerNamesToRead() {
		if v, ok := caps.GetRequestHeader(name); ok {
			headers.Set(name, v)
		}
	}

	return matching.RequestView{Path: path, Method: method, Headers: headers}
}

func (rc *RequestController) headerNamesToRead() []string {
	seen := make(map[string]struct{}, len(baseHeaderAllowlist))
	names := make([]string, 0, len(baseHeaderAllowlist))
	for _, n := range baseHeaderAllowlist {
		key := http.CanonicalHeaderKey(n)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		names = append(names, n)
	}
	for i := range rc.snapshot.Rules {
		for _, h := range rc.snapshot.Rules[i].Match.Headers {
			key := http.CanonicalHeaderKey(h.Name)
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			names = append(names, h.Name)
		}
	}
	return names
}

// execute runs the act phase once match/time-control/percentage have all
// passed: it schedules the activation delay first if the rule has one,
// otherwise fires the fault immediately.
func (rc *RequestController) execute(caps hostapi.Capabilities, fault rules.Fault, ruleName string) Action {
	if fault.StartDelayMs > 0 {
		token, cancel := caps.ScheduleCallback(time.Duration(fault.StartDelayMs) * time.Millisecond)
		if token == 0 {
			rc.metrics.InjectionErrors.Add(1)
			rc.log.Warn("failed to schedule start-delay callback; executing immediately", "rule", ruleName)
			return rc.fire(caps, fault, ruleName)
		}
		_ = cancel // observational only; the host, not this tracker, is authoritative

		tok := rc.tracker.Add(rc.requestID)
		rc.mu.Lock()
		rc.pending = pendingAction{kind: pendingStartDelay, fault: fault, ruleName: ruleName, trackerTok: tok}
		rc.mu.Unlock()
		return ActionPause
	}
	return rc.fire(caps, fault, ruleName)
}

// fire executes a fault whose activation delay (if any) has already
// elapsed: schedule the fault's own delay if present, else emit the abort
// immediately, else there is nothing to do and the request continues.
func (rc *RequestController) fire(caps hostapi.Capabilities, fault rules.Fault, ruleName string) Action {
	if fault.Delay != nil && fault.Delay.ParsedDurationMs != nil {
		ms := *fault.Delay.ParsedDurationMs
		token, cancel := caps.ScheduleCallback(time.Duration(ms) * time.Millisecond)
		if token == 0 {
			rc.metrics.InjectionErrors.Add(1)
			rc.log.Warn("failed to schedule delay callback; request continues uninjected", "rule", ruleName)
			return ActionContinue
		}
		_ = cancel

		tok := rc.tracker.Add(rc.requestID)
		rc.mu.Lock()
		rc.pending = pendingAction{kind: pendingDelayFault, fault: fault, ruleName: ruleName, delayMs: ms, trackerTok: tok}
		rc.mu.Unlock()
		return ActionPause
	}

	if fault.Abort != nil {
		rc.emitAbort(caps, fault.Abort)
		return ActionPause
	}

	return ActionContinue
}

// OnScheduledCallback runs the resume half of the state machine. It
// clears whatever was pending and
// either runs the deferred fault execution (start-delay case) or resolves
// the delay (recording the histogram sample and either resuming or
// issuing the trailing abort).
func (rc *RequestController) OnScheduledCallback(caps hostapi.Capabilities) Action {
	action := ActionContinue
	err := panicguard.Guard("scheduled_callback", rc.log, caps, func() error {
		action = rc.onScheduledCallback(caps)
		return nil
	})
	if err != nil {
		rc.metrics.InjectionErrors.Add(1)
		return ActionContinue
	}
	return action
}

func (rc *RequestController) onScheduledCallback(caps hostapi.Capabilities) Action {
	rc.mu.Lock()
	pending := rc.pending
	rc.pending = pendingAction{}
	rc.mu.Unlock()

	if pending.trackerTok != "" {
		rc.tracker.Remove(pending.trackerTok)
	}

	switch pending.kind {
	case pendingStartDelay:
		return rc.fire(caps, pending.fault, pending.ruleName)
	case pendingDelayFault:
		rc.metrics.RecordDelay(pending.delayMs)
		if rc.handles.delayHistogram != 0 {
			caps.RecordHistogram(rc.handles.delayHistogram, float64(pending.delayMs))
		}
		if rc.handles.delays != 0 {
			caps.IncrementCounter(rc.handles.delays, 1)
		}
		if pending.fault.Abort != nil {
			rc.emitAbort(caps, pending.fault.Abort)
			return ActionPause
		}
		return ActionContinue
	default:
		rc.log.Warn("scheduled callback fired with no pending action")
		return ActionContinue
	}
}

func (rc *RequestController) emitAbort(caps hostapi.Capabilities, abort *rules.AbortAction) {
	caps.SendHTTPResponse(int(abort.HTTPStatus), abortHeaders(), []byte(abort.ResolvedBody()))
	rc.metrics.Aborts.Add(1)
	if rc.handles.aborts != 0 {
		caps.IncrementCounter(rc.handles.aborts, 1)
	}
}
