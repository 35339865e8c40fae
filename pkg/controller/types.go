// Package controller implements two state machines: the Root Controller,
// which owns the shared ruleset and drives the control-plane poll/reconnect
// loop, and the Per-Request Controller, which matches a single request
// against the current snapshot and executes whatever fault fires. Both
// talk to the host exclusively through pkg/hostapi.Capabilities.
package controller

import (
	"net/http"
)

// Action is what a state-machine step tells its host-side driver to do
// next: a Continue/Pause vocabulary where a
// Pause always means the driver must wait for a later callback (either a
// scheduled-call response or, for an abort, nothing further at all — the
// response has already been sent).
type Action int

const (
	// ActionContinue means the request should proceed unmodified (forward
	// to the upstream handler, or resume a previously paused request).
	ActionContinue Action = iota
	// ActionPause means the controller has either emitted a short-circuit
	// response or scheduled a callback; the driver must not touch the
	// request further until the callback it arranged fires.
	ActionPause
)

func (a Action) String() string {
	if a == ActionPause {
		return "Pause"
	}
	return "Continue"
}

// Metric names registered with the host once at Root Controller startup.
const (
	MetricAbortsTotal     = "hfi.faults.aborts_total"
	MetricDelaysTotal     = "hfi.faults.delays_total"
	MetricDelayDurationMs = "hfi.faults.delay_duration_milliseconds"
)

// abortHeaders builds the fixed response header set emitted on every
// abort: content-type is always overwritten to
// text/plain regardless of what the matched rule's body might suggest,
// since the abort body is always plain text.
func abortHeaders() http.Header {
	h := http.Header{}
	h.Set("Content-Type", "text/plain")
	h.Set("X-Fault-Injected", "abort")
	return h
}

func saturatingSub(a, b uint64) uint64 {
	if b > a {
		return 0
	}
	return a - b
}

// baseHeaderAllowlist is the fixed set of standard and operational headers
// read on every request regardless of what the active ruleset references.
// Header names actually referenced by a HeaderMatcher in the
// active snapshot are unioned in at request time, so a custom rule can
// always match on a header outside this base set.
var baseHeaderAllowlist = []string{
	"Content-Type",
	"User-Agent",
	"Accept",
	"Authorization",
	"Cookie",
	"Host",
	"X-Request-Id",
	"X-Forwarded-For",
	"X-Forwarded-Proto",
	"X-Envoy-Attempt-Count",
	"X-B3-Traceid",
	"X-B3-Spanid",
	"X-Ot-Span-Context",
	"X-Datadog-Trace-Id",
}
