package admin

import (
	"net/http"
	"time"

	"github.com/hfi-sidecar/engine/pkg/metrics"
)

// handleMetrics handles GET /metrics: Prometheus text exposition of
// Metrics.Snapshot(). Unlike the per-request handle-based counters
// exposed through pkg/hostapi (mirrored to whatever metric system the
// host itself runs), this is the engine's own always-available counter
// set, recomputed fresh on every scrape rather than held as long-lived
// metrics.Registry entries — so each field is written with
// metrics.WriteCounter/WriteGauge, the same exposition-formatting
// primitives the Registry's own Handler uses, rather than a second,
// parallel implementation of the Prometheus text format.
func (a *API) handleMetrics(w http.ResponseWriter, r *http.Request) {
	snap := a.root.Metrics().Snapshot()

	w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
	metrics.WriteCounter(w, "hfi_requests_total", "Total requests seen by the engine.", float64(snap.RequestsTotal))
	metrics.WriteCounter(w, "hfi_rules_matched_total", "Requests that matched a rule.", float64(snap.RulesMatched))
	metrics.WriteCounter(w, "hfi_faults_injected_total", "Faults that passed every gate and fired.", float64(snap.FaultsInjected))
	metrics.WriteCounter(w, "hfi_faults_aborts_total", "Abort faults executed.", float64(snap.Aborts))
	metrics.WriteCounter(w, "hfi_faults_delays_total", "Delay faults executed.", float64(snap.Delays))
	metrics.WriteCounter(w, "hfi_injection_errors_total", "Panics or scheduling failures recovered by the guard.", float64(snap.InjectionErrors))
	metrics.WriteCounter(w, "hfi_time_control_wait_total", "Matched rules skipped because their activation delay had not elapsed.", float64(snap.TimeControlWait))
	metrics.WriteCounter(w, "hfi_rule_expired_total", "Matched rules skipped because their duration window had elapsed.", float64(snap.RuleExpired))
	metrics.WriteGauge(w, "hfi_faults_delay_mean_milliseconds", "Mean observed delay-fault duration.", snap.DelayMeanMs)
	metrics.WriteGauge(w, "hfi_faults_abort_rate", "Aborts divided by total requests.", snap.AbortRate)
	metrics.WriteGauge(w, "hfi_faults_delay_rate", "Delays divided by total requests.", snap.DelayRate)
}

// ruleDebugView is one rule entry in the /debug/ruleset response:
// enough to confirm a hot-reload landed without exposing raw
// Control-Plane payloads.
type ruleDebugView struct {
	Name   string `json:"name"`
	AgeMs  uint64 `json:"age_ms"`
	Abort  bool   `json:"has_abort"`
	Delay  bool   `json:"has_delay"`
	Expiry bool   `json:"expires"`
}

type rulesetDebugResponse struct {
	Version   string          `json:"version"`
	RuleCount int             `json:"rule_count"`
	Rules     []ruleDebugView `json:"rules"`
}

// handleDebugRuleset handles GET /debug/ruleset.
func (a *API) handleDebugRuleset(w http.ResponseWriter, r *http.Request) {
	snapshot := a.root.Snapshot()
	if snapshot == nil {
		writeJSON(w, http.StatusOK, rulesetDebugResponse{Rules: []ruleDebugView{}})
		return
	}

	nowMs := uint64(time.Now().UnixMilli())
	views := make([]ruleDebugView, 0, len(snapshot.Rules))
	for _, rule := range snapshot.Rules {
		age := uint64(0)
		if nowMs > rule.CreationTimeMs {
			age = nowMs - rule.CreationTimeMs
		}
		views = append(views, ruleDebugView{
			Name:   rule.Name,
			AgeMs:  age,
			Abort:  rule.Fault.Abort != nil,
			Delay:  rule.Fault.Delay != nil,
			Expiry: rule.Fault.DurationSeconds > 0,
		})
	}

	writeJSON(w, http.StatusOK, rulesetDebugResponse{
		Version:   snapshot.Version,
		RuleCount: len(snapshot.Rules),
		Rules:     views,
	})
}
