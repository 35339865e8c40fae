// Package metrics provides the fault-injection engine's own counters
// (pkg/metrics.Metrics, a lock-free atomic counter set with a Snapshot
// method) plus a small Prometheus-compatible Counter/Histogram/Registry
// that backs host-registered metric handles.
//
// # Default Metrics
//
// Metrics tracks eight process-wide counters plus the delay-duration
// accumulators behind the derived delay mean:
//
//   - RulesMatched, FaultsInjected, Aborts, Delays
//   - RequestsTotal, InjectionErrors, TimeControlWait, RuleExpired
//
// Snapshot() returns a by-value copy of all of the above plus derived,
// zero-denominator-guarded rates (abort rate, delay rate, delay mean ms).
//
// # Registry
//
// Registry/Counter/Histogram implement the Prometheus text exposition
// format (text/plain; version=0.0.4) without any external dependencies.
// pkg/nethost uses a Registry to back the hostapi.Capabilities metric
// registration calls and exposes it through Host.MetricsHandler. pkg/admin's
// /metrics does not serve the Registry; it writes Metrics.Snapshot() fields
// with WriteCounter/WriteGauge.
package metrics
