package hostapi

import (
	"context"
	"net/http"
	"time"
)

// MetricID is an opaque handle to a host-registered metric, returned by
// RegisterCounter/RegisterHistogram and passed back into
// IncrementCounter/RecordHistogram. The core never inspects its value.
type MetricID uint64

// Capabilities is everything the fault-injection core needs from its host
// runtime: request/response access, the ability to issue an outbound HTTP
// call (for the Control Plane fetch), a timer primitive for delayed
// faults, metric registration, a wall clock, and identity property lookup.
//
// Every method here must be safe to call from the goroutine (or
// proxy-wasm host thread) that owns the current request; the core never
// assumes it can call these concurrently for the same request.
type Capabilities interface {
	// GetRequestHeader returns a header's first value, case-insensitive.
	GetRequestHeader(name string) (string, bool)

	// SendHTTPResponse immediately ends request processing with the given
	// status, headers and body. Used for the abort fault's short-circuit.
	SendHTTPResponse(status int, headers http.Header, body []byte)

	// DispatchHTTPCall issues an outbound call (the Control Plane fetch)
	// bounded by the given timeout, addressed by logical cluster name.
	DispatchHTTPCall(ctx context.Context, cluster, method, path, authority string, timeout time.Duration) (*http.Response, error)

	// ScheduleCallback arranges for the current request to be resumed
	// after the given delay. The returned cancel func, if called before
	// the callback fires, prevents it from firing at all.
	ScheduleCallback(after time.Duration) (token uint64, cancel func())

	// RegisterCounter and RegisterHistogram register a named metric with
	// the host once at startup, returning a handle for later updates.
	RegisterCounter(name string) MetricID
	RegisterHistogram(name string) MetricID

	// IncrementCounter and RecordHistogram update a previously registered
	// metric. Calling these with an unknown MetricID must not panic — a
	// HostCapabilityError is logged and the call is simply dropped.
	IncrementCounter(id MetricID, delta uint64)
	RecordHistogram(id MetricID, value float64)

	// NowMillis returns the host's wall clock, in epoch milliseconds.
	NowMillis() uint64

	// GetProperty reads a node property (e.g. identity metadata) by path
	// segments, e.g. []string{"node", "metadata", "WORKLOAD_NAME"}.
	GetProperty(path []string) (string, bool)

	// LogCritical surfaces a message through the host's own logging
	// channel at its Critical-equivalent level, distinct from whatever
	// local *slog.Logger the core was constructed with. pkg/panicguard is
	// the only caller: a caught panic is a host-boundary event a real
	// proxy operator expects to see in the host's own log stream (e.g.
	// Envoy's access/error log), not just wherever the plugin's local
	// logger happens to be configured to write. op identifies the
	// guarded boundary (e.g. "request_headers"); msg is the recovered
	// panic's message.
	LogCritical(op, msg string)
}
