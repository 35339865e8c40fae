// Package panicguard recovers panics at a named boundary and turns them
// into a logged, returned error instead of letting them crash the host
// process. It is the one recover() site in the engine, reserved for
// defects that are genuinely unexpected (e.g. a nil dereference deep in a
// matcher path), not for the engine's own classified error paths.
package panicguard

import (
	"fmt"
	"log/slog"
)

// HostLogger is the narrow interface Guard needs from a host capability
// to surface a caught panic through the host's own logging channel, in
// addition to the local *slog.Logger. hostapi.Capabilities implements
// this directly, so callers at a host boundary can pass their
// Capabilities straight through. A nil HostLogger is tolerated (no host
// channel available, e.g. in a unit test) and simply skipped.
type HostLogger interface {
	LogCritical(op, msg string)
}

// Guard runs fn, recovering any panic and turning it into an error logged
// at Error level with the given op tag. The panic is also surfaced to
// host, if non-nil, at the host's Critical-equivalent level — mirroring a
// WASM/Envoy host's own crash log, which would otherwise never see a
// panic caught purely on the Go side. The caller's own error from fn, if
// any, passes through unchanged.
func Guard(op string, log *slog.Logger, host HostLogger, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			msg := fmt.Sprintf("recovered panic in %s: %v", op, r)
			if log != nil {
				log.Error("recovered panic", "op", op, "panic", r)
			}
			if host != nil {
				host.LogCritical(op, msg)
			}
			err = fmt.Errorf("panicguard: %s", msg)
		}
	}()
	return fn()
}
