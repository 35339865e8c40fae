package nethost

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/hfi-sidecar/engine/pkg/controller"
)

// Middleware wraps an http.Handler with the fault-injection data plane,
// driving each request through the Per-Request Controller's
// OnRequestHeaders/OnScheduledCallback state machine.
// Because net/http handlers run synchronously on their own goroutine
// rather than being driven by host callbacks, Middleware itself plays the
// role a WASM host's event loop would: a Pause is resolved by blocking on
// the capability's pending timer and then calling back into the
// controller.
type Middleware struct {
	root *controller.RootController
	host *Host
	next http.Handler
}

// Wrap builds a Middleware bound to root's current (and future) ruleset
// snapshots, in front of next.
func Wrap(root *controller.RootController, host *Host, next http.Handler) *Middleware {
	return &Middleware{root: root, host: host, next: next}
}

func (m *Middleware) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	requestID := r.Header.Get("X-Request-Id")
	if requestID == "" {
		requestID = uuid.NewString()
	}

	caps := m.host.ForRequest(w, r)
	arrival := caps.NowMillis()
	rc := m.root.NewRequestController(requestID, arrival)

	action := rc.OnRequestHeaders(caps)
	for action == controller.ActionPause && !caps.ResponseSent() {
		caps.AwaitCallback()
		action = rc.OnScheduledCallback(caps)
	}

	if action == controller.ActionContinue {
		m.next.ServeHTTP(w, r)
	}
	// ActionPause with a response already sent means an abort fired; the
	// response was written by caps.SendHTTPResponse and there is nothing
	// further to do.
}
