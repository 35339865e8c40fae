// Package admin exposes the read-only operator diagnostics surface:
// Prometheus text exposition of the engine's counters at /metrics, and a
// JSON dump of the currently active ruleset at /debug/ruleset, mounted
// over a running engine via a plain net/http.ServeMux.
package admin

import (
	"net/http"

	"github.com/hfi-sidecar/engine/pkg/controller"
)

// API serves the admin/diagnostics surface for one RootController.
type API struct {
	root *controller.RootController
}

// New builds an API bound to root.
func New(root *controller.RootController) *API {
	return &API{root: root}
}

// Handler returns the mux mounting every admin route.
func (a *API) Handler() http.Handler {
	mux := http.NewServeMux()
	a.registerRoutes(mux)
	return mux
}
