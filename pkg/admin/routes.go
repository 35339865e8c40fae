// Route registration for the admin/diagnostics surface.

package admin

import "net/http"

func (a *API) registerRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /metrics", a.handleMetrics)
	mux.HandleFunc("GET /debug/ruleset", a.handleDebugRuleset)
}
