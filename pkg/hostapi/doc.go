// Package hostapi defines the single seam between the fault-injection
// core and whatever runtime embeds it. The core never imports net/http
// request/response plumbing directly; it talks only to Capabilities, so a
// WASM/Envoy host could implement the same interface without the core
// changing at all. pkg/nethost supplies the net/http reference
// implementation used for local testing and as an ordinary Go middleware.
package hostapi
