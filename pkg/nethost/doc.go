// Package nethost implements hostapi.Capabilities on top of a real
// net/http server, so the fault-injection engine is runnable and testable
// as ordinary Go middleware instead of only inside a WASM/Envoy host. A
// WASM host is out of scope for implementation, but nethost proves the
// hostapi.Capabilities seam is narrow enough that nothing in pkg/controller
// needs to change to support one.
package nethost
