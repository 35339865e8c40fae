// Package cpclient fetches the Control Plane's /v1/policies payload
// through the host capability interface, classifying failures into
// typed transport (5xx/network) versus rejected (4xx) errors for the
// reconnect policy to act on.
package cpclient
