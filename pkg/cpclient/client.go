package cpclient

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/hfi-sidecar/engine/pkg/hostapi"
)

// DefaultCluster is the logical upstream cluster name the host capability
// interface dispatches the Control Plane fetch to.
const DefaultCluster = "hfi_control_plane"

// DefaultAuthority is used when no explicit control-plane address is
// configured.
const DefaultAuthority = "control-plane:8080"

// FetchTimeout bounds every /v1/policies fetch.
const FetchTimeout = 10 * time.Second

// ErrConfigFetchTransport marks a failure that looks transient: a 5xx
// status, a dispatch error, or a timeout.
var ErrConfigFetchTransport = errors.New("config fetch: transport failure")

// ErrConfigFetchRejected marks a 4xx response: retrying the exact same
// request is expected to fail again, so the reconnect policy caps attempts
// at two rather than the full budget.
var ErrConfigFetchRejected = errors.New("config fetch: rejected")

// TransportError wraps ErrConfigFetchTransport with the observed status
// (0 if the failure never reached the server) and the underlying error.
type TransportError struct {
	Status int
	Err    error
}

func (e *TransportError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s: status %d", ErrConfigFetchTransport, e.Status)
	}
	return fmt.Sprintf("%s: %v", ErrConfigFetchTransport, e.Err)
}

func (e *TransportError) Unwrap() error { return ErrConfigFetchTransport }

// RejectedError wraps ErrConfigFetchRejected with the observed 4xx status.
type RejectedError struct {
	Status int
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("%s: status %d", ErrConfigFetchRejected, e.Status)
}

func (e *RejectedError) Unwrap() error { return ErrConfigFetchRejected }

// Client fetches the Control Plane's policies payload through a host
// capability interface rather than a direct net/http.Client, so the same
// code works whether the host is pkg/nethost or, eventually, a WASM host.
type Client struct {
	caps      hostapi.Capabilities
	cluster   string
	authority string
}

// New constructs a Client. An empty authority defaults to
// DefaultAuthority.
func New(caps hostapi.Capabilities, authority string) *Client {
	if authority == "" {
		authority = DefaultAuthority
	}
	return &Client{caps: caps, cluster: DefaultCluster, authority: authority}
}

// Fetch performs GET /v1/policies and returns the raw response body.
// Any 2xx status is success; anything else is a failure subject to
// reconnect, classified per-status into TransportError or RejectedError.
func (c *Client) Fetch(ctx context.Context) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, FetchTimeout)
	defer cancel()

	resp, err := c.caps.DispatchHTTPCall(ctx, c.cluster, "GET", "/v1/policies", c.authority, FetchTimeout)
	if err != nil {
		return nil, &TransportError{Err: err}
	}
	if resp == nil {
		return nil, &TransportError{Err: errors.New("no response from host")}
	}
	defer func() { _ = resp.Body.Close() }()

	body, readErr := io.ReadAll(resp.Body)

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		if readErr != nil {
			return nil, &TransportError{Status: resp.StatusCode, Err: readErr}
		}
		return body, nil
	case resp.StatusCode >= 500:
		return nil, &TransportError{Status: resp.StatusCode}
	case resp.StatusCode >= 400:
		return nil, &RejectedError{Status: resp.StatusCode}
	default:
		return nil, &TransportError{Status: resp.StatusCode}
	}
}
