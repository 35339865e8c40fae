package nethost

import (
	"log/slog"
	"net/http"
	"sync"

	"github.com/hfi-sidecar/engine/pkg/hostapi"
	"github.com/hfi-sidecar/engine/pkg/metrics"
)

// Identity is the static node-property bundle a real deployment would
// otherwise read off Envoy's node metadata. nethost has no such metadata
// source of its own, so it is supplied at construction time.
type Identity struct {
	WorkloadName string
	Namespace    string
	PodName      string
	Cluster      string
}

// Host owns the process-wide state shared by every request's Capabilities
// view: the metric registry, the outbound HTTP client used for the
// Control Plane fetch, and this sidecar's own identity.
type Host struct {
	Registry   *metrics.Registry
	Identity   Identity
	httpClient *http.Client
	// hostLog is nethost's stand-in for a real proxy host's own native
	// logging channel (e.g. Envoy's error log via proxy_wasm::hostcalls),
	// kept distinct from whatever *slog.Logger the engine's own
	// components are constructed with. It backs LogCritical.
	hostLog *slog.Logger

	mu         sync.RWMutex
	nextHandle hostapi.MetricID
	counters   map[hostapi.MetricID]*metrics.Counter
	histograms map[hostapi.MetricID]*metrics.Histogram
}

// New constructs a Host. httpClient defaults to http.DefaultClient's
// timeout-free shape if nil; callers typically pass one with sane
// connection pooling. hostLog defaults to slog.Default() if nil.
func New(identity Identity, httpClient *http.Client, hostLog *slog.Logger) *Host {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	if hostLog == nil {
		hostLog = slog.Default()
	}
	return &Host{
		Registry:   metrics.NewRegistry(),
		Identity:   identity,
		httpClient: httpClient,
		hostLog:    hostLog,
		counters:   make(map[hostapi.MetricID]*metrics.Counter),
		histograms: make(map[hostapi.MetricID]*metrics.Histogram),
	}
}

// registerCounterHandle mints a fresh MetricID for a just-registered
// counter, so RequestCapabilities.IncrementCounter can look it back up
// without ever exposing the concrete *metrics.Counter to the core.
func (h *Host) registerCounterHandle(c *metrics.Counter) hostapi.MetricID {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.nextHandle++
	id := h.nextHandle
	h.counters[id] = c
	return id
}

func (h *Host) registerHistogramHandle(hist *metrics.Histogram) hostapi.MetricID {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.nextHandle++
	id := h.nextHandle
	h.histograms[id] = hist
	return id
}

// ForRequest returns a hostapi.Capabilities bound to a single in-flight
// request. Its methods are not safe for concurrent use by multiple
// goroutines handling the *same* request, matching the single-threaded
// cooperative model the core assumes.
func (h *Host) ForRequest(w http.ResponseWriter, r *http.Request) *RequestCapabilities {
	return &RequestCapabilities{
		capabilitiesCore: capabilitiesCore{host: h},
		w:                w,
		r:                r,
	}
}

// ForBackground returns a hostapi.Capabilities with no concrete in-flight
// request, for the Root Controller's own startup and poll loop.
func (h *Host) ForBackground() *Background {
	return &Background{capabilitiesCore: capabilitiesCore{host: h}}
}

// MetricsHandler exposes the underlying registry in Prometheus text
// exposition format. Nothing in this module mounts it: pkg/admin's
// /metrics serves Metrics.Snapshot() instead.
func (h *Host) MetricsHandler() http.Handler {
	return h.Registry.Handler()
}
