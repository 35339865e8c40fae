package nethost

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/hfi-sidecar/engine/pkg/hostapi"
	"github.com/hfi-sidecar/engine/pkg/metrics"
)

// capabilitiesCore implements every hostapi.Capabilities method that does
// not need a concrete request/response pair: outbound dispatch, the
// timer, metric registration/recording, the wall clock, and node
// properties. Both RequestCapabilities (bound to one in-flight request)
// and Background (used once at startup and by the Root Controller's poll
// loop, which has no request of its own) embed it.
type capabilitiesCore struct {
	host *Host

	mu        sync.Mutex
	nextToken uint64
	timers    map[uint64]*time.Timer
	// pendingDone is the completion channel of the most recently
	// scheduled callback. nethost's controllers never have more than one
	// callback pending at a time (start-delay and fault-delay are
	// strictly sequential, never concurrent), so a single slot suffices.
	pendingDone chan struct{}
}

func (c *capabilitiesCore) DispatchHTTPCall(ctx context.Context, _ string, method, path, authority string, timeout time.Duration) (*http.Response, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	url := fmt.Sprintf("http://%s%s", authority, path)
	req, err := http.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		return nil, err
	}
	return c.host.httpClient.Do(req)
}

// ScheduleCallback starts a real timer and returns its token/cancel pair.
// Unlike a WASM host, nethost cannot reach back into the request's
// goroutine on its own; instead it records the timer's completion channel
// so the driving Middleware can block on AwaitCallback until it fires.
func (c *capabilitiesCore) ScheduleCallback(after time.Duration) (uint64, func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.timers == nil {
		c.timers = make(map[uint64]*time.Timer)
	}
	c.nextToken++
	token := c.nextToken
	done := make(chan struct{})
	timer := time.AfterFunc(after, func() { close(done) })
	c.timers[token] = timer
	c.pendingDone = done

	return token, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if t, ok := c.timers[token]; ok {
			t.Stop()
			delete(c.timers, token)
		}
	}
}

// AwaitCallback blocks until the most recently scheduled callback fires.
// It is a no-op if nothing is pending.
func (c *capabilitiesCore) AwaitCallback() {
	c.mu.Lock()
	done := c.pendingDone
	c.mu.Unlock()
	if done != nil {
		<-done
	}
}

func (c *capabilitiesCore) RegisterCounter(name string) hostapi.MetricID {
	counter := c.host.Registry.NewCounter(sanitizeMetricName(name), name)
	return c.host.registerCounterHandle(counter)
}

func (c *capabilitiesCore) RegisterHistogram(name string) hostapi.MetricID {
	hist := c.host.Registry.NewHistogram(sanitizeMetricName(name), name, metrics.DefaultDelayBucketsMs)
	return c.host.registerHistogramHandle(hist)
}

func (c *capabilitiesCore) IncrementCounter(id hostapi.MetricID, delta uint64) {
	c.host.mu.RLock()
	counter, ok := c.host.counters[id]
	c.host.mu.RUnlock()
	if !ok {
		return
	}
	_ = counter.Add(float64(delta))
}

func (c *capabilitiesCore) RecordHistogram(id hostapi.MetricID, value float64) {
	c.host.mu.RLock()
	hist, ok := c.host.histograms[id]
	c.host.mu.RUnlock()
	if !ok {
		return
	}
	_ = hist.Observe(value)
}

func (c *capabilitiesCore) NowMillis() uint64 {
	return uint64(time.Now().UnixMilli())
}

// LogCritical is nethost's stand-in for a real proxy host's own native
// logging channel: it writes to the Host's hostLog at Error level with a
// "critical" attribute, kept distinct from whatever *slog.Logger the
// engine's own components log through.
func (c *capabilitiesCore) LogCritical(op, msg string) {
	c.host.hostLog.Error(msg, "op", op, "critical", true)
}

func (c *capabilitiesCore) GetProperty(path []string) (string, bool) {
	joined := strings.Join(path, ".")
	switch joined {
	case "node.metadata.WORKLOAD_NAME":
		if c.host.Identity.WorkloadName == "" {
			return "", false
		}
		return c.host.Identity.WorkloadName, true
	case "node.metadata.NAMESPACE":
		if c.host.Identity.Namespace == "" {
			return "", false
		}
		return c.host.Identity.Namespace, true
	case "node.metadata.NAME":
		if c.host.Identity.PodName == "" {
			return "", false
		}
		return c.host.Identity.PodName, true
	case "node.cluster":
		if c.host.Identity.Cluster == "" {
			return "", false
		}
		return c.host.Identity.Cluster, true
	default:
		return "", false
	}
}

func sanitizeMetricName(name string) string {
	return strings.NewReplacer(".", "_", "-", "_").Replace(name)
}

// RequestCapabilities implements hostapi.Capabilities for one in-flight
// net/http request. A new one is constructed per request by Host.ForRequest.
type RequestCapabilities struct {
	capabilitiesCore
	w http.ResponseWriter
	r *http.Request

	sentMu sync.Mutex
	sent   bool
}

var _ hostapi.Capabilities = (*RequestCapabilities)(nil)

// GetRequestHeader resolves the two pseudo-headers the core relies on
// (":path", ":method") from the request line, and anything else from the
// real header map, case-insensitively per http.Header.Get.
func (c *RequestCapabilities) GetRequestHeader(name string) (string, bool) {
	switch name {
	case ":path":
		if c.r.URL.Path == "" {
			return "", false
		}
		return c.r.URL.Path, true
	case ":method":
		if c.r.Method == "" {
			return "", false
		}
		return c.r.Method, true
	}
	v := c.r.Header.Get(name)
	if v == "" {
		return "", false
	}
	return v, true
}

// SendHTTPResponse writes the short-circuit response and records that one
// was sent, so the driving Middleware knows not to forward the request to
// the wrapped handler afterward.
func (c *RequestCapabilities) SendHTTPResponse(status int, headers http.Header, body []byte) {
	dst := c.w.Header()
	for k, vs := range headers {
		for _, v := range vs {
			dst.Add(k, v)
		}
	}
	c.w.WriteHeader(status)
	_, _ = c.w.Write(body)

	c.sentMu.Lock()
	c.sent = true
	c.sentMu.Unlock()
}

// ResponseSent reports whether SendHTTPResponse has already fired for
// this request (i.e. an abort was emitted).
func (c *RequestCapabilities) ResponseSent() bool {
	c.sentMu.Lock()
	defer c.sentMu.Unlock()
	return c.sent
}

// Background implements hostapi.Capabilities for contexts with no
// concrete in-flight request: Root Controller startup (metric
// registration) and its poll loop (Control-Plane dispatch, wall clock).
// GetRequestHeader/SendHTTPResponse are never meaningful here and are
// implemented as safe no-ops rather than omitted, so Background still
// satisfies the interface the core depends on everywhere.
type Background struct {
	capabilitiesCore
}

var _ hostapi.Capabilities = (*Background)(nil)

func (b *Background) GetRequestHeader(string) (string, bool) { return "", false }

func (b *Background) SendHTTPResponse(int, http.Header, []byte) {}
