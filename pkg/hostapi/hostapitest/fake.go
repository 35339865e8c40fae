// Package hostapitest provides an in-memory, scriptable
// hostapi.Capabilities implementation for tests: pkg/controller's
// end-to-end scenarios drive it directly rather than standing up an HTTP
// server.
package hostapitest

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/hfi-sidecar/engine/pkg/hostapi"
)

// ScheduledCallback is a callback registered via ScheduleCallback, held
// until the test explicitly fires it with Fake.Fire.
type ScheduledCallback struct {
	Token     uint64
	After     time.Duration
	Fn        func()
	Cancelled bool
}

// Fake is a fully in-memory hostapi.Capabilities. All fields are exported
// for direct test inspection; none of it is safe to drive from multiple
// goroutines without External synchronization beyond what's noted below.
type Fake struct {
	mu sync.Mutex

	RequestHeaders map[string]string
	Properties     map[string]string // joined by "." e.g. "node.metadata.WORKLOAD_NAME"

	Now time.Time

	SentStatus  int
	SentHeaders http.Header
	SentBody    []byte
	ResponseSent bool

	DispatchResponses []DispatchResult
	dispatchCalls     int

	nextToken   uint64
	Callbacks   map[uint64]*ScheduledCallback

	counterNames   map[string]hostapi.MetricID
	histogramNames map[string]hostapi.MetricID
	nextMetricID   hostapi.MetricID
	CounterValues  map[hostapi.MetricID]uint64
	HistogramObs   map[hostapi.MetricID][]float64

	// CriticalLogs records every LogCritical call, for tests asserting
	// pkg/panicguard reached the host's own logging channel.
	CriticalLogs []CriticalLog
}

// CriticalLog is one recorded LogCritical call.
type CriticalLog struct {
	Op  string
	Msg string
}

// DispatchResult is a scripted response (or error) for one DispatchHTTPCall.
type DispatchResult struct {
	Response *http.Response
	Err      error
}

// New returns a ready-to-use Fake with empty headers/properties and Now
// set to the given instant.
func New(now time.Time) *Fake {
	return &Fake{
		RequestHeaders: make(map[string]string),
		Properties:     make(map[string]string),
		Now:            now,
		Callbacks:      make(map[uint64]*ScheduledCallback),
		counterNames:   make(map[string]hostapi.MetricID),
		histogramNames: make(map[string]hostapi.MetricID),
		CounterValues:  make(map[hostapi.MetricID]uint64),
		HistogramObs:   make(map[hostapi.MetricID][]float64),
	}
}

func (f *Fake) GetRequestHeader(name string) (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.RequestHeaders[name]
	return v, ok
}

func (f *Fake) SendHTTPResponse(status int, headers http.Header, body []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.SentStatus = status
	f.SentHeaders = headers
	f.SentBody = body
	f.ResponseSent = true
}

func (f *Fake) DispatchHTTPCall(_ context.Context, _, _, _, _ string, _ time.Duration) (*http.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.dispatchCalls >= len(f.DispatchResponses) {
		return nil, nil
	}
	res := f.DispatchResponses[f.dispatchCalls]
	f.dispatchCalls++
	return res.Response, res.Err
}

func (f *Fake) ScheduleCallback(after time.Duration) (uint64, func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextToken++
	token := f.nextToken
	cb := &ScheduledCallback{Token: token, After: after}
	f.Callbacks[token] = cb
	return token, func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		if c, ok := f.Callbacks[token]; ok {
			c.Cancelled = true
		}
	}
}

// Fire invokes fn for a previously scheduled token, as if the host's timer
// had elapsed, unless it was cancelled in the meantime.
func (f *Fake) Fire(token uint64, fn func()) {
	f.mu.Lock()
	cb, ok := f.Callbacks[token]
	f.mu.Unlock()
	if !ok || cb.Cancelled {
		return
	}
	fn()
}

func (f *Fake) RegisterCounter(name string) hostapi.MetricID {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextMetricID++
	id := f.nextMetricID
	f.counterNames[name] = id
	f.CounterValues[id] = 0
	return id
}

func (f *Fake) RegisterHistogram(name string) hostapi.MetricID {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextMetricID++
	id := f.nextMetricID
	f.histogramNames[name] = id
	return id
}

func (f *Fake) IncrementCounter(id hostapi.MetricID, delta uint64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.CounterValues[id] += delta
}

func (f *Fake) RecordHistogram(id hostapi.MetricID, value float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.HistogramObs[id] = append(f.HistogramObs[id], value)
}

func (f *Fake) NowMillis() uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return uint64(f.Now.UnixMilli())
}

func (f *Fake) LogCritical(op, msg string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.CriticalLogs = append(f.CriticalLogs, CriticalLog{Op: op, Msg: msg})
}

func (f *Fake) GetProperty(path []string) (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := joinDot(path)
	v, ok := f.Properties[key]
	return v, ok
}

func joinDot(path []string) string {
	out := ""
	for i, p := range path {
		if i > 0 {
			out += "."
		}
		out += p
	}
	return out
}

var _ hostapi.Capabilities = (*Fake)(nil)
