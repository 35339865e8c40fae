package controller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/hfi-sidecar/engine/pkg/config"
	"github.com/hfi-sidecar/engine/pkg/cpclient"
	"github.com/hfi-sidecar/engine/pkg/delaytracker"
	"github.com/hfi-sidecar/engine/pkg/hostapi"
	"github.com/hfi-sidecar/engine/pkg/identity"
	"github.com/hfi-sidecar/engine/pkg/metrics"
	"github.com/hfi-sidecar/engine/pkg/panicguard"
	"github.com/hfi-sidecar/engine/pkg/reconnect"
	"github.com/hfi-sidecar/engine/pkg/rules"
)

// DefaultRefreshInterval is how long the Root Controller waits before its
// next poll after a successful config load.
const DefaultRefreshInterval = 30 * time.Second

// RootController owns the shared ruleset and drives the Control-Plane
// poll/reconnect loop. It is constructed once per
// process (or per plugin instance) and is safe for concurrent use: the
// ruleset is guarded by a dedicated RWMutex, and config dispatch is
// collapsed through singleflight so a slow in-flight fetch is never
// duplicated by an overlapping tick.
type RootController struct {
	caps      hostapi.Capabilities
	client    *cpclient.Client
	reconnect *reconnect.Policy
	identity  *identity.EnvoyIdentity
	log       *slog.Logger

	metrics *metrics.Metrics
	tracker *delaytracker.Tracker
	handles metricHandles

	refreshInterval time.Duration

	mu      sync.RWMutex
	ruleset *rules.CompiledRuleSet

	sf singleflight.Group
}

// New constructs a RootController and registers the three fault-injection
// metric handles with the host immediately. caps is the
// host-wide "bootstrap" capability view — see pkg/nethost.Host.ForBackground
// for the reference-host equivalent of the per-VM context a real proxy
// would hand this at startup, as opposed to the per-request Capabilities
// handed to RequestController.
func New(caps hostapi.Capabilities, controlPlaneAuthority string, id *identity.EnvoyIdentity, log *slog.Logger) *RootController {
	if log == nil {
		log = slog.Default()
	}
	rc := &RootController{
		caps:            caps,
		client:          cpclient.New(caps, controlPlaneAuthority),
		reconnect:       reconnect.Default(),
		identity:        id,
		log:             log,
		metrics:         metrics.New(),
		tracker:         delaytracker.New(),
		refreshInterval: DefaultRefreshInterval,
	}
	rc.handles = metricHandles{
		aborts:         caps.RegisterCounter(MetricAbortsTotal),
		delays:         caps.RegisterCounter(MetricDelaysTotal),
		delayHistogram: caps.RegisterHistogram(MetricDelayDurationMs),
	}
	return rc
}

// Metrics returns the engine's process-wide counter set, for the admin
// diagnostics surface.
func (rc *RootController) Metrics() *metrics.Metrics { return rc.metrics }

// Snapshot returns the currently published ruleset (nil before the first
// successful load). The returned pointer is immutable and safe to hold
// for the lifetime of a single request.
func (rc *RootController) Snapshot() *rules.CompiledRuleSet {
	rc.mu.RLock()
	defer rc.mu.RUnlock()
	return rc.ruleset
}

// NewRequestController builds a RequestController bound to the current
// ruleset snapshot, ready to run a single request through
// OnRequestHeaders/OnScheduledCallback.
func (rc *RootController) NewRequestController(requestID string, arrivalTimeMs uint64) *RequestController {
	return NewRequestController(rc.Snapshot(), rc.metrics, rc.log, rc.tracker, rc.handles, requestID, arrivalTimeMs)
}

// Tick drives one iteration of the config poll loop. It
// fetches and loads a new ruleset, publishing it on success. The returned
// duration is how long the caller should wait before calling Tick again;
// keepTicking is false only once the reconnect policy's error-class-aware
// attempt ceiling has been exceeded, at which point the caller must stop
// rearming the tick until an external event (e.g. operator intervention)
// restarts polling.
func (rc *RootController) Tick(ctx context.Context) (delay time.Duration, keepTicking bool) {
	_, err, _ := rc.sf.Do("poll", func() (any, error) {
		return nil, rc.poll(ctx)
	})
	if err == nil {
		rc.reconnect.OnSuccess()
		return rc.refreshInterval, true
	}

	rc.log.Warn("config fetch failed", "error", err)
	d, ok := rc.reconnect.OnFailure(classifyFetchError(err))
	if !ok {
		rc.log.Error("reconnect attempts exhausted; giving up until external success")
		return 0, false
	}
	return d, true
}

// poll performs one fetch-and-load cycle, wrapped in panicguard since it
// is itself a host-entry boundary.
func (rc *RootController) poll(ctx context.Context) error {
	raw, err := rc.client.Fetch(ctx)
	if err != nil {
		return err
	}

	return panicguard.Guard("config_response", rc.log, rc.caps, func() error {
		now := time.UnixMilli(int64(rc.caps.NowMillis()))
		loaded, loadErr := config.Load(raw, rc.identity, now, rc.log)
		if loadErr != nil {
			return fmt.Errorf("%w: %v", errConfigParse, loadErr)
		}
		rc.publish(loaded)
		return nil
	})
}

func (rc *RootController) publish(rs *rules.CompiledRuleSet) {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	rc.ruleset = rs
	rc.log.Debug("ruleset published", "version", rs.Version, "rules", len(rs.Rules))
}

// errConfigParse marks a malformed Control-Plane payload (bad JSON,
// schema mismatch, or a Load-time error). It is deliberately folded into
// the same reconnect backoff path as a transport failure: a stale good ruleset is preferable to discarding it over
// one bad fetch.
var errConfigParse = errors.New("config: parse failed")

// classifyFetchError maps a poll failure onto the reconnect policy's
// error classes: a rejected (4xx) response is Permanent, a transport (5xx
// or dispatch) failure is classified by its observed status, and a parse
// failure (or anything else unrecognized) is treated as Temporary so it
// gets the full retry budget rather than the two-attempt cap reserved for
// errors retrying will not fix.
func classifyFetchError(err error) reconnect.ErrorType {
	var rejected *cpclient.RejectedError
	if errors.As(err, &rejected) {
		return reconnect.ClassifyHTTPStatus(rejected.Status)
	}
	var transport *cpclient.TransportError
	if errors.As(err, &transport) {
		if transport.Status != 0 {
			return reconnect.ClassifyHTTPStatus(transport.Status)
		}
		return reconnect.Temporary
	}
	return reconnect.Temporary
}
