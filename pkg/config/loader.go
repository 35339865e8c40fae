package config

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/hfi-sidecar/engine/pkg/durationparse"
	"github.com/hfi-sidecar/engine/pkg/identity"
	"github.com/hfi-sidecar/engine/pkg/matching"
	"github.com/hfi-sidecar/engine/pkg/policyapi"
	"github.com/hfi-sidecar/engine/pkg/rules"
)

// Load turns a raw Control-Plane policies response into a CompiledRuleSet.
//
// Load is pure apart from logging and the single wall-clock read: it never
// mutates an existing ruleset, and the order of input policies and their
// rules is preserved in the output. Load runs schema validation itself
// (via pkg/policyapi.ParseAndValidate); beyond that it degrades
// individual malformed fields (bad regex, bad duration) rather than
// rejecting the whole batch, matching the matcher package's own
// degrade-don't-abort policy.
func Load(raw []byte, id *identity.EnvoyIdentity, now time.Time, log *slog.Logger) (*rules.CompiledRuleSet, error) {
	if log == nil {
		log = slog.Default()
	}

	policies, err := policyapi.ParseAndValidate(raw)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	creationTimeMs := uint64(now.UnixMilli())
	failOpen := identity.FailOpen(id)

	var (
		total     = len(policies.Policies)
		filtered  int
		wildcards int
		out       []rules.CompiledRule
	)

	for _, p := range policies.Policies {
		selector := identity.ServiceSelector{
			Service:   p.Spec.Selector.Service,
			Namespace: p.Spec.Selector.Namespace,
		}
		if selector.IsWildcard() {
			wildcards++
		}
		if !identity.Keep(id, selector) {
			filtered++
			continue
		}

		for _, r := range p.Spec.Rules {
			compiled := rules.CompiledRule{
				Name:           p.Metadata.Name,
				Match:          buildMatchCondition(r.Match),
				Fault:          buildFault(r.Fault, log),
				CreationTimeMs: creationTimeMs,
			}
			compiled.Match.Compile(log)
			out = append(out, compiled)
		}
	}

	log.Info("ruleset loaded",
		"total_policies", total,
		"filtered_out", filtered,
		"applicable_policies", total-filtered,
		"wildcard_policies", wildcards,
		"fail_open", failOpen,
		"compiled_rules", len(out),
	)

	// The wire payload carries no version field of its own; the load
	// timestamp doubles as the ruleset's version for diagnostics (see
	// GET /debug/ruleset).
	return &rules.CompiledRuleSet{
		Version: now.UTC().Format(time.RFC3339Nano),
		Rules:   out,
	}, nil
}

func buildMatchCondition(spec policyapi.MatchSpec) matching.MatchCondition {
	var cond matching.MatchCondition
	if spec.Path != nil {
		cond.Path = &matching.PathMatcher{
			Exact:  spec.Path.Exact,
			Prefix: spec.Path.Prefix,
			Regex:  spec.Path.Regex,
		}
	}
	if spec.Method != nil {
		cond.Method = &matching.StringMatcher{
			Exact:  spec.Method.Exact,
			Prefix: spec.Method.Prefix,
			Regex:  spec.Method.Regex,
		}
	}
	for _, h := range spec.Headers {
		cond.Headers = append(cond.Headers, matching.HeaderMatcher{
			Name: h.Name,
			StringMatcher: matching.StringMatcher{
				Exact:  h.Exact,
				Prefix: h.Prefix,
				Regex:  h.Regex,
			},
		})
	}
	return cond
}

func buildFault(spec policyapi.FaultSpec, log *slog.Logger) rules.Fault {
	fault := rules.Fault{
		Percentage:      spec.Percentage,
		StartDelayMs:    spec.StartDelayMs,
		DurationSeconds: spec.DurationSeconds,
	}
	if spec.Abort != nil {
		fault.Abort = &rules.AbortAction{
			HTTPStatus: spec.Abort.HTTPStatus,
			Body:       spec.Abort.Body,
		}
	}
	if spec.Delay != nil {
		delay := &rules.DelayAction{FixedDelay: spec.Delay.FixedDelay}
		if ms, err := durationparse.Parse(spec.Delay.FixedDelay); err != nil {
			log.Warn("fixed_delay failed to parse; delay disabled for this rule",
				"fixed_delay", spec.Delay.FixedDelay, "error", err)
		} else {
			delay.ParsedDurationMs = &ms
		}
		fault.Delay = delay
	}
	return fault
}
