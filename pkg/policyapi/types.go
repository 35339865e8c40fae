package policyapi

import "encoding/json"

// Policies is the top-level Control Plane response body.
type Policies struct {
	Policies []Policy `json:"policies"`
}

// Policy is a named bundle of rules scoped to a service selector.
type Policy struct {
	Metadata PolicyMetadata `json:"metadata"`
	Spec     PolicySpec     `json:"spec"`
}

type PolicyMetadata struct {
	Name string `json:"name"`
}

// PolicySpec carries the selector that decides whether this policy applies
// to the sidecar's own workload, plus its ordered rule list.
type PolicySpec struct {
	Selector Selector `json:"selector"`
	Rules    []Rule   `json:"rules"`
}

// Selector mirrors pkg/identity.ServiceSelector on the wire. Empty or "*"
// fields are wildcards, resolved by pkg/identity at load time.
type Selector struct {
	Service   string `json:"service"`
	Namespace string `json:"namespace"`
}

// Rule is one match/fault pair, in the order it should be evaluated.
type Rule struct {
	Match MatchSpec `json:"match"`
	Fault FaultSpec `json:"fault"`
}

// MatchSpec is the wire shape of a matching.MatchCondition.
type MatchSpec struct {
	Path    *StringMatchSpec  `json:"path,omitempty"`
	Method  *StringMatchSpec  `json:"method,omitempty"`
	Headers []HeaderMatchSpec `json:"headers,omitempty"`
}

// StringMatchSpec is the wire shape of a matching.StringMatcher.
type StringMatchSpec struct {
	Exact  string `json:"exact,omitempty"`
	Prefix string `json:"prefix,omitempty"`
	Regex  string `json:"regex,omitempty"`
}

// HeaderMatchSpec adds a header name to a StringMatchSpec.
type HeaderMatchSpec struct {
	Name string `json:"name"`
	StringMatchSpec
}

// FaultSpec is the wire shape of a rules.Fault.
type FaultSpec struct {
	Abort *AbortSpec `json:"abort,omitempty"`
	Delay *DelaySpec `json:"delay,omitempty"`

	Percentage      uint32 `json:"percentage"`
	StartDelayMs    uint32 `json:"start_delay_ms,omitempty"`
	DurationSeconds uint32 `json:"duration_seconds,omitempty"`
}

// AbortSpec is the wire shape of a rules.AbortAction. Control Plane
// producers have been observed to send either camelCase or snake_case for
// the status field; UnmarshalJSON tolerates both rather than rejecting
// payloads from older producers.
type AbortSpec struct {
	HTTPStatus uint32 `json:"-"`
	Body       string `json:"body,omitempty"`
}

func (a *AbortSpec) UnmarshalJSON(data []byte) error {
	var aux struct {
		HTTPStatusCamel uint32 `json:"httpStatus"`
		HTTPStatusSnake uint32 `json:"http_status"`
		Body            string `json:"body,omitempty"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	a.Body = aux.Body
	if aux.HTTPStatusCamel != 0 {
		a.HTTPStatus = aux.HTTPStatusCamel
	} else {
		a.HTTPStatus = aux.HTTPStatusSnake
	}
	return nil
}

func (a AbortSpec) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		HTTPStatus uint32 `json:"httpStatus"`
		Body       string `json:"body,omitempty"`
	}{HTTPStatus: a.HTTPStatus, Body: a.Body})
}

// DelaySpec is the wire shape of a rules.DelayAction.
type DelaySpec struct {
	FixedDelay string `json:"fixed_delay"`
}
