// Package identity holds the sidecar's own workload identity and the
// selector predicate used to decide whether a Control-Plane policy applies
// to this sidecar instance.
package identity

// ServiceSelector is a (service, namespace) predicate with wildcard
// support. An empty string in either dimension is equivalent to "*".
type ServiceSelector struct {
	Service   string
	Namespace string
}

const wildcard = "*"

func isWildcardDimension(v string) bool {
	return v == "" || v == wildcard
}

// IsWildcard reports whether both dimensions of the selector are wildcard.
func (s ServiceSelector) IsWildcard() bool {
	return isWildcardDimension(s.Service) && isWildcardDimension(s.Namespace)
}

// Matches reports whether this selector applies to the given identity.
// Each dimension matches if the selector's value is wildcard or equals the
// identity's corresponding field.
func (s ServiceSelector) Matches(id EnvoyIdentity) bool {
	if !isWildcardDimension(s.Service) && s.Service != id.WorkloadName {
		return false
	}
	if !isWildcardDimension(s.Namespace) && s.Namespace != id.Namespace {
		return false
	}
	return true
}

// EnvoyIdentity is the sidecar's own workload identity, as read from the
// host's node properties.
//
// IsValid is false when the host failed to supply a workload name or
// namespace. The fail-open policy (see Keep) depends entirely on
// this flag: an identity without a validity bit cannot implement fail-open
// semantics, because there would be no way to distinguish "this sidecar has
// no identity" from "this sidecar's identity happens to be the empty
// string", which is itself a valid (if unusual) workload/namespace pair.
type EnvoyIdentity struct {
	WorkloadName string
	Namespace    string
	PodName      string
	Cluster      string
	IsValid      bool
}

// New constructs an identity from the raw node properties, deriving
// IsValid from whether both workload and namespace were supplied.
func New(workloadName, namespace, podName, cluster string) EnvoyIdentity {
	return EnvoyIdentity{
		WorkloadName: workloadName,
		Namespace:    namespace,
		PodName:      podName,
		Cluster:      cluster,
		IsValid:      workloadName != "" && namespace != "",
	}
}

// Invalid returns the zero-value, fail-open identity: IsValid is false, so
// only wildcard selectors will match it.
func Invalid() EnvoyIdentity {
	return EnvoyIdentity{}
}

// FailOpen reports whether policies should be restricted to wildcard
// selectors: either no identity was supplied at all (nil) or the supplied
// identity is invalid.
func FailOpen(id *EnvoyIdentity) bool {
	return id == nil || !id.IsValid
}

// Keep reports whether a policy with the given selector should be retained
// for this identity, applying the fail-open rule: when identity cannot be
// established, only wildcard selectors match, never "everything" and never
// "nothing".
func Keep(id *EnvoyIdentity, selector ServiceSelector) bool {
	if FailOpen(id) {
		return selector.IsWildcard()
	}
	return selector.Matches(*id)
}
