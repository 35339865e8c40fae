// Package matching implements the pre-compiled request predicates used by the
// fault-injection engine: path, method and header matchers that decide
// whether a rule's match condition applies to a given request.
//
// A matcher is a disjunction selector: at most one of {Exact, Prefix, Regex}
// is consulted, in that priority order. A matcher with none of the three set
// matches anything on its dimension — absence of the matcher itself (a nil
// pointer) means "don't constrain this dimension at all".
package matching
