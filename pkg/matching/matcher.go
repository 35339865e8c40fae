package matching

import (
	"log/slog"
	"net/http"
	"regexp"
	"strings"
)

// StringMatcher is a disjunction selector over a single string value: at
// most one of Exact, Prefix or Regex is consulted, checked in that priority
// order. A zero-value StringMatcher matches any value.
type StringMatcher struct {
	Exact  string
	Prefix string
	Regex  string

	// compiled is the pre-compiled regex, set by Compile. Nil if Regex is
	// empty or failed to compile (in which case Degraded is true).
	compiled *regexp.Regexp
	// Degraded is true when Regex was set but failed to compile at load
	// time; the matcher then behaves as "no such field" (never matches).
	Degraded bool
}

// PathMatcher is a StringMatcher specialized for request paths.
type PathMatcher = StringMatcher

// HeaderMatcher matches a single named header against a StringMatcher. A
// HeaderMatcher with an empty value matcher (all three fields unset) means
// "header present with any value".
type HeaderMatcher struct {
	Name string
	StringMatcher
}

// Compile pre-compiles the Regex field, if set. A compile failure degrades
// the matcher to "no such field" and logs a warning rather than returning an
// error — a single malformed regex must never invalidate the whole ruleset.
func (m *StringMatcher) Compile(log *slog.Logger) {
	if m.Regex == "" {
		return
	}
	re, err := regexp.Compile(m.Regex)
	if err != nil {
		m.Degraded = true
		if log != nil {
			log.Warn("matcher regex failed to compile; demoting to no-match",
				"pattern", m.Regex, "error", err)
		}
		return
	}
	m.compiled = re
}

// Matches reports whether value satisfies this matcher. Priority order is
// exact, then prefix, then regex; the first non-empty field wins and others
// are ignored even if also set. An entirely empty, non-degraded matcher
// matches any value.
func (m *StringMatcher) Matches(value string) bool {
	if m == nil {
		return true
	}
	switch {
	case m.Exact != "":
		return value == m.Exact
	case m.Prefix != "":
		return strings.HasPrefix(value, m.Prefix)
	case m.Regex != "":
		if m.Degraded || m.compiled == nil {
			return false
		}
		return m.compiled.MatchString(value)
	default:
		return true
	}
}

// MatchesHeader reports whether the named header satisfies this matcher.
// Header name lookup is case-insensitive (net/http.Header.Get); value
// comparison is case-sensitive. An empty value matcher means "present with
// any value", so a missing header never matches.
func (h *HeaderMatcher) MatchesHeader(headers http.Header) bool {
	values, ok := headers[http.CanonicalHeaderKey(h.Name)]
	if !ok || len(values) == 0 {
		return false
	}
	value := values[0]
	if h.Exact == "" && h.Prefix == "" && h.Regex == "" {
		return true
	}
	return h.StringMatcher.Matches(value)
}

// MatchCondition is the conjunction of an optional path matcher, an
// optional method matcher, and an optional ordered list of header matchers.
// All present dimensions must match.
type MatchCondition struct {
	Path    *PathMatcher
	Method  *StringMatcher
	Headers []HeaderMatcher
}

// Compile pre-compiles every regex-bearing matcher within the condition.
func (c *MatchCondition) Compile(log *slog.Logger) {
	if c == nil {
		return
	}
	if c.Path != nil {
		c.Path.Compile(log)
	}
	if c.Method != nil {
		c.Method.Compile(log)
	}
	for i := range c.Headers {
		c.Headers[i].Compile(log)
	}
}

// RequestView is the narrow view of an HTTP request the matchers need. It
// is supplied by the host adapter rather than a concrete *http.Request so
// the core never depends on net/http request plumbing directly.
type RequestView struct {
	Path    string
	Method  string
	Headers http.Header
}

// Matches reports whether every present dimension of the condition matches
// the request view. A nil condition matches everything.
func (c *MatchCondition) Matches(r RequestView) bool {
	if c == nil {
		return true
	}
	if c.Path != nil && !c.Path.Matches(r.Path) {
		return false
	}
	if c.Method != nil && !c.Method.Matches(r.Method) {
		return false
	}
	for i := range c.Headers {
		if !c.Headers[i].MatchesHeader(r.Headers) {
			return false
		}
	}
	return true
}
