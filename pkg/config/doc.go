// Package config implements the Ruleset Loader: the pure function that
// turns a raw Control-Plane policies payload plus the sidecar's own
// identity into a compiled, ready-to-match CompiledRuleSet.
package config
