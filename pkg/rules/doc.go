// Package rules defines the compiled rule and ruleset model the
// fault-injection engine matches requests against: abort/delay actions, a
// fault's percentage and timing gates, and the ordered, versioned ruleset
// that holds them.
package rules
