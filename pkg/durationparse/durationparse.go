// Package durationparse implements the fixed-delay duration grammar used by
// Control-Plane fault specs: "Nms" | "Ns" | "Nm" | "N", all evaluated to
// milliseconds. This is intentionally not time.ParseDuration: that parser
// rejects bare digits and accepts compound forms ("1h30m") this grammar does
// not define, so reusing it would either silently accept out-of-grammar
// input or reject legal input.
package durationparse

import (
	"fmt"
	"strconv"
	"strings"
)

// Parse converts a duration string in the "Nms"|"Ns"|"Nm"|"N" grammar to
// milliseconds. The string is lowercased before matching. A bare-digits
// string or one suffixed with "ms" is already in milliseconds; "s" and "m"
// scale by 1000 and 60000 respectively.
func Parse(s string) (uint64, error) {
	lower := strings.ToLower(strings.TrimSpace(s))
	if lower == "" {
		return 0, fmt.Errorf("duration string is empty")
	}

	switch {
	case strings.HasSuffix(lower, "ms"):
		return parseDigits(strings.TrimSuffix(lower, "ms"), 1)
	case strings.HasSuffix(lower, "s"):
		return parseDigits(strings.TrimSuffix(lower, "s"), 1000)
	case strings.HasSuffix(lower, "m"):
		return parseDigits(strings.TrimSuffix(lower, "m"), 60_000)
	default:
		return parseDigits(lower, 1)
	}
}

func parseDigits(digits string, scale uint64) (uint64, error) {
	if digits == "" {
		return 0, fmt.Errorf("duration %q has no numeric component", digits)
	}
	n, err := strconv.ParseUint(digits, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid duration digits %q: %w", digits, err)
	}
	return n * scale, nil
}

// Render renders a millisecond count back to the canonical "Nms" form. It is
// the right inverse of Parse restricted to canonical inputs: Parse(Render(n))
// always equals n, though Render never produces the "Ns"/"Nm"/bare forms —
// those are accepted on input but "Nms" is the one canonical output shape.
func Render(ms uint64) string {
	return strconv.FormatUint(ms, 10) + "ms"
}
