// Package timeutil parses human-friendly time spans such as "3d" or "1w",
// used for the expiring-soon horizon preference.
package timeutil

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

const (
	// DefaultHorizon is the fallback expiring-soon span used when none is
	// configured.
	DefaultHorizon = "3d"

	day  = 24 * time.Hour
	week = 7 * day
)

var (
	spanPattern = regexp.MustCompile(`^\s*(\d+)\s*([a-z]+)`)
	unitMap     = map[string]time.Duration{
		"h":     time.Hour,
		"hr":    time.Hour,
		"hrs":   time.Hour,
		"hour":  time.Hour,
		"hours": time.Hour,
		"d":     day,
		"day":   day,
		"days":  day,
		"w":     week,
		"wk":    week,
		"wks":   week,
		"week":  week,
		"weeks": week,
	}
)

// ParseSpan parses a span string (for example "3d", "1w", or "1w2d") and
// returns the equivalent duration along with a canonical compact
// representation. An empty input yields the default horizon.
func ParseSpan(input string) (time.Duration, string, error) {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		trimmed = DefaultHorizon
	}

	remaining := strings.ToLower(trimmed)
	total := time.Duration(0)
	for len(remaining) > 0 {
		matches := spanPattern.FindStringSubmatch(remaining)
		if len(matches) != 3 {
			return 0, "", fmt.Errorf("timeutil: invalid span segment %q", strings.TrimSpace(remaining))
		}
		value, err := strconv.ParseInt(matches[1], 10, 64)
		if err != nil {
			return 0, "", fmt.Errorf("timeutil: invalid span value %q: %w", matches[1], err)
		}
		base, ok := unitMap[matches[2]]
		if !ok {
			return 0, "", fmt.Errorf("timeutil: unknown span unit %q", matches[2])
		}
		total += time.Duration(value) * base
		remaining = strings.TrimSpace(remaining[len(matches[0]):])
	}
	if total <= 0 {
		return 0, "", fmt.Errorf("timeutil: span %q is empty", input)
	}
	return total, Canonical(total), nil
}

// Days converts a span to whole days, rounding partial days up so that "36h"
// still covers two calendar days.
func Days(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	days := int(d / day)
	if d%day != 0 {
		days++
	}
	return days
}

// Canonical renders a duration in compact week/day/hour segments.
func Canonical(d time.Duration) string {
	var b strings.Builder
	for _, seg := range []struct {
		unit time.Duration
		tag  string
	}{{week, "w"}, {day, "d"}, {time.Hour, "h"}} {
		if n := d / seg.unit; n > 0 {
			fmt.Fprintf(&b, "%d%s", n, seg.tag)
			d -= n * seg.unit
		}
	}
	if b.Len() == 0 {
		return "0h"
	}
	return b.String()
}
