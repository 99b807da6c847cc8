package util

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// timeUnit represents a single unit of time (hours, minutes, or seconds) with its value and labels.
type timeUnit struct {
	value    int64
	singular string
	plural   string
}

// FormatDuration converts a time.Duration into a human-readable string.
//
// It breaks the duration into hours, minutes, and seconds with proper
// grammar, e.g. "1 hour, 2 minutes, 3 seconds", returning "0 seconds"
// for a zero duration.
//
// Parameters:
//   - duration: The time.Duration to convert.
//
// Returns:
//   - string: Formatted duration, never empty.
func FormatDuration(duration time.Duration) string {
	const (
		minutesPerHour   = 60
		secondsPerMinute = 60
	)

	units := []timeUnit{
		{int64(duration.Hours()), "hour", "hours"},
		{int64(math.Mod(duration.Minutes(), minutesPerHour)), "minute", "minutes"},
		{int64(math.Mod(duration.Seconds(), secondsPerMinute)), "second", "seconds"},
	}

	parts := make([]string, 0, len(units))
	for i, unit := range units {
		// Force seconds in when nothing else rendered, so the output is
		// never empty.
		formatted := formatTimeUnit(unit, i == len(units)-1 && len(parts) == 0)
		if formatted != "" {
			parts = append(parts, formatted)
		}
	}

	if len(parts) == 0 {
		return "0 seconds"
	}

	return strings.Join(parts, ", ")
}

// formatTimeUnit formats a single time unit, skipping zero values unless forced.
func formatTimeUnit(unit timeUnit, forceInclude bool) string {
	switch {
	case unit.value == 1:
		return "1 " + unit.singular
	case unit.value > 1 || forceInclude:
		return fmt.Sprintf("%d %s", unit.value, unit.plural)
	default:
		return ""
	}
}
