package fields

import (
	"regexp"
	"strconv"
)

var timeRegex = regexp.MustCompile(`^(?:(\d+):)?(\d+(?:\.\d+)?)$`)

// ParseTime accepts "M:SS.s" or "SS.s" and returns total seconds.
func ParseTime(s string) *float64 {
	match := timeRegex.FindStringSubmatch(clean(s))
	if match == nil {
		return nil
	}
	seconds, err := strconv.ParseFloat(match[2], 64)
	if err != nil {
		return nil
	}
	if match[1] != "" {
		minutes, err := strconv.Atoi(match[1])
		if err != nil {
			return nil
		}
		seconds += float64(minutes) * 60
	}
	return &seconds
}

// ParseLast3F parses a sectional time cell, these sometimes carry markers
// around the number (ex. "(33.4)").
func ParseLast3F(s string) *float64 {
	return ParseDecimal(s)
}
