// Package fields turns the localized text of a results table cell into typed
// values. Every parser is total: unparseable input yields nil, never an error.
package fields

import (
	"keiba-etl/lib/textutil"
	"regexp"
	"strconv"
	"strings"
)

func clean(s string) string {
	return strings.TrimSpace(textutil.Fold(s))
}

// ParseInt parses an integer such as "1,230" or "１８".
func ParseInt(s string) *int {
	s = strings.ReplaceAll(clean(s), ",", "")
	if s == "" {
		return nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return nil
	}
	return &n
}

// ParseFloat parses a plain decimal such as "3.4" or "1,234.5".
func ParseFloat(s string) *float64 {
	s = strings.ReplaceAll(clean(s), ",", "")
	if s == "" {
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &f
}

var nonDecimal = regexp.MustCompile(`[^0-9.]`)

// ParseDecimal keeps only digits and dots before parsing, which drops marks
// like the apprentice symbols in "▲55.0".
func ParseDecimal(s string) *float64 {
	return ParseFloat(nonDecimal.ReplaceAllString(clean(s), ""))
}

var nonDigit = regexp.MustCompile(`[^0-9]`)

// ParseDigits keeps only digits before parsing, ex. "1,230円" or "3人気".
func ParseDigits(s string) *int {
	return ParseInt(nonDigit.ReplaceAllString(clean(s), ""))
}

// ParsePrizeMan converts a prize expressed in units of 10,000 yen (the
// "万円" columns) into yen.
func ParsePrizeMan(s string) *int {
	man := ParseFloat(s)
	if man == nil {
		return nil
	}
	yen := int(*man*10000 + 0.5)
	return &yen
}
