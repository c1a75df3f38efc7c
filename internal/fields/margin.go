package fields

import (
	"keiba-etl/lib/textutil"
	"regexp"
	"strconv"
	"strings"
)

// MarginScale converts finishing margins into seconds. Lengths are measured in
// body lengths and converted with SecondsPerLength.
//
// The constants are rough heuristics, any margin derived from them is an
// approximation and must be treated as such downstream.
type MarginScale struct {
	SecondsPerLength float64 `json:"seconds_per_length"`
	Nose             float64 `json:"nose"`
	Head             float64 `json:"head"`
	Neck             float64 `json:"neck"`
}

func DefaultMarginScale() MarginScale {
	return MarginScale{
		SecondsPerLength: 0.2,
		Nose:             0.1,
		Head:             0.2,
		Neck:             0.3,
	}
}

var (
	mixedLengthRegex    = regexp.MustCompile(`^(\d+)[.\s](\d)/(\d)$`)
	fractionLengthRegex = regexp.MustCompile(`^(\d)/(\d)$`)
	plainLengthRegex    = regexp.MustCompile(`^\d+(?:\.\d+)?$`)
)

func fraction(num, den string) (float64, bool) {
	n, err := strconv.Atoi(num)
	if err != nil {
		return 0, false
	}
	d, err := strconv.Atoi(den)
	if err != nil || d == 0 {
		return 0, false
	}
	return float64(n) / float64(d), true
}

// Lengths parses a margin into body lengths. ok is false when the margin is
// unbounded ("大差") or unparseable.
func (m MarginScale) Lengths(s string) (lengths float64, ok bool) {
	txt := textutil.Collapse(textutil.Fold(s))
	txt = strings.TrimSpace(strings.TrimSuffix(txt, "馬身"))
	if txt == "" || txt == "-" {
		return 0, false
	}

	switch {
	case strings.Contains(txt, "大差"):
		return 0, false
	case strings.Contains(txt, "同着"):
		return 0, true
	case strings.Contains(txt, "ハナ"), strings.Contains(txt, "鼻"):
		return m.Nose, true
	case strings.Contains(txt, "アタマ"), strings.Contains(txt, "頭"):
		return m.Head, true
	case strings.Contains(txt, "クビ"), strings.Contains(txt, "首"):
		return m.Neck, true
	case strings.Contains(txt, "半"):
		return 0.5, true
	}

	if match := mixedLengthRegex.FindStringSubmatch(txt); match != nil {
		whole, err := strconv.Atoi(match[1])
		if err != nil {
			return 0, false
		}
		frac, ok := fraction(match[2], match[3])
		if !ok {
			return 0, false
		}
		return float64(whole) + frac, true
	}
	if match := fractionLengthRegex.FindStringSubmatch(txt); match != nil {
		return fraction(match[1], match[2])
	}
	if plainLengthRegex.MatchString(txt) {
		f, err := strconv.ParseFloat(txt, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	}
	return 0, false
}

// Approximate reports whether the seconds value of a margin comes from the
// per-length heuristics. Only a dead heat ("同着") converts exactly.
func (m MarginScale) Approximate(s string) bool {
	lengths, ok := m.Lengths(s)
	return ok && lengths != 0
}

// Parse returns the margin in (approximate) seconds, "大差" yields nil since
// it has no finite value.
func (m MarginScale) Parse(s string) *float64 {
	lengths, ok := m.Lengths(s)
	if !ok {
		return nil
	}
	seconds := lengths * m.SecondsPerLength
	return &seconds
}
