package fields

import (
	"keiba-etl/internal/racedata"
	"regexp"
	"strconv"
	"strings"
)

var sexAgeRegex = regexp.MustCompile(`(牡|牝|騸|セン|せん|セ|せ)\s*(\d+)`)

// ParseSexAge splits a composite like "牡4" into a sex code and age.
// Geldings are always reported as "騸".
func ParseSexAge(s string) (sex *string, age *int) {
	match := sexAgeRegex.FindStringSubmatch(clean(s))
	if match == nil {
		return nil, nil
	}
	code := match[1]
	switch code {
	case "セン", "せん", "セ", "せ":
		code = "騸"
	}
	n, err := strconv.Atoi(match[2])
	if err != nil {
		return &code, nil
	}
	return &code, &n
}

var bodyWeightRegex = regexp.MustCompile(`^(\d+)\s*(?:\(\s*([^)]*?)\s*\))?`)
var signedRegex = regexp.MustCompile(`^[+-]?\d+$`)

// ParseBodyWeight splits "480(+2)" into the declared weight and the signed
// delta. A weight without a (numeric) delta yields a nil delta.
func ParseBodyWeight(s string) (weight *int, delta *int) {
	txt := clean(s)
	// some templates write the sign as a long vowel mark
	txt = strings.ReplaceAll(txt, "ー", "-")

	match := bodyWeightRegex.FindStringSubmatch(txt)
	if match == nil {
		return nil, nil
	}
	w, err := strconv.Atoi(match[1])
	if err != nil {
		return nil, nil
	}
	weight = &w

	if signedRegex.MatchString(match[2]) {
		d, err := strconv.Atoi(strings.TrimPrefix(match[2], "+"))
		if err == nil {
			delta = &d
		}
	}
	return weight, delta
}

var cornerSplitRegex = regexp.MustCompile(`[^0-9]+`)

// CleanCorner normalizes a corner passage string ("3 3 2 1", "03/03/02/01",
// "3-3-2-1") into the canonical dash-joined form "3-3-2-1".
func CleanCorner(s string) *string {
	parts := cornerSplitRegex.Split(clean(s), -1)
	positions := make([]string, 0, len(parts))
	for _, p := range parts {
		if p == "" {
			continue
		}
		n, err := strconv.Atoi(p)
		if err != nil {
			continue
		}
		positions = append(positions, strconv.Itoa(n))
	}
	if len(positions) == 0 {
		return nil
	}
	joined := strings.Join(positions, "-")
	return &joined
}

var leadingDigitsRegex = regexp.MustCompile(`^(\d+)`)

// ParseFinishRank returns the finishing position and a status. A nil rank
// always comes with a status other than StatusOK.
func ParseFinishRank(s string) (*int, racedata.Status) {
	txt := clean(s)
	if match := leadingDigitsRegex.FindStringSubmatch(txt); match != nil {
		n, err := strconv.Atoi(match[1])
		if err == nil && n > 0 {
			return &n, racedata.StatusOK
		}
	}
	switch {
	case strings.Contains(txt, "中止"):
		return nil, racedata.StatusDNF
	case strings.Contains(txt, "除外"):
		return nil, racedata.StatusScratched
	case strings.Contains(txt, "取消"):
		return nil, racedata.StatusCancelled
	case strings.Contains(txt, "失格"):
		return nil, racedata.StatusDQ
	}
	return nil, racedata.StatusUnknown
}

var bracketAltRegex = regexp.MustCompile(`枠\s*(\d+)`)

// ParseBracketAlt reads the bracket number out of an image alt text like "枠3黄".
func ParseBracketAlt(alt string) *int {
	match := bracketAltRegex.FindStringSubmatch(clean(alt))
	if match == nil {
		return nil
	}
	n, err := strconv.Atoi(match[1])
	if err != nil {
		return nil
	}
	return &n
}
