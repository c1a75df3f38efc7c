package extract

import (
	"context"
	"keiba-etl/internal/chrono"
	"keiba-etl/internal/racedata"
	"keiba-etl/lib/htmlutil"
	"keiba-etl/lib/textutil"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// Overview is the race metadata read from the page header, every field is
// optional.
type Overview struct {
	Name       *string
	Date       *time.Time
	RaceNo     *int
	Venue      *Venue
	Weather    *string
	Going      *string
	Distance   *int
	Surface    *racedata.Surface
	TrackType  *racedata.TrackType
	LayoutText *string
	Class      *string
	AgeCond    *string
	SexCond    *string
	// MentionsJump is true when anything on the page mentions a jump race.
	MentionsJump bool
}

var (
	dateRegex         = regexp.MustCompile(`(\d{4})年\s*(\d{1,2})月\s*(\d{1,2})日`)
	raceNoH1Regex     = regexp.MustCompile(`(\d{1,2})\s*レース`)
	raceNoHeaderRegex = regexp.MustCompile(`(\d{1,2})\s*R(?:[^A-Za-z]|$)`)
	venueRegex        = regexp.MustCompile(`\d+\s*回\s*([^\s\d]+?)\s*\d+\s*日`)
	venueLooseRegex   = regexp.MustCompile(`\d+\s*回\s*([^\s\d]+)`)
	weatherRegex      = regexp.MustCompile(`天候\s*[:：]?\s*(晴|曇|小雨|雨|小雪|雪|霧)`)
	goingRegex        = regexp.MustCompile(`(芝|ダート)\s*[:：]?\s*(稍重|重|不良|良)`)
	courseRegex       = regexp.MustCompile(`コース\s*[:：]\s*([\d,]+)\s*メートル\s*[（(]([^）)]+)[）)]`)
	distanceRegex     = regexp.MustCompile(`(芝|ダート|障害)[^\d]{0,8}([\d,]{3,6})\s*m`)
	surfaceRegex      = regexp.MustCompile(`芝|ダート|障害`)
	ageOrOlderRegex   = regexp.MustCompile(`(\d+)\s*[歳才]\s*以上`)
	ageRegex          = regexp.MustCompile(`(\d+)\s*[歳才]`)
	winClassRegex     = regexp.MustCompile(`(\d)\s*勝`)
	sexCondRegex      = regexp.MustCompile(`牝\s*[（(]|[（(]\s*牝|牝馬限定`)
)

type classCandidate struct {
	label  string
	tokens []string
}

// checked in order, first hit wins. Tokens are matched with
// textutil.MatchName so "g 1" and "G1" are the same token.
var classCandidates = normalizeClassCandidates([]classCandidate{
	{label: "G1", tokens: []string{"グレード1", "GⅠ", "G1"}},
	{label: "G2", tokens: []string{"グレード2", "GⅡ", "G2"}},
	{label: "G3", tokens: []string{"グレード3", "GⅢ", "G3"}},
	{label: "OPEN", tokens: []string{"リステッド", "オープン"}},
	{label: "NEW", tokens: []string{"新馬"}},
	{label: "MAIDEN", tokens: []string{"未勝利"}},
	{label: "1-WIN", tokens: []string{"1勝クラス", "500万"}},
	{label: "2-WIN", tokens: []string{"2勝クラス", "1000万"}},
	{label: "3-WIN", tokens: []string{"3勝クラス", "1600万"}},
})

func normalizeClassCandidates(candidates []classCandidate) []classCandidate {
	for i, c := range candidates {
		tokens := make([]string, len(c.tokens))
		for j, token := range c.tokens {
			tokens[j] = textutil.NormalizeName(token)
		}
		candidates[i].tokens = tokens
	}
	return candidates
}

func headerText(doc *goquery.Document) string {
	for _, selector := range []string{"div#race_result", "div.race_result_unit", "div.race_header"} {
		sel := doc.Find(selector).First()
		if sel.Length() > 0 {
			return textutil.Fold(htmlutil.CellText(sel))
		}
	}
	return textutil.Fold(htmlutil.CellText(doc.Find("body")))
}

func atoi(s string) *int {
	n, err := strconv.Atoi(strings.ReplaceAll(s, ",", ""))
	if err != nil {
		return nil
	}
	return &n
}

func parseSurface(token string) *racedata.Surface {
	switch token {
	case "芝":
		return racedata.Ptr(racedata.SurfaceTurf)
	case "ダート":
		return racedata.Ptr(racedata.SurfaceDirt)
	case "障害":
		return racedata.Ptr(racedata.SurfaceJump)
	}
	return nil
}

func parseTrackType(layout string) *racedata.TrackType {
	switch {
	case strings.Contains(layout, "直線"):
		return racedata.Ptr(racedata.TrackStraight)
	case strings.Contains(layout, "内"):
		return racedata.Ptr(racedata.TrackInner)
	case strings.Contains(layout, "外"):
		return racedata.Ptr(racedata.TrackOuter)
	}
	return nil
}

// ParseOverview reads race metadata from the page header by matching each
// field independently, a field that cannot be found stays nil. raceID is only
// used as a fallback source for the venue and the race number.
func ParseOverview(ctx context.Context, doc *goquery.Document, raceID string) Overview {
	_, span := tracer.Start(ctx, "ParseOverview")
	defer span.End()

	var ov Overview
	header := headerText(doc)

	if name := htmlutil.CellText(doc.Find("div.race_title").First()); name != "" {
		ov.Name = &name
	} else if name := htmlutil.CellText(doc.Find("h2").First()); name != "" {
		ov.Name = &name
	}

	if match := dateRegex.FindStringSubmatch(header); match != nil {
		y, m, d := atoi(match[1]), atoi(match[2]), atoi(match[3])
		if y != nil && m != nil && d != nil {
			date, err := chrono.Date(*y, *m, *d)
			if err == nil {
				ov.Date = &date
			}
		}
	}

	h1 := textutil.Fold(htmlutil.CellText(doc.Find("h1").First()))
	if match := raceNoH1Regex.FindStringSubmatch(h1); match != nil {
		ov.RaceNo = atoi(match[1])
	} else if match := raceNoHeaderRegex.FindStringSubmatch(header); match != nil {
		ov.RaceNo = atoi(match[1])
	} else if len(raceID) == 12 {
		ov.RaceNo = atoi(raceID[10:])
	}

	for _, re := range []*regexp.Regexp{venueRegex, venueLooseRegex} {
		if match := re.FindStringSubmatch(header); match != nil {
			if v, ok := VenueByName(match[1]); ok {
				ov.Venue = &v
				break
			}
		}
	}
	if ov.Venue == nil {
		if v, ok := VenueFromRaceID(raceID); ok {
			ov.Venue = &v
		}
	}

	if match := weatherRegex.FindStringSubmatch(header); match != nil {
		ov.Weather = &match[1]
	}
	if match := goingRegex.FindStringSubmatch(header); match != nil {
		ov.Going = &match[2]
	}

	ov.MentionsJump = strings.Contains(header, "障害") ||
		strings.Contains(htmlutil.CellText(doc.Find("h1, h2, title")), "障害")

	if match := courseRegex.FindStringSubmatch(header); match != nil {
		ov.Distance = atoi(match[1])
		layout := match[2]
		ov.LayoutText = &layout
		switch {
		case ov.MentionsJump:
			ov.Surface = parseSurface("障害")
		case strings.Contains(layout, "ダート"):
			ov.Surface = parseSurface("ダート")
		case strings.Contains(layout, "芝"):
			ov.Surface = parseSurface("芝")
		}
		ov.TrackType = parseTrackType(layout)
	} else if match := distanceRegex.FindStringSubmatch(header); match != nil {
		ov.Surface = parseSurface(match[1])
		ov.Distance = atoi(match[2])
	}
	if ov.Surface == nil {
		ov.Surface = parseSurface(surfaceRegex.FindString(header))
	}

	for _, c := range classCandidates {
		if textutil.MatchName(header, c.tokens) {
			label := c.label
			ov.Class = &label
			break
		}
	}
	if ov.Class == nil {
		if match := winClassRegex.FindStringSubmatch(header); match != nil {
			label := match[1] + "-WIN"
			ov.Class = &label
		}
	}

	if match := ageOrOlderRegex.FindStringSubmatch(header); match != nil {
		cond := match[1] + "YO+"
		ov.AgeCond = &cond
	} else if match := ageRegex.FindStringSubmatch(header); match != nil {
		cond := match[1] + "YO"
		ov.AgeCond = &cond
	}

	// "牡・牝(指定)" opens the race to both sexes
	if sexCondRegex.MatchString(header) && !strings.Contains(header, "牡・牝") {
		cond := "F"
		ov.SexCond = &cond
	}

	return ov
}

var raceIDRegex = regexp.MustCompile(`\d{12}`)

// RaceIDFromName finds the 12 digit race id in a file name like
// "race_202405050811.html".
func RaceIDFromName(name string) (string, bool) {
	id := raceIDRegex.FindString(name)
	return id, id != ""
}
