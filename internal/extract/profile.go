package extract

import (
	"context"
	"keiba-etl/internal/racedata"
	"keiba-etl/lib/htmlutil"
	"keiba-etl/lib/textutil"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.opentelemetry.io/otel/attribute"
)

var profileNameRegex = regexp.MustCompile(`^(horse|jockey)_([^.]+)\.html$`)

// ProfileIDFromName splits a profile page name like "horse_2021105678.html"
// into its kind ("horse" or "jockey") and entity id.
func ProfileIDFromName(name string) (kind, id string, ok bool) {
	match := profileNameRegex.FindStringSubmatch(name)
	if match == nil {
		return "", "", false
	}
	return match[1], match[2], true
}

// profileName is the first non empty heading of a profile page, the title is
// the last resort.
func profileName(doc *goquery.Document) string {
	for _, selector := range []string{"h1", "h2", "title"} {
		if name := htmlutil.CellText(doc.Find(selector).First()); name != "" {
			return name
		}
	}
	return ""
}

// checked in order, a profile mentions the sex of the horse somewhere in its
// text but never in a fixed place
var profileSexes = []struct {
	token string
	code  string
}{
	{token: "牡", code: "牡"},
	{token: "牝", code: "牝"},
	{token: "セン", code: "騸"},
	{token: "せん", code: "騸"},
	{token: "騸", code: "騸"},
}

// ParseHorseProfile reads the name, sex and birth year of a horse profile
// page. ok is false when the page has no name.
func ParseHorseProfile(ctx context.Context, doc *goquery.Document, horseID string) (horse racedata.Horse, ok bool) {
	_, span := tracer.Start(ctx, "ParseHorseProfile")
	defer span.End()
	span.SetAttributes(attribute.String("horse_id", horseID))

	name := profileName(doc)
	if name == "" {
		return racedata.Horse{}, false
	}
	horse = racedata.Horse{ID: horseID, Name: name}

	text := textutil.Fold(htmlutil.CellText(doc.Find("body")))
	for _, s := range profileSexes {
		if strings.Contains(text, s.token) {
			code := s.code
			horse.Sex = &code
			break
		}
	}
	if match := dateRegex.FindStringSubmatch(text); match != nil {
		horse.BirthYear = atoi(match[1])
	}
	return horse, true
}

// ParseJockeyProfile reads the name of a jockey profile page.
func ParseJockeyProfile(ctx context.Context, doc *goquery.Document, jockeyID string) (racedata.Jockey, bool) {
	_, span := tracer.Start(ctx, "ParseJockeyProfile")
	defer span.End()
	span.SetAttributes(attribute.String("jockey_id", jockeyID))

	name := profileName(doc)
	if name == "" {
		return racedata.Jockey{}, false
	}
	return racedata.Jockey{ID: jockeyID, Name: name}, true
}
