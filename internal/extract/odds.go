package extract

import (
	"context"
	"fmt"
	"keiba-etl/internal/fields"
	"keiba-etl/lib/htmlutil"
	"regexp"

	"github.com/PuerkitoBio/goquery"
	"go.opentelemetry.io/otel/attribute"
)

// WinOdds is one line of a win odds page.
type WinOdds struct {
	RaceID  string
	HorseID string
	HorseNo int
	Odds    *float64
}

var oddsNameRegex = regexp.MustCompile(`^odds_(\d{12})\.html$`)

// OddsRaceIDFromName finds the race id of a page named "odds_<race id>.html".
func OddsRaceIDFromName(name string) (string, bool) {
	match := oddsNameRegex.FindStringSubmatch(name)
	if match == nil {
		return "", false
	}
	return match[1], true
}

// ParseWinOdds reads every row of a win odds page that has a horse number and
// an odds cell. The horse id is the site token of the row, or the same race
// scoped fallback the results page would get.
func ParseWinOdds(ctx context.Context, doc *goquery.Document, raceID string) []WinOdds {
	ctx, span := tracer.Start(ctx, "ParseWinOdds")
	defer span.End()

	var out []WinOdds
	doc.Find("tr").Each(func(_ int, tr *goquery.Selection) {
		num := tr.Find("td.num").First()
		odds := tr.Find("td.odds_tan").First()
		if num.Length() == 0 || odds.Length() == 0 {
			return
		}
		horseNo := fields.ParseInt(htmlutil.CellText(num))
		if horseNo == nil {
			return
		}

		line := WinOdds{
			RaceID:  raceID,
			HorseID: RowRefs(ctx, tr).Horse,
			HorseNo: *horseNo,
			Odds:    fields.ParseFloat(htmlutil.CellText(odds)),
		}
		if line.HorseID == "" {
			line.HorseID = fmt.Sprintf("%s_H%02d", raceID, *horseNo)
		}
		out = append(out, line)
	})

	span.SetAttributes(attribute.Int("lines", len(out)))
	return out
}
