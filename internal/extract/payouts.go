package extract

import (
	"context"
	"keiba-etl/internal/fields"
	"keiba-etl/internal/racedata"
	"keiba-etl/lib/htmlutil"
	"keiba-etl/lib/textutil"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.opentelemetry.io/otel/attribute"
)

// class names of the payout list items on the results page, the first class
// an item carries wins
var betClasses = []struct {
	class string
	bet   racedata.BetType
}{
	{class: "win", bet: racedata.BetWin},
	{class: "place", bet: racedata.BetPlace},
	{class: "wakuren", bet: racedata.BetBracketQuinella},
	{class: "umaren", bet: racedata.BetQuinella},
	{class: "wide", bet: racedata.BetWide},
	{class: "umatan", bet: racedata.BetExacta},
	{class: "trio", bet: racedata.BetTrio},
	{class: "tierce", bet: racedata.BetTrifecta},
}

// labels used by table based payout blocks
var betLabels = map[string]racedata.BetType{
	"単勝":  racedata.BetWin,
	"複勝":  racedata.BetPlace,
	"枠連":  racedata.BetBracketQuinella,
	"馬連":  racedata.BetQuinella,
	"ワイド": racedata.BetWide,
	"馬単":  racedata.BetExacta,
	"三連複": racedata.BetTrio,
	"3連複": racedata.BetTrio,
	"三連単": racedata.BetTrifecta,
	"3連単": racedata.BetTrifecta,
}

var combinationSeparator = regexp.MustCompile(`[^0-9]+`)

// normalizeCombination turns "1 - 5", "1→5" or "１－５" into "1-5".
func normalizeCombination(s string) string {
	s = combinationSeparator.ReplaceAllString(textutil.Fold(s), "-")
	return strings.Trim(s, "-")
}

func newPayout(bet racedata.BetType, lineNo int, combination, yen, pop string) racedata.Payout {
	p := racedata.Payout{
		BetType:     bet,
		Combination: normalizeCombination(combination),
		Yen:         fields.ParseDigits(yen),
		Popularity:  fields.ParseDigits(pop),
		LineNo:      lineNo,
	}
	if p.Yen != nil {
		odds := float64(*p.Yen) / 100
		p.Odds = &odds
	}
	return p
}

func listPayouts(doc *goquery.Document) []racedata.Payout {
	var out []racedata.Payout
	doc.Find("li").Each(func(_ int, li *goquery.Selection) {
		var bet racedata.BetType
		for _, candidate := range betClasses {
			if li.HasClass(candidate.class) {
				bet = candidate.bet
				break
			}
		}
		if bet == "" {
			return
		}
		li.Find("div.line").Each(func(i int, line *goquery.Selection) {
			p := newPayout(
				bet, i,
				htmlutil.CellText(line.Find("div.num")),
				htmlutil.CellText(line.Find("div.yen")),
				htmlutil.CellText(line.Find("div.pop")),
			)
			if p.Combination == "" && p.Yen == nil {
				return
			}
			out = append(out, p)
		})
	})
	return out
}

func tablePayouts(doc *goquery.Document) []racedata.Payout {
	var out []racedata.Payout
	doc.Find("tr").Each(func(_ int, tr *goquery.Selection) {
		th := tr.ChildrenFiltered("th").First()
		bet, ok := betLabels[fields.NormalizeHeader(th.Text())]
		if !ok {
			return
		}
		cells := tr.ChildrenFiltered("td")
		if cells.Length() < 2 {
			return
		}
		combos := htmlutil.Lines(cells.Eq(0))
		yens := htmlutil.Lines(cells.Eq(1))
		var pops []string
		if cells.Length() > 2 {
			pops = htmlutil.Lines(cells.Eq(2))
		}
		for i, combo := range combos {
			yen, pop := "", ""
			if i < len(yens) {
				yen = yens[i]
			}
			if i < len(pops) {
				pop = pops[i]
			}
			out = append(out, newPayout(bet, i, combo, yen, pop))
		}
	})
	return out
}

// Payouts extracts every payout line of the page. List based blocks take
// precedence, table based blocks are only read when no list block exists.
func Payouts(ctx context.Context, doc *goquery.Document) []racedata.Payout {
	_, span := tracer.Start(ctx, "Payouts")
	defer span.End()

	out := listPayouts(doc)
	variant := "list"
	if len(out) == 0 {
		out = tablePayouts(doc)
		variant = "table"
	}
	span.SetAttributes(
		attribute.String("variant", variant),
		attribute.Int("lines", len(out)),
	)
	return out
}
