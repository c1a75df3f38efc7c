// Package assemble composes one race and its runners out of a results page.
package assemble

import (
	"bytes"
	"context"
	"fmt"
	"keiba-etl/internal/assert"
	"keiba-etl/internal/extract"
	"keiba-etl/internal/fields"
	"keiba-etl/internal/racedata"
	"keiba-etl/internal/resolve"
	"keiba-etl/internal/telemetry"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const (
	report_assembler_find_table = "find-table"
	report_assembler_drop_row   = "drop-row"
	report_assembler_horse_no   = "horse-no"
	report_assembler_decode     = "decode"
	report_assembler_unknowns   = "unknowns"
)

type Assembler struct {
	mapper *fields.Mapper
	margin fields.MarginScale
	tel    telemetry.API
}

func NewAssembler(mapper *fields.Mapper, margin fields.MarginScale, tel telemetry.API) *Assembler {
	assert.NotNil(mapper)
	assert.Positive(margin.SecondsPerLength, "seconds per length")
	return &Assembler{
		mapper: mapper,
		margin: margin,
		tel:    telemetry.NewScopedAPI("assemble", tel),
	}
}

// Assemble decodes and parses a raw results page. An error is only returned
// when the markup cannot be parsed at all, a page without a results table
// yields a race with no runners.
func (a *Assembler) Assemble(ctx context.Context, raceID string, raw []byte) (racedata.Page, error) {
	decoded := extract.Decode(raw)
	if decoded.Lossy {
		a.tel.ReportWarning(report_assembler_decode, raceID, decoded.Encoding)
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewBufferString(decoded.Text))
	if err != nil {
		return racedata.Page{}, fmt.Errorf("parse html %s: %w", raceID, err)
	}
	return a.AssembleDocument(ctx, raceID, doc), nil
}

func (a *Assembler) AssembleDocument(ctx context.Context, raceID string, doc *goquery.Document) racedata.Page {
	ov := extract.ParseOverview(ctx, doc, raceID)

	var table extract.Table
	sel, err := extract.FindResultsTable(ctx, doc)
	hasTable := err == nil
	if err != nil {
		a.tel.ReportWarning(report_assembler_find_table, raceID, err.Error())
	} else {
		table = extract.ReadTable(ctx, sel, a.mapper)
	}

	page := racedata.Page{
		Course:         buildCourse(ov),
		Payouts:        extract.Payouts(ctx, doc),
		HasTable:       hasTable,
		UnknownHeaders: table.UnknownHeaders,
	}
	page.Race = buildRace(raceID, ov, page.Course, table)

	a.buildRunners(raceID, &page, table)

	if n := len(page.Runners); n > 0 {
		page.Race.NumRunners = &n
	}
	clampRanks(&page)
	page.Race.WinTimeSec = winTime(page.Runners)
	backfillOdds(page.Runners, page.Payouts)

	if page.Unknowns.Total() > 0 {
		a.tel.ReportDebug(
			"unknown placeholders used",
			raceID,
			"horse", page.Unknowns.Horse,
			"jockey", page.Unknowns.Jockey,
			"trainer", page.Unknowns.Trainer,
		)
		a.tel.ReportCount(report_assembler_unknowns, int64(page.Unknowns.Total()))
	}
	return page
}

func (a *Assembler) buildRunners(raceID string, page *racedata.Page, table extract.Table) {
	resolver := resolve.ForRace(raceID)
	hasHorseNo := table.Has(fields.FieldHorseNo)
	if len(table.Rows) > 0 && !hasHorseNo {
		a.tel.ReportWarning(report_assembler_horse_no, raceID, "no horse number column, using row positions")
	}

	horses := map[string]int{}
	jockeys := map[string]struct{}{}
	trainers := map[string]struct{}{}

	raceYear := 0
	if page.Race.Date != nil {
		raceYear = page.Race.Date.Year()
	}

	for _, row := range table.Rows {
		horseNo := fields.ParseInt(row.Text(fields.FieldHorseNo))
		if hasHorseNo && horseNo == nil {
			page.DroppedRows++
			a.tel.ReportWarning(
				report_assembler_drop_row,
				raceID, row.Index, "unparseable horse number",
				row.Text(fields.FieldHorseNo),
			)
			continue
		}
		if !hasHorseNo {
			n := row.Index + 1
			horseNo = &n
		}

		horse := resolver.Horse(row.Index, horseNo, row.Refs.Horse, row.Name(fields.FieldHorseName))
		jockey := resolver.Jockey(row.Index, row.Refs.Jockey, row.Name(fields.FieldJockeyName))
		trainer := resolver.Trainer(row.Index, row.Refs.Trainer, row.Name(fields.FieldTrainerName))

		runner := a.buildRunner(raceID, row, table)
		runner.HorseID = horse.ID
		runner.HorseNo = horseNo
		runner.JockeyID = &jockey.ID
		runner.TrainerID = &trainer.ID

		if _, seen := horses[horse.ID]; seen {
			page.DroppedRows++
			a.tel.ReportWarning(report_assembler_drop_row, raceID, row.Index, "duplicate horse", horse.ID)
			continue
		}

		sex, age := fields.ParseSexAge(row.Text(fields.FieldSexAge))
		h := racedata.Horse{ID: horse.ID, Name: horse.Name, Sex: sex}
		if age != nil && raceYear > 0 {
			birthYear := raceYear - *age
			h.BirthYear = &birthYear
		}
		horses[horse.ID] = len(page.Horses)
		page.Horses = append(page.Horses, h)

		if _, seen := jockeys[jockey.ID]; !seen {
			jockeys[jockey.ID] = struct{}{}
			page.Jockeys = append(page.Jockeys, racedata.Jockey{ID: jockey.ID, Name: jockey.Name})
		}
		if _, seen := trainers[trainer.ID]; !seen {
			trainers[trainer.ID] = struct{}{}
			page.Trainers = append(page.Trainers, racedata.Trainer{ID: trainer.ID, Name: trainer.Name})
		}

		page.Runners = append(page.Runners, runner)
	}

	page.Unknowns = resolver.Unknowns()
}

func (a *Assembler) buildRunner(raceID string, row extract.Row, table extract.Table) racedata.Runner {
	r := racedata.Runner{RaceID: raceID}

	r.FinishRank, r.Status = fields.ParseFinishRank(row.Text(fields.FieldFinishRank))
	r.BracketNo = fields.ParseInt(row.Text(fields.FieldBracketNo))
	if r.BracketNo == nil {
		r.BracketNo = row.BracketAlt
	}
	r.FinishTimeSec = fields.ParseTime(row.Text(fields.FieldTime))
	r.Odds = fields.ParseFloat(row.Text(fields.FieldOdds))
	r.Popularity = fields.ParseInt(row.Text(fields.FieldPopularity))
	r.Weight = fields.ParseDecimal(row.Text(fields.FieldWeight))
	r.BodyWeight, r.WeightDiff = fields.ParseBodyWeight(row.Text(fields.FieldBodyWeight))
	r.CornerOrder = fields.CleanCorner(row.Text(fields.FieldCornerOrder))
	r.MarginSec = a.margin.Parse(row.Text(fields.FieldMargin))
	if r.MarginSec != nil {
		approx := a.margin.Approximate(row.Text(fields.FieldMargin))
		r.MarginApprox = &approx
	}
	r.Prize = fields.ParsePrizeMan(row.Text(fields.FieldPrizeMan))

	if table.Has(fields.FieldLast3F) {
		r.Last3F = fields.ParseLast3F(row.Text(fields.FieldLast3F))
	} else if table.Has(fields.FieldAvg1F) {
		// jump tables only carry the average furlong, it stands in for the sectional
		r.Last3F = fields.ParseLast3F(row.Text(fields.FieldAvg1F))
	}
	return r
}

// clampRanks enforces that a finish rank never exceeds the runner count.
func clampRanks(page *racedata.Page) {
	n := len(page.Runners)
	for i := range page.Runners {
		r := &page.Runners[i]
		if r.FinishRank != nil && *r.FinishRank > n {
			r.FinishRank = nil
			r.Status = racedata.StatusUnknown
		}
	}
}

func winTime(runners []racedata.Runner) *float64 {
	for _, r := range runners {
		if r.FinishRank != nil && *r.FinishRank == 1 && r.FinishTimeSec != nil {
			t := *r.FinishTimeSec
			return &t
		}
	}
	var best *float64
	for _, r := range runners {
		if r.FinishTimeSec == nil {
			continue
		}
		if best == nil || *r.FinishTimeSec < *best {
			t := *r.FinishTimeSec
			best = &t
		}
	}
	return best
}

// backfillOdds fills missing odds and popularity from the win payout lines,
// then from the place lines. Values parsed from the table always win.
func backfillOdds(runners []racedata.Runner, payouts []racedata.Payout) {
	byNo := map[int]*racedata.Runner{}
	for i := range runners {
		if runners[i].HorseNo != nil {
			byNo[*runners[i].HorseNo] = &runners[i]
		}
	}
	for _, bet := range []racedata.BetType{racedata.BetWin, racedata.BetPlace} {
		for _, p := range payouts {
			if p.BetType != bet {
				continue
			}
			no, ok := p.LeadNumber()
			if !ok {
				continue
			}
			r, ok := byNo[no]
			if !ok {
				continue
			}
			if r.Odds == nil && p.Odds != nil {
				odds := *p.Odds
				r.Odds = &odds
			}
			if r.Popularity == nil && p.Popularity != nil {
				pop := *p.Popularity
				r.Popularity = &pop
			}
		}
	}
}

func buildRace(raceID string, ov extract.Overview, course racedata.Course, table extract.Table) racedata.Race {
	race := racedata.Race{
		ID:       raceID,
		Date:     ov.Date,
		CourseID: course.ID,
		Name:     ov.Name,
		Distance: ov.Distance,
		Surface:  ov.Surface,
		Weather:  ov.Weather,
		Going:    ov.Going,
		Class:    ov.Class,
		AgeCond:  ov.AgeCond,
		SexCond:  ov.SexCond,
		RaceType: racedata.RaceFlat,
	}
	if ov.RaceNo != nil {
		race.RaceNo = *ov.RaceNo
	}
	if ov.Venue != nil {
		code := ov.Venue.Code
		race.VenueID = &code
	}
	isJump := ov.MentionsJump || table.Has(fields.FieldAvg1F) ||
		(ov.Surface != nil && *ov.Surface == racedata.SurfaceJump)
	if isJump {
		race.RaceType = racedata.RaceJump
	}
	return race
}

var surfaceCodes = map[racedata.Surface]string{
	racedata.SurfaceTurf: "T",
	racedata.SurfaceDirt: "D",
	racedata.SurfaceJump: "J",
}

var surfaceNames = map[racedata.Surface]string{
	racedata.SurfaceTurf: "芝",
	racedata.SurfaceDirt: "ダート",
	racedata.SurfaceJump: "障害",
}

var trackSuffixes = map[racedata.TrackType]string{
	racedata.TrackInner:    "_IN",
	racedata.TrackOuter:    "_OUT",
	racedata.TrackStraight: "_STR",
}

var trackNames = map[racedata.TrackType]string{
	racedata.TrackInner:    "内回り",
	racedata.TrackOuter:    "外回り",
	racedata.TrackStraight: "直線",
}

// buildCourse derives the course a race is run on, the id has the shape
// <VENUE>_<T|D|J>[_IN|_OUT|_STR].
func buildCourse(ov extract.Overview) racedata.Course {
	venueCode, venueName := "UNK", "不明"
	if ov.Venue != nil {
		venueCode, venueName = ov.Venue.Code, ov.Venue.Name
	}
	surfaceCode, surfaceName, surface := "X", "不明", "unknown"
	if ov.Surface != nil {
		surfaceCode = surfaceCodes[*ov.Surface]
		surfaceName = surfaceNames[*ov.Surface]
		surface = string(*ov.Surface)
	}

	id := venueCode + "_" + surfaceCode
	nameParts := []string{venueName, surfaceName}
	if ov.TrackType != nil {
		id += trackSuffixes[*ov.TrackType]
		nameParts = append(nameParts, trackNames[*ov.TrackType])
	}

	return racedata.Course{
		ID:        id,
		VenueID:   venueCode,
		Name:      strings.Join(nameParts, " "),
		Surface:   surface,
		TrackType: ov.TrackType,
		Features:  ov.LayoutText,
	}
}
