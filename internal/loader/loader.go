// Package loader writes assembled pages into the store, one transaction per
// race.
package loader

import (
	"context"
	"fmt"
	"keiba-etl/internal/assert"
	"keiba-etl/internal/chrono"
	"keiba-etl/internal/db"
	"keiba-etl/internal/racedata"
	"keiba-etl/internal/telemetry"
)

const (
	report_loader_load    = "load"
	report_loader_drop    = "drop-runner"
	report_loader_no_rows = "zero-runners"
)

type Loader struct {
	makeTx db.MakeTx
	tel    telemetry.API
}

func NewLoader(makeTx db.MakeTx, tel telemetry.API) *Loader {
	assert.NotNil(makeTx)
	return &Loader{
		makeTx: makeTx,
		tel:    telemetry.NewScopedAPI("loader", tel),
	}
}

type Result struct {
	RaceID  string
	Runners int
	// Dropped counts runners that could not be keyed.
	Dropped int
}

// Load upserts the course, the masters, the race and its runners. Either all
// of it is committed or none of it.
func (l *Loader) Load(ctx context.Context, page racedata.Page) (Result, error) {
	raceID := page.Race.ID
	if raceID == "" {
		return Result{}, fmt.Errorf("load: page has no race id")
	}

	res, err := l.load(ctx, page)
	if err != nil {
		l.tel.ReportBroken(report_loader_load, raceID, err)
		return Result{RaceID: raceID}, fmt.Errorf("load race %s: %w", raceID, err)
	}
	if res.Runners == 0 {
		l.tel.ReportWarning(report_loader_no_rows, raceID)
	}
	return res, nil
}

func (l *Loader) load(ctx context.Context, page racedata.Page) (Result, error) {
	res := Result{RaceID: page.Race.ID}

	tx, discard, commit, err := l.makeTx(ctx)
	if err != nil {
		return res, fmt.Errorf("begin: %w", err)
	}
	defer discard()

	err = tx.EnsureCourse(ctx, courseRow(page.Course))
	if err != nil {
		return res, fmt.Errorf("ensure course %s: %w", page.Course.ID, err)
	}
	for _, h := range page.Horses {
		err = tx.UpsertHorse(ctx, horseRow(h))
		if err != nil {
			return res, fmt.Errorf("upsert horse %s: %w", h.ID, err)
		}
	}
	for _, j := range page.Jockeys {
		err = tx.UpsertJockey(ctx, db.Jockey{JockeyID: j.ID, JockeyName: j.Name})
		if err != nil {
			return res, fmt.Errorf("upsert jockey %s: %w", j.ID, err)
		}
	}
	for _, t := range page.Trainers {
		err = tx.UpsertTrainer(ctx, db.Trainer{TrainerID: t.ID, TrainerName: t.Name})
		if err != nil {
			return res, fmt.Errorf("upsert trainer %s: %w", t.ID, err)
		}
	}

	err = tx.UpsertRace(ctx, raceRow(page.Race))
	if err != nil {
		return res, fmt.Errorf("upsert race: %w", err)
	}

	for _, r := range page.Runners {
		if r.RaceID == "" || r.HorseID == "" {
			res.Dropped++
			l.tel.ReportWarning(report_loader_drop, page.Race.ID, "runner without key", "horse_no", r.HorseNo)
			continue
		}
		err = tx.UpsertRaceResult(ctx, resultRow(r))
		if err != nil {
			return res, fmt.Errorf("upsert runner %s: %w", r.HorseID, err)
		}
		res.Runners++
	}

	err = commit()
	if err != nil {
		return res, fmt.Errorf("commit: %w", err)
	}
	return res, nil
}

func courseRow(c racedata.Course) db.Course {
	row := db.Course{
		CourseID:   c.ID,
		VenueID:    c.VenueID,
		CourseName: c.Name,
		Surface:    c.Surface,
		Features:   c.Features,
	}
	if c.TrackType != nil {
		track := string(*c.TrackType)
		row.TrackType = &track
	}
	return row
}

func horseRow(h racedata.Horse) db.Horse {
	return db.Horse{
		HorseID:   h.ID,
		HorseName: h.Name,
		Sex:       h.Sex,
		BirthYear: h.BirthYear,
	}
}

func raceRow(r racedata.Race) db.Race {
	row := db.Race{
		RaceID:     r.ID,
		CourseID:   r.CourseID,
		VenueID:    r.VenueID,
		RaceNo:     r.RaceNo,
		RaceName:   r.Name,
		Distance:   r.Distance,
		Weather:    r.Weather,
		Going:      r.Going,
		Class:      r.Class,
		AgeCond:    r.AgeCond,
		SexCond:    r.SexCond,
		NumRunners: r.NumRunners,
		WinTimeSec: r.WinTimeSec,
		RaceType:   string(r.RaceType),
	}
	if row.RaceType == "" {
		row.RaceType = string(racedata.RaceFlat)
	}
	if r.Date != nil {
		date := r.Date.In(chrono.Tokyo()).Format(chrono.DateLayout)
		row.Date = &date
	}
	if r.Surface != nil {
		surface := string(*r.Surface)
		row.Surface = &surface
	}
	return row
}

func resultRow(r racedata.Runner) db.RaceResult {
	status := r.Status
	if status == "" {
		status = racedata.StatusUnknown
	}
	return db.RaceResult{
		RaceID:        r.RaceID,
		HorseID:       r.HorseID,
		BracketNo:     r.BracketNo,
		HorseNo:       r.HorseNo,
		FinishRank:    r.FinishRank,
		Status:        string(status),
		FinishTimeSec: r.FinishTimeSec,
		Odds:          r.Odds,
		Popularity:    r.Popularity,
		Weight:        r.Weight,
		WeightDiff:    r.WeightDiff,
		BodyWeight:    r.BodyWeight,
		JockeyID:      r.JockeyID,
		TrainerID:     r.TrainerID,
		CornerOrder:   r.CornerOrder,
		Last3F:        r.Last3F,
		MarginSec:     r.MarginSec,
		MarginApprox:  r.MarginApprox,
		Prize:         r.Prize,
	}
}
