// Package odds loads cached win odds pages and uses them to fill the runners
// whose results page carried no odds.
package odds

import (
	"context"
	"fmt"
	"keiba-etl/internal/assert"
	"keiba-etl/internal/db"
	"keiba-etl/internal/extract"
	"keiba-etl/internal/telemetry"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const (
	report_odds_empty    = "empty-page"
	report_odds_backfill = "backfilled-runners"
)

type Config struct {
	Dir string `json:"dir"`
}

// Source is a cached win odds page.
type Source struct {
	RaceID string
	Path   string
}

// Discover lists the odds_<race id>.html pages of a directory ordered by race
// id, only ids starting with prefix are kept (ex. a year).
func Discover(dir, prefix string) ([]Source, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", dir, err)
	}
	var out []Source
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		raceID, ok := extract.OddsRaceIDFromName(e.Name())
		if !ok || !strings.HasPrefix(raceID, prefix) {
			continue
		}
		out = append(out, Source{RaceID: raceID, Path: filepath.Join(dir, e.Name())})
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].RaceID < out[j].RaceID
	})
	return out, nil
}

func SourcesFromPaths(paths []string) ([]Source, error) {
	out := make([]Source, 0, len(paths))
	for _, p := range paths {
		raceID, ok := extract.OddsRaceIDFromName(filepath.Base(p))
		if !ok {
			return nil, fmt.Errorf("%s: not an odds_<race id>.html page", p)
		}
		out = append(out, Source{RaceID: raceID, Path: p})
	}
	return out, nil
}

type Loader struct {
	makeTx db.MakeTx
	tel    telemetry.API
}

func NewLoader(makeTx db.MakeTx, tel telemetry.API) *Loader {
	assert.NotNil(makeTx)
	return &Loader{
		makeTx: makeTx,
		tel:    telemetry.NewScopedAPI("odds", tel),
	}
}

type Result struct {
	Pages int
	Lines int
	// Backfilled counts the runners that received odds or popularity.
	Backfilled int64
}

// Load upserts the lines of every page into odds_win and backfills the
// runners in the same transaction.
func (l *Loader) Load(ctx context.Context, sources []Source) (Result, error) {
	var res Result

	tx, discard, commit, err := l.makeTx(ctx)
	if err != nil {
		return res, fmt.Errorf("begin: %w", err)
	}
	defer discard()

	for _, source := range sources {
		raw, err := os.ReadFile(source.Path)
		if err != nil {
			return Result{}, fmt.Errorf("read %s: %w", source.Path, err)
		}
		doc, err := goquery.NewDocumentFromReader(strings.NewReader(extract.Decode(raw).Text))
		if err != nil {
			return Result{}, fmt.Errorf("parse %s: %w", source.Path, err)
		}

		lines := extract.ParseWinOdds(ctx, doc, source.RaceID)
		if len(lines) == 0 {
			l.tel.ReportWarning(report_odds_empty, source.RaceID, source.Path)
		}
		for _, line := range lines {
			horseNo := line.HorseNo
			err = tx.UpsertWinOdds(ctx, db.WinOdds{
				RaceID:  line.RaceID,
				HorseID: line.HorseID,
				HorseNo: &horseNo,
				WinOdds: line.Odds,
			})
			if err != nil {
				return Result{}, fmt.Errorf("upsert odds %s/%s: %w", line.RaceID, line.HorseID, err)
			}
		}
		res.Pages++
		res.Lines += len(lines)
	}

	res.Backfilled, err = tx.BackfillWinOdds(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("backfill: %w", err)
	}

	err = commit()
	if err != nil {
		return Result{}, fmt.Errorf("commit: %w", err)
	}
	l.tel.ReportCount(report_odds_backfill, res.Backfilled)
	return res, nil
}
