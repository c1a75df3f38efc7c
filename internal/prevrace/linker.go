// Package prevrace back-fills the previous race columns of every runner.
package prevrace

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"keiba-etl/internal/assert"
	"keiba-etl/internal/chrono"
	"keiba-etl/internal/db"
	"keiba-etl/internal/telemetry"
	"slices"
	"sync"
)

const (
	report_linker_link    = "link"
	report_linker_date    = "parse-date"
	report_linker_updated = "updated"
)

var ErrRunning = errors.New("a link pass is already running")

type Linker struct {
	makeTx db.MakeTx
	tel    telemetry.API
	mutex  sync.Mutex
}

func NewLinker(makeTx db.MakeTx, tel telemetry.API) *Linker {
	assert.NotNil(makeTx)
	return &Linker{
		makeTx: makeTx,
		tel:    telemetry.NewScopedAPI("prevrace", tel),
	}
}

type Result struct {
	Rows int
	// Linked counts rows that received a predecessor.
	Linked int
	// Undated counts rows whose race has no date, they are neither linked
	// nor used as a predecessor.
	Undated int
}

// Link recomputes the previous race columns of the whole runner table in a
// single transaction.
func (l *Linker) Link(ctx context.Context) (Result, error) {
	if !l.mutex.TryLock() {
		return Result{}, ErrRunning
	}
	defer l.mutex.Unlock()

	res, err := l.link(ctx)
	if err != nil {
		l.tel.ReportBroken(report_linker_link, err)
		return res, fmt.Errorf("link previous races: %w", err)
	}
	l.tel.ReportCount(report_linker_updated, int64(res.Linked))
	return res, nil
}

func (l *Linker) link(ctx context.Context) (Result, error) {
	tx, discard, commit, err := l.makeTx(ctx)
	if err != nil {
		return Result{}, err
	}
	defer discard()

	rows, err := tx.ListLinkRows(ctx)
	if err != nil {
		return Result{}, err
	}
	links, res := l.Compute(rows)
	for _, link := range links {
		err = tx.UpdatePrev(ctx, link)
		if err != nil {
			return res, fmt.Errorf("update %s/%s: %w", link.RaceID, link.HorseID, err)
		}
	}
	return res, commit()
}

// Compute derives the previous race columns for every row. Rows of a horse
// are ordered by date then race id, the first one has no predecessor.
func (l *Linker) Compute(rows []db.LinkRow) ([]db.PrevLink, Result) {
	res := Result{Rows: len(rows)}

	sorted := slices.Clone(rows)
	slices.SortStableFunc(sorted, func(a, b db.LinkRow) int {
		if c := cmp.Compare(a.HorseID, b.HorseID); c != 0 {
			return c
		}
		if c := compareDates(a.Date, b.Date); c != 0 {
			return c
		}
		return cmp.Compare(a.RaceID, b.RaceID)
	})

	links := make([]db.PrevLink, 0, len(sorted))
	var prev *db.LinkRow
	for i := range sorted {
		row := &sorted[i]
		link := db.PrevLink{RaceID: row.RaceID, HorseID: row.HorseID}
		if prev != nil && prev.HorseID != row.HorseID {
			prev = nil
		}

		if row.Date == nil {
			res.Undated++
			links = append(links, link)
			continue
		}
		date, err := chrono.ParseDate(*row.Date)
		if err != nil {
			l.tel.ReportWarning(report_linker_date, row.RaceID, *row.Date, err)
			res.Undated++
			links = append(links, link)
			continue
		}

		if prev != nil {
			prevDate, _ := chrono.ParseDate(*prev.Date)
			days := chrono.DaysBetween(prevDate, date)
			prevRaceID := prev.RaceID
			link.PrevRaceID = &prevRaceID
			link.PrevFinishRank = prev.FinishRank
			link.PrevMarginSec = prev.MarginSec
			link.PrevTimeSec = prev.FinishTimeSec
			link.PrevLast3F = prev.Last3F
			link.DaysSinceLast = &days
			res.Linked++
		}
		links = append(links, link)
		prev = row
	}
	return links, res
}

// undated rows sort first, like NULL in an ascending sqlite ORDER BY
func compareDates(a, b *string) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	}
	return cmp.Compare(*a, *b)
}
