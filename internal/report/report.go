// Package report summarizes the quality of the loaded data.
package report

import (
	"context"
	"fmt"
	"io"
	"keiba-etl/internal/db"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

type Options struct {
	// RaceID restricts the per race null counts to one race.
	RaceID   string
	Summary  bool
	Nulls    bool
	Unknowns bool
	Zero     bool
	// Conditions lists the most frequent class, age and sex conditions.
	Conditions bool
	// Top is the number of values kept per condition, 10 when unset.
	Top int
}

// All enables every section.
func All() Options {
	return Options{Summary: true, Nulls: true, Unknowns: true, Zero: true, Conditions: true}
}

type Quality struct {
	Summary    *db.Summary
	Nulls      []db.RaceNulls
	Unknowns   []db.RaceUnknowns
	Zero       []db.ZeroRunnerRace
	Conditions []db.ConditionStats
}

func Build(ctx context.Context, qry *db.Queries, opts Options) (Quality, error) {
	var out Quality
	if opts.Summary {
		summary, err := qry.Summary(ctx)
		if err != nil {
			return out, fmt.Errorf("summary: %w", err)
		}
		out.Summary = &summary
	}
	if opts.Nulls {
		nulls, err := qry.RaceNulls(ctx, opts.RaceID)
		if err != nil {
			return out, fmt.Errorf("null counts: %w", err)
		}
		out.Nulls = nulls
	}
	if opts.Unknowns {
		unknowns, err := qry.RaceUnknowns(ctx)
		if err != nil {
			return out, fmt.Errorf("unknown placeholders: %w", err)
		}
		out.Unknowns = unknowns
	}
	if opts.Zero {
		zero, err := qry.ZeroRunnerRaces(ctx)
		if err != nil {
			return out, fmt.Errorf("zero runner races: %w", err)
		}
		out.Zero = zero
	}
	if opts.Conditions {
		top := opts.Top
		if top <= 0 {
			top = 10
		}
		conditions, err := qry.RaceConditions(ctx, top)
		if err != nil {
			return out, fmt.Errorf("race conditions: %w", err)
		}
		out.Conditions = conditions
	}
	return out, nil
}

func newTable(w io.Writer, title string) table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetOutputMirror(w)
	t.SetTitle(title)
	return t
}

func orDash(s *string) string {
	if s == nil {
		return "-"
	}
	return *s
}

// Render prints every section that was built.
func (q Quality) Render(w io.Writer) {
	if q.Summary != nil {
		t := newTable(w, "Summary")
		t.AppendHeader(table.Row{"Races", "Runners", "First date", "Last date"})
		t.AppendRow(table.Row{q.Summary.Races, q.Summary.Results, orDash(q.Summary.MinDate), orDash(q.Summary.MaxDate)})
		t.Render()
	}

	if q.Nulls != nil {
		t := newTable(w, "Missing values per race")
		t.AppendHeader(table.Row{"Race", "Rows", "Rank", "Corner", "Last 3F", "Margin", "Odds"})
		for _, r := range q.Nulls {
			t.AppendRow(table.Row{r.RaceID, r.Total, r.NullFinishRank, r.NullCorner, r.NullLast3F, r.NullMargin, r.NullOdds})
		}
		t.SetColumnConfigs([]table.ColumnConfig{
			{Number: 2, Align: text.AlignRight},
		})
		t.Render()
	}

	if q.Unknowns != nil {
		t := newTable(w, "Placeholder names")
		t.AppendHeader(table.Row{"Race", "Horses", "Jockeys", "Trainers"})
		for _, r := range q.Unknowns {
			t.AppendRow(table.Row{r.RaceID, r.Horses, r.Jockeys, r.Trainers})
		}
		t.Render()
	}

	if q.Zero != nil {
		t := newTable(w, "Races without runners")
		t.AppendHeader(table.Row{"Race", "Date"})
		for _, r := range q.Zero {
			t.AppendRow(table.Row{r.RaceID, orDash(r.Date)})
		}
		t.Render()
	}

	if q.Conditions != nil {
		t := newTable(w, "Race conditions")
		t.AppendHeader(table.Row{"Column", "Missing", "Value", "Races"})
		for _, c := range q.Conditions {
			t.AppendRow(table.Row{c.Column, c.Nulls, "", ""})
			for _, v := range c.Top {
				t.AppendRow(table.Row{"", "", orDash(v.Value), v.Races})
			}
			t.AppendSeparator()
		}
		t.Render()
	}
}
