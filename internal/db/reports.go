package db

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

const summary = `
SELECT
    (SELECT COUNT(*) FROM races) AS races,
    (SELECT COUNT(*) FROM race_results) AS results,
    (SELECT MIN(date) FROM races) AS min_date,
    (SELECT MAX(date) FROM races) AS max_date`

func (q *Queries) Summary(ctx context.Context) (Summary, error) {
	var out Summary
	err := sqlx.GetContext(ctx, q.db, &out, summary)
	return out, err
}

const raceNulls = `
SELECT
    race_id,
    COUNT(*) AS total,
    SUM(CASE WHEN finish_rank IS NULL THEN 1 ELSE 0 END) AS null_finish_rank,
    SUM(CASE WHEN corner_order IS NULL THEN 1 ELSE 0 END) AS null_corner,
    SUM(CASE WHEN last_3f IS NULL THEN 1 ELSE 0 END) AS null_last_3f,
    SUM(CASE WHEN margin_sec IS NULL THEN 1 ELSE 0 END) AS null_margin,
    SUM(CASE WHEN odds IS NULL THEN 1 ELSE 0 END) AS null_odds
FROM race_results
%s
GROUP BY race_id
ORDER BY race_id`

// RaceNulls counts missing values per race, raceID restricts the result to a
// single race when it is not empty.
func (q *Queries) RaceNulls(ctx context.Context, raceID string) ([]RaceNulls, error) {
	var out []RaceNulls
	if raceID == "" {
		err := sqlx.SelectContext(ctx, q.db, &out, fmt.Sprintf(raceNulls, ""))
		return out, err
	}
	err := sqlx.SelectContext(
		ctx, q.db, &out,
		q.db.Rebind(fmt.Sprintf(raceNulls, "WHERE race_id = ?")),
		raceID,
	)
	return out, err
}

const raceUnknowns = `
SELECT
    rr.race_id AS race_id,
    SUM(CASE WHEN substr(h.horse_name, 1, 8) = 'UNKNOWN_' THEN 1 ELSE 0 END) AS horses,
    SUM(CASE WHEN substr(COALESCE(j.jockey_name, ''), 1, 8) = 'UNKNOWN_' THEN 1 ELSE 0 END) AS jockeys,
    SUM(CASE WHEN substr(COALESCE(t.trainer_name, ''), 1, 8) = 'UNKNOWN_' THEN 1 ELSE 0 END) AS trainers
FROM race_results rr
JOIN horses h ON h.horse_id = rr.horse_id
LEFT JOIN jockeys j ON j.jockey_id = rr.jockey_id
LEFT JOIN trainers t ON t.trainer_id = rr.trainer_id
GROUP BY rr.race_id
ORDER BY rr.race_id`

// RaceUnknowns lists the races that carry at least one placeholder name.
func (q *Queries) RaceUnknowns(ctx context.Context) ([]RaceUnknowns, error) {
	var rows []RaceUnknowns
	err := sqlx.SelectContext(ctx, q.db, &rows, raceUnknowns)
	if err != nil {
		return nil, err
	}
	out := rows[:0]
	for _, r := range rows {
		if r.Horses+r.Jockeys+r.Trainers > 0 {
			out = append(out, r)
		}
	}
	return out, nil
}

const zeroRunnerRaces = `
SELECT r.race_id, r.date
FROM races r
LEFT JOIN race_results rr ON rr.race_id = r.race_id
WHERE rr.race_id IS NULL
ORDER BY r.race_id`

func (q *Queries) ZeroRunnerRaces(ctx context.Context) ([]ZeroRunnerRace, error) {
	var out []ZeroRunnerRace
	err := sqlx.SelectContext(ctx, q.db, &out, zeroRunnerRaces)
	return out, err
}

type ConditionColumn string

const (
	ConditionClass   ConditionColumn = "class"
	ConditionAgeCond ConditionColumn = "age_cond"
	ConditionSexCond ConditionColumn = "sex_cond"
)

var ConditionColumns = []ConditionColumn{ConditionClass, ConditionAgeCond, ConditionSexCond}

// RaceConditions counts the races missing each condition column along with
// the top most frequent values (nil included) of it.
func (q *Queries) RaceConditions(ctx context.Context, top int) ([]ConditionStats, error) {
	out := make([]ConditionStats, 0, len(ConditionColumns))
	for _, column := range ConditionColumns {
		stats := ConditionStats{Column: column}
		err := sqlx.GetContext(
			ctx, q.db, &stats.Nulls,
			fmt.Sprintf("SELECT COUNT(*) FROM races WHERE %s IS NULL", column),
		)
		if err != nil {
			return nil, fmt.Errorf("%s nulls: %w", column, err)
		}
		err = sqlx.SelectContext(
			ctx, q.db, &stats.Top,
			q.db.Rebind(fmt.Sprintf(
				"SELECT %[1]s AS value, COUNT(*) AS race_count FROM races GROUP BY %[1]s ORDER BY race_count DESC, value LIMIT ?",
				column,
			)),
			top,
		)
		if err != nil {
			return nil, fmt.Errorf("%s values: %w", column, err)
		}
		out = append(out, stats)
	}
	return out, nil
}
