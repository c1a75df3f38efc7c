package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// Queries runs the statements of the pipeline against either a connection
// or a transaction. Every statement is written with named parameters and
// rebound for the driver in use.
type Queries struct {
	db sqlx.ExtContext
}

func New(db sqlx.ExtContext) *Queries {
	return &Queries{db: db}
}

func (q *Queries) namedExec(ctx context.Context, query string, arg any) (sql.Result, error) {
	stmt, args, err := sqlx.Named(query, arg)
	if err != nil {
		return nil, err
	}
	return q.db.ExecContext(ctx, q.db.Rebind(stmt), args...)
}

const ensureCourse = `
INSERT INTO courses (course_id, venue_id, course_name, surface, track_type, features_text)
VALUES (:course_id, :venue_id, :course_name, :surface, :track_type, :features_text)
ON CONFLICT (course_id) DO NOTHING`

// EnsureCourse inserts a course unless it already exists, existing master
// data is never touched.
func (q *Queries) EnsureCourse(ctx context.Context, course Course) error {
	_, err := q.namedExec(ctx, ensureCourse, course)
	return err
}

// a placeholder name is replaced as soon as a real one shows up, a real name
// is never replaced
const upsertHorse = `
INSERT INTO horses (horse_id, horse_name, sex, birth_year)
VALUES (:horse_id, :horse_name, :sex, :birth_year)
ON CONFLICT (horse_id) DO UPDATE SET
    horse_name = CASE
        WHEN substr(horses.horse_name, 1, 8) = 'UNKNOWN_' THEN excluded.horse_name
        ELSE horses.horse_name
    END,
    sex = COALESCE(excluded.sex, horses.sex),
    birth_year = COALESCE(excluded.birth_year, horses.birth_year)`

func (q *Queries) UpsertHorse(ctx context.Context, horse Horse) error {
	_, err := q.namedExec(ctx, upsertHorse, horse)
	return err
}

// a profile page is the authority on names, only sex and birth year are
// merged
const upsertHorseProfile = `
INSERT INTO horses (horse_id, horse_name, sex, birth_year)
VALUES (:horse_id, :horse_name, :sex, :birth_year)
ON CONFLICT (horse_id) DO UPDATE SET
    horse_name = excluded.horse_name,
    sex = COALESCE(excluded.sex, horses.sex),
    birth_year = COALESCE(excluded.birth_year, horses.birth_year)`

func (q *Queries) UpsertHorseProfile(ctx context.Context, horse Horse) error {
	_, err := q.namedExec(ctx, upsertHorseProfile, horse)
	return err
}

const upsertJockeyProfile = `
INSERT INTO jockeys (jockey_id, jockey_name)
VALUES (:jockey_id, :jockey_name)
ON CONFLICT (jockey_id) DO UPDATE SET
    jockey_name = excluded.jockey_name`

func (q *Queries) UpsertJockeyProfile(ctx context.Context, jockey Jockey) error {
	_, err := q.namedExec(ctx, upsertJockeyProfile, jockey)
	return err
}

const upsertJockey = `
INSERT INTO jockeys (jockey_id, jockey_name)
VALUES (:jockey_id, :jockey_name)
ON CONFLICT (jockey_id) DO UPDATE SET
    jockey_name = CASE
        WHEN substr(jockeys.jockey_name, 1, 8) = 'UNKNOWN_' THEN excluded.jockey_name
        ELSE jockeys.jockey_name
    END`

func (q *Queries) UpsertJockey(ctx context.Context, jockey Jockey) error {
	_, err := q.namedExec(ctx, upsertJockey, jockey)
	return err
}

const upsertTrainer = `
INSERT INTO trainers (trainer_id, trainer_name)
VALUES (:trainer_id, :trainer_name)
ON CONFLICT (trainer_id) DO UPDATE SET
    trainer_name = CASE
        WHEN substr(trainers.trainer_name, 1, 8) = 'UNKNOWN_' THEN excluded.trainer_name
        ELSE trainers.trainer_name
    END`

func (q *Queries) UpsertTrainer(ctx context.Context, trainer Trainer) error {
	_, err := q.namedExec(ctx, upsertTrainer, trainer)
	return err
}

const upsertRace = `
INSERT INTO races (
    race_id, date, course_id, venue_id, race_no, race_name, distance, surface,
    weather, going, class, age_cond, sex_cond, num_runners, win_time_sec, race_type
) VALUES (
    :race_id, :date, :course_id, :venue_id, :race_no, :race_name, :distance, :surface,
    :weather, :going, :class, :age_cond, :sex_cond, :num_runners, :win_time_sec, :race_type
)
ON CONFLICT (race_id) DO UPDATE SET
    date = excluded.date,
    course_id = excluded.course_id,
    venue_id = excluded.venue_id,
    race_no = excluded.race_no,
    race_name = excluded.race_name,
    distance = excluded.distance,
    surface = excluded.surface,
    weather = excluded.weather,
    going = excluded.going,
    class = excluded.class,
    age_cond = excluded.age_cond,
    sex_cond = excluded.sex_cond,
    num_runners = excluded.num_runners,
    win_time_sec = excluded.win_time_sec,
    race_type = excluded.race_type`

// UpsertRace overwrites every attribute of an existing race, the last parse
// wins.
func (q *Queries) UpsertRace(ctx context.Context, race Race) error {
	_, err := q.namedExec(ctx, upsertRace, race)
	return err
}

// the prev_* columns belong to the linker and are left alone
const upsertRaceResult = `
INSERT INTO race_results (
    race_id, horse_id, bracket_no, horse_no, finish_rank, status, finish_time_sec,
    odds, popularity, weight, weight_diff, body_weight, jockey_id, trainer_id,
    corner_order, last_3f, margin_sec, margin_is_approx, prize
) VALUES (
    :race_id, :horse_id, :bracket_no, :horse_no, :finish_rank, :status, :finish_time_sec,
    :odds, :popularity, :weight, :weight_diff, :body_weight, :jockey_id, :trainer_id,
    :corner_order, :last_3f, :margin_sec, :margin_is_approx, :prize
)
ON CONFLICT (race_id, horse_id) DO UPDATE SET
    bracket_no = excluded.bracket_no,
    horse_no = excluded.horse_no,
    finish_rank = excluded.finish_rank,
    status = excluded.status,
    finish_time_sec = excluded.finish_time_sec,
    odds = excluded.odds,
    popularity = excluded.popularity,
    weight = excluded.weight,
    weight_diff = excluded.weight_diff,
    body_weight = excluded.body_weight,
    jockey_id = excluded.jockey_id,
    trainer_id = excluded.trainer_id,
    corner_order = excluded.corner_order,
    last_3f = excluded.last_3f,
    margin_sec = excluded.margin_sec,
    margin_is_approx = excluded.margin_is_approx,
    prize = excluded.prize`

func (q *Queries) UpsertRaceResult(ctx context.Context, result RaceResult) error {
	_, err := q.namedExec(ctx, upsertRaceResult, result)
	return err
}

const listLinkRows = `
SELECT rr.race_id, rr.horse_id, r.date, rr.finish_rank, rr.margin_sec,
    rr.finish_time_sec, rr.last_3f
FROM race_results rr
JOIN races r ON r.race_id = rr.race_id
ORDER BY rr.horse_id, r.date, rr.race_id`

// ListLinkRows returns every runner ordered by horse, then date, then race id.
func (q *Queries) ListLinkRows(ctx context.Context) ([]LinkRow, error) {
	var rows []LinkRow
	err := sqlx.SelectContext(ctx, q.db, &rows, listLinkRows)
	return rows, err
}

const updatePrev = `
UPDATE race_results SET
    prev_race_id = :prev_race_id,
    prev_finish_rank = :prev_finish_rank,
    prev_margin_sec = :prev_margin_sec,
    prev_time_sec = :prev_time_sec,
    prev_last_3f = :prev_last_3f,
    days_since_last = :days_since_last
WHERE race_id = :race_id AND horse_id = :horse_id`

func (q *Queries) UpdatePrev(ctx context.Context, link PrevLink) error {
	_, err := q.namedExec(ctx, updatePrev, link)
	return err
}

func (q *Queries) GetRace(ctx context.Context, raceID string) (Race, error) {
	var race Race
	err := sqlx.GetContext(ctx, q.db, &race, q.db.Rebind(`SELECT * FROM races WHERE race_id = ?`), raceID)
	return race, err
}

func (q *Queries) GetHorse(ctx context.Context, horseID string) (Horse, error) {
	var horse Horse
	err := sqlx.GetContext(ctx, q.db, &horse, q.db.Rebind(`SELECT * FROM horses WHERE horse_id = ?`), horseID)
	return horse, err
}

func (q *Queries) GetCourse(ctx context.Context, courseID string) (Course, error) {
	var course Course
	err := sqlx.GetContext(
		ctx, q.db, &course,
		q.db.Rebind(`SELECT course_id, venue_id, course_name, surface, track_type, features_text FROM courses WHERE course_id = ?`),
		courseID,
	)
	return course, err
}

func (q *Queries) ListRaceResults(ctx context.Context, raceID string) ([]RaceResult, error) {
	var results []RaceResult
	err := sqlx.SelectContext(
		ctx, q.db, &results,
		q.db.Rebind(`SELECT * FROM race_results WHERE race_id = ? ORDER BY horse_no, horse_id`),
		raceID,
	)
	return results, err
}

const upsertWinOdds = `
INSERT INTO odds_win (race_id, horse_id, horse_no, win_odds, popularity)
VALUES (:race_id, :horse_id, :horse_no, :win_odds, :popularity)
ON CONFLICT (race_id, horse_id) DO UPDATE SET
    horse_no = COALESCE(excluded.horse_no, odds_win.horse_no),
    win_odds = excluded.win_odds,
    popularity = COALESCE(excluded.popularity, odds_win.popularity)`

func (q *Queries) UpsertWinOdds(ctx context.Context, odds WinOdds) error {
	_, err := q.namedExec(ctx, upsertWinOdds, odds)
	return err
}

// a runner is matched on its horse id first, then on its horse number
const backfillWinOdds = `
UPDATE race_results SET
    odds = COALESCE(odds, (
        SELECT o.win_odds FROM odds_win o
        WHERE o.race_id = race_results.race_id
            AND (o.horse_id = race_results.horse_id OR o.horse_no = race_results.horse_no)
            AND o.win_odds IS NOT NULL
        ORDER BY CASE WHEN o.horse_id = race_results.horse_id THEN 0 ELSE 1 END
        LIMIT 1
    )),
    popularity = COALESCE(popularity, (
        SELECT o.popularity FROM odds_win o
        WHERE o.race_id = race_results.race_id
            AND (o.horse_id = race_results.horse_id OR o.horse_no = race_results.horse_no)
            AND o.popularity IS NOT NULL
        ORDER BY CASE WHEN o.horse_id = race_results.horse_id THEN 0 ELSE 1 END
        LIMIT 1
    ))
WHERE EXISTS (
    SELECT 1 FROM odds_win o
    WHERE o.race_id = race_results.race_id
        AND (o.horse_id = race_results.horse_id OR o.horse_no = race_results.horse_no)
        AND (
            (race_results.odds IS NULL AND o.win_odds IS NOT NULL)
            OR (race_results.popularity IS NULL AND o.popularity IS NOT NULL)
        )
)`

// BackfillWinOdds fills the odds and popularity of runners that have none
// from odds_win, values read from the results page are never replaced. It
// returns the number of runners it touched.
func (q *Queries) BackfillWinOdds(ctx context.Context) (int64, error) {
	res, err := q.db.ExecContext(ctx, backfillWinOdds)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (q *Queries) ListWinOdds(ctx context.Context, raceID string) ([]WinOdds, error) {
	var out []WinOdds
	err := sqlx.SelectContext(
		ctx, q.db, &out,
		q.db.Rebind(`SELECT * FROM odds_win WHERE race_id = ? ORDER BY horse_no, horse_id`),
		raceID,
	)
	return out, err
}

type Table string

const (
	TableCourses     Table = "courses"
	TableRaces       Table = "races"
	TableHorses      Table = "horses"
	TableJockeys     Table = "jockeys"
	TableTrainers    Table = "trainers"
	TableRaceResults Table = "race_results"
	TableOddsWin     Table = "odds_win"
)

func (q *Queries) CountRows(ctx context.Context, table Table) (int, error) {
	switch table {
	case TableCourses, TableRaces, TableHorses, TableJockeys, TableTrainers, TableRaceResults, TableOddsWin:
	default:
		return 0, fmt.Errorf("unknown table %q", table)
	}
	var n int
	err := sqlx.GetContext(ctx, q.db, &n, fmt.Sprintf("SELECT COUNT(*) FROM %s", table))
	return n, err
}
