package db

// Dates are stored as "YYYY-MM-DD" text so that every supported driver
// orders them the same way.

type Course struct {
	CourseID   string  `db:"course_id"`
	VenueID    string  `db:"venue_id"`
	CourseName string  `db:"course_name"`
	Surface    string  `db:"surface"`
	TrackType  *string `db:"track_type"`
	Features   *string `db:"features_text"`
}

type Race struct {
	RaceID     string   `db:"race_id"`
	Date       *string  `db:"date"`
	CourseID   string   `db:"course_id"`
	VenueID    *string  `db:"venue_id"`
	RaceNo     int      `db:"race_no"`
	RaceName   *string  `db:"race_name"`
	Distance   *int     `db:"distance"`
	Surface    *string  `db:"surface"`
	Weather    *string  `db:"weather"`
	Going      *string  `db:"going"`
	Class      *string  `db:"class"`
	AgeCond    *string  `db:"age_cond"`
	SexCond    *string  `db:"sex_cond"`
	NumRunners *int     `db:"num_runners"`
	WinTimeSec *float64 `db:"win_time_sec"`
	RaceType   string   `db:"race_type"`
}

type Horse struct {
	HorseID   string  `db:"horse_id"`
	HorseName string  `db:"horse_name"`
	Sex       *string `db:"sex"`
	BirthYear *int    `db:"birth_year"`
}

type Jockey struct {
	JockeyID   string `db:"jockey_id"`
	JockeyName string `db:"jockey_name"`
}

type Trainer struct {
	TrainerID   string `db:"trainer_id"`
	TrainerName string `db:"trainer_name"`
}

type RaceResult struct {
	RaceID        string   `db:"race_id"`
	HorseID       string   `db:"horse_id"`
	BracketNo     *int     `db:"bracket_no"`
	HorseNo       *int     `db:"horse_no"`
	FinishRank    *int     `db:"finish_rank"`
	Status        string   `db:"status"`
	FinishTimeSec *float64 `db:"finish_time_sec"`
	Odds          *float64 `db:"odds"`
	Popularity    *int     `db:"popularity"`
	Weight        *float64 `db:"weight"`
	WeightDiff    *int     `db:"weight_diff"`
	BodyWeight    *int     `db:"body_weight"`
	JockeyID      *string  `db:"jockey_id"`
	TrainerID     *string  `db:"trainer_id"`
	CornerOrder   *string  `db:"corner_order"`
	Last3F        *float64 `db:"last_3f"`
	MarginSec     *float64 `db:"margin_sec"`
	MarginApprox  *bool    `db:"margin_is_approx"`
	Prize         *int     `db:"prize"`

	PrevRaceID     *string  `db:"prev_race_id"`
	PrevFinishRank *int     `db:"prev_finish_rank"`
	PrevMarginSec  *float64 `db:"prev_margin_sec"`
	PrevTimeSec    *float64 `db:"prev_time_sec"`
	PrevLast3F     *float64 `db:"prev_last_3f"`
	DaysSinceLast  *int     `db:"days_since_last"`
}

// LinkRow is one runner as seen by the previous race linker.
type LinkRow struct {
	RaceID        string   `db:"race_id"`
	HorseID       string   `db:"horse_id"`
	Date          *string  `db:"date"`
	FinishRank    *int     `db:"finish_rank"`
	MarginSec     *float64 `db:"margin_sec"`
	FinishTimeSec *float64 `db:"finish_time_sec"`
	Last3F        *float64 `db:"last_3f"`
}

type PrevLink struct {
	RaceID         string   `db:"race_id"`
	HorseID        string   `db:"horse_id"`
	PrevRaceID     *string  `db:"prev_race_id"`
	PrevFinishRank *int     `db:"prev_finish_rank"`
	PrevMarginSec  *float64 `db:"prev_margin_sec"`
	PrevTimeSec    *float64 `db:"prev_time_sec"`
	PrevLast3F     *float64 `db:"prev_last_3f"`
	DaysSinceLast  *int     `db:"days_since_last"`
}

type WinOdds struct {
	RaceID     string   `db:"race_id"`
	HorseID    string   `db:"horse_id"`
	HorseNo    *int     `db:"horse_no"`
	WinOdds    *float64 `db:"win_odds"`
	Popularity *int     `db:"popularity"`
}

type Summary struct {
	Races   int     `db:"races"`
	Results int     `db:"results"`
	MinDate *string `db:"min_date"`
	MaxDate *string `db:"max_date"`
}

type RaceNulls struct {
	RaceID         string `db:"race_id"`
	Total          int    `db:"total"`
	NullFinishRank int    `db:"null_finish_rank"`
	NullCorner     int    `db:"null_corner"`
	NullLast3F     int    `db:"null_last_3f"`
	NullMargin     int    `db:"null_margin"`
	NullOdds       int    `db:"null_odds"`
}

type RaceUnknowns struct {
	RaceID   string `db:"race_id"`
	Horses   int    `db:"horses"`
	Jockeys  int    `db:"jockeys"`
	Trainers int    `db:"trainers"`
}

type ZeroRunnerRace struct {
	RaceID string  `db:"race_id"`
	Date   *string `db:"date"`
}

type ConditionValue struct {
	Value *string `db:"value"`
	Races int     `db:"race_count"`
}

// ConditionStats is the completeness of one race condition column.
type ConditionStats struct {
	Column ConditionColumn
	Nulls  int
	Top    []ConditionValue
}
