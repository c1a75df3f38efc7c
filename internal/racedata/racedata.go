// Package racedata holds the record types produced by parsing one results
// page. Optional attributes are pointers, nil meaning "not found on the page".
package racedata

import "time"

type Surface string

const (
	SurfaceTurf Surface = "turf"
	SurfaceDirt Surface = "dirt"
	SurfaceJump Surface = "jump"
)

type TrackType string

const (
	TrackInner    TrackType = "inner"
	TrackOuter    TrackType = "outer"
	TrackStraight TrackType = "straight"
)

type RaceType string

const (
	RaceFlat RaceType = "FLAT"
	RaceJump RaceType = "JUMP"
)

// Status explains a runner's finish. Every status other than StatusOK comes
// with a nil finish rank.
type Status string

const (
	StatusOK        Status = "OK"
	StatusDNF       Status = "DNF"
	StatusScratched Status = "SCRATCHED"
	StatusCancelled Status = "CANCELLED"
	StatusDQ        Status = "DQ"
	StatusUnknown   Status = "UNKNOWN"
)

type Course struct {
	ID        string
	VenueID   string
	Name      string
	Surface   string
	TrackType *TrackType
	// Features is the free text layout note of the page, ex. "芝・左 外".
	Features *string
}

type Race struct {
	ID         string
	Date       *time.Time
	CourseID   string
	VenueID    *string
	RaceNo     int
	Name       *string
	Distance   *int
	Surface    *Surface
	Weather    *string
	Going      *string
	Class      *string
	AgeCond    *string
	SexCond    *string
	NumRunners *int
	WinTimeSec *float64
	RaceType   RaceType
}

// Runner is one horse's result in one race, keyed by (RaceID, HorseID).
//
// MarginSec is derived from heuristic per-length constants and is an
// approximation, not a measured gap. MarginApprox carries that flag into the
// store and is nil whenever MarginSec is.
type Runner struct {
	RaceID        string
	HorseID       string
	BracketNo     *int
	HorseNo       *int
	FinishRank    *int
	Status        Status
	FinishTimeSec *float64
	Odds          *float64
	Popularity    *int
	Weight        *float64
	WeightDiff    *int
	BodyWeight    *int
	JockeyID      *string
	TrainerID     *string
	CornerOrder   *string
	Last3F        *float64
	MarginSec     *float64
	MarginApprox  *bool
	Prize         *int

	// only ever set by the temporal linker
	PrevRaceID     *string
	PrevFinishRank *int
	PrevMarginSec  *float64
	PrevTimeSec    *float64
	PrevLast3F     *float64
	DaysSinceLast  *int
}

type Horse struct {
	ID        string
	Name      string
	Sex       *string
	BirthYear *int
}

type Jockey struct {
	ID   string
	Name string
}

type Trainer struct {
	ID   string
	Name string
}

type BetType string

const (
	BetWin             BetType = "win"
	BetPlace           BetType = "place"
	BetBracketQuinella BetType = "bracket_quinella"
	BetQuinella        BetType = "quinella"
	BetWide            BetType = "wide"
	BetExacta          BetType = "exacta"
	BetTrio            BetType = "trio"
	BetTrifecta        BetType = "trifecta"
)

// Payout is one line of a betting pool payout block.
type Payout struct {
	BetType     BetType
	Combination string
	Yen         *int
	Popularity  *int
	Odds        *float64
	LineNo      int
}

// LeadNumber returns the first horse number of the winning combination.
func (p Payout) LeadNumber() (int, bool) {
	n := 0
	digits := 0
	for _, r := range p.Combination {
		if r < '0' || r > '9' {
			break
		}
		n = n*10 + int(r-'0')
		digits++
	}
	return n, digits > 0
}

type UnknownCounts struct {
	Horse   int
	Jockey  int
	Trainer int
}

func (u UnknownCounts) Total() int {
	return u.Horse + u.Jockey + u.Trainer
}

func (u *UnknownCounts) Add(other UnknownCounts) {
	u.Horse += other.Horse
	u.Jockey += other.Jockey
	u.Trainer += other.Trainer
}

// Page is everything assembled out of a single results page.
type Page struct {
	Race     Race
	Course   Course
	Runners  []Runner
	Horses   []Horse
	Jockeys  []Jockey
	Trainers []Trainer
	Payouts  []Payout

	// HasTable is false when no results table could be located, Runners is
	// then always empty.
	HasTable       bool
	Unknowns       UnknownCounts
	DroppedRows    int
	UnknownHeaders []string
}

func Ptr[T any](v T) *T {
	return &v
}
