package assemble

import (
	"context"
	"keiba-etl/internal/fields"
	"keiba-etl/internal/racedata"
	"keiba-etl/internal/telemetry"
	"keiba-etl/lib/testutil"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/japanese"
)

const derbyID = "202405021211"

func newAssembler(rec *telemetry.Recorder) *Assembler {
	mapper := fields.NewMapper(rec, fields.DefaultHeaderTable())
	return NewAssembler(mapper, fields.DefaultMarginScale(), rec)
}

func TestAssembleDerby(t *testing.T) {
	rec := telemetry.NewRecorder()
	page, err := newAssembler(rec).Assemble(context.Background(), derbyID, []byte(testutil.DerbyPage().HTML()))
	require.NoError(t, err)

	require.True(t, page.HasTable)
	require.Zero(t, page.DroppedRows)

	race := page.Race
	require.Equal(t, derbyID, race.ID)
	require.Equal(t, "2024-05-26", race.Date.Format("2006-01-02"))
	require.Equal(t, 11, race.RaceNo)
	require.Equal(t, racedata.Ptr("TOK"), race.VenueID)
	require.Equal(t, "TOK_T", race.CourseID)
	require.Equal(t, racedata.Ptr(2400), race.Distance)
	require.Equal(t, racedata.RaceFlat, race.RaceType)
	require.Equal(t, racedata.Ptr(3), race.NumRunners)
	require.InDelta(t, 144.3, *race.WinTimeSec, 1e-9)

	require.Equal(t, racedata.Course{
		ID:      "TOK_T",
		VenueID: "TOK",
		Name:    "東京 芝",
		Surface: "turf",
	}, page.Course)

	require.Len(t, page.Runners, 3)
	first := page.Runners[0]
	require.Equal(t, "pw01dud102021105678/3A", first.HorseID)
	require.Equal(t, racedata.Ptr(1), first.FinishRank)
	require.Equal(t, racedata.StatusOK, first.Status)
	require.Equal(t, racedata.Ptr(5), first.HorseNo)
	require.Equal(t, racedata.Ptr(3), first.BracketNo)
	require.Equal(t, racedata.Ptr("3-3-3-3"), first.CornerOrder)
	require.Equal(t, racedata.Ptr(496), first.BodyWeight)
	require.Equal(t, racedata.Ptr(2), first.WeightDiff)
	require.Equal(t, racedata.Ptr(57.0), first.Weight)
	require.Nil(t, first.MarginSec)
	require.Nil(t, first.MarginApprox)
	require.Equal(t, racedata.Ptr("pw04kmk000660/7C"), first.JockeyID)
	require.Equal(t, racedata.Ptr("pw05cmk01173/12"), first.TrainerID)
	// odds come from the win payout since the table has no odds column
	require.NotNil(t, first.Odds)
	require.InDelta(t, 46.7, *first.Odds, 1e-9)
	require.Equal(t, racedata.Ptr(9), first.Popularity)

	second := page.Runners[1]
	require.Equal(t, "HORSE_ジャスティンミラノ", second.HorseID)
	require.Equal(t, racedata.Ptr("TRAINER_友道_康夫"), second.TrainerID)
	require.InDelta(t, 0.5, *second.MarginSec, 1e-9)
	require.Equal(t, racedata.Ptr(true), second.MarginApprox)
	require.InDelta(t, 1.4, *second.Odds, 1e-9)

	third := page.Runners[2]
	require.Equal(t, derbyID+"_H01", third.HorseID)
	require.Equal(t, racedata.Ptr("JOCKEY_北村_友一"), third.JockeyID)
	require.Equal(t, racedata.Ptr("10-10-9-8"), third.CornerOrder)
	require.Equal(t, racedata.Ptr(0), third.WeightDiff)
	require.InDelta(t, 0.02, *third.MarginSec, 1e-9)
	require.InDelta(t, 33.9, *third.Last3F, 1e-9)

	require.Equal(t, racedata.UnknownCounts{Horse: 1}, page.Unknowns)
	require.Len(t, page.Horses, 3)
	require.Equal(t, "UNKNOWN_HORSE_02", page.Horses[2].Name)
	require.Equal(t, racedata.Ptr("牡"), page.Horses[0].Sex)
	require.Equal(t, racedata.Ptr(2021), page.Horses[0].BirthYear)
	require.Len(t, page.Jockeys, 3)
	require.Len(t, page.Trainers, 3)

	n, ok := rec.Count("assemble.unknowns")
	require.True(t, ok)
	require.EqualValues(t, 1, n)
}

func TestAssembleDeterministic(t *testing.T) {
	raw := []byte(testutil.DerbyPage().HTML())
	a := newAssembler(telemetry.NewRecorder())

	first, err := a.Assemble(context.Background(), derbyID, raw)
	require.NoError(t, err)
	second, err := a.Assemble(context.Background(), derbyID, raw)
	require.NoError(t, err)

	if diff := cmp.Diff(first, second); diff != "" {
		t.Fatal("assembling the same page twice differs:\n", diff)
	}
}

func TestAssembleShiftJIS(t *testing.T) {
	fixture := testutil.DerbyPage()
	fixture.RaceName = "東京優駿"
	encoded, err := japanese.ShiftJIS.NewEncoder().String(fixture.HTML())
	require.NoError(t, err)

	page, err := newAssembler(telemetry.NewRecorder()).Assemble(context.Background(), derbyID, []byte(encoded))
	require.NoError(t, err)
	require.Equal(t, racedata.Ptr("東京優駿"), page.Race.Name)
	require.Len(t, page.Runners, 3)
	require.Equal(t, "HORSE_ジャスティンミラノ", page.Runners[1].HorseID)
}

func TestAssembleNoTable(t *testing.T) {
	rec := telemetry.NewRecorder()
	raw := `<html><body><div class="race_header"><h1>11レース</h1>
		<p>2024年5月26日 2回東京12日</p><p>芝 2,400m</p></div>
		<p>この競走は取りやめになりました</p></body></html>`

	page, err := newAssembler(rec).Assemble(context.Background(), derbyID, []byte(raw))
	require.NoError(t, err)
	require.False(t, page.HasTable)
	require.Empty(t, page.Runners)
	require.Nil(t, page.Race.NumRunners)
	require.Nil(t, page.Race.WinTimeSec)
	require.Equal(t, 11, page.Race.RaceNo)
	require.True(t, rec.Has("warning", "assemble.find-table"))
}

func TestAssembleDropsUnnumberedRows(t *testing.T) {
	rec := telemetry.NewRecorder()
	fixture := testutil.DerbyPage()
	fixture.Rows[1].HorseNo = "-"

	page, err := newAssembler(rec).Assemble(context.Background(), derbyID, []byte(fixture.HTML()))
	require.NoError(t, err)
	require.Equal(t, 1, page.DroppedRows)
	require.Len(t, page.Runners, 2)
	require.Equal(t, racedata.Ptr(2), page.Race.NumRunners)
	require.True(t, rec.Has("warning", "assemble.drop-row"))

	// rank 3 of a two runner race is impossible
	third := page.Runners[1]
	require.Nil(t, third.FinishRank)
	require.Equal(t, racedata.StatusUnknown, third.Status)
}

func TestAssembleStatuses(t *testing.T) {
	fixture := testutil.DerbyPage()
	fixture.WithOdds = true
	fixture.Rows[0].Odds = "3.5"
	fixture.Rows[1].Rank = "中止"
	fixture.Rows[1].Time = ""
	fixture.Rows[2].Rank = "失格"

	page, err := newAssembler(telemetry.NewRecorder()).Assemble(context.Background(), derbyID, []byte(fixture.HTML()))
	require.NoError(t, err)
	require.Len(t, page.Runners, 3)

	// table odds are kept, the payout only fills gaps
	require.Equal(t, racedata.Ptr(3.5), page.Runners[0].Odds)
	require.Nil(t, page.Runners[1].FinishRank)
	require.Equal(t, racedata.StatusDNF, page.Runners[1].Status)
	require.Nil(t, page.Runners[2].FinishRank)
	require.Equal(t, racedata.StatusDQ, page.Runners[2].Status)
}

func TestAssembleJump(t *testing.T) {
	rec := telemetry.NewRecorder()
	raw := `<html><body><div class="race_header"><h1>8レース</h1>
		<p>2024年4月13日 1回中山7日</p><p>障害4歳以上オープン</p><p>障害・芝 4,250m</p></div>
		<table><tr><th>着順</th><th>馬番</th><th>馬名</th><th>タイム</th><th>平均1F</th></tr>
		<tr><td>1</td><td>3</td><td>イロゴトシ</td><td>4:49.1</td><td>13.6</td></tr>
		<tr><td>2</td><td>7</td><td>ニシノデイジー</td><td>4:50.0</td><td>13.7</td></tr>
		</table></body></html>`

	page, err := newAssembler(rec).Assemble(context.Background(), "202406010708", []byte(raw))
	require.NoError(t, err)
	require.Equal(t, racedata.RaceJump, page.Race.RaceType)
	require.Equal(t, racedata.Ptr(racedata.SurfaceJump), page.Race.Surface)
	require.Equal(t, "NAK_J", page.Race.CourseID)
	require.Equal(t, racedata.Ptr(4250), page.Race.Distance)
	require.Len(t, page.Runners, 2)
	require.InDelta(t, 13.6, *page.Runners[0].Last3F, 1e-9)
	require.InDelta(t, 289.1, *page.Race.WinTimeSec, 1e-9)
	// these rows carry neither jockey nor trainer
	require.Equal(t, racedata.UnknownCounts{Jockey: 2, Trainer: 2}, page.Unknowns)
}
