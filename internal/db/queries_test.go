package db_test

import (
	"context"
	"keiba-etl/internal/db"
	"keiba-etl/internal/racedata"
	"keiba-etl/lib/testutil"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestUpsertHorseMerge(t *testing.T) {
	ctx := context.Background()
	qry := db.New(testutil.SetupStore(t, "db-upsert-horse"))

	err := qry.UpsertHorse(ctx, db.Horse{
		HorseID:   "202405021211_H01",
		HorseName: "UNKNOWN_HORSE_02",
	})
	require.NoError(t, err)

	// a real name and new attributes replace the placeholder
	err = qry.UpsertHorse(ctx, db.Horse{
		HorseID:   "202405021211_H01",
		HorseName: "シンエンペラー",
		Sex:       racedata.Ptr("牡"),
		BirthYear: racedata.Ptr(2021),
	})
	require.NoError(t, err)

	// nulls and placeholders never erase known values
	err = qry.UpsertHorse(ctx, db.Horse{
		HorseID:   "202405021211_H01",
		HorseName: "UNKNOWN_HORSE_02",
	})
	require.NoError(t, err)

	horse, err := qry.GetHorse(ctx, "202405021211_H01")
	require.NoError(t, err)
	require.Equal(t, db.Horse{
		HorseID:   "202405021211_H01",
		HorseName: "シンエンペラー",
		Sex:       racedata.Ptr("牡"),
		BirthYear: racedata.Ptr(2021),
	}, horse)

	n, err := qry.CountRows(ctx, db.TableHorses)
	require.NoError(t, err)
	require.Equal(t, 1, n)
}

func TestEnsureCourseKeepsMaster(t *testing.T) {
	ctx := context.Background()
	qry := db.New(testutil.SetupStore(t, "db-ensure-course"))

	require.NoError(t, qry.EnsureCourse(ctx, db.Course{
		CourseID: "KYT_T_OUT", VenueID: "KYT", CourseName: "京都 芝 外回り", Surface: "turf",
		TrackType: racedata.Ptr("outer"), Features: racedata.Ptr("芝・右 外"),
	}))
	require.NoError(t, qry.EnsureCourse(ctx, db.Course{
		CourseID: "KYT_T_OUT", VenueID: "KYT", CourseName: "something else", Surface: "turf",
	}))

	course, err := qry.GetCourse(ctx, "KYT_T_OUT")
	require.NoError(t, err)
	require.Equal(t, "京都 芝 外回り", course.CourseName)
	require.Equal(t, racedata.Ptr("outer"), course.TrackType)
	require.Equal(t, racedata.Ptr("芝・右 外"), course.Features)
}

func TestCountRowsRejectsUnknownTable(t *testing.T) {
	qry := db.New(testutil.SetupStore(t, "db-count"))
	_, err := qry.CountRows(context.Background(), db.Table("sqlite_master; DROP TABLE races"))
	require.Error(t, err)
}

func TestUpsertProfilesOverwriteNames(t *testing.T) {
	ctx := context.Background()
	qry := db.New(testutil.SetupStore(t, "db-upsert-profile"))

	require.NoError(t, qry.UpsertHorse(ctx, db.Horse{
		HorseID: "2021105678", HorseName: "ダノンデサイル", Sex: racedata.Ptr("牡"),
	}))
	require.NoError(t, qry.UpsertHorseProfile(ctx, db.Horse{
		HorseID: "2021105678", HorseName: "ダノンデサイル(JPN)", BirthYear: racedata.Ptr(2021),
	}))
	horse, err := qry.GetHorse(ctx, "2021105678")
	require.NoError(t, err)
	require.Equal(t, db.Horse{
		HorseID:   "2021105678",
		HorseName: "ダノンデサイル(JPN)",
		Sex:       racedata.Ptr("牡"),
		BirthYear: racedata.Ptr(2021),
	}, horse)
}

func TestRaceConditions(t *testing.T) {
	ctx := context.Background()
	qry := db.New(testutil.SetupStore(t, "db-race-conditions"))

	require.NoError(t, qry.EnsureCourse(ctx, db.Course{
		CourseID: "TOK_T", VenueID: "TOK", CourseName: "東京 芝", Surface: "turf",
	}))
	races := []db.Race{
		{RaceID: "202405021211", Class: racedata.Ptr("G1"), AgeCond: racedata.Ptr("3YO"), SexCond: racedata.Ptr("F")},
		{RaceID: "202405021210", Class: racedata.Ptr("3-WIN"), AgeCond: racedata.Ptr("4YO+")},
		{RaceID: "202405021209", Class: racedata.Ptr("3-WIN"), AgeCond: racedata.Ptr("4YO+")},
		{RaceID: "202405021208", AgeCond: racedata.Ptr("3YO+")},
	}
	for i, race := range races {
		race.CourseID = "TOK_T"
		race.RaceNo = 11 - i
		race.RaceType = "FLAT"
		require.NoError(t, qry.UpsertRace(ctx, race))
	}

	stats, err := qry.RaceConditions(ctx, 2)
	require.NoError(t, err)
	require.Len(t, stats, 3)

	require.Equal(t, db.ConditionClass, stats[0].Column)
	require.Equal(t, 1, stats[0].Nulls)
	require.Equal(t, []db.ConditionValue{
		{Value: racedata.Ptr("3-WIN"), Races: 2},
		{Value: racedata.Ptr("G1"), Races: 1},
	}, stats[0].Top)

	require.Equal(t, db.ConditionAgeCond, stats[1].Column)
	require.Zero(t, stats[1].Nulls)
	require.Equal(t, []db.ConditionValue{
		{Value: racedata.Ptr("4YO+"), Races: 2},
		{Value: racedata.Ptr("3YO"), Races: 1},
	}, stats[1].Top)

	require.Equal(t, db.ConditionSexCond, stats[2].Column)
	require.Equal(t, 3, stats[2].Nulls)
	require.Equal(t, []db.ConditionValue{
		{Races: 3},
		{Value: racedata.Ptr("F"), Races: 1},
	}, stats[2].Top)
}
