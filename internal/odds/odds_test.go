package odds

import (
	"context"
	"keiba-etl/internal/assemble"
	"keiba-etl/internal/db"
	"keiba-etl/internal/fields"
	"keiba-etl/internal/loader"
	"keiba-etl/internal/racedata"
	"keiba-etl/internal/telemetry"
	"keiba-etl/lib/testutil"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

const derbyID = "202405021211"

const derbyOdds = `<html><body><table class="basic">
<tr><th>馬番</th><th>馬名</th><th>単勝</th></tr>
<tr><td class="num">5</td><td class="horse"><a href="/JRADB/accessU.html?CNAME=pw01dud102021105678/3A">ダノンデサイル</a></td><td class="odds_tan">46.6</td></tr>
<tr><td class="num">9</td><td class="horse">ジャスティンミラノ</td><td class="odds_tan">1.4</td></tr>
<tr><td class="num">1</td><td class="horse"></td><td class="odds_tan">取消</td></tr>
<tr><td class="num">計</td><td class="horse"></td><td class="odds_tan">0</td></tr>
</table></body></html>`

func writePage(t *testing.T, dir, name, contents string) string {
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(contents), 0644))
	return path
}

func TestDiscover(t *testing.T) {
	dir := t.TempDir()
	writePage(t, dir, "odds_202405021211.html", derbyOdds)
	writePage(t, dir, "odds_202305021211.html", derbyOdds)
	writePage(t, dir, "race_202405021211.html", "")

	all, err := Discover(dir, "")
	require.NoError(t, err)
	require.Len(t, all, 2)
	require.Equal(t, "202305021211", all[0].RaceID)

	year, err := Discover(dir, "2024")
	require.NoError(t, err)
	require.Equal(t, []Source{{RaceID: derbyID, Path: filepath.Join(dir, "odds_202405021211.html")}}, year)

	_, err = SourcesFromPaths([]string{filepath.Join(dir, "race_202405021211.html")})
	require.Error(t, err)
}

func TestLoadBackfillsMissingOdds(t *testing.T) {
	ctx := context.Background()
	store := testutil.SetupStore(t, "odds-backfill")
	qry := db.New(store)
	rec := telemetry.NewRecorder()

	// no payout block, so the results page leaves every odds empty
	fixture := testutil.DerbyPage()
	fixture.PayoutHTML = ""
	a := assemble.NewAssembler(fields.NewMapper(rec, fields.DefaultHeaderTable()), fields.DefaultMarginScale(), rec)
	page, err := a.Assemble(ctx, derbyID, []byte(fixture.HTML()))
	require.NoError(t, err)
	_, err = loader.NewLoader(db.NewMakeTx(store), rec).Load(ctx, page)
	require.NoError(t, err)

	dir := t.TempDir()
	sources, err := SourcesFromPaths([]string{writePage(t, dir, "odds_"+derbyID+".html", derbyOdds)})
	require.NoError(t, err)

	l := NewLoader(db.NewMakeTx(store), rec)
	res, err := l.Load(ctx, sources)
	require.NoError(t, err)
	require.Equal(t, Result{Pages: 1, Lines: 3, Backfilled: 2}, res)

	lines, err := qry.ListWinOdds(ctx, derbyID)
	require.NoError(t, err)
	require.Len(t, lines, 3)
	require.Equal(t, derbyID+"_H01", lines[0].HorseID)
	require.Nil(t, lines[0].WinOdds)
	require.Equal(t, "pw01dud102021105678/3A", lines[1].HorseID)
	require.Equal(t, derbyID+"_H09", lines[2].HorseID)

	results, err := qry.ListRaceResults(ctx, derbyID)
	require.NoError(t, err)
	byNo := map[int]db.RaceResult{}
	for _, r := range results {
		byNo[*r.HorseNo] = r
	}
	// matched on the site token
	require.InDelta(t, 46.6, *byNo[5].Odds, 1e-9)
	// matched on the horse number, the stored id is a name slug
	require.Equal(t, "HORSE_ジャスティンミラノ", byNo[9].HorseID)
	require.InDelta(t, 1.4, *byNo[9].Odds, 1e-9)
	require.Nil(t, byNo[1].Odds)
	require.Equal(t, racedata.Ptr(9), byNo[5].Popularity)

	// loading again changes nothing since every runner that could be filled is
	res, err = l.Load(ctx, sources)
	require.NoError(t, err)
	require.Zero(t, res.Backfilled)
	n, err := qry.CountRows(ctx, db.TableOddsWin)
	require.NoError(t, err)
	require.Equal(t, 3, n)
	count, ok := rec.Count("odds.backfilled-runners")
	require.True(t, ok)
	require.Zero(t, count)
}

func TestLoadKeepsResultsPageOdds(t *testing.T) {
	ctx := context.Background()
	store := testutil.SetupStore(t, "odds-keep")
	qry := db.New(store)
	rec := telemetry.NewRecorder()

	// the payout block of the page sets the winner's odds to 46.7
	a := assemble.NewAssembler(fields.NewMapper(rec, fields.DefaultHeaderTable()), fields.DefaultMarginScale(), rec)
	page, err := a.Assemble(ctx, derbyID, []byte(testutil.DerbyPage().HTML()))
	require.NoError(t, err)
	_, err = loader.NewLoader(db.NewMakeTx(store), rec).Load(ctx, page)
	require.NoError(t, err)

	dir := t.TempDir()
	sources, err := Discover(dir, "")
	require.NoError(t, err)
	require.Empty(t, sources)
	writePage(t, dir, "odds_"+derbyID+".html", derbyOdds)
	sources, err = Discover(dir, "")
	require.NoError(t, err)

	_, err = NewLoader(db.NewMakeTx(store), rec).Load(ctx, sources)
	require.NoError(t, err)

	results, err := qry.ListRaceResults(ctx, derbyID)
	require.NoError(t, err)
	for _, r := range results {
		if r.HorseNo != nil && *r.HorseNo == 5 {
			require.InDelta(t, 46.7, *r.Odds, 1e-9)
		}
	}
}
