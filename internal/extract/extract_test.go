package extract

import (
	"context"
	"keiba-etl/internal/fields"
	"keiba-etl/internal/racedata"
	"keiba-etl/internal/telemetry"
	"keiba-etl/lib/testutil"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/japanese"
)

func parse(t *testing.T, markup string) *goquery.Document {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		t.Fatal(err)
	}
	return doc
}

func TestDecode(t *testing.T) {
	text := "<p>2024年5月26日 東京優駿 ダノンデサイル</p>"

	decoded := Decode([]byte(text))
	require.Equal(t, "utf-8", decoded.Encoding)
	require.Equal(t, text, decoded.Text)
	require.False(t, decoded.Lossy)

	sjis, err := japanese.ShiftJIS.NewEncoder().String(text)
	require.NoError(t, err)
	decoded = Decode([]byte(sjis))
	require.Equal(t, "shift_jis", decoded.Encoding)
	require.Equal(t, text, decoded.Text)
	require.False(t, decoded.Lossy)

	eucjp, err := japanese.EUCJP.NewEncoder().String(text)
	require.NoError(t, err)
	decoded = Decode([]byte(`<meta charset="euc-jp">` + eucjp))
	require.Equal(t, "euc-jp", decoded.Encoding)
	require.Contains(t, decoded.Text, "ダノンデサイル")
}

func TestDecodeCorrupted(t *testing.T) {
	sjis, err := japanese.ShiftJIS.NewEncoder().String("着順 馬名 ダノンデサイル")
	require.NoError(t, err)
	// a lone lead byte and an invalid byte in the middle of the page
	corrupted := append([]byte(sjis), 0x81, 0xff, 0xfe)
	corrupted = append(corrupted, []byte(sjis)...)

	decoded := Decode(corrupted)
	require.True(t, decoded.Lossy)
	require.Contains(t, decoded.Text, "�")
	require.Contains(t, decoded.Text, "ダノンデサイル")

	require.Equal(t, "", Decode(nil).Text)
}

func TestFindResultsTable(t *testing.T) {
	ctx := context.Background()

	doc := parse(t, testutil.DerbyPage().HTML())
	table, err := FindResultsTable(ctx, doc)
	require.NoError(t, err)
	require.True(t, table.HasClass("basic"))

	doc = parse(t, `<table id="layout"><tr><td>
		<table id="results"><tr><td>着 順</td><td>馬名</td></tr><tr><td>1</td><td>A</td></tr></table>
	</td></tr></table>`)
	table, err = FindResultsTable(ctx, doc)
	require.NoError(t, err)
	id, _ := table.Attr("id")
	require.Equal(t, "results", id)

	doc = parse(t, `<table><tr><td>no results here</td></tr></table>`)
	table, err = FindResultsTable(ctx, doc)
	require.ErrorIs(t, err, ErrNoTable)
	require.Nil(t, table)
}

func TestReadTable(t *testing.T) {
	ctx := context.Background()
	rec := telemetry.NewRecorder()
	mapper := fields.NewMapper(rec, fields.DefaultHeaderTable())

	doc := parse(t, testutil.DerbyPage().HTML())
	sel, err := FindResultsTable(ctx, doc)
	require.NoError(t, err)

	table := ReadTable(ctx, sel, mapper)
	require.Empty(t, table.UnknownHeaders)
	require.True(t, table.Has(fields.FieldHorseNo))
	require.True(t, table.Has(fields.FieldCornerOrder))
	require.False(t, table.Has(fields.FieldOdds))
	require.Len(t, table.Rows, 3)

	first := table.Rows[0]
	require.Equal(t, 0, first.Index)
	require.Equal(t, "5", first.Text(fields.FieldHorseNo))
	require.Equal(t, "ダノンデサイル", first.Name(fields.FieldHorseName))
	require.Equal(t, "横山 典弘", first.Name(fields.FieldJockeyName))
	require.Equal(t, "496(+2)", first.Text(fields.FieldBodyWeight))
	require.Equal(t, "", first.Text(fields.FieldBracketNo))
	require.Equal(t, racedata.Ptr(3), first.BracketAlt)
	require.Equal(t, Refs{
		Horse:   "pw01dud102021105678/3A",
		Jockey:  "pw04kmk000660/7C",
		Trainer: "pw05cmk01173/12",
	}, first.Refs)

	second := table.Rows[1]
	require.Equal(t, Refs{Jockey: "pw04kmk001063/4B"}, second.Refs)

	third := table.Rows[2]
	require.Equal(t, 2, third.Index)
	require.Equal(t, "", third.Name(fields.FieldHorseName))
	require.Equal(t, Refs{}, third.Refs)
}

func TestReadTableColspanAndUnknown(t *testing.T) {
	ctx := context.Background()
	rec := telemetry.NewRecorder()
	mapper := fields.NewMapper(rec, fields.DefaultHeaderTable())

	doc := parse(t, `<table>
		<tr><th>着順</th><th colspan="2">馬番</th><th>馬名</th><th>謎の列</th></tr>
		<tr><td>1</td><td>icon</td><td>4</td><td><a href="https://db.netkeiba.com/horse/2019104567/">ドウデュース</a></td><td>x</td></tr>
		<tr><td></td><td></td><td></td><td></td><td></td></tr>
	</table>`)
	sel, err := FindResultsTable(ctx, doc)
	require.NoError(t, err)

	table := ReadTable(ctx, sel, mapper)
	require.Equal(t, []string{"謎の列"}, table.UnknownHeaders)
	require.True(t, rec.Has("warning", "fields.mapper.map"))
	// blank rows are skipped
	require.Len(t, table.Rows, 1)
	// first cell under a spanned header wins
	require.Equal(t, "icon", table.Rows[0].Text(fields.FieldHorseNo))
	require.Equal(t, "2019104567", table.Rows[0].Refs.Horse)
}

func TestRowRefsNetkeibaPaths(t *testing.T) {
	doc := parse(t, `<table><tr>
		<td><a href="/horse/2019104567/">ドウデュース</a></td>
		<td><a href="/jockey/result/recent/00666/">武豊</a></td>
		<td><a href="/trainer/01061/">友道康夫</a></td>
	</tr></table>`)
	refs := RowRefs(context.Background(), doc.Find("tr"))
	require.Equal(t, Refs{Horse: "2019104567", Jockey: "00666", Trainer: "01061"}, refs)
}

func TestPayoutsList(t *testing.T) {
	doc := parse(t, testutil.DerbyPage().HTML())
	payouts := Payouts(context.Background(), doc)
	require.Len(t, payouts, 5)

	win := payouts[0]
	require.Equal(t, racedata.BetWin, win.BetType)
	require.Equal(t, "5", win.Combination)
	require.Equal(t, racedata.Ptr(4670), win.Yen)
	require.Equal(t, racedata.Ptr(9), win.Popularity)
	require.InDelta(t, 46.7, *win.Odds, 1e-9)

	quinella := payouts[4]
	require.Equal(t, racedata.BetQuinella, quinella.BetType)
	require.Equal(t, "5-9", quinella.Combination)
	lead, ok := quinella.LeadNumber()
	require.True(t, ok)
	require.Equal(t, 5, lead)
}

func TestPayoutsTable(t *testing.T) {
	doc := parse(t, `<table class="pay_table_01">
		<tr><th>単勝</th><td>3</td><td>1,230</td><td>4</td></tr>
		<tr><th>複 勝</th><td>3<br>11<br>7</td><td>310<br>150<br>1,020</td><td>4<br>1<br>12</td></tr>
		<tr><th>馬単</th><td>3 → 11</td><td>5,210</td><td>18</td></tr>
	</table>`)
	payouts := Payouts(context.Background(), doc)
	require.Len(t, payouts, 5)

	require.Equal(t, racedata.BetPlace, payouts[3].BetType)
	require.Equal(t, "7", payouts[3].Combination)
	require.Equal(t, racedata.Ptr(1020), payouts[3].Yen)
	require.Equal(t, racedata.Ptr(12), payouts[3].Popularity)
	require.Equal(t, 2, payouts[3].LineNo)

	require.Equal(t, racedata.BetExacta, payouts[4].BetType)
	require.Equal(t, "3-11", payouts[4].Combination)
}

func TestParseOverview(t *testing.T) {
	doc := parse(t, testutil.DerbyPage().HTML())
	ov := ParseOverview(context.Background(), doc, "202405021211")

	require.Equal(t, racedata.Ptr("第91回東京優駿（GⅠ）"), ov.Name)
	require.NotNil(t, ov.Date)
	require.Equal(t, "2024-05-26", ov.Date.Format("2006-01-02"))
	require.Equal(t, racedata.Ptr(11), ov.RaceNo)
	require.Equal(t, &Venue{Code: "TOK", Name: "東京"}, ov.Venue)
	require.Equal(t, racedata.Ptr("晴"), ov.Weather)
	require.Equal(t, racedata.Ptr("良"), ov.Going)
	require.Equal(t, racedata.Ptr(2400), ov.Distance)
	require.Equal(t, racedata.Ptr(racedata.SurfaceTurf), ov.Surface)
	require.Nil(t, ov.TrackType)
	require.Equal(t, racedata.Ptr("芝・左"), ov.LayoutText)
	require.Equal(t, racedata.Ptr("G1"), ov.Class)
	require.Equal(t, racedata.Ptr("3YO"), ov.AgeCond)
	require.Nil(t, ov.SexCond)
	require.False(t, ov.MentionsJump)
}

func TestParseOverviewFallbacks(t *testing.T) {
	doc := parse(t, `<html><body><div class="race_header">
		<h2>障害4歳以上未勝利</h2>
		<p>天候 : 曇 ダート : 重</p>
		<p>障害・芝 3,110m</p>
		<p>4歳以上 未勝利 牝馬限定</p>
	</div></body></html>`)
	ov := ParseOverview(context.Background(), doc, "202409030807")

	require.Nil(t, ov.Date)
	require.Equal(t, racedata.Ptr(7), ov.RaceNo)
	require.Equal(t, &Venue{Code: "HAN", Name: "阪神"}, ov.Venue)
	require.Equal(t, racedata.Ptr("曇"), ov.Weather)
	require.Equal(t, racedata.Ptr("重"), ov.Going)
	require.Equal(t, racedata.Ptr(3110), ov.Distance)
	require.Equal(t, racedata.Ptr(racedata.SurfaceJump), ov.Surface)
	require.Equal(t, racedata.Ptr("MAIDEN"), ov.Class)
	require.Equal(t, racedata.Ptr("4YO+"), ov.AgeCond)
	require.Equal(t, racedata.Ptr("F"), ov.SexCond)
	require.True(t, ov.MentionsJump)

	empty := ParseOverview(context.Background(), parse(t, `<html><body></body></html>`), "bogus")
	require.Equal(t, Overview{}, empty)
}

func TestRaceIDFromName(t *testing.T) {
	id, ok := RaceIDFromName("race_202405021211.html")
	require.True(t, ok)
	require.Equal(t, "202405021211", id)

	_, ok = RaceIDFromName("race_2024.html")
	require.False(t, ok)
}

func TestPayoutsListClassOrder(t *testing.T) {
	// an item tagged with two bet classes is always read as the first listed one
	markup := `<ul>
		<li class="place win"><div class="line"><div class="num">5</div><div class="yen">4,670円</div><div class="pop">9人気</div></div></li>
		<li class="tierce trio"><div class="line"><div class="num">5-9-1</div><div class="yen">100,000円</div><div class="pop">120人気</div></div></li>
	</ul>`
	for i := 0; i < 20; i++ {
		payouts := Payouts(context.Background(), parse(t, markup))
		require.Len(t, payouts, 2)
		require.Equal(t, racedata.BetWin, payouts[0].BetType)
		require.Equal(t, racedata.BetTrio, payouts[1].BetType)
	}
}

func TestParseOverviewClass(t *testing.T) {
	table := []struct {
		header   string
		expected *string
	}{
		{header: "京王杯スプリングカップ（ g 2 ）", expected: racedata.Ptr("G2")},
		{header: "3歳以上 2 勝クラス", expected: racedata.Ptr("2-WIN")},
		{header: "4歳以上1000万下", expected: racedata.Ptr("2-WIN")},
		{header: "メイS（リステッド）", expected: racedata.Ptr("OPEN")},
		{header: "2歳新馬", expected: racedata.Ptr("NEW")},
		{header: "条件なし", expected: nil},
	}
	for _, row := range table {
		doc := parse(t, `<html><body><div class="race_header">`+row.header+`</div></body></html>`)
		ov := ParseOverview(context.Background(), doc, "")
		require.Equal(t, row.expected, ov.Class, row.header)
	}
}

func TestProfileIDFromName(t *testing.T) {
	kind, id, ok := ProfileIDFromName("horse_2021105678.html")
	require.True(t, ok)
	require.Equal(t, "horse", kind)
	require.Equal(t, "2021105678", id)

	kind, id, ok = ProfileIDFromName("jockey_01160.html")
	require.True(t, ok)
	require.Equal(t, "jockey", kind)
	require.Equal(t, "01160", id)

	for _, name := range []string{"trainer_01160.html", "horse_.html", "horse_1.htm", "race_202405021211.html"} {
		_, _, ok = ProfileIDFromName(name)
		require.False(t, ok, name)
	}
}

func TestParseHorseProfile(t *testing.T) {
	ctx := context.Background()
	doc := parse(t, `<html><head><title>競走馬情報</title></head><body>
<h1>ダノンデサイル</h1>
<table><tr><th>性別</th><td>牡</td></tr><tr><th>生年月日</th><td>2021年 3月 8日</td></tr></table>
</body></html>`)
	horse, ok := ParseHorseProfile(ctx, doc, "2021105678")
	require.True(t, ok)
	require.Equal(t, racedata.Horse{
		ID:        "2021105678",
		Name:      "ダノンデサイル",
		Sex:       racedata.Ptr("牡"),
		BirthYear: racedata.Ptr(2021),
	}, horse)

	// half width katakana gelding, name only in the title
	doc = parse(t, `<html><head><title>メイショウタバル</title></head><body><p>ｾﾝ 2019年4月1日生</p></body></html>`)
	horse, ok = ParseHorseProfile(ctx, doc, "2019100001")
	require.True(t, ok)
	require.Equal(t, "メイショウタバル", horse.Name)
	require.Equal(t, racedata.Ptr("騸"), horse.Sex)
	require.Equal(t, racedata.Ptr(2019), horse.BirthYear)

	doc = parse(t, `<html><body><p>データなし</p></body></html>`)
	_, ok = ParseHorseProfile(ctx, doc, "2019100002")
	require.False(t, ok)
}

func TestParseJockeyProfile(t *testing.T) {
	ctx := context.Background()
	doc := parse(t, `<html><body><h1> </h1><h2>横山 典弘</h2></body></html>`)
	jockey, ok := ParseJockeyProfile(ctx, doc, "00660")
	require.True(t, ok)
	require.Equal(t, racedata.Jockey{ID: "00660", Name: "横山 典弘"}, jockey)

	_, ok = ParseJockeyProfile(ctx, parse(t, `<html><body></body></html>`), "00661")
	require.False(t, ok)
}

func TestParseWinOdds(t *testing.T) {
	raceID, ok := OddsRaceIDFromName("odds_202405021211.html")
	require.True(t, ok)
	require.Equal(t, "202405021211", raceID)
	_, ok = OddsRaceIDFromName("odds_2024.html")
	require.False(t, ok)

	doc := parse(t, `<table>
<tr><th>馬番</th><th>馬名</th><th>単勝</th></tr>
<tr><td class="num">5</td><td class="horse"><a href="/JRADB/accessU.html?CNAME=pw01dud102021105678/3A">ダノンデサイル</a></td><td class="odds_tan">46.6</td></tr>
<tr><td class="num">9</td><td class="horse">ジャスティンミラノ</td><td class="odds_tan">1.4</td></tr>
<tr><td class="num">1</td><td class="horse"></td><td class="odds_tan">取消</td></tr>
<tr><td class="num"></td><td class="odds_tan">9.9</td></tr>
<tr><td class="num">3</td></tr>
</table>`)
	lines := ParseWinOdds(context.Background(), doc, raceID)
	require.Equal(t, []WinOdds{
		{RaceID: raceID, HorseID: "pw01dud102021105678/3A", HorseNo: 5, Odds: racedata.Ptr(46.6)},
		{RaceID: raceID, HorseID: raceID + "_H09", HorseNo: 9, Odds: racedata.Ptr(1.4)},
		{RaceID: raceID, HorseID: raceID + "_H01", HorseNo: 1},
	}, lines)
}
