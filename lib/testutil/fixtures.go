package testutil

import (
	"fmt"
	"strings"
)

// ResultRow is one row of a synthetic results table, empty strings render
// as empty cells.
type ResultRow struct {
	Rank         string
	Bracket      string
	HorseNo      string
	Horse        string
	HorseToken   string
	SexAge       string
	Weight       string
	Jockey       string
	JockeyToken  string
	Time         string
	Margin       string
	Corner       string
	Last3F       string
	BodyWeight   string
	Trainer      string
	TrainerToken string
	Popularity   string
	Odds         string
}

// ResultsPage renders a results page shaped like the ones served by the
// racing authority site.
type ResultsPage struct {
	Date       string
	Meet       string
	RaceNo     int
	RaceName   string
	Conditions string
	Course     string
	Weather    string
	Going      string
	// WithOdds adds an odds column to the results table.
	WithOdds bool
	Rows     []ResultRow
	// PayoutHTML is appended after the results table verbatim.
	PayoutHTML string
}

func anchor(name, token, kind string) string {
	if name == "" {
		return ""
	}
	switch {
	case token == "":
		return name
	case kind == "U":
		return fmt.Sprintf(`<a href="/JRADB/accessU.html?CNAME=%s">%s</a>`, token, name)
	default:
		return fmt.Sprintf(
			`<a href="#" onclick="return doAction('/JRADB/access%s.html','%s');">%s</a>`,
			kind, token, name,
		)
	}
}

func (p ResultsPage) HTML() string {
	var b strings.Builder
	b.WriteString(`<!DOCTYPE html><html lang="ja"><head><meta charset="UTF-8"><title>レース結果</title></head><body>`)
	b.WriteString(`<div id="race_result"><div class="race_header">`)
	fmt.Fprintf(&b, `<div class="date_line"><div class="date">%s %s</div></div>`, p.Date, p.Meet)
	if p.RaceNo > 0 {
		fmt.Fprintf(&b, `<h1><span class="txt">%dレース</span></h1>`, p.RaceNo)
	}
	fmt.Fprintf(&b, `<div class="race_title"><h2>%s</h2></div>`, p.RaceName)
	fmt.Fprintf(&b, `<div class="type">%s</div>`, p.Conditions)
	fmt.Fprintf(&b, `<div class="cell course">%s</div>`, p.Course)
	if p.Weather != "" {
		fmt.Fprintf(&b, `<div class="baba">天候：%s 芝：%s</div>`, p.Weather, p.Going)
	}
	b.WriteString(`</div>`)

	b.WriteString(`<table class="basic narrow-xy striped"><thead><tr>`)
	b.WriteString(`<th class="place">着順</th><th class="waku">枠</th><th class="num">馬 番</th>`)
	b.WriteString(`<th class="horse">馬名</th><th class="age">性齢</th><th class="weight">負担<br>重量</th>`)
	b.WriteString(`<th class="jockey">騎手名</th><th class="time">タイム</th><th class="margin">着差</th>`)
	b.WriteString(`<th class="corner">コーナー<br>通過順位</th><th class="f_time">推定<br>上り</th>`)
	b.WriteString(`<th class="h_weight">馬体重<br>（増減）</th><th class="trainer">調教師名</th>`)
	b.WriteString(`<th class="pop">単勝<br>人気</th>`)
	if p.WithOdds {
		b.WriteString(`<th class="odds">単勝オッズ</th>`)
	}
	b.WriteString(`</tr></thead><tbody>`)

	for _, r := range p.Rows {
		b.WriteString(`<tr>`)
		fmt.Fprintf(&b, `<td class="place">%s</td>`, r.Rank)
		if r.Bracket != "" {
			fmt.Fprintf(&b, `<td class="waku"><img src="/img/waku.png" alt="枠%s"></td>`, r.Bracket)
		} else {
			b.WriteString(`<td class="waku"></td>`)
		}
		fmt.Fprintf(&b, `<td class="num">%s</td>`, r.HorseNo)
		fmt.Fprintf(&b, `<td class="horse">%s</td>`, anchor(r.Horse, r.HorseToken, "U"))
		fmt.Fprintf(&b, `<td class="age">%s</td>`, r.SexAge)
		fmt.Fprintf(&b, `<td class="weight">%s</td>`, r.Weight)
		fmt.Fprintf(&b, `<td class="jockey">%s</td>`, anchor(r.Jockey, r.JockeyToken, "K"))
		fmt.Fprintf(&b, `<td class="time">%s</td>`, r.Time)
		fmt.Fprintf(&b, `<td class="margin">%s</td>`, r.Margin)
		fmt.Fprintf(&b, `<td class="corner">%s</td>`, r.Corner)
		fmt.Fprintf(&b, `<td class="f_time">%s</td>`, r.Last3F)
		fmt.Fprintf(&b, `<td class="h_weight">%s</td>`, r.BodyWeight)
		fmt.Fprintf(&b, `<td class="trainer">%s</td>`, anchor(r.Trainer, r.TrainerToken, "C"))
		fmt.Fprintf(&b, `<td class="pop">%s</td>`, r.Popularity)
		if p.WithOdds {
			fmt.Fprintf(&b, `<td class="odds">%s</td>`, r.Odds)
		}
		b.WriteString(`</tr>`)
	}
	b.WriteString(`</tbody></table></div>`)
	b.WriteString(p.PayoutHTML)
	b.WriteString(`</body></html>`)
	return b.String()
}

// DerbyPage is a three runner race used across tests: ranks 1,2,3 with horse
// numbers 5,9,1, the third row has no horse name.
func DerbyPage() ResultsPage {
	return ResultsPage{
		Date:       "2024年5月26日（日曜）",
		Meet:       "2回東京12日",
		RaceNo:     11,
		RaceName:   "第91回東京優駿（GⅠ）",
		Conditions: "3歳 オープン （国際）牡・牝(指定) 定量",
		Course:     "コース：2,400メートル（芝・左）",
		Weather:    "晴",
		Going:      "良",
		Rows: []ResultRow{
			{
				Rank: "1", Bracket: "3", HorseNo: "5",
				Horse: "ダノンデサイル", HorseToken: "pw01dud102021105678/3A",
				SexAge: "牡3", Weight: "57.0",
				Jockey: "横山 典弘", JockeyToken: "pw04kmk000660/7C",
				Time: "2:24.3", Corner: "3 3 3 3", Last3F: "34.2", BodyWeight: "496(+2)",
				Trainer: "安田 翔伍", TrainerToken: "pw05cmk01173/12",
				Popularity: "9",
			},
			{
				Rank: "2", Bracket: "5", HorseNo: "9",
				Horse: "ジャスティンミラノ", SexAge: "牡3", Weight: "57.0",
				Jockey: "戸崎 圭太", JockeyToken: "pw04kmk001063/4B",
				Time: "2:24.7", Margin: "2 1/2", Corner: "5 5 4 2", Last3F: "34.4", BodyWeight: "496(-2)",
				Trainer:    "友道 康夫",
				Popularity: "1",
			},
			{
				Rank: "3", Bracket: "1", HorseNo: "1",
				SexAge: "牡3", Weight: "57.0",
				Jockey: "北村 友一",
				Time:   "2:24.7", Margin: "ハナ", Corner: "10/10/9/8", Last3F: "33.9", BodyWeight: "470（０）",
				Trainer:    "池江 泰寿",
				Popularity: "7",
			},
		},
		PayoutHTML: `<div class="refund_area"><ul class="refund_list">` +
			`<li class="win"><dl><dt>単勝</dt><dd><div class="line"><div class="num">5</div><div class="yen">4,670<span class="unit">円</span></div><div class="pop">9<span class="unit">番人気</span></div></div></dd></dl></li>` +
			`<li class="place"><dl><dt>複勝</dt><dd>` +
			`<div class="line"><div class="num">5</div><div class="yen">700<span class="unit">円</span></div><div class="pop">9<span class="unit">番人気</span></div></div>` +
			`<div class="line"><div class="num">9</div><div class="yen">140<span class="unit">円</span></div><div class="pop">1<span class="unit">番人気</span></div></div>` +
			`<div class="line"><div class="num">1</div><div class="yen">470<span class="unit">円</span></div><div class="pop">7<span class="unit">番人気</span></div></div>` +
			`</dd></dl></li>` +
			`<li class="umaren"><dl><dt>馬連</dt><dd><div class="line"><div class="num">5-9</div><div class="yen">4,730<span class="unit">円</span></div><div class="pop">15<span class="unit">番人気</span></div></div></dd></dl></li>` +
			`</ul></div>`,
	}
}
