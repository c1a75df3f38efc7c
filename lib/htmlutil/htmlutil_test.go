package htmlutil

import (
	"context"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/require"
)

func parse(t *testing.T, markup string) *goquery.Document {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		t.Fatal(err)
	}
	return doc
}

func TestCellText(t *testing.T) {
	doc := parse(t, `<table><tr><td class="horse">
		<a href="/x">ゴールド
		シップ</a>  <span>B</span></td></tr></table>`)
	require.Equal(t, "ゴールド シップ B", CellText(doc.Find("td.horse")))
}

func TestLines(t *testing.T) {
	doc := parse(t, `<table><tr><td id="a">3<br>5<br/> 11 </td><td id="b"><div>1,230円</div><div> </div><div>450円</div></td></tr></table>`)
	require.Equal(t, []string{"3", "5", "11"}, Lines(doc.Find("#a")))
	require.Equal(t, []string{"1,230円", "450円"}, Lines(doc.Find("#b")))
}

func TestGetAnchors(t *testing.T) {
	doc := parse(t, `<p>
		<a href="/JRADB/accessU.html?CNAME=pw01dud102019104567/8A">ドウデュース</a>
		<a href="#" onClick="return doAction('/JRADB/accessK.html','pw04kmk001183/4F');">武 豊</a>
	</p>`)
	anchors := GetAnchors(context.Background(), doc.Find("a"))
	require.Len(t, anchors, 2)
	require.Equal(t, "ドウデュース", anchors[0].Name)
	require.Contains(t, anchors[0].Href, "CNAME=pw01dud102019104567/8A")
	require.Equal(t, "武 豊", anchors[1].Name)
	require.Contains(t, anchors[1].OnClick, "accessK.html")
}
