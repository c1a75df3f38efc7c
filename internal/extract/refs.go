package extract

import (
	"context"
	"keiba-etl/lib/htmlutil"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

type refKind int

const (
	refUnknown refKind = iota
	refHorse
	refJockey
	refTrainer
)

// Refs are the site-native tokens found in one results row.
type Refs struct {
	Horse   string
	Jockey  string
	Trainer string
}

var (
	cnameRegex   = regexp.MustCompile(`CNAME=([^&"'\s]+)`)
	onclickRegex = regexp.MustCompile(`access([A-Z])\.html'\s*,\s*'([^']+)'`)
	pathRegex    = regexp.MustCompile(`/(horse|jockey|trainer)/(?:result/recent/|result/|profile/)?([0-9A-Za-z]+)/?(?:$|[?#])`)
)

var cnamePrefixes = map[string]refKind{
	"pw01dud": refHorse,
	"pw04kmk": refJockey,
	"pw05cmk": refTrainer,
}

var accessPages = map[string]refKind{
	"U": refHorse,
	"K": refJockey,
	"C": refTrainer,
}

var pathKinds = map[string]refKind{
	"horse":   refHorse,
	"jockey":  refJockey,
	"trainer": refTrainer,
}

// anchorToken extracts a navigation token from an anchor, along with the kind
// of entity it points to when that can be told from the token itself.
func anchorToken(a htmlutil.Anchor) (refKind, string) {
	if match := cnameRegex.FindStringSubmatch(a.Href); match != nil {
		kind := refUnknown
		for prefix, k := range cnamePrefixes {
			if strings.HasPrefix(match[1], prefix) {
				kind = k
				break
			}
		}
		return kind, match[1]
	}
	if match := onclickRegex.FindStringSubmatch(a.OnClick); match != nil {
		return accessPages[match[1]], match[2]
	}
	if match := cnameRegex.FindStringSubmatch(a.OnClick); match != nil {
		return refUnknown, match[1]
	}
	if match := pathRegex.FindStringSubmatch(a.Href); match != nil {
		return pathKinds[match[1]], match[2]
	}
	return refUnknown, ""
}

func (r *Refs) set(kind refKind, token string) {
	switch kind {
	case refHorse:
		if r.Horse == "" {
			r.Horse = token
		}
	case refJockey:
		if r.Jockey == "" {
			r.Jockey = token
		}
	case refTrainer:
		if r.Trainer == "" {
			r.Trainer = token
		}
	}
}

var roleCells = []struct {
	selector string
	kind     refKind
}{
	{selector: "td.horse", kind: refHorse},
	{selector: "td.jockey", kind: refJockey},
	{selector: "td.trainer", kind: refTrainer},
}

// RowRefs collects the entity tokens of a single results row. Cells tagged
// with a role class are trusted first, any other anchor in the row is only
// used when its token identifies the entity kind by itself.
func RowRefs(ctx context.Context, row *goquery.Selection) Refs {
	var refs Refs
	for _, rc := range roleCells {
		for _, a := range htmlutil.GetAnchors(ctx, row.Find(rc.selector+" a")) {
			_, token := anchorToken(a)
			if token != "" {
				refs.set(rc.kind, token)
				break
			}
		}
	}
	for _, a := range htmlutil.GetAnchors(ctx, row.Find("a")) {
		kind, token := anchorToken(a)
		if token != "" {
			refs.set(kind, token)
		}
	}
	return refs
}
