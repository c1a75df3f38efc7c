package htmlutil

import (
	"bytes"
	"context"
	"keiba-etl/lib/textutil"
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/net/html"
)

var tracer = otel.Tracer("keiba.lib.htmlutil")

func GetText(node *html.Node) string {
	var buffer bytes.Buffer
	getTextRecursive(node, &buffer)
	return buffer.String()
}

func getTextRecursive(node *html.Node, buffer *bytes.Buffer) {
	if node == nil {
		return
	}
	if node.Type == html.TextNode {
		buffer.WriteString(node.Data)
		return
	}
	child := node.FirstChild
	for child != nil {
		getTextRecursive(child, buffer)
		child = child.NextSibling
	}
}

// CellText returns the collapsed, printable text of a selection.
func CellText(sel *goquery.Selection) string {
	var buffer bytes.Buffer
	for _, n := range sel.Nodes {
		getTextRecursive(n, &buffer)
	}
	return textutil.Collapse(removeNonPrintable(buffer.String()))
}

// Lines splits the text of a selection at <br> elements (and block boundaries
// of nested divs), dropping empty lines.
func Lines(sel *goquery.Selection) []string {
	var lines []string
	var current strings.Builder
	flush := func() {
		line := textutil.Collapse(removeNonPrintable(current.String()))
		if line != "" {
			lines = append(lines, line)
		}
		current.Reset()
	}

	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		switch {
		case n.Type == html.TextNode:
			current.WriteString(n.Data)
			return
		case n.Type == html.ElementNode && n.Data == "br":
			flush()
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
		if n.Type == html.ElementNode && (n.Data == "div" || n.Data == "p" || n.Data == "li") {
			flush()
		}
	}
	for _, n := range sel.Nodes {
		walk(n)
		flush()
	}
	return lines
}

type Anchor struct {
	Name    string
	Href    string
	OnClick string
}

func removeNonPrintable(s string) string {
	newStr := strings.Builder{}
	for _, c := range s {
		if unicode.IsPrint(c) || unicode.IsSpace(c) {
			newStr.WriteRune(c)
		}
	}
	return newStr.String()
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if strings.EqualFold(a.Key, key) {
			return a.Val
		}
	}
	return ""
}

// GetAnchors collects the anchors of a selection. Unlike a plain href lookup it
// keeps the onclick handler, which is where some page generations hide their
// navigation tokens.
func GetAnchors(ctx context.Context, sel *goquery.Selection) []Anchor {
	_, span := tracer.Start(ctx, "GetAnchors")
	defer span.End()

	anchors := []Anchor{}
	for _, n := range sel.Nodes {
		a := Anchor{
			Name:    textutil.Collapse(removeNonPrintable(GetText(n))),
			Href:    attr(n, "href"),
			OnClick: attr(n, "onclick"),
		}
		anchors = append(anchors, a)
		span.AddEvent("anchor", trace.WithAttributes(
			attribute.String("name", a.Name),
			attribute.String("href", a.Href),
		))
	}

	return anchors
}
