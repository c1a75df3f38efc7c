package extract

import (
	"context"
	"errors"
	"keiba-etl/internal/fields"
	"keiba-etl/lib/htmlutil"
	"strconv"

	"github.com/PuerkitoBio/goquery"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var tracer = otel.Tracer("keiba.internal.extract")

// ErrNoTable is returned by FindResultsTable when the page has no results table.
var ErrNoTable = errors.New("results table not found")

const finishOrderHeader = "着順"

// FindResultsTable locates the results table. A header cell carrying the
// "place" class wins, otherwise the innermost table with a "着順" header cell
// is used.
func FindResultsTable(ctx context.Context, doc *goquery.Document) (*goquery.Selection, error) {
	_, span := tracer.Start(ctx, "FindResultsTable")
	defer span.End()

	marked := doc.Find("th.place").First()
	if marked.Length() > 0 {
		table := marked.Closest("table")
		if table.Length() > 0 {
			span.SetAttributes(attribute.String("strategy", "marker"))
			return table, nil
		}
	}

	var found *goquery.Selection
	doc.Find("th, td").EachWithBreak(func(_ int, cell *goquery.Selection) bool {
		if fields.NormalizeHeader(cell.Text()) != finishOrderHeader {
			return true
		}
		table := cell.Closest("table")
		if table.Length() == 0 {
			return true
		}
		found = table
		return false
	})
	if found == nil {
		span.SetAttributes(attribute.String("strategy", "none"))
		return nil, ErrNoTable
	}
	span.SetAttributes(attribute.String("strategy", "header-text"))
	return found, nil
}

type Cell struct {
	Text string
	// Name is the text of the first anchor in the cell, or Text when the cell
	// has no anchor.
	Name string
}

type Row struct {
	// Index is the 0-based position of the row among the data rows.
	Index int
	Cells map[fields.Field]Cell
	Refs  Refs
	// BracketAlt is the bracket number read from the bracket image, if any.
	BracketAlt *int
}

func (r Row) Text(f fields.Field) string {
	return r.Cells[f].Text
}

func (r Row) Name(f fields.Field) string {
	return r.Cells[f].Name
}

type Table struct {
	Columns        []fields.Field
	UnknownHeaders []string
	Rows           []Row
}

func (t Table) Has(f fields.Field) bool {
	for _, c := range t.Columns {
		if c == f {
			return true
		}
	}
	return false
}

// ownRows returns the rows of the table, skipping the rows of nested tables.
func ownRows(table *goquery.Selection) []*goquery.Selection {
	var rows []*goquery.Selection
	table.Find("tr").Each(func(_ int, tr *goquery.Selection) {
		if tr.Closest("table").IsSelection(table) {
			rows = append(rows, tr)
		}
	})
	return rows
}

func colspan(cell *goquery.Selection) int {
	value, ok := cell.Attr("colspan")
	if !ok {
		return 1
	}
	n, err := strconv.Atoi(value)
	if err != nil || n < 1 {
		return 1
	}
	return n
}

// ReadTable maps the header of a results table to fields and reads every data
// row, positions of unknown headers are dropped.
func ReadTable(ctx context.Context, table *goquery.Selection, mapper *fields.Mapper) Table {
	ctx, span := tracer.Start(ctx, "ReadTable")
	defer span.End()

	rows := ownRows(table)
	headerIdx := -1
	for i, tr := range rows {
		if tr.ChildrenFiltered("th").Length() > 0 && tr.ChildrenFiltered("td").Length() == 0 {
			headerIdx = i
			break
		}
	}
	if headerIdx < 0 && len(rows) > 0 {
		headerIdx = 0
	}

	var out Table
	if headerIdx < 0 {
		return out
	}

	rows[headerIdx].ChildrenFiltered("th, td").Each(func(_ int, th *goquery.Selection) {
		text := htmlutil.CellText(th)
		field := mapper.Map(text)
		if field == fields.FieldNone && fields.NormalizeHeader(text) != "" {
			out.UnknownHeaders = append(out.UnknownHeaders, fields.NormalizeHeader(text))
		}
		for i := 0; i < colspan(th); i++ {
			out.Columns = append(out.Columns, field)
		}
	})

	for _, tr := range rows[headerIdx+1:] {
		if tr.ChildrenFiltered("td").Length() == 0 {
			continue
		}
		row := Row{
			Index: len(out.Rows),
			Cells: map[fields.Field]Cell{},
			Refs:  RowRefs(ctx, tr),
		}

		pos := 0
		tr.ChildrenFiltered("th, td").Each(func(_ int, td *goquery.Selection) {
			width := colspan(td)
			if pos < len(out.Columns) {
				field := out.Columns[pos]
				if field != fields.FieldNone {
					if _, exists := row.Cells[field]; !exists {
						row.Cells[field] = readCell(td)
					}
				}
			}
			pos += width
		})

		if alt, ok := tr.Find("td.waku img").Attr("alt"); ok {
			row.BracketAlt = fields.ParseBracketAlt(alt)
		}
		if isBlankRow(row) {
			continue
		}
		out.Rows = append(out.Rows, row)
	}

	span.SetAttributes(
		attribute.Int("rows", len(out.Rows)),
		attribute.Int("unknown_headers", len(out.UnknownHeaders)),
	)
	return out
}

func readCell(td *goquery.Selection) Cell {
	cell := Cell{Text: htmlutil.CellText(td)}
	cell.Name = cell.Text
	anchor := td.Find("a").First()
	if anchor.Length() > 0 {
		if name := htmlutil.CellText(anchor); name != "" {
			cell.Name = name
		}
	}
	return cell
}

func isBlankRow(row Row) bool {
	if row.Refs != (Refs{}) || row.BracketAlt != nil {
		return false
	}
	for _, c := range row.Cells {
		if c.Text != "" {
			return false
		}
	}
	return true
}
