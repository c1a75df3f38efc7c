package fields

import (
	_ "embed"
	"fmt"
	"keiba-etl/internal/telemetry"
	"keiba-etl/lib/textutil"
	"os"
	"sort"

	"github.com/antzucaro/matchr"
	"github.com/titanous/json5"
)

// Field is the canonical name of a results table column.
type Field string

const (
	FieldNone        Field = ""
	FieldFinishRank  Field = "finish_rank"
	FieldBracketNo   Field = "bracket_no"
	FieldHorseNo     Field = "horse_no"
	FieldHorseName   Field = "horse_name"
	FieldSexAge      Field = "sex_age"
	FieldWeight      Field = "weight"
	FieldJockeyName  Field = "jockey_name"
	FieldTrainerName Field = "trainer_name"
	FieldTime        Field = "time"
	FieldMargin      Field = "margin"
	FieldCornerOrder Field = "corner_order"
	FieldLast3F      Field = "last_3f"
	FieldAvg1F       Field = "avg_1f"
	FieldBodyWeight  Field = "body_weight"
	FieldPopularity  Field = "popularity"
	FieldOdds        Field = "odds"
	FieldRating      Field = "rating"
	FieldPrizeMan    Field = "prize_man"
)

var knownFields = map[Field]struct{}{
	FieldFinishRank: {}, FieldBracketNo: {}, FieldHorseNo: {}, FieldHorseName: {},
	FieldSexAge: {}, FieldWeight: {}, FieldJockeyName: {}, FieldTrainerName: {},
	FieldTime: {}, FieldMargin: {}, FieldCornerOrder: {}, FieldLast3F: {},
	FieldAvg1F: {}, FieldBodyWeight: {}, FieldPopularity: {}, FieldOdds: {},
	FieldRating: {}, FieldPrizeMan: {},
}

type Generation struct {
	Name    string            `json:"name"`
	Headers map[string]string `json:"headers"`
}

// HeaderTable is the versionable header variant -> field lookup data.
type HeaderTable struct {
	Generations []Generation `json:"generations"`
}

//go:embed headers.json5
var defaultHeaders []byte

func ParseHeaderTable(contents []byte) (HeaderTable, error) {
	var table HeaderTable
	err := json5.Unmarshal(contents, &table)
	if err != nil {
		return HeaderTable{}, err
	}
	for _, gen := range table.Generations {
		for header, field := range gen.Headers {
			if _, ok := knownFields[Field(field)]; !ok {
				return HeaderTable{}, fmt.Errorf(
					"generation %s: header %q maps to unknown field %q",
					gen.Name, header, field,
				)
			}
		}
	}
	return table, nil
}

func DefaultHeaderTable() HeaderTable {
	table, err := ParseHeaderTable(defaultHeaders)
	if err != nil {
		panic(err)
	}
	return table
}

func LoadHeaderTable(path string) (HeaderTable, error) {
	contents, err := os.ReadFile(path)
	if err != nil {
		return HeaderTable{}, err
	}
	table, err := ParseHeaderTable(contents)
	if err != nil {
		return HeaderTable{}, fmt.Errorf("%s: %w", path, err)
	}
	return table, nil
}

// NormalizeHeader is the key every header is looked up by.
func NormalizeHeader(header string) string {
	return textutil.StripSpace(textutil.Fold(header))
}

type Entry struct {
	Header     string
	Field      Field
	Generation string
}

const report_mapper_map = "mapper.map"

// Mapper maps localized column headers to canonical fields by exact lookup on
// the normalized header. Later tables override earlier ones.
type Mapper struct {
	tel     telemetry.API
	lookup  map[string]Field
	entries []Entry
}

func NewMapper(tel telemetry.API, tables ...HeaderTable) *Mapper {
	m := &Mapper{
		tel:    telemetry.NewScopedAPI("fields", tel),
		lookup: map[string]Field{},
	}
	for _, table := range tables {
		for _, gen := range table.Generations {
			for header, field := range gen.Headers {
				key := NormalizeHeader(header)
				m.lookup[key] = Field(field)
				m.entries = append(m.entries, Entry{
					Header:     key,
					Field:      Field(field),
					Generation: gen.Name,
				})
			}
		}
	}
	sort.SliceStable(m.entries, func(i, j int) bool {
		if m.entries[i].Field != m.entries[j].Field {
			return m.entries[i].Field < m.entries[j].Field
		}
		return m.entries[i].Header < m.entries[j].Header
	})
	return m
}

// Map returns the canonical field of a header, unrecognized headers are
// reported and yield FieldNone.
func (m *Mapper) Map(header string) Field {
	key := NormalizeHeader(header)
	if key == "" {
		return FieldNone
	}
	field, ok := m.lookup[key]
	if ok {
		return field
	}
	closest, _ := m.Closest(key)
	m.tel.ReportWarning(report_mapper_map, "unknown header", key, "closest", closest)
	return FieldNone
}

// Closest returns the known header most similar to `header`, it is only used
// as a hint when reporting unknown headers.
func (m *Mapper) Closest(header string) (string, float64) {
	key := NormalizeHeader(header)
	best := ""
	bestScore := 0.0
	for known := range m.lookup {
		score := matchr.JaroWinkler(key, known, false)
		if score > bestScore || (score == bestScore && known < best) {
			best = known
			bestScore = score
		}
	}
	return best, bestScore
}

// Entries lists every known header variant sorted by field.
func (m *Mapper) Entries() []Entry {
	return m.entries
}
