// Package profiles enriches the horse and jockey masters from their cached
// profile pages.
package profiles

import (
	"context"
	"fmt"
	"keiba-etl/internal/assert"
	"keiba-etl/internal/db"
	"keiba-etl/internal/extract"
	"keiba-etl/internal/telemetry"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const (
	report_profiles_decode = "decode"
	report_profiles_skip   = "skip"
)

type Config struct {
	HorseDir  string `json:"horse_dir"`
	JockeyDir string `json:"jockey_dir"`
}

type Kind string

const (
	KindHorse  Kind = "horse"
	KindJockey Kind = "jockey"
)

// Source is a cached profile page.
type Source struct {
	Kind Kind
	ID   string
	Path string
}

// Discover lists the <kind>_<id>.html pages of a directory ordered by id.
func Discover(dir string, kind Kind) ([]Source, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", dir, err)
	}
	var out []Source
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		k, id, ok := extract.ProfileIDFromName(e.Name())
		if !ok || Kind(k) != kind {
			continue
		}
		out = append(out, Source{Kind: kind, ID: id, Path: filepath.Join(dir, e.Name())})
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// SourcesFromPaths turns explicit file paths into sources, the kind and the
// id are taken from the file name.
func SourcesFromPaths(paths []string) ([]Source, error) {
	out := make([]Source, 0, len(paths))
	for _, p := range paths {
		kind, id, ok := extract.ProfileIDFromName(filepath.Base(p))
		if !ok {
			return nil, fmt.Errorf("%s: not a horse_<id>.html or jockey_<id>.html page", p)
		}
		out = append(out, Source{Kind: Kind(kind), ID: id, Path: p})
	}
	return out, nil
}

type Loader struct {
	makeTx db.MakeTx
	tel    telemetry.API
}

func NewLoader(makeTx db.MakeTx, tel telemetry.API) *Loader {
	assert.NotNil(makeTx)
	return &Loader{
		makeTx: makeTx,
		tel:    telemetry.NewScopedAPI("profiles", tel),
	}
}

type Result struct {
	Horses  int
	Jockeys int
	// Skipped counts pages without a name.
	Skipped int
}

func (l *Loader) parse(source Source) (*goquery.Document, error) {
	raw, err := os.ReadFile(source.Path)
	if err != nil {
		return nil, fmt.Errorf("read page: %w", err)
	}
	decoded := extract.Decode(raw)
	if decoded.Lossy {
		l.tel.ReportWarning(report_profiles_decode, source.Path, "encoding", decoded.Encoding)
	}
	return goquery.NewDocumentFromReader(strings.NewReader(decoded.Text))
}

// Load parses every page and upserts the profiles in a single transaction.
// Names read from a profile replace the stored ones, sex and birth year are
// only ever filled in.
func (l *Loader) Load(ctx context.Context, sources []Source) (Result, error) {
	var res Result

	tx, discard, commit, err := l.makeTx(ctx)
	if err != nil {
		return res, fmt.Errorf("begin: %w", err)
	}
	defer discard()

	for _, source := range sources {
		doc, err := l.parse(source)
		if err != nil {
			return Result{}, fmt.Errorf("%s: %w", source.Path, err)
		}

		switch source.Kind {
		case KindHorse:
			horse, ok := extract.ParseHorseProfile(ctx, doc, source.ID)
			if !ok {
				res.Skipped++
				l.tel.ReportWarning(report_profiles_skip, source.Path, "no name")
				continue
			}
			err = tx.UpsertHorseProfile(ctx, db.Horse{
				HorseID:   horse.ID,
				HorseName: horse.Name,
				Sex:       horse.Sex,
				BirthYear: horse.BirthYear,
			})
			if err != nil {
				return Result{}, fmt.Errorf("upsert horse %s: %w", horse.ID, err)
			}
			res.Horses++
		case KindJockey:
			jockey, ok := extract.ParseJockeyProfile(ctx, doc, source.ID)
			if !ok {
				res.Skipped++
				l.tel.ReportWarning(report_profiles_skip, source.Path, "no name")
				continue
			}
			err = tx.UpsertJockeyProfile(ctx, db.Jockey{JockeyID: jockey.ID, JockeyName: jockey.Name})
			if err != nil {
				return Result{}, fmt.Errorf("upsert jockey %s: %w", jockey.ID, err)
			}
			res.Jockeys++
		default:
			return Result{}, fmt.Errorf("%s: unknown profile kind %q", source.Path, source.Kind)
		}
	}

	err = commit()
	if err != nil {
		return Result{}, fmt.Errorf("commit: %w", err)
	}
	return res, nil
}
