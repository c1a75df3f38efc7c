package etl

import (
	"fmt"
	"keiba-etl/internal/extract"
	"os"
	"path/filepath"
	"regexp"
	"sort"
)

var pageNameRegex = regexp.MustCompile(`^race_\d{12}\.html$`)

// Source is a cached results page.
type Source struct {
	RaceID string
	Path   string
}

// Discover lists the race_<id>.html pages of a directory ordered by race id.
// Only pages after startAfter are kept (when it is set), at most limit of
// them (when it is positive).
func Discover(dir, startAfter string, limit int) ([]Source, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", dir, err)
	}

	var out []Source
	for _, e := range entries {
		if e.IsDir() || !pageNameRegex.MatchString(e.Name()) {
			continue
		}
		raceID, _ := extract.RaceIDFromName(e.Name())
		out = append(out, Source{RaceID: raceID, Path: filepath.Join(dir, e.Name())})
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].RaceID < out[j].RaceID
	})

	if startAfter != "" {
		i := sort.Search(len(out), func(i int) bool {
			return out[i].RaceID > startAfter
		})
		out = out[i:]
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// SourcesFromPaths turns explicit file paths into sources, the race id is
// taken from the file name.
func SourcesFromPaths(paths []string) ([]Source, error) {
	out := make([]Source, 0, len(paths))
	for _, p := range paths {
		raceID, ok := extract.RaceIDFromName(filepath.Base(p))
		if !ok {
			return nil, fmt.Errorf("%s: no 12 digit race id in the file name", p)
		}
		out = append(out, Source{RaceID: raceID, Path: p})
	}
	return out, nil
}
