// Package resolve assigns stable identifiers to the horses, jockeys and
// trainers of a results page.
package resolve

import (
	"fmt"
	"keiba-etl/internal/racedata"
	"keiba-etl/lib/textutil"
	"strings"
)

type Role struct {
	// Prefix is used for name derived ids, ex. HORSE_<slug>.
	Prefix string
	// Code is used for race scoped fallback ids, ex. <race_id>_H05.
	Code string
}

var (
	RoleHorse   = Role{Prefix: "HORSE", Code: "H"}
	RoleJockey  = Role{Prefix: "JOCKEY", Code: "J"}
	RoleTrainer = Role{Prefix: "TRAINER", Code: "T"}
)

const UnknownPrefix = "UNKNOWN_"

// Identity is a resolved entity.
type Identity struct {
	ID   string
	Name string
	// Fallback is true when the id is scoped to a single race.
	Fallback bool
	// Unknown is true when the name is a placeholder.
	Unknown bool
}

// IsPlaceholder reports whether a display name carries no information.
func IsPlaceholder(name string) bool {
	name = textutil.StripSpace(textutil.Fold(name))
	if name == "" || strings.HasPrefix(name, UnknownPrefix) {
		return true
	}
	return strings.Trim(name, "-－―ー—*＊?？") == ""
}

// Resolve picks an identifier for one entity:
//  1. the site-native token when there is one
//  2. <PREFIX>_<slug> of the display name
//  3. <race_id>_<CODE><NN> where NN is the fallback index
//
// A placeholder name is replaced by UNKNOWN_<PREFIX>_<row index>.
func Resolve(raceID string, role Role, rowIndex, fallbackIndex int, token, name string) Identity {
	out := Identity{Name: textutil.Collapse(name)}
	if IsPlaceholder(name) {
		out.Name = fmt.Sprintf("%s%s_%02d", UnknownPrefix, role.Prefix, rowIndex)
		out.Unknown = true
	}

	token = strings.TrimSpace(token)
	switch {
	case token != "":
		out.ID = token
	case !out.Unknown && textutil.Slug(name) != "":
		out.ID = fmt.Sprintf("%s_%s", role.Prefix, textutil.Slug(name))
	default:
		out.ID = fmt.Sprintf("%s_%s%02d", raceID, role.Code, fallbackIndex)
		out.Fallback = true
	}
	return out
}

// Race resolves every entity of a single race and keeps count of the
// placeholder names it had to make up.
type Race struct {
	raceID   string
	unknowns racedata.UnknownCounts
}

func ForRace(raceID string) *Race {
	return &Race{raceID: raceID}
}

// Horse falls back on the horse number for race scoped ids, or on the 1-based
// row position when the number is missing.
func (r *Race) Horse(rowIndex int, horseNo *int, token, name string) Identity {
	fallbackIndex := rowIndex + 1
	if horseNo != nil {
		fallbackIndex = *horseNo
	}
	id := Resolve(r.raceID, RoleHorse, rowIndex, fallbackIndex, token, name)
	if id.Unknown {
		r.unknowns.Horse++
	}
	return id
}

func (r *Race) Jockey(rowIndex int, token, name string) Identity {
	id := Resolve(r.raceID, RoleJockey, rowIndex, rowIndex, token, name)
	if id.Unknown {
		r.unknowns.Jockey++
	}
	return id
}

func (r *Race) Trainer(rowIndex int, token, name string) Identity {
	id := Resolve(r.raceID, RoleTrainer, rowIndex, rowIndex, token, name)
	if id.Unknown {
		r.unknowns.Trainer++
	}
	return id
}

func (r *Race) Unknowns() racedata.UnknownCounts {
	return r.unknowns
}
