package teams

import (
	"embed"
	"encoding/json"
	"fmt"
	"os"
	"path"
	"strings"

	"github.com/rs/zerolog"
)

//go:embed data/*.json
var embeddedData embed.FS

const defaultDataFile = "data/supercopa_teams.json"

type Team struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	Acronym       string   `json:"acronym"`
	Gender        string   `json:"gender"`
	ColorHex      string   `json:"colorHex"`
	LogoAssetPath string   `json:"logoAssetPath"`
	Aliases       []string `json:"aliases"`
}

type MatchType string

const (
	MatchExact      MatchType = "exact"
	MatchNormalized MatchType = "normalized"
	MatchAlias      MatchType = "alias"
	MatchNotFound   MatchType = "not-found"
)

type Mapping struct {
	Found       bool
	TeamID      string
	NameRaw     string
	NameDisplay string
	LogoSlug    string
	ColorHex    string
	MatchType   MatchType
}

// Directory maps federation team names to local team records. It is built
// once and never mutated, so lookups need no locking.
type Directory struct {
	teams        []Team
	byUpper      map[string]int
	byNormalized map[string]int
	byAlias      map[string]int
}

func NewDirectory(teams []Team) *Directory {
	d := &Directory{
		teams:        teams,
		byUpper:      make(map[string]int, len(teams)),
		byNormalized: make(map[string]int, len(teams)),
		byAlias:      make(map[string]int),
	}
	for i, t := range teams {
		upper := strings.ToUpper(strings.TrimSpace(t.Name))
		if _, ok := d.byUpper[upper]; !ok {
			d.byUpper[upper] = i
		}
		if _, ok := d.byNormalized[Normalize(t.Name)]; !ok {
			d.byNormalized[Normalize(t.Name)] = i
		}
		for _, alias := range t.Aliases {
			if _, ok := d.byAlias[Normalize(alias)]; !ok {
				d.byAlias[Normalize(alias)] = i
			}
		}
	}
	return d
}

// LoadDirectory reads the team dictionary from file, or from the embedded
// default dictionary when file is empty.
func LoadDirectory(file string, logger zerolog.Logger) (*Directory, error) {
	var (
		raw []byte
		err error
	)
	if file == "" {
		raw, err = embeddedData.ReadFile(defaultDataFile)
		file = "embedded:" + defaultDataFile
	} else {
		raw, err = os.ReadFile(file)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read team dictionary: %w", err)
	}

	var teams []Team
	if err := json.Unmarshal(raw, &teams); err != nil {
		return nil, fmt.Errorf("failed to parse team dictionary: %w", err)
	}

	valid := teams[:0]
	for _, t := range teams {
		if t.ID == "" || t.Name == "" {
			logger.Warn().Str("id", t.ID).Str("name", t.Name).Msg("skipping invalid team record")
			continue
		}
		valid = append(valid, t)
	}

	logger.Info().Str("source", file).Int("teams", len(valid)).Msg("team directory loaded")
	return NewDirectory(valid), nil
}

func (d *Directory) Len() int {
	return len(d.teams)
}

// Lookup resolves a federation team name: exact (case-insensitive) name first,
// then normalized name, then normalized alias.
func (d *Directory) Lookup(raw string) Mapping {
	if i, ok := d.byUpper[strings.ToUpper(strings.TrimSpace(raw))]; ok {
		return d.mapping(raw, i, MatchExact)
	}
	key := Normalize(raw)
	if i, ok := d.byNormalized[key]; ok {
		return d.mapping(raw, i, MatchNormalized)
	}
	if i, ok := d.byAlias[key]; ok {
		return d.mapping(raw, i, MatchAlias)
	}
	return Mapping{
		NameRaw:     raw,
		NameDisplay: raw,
		MatchType:   MatchNotFound,
	}
}

func (d *Directory) mapping(raw string, i int, mt MatchType) Mapping {
	t := d.teams[i]
	slug := Slug(raw) + ".webp"
	if t.LogoAssetPath != "" {
		slug = path.Base(t.LogoAssetPath)
	}
	return Mapping{
		Found:       true,
		TeamID:      t.ID,
		NameRaw:     raw,
		NameDisplay: t.Name,
		LogoSlug:    slug,
		ColorHex:    t.ColorHex,
		MatchType:   mt,
	}
}
