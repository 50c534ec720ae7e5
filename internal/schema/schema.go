// Package schema holds the ordered set of PGN tags that become output columns.
package schema

import (
	"strings"

	"github.com/jmviz/lichess-pgn-tags-to-csv/internal/errors"
)

// Tags that receive special treatment when minifying.
const (
	TagEvent           = "Event"
	TagSite            = "Site"
	TagResult          = "Result"
	TagWhiteElo        = "WhiteElo"
	TagBlackElo        = "BlackElo"
	TagWhiteRatingDiff = "WhiteRatingDiff"
	TagBlackRatingDiff = "BlackRatingDiff"
	TagWhiteTitle      = "WhiteTitle"
	TagBlackTitle      = "BlackTitle"
	TagECO             = "ECO"
	TagTimeControl     = "TimeControl"
	TagTermination     = "Termination"
	TagFEN             = "FEN"
)

// standard is the default column list for rated standard games, in the order
// lichess writes the tags.
var standard = []string{
	TagEvent,
	TagSite,
	"White",
	"Black",
	TagResult,
	"UTCDate",
	"UTCTime",
	TagWhiteElo,
	TagBlackElo,
	TagWhiteRatingDiff,
	TagBlackRatingDiff,
	TagWhiteTitle,
	TagBlackTitle,
	TagECO,
	"Opening",
	TagTimeControl,
	TagTermination,
}

// variant swaps ECO for FEN. Chess960 games carry ECO "?" and the starting
// position in FEN, which lichess writes after Termination.
var variant = []string{
	TagEvent,
	TagSite,
	"White",
	"Black",
	TagResult,
	"UTCDate",
	"UTCTime",
	TagWhiteElo,
	TagBlackElo,
	TagWhiteRatingDiff,
	TagBlackRatingDiff,
	TagWhiteTitle,
	TagBlackTitle,
	"Opening",
	TagTimeControl,
	TagTermination,
	TagFEN,
}

// known is every tag name accepted in a caller-supplied list.
var known = func() map[string]struct{} {
	m := make(map[string]struct{})
	for _, name := range standard {
		m[name] = struct{}{}
	}
	for _, name := range []string{
		"Date", "Round", "Variant", TagFEN, "SetUp", "Annotator",
		"WhiteTeam", "BlackTeam", "WhiteFideId", "BlackFideId",
		"Board", "StudyName", "ChapterName",
	} {
		m[name] = struct{}{}
	}
	return m
}()

// Schema is an immutable ordered list of tag names with name to position
// lookup. A Schema is safe for concurrent use.
type Schema struct {
	names []string
	index map[string]int
}

// New builds a schema from caller-supplied tag names. Surrounding whitespace is
// ignored. Unknown, repeated or missing names are configuration errors.
func New(names []string) (*Schema, error) {
	cleaned := make([]string, 0, len(names))
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if !IsKnown(name) {
			return nil, &errors.ConfigError{
				Field:  "conversion.tags",
				Value:  name,
				Reason: "not a lichess pgn tag",
				Err:    errors.ErrUnknownTag,
			}
		}
		cleaned = append(cleaned, name)
	}

	if len(cleaned) == 0 {
		return nil, &errors.ConfigError{
			Field:  "conversion.tags",
			Value:  strings.Join(names, ","),
			Reason: "at least one tag is required",
			Err:    errors.ErrEmptySchema,
		}
	}

	return build(cleaned)
}

// Default returns the built-in schema, or the Chess960 one when variant is set.
func Default(variantGames bool) *Schema {
	names := standard
	if variantGames {
		names = variant
	}
	s, err := build(names)
	if err != nil {
		panic(err)
	}
	return s
}

// IsKnown reports whether name is a recognized lichess tag.
func IsKnown(name string) bool {
	_, ok := known[name]
	return ok
}

func build(names []string) (*Schema, error) {
	s := &Schema{
		names: make([]string, len(names)),
		index: make(map[string]int, len(names)),
	}
	copy(s.names, names)

	for i, name := range s.names {
		if _, dup := s.index[name]; dup {
			return nil, &errors.ConfigError{
				Field:  "conversion.tags",
				Value:  name,
				Reason: "tag listed more than once",
				Err:    errors.ErrDuplicateTag,
			}
		}
		s.index[name] = i
	}
	return s, nil
}

// Index returns the column position of a tag.
func (s *Schema) Index(name string) (int, bool) {
	i, ok := s.index[name]
	return i, ok
}

// IndexBytes is Index for a raw key. The conversion does not allocate.
func (s *Schema) IndexBytes(name []byte) (int, bool) {
	i, ok := s.index[string(name)]
	return i, ok
}

// Name returns the tag at position i.
func (s *Schema) Name(i int) string {
	return s.names[i]
}

// Len returns the number of tags.
func (s *Schema) Len() int {
	return len(s.names)
}

// LastIndex returns Len()-1.
func (s *Schema) LastIndex() int {
	return len(s.names) - 1
}

// Names returns a copy of the tag list.
func (s *Schema) Names() []string {
	out := make([]string, len(s.names))
	copy(out, s.names)
	return out
}
