package transcoder

import (
	"bytes"

	"github.com/jmviz/lichess-pgn-tags-to-csv/internal/codes"
	"github.com/jmviz/lichess-pgn-tags-to-csv/internal/schema"
)

// Mode selects how tag values are rendered.
type Mode int

const (
	// Verbatim copies every value unchanged.
	Verbatim Mode = iota
	// Minified rewrites well-known tags into short codes and split columns.
	Minified
)

// ModeOf returns Minified when minify is set.
func ModeOf(minify bool) Mode {
	if minify {
		return Minified
	}
	return Verbatim
}

func (m Mode) String() string {
	if m == Minified {
		return "minified"
	}
	return "verbatim"
}

type kind int

const (
	kindCopy kind = iota
	kindLink
	kindResult
	kindRating
	kindRatingDiff
	kindTitle
	kindECO
	kindTimeControl
	kindTermination
	kindStartingPosition
)

var (
	provisional    = []byte("1")
	notProvisional = []byte("0")
)

// column is the resolved rendering of one schema position.
type column struct {
	kind   kind
	labels []string
}

// Transcoder renders tag values for one schema, mode and variant setting. It
// is immutable and safe for concurrent use.
type Transcoder struct {
	schema  *schema.Schema
	mode    Mode
	variant bool
	columns []column
	width   int
}

// New resolves how each schema position is rendered. variant enables the
// Chess960 starting position rewrite of FEN.
func New(s *schema.Schema, mode Mode, variant bool) *Transcoder {
	t := &Transcoder{
		schema:  s,
		mode:    mode,
		variant: variant,
		columns: make([]column, s.Len()),
	}
	for i := 0; i < s.Len(); i++ {
		t.columns[i] = resolve(s.Name(i), mode, variant)
		t.width += len(t.columns[i].labels)
	}
	return t
}

func resolve(name string, mode Mode, variant bool) column {
	if mode == Verbatim {
		return column{kind: kindCopy, labels: []string{name}}
	}

	switch name {
	case schema.TagEvent:
		return column{kind: kindLink, labels: []string{"Tournament"}}
	case schema.TagSite:
		return column{kind: kindLink, labels: []string{"Game"}}
	case schema.TagResult:
		return column{kind: kindResult, labels: []string{name}}
	case schema.TagWhiteElo:
		return column{kind: kindRating, labels: []string{"WhiteRating", "WhiteRatingProvisional"}}
	case schema.TagBlackElo:
		return column{kind: kindRating, labels: []string{"BlackRating", "BlackRatingProvisional"}}
	case schema.TagWhiteRatingDiff, schema.TagBlackRatingDiff:
		return column{kind: kindRatingDiff, labels: []string{name}}
	case schema.TagWhiteTitle, schema.TagBlackTitle:
		return column{kind: kindTitle, labels: []string{name}}
	case schema.TagECO:
		return column{kind: kindECO, labels: []string{name}}
	case schema.TagTimeControl:
		return column{kind: kindTimeControl, labels: []string{"ClockInitialTime", "ClockIncrement"}}
	case schema.TagTermination:
		return column{kind: kindTermination, labels: []string{name}}
	case schema.TagFEN:
		if variant {
			return column{kind: kindStartingPosition, labels: []string{"StartingPosition"}}
		}
	}
	return column{kind: kindCopy, labels: []string{name}}
}

// Schema returns the schema the transcoder was built for.
func (t *Transcoder) Schema() *schema.Schema {
	return t.schema
}

// Mode returns the rendering mode.
func (t *Transcoder) Mode() Mode {
	return t.mode
}

// Variant reports whether Chess960 rewrites are enabled.
func (t *Transcoder) Variant() bool {
	return t.variant
}

// Width returns how many output values schema position i produces: 1, or 2
// for expanding tags in minified mode.
func (t *Transcoder) Width(i int) int {
	return len(t.columns[i].labels)
}

// Columns returns the number of values in every output row.
func (t *Transcoder) Columns() int {
	return t.width
}

// Labels returns the header cells for schema position i.
func (t *Transcoder) Labels(i int) []string {
	return t.columns[i].labels
}

// Transcode renders the raw value of schema position i. second is only
// meaningful when Width(i) is 2. The results may alias value or a shared code
// table entry and must not be modified.
func (t *Transcoder) Transcode(i int, value []byte) (first, second []byte) {
	switch t.columns[i].kind {
	case kindLink:
		return trailingSegment(value), nil
	case kindResult:
		return codes.Results.Lookup(value), nil
	case kindRating:
		return splitRating(value)
	case kindRatingDiff:
		return bytes.TrimPrefix(value, []byte{'+'}), nil
	case kindTitle:
		return codes.Titles.Lookup(value), nil
	case kindECO:
		return codes.ECO.Lookup(value), nil
	case kindTimeControl:
		return splitTimeControl(value)
	case kindTermination:
		return codes.Terminations.Lookup(value), nil
	case kindStartingPosition:
		return startingPosition(value), nil
	default:
		return value, nil
	}
}

// trailingSegment extracts the id at the end of a lichess link, e.g.
// "Rated Blitz tournament https://lichess.org/tournament/O5dkHvDT" -> "O5dkHvDT".
// Values without a link yield nothing.
func trailingSegment(value []byte) []byte {
	i := bytes.LastIndexByte(value, '/')
	if i < 0 {
		return nil
	}
	return value[i+1:]
}

// splitRating turns "1500?" into ("1500", "1") and "1500" into ("1500", "0").
func splitRating(value []byte) ([]byte, []byte) {
	if n := len(value); n > 0 && value[n-1] == '?' {
		return value[:n-1], provisional
	}
	return value, notProvisional
}

// splitTimeControl turns "300+0" into ("300", "0"). Correspondence games have
// TimeControl "-" and yield two empty values.
func splitTimeControl(value []byte) ([]byte, []byte) {
	initial, increment, _ := bytes.Cut(value, []byte{'+'})
	if len(initial) == 1 && initial[0] == '-' {
		return nil, nil
	}
	if j := bytes.IndexByte(increment, '+'); j >= 0 {
		increment = increment[:j]
	}
	return initial, increment
}

// startingPosition maps a Chess960 FEN to its position number using the first
// rank, e.g. "bbnrkqnr/pppppppp/8/8/8/8/PPPPPPPP/BBNRKQNR w KQkq - 0 1".
func startingPosition(value []byte) []byte {
	rank, _, _ := bytes.Cut(value, []byte{'/'})
	return codes.Chess960.Lookup(rank)
}
