package convert

import (
	"github.com/jmviz/lichess-pgn-tags-to-csv/internal/schema"
	"github.com/jmviz/lichess-pgn-tags-to-csv/internal/transcoder"
)

// Options selects the columns and their rendering.
type Options struct {
	// Tags overrides the default column list when non-empty.
	Tags []string
	// Mode selects verbatim or minified values.
	Mode transcoder.Mode
	// Variant forces Chess960 handling for every input.
	Variant bool
	// AutoVariant enables Chess960 handling for inputs whose name contains
	// "chess960".
	AutoVariant bool
}

// Transcoders holds the standard and Chess960 transcoders of a run and picks
// one per input. Both are immutable and shared by all workers.
type Transcoders struct {
	standard *transcoder.Transcoder
	variant  *transcoder.Transcoder
	options  Options
}

// NewTranscoders validates opts. An invalid tag list is returned as a
// *errors.ConfigError. A custom tag list is used for both kinds of game.
func NewTranscoders(opts Options) (*Transcoders, error) {
	standardSchema := schema.Default(false)
	variantSchema := schema.Default(true)
	if len(opts.Tags) > 0 {
		s, err := schema.New(opts.Tags)
		if err != nil {
			return nil, err
		}
		standardSchema, variantSchema = s, s
	}

	return &Transcoders{
		standard: transcoder.New(standardSchema, opts.Mode, false),
		variant:  transcoder.New(variantSchema, opts.Mode, true),
		options:  opts,
	}, nil
}

// For returns the transcoder for games read from name, a file path or a
// Kafka topic.
func (t *Transcoders) For(name string) *transcoder.Transcoder {
	if t.options.Variant || (t.options.AutoVariant && IsVariant(name)) {
		return t.variant
	}
	return t.standard
}

// Mode returns the rendering mode shared by both transcoders.
func (t *Transcoders) Mode() transcoder.Mode {
	return t.options.Mode
}
