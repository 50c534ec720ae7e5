// Package encoder implements the output formats for transcoded rows.
package encoder

import (
	"fmt"
	"strings"

	"github.com/jmviz/lichess-pgn-tags-to-csv/internal/errors"
	"github.com/jmviz/lichess-pgn-tags-to-csv/pkg/encoder"
	"github.com/jmviz/lichess-pgn-tags-to-csv/pkg/game"
)

// Factory creates encoders based on format and configuration.
type Factory struct {
	format      game.Format
	compression string
}

// NewFactory creates a new encoder factory. An empty compression selects the
// format's default.
func NewFactory(format game.Format, compression string) *Factory {
	if compression == "" {
		compression = DefaultCompression(format)
	}
	return &Factory{
		format:      format,
		compression: strings.ToLower(compression),
	}
}

// CreateEncoder creates an encoder based on the configured format.
func (f *Factory) CreateEncoder() (encoder.Encoder, error) {
	if !supports(f.format, f.compression) {
		return nil, fmt.Errorf("%w: %s with %s compression", errors.ErrUnsupportedFormat, f.format, f.compression)
	}

	switch f.format {
	case game.FormatCSV:
		return NewCSVEncoder(f.compression), nil
	case game.FormatParquet:
		return NewParquetEncoder(f.compression), nil
	case game.FormatAvro:
		return NewAvroEncoder(f.compression), nil
	default:
		return nil, fmt.Errorf("%w: %s", errors.ErrUnsupportedFormat, f.format)
	}
}

// SupportedFormats returns a list of supported file formats.
func SupportedFormats() []game.Format {
	return []game.Format{
		game.FormatCSV,
		game.FormatParquet,
		game.FormatAvro,
	}
}

// SupportedCompressions returns supported compression codecs for a given format.
func SupportedCompressions(format game.Format) []string {
	switch format {
	case game.FormatCSV:
		return []string{CompressionNone, CompressionBzip2, CompressionGzip, CompressionZstd}
	case game.FormatParquet:
		return []string{"none", "snappy", "gzip", "lz4", "zstd"}
	case game.FormatAvro:
		return []string{"none", "deflate", "snappy"}
	default:
		return []string{}
	}
}

// DefaultCompression returns the default compression for a format.
func DefaultCompression(format game.Format) string {
	switch format {
	case game.FormatParquet:
		return "snappy"
	case game.FormatAvro:
		return "deflate"
	default:
		return CompressionNone
	}
}

func supports(format game.Format, compression string) bool {
	if format == game.FormatCSV {
		compression = normalizeCompression(compression)
	}
	if compression == "uncompressed" {
		compression = "none"
	}
	for _, c := range SupportedCompressions(format) {
		if c == compression {
			return true
		}
	}
	return false
}
