// Package encoder defines interfaces for rendering transcoded rows in an output
// format.
package encoder

import (
	"io"

	"github.com/jmviz/lichess-pgn-tags-to-csv/pkg/game"
)

// RowSink receives rows one value at a time. The caller decides where
// delimiters go; a sink only renders them. The first row written to a sink is
// the header row.
type RowSink interface {
	// WriteValue writes the value of the current cell. It is called at most
	// once per cell.
	WriteValue(value []byte) error

	// Delimit ends the current cell and starts the next one in the same row.
	Delimit() error

	// EndRow ends the current row.
	EndRow() error

	// Close flushes buffered output. It does not close the underlying writer.
	Close() error
}

// Encoder creates row sinks for one output format.
type Encoder interface {
	// NewSink returns a sink writing to w.
	NewSink(w io.Writer) (RowSink, error)

	// Format returns the output format this encoder produces.
	Format() game.Format

	// FileExtension returns the file extension, including any compression
	// suffix (e.g. ".csv.bz2", ".parquet").
	FileExtension() string
}
