package encoder

import (
	"bufio"
	"bytes"
	"fmt"
	"io"

	"github.com/jmviz/lichess-pgn-tags-to-csv/pkg/encoder"
	"github.com/jmviz/lichess-pgn-tags-to-csv/pkg/game"
)

// Ensure implementation satisfies interface at compile time.
var (
	_ encoder.Encoder = (*CSVEncoder)(nil)
	_ encoder.RowSink = (*csvSink)(nil)
)

const csvBufferSize = 256 * 1024

// CSVEncoder writes comma separated rows, optionally through a stream
// compressor.
type CSVEncoder struct {
	compression string
}

// NewCSVEncoder creates a CSV encoder. compression is one of none, bzip2, gzip
// or zstd.
func NewCSVEncoder(compression string) *CSVEncoder {
	return &CSVEncoder{compression: normalizeCompression(compression)}
}

// NewSink returns a sink writing CSV to w.
func (e *CSVEncoder) NewSink(w io.Writer) (encoder.RowSink, error) {
	zw, err := NewCompressWriter(w, e.compression)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s writer: %w", e.compression, err)
	}
	return &csvSink{
		bw: bufio.NewWriterSize(zw, csvBufferSize),
		zw: zw,
	}, nil
}

// Format returns the file format.
func (e *CSVEncoder) Format() game.Format {
	return game.FormatCSV
}

// FileExtension returns ".csv" plus the compression suffix.
func (e *CSVEncoder) FileExtension() string {
	return ".csv" + CompressionExtension(e.compression)
}

// csvSink writes values as they arrive. Values containing a delimiter, quote or
// line break are quoted.
type csvSink struct {
	bw     *bufio.Writer
	zw     io.WriteCloser
	closed bool
}

func (s *csvSink) WriteValue(value []byte) error {
	if !needsQuotes(value) {
		_, err := s.bw.Write(value)
		return err
	}

	s.bw.WriteByte('"')
	for {
		i := bytes.IndexByte(value, '"')
		if i < 0 {
			break
		}
		s.bw.Write(value[:i+1])
		s.bw.WriteByte('"')
		value = value[i+1:]
	}
	s.bw.Write(value)
	return s.bw.WriteByte('"')
}

func (s *csvSink) Delimit() error {
	return s.bw.WriteByte(',')
}

func (s *csvSink) EndRow() error {
	return s.bw.WriteByte('\n')
}

func (s *csvSink) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	if err := s.bw.Flush(); err != nil {
		return fmt.Errorf("failed to flush csv: %w", err)
	}
	if err := s.zw.Close(); err != nil {
		return fmt.Errorf("failed to close compressor: %w", err)
	}
	return nil
}

func needsQuotes(value []byte) bool {
	return bytes.ContainsAny(value, ",\"\r\n")
}
