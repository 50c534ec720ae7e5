package encoder

import (
	stderrors "errors"
	"fmt"

	"github.com/jmviz/lichess-pgn-tags-to-csv/internal/buffer"
	"github.com/jmviz/lichess-pgn-tags-to-csv/internal/errors"
	"github.com/jmviz/lichess-pgn-tags-to-csv/pkg/encoder"
)

var _ encoder.RowSink = (*columnarSink)(nil)

const (
	defaultBatchRows  = 4096
	defaultBatchBytes = 8 * 1024 * 1024
)

// batchWriter writes rows of a columnar format. open is called once with the
// column names taken from the header row.
type batchWriter interface {
	open(columns []string) error
	write(rows []buffer.Row) error
	close() error
}

// columnarSink collects cells into rows and hands them to a batchWriter in
// batches. Every string column is non-null; missing values are empty strings.
type columnarSink struct {
	w       batchWriter
	buf     *buffer.RowBuffer
	columns []string
	cells   []string
	cell    string
	closed  bool
}

func newColumnarSink(w batchWriter) *columnarSink {
	return &columnarSink{
		w:   w,
		buf: buffer.New(defaultBatchBytes, defaultBatchRows),
	}
}

func (s *columnarSink) WriteValue(value []byte) error {
	s.cell = string(value)
	return nil
}

func (s *columnarSink) Delimit() error {
	s.cells = append(s.cells, s.cell)
	s.cell = ""
	return nil
}

func (s *columnarSink) EndRow() error {
	if s.closed {
		return errors.ErrWriterClosed
	}

	row := append(s.cells, s.cell)
	s.cells = nil
	s.cell = ""

	if s.columns == nil {
		s.columns = row
		return s.w.open(s.columns)
	}
	if len(row) != len(s.columns) {
		return fmt.Errorf("%w: got %d values, want %d", errors.ErrColumnCount, len(row), len(s.columns))
	}

	if err := s.buf.Add(buffer.Row(row)); err != nil {
		if !stderrors.Is(err, errors.ErrBufferFull) {
			return err
		}
		if err := s.flush(); err != nil {
			return err
		}
		if err := s.buf.Add(buffer.Row(row)); err != nil {
			return err
		}
	}
	if s.buf.Full() {
		return s.flush()
	}
	return nil
}

func (s *columnarSink) flush() error {
	if s.buf.IsEmpty() {
		return nil
	}
	return s.w.write(s.buf.Drain())
}

// Close writes any buffered rows and finalizes the file. A sink that never
// received a header writes nothing.
func (s *columnarSink) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	if s.columns == nil {
		return nil
	}
	if err := s.flush(); err != nil {
		return err
	}
	return s.w.close()
}
