package transcoder

import (
	"github.com/jmviz/lichess-pgn-tags-to-csv/internal/errors"
	"github.com/jmviz/lichess-pgn-tags-to-csv/pkg/encoder"
	"github.com/jmviz/lichess-pgn-tags-to-csv/pkg/game"
)

// Compile-time check that RowWriter is a game visitor.
var _ game.Visitor = (*RowWriter)(nil)

// noColumn is the cursor before any field of a record has been written.
const noColumn = -1

type span struct {
	start, end int
}

// RowWriter turns record events into output rows. Values are staged per schema
// position as headers arrive, so the first occurrence of a tag wins and arrival
// order does not matter. The row is emitted when the record ends.
//
// A RowWriter is owned by a single conversion and is not safe for concurrent
// use.
type RowWriter struct {
	t    *Transcoder
	sink encoder.RowSink

	// cursor is the last schema position written in the current row.
	cursor int

	staged  []span
	present []bool
	arena   []byte

	headerWritten bool
	games         int
}

// NewRowWriter returns a writer emitting rows for t into sink.
func NewRowWriter(t *Transcoder, sink encoder.RowSink) *RowWriter {
	n := t.Schema().Len()
	return &RowWriter{
		t:       t,
		sink:    sink,
		cursor:  noColumn,
		staged:  make([]span, n),
		present: make([]bool, n),
		arena:   make([]byte, 0, 1024),
	}
}

// BeginGame discards anything staged for the previous record.
func (w *RowWriter) BeginGame() {
	w.reset()
}

// Header stages a tag value. Tags outside the schema and repeats of a tag
// already seen in this record are ignored. The value is copied.
func (w *RowWriter) Header(key, value []byte) {
	i, ok := w.t.Schema().IndexBytes(key)
	if !ok || w.present[i] {
		return
	}
	start := len(w.arena)
	w.arena = append(w.arena, value...)
	w.staged[i] = span{start: start, end: len(w.arena)}
	w.present[i] = true
}

// EndGame writes the staged record as one row. Schema positions without a
// value are filled with empty placeholders. The header row is written first if
// it has not been already.
func (w *RowWriter) EndGame() error {
	if !w.headerWritten {
		if err := w.WriteHeader(); err != nil {
			return err
		}
	}

	w.cursor = noColumn
	for i := range w.present {
		if !w.present[i] {
			continue
		}
		if err := w.fillTo(i); err != nil {
			return err
		}
		s := w.staged[i]
		if err := w.writeField(i, w.arena[s.start:s.end]); err != nil {
			return err
		}
		w.cursor = i
	}
	if err := w.fillTo(w.t.Schema().Len()); err != nil {
		return err
	}

	if err := w.sink.EndRow(); err != nil {
		return &errors.WriteError{Tag: "row end", Err: err}
	}
	w.games++
	w.reset()
	return nil
}

// Games returns the number of rows written, not counting the header.
func (w *RowWriter) Games() int {
	return w.games
}

// fillTo writes placeholders for every position strictly between the cursor and
// i.
func (w *RowWriter) fillTo(i int) error {
	for j := w.cursor + 1; j < i; j++ {
		if err := w.writePlaceholder(j); err != nil {
			return err
		}
		w.cursor = j
	}
	return nil
}

func (w *RowWriter) writeField(i int, value []byte) error {
	first, second := w.t.Transcode(i, value)
	if err := w.sink.WriteValue(first); err != nil {
		return w.writeErr(i, value, err)
	}
	if w.t.Width(i) == 2 {
		if err := w.sink.Delimit(); err != nil {
			return w.writeErr(i, value, err)
		}
		if err := w.sink.WriteValue(second); err != nil {
			return w.writeErr(i, value, err)
		}
	}
	return w.delimitAfter(i, value)
}

func (w *RowWriter) writePlaceholder(i int) error {
	for k := 0; k < w.t.Width(i); k++ {
		if k > 0 {
			if err := w.sink.Delimit(); err != nil {
				return w.writeErr(i, nil, err)
			}
		}
		if err := w.sink.WriteValue(nil); err != nil {
			return w.writeErr(i, nil, err)
		}
	}
	return w.delimitAfter(i, nil)
}

// delimitAfter writes the delimiter following position i unless it is the last
// position of the schema.
func (w *RowWriter) delimitAfter(i int, value []byte) error {
	if i == w.t.Schema().LastIndex() {
		return nil
	}
	if err := w.sink.Delimit(); err != nil {
		return w.writeErr(i, value, err)
	}
	return nil
}

func (w *RowWriter) writeErr(i int, value []byte, err error) error {
	return &errors.WriteError{Tag: w.t.Schema().Name(i), Value: string(value), Err: err}
}

func (w *RowWriter) reset() {
	for i := range w.present {
		w.present[i] = false
	}
	w.arena = w.arena[:0]
	w.cursor = noColumn
}
