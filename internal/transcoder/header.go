package transcoder

import (
	"github.com/jmviz/lichess-pgn-tags-to-csv/internal/errors"
)

// WriteHeader writes the header row. In minified mode expanding tags get two
// labels and the link and starting position columns are renamed. It must be
// called at most once per output; a second call returns ErrHeaderWritten.
func (w *RowWriter) WriteHeader() error {
	if w.headerWritten {
		return errors.ErrHeaderWritten
	}

	s := w.t.Schema()
	for i := 0; i < s.Len(); i++ {
		for k, label := range w.t.Labels(i) {
			if k > 0 {
				if err := w.sink.Delimit(); err != nil {
					return w.writeErr(i, nil, err)
				}
			}
			if err := w.sink.WriteValue([]byte(label)); err != nil {
				return &errors.WriteError{Tag: s.Name(i), Value: label, Err: err}
			}
		}
		if err := w.delimitAfter(i, nil); err != nil {
			return err
		}
	}
	if err := w.sink.EndRow(); err != nil {
		return &errors.WriteError{Tag: "header end", Err: err}
	}

	w.headerWritten = true
	return nil
}

// HeaderLabels returns the header cells in output order.
func (t *Transcoder) HeaderLabels() []string {
	labels := make([]string, 0, t.width)
	for _, c := range t.columns {
		labels = append(labels, c.labels...)
	}
	return labels
}
