// Package convert turns PGN files into tabular outputs, one output per input.
package convert

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/jmviz/lichess-pgn-tags-to-csv/internal/encoder"
	"github.com/jmviz/lichess-pgn-tags-to-csv/internal/errors"
	"github.com/jmviz/lichess-pgn-tags-to-csv/internal/pgn"
	"github.com/jmviz/lichess-pgn-tags-to-csv/internal/transcoder"
	pkgencoder "github.com/jmviz/lichess-pgn-tags-to-csv/pkg/encoder"
	"github.com/jmviz/lichess-pgn-tags-to-csv/pkg/storage"
)

// MetricsCollector defines metrics operations for conversions.
type MetricsCollector interface {
	IncFilesConverted(status string)
	AddGamesWritten(mode string, games int)
	AddInputBytes(bytes int64)
	ObserveConversionDuration(duration float64)
}

// Result describes one converted file.
type Result struct {
	Input     string
	Output    string
	Variant   bool
	Games     int
	Malformed int
	BytesRead int64
	Duration  time.Duration
}

// Converter converts single PGN files. It is safe for concurrent use; each
// call owns its scanner, row writer and sink.
type Converter struct {
	transcoders *Transcoders
	encoder     pkgencoder.Encoder
	storage     storage.Writer
	logger      *slog.Logger
	metrics     MetricsCollector
}

// NewConverter validates opts and prepares the transcoders. An invalid tag
// list is returned as a *errors.ConfigError.
func NewConverter(opts Options, enc pkgencoder.Encoder, store storage.Writer, logger *slog.Logger, metrics MetricsCollector) (*Converter, error) {
	transcoders, err := NewTranscoders(opts)
	if err != nil {
		return nil, err
	}

	return &Converter{
		transcoders: transcoders,
		encoder:     enc,
		storage:     store,
		logger:      logger,
		metrics:     metrics,
	}, nil
}

// OutputName returns the output name for input.
func (c *Converter) OutputName(input string) string {
	return OutputName(input, c.encoder.FileExtension())
}

// CheckOutputs returns a *errors.ConfigError wrapping
// errors.ErrDuplicateOutput if two inputs map to the same output, such as
// x.pgn and x.pgn.bz2.
func (c *Converter) CheckOutputs(inputs []string) error {
	seen := make(map[string]string, len(inputs))
	for _, input := range inputs {
		output := c.OutputName(input)
		if prev, ok := seen[output]; ok {
			return &errors.ConfigError{
				Field:  "input.patterns",
				Value:  output,
				Reason: fmt.Sprintf("%s and %s convert to the same output", prev, input),
				Err:    errors.ErrDuplicateOutput,
			}
		}
		seen[output] = input
	}
	return nil
}

// ConvertFile converts input into its output. The output only becomes visible
// when the whole input was converted; on failure it is discarded and a
// *errors.ConversionError is returned.
func (c *Converter) ConvertFile(ctx context.Context, input string) (Result, error) {
	start := time.Now()
	t := c.transcoders.For(input)
	res := Result{
		Input:   input,
		Output:  c.OutputName(input),
		Variant: t.Variant(),
	}

	f, err := os.Open(input)
	if err != nil {
		return res, c.fail(res, "open", err)
	}
	defer f.Close()

	r, err := encoder.NewDecompressReader(f, input)
	if err != nil {
		return res, c.fail(res, "decompress", err)
	}
	defer r.Close()

	out, err := c.storage.Create(ctx, res.Output)
	if err != nil {
		return res, c.fail(res, "create", err)
	}

	sink, err := c.encoder.NewSink(out)
	if err != nil {
		out.Abort(err)
		return res, c.fail(res, "create", err)
	}

	rw := transcoder.NewRowWriter(t, sink)
	sc := pgn.NewScanner(r)

	if err := rw.WriteHeader(); err != nil {
		discard(sink, out, err)
		return res, c.fail(res, "write", err)
	}

	if _, err := sc.Scan(ctx, rw); err != nil {
		discard(sink, out, err)
		res.Games = rw.Games()
		return res, c.fail(res, scanOp(err), err)
	}

	if err := sink.Close(); err != nil {
		out.Abort(err)
		return res, c.fail(res, "flush", err)
	}
	if err := out.Close(); err != nil {
		return res, c.fail(res, "commit", err)
	}

	res.Games = rw.Games()
	res.Malformed = sc.Malformed()
	res.BytesRead = sc.BytesRead()
	res.Duration = time.Since(start)

	c.logger.Info("file converted",
		"input", res.Input,
		"output", res.Output,
		"variant", res.Variant,
		"games", res.Games,
		"malformed_tags", res.Malformed,
		"duration_ms", res.Duration.Milliseconds(),
	)
	if c.metrics != nil {
		c.metrics.IncFilesConverted("success")
		c.metrics.AddGamesWritten(c.transcoders.Mode().String(), res.Games)
		c.metrics.AddInputBytes(res.BytesRead)
		c.metrics.ObserveConversionDuration(res.Duration.Seconds())
	}
	return res, nil
}

func (c *Converter) fail(res Result, op string, err error) error {
	c.logger.Error("file conversion failed",
		"input", res.Input,
		"output", res.Output,
		"op", op,
		"games", res.Games,
		"error", err,
	)
	if c.metrics != nil {
		c.metrics.IncFilesConverted("failed")
	}
	return &errors.ConversionError{Input: res.Input, Output: res.Output, Op: op, Err: err}
}

// discard releases the sink and drops the partial output.
func discard(sink pkgencoder.RowSink, out storage.Output, cause error) {
	sink.Close()
	out.Abort(cause)
}

func scanOp(err error) string {
	var writeErr *errors.WriteError
	switch {
	case stderrors.As(err, &writeErr):
		return "write"
	case stderrors.Is(err, context.Canceled), stderrors.Is(err, context.DeadlineExceeded):
		return "cancel"
	default:
		return "read"
	}
}

