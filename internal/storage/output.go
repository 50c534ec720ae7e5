// Package storage implements storage writers for converted outputs.
package storage

import (
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/jmviz/lichess-pgn-tags-to-csv/internal/errors"
	"github.com/jmviz/lichess-pgn-tags-to-csv/pkg/storage"
)

// MetricsCollector defines metrics operations for storage.
type MetricsCollector interface {
	IncOutputsWritten(backend string, status string)
	ObserveOutputSize(backend string, size float64)
	ObserveStorageWriteDuration(backend string, duration float64)
	IncStorageErrors(backend string, operation string)
}

// rawOutput is the backend specific part of an output.
type rawOutput interface {
	io.Writer
	commit() error
	abort(cause error)
}

// trackedOutput counts bytes and reports the outcome of a rawOutput.
type trackedOutput struct {
	raw     rawOutput
	backend string
	name    string
	start   time.Time
	written int64
	closed  bool
	logger  *slog.Logger
	metrics MetricsCollector
}

var _ storage.Output = (*trackedOutput)(nil)

func newTrackedOutput(raw rawOutput, backend, name string, logger *slog.Logger, metrics MetricsCollector) *trackedOutput {
	return &trackedOutput{
		raw:     raw,
		backend: backend,
		name:    name,
		start:   time.Now(),
		logger:  logger,
		metrics: metrics,
	}
}

func (o *trackedOutput) Write(p []byte) (int, error) {
	if o.closed {
		return 0, errors.ErrWriterClosed
	}
	n, err := o.raw.Write(p)
	o.written += int64(n)
	if err != nil {
		o.storageError("write")
		return n, &errors.StorageError{Backend: o.backend, Operation: "write", Path: o.name, Err: err}
	}
	return n, nil
}

func (o *trackedOutput) Written() int64 {
	return o.written
}

func (o *trackedOutput) Close() error {
	if o.closed {
		return nil
	}
	o.closed = true

	if err := o.raw.commit(); err != nil {
		o.storageError("commit")
		if o.metrics != nil {
			o.metrics.IncOutputsWritten(o.backend, "failed")
		}
		return &errors.StorageError{Backend: o.backend, Operation: "commit", Path: o.name, Err: err}
	}

	duration := time.Since(o.start)
	o.logger.Debug("output committed",
		"backend", o.backend,
		"path", o.name,
		"size_bytes", o.written,
		"duration_ms", duration.Milliseconds(),
	)
	if o.metrics != nil {
		o.metrics.IncOutputsWritten(o.backend, "success")
		o.metrics.ObserveOutputSize(o.backend, float64(o.written))
		o.metrics.ObserveStorageWriteDuration(o.backend, duration.Seconds())
	}
	return nil
}

func (o *trackedOutput) Abort(cause error) error {
	if o.closed {
		return nil
	}
	o.closed = true
	o.raw.abort(cause)

	o.logger.Warn("output discarded", "backend", o.backend, "path", o.name, "error", cause)
	if o.metrics != nil {
		o.metrics.IncOutputsWritten(o.backend, "aborted")
	}
	return nil
}

func (o *trackedOutput) storageError(op string) {
	if o.metrics != nil {
		o.metrics.IncStorageErrors(o.backend, op)
	}
}

// pipeOutput feeds writes through an io.Pipe into an upload running in its own
// goroutine.
type pipeOutput struct {
	pw   *io.PipeWriter
	done chan error
}

func newPipeOutput(upload func(r io.Reader) error) *pipeOutput {
	pr, pw := io.Pipe()
	o := &pipeOutput{pw: pw, done: make(chan error, 1)}
	go func() {
		err := upload(pr)
		// Unblocks a writer still waiting if the upload gave up early.
		pr.CloseWithError(err)
		o.done <- err
	}()
	return o
}

func (o *pipeOutput) Write(p []byte) (int, error) {
	return o.pw.Write(p)
}

func (o *pipeOutput) commit() error {
	o.pw.Close()
	return <-o.done
}

func (o *pipeOutput) abort(cause error) {
	if cause == nil {
		cause = fmt.Errorf("output aborted")
	}
	o.pw.CloseWithError(cause)
	<-o.done
}

// objectKey joins a prefix and a name into a slash separated object key
// without a leading slash.
func objectKey(prefix, name string) string {
	return strings.TrimPrefix(path.Join(prefix, name), "/")
}

// contentType returns the MIME type for an output name.
func contentType(name string) string {
	switch {
	case strings.HasSuffix(name, ".csv"):
		return "text/csv"
	case strings.HasSuffix(name, ".parquet"):
		return "application/vnd.apache.parquet"
	case strings.HasSuffix(name, ".avro"):
		return "application/avro"
	case strings.HasSuffix(name, ".gz"):
		return "application/gzip"
	case strings.HasSuffix(name, ".bz2"):
		return "application/x-bzip2"
	case strings.HasSuffix(name, ".zst"):
		return "application/zstd"
	default:
		return "application/octet-stream"
	}
}
