// Package storage defines interfaces for writing converted outputs to storage
// backends (local filesystem, S3, GCS, Azure Blob).
package storage

import (
	"context"
	"io"
	"time"

	"github.com/jmviz/lichess-pgn-tags-to-csv/pkg/game"
)

// Writer creates outputs in one storage backend. Implementations must be safe
// for concurrent use; each Output belongs to a single goroutine.
type Writer interface {
	// Create opens a new output at name, relative to the backend's base path.
	// Nothing is visible at name until the output is closed.
	Create(ctx context.Context, name string) (Output, error)

	// Backend returns the backend name, e.g. "file" or "s3".
	Backend() string

	// Close releases backend resources.
	Close() error
}

// Output is one object being written.
type Output interface {
	io.Writer

	// Close commits the output.
	Close() error

	// Abort discards the output. cause is reported to the backend where it
	// supports it.
	Abort(cause error) error

	// Written returns the number of bytes written so far.
	Written() int64
}

// Router determines output names for stream mode.
type Router interface {
	// Route returns a new, unique output name for source created at t. ext is
	// the encoder's file extension.
	Route(source game.Source, t time.Time, ext string) string
}

// RotationPolicy determines when to close an output and start a new one.
type RotationPolicy interface {
	// ShouldRotate returns true if the output described by stats is complete.
	ShouldRotate(stats game.Stats) bool
}
