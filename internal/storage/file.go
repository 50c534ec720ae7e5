package storage

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/jmviz/lichess-pgn-tags-to-csv/internal/errors"
	"github.com/jmviz/lichess-pgn-tags-to-csv/pkg/storage"
)

// Ensure implementation satisfies interface at compile time.
var _ storage.Writer = (*FileWriter)(nil)

// partialSuffix marks an output that has not been committed yet.
const partialSuffix = ".partial"

// FileConfig contains local filesystem configuration.
type FileConfig struct {
	BasePath string
}

// FileWriter implements storage.Writer for the local filesystem. Outputs are
// written to a uniquely named partial file next to their final name and
// renamed into place on commit.
type FileWriter struct {
	basePath string
	logger   *slog.Logger
	metrics  MetricsCollector
}

// NewFileWriter creates a filesystem writer rooted at config.BasePath, creating
// the directory if needed.
func NewFileWriter(config FileConfig, logger *slog.Logger, metrics MetricsCollector) (*FileWriter, error) {
	if config.BasePath == "" {
		config.BasePath = "."
	}
	if err := os.MkdirAll(config.BasePath, 0755); err != nil {
		return nil, &errors.StorageError{Backend: "file", Operation: "mkdir", Path: config.BasePath, Err: err}
	}

	logger.Info("filesystem writer created", "base_path", config.BasePath)

	return &FileWriter{
		basePath: config.BasePath,
		logger:   logger,
		metrics:  metrics,
	}, nil
}

// Create opens name under the base path. A file:// prefix is ignored.
func (w *FileWriter) Create(ctx context.Context, name string) (storage.Output, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	cleanPath := strings.TrimPrefix(name, "file://")
	fullPath := filepath.Join(w.basePath, filepath.FromSlash(cleanPath))

	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		w.storageError("mkdir")
		return nil, &errors.StorageError{Backend: "file", Operation: "mkdir", Path: fullPath, Err: err}
	}

	// Each output stages to its own file so concurrent writers of one name
	// never share bytes; the last commit wins.
	f, err := os.CreateTemp(filepath.Dir(fullPath), filepath.Base(fullPath)+".*"+partialSuffix)
	if err != nil {
		w.storageError("create")
		return nil, &errors.StorageError{Backend: "file", Operation: "create", Path: fullPath, Err: err}
	}
	// CreateTemp uses 0600.
	if err := f.Chmod(0644); err != nil {
		f.Close()
		os.Remove(f.Name())
		w.storageError("create")
		return nil, &errors.StorageError{Backend: "file", Operation: "create", Path: fullPath, Err: err}
	}

	return newTrackedOutput(&fileOutput{f: f, path: fullPath}, "file", fullPath, w.logger, w.metrics), nil
}

// Backend returns "file".
func (w *FileWriter) Backend() string {
	return "file"
}

// Close closes the writer.
func (w *FileWriter) Close() error {
	w.logger.Debug("closing filesystem writer")
	return nil
}

func (w *FileWriter) storageError(op string) {
	if w.metrics != nil {
		w.metrics.IncStorageErrors("file", op)
	}
}

type fileOutput struct {
	f    *os.File
	path string
}

func (o *fileOutput) Write(p []byte) (int, error) {
	return o.f.Write(p)
}

func (o *fileOutput) commit() error {
	if err := o.f.Close(); err != nil {
		os.Remove(o.f.Name())
		return fmt.Errorf("failed to close file: %w", err)
	}
	if err := os.Rename(o.f.Name(), o.path); err != nil {
		os.Remove(o.f.Name())
		return fmt.Errorf("failed to rename file: %w", err)
	}
	return nil
}

func (o *fileOutput) abort(error) {
	o.f.Close()
	os.Remove(o.f.Name())
}
