package storage

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jmviz/lichess-pgn-tags-to-csv/internal/errors"
	"github.com/jmviz/lichess-pgn-tags-to-csv/pkg/storage"
)

// Config selects and configures a storage backend.
type Config struct {
	Backend string
	File    FileConfig
	S3      S3Config
	GCS     GCSConfig
	Azure   AzureConfig
}

// SupportedBackends lists the backend names accepted by NewWriter.
func SupportedBackends() []string {
	return []string{"file", "s3", "gcs", "azure"}
}

// NewWriter creates the writer for cfg.Backend.
func NewWriter(ctx context.Context, cfg Config, logger *slog.Logger, metrics MetricsCollector) (storage.Writer, error) {
	switch cfg.Backend {
	case "file", "":
		w, err := NewFileWriter(cfg.File, logger, metrics)
		if err != nil {
			return nil, fmt.Errorf("failed to create filesystem writer: %w", err)
		}
		return w, nil
	case "s3":
		w, err := NewS3Writer(ctx, cfg.S3, logger, metrics)
		if err != nil {
			return nil, fmt.Errorf("failed to create S3 writer: %w", err)
		}
		return w, nil
	case "gcs":
		w, err := NewGCSWriter(ctx, cfg.GCS, logger, metrics)
		if err != nil {
			return nil, fmt.Errorf("failed to create GCS writer: %w", err)
		}
		return w, nil
	case "azure":
		w, err := NewAzureWriter(cfg.Azure, logger, metrics)
		if err != nil {
			return nil, fmt.Errorf("failed to create Azure Blob writer: %w", err)
		}
		return w, nil
	default:
		return nil, &errors.ConfigError{
			Field:  "storage.backend",
			Value:  cfg.Backend,
			Reason: "supported: file, s3, gcs, azure",
		}
	}
}
