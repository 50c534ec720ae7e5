package storage

import (
	"context"
	"fmt"
	"log/slog"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"

	pkgstorage "github.com/jmviz/lichess-pgn-tags-to-csv/pkg/storage"
)

// Ensure implementation satisfies interface at compile time.
var _ pkgstorage.Writer = (*GCSWriter)(nil)

// GCSConfig contains Google Cloud Storage configuration.
type GCSConfig struct {
	Bucket               string
	ProjectID            string
	BasePath             string
	CredentialsFile      string
	CredentialsJSON      string
	Endpoint             string
	UseDefaultCredential bool
}

// GCSWriter implements storage.Writer for Google Cloud Storage. It supports
// service account file, JSON and default credentials.
type GCSWriter struct {
	client   *storage.Client
	bucket   string
	basePath string
	logger   *slog.Logger
	metrics  MetricsCollector
}

// clientOptions picks the authentication method.
func clientOptions(cfg GCSConfig, logger *slog.Logger) []option.ClientOption {
	var clientOpts []option.ClientOption
	if cfg.Endpoint != "" {
		clientOpts = append(clientOpts, option.WithEndpoint(cfg.Endpoint))
	}

	switch {
	case cfg.UseDefaultCredential:
		logger.Info("using default GCP credentials")
	case cfg.CredentialsJSON != "":
		clientOpts = append(clientOpts, option.WithCredentialsJSON([]byte(cfg.CredentialsJSON)))
		logger.Info("using GCP credentials from JSON string")
	case cfg.CredentialsFile != "":
		clientOpts = append(clientOpts, option.WithCredentialsFile(cfg.CredentialsFile))
		logger.Info("using GCP credentials from file", "file", cfg.CredentialsFile)
	default:
		logger.Info("no explicit credentials provided, using default GCP credentials")
	}
	return clientOpts
}

// NewGCSWriter creates a new Google Cloud Storage writer.
func NewGCSWriter(ctx context.Context, cfg GCSConfig, logger *slog.Logger, metrics MetricsCollector) (*GCSWriter, error) {
	client, err := storage.NewClient(ctx, clientOptions(cfg, logger)...)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCS client: %w", err)
	}

	logger.Info("GCS writer created",
		"bucket", cfg.Bucket,
		"project_id", cfg.ProjectID,
		"base_path", cfg.BasePath,
	)

	return &GCSWriter{
		client:   client,
		bucket:   cfg.Bucket,
		basePath: cfg.BasePath,
		logger:   logger,
		metrics:  metrics,
	}, nil
}

// Create opens an object writer for name under the base path. A gs://bucket/
// prefix is ignored. The object appears when the output is closed.
func (w *GCSWriter) Create(ctx context.Context, name string) (pkgstorage.Output, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	objectPath := objectKey(w.basePath, trimBucketURI(name, "gs://"))

	uploadCtx, cancel := context.WithCancel(ctx)
	gw := w.client.Bucket(w.bucket).Object(objectPath).NewWriter(uploadCtx)
	gw.ContentType = contentType(objectPath)

	raw := &gcsOutput{w: gw, cancel: cancel}
	return newTrackedOutput(raw, "gcs", "gs://"+w.bucket+"/"+objectPath, w.logger, w.metrics), nil
}

// Backend returns "gcs".
func (w *GCSWriter) Backend() string {
	return "gcs"
}

// Close closes the GCS client.
func (w *GCSWriter) Close() error {
	w.logger.Debug("closing GCS writer")
	if w.client != nil {
		return w.client.Close()
	}
	return nil
}

type gcsOutput struct {
	w      *storage.Writer
	cancel context.CancelFunc
}

func (o *gcsOutput) Write(p []byte) (int, error) {
	return o.w.Write(p)
}

func (o *gcsOutput) commit() error {
	defer o.cancel()
	if err := o.w.Close(); err != nil {
		return fmt.Errorf("failed to close GCS writer: %w", err)
	}
	return nil
}

// abort cancels the upload context; a canceled writer never creates the
// object.
func (o *gcsOutput) abort(error) {
	o.cancel()
	o.w.Close()
}
