package storage

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/blob"

	"github.com/jmviz/lichess-pgn-tags-to-csv/pkg/storage"
)

// Ensure implementation satisfies interface at compile time.
var _ storage.Writer = (*AzureWriter)(nil)

// AzureConfig contains Azure Blob Storage configuration.
type AzureConfig struct {
	AccountName   string
	AccountKey    string
	ContainerName string
	Endpoint      string
	BasePath      string
}

// streamUploader is the subset of azblob.Client used by AzureWriter.
type streamUploader interface {
	UploadStream(ctx context.Context, containerName, blobName string, body io.Reader, o *azblob.UploadStreamOptions) (azblob.UploadStreamResponse, error)
}

// AzureWriter implements storage.Writer for Azure Blob Storage using access
// key authentication. Outputs are streamed as block blobs.
type AzureWriter struct {
	client        streamUploader
	containerName string
	basePath      string
	logger        *slog.Logger
	metrics       MetricsCollector
}

// connectionString builds the account connection string.
func connectionString(cfg AzureConfig) string {
	if cfg.Endpoint != "" {
		return fmt.Sprintf("DefaultEndpointsProtocol=https;AccountName=%s;AccountKey=%s;BlobEndpoint=%s",
			cfg.AccountName, cfg.AccountKey, cfg.Endpoint)
	}
	return fmt.Sprintf("DefaultEndpointsProtocol=https;AccountName=%s;AccountKey=%s;EndpointSuffix=core.windows.net",
		cfg.AccountName, cfg.AccountKey)
}

// NewAzureWriter creates a new Azure Blob storage writer.
func NewAzureWriter(cfg AzureConfig, logger *slog.Logger, metrics MetricsCollector) (*AzureWriter, error) {
	client, err := azblob.NewClientFromConnectionString(connectionString(cfg), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create Azure client: %w", err)
	}

	logger.Info("Azure writer created",
		"container", cfg.ContainerName,
		"account", cfg.AccountName,
		"base_path", cfg.BasePath,
	)

	return newAzureWriter(client, cfg, logger, metrics), nil
}

func newAzureWriter(client streamUploader, cfg AzureConfig, logger *slog.Logger, metrics MetricsCollector) *AzureWriter {
	return &AzureWriter{
		client:        client,
		containerName: cfg.ContainerName,
		basePath:      cfg.BasePath,
		logger:        logger,
		metrics:       metrics,
	}
}

// Create starts a streaming upload to name under the base path. A
// wasbs://container/ prefix is ignored.
func (w *AzureWriter) Create(ctx context.Context, name string) (storage.Output, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	blobPath := objectKey(w.basePath, trimBucketURI(name, "wasbs://"))
	ct := contentType(blobPath)

	raw := newPipeOutput(func(r io.Reader) error {
		_, err := w.client.UploadStream(ctx, w.containerName, blobPath, r, &azblob.UploadStreamOptions{
			HTTPHeaders: &blob.HTTPHeaders{BlobContentType: &ct},
		})
		if err != nil {
			if w.metrics != nil {
				w.metrics.IncStorageErrors("azure", "upload")
			}
			return fmt.Errorf("failed to upload to Azure Blob: %w", err)
		}
		return nil
	})

	return newTrackedOutput(raw, "azure", "wasbs://"+w.containerName+"/"+blobPath, w.logger, w.metrics), nil
}

// Backend returns "azure".
func (w *AzureWriter) Backend() string {
	return "azure"
}

// Close closes the Azure writer.
func (w *AzureWriter) Close() error {
	w.logger.Debug("Azure writer closed")
	return nil
}
