package storage

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/jmviz/lichess-pgn-tags-to-csv/pkg/storage"
)

// Ensure implementation satisfies interface at compile time.
var _ storage.Writer = (*S3Writer)(nil)

// S3Config contains AWS S3 configuration.
type S3Config struct {
	Bucket       string
	Region       string
	BasePath     string
	Endpoint     string
	UsePathStyle bool
	SSEEnabled   bool
	SSEKMSKeyID  string
}

// uploader is the subset of manager.Uploader used by S3Writer.
type uploader interface {
	Upload(ctx context.Context, input *s3.PutObjectInput, opts ...func(*manager.Uploader)) (*manager.UploadOutput, error)
}

// S3Writer implements storage.Writer for AWS S3. Outputs are streamed with
// multipart uploads and optional server-side encryption (SSE).
type S3Writer struct {
	uploader    uploader
	bucket      string
	basePath    string
	sseEnabled  bool
	sseKMSKeyID string
	logger      *slog.Logger
	metrics     MetricsCollector
}

// NewS3Writer creates a new S3 storage writer.
func NewS3Writer(ctx context.Context, cfg S3Config, logger *slog.Logger, metrics MetricsCollector) (*S3Writer, error) {
	awsConfig, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(cfg.Region),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	s3Client := s3.NewFromConfig(awsConfig, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	})

	up := manager.NewUploader(s3Client, func(u *manager.Uploader) {
		u.PartSize = 10 * 1024 * 1024 // 10MB parts
		u.Concurrency = 5
	})

	logger.Info("S3 writer created",
		"bucket", cfg.Bucket,
		"region", cfg.Region,
		"base_path", cfg.BasePath,
		"sse_enabled", cfg.SSEEnabled,
	)

	return newS3Writer(up, cfg, logger, metrics), nil
}

func newS3Writer(up uploader, cfg S3Config, logger *slog.Logger, metrics MetricsCollector) *S3Writer {
	return &S3Writer{
		uploader:    up,
		bucket:      cfg.Bucket,
		basePath:    cfg.BasePath,
		sseEnabled:  cfg.SSEEnabled,
		sseKMSKeyID: cfg.SSEKMSKeyID,
		logger:      logger,
		metrics:     metrics,
	}
}

// Create starts an upload to name under the base path. An s3://bucket/ prefix
// is ignored.
func (w *S3Writer) Create(ctx context.Context, name string) (storage.Output, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	key := objectKey(w.basePath, trimBucketURI(name, "s3://"))

	input := &s3.PutObjectInput{
		Bucket:      aws.String(w.bucket),
		Key:         aws.String(key),
		ContentType: aws.String(contentType(key)),
	}
	if w.sseEnabled {
		if w.sseKMSKeyID != "" {
			input.ServerSideEncryption = types.ServerSideEncryptionAwsKms
			input.SSEKMSKeyId = aws.String(w.sseKMSKeyID)
		} else {
			input.ServerSideEncryption = types.ServerSideEncryptionAes256
		}
	}

	raw := newPipeOutput(func(r io.Reader) error {
		input.Body = r
		result, err := w.uploader.Upload(ctx, input)
		if err != nil {
			if w.metrics != nil {
				w.metrics.IncStorageErrors("s3", "upload")
			}
			return fmt.Errorf("failed to upload to S3: %w", err)
		}
		w.logger.Debug("uploaded to S3", "bucket", w.bucket, "key", key, "location", result.Location)
		return nil
	})

	return newTrackedOutput(raw, "s3", "s3://"+w.bucket+"/"+key, w.logger, w.metrics), nil
}

// Backend returns "s3".
func (w *S3Writer) Backend() string {
	return "s3"
}

// Close closes the S3 writer.
func (w *S3Writer) Close() error {
	w.logger.Debug("closing S3 writer")
	return nil
}

// trimBucketURI strips scheme://bucket/ from name, if present.
func trimBucketURI(name, scheme string) string {
	if !strings.HasPrefix(name, scheme) {
		return name
	}
	parts := strings.SplitN(strings.TrimPrefix(name, scheme), "/", 2)
	if len(parts) == 2 {
		return parts[1]
	}
	return ""
}
