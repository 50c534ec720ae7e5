package dto

import (
	"time"

	"github.com/jmviz/lichess-pgn-tags-to-csv/internal/errors"
)

// ApplicationConfig is the root configuration structure
type ApplicationConfig struct {
	Application   ApplicationInfo     `mapstructure:"application"`
	Conversion    ConversionConfig    `mapstructure:"conversion"`
	Input         InputConfig         `mapstructure:"input"`
	Output        OutputConfig        `mapstructure:"output"`
	Storage       StorageConfig       `mapstructure:"storage"`
	Kafka         KafkaConfig         `mapstructure:"kafka"`
	FileRotation  FileRotationConfig  `mapstructure:"file_rotation"`
	Generator     GeneratorConfig     `mapstructure:"generator"`
	Observability ObservabilityConfig `mapstructure:"observability"`
	Shutdown      ShutdownConfig      `mapstructure:"shutdown"`
}

// ApplicationInfo contains application metadata
type ApplicationInfo struct {
	Name    string `mapstructure:"name"`
	Version string `mapstructure:"version"`
}

// ConversionConfig selects the columns and how values are rendered.
type ConversionConfig struct {
	Tags        []string `mapstructure:"tags"`
	Variant     bool     `mapstructure:"variant"`
	AutoVariant bool     `mapstructure:"auto_variant"`
	Minify      bool     `mapstructure:"minify"`
	Workers     int      `mapstructure:"workers"`
}

// InputConfig locates the PGN files of a batch run.
type InputConfig struct {
	Dir      string   `mapstructure:"dir"`
	Patterns []string `mapstructure:"patterns"`
}

// OutputConfig contains the output format settings
type OutputConfig struct {
	Dir         string `mapstructure:"dir"`
	Format      string `mapstructure:"format"`
	Compression string `mapstructure:"compression"`
}

// StorageConfig contains storage backend configuration
type StorageConfig struct {
	Backend string      `mapstructure:"backend"`
	S3      S3Config    `mapstructure:"s3"`
	Azure   AzureConfig `mapstructure:"azure"`
	GCS     GCSConfig   `mapstructure:"gcs"`
	File    FileConfig  `mapstructure:"file"`
}

// S3Config contains AWS S3 configuration
type S3Config struct {
	Bucket       string `mapstructure:"bucket"`
	Region       string `mapstructure:"region"`
	BasePath     string `mapstructure:"base_path"`
	Endpoint     string `mapstructure:"endpoint"`
	UsePathStyle bool   `mapstructure:"use_path_style"`
	SSEEnabled   bool   `mapstructure:"sse_enabled"`
	SSEKMSKeyID  string `mapstructure:"sse_kms_key_id"`
}

// AzureConfig contains Azure Blob Storage configuration
type AzureConfig struct {
	AccountName string `mapstructure:"account_name"`
	AccountKey  string `mapstructure:"account_key"`
	Container   string `mapstructure:"container"`
	Endpoint    string `mapstructure:"endpoint"`
	BasePath    string `mapstructure:"base_path"`
}

// GCSConfig contains Google Cloud Storage configuration
type GCSConfig struct {
	Bucket               string `mapstructure:"bucket"`
	ProjectID            string `mapstructure:"project_id"`
	BasePath             string `mapstructure:"base_path"`
	CredentialsFile      string `mapstructure:"credentials_file"`
	CredentialsJSON      string `mapstructure:"credentials_json"`
	Endpoint             string `mapstructure:"endpoint"`
	UseDefaultCredential bool   `mapstructure:"use_default_credential"`
}

// FileConfig contains local filesystem configuration
type FileConfig struct {
	BasePath string `mapstructure:"base_path"`
}

// KafkaConfig contains Kafka-related configuration
type KafkaConfig struct {
	BootstrapServers []string       `mapstructure:"bootstrap_servers"`
	SecurityProtocol string         `mapstructure:"security_protocol"`
	SASLMechanism    string         `mapstructure:"sasl_mechanism"`
	SASLUsername     string         `mapstructure:"sasl_username"`
	SASLPassword     string         `mapstructure:"sasl_password"`
	Region           string         `mapstructure:"region"`
	TLS              TLSConfig      `mapstructure:"tls"`
	Consumer         ConsumerConfig `mapstructure:"consumer"`
	Producer         ProducerConfig `mapstructure:"producer"`
}

// TLSConfig contains TLS certificates for SSL and SASL_SSL
type TLSConfig struct {
	CACertFile         string `mapstructure:"ca_cert_file"`
	ClientCertFile     string `mapstructure:"client_cert_file"`
	ClientKeyFile      string `mapstructure:"client_key_file"`
	InsecureSkipVerify bool   `mapstructure:"insecure_skip_verify"`
}

// ConsumerConfig contains Kafka consumer configuration
type ConsumerConfig struct {
	GroupID             string   `mapstructure:"group_id"`
	Topics              []string `mapstructure:"topics"`
	EventTypes          []string `mapstructure:"event_types"`
	AutoOffsetReset     string   `mapstructure:"auto_offset_reset"`
	MaxPollIntervalMS   int      `mapstructure:"max_poll_interval_ms"`
	SessionTimeoutMS    int      `mapstructure:"session_timeout_ms"`
	HeartbeatIntervalMS int      `mapstructure:"heartbeat_interval_ms"`
}

// ProducerConfig contains Kafka producer configuration
type ProducerConfig struct {
	Topic           string `mapstructure:"topic"`
	RequiredAcks    int    `mapstructure:"required_acks"`
	CompressionType string `mapstructure:"compression_type"`
	MaxMessageBytes int    `mapstructure:"max_message_bytes"`
	Idempotent      bool   `mapstructure:"idempotent"`
	RetryMax        int    `mapstructure:"retry_max"`
	RetryBackoffMS  int    `mapstructure:"retry_backoff_ms"`
}

// FileRotationConfig contains stream output rotation settings
type FileRotationConfig struct {
	MaxFileSizeMB        int64 `mapstructure:"max_file_size_mb"`
	MaxRecordsPerFile    int   `mapstructure:"max_records_per_file"`
	MaxDurationSeconds   int   `mapstructure:"max_duration_seconds"`
	CheckIntervalSeconds int   `mapstructure:"check_interval_seconds"`
}

// GeneratorConfig contains synthetic game settings
type GeneratorConfig struct {
	Games         int     `mapstructure:"games"`
	Seed          int64   `mapstructure:"seed"`
	Chess960Ratio float64 `mapstructure:"chess960_ratio"`
	Output        string  `mapstructure:"output"`
}

// ObservabilityConfig contains observability settings
type ObservabilityConfig struct {
	Logging  LoggingConfig `mapstructure:"logging"`
	Metrics  MetricsConfig `mapstructure:"metrics"`
	Health   HealthConfig  `mapstructure:"health"`
	Progress bool          `mapstructure:"progress"`
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

// MetricsConfig contains metrics settings
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Port    int    `mapstructure:"port"`
	Path    string `mapstructure:"path"`
	// Textfile is a node-exporter textfile written when a batch run ends.
	Textfile string `mapstructure:"textfile"`
}

// HealthConfig contains health check settings
type HealthConfig struct {
	Port int `mapstructure:"port"`
}

// ShutdownConfig contains shutdown settings
type ShutdownConfig struct {
	GracePeriodSeconds int `mapstructure:"grace_period_seconds"`
}

// GracePeriod returns the shutdown grace period.
func (c ShutdownConfig) GracePeriod() time.Duration {
	return time.Duration(c.GracePeriodSeconds) * time.Second
}

// ValidateConsumer validates the settings needed by the stream command.
func (c *KafkaConfig) ValidateConsumer() error {
	if len(c.BootstrapServers) == 0 {
		return &errors.ConfigError{Field: "kafka.bootstrap_servers", Reason: "required"}
	}
	if c.Consumer.GroupID == "" {
		return &errors.ConfigError{Field: "kafka.consumer.group_id", Reason: "required"}
	}
	if len(c.Consumer.Topics) == 0 {
		return &errors.ConfigError{Field: "kafka.consumer.topics", Reason: "required"}
	}
	switch c.Consumer.AutoOffsetReset {
	case "earliest", "latest":
	default:
		return &errors.ConfigError{
			Field:  "kafka.consumer.auto_offset_reset",
			Value:  c.Consumer.AutoOffsetReset,
			Reason: "supported: earliest, latest",
		}
	}
	return nil
}

// ValidateProducer validates the settings needed to publish generated games.
func (c *KafkaConfig) ValidateProducer() error {
	if len(c.BootstrapServers) == 0 {
		return &errors.ConfigError{Field: "kafka.bootstrap_servers", Reason: "required"}
	}
	if c.Producer.Topic == "" {
		return &errors.ConfigError{Field: "kafka.producer.topic", Reason: "required"}
	}
	return nil
}

// Validate validates S3 configuration.
func (c *S3Config) Validate() error {
	if c.Bucket == "" {
		return &errors.ConfigError{Field: "storage.s3.bucket", Reason: "required for s3 backend"}
	}
	if c.Region == "" {
		return &errors.ConfigError{Field: "storage.s3.region", Reason: "required for s3 backend"}
	}
	return nil
}

// Validate validates Azure configuration.
func (c *AzureConfig) Validate() error {
	if c.AccountName == "" {
		return &errors.ConfigError{Field: "storage.azure.account_name", Reason: "required for azure backend"}
	}
	if c.Container == "" {
		return &errors.ConfigError{Field: "storage.azure.container", Reason: "required for azure backend"}
	}
	return nil
}

// Validate validates GCS configuration.
func (c *GCSConfig) Validate() error {
	if c.Bucket == "" {
		return &errors.ConfigError{Field: "storage.gcs.bucket", Reason: "required for gcs backend"}
	}
	return nil
}

// Validate validates file configuration.
func (c *FileConfig) Validate() error {
	if c.BasePath == "" {
		return &errors.ConfigError{Field: "storage.file.base_path", Reason: "required for file backend"}
	}
	return nil
}
