// Package config loads the run configuration from defaults, a YAML file,
// PGN2CSV_ environment variables and command line flags.
package config

import (
	stderrors "errors"
	"fmt"
	"os"
	"runtime"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/jmviz/lichess-pgn-tags-to-csv/internal/config/dto"
	"github.com/jmviz/lichess-pgn-tags-to-csv/internal/convert"
	"github.com/jmviz/lichess-pgn-tags-to-csv/internal/encoder"
	"github.com/jmviz/lichess-pgn-tags-to-csv/internal/errors"
	"github.com/jmviz/lichess-pgn-tags-to-csv/internal/schema"
	"github.com/jmviz/lichess-pgn-tags-to-csv/internal/storage"
	"github.com/jmviz/lichess-pgn-tags-to-csv/pkg/game"
)

// EnvPrefix prefixes every environment variable read by the loader, e.g.
// PGN2CSV_OUTPUT_FORMAT.
const EnvPrefix = "PGN2CSV"

// Loader handles configuration loading and validation
type Loader struct {
	v *viper.Viper
}

// NewLoader creates a new configuration loader
func NewLoader() *Loader {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return &Loader{v: v}
}

// BindFlag makes flag override the configuration key when it is set on the
// command line.
func (l *Loader) BindFlag(key string, flag *pflag.Flag) error {
	if flag == nil {
		return fmt.Errorf("no flag for config key %s", key)
	}
	return l.v.BindPFlag(key, flag)
}

// Load loads configuration from file, environment variables and bound flags.
// An empty path loads defaults only.
func (l *Loader) Load(path string) (*dto.ApplicationConfig, error) {
	l.setDefaults()

	if path != "" {
		l.v.SetConfigFile(path)
		if err := l.v.ReadInConfig(); err != nil {
			if !stderrors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	// Expand ${VAR} references in string values.
	for _, key := range l.v.AllKeys() {
		value, ok := l.v.Get(key).(string)
		if ok && strings.Contains(value, "${") {
			l.v.Set(key, os.ExpandEnv(value))
		}
	}

	var config dto.ApplicationConfig
	if err := l.v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	resolve(&config)

	if err := l.Validate(&config); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values. Every key has a default so
// that environment variables are seen by Unmarshal.
func (l *Loader) setDefaults() {
	l.v.SetDefault("application.name", "pgn2csv")
	l.v.SetDefault("application.version", "dev")

	l.v.SetDefault("conversion.tags", []string{})
	l.v.SetDefault("conversion.variant", false)
	l.v.SetDefault("conversion.auto_variant", true)
	l.v.SetDefault("conversion.minify", false)
	l.v.SetDefault("conversion.workers", 0)

	l.v.SetDefault("input.dir", ".")
	l.v.SetDefault("input.patterns", convert.DefaultPatterns)

	l.v.SetDefault("output.dir", "")
	l.v.SetDefault("output.format", string(game.FormatCSV))
	l.v.SetDefault("output.compression", "")

	l.v.SetDefault("storage.backend", "file")
	l.v.SetDefault("storage.file.base_path", "")
	l.v.SetDefault("storage.s3.bucket", "")
	l.v.SetDefault("storage.s3.region", "")
	l.v.SetDefault("storage.s3.base_path", "")
	l.v.SetDefault("storage.s3.endpoint", "")
	l.v.SetDefault("storage.s3.use_path_style", false)
	l.v.SetDefault("storage.s3.sse_enabled", true)
	l.v.SetDefault("storage.s3.sse_kms_key_id", "")
	l.v.SetDefault("storage.gcs.bucket", "")
	l.v.SetDefault("storage.gcs.project_id", "")
	l.v.SetDefault("storage.gcs.base_path", "")
	l.v.SetDefault("storage.gcs.credentials_file", "")
	l.v.SetDefault("storage.gcs.credentials_json", "")
	l.v.SetDefault("storage.gcs.endpoint", "")
	l.v.SetDefault("storage.gcs.use_default_credential", true)
	l.v.SetDefault("storage.azure.account_name", "")
	l.v.SetDefault("storage.azure.account_key", "")
	l.v.SetDefault("storage.azure.container", "")
	l.v.SetDefault("storage.azure.endpoint", "")
	l.v.SetDefault("storage.azure.base_path", "")

	l.v.SetDefault("kafka.bootstrap_servers", []string{})
	l.v.SetDefault("kafka.security_protocol", "PLAINTEXT")
	l.v.SetDefault("kafka.sasl_mechanism", "")
	l.v.SetDefault("kafka.sasl_username", "")
	l.v.SetDefault("kafka.sasl_password", "")
	l.v.SetDefault("kafka.region", "")
	l.v.SetDefault("kafka.tls.ca_cert_file", "")
	l.v.SetDefault("kafka.tls.client_cert_file", "")
	l.v.SetDefault("kafka.tls.client_key_file", "")
	l.v.SetDefault("kafka.tls.insecure_skip_verify", false)
	l.v.SetDefault("kafka.consumer.group_id", "pgn2csv")
	l.v.SetDefault("kafka.consumer.topics", []string{})
	l.v.SetDefault("kafka.consumer.event_types", []string{})
	l.v.SetDefault("kafka.consumer.auto_offset_reset", "earliest")
	l.v.SetDefault("kafka.consumer.max_poll_interval_ms", 300000)
	l.v.SetDefault("kafka.consumer.session_timeout_ms", 30000)
	l.v.SetDefault("kafka.consumer.heartbeat_interval_ms", 3000)
	l.v.SetDefault("kafka.producer.topic", "")
	l.v.SetDefault("kafka.producer.required_acks", -1)
	l.v.SetDefault("kafka.producer.compression_type", "zstd")
	l.v.SetDefault("kafka.producer.max_message_bytes", 1000000)
	l.v.SetDefault("kafka.producer.idempotent", false)
	l.v.SetDefault("kafka.producer.retry_max", 3)
	l.v.SetDefault("kafka.producer.retry_backoff_ms", 100)

	l.v.SetDefault("file_rotation.max_file_size_mb", 128)
	l.v.SetDefault("file_rotation.max_records_per_file", 1000000)
	l.v.SetDefault("file_rotation.max_duration_seconds", 300)
	l.v.SetDefault("file_rotation.check_interval_seconds", 5)

	l.v.SetDefault("generator.games", 1000)
	l.v.SetDefault("generator.seed", 0)
	l.v.SetDefault("generator.chess960_ratio", 0.05)
	l.v.SetDefault("generator.output", "generated.pgn")

	l.v.SetDefault("observability.logging.level", "info")
	l.v.SetDefault("observability.logging.format", "text")
	l.v.SetDefault("observability.logging.output", "stderr")
	l.v.SetDefault("observability.metrics.enabled", false)
	l.v.SetDefault("observability.metrics.port", 9090)
	l.v.SetDefault("observability.metrics.path", "/metrics")
	l.v.SetDefault("observability.metrics.textfile", "")
	l.v.SetDefault("observability.health.port", 0)
	l.v.SetDefault("observability.progress", true)

	l.v.SetDefault("shutdown.grace_period_seconds", 10)
}

// resolve fills settings that default to other settings.
func resolve(config *dto.ApplicationConfig) {
	if config.Conversion.Workers == 0 {
		config.Conversion.Workers = runtime.NumCPU()
	}
	if config.Output.Dir == "" {
		config.Output.Dir = config.Input.Dir
	}
	if config.Storage.File.BasePath == "" {
		config.Storage.File.BasePath = config.Output.Dir
	}
	config.Output.Format = strings.ToLower(config.Output.Format)
}

// Validate validates the settings shared by every command. Failures are
// *errors.ConfigError.
func (l *Loader) Validate(config *dto.ApplicationConfig) error {
	if len(config.Conversion.Tags) > 0 {
		if _, err := schema.New(config.Conversion.Tags); err != nil {
			return err
		}
	}
	if config.Conversion.Workers < 0 {
		return &errors.ConfigError{
			Field:  "conversion.workers",
			Value:  fmt.Sprint(config.Conversion.Workers),
			Reason: "must not be negative",
		}
	}

	if config.Input.Dir == "" {
		return &errors.ConfigError{Field: "input.dir", Reason: "required"}
	}
	if len(config.Input.Patterns) == 0 {
		return &errors.ConfigError{Field: "input.patterns", Reason: "at least one pattern is required"}
	}

	if err := validateOutput(config.Output); err != nil {
		return err
	}

	switch config.Storage.Backend {
	case "file":
		if err := config.Storage.File.Validate(); err != nil {
			return err
		}
	case "s3":
		if err := config.Storage.S3.Validate(); err != nil {
			return err
		}
	case "gcs":
		if err := config.Storage.GCS.Validate(); err != nil {
			return err
		}
	case "azure":
		if err := config.Storage.Azure.Validate(); err != nil {
			return err
		}
	default:
		return &errors.ConfigError{
			Field:  "storage.backend",
			Value:  config.Storage.Backend,
			Reason: "supported: " + strings.Join(storage.SupportedBackends(), ", "),
		}
	}

	rotation := config.FileRotation
	if rotation.MaxFileSizeMB < 0 || rotation.MaxRecordsPerFile < 0 || rotation.MaxDurationSeconds < 0 || rotation.CheckIntervalSeconds < 0 {
		return &errors.ConfigError{Field: "file_rotation", Reason: "limits must not be negative"}
	}

	if config.Generator.Games < 0 {
		return &errors.ConfigError{Field: "generator.games", Value: fmt.Sprint(config.Generator.Games), Reason: "must not be negative"}
	}
	if r := config.Generator.Chess960Ratio; r < 0 || r > 1 {
		return &errors.ConfigError{Field: "generator.chess960_ratio", Value: fmt.Sprint(r), Reason: "must be between 0 and 1"}
	}

	return validateObservability(config.Observability)
}

func validateOutput(output dto.OutputConfig) error {
	format := game.Format(output.Format)
	supported := false
	var names []string
	for _, f := range encoder.SupportedFormats() {
		names = append(names, string(f))
		if f == format {
			supported = true
		}
	}
	if !supported {
		return &errors.ConfigError{
			Field:  "output.format",
			Value:  output.Format,
			Reason: "supported: " + strings.Join(names, ", "),
			Err:    errors.ErrUnsupportedFormat,
		}
	}

	if _, err := encoder.NewFactory(format, output.Compression).CreateEncoder(); err != nil {
		return &errors.ConfigError{
			Field:  "output.compression",
			Value:  output.Compression,
			Reason: "supported for " + output.Format + ": " + strings.Join(encoder.SupportedCompressions(format), ", "),
			Err:    errors.ErrUnsupportedFormat,
		}
	}
	return nil
}

func validateObservability(config dto.ObservabilityConfig) error {
	switch strings.ToLower(config.Logging.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return &errors.ConfigError{Field: "observability.logging.level", Value: config.Logging.Level, Reason: "supported: debug, info, warn, error"}
	}
	switch strings.ToLower(config.Logging.Format) {
	case "json", "text":
	default:
		return &errors.ConfigError{Field: "observability.logging.format", Value: config.Logging.Format, Reason: "supported: json, text"}
	}

	if config.Metrics.Enabled && (config.Metrics.Port < 1 || config.Metrics.Port > 65535) {
		return &errors.ConfigError{Field: "observability.metrics.port", Value: fmt.Sprint(config.Metrics.Port), Reason: "must be between 1 and 65535"}
	}
	if config.Health.Port < 0 || config.Health.Port > 65535 {
		return &errors.ConfigError{Field: "observability.health.port", Value: fmt.Sprint(config.Health.Port), Reason: "must be between 0 and 65535"}
	}
	return nil
}
