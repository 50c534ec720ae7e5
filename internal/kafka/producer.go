package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/IBM/sarama"
	cloudevents "github.com/cloudevents/sdk-go/v2"
)

// ProducerConfig contains Kafka producer configuration.
type ProducerConfig struct {
	BootstrapServers []string
	Security         SecurityConfig
	RequiredAcks     int
	CompressionType  string
	MaxMessageBytes  int
	Idempotent       bool
	RetryMax         int
	RetryBackoffMS   int
}

// Producer publishes PGN games as CloudEvents.
type Producer struct {
	producer sarama.SyncProducer
	logger   *slog.Logger
}

// NewProducer creates a new Kafka producer.
func NewProducer(config ProducerConfig, logger *slog.Logger) (*Producer, error) {
	saramaConfig, err := newProducerConfig(config)
	if err != nil {
		return nil, err
	}

	producer, err := sarama.NewSyncProducer(config.BootstrapServers, saramaConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka producer: %w", err)
	}

	logger.Info("kafka producer created",
		"bootstrap_servers", config.BootstrapServers,
		"security_protocol", config.Security.Protocol,
		"compression", config.CompressionType,
	)

	return newProducer(producer, logger), nil
}

func newProducer(producer sarama.SyncProducer, logger *slog.Logger) *Producer {
	return &Producer{producer: producer, logger: logger}
}

func newProducerConfig(config ProducerConfig) (*sarama.Config, error) {
	saramaConfig := sarama.NewConfig()
	saramaConfig.Version = sarama.V2_8_0_0
	saramaConfig.Producer.Return.Successes = true
	saramaConfig.Producer.Return.Errors = true
	saramaConfig.Producer.RequiredAcks = sarama.WaitForAll
	if config.RequiredAcks != 0 {
		saramaConfig.Producer.RequiredAcks = sarama.RequiredAcks(config.RequiredAcks)
	}
	saramaConfig.Producer.Compression = parseCompressionType(config.CompressionType)
	if config.MaxMessageBytes > 0 {
		saramaConfig.Producer.MaxMessageBytes = config.MaxMessageBytes
	}
	if config.RetryMax > 0 {
		saramaConfig.Producer.Retry.Max = config.RetryMax
	}
	if config.RetryBackoffMS > 0 {
		saramaConfig.Producer.Retry.Backoff = time.Duration(config.RetryBackoffMS) * time.Millisecond
	}

	// Idempotence needs acks=all and a single in-flight request.
	if config.Idempotent {
		saramaConfig.Producer.Idempotent = true
		saramaConfig.Producer.RequiredAcks = sarama.WaitForAll
		saramaConfig.Net.MaxOpenRequests = 1
	}

	if err := configureSecurity(saramaConfig, config.Security); err != nil {
		return nil, fmt.Errorf("failed to configure security: %w", err)
	}
	return saramaConfig, nil
}

// ProduceEvent publishes e in structured mode, keyed by the event id. The
// ce_ headers are set too so consumers can route without parsing the value.
func (p *Producer) ProduceEvent(ctx context.Context, topic string, e cloudevents.Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	value, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to marshal cloud event: %w", err)
	}

	msg := &sarama.ProducerMessage{
		Topic: topic,
		Key:   sarama.StringEncoder(e.ID()),
		Value: sarama.ByteEncoder(value),
		Headers: []sarama.RecordHeader{
			{Key: []byte(headerSpecVersion), Value: []byte(e.SpecVersion())},
			{Key: []byte(headerType), Value: []byte(e.Type())},
			{Key: []byte(headerSource), Value: []byte(e.Source())},
			{Key: []byte(headerID), Value: []byte(e.ID())},
		},
	}

	partition, offset, err := p.producer.SendMessage(msg)
	if err != nil {
		return fmt.Errorf("failed to send message to kafka: %w", err)
	}

	p.logger.Debug("event produced",
		"topic", topic,
		"partition", partition,
		"offset", offset,
		"event_id", e.ID(),
		"event_type", e.Type(),
	)
	return nil
}

// Close closes the Kafka producer.
func (p *Producer) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}

func parseCompressionType(compressionType string) sarama.CompressionCodec {
	switch compressionType {
	case "gzip":
		return sarama.CompressionGZIP
	case "snappy":
		return sarama.CompressionSnappy
	case "lz4":
		return sarama.CompressionLZ4
	case "zstd":
		return sarama.CompressionZSTD
	default:
		return sarama.CompressionNone
	}
}
