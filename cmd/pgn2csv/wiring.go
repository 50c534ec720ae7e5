package main

import (
	"time"

	"github.com/jmviz/lichess-pgn-tags-to-csv/internal/config/dto"
	"github.com/jmviz/lichess-pgn-tags-to-csv/internal/convert"
	"github.com/jmviz/lichess-pgn-tags-to-csv/internal/generator"
	"github.com/jmviz/lichess-pgn-tags-to-csv/internal/kafka"
	"github.com/jmviz/lichess-pgn-tags-to-csv/internal/storage"
	"github.com/jmviz/lichess-pgn-tags-to-csv/internal/stream"
	"github.com/jmviz/lichess-pgn-tags-to-csv/internal/transcoder"
)

func conversionOptions(cfg *dto.ApplicationConfig) convert.Options {
	return convert.Options{
		Tags:        cfg.Conversion.Tags,
		Mode:        transcoder.ModeOf(cfg.Conversion.Minify),
		Variant:     cfg.Conversion.Variant,
		AutoVariant: cfg.Conversion.AutoVariant,
	}
}

func storageConfig(cfg *dto.ApplicationConfig) storage.Config {
	s := cfg.Storage
	return storage.Config{
		Backend: s.Backend,
		File: storage.FileConfig{
			BasePath: s.File.BasePath,
		},
		S3: storage.S3Config{
			Bucket:       s.S3.Bucket,
			Region:       s.S3.Region,
			BasePath:     s.S3.BasePath,
			Endpoint:     s.S3.Endpoint,
			UsePathStyle: s.S3.UsePathStyle,
			SSEEnabled:   s.S3.SSEEnabled,
			SSEKMSKeyID:  s.S3.SSEKMSKeyID,
		},
		GCS: storage.GCSConfig{
			Bucket:               s.GCS.Bucket,
			ProjectID:            s.GCS.ProjectID,
			BasePath:             s.GCS.BasePath,
			CredentialsFile:      s.GCS.CredentialsFile,
			CredentialsJSON:      s.GCS.CredentialsJSON,
			Endpoint:             s.GCS.Endpoint,
			UseDefaultCredential: s.GCS.UseDefaultCredential,
		},
		Azure: storage.AzureConfig{
			AccountName:   s.Azure.AccountName,
			AccountKey:    s.Azure.AccountKey,
			ContainerName: s.Azure.Container,
			Endpoint:      s.Azure.Endpoint,
			BasePath:      s.Azure.BasePath,
		},
	}
}

func securityConfig(k dto.KafkaConfig) kafka.SecurityConfig {
	return kafka.SecurityConfig{
		Protocol:      k.SecurityProtocol,
		SASLMechanism: k.SASLMechanism,
		SASLUsername:  k.SASLUsername,
		SASLPassword:  k.SASLPassword,
		Region:        k.Region,
		TLS: kafka.TLSConfig{
			CACertFile:         k.TLS.CACertFile,
			ClientCertFile:     k.TLS.ClientCertFile,
			ClientKeyFile:      k.TLS.ClientKeyFile,
			InsecureSkipVerify: k.TLS.InsecureSkipVerify,
		},
	}
}

func consumerConfig(cfg *dto.ApplicationConfig) kafka.ConsumerConfig {
	k := cfg.Kafka
	return kafka.ConsumerConfig{
		BootstrapServers:    k.BootstrapServers,
		GroupID:             k.Consumer.GroupID,
		Security:            securityConfig(k),
		AutoOffsetReset:     k.Consumer.AutoOffsetReset,
		MaxPollIntervalMS:   k.Consumer.MaxPollIntervalMS,
		SessionTimeoutMS:    k.Consumer.SessionTimeoutMS,
		HeartbeatIntervalMS: k.Consumer.HeartbeatIntervalMS,
		EventTypes:          k.Consumer.EventTypes,
	}
}

func producerConfig(cfg *dto.ApplicationConfig) kafka.ProducerConfig {
	k := cfg.Kafka
	return kafka.ProducerConfig{
		BootstrapServers: k.BootstrapServers,
		Security:         securityConfig(k),
		RequiredAcks:     k.Producer.RequiredAcks,
		CompressionType:  k.Producer.CompressionType,
		MaxMessageBytes:  k.Producer.MaxMessageBytes,
		Idempotent:       k.Producer.Idempotent,
		RetryMax:         k.Producer.RetryMax,
		RetryBackoffMS:   k.Producer.RetryBackoffMS,
	}
}

func policyConfig(cfg *dto.ApplicationConfig) storage.PolicyConfig {
	return storage.PolicyConfig{
		MaxFileSizeMB:      cfg.FileRotation.MaxFileSizeMB,
		MaxGamesPerFile:    cfg.FileRotation.MaxRecordsPerFile,
		MaxDurationSeconds: cfg.FileRotation.MaxDurationSeconds,
	}
}

func streamConfig(cfg *dto.ApplicationConfig) stream.Config {
	return stream.Config{
		Topics:        cfg.Kafka.Consumer.Topics,
		CheckInterval: time.Duration(cfg.FileRotation.CheckIntervalSeconds) * time.Second,
	}
}

func generatorConfig(cfg *dto.ApplicationConfig) generator.Config {
	return generator.Config{
		Games:         cfg.Generator.Games,
		Seed:          cfg.Generator.Seed,
		Chess960Ratio: cfg.Generator.Chess960Ratio,
	}
}
