package main

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/jmviz/lichess-pgn-tags-to-csv/internal/convert"
	"github.com/jmviz/lichess-pgn-tags-to-csv/internal/encoder"
	"github.com/jmviz/lichess-pgn-tags-to-csv/internal/kafka"
	"github.com/jmviz/lichess-pgn-tags-to-csv/internal/observability"
	"github.com/jmviz/lichess-pgn-tags-to-csv/internal/server"
	"github.com/jmviz/lichess-pgn-tags-to-csv/internal/storage"
	"github.com/jmviz/lichess-pgn-tags-to-csv/internal/stream"
	"github.com/jmviz/lichess-pgn-tags-to-csv/pkg/consumer"
	"github.com/jmviz/lichess-pgn-tags-to-csv/pkg/game"
)

const (
	componentConsumer = "consumer"
	componentStorage  = "storage"
)

var streamBindings = []binding{
	{"brokers", "kafka.bootstrap_servers"},
	{"group", "kafka.consumer.group_id"},
	{"topics", "kafka.consumer.topics"},
	{"out", "output.dir"},
	{"tags", "conversion.tags"},
	{"minify", "conversion.minify"},
	{"format", "output.format"},
	{"compression", "output.compression"},
	{"max-games", "file_rotation.max_records_per_file"},
	{"health-port", "observability.health.port"},
}

func newStreamCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stream",
		Short: "Convert PGN games consumed from Kafka",
		Long: `Consume PGN games from Kafka topics, as raw PGN or as CloudEvents, and write
them to rotating outputs under topic/dt=YYYY-MM-DD/pid=N/. Offsets are committed
only after the output holding their games has been committed.`,
		Args: cobra.NoArgs,
		RunE: runStream,
	}

	flags := cmd.Flags()
	flags.StringSlice("brokers", nil, "Kafka bootstrap servers")
	flags.String("group", "pgn2csv", "consumer group id")
	flags.StringSlice("topics", nil, "topics to consume; names containing chess960 hold Chess960 games")
	flags.String("out", ".", "output base directory for the file backend")
	flags.StringSlice("tags", nil, "comma separated tags to output, in column order")
	flags.Bool("minify", false, "rewrite well-known tags into short codes")
	flags.String("format", string(game.FormatCSV), "output format: csv, parquet or avro")
	flags.String("compression", "", "output compression, format specific")
	flags.Int("max-games", 0, "rotate outputs after this many games")
	flags.Int("health-port", 0, "serve health probes on this port")
	return cmd
}

func runStream(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd, streamBindings)
	if err != nil {
		return err
	}
	if err := cfg.Kafka.ValidateConsumer(); err != nil {
		return err
	}

	logger := newLogger(cfg)
	logger.Info("starting stream",
		"version", version,
		"topics", cfg.Kafka.Consumer.Topics,
		"group_id", cfg.Kafka.Consumer.GroupID,
		"backend", cfg.Storage.Backend,
	)

	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	registry := prometheus.NewRegistry()
	metrics := observability.NewMetrics(registry)
	state := server.NewState(componentConsumer, componentStorage)
	shutdown, err := startServer(cfg, state, registry, logger)
	if err != nil {
		return err
	}
	defer shutdown()

	transcoders, err := convert.NewTranscoders(conversionOptions(cfg))
	if err != nil {
		return err
	}
	enc, err := encoder.NewFactory(game.Format(cfg.Output.Format), cfg.Output.Compression).CreateEncoder()
	if err != nil {
		return err
	}

	store, err := storage.NewWriter(ctx, storageConfig(cfg), logger, metrics)
	if err != nil {
		return err
	}
	defer store.Close()
	state.Set(componentStorage, server.StatusOK)

	cons, err := kafka.NewSaramaConsumer(consumerConfig(cfg), logger, metrics)
	if err != nil {
		return fmt.Errorf("failed to create consumer: %w", err)
	}
	defer cons.Close()

	processor := stream.NewProcessor(
		streamConfig(cfg),
		&readyConsumer{Consumer: cons, state: state},
		transcoders,
		enc,
		store,
		storage.NewRouter(""),
		storage.NewPolicy(policyConfig(cfg)),
		logger,
		metrics,
	)

	err = processor.Run(ctx)
	if err != nil {
		state.Set(componentConsumer, server.StatusFailed)
		return err
	}
	state.Set(componentConsumer, server.StatusStopping)
	logger.Info("stream stopped")
	return nil
}

// readyConsumer reports the consumer ready once its group session started.
type readyConsumer struct {
	consumer.Consumer
	state *server.State
}

func (c *readyConsumer) Consume(ctx context.Context) (<-chan *consumer.Message, <-chan error, error) {
	messages, errs, err := c.Consumer.Consume(ctx)
	if err == nil {
		c.state.Set(componentConsumer, server.StatusOK)
	}
	return messages, errs, err
}
