package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/jmviz/lichess-pgn-tags-to-csv/internal/config/dto"
	"github.com/jmviz/lichess-pgn-tags-to-csv/internal/encoder"
	"github.com/jmviz/lichess-pgn-tags-to-csv/internal/generator"
	"github.com/jmviz/lichess-pgn-tags-to-csv/internal/kafka"
)

var generateBindings = []binding{
	{"games", "generator.games"},
	{"seed", "generator.seed"},
	{"chess960-ratio", "generator.chess960_ratio"},
	{"output", "generator.output"},
	{"brokers", "kafka.bootstrap_servers"},
	{"topic", "kafka.producer.topic"},
}

func newGenerateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate synthetic lichess games",
		Long: `Generate synthetic lichess-style PGN games. Games are written to a PGN file,
compressed according to its extension, or published to a Kafka topic as
CloudEvents when --topic is set. A fixed --seed reproduces the same games.`,
		Args: cobra.NoArgs,
		RunE: runGenerate,
	}

	flags := cmd.Flags()
	flags.Int("games", 1000, "number of games")
	flags.Int64("seed", 0, "random seed (0 seeds from the clock)")
	flags.Float64("chess960-ratio", 0.05, "share of Chess960 games")
	flags.StringP("output", "o", "generated.pgn", "output file; .bz2, .gz and .zst are compressed")
	flags.StringSlice("brokers", nil, "Kafka bootstrap servers")
	flags.String("topic", "", "publish to this Kafka topic instead of writing a file")
	return cmd
}

func runGenerate(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd, generateBindings)
	if err != nil {
		return err
	}

	logger := newLogger(cfg)
	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	gen := generator.New(generatorConfig(cfg), logger)

	if cfg.Kafka.Producer.Topic != "" {
		n, err := publishGames(ctx, cfg, gen, logger)
		if err != nil {
			return fmt.Errorf("published %d games: %w", n, err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Published %d games to %s\n", n, cfg.Kafka.Producer.Topic)
		return nil
	}

	n, err := writeGames(ctx, cfg.Generator.Output, gen)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d games to %s\n", n, cfg.Generator.Output)
	return nil
}

func publishGames(ctx context.Context, cfg *dto.ApplicationConfig, gen *generator.Generator, logger *slog.Logger) (int, error) {
	if err := cfg.Kafka.ValidateProducer(); err != nil {
		return 0, err
	}
	producer, err := kafka.NewProducer(producerConfig(cfg), logger)
	if err != nil {
		return 0, err
	}
	defer producer.Close()

	return gen.Publish(ctx, producer, cfg.Kafka.Producer.Topic)
}

// writeGames writes the generated games to path, compressed by its
// extension. A failed file is removed.
func writeGames(ctx context.Context, path string, gen *generator.Generator) (n int, err error) {
	f, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer func() {
		if err != nil {
			f.Close()
			os.Remove(path)
		}
	}()

	var w io.WriteCloser
	w, err = encoder.NewCompressWriter(f, encoder.CompressionFromExtension(path))
	if err != nil {
		return 0, err
	}

	n, err = gen.WritePGN(ctx, w)
	if err != nil {
		w.Close()
		return n, err
	}
	if err = w.Close(); err != nil {
		return n, fmt.Errorf("failed to flush %s: %w", path, err)
	}
	if err = f.Close(); err != nil {
		return n, fmt.Errorf("failed to close %s: %w", path, err)
	}
	return n, nil
}
